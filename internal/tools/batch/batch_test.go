package batch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/teemow/voicecal/internal/toolerr"
)

func TestParseStringOrArray(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    []string
		wantErr bool
	}{
		{name: "nil input", input: nil, want: nil},
		{name: "single string", input: "a@example.com", want: []string{"a@example.com"}},
		{name: "comma separated", input: "a@example.com, b@example.com", want: []string{"a@example.com", "b@example.com"}},
		{name: "empty string", input: "", want: nil},
		{name: "array of strings", input: []any{"a@example.com", " b@example.com "}, want: []string{"a@example.com", "b@example.com"}},
		{name: "typed string slice", input: []string{"a@example.com", ""}, want: []string{"a@example.com"}},
		{name: "array with non-string", input: []any{"a@example.com", 123}, wantErr: true},
		{name: "invalid type", input: 123, wantErr: true},
		{name: "JSON string array", input: `["a@example.com", "b@example.com"]`, want: []string{"a@example.com", "b@example.com"}},
		{name: "JSON string empty array", input: `[]`, want: nil},
		{name: "bracket but not JSON", input: `[team] a@example.com`, want: []string{"[team] a@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStringOrArray(tt.input, "invitees")
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseStringOrArray() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && !stringSliceEqual(got, tt.want) {
				t.Errorf("ParseStringOrArray() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStringList_UnmarshalJSON(t *testing.T) {
	var args struct {
		Invitees StringList `json:"invitees"`
	}

	tests := []struct {
		body string
		want []string
	}{
		{`{"invitees":["a@example.com","b@example.com"]}`, []string{"a@example.com", "b@example.com"}},
		{`{"invitees":"a@example.com,b@example.com"}`, []string{"a@example.com", "b@example.com"}},
		{`{"invitees":null}`, nil},
		{`{}`, nil},
	}
	for _, tt := range tests {
		args.Invitees = nil
		if err := json.Unmarshal([]byte(tt.body), &args); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.body, err)
		}
		if !stringSliceEqual(args.Invitees, tt.want) {
			t.Errorf("Unmarshal(%s) = %v, want %v", tt.body, args.Invitees, tt.want)
		}
	}

	if err := json.Unmarshal([]byte(`{"invitees":42}`), &args); err == nil {
		t.Error("expected an error for a numeric list")
	}
}

func TestFunction_DecodeArguments(t *testing.T) {
	type args struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "object", raw: `{"name":"Alex"}`, want: "Alex"},
		{name: "string encoded object", raw: `"{\"name\":\"Alex\"}"`, want: "Alex"},
		{name: "missing", raw: ``, want: ""},
		{name: "null", raw: `null`, want: ""},
		{name: "empty string", raw: `""`, want: ""},
		{name: "string with garbage", raw: `"not json"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got args
			err := Function{Arguments: json.RawMessage(tt.raw)}.DecodeArguments(&got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeArguments() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got.Name != tt.want {
				t.Errorf("Name = %q, want %q", got.Name, tt.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	t.Run("toolCallList", func(t *testing.T) {
		calls, err := Decode([]byte(`{"message":{"toolCallList":[{"id":"c1","function":{"name":"createCalendarEvent","arguments":{}}}]}}`))
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if len(calls) != 1 || calls[0].ID != "c1" || calls[0].Function.Name != "createCalendarEvent" {
			t.Errorf("calls = %+v", calls)
		}
	})

	t.Run("toolCalls alias", func(t *testing.T) {
		calls, err := Decode([]byte(`{"message":{"toolCalls":[{"id":"c2","function":{"name":"x"}}]}}`))
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if len(calls) != 1 || calls[0].ID != "c2" {
			t.Errorf("calls = %+v", calls)
		}
	})

	t.Run("no calls", func(t *testing.T) {
		_, err := Decode([]byte(`{"message":{}}`))
		if !errors.Is(err, ErrNoToolCalls) {
			t.Errorf("err = %v, want ErrNoToolCalls", err)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		if _, err := Decode([]byte(`{`)); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestDispatcher_Process(t *testing.T) {
	d := NewDispatcher()
	d.Handle(func(_ context.Context, fn Function) (any, error) {
		var a struct {
			Fail bool `json:"fail"`
		}
		if err := fn.DecodeArguments(&a); err != nil {
			return nil, err
		}
		if a.Fail {
			return nil, toolerr.TimeParse("could not understand the time", nil)
		}
		return map[string]any{"ok": true}, nil
	}, "createCalendarEvent", "calendar_create_event")

	if got, want := d.Names(), []string{"calendar_create_event", "createCalendarEvent"}; !stringSliceEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	results := d.Process(context.Background(), []ToolCall{
		{ID: "1", Function: Function{Name: "createCalendarEvent", Arguments: json.RawMessage(`{}`)}},
		{ID: "2", Function: Function{Name: "calendar_create_event", Arguments: json.RawMessage(`"{\"fail\":true}"`)}},
		{ID: "3", Function: Function{Name: "deleteEverything"}},
	})

	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}

	var ok map[string]any
	if err := json.Unmarshal([]byte(results[0].Result), &ok); err != nil {
		t.Fatalf("result 1: %v", err)
	}
	if results[0].ToolCallID != "1" || ok["ok"] != true {
		t.Errorf("result 1 = %+v", results[0])
	}

	var desc toolerr.Descriptor
	if err := json.Unmarshal([]byte(results[1].Result), &desc); err != nil {
		t.Fatalf("result 2: %v", err)
	}
	if desc.Kind != toolerr.KindTimeParse || desc.OK {
		t.Errorf("result 2 = %+v", desc)
	}

	desc = toolerr.Descriptor{}
	if err := json.Unmarshal([]byte(results[2].Result), &desc); err != nil {
		t.Fatalf("result 3: %v", err)
	}
	if desc.Kind != toolerr.KindInvalidRequest {
		t.Errorf("result 3 kind = %q, want invalid_request", desc.Kind)
	}
	wantMsg := `unknown function "deleteEverything", expected one of: calendar_create_event, createCalendarEvent`
	if desc.Message != wantMsg {
		t.Errorf("result 3 message = %q, want %q", desc.Message, wantMsg)
	}
}

func TestNewErrorResult_Untyped(t *testing.T) {
	r := NewErrorResult("x", errors.New("database exploded at 10.0.0.5"))

	var desc toolerr.Descriptor
	if err := json.Unmarshal([]byte(r.Result), &desc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if desc.Kind != toolerr.KindInternal || desc.Message != "internal error" {
		t.Errorf("descriptor = %+v", desc)
	}
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
