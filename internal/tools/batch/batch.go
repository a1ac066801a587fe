package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/teemow/voicecal/internal/toolerr"
)

// Envelope is the tool-call webhook body sent by the voice platform.
// Some platform versions name the list toolCalls instead of toolCallList.
type Envelope struct {
	Message struct {
		ToolCallList []ToolCall `json:"toolCallList"`
		ToolCalls    []ToolCall `json:"toolCalls"`
	} `json:"message"`
}

// Calls returns the tool calls carried by the envelope.
func (e Envelope) Calls() []ToolCall {
	if len(e.Message.ToolCallList) > 0 {
		return e.Message.ToolCallList
	}
	return e.Message.ToolCalls
}

// ToolCall is one function invocation requested by the agent.
type ToolCall struct {
	ID       string   `json:"id"`
	Function Function `json:"function"`
}

// Function names the tool and carries its arguments.
type Function struct {
	Name string `json:"name"`
	// Arguments is either a JSON object or a string holding one.
	Arguments json.RawMessage `json:"arguments"`
}

// DecodeArguments unmarshals the arguments into v, unwrapping a
// string-encoded object first.
func (f Function) DecodeArguments(v any) error {
	raw := f.Arguments
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("arguments: %w", err)
		}
		if strings.TrimSpace(s) == "" {
			s = "{}"
		}
		raw = json.RawMessage(s)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("arguments: %w", err)
	}
	return nil
}

// Result is the per-call answer. Result holds a JSON document encoded as a
// string, which the platform reads back to the agent verbatim.
type Result struct {
	ToolCallID string `json:"toolCallId"`
	Result     string `json:"result"`
}

// Response is the webhook reply body.
type Response struct {
	Results []Result `json:"results"`
}

// HandlerFunc executes one tool call and returns its success value.
type HandlerFunc func(ctx context.Context, fn Function) (any, error)

// Dispatcher routes tool calls to handlers by function name.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]HandlerFunc)}
}

// Handle registers fn under each of the given function names.
func (d *Dispatcher) Handle(fn HandlerFunc, names ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, name := range names {
		d.handlers[name] = fn
	}
}

// Names returns the registered function names in sorted order.
func (d *Dispatcher) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Process runs the calls in order and returns one Result per call. A failing
// call yields an error descriptor and does not affect the others.
func (d *Dispatcher) Process(ctx context.Context, calls []ToolCall) []Result {
	results := make([]Result, 0, len(calls))
	for _, call := range calls {
		d.mu.RLock()
		fn, ok := d.handlers[call.Function.Name]
		d.mu.RUnlock()

		var value any
		var err error
		if !ok {
			err = toolerr.InvalidRequest("unknown function %q, expected one of: %s",
				call.Function.Name, strings.Join(d.Names(), ", "))
		} else {
			value, err = fn(ctx, call.Function)
		}

		if err != nil {
			results = append(results, NewErrorResult(call.ID, err))
		} else {
			results = append(results, NewSuccessResult(call.ID, value))
		}
	}
	return results
}

// NewSuccessResult encodes value as the call result.
func NewSuccessResult(id string, value any) Result {
	b, err := json.Marshal(value)
	if err != nil {
		return NewErrorResult(id, err)
	}
	return Result{ToolCallID: id, Result: string(b)}
}

// NewErrorResult encodes the error descriptor of err as the call result.
func NewErrorResult(id string, err error) Result {
	b, _ := json.Marshal(toolerr.Describe(err))
	return Result{ToolCallID: id, Result: string(b)}
}

// ErrNoToolCalls is returned by Decode for an envelope without calls.
var ErrNoToolCalls = errors.New("envelope carries no tool calls")

// Decode parses an envelope and returns its calls.
func Decode(data []byte) ([]ToolCall, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode tool-call envelope: %w", err)
	}
	calls := env.Calls()
	if len(calls) == 0 {
		return nil, ErrNoToolCalls
	}
	return calls, nil
}

// ParseStringOrArray parses a parameter that can be a comma-separated string,
// a JSON array encoded as a string, or an array of strings. Empty entries are
// dropped. A nil param yields nil.
func ParseStringOrArray(param any, paramName string) ([]string, error) {
	if param == nil {
		return nil, nil
	}

	var result []string

	switch v := param.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "[") {
			var arr []string
			if err := json.Unmarshal([]byte(trimmed), &arr); err == nil {
				return compact(arr), nil
			}
		}
		result = compact(strings.Split(v, ","))
	case []string:
		result = compact(v)
	case []any:
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
			}
			result = append(result, str)
		}
		result = compact(result)
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}

	return result, nil
}

func compact(items []string) []string {
	var out []string
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// StringList accepts a JSON array of strings, a JSON string holding a
// comma-separated list or a JSON array, or null.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	items, err := ParseStringOrArray(v, "list")
	if err != nil {
		return err
	}
	*l = items
	return nil
}
