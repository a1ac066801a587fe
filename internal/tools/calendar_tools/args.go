package calendar_tools

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/teemow/voicecal/internal/scheduler"
	"github.com/teemow/voicecal/internal/tools/batch"
	"github.com/teemow/voicecal/internal/toolerr"
)

// createEventArgs is the argument shape shared by every transport. Agents
// are loose with names and types, so a few aliases are accepted.
type createEventArgs struct {
	Name            string           `json:"name"`
	Datetime        string           `json:"datetime"`
	Start           string           `json:"start"`
	Title           string           `json:"title"`
	DurationMinutes minutes          `json:"durationMinutes"`
	Timezone        string           `json:"timezone"`
	TimeZone        string           `json:"timeZone"`
	Invitees        batch.StringList `json:"invitees"`
}

func (a createEventArgs) request() scheduler.Request {
	when := a.Datetime
	if strings.TrimSpace(when) == "" {
		when = a.Start
	}
	zone := a.Timezone
	if zone == "" {
		zone = a.TimeZone
	}
	return scheduler.Request{
		Name:            a.Name,
		When:            when,
		Title:           a.Title,
		DurationMinutes: int(a.DurationMinutes),
		TimeZone:        zone,
		Invitees:        a.Invitees,
	}
}

// minutes accepts a JSON number or a numeric string.
type minutes int

// UnmarshalJSON implements json.Unmarshaler.
func (m *minutes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(s))
		if len(data) == 0 {
			*m = 0
			return nil
		}
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil || f != float64(int(f)) {
		return toolerr.InvalidRequest("durationMinutes must be a whole number")
	}
	*m = minutes(int(f))
	return nil
}

// decodeArgs converts a decoded JSON document into createEventArgs.
func decodeArgs(data []byte) (createEventArgs, error) {
	var args createEventArgs
	if len(bytes.TrimSpace(data)) == 0 {
		return args, toolerr.InvalidRequest("request body is empty")
	}
	if err := json.Unmarshal(data, &args); err != nil {
		if te, ok := toolerr.As(err); ok {
			return args, te
		}
		return args, toolerr.InvalidRequest("malformed arguments: %v", err)
	}
	return args, nil
}

// argsFromMap converts MCP tool arguments into createEventArgs.
func argsFromMap(m map[string]any) (createEventArgs, error) {
	if m == nil {
		m = map[string]any{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return createEventArgs{}, toolerr.InvalidRequest("malformed arguments: %v", err)
	}
	return decodeArgs(data)
}
