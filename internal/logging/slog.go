package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation  = "operation"
	KeyService    = "service"
	KeyCalendar   = "calendar"
	KeyCallerHash = "caller_hash"
	KeyRequestID  = "request_id"
	KeyEventID    = "event_id"
	KeyKind       = "kind"
	KeyDuration   = "duration"
	KeyStatus     = "status"
	KeyError      = "error"
	KeyTool       = "tool"
	KeyTransport  = "transport"
)

// Status values for consistent logging.
// Note: These are intentionally duplicated from instrumentation package
// to avoid circular dependencies.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Log output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures NewLogger.
type Options struct {
	// Debug lowers the level to debug.
	Debug bool
	// Format is FormatText (default) or FormatJSON.
	Format string
	// Writer defaults to os.Stderr so that stdio transports keep stdout clean.
	Writer io.Writer
}

// NewLogger builds the process logger.
func NewLogger(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(opts.Format, FormatJSON) {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithTool returns a logger with the tool and transport attributes set.
func WithTool(logger *slog.Logger, tool, transport string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool), slog.String(KeyTransport, transport))
}

// WithRequestID returns a logger with the request id attribute set.
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	if requestID == "" {
		return logger
	}
	return logger.With(slog.String(KeyRequestID, requestID))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Calendar returns a slog attribute for the calendar id.
func Calendar(id string) slog.Attr {
	return slog.String(KeyCalendar, id)
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Kind returns a slog attribute for an error kind.
func Kind(kind string) slog.Attr {
	return slog.String(KeyKind, kind)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
//
// Usage:
//
//	logger.Info("operation", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeName returns a hashed representation of a person's name for
// logging. Case and surrounding whitespace are ignored.
func AnonymizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(name))
	return "caller:" + hex.EncodeToString(hash[:6])
}

// CallerHash returns a slog attribute with the anonymized caller name.
//
// Usage:
//
//	logger.Info("event scheduled", logging.CallerHash(req.Name))
func CallerHash(name string) slog.Attr {
	return slog.String(KeyCallerHash, AnonymizeName(name))
}

// SanitizeToken returns a masked version of a token for logging.
// It returns a length indicator without exposing any token content.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}

// ExtractDomain extracts the domain part from an email address.
func ExtractDomain(email string) string {
	if email == "" {
		return ""
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}

// InviteeDomains returns the distinct domains of the given addresses, in
// first-seen order, for logging invitees without their local parts.
func InviteeDomains(emails []string) []string {
	seen := make(map[string]bool, len(emails))
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		d := strings.ToLower(ExtractDomain(e))
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}
