package calendar_tools

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/teemow/voicecal/internal/instrumentation"
	"github.com/teemow/voicecal/internal/server"
	"github.com/teemow/voicecal/internal/tools/batch"
	"github.com/teemow/voicecal/internal/tools/common"
	"github.com/teemow/voicecal/internal/toolerr"
)

// CreateEventHandler serves POST /create-event. The body carries the tool
// arguments directly; failures answer with the error descriptor and a status
// derived from its kind.
func CreateEventHandler(sc *server.ServerContext) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var result any
		err := common.Track(r.Context(), sc, ToolCreateEvent, instrumentation.TransportHTTP,
			func(ctx context.Context, ti *instrumentation.ToolInvocation) error {
				body, err := readBody(r)
				if err != nil {
					return err
				}
				args, err := decodeArgs(body)
				if err != nil {
					return err
				}
				result, err = createEvent(ctx, sc, args, ti)
				return err
			})
		if err != nil {
			server.WriteJSON(w, toolerr.HTTPStatus(err), toolerr.Describe(err))
			return
		}
		server.WriteJSON(w, http.StatusOK, result)
	})
}

// ToolCallsHandler serves POST /tool-calls, the voice platform webhook. Every
// call in the envelope gets a result; the response is 200 unless the
// envelope itself cannot be read.
func ToolCallsHandler(sc *server.ServerContext) http.Handler {
	dispatcher := NewDispatcher(sc)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(r)
		if err != nil {
			server.WriteJSON(w, toolerr.HTTPStatus(err), toolerr.Describe(err))
			return
		}
		calls, err := batch.Decode(body)
		if err != nil {
			err = toolerr.InvalidRequest("%v", err)
			server.WriteJSON(w, http.StatusBadRequest, toolerr.Describe(err))
			return
		}

		server.WriteJSON(w, http.StatusOK, batch.Response{
			Results: dispatcher.Process(r.Context(), calls),
		})
	})
}

// NewDispatcher returns a batch dispatcher serving the calendar functions.
func NewDispatcher(sc *server.ServerContext) *batch.Dispatcher {
	d := batch.NewDispatcher()

	d.Handle(func(ctx context.Context, fn batch.Function) (any, error) {
		var result any
		err := common.Track(ctx, sc, ToolCreateEvent, instrumentation.TransportToolCalls,
			func(ctx context.Context, ti *instrumentation.ToolInvocation) error {
				args, err := decodeFunctionArgs(fn)
				if err != nil {
					return err
				}
				result, err = createEvent(ctx, sc, args, ti)
				return err
			})
		return result, err
	}, createEventAliases...)

	d.Handle(func(ctx context.Context, fn batch.Function) (any, error) {
		var result any
		err := common.Track(ctx, sc, ToolPreviewEvent, instrumentation.TransportToolCalls,
			func(_ context.Context, ti *instrumentation.ToolInvocation) error {
				args, err := decodeFunctionArgs(fn)
				if err != nil {
					return err
				}
				result, err = previewEvent(sc, args, ti)
				return err
			})
		return result, err
	}, previewEventAliases...)

	return d
}

func decodeFunctionArgs(fn batch.Function) (createEventArgs, error) {
	var args createEventArgs
	if err := fn.DecodeArguments(&args); err != nil {
		if te, ok := toolerr.As(err); ok {
			return args, te
		}
		return args, toolerr.InvalidRequest("malformed arguments: %v", err)
	}
	return args, nil
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, toolerr.InvalidRequest("request body exceeds %d bytes", maxErr.Limit)
		}
		return nil, toolerr.InvalidRequest("failed to read request body")
	}
	return body, nil
}
