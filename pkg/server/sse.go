package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/killallgit/cognilink/pkg/chat"
	"github.com/killallgit/cognilink/pkg/logger"
	"github.com/killallgit/cognilink/pkg/reconciler"
	"github.com/killallgit/cognilink/pkg/stream"
)

const (
	eventPartial = "partial"
	eventFinal   = "final"
	eventError   = "error"
)

type partialEvent struct {
	Text string `json:"text"`
}

// eventStream relays a reconciled reply as Server-Sent Events. Headers are written
// with the first event, so errors raised before streaming starts still get a status code.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	nextID  int
	started bool
}

func newEventStream(w http.ResponseWriter) (*eventStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("streaming unsupported")
	}
	return &eventStream{w: w, flusher: flusher}, nil
}

func (e *eventStream) start() {
	if e.started {
		return
	}
	e.started = true
	h := e.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	e.w.WriteHeader(http.StatusOK)
}

func (e *eventStream) send(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event, err)
	}
	e.start()
	e.nextID++
	if _, err := fmt.Fprintf(e.w, "id: %d\nevent: %s\ndata: %s\n\n", e.nextID, event, data); err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}

// OnChunk implements stream.Handler
func (e *eventStream) OnChunk(chunk []byte) error {
	return e.send(eventPartial, partialEvent{Text: string(chunk)})
}

// OnComplete implements stream.Handler
func (e *eventStream) OnComplete(final chat.Message) error {
	return e.send(eventFinal, final)
}

// OnError reports the failure kind; the provider's text stays in the log. The canned
// reply still follows as the final event.
func (e *eventStream) OnError(err error) {
	logger.Warn("Reply stream failed: %v", err)
	if sendErr := e.send(eventError, errorResponse{Error: failureKind(err)}); sendErr != nil {
		logger.Debug("Failed to send error event: %v", sendErr)
	}
}

func failureKind(err error) string {
	if errors.Is(err, reconciler.ErrAbandoned) {
		return "abandoned"
	}
	return stream.Classify(err).String()
}

var _ stream.Handler = (*eventStream)(nil)
