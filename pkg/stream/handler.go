package stream

import (
	"context"

	"github.com/killallgit/cognilink/pkg/chat"
)

// Handler receives the visible progress of a reconciled reply.
type Handler interface {
	// OnChunk is called with the text appended by each flush.
	OnChunk(chunk []byte) error

	// OnComplete is called once with the final message written to history.
	OnComplete(final chat.Message) error

	// OnError is called when the stream failed; OnComplete still follows with the canned reply.
	OnError(err error)
}

// HandlerFunc is a function adapter for Handler interface
type HandlerFunc struct {
	ChunkFunc    func(chunk []byte) error
	CompleteFunc func(final chat.Message) error
	ErrorFunc    func(err error)
}

// OnChunk implements Handler
func (h HandlerFunc) OnChunk(chunk []byte) error {
	if h.ChunkFunc != nil {
		return h.ChunkFunc(chunk)
	}
	return nil
}

// OnComplete implements Handler
func (h HandlerFunc) OnComplete(final chat.Message) error {
	if h.CompleteFunc != nil {
		return h.CompleteFunc(final)
	}
	return nil
}

// OnError implements Handler
func (h HandlerFunc) OnError(err error) {
	if h.ErrorFunc != nil {
		h.ErrorFunc(err)
	}
}

// ToStreamingFunc converts a Handler to LangChain's streaming function signature.
func ToStreamingFunc(handler Handler) func(context.Context, []byte) error {
	return func(ctx context.Context, chunk []byte) error {
		select {
		case <-ctx.Done():
			handler.OnError(ctx.Err())
			return ctx.Err()
		default:
			return handler.OnChunk(chunk)
		}
	}
}

// EmitHandler forwards chunks into a Producer's emit function
func EmitHandler(emit func(Fragment) error) Handler {
	return HandlerFunc{
		ChunkFunc: func(chunk []byte) error {
			return emit(TextFragment(string(chunk)))
		},
	}
}

// Ensure implementations satisfy the interface
var _ Handler = HandlerFunc{}
