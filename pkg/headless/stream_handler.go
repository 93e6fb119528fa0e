package headless

import (
	"io"
	"sync"

	"github.com/killallgit/cognilink/pkg/stream"
)

// headlessStreamHandler prints the reply like the console handler and remembers
// whether the provider failed
type headlessStreamHandler struct {
	*stream.ConsoleHandler
	err error
	mu  sync.Mutex
}

func newHeadlessStreamHandler(out, errOut io.Writer) *headlessStreamHandler {
	return &headlessStreamHandler{ConsoleHandler: stream.NewWriterHandler(out, errOut)}
}

// OnError records err; the canned reply is printed by OnComplete
func (h *headlessStreamHandler) OnError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

// Err returns the provider failure, if any
func (h *headlessStreamHandler) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

var _ stream.Handler = (*headlessStreamHandler)(nil)
