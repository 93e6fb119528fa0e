package stream

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/killallgit/cognilink/pkg/chat"
)

// ConsoleHandler writes streaming content to a terminal
type ConsoleHandler struct {
	out      io.Writer
	errOut   io.Writer
	streamed strings.Builder
}

// NewConsoleHandler creates a handler writing to stdout and stderr
func NewConsoleHandler() *ConsoleHandler {
	return NewWriterHandler(os.Stdout, os.Stderr)
}

func NewWriterHandler(out, errOut io.Writer) *ConsoleHandler {
	return &ConsoleHandler{out: out, errOut: errOut}
}

// OnChunk writes chunk as it arrives
func (h *ConsoleHandler) OnChunk(chunk []byte) error {
	h.streamed.Write(chunk)
	_, err := h.out.Write(chunk)
	return err
}

// OnComplete prints whatever part of the final text was not streamed, then the sources.
// A final text that does not continue the streamed one (the error reply) starts a new line.
func (h *ConsoleHandler) OnComplete(final chat.Message) error {
	content := final.Content
	streamed := h.streamed.String()
	h.streamed.Reset()

	rest, continues := strings.CutPrefix(content, streamed)
	if !continues {
		if streamed != "" {
			fmt.Fprintln(h.out)
		}
		rest = content
	}
	if _, err := io.WriteString(h.out, rest); err != nil {
		return err
	}
	if len(content) > 0 && content[len(content)-1] != '\n' {
		fmt.Fprintln(h.out)
	}
	if final.HasSources() {
		fmt.Fprintln(h.out, "\nSources:")
		for i, src := range final.Sources {
			fmt.Fprintf(h.out, "  [%d] %s - %s\n", i+1, src.Title, src.URI)
		}
	}
	return nil
}

// OnError prints error to stderr
func (h *ConsoleHandler) OnError(err error) {
	fmt.Fprintf(h.errOut, "Error: %v\n", err)
}

// Ensure ConsoleHandler implements Handler
var _ Handler = (*ConsoleHandler)(nil)
