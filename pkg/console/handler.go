package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/killallgit/cognilink/pkg/chat"
	"github.com/killallgit/cognilink/pkg/stream"
)

// replyHandler renders a streaming reply through a Renderer
type replyHandler struct {
	out      io.Writer
	renderer *Renderer
	color    bool
	streamed strings.Builder
	failed   error
}

func newReplyHandler(out io.Writer, color bool) *replyHandler {
	return &replyHandler{
		out:      out,
		renderer: NewRenderer(out, color),
		color:    color,
	}
}

func (h *replyHandler) OnChunk(chunk []byte) error {
	h.streamed.Write(chunk)
	_, err := h.renderer.Write(chunk)
	return err
}

// OnComplete renders the part of the final text that was not streamed, then the sources.
// A canned error reply replaces the streamed text on a new line.
func (h *replyHandler) OnComplete(final chat.Message) error {
	streamed := h.streamed.String()
	h.streamed.Reset()

	rest, continues := strings.CutPrefix(final.Content, streamed)
	if !continues || h.failed != nil {
		if err := h.renderer.Flush(); err != nil {
			return err
		}
		if streamed != "" {
			fmt.Fprintln(h.out)
		}
		fmt.Fprintln(h.out, h.style(warningStyle, final.Content))
		return nil
	}

	if _, err := h.renderer.Write([]byte(rest)); err != nil {
		return err
	}
	if err := h.renderer.Flush(); err != nil {
		return err
	}
	if !strings.HasSuffix(final.Content, "\n") {
		fmt.Fprintln(h.out)
	}
	if final.HasSources() {
		fmt.Fprintln(h.out, h.style(mutedStyle, "\nSources:"))
		for i, src := range final.Sources {
			title := src.Title
			if title == "" {
				title = src.URI
			}
			fmt.Fprintf(h.out, "  [%d] %s %s\n", i+1, title, h.style(mutedStyle, src.URI))
		}
	}
	return nil
}

func (h *replyHandler) OnError(err error) {
	h.failed = err
}

func (h *replyHandler) style(s interface{ Render(...string) string }, text string) string {
	if !h.color {
		return text
	}
	return s.Render(text)
}

var _ stream.Handler = (*replyHandler)(nil)
