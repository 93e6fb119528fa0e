package headless

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/killallgit/cognilink/pkg/chat"
	"github.com/killallgit/cognilink/pkg/stream"
)

// Sender runs one exchange with an avatar
type Sender interface {
	Send(ctx context.Context, avatarID, text string, attachment *chat.Attachment, handler stream.Handler) (chat.Message, error)
}

// Options controls a headless run
type Options struct {
	AttachmentPath string
	Out            io.Writer
	ErrOut         io.Writer
}

// RunHeadless sends a single prompt to an avatar and streams the answer to stdout.
// This is the main entry point for headless/CLI execution
func RunHeadless(ctx context.Context, sender Sender, avatarID, prompt string, opts Options) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.ErrOut == nil {
		opts.ErrOut = os.Stderr
	}

	r := newRunner(sender, opts)
	if err := r.run(ctx, avatarID, prompt); err != nil {
		return fmt.Errorf("failed to execute prompt: %w", err)
	}
	return nil
}
