package headless

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/killallgit/cognilink/pkg/chat"
	"github.com/killallgit/cognilink/pkg/logger"
)

// ErrReplyFailed is returned when the provider failed and the canned reply was printed instead
var ErrReplyFailed = errors.New("provider failed to answer")

// runner runs the chat in headless mode
type runner struct {
	sender Sender
	output *Output
	opts   Options
}

func newRunner(sender Sender, opts Options) *runner {
	return &runner{
		sender: sender,
		output: NewOutput(opts.ErrOut),
		opts:   opts,
	}
}

// run executes a single prompt in headless mode
func (r *runner) run(ctx context.Context, avatarID, prompt string) error {
	prompt = strings.TrimSpace(prompt)

	var attachment *chat.Attachment
	if r.opts.AttachmentPath != "" {
		att, err := chat.LoadAttachment(r.opts.AttachmentPath)
		if err != nil {
			return err
		}
		attachment = att
	}
	if prompt == "" && attachment == nil {
		return fmt.Errorf("prompt cannot be empty in headless mode")
	}

	logger.Debug("Headless prompt for %s: %q", avatarID, prompt)

	handler := newHeadlessStreamHandler(r.opts.Out, r.opts.ErrOut)
	final, err := r.sender.Send(ctx, avatarID, prompt, attachment, handler)
	if err != nil {
		r.output.Error(fmt.Sprintf("Generation error: %v", err))
		return err
	}

	logger.Debug("Response complete (%d chars, %d sources)", len(final.Content), len(final.Sources))
	if failure := handler.Err(); failure != nil {
		return fmt.Errorf("%w: %v", ErrReplyFailed, failure)
	}
	return nil
}
