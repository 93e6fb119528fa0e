package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/killallgit/cognilink/pkg/chat"
)

// DateOf formats the export date in UTC as YYYY-MM-DD
func DateOf(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// FileName suggests a download name for an export
func FileName(avatarName string, at time.Time) string {
	return fmt.Sprintf("%s-Chat-%s.md", avatarName, DateOf(at))
}

// Markdown renders a conversation as a Markdown document
func Markdown(avatarName string, history []chat.Message, at time.Time) string {
	var b strings.Builder
	_ = Write(&b, avatarName, history, at)
	return b.String()
}

// Write streams the Markdown rendering of history to w
func Write(w io.Writer, avatarName string, history []chat.Message, at time.Time) error {
	if _, err := fmt.Fprintf(w, "# Chat with %s on %s\n\n", avatarName, DateOf(at)); err != nil {
		return err
	}
	for _, msg := range history {
		if err := writeMessage(w, avatarName, msg); err != nil {
			return err
		}
	}
	return nil
}

func writeMessage(w io.Writer, avatarName string, msg chat.Message) error {
	var b strings.Builder

	speaker := avatarName
	if msg.IsUser() {
		speaker = "User"
	}
	fmt.Fprintf(&b, "**%s:**\n", speaker)

	if msg.Attachment != nil && msg.Attachment.IsImage() {
		fmt.Fprintf(&b, "![User Image](%s)\n", msg.Attachment.DataURI)
	}
	if msg.Content != "" {
		fmt.Fprintf(&b, "%s\n\n", msg.Content)
	}
	if msg.IsModel() && msg.HasSources() {
		b.WriteString("Sources:\n")
		for _, s := range msg.Sources {
			fmt.Fprintf(&b, "- [%s](%s)\n", s.Title, s.URI)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
