package llm

import (
	"fmt"

	"github.com/killallgit/cognilink/pkg/chat"
	"github.com/killallgit/cognilink/pkg/logger"
)

// Part is a provider-neutral piece of a turn: either text or inline binary data
type Part struct {
	Text     string
	MIMEType string
	Data     []byte
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func (p Part) IsBinary() bool {
	return p.MIMEType != ""
}

// Turn is one history entry converted to parts
type Turn struct {
	Role  chat.Role
	Parts []Part
}

// MessageParts converts the outgoing message. Text and PDF attachments are
// preceded by a part naming the file.
func MessageParts(msg chat.Message) []Part {
	return messageParts(msg, true)
}

// HistoryTurns converts prior messages, dropping any that yield no parts
func HistoryTurns(history []chat.Message) []Turn {
	turns := make([]Turn, 0, len(history))
	for _, msg := range history {
		parts := messageParts(msg, false)
		if len(parts) == 0 {
			continue
		}
		turns = append(turns, Turn{Role: msg.Role, Parts: parts})
	}
	return turns
}

func messageParts(msg chat.Message, describe bool) []Part {
	var parts []Part
	if msg.Content != "" {
		parts = append(parts, TextPart(msg.Content))
	}
	if msg.Attachment == nil {
		return parts
	}

	mimeType, data, err := chat.ParseDataURI(msg.Attachment.DataURI)
	if err != nil {
		logger.Warn("Dropping attachment %q: %v", msg.Attachment.Name, err)
		return parts
	}
	if describe {
		if intro := attachmentIntro(*msg.Attachment); intro != "" {
			parts = append([]Part{TextPart(intro)}, parts...)
		}
	}
	return append(parts, Part{MIMEType: mimeType, Data: data})
}

func attachmentIntro(a chat.Attachment) string {
	switch {
	case a.IsText():
		return fmt.Sprintf("The user has attached a text file named %q. Please analyze its content.", a.Name)
	case a.IsPDF():
		return fmt.Sprintf("The user has attached a PDF file named %q. Please analyze its content and answer any questions about it.", a.Name)
	default:
		return ""
	}
}
