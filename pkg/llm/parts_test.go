package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/cognilink/pkg/avatar"
	"github.com/killallgit/cognilink/pkg/chat"
)

func TestMessageParts(t *testing.T) {
	t.Run("should send plain text as one part", func(t *testing.T) {
		parts := MessageParts(chat.NewUserMessage("hello", nil))
		assert.Equal(t, []Part{TextPart("hello")}, parts)
	})

	t.Run("should introduce text files before the content", func(t *testing.T) {
		msg := chat.NewUserMessage("summarise", &chat.Attachment{
			Name:     "notes.txt",
			DataURI:  chat.EncodeDataURI("text/plain", []byte("hi")),
			MIMEType: "text/plain",
		})

		parts := MessageParts(msg)
		require.Len(t, parts, 3)
		assert.Equal(t, `The user has attached a text file named "notes.txt". Please analyze its content.`, parts[0].Text)
		assert.Equal(t, "summarise", parts[1].Text)
		assert.Equal(t, Part{MIMEType: "text/plain", Data: []byte("hi")}, parts[2])
	})

	t.Run("should introduce PDFs", func(t *testing.T) {
		msg := chat.NewUserMessage("", &chat.Attachment{
			Name:     "paper.pdf",
			DataURI:  chat.EncodeDataURI("application/pdf", []byte("%PDF")),
			MIMEType: "application/pdf",
		})

		parts := MessageParts(msg)
		require.Len(t, parts, 2)
		assert.Contains(t, parts[0].Text, `PDF file named "paper.pdf"`)
		assert.True(t, parts[1].IsBinary())
	})

	t.Run("should not introduce images", func(t *testing.T) {
		msg := chat.NewUserMessage("what is this", &chat.Attachment{
			Name:     "cat.png",
			DataURI:  chat.EncodeDataURI("image/png", []byte{0x89}),
			MIMEType: "image/png",
		})

		parts := MessageParts(msg)
		require.Len(t, parts, 2)
		assert.Equal(t, "what is this", parts[0].Text)
		assert.Equal(t, "image/png", parts[1].MIMEType)
	})

	t.Run("should drop malformed attachments", func(t *testing.T) {
		msg := chat.NewUserMessage("text", &chat.Attachment{Name: "x", DataURI: "not a uri", MIMEType: "text/plain"})
		assert.Equal(t, []Part{TextPart("text")}, MessageParts(msg))
	})
}

func TestHistoryTurns(t *testing.T) {
	t.Run("should drop messages without parts and skip introductions", func(t *testing.T) {
		history := []chat.Message{
			chat.NewUserMessage("q", &chat.Attachment{
				Name:     "a.txt",
				DataURI:  chat.EncodeDataURI("text/plain", []byte("x")),
				MIMEType: "text/plain",
			}),
			chat.NewPlaceholder(),
			chat.NewModelMessage("a", nil),
		}

		turns := HistoryTurns(history)
		require.Len(t, turns, 2)
		assert.Equal(t, chat.RoleUser, turns[0].Role)
		assert.Len(t, turns[0].Parts, 2)
		assert.Equal(t, "q", turns[0].Parts[0].Text)
		assert.Equal(t, chat.RoleModel, turns[1].Role)
	})
}

func TestPersonaFor(t *testing.T) {
	p := PersonaFor(avatar.Avatar{PrimeDirective: "You are Zeno", Temperature: 0.4, WebAccess: true})
	assert.Equal(t, Persona{SystemInstruction: "You are Zeno", Temperature: 0.4, WebSearch: true}, p)
}

func TestNewOptions(t *testing.T) {
	t.Run("should fall back to the chat model for profiles", func(t *testing.T) {
		o := NewOptions(WithModel("m"))
		assert.Equal(t, "m", o.ProfileModel)
	})

	t.Run("should keep an explicit profile model", func(t *testing.T) {
		o := NewOptions(WithModel("m"), WithProfileModel("p"), WithImageModel("i"), WithAPIKey("k"), WithBaseURL("u"))
		assert.Equal(t, Options{APIKey: "k", BaseURL: "u", Model: "m", ProfileModel: "p", ImageModel: "i"}, o)
	})
}
