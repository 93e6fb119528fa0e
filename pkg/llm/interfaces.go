package llm

import (
	"context"
	"errors"

	"github.com/killallgit/cognilink/pkg/avatar"
	"github.com/killallgit/cognilink/pkg/chat"
	"github.com/killallgit/cognilink/pkg/stream"
)

// ErrMissingAPIKey is returned by providers that cannot run without credentials
var ErrMissingAPIKey = errors.New("api key is required")

// Persona is the part of an avatar that shapes a chat session
type Persona struct {
	SystemInstruction string
	Temperature       float64
	WebSearch         bool
}

// PersonaFor derives the session settings from an avatar
func PersonaFor(a avatar.Avatar) Persona {
	return Persona{
		SystemInstruction: a.PrimeDirective,
		Temperature:       a.Temperature,
		WebSearch:         a.WebAccess,
	}
}

// Request is one user turn together with the conversation that precedes it
type Request struct {
	Persona Persona
	History []chat.Message
	Message chat.Message
}

// ChatStreamer opens a streamed reply for a request
type ChatStreamer interface {
	OpenStream(ctx context.Context, req Request) (stream.TextStream, error)
}

// Provider defines the interface for generation backends
type Provider interface {
	ChatStreamer
	avatar.ProfileGenerator

	// Name returns the provider name
	Name() string

	// Model returns the chat model in use
	Model() string
}

// ImageProvider is a Provider that can also draw avatars
type ImageProvider interface {
	Provider
	avatar.ImageGenerator
}
