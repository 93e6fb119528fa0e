package ollama

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	lcollama "github.com/tmc/langchaingo/llms/ollama"

	"github.com/killallgit/cognilink/pkg/avatar"
	"github.com/killallgit/cognilink/pkg/chat"
	"github.com/killallgit/cognilink/pkg/llm"
	"github.com/killallgit/cognilink/pkg/logger"
	"github.com/killallgit/cognilink/pkg/stream"
)

const (
	DefaultURL   = "http://localhost:11434"
	DefaultModel = "qwen3:latest"
)

// Provider streams chats from a local Ollama server through langchaingo
type Provider struct {
	model   llms.Model
	options llm.Options
}

func New(opts ...llm.Option) (*Provider, error) {
	options := withDefaults(llm.NewOptions(opts...))

	model, err := lcollama.New(
		lcollama.WithModel(options.Model),
		lcollama.WithServerURL(options.BaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return &Provider{model: model, options: options}, nil
}

// NewWithModel wraps an existing langchaingo model
func NewWithModel(model llms.Model, opts ...llm.Option) *Provider {
	return &Provider{model: model, options: withDefaults(llm.NewOptions(opts...))}
}

func withDefaults(o llm.Options) llm.Options {
	if o.BaseURL == "" {
		o.BaseURL = DefaultURL
	}
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.ProfileModel == "" {
		o.ProfileModel = o.Model
	}
	return o
}

func (p *Provider) Name() string  { return "ollama" }
func (p *Provider) Model() string { return p.options.Model }

// OpenStream runs the generation in the background and surfaces its chunks as fragments
func (p *Provider) OpenStream(ctx context.Context, req llm.Request) (stream.TextStream, error) {
	messages := toMessages(req)
	if req.Persona.WebSearch {
		logger.Debug("Ollama has no web search tool; answering without it")
	}

	return stream.NewChannelStream(ctx, func(ctx context.Context, emit func(stream.Fragment) error) error {
		_, err := p.model.GenerateContent(ctx, messages,
			llms.WithTemperature(req.Persona.Temperature),
			llms.WithStreamingFunc(stream.ToStreamingFunc(stream.EmitHandler(emit))),
		)
		if err != nil {
			return classify(err)
		}
		return nil
	}), nil
}

// GenerateProfile requests a JSON persona in JSON mode
func (p *Provider) GenerateProfile(ctx context.Context, description string) (avatar.Profile, error) {
	resp, err := p.model.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, avatar.ProfilePrompt(description))},
		llms.WithJSONMode(),
		llms.WithTemperature(0.8),
	)
	if err != nil {
		return avatar.Profile{}, fmt.Errorf("failed to generate profile: %w", classify(err))
	}
	if resp == nil || len(resp.Choices) == 0 {
		return avatar.Profile{}, errors.New("no response from ollama")
	}
	return avatar.ParseProfile(resp.Choices[0].Content)
}

func toMessages(req llm.Request) []llms.MessageContent {
	var messages []llms.MessageContent
	if req.Persona.SystemInstruction != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.Persona.SystemInstruction))
	}
	for _, turn := range llm.HistoryTurns(req.History) {
		messages = append(messages, toMessage(turn.Role, turn.Parts))
	}
	if parts := llm.MessageParts(req.Message); len(parts) > 0 {
		messages = append(messages, toMessage(chat.RoleUser, parts))
	}
	return messages
}

func toMessage(role chat.Role, parts []llm.Part) llms.MessageContent {
	msgType := llms.ChatMessageTypeHuman
	if role == chat.RoleModel {
		msgType = llms.ChatMessageTypeAI
	}

	content := llms.MessageContent{Role: msgType}
	for _, part := range parts {
		if part.IsBinary() {
			content.Parts = append(content.Parts, llms.BinaryPart(part.MIMEType, part.Data))
			continue
		}
		content.Parts = append(content.Parts, llms.TextContent{Text: part.Text})
	}
	return content
}

func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if stream.IsRateLimit(err) {
		return fmt.Errorf("%w: %v", stream.ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %v", stream.ErrTransport, err)
}

var _ llm.Provider = (*Provider)(nil)
