package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/killallgit/cognilink/pkg/avatar"
	"github.com/killallgit/cognilink/pkg/chat"
	"github.com/killallgit/cognilink/pkg/llm"
	"github.com/killallgit/cognilink/pkg/logger"
	"github.com/killallgit/cognilink/pkg/stream"
)

const (
	DefaultModel      = openai.GPT4oMini
	DefaultImageModel = openai.CreateImageModelDallE3
)

// Provider streams chat completions from OpenAI or a compatible endpoint
type Provider struct {
	client  *openai.Client
	options llm.Options
}

func New(opts ...llm.Option) (*Provider, error) {
	options := llm.NewOptions(opts...)
	if options.APIKey == "" {
		return nil, fmt.Errorf("openai: %w", llm.ErrMissingAPIKey)
	}
	if options.Model == "" {
		options.Model = DefaultModel
	}
	if options.ProfileModel == "" {
		options.ProfileModel = options.Model
	}
	if options.ImageModel == "" {
		options.ImageModel = DefaultImageModel
	}

	cfg := openai.DefaultConfig(options.APIKey)
	if options.BaseURL != "" {
		cfg.BaseURL = options.BaseURL
	}
	return &Provider{client: openai.NewClientWithConfig(cfg), options: options}, nil
}

func (p *Provider) Name() string  { return "openai" }
func (p *Provider) Model() string { return p.options.Model }

func (p *Provider) OpenStream(ctx context.Context, req llm.Request) (stream.TextStream, error) {
	if req.Persona.WebSearch {
		logger.Debug("OpenAI chat completions have no web search tool; answering without it")
	}

	s, err := p.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       p.options.Model,
		Messages:    toMessages(req),
		Temperature: float32(req.Persona.Temperature),
		Stream:      true,
	})
	if err != nil {
		return nil, classify(err)
	}
	return &completionStream{stream: s}, nil
}

type completionStream struct {
	stream *openai.ChatCompletionStream
}

func (s *completionStream) Next(ctx context.Context) (stream.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return stream.Fragment{}, err
	}
	resp, err := s.stream.Recv()
	if errors.Is(err, io.EOF) {
		return stream.Fragment{}, io.EOF
	}
	if err != nil {
		return stream.Fragment{}, classify(err)
	}
	if len(resp.Choices) == 0 {
		return stream.Fragment{}, nil
	}
	return stream.TextFragment(resp.Choices[0].Delta.Content), nil
}

func (s *completionStream) Close() error {
	return s.stream.Close()
}

// GenerateProfile requests a JSON object response
func (p *Provider) GenerateProfile(ctx context.Context, description string) (avatar.Profile, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.options.ProfileModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: avatar.ProfilePrompt(description)},
		},
		Temperature: 0.8,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return avatar.Profile{}, fmt.Errorf("failed to generate profile: %w", classify(err))
	}
	if len(resp.Choices) == 0 {
		return avatar.Profile{}, errors.New("no response from OpenAI")
	}
	return avatar.ParseProfile(resp.Choices[0].Message.Content)
}

// GenerateImage renders a square avatar and returns it as a PNG data URI
func (p *Provider) GenerateImage(ctx context.Context, description string) (string, error) {
	resp, err := p.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         avatar.ImagePrompt(description),
		Model:          p.options.ImageModel,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate image: %w", classify(err))
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return "", errors.New("no image returned")
	}
	return "data:image/png;base64," + resp.Data[0].B64JSON, nil
}

func toMessages(req llm.Request) []openai.ChatCompletionMessage {
	var messages []openai.ChatCompletionMessage
	if req.Persona.SystemInstruction != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.Persona.SystemInstruction,
		})
	}
	for _, turn := range llm.HistoryTurns(req.History) {
		messages = append(messages, toMessage(turn.Role, turn.Parts))
	}
	if parts := llm.MessageParts(req.Message); len(parts) > 0 {
		messages = append(messages, toMessage(chat.RoleUser, parts))
	}
	return messages
}

// toMessage keeps text-only turns as plain content. Images become image_url parts,
// text files are inlined and other binaries are dropped.
func toMessage(role chat.Role, parts []llm.Part) openai.ChatCompletionMessage {
	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if role == chat.RoleModel {
		msg.Role = openai.ChatMessageRoleAssistant
	}

	binary := false
	for _, part := range parts {
		if part.IsBinary() {
			binary = true
			break
		}
	}
	if !binary {
		texts := make([]string, 0, len(parts))
		for _, part := range parts {
			texts = append(texts, part.Text)
		}
		msg.Content = strings.Join(texts, "\n\n")
		return msg
	}

	for _, part := range parts {
		switch {
		case !part.IsBinary():
			msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: part.Text})
		case strings.HasPrefix(part.MIMEType, "image/"):
			msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: chat.EncodeDataURI(part.MIMEType, part.Data)},
			})
		case strings.HasPrefix(part.MIMEType, "text/"):
			msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: string(part.Data)})
		default:
			logger.Warn("OpenAI cannot take %s attachments inline; dropping it", part.MIMEType)
		}
	}
	return msg
}

func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", stream.ErrRateLimited, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", stream.ErrRateLimited, err)
	}
	if stream.IsRateLimit(err) {
		return fmt.Errorf("%w: %v", stream.ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %v", stream.ErrTransport, err)
}

var _ llm.ImageProvider = (*Provider)(nil)
