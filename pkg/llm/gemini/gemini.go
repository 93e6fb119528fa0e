package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/killallgit/cognilink/pkg/avatar"
	"github.com/killallgit/cognilink/pkg/chat"
	"github.com/killallgit/cognilink/pkg/llm"
	"github.com/killallgit/cognilink/pkg/logger"
	"github.com/killallgit/cognilink/pkg/stream"
)

const (
	DefaultChatModel    = "gemini-2.5-flash"
	DefaultProfileModel = "gemini-3-flash-preview"
	DefaultImageModel   = "imagen-4.0-generate-001"

	profileTemperature = 0.8
)

var tracer = otel.Tracer("github.com/killallgit/cognilink/pkg/llm/gemini")

// permissiveSafety disables content blocking for every configurable category
var permissiveSafety = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
}

// Provider talks to the Gemini API
type Provider struct {
	client  *genai.Client
	options llm.Options
}

func New(ctx context.Context, opts ...llm.Option) (*Provider, error) {
	options := llm.NewOptions(opts...)
	if options.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", llm.ErrMissingAPIKey)
	}
	if options.Model == "" {
		options.Model = DefaultChatModel
	}
	if options.ProfileModel == "" {
		options.ProfileModel = DefaultProfileModel
	}
	if options.ImageModel == "" {
		options.ImageModel = DefaultImageModel
	}

	cfg := &genai.ClientConfig{
		APIKey:  options.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if options.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: options.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Provider{client: client, options: options}, nil
}

func (p *Provider) Name() string  { return "gemini" }
func (p *Provider) Model() string { return p.options.Model }

// OpenStream starts a chat session seeded with the history and sends the message
func (p *Provider) OpenStream(ctx context.Context, req llm.Request) (stream.TextStream, error) {
	session, err := p.client.Chats.Create(ctx, p.options.Model, chatConfig(req.Persona), toContents(llm.HistoryTurns(req.History)))
	if err != nil {
		return nil, classify(err)
	}

	parts := toParts(llm.MessageParts(req.Message))
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: message has no sendable parts", stream.ErrTransport)
	}

	values := make([]genai.Part, 0, len(parts))
	for _, part := range parts {
		values = append(values, *part)
	}

	logger.Debug("Opening Gemini stream model=%s history=%d web=%t", p.options.Model, len(req.History), req.Persona.WebSearch)
	return stream.FromSeq(fragments(session.SendMessageStream(ctx, values...))), nil
}

func fragments(responses iter.Seq2[*genai.GenerateContentResponse, error]) iter.Seq2[stream.Fragment, error] {
	return func(yield func(stream.Fragment, error) bool) {
		for resp, err := range responses {
			if err != nil {
				yield(stream.Fragment{}, classify(err))
				return
			}
			if !yield(fragmentOf(resp), nil) {
				return
			}
		}
	}
}

// fragmentOf extracts the visible text and web citations of one streamed chunk
func fragmentOf(resp *genai.GenerateContentResponse) stream.Fragment {
	var frag stream.Fragment
	if resp == nil || len(resp.Candidates) == 0 {
		return frag
	}

	candidate := resp.Candidates[0]
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			frag.Text += part.Text
		}
	}
	if gm := candidate.GroundingMetadata; gm != nil {
		for _, chunk := range gm.GroundingChunks {
			if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
				continue
			}
			frag.Citations = append(frag.Citations, stream.Citation{URI: chunk.Web.URI, Title: chunk.Web.Title})
		}
	}
	return frag
}

func chatConfig(persona llm.Persona) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:    genai.Ptr(float32(persona.Temperature)),
		SafetySettings: permissiveSafety,
	}
	if persona.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(persona.SystemInstruction, genai.RoleUser)
	}
	if persona.WebSearch {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	return cfg
}

func toParts(parts []llm.Part) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))
	for _, part := range parts {
		if part.IsBinary() {
			out = append(out, genai.NewPartFromBytes(part.Data, part.MIMEType))
			continue
		}
		out = append(out, genai.NewPartFromText(part.Text))
	}
	return out
}

func toContents(turns []llm.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		var role genai.Role = genai.RoleUser
		if turn.Role == chat.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromParts(toParts(turn.Parts), role))
	}
	return contents
}

// GenerateProfile asks the profile model for a JSON persona
func (p *Provider) GenerateProfile(ctx context.Context, description string) (avatar.Profile, error) {
	ctx, span := tracer.Start(ctx, "gemini.GenerateProfile", trace.WithAttributes(
		attribute.String("model", p.options.ProfileModel),
	))
	defer span.End()

	resp, err := p.client.Models.GenerateContent(ctx, p.options.ProfileModel,
		genai.Text(avatar.ProfilePrompt(description)),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      genai.Ptr[float32](profileTemperature),
		},
	)
	if err != nil {
		span.RecordError(err)
		return avatar.Profile{}, fmt.Errorf("failed to generate profile: %w", classify(err))
	}
	return avatar.ParseProfile(fragmentOf(resp).Text)
}

// GenerateImage renders a square PNG avatar and returns it as a data URI
func (p *Provider) GenerateImage(ctx context.Context, description string) (string, error) {
	ctx, span := tracer.Start(ctx, "gemini.GenerateImage", trace.WithAttributes(
		attribute.String("model", p.options.ImageModel),
	))
	defer span.End()

	resp, err := p.client.Models.GenerateImages(ctx, p.options.ImageModel, avatar.ImagePrompt(description), &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: "image/png",
		AspectRatio:    "1:1",
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to generate image: %w", classify(err))
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil || len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
		return "", errors.New("no image returned")
	}
	return chat.EncodeDataURI("image/png", resp.GeneratedImages[0].Image.ImageBytes), nil
}

// classify tags quota errors so the reconciler can pick the right reply
func classify(err error) error {
	if err == nil {
		return nil
	}
	if isQuota(err) {
		return fmt.Errorf("%w: %v", stream.ErrRateLimited, err)
	}
	if errors.Is(err, stream.ErrTransport) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", stream.ErrTransport, err)
}

func isQuota(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED"
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code == http.StatusTooManyRequests || apiErrPtr.Status == "RESOURCE_EXHAUSTED"
	}
	return stream.IsRateLimit(err)
}

var _ llm.ImageProvider = (*Provider)(nil)
