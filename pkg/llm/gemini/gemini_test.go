package gemini

import (
	"context"
	"errors"
	"io"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/killallgit/cognilink/pkg/chat"
	"github.com/killallgit/cognilink/pkg/llm"
	"github.com/killallgit/cognilink/pkg/stream"
)

func chunk(text string, web ...*genai.GroundingChunkWeb) *genai.GenerateContentResponse {
	candidate := &genai.Candidate{
		Content: genai.NewContentFromText(text, genai.RoleModel),
	}
	if len(web) > 0 {
		candidate.GroundingMetadata = &genai.GroundingMetadata{}
		for _, w := range web {
			candidate.GroundingMetadata.GroundingChunks = append(candidate.GroundingMetadata.GroundingChunks, &genai.GroundingChunk{Web: w})
		}
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{candidate}}
}

func TestNew(t *testing.T) {
	t.Run("should require an api key", func(t *testing.T) {
		_, err := New(context.Background())
		assert.ErrorIs(t, err, llm.ErrMissingAPIKey)
	})

	t.Run("should apply default models", func(t *testing.T) {
		p, err := New(context.Background(), llm.WithAPIKey("key"))
		require.NoError(t, err)
		assert.Equal(t, "gemini", p.Name())
		assert.Equal(t, DefaultChatModel, p.Model())
		assert.Equal(t, DefaultProfileModel, p.options.ProfileModel)
		assert.Equal(t, DefaultImageModel, p.options.ImageModel)
	})
}

func TestFragmentOf(t *testing.T) {
	t.Run("should collect text and web citations", func(t *testing.T) {
		frag := fragmentOf(chunk("Hello",
			&genai.GroundingChunkWeb{URI: "https://a", Title: "A"},
			&genai.GroundingChunkWeb{URI: ""},
		))
		assert.Equal(t, "Hello", frag.Text)
		assert.Equal(t, []stream.Citation{{URI: "https://a", Title: "A"}}, frag.Citations)
	})

	t.Run("should skip thought parts", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking", Thought: true},
				{Text: "answer"},
			}},
		}}}
		assert.Equal(t, "answer", fragmentOf(resp).Text)
	})

	t.Run("should tolerate empty responses", func(t *testing.T) {
		assert.True(t, fragmentOf(nil).IsEmpty())
		assert.True(t, fragmentOf(&genai.GenerateContentResponse{}).IsEmpty())
	})
}

func TestFragments(t *testing.T) {
	seq := func(yield func(*genai.GenerateContentResponse, error) bool) {
		if !yield(chunk("a"), nil) {
			return
		}
		yield(nil, genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"})
	}

	ts := stream.FromSeq(fragments(iter.Seq2[*genai.GenerateContentResponse, error](seq)))
	defer ts.Close()

	f, err := ts.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", f.Text)

	_, err = ts.Next(context.Background())
	assert.ErrorIs(t, err, stream.ErrRateLimited)

	_, err = ts.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestChatConfig(t *testing.T) {
	t.Run("should carry persona settings and a permissive policy", func(t *testing.T) {
		cfg := chatConfig(llm.Persona{SystemInstruction: "You are Zeno", Temperature: 0.5})

		require.NotNil(t, cfg.Temperature)
		assert.Equal(t, float32(0.5), *cfg.Temperature)
		require.NotNil(t, cfg.SystemInstruction)
		assert.Equal(t, "You are Zeno", cfg.SystemInstruction.Parts[0].Text)
		assert.Len(t, cfg.SafetySettings, 4)
		for _, s := range cfg.SafetySettings {
			assert.Equal(t, genai.HarmBlockThresholdBlockNone, s.Threshold)
		}
		assert.Empty(t, cfg.Tools)
	})

	t.Run("should enable search for web personas", func(t *testing.T) {
		cfg := chatConfig(llm.Persona{WebSearch: true})
		require.Len(t, cfg.Tools, 1)
		assert.NotNil(t, cfg.Tools[0].GoogleSearch)
		assert.Nil(t, cfg.SystemInstruction)
	})
}

func TestToContents(t *testing.T) {
	history := []chat.Message{
		chat.NewUserMessage("look", &chat.Attachment{Name: "a.png", DataURI: chat.EncodeDataURI("image/png", []byte{1, 2}), MIMEType: "image/png"}),
		chat.NewModelMessage("a square", nil),
	}

	contents := toContents(llm.HistoryTurns(history))
	require.Len(t, contents, 2)
	assert.Equal(t, "user", string(contents[0].Role))
	require.Len(t, contents[0].Parts, 2)
	assert.Equal(t, "look", contents[0].Parts[0].Text)
	require.NotNil(t, contents[0].Parts[1].InlineData)
	assert.Equal(t, "image/png", contents[0].Parts[1].InlineData.MIMEType)
	assert.Equal(t, []byte{1, 2}, contents[0].Parts[1].InlineData.Data)
	assert.Equal(t, "model", string(contents[1].Role))
}

func TestClassify(t *testing.T) {
	t.Run("should map quota errors to rate limit", func(t *testing.T) {
		assert.ErrorIs(t, classify(genai.APIError{Code: 429}), stream.ErrRateLimited)
		assert.ErrorIs(t, classify(genai.APIError{Code: 400, Status: "RESOURCE_EXHAUSTED"}), stream.ErrRateLimited)
		assert.ErrorIs(t, classify(errors.New("You exceeded your current quota")), stream.ErrRateLimited)
	})

	t.Run("should map everything else to transport", func(t *testing.T) {
		assert.ErrorIs(t, classify(genai.APIError{Code: 500, Status: "INTERNAL"}), stream.ErrTransport)
		assert.ErrorIs(t, classify(errors.New("connection reset")), stream.ErrTransport)
		assert.NoError(t, classify(nil))
	})
}
