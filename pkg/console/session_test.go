package console

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/peterh/liner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/cognilink/pkg/app"
	"github.com/killallgit/cognilink/pkg/avatar"
	"github.com/killallgit/cognilink/pkg/reconciler"
	"github.com/killallgit/cognilink/pkg/repository"
	"github.com/killallgit/cognilink/pkg/speech"
	"github.com/killallgit/cognilink/pkg/store/memory"
	"github.com/killallgit/cognilink/pkg/testutil"
)

// scriptedReader replays lines, then ends with end
type scriptedReader struct {
	lines   []string
	end     error
	prompts []string
}

func (r *scriptedReader) Prompt(prompt string) (string, error) {
	r.prompts = append(r.prompts, prompt)
	if len(r.lines) == 0 {
		if r.end != nil {
			return "", r.end
		}
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func (r *scriptedReader) Close() error { return nil }

func newTestApp(t *testing.T, provider *testutil.FakeProvider) *app.App {
	t.Helper()
	ctx := context.Background()

	repo := repository.New(memory.NewStore())
	require.NoError(t, repo.SaveAvatars(ctx, []avatar.Avatar{
		{ID: "zeno", Name: "Zeno", Description: "a stoic", PrimeDirective: "You are Zeno.", Temperature: 0.6, WebAccess: true},
		{ID: "ada", Name: "Ada", Description: "a mathematician", PrimeDirective: "You are Ada.", Temperature: 0.8},
	}))

	a, err := app.New(ctx, repo, provider,
		app.WithReconcilerOptions(
			reconciler.WithFlushInterval(time.Hour),
			reconciler.WithMessages(reconciler.MessagesFor("en")),
		),
		app.WithClock(func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }),
	)
	require.NoError(t, err)
	return a
}

func runSession(t *testing.T, a *app.App, opts []Option, lines ...string) (string, *scriptedReader) {
	t.Helper()
	var out bytes.Buffer
	in := &scriptedReader{lines: lines}
	s := NewSession(a, in, &out, opts...)
	require.NoError(t, s.Run(context.Background()))
	return out.String(), in
}

func TestSessionSend(t *testing.T) {
	t.Run("should stream a reply from the selected avatar", func(t *testing.T) {
		provider := testutil.NewFakeProvider("The obstacle is the way.")
		a := newTestApp(t, provider)

		out, in := runSession(t, a, nil, "hello", "/quit")

		assert.Contains(t, out, "Zeno:\nThe obstacle is the way.\n")
		assert.Equal(t, "Zeno> ", in.prompts[0])

		history, err := a.History("zeno")
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "hello", history[0].Content)
	})

	t.Run("should show the canned reply when the provider fails", func(t *testing.T) {
		provider := testutil.NewFakeProvider().WithOpenError(assert.AnError)
		a := newTestApp(t, provider)

		out, _ := runSession(t, a, nil, "hello")

		assert.Contains(t, out, reconciler.MessagesFor("en").Transport)
	})

	t.Run("should start with the requested avatar", func(t *testing.T) {
		provider := testutil.NewFakeProvider("Numbers.")
		a := newTestApp(t, provider)

		_, in := runSession(t, a, []Option{WithAvatar("ada")}, "hi")

		req, ok := provider.LastRequest()
		require.True(t, ok)
		assert.Equal(t, "You are Ada.", req.Persona.SystemInstruction)
		assert.Equal(t, "Ada> ", in.prompts[0])
	})

	t.Run("should end quietly when the prompt is aborted", func(t *testing.T) {
		a := newTestApp(t, testutil.NewFakeProvider())
		var out bytes.Buffer
		s := NewSession(a, &scriptedReader{end: liner.ErrPromptAborted}, &out)

		assert.NoError(t, s.Run(context.Background()))
	})
}

func TestSessionCommands(t *testing.T) {
	t.Run("should switch avatars by name", func(t *testing.T) {
		provider := testutil.NewFakeProvider("Hello.")
		a := newTestApp(t, provider)

		out, _ := runSession(t, a, nil, "/use ada", "hi")

		assert.Contains(t, out, "[Now chatting with] Ada")
		req, ok := provider.LastRequest()
		require.True(t, ok)
		assert.Equal(t, "You are Ada.", req.Persona.SystemInstruction)
		selected, ok := a.Avatars().Selected()
		require.True(t, ok)
		assert.Equal(t, "ada", selected.ID)
	})

	t.Run("should report unknown avatars and commands", func(t *testing.T) {
		a := newTestApp(t, testutil.NewFakeProvider())

		out, _ := runSession(t, a, nil, "/use nobody", "/dance")

		assert.Contains(t, out, "Error: avatar not found: nobody")
		assert.Contains(t, out, "unknown command: /dance")
	})

	t.Run("should list avatars marking the current one", func(t *testing.T) {
		a := newTestApp(t, testutil.NewFakeProvider())

		out, _ := runSession(t, a, nil, "/avatars")

		assert.Contains(t, out, "* Zeno zeno [web]\n")
		assert.Contains(t, out, "  Ada ada\n")
	})

	t.Run("should send an attachment with the next message only", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notes.txt")
		require.NoError(t, os.WriteFile(path, []byte("remember"), 0644))
		provider := testutil.NewFakeProvider("Noted.")
		a := newTestApp(t, provider)

		out, in := runSession(t, a, nil, "/attach "+path, "read this", "and now")

		assert.Contains(t, out, "[Attached] notes.txt (text/plain)")
		assert.Equal(t, "Zeno [notes.txt]> ", in.prompts[1])
		requests := provider.Requests()
		require.Len(t, requests, 2)
		require.NotNil(t, requests[0].Message.Attachment)
		assert.Equal(t, "notes.txt", requests[0].Message.Attachment.Name)
		assert.Nil(t, requests[1].Message.Attachment)
	})

	t.Run("should drop a pending attachment on detach", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notes.txt")
		require.NoError(t, os.WriteFile(path, []byte("remember"), 0644))
		provider := testutil.NewFakeProvider("Ok.")
		a := newTestApp(t, provider)

		runSession(t, a, nil, "/attach "+path, "/detach", "hi")

		req, ok := provider.LastRequest()
		require.True(t, ok)
		assert.Nil(t, req.Message.Attachment)
	})

	t.Run("should clear the conversation", func(t *testing.T) {
		a := newTestApp(t, testutil.NewFakeProvider("Ok."))

		out, _ := runSession(t, a, nil, "hi", "/clear")

		assert.Contains(t, out, "[Conversation cleared]")
		history, err := a.History("zeno")
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("should print the conversation", func(t *testing.T) {
		a := newTestApp(t, testutil.NewFakeProvider("Be calm."))

		out, _ := runSession(t, a, nil, "advice?", "/history")

		assert.Contains(t, out, "You:\nadvice?\n")
		assert.Contains(t, out, "Zeno:\nBe calm.\n")
	})

	t.Run("should export the conversation as markdown", func(t *testing.T) {
		dir := t.TempDir()
		a := newTestApp(t, testutil.NewFakeProvider("Be calm."))

		out, _ := runSession(t, a, []Option{WithExportDir(dir)}, "advice?", "/export")

		path := filepath.Join(dir, "Zeno-Chat-2024-05-01.md")
		assert.Contains(t, out, "[Exported] "+path)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "**User:**\nadvice?")
		assert.Contains(t, string(data), "**Zeno:**\nBe calm.")
	})

	t.Run("should toggle web search for the current avatar", func(t *testing.T) {
		a := newTestApp(t, testutil.NewFakeProvider())

		out, _ := runSession(t, a, nil, "/web off")

		assert.Contains(t, out, "[Web search] off")
		zeno, err := a.Avatars().Get("zeno")
		require.NoError(t, err)
		assert.False(t, zeno.WebAccess)
	})

	t.Run("should create an avatar and switch to it", func(t *testing.T) {
		provider := testutil.NewFakeProvider("Greetings.").
			WithProfile(avatar.Profile{Name: "Hypatia", PrimeDirective: "You are Hypatia."}, nil)
		a := newTestApp(t, provider)

		out, in := runSession(t, a, nil, "/new an astronomer of Alexandria", "hello")

		assert.Contains(t, out, "[Created] Hypatia: an astronomer of Alexandria")
		assert.Equal(t, "Hypatia> ", in.prompts[1])
		assert.Len(t, a.Avatars().List(), 3)
		req, ok := provider.LastRequest()
		require.True(t, ok)
		assert.Equal(t, "You are Hypatia.", req.Persona.SystemInstruction)
	})

	t.Run("should require arguments", func(t *testing.T) {
		a := newTestApp(t, testutil.NewFakeProvider())

		out, _ := runSession(t, a, nil, "/use", "/new", "/attach", "/web sometimes")

		assert.Contains(t, out, "usage: /use <id|name>")
		assert.Contains(t, out, "usage: /new <description>")
		assert.Contains(t, out, "usage: /attach <path>")
		assert.Contains(t, out, "usage: /web on|off")
	})
}

// heardInput reports its transcript as soon as it starts
type heardInput struct {
	results  []speech.Result
	startErr error
	stopped  int
	callback func([]speech.Result)
}

func (h *heardInput) Start(context.Context) error {
	if h.startErr != nil {
		return h.startErr
	}
	h.callback(h.results)
	return nil
}

func (h *heardInput) Stop() error {
	h.stopped++
	return nil
}

func (h *heardInput) OnPartialResult(fn func([]speech.Result)) { h.callback = fn }

func TestSessionDictate(t *testing.T) {
	t.Run("should send the dictated text after the typed prefix", func(t *testing.T) {
		provider := testutil.NewFakeProvider("Virtue is the only good.")
		a := newTestApp(t, provider)
		input := &heardInput{results: []speech.Result{
			{Transcript: "what is ", Final: true},
			{Transcript: "virtue", Final: false},
		}}

		out, _ := runSession(t, a, []Option{WithSpeech(input)}, "/dictate tell me", "/dictate", "/quit")

		assert.Contains(t, out, "[Listening]")
		assert.Contains(t, out, "You: tell me what is virtue")
		assert.Contains(t, out, "Virtue is the only good.")
		assert.Equal(t, 1, input.stopped)

		history, err := a.History("zeno")
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "tell me what is virtue", history[0].Content)
	})

	t.Run("should stop listening on quit", func(t *testing.T) {
		a := newTestApp(t, testutil.NewFakeProvider("unused"))
		input := &heardInput{}

		out, _ := runSession(t, a, []Option{WithSpeech(input)}, "/dictate", "/quit")

		assert.Contains(t, out, "[Listening]")
		assert.Equal(t, 1, input.stopped)
	})

	t.Run("should report a refused microphone", func(t *testing.T) {
		a := newTestApp(t, testutil.NewFakeProvider("unused"))
		input := &heardInput{startErr: speech.ErrPermissionDenied}

		out, _ := runSession(t, a, []Option{WithSpeech(input)}, "/dictate", "/quit")

		assert.Contains(t, out, "Error: microphone access was denied")
	})

	t.Run("should report missing recognition support", func(t *testing.T) {
		a := newTestApp(t, testutil.NewFakeProvider("unused"))

		out, _ := runSession(t, a, nil, "/dictate", "/quit")

		assert.Contains(t, out, "Error: speech recognition is not supported")
	})
}
