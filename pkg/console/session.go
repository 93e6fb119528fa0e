package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peterh/liner"

	"github.com/killallgit/cognilink/pkg/app"
	"github.com/killallgit/cognilink/pkg/avatar"
	"github.com/killallgit/cognilink/pkg/chat"
	"github.com/killallgit/cognilink/pkg/logger"
	"github.com/killallgit/cognilink/pkg/reconciler"
	"github.com/killallgit/cognilink/pkg/speech"
)

// Commands lists the slash commands, used for tab completion
var Commands = []string{
	"/help", "/avatars", "/use", "/new", "/web", "/attach", "/detach",
	"/history", "/clear", "/export", "/dictate", "/quit",
}

type Option func(*Session)

func WithColor(enabled bool) Option {
	return func(s *Session) { s.color = enabled }
}

// WithAvatar starts the session with avatarID instead of the last selected avatar
func WithAvatar(avatarID string) Option {
	return func(s *Session) { s.current = avatarID }
}

// WithExportDir sets where /export writes when no path is given
func WithExportDir(dir string) Option {
	return func(s *Session) { s.exportDir = dir }
}

// WithSpeech enables /dictate with the given recognizer
func WithSpeech(input speech.Input) Option {
	return func(s *Session) { s.speechInput = input }
}

// Session is an interactive chat with the stored avatars
type Session struct {
	app        *app.App
	in         LineReader
	out        io.Writer
	color      bool
	current    string
	attachment *chat.Attachment
	exportDir  string

	speechInput speech.Input
	dictation   *speech.Dictation
	draftMu     sync.Mutex
	draft       string
}

func NewSession(a *app.App, in LineReader, out io.Writer, opts ...Option) *Session {
	s := &Session{app: a, in: in, out: out, exportDir: "."}
	for _, opt := range opts {
		opt(s)
	}
	s.dictation = speech.NewDictation(s.speechInput, s.onDictated)
	return s
}

// Run reads input until /quit, Ctrl+C at the prompt or end of input
func (s *Session) Run(ctx context.Context) error {
	if err := s.selectInitial(); err != nil {
		return err
	}
	s.printBanner()

	for {
		input, err := s.in.Prompt(s.prompt())
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out)
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			keepGoing, err := s.handleCommand(ctx, input)
			if err != nil {
				s.printError(err)
			}
			if !keepGoing {
				return nil
			}
			continue
		}

		if err := s.send(ctx, input); err != nil {
			s.printError(err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (s *Session) selectInitial() error {
	avatars := s.app.Avatars()
	if s.current != "" {
		return s.app.Select(s.current)
	}
	if selected, ok := avatars.Selected(); ok {
		s.current = selected.ID
		return nil
	}
	if list := avatars.List(); len(list) > 0 {
		s.current = list[0].ID
		return s.app.Select(s.current)
	}
	return nil
}

func (s *Session) prompt() string {
	name := "you"
	if a, err := s.app.Avatars().Get(s.current); err == nil {
		name = a.Name
	}
	if s.attachment != nil {
		return fmt.Sprintf("%s [%s]> ", name, s.attachment.Name)
	}
	return name + "> "
}

func (s *Session) printBanner() {
	provider := s.app.Provider()
	fmt.Fprintln(s.out, s.style(promptStyle, "cognilink"),
		s.style(mutedStyle, fmt.Sprintf("%s (%s)", provider.Name(), provider.Model())))
	if s.current == "" {
		fmt.Fprintln(s.out, s.style(infoStyle, "No avatars yet. Create one with /new <description>"))
	}
	fmt.Fprintln(s.out, s.style(mutedStyle, "Type /help for commands."))
	fmt.Fprintln(s.out)
}

// send streams one reply; Ctrl+C while streaming cancels the reply, not the session
func (s *Session) send(ctx context.Context, text string) error {
	if s.current == "" {
		return errors.New("no avatar selected (use /new or /use)")
	}
	persona, err := s.app.Avatars().Get(s.current)
	if err != nil {
		return err
	}

	attachment := s.attachment
	s.attachment = nil

	sendCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fmt.Fprintln(s.out, s.style(avatarStyle, persona.Name+":"))
	handler := newReplyHandler(s.out, s.color)
	_, err = s.app.Send(sendCtx, s.current, text, attachment, handler)
	switch {
	case errors.Is(err, reconciler.ErrAbandoned):
		fmt.Fprintln(s.out)
		fmt.Fprintln(s.out, s.style(warningStyle, "[Reply abandoned]"))
		return nil
	case errors.Is(err, app.ErrEmptyMessage):
		return errors.New("nothing to send")
	case err != nil:
		return err
	}
	fmt.Fprintln(s.out)
	return nil
}

// handleCommand runs a slash command. It returns false when the session should end.
func (s *Session) handleCommand(ctx context.Context, input string) (bool, error) {
	command, rest, _ := strings.Cut(input, " ")
	command = strings.ToLower(command)
	arg := strings.TrimSpace(rest)

	switch command {
	case "/help", "/h", "/?", "/":
		s.printHelp()
	case "/avatars", "/a":
		s.printAvatars()
	case "/use", "/u":
		return true, s.use(arg)
	case "/new":
		return true, s.create(ctx, arg)
	case "/web":
		return true, s.setWebAccess(ctx, arg)
	case "/attach":
		return true, s.attach(arg)
	case "/detach":
		s.attachment = nil
		fmt.Fprintln(s.out, s.style(commandStyle, "[Attachment removed]"))
	case "/history":
		return true, s.printHistory()
	case "/clear", "/c":
		if err := s.app.ClearHistory(s.current); err != nil {
			return true, err
		}
		fmt.Fprintln(s.out, s.style(commandStyle, "[Conversation cleared]"))
	case "/export":
		return true, s.export(arg)
	case "/dictate", "/d":
		return true, s.dictate(ctx, arg)
	case "/quit", "/q", "/exit":
		if s.dictation.Listening() {
			_, _ = s.dictation.Toggle(ctx, "")
		}
		return false, nil
	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
	return true, nil
}

func (s *Session) printHelp() {
	rows := [][2]string{
		{"/avatars", "List avatars"},
		{"/use <id|name>", "Switch to an avatar"},
		{"/new <description>", "Create an avatar from a description"},
		{"/web on|off", "Toggle web search for the current avatar"},
		{"/attach <path>", "Attach a file to the next message"},
		{"/detach", "Drop the pending attachment"},
		{"/history", "Show the conversation"},
		{"/clear", "Clear the conversation"},
		{"/export [path]", "Export the conversation as Markdown"},
		{"/dictate [text]", "Start dictating after text; run again to send"},
		{"/quit", "Exit"},
	}
	for _, row := range rows {
		fmt.Fprintf(s.out, "  %s %s\n", s.style(commandStyle, fmt.Sprintf("%-20s", row[0])), row[1])
	}
}

func (s *Session) printAvatars() {
	list := s.app.Avatars().List()
	if len(list) == 0 {
		fmt.Fprintln(s.out, s.style(infoStyle, "No avatars yet."))
		return
	}
	for _, a := range list {
		marker := " "
		if a.ID == s.current {
			marker = "*"
		}
		web := ""
		if a.WebAccess {
			web = s.style(mutedStyle, " [web]")
		}
		fmt.Fprintf(s.out, "%s %s %s%s\n", marker, s.style(avatarStyle, a.Name), s.style(mutedStyle, a.ID), web)
	}
}

// use switches by ID, falling back to a case-insensitive name match
func (s *Session) use(arg string) error {
	if arg == "" {
		return errors.New("usage: /use <id|name>")
	}
	target, err := s.find(arg)
	if err != nil {
		return err
	}
	if err := s.app.Select(target.ID); err != nil {
		return err
	}
	s.current = target.ID
	fmt.Fprintf(s.out, "%s %s\n", s.style(commandStyle, "[Now chatting with]"), target.Name)
	return nil
}

func (s *Session) find(arg string) (avatar.Avatar, error) {
	avatars := s.app.Avatars()
	if a, err := avatars.Get(arg); err == nil {
		return a, nil
	}
	for _, a := range avatars.List() {
		if strings.EqualFold(a.Name, arg) {
			return a, nil
		}
	}
	return avatar.Avatar{}, fmt.Errorf("%w: %s", avatar.ErrNotFound, arg)
}

func (s *Session) create(ctx context.Context, description string) error {
	if description == "" {
		return errors.New("usage: /new <description>")
	}
	fmt.Fprintln(s.out, s.style(mutedStyle, "Creating avatar..."))
	created, err := s.app.Avatars().Create(ctx, description)
	if err != nil {
		return err
	}
	if err := s.app.Select(created.ID); err != nil {
		return err
	}
	s.current = created.ID
	fmt.Fprintf(s.out, "%s %s: %s\n", s.style(commandStyle, "[Created]"), s.style(avatarStyle, created.Name), created.Description)
	return nil
}

func (s *Session) setWebAccess(ctx context.Context, arg string) error {
	current, err := s.app.Avatars().Get(s.current)
	if err != nil {
		return err
	}
	switch strings.ToLower(arg) {
	case "on":
		current.WebAccess = true
	case "off":
		current.WebAccess = false
	case "":
		current.WebAccess = !current.WebAccess
	default:
		return errors.New("usage: /web on|off")
	}
	if err := s.app.Avatars().Update(ctx, current); err != nil {
		return err
	}
	state := "off"
	if current.WebAccess {
		state = "on"
	}
	fmt.Fprintf(s.out, "%s %s\n", s.style(commandStyle, "[Web search]"), state)
	return nil
}

func (s *Session) attach(path string) error {
	if path == "" {
		return errors.New("usage: /attach <path>")
	}
	attachment, err := chat.LoadAttachment(path)
	if err != nil {
		return err
	}
	s.attachment = attachment
	fmt.Fprintf(s.out, "%s %s (%s)\n", s.style(commandStyle, "[Attached]"), attachment.Name, attachment.MIMEType)
	return nil
}

func (s *Session) printHistory() error {
	persona, err := s.app.Avatars().Get(s.current)
	if err != nil {
		return err
	}
	history, err := s.app.History(s.current)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Fprintln(s.out, s.style(mutedStyle, "No messages yet."))
		return nil
	}
	for _, msg := range history {
		if msg.IsUser() {
			fmt.Fprintln(s.out, s.style(userStyle, "You:"))
			if msg.Attachment != nil {
				fmt.Fprintln(s.out, s.style(mutedStyle, "[attachment: "+msg.Attachment.Name+"]"))
			}
		} else {
			fmt.Fprintln(s.out, s.style(avatarStyle, persona.Name+":"))
		}
		r := NewRenderer(s.out, s.color)
		_, _ = r.Write([]byte(msg.Content))
		_ = r.Flush()
		fmt.Fprintln(s.out)
	}
	return nil
}

func (s *Session) export(path string) error {
	fileName, markdown, err := s.app.Export(s.current)
	if err != nil {
		return err
	}
	if path == "" {
		path = filepath.Join(s.exportDir, fileName)
	}
	if err := os.WriteFile(path, []byte(markdown), 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	logger.Info("Exported conversation %s to %s", s.current, path)
	fmt.Fprintf(s.out, "%s %s\n", s.style(commandStyle, "[Exported]"), path)
	return nil
}

// dictate starts listening with text as the prefix. Run while listening, it stops and
// sends what was dictated.
func (s *Session) dictate(ctx context.Context, text string) error {
	if !s.dictation.Listening() {
		s.setDraft(speech.Prefix(text))
	}
	listening, err := s.dictation.Toggle(ctx, text)
	if errors.Is(err, speech.ErrPermissionDenied) {
		return errors.New("microphone access was denied")
	}
	if err != nil {
		return err
	}
	if listening {
		fmt.Fprintln(s.out, s.style(commandStyle, "[Listening] run /dictate again to send"))
		return nil
	}

	draft := strings.TrimSpace(s.takeDraft())
	fmt.Fprintln(s.out)
	if draft == "" {
		fmt.Fprintln(s.out, s.style(mutedStyle, "[Nothing dictated]"))
		return nil
	}
	fmt.Fprintln(s.out, s.style(userStyle, "You:"), draft)
	return s.send(ctx, draft)
}

// onDictated receives the recomposed line after every recognition event
func (s *Session) onDictated(line string) {
	s.setDraft(line)
	fmt.Fprintf(s.out, "\r%s", s.style(mutedStyle, line))
}

func (s *Session) setDraft(line string) {
	s.draftMu.Lock()
	defer s.draftMu.Unlock()
	s.draft = line
}

func (s *Session) takeDraft() string {
	s.draftMu.Lock()
	defer s.draftMu.Unlock()
	draft := s.draft
	s.draft = ""
	return draft
}

func (s *Session) printError(err error) {
	fmt.Fprintln(s.out, s.style(errorStyle, "Error: ")+err.Error())
}

func (s *Session) style(st interface{ Render(...string) string }, text string) string {
	if !s.color {
		return text
	}
	return st.Render(text)
}
