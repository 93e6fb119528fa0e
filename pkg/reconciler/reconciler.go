package reconciler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/killallgit/cognilink/pkg/chat"
	"github.com/killallgit/cognilink/pkg/logger"
	"github.com/killallgit/cognilink/pkg/stream"
	"github.com/killallgit/cognilink/pkg/stream/core"
)

const DefaultFlushInterval = time.Second

var (
	// ErrConversationBusy is returned when Send is called while the conversation is streaming
	ErrConversationBusy = core.ErrBusy
	// ErrAbandoned is returned when the conversation lost ownership mid-stream
	ErrAbandoned = errors.New("reconciliation abandoned: conversation no longer selected")
)

// Conversations is the history store the reconciler writes through
type Conversations interface {
	Append(id string, msgs ...chat.Message)
	AppendToLast(id, chunk string) bool
	ReplaceLast(id string, msg chat.Message) bool
	History(id string) []chat.Message
	Owns(id string) bool
}

// Opener starts the provider stream. It runs after the placeholder is in place so
// failures to open take the same error path as failures mid-stream.
type Opener func(ctx context.Context) (stream.TextStream, error)

// Clock returns the current time
type Clock func() time.Time

type Option func(*Reconciler)

func WithFlushInterval(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.flushInterval = d
		}
	}
}

func WithClock(c Clock) Option {
	return func(r *Reconciler) { r.now = c }
}

func WithTracker(t *core.Tracker) Option {
	return func(r *Reconciler) { r.tracker = t }
}

func WithMessages(m Messages) Option {
	return func(r *Reconciler) { r.messages = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(r *Reconciler) { r.tracer = t }
}

// WithSingleStream rejects a Send with ErrConversationBusy while any conversation is streaming
func WithSingleStream() Option {
	return func(r *Reconciler) { r.single = true }
}

// WithClaim runs fn with the conversation id once Send holds it, before any history is written
func WithClaim(fn func(conversationID string)) Option {
	return func(r *Reconciler) { r.claim = fn }
}

// Reconciler turns a provider's fragment stream into persisted history: it appends the
// user message and a placeholder, flushes buffered text into the placeholder at most once
// per flush interval and replaces it with the final message when the stream ends.
type Reconciler struct {
	conversations Conversations
	tracker       *core.Tracker
	flushInterval time.Duration
	now           Clock
	messages      Messages
	tracer        trace.Tracer
	single        bool
	claim         func(string)
}

func New(conversations Conversations, opts ...Option) *Reconciler {
	r := &Reconciler{
		conversations: conversations,
		tracker:       core.NewTracker(),
		flushInterval: DefaultFlushInterval,
		now:           time.Now,
		messages:      MessagesFor(""),
		tracer:        otel.Tracer("github.com/killallgit/cognilink/pkg/reconciler"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Tracker exposes per-conversation state
func (r *Reconciler) Tracker() *core.Tracker {
	return r.tracker
}

// IsStreaming reports whether conversationID has a reconciliation in flight
func (r *Reconciler) IsStreaming(conversationID string) bool {
	return r.tracker.IsActive(conversationID)
}

// Send runs one exchange to completion. Provider failures are not returned: they are
// logged and replaced by a canned reply. The returned error is ErrConversationBusy when
// another exchange holds the conversation, or ErrAbandoned when ownership was lost.
func (r *Reconciler) Send(ctx context.Context, conversationID string, user chat.Message, open Opener, handler stream.Handler) (chat.Message, error) {
	if handler == nil {
		handler = stream.HandlerFunc{}
	}
	begin := r.tracker.Begin
	if r.single {
		begin = r.tracker.BeginExclusive
	}
	if err := begin(conversationID); err != nil {
		return chat.Message{}, err
	}
	defer r.tracker.End(conversationID)
	if r.claim != nil {
		r.claim(conversationID)
	}

	ctx, span := r.tracer.Start(ctx, "reconciler.Send", trace.WithAttributes(
		attribute.String("conversation.id", conversationID),
	))
	defer span.End()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.conversations.Append(conversationID, user, chat.NewPlaceholder())

	s := &session{
		r:         r,
		id:        conversationID,
		handler:   handler,
		sources:   stream.NewSourceSet(),
		lastFlush: r.now(),
	}

	streamErr := s.consume(ctx, open)
	if errors.Is(streamErr, ErrAbandoned) {
		return chat.Message{}, s.abandon(span, cancel)
	}

	_ = r.tracker.Transition(conversationID, core.StateFinalizing)

	final := chat.NewModelMessage(s.full.String(), s.sources.Sources())
	if streamErr != nil {
		kind := stream.Classify(streamErr)
		logger.Error("Stream for %s failed (%s): %v", conversationID, kind, streamErr)
		span.RecordError(streamErr)
		span.SetStatus(codes.Error, kind.String())
		handler.OnError(streamErr)
		final = chat.NewModelMessage(r.messages.For(kind), nil)
	} else if err := s.flush(); err != nil {
		return chat.Message{}, s.abandon(span, cancel)
	}

	if !r.conversations.Owns(conversationID) {
		return chat.Message{}, s.abandon(span, cancel)
	}
	if !r.conversations.ReplaceLast(conversationID, final) {
		logger.Debug("Conversation %s was emptied before finalization", conversationID)
	}

	span.SetAttributes(
		attribute.Int("reply.length", len(final.Content)),
		attribute.Int("reply.sources", len(final.Sources)),
	)
	if err := handler.OnComplete(final); err != nil {
		logger.Warn("Completion handler for %s failed: %v", conversationID, err)
	}
	return final, nil
}

type session struct {
	r         *Reconciler
	id        string
	handler   stream.Handler
	buffer    strings.Builder
	full      strings.Builder
	sources   *stream.SourceSet
	lastFlush time.Time
}

func (s *session) consume(ctx context.Context, open Opener) error {
	ts, err := open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	defer ts.Close()

	for {
		frag, err := ts.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		_ = s.r.tracker.Transition(s.id, core.StateStreaming)
		s.buffer.WriteString(frag.Text)
		s.full.WriteString(frag.Text)
		s.sources.Add(frag.Citations...)

		now := s.r.now()
		if now.Sub(s.lastFlush) > s.r.flushInterval {
			if err := s.flush(); err != nil {
				return err
			}
			s.lastFlush = now
		}
	}
}

// flush moves the buffer into the persisted placeholder
func (s *session) flush() error {
	if s.buffer.Len() == 0 {
		return nil
	}
	if !s.r.conversations.Owns(s.id) {
		return ErrAbandoned
	}
	chunk := s.buffer.String()
	s.buffer.Reset()

	if !s.r.conversations.AppendToLast(s.id, chunk) {
		logger.Debug("Dropped flush for %s: no placeholder to append to", s.id)
		return nil
	}
	s.r.tracker.RecordFlush(s.id)
	if err := s.handler.OnChunk([]byte(chunk)); err != nil {
		logger.Warn("Chunk handler for %s failed: %v", s.id, err)
	}
	return nil
}

func (s *session) abandon(span trace.Span, cancel context.CancelFunc) error {
	cancel()
	logger.Warn("Abandoned stream for %s after ownership loss", s.id)
	span.SetStatus(codes.Error, "abandoned")
	s.handler.OnError(ErrAbandoned)
	return ErrAbandoned
}
