package stream

import (
	"context"
	"io"
	"iter"
	"sync"
)

// TextStream is a pull-based sequence of fragments. Next returns io.EOF once the
// provider has finished; any other error ends the stream.
type TextStream interface {
	Next(ctx context.Context) (Fragment, error)
	Close() error
}

// SliceStream replays a fixed set of fragments, optionally ending with an error
type SliceStream struct {
	fragments []Fragment
	err       error
	pos       int
	closed    bool
}

func NewSliceStream(fragments ...Fragment) *SliceStream {
	return &SliceStream{fragments: fragments}
}

// WithError makes the stream fail with err after the fragments are consumed
func (s *SliceStream) WithError(err error) *SliceStream {
	s.err = err
	return s
}

func (s *SliceStream) Next(ctx context.Context) (Fragment, error) {
	if err := ctx.Err(); err != nil {
		return Fragment{}, err
	}
	if s.closed {
		return Fragment{}, io.EOF
	}
	if s.pos < len(s.fragments) {
		f := s.fragments[s.pos]
		s.pos++
		return f, nil
	}
	if s.err != nil {
		return Fragment{}, s.err
	}
	return Fragment{}, io.EOF
}

func (s *SliceStream) Close() error {
	s.closed = true
	return nil
}

// Producer pushes fragments through emit until done. emit fails once the stream is closed.
type Producer func(ctx context.Context, emit func(Fragment) error) error

// ChannelStream adapts push-style callbacks into a TextStream
type ChannelStream struct {
	items     chan Fragment
	done      chan struct{}
	err       error
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewChannelStream starts produce in its own goroutine. Close cancels the producer and waits for it.
func NewChannelStream(ctx context.Context, produce Producer) *ChannelStream {
	ctx, cancel := context.WithCancel(ctx)
	s := &ChannelStream{
		items:  make(chan Fragment),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		defer close(s.done)
		defer close(s.items)
		s.err = produce(ctx, func(f Fragment) error {
			select {
			case s.items <- f:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	return s
}

func (s *ChannelStream) Next(ctx context.Context) (Fragment, error) {
	select {
	case f, ok := <-s.items:
		if !ok {
			if s.err != nil {
				return Fragment{}, s.err
			}
			return Fragment{}, io.EOF
		}
		return f, nil
	case <-ctx.Done():
		return Fragment{}, ctx.Err()
	}
}

func (s *ChannelStream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
	})
	return nil
}

type seqStream struct {
	next func() (Fragment, error, bool)
	stop func()
}

// FromSeq wraps a range-over-func sequence, as returned by SDK streaming calls
func FromSeq(seq iter.Seq2[Fragment, error]) TextStream {
	next, stop := iter.Pull2(seq)
	return &seqStream{next: next, stop: stop}
}

func (s *seqStream) Next(ctx context.Context) (Fragment, error) {
	if err := ctx.Err(); err != nil {
		return Fragment{}, err
	}
	f, err, ok := s.next()
	if !ok {
		return Fragment{}, io.EOF
	}
	if err != nil {
		return Fragment{}, err
	}
	return f, nil
}

func (s *seqStream) Close() error {
	s.stop()
	return nil
}
