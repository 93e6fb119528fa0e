package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/killallgit/cognilink/pkg/avatar"
	"github.com/killallgit/cognilink/pkg/llm"
	"github.com/killallgit/cognilink/pkg/stream"
)

// FakeProvider implements llm.ImageProvider with scripted replies
type FakeProvider struct {
	mu         sync.Mutex
	name       string
	replies    [][]stream.Fragment
	index      int
	chunkSize  int
	openErr    error
	streamErr  error
	profile    avatar.Profile
	profileErr error
	image      string
	imageErr   error
	gate       chan struct{}
	requests   []llm.Request
}

// NewFakeProvider creates a provider whose streams replay replies in turn, 5 bytes per fragment
func NewFakeProvider(replies ...string) *FakeProvider {
	p := &FakeProvider{
		name:      "fake",
		chunkSize: 5,
		profile: avatar.Profile{
			Name:           "Zeno",
			PrimeDirective: "You are Zeno, a Stoic philosopher.",
		},
	}
	for _, reply := range replies {
		p.replies = append(p.replies, p.split(reply))
	}
	return p
}

func (p *FakeProvider) split(reply string) []stream.Fragment {
	var frags []stream.Fragment
	for start := 0; start < len(reply); start += p.chunkSize {
		end := min(start+p.chunkSize, len(reply))
		frags = append(frags, stream.TextFragment(reply[start:end]))
	}
	return frags
}

func (p *FakeProvider) WithName(name string) *FakeProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.name = name
	return p
}

// WithFragments appends a reply made of explicit fragments
func (p *FakeProvider) WithFragments(frags ...stream.Fragment) *FakeProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replies = append(p.replies, frags)
	return p
}

// WithOpenError makes OpenStream fail
func (p *FakeProvider) WithOpenError(err error) *FakeProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.openErr = err
	return p
}

// WithStreamError makes every stream fail after its fragments
func (p *FakeProvider) WithStreamError(err error) *FakeProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streamErr = err
	return p
}

func (p *FakeProvider) WithProfile(profile avatar.Profile, err error) *FakeProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profile = profile
	p.profileErr = err
	return p
}

func (p *FakeProvider) WithImage(dataURI string, err error) *FakeProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.image = dataURI
	p.imageErr = err
	return p
}

// Hold makes new streams wait before their first fragment until the returned func is called
func (p *FakeProvider) Hold() (release func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	gate := make(chan struct{})
	p.gate = gate
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (p *FakeProvider) Name() string  { return p.name }
func (p *FakeProvider) Model() string { return "fake-model" }

// OpenStream records the request and replays the next reply
func (p *FakeProvider) OpenStream(ctx context.Context, req llm.Request) (stream.TextStream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)
	if p.openErr != nil {
		return nil, p.openErr
	}

	var frags []stream.Fragment
	if len(p.replies) > 0 {
		frags = p.replies[p.index%len(p.replies)]
		p.index++
	}
	streamErr := p.streamErr

	if gate := p.gate; gate != nil {
		return stream.NewChannelStream(ctx, func(ctx context.Context, emit func(stream.Fragment) error) error {
			select {
			case <-gate:
			case <-ctx.Done():
				return ctx.Err()
			}
			for _, f := range frags {
				if err := emit(f); err != nil {
					return err
				}
			}
			return streamErr
		}), nil
	}
	return stream.NewSliceStream(frags...).WithError(streamErr), nil
}

func (p *FakeProvider) GenerateProfile(ctx context.Context, description string) (avatar.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.profile, p.profileErr
}

func (p *FakeProvider) GenerateImage(ctx context.Context, description string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.image == "" && p.imageErr == nil {
		return "", errors.New("no image configured")
	}
	return p.image, p.imageErr
}

// Requests returns every request seen by OpenStream
func (p *FakeProvider) Requests() []llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.Request(nil), p.requests...)
}

// LastRequest returns the most recent request
func (p *FakeProvider) LastRequest() (llm.Request, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		return llm.Request{}, false
	}
	return p.requests[len(p.requests)-1], true
}

var _ llm.ImageProvider = (*FakeProvider)(nil)
