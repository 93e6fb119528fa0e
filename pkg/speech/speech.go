package speech

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	// ErrUnsupported is returned when no recognizer is available
	ErrUnsupported = errors.New("speech recognition is not supported")
	// ErrPermissionDenied is reported when the microphone is refused
	ErrPermissionDenied = errors.New("microphone permission denied")
)

// Result is one recognition hypothesis. Final results no longer change.
type Result struct {
	Transcript string
	Final      bool
}

// Input is a continuous recognizer with interim results
type Input interface {
	Start(ctx context.Context) error
	Stop() error
	// OnPartialResult registers the callback for the changed results of each recognition event
	OnPartialResult(fn func([]Result))
}

// Dictation composes recognized speech into the message being typed. Text present
// when listening starts is kept as a prefix.
type Dictation struct {
	input     Input
	onLine    func(string)
	prefix    string
	listening bool
	mu        sync.Mutex
}

// NewDictation wires input to onLine, which receives the recomposed input line after every event
func NewDictation(input Input, onLine func(string)) *Dictation {
	d := &Dictation{input: input, onLine: onLine}
	if input != nil {
		input.OnPartialResult(d.handle)
	}
	return d
}

// Toggle starts listening with current as the prefix, or stops if already listening
func (d *Dictation) Toggle(ctx context.Context, current string) (bool, error) {
	if d.input == nil {
		return false, ErrUnsupported
	}

	d.mu.Lock()
	if d.listening {
		d.listening = false
		d.mu.Unlock()
		return false, d.input.Stop()
	}
	d.prefix = Prefix(current)
	d.listening = true
	d.mu.Unlock()

	if err := d.input.Start(ctx); err != nil {
		d.Ended()
		return false, err
	}
	return true, nil
}

// Ended records that the recognizer stopped on its own
func (d *Dictation) Ended() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listening = false
}

func (d *Dictation) Listening() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.listening
}

func (d *Dictation) handle(results []Result) {
	d.mu.Lock()
	line := Compose(d.prefix, results)
	d.mu.Unlock()
	if d.onLine != nil {
		d.onLine(line)
	}
}

// Prefix is the text kept in front of dictated speech
func Prefix(current string) string {
	trimmed := strings.TrimSpace(current)
	if trimmed == "" {
		return ""
	}
	return trimmed + " "
}

// Compose builds prefix + final transcripts + interim transcripts
func Compose(prefix string, results []Result) string {
	var final, interim strings.Builder
	for _, r := range results {
		if r.Final {
			final.WriteString(r.Transcript)
		} else {
			interim.WriteString(r.Transcript)
		}
	}
	return prefix + final.String() + interim.String()
}
