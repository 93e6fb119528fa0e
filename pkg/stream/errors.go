package stream

import (
	"errors"
	"strings"
)

var (
	// ErrRateLimited marks quota exhaustion or HTTP 429 from a provider
	ErrRateLimited = errors.New("rate limited")
	// ErrTransport marks any other failure to open or read a stream
	ErrTransport = errors.New("stream transport failure")
)

// Kind is the user-facing classification of a stream failure
type Kind int

const (
	KindTransport Kind = iota
	KindRateLimit
)

func (k Kind) String() string {
	if k == KindRateLimit {
		return "rate_limit"
	}
	return "transport"
}

// IsRateLimit recognises wrapped ErrRateLimited as well as raw provider errors
// that mention exhausted resources or quota.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(strings.ToLower(msg), "quota")
}

func Classify(err error) Kind {
	if IsRateLimit(err) {
		return KindRateLimit
	}
	return KindTransport
}
