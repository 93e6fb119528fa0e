package reconciler

import (
	"golang.org/x/text/language"

	"github.com/killallgit/cognilink/pkg/stream"
)

// Messages are the canned replies written in place of a failed answer
type Messages struct {
	RateLimit string
	Transport string
}

var supported = []language.Tag{language.Arabic, language.English}

var catalog = []Messages{
	{
		RateLimit: "لقد تجاوزت الحصة المخصصة لك. يرجى الانتظار لحظة ثم المحاولة مرة أخرى.",
		Transport: "عفوًا، حدث خطأ أثناء الاتصال. يرجى المحاولة مرة أخرى.",
	},
	{
		RateLimit: "You have exceeded your quota. Please wait a moment and try again.",
		Transport: "Sorry, an error occurred while connecting. Please try again.",
	},
}

var matcher = language.NewMatcher(supported)

// MessagesFor picks the closest catalog entry for locale; unknown locales get Arabic
func MessagesFor(locale string) Messages {
	_, idx := language.MatchStrings(matcher, locale)
	return catalog[idx]
}

// For returns the reply matching the failure kind
func (m Messages) For(kind stream.Kind) string {
	if kind == stream.KindRateLimit {
		return m.RateLimit
	}
	return m.Transport
}
