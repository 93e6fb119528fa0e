package stream

import "github.com/killallgit/cognilink/pkg/chat"

// Citation is a web source reported by the provider mid-stream. Title may be empty.
type Citation struct {
	URI   string
	Title string
}

// Fragment is one incremental piece of a streamed reply
type Fragment struct {
	Text      string
	Citations []Citation
}

func TextFragment(text string) Fragment {
	return Fragment{Text: text}
}

func (f Fragment) IsEmpty() bool {
	return f.Text == "" && len(f.Citations) == 0
}

// SourceSet collects citations keyed by URI. The first title seen for a URI wins
// and Sources returns them in first-seen order.
type SourceSet struct {
	order  []string
	titles map[string]string
}

func NewSourceSet() *SourceSet {
	return &SourceSet{titles: make(map[string]string)}
}

func (s *SourceSet) Add(citations ...Citation) {
	for _, c := range citations {
		if c.URI == "" {
			continue
		}
		if _, seen := s.titles[c.URI]; seen {
			continue
		}
		title := c.Title
		if title == "" {
			title = c.URI
		}
		s.titles[c.URI] = title
		s.order = append(s.order, c.URI)
	}
}

func (s *SourceSet) Len() int {
	return len(s.order)
}

func (s *SourceSet) Sources() []chat.Source {
	if len(s.order) == 0 {
		return nil
	}
	out := make([]chat.Source, 0, len(s.order))
	for _, uri := range s.order {
		out = append(out, chat.Source{Title: s.titles[uri], URI: uri})
	}
	return out
}
