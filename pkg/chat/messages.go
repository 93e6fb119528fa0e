package chat

import "strings"

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Attachment is a file the user sent alongside a message, carried inline as a data URI
type Attachment struct {
	Name     string `json:"name"`
	DataURI  string `json:"dataUri"`
	MIMEType string `json:"mimeType"`
}

// Source is a web citation attached to a model reply
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

type Message struct {
	Role       Role        `json:"role"`
	Content    string      `json:"content"`
	Attachment *Attachment `json:"attachment,omitempty"`
	Sources    []Source    `json:"sources,omitempty"`
}

func NewUserMessage(content string, attachment *Attachment) Message {
	return Message{
		Role:       RoleUser,
		Content:    strings.TrimSpace(content),
		Attachment: attachment,
	}
}

func NewModelMessage(content string, sources []Source) Message {
	return Message{
		Role:    RoleModel,
		Content: content,
		Sources: sources,
	}
}

// NewPlaceholder returns the empty model message that a streamed reply grows into
func NewPlaceholder() Message {
	return Message{Role: RoleModel}
}

func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

func (m Message) IsModel() bool {
	return m.Role == RoleModel
}

// IsEmpty reports whether the message carries neither text nor an attachment
func (m Message) IsEmpty() bool {
	return strings.TrimSpace(m.Content) == "" && m.Attachment == nil
}

func (m Message) HasSources() bool {
	return len(m.Sources) > 0
}

// Clone returns a deep copy so callers can't mutate shared history
func (m Message) Clone() Message {
	out := m
	if m.Attachment != nil {
		att := *m.Attachment
		out.Attachment = &att
	}
	if m.Sources != nil {
		out.Sources = make([]Source, len(m.Sources))
		copy(out.Sources, m.Sources)
	}
	return out
}

func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.MIMEType, "image/")
}

func (a Attachment) IsText() bool {
	return strings.HasPrefix(a.MIMEType, "text/")
}

func (a Attachment) IsPDF() bool {
	return a.MIMEType == "application/pdf"
}
