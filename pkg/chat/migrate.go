package chat

import (
	"encoding/json"
	"fmt"
)

// legacyMessage is the stored shape before attachments existed
type legacyMessage struct {
	Message
	ImageURI string `json:"imageUri,omitempty"`
}

// DecodeHistories parses stored histories, rewriting any legacy imageUri field into an
// attachment. migrated reports whether anything was rewritten so callers can write back.
func DecodeHistories(data []byte) (Histories, bool, error) {
	var raw map[string][]legacyMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal histories: %w", err)
	}

	migrated := false
	out := make(Histories, len(raw))
	for id, msgs := range raw {
		converted := make([]Message, 0, len(msgs))
		for _, lm := range msgs {
			msg := lm.Message
			if lm.ImageURI != "" {
				msg.Attachment = &Attachment{
					Name:     "image.png",
					DataURI:  lm.ImageURI,
					MIMEType: MIMETypeFromDataURI(lm.ImageURI, "image/png"),
				}
				migrated = true
			}
			converted = append(converted, msg)
		}
		out[id] = converted
	}
	return out, migrated, nil
}
