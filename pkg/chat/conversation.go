package chat

// Histories maps an avatar id to its conversation
type Histories map[string][]Message

// Clone deep-copies every conversation
func (h Histories) Clone() Histories {
	out := make(Histories, len(h))
	for id, msgs := range h {
		out[id] = CloneMessages(msgs)
	}
	return out
}

func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	result := make([]Message, len(msgs))
	for i, msg := range msgs {
		result[i] = msg.Clone()
	}
	return result
}

// AddMessages returns a new history with msgs appended
func AddMessages(history []Message, msgs ...Message) []Message {
	result := make([]Message, len(history), len(history)+len(msgs))
	copy(result, history)
	return append(result, msgs...)
}

func GetLastMessage(history []Message) (Message, bool) {
	if len(history) == 0 {
		return Message{}, false
	}
	return history[len(history)-1], true
}

// AppendToLast grows the trailing model message by chunk. It leaves the history
// untouched when the last message is missing or not from the model.
func AppendToLast(history []Message, chunk string) ([]Message, bool) {
	last, ok := GetLastMessage(history)
	if !ok || !last.IsModel() {
		return history, false
	}
	result := make([]Message, len(history))
	copy(result, history)
	last.Content += chunk
	result[len(result)-1] = last
	return result, true
}

// ReplaceLast swaps the trailing message for msg. Empty histories are returned as is.
func ReplaceLast(history []Message, msg Message) ([]Message, bool) {
	if len(history) == 0 {
		return history, false
	}
	result := make([]Message, len(history))
	copy(result, history)
	result[len(result)-1] = msg
	return result, true
}

// WithoutTrailing drops the last n messages, used to exclude an in-flight exchange from the context
func WithoutTrailing(history []Message, n int) []Message {
	if n >= len(history) {
		return []Message{}
	}
	return history[:len(history)-n]
}
