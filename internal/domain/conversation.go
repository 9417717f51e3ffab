package domain

import "unicode/utf8"

// Message is a single line in a thread's timeline.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Thread is one conversation: an ordered message log plus metadata.
type Thread struct {
	ID            ThreadID
	Title         string
	PersonalityID string
	CreatedAt     Timestamp

	Messages []Message
}

// Clone returns a copy whose message slice can be handed out safely.
func (t *Thread) Clone() *Thread {
	if t == nil {
		return nil
	}
	out := *t
	out.Messages = append([]Message(nil), t.Messages...)
	return &out
}

// CountRole counts messages authored by role.
func CountRole(msgs []Message, role Role) int {
	n := 0
	for _, m := range msgs {
		if m.Role == role {
			n++
		}
	}
	return n
}

// DeriveTitle builds a thread title from a user message, truncated to
// TitleMaxRunes with an ellipsis marker.
func DeriveTitle(content string) string {
	if utf8.RuneCountInString(content) <= TitleMaxRunes {
		return content
	}
	runes := []rune(content)
	return string(runes[:TitleMaxRunes]) + "..."
}
