// Package live fans out the effects of a running turn to whoever is
// watching a thread, and keeps the transient view state (typing indicator,
// reasoning lines, live cursor) that is not part of the message history.
package live

import (
	"time"

	"github.com/PabloGalante/fairy-agent/internal/domain"
)

type EventType string

const (
	EventTyping           EventType = "typing"
	EventThinkingAdd      EventType = "thinking_add"
	EventThinkingSet      EventType = "thinking_set"
	EventThinkingClear    EventType = "thinking_clear"
	EventReply            EventType = "reply"
	EventReplyUpdate      EventType = "reply_update"
	EventCursor           EventType = "cursor"
	EventUserRewrite      EventType = "user_rewrite"
	EventUserRewriteFrame EventType = "user_rewrite_frame"
	EventTurnStart        EventType = "turn_start"
	EventTurnEnd          EventType = "turn_end"
)

// Event is one effect as seen by a subscriber.
type Event struct {
	Type     EventType       `json:"type"`
	ThreadID domain.ThreadID `json:"thread_id"`
	Text     string          `json:"text,omitempty"`
	Lines    []string        `json:"lines,omitempty"`
	Visible  *bool           `json:"visible,omitempty"`
	At       time.Time       `json:"at"`
}

// Toggle builds an event carrying a visibility flag.
func Toggle(t EventType, id domain.ThreadID, visible bool) Event {
	return Event{Type: t, ThreadID: id, Visible: &visible}
}

// View is the transient state of a thread between messages.
type View struct {
	Busy     bool     `json:"busy"`
	Typing   bool     `json:"typing"`
	Thinking []string `json:"thinking"`
	Cursor   bool     `json:"cursor"`
}

func (v View) clone() View {
	v.Thinking = append([]string(nil), v.Thinking...)
	return v
}

// apply folds e into the view.
func (v *View) apply(e Event) {
	switch e.Type {
	case EventTyping:
		v.Typing = e.Visible != nil && *e.Visible
	case EventCursor:
		v.Cursor = e.Visible != nil && *e.Visible
	case EventThinkingAdd:
		v.Thinking = append(v.Thinking, e.Text)
	case EventThinkingSet:
		v.Thinking = append([]string(nil), e.Lines...)
	case EventThinkingClear:
		v.Thinking = nil
	case EventTurnStart:
		v.Busy = true
	case EventTurnEnd:
		*v = View{}
	}
}
