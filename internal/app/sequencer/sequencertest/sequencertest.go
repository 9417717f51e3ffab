// Package sequencertest provides a virtual clock and a recording surface for
// driving turns in tests without waiting on wall time.
package sequencertest

import (
	"context"
	"sync"
	"time"

	"github.com/PabloGalante/fairy-agent/internal/domain"
)

// Clock advances instantly on Sleep and remembers every requested duration.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	if d > 0 {
		c.now = c.now.Add(d)
	}
	return nil
}

// Sleeps returns the recorded durations in call order.
func (c *Clock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// Elapsed is the total virtual time slept.
func (c *Clock) Elapsed() time.Duration {
	var total time.Duration
	for _, d := range c.Sleeps() {
		total += d
	}
	return total
}

// Event is one call received by the Recorder.
type Event struct {
	Kind    string
	Text    string
	Lines   []string
	Visible bool
}

// Recorder implements sequencer.Surface over an in-memory message list.
type Recorder struct {
	mu       sync.Mutex
	Messages []domain.Message
	Thinking []string
	Typing   bool
	Cursor   bool
	Events   []Event
}

// NewRecorder starts from history, usually a greeting plus the user's message.
func NewRecorder(history ...domain.Message) *Recorder {
	return &Recorder{Messages: append([]domain.Message(nil), history...)}
}

func (r *Recorder) record(e Event) {
	r.Events = append(r.Events, e)
}

func (r *Recorder) SetTyping(visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Typing = visible
	r.record(Event{Kind: "typing", Visible: visible})
}

func (r *Recorder) AddThinkingStep(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Thinking = append(r.Thinking, text)
	r.record(Event{Kind: "thinking_add", Text: text})
}

func (r *Recorder) SetThinkingSteps(lines []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Thinking = append([]string(nil), lines...)
	r.record(Event{Kind: "thinking_set", Lines: append([]string(nil), lines...)})
}

func (r *Recorder) ClearThinking(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Thinking = nil
	r.record(Event{Kind: "thinking_clear"})
	return ctx.Err()
}

func (r *Recorder) AppendReply(content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, domain.Message{Role: domain.RoleAssistant, Content: content})
	r.record(Event{Kind: "reply", Text: content})
}

func (r *Recorder) AppendEmptyReply() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, domain.Message{Role: domain.RoleAssistant})
	r.record(Event{Kind: "reply_empty"})
}

func (r *Recorder) UpdateReply(content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == domain.RoleAssistant {
			r.Messages[i].Content = content
			break
		}
	}
	r.record(Event{Kind: "reply_update", Text: content})
}

func (r *Recorder) SetLiveCursor(visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Cursor = visible
	r.record(Event{Kind: "cursor", Visible: visible})
}

func (r *Recorder) RewriteUserMessage(content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == domain.RoleUser {
			r.Messages[i].Content = content
			break
		}
	}
	r.record(Event{Kind: "user_rewrite", Text: content})
}

func (r *Recorder) AnimateRewriteUserMessage(ctx context.Context, content string) error {
	r.RewriteUserMessage(content)
	return ctx.Err()
}

// Kinds lists the recorded event kinds in order.
func (r *Recorder) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.Kind)
	}
	return out
}

// Filter returns the recorded events of one kind.
func (r *Recorder) Filter(kind string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.Events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Replies returns the content of every assistant message, greeting included.
func (r *Recorder) Replies() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.Messages {
		if m.Role == domain.RoleAssistant {
			out = append(out, m.Content)
		}
	}
	return out
}
