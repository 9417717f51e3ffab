package conversation

import (
	"context"
	"time"

	"github.com/PabloGalante/fairy-agent/internal/app/live"
	"github.com/PabloGalante/fairy-agent/internal/app/sequencer"
	"github.com/PabloGalante/fairy-agent/internal/domain"
	"github.com/PabloGalante/fairy-agent/internal/observability"
)

const (
	thinkingFadeOut = 400 * time.Millisecond
	eraseFrame      = 15 * time.Millisecond
	retypeFrame     = 25 * time.Millisecond
)

// threadSurface applies controller effects to one thread: history changes go
// to the store, transient state goes to the live hub.
type threadSurface struct {
	id    domain.ThreadID
	store domain.ThreadStore
	hub   *live.Hub
	clock sequencer.Clock
}

var _ sequencer.Surface = (*threadSurface)(nil)

func (s *threadSurface) publish(e live.Event) {
	e.ThreadID = s.id
	observability.EffectsTotal.WithLabelValues(string(e.Type)).Inc()
	s.hub.Publish(e)
}

func (s *threadSurface) SetTyping(visible bool) {
	s.publish(live.Toggle(live.EventTyping, s.id, visible))
}

func (s *threadSurface) AddThinkingStep(text string) {
	s.publish(live.Event{Type: live.EventThinkingAdd, Text: text})
}

func (s *threadSurface) SetThinkingSteps(lines []string) {
	s.publish(live.Event{Type: live.EventThinkingSet, Lines: lines})
}

// ClearThinking waits out the fade so the next effect starts on a clean view.
func (s *threadSurface) ClearThinking(ctx context.Context) error {
	s.publish(live.Event{Type: live.EventThinkingClear})
	return s.clock.Sleep(ctx, thinkingFadeOut)
}

func (s *threadSurface) AppendReply(content string) {
	s.store.AppendMessage(s.id, domain.Message{Role: domain.RoleAssistant, Content: content})
	s.publish(live.Event{Type: live.EventReply, Text: content})
}

func (s *threadSurface) AppendEmptyReply() {
	s.AppendReply("")
}

func (s *threadSurface) UpdateReply(content string) {
	s.store.UpdateLastAssistantMessage(s.id, content)
	s.publish(live.Event{Type: live.EventReplyUpdate, Text: content})
}

func (s *threadSurface) SetLiveCursor(visible bool) {
	s.publish(live.Toggle(live.EventCursor, s.id, visible))
}

func (s *threadSurface) RewriteUserMessage(content string) {
	s.store.RewriteLastUserMessage(s.id, content)
	s.publish(live.Event{Type: live.EventUserRewrite, Text: content})
}

// AnimateRewriteUserMessage backspaces the latest user message one rune per
// frame, types the replacement the same way and then commits it.
func (s *threadSurface) AnimateRewriteUserMessage(ctx context.Context, content string) error {
	var current []rune
	if t, ok := s.store.GetThread(s.id); ok {
		for i := len(t.Messages) - 1; i >= 0; i-- {
			if t.Messages[i].Role == domain.RoleUser {
				current = []rune(t.Messages[i].Content)
				break
			}
		}
	}

	for n := len(current) - 1; n >= 0; n-- {
		s.publish(live.Event{Type: live.EventUserRewriteFrame, Text: string(current[:n])})
		if err := s.clock.Sleep(ctx, eraseFrame); err != nil {
			return err
		}
	}

	target := []rune(content)
	for n := 1; n < len(target); n++ {
		s.publish(live.Event{Type: live.EventUserRewriteFrame, Text: string(target[:n])})
		if err := s.clock.Sleep(ctx, retypeFrame); err != nil {
			return err
		}
	}

	s.RewriteUserMessage(content)
	return nil
}
