package logic

import (
	"context"
	"time"

	"github.com/PabloGalante/fairy-agent/internal/app/sequencer"
	"github.com/PabloGalante/fairy-agent/internal/domain"
	"github.com/PabloGalante/fairy-agent/internal/sampling"
)

// Scholar ignores what the user typed. It swaps the user's message for a
// question from its library, reasons through it step by step and answers.
type Scholar struct {
	persona
	entries *sampling.Bag[ScholarEntry]
	rng     sampling.Rand

	// AnimateRewrite replaces the user's message with the erase-and-retype
	// animation instead of an instant swap.
	AnimateRewrite bool
}

func NewScholar(script ScholarScript, rng sampling.Rand) *Scholar {
	if rng == nil {
		rng = sampling.Global()
	}
	return &Scholar{
		persona: persona{script.Profile},
		entries: sampling.NewBag(rng, script.Entries),
		rng:     rng,
	}
}

func (l *Scholar) Respond(ctx context.Context, _ string, _ []domain.Message, c *sequencer.Controller) error {
	entry := l.entries.Draw()

	if l.AnimateRewrite {
		if err := c.AnimateRewriteUserMessage(ctx, entry.Question); err != nil {
			return err
		}
	} else {
		c.RewriteUserMessage(entry.Question)
	}

	if err := c.ShowTyping(ctx, sampling.Duration(l.rng, 800*time.Millisecond, 1200*time.Millisecond)); err != nil {
		return err
	}
	for _, step := range entry.Thinking {
		if err := c.AddThinkingStep(ctx, step, sampling.Duration(l.rng, time.Second, 1800*time.Millisecond)); err != nil {
			return err
		}
	}
	if err := c.ClearThinking(ctx); err != nil {
		return err
	}
	if err := c.ShowTyping(ctx, sampling.Duration(l.rng, 400*time.Millisecond, 700*time.Millisecond)); err != nil {
		return err
	}

	c.Reply(entry.Answer)
	return nil
}

func (l *Scholar) Reset() {
	l.entries.Reset()
}
