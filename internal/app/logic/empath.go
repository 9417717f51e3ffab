package logic

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/PabloGalante/fairy-agent/internal/app/sequencer"
	"github.com/PabloGalante/fairy-agent/internal/domain"
	"github.com/PabloGalante/fairy-agent/internal/sampling"
)

const (
	thresholdMin  = 25
	thresholdSpan = 11 // thresholds land in [25, 35]

	DefaultRareChance = 0.01

	empathTyping   = 500 * time.Millisecond
	preludeHold    = 3500 * time.Millisecond
	paragraphPause = time.Second
)

func rareTyping() sequencer.TypingOptions {
	opts := sequencer.DefaultTypingOptions()
	opts.BaseDelay = 80 * time.Millisecond
	opts.Jitter = 0
	opts.MistypeChance = 0
	opts.PauseChance = 0
	return opts
}

// Empath answers everything with an unrelated kind saying. Drafts longer
// than a randomized threshold are interrupted before they are sent. Once per
// process, with a small probability, it delivers a long monologue instead.
type Empath struct {
	persona
	script  EmpathScript
	sayings *sampling.Bag[string]
	rng     sampling.Rand

	rareChance float64

	mu        sync.Mutex
	threshold int
	rareFired bool
}

func NewEmpath(script EmpathScript, rng sampling.Rand, rareChance float64) *Empath {
	if rng == nil {
		rng = sampling.Global()
	}
	return &Empath{
		persona:    persona{script.Profile},
		script:     script,
		sayings:    sampling.NewBag(rng, script.Sayings),
		rng:        rng,
		rareChance: rareChance,
	}
}

// CheckInput reports whether the draft is longer than the current threshold.
func (l *Empath) CheckInput(draft string) bool {
	return utf8.RuneCountInString(draft) > l.Threshold()
}

// Threshold returns the current draft length limit, drawing one if needed.
func (l *Empath) Threshold() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.threshold == 0 {
		l.redrawLocked()
	}
	return l.threshold
}

func (l *Empath) Respond(ctx context.Context, _ string, _ []domain.Message, c *sequencer.Controller) error {
	return l.respond(ctx, c)
}

func (l *Empath) RespondPassive(ctx context.Context, _ string, _ []domain.Message, c *sequencer.Controller) error {
	return l.respond(ctx, c)
}

// RareFired reports whether the monologue has already been delivered.
func (l *Empath) RareFired() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rareFired
}

func (l *Empath) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.threshold = 0
	l.rareFired = false
	l.sayings.Reset()
}

func (l *Empath) respond(ctx context.Context, c *sequencer.Controller) error {
	l.mu.Lock()
	l.redrawLocked()
	rare := !l.rareFired && sampling.Chance(l.rng, l.rareChance)
	if rare {
		l.rareFired = true
	}
	l.mu.Unlock()

	if rare {
		return l.monologue(ctx, c)
	}

	if err := c.ShowTyping(ctx, empathTyping); err != nil {
		return err
	}
	c.Reply(l.sayings.Draw())
	return nil
}

func (l *Empath) monologue(ctx context.Context, c *sequencer.Controller) error {
	if err := c.ShowTyping(ctx, empathTyping); err != nil {
		return err
	}
	for _, line := range l.script.Rare.Preludes {
		if err := c.ReplaceThinkingSteps(ctx, []string{line}, preludeHold); err != nil {
			return err
		}
		if err := c.ClearThinking(ctx); err != nil {
			return err
		}
	}
	for i, p := range l.script.Rare.Paragraphs {
		if i > 0 {
			if err := c.Pause(ctx, paragraphPause); err != nil {
				return err
			}
		}
		if err := c.ReplyTyped(ctx, p, rareTyping()); err != nil {
			return err
		}
	}
	return nil
}

func (l *Empath) redrawLocked() {
	l.threshold = thresholdMin + l.rng.IntN(thresholdSpan)
}
