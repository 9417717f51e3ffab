// Package sequencer turns a personality's script into timed effects: typing
// indicator flicks, reasoning lines, and replies revealed one keystroke at a
// time. It owns no business logic and no state of its own.
package sequencer

import (
	"context"
	"fmt"
	"time"

	"github.com/PabloGalante/fairy-agent/internal/sampling"
)

const (
	typingMin, typingMax   = 500 * time.Millisecond, 1300 * time.Millisecond
	thinkMin, thinkMax     = 600 * time.Millisecond, 1400 * time.Millisecond
	replaceMin, replaceMax = 400 * time.Millisecond, 800 * time.Millisecond

	minKeystroke = 30 * time.Millisecond
	mistypeExtra = 100 * time.Millisecond
	eraseExtra   = 80 * time.Millisecond
)

// Controller executes effects against a Surface. Operations taking a
// duration suspend the caller for that long; a non-positive duration picks
// a randomized default.
type Controller struct {
	surface Surface
	clock   Clock
	rng     sampling.Rand
}

func New(surface Surface, clock Clock, rng sampling.Rand) *Controller {
	if clock == nil {
		clock = RealClock{}
	}
	if rng == nil {
		rng = sampling.Global()
	}
	return &Controller{surface: surface, clock: clock, rng: rng}
}

// Clock exposes the turn's time source so logics can budget elapsed time.
func (c *Controller) Clock() Clock {
	return c.clock
}

// ShowTyping shows the typing indicator for d, then hides it.
func (c *Controller) ShowTyping(ctx context.Context, d time.Duration) error {
	c.surface.SetTyping(true)
	err := c.sleep(ctx, d, typingMin, typingMax)
	c.surface.SetTyping(false)
	return err
}

func (c *Controller) SetTyping(visible bool) {
	c.surface.SetTyping(visible)
}

// Pause suspends without touching the surface.
func (c *Controller) Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return c.clock.Sleep(ctx, d)
}

// AddThinkingStep appends a reasoning line and holds it for d.
func (c *Controller) AddThinkingStep(ctx context.Context, text string, d time.Duration) error {
	c.surface.AddThinkingStep(text)
	return c.sleep(ctx, d, thinkMin, thinkMax)
}

// ReplaceThinkingSteps swaps the whole reasoning block and holds it for d.
func (c *Controller) ReplaceThinkingSteps(ctx context.Context, lines []string, d time.Duration) error {
	c.surface.SetThinkingSteps(append([]string(nil), lines...))
	return c.sleep(ctx, d, replaceMin, replaceMax)
}

// ClearThinking removes every reasoning line once the surface has animated them out.
func (c *Controller) ClearThinking(ctx context.Context) error {
	if err := c.surface.ClearThinking(ctx); err != nil {
		return fmt.Errorf("clear thinking: %w", err)
	}
	return nil
}

func (c *Controller) RewriteUserMessage(text string) {
	c.surface.RewriteUserMessage(text)
}

func (c *Controller) AnimateRewriteUserMessage(ctx context.Context, text string) error {
	if err := c.surface.AnimateRewriteUserMessage(ctx, text); err != nil {
		return fmt.Errorf("animate rewrite: %w", err)
	}
	return nil
}

// Reply appends a complete assistant message.
func (c *Controller) Reply(text string) {
	c.surface.AppendReply(text)
}

// TypingOptions tune ReplyTyped. Start from DefaultTypingOptions and override.
type TypingOptions struct {
	BaseDelay     time.Duration
	Jitter        time.Duration
	MistypeChance float64
	MistypeHold   time.Duration
	BackspaceHold time.Duration
	PauseChance   float64
	PauseMin      time.Duration
	PauseMax      time.Duration
}

func DefaultTypingOptions() TypingOptions {
	return TypingOptions{
		BaseDelay:     150 * time.Millisecond,
		Jitter:        100 * time.Millisecond,
		MistypeChance: 0.15,
		MistypeHold:   250 * time.Millisecond,
		BackspaceHold: 120 * time.Millisecond,
		PauseChance:   0.10,
		PauseMin:      400 * time.Millisecond,
		PauseMax:      1200 * time.Millisecond,
	}
}

// ReplyTyped appends an empty assistant message and reveals text one rune at
// a time, occasionally hitting a neighbouring key first and correcting it.
func (c *Controller) ReplyTyped(ctx context.Context, text string, opts TypingOptions) error {
	c.surface.AppendEmptyReply()
	c.surface.SetLiveCursor(true)
	defer c.surface.SetLiveCursor(false)

	current := make([]rune, 0, len(text))
	for _, ch := range text {
		if isASCIILetter(ch) && sampling.Chance(c.rng, opts.MistypeChance) {
			c.surface.UpdateReply(string(append(current, NearbyKey(c.rng, ch))))
			if err := c.clock.Sleep(ctx, opts.MistypeHold+sampling.Duration(c.rng, 0, mistypeExtra)); err != nil {
				return err
			}
			c.surface.UpdateReply(string(current))
			if err := c.clock.Sleep(ctx, opts.BackspaceHold+sampling.Duration(c.rng, 0, eraseExtra)); err != nil {
				return err
			}
		}

		current = append(current, ch)
		c.surface.UpdateReply(string(current))

		if err := c.clock.Sleep(ctx, c.keystroke(opts)); err != nil {
			return err
		}
		if sampling.Chance(c.rng, opts.PauseChance) {
			if err := c.clock.Sleep(ctx, sampling.Duration(c.rng, opts.PauseMin, opts.PauseMax)); err != nil {
				return err
			}
		}
	}
	return nil
}

// keystroke is BaseDelay ± Jitter, floored at minKeystroke.
func (c *Controller) keystroke(opts TypingOptions) time.Duration {
	d := opts.BaseDelay
	if opts.Jitter > 0 {
		d += time.Duration((c.rng.Float64() - 0.5) * 2 * float64(opts.Jitter))
	}
	return max(d, minKeystroke)
}

func (c *Controller) sleep(ctx context.Context, d, lo, hi time.Duration) error {
	if d <= 0 {
		d = sampling.Duration(c.rng, lo, hi)
	}
	return c.clock.Sleep(ctx, d)
}
