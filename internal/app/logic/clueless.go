package logic

import (
	"context"
	"time"
	"unicode"

	"github.com/PabloGalante/fairy-agent/internal/app/sequencer"
	"github.com/PabloGalante/fairy-agent/internal/domain"
	"github.com/PabloGalante/fairy-agent/internal/sampling"
)

const (
	cluelessMin, cluelessMax = 20 * time.Second, 30 * time.Second

	// A deliberation cycle needs at least this much time left.
	thinkFloor = 4 * time.Second

	idlePauseChance = 0.3
	typoChance      = 0.08
)

type cycle int

const (
	cycleBurst cycle = iota
	cycleThink
)

var cycleWeights = []sampling.Weighted[cycle]{
	{Value: cycleThink, Weight: 35},
	{Value: cycleBurst, Weight: 65},
}

func cluelessTyping() sequencer.TypingOptions {
	return sequencer.TypingOptions{
		BaseDelay:     160 * time.Millisecond,
		Jitter:        120 * time.Millisecond,
		MistypeChance: 0.18,
		MistypeHold:   280 * time.Millisecond,
		BackspaceHold: 140 * time.Millisecond,
		PauseChance:   0.12,
		PauseMin:      500 * time.Millisecond,
		PauseMax:      1400 * time.Millisecond,
	}
}

// Clueless types, stops, deliberates and retypes for twenty to thirty
// seconds, then answers with a confused one-liner full of typos.
type Clueless struct {
	persona
	script CluelessScript
	rng    sampling.Rand
}

func NewClueless(script CluelessScript, rng sampling.Rand) *Clueless {
	if rng == nil {
		rng = sampling.Global()
	}
	return &Clueless{persona: persona{script.Profile}, script: script, rng: rng}
}

func (l *Clueless) Respond(ctx context.Context, _ string, _ []domain.Message, c *sequencer.Controller) error {
	clock := c.Clock()
	total := sampling.Duration(l.rng, cluelessMin, cluelessMax)
	start := clock.Now()
	remaining := func() time.Duration { return total - clock.Now().Sub(start) }
	snippets := sampling.NewBag(l.rng, l.script.Thinking)

	// The first cycle is always a burst.
	if err := l.burst(ctx, c, 3, 7, remaining); err != nil {
		return err
	}

	for remaining() > 0 {
		if sampling.WeightedPick(l.rng, cycleWeights) == cycleThink && remaining() > thinkFloor {
			c.SetTyping(false)
			hold := min(sampling.Duration(l.rng, 2*time.Second, 4*time.Second), remaining())
			if err := c.AddThinkingStep(ctx, snippets.Draw(), hold); err != nil {
				return err
			}
			if err := c.ClearThinking(ctx); err != nil {
				return err
			}
		} else if err := l.burst(ctx, c, 2, 6, remaining); err != nil {
			return err
		}

		// as if everything typed so far got deleted
		if remaining() > 0 && sampling.Chance(l.rng, idlePauseChance) {
			c.SetTyping(false)
			idle := min(sampling.Duration(l.rng, 400*time.Millisecond, 1200*time.Millisecond), remaining())
			if err := c.Pause(ctx, idle); err != nil {
				return err
			}
		}
	}

	c.SetTyping(false)
	reply := AddTypos(l.rng, sampling.Pick(l.rng, l.script.Replies), typoChance)
	return c.ReplyTyped(ctx, reply, cluelessTyping())
}

// burst flicks the typing indicator [lo, hi) times within the remaining time.
func (l *Clueless) burst(ctx context.Context, c *sequencer.Controller, lo, hi int, remaining func() time.Duration) error {
	flicks := sampling.IntBetween(l.rng, lo, hi)
	for i := 0; i < flicks && remaining() > 0; i++ {
		c.SetTyping(true)
		on := min(sampling.Duration(l.rng, 300*time.Millisecond, 2500*time.Millisecond), remaining())
		if err := c.Pause(ctx, on); err != nil {
			return err
		}
		if remaining() <= 0 {
			break
		}
		c.SetTyping(false)
		off := min(sampling.Duration(l.rng, 150*time.Millisecond, 600*time.Millisecond), remaining())
		if err := c.Pause(ctx, off); err != nil {
			return err
		}
	}
	return nil
}

// AddTypos swaps adjacent characters with probability p per eligible pair.
// Pairs touching whitespace are skipped and a swapped pair is never swapped
// again.
func AddTypos(r sampling.Rand, text string, p float64) string {
	chars := []rune(text)
	for i := 0; i < len(chars)-1; i++ {
		if unicode.IsSpace(chars[i]) || unicode.IsSpace(chars[i+1]) {
			continue
		}
		if sampling.Chance(r, p) {
			chars[i], chars[i+1] = chars[i+1], chars[i]
			i++
		}
	}
	return string(chars)
}
