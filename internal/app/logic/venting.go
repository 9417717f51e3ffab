package logic

import (
	"context"
	"regexp"
	"time"

	"github.com/PabloGalante/fairy-agent/internal/app/sequencer"
	"github.com/PabloGalante/fairy-agent/internal/domain"
	"github.com/PabloGalante/fairy-agent/internal/sampling"
)

const (
	// RantBudget is the effort one venting turn spends on rants.
	RantBudget = 4

	singleCost   = 1
	sequenceCost = 2

	// FairyMark is inserted into masked words.
	FairyMark = "🧚"
)

var profanity = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(godd)a(mn)`),
	regexp.MustCompile(`(?i)\b(bullsh)i(t)`),
	regexp.MustCompile(`(?i)\b(f)u(ck)`),
	regexp.MustCompile(`(?i)\b(sh)i(t)`),
	regexp.MustCompile(`(?i)\b(a)s(s)\b`),
}

// Censor lightly masks profanity; the word stays recognisable.
func Censor(text string) string {
	for _, re := range profanity {
		text = re.ReplaceAllString(text, "${1}"+FairyMark+"${2}")
	}
	return text
}

// Cost is the effort a rant consumes from the turn's budget.
func (r Rant) Cost() int {
	if r.Sequence {
		return sequenceCost
	}
	return singleCost
}

// Venting spirals through a chain-of-thought rant before dismissing the user.
type Venting struct {
	persona
	script VentingScript
	rants  *sampling.Bag[Rant]
	rng    sampling.Rand
}

func NewVenting(script VentingScript, rng sampling.Rand) *Venting {
	if rng == nil {
		rng = sampling.Global()
	}
	return &Venting{
		persona: persona{script.Profile},
		script:  script,
		rants:   sampling.NewBag(rng, script.Rants),
		rng:     rng,
	}
}

// PlanRants draws rants until their combined cost reaches RantBudget.
func (l *Venting) PlanRants() []Rant {
	var (
		chosen []Rant
		spent  int
	)
	if l.rants.Len() == 0 {
		return nil
	}
	for spent < RantBudget {
		r := l.rants.Draw()
		chosen = append(chosen, r)
		spent += r.Cost()
	}
	return chosen
}

func (l *Venting) Respond(ctx context.Context, _ string, _ []domain.Message, c *sequencer.Controller) error {
	rants := l.PlanRants()

	if err := c.ShowTyping(ctx, l.between(600, 1200)); err != nil {
		return err
	}
	if err := l.vent(ctx, c, sampling.Pick(l.rng, l.script.Openers), l.between(2000, 3500)); err != nil {
		return err
	}

	for _, r := range rants {
		if !r.Sequence {
			if err := l.vent(ctx, c, r.Lines[0], l.between(3000, 6000)); err != nil {
				return err
			}
			continue
		}
		shown := make([]string, 0, len(r.Lines))
		for _, line := range r.Lines {
			shown = append(shown, Censor(line))
			if err := c.ReplaceThinkingSteps(ctx, shown, l.between(2000, 4000)); err != nil {
				return err
			}
		}
		if err := c.ClearThinking(ctx); err != nil {
			return err
		}
	}

	if err := l.vent(ctx, c, sampling.Pick(l.rng, l.script.FinalVents), l.between(2000, 3500)); err != nil {
		return err
	}
	if err := c.ShowTyping(ctx, l.between(1000, 2000)); err != nil {
		return err
	}

	c.Reply(Censor(sampling.Pick(l.rng, l.script.Dismissals)))
	return nil
}

func (l *Venting) Reset() {
	l.rants.Reset()
}

// vent shows one censored reasoning line on its own, then clears it.
func (l *Venting) vent(ctx context.Context, c *sequencer.Controller, line string, hold time.Duration) error {
	if err := c.ReplaceThinkingSteps(ctx, []string{Censor(line)}, hold); err != nil {
		return err
	}
	return c.ClearThinking(ctx)
}

func (l *Venting) between(loMillis, hiMillis int) time.Duration {
	return sampling.Duration(l.rng, time.Duration(loMillis)*time.Millisecond, time.Duration(hiMillis)*time.Millisecond)
}
