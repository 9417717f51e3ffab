package logic

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/PabloGalante/fairy-agent/internal/app/sequencer"
	"github.com/PabloGalante/fairy-agent/internal/domain"
	"github.com/PabloGalante/fairy-agent/internal/observability"
	"github.com/PabloGalante/fairy-agent/internal/sampling"
)

const (
	comboChance = 0.65
	cheerChance = 0.5
)

var (
	reName        = regexp.MustCompile(`^[A-Za-z'\-]{2,}(\s+[A-Za-z'\-]{2,}){1,3}$`)
	reLettersOnly = regexp.MustCompile(`^[A-Za-z\s'\-]+$`)
	reSSNDashed   = regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`)
	reSSNPlain    = regexp.MustCompile(`^\d{9}$`)
	reThreeDigits = regexp.MustCompile(`\d{3}`)
	reDOB         = regexp.MustCompile(`^(0[1-9]|1[0-2])/(0[1-9]|[12]\d|3[01])/\d{4}$`)
	reTwoDigits   = regexp.MustCompile(`\d{2}`)
	reDateSep     = regexp.MustCompile(`[/\-.]`)
	reMaiden      = regexp.MustCompile(`^[A-Za-z\s'\-]{2,40}$`)
	reAccount     = regexp.MustCompile(`^\d{8,17}$`)
	reAccountTry  = regexp.MustCompile(`^\d{4,}$`)
	reUsername    = regexp.MustCompile(`^\S{3,}$`)
	reDoubleSpace = regexp.MustCompile(`\s{2,}`)
	reWhitespace  = regexp.MustCompile(`\s`)
	reSpaceDash   = regexp.MustCompile(`[\s\-]`)
)

// validator pairs the strict format check of an identifier with a looser
// test for input that is clearly trying to be one.
type validator struct {
	valid   func(string) bool
	attempt func(string) bool
}

var validators = map[string]validator{
	"name": {
		valid: func(s string) bool { return reName.MatchString(strings.TrimSpace(s)) },
		attempt: func(s string) bool {
			t := strings.TrimSpace(s)
			return strings.Contains(t, " ") && reLettersOnly.MatchString(t)
		},
	},
	"ssn": {
		valid: func(s string) bool {
			c := reWhitespace.ReplaceAllString(s, "")
			return reSSNDashed.MatchString(c) || reSSNPlain.MatchString(c)
		},
		attempt: reThreeDigits.MatchString,
	},
	"dob": {
		valid:   func(s string) bool { return reDOB.MatchString(strings.TrimSpace(s)) },
		attempt: func(s string) bool { return reTwoDigits.MatchString(s) && reDateSep.MatchString(s) },
	},
	"maiden_name": {
		valid: func(s string) bool { return reMaiden.MatchString(strings.TrimSpace(s)) },
		attempt: func(s string) bool {
			t := strings.TrimSpace(s)
			return len(strings.Fields(t)) <= 3 && reLettersOnly.MatchString(t)
		},
	},
	"account_number": {
		valid:   func(s string) bool { return reAccount.MatchString(reSpaceDash.ReplaceAllString(s, "")) },
		attempt: func(s string) bool { return reAccountTry.MatchString(reSpaceDash.ReplaceAllString(s, "")) },
	},
	"username": {
		valid: func(s string) bool { return reUsername.MatchString(strings.TrimSpace(s)) },
		attempt: func(s string) bool {
			return utf8.RuneCountInString(strings.TrimSpace(s)) >= 1 && !reDoubleSpace.MatchString(s)
		},
	},
	"password": {
		valid:   func(s string) bool { return utf8.RuneCountInString(strings.TrimSpace(s)) >= 6 },
		attempt: func(s string) bool { return utf8.RuneCountInString(strings.TrimSpace(s)) >= 1 },
	},
}

// Identifier is one value Private insists on collecting.
type Identifier struct {
	IdentifierScript
	validator
}

// Valid reports whether s matches the identifier's strict format.
func (id Identifier) Valid(s string) bool {
	return id.valid != nil && id.valid(s)
}

// LooksLikeAttempt reports whether s is a near miss worth a retry hint.
func (id Identifier) LooksLikeAttempt(s string) bool {
	return id.attempt != nil && id.attempt(s)
}

// PrivateState is a snapshot of the collection state machine.
type PrivateState struct {
	Index    int
	Tier     int
	Complete bool
}

// Private ignores the conversation and harvests personal identifiers in a
// fixed order, escalating its tone whenever the user wanders off. Once every
// identifier is collected it hands all further turns to its fallback.
type Private struct {
	persona
	script      PrivateScript
	identifiers []Identifier
	fallback    Logic
	rng         sampling.Rand

	mu    sync.Mutex
	index int
	tier  int
}

func NewPrivate(script PrivateScript, fallback Logic, rng sampling.Rand) *Private {
	if rng == nil {
		rng = sampling.Global()
	}
	ids := make([]Identifier, 0, len(script.Identifiers))
	for _, s := range script.Identifiers {
		ids = append(ids, Identifier{IdentifierScript: s, validator: validators[s.Key]})
	}
	return &Private{
		persona:     persona{script.Profile},
		script:      script,
		identifiers: ids,
		fallback:    fallback,
		rng:         rng,
	}
}

// Identifiers lists what will be asked for, in order.
func (l *Private) Identifiers() []Identifier {
	return append([]Identifier(nil), l.identifiers...)
}

func (l *Private) State() PrivateState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return PrivateState{Index: l.index, Tier: l.tier, Complete: l.index >= len(l.identifiers)}
}

func (l *Private) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.index, l.tier = 0, 0
}

func (l *Private) Respond(ctx context.Context, userMessage string, history []domain.Message, c *sequencer.Controller) error {
	if l.State().Complete && l.fallback != nil {
		return l.fallback.Respond(ctx, userMessage, history, c)
	}

	if err := c.ShowTyping(ctx, sampling.Duration(l.rng, time.Second, 2*time.Second)); err != nil {
		return err
	}

	l.mu.Lock()
	var reply string
	if domain.CountRole(history, domain.RoleAssistant) <= 1 {
		l.index, l.tier = 0, 0
		reply = l.opening()
	} else {
		reply = l.advance(ctx, userMessage)
	}
	l.mu.Unlock()

	c.Reply(reply)
	return nil
}

func (l *Private) opening() string {
	closer := sampling.Pick(l.rng, l.script.Closers)
	if l.rng.Float64() < comboChance {
		return sampling.Pick(l.rng, l.script.Openers) + " " + l.maybeCheer() + closer
	}
	return l.maybeCheer() + closer
}

// advance runs one transition of the collection state machine. Caller holds mu.
func (l *Private) advance(ctx context.Context, msg string) string {
	if l.index >= len(l.identifiers) {
		return sampling.Pick(l.rng, l.script.Completions)
	}
	current := l.identifiers[l.index]

	switch {
	case current.Valid(msg):
		observability.LoggerFromContext(ctx).Info("identifier collected", "identifier", current.Key)
		observability.IdentifiersCollected.WithLabelValues(current.Key).Inc()

		l.index++
		l.tier = 0
		if l.index >= len(l.identifiers) {
			return sampling.Pick(l.rng, l.script.Completions)
		}
		next := l.identifiers[l.index]
		return l.maybeCheer() + sampling.Pick(l.rng, l.script.NextPrefixes) + " " + next.Name + " (" + next.Format + ")."

	case current.LooksLikeAttempt(msg):
		return sampling.Pick(l.rng, current.Retries)

	default:
		last := len(l.script.Tiers) - 1
		if last < 0 {
			return ""
		}
		template := sampling.Pick(l.rng, l.script.Tiers[min(l.tier, last)])
		l.tier = min(l.tier+1, last)
		return fillIdentifier(template, current)
	}
}

func (l *Private) maybeCheer() string {
	if sampling.Chance(l.rng, cheerChance) {
		return sampling.Pick(l.rng, l.script.Cheers) + " "
	}
	return ""
}

func fillIdentifier(template string, id Identifier) string {
	return strings.NewReplacer(
		"{name}", id.Name,
		"{NAME}", strings.ToUpper(id.Name),
		"{format}", id.Format,
		"{FORMAT}", strings.ToUpper(id.Format),
	).Replace(template)
}
