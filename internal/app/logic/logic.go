// Package logic holds the personalities that script a reply turn. Each one
// keeps its own process-wide state (bags, counters, one-shot flags) which is
// shared by every thread using it.
package logic

import (
	"context"

	"github.com/PabloGalante/fairy-agent/internal/app/sequencer"
	"github.com/PabloGalante/fairy-agent/internal/domain"
)

const (
	IDClueless = "clueless"
	IDScholar  = "scholar"
	IDEmpath   = "empath"
	IDPrivate  = "private"
	IDVenting  = "venting"
)

// Logic is a personality. Respond drives the controller through one turn and
// must cope with any history, including one holding only the greeting.
type Logic interface {
	ID() string
	Name() string
	Greeting() string
	Respond(ctx context.Context, userMessage string, history []domain.Message, c *sequencer.Controller) error
}

// Passive personalities watch the unsent draft. When CheckInput reports true
// the host interrupts the user and calls RespondPassive; the draft is not sent.
type Passive interface {
	Logic
	CheckInput(draft string) bool
	RespondPassive(ctx context.Context, draft string, history []domain.Message, c *sequencer.Controller) error
}

// Resetter is implemented by personalities with irreversible state.
type Resetter interface {
	Reset()
}

type persona struct {
	profile Profile
}

func (p persona) ID() string       { return p.profile.ID }
func (p persona) Name() string     { return p.profile.Name }
func (p persona) Greeting() string { return p.profile.Greeting }
