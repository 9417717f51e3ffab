package logic_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/fairy-agent/internal/app/logic"
	"github.com/PabloGalante/fairy-agent/internal/app/sequencer"
	"github.com/PabloGalante/fairy-agent/internal/app/sequencer/sequencertest"
	"github.com/PabloGalante/fairy-agent/internal/domain"
	"github.com/PabloGalante/fairy-agent/internal/sampling"
)

type harness struct {
	rec   *sequencertest.Recorder
	clock *sequencertest.Clock
	ctl   *sequencer.Controller
}

func newHarness(seed uint64, history ...domain.Message) *harness {
	rec := sequencertest.NewRecorder(history...)
	clock := sequencertest.NewClock()
	return &harness{rec: rec, clock: clock, ctl: sequencer.New(rec, clock, sampling.Seeded(seed))}
}

func loadScripts(t *testing.T) *logic.Scripts {
	t.Helper()
	s, err := logic.LoadScripts()
	require.NoError(t, err)
	return s
}

// firstTurn is a thread holding the greeting and one user message.
func firstTurn(user string) []domain.Message {
	return []domain.Message{
		{Role: domain.RoleAssistant, Content: "greeting"},
		{Role: domain.RoleUser, Content: user},
	}
}

// laterTurn is a thread past its first exchange.
func laterTurn(user string) []domain.Message {
	return append(firstTurn("hi"),
		domain.Message{Role: domain.RoleAssistant, Content: "ask"},
		domain.Message{Role: domain.RoleUser, Content: user},
	)
}
