package logic_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/fairy-agent/internal/app/logic"
	"github.com/PabloGalante/fairy-agent/internal/sampling"
)

func TestCluelessPerformsThenReplies(t *testing.T) {
	s := loadScripts(t)
	l := logic.NewClueless(s.Clueless, sampling.Seeded(11))

	for seed := uint64(0); seed < 5; seed++ {
		h := newHarness(seed, firstTurn("what is 2+2?")...)
		require.NoError(t, l.Respond(context.Background(), "what is 2+2?", nil, h.ctl))

		assert.GreaterOrEqual(t, h.clock.Elapsed(), 20*time.Second)
		assert.False(t, h.rec.Typing)
		assert.False(t, h.rec.Cursor)
		assert.Empty(t, h.rec.Thinking)

		replies := h.rec.Replies()
		require.Len(t, replies, 2, "greeting plus one reply")
		assert.NotEmpty(t, replies[1])
		assert.Len(t, h.rec.Filter("reply_empty"), 1)
	}
}

func TestCluelessThinkingNeverRepeatsWithinTurn(t *testing.T) {
	s := loadScripts(t)
	l := logic.NewClueless(s.Clueless, sampling.Seeded(3))
	h := newHarness(3)

	require.NoError(t, l.Respond(context.Background(), "", nil, h.ctl))

	seen := map[string]bool{}
	for _, e := range h.rec.Filter("thinking_add") {
		assert.False(t, seen[e.Text], "repeated snippet %q", e.Text)
		seen[e.Text] = true
	}
}

func TestAddTypos(t *testing.T) {
	r := sampling.Seeded(1)

	assert.Equal(t, "hello world", logic.AddTypos(r, "hello world", 0))
	assert.Equal(t, "ehllo owlrd", logic.AddTypos(r, "hello world", 1))
	assert.Equal(t, "a b c", logic.AddTypos(r, "a b c", 1), "whitespace pairs are never swapped")

	in := "i don't know what you're saying"
	for i := 0; i < 200; i++ {
		out := logic.AddTypos(r, in, 0.3)
		assert.Equal(t, sorted(in), sorted(out))
		assert.Equal(t, spaces(in), spaces(out))
	}
}

func sorted(s string) string {
	r := []rune(s)
	sort.Slice(r, func(i, j int) bool { return r[i] < r[j] })
	return string(r)
}

func spaces(s string) []int {
	var idx []int
	for i, r := range []rune(s) {
		if r == ' ' {
			idx = append(idx, i)
		}
	}
	return idx
}
