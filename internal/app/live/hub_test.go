package live_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/fairy-agent/internal/app/live"
)

func drain(s *live.Subscription) []live.Event {
	var out []live.Event
	for {
		select {
		case e, ok := <-s.Events():
			if !ok {
				return out
			}
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestHubTracksView(t *testing.T) {
	h := live.NewHub()

	h.Publish(live.Event{Type: live.EventTurnStart, ThreadID: "t1"})
	h.Publish(live.Toggle(live.EventTyping, "t1", true))
	h.Publish(live.Event{Type: live.EventThinkingAdd, ThreadID: "t1", Text: "a"})
	h.Publish(live.Event{Type: live.EventThinkingAdd, ThreadID: "t1", Text: "b"})

	v := h.View("t1")
	assert.True(t, v.Busy)
	assert.True(t, v.Typing)
	assert.Equal(t, []string{"a", "b"}, v.Thinking)

	h.Publish(live.Event{Type: live.EventThinkingSet, ThreadID: "t1", Lines: []string{"c"}})
	assert.Equal(t, []string{"c"}, h.View("t1").Thinking)

	h.Publish(live.Event{Type: live.EventTurnEnd, ThreadID: "t1"})
	assert.Equal(t, live.View{}, h.View("t1"))
	assert.Equal(t, live.View{}, h.View("other"))
}

func TestHubDeliversPerThread(t *testing.T) {
	h := live.NewHub()
	h.Publish(live.Event{Type: live.EventTurnStart, ThreadID: "t1"})
	h.Publish(live.Toggle(live.EventCursor, "t1", true))

	view, sub := h.Subscribe("t1")
	defer sub.Close()
	assert.True(t, view.Cursor, "snapshot reflects earlier events")

	h.Publish(live.Event{Type: live.EventReply, ThreadID: "t1", Text: "hi"})
	h.Publish(live.Event{Type: live.EventReply, ThreadID: "t2", Text: "elsewhere"})

	got := drain(sub)
	require.Len(t, got, 1)
	assert.Equal(t, "hi", got[0].Text)
	assert.False(t, got[0].At.IsZero())
}

func TestHubForgetClosesSubscriptions(t *testing.T) {
	h := live.NewHub()
	_, sub := h.Subscribe("t1")

	h.Forget("t1")
	_, ok := <-sub.Events()
	assert.False(t, ok)

	sub.Close()
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	h := live.NewHub()
	_, sub := h.Subscribe("t1")

	for i := 0; i < 1000; i++ {
		h.Publish(live.Toggle(live.EventTyping, "t1", i%2 == 0))
	}

	n := 0
	for range sub.Events() {
		n++
	}
	assert.Less(t, n, 1000, "channel closed once the buffer filled")
}

func TestHubKeepsViewsOnlyDuringTurns(t *testing.T) {
	h := live.NewHub()

	h.Publish(live.Toggle(live.EventTyping, "t1", true))
	assert.Zero(t, h.Views(), "no view outside a turn")

	h.Publish(live.Event{Type: live.EventTurnStart, ThreadID: "t1"})
	assert.Equal(t, 1, h.Views())
	h.Publish(live.Event{Type: live.EventTurnEnd, ThreadID: "t1"})
	assert.Zero(t, h.Views())
}

func TestHubForgetMidTurnLeavesNoView(t *testing.T) {
	h := live.NewHub()
	h.Publish(live.Event{Type: live.EventTurnStart, ThreadID: "t1"})

	h.Forget("t1")
	h.Publish(live.Toggle(live.EventTyping, "t1", true))
	h.Publish(live.Event{Type: live.EventThinkingAdd, ThreadID: "t1", Text: "late"})
	h.Publish(live.Event{Type: live.EventTurnEnd, ThreadID: "t1"})

	assert.Zero(t, h.Views())
	assert.Equal(t, live.View{}, h.View("t1"))
}

func TestHubWithBuffer(t *testing.T) {
	h := live.NewHub(live.WithBuffer(2))
	_, sub := h.Subscribe("t1")

	for i := 0; i < 3; i++ {
		h.Publish(live.Event{Type: live.EventReply, ThreadID: "t1"})
	}
	assert.Len(t, drain(sub), 2, "dropped on the third event")
}
