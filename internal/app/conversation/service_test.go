package conversation_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/PabloGalante/fairy-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/fairy-agent/internal/app/conversation"
	"github.com/PabloGalante/fairy-agent/internal/app/live"
	"github.com/PabloGalante/fairy-agent/internal/app/logic"
	"github.com/PabloGalante/fairy-agent/internal/app/sequencer"
	"github.com/PabloGalante/fairy-agent/internal/app/sequencer/sequencertest"
	"github.com/PabloGalante/fairy-agent/internal/domain"
	"github.com/PabloGalante/fairy-agent/internal/sampling"
)

func newTestService(t *testing.T, clock sequencer.Clock) (*conversation.Service, *logic.Registry) {
	t.Helper()

	rng := sampling.Locked(sampling.Seeded(1))
	registry, err := logic.NewRegistry(logic.Options{Rand: rng})
	require.NoError(t, err)

	if clock == nil {
		clock = sequencertest.NewClock()
	}
	svc := conversation.NewService(memory.NewThreadStore(), registry, live.NewHub(), clock, rng)
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })
	return svc, registry
}

func createThread(t *testing.T, svc *conversation.Service, personality string) *domain.Thread {
	t.Helper()
	out, err := svc.CreateThread(context.Background(), conversation.CreateThreadInput{PersonalityID: personality})
	require.NoError(t, err)
	return out.Thread
}

func TestCreateThread(t *testing.T) {
	defer goleak.VerifyNone(t)
	svc, registry := newTestService(t, nil)
	ctx := context.Background()

	th := createThread(t, svc, logic.IDScholar)
	assert.NotEmpty(t, th.ID)
	assert.Equal(t, domain.DefaultTitle, th.Title)
	assert.Equal(t, logic.IDScholar, th.PersonalityID)
	require.Len(t, th.Messages, 1)
	assert.Equal(t, domain.RoleAssistant, th.Messages[0].Role)
	assert.Equal(t, registry.Lookup(logic.IDScholar).Greeting(), th.Messages[0].Content)

	second := createThread(t, svc, "")
	threads, active := svc.ListThreads(ctx)
	require.Len(t, threads, 2)
	assert.Equal(t, th.ID, threads[0].ID)
	assert.Equal(t, second.ID, active, "new threads become active")

	_, err := svc.CreateThread(ctx, conversation.CreateThreadInput{PersonalityID: "nope"})
	assert.ErrorIs(t, err, conversation.ErrUnknownPersonality)
}

func TestCreateThreadHonoursOverride(t *testing.T) {
	defer goleak.VerifyNone(t)
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.SetOverride(ctx, logic.IDVenting))
	for i := 0; i < 5; i++ {
		assert.Equal(t, logic.IDVenting, createThread(t, svc, "").PersonalityID)
	}
	assert.ErrorIs(t, svc.SetOverride(ctx, "nope"), conversation.ErrUnknownPersonality)
	assert.Equal(t, logic.IDVenting, svc.Override())
}

func TestBootstrap(t *testing.T) {
	defer goleak.VerifyNone(t)
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	first, err := svc.Bootstrap(ctx)
	require.NoError(t, err)
	assert.Equal(t, logic.IDClueless, first.PersonalityID)

	again, err := svc.Bootstrap(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
}

func TestSendMessageRunsScholarTurn(t *testing.T) {
	defer goleak.VerifyNone(t)
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	th := createThread(t, svc, logic.IDScholar)

	_, sub := svc.Hub().Subscribe(th.ID)
	defer sub.Close()

	out, err := svc.SendMessage(ctx, conversation.SendMessageInput{ThreadID: th.ID, Text: "  what's the weather?  "})
	require.NoError(t, err)

	msgs := out.Thread.Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, domain.RoleUser, msgs[1].Role)
	assert.NotEqual(t, "what's the weather?", msgs[1].Content, "scholar swaps the question")
	assert.Equal(t, domain.DeriveTitle(msgs[1].Content), out.Thread.Title)
	assert.Equal(t, domain.RoleAssistant, msgs[2].Role)

	var kinds []live.EventType
	for len(sub.Events()) > 0 {
		kinds = append(kinds, (<-sub.Events()).Type)
	}
	require.NotEmpty(t, kinds)
	assert.Equal(t, live.EventTurnStart, kinds[0])
	assert.Equal(t, live.EventTurnEnd, kinds[len(kinds)-1])
	assert.Contains(t, kinds, live.EventUserRewrite)
	assert.Contains(t, kinds, live.EventThinkingAdd)
	assert.Equal(t, live.View{}, svc.Hub().View(th.ID))
}

func TestSendMessageValidation(t *testing.T) {
	defer goleak.VerifyNone(t)
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	th := createThread(t, svc, logic.IDEmpath)

	_, err := svc.SendMessage(ctx, conversation.SendMessageInput{ThreadID: th.ID, Text: "   "})
	assert.ErrorIs(t, err, conversation.ErrEmptyMessage)

	_, err = svc.SendMessage(ctx, conversation.SendMessageInput{ThreadID: "missing", Text: "hi"})
	assert.ErrorIs(t, err, conversation.ErrThreadNotFound)

	assert.ErrorIs(t, svc.SendMessageAsync(ctx, conversation.SendMessageInput{ThreadID: "missing", Text: "hi"}),
		conversation.ErrThreadNotFound)
}

func TestSendMessageAsync(t *testing.T) {
	defer goleak.VerifyNone(t)
	svc, _ := newTestService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	th := createThread(t, svc, logic.IDVenting)

	require.NoError(t, svc.SendMessageAsync(ctx, conversation.SendMessageInput{ThreadID: th.ID, Text: "hello"}))
	cancel() // the request going away does not stop the turn
	svc.Wait()

	got, err := svc.GetThread(ctx, th.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "hello", got.Title)
	assert.NotContains(t, strings.ToLower(got.Messages[2].Content), "fuck")
}

func TestDraftInterruptsWithEmpath(t *testing.T) {
	defer goleak.VerifyNone(t)
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	th := createThread(t, svc, logic.IDEmpath)

	interrupted, err := svc.Draft(ctx, conversation.DraftInput{ThreadID: th.ID, Text: "short"})
	require.NoError(t, err)
	assert.False(t, interrupted)

	interrupted, err = svc.Draft(ctx, conversation.DraftInput{ThreadID: th.ID, Text: strings.Repeat("x", 40)})
	require.NoError(t, err)
	assert.True(t, interrupted)
	svc.Wait()

	got, err := svc.GetThread(ctx, th.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2, "the draft is not sent")
	assert.Equal(t, domain.RoleAssistant, got.Messages[1].Role)
	assert.Equal(t, domain.DefaultTitle, got.Title)

	_, err = svc.Draft(ctx, conversation.DraftInput{ThreadID: "missing", Text: "x"})
	assert.ErrorIs(t, err, conversation.ErrThreadNotFound)
}

func TestDraftIgnoredByActivePersonalities(t *testing.T) {
	defer goleak.VerifyNone(t)
	svc, _ := newTestService(t, nil)
	th := createThread(t, svc, logic.IDClueless)

	interrupted, err := svc.Draft(context.Background(), conversation.DraftInput{ThreadID: th.ID, Text: strings.Repeat("x", 200)})
	require.NoError(t, err)
	assert.False(t, interrupted)
}

func TestDeleteThread(t *testing.T) {
	defer goleak.VerifyNone(t)
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	a := createThread(t, svc, logic.IDClueless)
	b := createThread(t, svc, logic.IDEmpath)
	_, sub := svc.Hub().Subscribe(b.ID)

	require.NoError(t, svc.DeleteThread(ctx, b.ID))
	_, open := <-sub.Events()
	assert.False(t, open, "subscribers of a deleted thread are released")

	threads, active := svc.ListThreads(ctx)
	require.Len(t, threads, 1)
	assert.Equal(t, a.ID, active)

	assert.ErrorIs(t, svc.DeleteThread(ctx, b.ID), conversation.ErrThreadNotFound)
	_, err := svc.GetThread(ctx, b.ID)
	assert.ErrorIs(t, err, conversation.ErrThreadNotFound)
}

func TestActivateAndSetPersonality(t *testing.T) {
	defer goleak.VerifyNone(t)
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	a := createThread(t, svc, logic.IDClueless)
	createThread(t, svc, logic.IDClueless)

	require.NoError(t, svc.Activate(ctx, a.ID))
	_, active := svc.ListThreads(ctx)
	assert.Equal(t, a.ID, active)
	assert.ErrorIs(t, svc.Activate(ctx, "missing"), conversation.ErrThreadNotFound)

	require.NoError(t, svc.SetPersonality(ctx, a.ID, logic.IDPrivate))
	got, err := svc.GetThread(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, logic.IDPrivate, got.PersonalityID)
	assert.ErrorIs(t, svc.SetPersonality(ctx, a.ID, "nope"), conversation.ErrUnknownPersonality)
}

func TestPersonalityStateIsSharedAcrossThreads(t *testing.T) {
	defer goleak.VerifyNone(t)
	svc, registry := newTestService(t, nil)
	ctx := context.Background()
	private := registry.Lookup(logic.IDPrivate).(*logic.Private)

	a := createThread(t, svc, logic.IDPrivate)
	b := createThread(t, svc, logic.IDPrivate)

	send := func(id domain.ThreadID, text string) {
		_, err := svc.SendMessage(ctx, conversation.SendMessageInput{ThreadID: id, Text: text})
		require.NoError(t, err)
	}
	send(a.ID, "hi")
	send(a.ID, "Jane Smith")
	assert.Equal(t, 1, private.State().Index)

	// A reply in another thread that is past its first turn continues from
	// the same collection state.
	send(b.ID, "hi")
	assert.Zero(t, private.State().Index, "first turn of any thread restarts collection")
	send(a.ID, "Jane Smith")
	send(b.ID, "123-45-6789")
	assert.Equal(t, 2, private.State().Index)

	svc.ResetPersonalities(ctx)
	assert.Equal(t, logic.PrivateState{}, private.State())
}

func TestShutdownCancelsRunningTurn(t *testing.T) {
	defer goleak.VerifyNone(t)
	svc, _ := newTestService(t, sequencer.RealClock{})
	ctx := context.Background()
	th := createThread(t, svc, logic.IDClueless)

	require.NoError(t, svc.SendMessageAsync(ctx, conversation.SendMessageInput{ThreadID: th.ID, Text: "hello"}))
	require.Eventually(t, func() bool { return svc.Hub().View(th.ID).Busy }, time.Second, 5*time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Shutdown(shutdownCtx))

	got, err := svc.GetThread(ctx, th.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2, "no reply after cancellation")
	assert.False(t, svc.Hub().View(th.ID).Busy)

	err = svc.SendMessageAsync(ctx, conversation.SendMessageInput{ThreadID: th.ID, Text: "again"})
	assert.ErrorIs(t, err, conversation.ErrShuttingDown)
}

// gateClock holds every Sleep until the gate opens.
type gateClock struct {
	gate chan struct{}
}

func (c gateClock) Now() time.Time { return time.Now() }

func (c gateClock) Sleep(ctx context.Context, _ time.Duration) error {
	select {
	case <-c.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestDraftInterruptsOncePerPendingTurn(t *testing.T) {
	defer goleak.VerifyNone(t)
	clock := gateClock{gate: make(chan struct{})}
	svc, _ := newTestService(t, clock)
	ctx := context.Background()

	scholar := createThread(t, svc, logic.IDScholar)
	empath := createThread(t, svc, logic.IDEmpath)

	// the scholar turn holds the turn lock until the gate opens
	require.NoError(t, svc.SendMessageAsync(ctx, conversation.SendMessageInput{ThreadID: scholar.ID, Text: "hi"}))
	require.Eventually(t, func() bool { return svc.Hub().View(scholar.ID).Busy }, time.Second, 5*time.Millisecond)

	var interrupts int
	for n := 37; n <= 41; n++ {
		interrupted, err := svc.Draft(ctx, conversation.DraftInput{ThreadID: empath.ID, Text: strings.Repeat("x", n)})
		require.NoError(t, err)
		if interrupted {
			interrupts++
		}
	}
	assert.Equal(t, 1, interrupts)
	assert.True(t, svc.Pending(empath.ID))

	close(clock.gate)
	svc.Wait()
	assert.False(t, svc.Pending(empath.ID))

	got, err := svc.GetThread(ctx, empath.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2, "greeting plus one interrupt")

	interrupted, err := svc.Draft(ctx, conversation.DraftInput{ThreadID: empath.ID, Text: strings.Repeat("x", 41)})
	require.NoError(t, err)
	assert.True(t, interrupted, "a later draft may interrupt again")
	svc.Wait()
}

func TestScholarAnimatedRewrite(t *testing.T) {
	defer goleak.VerifyNone(t)
	rng := sampling.Locked(sampling.Seeded(4))
	registry, err := logic.NewRegistry(logic.Options{Rand: rng, AnimateRewrite: true})
	require.NoError(t, err)
	clock := sequencertest.NewClock()
	svc := conversation.NewService(memory.NewThreadStore(), registry, live.NewHub(live.WithBuffer(4096)), clock, rng)
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })
	ctx := context.Background()

	th := createThread(t, svc, logic.IDScholar)
	_, sub := svc.Hub().Subscribe(th.ID)
	defer sub.Close()

	out, err := svc.SendMessage(ctx, conversation.SendMessageInput{ThreadID: th.ID, Text: "hi"})
	require.NoError(t, err)
	question := out.Thread.Messages[1].Content
	require.NotEqual(t, "hi", question)

	var frames []string
	var rewrites []string
	for len(sub.Events()) > 0 {
		e := <-sub.Events()
		switch e.Type {
		case live.EventUserRewriteFrame:
			require.Empty(t, rewrites, "frames come before the commit")
			frames = append(frames, e.Text)
		case live.EventUserRewrite:
			rewrites = append(rewrites, e.Text)
		}
	}

	want := []string{"h", ""}
	runes := []rune(question)
	for n := 1; n < len(runes); n++ {
		want = append(want, string(runes[:n]))
	}
	assert.Equal(t, want, frames)
	assert.Equal(t, []string{question}, rewrites)
	assert.Equal(t, domain.DeriveTitle(question), out.Thread.Title)

	var erase, retype int
	for _, d := range clock.Sleeps() {
		switch d {
		case 15 * time.Millisecond:
			erase++
		case 25 * time.Millisecond:
			retype++
		}
	}
	assert.Equal(t, 2, erase)
	assert.Equal(t, len(runes)-1, retype)
}
