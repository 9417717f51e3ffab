package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/fairy-agent/internal/app/live"
	"github.com/PabloGalante/fairy-agent/internal/app/logic"
	"github.com/PabloGalante/fairy-agent/internal/app/sequencer"
	"github.com/PabloGalante/fairy-agent/internal/domain"
	"github.com/PabloGalante/fairy-agent/internal/observability"
	"github.com/PabloGalante/fairy-agent/internal/sampling"
)

var (
	ErrThreadNotFound     = errors.New("thread not found")
	ErrEmptyMessage       = errors.New("message is empty")
	ErrUnknownPersonality = errors.New("unknown personality")
	ErrShuttingDown       = errors.New("service is shutting down")
)

const (
	kindMessage = "message"
	kindPassive = "passive"
)

// Service hosts the conversation: it owns the threads, picks personalities
// and runs their turns one at a time.
type Service struct {
	store    domain.ThreadStore
	registry *logic.Registry
	hub      *live.Hub
	clock    sequencer.Clock
	rng      sampling.Rand
	now      func() time.Time
	newID    func() domain.ThreadID

	// turnMu serializes turns across every thread.
	turnMu sync.Mutex
	turns  sync.WaitGroup

	stop     context.Context
	stopTurn context.CancelFunc
	mu       sync.Mutex
	closing  bool
	// pending counts dispatched turns per thread, queued or running.
	pending map[domain.ThreadID]int
}

func NewService(
	store domain.ThreadStore,
	registry *logic.Registry,
	hub *live.Hub,
	clock sequencer.Clock,
	rng sampling.Rand,
) *Service {
	if clock == nil {
		clock = sequencer.RealClock{}
	}
	if rng == nil {
		rng = sampling.Global()
	}
	stop, cancel := context.WithCancel(context.Background())

	return &Service{
		store:    store,
		registry: registry,
		hub:      hub,
		clock:    clock,
		rng:      rng,
		now:      time.Now,
		newID:    func() domain.ThreadID { return domain.ThreadID(uuid.NewString()) },
		stop:     stop,
		stopTurn: cancel,
		pending:  make(map[domain.ThreadID]int),
	}
}

// Hub exposes the live feed turns publish to.
func (s *Service) Hub() *live.Hub {
	return s.hub
}

func (s *Service) Personalities() []logic.Logic {
	return s.registry.All()
}

type CreateThreadInput struct {
	// PersonalityID pins the personality; empty lets the registry choose.
	PersonalityID string
}

type CreateThreadOutput struct {
	Thread *domain.Thread
}

// CreateThread starts a thread seeded with its personality's greeting and
// makes it the active one.
func (s *Service) CreateThread(ctx context.Context, in CreateThreadInput) (*CreateThreadOutput, error) {
	var l logic.Logic
	if in.PersonalityID != "" {
		if !s.registry.Has(in.PersonalityID) {
			return nil, ErrUnknownPersonality
		}
		l = s.registry.Lookup(in.PersonalityID)
	} else {
		l = s.registry.Select()
	}

	thread := &domain.Thread{
		ID:            s.newID(),
		Title:         domain.DefaultTitle,
		PersonalityID: l.ID(),
		CreatedAt:     s.now(),
		Messages:      []domain.Message{{Role: domain.RoleAssistant, Content: l.Greeting()}},
	}
	s.store.CreateThread(thread)
	observability.ThreadsLive.Inc()

	observability.LoggerFromContext(ctx).Info("thread created",
		"thread_id", thread.ID,
		"personality", l.ID(),
	)

	return &CreateThreadOutput{Thread: thread.Clone()}, nil
}

// Bootstrap creates a first thread with the default personality when the
// store is empty.
func (s *Service) Bootstrap(ctx context.Context) (*domain.Thread, error) {
	if threads := s.store.ListThreads(); len(threads) > 0 {
		return threads[0], nil
	}
	out, err := s.CreateThread(ctx, CreateThreadInput{PersonalityID: s.registry.Default().ID()})
	if err != nil {
		return nil, err
	}
	return out.Thread, nil
}

func (s *Service) GetThread(_ context.Context, id domain.ThreadID) (*domain.Thread, error) {
	t, ok := s.store.GetThread(id)
	if !ok {
		return nil, ErrThreadNotFound
	}
	return t, nil
}

// ListThreads returns every thread in creation order and the active id.
func (s *Service) ListThreads(_ context.Context) ([]*domain.Thread, domain.ThreadID) {
	return s.store.ListThreads(), s.store.Active()
}

func (s *Service) DeleteThread(ctx context.Context, id domain.ThreadID) error {
	if _, ok := s.store.GetThread(id); !ok {
		return ErrThreadNotFound
	}
	s.store.DeleteThread(id)
	s.hub.Forget(id)
	observability.ThreadsLive.Dec()

	observability.LoggerFromContext(ctx).Info("thread deleted", "thread_id", id, "active", s.store.Active())
	return nil
}

func (s *Service) Activate(_ context.Context, id domain.ThreadID) error {
	if _, ok := s.store.GetThread(id); !ok {
		return ErrThreadNotFound
	}
	s.store.SetActive(id)
	return nil
}

// SetPersonality switches the personality answering a thread from its next
// turn on.
func (s *Service) SetPersonality(ctx context.Context, id domain.ThreadID, personalityID string) error {
	if _, ok := s.store.GetThread(id); !ok {
		return ErrThreadNotFound
	}
	if !s.registry.Has(personalityID) {
		return ErrUnknownPersonality
	}
	s.store.SetPersonality(id, personalityID)

	observability.LoggerFromContext(ctx).Info("personality switched", "thread_id", id, "personality", personalityID)
	return nil
}

// SetOverride forces the personality of every new thread; empty clears it.
func (s *Service) SetOverride(ctx context.Context, personalityID string) error {
	if !s.registry.SetOverride(personalityID) {
		return ErrUnknownPersonality
	}
	observability.LoggerFromContext(ctx).Info("personality override set", "personality", personalityID)
	return nil
}

func (s *Service) Override() string {
	return s.registry.Override()
}

// ResetPersonalities clears the process-wide state every personality keeps.
func (s *Service) ResetPersonalities(ctx context.Context) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	s.registry.ResetAll()
	observability.LoggerFromContext(ctx).Info("personality state reset")
}

type SendMessageInput struct {
	ThreadID domain.ThreadID
	Text     string
}

type SendMessageOutput struct {
	Thread *domain.Thread
}

// SendMessage appends the user's message and performs the reply turn,
// returning once the turn has finished.
func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	text, err := s.checkSend(in)
	if err != nil {
		return nil, err
	}
	if _, err := s.begin(in.ThreadID, false); err != nil {
		return nil, err
	}
	err = s.runTurn(ctx, in.ThreadID, kindMessage, text)
	s.finish(in.ThreadID)
	if err != nil {
		return nil, err
	}
	t, err := s.GetThread(ctx, in.ThreadID)
	if err != nil {
		return nil, err
	}
	return &SendMessageOutput{Thread: t}, nil
}

// SendMessageAsync validates the message and performs the turn in the
// background. Progress is visible through the live hub.
func (s *Service) SendMessageAsync(ctx context.Context, in SendMessageInput) error {
	text, err := s.checkSend(in)
	if err != nil {
		return err
	}
	_, err = s.dispatch(in.ThreadID, false, func() error { return s.runTurn(ctx, in.ThreadID, kindMessage, text) })
	return err
}

type DraftInput struct {
	ThreadID domain.ThreadID
	Text     string
}

// Draft reports the user's unsent input. When the thread's personality
// chooses to interrupt, a passive turn is dispatched and Draft returns true.
// Nothing is dispatched while the thread already has a turn queued or
// running. The draft itself is never added to the thread.
func (s *Service) Draft(ctx context.Context, in DraftInput) (bool, error) {
	t, ok := s.store.GetThread(in.ThreadID)
	if !ok {
		return false, ErrThreadNotFound
	}
	p, ok := s.registry.Lookup(t.PersonalityID).(logic.Passive)
	if !ok || !p.CheckInput(in.Text) {
		return false, nil
	}

	return s.dispatch(in.ThreadID, true, func() error { return s.runTurn(ctx, in.ThreadID, kindPassive, in.Text) })
}

// Pending reports whether thread id has a turn queued or running.
func (s *Service) Pending(id domain.ThreadID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[id] > 0
}

// Wait blocks until every dispatched turn has finished.
func (s *Service) Wait() {
	s.turns.Wait()
}

// Shutdown cancels running turns and waits for them, or for ctx.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	s.stopTurn()

	done := make(chan struct{})
	go func() {
		s.turns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) checkSend(in SendMessageInput) (string, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	if _, ok := s.store.GetThread(in.ThreadID); !ok {
		return "", ErrThreadNotFound
	}
	return text, nil
}

// begin reserves a turn on thread id. An exclusive turn is refused,
// reporting false, when the thread already has one pending. Every reserved
// turn must be released with finish.
func (s *Service) begin(id domain.ThreadID, exclusive bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false, ErrShuttingDown
	}
	if exclusive && s.pending[id] > 0 {
		return false, nil
	}
	s.pending[id]++
	s.turns.Add(1)
	return true, nil
}

func (s *Service) finish(id domain.ThreadID) {
	s.mu.Lock()
	if s.pending[id]--; s.pending[id] <= 0 {
		delete(s.pending, id)
	}
	s.mu.Unlock()
	s.turns.Done()
}

// dispatch runs turn in the background once begin has reserved it.
func (s *Service) dispatch(id domain.ThreadID, exclusive bool, turn func() error) (bool, error) {
	ok, err := s.begin(id, exclusive)
	if !ok || err != nil {
		return false, err
	}
	go func() {
		defer s.finish(id)
		_ = turn()
	}()
	return true, nil
}

// runTurn performs one personality turn on a thread. Turns outlive the
// request that started them; only Shutdown cancels them.
func (s *Service) runTurn(ctx context.Context, id domain.ThreadID, kind, text string) error {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	defer context.AfterFunc(s.stop, cancel)()

	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	if _, ok := s.store.GetThread(id); !ok {
		return ErrThreadNotFound
	}
	if kind == kindMessage {
		s.store.AppendMessage(id, domain.Message{Role: domain.RoleUser, Content: text})
	}
	thread, ok := s.store.GetThread(id)
	if !ok {
		return ErrThreadNotFound
	}

	l := s.registry.Lookup(thread.PersonalityID)
	ctx = observability.WithThreadID(ctx, string(id))
	log := observability.LoggerFromContext(ctx).With("personality", l.ID(), "kind", kind)
	log.Info("turn started", "history", len(thread.Messages))

	surface := &threadSurface{id: id, store: s.store, hub: s.hub, clock: s.clock}
	ctl := sequencer.New(surface, s.clock, s.rng)

	s.hub.Publish(live.Event{Type: live.EventTurnStart, ThreadID: id})
	start := s.clock.Now()

	var err error
	if p, ok := l.(logic.Passive); ok && kind == kindPassive {
		err = p.RespondPassive(ctx, text, thread.Messages, ctl)
	} else {
		err = l.Respond(ctx, text, thread.Messages, ctl)
	}

	elapsed := s.clock.Now().Sub(start)
	s.hub.Publish(live.Event{Type: live.EventTurnEnd, ThreadID: id})
	observability.TurnDuration.WithLabelValues(l.ID()).Observe(elapsed.Seconds())

	outcome := "ok"
	switch {
	case errors.Is(err, context.Canceled):
		outcome = "canceled"
		log.Warn("turn canceled", "elapsed", elapsed)
	case err != nil:
		outcome = "error"
		log.Error("turn failed", "error", err, "elapsed", elapsed)
	default:
		log.Info("turn completed", "elapsed", elapsed)
	}
	observability.TurnsTotal.WithLabelValues(l.ID(), kind, outcome).Inc()

	return err
}
