package live

import (
	"sync"
	"time"

	"github.com/PabloGalante/fairy-agent/internal/domain"
	"github.com/PabloGalante/fairy-agent/internal/observability"
)

const defaultBuffer = 256

// Hub keeps one view per thread with a turn in flight and fans events out to
// per-thread subscribers. A subscriber that cannot keep up is dropped: its
// channel is closed and it has to resubscribe to get a fresh snapshot.
type Hub struct {
	mu     sync.Mutex
	views  map[domain.ThreadID]*View
	subs   map[domain.ThreadID]map[*Subscription]struct{}
	buffer int
	now    func() time.Time
}

type Option func(*Hub)

// WithBuffer sets how many events a subscriber may lag behind before it is
// dropped.
func WithBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		views:  make(map[domain.ThreadID]*View),
		subs:   make(map[domain.ThreadID]map[*Subscription]struct{}),
		buffer: defaultBuffer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscription is a live feed of one thread.
type Subscription struct {
	hub      *Hub
	threadID domain.ThreadID
	ch       chan Event
	closed   bool
}

// Events is closed when the subscription ends, either through Close, because
// the thread was forgotten, or because the subscriber fell behind.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

func (s *Subscription) ThreadID() domain.ThreadID {
	return s.threadID
}

func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.hub.removeLocked(s)
}

// Publish updates the thread's view and delivers e to its subscribers. A
// view is created by turn_start and dropped by turn_end; events outside a
// turn, such as those of a turn whose thread was forgotten, leave no view.
func (h *Hub) Publish(e Event) {
	if e.At.IsZero() {
		e.At = h.now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	v, ok := h.views[e.ThreadID]
	switch {
	case e.Type == EventTurnEnd:
		delete(h.views, e.ThreadID)
	case ok:
		v.apply(e)
	case e.Type == EventTurnStart:
		v = &View{}
		v.apply(e)
		h.views[e.ThreadID] = v
	}

	for s := range h.subs[e.ThreadID] {
		select {
		case s.ch <- e:
		default:
			observability.WithFields("thread_id", e.ThreadID).Warn("dropping slow live subscriber")
			h.removeLocked(s)
		}
	}
}

// Subscribe returns the thread's current view together with a subscription
// that receives every event published after it.
func (h *Hub) Subscribe(id domain.ThreadID) (View, *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := &Subscription{hub: h, threadID: id, ch: make(chan Event, h.buffer)}
	set, ok := h.subs[id]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[id] = set
	}
	set[s] = struct{}{}
	observability.StreamSubscribers.Inc()

	return h.viewLocked(id), s
}

func (h *Hub) View(id domain.ThreadID) View {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.viewLocked(id)
}

// Forget drops the thread's view and ends its subscriptions.
func (h *Hub) Forget(id domain.ThreadID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs[id] {
		h.removeLocked(s)
	}
	delete(h.subs, id)
	delete(h.views, id)
}

// Views reports how many threads currently hold a view.
func (h *Hub) Views() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.views)
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, set := range h.subs {
		for s := range set {
			h.removeLocked(s)
		}
	}
}

func (h *Hub) viewLocked(id domain.ThreadID) View {
	if v, ok := h.views[id]; ok {
		return v.clone()
	}
	return View{}
}

func (h *Hub) removeLocked(s *Subscription) {
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
	if set := h.subs[s.threadID]; set != nil {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.threadID)
		}
	}
	observability.StreamSubscribers.Dec()
}
