package memory

import (
	"sync"

	"github.com/PabloGalante/fairy-agent/internal/domain"
)

// ThreadStore is the in-memory session registry. Threads are kept in creation
// order; exactly one of them is active while the store is non-empty.
type ThreadStore struct {
	mu      sync.RWMutex
	threads []*domain.Thread
	active  domain.ThreadID
}

func NewThreadStore() *ThreadStore {
	return &ThreadStore{}
}

// CreateThread registers a thread and makes it the active one.
func (s *ThreadStore) CreateThread(thread *domain.Thread) {
	if thread == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(thread.ID) >= 0 {
		return
	}
	if thread.Title == "" {
		thread.Title = domain.DefaultTitle
	}
	s.threads = append(s.threads, thread.Clone())
	s.active = thread.ID
}

func (s *ThreadStore) GetThread(id domain.ThreadID) (*domain.Thread, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, false
	}
	return s.threads[i].Clone(), true
}

// ListThreads returns snapshots of every thread in creation order.
func (s *ThreadStore) ListThreads() []*domain.Thread {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Thread, 0, len(s.threads))
	for _, t := range s.threads {
		out = append(out, t.Clone())
	}
	return out
}

// DeleteThread removes a thread. If it was active, activity moves to the
// first remaining thread, or the active id is cleared when none remain.
func (s *ThreadStore) DeleteThread(id domain.ThreadID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return
	}
	s.threads = append(s.threads[:i], s.threads[i+1:]...)

	if s.active != id {
		return
	}
	if len(s.threads) > 0 {
		s.active = s.threads[0].ID
	} else {
		s.active = ""
	}
}

// SetActive stores id as the active thread without checking that it exists.
func (s *ThreadStore) SetActive(id domain.ThreadID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = id
}

func (s *ThreadStore) Active() domain.ThreadID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *ThreadStore) SetPersonality(id domain.ThreadID, personalityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id); i >= 0 {
		s.threads[i].PersonalityID = personalityID
	}
}

// AppendMessage adds msg to the thread. The first user message landing as
// the second message names a thread that still carries the default title.
func (s *ThreadStore) AppendMessage(id domain.ThreadID, msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return
	}
	t := s.threads[i]
	t.Messages = append(t.Messages, msg)

	if t.Title == domain.DefaultTitle && msg.Role == domain.RoleUser && len(t.Messages) == 2 {
		t.Title = domain.DeriveTitle(msg.Content)
	}
}

// RewriteLastUserMessage replaces the content of the latest user message.
// When that message is the only user message, the title follows it.
func (s *ThreadStore) RewriteLastUserMessage(id domain.ThreadID, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return
	}
	t := s.threads[i]
	if !rewriteLast(t.Messages, domain.RoleUser, content) {
		return
	}
	if domain.CountRole(t.Messages, domain.RoleUser) == 1 {
		t.Title = domain.DeriveTitle(content)
	}
}

// UpdateLastAssistantMessage replaces the content of the latest assistant message.
func (s *ThreadStore) UpdateLastAssistantMessage(id domain.ThreadID, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id); i >= 0 {
		rewriteLast(s.threads[i].Messages, domain.RoleAssistant, content)
	}
}

func (s *ThreadStore) indexOf(id domain.ThreadID) int {
	for i, t := range s.threads {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func rewriteLast(msgs []domain.Message, role domain.Role, content string) bool {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == role {
			msgs[i].Content = content
			return true
		}
	}
	return false
}
