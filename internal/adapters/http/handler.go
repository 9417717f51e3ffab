package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PabloGalante/fairy-agent/internal/app/conversation"
	"github.com/PabloGalante/fairy-agent/internal/app/logic"
	"github.com/PabloGalante/fairy-agent/internal/domain"
	"github.com/PabloGalante/fairy-agent/internal/observability"
)

type Server struct {
	svc      *conversation.Service
	upgrader websocket.Upgrader
}

func NewServer(svc *conversation.Service) http.Handler {
	s := &Server{
		svc: svc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(withRequestContext)
	r.Use(withLogging)
	r.Use(middleware.Recoverer)
	r.Use(withCORS)

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/personalities", s.handleListPersonalities)

	r.Route("/threads", func(r chi.Router) {
		r.Post("/", s.handleCreateThread)
		r.Get("/", s.handleListThreads)

		r.Route("/{threadID}", func(r chi.Router) {
			r.Get("/", s.handleGetThread)
			r.Delete("/", s.handleDeleteThread)
			r.Post("/activate", s.handleActivate)
			r.Put("/personality", s.handleSetPersonality)
			r.Post("/messages", s.handleSendMessage)
			r.Post("/draft", s.handleDraft)
			r.Get("/stream", s.handleStream)
		})
	})

	r.Route("/debug", func(r chi.Router) {
		r.Get("/override", s.handleGetOverride)
		r.Post("/override", s.handleSetOverride)
		r.Post("/reset", s.handleReset)
	})

	return r
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type personalityResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Greeting string `json:"greeting"`
	Passive  bool   `json:"passive"`
}

type createThreadRequest struct {
	PersonalityID string `json:"personality_id,omitempty"`
}

type threadResponse struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	PersonalityID string            `json:"personality_id"`
	CreatedAt     time.Time         `json:"created_at"`
	Messages      []messageResponse `json:"messages"`
}

type threadSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	PersonalityID string    `json:"personality_id"`
	CreatedAt     time.Time `json:"created_at"`
	MessageCount  int       `json:"message_count"`
}

type listThreadsResponse struct {
	Threads  []threadSummary `json:"threads"`
	ActiveID string          `json:"active_id"`
}

type messageResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
	// Wait holds the response until the reply turn has finished.
	Wait bool `json:"wait,omitempty"`
}

type draftRequest struct {
	Text string `json:"text"`
}

type draftResponse struct {
	Interrupted bool `json:"interrupted"`
}

type personalityRequest struct {
	PersonalityID string `json:"personality_id"`
}

type overrideResponse struct {
	PersonalityID string `json:"personality_id"`
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListPersonalities(w http.ResponseWriter, r *http.Request) {
	all := s.svc.Personalities()
	out := make([]personalityResponse, 0, len(all))
	for _, l := range all {
		_, passive := l.(logic.Passive)
		out = append(out, personalityResponse{
			ID:       l.ID(),
			Name:     l.Name(),
			Greeting: l.Greeting(),
			Passive:  passive,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	var req createThreadRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	out, err := s.svc.CreateThread(r.Context(), conversation.CreateThreadInput{PersonalityID: req.PersonalityID})
	if err != nil {
		serviceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toThreadResponse(out.Thread))
}

func (s *Server) handleListThreads(w http.ResponseWriter, r *http.Request) {
	threads, active := s.svc.ListThreads(r.Context())

	resp := listThreadsResponse{
		Threads:  make([]threadSummary, 0, len(threads)),
		ActiveID: string(active),
	}
	for _, t := range threads {
		resp.Threads = append(resp.Threads, threadSummary{
			ID:            string(t.ID),
			Title:         t.Title,
			PersonalityID: t.PersonalityID,
			CreatedAt:     t.CreatedAt,
			MessageCount:  len(t.Messages),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.GetThread(r.Context(), threadID(r))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toThreadResponse(t))
}

func (s *Server) handleDeleteThread(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteThread(r.Context(), threadID(r)); err != nil {
		serviceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Activate(r.Context(), threadID(r)); err != nil {
		serviceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetPersonality(w http.ResponseWriter, r *http.Request) {
	var req personalityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.PersonalityID == "" {
		badRequest(w, "personality_id is required")
		return
	}

	if err := s.svc.SetPersonality(r.Context(), threadID(r), req.PersonalityID); err != nil {
		serviceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	in := conversation.SendMessageInput{ThreadID: threadID(r), Text: req.Text}

	if !req.Wait {
		if err := s.svc.SendMessageAsync(r.Context(), in); err != nil {
			serviceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
		return
	}

	out, err := s.svc.SendMessage(r.Context(), in)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toThreadResponse(out.Thread))
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	interrupted, err := s.svc.Draft(r.Context(), conversation.DraftInput{ThreadID: threadID(r), Text: req.Text})
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draftResponse{Interrupted: interrupted})
}

func (s *Server) handleGetOverride(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, overrideResponse{PersonalityID: s.svc.Override()})
}

func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	var req personalityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	if err := s.svc.SetOverride(r.Context(), req.PersonalityID); err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overrideResponse{PersonalityID: s.svc.Override()})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.svc.ResetPersonalities(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// ─────────────────────────────────────────────
// Conversation Helpers
// ─────────────────────────────────────────────

func threadID(r *http.Request) domain.ThreadID {
	return domain.ThreadID(chi.URLParam(r, "threadID"))
}

func toThreadResponse(t *domain.Thread) threadResponse {
	return threadResponse{
		ID:            string(t.ID),
		Title:         t.Title,
		PersonalityID: t.PersonalityID,
		CreatedAt:     t.CreatedAt,
		Messages:      toMessagesResponse(t.Messages),
	}
}

func toMessagesResponse(msgs []domain.Message) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

// decodeOptional decodes a JSON body when there is one.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "invalid JSON body")
		return false
	}
	return true
}

func serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, conversation.ErrThreadNotFound):
		notFound(w, err.Error())
	case errors.Is(err, conversation.ErrEmptyMessage),
		errors.Is(err, conversation.ErrUnknownPersonality):
		badRequest(w, err.Error())
	case errors.Is(err, conversation.ErrShuttingDown):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": err.Error(),
		})
	default:
		internalError(w, r, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func notFound(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerFromContext(r.Context()).Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}
