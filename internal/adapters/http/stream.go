package httpadapter

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/PabloGalante/fairy-agent/internal/app/live"
	"github.com/PabloGalante/fairy-agent/internal/observability"
)

const streamWriteTimeout = 10 * time.Second

// streamSnapshot is the first frame of a stream: the thread as stored plus
// its transient view, so a client joining mid-turn can render it.
type streamSnapshot struct {
	Type   string         `json:"type"`
	Thread threadResponse `json:"thread"`
	View   live.View      `json:"view"`
}

// handleStream upgrades to a websocket and forwards the thread's live events
// until either side goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := threadID(r)

	// Subscribe before reading the thread so nothing falls between the
	// snapshot and the first event.
	view, sub := s.svc.Hub().Subscribe(id)
	defer sub.Close()

	thread, err := s.svc.GetThread(r.Context(), id)
	if err != nil {
		serviceError(w, r, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		return
	}

	log := observability.LoggerFromContext(r.Context()).With("thread_id", id)

	// Clients only send control frames; reading surfaces their close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer sub.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log.Info("stream opened")
	defer log.Info("stream closed")

	if err := s.write(conn, streamSnapshot{Type: "snapshot", Thread: toThreadResponse(thread), View: view}); err != nil {
		log.Warn("stream write failed", "error", err)
		sub.Close()
	}

	for e := range sub.Events() {
		if err := s.write(conn, e); err != nil {
			log.Warn("stream write failed", "error", err)
			break
		}
	}

	sub.Close()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	_ = conn.Close()
	<-done
}

func (s *Server) write(conn *websocket.Conn, v any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}
