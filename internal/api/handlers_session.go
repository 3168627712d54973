package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/dgallion1/codetransmute/internal/session"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

func (s *Server) sessionFromPath(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.deps.Hub.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Level  *int   `json:"level"`
		Locale string `json:"locale"`
		Path   string `json:"path"`
	}
	if !decodeBody(w, r, &req, bodySlack, true) {
		return
	}
	level := s.cfg.DefaultLevel
	if req.Level != nil {
		level = *req.Level
	}
	locale := req.Locale
	if locale == "" {
		locale = s.cfg.DefaultLocale
	}
	if _, ok := s.deps.Catalog.Labels(locale); !ok {
		jsonError(w, "unknown locale: "+locale, http.StatusBadRequest)
		return
	}

	sess, err := s.deps.Hub.Create(level, locale)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	snap := sess.Snapshot()
	if req.Path != "" {
		if snap, err = sess.Select(req.Path); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleSelectFile(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromPath(w, r)
	if !ok {
		return
	}
	var req struct {
		Path string `json:"path"`
	}
	if !decodeBody(w, r, &req, bodySlack, false) {
		return
	}
	snap, err := sess.Select(req.Path)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSetLevel(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromPath(w, r)
	if !ok {
		return
	}
	var req struct {
		Level int `json:"level"`
	}
	if !decodeBody(w, r, &req, bodySlack, false) {
		return
	}
	snap, err := sess.SetLevel(req.Level)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type clientMessage struct {
	Type  string `json:"type"`
	Level int    `json:"level,omitempty"`
	Path  string `json:"path,omitempty"`
}

type serverMessage struct {
	Type     string            `json:"type"`
	Snapshot *session.Snapshot `json:"snapshot,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// handleSessionSocket pushes every session snapshot to the client and
// applies level and select messages it sends. Only this goroutine writes.
func (s *Server) handleSessionSocket(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromPath(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "session_id", sess.ID, "error", err)
		return
	}
	defer conn.Close()

	log := s.log.With("session_id", sess.ID)
	updates, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	failures := make(chan string, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg clientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn("websocket read failed", "error", err)
				}
				return
			}
			var err error
			switch msg.Type {
			case "level":
				_, err = sess.SetLevel(msg.Level)
			case "select":
				_, err = sess.Select(msg.Path)
			default:
				err = fmt.Errorf("unknown message type %q", msg.Type)
			}
			if err != nil {
				select {
				case failures <- err.Error():
				default:
				}
			}
		}
	}()

	send := func(m serverMessage) bool {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(m); err != nil {
			log.Warn("websocket write failed", "error", err)
			return false
		}
		return true
	}

	first := sess.Snapshot()
	if !send(serverMessage{Type: "snapshot", Snapshot: &first}) {
		return
	}
	log.Info("websocket attached")
	for {
		select {
		case <-done:
			return
		case snap, ok := <-updates:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session expired"))
				return
			}
			if !send(serverMessage{Type: "snapshot", Snapshot: &snap}) {
				return
			}
		case msg := <-failures:
			if !send(serverMessage{Type: "error", Error: msg}) {
				return
			}
		}
	}
}
