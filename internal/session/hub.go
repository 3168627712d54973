package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/codetransmute/internal/blocks"
	"github.com/dgallion1/codetransmute/internal/codetree"
	"github.com/dgallion1/codetransmute/internal/metrics"
	"github.com/dgallion1/codetransmute/internal/workspace"
)

// Hub is a thread-safe session registry with TTL eviction.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration

	ws       *workspace.Workspace
	cache    *workspace.TreeCache
	catalog  *blocks.Catalog
	renderer *Renderer
	log      *slog.Logger
}

func NewHub(ws *workspace.Workspace, cache *workspace.TreeCache, catalog *blocks.Catalog, renderer *Renderer, ttl time.Duration, log *slog.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		ws:       ws,
		cache:    cache,
		catalog:  catalog,
		renderer: renderer,
		log:      log,
	}
}

// Create registers a new session with no file selected.
func (h *Hub) Create(level int, locale string) (*Session, error) {
	lvl, err := codetree.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	s := newSession(h, lvl, locale)

	h.mu.Lock()
	h.sessions[s.ID] = s
	n := len(h.sessions)
	h.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	h.log.Info("session created", "session_id", s.ID, "level", int(lvl), "locale", locale)
	return s, nil
}

func (h *Hub) Get(id string) (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Len is the number of live sessions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Refresh re-projects every session viewing path. It returns the number of
// sessions touched.
func (h *Hub) Refresh(path string) int {
	h.cache.Invalidate(path)

	h.mu.Lock()
	var viewing []*Session
	for _, s := range h.sessions {
		s.mu.Lock()
		if s.Path == path {
			viewing = append(viewing, s)
		}
		s.mu.Unlock()
	}
	h.mu.Unlock()

	for _, s := range viewing {
		if _, err := s.Refresh(); err != nil {
			h.log.Warn("session refresh failed", "session_id", s.ID, "path", path, "error", err)
		}
	}
	return len(viewing)
}

// Cleanup removes sessions idle longer than the TTL.
func (h *Hub) Cleanup() {
	h.mu.Lock()
	now := time.Now()
	var expired []*Session
	for id, s := range h.sessions {
		if now.Sub(s.lastUpdate()) > h.ttl {
			delete(h.sessions, id)
			expired = append(expired, s)
		}
	}
	n := len(h.sessions)
	h.mu.Unlock()

	for _, s := range expired {
		s.closeSubscribers()
		h.log.Info("session expired", "session_id", s.ID)
	}
	metrics.ActiveSessions.Set(float64(n))
}

// Run evicts idle sessions until ctx is done.
func (h *Hub) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Cleanup()
		}
	}
}

func (h *Hub) levelName(locale string, level codetree.Level) string {
	if h.catalog == nil {
		return level.String()
	}
	return h.catalog.LevelName(locale, level)
}
