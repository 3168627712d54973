// Package session keeps the live state of a viewer: the selected file, the
// abstraction level and the projected markup, pushed to subscribers on
// every change.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/codetransmute/internal/codetree"
	"github.com/dgallion1/codetransmute/internal/extractor"
)

var (
	ErrNoFile   = errors.New("no file selected")
	ErrNotFound = errors.New("session not found")
)

// Session is one viewer's selection. Level changes re-project the trees
// already extracted for the current file.
type Session struct {
	mu  sync.Mutex
	hub *Hub

	ID     string
	Path   string
	Level  codetree.Level
	Locale string

	trees     []extractor.Tree
	views     []View
	lastErr   string
	createdAt time.Time
	updatedAt time.Time

	subs    map[int]chan Snapshot
	nextSub int
}

// Snapshot is a read-only, JSON-safe copy of session state.
type Snapshot struct {
	ID        string    `json:"session_id"`
	Path      string    `json:"path"`
	Level     int       `json:"level"`
	LevelName string    `json:"level_name"`
	Locale    string    `json:"locale"`
	Views     []View    `json:"views"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newSession(h *Hub, level codetree.Level, locale string) *Session {
	now := time.Now()
	return &Session{
		hub:       h,
		ID:        uuid.NewString(),
		Level:     level,
		Locale:    locale,
		createdAt: now,
		updatedAt: now,
		subs:      make(map[int]chan Snapshot),
	}
}

// Select loads a file, extracts it through the tree cache and projects it
// at the current level.
func (s *Session) Select(path string) (Snapshot, error) {
	if path == "" {
		return Snapshot{}, ErrNoFile
	}
	data, err := s.hub.ws.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	trees := s.hub.cache.Trees(path, data)

	s.mu.Lock()
	views, err := s.hub.renderer.Render(trees, s.Level)
	if err != nil {
		s.mu.Unlock()
		return Snapshot{}, err
	}
	s.Path = path
	s.trees = trees
	s.views = views
	s.lastErr = ""
	s.updatedAt = time.Now()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.hub.log.Info("file selected", "session_id", s.ID, "path", path, "sources", len(trees))
	s.publish(snap)
	return snap, nil
}

// SetLevel changes the abstraction level and re-projects immediately.
// Without a selected file only the level is stored.
func (s *Session) SetLevel(n int) (Snapshot, error) {
	level, err := codetree.ParseLevel(n)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	if s.Path != "" {
		views, err := s.hub.renderer.Render(s.trees, level)
		if err != nil {
			s.mu.Unlock()
			return Snapshot{}, err
		}
		s.views = views
	}
	s.Level = level
	s.updatedAt = time.Now()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap)
	return snap, nil
}

// Refresh re-reads the selected file after it changed on disk. A file that
// disappeared leaves the session with no views and an error message.
func (s *Session) Refresh() (Snapshot, error) {
	s.mu.Lock()
	path := s.Path
	s.mu.Unlock()
	if path == "" {
		return Snapshot{}, ErrNoFile
	}

	snap, err := s.Select(path)
	if err == nil {
		return snap, nil
	}

	s.mu.Lock()
	s.trees = nil
	s.views = nil
	s.lastErr = err.Error()
	s.updatedAt = time.Now()
	snap = s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap)
	return snap, err
}

// Snapshot returns a JSON-safe copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	views := make([]View, len(s.views))
	copy(views, s.views)
	return Snapshot{
		ID:        s.ID,
		Path:      s.Path,
		Level:     int(s.Level),
		LevelName: s.hub.levelName(s.Locale, s.Level),
		Locale:    s.Locale,
		Views:     views,
		Error:     s.lastErr,
		UpdatedAt: s.updatedAt,
	}
}

// Subscribe returns a channel receiving every new snapshot and a function
// that ends the subscription. Slow subscribers miss intermediate snapshots.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Snapshot, 8)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

func (s *Session) publish(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *Session) lastUpdate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

func (s *Session) closeSubscribers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
