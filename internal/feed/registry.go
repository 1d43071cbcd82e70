package feed

import (
	"encoding/json"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("feed session not found")

// Backend builds the collaborator a user's feed talks to.
type Backend interface {
	Lister
	Liker
}

type BackendFactory func(userID, token string) Backend

// Publisher receives every encoded state change of a session together
// with the id of the user who owns it.
type Publisher interface {
	Broadcast(feedID, ownerID string, payload []byte)
	Forget(feedID string)
}

type Session struct {
	ID         string
	UserID     string
	CreatedAt  time.Time
	Controller *Controller
}

type SessionInfo struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	Items     int       `json:"items"`
	Page      int       `json:"page"`
	Tab       Tab       `json:"tab"`
}

// Registry owns the lifetime of every open feed. Closing a session is the
// equivalent of tearing its screen down.
type Registry struct {
	backend  BackendFactory
	pub      Publisher
	pageSize int

	mu       sync.RWMutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

func NewRegistry(backend BackendFactory, pub Publisher, pageSize int) *Registry {
	return &Registry{
		backend:  backend,
		pub:      pub,
		pageSize: pageSize,
		sessions: map[string]*Session{},
	}
}

func (r *Registry) Open(userID, token string) *Session {
	be := r.backend(userID, token)
	s := &Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		CreatedAt:  time.Now(),
		Controller: NewController(be, be, WithPageSize(r.pageSize)),
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	if r.pub != nil {
		updates, _ := s.Controller.Subscribe()
		r.wg.Add(1)
		go r.forward(s.ID, userID, updates)
	}
	return s
}

func (r *Registry) forward(id, ownerID string, updates <-chan State) {
	defer r.wg.Done()
	for state := range updates {
		payload, err := json.Marshal(state)
		if err != nil {
			log.Printf("feed %s: encode state: %v", id, err)
			continue
		}
		r.pub.Broadcast(id, ownerID, payload)
	}
	r.pub.Forget(id)
}

// Get returns the session when it exists and belongs to userID.
func (r *Registry) Get(id, userID string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok || s.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (r *Registry) Close(id, userID string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok || s.UserID != userID {
		r.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	r.mu.Unlock()

	s.Controller.Close()
	return nil
}

// CloseAll tears down every session and waits for state forwarding to drain.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = map[string]*Session{}
	r.mu.Unlock()

	for _, s := range sessions {
		s.Controller.Close()
	}
	r.wg.Wait()
}

func (r *Registry) Sessions() []SessionInfo {
	r.mu.RLock()
	infos := make([]SessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		snap := s.Controller.Snapshot()
		infos = append(infos, SessionInfo{
			ID:        s.ID,
			UserID:    s.UserID,
			CreatedAt: s.CreatedAt,
			Items:     len(snap.Restaurants),
			Page:      snap.Page,
			Tab:       snap.Tab,
		})
	}
	r.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}
