package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sync"

	"medichat-client/internal/models"
	"medichat-client/pkg/logger"

	"github.com/google/uuid"
)

// Store errors
var (
	ErrSessionNotFound = errors.New("session: not found")
	ErrEmptyUserText   = errors.New("session: user message must carry text")
)

// persistedState is the single JSON document written under the history key.
// Full message bodies are persisted alongside the summaries, so the whole
// conversation survives a restart, in persisted order.
type persistedState struct {
	Sessions []models.Session `json:"sessions"`
}

// Store owns the ordered message logs and the durable multi-session history.
// All mutations are serialized under one mutex and written through to the KV
// on completion; a read-modify-write is one logical step. Concurrent writers
// from other processes can still lose updates, which is an accepted
// limitation of the single-record layout.
type Store struct {
	mu       sync.Mutex
	kv       KV
	key      string
	titleLen int
	log      *logger.Logger

	sessions map[string]*models.Session
	order    []string
}

// NewStore creates a session store persisted under the namespace's fixed
// history key and hydrates it from the KV.
func NewStore(kv KV, namespace string, titleLen int, log *logger.Logger) (*Store, error) {
	s := &Store{
		kv:       kv,
		key:      namespace + ":sessions",
		titleLen: titleLen,
		log:      log,
		sessions: make(map[string]*models.Session),
	}

	if err := s.hydrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// hydrate loads the persisted history, starting empty on first run
func (s *Store) hydrate() error {
	raw, err := s.kv.Get(context.Background(), s.key)
	if errors.Is(err, ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session history: %w", err)
	}

	var state persistedState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		// A corrupt record is not fatal: log it and start over rather than
		// wedging the whole client.
		s.log.Error("discarding unreadable session history", "error", err.Error())
		return nil
	}

	for i := range state.Sessions {
		sess := state.Sessions[i]
		s.sessions[sess.ID] = &sess
		s.order = append(s.order, sess.ID)
	}
	return nil
}

// Create returns a new empty session. It joins durable history only once it
// gains its first message.
func (s *Store) Create() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := &models.Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
	}
	s.sessions[sess.ID] = sess
	s.order = append(s.order, sess.ID)
	return copySession(sess)
}

// Append adds a message to a session in strict chronological order and
// writes the history through to the KV. The stored message, with its
// assigned ID and timestamp, is returned.
func (s *Store) Append(ctx context.Context, sessionID string, msg models.Message) (models.Message, error) {
	if msg.Kind == models.KindUser && msg.RawText == "" {
		return models.Message{}, ErrEmptyUserText
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return models.Message{}, ErrSessionNotFound
	}

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	// The title is derived from the first user message and fixed thereafter
	if sess.Title == "" && msg.Kind == models.KindUser {
		sess.Title = models.DeriveTitle(msg.RawText, s.titleLen)
	}

	sess.Messages = append(sess.Messages, msg)
	if err := s.persistLocked(ctx); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// Get returns a copy of one session
func (s *Store) Get(sessionID string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return copySession(sess), nil
}

// Delete removes a session from durable history
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}

	delete(s.sessions, sessionID)
	for i, id := range s.order {
		if id == sessionID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return s.persistLocked(ctx)
}

// History returns summaries of every session with at least one message,
// in persisted order.
func (s *Store) History() []models.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summaries := make([]models.SessionSummary, 0, len(s.order))
	for _, id := range s.order {
		sess, ok := s.sessions[id]
		if !ok || len(sess.Messages) == 0 {
			continue
		}
		summaries = append(summaries, sess.Summary())
	}
	return summaries
}

// Ping reports durable store connectivity for health checks
func (s *Store) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

// persistLocked writes the durable history through on every mutation,
// skipping sessions that have not yet earned a place in history.
// Caller must hold s.mu.
func (s *Store) persistLocked(ctx context.Context) error {
	state := persistedState{Sessions: make([]models.Session, 0, len(s.order))}
	for _, id := range s.order {
		sess, ok := s.sessions[id]
		if !ok || len(sess.Messages) == 0 {
			continue
		}
		state.Sessions = append(state.Sessions, *copySession(sess))
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, s.key, string(raw)); err != nil {
		return fmt.Errorf("failed to persist session history: %w", err)
	}
	return nil
}

// copySession returns a defensive copy with its own message slice
func copySession(sess *models.Session) *models.Session {
	cp := *sess
	cp.Messages = make([]models.Message, len(sess.Messages))
	copy(cp.Messages, sess.Messages)
	return &cp
}
