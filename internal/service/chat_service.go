package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"medichat-client/internal/backend"
	"medichat-client/internal/models"
	"medichat-client/internal/normalize"
	"medichat-client/internal/session"
	"medichat-client/pkg/cache"
	apperrors "medichat-client/pkg/errors"
	"medichat-client/pkg/logger"
)

// Backend is the slice of the medicine backend the chat pipeline consumes
type Backend interface {
	Query(ctx context.Context, query string) (map[string]any, error)
	QueryImage(ctx context.Context, blob []byte, filename string) (map[string]any, error)
	GetMedicine(ctx context.Context, name string) (map[string]any, error)
	AgentsStatus(ctx context.Context) (map[string]any, error)
}

// Publisher receives every appended message, e.g. to fan out over WebSocket
type Publisher interface {
	Publish(sessionID string, msg models.Message)
}

// Recorder observes query outcomes for metrics
type Recorder interface {
	RecordQuery(ctx context.Context, mode string, outcome string, latency time.Duration)
}

const unreadableAnswer = "The medicine service returned an answer I couldn't read. Please try again."

// ChatService orchestrates the query pipeline: it owns the per-session
// in-flight guard, appends the user turn, dispatches to the backend,
// normalizes the answer and appends the resulting assistant turn. A backend
// response always lands in history, even if the user has navigated away from
// the session by the time it arrives.
type ChatService struct {
	store   *session.Store
	backend Backend
	cache   *cache.Cache
	pub     Publisher
	rec     Recorder
	log     *logger.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewChatService creates the chat pipeline service. Publisher and Recorder
// may be nil.
func NewChatService(store *session.Store, be Backend, c *cache.Cache, log *logger.Logger) *ChatService {
	return &ChatService{
		store:    store,
		backend:  be,
		cache:    c,
		log:      log,
		inFlight: make(map[string]bool),
	}
}

// SetPublisher wires the turn-event publisher
func (s *ChatService) SetPublisher(pub Publisher) {
	s.pub = pub
}

// SetRecorder wires the metrics recorder
func (s *ChatService) SetRecorder(rec Recorder) {
	s.rec = rec
}

// NewSession starts a new empty conversation
func (s *ChatService) NewSession() *models.Session {
	return s.store.Create()
}

// Session returns one conversation with its full message log
func (s *ChatService) Session(sessionID string) (*models.Session, error) {
	sess, err := s.store.Get(sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return nil, apperrors.NewSessionNotFoundError(sessionID)
	}
	return sess, err
}

// History lists the durable session summaries in persisted order
func (s *ChatService) History() []models.SessionSummary {
	return s.store.History()
}

// DeleteSession removes a session from durable history and returns the
// replacement to activate: the most recent remaining session, or a fresh
// empty one when none is left.
func (s *ChatService) DeleteSession(ctx context.Context, sessionID string) (*models.Session, error) {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, apperrors.NewSessionNotFoundError(sessionID)
		}
		return nil, err
	}

	history := s.store.History()
	if len(history) > 0 {
		return s.store.Get(history[len(history)-1].ID)
	}
	return s.store.Create(), nil
}

// Submit runs one conversational turn: user message in, assistant (or
// assistant_error) message out. Submissions are serialized per session; a
// second submission while one is loading is rejected without side effects.
// The returned message is the assistant turn; a failed backend round trip is
// still a resolved turn, not an error to the caller.
func (s *ChatService) Submit(ctx context.Context, sessionID string, input models.Input) (*models.Message, error) {
	if !s.beginTurn(sessionID) {
		return nil, apperrors.NewTurnInFlightError()
	}
	defer s.endTurn(sessionID)

	userText := input.Value
	mode := "text"
	if input.IsImage() {
		userText = fmt.Sprintf("Image scan: %s", input.Filename)
		mode = "image"
	}

	userMsg, err := s.store.Append(ctx, sessionID, models.Message{Kind: models.KindUser, RawText: userText})
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, apperrors.NewSessionNotFoundError(sessionID)
		}
		return nil, err
	}
	s.publish(sessionID, userMsg)

	start := time.Now()
	var (
		payload  map[string]any
		queryErr error
	)
	if input.IsImage() {
		payload, queryErr = s.backend.QueryImage(ctx, input.Blob, input.Filename)
	} else {
		payload, queryErr = s.backend.Query(ctx, input.Value)
	}
	latency := time.Since(start)

	reply := s.resolveTurn(payload, queryErr)
	s.record(ctx, mode, reply, latency)

	stored, err := s.store.Append(ctx, sessionID, reply)
	if err != nil {
		return nil, err
	}
	s.publish(sessionID, stored)
	return &stored, nil
}

// resolveTurn renders a backend outcome as the assistant message for the turn
func (s *ChatService) resolveTurn(payload map[string]any, err error) models.Message {
	if err != nil {
		message := unreadableAnswer
		var qe *backend.QueryError
		if errors.As(err, &qe) {
			message = qe.Message
		}
		s.log.Warn("query turn failed", "error", err.Error())
		return models.Message{Kind: models.KindAssistantError, RawText: message}
	}

	info := normalize.Normalize(payload)
	if !info.HasName() {
		return models.Message{Kind: models.KindAssistantError, RawText: unreadableAnswer}
	}

	headline := info.Description
	if headline == "" {
		headline = fmt.Sprintf("Here is what I found about %s.", info.Name)
	}
	return models.Message{
		Kind:       models.KindAssistant,
		RawText:    headline,
		Structured: &info,
	}
}

// MedicineDetail fetches one medicine's raw database record with a
// read-through cache in front of the backend.
func (s *ChatService) MedicineDetail(ctx context.Context, name string) (map[string]any, error) {
	key := "medicine:" + strings.ToLower(name)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			if record, ok := cached.(map[string]any); ok {
				return record, nil
			}
		}
	}

	record, err := s.backend.GetMedicine(ctx, name)
	if err != nil {
		var qe *backend.QueryError
		if errors.As(err, &qe) && qe.Class == backend.FailureNotFound {
			return nil, apperrors.NewNotFoundError(apperrors.CodeMedicineNotFound, qe.Message)
		}
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(key, record)
	}
	return record, nil
}

// AgentsStatus passes the backend agent system status through
func (s *ChatService) AgentsStatus(ctx context.Context) (map[string]any, error) {
	return s.backend.AgentsStatus(ctx)
}

// beginTurn marks a session as loading; false when a turn is already in flight
func (s *ChatService) beginTurn(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[sessionID] {
		return false
	}
	s.inFlight[sessionID] = true
	return true
}

func (s *ChatService) endTurn(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, sessionID)
}

func (s *ChatService) publish(sessionID string, msg models.Message) {
	if s.pub != nil {
		s.pub.Publish(sessionID, msg)
	}
}

func (s *ChatService) record(ctx context.Context, mode string, reply models.Message, latency time.Duration) {
	if s.rec == nil {
		return
	}
	outcome := "success"
	if reply.IsError() {
		outcome = "error"
	}
	s.rec.RecordQuery(ctx, mode, outcome, latency)
}
