package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"medichat-client/internal/backend"
	"medichat-client/internal/models"
	"medichat-client/internal/session"
	"medichat-client/pkg/cache"
	apperrors "medichat-client/pkg/errors"
	"medichat-client/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu         sync.Mutex
	payload    map[string]any
	err        error
	block      chan struct{}
	queries    []string
	imageFiles []string
	detail     map[string]any
	detailErr  error
	detailHits int
}

func (f *fakeBackend) Query(ctx context.Context, query string) (map[string]any, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return f.payload, f.err
}

func (f *fakeBackend) QueryImage(ctx context.Context, blob []byte, filename string) (map[string]any, error) {
	f.mu.Lock()
	f.imageFiles = append(f.imageFiles, filename)
	f.mu.Unlock()
	return f.payload, f.err
}

func (f *fakeBackend) GetMedicine(ctx context.Context, name string) (map[string]any, error) {
	f.mu.Lock()
	f.detailHits++
	f.mu.Unlock()
	return f.detail, f.detailErr
}

func (f *fakeBackend) AgentsStatus(ctx context.Context) (map[string]any, error) {
	return map[string]any{"status": "operational"}, nil
}

type capturingPublisher struct {
	mu       sync.Mutex
	messages []models.Message
}

func (p *capturingPublisher) Publish(sessionID string, msg models.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
}

func testLogger() *logger.Logger {
	cfg := logger.DefaultConfig()
	cfg.Level = "error"
	return logger.New(cfg)
}

func newTestService(t *testing.T, be Backend) *ChatService {
	t.Helper()
	store, err := session.NewStore(session.NewMemoryKV(), "test", 40, testLogger())
	require.NoError(t, err)
	return NewChatService(store, be, cache.NewCacheWith(time.Minute, 0, 100), testLogger())
}

func panadolPayload() map[string]any {
	return map[string]any{
		"medicine_name": "Panadol",
		"generic_name":  "Paracetamol",
		"manufacturer":  "GSK",
		"description":   "Panadol relieves mild to moderate pain and fever.",
		"uses":          "N/A",
		"side_effects":  []any{"Information not available"},
		"disclaimer":    "Consult a healthcare professional.",
	}
}

func TestSubmitTextTurn(t *testing.T) {
	be := &fakeBackend{payload: panadolPayload()}
	svc := newTestService(t, be)
	sess := svc.NewSession()

	reply, err := svc.Submit(context.Background(), sess.ID, models.Input{Type: models.InputText, Value: "Panadol"})
	require.NoError(t, err)

	assert.Equal(t, models.KindAssistant, reply.Kind)
	assert.Equal(t, "Panadol relieves mild to moderate pain and fever.", reply.RawText)
	require.NotNil(t, reply.Structured)
	assert.Equal(t, "Panadol", reply.Structured.Name)

	// Placeholder fields carry no renderable content
	assert.Empty(t, reply.Structured.DisplayUses())
	assert.Nil(t, reply.Structured.DisplaySideEffects())

	got, err := svc.Session(sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, models.KindUser, got.Messages[0].Kind)
	assert.Equal(t, "Panadol", got.Messages[0].RawText)
	assert.Equal(t, models.KindAssistant, got.Messages[1].Kind)
}

func TestSubmitUnknownMedicine(t *testing.T) {
	be := &fakeBackend{err: &backend.QueryError{Class: backend.FailureNotFound, Message: "No match found"}}
	svc := newTestService(t, be)
	sess := svc.NewSession()

	reply, err := svc.Submit(context.Background(), sess.ID, models.Input{Type: models.InputText, Value: "zzznotreal"})
	require.NoError(t, err)

	assert.Equal(t, models.KindAssistantError, reply.Kind)
	assert.Equal(t, "No match found", reply.RawText)
	assert.Nil(t, reply.Structured)

	// A failed round trip is still a resolved turn: both messages land in history
	got, err := svc.Session(sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.True(t, got.Messages[1].IsError())
}

func TestSubmitUnreadablePayload(t *testing.T) {
	be := &fakeBackend{payload: map[string]any{"status": "ok"}}
	svc := newTestService(t, be)
	sess := svc.NewSession()

	reply, err := svc.Submit(context.Background(), sess.ID, models.Input{Type: models.InputText, Value: "Panadol"})
	require.NoError(t, err)
	assert.Equal(t, models.KindAssistantError, reply.Kind)
	assert.Equal(t, unreadableAnswer, reply.RawText)
}

func TestSubmitImageTurn(t *testing.T) {
	be := &fakeBackend{payload: panadolPayload()}
	svc := newTestService(t, be)
	sess := svc.NewSession()

	input := models.Input{Type: models.InputImage, Blob: []byte("data"), Filename: "box.png"}
	reply, err := svc.Submit(context.Background(), sess.ID, input)
	require.NoError(t, err)
	assert.Equal(t, models.KindAssistant, reply.Kind)
	assert.Equal(t, []string{"box.png"}, be.imageFiles)

	got, err := svc.Session(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Image scan: box.png", got.Messages[0].RawText)
}

func TestSubmitUnknownSession(t *testing.T) {
	svc := newTestService(t, &fakeBackend{payload: panadolPayload()})

	_, err := svc.Submit(context.Background(), "missing", models.Input{Type: models.InputText, Value: "Panadol"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSessionNotFound, apperrors.FromError(err).Code)
}

func TestSubmitRejectsConcurrentTurn(t *testing.T) {
	be := &fakeBackend{payload: panadolPayload(), block: make(chan struct{})}
	svc := newTestService(t, be)
	sess := svc.NewSession()

	first := make(chan error, 1)
	go func() {
		_, err := svc.Submit(context.Background(), sess.ID, models.Input{Type: models.InputText, Value: "Panadol"})
		first <- err
	}()

	// Wait for the first turn to reach the backend before submitting again
	require.Eventually(t, func() bool {
		be.mu.Lock()
		defer be.mu.Unlock()
		return len(be.queries) == 1
	}, time.Second, 5*time.Millisecond)

	_, err := svc.Submit(context.Background(), sess.ID, models.Input{Type: models.InputText, Value: "Brufen"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeTurnInFlight, apperrors.FromError(err).Code)

	close(be.block)
	require.NoError(t, <-first)

	// The rejected submission left no trace in the log
	got, err := svc.Session(sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "Panadol", got.Messages[0].RawText)
}

func TestSubmitPublishesBothTurns(t *testing.T) {
	be := &fakeBackend{payload: panadolPayload()}
	svc := newTestService(t, be)
	pub := &capturingPublisher{}
	svc.SetPublisher(pub)
	sess := svc.NewSession()

	_, err := svc.Submit(context.Background(), sess.ID, models.Input{Type: models.InputText, Value: "Panadol"})
	require.NoError(t, err)

	require.Len(t, pub.messages, 2)
	assert.Equal(t, models.KindUser, pub.messages[0].Kind)
	assert.Equal(t, models.KindAssistant, pub.messages[1].Kind)
}

func TestDeleteActiveSessionActivatesReplacement(t *testing.T) {
	be := &fakeBackend{payload: panadolPayload()}
	svc := newTestService(t, be)

	older := svc.NewSession()
	_, err := svc.Submit(context.Background(), older.ID, models.Input{Type: models.InputText, Value: "Brufen"})
	require.NoError(t, err)

	active := svc.NewSession()
	_, err = svc.Submit(context.Background(), active.ID, models.Input{Type: models.InputText, Value: "Panadol"})
	require.NoError(t, err)

	replacement, err := svc.DeleteSession(context.Background(), active.ID)
	require.NoError(t, err)
	assert.Equal(t, older.ID, replacement.ID)

	history := svc.History()
	require.Len(t, history, 1)
	assert.Equal(t, older.ID, history[0].ID)
}

func TestDeleteLastSessionCreatesFreshOne(t *testing.T) {
	be := &fakeBackend{payload: panadolPayload()}
	svc := newTestService(t, be)

	only := svc.NewSession()
	_, err := svc.Submit(context.Background(), only.ID, models.Input{Type: models.InputText, Value: "Panadol"})
	require.NoError(t, err)

	replacement, err := svc.DeleteSession(context.Background(), only.ID)
	require.NoError(t, err)
	assert.NotEqual(t, only.ID, replacement.ID)
	assert.Empty(t, replacement.Messages)
	assert.Empty(t, svc.History())
}

func TestDeleteUnknownSession(t *testing.T) {
	svc := newTestService(t, &fakeBackend{})
	_, err := svc.DeleteSession(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSessionNotFound, apperrors.FromError(err).Code)
}

func TestMedicineDetailCaches(t *testing.T) {
	be := &fakeBackend{detail: map[string]any{"medicine_name": "Panadol"}}
	svc := newTestService(t, be)

	for i := 0; i < 3; i++ {
		record, err := svc.MedicineDetail(context.Background(), "Panadol")
		require.NoError(t, err)
		assert.Equal(t, "Panadol", record["medicine_name"])
	}
	assert.Equal(t, 1, be.detailHits)
}

func TestMedicineDetailNotFound(t *testing.T) {
	be := &fakeBackend{detailErr: &backend.QueryError{Class: backend.FailureNotFound, Message: "No match found"}}
	svc := newTestService(t, be)

	_, err := svc.MedicineDetail(context.Background(), "zzznotreal")
	require.Error(t, err)
	appErr := apperrors.FromError(err)
	assert.Equal(t, apperrors.CodeMedicineNotFound, appErr.Code)
	assert.Equal(t, "No match found", appErr.Message)
}
