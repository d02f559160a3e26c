package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"medichat-client/internal/backend"
	"medichat-client/internal/service"
	"medichat-client/internal/session"
	"medichat-client/internal/suggest"
	"medichat-client/pkg/cache"
	apperrors "medichat-client/pkg/errors"
	"medichat-client/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	payload   map[string]any
	err       error
	medicines []string
	listErr   error
	statusErr error
}

func (s *stubBackend) Query(ctx context.Context, query string) (map[string]any, error) {
	return s.payload, s.err
}

func (s *stubBackend) QueryImage(ctx context.Context, blob []byte, filename string) (map[string]any, error) {
	return s.payload, s.err
}

func (s *stubBackend) GetMedicine(ctx context.Context, name string) (map[string]any, error) {
	return s.payload, s.err
}

func (s *stubBackend) AgentsStatus(ctx context.Context) (map[string]any, error) {
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	return map[string]any{"status": "operational", "agents": map[string]any{"database": "ready"}}, nil
}

func (s *stubBackend) ListMedicines(ctx context.Context) ([]string, error) {
	return s.medicines, s.listErr
}

func testLogger() *logger.Logger {
	cfg := logger.DefaultConfig()
	cfg.Level = "error"
	return logger.New(cfg)
}

func newTestRouter(t *testing.T, be *stubBackend) (*gin.Engine, *service.ChatService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := testLogger()
	store, err := session.NewStore(session.NewMemoryKV(), "test", 40, log)
	require.NoError(t, err)
	svc := service.NewChatService(store, be, cache.NewCacheWith(time.Minute, 0, 100), log)

	engine := gin.New()
	engine.Use(apperrors.ErrorHandler())

	group := engine.Group("/api/v1")
	NewChatController(svc).RegisterRoutes(group)
	NewSessionController(svc).RegisterRoutes(group)
	NewDirectoryController(svc, suggest.NewEngine(be, 5, log)).RegisterRoutes(group)

	return engine, svc
}

func perform(engine *gin.Engine, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, w)
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "response carries no error envelope: %s", w.Body.String())
	code, _ := errObj["code"].(string)
	return code
}

func TestSubmitQueryEndpoint(t *testing.T) {
	be := &stubBackend{payload: map[string]any{
		"medicine_name": "Panadol",
		"description":   "Relieves pain and fever.",
	}}
	engine, svc := newTestRouter(t, be)
	sess := svc.NewSession()

	payload := bytes.NewBufferString(`{"query": "Panadol"}`)
	w := perform(engine, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/query", payload, "application/json")

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, sess.ID, body["session_id"])

	msg, ok := body["message"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "assistant", msg["kind"])
	assert.Equal(t, "Relieves pain and fever.", msg["raw_text"])
}

func TestSubmitQueryRejectsEmpty(t *testing.T) {
	engine, svc := newTestRouter(t, &stubBackend{})
	sess := svc.NewSession()

	payload := bytes.NewBufferString(`{"query": "   "}`)
	w := perform(engine, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/query", payload, "application/json")

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CodeInputRejected, errorCode(t, w))
}

func TestSubmitQueryBadBody(t *testing.T) {
	engine, svc := newTestRouter(t, &stubBackend{})
	sess := svc.NewSession()

	payload := bytes.NewBufferString(`not json`)
	w := perform(engine, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/query", payload, "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitQueryUnknownSession(t *testing.T) {
	engine, _ := newTestRouter(t, &stubBackend{payload: map[string]any{"medicine_name": "Panadol"}})

	payload := bytes.NewBufferString(`{"query": "Panadol"}`)
	w := perform(engine, http.MethodPost, "/api/v1/sessions/missing/query", payload, "application/json")

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.CodeSessionNotFound, errorCode(t, w))
}

func TestSubmitImageEndpoint(t *testing.T) {
	be := &stubBackend{payload: map[string]any{
		"medicine_name": "Panadol",
		"description":   "Relieves pain and fever.",
	}}
	engine, svc := newTestRouter(t, be)
	sess := svc.NewSession()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "box.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\nfakedata"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := perform(engine, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/image", &buf, mw.FormDataContentType())

	require.Equal(t, http.StatusOK, w.Code)

	got, err := svc.Session(sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "Image scan: box.png", got.Messages[0].RawText)
}

func TestSubmitImageRejectsBadType(t *testing.T) {
	engine, svc := newTestRouter(t, &stubBackend{})
	sess := svc.NewSession()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "report.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := perform(engine, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/image", &buf, mw.FormDataContentType())

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CodeInputRejected, errorCode(t, w))
	assert.Contains(t, w.Body.String(), "Invalid file type")
}

func TestSubmitImageMissingFile(t *testing.T) {
	engine, svc := newTestRouter(t, &stubBackend{})
	sess := svc.NewSession()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.Close())

	w := perform(engine, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/image", &buf, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionLifecycleEndpoints(t *testing.T) {
	be := &stubBackend{payload: map[string]any{"medicine_name": "Panadol", "description": "Relieves pain."}}
	engine, _ := newTestRouter(t, be)

	// Create
	w := perform(engine, http.MethodPost, "/api/v1/sessions", nil, "")
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeBody(t, w)["session"].(map[string]any)
	sessionID := created["id"].(string)
	require.NotEmpty(t, sessionID)

	// Empty sessions stay out of history
	w = perform(engine, http.MethodGet, "/api/v1/sessions", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody(t, w)["sessions"])

	// First turn puts the session into history
	payload := bytes.NewBufferString(`{"query": "Panadol"}`)
	w = perform(engine, http.MethodPost, "/api/v1/sessions/"+sessionID+"/query", payload, "application/json")
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(engine, http.MethodGet, "/api/v1/sessions", nil, "")
	sessions := decodeBody(t, w)["sessions"].([]any)
	require.Len(t, sessions, 1)
	summary := sessions[0].(map[string]any)
	assert.Equal(t, sessionID, summary["id"])
	assert.Equal(t, "Panadol", summary["title"])

	// Fetch the full log
	w = perform(engine, http.MethodGet, "/api/v1/sessions/"+sessionID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	full := decodeBody(t, w)["session"].(map[string]any)
	assert.Len(t, full["messages"], 2)

	// Delete responds with the replacement session
	w = perform(engine, http.MethodDelete, "/api/v1/sessions/"+sessionID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, sessionID, body["deleted"])
	active := body["active"].(map[string]any)
	assert.NotEqual(t, sessionID, active["id"])
	assert.Empty(t, body["sessions"])
}

func TestGetSessionNotFound(t *testing.T) {
	engine, _ := newTestRouter(t, &stubBackend{})
	w := perform(engine, http.MethodGet, "/api/v1/sessions/missing", nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.CodeSessionNotFound, errorCode(t, w))
}

func TestSuggestionsEndpoint(t *testing.T) {
	be := &stubBackend{medicines: []string{"Panadol", "Panadol Extra", "Brufen"}}
	engine, _ := newTestRouter(t, be)

	w := perform(engine, http.MethodGet, "/api/v1/suggestions?q=pan", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, []any{"Panadol", "Panadol Extra"}, body["suggestions"])

	// Empty query yields an empty list, not an error
	w = perform(engine, http.MethodGet, "/api/v1/suggestions", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	suggestions, ok := decodeBody(t, w)["suggestions"].([]any)
	require.True(t, ok)
	assert.Empty(t, suggestions)
}

func TestGetMedicineEndpoint(t *testing.T) {
	be := &stubBackend{payload: map[string]any{"medicine_name": "Panadol", "manufacturer": "GSK"}}
	engine, _ := newTestRouter(t, be)

	w := perform(engine, http.MethodGet, "/api/v1/medicines/Panadol", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Panadol", body["medicine_name"])
	assert.Equal(t, "GSK", body["manufacturer"])
}

func TestGetMedicineNotFound(t *testing.T) {
	be := &stubBackend{err: &backend.QueryError{Class: backend.FailureNotFound, Message: "No match found"}}
	engine, _ := newTestRouter(t, be)

	w := perform(engine, http.MethodGet, "/api/v1/medicines/zzznotreal", nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.CodeMedicineNotFound, errorCode(t, w))
}

func TestAgentsStatusEndpoint(t *testing.T) {
	engine, _ := newTestRouter(t, &stubBackend{})
	w := perform(engine, http.MethodGet, "/api/v1/agents/status", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "operational", decodeBody(t, w)["status"])
}

func TestAgentsStatusUnreachable(t *testing.T) {
	be := &stubBackend{statusErr: fmt.Errorf("dial tcp: %w", context.DeadlineExceeded)}
	engine, _ := newTestRouter(t, be)

	w := perform(engine, http.MethodGet, "/api/v1/agents/status", nil, "")
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, apperrors.CodeBackendUnreachable, errorCode(t, w))
}

func TestLongQueryIsCapped(t *testing.T) {
	be := &stubBackend{payload: map[string]any{"medicine_name": "Panadol", "description": "Relieves pain."}}
	engine, svc := newTestRouter(t, be)
	sess := svc.NewSession()

	long := strings.Repeat("a", 2000)
	payload := bytes.NewBufferString(`{"query": "` + long + `"}`)
	w := perform(engine, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/query", payload, "application/json")
	require.Equal(t, http.StatusOK, w.Code)

	got, err := svc.Session(sess.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(got.Messages[0].RawText), 500)
}
