// File: internal/api/handlers_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/asolfandco/dispatcher/internal/dispatch"
	"github.com/asolfandco/dispatcher/internal/media"
)

// fakeService records invocations and plays back scripted outcomes.
type fakeService struct {
	sendResult  dispatch.SendResult
	sendReq     dispatch.SendRequest
	sendUploads []string

	batchResults []dispatch.SendResult
	batchErr     error
	batchReq     dispatch.BatchRequest
	batchUploads []string

	openErr error
}

func (s *fakeService) Send(ctx context.Context, req dispatch.SendRequest, uploads []string) dispatch.SendResult {
	s.sendReq = req
	s.sendUploads = append([]string(nil), uploads...)
	return s.sendResult
}

func (s *fakeService) SendAll(ctx context.Context, req dispatch.BatchRequest, uploads []string) ([]dispatch.SendResult, error) {
	s.batchReq = req
	s.batchUploads = append([]string(nil), uploads...)
	return s.batchResults, s.batchErr
}

func (s *fakeService) Open(ctx context.Context) error { return s.openErr }

func newTestRouter(svc *fakeService) http.Handler {
	fetcher := media.NewFetcher(5*time.Second, zap.NewNop())
	h := NewHandlers(zap.NewNop(), svc, fetcher, 1<<20)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&fakeService{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "OK"}, decodeBody(t, rec))
}

func TestSendSuccess(t *testing.T) {
	row := 3
	svc := &fakeService{sendResult: dispatch.SendResult{RowIndex: &row, Status: dispatch.StatusSent}}
	router := newTestRouter(svc)

	rec := postJSON(t, router, "/send", map[string]any{
		"phone":     "3001234567",
		"message":   "Hola {name}",
		"name":      "Ana",
		"row_index": 3,
		"fileLink":  "https://example.com/a.png",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Message sent", body["status"])
	assert.Equal(t, float64(3), body["row_index"])

	assert.Equal(t, "3001234567", svc.sendReq.Phone)
	assert.Equal(t, "Ana", svc.sendReq.Name)
	assert.Equal(t, []string{"https://example.com/a.png"}, svc.sendReq.FileLinks)
	require.NotNil(t, svc.sendReq.RowIndex)
	assert.Equal(t, 3, *svc.sendReq.RowIndex)
}

func TestSendBusinessErrorIsHTTP200(t *testing.T) {
	svc := &fakeService{sendResult: dispatch.SendResult{
		Status:    dispatch.StatusError,
		Error:     "Phone and message required",
		ErrorCode: dispatch.CodePhoneMessageRequired,
	}}
	router := newTestRouter(svc)

	rec := postJSON(t, router, "/send", map[string]any{})
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Phone and message required", body["error"])
	assert.Equal(t, string(dispatch.CodePhoneMessageRequired), body["error_code"])
	assert.Nil(t, body["row_index"])
}

func TestSendErrorWithoutCodeOmitsField(t *testing.T) {
	svc := &fakeService{sendResult: dispatch.SendResult{
		Status: dispatch.StatusError,
		Error:  "browser unavailable",
	}}
	router := newTestRouter(svc)

	body := decodeBody(t, postJSON(t, router, "/send", map[string]any{"phone": "3", "message": "m"}))
	assert.Equal(t, "browser unavailable", body["error"])
	_, hasCode := body["error_code"]
	assert.False(t, hasCode)
}

func TestSendMultipartUploads(t *testing.T) {
	svc := &fakeService{sendResult: dispatch.SendResult{Status: dispatch.StatusSent}}
	router := newTestRouter(svc)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("payload", `{"phone":"300","message":"hola"}`))
	part, err := mw.CreateFormFile("files", "photo.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/send", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "300", svc.sendReq.Phone)
	require.Len(t, svc.sendUploads, 1)
	assert.True(t, strings.HasSuffix(svc.sendUploads[0], ".png"))
	// The handler owns the spooled files and removes them after responding.
	_, statErr := os.Stat(svc.sendUploads[0])
	assert.True(t, os.IsNotExist(statErr))
}

func TestSendAllSuccess(t *testing.T) {
	row := 1
	svc := &fakeService{batchResults: []dispatch.SendResult{
		{RowIndex: &row, Status: dispatch.StatusSent},
		{Status: dispatch.StatusSkipped},
	}}
	router := newTestRouter(svc)

	rec := postJSON(t, router, "/send_all", map[string]any{
		"contacts": []map[string]any{
			{"phone": "300", "name": "Ana", "row_index": 1},
			{"phone": ""},
		},
		"message":      "Hola {name}",
		"min_interval": 2,
		"max_interval": 4,
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Sent 2 messages with random intervals", body["status"])
	results, ok := body["results"].([]any)
	require.True(t, ok)
	assert.Len(t, results, 2)

	require.Len(t, svc.batchReq.Entries, 2)
	assert.Equal(t, "Hola {name}", svc.batchReq.Message)
	require.NotNil(t, svc.batchReq.MinInterval)
	assert.Equal(t, 2*time.Second, *svc.batchReq.MinInterval)
	require.NotNil(t, svc.batchReq.MaxInterval)
	assert.Equal(t, 4*time.Second, *svc.batchReq.MaxInterval)
}

func TestSendAllAcceptsMessagesKeyAndStringIntervals(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc)

	postJSON(t, router, "/send_all", map[string]any{
		"messages":     []map[string]any{{"phone": "300", "message": "hola"}},
		"min_interval": "2.5",
		"max_interval": "oops",
	})

	require.Len(t, svc.batchReq.Entries, 1)
	require.NotNil(t, svc.batchReq.MinInterval)
	assert.Equal(t, 2500*time.Millisecond, *svc.batchReq.MinInterval)
	assert.Nil(t, svc.batchReq.MaxInterval, "unparsable interval falls back to the default")
}

func TestSendAllBatchErrorIsHTTP200(t *testing.T) {
	svc := &fakeService{batchErr: dispatch.NewError(dispatch.CodeNotAuthenticated, "not authenticated")}
	router := newTestRouter(svc)

	rec := postJSON(t, router, "/send_all", map[string]any{"contacts": []map[string]any{}})
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "not authenticated", body["error"])
	assert.Equal(t, string(dispatch.CodeNotAuthenticated), body["error_code"])
}

func TestSendAllEmptyResultsMarshalAsArray(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc)

	rec := postJSON(t, router, "/send_all", map[string]any{"contacts": []map[string]any{}})
	assert.Contains(t, rec.Body.String(), `"results":[]`)
}

func TestOpenWhatsApp(t *testing.T) {
	router := newTestRouter(&fakeService{})
	rec := postJSON(t, router, "/open_whatsapp", map[string]any{})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "opened", decodeBody(t, rec)["status"])
}

func TestOpenWhatsAppFailureIsHTTP500(t *testing.T) {
	svc := &fakeService{openErr: errors.New("no browser")}
	router := newTestRouter(svc)

	rec := postJSON(t, router, "/open_whatsapp", map[string]any{})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Could not open WhatsApp session", body["error"])
	assert.Equal(t, string(dispatch.CodeOpenFailed), body["error_code"])
}

func TestMalformedJSONDegradesToEmptyPayload(t *testing.T) {
	svc := &fakeService{sendResult: dispatch.SendResult{
		Status:    dispatch.StatusError,
		Error:     "Phone and message required",
		ErrorCode: dispatch.CodePhoneMessageRequired,
	}}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/send", strings.NewReader("{not-json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, svc.sendReq.Phone)
}
