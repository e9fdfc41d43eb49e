package console

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phillip-england/hrconsole/internal/apiclient"
	"github.com/phillip-england/hrconsole/internal/directory"
	"github.com/phillip-england/hrconsole/internal/forms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeBackend struct {
	primaryDown atomic.Bool
	namesDown   atomic.Bool
	submissions atomic.Int32
}

func (f *fakeBackend) start(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case directory.PrimaryPath:
			if f.primaryDown.Load() {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = io.WriteString(w, `{"success":true,"data":[
				{"employeeId":"E1","fullName":"Alice Smith"},
				{"employeeId":"E2","fullName":"Alan Turing"},
				{"employeeId":"E3","fullName":"Bob Jones"}]}`)
		case directory.SecondaryPath:
			if f.namesDown.Load() {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = io.WriteString(w, `{"success":true,"data":["Alice","Bob"]}`)
		default:
			f.submissions.Add(1)
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"id":101}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestHandler(t *testing.T, backend *fakeBackend, limit int64) http.Handler {
	t.Helper()
	registry, err := forms.LoadRegistry("")
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := forms.NewService(apiclient.New(backend.start(t).URL), registry,
		forms.WithLogger(logger),
		forms.WithClock(func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }),
	)
	cfg := DefaultConfig(":0")
	cfg.UploadLimit = limit
	handler, closeHandler := NewHandler(svc, logger, cfg)
	t.Cleanup(closeHandler)
	return handler
}

func do(t *testing.T, handler http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealthAndForms(t *testing.T) {
	handler := newTestHandler(t, &fakeBackend{}, 0)

	rec, body := do(t, handler, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec, body = do(t, handler, httptest.NewRequest(http.MethodGet, "/api/forms", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	list, ok := body["forms"].([]any)
	require.True(t, ok)
	assert.Len(t, list, 5)
}

func TestDirectorySearch(t *testing.T) {
	handler := newTestHandler(t, &fakeBackend{}, 0)

	rec, body := do(t, handler, httptest.NewRequest(http.MethodGet, "/api/directory?q=al", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["phase"])
	assert.Equal(t, "primary", body["source"])
	assert.Equal(t, float64(3), body["count"])
	suggestions := body["suggestions"].([]any)
	require.Len(t, suggestions, 2)
	assert.Equal(t, "E1", suggestions[0].(map[string]any)["identifier"])
	assert.Equal(t, "E2", suggestions[1].(map[string]any)["identifier"])

	_, body = do(t, handler, httptest.NewRequest(http.MethodGet, "/api/directory", nil))
	assert.Empty(t, body["suggestions"], "blank query hides the list")
}

func TestDirectoryFailureThenRetry(t *testing.T) {
	backend := &fakeBackend{}
	backend.primaryDown.Store(true)
	backend.namesDown.Store(true)
	handler := newTestHandler(t, backend, 0)

	_, body := do(t, handler, httptest.NewRequest(http.MethodGet, "/api/directory?q=a", nil))
	assert.Equal(t, "failed", body["phase"])
	assert.Contains(t, body["reason"], "503")

	backend.namesDown.Store(false)
	_, body = do(t, handler, httptest.NewRequest(http.MethodGet, "/api/directory?q=a", nil))
	assert.Equal(t, "failed", body["phase"], "failure sticks until retry")

	rec, body := do(t, handler, httptest.NewRequest(http.MethodPost, "/api/directory/retry", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["phase"])
	assert.Equal(t, "secondary", body["source"])

	_, body = do(t, handler, httptest.NewRequest(http.MethodGet, "/api/directory?q=bob", nil))
	suggestions := body["suggestions"].([]any)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "TEMP-002", suggestions[0].(map[string]any)["identifier"])
}

func TestTemplateDownload(t *testing.T) {
	handler := newTestHandler(t, &fakeBackend{}, 0)

	rec, _ := do(t, handler, httptest.NewRequest(http.MethodGet, "/api/forms/pip/template", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "pip-template.xlsx")

	file, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	rows, err := file.GetRows(file.GetSheetName(0))
	require.NoError(t, err)
	assert.Equal(t, "Employee ID", rows[0][0])

	rec, _ = do(t, handler, httptest.NewRequest(http.MethodGet, "/api/forms/payroll/template", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = do(t, handler, httptest.NewRequest(http.MethodPost, "/api/forms/pip/template", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func multipartUpload(t *testing.T, url, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestImportEndpoint(t *testing.T) {
	handler := newTestHandler(t, &fakeBackend{}, 0)

	csv := "Employee Name,Resignation Date,Reason\nAlice Smith,2025-05-01,Relocation\n"
	rec, body := do(t, handler, multipartUpload(t, "/api/forms/resignation/import", "one.csv", []byte(csv)))
	require.Equal(t, http.StatusOK, rec.Code)
	single := body["single"].(map[string]any)
	assert.Equal(t, "Alice Smith", single["employeeName"])
	assert.Equal(t, "2025-05-01", single["resignationDate"])
	assert.Nil(t, body["batch"])

	rec, _ = do(t, handler, multipartUpload(t, "/api/forms/resignation/import", "photo.png", []byte("png")))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec, _ = do(t, handler, multipartUpload(t, "/api/forms/resignation/import", "empty.csv", []byte("Employee Name\n")))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/forms/resignation/import", strings.NewReader("nope"))
	rec, _ = do(t, handler, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportTooLarge(t *testing.T) {
	handler := newTestHandler(t, &fakeBackend{}, 256)
	big := "Employee Name\n" + strings.Repeat("Someone With A Long Name\n", 50)
	rec, body := do(t, handler, multipartUpload(t, "/api/forms/resignation/import", "big.csv", []byte(big)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "file is too large", body["error"])
}

func TestSubmitEndpoint(t *testing.T) {
	backend := &fakeBackend{}
	handler := newTestHandler(t, backend, 0)

	invalid := `{"fields":{"fullName":"Priya","email":"bad","phone":"98765","hireDate":"2024-01-10"}}`
	rec, body := do(t, handler, httptest.NewRequest(http.MethodPost, "/api/forms/onboarding/submit", strings.NewReader(invalid)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	fields := body["fields"].(map[string]any)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "phone")
	assert.Equal(t, int32(0), backend.submissions.Load())

	valid := `{"fields":{"reason":"Relocation","resignationDate":"2025-05-01"},
		"binding":{"searchTerm":"Bob","identifier":"TEMP-002","displayName":"Bob"}}`
	rec, body = do(t, handler, httptest.NewRequest(http.MethodPost, "/api/forms/resignation/submit", strings.NewReader(valid)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, int32(1), backend.submissions.Load())

	rec, _ = do(t, handler, httptest.NewRequest(http.MethodPost, "/api/forms/resignation/submit", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitBatchEndpoint(t *testing.T) {
	backend := &fakeBackend{}
	handler := newTestHandler(t, backend, 0)

	payload := `{"batchId":"b-1","records":[
		{"employeeName":"A","goalTitle":"One","dueDate":"2025-07-01"},
		{"employeeName":"B","goalTitle":"","dueDate":"2025-07-01"}]}`
	rec, body := do(t, handler, httptest.NewRequest(http.MethodPost, "/api/forms/goal/submit-batch", strings.NewReader(payload)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "b-1", body["batchId"])
	assert.Equal(t, float64(1), body["submitted"])
	assert.Equal(t, float64(1), body["invalid"])
	assert.Equal(t, int32(1), backend.submissions.Load())
}

func TestParseFormPath(t *testing.T) {
	entity, action, ok := parseFormPath("/api/forms/annual-review/import")
	assert.True(t, ok)
	assert.Equal(t, "annual-review", entity)
	assert.Equal(t, "import", action)

	for _, path := range []string{"/api/forms/", "/api/forms/pip", "/api/forms/pip/import/extra", "/elsewhere"} {
		_, _, ok := parseFormPath(path)
		assert.False(t, ok, path)
	}
}
