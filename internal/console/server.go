// Package console serves the HR console's JSON API: directory search,
// spreadsheet templates and imports, and gated submission for every form.
package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/phillip-england/hrconsole/internal/apiclient"
	"github.com/phillip-england/hrconsole/internal/directory"
	"github.com/phillip-england/hrconsole/internal/fieldsync"
	"github.com/phillip-england/hrconsole/internal/forms"
	"github.com/phillip-england/hrconsole/internal/ingest"
	"github.com/phillip-england/hrconsole/internal/logging"
	"github.com/phillip-england/hrconsole/internal/middleware"
	"github.com/phillip-england/hrconsole/internal/typeahead"
	"github.com/phillip-england/hrconsole/internal/validation"
)

const (
	defaultUploadLimit = 10 << 20
	suggestionLimit    = 20
	xlsxContentType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// UploadLimit caps an import request body in bytes.
	UploadLimit int64
}

func DefaultConfig(addr string) Config {
	return Config{
		Addr:         addr,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		UploadLimit:  defaultUploadLimit,
	}
}

type server struct {
	forms       *forms.Service
	logger      *slog.Logger
	uploadLimit int64

	resolveMu sync.Mutex
	resolver  *directory.Resolver
}

// NewHandler builds the console's HTTP handler. The returned close func
// releases the shared directory resolver.
func NewHandler(svc *forms.Service, logger *slog.Logger, cfg Config) (http.Handler, func()) {
	logger = logging.OrDefault(logger)
	if cfg.UploadLimit <= 0 {
		cfg.UploadLimit = defaultUploadLimit
	}
	s := &server{
		forms:       svc,
		logger:      logger,
		uploadLimit: cfg.UploadLimit,
		resolver:    svc.NewResolver(),
	}

	mux := http.NewServeMux()
	mux.Handle("/api/health", http.HandlerFunc(s.health))
	mux.Handle("/api/forms", http.HandlerFunc(s.listForms))
	mux.Handle("/api/forms/", http.HandlerFunc(s.formRoutes))
	mux.Handle("/api/directory", http.HandlerFunc(s.searchDirectory))
	mux.Handle("/api/directory/retry", http.HandlerFunc(s.retryDirectory))

	csp := strings.Join([]string{
		"default-src 'none'",
		"frame-ancestors 'none'",
	}, "; ")

	handler := middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.AccessLog(logger),
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{ContentSecurityPolicy: csp}),
	)
	return handler, s.resolver.Close
}

func Run(ctx context.Context, cfg Config, svc *forms.Service, logger *slog.Logger) error {
	logger = logging.OrDefault(logger)
	handler, closeHandler := NewHandler(svc, logger, cfg)
	defer closeHandler()

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("console listening", "addr", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type formView struct {
	Entity   string               `json:"entity"`
	Title    string               `json:"title"`
	Endpoint string               `json:"endpoint"`
	Identity forms.IdentityFields `json:"identity"`
	Fields   []ingest.Field       `json:"fields"`
	Rules    []validation.Spec    `json:"rules"`
}

func (s *server) listForms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	defs := s.forms.Registry().All()
	views := make([]formView, 0, len(defs))
	for _, def := range defs {
		views = append(views, formView{
			Entity:   def.Entity,
			Title:    def.Title,
			Endpoint: def.Endpoint,
			Identity: def.Identity,
			Fields:   def.Schema.Fields,
			Rules:    def.Rules,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"forms": views})
}

type directoryResponse struct {
	Phase       string                       `json:"phase"`
	Source      string                       `json:"source,omitempty"`
	Reason      string                       `json:"reason,omitempty"`
	Count       int                          `json:"count"`
	Query       string                       `json:"query,omitempty"`
	Suggestions []directory.EmployeeIdentity `json:"suggestions"`
}

func newDirectoryResponse(state directory.State, query string) directoryResponse {
	index := typeahead.FromState(state, suggestionLimit)
	suggestions := index.Suggest(query)
	if suggestions == nil {
		suggestions = []directory.EmployeeIdentity{}
	}
	return directoryResponse{
		Phase:       state.Phase.String(),
		Source:      state.Source,
		Reason:      state.Reason,
		Count:       index.Len(),
		Query:       query,
		Suggestions: suggestions,
	}
}

// directoryState resolves the shared directory on first use. A Failed state
// sticks until an explicit retry.
func (s *server) directoryState(ctx context.Context) directory.State {
	s.resolveMu.Lock()
	defer s.resolveMu.Unlock()
	state := s.resolver.State()
	if state.Phase == directory.Idle {
		state = s.resolver.Resolve(ctx)
	}
	return state
}

func (s *server) searchDirectory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	state := s.directoryState(r.Context())
	writeJSON(w, http.StatusOK, newDirectoryResponse(state, r.URL.Query().Get("q")))
}

func (s *server) retryDirectory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.resolveMu.Lock()
	state := s.resolver.Retry(r.Context())
	s.resolveMu.Unlock()
	writeJSON(w, http.StatusOK, newDirectoryResponse(state, ""))
}

// parseFormPath splits /api/forms/{entity}/{action}.
func parseFormPath(path string) (string, string, bool) {
	rest := strings.TrimPrefix(path, "/api/forms/")
	if rest == path {
		return "", "", false
	}
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func (s *server) formRoutes(w http.ResponseWriter, r *http.Request) {
	entity, action, ok := parseFormPath(r.URL.Path)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	def, err := s.forms.Definition(entity)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	switch {
	case action == "template" && r.Method == http.MethodGet:
		s.template(w, r, def)
	case action == "import" && r.Method == http.MethodPost:
		s.importSheet(w, r, def)
	case action == "submit" && r.Method == http.MethodPost:
		s.submit(w, r, def)
	case action == "submit-batch" && r.Method == http.MethodPost:
		s.submitBatch(w, r, def)
	case action == "template" || action == "import" || action == "submit" || action == "submit-batch":
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *server) template(w http.ResponseWriter, _ *http.Request, def forms.Definition) {
	data, err := ingest.Template(def.Schema)
	if err != nil {
		s.logger.Error("template build failed", "entity", def.Entity, "error", err)
		writeError(w, http.StatusInternalServerError, "unable to build template")
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ingest.TemplateName(def.Schema)))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

func (s *server) importSheet(w http.ResponseWriter, r *http.Request, def forms.Definition) {
	r.Body = http.MaxBytesReader(w, r.Body, s.uploadLimit)
	if err := r.ParseMultipartForm(s.uploadLimit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unable to read upload")
		return
	}

	report, err := s.forms.Import(def, ingest.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, report)
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, ingest.ErrEmptySheet):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusBadRequest, "unable to read spreadsheet")
	}
}

type submitRequest struct {
	Fields  map[string]string  `json:"fields"`
	Binding *fieldsync.Binding `json:"binding,omitempty"`
	Method  string             `json:"method,omitempty"`
	ID      string             `json:"id,omitempty"`
}

func (s *server) submit(w http.ResponseWriter, r *http.Request, def forms.Definition) {
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	record := ingest.FromValues(def.Schema, req.Fields)
	response, err := s.forms.Submit(r.Context(), def, forms.Submission{
		Record:  record,
		Binding: req.Binding,
		Method:  req.Method,
		ID:      req.ID,
	})
	if err != nil {
		writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "response": response})
}

type batchRequest struct {
	BatchID string              `json:"batchId"`
	Records []map[string]string `json:"records"`
}

func (s *server) submitBatch(w http.ResponseWriter, r *http.Request, def forms.Definition) {
	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, "records are required")
		return
	}
	records := make([]ingest.Record, 0, len(req.Records))
	for i, values := range req.Records {
		record := ingest.FromValues(def.Schema, values)
		record.Row = i + 2
		records = append(records, record)
	}
	writeJSON(w, http.StatusOK, s.forms.SubmitBatch(r.Context(), def, req.BatchID, records))
}

func writeSubmitError(w http.ResponseWriter, err error) {
	var errs validation.Errors
	switch {
	case errors.As(err, &errs):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  validation.ErrValidationFailure.Error(),
			"fields": errs,
		})
	case errors.Is(err, apiclient.ErrNetworkFailure):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	return decoder.Decode(out)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
