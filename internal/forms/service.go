// Package forms composes directory resolution, field sync, spreadsheet
// ingestion and validation behind one service that every creation form
// shares. Forms differ only by their Definition.
package forms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/phillip-england/hrconsole/internal/apiclient"
	"github.com/phillip-england/hrconsole/internal/directory"
	"github.com/phillip-england/hrconsole/internal/fieldsync"
	"github.com/phillip-england/hrconsole/internal/ingest"
	"github.com/phillip-england/hrconsole/internal/logging"
	"github.com/phillip-england/hrconsole/internal/metrics"
	"github.com/phillip-england/hrconsole/internal/validation"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConcurrency = 4
	suggestionLimit    = 8
)

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logging.OrDefault(logger)
	}
}

func WithDirectoryTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		s.directoryTimeout = timeout
	}
}

func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithClock fixes "now" for date rules.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

type Service struct {
	client           *apiclient.Client
	registry         *Registry
	logger           *slog.Logger
	directoryTimeout time.Duration
	concurrency      int
	now              func() time.Time
}

func NewService(client *apiclient.Client, registry *Registry, opts ...Option) *Service {
	s := &Service{
		client:      client,
		registry:    registry,
		logger:      slog.Default(),
		concurrency: defaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Registry() *Registry {
	return s.registry
}

func (s *Service) Definition(entity string) (Definition, error) {
	return s.registry.Get(entity)
}

// NewResolver returns a resolver for one form instance. The caller owns it
// and must Close it when the form goes away.
func (s *Service) NewResolver(opts ...directory.Option) *directory.Resolver {
	base := []directory.Option{
		directory.WithTimeout(s.directoryTimeout),
		directory.WithLogger(s.logger),
	}
	return directory.NewResolver(directory.HTTPSource{Client: s.client}, append(base, opts...)...)
}

// NewCombobox starts a field group from the identity fields of record,
// which may be empty for a new form.
func (s *Service) NewCombobox(def Definition, record ingest.Record) *fieldsync.Combobox {
	return fieldsync.NewCombobox(BindingFor(def, record), suggestionLimit)
}

// BindingFor reads the identity fields of record into a Binding.
func BindingFor(def Definition, record ingest.Record) fieldsync.Binding {
	name := record.String(def.Identity.DisplayName)
	return fieldsync.Binding{
		SearchTerm:  name,
		Identifier:  record.String(def.Identity.Identifier),
		DisplayName: name,
	}
}

// ApplyBinding copies a field group's committed values into record.
func ApplyBinding(def Definition, record ingest.Record, binding fieldsync.Binding) ingest.Record {
	out := record.Clone()
	if out.Fields == nil {
		out.Fields = map[string]any{}
	}
	if def.Identity.Identifier != "" {
		out.Set(def.Identity.Identifier, strings.TrimSpace(binding.Identifier))
	}
	if def.Identity.DisplayName != "" {
		out.Set(def.Identity.DisplayName, strings.TrimSpace(binding.DisplayName))
	}
	return out
}

// Validate runs the definition's rules against record.
func (s *Service) Validate(def Definition, record ingest.Record) validation.Errors {
	ruleset := def.Ruleset()
	ruleset.Now = s.now
	errs := ruleset.Validate(record.Values())
	for _, field := range errs.Fields() {
		metrics.ValidationFailuresTotal.WithLabelValues(def.Entity, field).Inc()
	}
	return errs
}

// RowErrors is the validation outcome of one imported row.
type RowErrors struct {
	Row    int               `json:"row"`
	Errors validation.Errors `json:"errors"`
}

// ImportReport is an ingest Result plus the violations found in each row.
// Invalid rows stay in the report so the operator can fix and resubmit.
type ImportReport struct {
	BatchID string          `json:"batchId"`
	Entity  string          `json:"entity"`
	Format  ingest.Format   `json:"format"`
	Single  *ingest.Record  `json:"single,omitempty"`
	Batch   []ingest.Record `json:"batch,omitempty"`
	Invalid []RowErrors     `json:"invalid,omitempty"`
}

func (r ImportReport) Records() []ingest.Record {
	if r.Single != nil {
		return []ingest.Record{*r.Single}
	}
	return r.Batch
}

// Import ingests upload for def. Identifiers from a sheet are kept; only
// the directory ever produces synthetic ones.
func (s *Service) Import(def Definition, upload ingest.Upload) (ImportReport, error) {
	result, err := ingest.Ingest(upload, def.Schema)
	if err != nil {
		metrics.ImportFailuresTotal.WithLabelValues(def.Entity, importFailureReason(err)).Inc()
		s.logger.Warn("spreadsheet import rejected", "entity", def.Entity, "file", upload.Name, "error", err)
		return ImportReport{}, err
	}

	report := ImportReport{
		BatchID: result.BatchID,
		Entity:  def.Entity,
		Format:  result.Format,
		Single:  result.Single,
		Batch:   result.Batch,
	}
	for _, record := range result.Records() {
		if errs := s.Validate(def, record); !errs.Empty() {
			report.Invalid = append(report.Invalid, RowErrors{Row: record.Row, Errors: errs})
		}
	}
	metrics.ImportRowsTotal.WithLabelValues(def.Entity, string(result.Format)).Add(float64(len(result.Records())))
	s.logger.Info("spreadsheet imported",
		"entity", def.Entity,
		"batch_id", result.BatchID,
		"file", upload.Name,
		"rows", len(result.Records()),
		"invalid_rows", len(report.Invalid),
		"batch", result.IsBatch(),
	)
	return report, nil
}

func importFailureReason(err error) string {
	switch {
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ingest.ErrEmptySheet):
		return "empty_sheet"
	default:
		return "unreadable"
	}
}

// Submission is one record on its way to the backend.
type Submission struct {
	Record ingest.Record
	// Binding, when set, overrides the record's identity fields.
	Binding *fieldsync.Binding
	// Method is POST for a new record or PUT to update ID.
	Method string
	ID     string
}

// Submit validates and sends one record. A validation failure is returned
// as validation.Errors and the backend is never called. Synthetic
// identifiers are blanked before validation so they cannot be persisted.
func (s *Service) Submit(ctx context.Context, def Definition, sub Submission) (json.RawMessage, error) {
	record := sub.Record.Clone()
	if record.Fields == nil {
		record.Fields = map[string]any{}
	}
	if sub.Binding != nil {
		record = ApplyBinding(def, record, *sub.Binding)
	}
	if field := def.Identity.Identifier; field != "" && directory.IsSyntheticIdentifier(record.String(field)) {
		s.logger.Debug("dropping synthetic identifier", "entity", def.Entity, "identifier", record.String(field))
		record.Set(field, "")
	}

	if errs := s.Validate(def, record); !errs.Empty() {
		metrics.SubmissionsTotal.WithLabelValues(def.Entity, "invalid").Inc()
		return nil, errs
	}

	normalizePANs(def, record)

	method, path, err := submitTarget(def, sub)
	if err != nil {
		return nil, err
	}
	var response json.RawMessage
	if err := s.client.SendJSON(ctx, method, path, record, &response); err != nil {
		metrics.SubmissionsTotal.WithLabelValues(def.Entity, "failed").Inc()
		s.logger.Error("submission failed", "entity", def.Entity, "method", method, "path", path, "row", record.Row, "error", err)
		return nil, err
	}
	metrics.SubmissionsTotal.WithLabelValues(def.Entity, "submitted").Inc()
	s.logger.Info("record submitted", "entity", def.Entity, "method", method, "path", path, "row", record.Row)
	return response, nil
}

// normalizePANs stores PAN fields in the casing their rule checked.
func normalizePANs(def Definition, record ingest.Record) {
	for _, spec := range def.Rules {
		if !strings.EqualFold(strings.TrimSpace(spec.Check), "pan") {
			continue
		}
		if value := record.String(spec.Field); value != "" {
			record.Set(spec.Field, validation.NormalizePAN(value))
		}
	}
}

func submitTarget(def Definition, sub Submission) (string, string, error) {
	method := strings.ToUpper(strings.TrimSpace(sub.Method))
	switch method {
	case "", http.MethodPost:
		return http.MethodPost, def.Endpoint, nil
	case http.MethodPut:
		id := strings.TrimSpace(sub.ID)
		if id == "" {
			return "", "", fmt.Errorf("%s update needs a record id", def.Entity)
		}
		return http.MethodPut, def.Endpoint + "/" + url.PathEscape(id), nil
	default:
		return "", "", fmt.Errorf("unsupported submit method %q", sub.Method)
	}
}

const (
	OutcomeSubmitted = "submitted"
	OutcomeInvalid   = "invalid"
	OutcomeFailed    = "failed"
)

type Outcome struct {
	Row    int               `json:"row"`
	Status string            `json:"status"`
	Errors validation.Errors `json:"errors,omitempty"`
	Error  string            `json:"error,omitempty"`
}

type BatchSummary struct {
	BatchID   string    `json:"batchId,omitempty"`
	Submitted int       `json:"submitted"`
	Invalid   int       `json:"invalid"`
	Failed    int       `json:"failed"`
	Outcomes  []Outcome `json:"outcomes"`
}

// SubmitBatch posts every record with bounded concurrency. One row failing
// does not stop the others; outcomes keep the input order.
func (s *Service) SubmitBatch(ctx context.Context, def Definition, batchID string, records []ingest.Record) BatchSummary {
	outcomes := make([]Outcome, len(records))
	var mu sync.Mutex
	summary := BatchSummary{BatchID: batchID}

	var group errgroup.Group
	group.SetLimit(s.concurrency)
	for i, record := range records {
		i, record := i, record
		group.Go(func() error {
			outcome := Outcome{Row: record.Row, Status: OutcomeSubmitted}
			_, err := s.Submit(ctx, def, Submission{Record: record})
			var errs validation.Errors
			switch {
			case err == nil:
			case errors.As(err, &errs):
				outcome.Status = OutcomeInvalid
				outcome.Errors = errs
			default:
				outcome.Status = OutcomeFailed
				outcome.Error = err.Error()
			}
			outcomes[i] = outcome

			mu.Lock()
			defer mu.Unlock()
			switch outcome.Status {
			case OutcomeSubmitted:
				summary.Submitted++
			case OutcomeInvalid:
				summary.Invalid++
			default:
				summary.Failed++
			}
			return nil
		})
	}
	_ = group.Wait()

	summary.Outcomes = outcomes
	s.logger.Info("batch submitted",
		"entity", def.Entity,
		"batch_id", batchID,
		"submitted", summary.Submitted,
		"invalid", summary.Invalid,
		"failed", summary.Failed,
	)
	return summary
}
