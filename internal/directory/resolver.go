// Package directory resolves the list of employee identities offered by every
// search-and-select field. The primary endpoint returns full identities; when
// it is unavailable the resolver degrades to a bare name list and synthesizes
// placeholder identifiers. Failure of both leaves a retryable Failed state and
// never an error, so hosting forms stay usable for manual entry.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/phillip-england/hrconsole/internal/logging"
	"github.com/phillip-england/hrconsole/internal/metrics"
)

// ErrEmptyDirectory means neither endpoint produced a usable identity.
var ErrEmptyDirectory = errors.New("employee directory is empty")

type Phase int

const (
	Idle Phase = iota
	Loading
	Ready
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "phase(" + strconv.Itoa(int(p)) + ")"
	}
}

const (
	SourcePrimary   = "primary"
	SourceSecondary = "secondary"
)

// State is a snapshot of a resolver. Identities is set only when Ready;
// Reason and Err only when Failed.
type State struct {
	Phase      Phase
	Identities []EmployeeIdentity
	Source     string
	Reason     string
	Err        error
}

func (s State) MarshalJSON() ([]byte, error) {
	// A Ready state always carries its list, even an empty one, so "the
	// primary returned nothing" stays distinct from "no list yet".
	var identities *[]EmployeeIdentity
	if s.Phase == Ready {
		list := s.Identities
		if list == nil {
			list = []EmployeeIdentity{}
		}
		identities = &list
	}
	return json.Marshal(struct {
		Phase      string              `json:"phase"`
		Identities *[]EmployeeIdentity `json:"identities,omitempty"`
		Source     string              `json:"source,omitempty"`
		Reason     string              `json:"reason,omitempty"`
	}{
		Phase:      s.Phase.String(),
		Identities: identities,
		Source:     s.Source,
		Reason:     s.Reason,
	})
}

type Option func(*Resolver)

// WithTimeout bounds each endpoint call. Zero leaves calls unbounded.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Resolver) {
		r.timeout = timeout
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logging.OrDefault(logger)
	}
}

// WithOnChange registers fn to observe every state transition. fn runs on the
// resolving goroutine, outside the resolver's lock.
func WithOnChange(fn func(State)) Option {
	return func(r *Resolver) {
		r.onChange = fn
	}
}

// Resolver owns one DirectoryState. Create one per form instance and Close it
// when the form goes away; Close cancels any fetch still in flight.
type Resolver struct {
	source   Source
	timeout  time.Duration
	logger   *slog.Logger
	onChange func(State)

	lifecycle context.Context
	stop      context.CancelFunc

	mu         sync.Mutex
	state      State
	cancel     context.CancelFunc
	generation uint64
}

func NewResolver(source Source, opts ...Option) *Resolver {
	lifecycle, stop := context.WithCancel(context.Background())
	r := &Resolver{
		source:    source,
		logger:    slog.Default(),
		lifecycle: lifecycle,
		stop:      stop,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Resolve runs the primary-then-secondary algorithm and returns the resulting
// state. A newer Resolve supersedes an older one still in flight.
func (r *Resolver) Resolve(ctx context.Context) State {
	r.mu.Lock()
	if r.lifecycle.Err() != nil {
		state := r.state
		r.mu.Unlock()
		return state
	}
	if r.cancel != nil {
		r.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	stopAfter := context.AfterFunc(r.lifecycle, cancel)
	r.cancel = cancel
	r.generation++
	generation := r.generation
	loading := State{Phase: Loading}
	r.state = loading
	r.mu.Unlock()
	r.notify(loading)

	defer stopAfter()
	defer cancel()

	next := r.run(runCtx)

	r.mu.Lock()
	if generation != r.generation {
		current := r.state
		r.mu.Unlock()
		return current
	}
	r.cancel = nil
	if next.Phase == Failed && errors.Is(runCtx.Err(), context.Canceled) {
		metrics.DirectoryResolutionsTotal.WithLabelValues("none", "canceled").Inc()
		r.logger.Debug("directory resolution canceled")
		next = State{Phase: Idle}
	}
	r.state = next
	r.mu.Unlock()
	r.notify(next)
	return next
}

// Retry re-runs resolution from the primary endpoint. It is only ever
// triggered by the user; there is no automatic backoff.
func (r *Resolver) Retry(ctx context.Context) State {
	r.logger.Info("directory retry requested", "previous_phase", r.State().Phase.String())
	return r.Resolve(ctx)
}

// Close cancels an in-flight resolution. Later calls to Resolve are no-ops.
func (r *Resolver) Close() {
	r.stop()
}

func (r *Resolver) notify(state State) {
	if r.onChange != nil {
		r.onChange(state)
	}
}

func (r *Resolver) run(ctx context.Context) State {
	identities, err := r.primary(ctx)
	if err == nil {
		// An empty but successful primary list stands; only failure falls back.
		metrics.DirectoryResolutionsTotal.WithLabelValues(SourcePrimary, "ready").Inc()
		metrics.DirectoryIdentities.WithLabelValues(SourcePrimary).Set(float64(len(identities)))
		r.logger.Info("directory resolved", "source", SourcePrimary, "identities", len(identities))
		return State{Phase: Ready, Identities: identities, Source: SourcePrimary}
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return State{Phase: Failed, Reason: ctx.Err().Error(), Err: ctx.Err()}
	}
	r.logger.Warn("primary directory unavailable, falling back to names", "error", err)

	names, err := r.secondary(ctx)
	if err != nil {
		return r.failed(err)
	}
	identities = fromNames(names)
	if len(identities) == 0 {
		return r.failed(fmt.Errorf("%w: fallback returned no names", ErrEmptyDirectory))
	}
	metrics.DirectoryResolutionsTotal.WithLabelValues(SourceSecondary, "ready").Inc()
	metrics.DirectoryIdentities.WithLabelValues(SourceSecondary).Set(float64(len(identities)))
	r.logger.Info("directory resolved", "source", SourceSecondary, "identities", len(identities))
	return State{Phase: Ready, Identities: identities, Source: SourceSecondary}
}

func (r *Resolver) failed(err error) State {
	metrics.DirectoryResolutionsTotal.WithLabelValues("none", "failed").Inc()
	r.logger.Error("directory resolution failed", "error", err)
	return State{Phase: Failed, Reason: err.Error(), Err: err}
}

func (r *Resolver) primary(ctx context.Context) ([]EmployeeIdentity, error) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()
	return r.source.Identities(callCtx)
}

func (r *Resolver) secondary(ctx context.Context) ([]string, error) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()
	return r.source.Names(callCtx)
}

func (r *Resolver) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout > 0 {
		return context.WithTimeout(ctx, r.timeout)
	}
	return context.WithCancel(ctx)
}
