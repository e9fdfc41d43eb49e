package directory

import (
	"context"
	"errors"
	"time"

	"github.com/phillip-england/hrconsole/internal/apiclient"
	"github.com/phillip-england/hrconsole/internal/metrics"
)

const (
	PrimaryPath   = "/employee-resignation/all-ids"
	SecondaryPath = "/employee-resignation/names"
)

var errUnsuccessful = errors.New("backend reported success=false")

// Source fetches the two directory lists. HTTPSource is the production
// implementation; tests substitute their own.
type Source interface {
	Identities(ctx context.Context) ([]EmployeeIdentity, error)
	Names(ctx context.Context) ([]string, error)
}

type HTTPSource struct {
	Client *apiclient.Client
}

type identitiesEnvelope struct {
	Success bool              `json:"success"`
	Data    []primaryIdentity `json:"data"`
}

type namesEnvelope struct {
	Success bool     `json:"success"`
	Data    []string `json:"data"`
}

func (s HTTPSource) Identities(ctx context.Context) ([]EmployeeIdentity, error) {
	start := time.Now()
	defer func() {
		metrics.DirectoryFetchDuration.WithLabelValues("all-ids").Observe(time.Since(start).Seconds())
	}()

	var payload identitiesEnvelope
	if err := s.Client.GetJSON(ctx, PrimaryPath, &payload); err != nil {
		return nil, err
	}
	if !payload.Success {
		return nil, errUnsuccessful
	}
	return fromPrimary(payload.Data), nil
}

func (s HTTPSource) Names(ctx context.Context) ([]string, error) {
	start := time.Now()
	defer func() {
		metrics.DirectoryFetchDuration.WithLabelValues("names").Observe(time.Since(start).Seconds())
	}()

	var payload namesEnvelope
	if err := s.Client.GetJSON(ctx, SecondaryPath, &payload); err != nil {
		return nil, err
	}
	if !payload.Success {
		return nil, errUnsuccessful
	}
	return payload.Data, nil
}
