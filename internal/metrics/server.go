package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/phillip-england/hrconsole/internal/logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Enabled reports whether addr asks for a metrics listener. METRICS_ADDR is
// empty by default; "off" also disables it.
func Enabled(addr string) bool {
	switch strings.ToLower(strings.TrimSpace(addr)) {
	case "", "off", "disabled", "false":
		return false
	}
	return true
}

// Handler serves the hrconsole_* series in the Prometheus text format.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Serve exposes Handler on addr until ctx is done. When metrics are disabled
// it returns nil at once, so callers can run it next to the console
// unconditionally.
func Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if !Enabled(addr) {
		return nil
	}
	logger = logging.OrDefault(logger)

	srv := &http.Server{
		Addr:              strings.TrimSpace(addr),
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	defer stop()

	logger.Info("metrics listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
