package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/wudi/pdfsnap/observability"
)

// Run serves until ctx ends, then shuts srv down and gives in-flight
// requests up to timeout to finish.
func Run(ctx context.Context, srv *http.Server, logger observability.Logger, timeout time.Duration) error {
	if logger == nil {
		logger = observability.NopLogger{}
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", observability.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
			return
		}
		errc <- nil
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", observability.Error("error", err))
	}
	if err := <-errc; err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
