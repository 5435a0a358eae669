package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	httpAdapter "github.com/aretw0/concierge/pkg/adapters/http"
	"golang.org/x/sync/errgroup"
)

// Handler builds the HTTP API of app.
func Handler(app *App) (http.Handler, error) {
	opts := []httpAdapter.Option{httpAdapter.WithLogger(app.Logger)}
	if app.Config.Metrics.Enabled {
		opts = append(opts, httpAdapter.WithMetrics(app.Metrics.Handler(), app.Metrics.TurnFailed))
	}
	return httpAdapter.NewHandler(app.Assistant, opts...)
}

// Serve runs the HTTP API until ctx is done, then drains in-flight requests.
func Serve(ctx context.Context, app *App) error {
	handler, err := Handler(app)
	if err != nil {
		return err
	}
	cfg := app.Config.HTTP
	srv := httpAdapter.NewServer(cfg.Addr, handler, cfg.ReadTimeout, cfg.WriteTimeout)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.Logger.Info("concierge server listening", "addr", cfg.Addr, "metrics", app.Config.Metrics.Enabled)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		app.Logger.Info("shutting down server")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete: %w", err)
		}
		return nil
	})
	return g.Wait()
}
