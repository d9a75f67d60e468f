package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arnavsurve/pagestep/pkg/browser"
	"github.com/arnavsurve/pagestep/pkg/jobs"
	"github.com/arnavsurve/pagestep/pkg/server"
)

type ServeCmd struct {
	Addr            string        `help:"Listen address. Overrides server.addr."`
	ShutdownTimeout time.Duration `help:"How long to wait for running jobs on shutdown." default:"30s"`
}

func (s *ServeCmd) Run(g *Globals) error {
	cfg, envErr, err := loadConfig(g.Config)
	if err != nil {
		return err
	}
	if s.Addr != "" {
		cfg.Server.Addr = s.Addr
	}

	router, logger, err := setupLogging(cfg, cfg.Log.File)
	if err != nil {
		return err
	}
	defer router.Close()
	if envErr != nil {
		logger.Debug().Err(envErr).Msg("No .env file loaded, relying on existing ENV")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := browser.Open(ctx, cfg.BrowserOptions())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open browser session")
		return err
	}
	defer session.Close()

	jrnl, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer jrnl.Close()

	engine := newEngine(cfg, session.Page(), logger, router.Redactor)
	manager := jobs.NewManager(jobs.EngineExecutor(engine), jrnl, logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.NewRouter(server.NewHandlers(manager, session, logger)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Listening on %s", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info().Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP shutdown incomplete")
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Jobs still running at shutdown")
	}
	return nil
}
