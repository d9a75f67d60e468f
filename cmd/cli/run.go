package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/arnavsurve/pagestep/pkg/browser"
	"github.com/arnavsurve/pagestep/pkg/core"
	"github.com/arnavsurve/pagestep/pkg/jobs"
	"github.com/arnavsurve/pagestep/pkg/types"
	"github.com/google/uuid"
)

type RunCmd struct {
	Job     string        `arg:"" help:"The job document (YAML or JSON) to execute." type:"existingfile"`
	ID      string        `help:"Job id. Derived from the start time when empty."`
	Timeout time.Duration `help:"Give up waiting for the job after this long. Zero waits forever." default:"0"`
}

func (r *RunCmd) Run(g *Globals) error {
	runID := uuid.NewString()

	cfg, envErr, err := loadConfig(g.Config)
	if err != nil {
		return err
	}

	logFile := cfg.Log.File
	if logFile == "" {
		logFile = filepath.Join(".pagestep", "logs", runID+".json")
	}
	router, logger, err := setupLogging(cfg, logFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := router.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during log shutdown: %v\n", err)
		}
	}()
	if envErr != nil {
		logger.Debug().Err(envErr).Msg("No .env file loaded, relying on existing ENV")
	}
	logger.Info().Msgf("Logs will be saved to %q", logFile)

	doc, err := core.LoadJobFromFile(r.Job)
	if err != nil {
		logger.Error().Err(err).Msgf("Failed to load job file %s", r.Job)
		return err
	}
	if err := core.ValidateJobStructure(doc); err != nil {
		logger.Error().Err(err).Msg("Job document is malformed")
		return fmt.Errorf("validating job %q: %w", r.Job, err)
	}
	logger.Info().Msgf("Loaded job %q with %d actions", doc.Name, len(doc.Actions))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

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

	id, err := manager.Start(ctx, jobs.StartRequest{ID: r.ID, Name: doc.Name, Actions: doc.Decode()})
	if err != nil {
		return err
	}
	job, err := manager.Wait(ctx, id)
	if err != nil {
		logger.Error().Err(err).Str("job_id", id).Msg("Stopped waiting for job")
		return err
	}

	if job.Status == types.JobStatusFailed {
		return fmt.Errorf("job %s failed: %s", job.ID, job.Error)
	}
	logger.Info().Str("job_id", id).Msgf("Job completed. Logs can be found at %q", logFile)
	return nil
}
