package cli

import (
	"fmt"

	"github.com/arnavsurve/pagestep/pkg/core"
)

type LintCmd struct {
	Job    string `arg:"" help:"The job document (YAML or JSON) to check." type:"existingfile"`
	Strict bool   `help:"Treat warnings as errors."`
}

func (l *LintCmd) Run(g *Globals) error {
	cfg, envErr, err := loadConfig(g.Config)
	if err != nil {
		return err
	}
	router, logger, err := setupLogging(cfg, "")
	if err != nil {
		return err
	}
	defer router.Close()
	if envErr != nil {
		logger.Debug().Err(envErr).Msg("No .env file loaded, relying on existing ENV")
	}

	logger.Info().Msgf("Validating %s", l.Job)

	doc, err := core.LoadJobFromFile(l.Job)
	if err != nil {
		logger.Error().Err(err).Msgf("Failed to load job file %s", l.Job)
		return err
	}
	if err := core.ValidateJobStructure(doc); err != nil {
		logger.Error().Err(err).Msg("Job document is malformed")
		return fmt.Errorf("validating job %q: %w", l.Job, err)
	}

	var errCount, warnCount int
	for _, issue := range core.LintJob(doc) {
		if issue.Warning {
			warnCount++
			logger.Warn().Int("action_index", issue.Index+1).Msg(issue.String())
			continue
		}
		errCount++
		logger.Error().Int("action_index", issue.Index+1).Msg(issue.String())
	}

	if errCount > 0 || (l.Strict && warnCount > 0) {
		return fmt.Errorf("job %q has %d errors and %d warnings", l.Job, errCount, warnCount)
	}
	logger.Info().Msgf("Job %q is valid (%d actions, %d warnings) ✅", doc.Name, len(doc.Actions), warnCount)
	return nil
}
