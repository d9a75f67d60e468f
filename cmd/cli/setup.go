package cli

import (
	"fmt"

	"github.com/arnavsurve/pagestep/pkg/browser"
	"github.com/arnavsurve/pagestep/pkg/config"
	"github.com/arnavsurve/pagestep/pkg/core"
	"github.com/arnavsurve/pagestep/pkg/journal"
	"github.com/arnavsurve/pagestep/pkg/log"
	"github.com/arnavsurve/pagestep/pkg/log/sinks"
	"github.com/arnavsurve/pagestep/pkg/security"
	"github.com/arnavsurve/pagestep/pkg/types"
	"github.com/joho/godotenv"
)

// Globals are flags shared by every command.
type Globals struct {
	Config string `help:"The YAML configuration file." default:"pagestep.yml" type:"path"`
}

// loadConfig reads the configuration file after .env so PAGESTEP_* variables
// set there apply. The .env error is returned separately so it can be logged
// once logging is up.
func loadConfig(path string) (cfg config.Config, envErr error, err error) {
	envErr = godotenv.Load()
	cfg, err = config.Load(path)
	if err != nil {
		return config.Config{}, envErr, fmt.Errorf("loading config %q: %w", path, err)
	}
	return cfg, envErr, nil
}

// setupLogging routes logs to the console and, when logFile is set, to a
// JSON lines file. The router carries a redactor fed by the engine.
func setupLogging(cfg config.Config, logFile string) (*log.Router, types.Logger, error) {
	router := log.NewRouter(sinks.NewConsoleSink())
	router.Redactor = security.NewRedactor(nil, nil)

	if logFile != "" {
		fileSink, err := sinks.NewFileSink(logFile)
		if err != nil {
			return nil, nil, fmt.Errorf("creating file log sink: %w", err)
		}
		router.AddSink(fileSink)
	}
	return router, log.NewLogger(router, cfg.LogLevel()), nil
}

// openJournal returns the configured job journals, possibly none.
func openJournal(cfg config.Config) (journal.Journal, error) {
	var tee journal.Tee
	if cfg.Jobs.LogPath != "" {
		fj, err := journal.NewFileJournal(cfg.Jobs.LogPath)
		if err != nil {
			return nil, err
		}
		tee = append(tee, fj)
	}
	if cfg.Jobs.DBPath != "" {
		sj, err := journal.NewSQLiteJournal(cfg.Jobs.DBPath)
		if err != nil {
			_ = tee.Close()
			return nil, err
		}
		tee = append(tee, sj)
	}
	return tee, nil
}

func newEngine(cfg config.Config, page browser.Page, logger types.Logger, redactor *security.Redactor) *core.Engine {
	engine := core.NewEngine(page, logger)
	cfg.Apply(engine)
	engine.Redactor = redactor
	engine.SecretVars = cfg.SecretVars
	return engine
}
