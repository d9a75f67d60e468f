// Package config loads pagestep settings from YAML with PAGESTEP_* environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/arnavsurve/pagestep/pkg/browser"
	"github.com/arnavsurve/pagestep/pkg/core"
	"github.com/arnavsurve/pagestep/pkg/guard"
	"github.com/arnavsurve/pagestep/pkg/handlers"
	"github.com/arnavsurve/pagestep/pkg/retry"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "PAGESTEP_"

type Config struct {
	Browser    BrowserConfig `yaml:"browser"`
	Engine     EngineConfig  `yaml:"engine"`
	Guard      GuardConfig   `yaml:"guard"`
	Retry      RetryConfig   `yaml:"retry"`
	Handlers   HandlerConfig `yaml:"handlers"`
	PDA        PDAConfig     `yaml:"pda"`
	Jobs       JobsConfig    `yaml:"jobs"`
	Server     ServerConfig  `yaml:"server"`
	Log        LogConfig     `yaml:"log"`
	SecretVars []string      `yaml:"secret_vars"`
}

type BrowserConfig struct {
	ControlURL string `yaml:"control_url"`
	Headless   bool   `yaml:"headless"`
	Bin        string `yaml:"bin"`
	DefaultURL string `yaml:"default_url"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
}

type EngineConfig struct {
	SettleDelay time.Duration `yaml:"settle_delay"`
}

type GuardConfig struct {
	OverlaySelector string        `yaml:"overlay_selector"`
	DialogSelector  string        `yaml:"dialog_selector"`
	AppearDelay     time.Duration `yaml:"appear_delay"`
	OverlayTimeout  time.Duration `yaml:"overlay_timeout"`
	StabilizeDelay  time.Duration `yaml:"stabilize_delay"`
	AllowedDialogs  []string      `yaml:"allowed_dialogs"`
	OverlayPolicy   string        `yaml:"overlay_policy"`
}

type RetryConfig struct {
	Retries int           `yaml:"retries"`
	Delay   time.Duration `yaml:"delay"`
}

type HandlerConfig struct {
	ElementTimeout    time.Duration `yaml:"element_timeout"`
	AccordionDelay    time.Duration `yaml:"accordion_delay"`
	AutocompletePause time.Duration `yaml:"autocomplete_pause"`
	SuggestionTimeout time.Duration `yaml:"suggestion_timeout"`
	OptionsLocator    string        `yaml:"options_locator"`
	ToggleSelector    string        `yaml:"toggle_selector"`
	ResetPasses       int           `yaml:"reset_passes"`
}

type PDAConfig struct {
	StartURL       string        `yaml:"start_url"`
	EntryLocators  []string      `yaml:"entry_locators"`
	TargetFragment string        `yaml:"target_fragment"`
	URLTimeout     time.Duration `yaml:"url_timeout"`
}

type JobsConfig struct {
	// LogPath receives one JSON line per finished job.
	LogPath string `yaml:"log_path"`
	// DBPath enables the SQLite journal when set.
	DBPath string `yaml:"db_path"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// File receives the JSON log stream of the process when set.
	File string `yaml:"file"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Browser: BrowserConfig{
			Headless: true,
			Width:    1366,
			Height:   900,
		},
		Engine: EngineConfig{SettleDelay: core.DefaultSettleDelay},
		Guard: GuardConfig{
			OverlaySelector: guard.DefaultOverlaySelector,
			DialogSelector:  guard.DefaultDialogSelector,
			AppearDelay:     guard.DefaultAppearDelay,
			OverlayTimeout:  guard.DefaultOverlayTimeout,
			StabilizeDelay:  guard.DefaultStabilizeDelay,
			OverlayPolicy:   string(guard.OverlayWarn),
		},
		Retry: RetryConfig{Retries: retry.DefaultRetries, Delay: retry.DefaultDelay},
		Handlers: HandlerConfig{
			ElementTimeout:    handlers.DefaultElementTimeout,
			AccordionDelay:    handlers.DefaultAccordionDelay,
			AutocompletePause: handlers.DefaultAutocompletePause,
			SuggestionTimeout: handlers.DefaultSuggestionTimeout,
			OptionsLocator:    handlers.DefaultOptionsLocator,
		},
		Jobs:   JobsConfig{LogPath: "jobs.log"},
		Server: ServerConfig{Addr: ":3000"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("reading config %q: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing config %q: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	var errs []error
	integer := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + key); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	integer("TOOLS_RETRY", &c.Retry.Retries)
	duration("TOOLS_RETRY_DELAY", &c.Retry.Delay)
	boolean("HEADLESS", &c.Browser.Headless)
	str("CONTROL_URL", &c.Browser.ControlURL)
	str("BROWSER_BIN", &c.Browser.Bin)
	str("DEFAULT_URL", &c.Browser.DefaultURL)
	str("JOBS_LOG", &c.Jobs.LogPath)
	str("JOBS_DB", &c.Jobs.DBPath)
	str("ADDR", &c.Server.Addr)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FILE", &c.Log.File)
	str("OVERLAY_POLICY", &c.Guard.OverlayPolicy)
	str("PDA_START_URL", &c.PDA.StartURL)
	if v, ok := lookup(EnvPrefix + "SECRET_VARS"); ok {
		c.SecretVars = splitList(v)
	}
	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	switch guard.OverlayPolicy(c.Guard.OverlayPolicy) {
	case guard.OverlayWarn, guard.OverlayFail:
	default:
		return fmt.Errorf("overlay_policy must be %q or %q, got %q", guard.OverlayWarn, guard.OverlayFail, c.Guard.OverlayPolicy)
	}
	if c.Retry.Retries < 0 {
		return fmt.Errorf("retry.retries must not be negative, got %d", c.Retry.Retries)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

func (c Config) LogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func (c Config) BrowserOptions() browser.Options {
	return browser.Options{
		ControlURL: c.Browser.ControlURL,
		Headless:   c.Browser.Headless,
		Bin:        c.Browser.Bin,
		DefaultURL: c.Browser.DefaultURL,
		Width:      c.Browser.Width,
		Height:     c.Browser.Height,
	}
}

func (c Config) DetectorOptions() guard.Options {
	return guard.Options{
		OverlaySelector: c.Guard.OverlaySelector,
		DialogSelector:  c.Guard.DialogSelector,
		AppearDelay:     c.Guard.AppearDelay,
		OverlayTimeout:  c.Guard.OverlayTimeout,
		StabilizeDelay:  c.Guard.StabilizeDelay,
		AllowedDialogs:  c.Guard.AllowedDialogs,
		Policy:          guard.OverlayPolicy(c.Guard.OverlayPolicy),
	}
}

func (c Config) RetryPolicy() retry.Policy {
	return retry.Policy{Retries: c.Retry.Retries, Delay: c.Retry.Delay}
}

func (c Config) HandlerSettings() handlers.Settings {
	return handlers.Settings{
		ElementTimeout:    c.Handlers.ElementTimeout,
		AccordionDelay:    c.Handlers.AccordionDelay,
		AutocompletePause: c.Handlers.AutocompletePause,
		SuggestionTimeout: c.Handlers.SuggestionTimeout,
		OptionsLocator:    c.Handlers.OptionsLocator,
		Reset: handlers.ResetSettings{
			ToggleSelector: c.Handlers.ToggleSelector,
			Passes:         c.Handlers.ResetPasses,
		},
		PDA: handlers.PDASettings{
			StartURL:       c.PDA.StartURL,
			EntryLocators:  c.PDA.EntryLocators,
			TargetFragment: c.PDA.TargetFragment,
			URLTimeout:     c.PDA.URLTimeout,
		},
	}.WithDefaults()
}

// Apply configures engine from c.
func (c Config) Apply(engine *core.Engine) {
	engine.Detector = guard.NewDetector(c.DetectorOptions(), engine.Logger)
	engine.Retry = c.RetryPolicy()
	engine.Settings = c.HandlerSettings()
	engine.SettleDelay = c.Engine.SettleDelay
}
