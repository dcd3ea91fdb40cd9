package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Values accepted by auth.mode and publish.mode.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"

	PublishModeDisabled = "disabled"
	PublishModeGist     = "gist"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Store    StoreConfig       `yaml:"store"`
	Ingest   IngestConfig      `yaml:"ingest"`
	Calendar CalendarConfig    `yaml:"calendar"`
	Publish  PublishConfig     `yaml:"publish"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate checks every section and returns the first failure.
func (c *Config) Validate() error {
	sections := []interface{ Validate() error }{
		&c.App, &c.Store, &c.Calendar, &c.Publish, &c.Auth,
	}
	for _, s := range sections {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// LogLevel wraps slog.Level so YAML configs can spell levels by name.
type LogLevel slog.Level

// UnmarshalYAML accepts numeric slog levels as well as the usual names
// ("debug", "info", "warn", "error"), case-insensitively.
func (l *LogLevel) UnmarshalYAML(value *yaml.Node) error {
	var n int
	if err := value.Decode(&n); err == nil {
		*l = LogLevel(n)
		return nil
	}
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(value.Value)); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	*l = LogLevel(lv)
	return nil
}

// Level converts back to the slog representation.
func (l LogLevel) Level() slog.Level { return slog.Level(l) }

// ApplicationConfig holds the process-level settings: log verbosity and
// the HTTP listener.
type ApplicationConfig struct {
	LogLevel LogLevel   `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate delegates to the nested HTTP section; any LogLevel value
// that decodes is legal.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds the listener settings. An empty Host binds every
// interface.
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address renders the configured host and port as a listen address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks that the port is a usable TCP port and the host, when
// set, fits in a DNS name.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Host, validation.Length(0, 253)),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StoreConfig holds event database configuration.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// IngestConfig holds CSV ingestion configuration.
//
// DateFormat and TimeFormat are Go reference layouts; empty values fall
// back to the Outlook export defaults ("01/02/2006", "3:04 PM"). Inbox
// is an optional drop directory watched for CSV files; empty disables
// the watcher.
type IngestConfig struct {
	DateFormat string `yaml:"date_format"`
	TimeFormat string `yaml:"time_format"`
	Inbox      string `yaml:"inbox"`
}

// CalendarConfig controls how the ICS feed is rendered.
type CalendarConfig struct {
	WindowMonths int    `yaml:"window_months"`
	FoldLines    bool   `yaml:"fold_lines"`
	Timezone     string `yaml:"timezone"`
	ProdID       string `yaml:"prod_id"`
}

// Validate validates the calendar configuration.
func (c *CalendarConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.WindowMonths, validation.Required, validation.Min(1), validation.Max(36)),
	)
}

// PublishConfig holds gist publication configuration.
//
// Mode controls whether the calendar is pushed anywhere:
//   - "disabled" (default): store and render only, never publish.
//   - "gist": PATCH the rendered feed into the configured GitHub Gist;
//     GithubToken and GistID must be non-empty.
//
// Refresh is an optional cron expression (standard 5-field form); when
// set, the server republishes on that schedule so the feed tracks the
// rolling window even without new imports.
type PublishConfig struct {
	Mode        string `yaml:"mode"`
	GithubToken string `yaml:"github_token"`
	GistID      string `yaml:"gist_id"`
	Filename    string `yaml:"filename"`
	Refresh     string `yaml:"refresh"`
}

// Validate validates the publish configuration.
func (c *PublishConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = PublishModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(PublishModeDisabled, PublishModeGist)),
	); err != nil {
		return err
	}
	if c.Mode == PublishModeGist {
		if c.GithubToken == "" {
			return fmt.Errorf("publish: mode is %q but github_token is empty", PublishModeGist)
		}
		if c.GistID == "" {
			return fmt.Errorf("publish: mode is %q but gist_id is empty", PublishModeGist)
		}
	}
	if c.Refresh != "" {
		if _, err := cron.ParseStandard(c.Refresh); err != nil {
			return fmt.Errorf("publish: bad refresh schedule %q: %w", c.Refresh, err)
		}
	}
	return nil
}

// Enabled returns true when publishing is active.
func (c *PublishConfig) Enabled() bool {
	return c.Mode == PublishModeGist
}

// AuthConfig controls access to the /api routes.
//
// With mode "token", every request must present "Authorization: Bearer
// <token>". The default "disabled" leaves the API open, which suits a
// single-user deployment on a trusted network. The /calendar.ics feed is
// never gated either way.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate normalizes an empty mode to "disabled" and checks that token
// auth actually carries a token.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.In(AuthModeDisabled, AuthModeToken)),
		validation.Field(&c.Token, validation.Required.When(c.Mode == AuthModeToken).Error("required for token auth")),
	)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	return nil
}

// Enabled reports whether requests must carry the bearer token.
func (c *AuthConfig) Enabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a Config with workable defaults: serve on
// :8080, store beside the binary, render a three month window, publish
// and auth disabled.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: LogLevel(slog.LevelInfo),
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Store: StoreConfig{
			Path: "./gistcal.db",
		},
		Calendar: CalendarConfig{
			WindowMonths: 3,
			FoldLines:    true,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Publish: PublishConfig{
			Mode:     PublishModeDisabled,
			Filename: "events.ics",
		},
	}
}
