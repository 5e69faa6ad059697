package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/loykin/apicall"
	"github.com/loykin/apicall/internal/common"
	"github.com/loykin/apicall/internal/httpc"
	"github.com/loykin/apicall/internal/util"
	"gopkg.in/yaml.v3"
)

type LoggingConfig struct {
	Level         string `mapstructure:"level" yaml:"level"`                   // error, warn, info, debug
	Format        string `mapstructure:"format" yaml:"format"`                 // text, json
	MaskSensitive *bool  `mapstructure:"mask_sensitive" yaml:"mask_sensitive"` // enable/disable sensitive data masking
	Color         *bool  `mapstructure:"color" yaml:"color"`                   // enable/disable colorized output
}

type RetryConfig struct {
	MaxAttempts int     `mapstructure:"max_attempts" yaml:"max_attempts"`
	Multiplier  float64 `mapstructure:"multiplier" yaml:"multiplier"`
	// Durations such as "500ms" or "2s".
	InitialDelay   string `mapstructure:"initial_delay" yaml:"initial_delay"`
	AttemptTimeout string `mapstructure:"attempt_timeout" yaml:"attempt_timeout"`
	// Statuses are non-200 codes retried like transport failures.
	Statuses []int `mapstructure:"statuses" yaml:"statuses"`
}

type ClientConfig struct {
	Insecure      bool   `mapstructure:"insecure" yaml:"insecure"`
	MinTLSVersion string `mapstructure:"min_tls_version" yaml:"min_tls_version"`
	MaxTLSVersion string `mapstructure:"max_tls_version" yaml:"max_tls_version"`
	Timeout       string `mapstructure:"timeout" yaml:"timeout"`
}

type CredentialsConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	Base   string `mapstructure:"base" yaml:"base"`
}

type PromptConfig struct {
	KeyEnv   string `mapstructure:"key_env" yaml:"key_env"`
	KeyParam string `mapstructure:"key_param" yaml:"key_param"`
	TextPath string `mapstructure:"text_path" yaml:"text_path"`
}

type SQLiteStoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type StoreConfig struct {
	Disabled    bool                   `mapstructure:"disabled" yaml:"disabled"`
	Type        string                 `mapstructure:"type" yaml:"type"`
	SQLite      SQLiteStoreConfig      `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres    apicall.PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
	TablePrefix string                 `mapstructure:"table_prefix" yaml:"table_prefix"`
}

// ToStoreConfig returns nil when history is disabled or not configured.
func (c *StoreConfig) ToStoreConfig() *apicall.StoreConfig {
	if c.Disabled {
		return nil
	}
	switch util.TrimAndLower(c.Type) {
	case "":
		return nil
	case apicall.DriverPostgres, "postgresql", "pg":
		pg := c.Postgres
		return &apicall.StoreConfig{Driver: apicall.DriverPostgres, TablePrefix: c.TablePrefix, DriverConfig: &pg}
	default:
		path := util.ExpandHome(strings.TrimSpace(c.SQLite.Path))
		if path == "" {
			path = defaultHistoryPath()
		}
		return &apicall.StoreConfig{
			Driver:       apicall.DriverSqlite,
			TablePrefix:  c.TablePrefix,
			DriverConfig: &apicall.SqliteConfig{Path: path},
		}
	}
}

func defaultHistoryPath() string {
	return filepath.Join(util.ExpandHome("~/.apicall"), apicall.StoreDBFileName)
}

type ConfigDoc struct {
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Retry       RetryConfig       `mapstructure:"retry" yaml:"retry"`
	Client      ClientConfig      `mapstructure:"client" yaml:"client"`
	Credentials CredentialsConfig `mapstructure:"credentials" yaml:"credentials"`
	Output      OutputConfig      `mapstructure:"output" yaml:"output"`
	Prompt      PromptConfig      `mapstructure:"prompt" yaml:"prompt"`
	Store       StoreConfig       `mapstructure:"store" yaml:"store"`
	// OAuth2 maps an API name to a token provider (grant_type, token_url, client_id, ...).
	OAuth2 map[string]map[string]interface{} `mapstructure:"oauth2" yaml:"oauth2"`
}

func (c *ConfigDoc) Load(path string) error {
	clean := filepath.Clean(util.ExpandHome(path))
	// Ensure path points to a regular file to avoid opening directories/special files
	if info, statErr := os.Stat(clean); statErr != nil || !info.Mode().IsRegular() {
		if statErr != nil {
			return statErr
		}
		return fmt.Errorf("not a regular file: %s", clean)
	}
	// #nosec G304 -- config path is provided intentionally by the user; cleaned and validated above
	f, err := os.Open(clean)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("parse config %s: %w", clean, err)
	}
	return nil
}

// HTTPClient converts the client section into transport settings.
func (c *ClientConfig) HTTPClient() (httpc.Httpc, error) {
	h := httpc.Httpc{TLSConfig: httpc.TLSOptions{
		Insecure:   c.Insecure,
		MinVersion: c.MinTLSVersion,
		MaxVersion: c.MaxTLSVersion,
	}.Config()}
	if t := strings.TrimSpace(c.Timeout); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return h, fmt.Errorf("invalid client.timeout %q: %w", c.Timeout, err)
		}
		h.Timeout = d
	}
	return h, nil
}

// SetupLogging configures the global logger based on config settings
func (c *ConfigDoc) SetupLogging(w io.Writer) (*common.Logger, error) {
	level, err := common.ParseLogLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}

	var logger *common.Logger
	format := util.TrimAndLower(c.Logging.Format)
	switch format {
	case "json":
		logger = common.NewJSONLoggerTo(w, level)
	case "text", "":
		logger = common.NewLineLogger(w, level)
		if c.Logging.Color != nil {
			if h, ok := logger.Handler().(*common.LineHandler); ok {
				h.SetColorEnabled(*c.Logging.Color)
			}
		}
	default:
		return nil, fmt.Errorf("invalid logging format: %s (valid: text, json)", c.Logging.Format)
	}

	maskingEnabled := true
	if c.Logging.MaskSensitive != nil {
		maskingEnabled = *c.Logging.MaskSensitive
	}
	logger.EnableMasking(maskingEnabled)
	common.GetGlobalMasker().SetEnabled(maskingEnabled)

	common.SetDefaultLogger(logger)
	logger.Debug("logging configured", "level", level.String(), "format", format, "mask_sensitive", maskingEnabled)
	return logger, nil
}
