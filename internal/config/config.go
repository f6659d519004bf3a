// Package config loads and validates the application configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nhle/mail-reconciler/internal/credential"
	"github.com/nhle/mail-reconciler/internal/logging"
)

// DefaultPath is where the config file is looked for when no flag
// overrides it.
const DefaultPath = "config.yaml"

// FilterConfig narrows which inbox messages a run considers.
type FilterConfig struct {
	// Subject lists subject substrings; a message qualifies when any
	// one of them appears in its subject. Empty means no subject
	// filtering.
	Subject []string `mapstructure:"subject" yaml:"subject"`

	// DaysBack bounds the search to messages received within the last
	// N days. Zero or negative disables the bound.
	DaysBack int `mapstructure:"days_back" yaml:"days_back"`
}

// IMAPConfig holds the mailbox connection settings.
type IMAPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`

	// Password may be left empty in the file; the system keyring is
	// consulted under the imap_password key before validation.
	Password string `mapstructure:"password" yaml:"password"`

	// Folder is the mailbox to select, INBOX by default.
	Folder string `mapstructure:"folder" yaml:"folder"`

	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	Filters FilterConfig `mapstructure:"filters" yaml:"filters"`
}

// Addr returns the host:port dial address.
func (c IMAPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Timeout returns the dial timeout as a duration.
func (c IMAPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// LMStudioConfig holds the extraction endpoint settings.
type LMStudioConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`

	// Model is the identifier of the loaded model. The client refuses
	// to start against anything but the model it was tuned for.
	Model string `mapstructure:"model" yaml:"model"`

	// Version is the LM Studio server version, checked the same way.
	Version string `mapstructure:"version" yaml:"version"`

	TimeoutSec  int     `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
}

// BaseURL returns the server's root URL.
func (c LMStudioConfig) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}

// Timeout returns the request timeout as a duration.
func (c LMStudioConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// BackupConfig controls tabular file backups.
type BackupConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// KeepDays is how long timestamped backups are retained before
	// cleanup removes them.
	KeepDays int `mapstructure:"keep_days" yaml:"keep_days"`
}

// TableConfig holds the tabular store settings.
type TableConfig struct {
	Path string `mapstructure:"path" yaml:"path"`

	// Columns maps extraction field names to the table's column
	// headers, e.g. price_usd -> "Price USD". Only mapped fields are
	// ever written.
	Columns map[string]string `mapstructure:"columns" yaml:"columns"`

	// MailColumn is the header of the column holding the primary
	// contact address.
	MailColumn string `mapstructure:"mail_column" yaml:"mail_column"`

	// ResponseMailColumn is the header of the column recording who
	// actually replied.
	ResponseMailColumn string `mapstructure:"response_mail_column" yaml:"response_mail_column"`

	Backup BackupConfig `mapstructure:"backup" yaml:"backup"`
}

// LedgerConfig locates the sqlite file recording run history. An empty
// path disables the ledger.
type LedgerConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// Config is the top-level application configuration.
type Config struct {
	Table    TableConfig    `mapstructure:"table" yaml:"table"`
	IMAP     IMAPConfig     `mapstructure:"imap" yaml:"imap"`
	LMStudio LMStudioConfig `mapstructure:"lm_studio" yaml:"lm_studio"`
	Ledger   LedgerConfig   `mapstructure:"ledger" yaml:"ledger"`
	Logging  logging.Config `mapstructure:"logging" yaml:"logging"`
}

// Load reads the YAML config at path, applies defaults and environment
// overrides, fills the IMAP password from the keyring when the file
// leaves it empty, and validates the result. Environment variables use
// the MAILREC_ prefix with underscores for dots, e.g.
// MAILREC_IMAP_PASSWORD.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	setDefaults(v)

	v.SetEnvPrefix("MAILREC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.IMAP.Password == "" {
		if pw, err := credential.Get(credential.KeyIMAPPassword); err == nil {
			cfg.IMAP.Password = pw
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("imap.port", 993)
	v.SetDefault("imap.folder", "INBOX")
	v.SetDefault("imap.timeout_sec", 30)
	v.SetDefault("imap.filters.days_back", 30)

	v.SetDefault("lm_studio.host", "localhost")
	v.SetDefault("lm_studio.port", 1234)
	v.SetDefault("lm_studio.timeout_sec", 30)
	v.SetDefault("lm_studio.max_tokens", 2000)
	v.SetDefault("lm_studio.temperature", 0.7)

	v.SetDefault("table.backup.enabled", true)
	v.SetDefault("table.backup.keep_days", 30)

	v.SetDefault("logging.level", "info")
}

// Validate checks every setting a run cannot start without.
func (c *Config) Validate() error {
	var problems []string

	if c.Table.Path == "" {
		problems = append(problems, "table.path is required")
	}
	if c.Table.MailColumn == "" {
		problems = append(problems, "table.mail_column is required")
	}
	if c.Table.ResponseMailColumn == "" {
		problems = append(problems, "table.response_mail_column is required")
	}
	if len(c.Table.Columns) == 0 {
		problems = append(problems, "table.columns must map at least one field")
	}

	if c.IMAP.Host == "" {
		problems = append(problems, "imap.host is required")
	}
	if c.IMAP.Port <= 0 || c.IMAP.Port > 65535 {
		problems = append(problems, "imap.port must be between 1 and 65535")
	}
	if c.IMAP.Username == "" {
		problems = append(problems, "imap.username is required")
	}
	if c.IMAP.Password == "" {
		problems = append(problems,
			"imap.password is required (config file, keyring, or MAILREC_IMAP_PASSWORD)")
	}

	if c.LMStudio.Host == "" {
		problems = append(problems, "lm_studio.host is required")
	}
	if c.LMStudio.Port <= 0 || c.LMStudio.Port > 65535 {
		problems = append(problems, "lm_studio.port must be between 1 and 65535")
	}
	if c.LMStudio.Model == "" {
		problems = append(problems, "lm_studio.model is required")
	}
	if c.LMStudio.Version == "" {
		problems = append(problems, "lm_studio.version is required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
