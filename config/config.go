// Package config loads the importer settings.
//
// Values are taken, in order of priority, from command line flags that were
// explicitly set, ZONEPUSH_* environment variables (a .env file in the working
// directory is loaded first), an optional INI file, and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/lanrat/zonepush/liquidns"
	"github.com/lanrat/zonepush/plan"
	"github.com/spf13/pflag"
	"gopkg.in/ini.v1"
)

// ErrMissingOption is returned by Validate when a required setting is empty
var ErrMissingOption = errors.New("missing required option")

// Config holds all configuration
type Config struct {
	File     string
	Username string
	Password string
	Verbose  bool
	DryRun   bool
	Yes      bool

	API  APIConfig
	Push PushConfig
	Log  LogConfig
}

// APIConfig holds the hosting provider settings
type APIConfig struct {
	URL         string
	Nameserver  string
	RecordLabel string
}

// PushConfig holds push settings
type PushConfig struct {
	Parallel   int
	SavePath   string
	StatusPort string
	PSLFile    string
}

// LogConfig holds log output settings
type LogConfig struct {
	File       string
	MaxSize    int // megabytes
	MaxAge     int // days
	MaxBackups int
}

// source resolves a single setting.
type source struct {
	flags *pflag.FlagSet
	ini   *ini.File
}

func (s source) flagChanged(name string) bool {
	if s.flags == nil {
		return false
	}
	f := s.flags.Lookup(name)
	return f != nil && f.Changed
}

func (s source) iniValue(section, key string) (string, bool) {
	if s.ini == nil || !s.ini.Section(section).HasKey(key) {
		return "", false
	}
	return s.ini.Section(section).Key(key).String(), true
}

// str resolves a string setting: flag > env > ini > default.
func (s source) str(flag, env, section, key, def string) string {
	if s.flagChanged(flag) {
		v, _ := s.flags.GetString(flag)
		return v
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	if v, ok := s.iniValue(section, key); ok && v != "" {
		return v
	}
	return def
}

func (s source) integer(flag, env, section, key string, def int) int {
	if s.flagChanged(flag) {
		v, _ := s.flags.GetInt(flag)
		return v
	}
	if v := os.Getenv(env); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	if s.ini != nil && s.ini.Section(section).HasKey(key) {
		if i, err := s.ini.Section(section).Key(key).Int(); err == nil {
			return i
		}
	}
	return def
}

func (s source) boolean(flag, env, section, key string, def bool) bool {
	if s.flagChanged(flag) {
		v, _ := s.flags.GetBool(flag)
		return v
	}
	if v := os.Getenv(env); v != "" {
		return v == "1" || strings.EqualFold(v, "true")
	}
	if s.ini != nil && s.ini.Section(section).HasKey(key) {
		if b, err := s.ini.Section(section).Key(key).Bool(); err == nil {
			return b
		}
	}
	return def
}

// Load builds the configuration. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	s := source{flags: flags}
	iniPath := s.str("config", "ZONEPUSH_CONFIG", "", "", "")
	if iniPath != "" {
		f, err := ini.Load(iniPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load INI file: %w", err)
		}
		s.ini = f
	}

	cfg := &Config{
		File:     s.str("file", "ZONEPUSH_FILE", "", "file", ""),
		Username: s.str("username", "ZONEPUSH_USERNAME", "auth", "username", ""),
		Password: s.str("password", "ZONEPUSH_PASSWORD", "auth", "password", ""),
		Verbose:  s.boolean("verbose", "ZONEPUSH_VERBOSE", "log", "verbose", false),
		DryRun:   s.boolean("dry-run", "ZONEPUSH_DRY_RUN", "push", "dry_run", false),
		Yes:      s.boolean("yes", "ZONEPUSH_YES", "push", "yes", false),
		API: APIConfig{
			URL:         s.str("api-url", "ZONEPUSH_API_URL", "api", "url", liquidns.DefaultBaseURL),
			Nameserver:  s.str("nameserver", "ZONEPUSH_NAMESERVER", "api", "nameserver", plan.DefaultNameserver),
			RecordLabel: s.str("record-label", "ZONEPUSH_RECORD_LABEL", "api", "record_label", liquidns.DefaultRecordLabel),
		},
		Push: PushConfig{
			Parallel:   s.integer("parallel", "ZONEPUSH_PARALLEL", "push", "parallel", 4),
			SavePath:   s.str("save", "ZONEPUSH_SAVE", "push", "save", ""),
			StatusPort: s.str("status-port", "ZONEPUSH_STATUS_PORT", "push", "status_port", ""),
			PSLFile:    s.str("psl-file", "ZONEPUSH_PSL_FILE", "push", "psl_file", ""),
		},
		Log: LogConfig{
			File:       s.str("log-file", "ZONEPUSH_LOG_FILE", "log", "file", ""),
			MaxSize:    s.integer("", "ZONEPUSH_LOG_MAX_SIZE", "log", "max_size", 10),
			MaxAge:     s.integer("", "ZONEPUSH_LOG_MAX_AGE", "log", "max_age", 7),
			MaxBackups: s.integer("", "ZONEPUSH_LOG_MAX_BACKUPS", "log", "max_backups", 1),
		},
	}
	if cfg.Push.Parallel < 1 {
		cfg.Push.Parallel = 1
	}
	return cfg, nil
}

// Validate checks that every option needed for the run is set.
// Credentials are only required when records are actually pushed.
func (c *Config) Validate() error {
	var missing []string
	if c.File == "" {
		missing = append(missing, "file")
	}
	if !c.DryRun {
		if c.Username == "" {
			missing = append(missing, "username")
		}
		if c.Password == "" {
			missing = append(missing, "password")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingOption, strings.Join(missing, ", "))
	}
	return nil
}
