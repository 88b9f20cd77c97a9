package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

type Config struct {
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	ReportTimeout time.Duration `yaml:"report_timeout"`
	ChatTimeout   time.Duration `yaml:"chat_timeout"`
	TemplateID    int           `yaml:"template_id"`
	PageSize      int           `yaml:"page_size"`
	SessionKey    string        `yaml:"session_key"`
	SessionStore  string        `yaml:"session_store"`
	SessionDB     string        `yaml:"session_db"`
	LogPath       string        `yaml:"log_path"`
	LogLevel      string        `yaml:"log_level"`
}

// Options are the command-line flags. Unset flags leave the file value alone.
type Options struct {
	ConfigPath    string        `short:"c" long:"config" env:"SENTINEL_CONFIG" description:"Path to the YAML config file"`
	BaseURL       string        `long:"base-url" env:"SENTINEL_BASE_URL" description:"Backend API base URL"`
	Timeout       time.Duration `long:"timeout" env:"SENTINEL_TIMEOUT" description:"Timeout for listing and CRUD calls"`
	ReportTimeout time.Duration `long:"report-timeout" env:"SENTINEL_REPORT_TIMEOUT" description:"Timeout for report generation and manual fetches"`
	ChatTimeout   time.Duration `long:"chat-timeout" env:"SENTINEL_CHAT_TIMEOUT" description:"Timeout for assistant questions"`
	TemplateID    int           `long:"template-id" env:"SENTINEL_TEMPLATE_ID" description:"Report template used when none is chosen"`
	PageSize      int           `long:"page-size" env:"SENTINEL_PAGE_SIZE" description:"Rows per page for events and reports"`
	SessionKey    string        `long:"session-key" env:"SENTINEL_SESSION_KEY" description:"Conversation key for the assistant"`
	SessionStore  string        `long:"session-store" env:"SENTINEL_SESSION_STORE" choice:"memory" choice:"sqlite" description:"Where chat session ids are kept"`
	SessionDB     string        `long:"session-db" env:"SENTINEL_SESSION_DB" description:"SQLite DSN for the sqlite session store"`
	LogPath       string        `long:"log-path" env:"SENTINEL_LOG_PATH" description:"Log file path, or stderr/stdout"`
	LogLevel      string        `long:"log-level" env:"SENTINEL_LOG_LEVEL" description:"Log level (debug, info, warn, error)"`
	Print         string        `long:"print" choice:"dashboard" choice:"subscriptions" choice:"events" choice:"reports" choice:"templates" description:"Print one view and exit"`
}

var (
	errHelp        = errors.New("help requested")
	currentUser    = user.Current
	userConfigDir  = os.UserConfigDir
	userHomeDir    = os.UserHomeDir
	yamlMarshal    = yaml.Marshal
	sessionStores  = []string{"memory", "sqlite"}
	defaultLogName = "console.log"
)

func DefaultConfig() Config {
	return Config{
		BaseURL:       defaultBaseURL,
		Timeout:       defaultTimeout,
		ReportTimeout: defaultReportTimeout,
		ChatTimeout:   defaultChatTimeout,
		TemplateID:    defaultTemplateID,
		PageSize:      DefaultPageSize,
		SessionKey:    defaultSessionKey(),
		SessionStore:  "memory",
		SessionDB:     ":memory:",
		LogPath:       defaultLogPath(),
		LogLevel:      "info",
	}
}

// ParseOptions reads flags and SENTINEL_* variables. On -h it returns errHelp
// with the usage text in help.
func ParseOptions(args []string) (Options, string, error) {
	var opts Options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "sentinel"
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return opts, flagsErr.Message, errHelp
		}
		return opts, "", fmt.Errorf("parse flags: %w", err)
	}
	return opts, "", nil
}

// LoadConfig layers defaults, the YAML file and opts. The default file is
// written with defaults on first run; an explicit path must exist.
func LoadConfig(opts Options) (Config, error) {
	path := opts.ConfigPath
	explicit := path != ""
	if !explicit {
		path = configPath()
	}
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		if err := SaveConfig(path, cfg); err != nil {
			return Config{}, err
		}
	default:
		return Config{}, err
	}
	applyOptions(&cfg, opts)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	blob, err := yamlMarshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, blob, 0o600)
}

func applyOptions(cfg *Config, opts Options) {
	setString(&cfg.BaseURL, opts.BaseURL)
	setString(&cfg.SessionKey, opts.SessionKey)
	setString(&cfg.SessionStore, opts.SessionStore)
	setString(&cfg.SessionDB, opts.SessionDB)
	setString(&cfg.LogPath, opts.LogPath)
	setString(&cfg.LogLevel, opts.LogLevel)
	if opts.Timeout > 0 {
		cfg.Timeout = opts.Timeout
	}
	if opts.ReportTimeout > 0 {
		cfg.ReportTimeout = opts.ReportTimeout
	}
	if opts.ChatTimeout > 0 {
		cfg.ChatTimeout = opts.ChatTimeout
	}
	if opts.TemplateID > 0 {
		cfg.TemplateID = opts.TemplateID
	}
	if opts.PageSize > 0 {
		cfg.PageSize = opts.PageSize
	}
}

func setString(dst *string, value string) {
	if strings.TrimSpace(value) != "" {
		*dst = strings.TrimSpace(value)
	}
}

func (c Config) Validate() error {
	parsed, err := url.Parse(c.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid base_url %q", c.BaseURL)
	}
	if c.Timeout <= 0 || c.ReportTimeout <= 0 || c.ChatTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("invalid page_size %d", c.PageSize)
	}
	if c.TemplateID <= 0 {
		return fmt.Errorf("invalid template_id %d", c.TemplateID)
	}
	if strings.TrimSpace(c.SessionKey) == "" {
		return errors.New("session_key must not be empty")
	}
	if !isOneOf(c.SessionStore, sessionStores) {
		return fmt.Errorf("invalid session_store %q", c.SessionStore)
	}
	return nil
}

func configPath() string {
	configDir, err := userConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(configDir, "sentinel", "config.yaml")
}

func defaultLogPath() string {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := userHomeDir()
		if err != nil {
			return defaultLogName
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, "sentinel", defaultLogName)
}

func defaultSessionKey() string {
	u, err := currentUser()
	if err != nil || strings.TrimSpace(u.Username) == "" {
		return "console:operator"
	}
	return "console:" + u.Username
}
