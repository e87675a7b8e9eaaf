// Package config loads version-check settings from a YAML file and the
// process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/holon-run/version-check/pkg/log"
)

// DefaultPath is read when no --config flag or VERSION_CHECK_CONFIG is given.
// A missing default file is not an error.
const DefaultPath = "version-check.yaml"

const (
	DefaultPort          = 8888
	DefaultWebhookPath   = "/version-check"
	DefaultQueueSize     = 32
	DefaultNotifyTimeout = 10 * time.Second
)

var (
	remotePattern     = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	repositoryPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+/[A-Za-z0-9._-]+$`)
)

// ErrMissingSigningSecret is returned by ValidateServe when no Slack signing
// secret is configured.
var ErrMissingSigningSecret = errors.New("slack signing secret is required (set SLACK_SIGNING_SECRET)")

// Config is built once at startup and passed to the components that need it.
type Config struct {
	Git     GitConfig     `yaml:"git"`
	Log     LogConfig     `yaml:"log,omitempty"`
	Webhook WebhookConfig `yaml:"webhook,omitempty"`
	GitHub  GitHubConfig  `yaml:"github,omitempty"`
}

type GitConfig struct {
	Binary         string        `yaml:"binary,omitempty"`
	Dir            string        `yaml:"dir"`
	Remote         string        `yaml:"remote,omitempty"`
	CommandTimeout time.Duration `yaml:"command_timeout,omitempty"`
}

type LogConfig struct {
	Level string `yaml:"level,omitempty"`
	File  string `yaml:"file,omitempty"`
}

type WebhookConfig struct {
	Port          int           `yaml:"port,omitempty"`
	Path          string        `yaml:"path,omitempty"`
	SigningSecret string        `yaml:"signing_secret,omitempty"`
	QueueSize     int           `yaml:"queue_size,omitempty"`
	FetchInterval time.Duration `yaml:"fetch_interval,omitempty"`
	NotifyTimeout time.Duration `yaml:"notify_timeout,omitempty"`
	StateDir      string        `yaml:"state_dir,omitempty"`
}

// GitHubConfig enables pull request metadata in webhook replies. Repository
// is "owner/name"; enrichment is off when it is empty.
type GitHubConfig struct {
	Token      string `yaml:"token,omitempty"`
	Repository string `yaml:"repository,omitempty"`
	BaseURL    string `yaml:"base_url,omitempty"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Git: GitConfig{
			Binary: "git",
			Dir:    ".git",
			Remote: "origin",
		},
		Log: LogConfig{Level: "info"},
		Webhook: WebhookConfig{
			Port:          DefaultPort,
			Path:          DefaultWebhookPath,
			QueueSize:     DefaultQueueSize,
			NotifyTimeout: DefaultNotifyTimeout,
		},
	}
}

// LoadFile reads path over the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// Load resolves the configuration file and applies environment overrides.
// An explicit path must exist; the default path may be absent.
func Load(path string) (Config, error) {
	explicit := true
	if path == "" {
		path = os.Getenv("VERSION_CHECK_CONFIG")
	}
	if path == "" {
		path = DefaultPath
		explicit = false
	}

	cfg := Default()
	if _, err := os.Stat(path); err == nil || explicit {
		loaded, err := LoadFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
		log.Debug("loaded config file", "path", path)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"VERSION_CHECK_GIT_DIR":           &c.Git.Dir,
		"VERSION_CHECK_REMOTE":            &c.Git.Remote,
		"VERSION_CHECK_GIT_BINARY":        &c.Git.Binary,
		"SLACK_SIGNING_SECRET":            &c.Webhook.SigningSecret,
		"LOG_LEVEL":                       &c.Log.Level,
		"VERSION_CHECK_LOG_FILE":          &c.Log.File,
		"GITHUB_TOKEN":                    &c.GitHub.Token,
		"VERSION_CHECK_GITHUB_REPOSITORY": &c.GitHub.Repository,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	if v, ok := lookup("VERSION_CHECK_PORT"); ok && strings.TrimSpace(v) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid VERSION_CHECK_PORT %q: %w", v, err)
		}
		c.Webhook.Port = port
	}
	return nil
}

// Validate checks the settings every command needs.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Git.Dir) == "" {
		return errors.New("git.dir is required")
	}
	if !remotePattern.MatchString(c.Git.Remote) {
		return fmt.Errorf("invalid git.remote %q", c.Git.Remote)
	}
	if c.Git.CommandTimeout < 0 {
		return fmt.Errorf("git.command_timeout must not be negative: %s", c.Git.CommandTimeout)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}
	if c.GitHub.Repository != "" && !repositoryPattern.MatchString(c.GitHub.Repository) {
		return fmt.Errorf("invalid github.repository %q: expected owner/name", c.GitHub.Repository)
	}
	return nil
}

// ValidateServe checks the webhook settings on top of Validate.
func (c Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Webhook.Port < 1 || c.Webhook.Port > 65535 {
		return fmt.Errorf("invalid webhook.port %d", c.Webhook.Port)
	}
	if !strings.HasPrefix(c.Webhook.Path, "/") {
		return fmt.Errorf("webhook.path must start with '/': %q", c.Webhook.Path)
	}
	if c.Webhook.QueueSize < 1 {
		return fmt.Errorf("webhook.queue_size must be positive: %d", c.Webhook.QueueSize)
	}
	if c.Webhook.FetchInterval < 0 {
		return fmt.Errorf("webhook.fetch_interval must not be negative: %s", c.Webhook.FetchInterval)
	}
	if strings.TrimSpace(c.Webhook.SigningSecret) == "" {
		return ErrMissingSigningSecret
	}
	return nil
}

// Addr is the listen address for the webhook server.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Webhook.Port)
}
