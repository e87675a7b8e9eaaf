package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/holon-run/version-check/pkg/config"
	"github.com/holon-run/version-check/pkg/github"
	"github.com/holon-run/version-check/pkg/log"
	"github.com/holon-run/version-check/pkg/preflight"
	"github.com/holon-run/version-check/pkg/search"
	"github.com/holon-run/version-check/pkg/serve"
	"github.com/holon-run/version-check/pkg/slack"
)

type serveOptions struct {
	port          int
	path          string
	stateDir      string
	fetchInterval time.Duration
	skipPreflight bool
}

func newServeCmd(g *globalOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Slack slash command webhook server",
		Long: `Run an HTTP server that answers a Slack slash command.

Each request is verified with the Slack signing secret (SLACK_SIGNING_SECRET)
and acknowledged immediately. The search runs in the background and the
results are posted to the request's response_url.

The repository must already be cloned. Use --fetch-interval, or an external
job, to keep it up to date.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			applyServeFlags(cmd, &cfg, opts)
			if err := cfg.ValidateServe(); err != nil {
				return err
			}

			initServeLogging(cfg)
			defer log.Sync()

			return runServe(cmd.Context(), cfg, opts.skipPreflight)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.port, "port", config.DefaultPort, "Port to listen on (or $VERSION_CHECK_PORT)")
	f.StringVar(&opts.path, "path", config.DefaultWebhookPath, "Slash command request path")
	f.StringVar(&opts.stateDir, "state-dir", "", "Directory for searches.ndjson (disabled when empty)")
	f.DurationVar(&opts.fetchInterval, "fetch-interval", 0, "Fetch the remote on this interval (0 disables)")
	f.BoolVar(&opts.skipPreflight, "skip-preflight", false, "Skip the git, repository and state directory checks")
	return cmd
}

func applyServeFlags(cmd *cobra.Command, cfg *config.Config, opts *serveOptions) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Webhook.Port = opts.port
	}
	if flags.Changed("path") {
		cfg.Webhook.Path = opts.path
	}
	if flags.Changed("state-dir") {
		cfg.Webhook.StateDir = opts.stateDir
	}
	if flags.Changed("fetch-interval") {
		cfg.Webhook.FetchInterval = opts.fetchInterval
	}
}

// initServeLogging writes to the log file as well as stderr. A log file that
// cannot be opened degrades to stderr only.
func initServeLogging(cfg config.Config) {
	file := cfg.Log.File
	if file == "" {
		file = log.DefaultLogFile
	}
	level := log.LogLevel(cfg.Log.Level)
	if err := log.Init(log.Config{Level: level, Output: os.Stderr, File: file}); err != nil {
		_ = log.Init(log.Config{Level: level, Output: os.Stderr})
		log.Error("failed to open log file, logging to stderr only", "path", file, "error", err)
	}
}

func runServe(ctx context.Context, cfg config.Config, skipPreflight bool) error {
	repo := newRepo(cfg)
	checker := preflight.NewChecker(preflight.Config{
		Skip:             skipPreflight,
		Binary:           cfg.Git.Binary,
		Repo:             repo,
		StateDir:         cfg.Webhook.StateDir,
		GitHubRepository: cfg.GitHub.Repository,
		GitHubToken:      cfg.GitHub.Token,
	})
	if err := checker.Run(ctx); err != nil {
		return err
	}

	engine := search.NewEngine(repo)

	srvCfg := serve.Config{
		Port:          cfg.Webhook.Port,
		Path:          cfg.Webhook.Path,
		SigningSecret: cfg.Webhook.SigningSecret,
		QueueSize:     cfg.Webhook.QueueSize,
		FetchInterval: cfg.Webhook.FetchInterval,
		StateDir:      cfg.Webhook.StateDir,
		Searcher:      engine,
		Poster:        slack.NewClient(nil, cfg.Webhook.NotifyTimeout),
	}

	if cfg.GitHub.Repository != "" {
		repository, err := github.ParseRepository(cfg.GitHub.Repository)
		if err != nil {
			return err
		}
		client, err := github.NewClient(cfg.GitHub.Token, github.WithBaseURL(cfg.GitHub.BaseURL))
		if err != nil {
			return fmt.Errorf("failed to create github client: %w", err)
		}
		srvCfg.Lookup = client
		srvCfg.Repository = repository
		log.Info("pull request metadata enabled", "repository", repository.String())
	}

	ws, err := serve.New(srvCfg)
	if err != nil {
		return err
	}
	defer ws.Close()

	log.Info("serving version-check", "git_dir", cfg.Git.Dir, "remote", cfg.Git.Remote, "addr", cfg.Addr())
	if err := ws.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
