package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/holon-run/version-check/pkg/config"
	"github.com/holon-run/version-check/pkg/git"
	"github.com/holon-run/version-check/pkg/log"
	"github.com/holon-run/version-check/pkg/process"
	"github.com/holon-run/version-check/pkg/search"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	gitDir     string
	remote     string
	logLevel   string
}

type searchOptions struct {
	pullRequest string
	commit      string
	branches    []string
	tags        []string
	skipFetch   bool
	output      string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globalOptions{}
	opts := &searchOptions{}

	rootCmd := &cobra.Command{
		Use:   "version-check",
		Short: "Find the branches and release tags that contain a pull request or commit",
		Long: `version-check reports which published branches and release tags of a
repository contain a pull request or a commit.

Only branches of the canonical remote are considered, and only tags that
follow the release naming convention (a leading "v").

Examples:
  version-check -p 4521
  version-check -c 3f2a9c1 -b develop -b 2019.2
  version-check -p 4521 -t v2019.2.0 --skip-fetch -o json`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			if err := log.Init(log.Config{Level: log.LogLevel(cfg.Log.Level), Output: stderr, File: cfg.Log.File}); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer log.Sync()
			return runSearch(cmd, cfg, opts, stdout)
		},
	}
	rootCmd.SetVersionTemplate("version-check {{.Version}}\n")
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "Path to a YAML config file (default version-check.yaml, or $VERSION_CHECK_CONFIG)")
	pf.StringVar(&g.gitDir, "git-dir", "", "Repository to search, passed to git as --git-dir")
	pf.StringVar(&g.remote, "remote", "", "Canonical remote whose branches are reported (default origin)")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	f := rootCmd.Flags()
	f.StringVarP(&opts.pullRequest, "pull-request", "p", "", "Pull request number to search for")
	f.StringVarP(&opts.commit, "commit", "c", "", "Commit hash to search for")
	f.StringArrayVarP(&opts.branches, "branch", "b", nil, "Branch to search specifically (repeatable)")
	f.StringArrayVarP(&opts.tags, "tag", "t", nil, "Release tag to search specifically (repeatable)")
	f.BoolVar(&opts.skipFetch, "skip-fetch", false, "Do not fetch the latest refs from the remote")
	f.StringVarP(&opts.output, "output", "o", "text", "Output format: text or json")
	rootCmd.MarkFlagsMutuallyExclusive("pull-request", "commit")
	rootCmd.MarkFlagsOneRequired("pull-request", "commit")

	rootCmd.AddCommand(newServeCmd(g))
	rootCmd.AddCommand(newVersionCmd(stdout))
	return rootCmd
}

// loadConfig resolves file and environment settings, then applies the flags
// the user set explicitly.
func loadConfig(cmd *cobra.Command, g *globalOptions) (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("git-dir") {
		cfg.Git.Dir = g.gitDir
	}
	if flags.Changed("remote") {
		cfg.Git.Remote = g.remote
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newRepo(cfg config.Config) *git.Repo {
	runner := process.NewExecRunner(cfg.Git.CommandTimeout, git.Env()...)
	return git.New(runner, git.Options{
		Binary: cfg.Git.Binary,
		GitDir: cfg.Git.Dir,
		Remote: cfg.Git.Remote,
	})
}

func runSearch(cmd *cobra.Command, cfg config.Config, opts *searchOptions, stdout io.Writer) error {
	format := strings.ToLower(strings.TrimSpace(opts.output))
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid output format %q (expected text or json)", opts.output)
	}

	engine := search.NewEngine(newRepo(cfg))
	req := search.Request{
		PullRequest:   opts.pullRequest,
		Commit:        opts.commit,
		Fetch:         !opts.skipFetch,
		BranchFilters: opts.branches,
		TagFilters:    opts.tags,
	}
	log.Debug("starting search", "pull_request", req.PullRequest, "commit", req.Commit, "fetch", req.Fetch)

	res, err := engine.Search(cmd.Context(), req)
	if format == "json" {
		if err != nil {
			if werr := writeJSONError(stdout, err); werr != nil {
				return werr
			}
			return &reportedError{err: err}
		}
		return writeJSON(stdout, res)
	}
	if err != nil {
		return err
	}
	newTextRenderer(stdout).render(req, res)
	return nil
}
