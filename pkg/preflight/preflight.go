// Package preflight verifies that the environment can serve searches before
// the webhook server starts accepting requests.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/holon-run/version-check/pkg/log"
	"github.com/holon-run/version-check/pkg/process"
)

// CheckLevel represents the severity level of a preflight check
type CheckLevel int

const (
	// LevelError indicates a failure that prevents serving
	LevelError CheckLevel = iota
	// LevelWarn indicates a degraded but usable setup
	LevelWarn
	// LevelInfo indicates informational output
	LevelInfo
)

// CheckResult represents the result of a single preflight check
type CheckResult struct {
	Name    string
	Level   CheckLevel
	Message string
	Error   error
}

// Check represents a single preflight check
type Check interface {
	Name() string
	Run(ctx context.Context) CheckResult
}

// Git is the subset of git.Repo the repository check needs.
type Git interface {
	Run(ctx context.Context, args ...string) process.Result
	GitDir() string
	Remote() string
}

// Config selects which checks run.
type Config struct {
	// Skip skips all preflight checks
	Skip bool
	// Binary is the git executable to look up. Empty skips the check.
	Binary string
	// Repo is the repository searches run against. Nil skips the check.
	Repo Git
	// StateDir must be writable when set.
	StateDir string
	// GitHubRepository enables the token check when set.
	GitHubRepository string
	GitHubToken      string
}

// Checker runs a collection of preflight checks
type Checker struct {
	checks  []Check
	skipped bool
}

// NewChecker creates a checker with the checks cfg asks for.
func NewChecker(cfg Config) *Checker {
	c := &Checker{
		skipped: cfg.Skip,
	}
	if cfg.Binary != "" {
		c.checks = append(c.checks, &GitCheck{Binary: cfg.Binary})
	}
	if cfg.Repo != nil {
		c.checks = append(c.checks, &RepositoryCheck{Repo: cfg.Repo})
	}
	if cfg.StateDir != "" {
		c.checks = append(c.checks, &StateDirCheck{Path: cfg.StateDir})
	}
	if cfg.GitHubRepository != "" {
		c.checks = append(c.checks, &GitHubTokenCheck{
			Repository: cfg.GitHubRepository,
			Token:      cfg.GitHubToken,
		})
	}
	return c
}

// Run executes all registered checks and returns an error if any of them
// failed at LevelError.
func (c *Checker) Run(ctx context.Context) error {
	if c.skipped {
		log.Info("preflight checks skipped")
		return nil
	}

	var failures []string
	warnings := 0
	for _, check := range c.checks {
		result := check.Run(ctx)

		switch result.Level {
		case LevelError:
			log.Error("preflight check failed", "check", result.Name, "message", result.Message, "error", result.Error)
			failures = append(failures, fmt.Sprintf("%s: %s", result.Name, result.Message))
		case LevelWarn:
			log.Warn("preflight check warning", "check", result.Name, "message", result.Message)
			warnings++
		case LevelInfo:
			log.Info("preflight check", "check", result.Name, "message", result.Message)
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("preflight checks failed:\n  - %s", strings.Join(failures, "\n  - "))
	}
	log.Info("preflight checks passed", "warnings", warnings)
	return nil
}

// GitCheck checks that the git executable can be run. A nil Runner uses a
// process.ExecRunner.
type GitCheck struct {
	Binary string
	Runner process.Runner
}

func (c *GitCheck) Name() string {
	return "git"
}

func (c *GitCheck) Run(ctx context.Context) CheckResult {
	runner := c.Runner
	if runner == nil {
		runner = process.NewExecRunner(0)
	}

	res := runner.Run(ctx, []string{c.Binary, "--version"})
	output := strings.TrimSpace(res.Stdout)
	if !res.Launched() {
		return CheckResult{
			Name:    c.Name(),
			Level:   LevelError,
			Message: fmt.Sprintf("%s command not found. Install Git from https://git-scm.com/downloads", c.Binary),
			Error:   errors.New(output),
		}
	}
	if !res.Success() {
		return CheckResult{
			Name:    c.Name(),
			Level:   LevelWarn,
			Message: "git is installed but may not be working correctly",
			Error:   fmt.Errorf("exit status %d: %s", res.ExitCode, output),
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Level:   LevelInfo,
		Message: fmt.Sprintf("git is available (%s)", output),
	}
}

// RepositoryCheck checks that the git dir is a repository with the canonical
// remote configured.
type RepositoryCheck struct {
	Repo Git
}

func (c *RepositoryCheck) Name() string {
	return "repository"
}

func (c *RepositoryCheck) Run(ctx context.Context) CheckResult {
	if res := c.Repo.Run(ctx, "rev-parse", "--git-dir"); !res.Success() {
		return CheckResult{
			Name:    c.Name(),
			Level:   LevelError,
			Message: fmt.Sprintf("not a git repository: %s", c.Repo.GitDir()),
			Error:   errors.New(strings.TrimSpace(res.Stdout)),
		}
	}

	res := c.Repo.Run(ctx, "remote", "get-url", c.Repo.Remote())
	if !res.Success() {
		return CheckResult{
			Name:    c.Name(),
			Level:   LevelError,
			Message: fmt.Sprintf("remote %q is not configured in %s", c.Repo.Remote(), c.Repo.GitDir()),
			Error:   errors.New(strings.TrimSpace(res.Stdout)),
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Level:   LevelInfo,
		Message: fmt.Sprintf("%s tracks %s (%s)", c.Repo.GitDir(), c.Repo.Remote(), strings.TrimSpace(res.Stdout)),
	}
}

// StateDirCheck checks that the state directory exists, or can be created,
// and is writable.
type StateDirCheck struct {
	Path string
}

func (c *StateDirCheck) Name() string {
	return "state-dir"
}

func (c *StateDirCheck) Run(ctx context.Context) CheckResult {
	absPath, err := filepath.Abs(c.Path)
	if err != nil {
		return c.fail(fmt.Sprintf("failed to resolve state directory: %s", c.Path), err)
	}

	info, err := os.Stat(absPath)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(absPath, 0755); err != nil {
			return c.fail(fmt.Sprintf("cannot create state directory: %s", absPath), err)
		}
	case err != nil:
		return c.fail(fmt.Sprintf("cannot access state directory: %s", absPath), err)
	case !info.IsDir():
		return c.fail(fmt.Sprintf("state directory is not a directory: %s", absPath), errors.New("not a directory"))
	}

	probe, err := os.CreateTemp(absPath, ".version-check-write-test-*")
	if err != nil {
		return c.fail(fmt.Sprintf("state directory is not writable: %s", absPath), err)
	}
	probe.Close()
	_ = os.Remove(probe.Name())

	return CheckResult{
		Name:    c.Name(),
		Level:   LevelInfo,
		Message: fmt.Sprintf("state directory is writable: %s", absPath),
	}
}

func (c *StateDirCheck) fail(msg string, err error) CheckResult {
	return CheckResult{Name: c.Name(), Level: LevelError, Message: msg, Error: err}
}

// GitHubTokenCheck warns when pull request metadata is enabled without a
// token, which limits lookups to the unauthenticated rate.
type GitHubTokenCheck struct {
	Repository string
	Token      string
}

func (c *GitHubTokenCheck) Name() string {
	return "github-token"
}

func (c *GitHubTokenCheck) Run(ctx context.Context) CheckResult {
	if c.Token == "" {
		return CheckResult{
			Name:    c.Name(),
			Level:   LevelWarn,
			Message: fmt.Sprintf("no GitHub token for %s; metadata lookups use the unauthenticated rate limit. Set GITHUB_TOKEN", c.Repository),
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Level:   LevelInfo,
		Message: fmt.Sprintf("GitHub token available for %s", c.Repository),
	}
}
