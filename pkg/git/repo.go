// Package git wraps the git command line for the operations version-check
// needs. Every command runs against a fixed repository via --git-dir and goes
// through a process.Runner, so tests can substitute a fake runner.
package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/holon-run/version-check/pkg/process"
)

// DefaultBinary is the git executable looked up in PATH.
const DefaultBinary = "git"

// DefaultRemote is the canonical remote name.
const DefaultRemote = "origin"

// Options configures a Repo.
type Options struct {
	// Binary is the git executable. Defaults to DefaultBinary.
	Binary string
	// GitDir is passed as --git-dir to every command.
	GitDir string
	// Remote is the canonical remote. Defaults to DefaultRemote.
	Remote string
}

// Repo runs git commands against one repository.
type Repo struct {
	runner process.Runner
	binary string
	gitDir string
	remote string
}

// New creates a Repo. A nil runner uses a process.ExecRunner with LC_ALL=C.
func New(runner process.Runner, opts Options) *Repo {
	if runner == nil {
		runner = process.NewExecRunner(0, Env()...)
	}
	if opts.Binary == "" {
		opts.Binary = DefaultBinary
	}
	if opts.Remote == "" {
		opts.Remote = DefaultRemote
	}
	return &Repo{
		runner: runner,
		binary: opts.Binary,
		gitDir: opts.GitDir,
		remote: opts.Remote,
	}
}

// Env is the environment every git invocation should run with so that
// command output does not depend on the user's locale or pager.
func Env() []string {
	return []string{"LC_ALL=C", "GIT_PAGER=cat", "GIT_TERMINAL_PROMPT=0"}
}

// Remote returns the canonical remote name.
func (r *Repo) Remote() string {
	return r.remote
}

// GitDir returns the repository location passed to git.
func (r *Repo) GitDir() string {
	return r.gitDir
}

// Argv builds the full argument vector for a git subcommand.
func (r *Repo) Argv(args ...string) []string {
	argv := make([]string, 0, len(args)+2)
	argv = append(argv, r.binary)
	if r.gitDir != "" {
		argv = append(argv, "--git-dir="+r.gitDir)
	}
	return append(argv, args...)
}

// Run executes a git subcommand and returns its raw result.
func (r *Repo) Run(ctx context.Context, args ...string) process.Result {
	return r.runner.Run(ctx, r.Argv(args...))
}

func (r *Repo) output(ctx context.Context, args ...string) (string, error) {
	res := r.Run(ctx, args...)
	if !res.Success() {
		return "", newCommandError(args, res)
	}
	return res.Stdout, nil
}

// Fetch refreshes all refs from the canonical remote.
func (r *Repo) Fetch(ctx context.Context) error {
	_, err := r.output(ctx, "fetch", r.remote)
	return err
}

// FetchRef fetches src from the canonical remote into the local ref dst.
// The raw result is returned because callers report the git output verbatim.
func (r *Repo) FetchRef(ctx context.Context, src, dst string) process.Result {
	return r.Run(ctx, "fetch", r.remote, fmt.Sprintf("%s:%s", src, dst))
}

// RevParse resolves rev to a full object name.
func (r *Repo) RevParse(ctx context.Context, rev string) (string, error) {
	out, err := r.output(ctx, "rev-parse", rev)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// CommitExists reports whether rev names a commit in the repository.
func (r *Repo) CommitExists(ctx context.Context, rev string) bool {
	return r.Run(ctx, "rev-parse", "--verify", "--quiet", rev+"^{commit}").Success()
}

// BranchExists reports whether the local branch exists.
func (r *Repo) BranchExists(ctx context.Context, branch string) bool {
	return r.Run(ctx, "rev-parse", "--verify", "--quiet", "refs/heads/"+branch).Success()
}

// DeleteBranch force-deletes a local branch.
func (r *Repo) DeleteBranch(ctx context.Context, branch string) error {
	_, err := r.output(ctx, "branch", "-D", branch)
	return err
}

// ListBranchesContaining returns the trimmed, non-empty lines of
// `git branch -a --contains <commit>`.
func (r *Repo) ListBranchesContaining(ctx context.Context, commit string) ([]string, error) {
	out, err := r.output(ctx, "branch", "-a", "--contains", commit)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// ListTagsContaining returns the tag names printed by
// `git tag --contains <commit>`.
func (r *Repo) ListTagsContaining(ctx context.Context, commit string) ([]string, error) {
	out, err := r.output(ctx, "tag", "--contains", commit)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// ListLocalBranches returns the names of all local branches.
func (r *Repo) ListLocalBranches(ctx context.Context) ([]string, error) {
	out, err := r.output(ctx, "for-each-ref", "--format=%(refname:short)", "refs/heads/")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
