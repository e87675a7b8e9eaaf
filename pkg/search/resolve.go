package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/holon-run/version-check/pkg/log"
)

// ResolveError reports that a pull request could not be turned into a
// commit. Output carries what git printed.
type ResolveError struct {
	PullRequest string
	Output      string
}

func (e *ResolveError) Error() string {
	return "ERROR: " + e.Output
}

// NormalizePullRequest strips surrounding space and a leading '#'.
func NormalizePullRequest(number string) string {
	return strings.TrimPrefix(strings.TrimSpace(number), "#")
}

// DisposableBranch is the local branch a pull request head is fetched into.
func DisposableBranch(number string) string {
	return "pr-" + NormalizePullRequest(number)
}

func (e *Engine) resolve(ctx context.Context, number string) (string, error) {
	number = NormalizePullRequest(number)
	if !isNumber(number) {
		return "", &ResolveError{
			PullRequest: number,
			Output:      fmt.Sprintf("invalid pull request number %q", number),
		}
	}
	branch := DisposableBranch(number)

	// A branch left behind by an interrupted run would make the fetch fail.
	e.cleanup(ctx, branch)

	// Cleanup must run even when ctx is cancelled mid-resolve.
	cleanupCtx := context.WithoutCancel(ctx)

	res := e.repo.FetchRef(ctx, fmt.Sprintf("pull/%s/head", number), branch)
	if !res.Success() {
		log.Warn("failed to fetch pull request", "pr", number, "exit_code", res.ExitCode)
		e.cleanup(cleanupCtx, branch)
		return "", &ResolveError{PullRequest: number, Output: strings.TrimSpace(res.Stdout)}
	}

	commit, err := e.repo.RevParse(ctx, branch)
	e.cleanup(cleanupCtx, branch)
	if err != nil {
		return "", &ResolveError{PullRequest: number, Output: err.Error()}
	}

	log.Debug("resolved pull request", "pr", number, "commit", commit)
	return commit, nil
}

// cleanup deletes branch if it exists. Failures are logged only: the commit
// has already been read or the lookup has already failed.
func (e *Engine) cleanup(ctx context.Context, branch string) {
	if !e.repo.BranchExists(ctx, branch) {
		return
	}
	if err := e.repo.DeleteBranch(ctx, branch); err != nil {
		log.Warn("failed to delete disposable branch", "branch", branch, "error", err)
	}
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
