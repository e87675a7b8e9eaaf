// Package search finds the published branches and release tags that contain
// a commit or the head of a pull request.
package search

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/holon-run/version-check/pkg/log"
	"github.com/holon-run/version-check/pkg/process"
)

// ErrNoSearchTerm is returned when a request names neither a pull request
// nor a commit.
var ErrNoSearchTerm = errors.New("a pull request number or commit is required")

// Repository is the subset of git operations the engine depends on.
// *git.Repo implements it.
type Repository interface {
	Remote() string
	Fetch(ctx context.Context) error
	FetchRef(ctx context.Context, src, dst string) process.Result
	RevParse(ctx context.Context, rev string) (string, error)
	CommitExists(ctx context.Context, rev string) bool
	BranchExists(ctx context.Context, branch string) bool
	DeleteBranch(ctx context.Context, branch string) error
	ListBranchesContaining(ctx context.Context, commit string) ([]string, error)
	ListTagsContaining(ctx context.Context, commit string) ([]string, error)
}

// Request describes one search. When PullRequest is set it takes precedence
// and Commit is replaced by the pull request head.
type Request struct {
	PullRequest   string
	Commit        string
	Fetch         bool
	BranchFilters []string
	TagFilters    []string
}

// Result lists the matches of a search. Commit is the full object name of the
// searched commit, or the term as given when no such commit exists.
// BranchesSearched and TagsSearched record which matchers ran; an unsearched
// list is absent, not empty.
type Result struct {
	Commit           string
	Branches         []string
	Tags             []string
	BranchesSearched bool
	TagsSearched     bool
}

// Found reports whether any branch or tag matched.
func (r *Result) Found() bool {
	return len(r.Branches) > 0 || len(r.Tags) > 0
}

// Engine runs searches against one repository. Calls are serialized: the
// disposable branch name and fetches are shared repository state.
type Engine struct {
	repo Repository
	mu   sync.Mutex
}

// NewEngine creates an Engine for repo.
func NewEngine(repo Repository) *Engine {
	return &Engine{repo: repo}
}

// Search resolves the request to a commit and matches it against branches and
// tags. A pull request that cannot be resolved yields a *ResolveError.
func (e *Engine) Search(ctx context.Context, req Request) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pr := strings.TrimSpace(req.PullRequest)
	commit := strings.TrimSpace(req.Commit)
	if pr == "" && commit == "" {
		return nil, ErrNoSearchTerm
	}

	if req.Fetch {
		log.Debug("fetching remote", "remote", e.repo.Remote())
		if err := e.repo.Fetch(ctx); err != nil {
			return nil, err
		}
	}

	if pr != "" {
		resolved, err := e.resolve(ctx, pr)
		if err != nil {
			return nil, err
		}
		commit = resolved
	}

	runBranches, runTags := scope(req)
	res := &Result{
		Commit:           commit,
		BranchesSearched: runBranches,
		TagsSearched:     runTags,
	}

	if !e.repo.CommitExists(ctx, commit) {
		log.Info("commit not found in repository", "commit", commit)
		return res, nil
	}

	// Tags and abbreviations are reported as the full commit they name.
	sha, err := e.repo.RevParse(ctx, commit+"^{commit}")
	if err != nil {
		return nil, err
	}
	commit = sha
	res.Commit = sha

	if runBranches {
		branches, err := e.matchBranches(ctx, commit, req.BranchFilters)
		if err != nil {
			return nil, err
		}
		res.Branches = branches
	}
	if runTags {
		tags, err := e.matchTags(ctx, commit, req.TagFilters)
		if err != nil {
			return nil, err
		}
		res.Tags = tags
	}

	log.Debug("search finished", "commit", commit, "branches", len(res.Branches), "tags", len(res.Tags))
	return res, nil
}

// scope decides which matchers run. Filters on one side only restrict the
// search to that side; no filters at all searches both.
func scope(req Request) (branches, tags bool) {
	hasBranch := len(req.BranchFilters) > 0
	hasTag := len(req.TagFilters) > 0
	if !hasBranch && !hasTag {
		return true, true
	}
	return hasBranch, hasTag
}

// ResolvePullRequest returns the head commit of a pull request.
func (e *Engine) ResolvePullRequest(ctx context.Context, number string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolve(ctx, number)
}

// MatchBranches returns the branches of the canonical remote that contain
// commit, restricted to filters when given.
func (e *Engine) MatchBranches(ctx context.Context, commit string, filters []string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.matchBranches(ctx, commit, filters)
}

// MatchTags returns the release tags that contain commit, restricted to
// filters when given.
func (e *Engine) MatchTags(ctx context.Context, commit string, filters []string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.matchTags(ctx, commit, filters)
}

// Fetch refreshes the canonical remote. It waits for any running search.
func (e *Engine) Fetch(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	log.Debug("fetching remote", "remote", e.repo.Remote())
	return e.repo.Fetch(ctx)
}
