package search

import (
	"context"
	"strings"

	"github.com/holon-run/version-check/pkg/git"
	"github.com/holon-run/version-check/pkg/process"
)

// fakeRepo is an in-memory Repository. branchLines and tagLines hold the
// listing output keyed by commit.
type fakeRepo struct {
	remote      string
	commits     map[string]bool
	pulls       map[string]string // pr number -> head commit
	branchLines map[string][]string
	tagLines    map[string][]string
	local       map[string]string // local branch -> commit
	aliases     map[string]string // tag or short name -> commit

	fetchErr     error
	fetchOutput  string
	fetchCode    int
	listErr      error
	deleteErr    error
	fetches      int
	refFetches   []string
	deleted      []string
	branchListed int
	tagListed    int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		remote:      "origin",
		commits:     map[string]bool{},
		pulls:       map[string]string{},
		branchLines: map[string][]string{},
		tagLines:    map[string][]string{},
		local:       map[string]string{},
		aliases:     map[string]string{},
	}
}

func (f *fakeRepo) Remote() string { return f.remote }

func (f *fakeRepo) Fetch(context.Context) error {
	f.fetches++
	return f.fetchErr
}

func (f *fakeRepo) FetchRef(_ context.Context, src, dst string) process.Result {
	f.refFetches = append(f.refFetches, src+":"+dst)
	if f.fetchCode != 0 {
		return process.Result{ExitCode: f.fetchCode, PID: 1, Stdout: f.fetchOutput}
	}
	number := strings.TrimSuffix(strings.TrimPrefix(src, "pull/"), "/head")
	commit, ok := f.pulls[number]
	if !ok {
		return process.Result{ExitCode: 128, PID: 1, Stdout: "fatal: couldn't find remote ref " + src + "\n"}
	}
	f.local[dst] = commit
	return process.Result{PID: 1}
}

func (f *fakeRepo) RevParse(_ context.Context, rev string) (string, error) {
	if c, ok := f.local[rev]; ok {
		return c, nil
	}
	if name, ok := strings.CutSuffix(rev, "^{commit}"); ok {
		if c, ok := f.aliases[name]; ok {
			return c, nil
		}
		if f.commits[name] {
			return name, nil
		}
	}
	return "", &git.CommandError{Args: []string{"rev-parse", rev}, ExitCode: 128}
}

func (f *fakeRepo) CommitExists(_ context.Context, rev string) bool {
	if c, ok := f.aliases[rev]; ok {
		rev = c
	}
	return f.commits[rev]
}

func (f *fakeRepo) BranchExists(_ context.Context, branch string) bool {
	_, ok := f.local[branch]
	return ok
}

func (f *fakeRepo) DeleteBranch(_ context.Context, branch string) error {
	f.deleted = append(f.deleted, branch)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.local, branch)
	return nil
}

func (f *fakeRepo) ListBranchesContaining(_ context.Context, commit string) ([]string, error) {
	f.branchListed++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.branchLines[commit], nil
}

func (f *fakeRepo) ListTagsContaining(_ context.Context, commit string) ([]string, error) {
	f.tagListed++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.tagLines[commit], nil
}

func (f *fakeRepo) addCommit(commit string, branchLines, tags []string) {
	f.commits[commit] = true
	f.branchLines[commit] = branchLines
	f.tagLines[commit] = tags
}

var _ Repository = (*fakeRepo)(nil)
var _ Repository = (*git.Repo)(nil)
