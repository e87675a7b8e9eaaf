package search

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/holon-run/version-check/pkg/git"
	"github.com/holon-run/version-check/pkg/git/gittest"
	"github.com/holon-run/version-check/pkg/process"
)

// cancelAfterRunner cancels the search context once a command containing
// trigger has run.
type cancelAfterRunner struct {
	inner   process.Runner
	trigger string
	cancel  context.CancelFunc
}

func (r *cancelAfterRunner) Run(ctx context.Context, argv []string) process.Result {
	res := r.inner.Run(ctx, argv)
	if strings.Contains(strings.Join(argv, " "), r.trigger) {
		r.cancel()
	}
	return res
}

func TestSearch_RealRepository(t *testing.T) {
	fx := gittest.New(t)
	base := fx.Git("rev-parse", "HEAD")

	released := fx.CommitOn(base, "release fix")
	fx.PushBranch("2019.2", released)
	fx.PushBranch("release/3.0", released)
	fx.Tag("v2019.2.0", released)
	fx.Tag("nightly", released)

	feature := fx.CommitOn(base, "feature")
	fx.PushPullRequest(4521, feature)

	fx.AddRemote("upstream")
	fx.SetRemoteHead()

	repo := git.New(nil, git.Options{GitDir: fx.GitDir()})
	engine := NewEngine(repo)
	ctx := context.Background()

	t.Run("commit on release branch", func(t *testing.T) {
		res, err := engine.Search(ctx, Request{Commit: released})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if !reflect.DeepEqual(res.Branches, []string{"2019.2"}) {
			t.Errorf("Branches = %v, want [2019.2]", res.Branches)
		}
		if !reflect.DeepEqual(res.Tags, []string{"v2019.2.0"}) {
			t.Errorf("Tags = %v, want [v2019.2.0]", res.Tags)
		}
	})

	t.Run("tag is reported as its commit", func(t *testing.T) {
		res, err := engine.Search(ctx, Request{Commit: "v2019.2.0"})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if res.Commit != released {
			t.Errorf("Commit = %q, want %q", res.Commit, released)
		}
	})

	t.Run("base commit is everywhere", func(t *testing.T) {
		res, err := engine.Search(ctx, Request{Commit: base, BranchFilters: []string{"develop", "release/3.0", "2019.2"}})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if !reflect.DeepEqual(res.Branches, []string{"develop", "2019.2"}) {
			t.Errorf("Branches = %v, want [develop 2019.2]", res.Branches)
		}
		if res.TagsSearched {
			t.Error("tags searched with only a branch filter")
		}
	})

	t.Run("pull request resolves to its head", func(t *testing.T) {
		byPR, err := engine.Search(ctx, Request{PullRequest: "#4521"})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if byPR.Commit != feature {
			t.Errorf("Commit = %q, want %q", byPR.Commit, feature)
		}
		byCommit, err := engine.Search(ctx, Request{Commit: feature})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if !reflect.DeepEqual(byPR, byCommit) {
			t.Errorf("pull request result %+v differs from commit result %+v", byPR, byCommit)
		}
		if byPR.Found() {
			t.Errorf("unmerged pull request matched %+v", byPR)
		}
		if fx.HasLocalBranch("pr-4521") {
			t.Error("pr-4521 left behind")
		}
	})

	t.Run("unknown pull request", func(t *testing.T) {
		_, err := engine.Search(ctx, Request{PullRequest: "999"})
		resolveErr, ok := err.(*ResolveError)
		if !ok {
			t.Fatalf("error = %v, want *ResolveError", err)
		}
		if resolveErr.Output == "" {
			t.Error("ResolveError carries no git output")
		}
		if fx.HasLocalBranch("pr-999") {
			t.Error("pr-999 left behind")
		}
	})

	t.Run("unknown commit", func(t *testing.T) {
		res, err := engine.Search(ctx, Request{Commit: "0123456789abcdef0123456789abcdef01234567"})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if res.Found() {
			t.Errorf("result = %+v, want empty", res)
		}
	})
}

func TestSearch_CancelledResolveRemovesDisposableBranch(t *testing.T) {
	fx := gittest.New(t)
	head := fx.CommitOn(fx.Git("rev-parse", "HEAD"), "feature")
	fx.PushPullRequest(5, head)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := &cancelAfterRunner{
		inner:   process.NewExecRunner(0, git.Env()...),
		trigger: "pull/5/head:pr-5",
		cancel:  cancel,
	}
	engine := NewEngine(git.New(runner, git.Options{GitDir: fx.GitDir()}))

	_, err := engine.Search(ctx, Request{PullRequest: "5"})
	var resolveErr *ResolveError
	if !errors.As(err, &resolveErr) {
		t.Fatalf("error = %v, want *ResolveError after cancellation", err)
	}
	if fx.HasLocalBranch("pr-5") {
		t.Error("pr-5 left behind after cancellation")
	}
}
