// Package gittest builds throwaway git repositories for tests: a bare origin
// standing in for the hosting platform and a clone that version-check
// inspects.
package gittest

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// DefaultBranch is the branch the fixture origin starts with.
const DefaultBranch = "develop"

// Fixture is a clone of a local bare origin.
type Fixture struct {
	t      *testing.T
	home   string
	Origin string
	Work   string
}

// New creates a bare origin and a clone with one commit pushed to
// DefaultBranch.
func New(t *testing.T) *Fixture {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available in PATH")
	}

	root := t.TempDir()
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		t.Fatalf("failed to resolve temp dir: %v", err)
	}

	f := &Fixture{
		t:      t,
		home:   filepath.Join(resolved, "home"),
		Origin: filepath.Join(resolved, "origin.git"),
		Work:   filepath.Join(resolved, "work"),
	}
	if err := os.MkdirAll(f.home, 0755); err != nil {
		t.Fatalf("failed to create home: %v", err)
	}

	f.run(resolved, "init", "-q", "--bare", f.Origin)
	f.run(resolved, "clone", "-q", f.Origin, f.Work)
	f.Git("symbolic-ref", "HEAD", "refs/heads/"+DefaultBranch)
	f.Commit("initial commit")
	f.Git("push", "-q", "origin", "HEAD:refs/heads/"+DefaultBranch)
	return f
}

// GitDir is the value to pass as --git-dir.
func (f *Fixture) GitDir() string {
	return filepath.Join(f.Work, ".git")
}

// Git runs git in the clone and returns trimmed output. It fails the test on
// a non-zero exit.
func (f *Fixture) Git(args ...string) string {
	f.t.Helper()
	return f.run(f.Work, args...)
}

func (f *Fixture) run(dir string, args ...string) string {
	f.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"HOME="+f.home,
		"LC_ALL=C",
		"GIT_CONFIG_NOSYSTEM=1",
		"GIT_AUTHOR_NAME=Test User",
		"GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=Test User",
		"GIT_COMMITTER_EMAIL=test@example.com",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		f.t.Fatalf("git %s failed: %v, output: %s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// Commit creates an empty commit on the checked out branch.
func (f *Fixture) Commit(msg string) string {
	f.t.Helper()
	f.Git("commit", "-q", "--allow-empty", "-m", msg)
	return f.Git("rev-parse", "HEAD")
}

// CommitOn creates a commit whose parent is parent without moving any ref.
func (f *Fixture) CommitOn(parent, msg string) string {
	f.t.Helper()
	return f.Git("commit-tree", parent+"^{tree}", "-p", parent, "-m", msg)
}

// PushBranch publishes commit as branch on origin. The clone's
// remote-tracking ref is updated by the push.
func (f *Fixture) PushBranch(branch, commit string) {
	f.t.Helper()
	f.Git("push", "-q", "origin", commit+":refs/heads/"+branch)
}

// PushPullRequest publishes commit at refs/pull/<number>/head on origin, the
// way hosting platforms expose pull request heads.
func (f *Fixture) PushPullRequest(number int, commit string) {
	f.t.Helper()
	f.Git("push", "-q", "origin", fmt.Sprintf("%s:refs/pull/%d/head", commit, number))
}

// Tag creates a lightweight tag in the clone.
func (f *Fixture) Tag(name, commit string) {
	f.t.Helper()
	f.Git("tag", name, commit)
}

// AddRemote adds another remote pointing at origin and fetches it.
func (f *Fixture) AddRemote(name string) {
	f.t.Helper()
	f.Git("remote", "add", name, f.Origin)
	f.Git("fetch", "-q", name)
}

// SetRemoteHead creates refs/remotes/origin/HEAD pointing at DefaultBranch.
func (f *Fixture) SetRemoteHead() {
	f.t.Helper()
	f.Git("remote", "set-head", "origin", DefaultBranch)
}

// HasLocalBranch reports whether the clone has the local branch.
func (f *Fixture) HasLocalBranch(branch string) bool {
	f.t.Helper()
	out := f.Git("for-each-ref", "--format=%(refname:short)", "refs/heads/")
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == branch {
			return true
		}
	}
	return false
}
