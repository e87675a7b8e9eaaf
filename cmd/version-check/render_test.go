package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/holon-run/version-check/pkg/search"
)

func TestTextRenderer(t *testing.T) {
	tests := []struct {
		name string
		req  search.Request
		res  *search.Result
		want string
	}{
		{
			name: "branches and tags",
			req:  search.Request{Commit: "abc123"},
			res:  &search.Result{Branches: []string{"develop", "2019.2"}, Tags: []string{"v2019.2.0"}},
			want: "Branches:\n  develop\n  2019.2\nTags:\n  v2019.2.0\n",
		},
		{
			name: "tags only",
			req:  search.Request{Commit: "abc123"},
			res:  &search.Result{Tags: []string{"v3000"}},
			want: "Tags:\n  v3000\n",
		},
		{
			name: "pull request not found",
			req:  search.Request{PullRequest: "4521"},
			res:  &search.Result{},
			want: "The pull request '4521' was not found.\n",
		},
		{
			name: "commit not found",
			req:  search.Request{Commit: "deadbeef"},
			res:  &search.Result{},
			want: "The commit 'deadbeef' was not found.\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			newTextRenderer(&buf).render(tt.req, tt.res)
			if buf.String() != tt.want {
				t.Errorf("render() =\n%q\nwant\n%q", buf.String(), tt.want)
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	tests := []struct {
		name string
		res  *search.Result
		want string
	}{
		{
			name: "both searched",
			res:  &search.Result{Commit: "abc", Branches: []string{"develop"}, BranchesSearched: true, TagsSearched: true},
			want: `{"commit":"abc","branches":["develop"],"tags":[]}` + "\n",
		},
		{
			name: "branches only",
			res:  &search.Result{Commit: "abc", BranchesSearched: true},
			want: `{"commit":"abc","branches":[]}` + "\n",
		},
		{
			name: "tags only",
			res:  &search.Result{Commit: "abc", Tags: []string{"v1"}, TagsSearched: true},
			want: `{"commit":"abc","tags":["v1"]}` + "\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := writeJSON(&buf, tt.res); err != nil {
				t.Fatalf("writeJSON() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("writeJSON() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestWriteJSONError(t *testing.T) {
	var buf bytes.Buffer
	err := &search.ResolveError{PullRequest: "1", Output: "fatal: couldn't find remote ref pull/1/head"}
	if werr := writeJSONError(&buf, err); werr != nil {
		t.Fatal(werr)
	}
	want := `{"error":"ERROR: fatal: couldn't find remote ref pull/1/head"}` + "\n"
	if buf.String() != want {
		t.Errorf("writeJSONError() = %q, want %q", buf.String(), want)
	}
}

func TestRootCmd_FlagValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no search term", []string{}},
		{"both terms", []string{"-p", "1", "-c", "abc"}},
		{"positional args", []string{"-p", "1", "extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			cmd := newRootCmd(&stdout, &stderr)
			cmd.SetArgs(tt.args)
			if err := cmd.Execute(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRootCmd_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs([]string{"-v"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if stdout.String() != "version-check dev\n" {
		t.Errorf("stdout = %q", stdout.String())
	}

	stdout.Reset()
	cmd = newRootCmd(&stdout, &stderr)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if stdout.String() != "version-check version dev\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestReportedError(t *testing.T) {
	inner := errors.New("boom")
	var err error = &reportedError{err: inner}
	if !errors.Is(err, inner) || err.Error() != "boom" {
		t.Errorf("reportedError does not wrap %v", inner)
	}
}
