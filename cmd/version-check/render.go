package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/holon-run/version-check/pkg/search"
)

type textRenderer struct {
	out     io.Writer
	heading lipgloss.Style
	styled  bool
}

func newTextRenderer(out io.Writer) *textRenderer {
	return &textRenderer{
		out:     out,
		heading: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		styled:  isTerminal(out),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (r *textRenderer) title(s string) string {
	if !r.styled {
		return s
	}
	return r.heading.Render(s)
}

func (r *textRenderer) render(req search.Request, res *search.Result) {
	if !res.Found() {
		fmt.Fprintln(r.out, notFoundMessage(req))
		return
	}
	if len(res.Branches) > 0 {
		fmt.Fprintln(r.out, r.title("Branches:"))
		for _, b := range res.Branches {
			fmt.Fprintln(r.out, "  "+b)
		}
	}
	if len(res.Tags) > 0 {
		fmt.Fprintln(r.out, r.title("Tags:"))
		for _, t := range res.Tags {
			fmt.Fprintln(r.out, "  "+t)
		}
	}
}

func notFoundMessage(req search.Request) string {
	if pr := strings.TrimSpace(req.PullRequest); pr != "" {
		return fmt.Sprintf("The pull request '%s' was not found.", pr)
	}
	return fmt.Sprintf("The commit '%s' was not found.", strings.TrimSpace(req.Commit))
}

// jsonResult omits the lists of matchers that did not run.
type jsonResult struct {
	Commit   string    `json:"commit,omitempty"`
	Branches *[]string `json:"branches,omitempty"`
	Tags     *[]string `json:"tags,omitempty"`
}

func writeJSON(w io.Writer, res *search.Result) error {
	out := jsonResult{Commit: res.Commit}
	if res.BranchesSearched {
		branches := nonNil(res.Branches)
		out.Branches = &branches
	}
	if res.TagsSearched {
		tags := nonNil(res.Tags)
		out.Tags = &tags
	}
	return encodeJSON(w, out)
}

func writeJSONError(w io.Writer, err error) error {
	return encodeJSON(w, map[string]string{"error": err.Error()})
}

func encodeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	return nil
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
