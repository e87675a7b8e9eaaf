package search

import (
	"context"
	"strings"
)

// ReleaseTagPrefix is the naming convention for published release tags.
const ReleaseTagPrefix = "v"

func (e *Engine) matchBranches(ctx context.Context, commit string, filters []string) ([]string, error) {
	lines, err := e.repo.ListBranchesContaining(ctx, commit)
	if err != nil {
		return nil, err
	}
	return applyFilters(remoteBranches(lines, e.repo.Remote()), filters), nil
}

func (e *Engine) matchTags(ctx context.Context, commit string, filters []string) ([]string, error) {
	names, err := e.repo.ListTagsContaining(ctx, commit)
	if err != nil {
		return nil, err
	}
	return applyFilters(releaseTags(names), filters), nil
}

// remoteBranches extracts branch names of remote from `git branch -a` lines.
// Local branches, other remotes, nested names and HEAD are dropped.
func remoteBranches(lines []string, remote string) []string {
	prefix := "remotes/" + remote + "/"
	var branches []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		name := strings.TrimPrefix(line, prefix)
		if name == "" || strings.Contains(name, "/") {
			continue
		}
		if name == "HEAD" || strings.HasPrefix(name, "HEAD ") {
			continue
		}
		branches = append(branches, name)
	}
	return branches
}

func releaseTags(names []string) []string {
	var tags []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if strings.HasPrefix(name, ReleaseTagPrefix) {
			tags = append(tags, name)
		}
	}
	return tags
}

// applyFilters returns the filters present in found, in filter order and
// without repeats. No filters returns found unchanged.
func applyFilters(found, filters []string) []string {
	if len(filters) == 0 {
		return found
	}
	present := make(map[string]bool, len(found))
	for _, name := range found {
		present[name] = true
	}
	var matched []string
	seen := make(map[string]bool, len(filters))
	for _, f := range filters {
		if present[f] && !seen[f] {
			matched = append(matched, f)
			seen[f] = true
		}
	}
	return matched
}
