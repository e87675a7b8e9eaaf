package github

import (
	"fmt"
	"regexp"
	"strings"
)

var repositoryPattern = regexp.MustCompile(`^([A-Za-z0-9._-]+)/([A-Za-z0-9._-]+)$`)

// Repository identifies a GitHub repository.
type Repository struct {
	Owner string
	Name  string
}

// ParseRepository parses "owner/name". A trailing ".git" is dropped.
func ParseRepository(s string) (Repository, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), ".git")
	m := repositoryPattern.FindStringSubmatch(s)
	if m == nil {
		return Repository{}, fmt.Errorf("invalid GitHub repository %q (expected: owner/name)", s)
	}
	return Repository{Owner: m[1], Name: m[2]}, nil
}

func (r Repository) String() string {
	return r.Owner + "/" + r.Name
}

// PullRequestURL is the web URL of a pull request in r.
func (r Repository) PullRequestURL(number int) string {
	return fmt.Sprintf("https://github.com/%s/%s/pull/%d", r.Owner, r.Name, number)
}
