package serve

import (
	"strings"
	"time"
)

const (
	kindPullRequest = "pull_request"
	kindCommit      = "commit"

	shortCommitLen = 7
)

// job is one accepted slash command waiting for the worker.
type job struct {
	ID          string
	Text        string
	ResponseURL string
	User        string
	ReceivedAt  time.Time
}

// searchTerm is the parsed slash command text. Kind is empty when no term was
// given.
type searchTerm struct {
	Kind  string
	Value string
	Label string
}

// parseSearchTerm classifies text. All digits, with an optional leading '#',
// is a pull request; anything else is a commit labelled by its short form.
func parseSearchTerm(text string) searchTerm {
	text = strings.TrimSpace(text)
	if text == "" {
		return searchTerm{}
	}
	if number := strings.TrimPrefix(text, "#"); isDigits(number) {
		return searchTerm{Kind: kindPullRequest, Value: number, Label: "PR #" + number}
	}
	short := text
	if len(short) > shortCommitLen {
		short = short[:shortCommitLen]
	}
	return searchTerm{Kind: kindCommit, Value: text, Label: "Commit " + short}
}

func isDigits(s string) bool {
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

// SearchRecord is one line of searches.ndjson.
type SearchRecord struct {
	ID        string    `json:"id"`
	Term      string    `json:"term,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	User      string    `json:"user,omitempty"`
	Commit    string    `json:"commit,omitempty"`
	Status    string    `json:"status"`
	Branches  []string  `json:"branches,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Message   string    `json:"message,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

const (
	statusFound     = "found"
	statusNotFound  = "not_found"
	statusFailed    = "failed"
	statusInvalid   = "invalid"
	statusCancelled = "cancelled"
)
