package serve

import (
	"fmt"
	"strings"

	"github.com/holon-run/version-check/pkg/github"
	"github.com/holon-run/version-check/pkg/search"
	"github.com/holon-run/version-check/pkg/slack"
)

const (
	msgMissingTerm  = "Please provide a pull request number or commit hash."
	msgSearching    = "Searching..."
	msgNoMatches    = "No matches found."
	msgShuttingDown = "The server is shutting down. Please try again shortly."
)

func missingTermPayload() slack.Payload {
	return slack.AttachmentPayload(slack.Attachment{
		Text:  msgMissingTerm,
		Color: slack.ColorDanger,
	})
}

func searchingPayload() slack.Payload {
	return slack.TextPayload(msgSearching)
}

// resultPayload renders the outcome of a search. pr is optional metadata for
// pull request searches.
func resultPayload(term searchTerm, res *search.Result, err error, pr *github.PRInfo) slack.Payload {
	a := slack.Attachment{Title: term.Label + " Search Results:"}

	switch {
	case err != nil:
		a.Text = err.Error()
		a.Color = slack.ColorDanger
	case res != nil && res.Found():
		if len(res.Branches) > 0 {
			a.Fields = append(a.Fields, slack.Field{Title: "Branches", Value: strings.Join(res.Branches, ", ")})
		}
		if len(res.Tags) > 0 {
			a.Fields = append(a.Fields, slack.Field{Title: "Tags", Value: strings.Join(res.Tags, ", ")})
		}
		a.Color = slack.ColorGood
	default:
		a.Text = msgNoMatches
		a.Color = slack.ColorWarning
	}

	if pr != nil {
		a.TitleLink = pr.URL
		if pr.Title != "" {
			a.Footer = fmt.Sprintf("%s (%s)", pr.Title, pr.Status())
		}
	}
	return slack.AttachmentPayload(a)
}

func shutdownPayload(term searchTerm) slack.Payload {
	a := slack.Attachment{Text: msgShuttingDown, Color: slack.ColorDanger}
	if term.Label != "" {
		a.Title = term.Label + " Search Results:"
	}
	return slack.AttachmentPayload(a)
}
