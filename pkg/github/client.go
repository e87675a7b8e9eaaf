// Package github looks up pull request metadata used to enrich webhook
// replies.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	"github.com/holon-run/version-check/pkg/log"
)

// DefaultBaseURL is the public GitHub API endpoint.
const DefaultBaseURL = "https://api.github.com/"

// ErrRateLimited is returned without calling the API while the tracked
// limit is exhausted.
var ErrRateLimited = errors.New("github rate limit exhausted")

// PRInfo is the subset of pull request metadata shown in replies.
type PRInfo struct {
	Number      int
	Title       string
	State       string
	URL         string
	Author      string
	Merged      bool
	MergeCommit string
	HeadSHA     string
}

// Status renders the state the way the GitHub UI does.
func (p *PRInfo) Status() string {
	if p.Merged {
		return "merged"
	}
	return p.State
}

// Client wraps go-github with an optional token.
type Client struct {
	gh   *github.Client
	rate *RateLimitTracker
	now  func() time.Time
}

type clientOptions struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// Option customizes NewClient.
type Option func(*clientOptions)

// WithBaseURL points the client at a GitHub Enterprise or test server.
func WithBaseURL(u string) Option {
	return func(o *clientOptions) { o.baseURL = u }
}

// WithHTTPClient sets the underlying transport. With a token the oauth2
// transport wraps it.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithTimeout bounds each API request.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// NewClient creates a Client. An empty token makes unauthenticated requests.
func NewClient(token string, opts ...Option) (*Client, error) {
	o := clientOptions{baseURL: DefaultBaseURL, timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: o.timeout}
	}
	if token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		tc := oauth2.NewClient(ctx, ts)
		tc.Timeout = httpClient.Timeout
		httpClient = tc
	}

	gh := github.NewClient(httpClient)
	if o.baseURL != "" && o.baseURL != DefaultBaseURL {
		base := o.baseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		parsed, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid github base url %q: %w", o.baseURL, err)
		}
		gh.BaseURL = parsed
	}

	return &Client{gh: gh, rate: NewRateLimitTracker(), now: time.Now}, nil
}

// RateLimit returns the limit reported by the last response.
func (c *Client) RateLimit() RateLimitStatus {
	return c.rate.GetStatus()
}

// FetchPRInfo fetches basic pull request information.
func (c *Client) FetchPRInfo(ctx context.Context, owner, repo string, number int) (*PRInfo, error) {
	if c.rate.Exhausted(c.now()) {
		return nil, ErrRateLimited
	}

	pr, resp, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
	if resp != nil && resp.Response != nil {
		c.rate.Update(resp.Response)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch PR: %w", err)
	}

	info := convertFromGitHubPR(pr)
	log.Debug("fetched pull request", "repo", owner+"/"+repo, "pr", number, "state", info.Status())
	return info, nil
}

func convertFromGitHubPR(pr *github.PullRequest) *PRInfo {
	author := ""
	if user := pr.GetUser(); user != nil {
		author = user.GetLogin()
	}
	headSHA := ""
	if head := pr.GetHead(); head != nil {
		headSHA = head.GetSHA()
	}
	return &PRInfo{
		Number:      pr.GetNumber(),
		Title:       pr.GetTitle(),
		State:       pr.GetState(),
		URL:         pr.GetHTMLURL(),
		Author:      author,
		Merged:      pr.GetMerged(),
		MergeCommit: pr.GetMergeCommitSHA(),
		HeadSHA:     headSHA,
	}
}
