// Package serve runs the Slack slash command endpoint. Requests are verified
// and acknowledged on the HTTP path; searches run on a single background
// worker that reports through the request's response_url.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/holon-run/version-check/pkg/github"
	"github.com/holon-run/version-check/pkg/log"
	"github.com/holon-run/version-check/pkg/search"
	"github.com/holon-run/version-check/pkg/slack"
)

const (
	DefaultPath      = "/version-check"
	DefaultQueueSize = 32

	maxBodyBytes = 1 << 20
)

// Searcher runs searches against the served repository.
type Searcher interface {
	Search(ctx context.Context, req search.Request) (*search.Result, error)
	Fetch(ctx context.Context) error
}

// PullRequestLookup fetches pull request metadata for replies.
type PullRequestLookup interface {
	FetchPRInfo(ctx context.Context, owner, repo string, number int) (*github.PRInfo, error)
}

// Config configures the webhook server.
type Config struct {
	Port          int
	Path          string
	SigningSecret string
	QueueSize     int
	// FetchInterval, when positive, refreshes the remote between jobs.
	FetchInterval time.Duration
	// StateDir, when set, receives searches.ndjson.
	StateDir string

	Searcher Searcher
	Poster   slack.Poster

	// Lookup and Repository enable pull request metadata in replies.
	Lookup     PullRequestLookup
	Repository github.Repository
}

// Server handles Slack slash command requests.
type Server struct {
	server        *http.Server
	path          string
	secret        string
	jobs          chan job
	fetchInterval time.Duration
	searcher      Searcher
	poster        slack.Poster
	lookup        PullRequestLookup
	repository    github.Repository
	searchLog     *ndjsonWriter
	now           func() time.Time
	seq           atomic.Uint64
}

// New creates a Server. It does not start listening.
func New(cfg Config) (*Server, error) {
	if cfg.Searcher == nil {
		return nil, errors.New("searcher is required")
	}
	if cfg.Poster == nil {
		return nil, errors.New("slack poster is required")
	}
	if strings.TrimSpace(cfg.SigningSecret) == "" {
		return nil, errors.New("signing secret is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}

	ws := &Server{
		path:          cfg.Path,
		secret:        cfg.SigningSecret,
		jobs:          make(chan job, cfg.QueueSize),
		fetchInterval: cfg.FetchInterval,
		searcher:      cfg.Searcher,
		poster:        cfg.Poster,
		lookup:        cfg.Lookup,
		repository:    cfg.Repository,
		now:           time.Now,
	}

	if cfg.StateDir != "" {
		w, err := openSearchLog(cfg.StateDir)
		if err != nil {
			return nil, err
		}
		ws.searchLog = w
	}

	ws.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           ws.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return ws, nil
}

// Handler returns the HTTP routes: the slash command path and /health.
func (ws *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(ws.path, ws.handleWebhook)
	mux.HandleFunc("/health", ws.handleHealth)
	return mux
}

// Start serves requests until ctx is cancelled.
func (ws *Server) Start(ctx context.Context) error {
	log.Info("webhook server listening", "addr", ws.server.Addr, "path", ws.path)

	go ws.processJobs(ctx)

	errChan := make(chan error, 1)
	go func() {
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("webhook server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down webhook server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ws.server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// Close releases the search log.
func (ws *Server) Close() error {
	return ws.searchLog.Close()
}

func (ws *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	r.Body.Close()
	if err != nil {
		log.Error("failed to read webhook body", "error", err)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if err := slack.Verify(ws.secret, r.Header, body, ws.now()); err != nil {
		log.Warn("rejected slack request", "error", err, "remote", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}
	responseURL := strings.TrimSpace(form.Get("response_url"))
	if responseURL == "" {
		http.Error(w, "missing response_url", http.StatusBadRequest)
		return
	}

	received := ws.now().UTC()
	j := job{
		ID:          ws.newID(received),
		Text:        form.Get("text"),
		ResponseURL: responseURL,
		User:        form.Get("user_name"),
		ReceivedAt:  received,
	}

	select {
	case ws.jobs <- j:
		w.WriteHeader(http.StatusOK)
		log.Info("slash command accepted", "id", j.ID, "text", j.Text, "user", j.User)
	default:
		log.Warn("job queue full, dropping request", "text", j.Text)
		http.Error(w, "server busy", http.StatusServiceUnavailable)
	}
}

func (ws *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"queued": len(ws.jobs),
		"time":   ws.now().UTC().Format(time.RFC3339Nano),
	})
}

func (ws *Server) newID(t time.Time) string {
	return fmt.Sprintf("search_%d_%d", t.UnixNano(), ws.seq.Add(1))
}

func (ws *Server) processJobs(ctx context.Context) {
	var tick <-chan time.Time
	if ws.fetchInterval > 0 {
		ticker := time.NewTicker(ws.fetchInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			ws.abandonQueued(ctx)
			return
		case j := <-ws.jobs:
			if ctx.Err() != nil {
				ws.abandon(ctx, j)
				continue
			}
			ws.record(ws.processOne(ctx, j))
		case <-tick:
			if err := ws.searcher.Fetch(ctx); err != nil {
				log.Error("periodic fetch failed", "error", err)
			} else {
				log.Debug("periodic fetch finished")
			}
		}
	}
}

// abandonQueued tells every job still waiting in the queue that it will not
// be searched.
func (ws *Server) abandonQueued(ctx context.Context) {
	for {
		select {
		case j := <-ws.jobs:
			ws.abandon(ctx, j)
		default:
			return
		}
	}
}

func (ws *Server) abandon(ctx context.Context, j job) {
	term := parseSearchTerm(j.Text)
	log.Warn("dropping queued search on shutdown", "id", j.ID, "text", j.Text)
	ws.reply(ctx, j, shutdownPayload(term))
	now := ws.now().UTC()
	ws.record(SearchRecord{
		ID:        j.ID,
		Term:      term.Value,
		Kind:      term.Kind,
		User:      j.User,
		Status:    statusCancelled,
		Message:   msgShuttingDown,
		StartedAt: now,
		EndedAt:   now,
	})
}

func (ws *Server) record(rec SearchRecord) {
	if err := ws.searchLog.Write(rec); err != nil {
		log.Error("failed to record search", "id", rec.ID, "error", err)
	}
}

// processOne answers one job. The acknowledgement is delivered before the
// search starts.
func (ws *Server) processOne(ctx context.Context, j job) SearchRecord {
	term := parseSearchTerm(j.Text)
	rec := SearchRecord{
		ID:        j.ID,
		Term:      term.Value,
		Kind:      term.Kind,
		User:      j.User,
		StartedAt: ws.now().UTC(),
	}

	if term.Kind == "" {
		log.Error("pull request number or commit was not provided", "id", j.ID)
		rec.Status = statusInvalid
		rec.Message = msgMissingTerm
		ws.reply(ctx, j, missingTermPayload())
		rec.EndedAt = ws.now().UTC()
		return rec
	}

	ws.reply(ctx, j, searchingPayload())

	log.Info("searching for matches", "id", j.ID, "term", term.Label)
	req := search.Request{}
	if term.Kind == kindPullRequest {
		req.PullRequest = term.Value
	} else {
		req.Commit = term.Value
	}
	res, err := ws.searcher.Search(ctx, req)

	switch {
	case ctx.Err() != nil:
		log.Warn("search interrupted by shutdown", "id", j.ID, "term", term.Label, "error", err)
		rec.Status = statusCancelled
		rec.Message = msgShuttingDown
		ws.reply(ctx, j, shutdownPayload(term))
		rec.EndedAt = ws.now().UTC()
		return rec
	case err != nil:
		log.Error("search failed", "id", j.ID, "term", term.Label, "error", err)
		rec.Status = statusFailed
		rec.Message = err.Error()
	case res.Found():
		log.Info("matches found", "id", j.ID, "term", term.Label, "branches", res.Branches, "tags", res.Tags)
		rec.Status = statusFound
		rec.Commit = res.Commit
		rec.Branches = res.Branches
		rec.Tags = res.Tags
	default:
		log.Info("no matches found", "id", j.ID, "term", term.Label)
		rec.Status = statusNotFound
		rec.Commit = res.Commit
	}

	ws.reply(ctx, j, resultPayload(term, res, err, ws.pullRequestInfo(ctx, term)))
	rec.EndedAt = ws.now().UTC()
	return rec
}

// reply posts payload to the job's response_url. Replies are still sent
// while the server shuts down; the poster's own timeout bounds them.
func (ws *Server) reply(ctx context.Context, j job, payload slack.Payload) {
	if err := ws.poster.Post(context.WithoutCancel(ctx), j.ResponseURL, payload); err != nil {
		log.Error("failed to post slack response", "id", j.ID, "error", err)
	}
}

func (ws *Server) pullRequestInfo(ctx context.Context, term searchTerm) *github.PRInfo {
	if ws.lookup == nil || ws.repository.Owner == "" || term.Kind != kindPullRequest {
		return nil
	}
	number, err := strconv.Atoi(term.Value)
	if err != nil {
		return nil
	}
	info, err := ws.lookup.FetchPRInfo(ctx, ws.repository.Owner, ws.repository.Name, number)
	if err != nil {
		log.Warn("failed to fetch pull request metadata", "pr", number, "error", err)
		return nil
	}
	if info.URL == "" {
		info.URL = ws.repository.PullRequestURL(number)
	}
	return info
}
