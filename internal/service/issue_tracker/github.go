package issue_tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

const (
	DefaultGitHubAPI  = "https://api.github.com"
	gitHubAPIVersion  = "2022-11-28"
	maxErrorBodyBytes = 1024
)

type GitHubConfig struct {
	Token   string
	BaseURL string
	// MinInterval spaces out consecutive API calls.
	MinInterval  time.Duration
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

type gitHubIssueCreator struct {
	client  *retryablehttp.Client
	limiter *rate.Limiter
	baseURL string
	token   string
}

func NewGitHubIssueCreator(cfg GitHubConfig, logger *slog.Logger) IssueCreator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGitHubAPI
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 200 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := retryablehttp.NewClient()
	client.Logger = logger
	client.RetryMax = cfg.MaxRetries
	if cfg.RetryWaitMin > 0 {
		client.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		client.RetryWaitMax = cfg.RetryWaitMax
	}

	return &gitHubIssueCreator{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
	}
}

type createIssueRequest struct {
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
}

func (c *gitHubIssueCreator) CreateIssue(ctx context.Context, params CreateIssueParams) (*Issue, error) {
	if params.Owner == "" || params.Repo == "" {
		return nil, fmt.Errorf("owner and repo are required")
	}

	body, err := json.Marshal(createIssueRequest{Title: params.Title, Body: params.Body})
	if err != nil {
		return nil, fmt.Errorf("encoding issue: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for github rate limit: %w", err)
	}

	endpoint := fmt.Sprintf("%s/repos/%s/%s/issues", c.baseURL, url.PathEscape(params.Owner), url.PathEscape(params.Repo))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building github request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Api-Version", gitHubAPIVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("creating github issue: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("creating github issue: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var issue Issue
	if err := json.NewDecoder(resp.Body).Decode(&issue); err != nil {
		return nil, fmt.Errorf("decoding github issue: %w", err)
	}
	return &issue, nil
}
