package issue_tracker

import (
	"context"
	"log/slog"
)

type CreateIssueParams struct {
	Owner string
	Repo  string
	Title string
	Body  string
}

type Issue struct {
	Number int    `json:"number"`
	URL    string `json:"html_url"`
}

// IssueCreator opens issues in the tracker that hosts a repository.
type IssueCreator interface {
	CreateIssue(ctx context.Context, params CreateIssueParams) (*Issue, error)
}

type loggingIssueCreator struct {
	logger *slog.Logger
}

// NewLoggingIssueCreator is used when no tracker credentials are configured. It
// records what would have been created and reports no issue.
func NewLoggingIssueCreator(logger *slog.Logger) IssueCreator {
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingIssueCreator{logger: logger}
}

func (c *loggingIssueCreator) CreateIssue(ctx context.Context, params CreateIssueParams) (*Issue, error) {
	c.logger.InfoContext(ctx, "issue tracker not configured, skipping issue",
		"owner", params.Owner,
		"repo", params.Repo,
		"title", params.Title)
	return nil, nil
}
