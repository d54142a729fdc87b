package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"caretaker.app/relay/internal/metrics"
	"caretaker.app/relay/internal/model"
	"caretaker.app/relay/internal/security"
	"caretaker.app/relay/internal/service/issue_tracker"
	"caretaker.app/relay/internal/store"
)

const unknownValue = "unknown"

// IssueCreateTimeout bounds the issue tracker call made while answering an
// advisory webhook, retries included.
const IssueCreateTimeout = 10 * time.Second

var ErrMissingSecret = errors.New("secret is required")

type AdvisoryResult struct {
	AdvisoryID string
	Metric     model.SecurityMetric
	Issue      *issue_tracker.Issue
}

type SecurityService interface {
	IngestAdvisory(ctx context.Context, event model.SecurityAdvisoryEvent) (*AdvisoryResult, error)
	Metrics(ctx context.Context) ([]model.SecurityMetric, error)
	RotateSecret(ctx context.Context, secret string) error
	// SeedSecret rotates secret in only when the ring has expired. It reports
	// whether it did.
	SeedSecret(ctx context.Context, secret string) (bool, error)
}

type securityService struct {
	metricsStore store.SecurityMetricStore
	ring         security.SecretRing
	issues       issue_tracker.IssueCreator
	metrics      *metrics.Metrics
}

func NewSecurityService(
	metricsStore store.SecurityMetricStore,
	ring security.SecretRing,
	issues issue_tracker.IssueCreator,
	m *metrics.Metrics,
) SecurityService {
	return &securityService{
		metricsStore: metricsStore,
		ring:         ring,
		issues:       issues,
		metrics:      m,
	}
}

// IngestAdvisory records the advisory against its repository and asks the issue
// tracker for a follow-up issue. Issue creation failures are logged only.
func (s *securityService) IngestAdvisory(ctx context.Context, event model.SecurityAdvisoryEvent) (*AdvisoryResult, error) {
	owner, name, _ := strings.Cut(event.Repository.FullName, "/")
	advisory := event.Alert.SecurityAdvisory

	severity := valueOr(advisory.Severity, unknownValue)
	advisoryID := valueOr(advisory.GHSAID, unknownValue)
	pkg := event.Alert.Dependency.Package.Name

	metric := model.SecurityMetric{Owner: owner, Name: name, Severity: severity}
	if err := s.metricsStore.Upsert(ctx, advisoryID, metric); err != nil {
		return nil, fmt.Errorf("recording security metric: %w", err)
	}
	s.metrics.ObserveAdvisory(severity)

	result := &AdvisoryResult{AdvisoryID: advisoryID, Metric: metric}

	issueCtx, cancel := context.WithTimeout(ctx, IssueCreateTimeout)
	defer cancel()

	issue, err := s.issues.CreateIssue(issueCtx, issue_tracker.CreateIssueParams{
		Owner: owner,
		Repo:  name,
		Title: fmt.Sprintf("[Dependabot] %s vulnerability %s (%s)", pkg, advisoryID, severity),
		Body:  fmt.Sprintf("Severity: %s\n\n%s\n\nAuto-created by CareTaker.", severity, advisory.Description),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create advisory issue",
			"error", err,
			"advisory_id", advisoryID,
			"repo", event.Repository.FullName)
		return result, nil
	}
	result.Issue = issue

	slog.InfoContext(ctx, "security advisory ingested",
		"advisory_id", advisoryID,
		"severity", severity,
		"repo", event.Repository.FullName)
	return result, nil
}

// Metrics lists every recorded advisory ordered by advisory id.
func (s *securityService) Metrics(ctx context.Context) ([]model.SecurityMetric, error) {
	byID, err := s.metricsStore.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing security metrics: %w", err)
	}

	ids := make([]string, 0, len(byID))
	for advisoryID := range byID {
		ids = append(ids, advisoryID)
	}
	sort.Strings(ids)

	items := make([]model.SecurityMetric, 0, len(ids))
	for _, advisoryID := range ids {
		items = append(items, byID[advisoryID])
	}
	return items, nil
}

func (s *securityService) RotateSecret(ctx context.Context, secret string) error {
	if secret == "" {
		return ErrMissingSecret
	}
	if err := s.ring.Rotate(ctx, secret); err != nil {
		return fmt.Errorf("rotating webhook secret: %w", err)
	}
	s.metrics.ObserveRotation()

	slog.InfoContext(ctx, "webhook secret rotated")
	return nil
}

func (s *securityService) SeedSecret(ctx context.Context, secret string) (bool, error) {
	if secret == "" {
		return false, nil
	}

	expired, err := s.ring.IsExpired(ctx)
	if err != nil {
		return false, fmt.Errorf("checking secret ring: %w", err)
	}
	if !expired {
		return false, nil
	}

	if err := s.RotateSecret(ctx, secret); err != nil {
		return false, err
	}
	return true, nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
