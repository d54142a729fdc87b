package service_test

import (
	"context"
	"errors"

	"caretaker.app/relay/internal/model"
	"caretaker.app/relay/internal/service/issue_tracker"
)

type mockIssueCreator struct {
	createIssueFn func(ctx context.Context, params issue_tracker.CreateIssueParams) (*issue_tracker.Issue, error)
	calls         []issue_tracker.CreateIssueParams
}

func (m *mockIssueCreator) CreateIssue(ctx context.Context, params issue_tracker.CreateIssueParams) (*issue_tracker.Issue, error) {
	m.calls = append(m.calls, params)
	if m.createIssueFn != nil {
		return m.createIssueFn(ctx, params)
	}
	return &issue_tracker.Issue{Number: 1}, nil
}

type mockSecretRing struct {
	rotateFn    func(ctx context.Context, secret string) error
	isExpiredFn func(ctx context.Context) (bool, error)
	rotated     []string
}

func (m *mockSecretRing) Rotate(ctx context.Context, secret string) error {
	if m.rotateFn != nil {
		if err := m.rotateFn(ctx, secret); err != nil {
			return err
		}
	}
	m.rotated = append(m.rotated, secret)
	return nil
}

func (m *mockSecretRing) ActiveSecrets(ctx context.Context) ([]string, error) {
	return m.rotated, nil
}

func (m *mockSecretRing) IsExpired(ctx context.Context) (bool, error) {
	if m.isExpiredFn != nil {
		return m.isExpiredFn(ctx)
	}
	return len(m.rotated) == 0, nil
}

type mockProducer struct {
	err error
}

func (m *mockProducer) Enqueue(ctx context.Context, priority model.Priority, payload []byte) error {
	return m.err
}

var errStoreDown = errors.New("store unavailable")
