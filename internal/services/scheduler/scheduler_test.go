package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/billing-engine/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Subscription, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestService_ScanNoDueSubscriptions(t *testing.T) {
	repo := new(MockRepository)
	repo.On("ListDue", mock.Anything, mock.Anything, 100).
		Return([]*models.Subscription{}, nil).Once()

	s := New(repo, newNoopLogger(), time.Minute, 100)
	s.scan(context.Background(), nil)

	repo.AssertExpectations(t)
}

func TestService_ScanRepositoryError(t *testing.T) {
	repo := new(MockRepository)
	repo.On("ListDue", mock.Anything, mock.Anything, 50).
		Return(nil, errors.New("connection refused")).Once()

	s := New(repo, newNoopLogger(), time.Minute, 50)
	s.scan(context.Background(), nil)

	repo.AssertExpectations(t)
}

func TestService_RunStopsOnContextCancel(t *testing.T) {
	repo := new(MockRepository)
	repo.On("ListDue", mock.Anything, mock.Anything, mock.Anything).
		Return([]*models.Subscription{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	s := New(repo, newNoopLogger(), 10*time.Millisecond, 10)

	done := make(chan struct{})
	go func() {
		s.Run(ctx, nil)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}
}
