package access

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/billing-engine/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) IsAuthorized(ctx context.Context, address string) (bool, error) {
	args := m.Called(ctx, address)
	return args.Bool(0), args.Error(1)
}
func (m *RepoMock) SetAuthorized(ctx context.Context, address string, authorized bool) error {
	return m.Called(ctx, address, authorized).Error(0)
}
func (m *RepoMock) IsProductPaused(ctx context.Context, productID string) (bool, error) {
	args := m.Called(ctx, productID)
	return args.Bool(0), args.Error(1)
}
func (m *RepoMock) SetProductPaused(ctx context.Context, productID string, paused bool, event models.Event) error {
	return m.Called(ctx, productID, paused, event).Error(0)
}
func (m *RepoMock) IsSystemPaused(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}
func (m *RepoMock) SetSystemPaused(ctx context.Context, paused bool) error {
	return m.Called(ctx, paused).Error(0)
}

type NotifierMock struct{ mock.Mock }

func (m *NotifierMock) Publish(event models.Event) error {
	return m.Called(event).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

const adminAddress = "0xadmin"

func newService(repo *RepoMock, notifier *NotifierMock) *Service {
	return New(repo, notifier, adminAddress, newNoopLogger())
}

func TestService_Authorize(t *testing.T) {
	tests := []struct {
		name       string
		caller     string
		setupMocks func(r *RepoMock)
		wantErr    error
	}{
		{
			name:   "authorized caller",
			caller: "0xservice",
			setupMocks: func(r *RepoMock) {
				r.On("IsSystemPaused", mock.Anything).Return(false, nil).Once()
				r.On("IsAuthorized", mock.Anything, "0xservice").Return(true, nil).Once()
			},
		},
		{
			name:   "admin is implicitly authorized",
			caller: adminAddress,
			setupMocks: func(r *RepoMock) {
				r.On("IsSystemPaused", mock.Anything).Return(false, nil).Once()
			},
		},
		{
			name:   "unknown caller rejected",
			caller: "0xintruder",
			setupMocks: func(r *RepoMock) {
				r.On("IsSystemPaused", mock.Anything).Return(false, nil).Once()
				r.On("IsAuthorized", mock.Anything, "0xintruder").Return(false, nil).Once()
			},
			wantErr: ErrNotAuthorized,
		},
		{
			name:   "system pause blocks everyone including admin",
			caller: adminAddress,
			setupMocks: func(r *RepoMock) {
				r.On("IsSystemPaused", mock.Anything).Return(true, nil).Once()
			},
			wantErr: ErrSystemPaused,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			tt.setupMocks(repo)
			s := newService(repo, new(NotifierMock))

			err := s.Authorize(context.Background(), tt.caller)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestService_IsProductPaused(t *testing.T) {
	t.Run("empty product id is never paused", func(t *testing.T) {
		repo := new(RepoMock)
		s := newService(repo, new(NotifierMock))

		paused, err := s.IsProductPaused(context.Background(), "")

		assert.NoError(t, err)
		assert.False(t, paused)
		repo.AssertNotCalled(t, "IsProductPaused")
	})

	t.Run("delegates to repository", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("IsProductPaused", mock.Anything, "product-1").Return(true, nil).Once()
		s := newService(repo, new(NotifierMock))

		paused, err := s.IsProductPaused(context.Background(), "product-1")

		assert.NoError(t, err)
		assert.True(t, paused)
	})
}

func TestService_SetProductPaused(t *testing.T) {
	t.Run("authorized caller pauses product and event is published", func(t *testing.T) {
		repo := new(RepoMock)
		notifier := new(NotifierMock)
		repo.On("IsSystemPaused", mock.Anything).Return(false, nil).Once()
		repo.On("IsAuthorized", mock.Anything, "0xmerchant").Return(true, nil).Once()
		repo.On("SetProductPaused", mock.Anything, "product-1", true,
			mock.MatchedBy(func(e models.Event) bool {
				return e.Type == models.EventProductPaused && e.Actor == "0xmerchant"
			})).Return(nil).Once()
		notifier.On("Publish", mock.Anything).Return(nil).Once()

		s := newService(repo, notifier)
		err := s.SetProductPaused(context.Background(), "0xmerchant", "product-1", true)

		assert.NoError(t, err)
		repo.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})

	t.Run("unpausing emits unpaused event", func(t *testing.T) {
		repo := new(RepoMock)
		notifier := new(NotifierMock)
		repo.On("IsSystemPaused", mock.Anything).Return(false, nil).Once()
		repo.On("IsAuthorized", mock.Anything, "0xmerchant").Return(true, nil).Once()
		repo.On("SetProductPaused", mock.Anything, "product-1", false,
			mock.MatchedBy(func(e models.Event) bool {
				return e.Type == models.EventProductUnpaused
			})).Return(nil).Once()
		notifier.On("Publish", mock.Anything).Return(nil).Once()

		s := newService(repo, notifier)
		err := s.SetProductPaused(context.Background(), "0xmerchant", "product-1", false)

		assert.NoError(t, err)
	})

	t.Run("unauthorized caller rejected", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("IsSystemPaused", mock.Anything).Return(false, nil).Once()
		repo.On("IsAuthorized", mock.Anything, "0xintruder").Return(false, nil).Once()

		s := newService(repo, new(NotifierMock))
		err := s.SetProductPaused(context.Background(), "0xintruder", "product-1", true)

		assert.ErrorIs(t, err, ErrNotAuthorized)
		repo.AssertNotCalled(t, "SetProductPaused")
	})
}

func TestService_AdminOperations(t *testing.T) {
	t.Run("admin grants authorization", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("SetAuthorized", mock.Anything, "0xservice", true).Return(nil).Once()

		s := newService(repo, new(NotifierMock))
		err := s.SetAuthorized(context.Background(), adminAddress, "0xservice", true)

		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("non-admin cannot grant authorization", func(t *testing.T) {
		repo := new(RepoMock)
		s := newService(repo, new(NotifierMock))

		err := s.SetAuthorized(context.Background(), "0xservice", "0xother", true)

		assert.ErrorIs(t, err, ErrNotAuthorized)
		repo.AssertNotCalled(t, "SetAuthorized")
	})

	t.Run("admin toggles system pause", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("SetSystemPaused", mock.Anything, true).Return(nil).Once()

		s := newService(repo, new(NotifierMock))
		err := s.SetSystemPaused(context.Background(), adminAddress, true)

		assert.NoError(t, err)
	})

	t.Run("non-admin cannot toggle system pause", func(t *testing.T) {
		repo := new(RepoMock)
		s := newService(repo, new(NotifierMock))

		err := s.SetSystemPaused(context.Background(), "0xservice", true)

		assert.ErrorIs(t, err, ErrNotAuthorized)
		repo.AssertNotCalled(t, "SetSystemPaused")
	})
}
