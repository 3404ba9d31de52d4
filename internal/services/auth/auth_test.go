package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/billing-engine/internal/lib/jwt"
	"github.com/magabrotheeeer/billing-engine/internal/lib/password"
	"github.com/magabrotheeeer/billing-engine/internal/models"
)

type UsersMock struct{ mock.Mock }

func (m *UsersMock) RegisterUser(ctx context.Context, user models.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}
func (m *UsersMock) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func newMaker() *jwt.MakerImpl {
	return jwt.NewJWTMaker("test-secret", time.Hour)
}

func TestService_Register(t *testing.T) {
	users := new(UsersMock)
	users.On("RegisterUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
		return u.Username == "billing-service" &&
			u.Address == "0xservice" &&
			u.Role == "service" &&
			u.PasswordHash != "secret" &&
			password.CompareHash(u.PasswordHash, "secret") == nil
	})).Return("uid-1", nil).Once()

	s := New(users, newMaker())
	uid, err := s.Register(context.Background(), "svc@example.com", "billing-service", "0xservice", "secret")

	assert.NoError(t, err)
	assert.Equal(t, "uid-1", uid)
	users.AssertExpectations(t)
}

func TestService_Login(t *testing.T) {
	hash, err := password.GetHash("secret")
	assert.NoError(t, err)

	user := &models.User{
		Username:     "billing-service",
		Address:      "0xservice",
		PasswordHash: hash,
		Role:         "service",
	}

	t.Run("valid credentials produce verifiable token", func(t *testing.T) {
		users := new(UsersMock)
		users.On("GetUserByUsername", mock.Anything, "billing-service").Return(user, nil).Once()

		s := New(users, newMaker())
		token, role, err := s.Login(context.Background(), "billing-service", "secret")

		assert.NoError(t, err)
		assert.Equal(t, "service", role)

		caller, valid, err := s.ValidateToken(context.Background(), token)
		assert.NoError(t, err)
		assert.True(t, valid)
		assert.Equal(t, "0xservice", caller.Address)
		assert.Equal(t, "billing-service", caller.Username)
	})

	t.Run("wrong password", func(t *testing.T) {
		users := new(UsersMock)
		users.On("GetUserByUsername", mock.Anything, "billing-service").Return(user, nil).Once()

		s := New(users, newMaker())
		_, _, err := s.Login(context.Background(), "billing-service", "wrong")

		assert.Error(t, err)
	})

	t.Run("unknown user", func(t *testing.T) {
		users := new(UsersMock)
		users.On("GetUserByUsername", mock.Anything, "ghost").
			Return(nil, errors.New("user not found")).Once()

		s := New(users, newMaker())
		_, _, err := s.Login(context.Background(), "ghost", "secret")

		assert.Error(t, err)
	})
}

func TestService_ValidateToken(t *testing.T) {
	s := New(new(UsersMock), newMaker())

	t.Run("garbage token rejected", func(t *testing.T) {
		_, valid, err := s.ValidateToken(context.Background(), "not-a-token")
		assert.Error(t, err)
		assert.False(t, valid)
	})

	t.Run("token signed by another key rejected", func(t *testing.T) {
		other := jwt.NewJWTMaker("other-secret", time.Hour)
		token, err := other.GenerateToken("billing-service", "service", "0xservice")
		assert.NoError(t, err)

		_, valid, err := s.ValidateToken(context.Background(), token)
		assert.Error(t, err)
		assert.False(t, valid)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		expired := jwt.NewJWTMaker("test-secret", -time.Hour)
		token, err := expired.GenerateToken("billing-service", "service", "0xservice")
		assert.NoError(t, err)

		_, valid, err := s.ValidateToken(context.Background(), token)
		assert.Error(t, err)
		assert.False(t, valid)
	})
}
