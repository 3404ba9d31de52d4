package middlewarectx

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/billing-engine/internal/models"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) ValidateToken(ctx context.Context, token string) (*models.User, bool, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.User), args.Bool(1), args.Error(2)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestJWTMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		authHeader     string
		setupMock      func(*MockAuthService)
		expectedStatus int
		expectAddress  string
	}{
		{
			name:       "valid token populates caller context",
			authHeader: "Bearer valid-token",
			setupMock: func(m *MockAuthService) {
				m.On("ValidateToken", mock.Anything, "valid-token").
					Return(&models.User{
						Username: "billing-service",
						Role:     "service",
						Address:  "0xservice",
					}, true, nil)
			},
			expectedStatus: http.StatusOK,
			expectAddress:  "0xservice",
		},
		{
			name:           "missing header",
			authHeader:     "",
			setupMock:      func(_ *MockAuthService) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "malformed header",
			authHeader:     "Token abc",
			setupMock:      func(_ *MockAuthService) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid token",
			authHeader: "Bearer bad-token",
			setupMock: func(m *MockAuthService) {
				m.On("ValidateToken", mock.Anything, "bad-token").
					Return(nil, false, errors.New("token is expired"))
			},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockAuthService)
			tt.setupMock(mockService)

			var gotAddress string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAddress, _ = CallerAddress(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			handler := JWTMiddleware(mockService, newNoopLogger())(next)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectAddress != "" {
				assert.Equal(t, tt.expectAddress, gotAddress)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestCallerAddress(t *testing.T) {
	t.Run("empty context", func(t *testing.T) {
		_, ok := CallerAddress(context.Background())
		assert.False(t, ok)
	})

	t.Run("empty address treated as missing", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), Address, "")
		_, ok := CallerAddress(ctx)
		assert.False(t, ok)
	})
}
