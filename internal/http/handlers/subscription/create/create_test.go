package create

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/billing-engine/internal/dispatch"
	"github.com/magabrotheeeer/billing-engine/internal/http/middlewarectx"
	"github.com/magabrotheeeer/billing-engine/internal/models"
	"github.com/magabrotheeeer/billing-engine/internal/services/access"
	"github.com/magabrotheeeer/billing-engine/internal/services/billing"
)

// MockService реализует интерфейс create.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Create(ctx context.Context, caller string, req models.DummySubscription) (models.Currency, error) {
	args := m.Called(ctx, caller, req)
	return args.Get(0).(models.Currency), args.Error(1)
}

const validBody = `{
	"subscription_id": "9714bb79-2a41-4f0f-9dfd-0ad3fe4d2c7e",
	"user_address": "0xuser",
	"merchant_address": "0xmerchant",
	"product_id": "product-1",
	"billing_cycle_seconds": 2592000,
	"total_cycles": 12,
	"price_per_cycle": 1000,
	"initial_payment": {"base_amount": 1000},
	"process_id": "proc-1"
}`

func TestCreateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		body           string
		caller         string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "успешное создание подписки",
			body:   validBody,
			caller: "0xcaller",
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, "0xcaller", mock.MatchedBy(func(r models.DummySubscription) bool {
					return r.SubscriptionID == "9714bb79-2a41-4f0f-9dfd-0ad3fe4d2c7e" &&
						r.PricePerCycle == 1000
				})).Return(models.CurrencyBase, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"currency_used":"base"`,
		},
		{
			name:           "некорректный JSON",
			body:           "{not json",
			caller:         "0xcaller",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "invalid request body",
		},
		{
			name:           "ошибка валидации: не UUID",
			body:           strings.Replace(validBody, "9714bb79-2a41-4f0f-9dfd-0ad3fe4d2c7e", "not-a-uuid", 1),
			caller:         "0xcaller",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   "can contain only uuid",
		},
		{
			name:           "нет адреса вызывающей стороны",
			body:           validBody,
			caller:         "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "unauthorized",
		},
		{
			name:   "неавторизованный вызов",
			body:   validBody,
			caller: "0xintruder",
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, "0xintruder", mock.Anything).
					Return(models.Currency(""), fmt.Errorf("billing.Create: %w", access.ErrNotAuthorized))
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   "caller is not authorized",
		},
		{
			name:   "система на глобальной паузе",
			body:   validBody,
			caller: "0xcaller",
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, "0xcaller", mock.Anything).
					Return(models.Currency(""), fmt.Errorf("billing.Create: %w", access.ErrSystemPaused))
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   "system is paused",
		},
		{
			name:   "дубликат активной подписки",
			body:   validBody,
			caller: "0xcaller",
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, "0xcaller", mock.Anything).
					Return(models.Currency(""), fmt.Errorf("billing.Create: %w", billing.ErrDuplicateActiveSubscription))
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   "already exists",
		},
		{
			name:   "первый платёж отклонён",
			body:   validBody,
			caller: "0xcaller",
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, "0xcaller", mock.Anything).
					Return(models.Currency(""), fmt.Errorf("billing.Create: %w", dispatch.ErrPaymentFailed))
			},
			expectedStatus: http.StatusPaymentRequired,
			expectedBody:   "initial payment failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/subscriptions", strings.NewReader(tt.body))
			if tt.caller != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.Address, tt.caller))
			}

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
