package charge

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/billing-engine/internal/dispatch"
	"github.com/magabrotheeeer/billing-engine/internal/http/middlewarectx"
	"github.com/magabrotheeeer/billing-engine/internal/models"
	"github.com/magabrotheeeer/billing-engine/internal/services/billing"
)

// MockService реализует интерфейс charge.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) ProcessPayment(ctx context.Context, caller, subscriptionID string, order models.PaymentOrder, rebillID string) (models.Currency, error) {
	args := m.Called(ctx, caller, subscriptionID, order, rebillID)
	return args.Get(0).(models.Currency), args.Error(1)
}

const subID = "9714bb79-2a41-4f0f-9dfd-0ad3fe4d2c7e"

const validBody = `{"base_amount": 1000, "rebill_id": "rebill-1"}`

func TestChargeHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешное списание",
			body: validBody,
			setupMock: func(m *MockService) {
				m.On("ProcessPayment", mock.Anything, "0xcaller", subID,
					models.PaymentOrder{BaseAmount: 1000}, "rebill-1").
					Return(models.CurrencyBase, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"currency_used":"base"`,
		},
		{
			name:           "некорректный JSON",
			body:           "{not json",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "invalid request body",
		},
		{
			name:           "нет rebill_id",
			body:           `{"base_amount": 1000}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   "required field",
		},
		{
			name: "подписка не найдена",
			body: validBody,
			setupMock: func(m *MockService) {
				m.On("ProcessPayment", mock.Anything, "0xcaller", subID, mock.Anything, "rebill-1").
					Return(models.Currency(""), fmt.Errorf("billing.ProcessPayment: %w", billing.ErrSubscriptionNotFound))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   "subscription not found",
		},
		{
			name: "рано списывать",
			body: validBody,
			setupMock: func(m *MockService) {
				m.On("ProcessPayment", mock.Anything, "0xcaller", subID, mock.Anything, "rebill-1").
					Return(models.Currency(""), fmt.Errorf("billing.ProcessPayment: %w", billing.ErrTooEarlyToBill))
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   "too early to bill",
		},
		{
			name: "сумма превышает цену цикла",
			body: validBody,
			setupMock: func(m *MockService) {
				m.On("ProcessPayment", mock.Anything, "0xcaller", subID, mock.Anything, "rebill-1").
					Return(models.Currency(""), fmt.Errorf("dispatch.Charge: %w", dispatch.ErrOverchargeAttempt))
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   "exceeds price per cycle",
		},
		{
			name: "платёж отклонён шлюзом",
			body: validBody,
			setupMock: func(m *MockService) {
				m.On("ProcessPayment", mock.Anything, "0xcaller", subID, mock.Anything, "rebill-1").
					Return(models.Currency(""), fmt.Errorf("dispatch.Charge: %w", dispatch.ErrPaymentFailed))
			},
			expectedStatus: http.StatusPaymentRequired,
			expectedBody:   "payment failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/subscriptions/"+subID+"/charge",
				strings.NewReader(tt.body))
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", subID)
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			ctx = context.WithValue(ctx, middlewarectx.Address, "0xcaller")
			req = req.WithContext(ctx)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
