package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/billing-engine/internal/dispatch"
	"github.com/magabrotheeeer/billing-engine/internal/models"
	"github.com/magabrotheeeer/billing-engine/internal/services/billing"
)

type EngineMock struct{ mock.Mock }

func (m *EngineMock) ProcessPayment(ctx context.Context, caller, subscriptionID string, order models.PaymentOrder, rebillID string) (models.Currency, error) {
	args := m.Called(ctx, caller, subscriptionID, order, rebillID)
	return args.Get(0).(models.Currency), args.Error(1)
}
func (m *EngineMock) Status(ctx context.Context, subscriptionID string) (models.Status, error) {
	args := m.Called(ctx, subscriptionID)
	return args.Get(0).(models.Status), args.Error(1)
}

type ReaderMock struct{ mock.Mock }

func (m *ReaderMock) Get(ctx context.Context, id string) (*models.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func commandBody(t *testing.T, subscriptionID, rebillID string) []byte {
	t.Helper()
	body, err := json.Marshal(models.RebillCommand{
		SubscriptionID: subscriptionID,
		RebillID:       rebillID,
	})
	assert.NoError(t, err)
	return body
}

func TestService_HandleRebill(t *testing.T) {
	const workerAddress = "0xworker"
	sub := &models.Subscription{
		ID:            "sub-1",
		PricePerCycle: 1000,
	}
	wantOrder := models.PaymentOrder{BaseAmount: 1000, UseFallback: true}

	tests := []struct {
		name       string
		body       []byte
		setupMocks func(e *EngineMock, r *ReaderMock)
		wantErr    bool
	}{
		{
			name: "successful rebill",
			body: commandBody(t, "sub-1", "rebill-1"),
			setupMocks: func(e *EngineMock, r *ReaderMock) {
				r.On("Get", mock.Anything, "sub-1").Return(sub, nil).Once()
				e.On("ProcessPayment", mock.Anything, workerAddress, "sub-1", wantOrder, "rebill-1").
					Return(models.CurrencyBase, nil).Once()
			},
		},
		{
			name: "missing subscription is acked",
			body: commandBody(t, "gone", "rebill-2"),
			setupMocks: func(_ *EngineMock, r *ReaderMock) {
				r.On("Get", mock.Anything, "gone").Return(nil, nil).Once()
			},
		},
		{
			name: "precondition errors are not redelivered",
			body: commandBody(t, "sub-1", "rebill-3"),
			setupMocks: func(e *EngineMock, r *ReaderMock) {
				r.On("Get", mock.Anything, "sub-1").Return(sub, nil).Once()
				e.On("ProcessPayment", mock.Anything, workerAddress, "sub-1", wantOrder, "rebill-3").
					Return(models.Currency(""), fmt.Errorf("billing.ProcessPayment: %w", billing.ErrTooEarlyToBill)).Once()
			},
		},
		{
			name: "payment failure is not redelivered",
			body: commandBody(t, "sub-1", "rebill-4"),
			setupMocks: func(e *EngineMock, r *ReaderMock) {
				r.On("Get", mock.Anything, "sub-1").Return(sub, nil).Once()
				e.On("ProcessPayment", mock.Anything, workerAddress, "sub-1", wantOrder, "rebill-4").
					Return(models.Currency(""), fmt.Errorf("dispatch.Charge: %w", dispatch.ErrPaymentFailed)).Once()
			},
		},
		{
			name: "storage errors are redelivered",
			body: commandBody(t, "sub-1", "rebill-5"),
			setupMocks: func(e *EngineMock, r *ReaderMock) {
				r.On("Get", mock.Anything, "sub-1").Return(sub, nil).Once()
				e.On("ProcessPayment", mock.Anything, workerAddress, "sub-1", wantOrder, "rebill-5").
					Return(models.Currency(""), errors.New("connection reset")).Once()
			},
			wantErr: true,
		},
		{
			name:       "malformed command",
			body:       []byte("{not json"),
			setupMocks: func(_ *EngineMock, _ *ReaderMock) {},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := new(EngineMock)
			reader := new(ReaderMock)
			tt.setupMocks(engine, reader)
			s := New(engine, reader, workerAddress, newNoopLogger())

			err := s.HandleRebill(tt.body)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			engine.AssertExpectations(t)
			reader.AssertExpectations(t)
		})
	}
}
