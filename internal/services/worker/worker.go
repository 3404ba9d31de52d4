// Package worker исполняет команды перевыставления из очереди RabbitMQ,
// вызывая операцию планового списания биллингового движка.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/billing-engine/internal/dispatch"
	"github.com/magabrotheeeer/billing-engine/internal/lib/sl"
	"github.com/magabrotheeeer/billing-engine/internal/models"
	"github.com/magabrotheeeer/billing-engine/internal/services/billing"
)

// Engine — операции движка, нужные воркеру.
type Engine interface {
	ProcessPayment(ctx context.Context, caller, subscriptionID string, order models.PaymentOrder, rebillID string) (models.Currency, error)
	Status(ctx context.Context, subscriptionID string) (models.Status, error)
}

// SubscriptionReader читает запись подписки для построения поручения.
type SubscriptionReader interface {
	Get(ctx context.Context, id string) (*models.Subscription, error)
}

// Service обрабатывает команды перевыставления.
// Исполняется от имени сервисного адреса, авторизованного администратором.
type Service struct {
	engine        Engine
	subscriptions SubscriptionReader
	callerAddress string
	log           *slog.Logger
}

// New создает новый Service.
func New(engine Engine, subscriptions SubscriptionReader, callerAddress string, log *slog.Logger) *Service {
	return &Service{
		engine:        engine,
		subscriptions: subscriptions,
		callerAddress: callerAddress,
		log:           log,
	}
}

// HandleRebill разбирает команду перевыставления и выполняет списание
// полной цены цикла в базовой валюте с разрешённым fallback.
//
// Возврат ошибки приводит к nack и повторной доставке, поэтому ошибки
// предусловий (пауза, отмена, рано списывать) поглощаются с записью в лог:
// повтор той же команды их не вылечит.
func (s *Service) HandleRebill(body []byte) error {
	ctx := context.Background()

	var cmd models.RebillCommand
	if err := json.Unmarshal(body, &cmd); err != nil {
		s.log.Error("failed to unmarshal rebill command", sl.Err(err))
		return fmt.Errorf("error unmarshalling rebill command: %w", err)
	}

	sub, err := s.subscriptions.Get(ctx, cmd.SubscriptionID)
	if err != nil {
		return fmt.Errorf("failed to read subscription: %w", err)
	}
	if sub == nil {
		s.log.Warn("rebill command for missing subscription",
			slog.String("id", cmd.SubscriptionID))
		return nil
	}

	order := models.PaymentOrder{
		BaseAmount:  sub.PricePerCycle,
		UseFallback: true,
	}
	_, err = s.engine.ProcessPayment(ctx, s.callerAddress, cmd.SubscriptionID, order, cmd.RebillID)
	switch {
	case err == nil:
		s.log.Info("rebill processed",
			slog.String("id", cmd.SubscriptionID), slog.String("rebill_id", cmd.RebillID))
		return nil
	case errors.Is(err, billing.ErrSubscriptionNotEligible),
		errors.Is(err, billing.ErrCyclesExhausted),
		errors.Is(err, billing.ErrProductPaused),
		errors.Is(err, billing.ErrTooEarlyToBill):
		s.log.Info("rebill skipped", slog.String("id", cmd.SubscriptionID), sl.Err(err))
		return nil
	case errors.Is(err, dispatch.ErrPaymentFailed):
		// Расписание уже сдвинуто на следующий цикл, повтор не нужен.
		s.log.Warn("rebill payment failed", slog.String("id", cmd.SubscriptionID), sl.Err(err))
		return nil
	default:
		s.log.Error("rebill failed", slog.String("id", cmd.SubscriptionID), sl.Err(err))
		return err
	}
}
