package billing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/billing-engine/internal/dispatch"
	"github.com/magabrotheeeer/billing-engine/internal/metrics"
	"github.com/magabrotheeeer/billing-engine/internal/models"
)

// Доли расчёта за паузу от цены цикла, в промилле: всего 12.5%,
// из них 10% мерчанту и 2.5% платформе.
const (
	pauseTotalPermille    = 125
	pauseMerchantPermille = 100
)

// PauseWithSettlement приостанавливает подписку по инициативе клиента
// и взимает разовую комиссию двумя переводами: долей мерчанта и долей
// платформы. При payWithToken обе доли конвертируются в токенные единицы
// по цене tokenPrice; иначе доля мерчанта списывается в базовой валюте,
// а доля платформы уходит токенным рельсом по той же цене.
//
// Статус PAUSED фиксируется только после успешного перевода мерчанту:
// неуспех первого перевода отменяет операцию без изменения состояния.
// Неуспех платёжного перевода платформе после успешного перевода мерчанту
// оставляет подписку в PAUSED и возвращает ErrSettlementLegFailed —
// перевод мерчанту отозвать нельзя, доля платформы довзимается оркестратором.
func (s *Service) PauseWithSettlement(ctx context.Context, caller, subscriptionID string, payWithToken bool, tokenPrice int64, processID string) (models.Currency, error) {
	const op = "billing.PauseWithSettlement"

	if err := s.access.Authorize(ctx, caller); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	// Доля платформы уходит токенным рельсом в обеих ветках,
	// поэтому нулевая цена токена означала бы бесплатную паузу.
	if tokenPrice <= 0 {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidTokenPrice)
	}

	s.keys.Lock(subscriptionID)
	defer s.keys.Unlock(subscriptionID)

	sub, err := s.repo.Get(ctx, subscriptionID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if sub == nil {
		return "", fmt.Errorf("%s: %w", op, ErrSubscriptionNotFound)
	}
	if sub.Status == models.StatusPaused || sub.Status == models.StatusUnsubscribed {
		return "", fmt.Errorf("%s: %w", op, ErrSubscriptionNotEligible)
	}

	total := sub.PricePerCycle * pauseTotalPermille / 1000
	merchantShare := sub.PricePerCycle * pauseMerchantPermille / 1000
	feeShare := total - merchantShare

	var currency models.Currency
	if payWithToken {
		merchantTokens := dispatch.ToTokenUnits(merchantShare, tokenPrice)
		totalTokens := dispatch.ToTokenUnits(total, tokenPrice)
		currency, err = s.dispatcher.Settle(ctx, sub.UserAddress, sub.MerchantAddress,
			merchantTokens, tokenPrice, models.CurrencyToken)
		if err != nil {
			return "", fmt.Errorf("%s: merchant leg: %w", op, ErrSettlementLegFailed)
		}
		if err = s.commitPause(ctx, sub, caller, processID, currency, tokenPrice); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		_, err = s.dispatcher.Settle(ctx, sub.UserAddress, s.feeAccount,
			totalTokens-merchantTokens, tokenPrice, models.CurrencyToken)
	} else {
		currency, err = s.dispatcher.Settle(ctx, sub.UserAddress, sub.MerchantAddress,
			merchantShare, 0, models.CurrencyBase)
		if err != nil {
			return "", fmt.Errorf("%s: merchant leg: %w", op, ErrSettlementLegFailed)
		}
		if err = s.commitPause(ctx, sub, caller, processID, currency, tokenPrice); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		_, err = s.dispatcher.Settle(ctx, sub.UserAddress, s.feeAccount,
			dispatch.ToTokenUnits(feeShare, tokenPrice), tokenPrice, models.CurrencyToken)
	}
	if err != nil {
		s.log.Error("pause settlement fee leg failed",
			slog.String("id", sub.ID), slog.Any("err", err))
		return currency, fmt.Errorf("%s: fee leg: %w", op, ErrSettlementLegFailed)
	}

	metrics.Pauses.Inc()
	s.log.Info("subscription paused with settlement",
		slog.String("id", sub.ID), slog.String("currency", string(currency)))
	return currency, nil
}

// commitPause фиксирует статус PAUSED и событие аудита одним коммитом
// и публикует уведомление о паузе.
func (s *Service) commitPause(ctx context.Context, sub *models.Subscription, caller, processID string, currency models.Currency, tokenPrice int64) error {
	event := models.Event{
		Type:           models.EventSubscriptionPaused,
		SubscriptionID: sub.ID,
		ProductID:      sub.ProductID,
		Actor:          caller,
		CorrelationID:  processID,
		Currency:       currency,
		TokenPrice:     tokenPrice,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.repo.UpdateStatus(ctx, sub.ID, models.StatusPaused, event); err != nil {
		return err
	}
	sub.Status = models.StatusPaused
	s.invalidateStatus(sub.ID)
	s.publish(event)
	return nil
}
