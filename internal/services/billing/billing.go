// Package billing реализует машину состояний жизненного цикла подписки.
//
// Сервис владеет записями подписок, проверяет допустимость переходов
// и выполняет попытки списаний через платёжный диспетчер. Все операции
// над одним ключом подписки сериализуются, операции над разными ключами
// выполняются параллельно.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/billing-engine/internal/dispatch"
	"github.com/magabrotheeeer/billing-engine/internal/lib/keylock"
	"github.com/magabrotheeeer/billing-engine/internal/lib/sl"
	"github.com/magabrotheeeer/billing-engine/internal/metrics"
	"github.com/magabrotheeeer/billing-engine/internal/models"
	"github.com/magabrotheeeer/billing-engine/internal/schedule"
)

// SubscriptionRepository определяет методы для работы с подписками в хранилище.
// Методы с событием пишут строку аудита в той же транзакции, что и мутацию.
type SubscriptionRepository interface {
	// Get возвращает подписку по ключу или nil, если записи нет.
	Get(ctx context.Context, id string) (*models.Subscription, error)
	// Create сохраняет новую запись подписки вместе с событием аудита.
	Create(ctx context.Context, sub *models.Subscription, event models.Event) error
	// CommitPayment одним коммитом фиксирует расписание, счётчики и статус
	// после успешного списания вместе с событием аудита.
	CommitPayment(ctx context.Context, sub *models.Subscription, event models.Event) error
	// CommitSchedule фиксирует только сдвиг плановой даты после неуспешной
	// попытки списания.
	CommitSchedule(ctx context.Context, id string, next time.Time) error
	// UpdateStatus меняет статус подписки вместе с событием аудита.
	UpdateStatus(ctx context.Context, id string, status models.Status, event models.Event) error
}

// AccessControl — проверки контроля доступа, предваряющие каждую операцию.
type AccessControl interface {
	// Authorize отклоняет неавторизованных вызывающих и глобальную паузу.
	Authorize(ctx context.Context, caller string) error
	// IsProductPaused возвращает флаг паузы продукта мерчантом.
	IsProductPaused(ctx context.Context, productID string) (bool, error)
}

// Charger выполняет платёжные поручения.
type Charger interface {
	Charge(ctx context.Context, sub *models.Subscription, order models.PaymentOrder) (models.Currency, error)
	Settle(ctx context.Context, payer, payee string, amount, priceHint int64, rail models.Currency) (models.Currency, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Notifier публикует события аудита внешним потребителям.
type Notifier interface {
	Publish(event models.Event) error
}

// Service реализует операции машины состояний подписки.
type Service struct {
	repo       SubscriptionRepository
	access     AccessControl
	dispatcher Charger
	calendar   schedule.Calendar
	cache      Cache
	notifier   Notifier
	feeAccount string
	keys       *keylock.KeyLock
	log        *slog.Logger
	now        func() time.Time
}

// New создает новый Service. feeAccount — адрес платформенного сборщика
// комиссии за паузу.
func New(repo SubscriptionRepository, access AccessControl, dispatcher Charger,
	calendar schedule.Calendar, cache Cache, notifier Notifier,
	feeAccount string, log *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		access:     access,
		dispatcher: dispatcher,
		calendar:   calendar,
		cache:      cache,
		notifier:   notifier,
		feeAccount: feeAccount,
		keys:       keylock.New(),
		log:        log,
		now:        time.Now,
	}
}

// Authorize проверяет право вызывающей стороны на операции движка.
func (s *Service) Authorize(ctx context.Context, caller string) error {
	return s.access.Authorize(ctx, caller)
}

// Create создаёт подписку и сразу выполняет первую попытку списания (цикл 0).
//
// Требует авторизации вызывающей стороны, отсутствия глобальной паузы
// и паузы продукта, отсутствия активной записи под тем же ключом
// и billingDay в диапазоне [0, 28].
func (s *Service) Create(ctx context.Context, caller string, req models.DummySubscription) (models.Currency, error) {
	const op = "billing.Create"

	if err := s.access.Authorize(ctx, caller); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if req.BillingDay < 0 || req.BillingDay > 28 {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidBillingDay)
	}
	if err := s.ensureProductRunning(ctx, req.ProductID, req.ParentProductID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.keys.Lock(req.SubscriptionID)
	defer s.keys.Unlock(req.SubscriptionID)

	existing, err := s.repo.Get(ctx, req.SubscriptionID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if existing != nil && existing.Status == models.StatusActive {
		return "", fmt.Errorf("%s: %w", op, ErrDuplicateActiveSubscription)
	}

	sub := &models.Subscription{
		ID:               req.SubscriptionID,
		UserAddress:      req.UserAddress,
		MerchantAddress:  req.MerchantAddress,
		ProductID:        req.ProductID,
		ParentProductID:  req.ParentProductID,
		Status:           models.StatusActive,
		Unlimited:        req.Unlimited,
		BillingDay:       req.BillingDay,
		BillingCycleSecs: req.BillingCycleSecs,
		TotalCycles:      req.TotalCycles,
		PricePerCycle:    req.PricePerCycle,
	}

	event := models.Event{
		Type:           models.EventSubscriptionCreated,
		SubscriptionID: sub.ID,
		ProductID:      sub.ProductID,
		Actor:          caller,
		CorrelationID:  req.ProcessID,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.repo.Create(ctx, sub, event); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("created new subscription", slog.String("id", sub.ID))
	s.publish(event)
	s.invalidateStatus(sub.ID)

	return s.attemptPayment(ctx, sub, req.InitialPayment, req.ProcessID)
}

// ProcessPayment выполняет плановое списание одного цикла подписки.
//
// Расписание сдвигается на следующий цикл вместе с попыткой, а не по её
// исходу: неуспешное списание тоже потребляет цикл (политика "одна попытка
// на цикл"). Счётчики и статус меняются только при успехе, одним коммитом
// со сдвигом расписания.
func (s *Service) ProcessPayment(ctx context.Context, caller, subscriptionID string, order models.PaymentOrder, rebillID string) (models.Currency, error) {
	const op = "billing.ProcessPayment"

	if err := s.access.Authorize(ctx, caller); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
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
	if !sub.CyclesRemaining() {
		return "", fmt.Errorf("%s: %w", op, ErrCyclesExhausted)
	}
	if err := s.ensureProductRunning(ctx, sub.ProductID, sub.ParentProductID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if sub.Status == models.StatusUnsubscribed || sub.Status == models.StatusPaused {
		return "", fmt.Errorf("%s: %w", op, ErrSubscriptionNotEligible)
	}
	if s.now().Before(sub.NextBillingTime) {
		return "", fmt.Errorf("%s: %w", op, ErrTooEarlyToBill)
	}

	return s.attemptPayment(ctx, sub, order, rebillID)
}

// attemptPayment сдвигает расписание, выполняет списание и фиксирует исход.
// Вызывается под блокировкой ключа подписки.
func (s *Service) attemptPayment(ctx context.Context, sub *models.Subscription, order models.PaymentOrder, correlationID string) (models.Currency, error) {
	const op = "billing.attemptPayment"

	now := s.now()
	next := schedule.Next(s.calendar, sub.BillingDay, sub.NextBillingTime, sub.BillingCycleSecs, now)

	metrics.PaymentAttempts.Inc()
	currency, err := s.dispatcher.Charge(ctx, sub, order)
	if err != nil {
		if errors.Is(err, dispatch.ErrOverchargeAttempt) {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		metrics.PaymentFailures.Inc()
		if commitErr := s.repo.CommitSchedule(ctx, sub.ID, next); commitErr != nil {
			s.log.Error("failed to commit schedule advance", sl.Err(commitErr))
			return "", fmt.Errorf("%s: %w", op, commitErr)
		}
		s.log.Info("payment attempt failed, schedule advanced",
			slog.String("id", sub.ID), slog.Time("next_billing_time", next))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	sub.NextBillingTime = next
	sub.Status = models.StatusActive
	sub.LastPaymentAt = &now
	sub.SuccessfulPayments++
	if !sub.Unlimited && sub.SuccessfulPayments >= sub.TotalCycles {
		sub.Status = models.StatusEnd
	}

	event := models.Event{
		Type:           models.EventPaymentSucceeded,
		SubscriptionID: sub.ID,
		ProductID:      sub.ProductID,
		Actor:          sub.UserAddress,
		CorrelationID:  correlationID,
		Currency:       currency,
		BaseAmount:     order.BaseAmount,
		TokenAmount:    order.TokenAmount,
		TokenPrice:     order.TokenPrice,
		CreatedAt:      now.UTC(),
	}
	if err := s.repo.CommitPayment(ctx, sub, event); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	metrics.PaymentSuccesses.Inc()
	s.log.Info("payment succeeded",
		slog.String("id", sub.ID),
		slog.String("currency", string(currency)),
		slog.Int("successful_payments", sub.SuccessfulPayments))
	s.publish(event)
	s.invalidateStatus(sub.ID)
	return currency, nil
}

// Cancel переводит подписку из ACTIVE или PAUSED в UNSUBSCRIBED.
// Для остальных статусов операция идемпотентна: состояние не меняется,
// но уведомление всё равно публикуется.
func (s *Service) Cancel(ctx context.Context, caller, subscriptionID, processID string) error {
	const op = "billing.Cancel"

	if err := s.access.Authorize(ctx, caller); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.keys.Lock(subscriptionID)
	defer s.keys.Unlock(subscriptionID)

	sub, err := s.repo.Get(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if sub == nil {
		return fmt.Errorf("%s: %w", op, ErrSubscriptionNotFound)
	}

	event := models.Event{
		Type:           models.EventSubscriptionCancelled,
		SubscriptionID: sub.ID,
		ProductID:      sub.ProductID,
		Actor:          caller,
		CorrelationID:  processID,
		CreatedAt:      s.now().UTC(),
	}

	if sub.Status == models.StatusActive || sub.Status == models.StatusPaused {
		if err := s.repo.UpdateStatus(ctx, sub.ID, models.StatusUnsubscribed, event); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		s.invalidateStatus(sub.ID)
		s.log.Info("subscription cancelled", slog.String("id", sub.ID))
	}
	s.publish(event)
	return nil
}

// BatchCancel применяет Cancel к каждому идентификатору последовательно.
// Ошибка по одному идентификатору не прерывает обработку остальных.
func (s *Service) BatchCancel(ctx context.Context, caller string, subscriptionIDs []string, processID string) {
	for _, id := range subscriptionIDs {
		if err := s.Cancel(ctx, caller, id, processID); err != nil {
			s.log.Error("failed to cancel subscription in batch",
				slog.String("id", id), sl.Err(err))
		}
	}
}

// Activate переводит подписку в ACTIVE, в том числе из UNSUBSCRIBED:
// явная активация восстанавливает отменённую подписку. Подписка
// с исчерпанными циклами (END) не активируется.
func (s *Service) Activate(ctx context.Context, caller, subscriptionID, processID string) error {
	const op = "billing.Activate"

	if err := s.access.Authorize(ctx, caller); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.keys.Lock(subscriptionID)
	defer s.keys.Unlock(subscriptionID)

	sub, err := s.repo.Get(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if sub == nil {
		return fmt.Errorf("%s: %w", op, ErrSubscriptionNotFound)
	}
	if sub.Status == models.StatusEnd {
		return fmt.Errorf("%s: %w", op, ErrCyclesExhausted)
	}

	event := models.Event{
		Type:           models.EventSubscriptionActivated,
		SubscriptionID: sub.ID,
		ProductID:      sub.ProductID,
		Actor:          caller,
		CorrelationID:  processID,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.repo.UpdateStatus(ctx, sub.ID, models.StatusActive, event); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidateStatus(sub.ID)
	s.log.Info("subscription activated", slog.String("id", sub.ID))
	s.publish(event)
	return nil
}

// Status возвращает текущий статус подписки по ключу, используя кеш.
func (s *Service) Status(ctx context.Context, subscriptionID string) (models.Status, error) {
	const op = "billing.Status"

	var cached models.Status
	cacheKey := statusCacheKey(subscriptionID)
	found, err := s.cache.Get(cacheKey, &cached)
	if err == nil && found {
		return cached, nil
	}

	sub, err := s.repo.Get(ctx, subscriptionID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if sub == nil {
		return "", fmt.Errorf("%s: %w", op, ErrSubscriptionNotFound)
	}

	if err := s.cache.Set(cacheKey, sub.Status, time.Hour); err != nil {
		s.log.Warn("failed to cache subscription status",
			slog.String("key", cacheKey), slog.Any("err", err))
	}
	return sub.Status, nil
}

func (s *Service) ensureProductRunning(ctx context.Context, productID, parentProductID string) error {
	paused, err := s.access.IsProductPaused(ctx, productID)
	if err != nil {
		return err
	}
	if paused {
		return ErrProductPaused
	}
	paused, err = s.access.IsProductPaused(ctx, parentProductID)
	if err != nil {
		return err
	}
	if paused {
		return ErrProductPaused
	}
	return nil
}

func (s *Service) publish(event models.Event) {
	if err := s.notifier.Publish(event); err != nil {
		s.log.Warn("failed to publish billing event",
			slog.String("type", string(event.Type)), slog.Any("err", err))
	}
}

func (s *Service) invalidateStatus(subscriptionID string) {
	if err := s.cache.Invalidate(statusCacheKey(subscriptionID)); err != nil {
		s.log.Warn("failed to invalidate status cache", slog.Any("err", err))
	}
}

func statusCacheKey(subscriptionID string) string {
	return "subscription:status:" + subscriptionID
}
