package billing

import "errors"

// Ошибки предусловий операций движка. Нарушение предусловия
// обнаруживается до любой мутации и отменяет операцию целиком.
var (
	// ErrSubscriptionNotFound — запись подписки отсутствует.
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrDuplicateActiveSubscription — по ключу уже существует активная запись.
	ErrDuplicateActiveSubscription = errors.New("active subscription already exists")
	// ErrInvalidBillingDay — billingDay вне диапазона [0, 28].
	ErrInvalidBillingDay = errors.New("billing day must be in range [0, 28]")
	// ErrCyclesExhausted — исчерпано количество оплаченных циклов.
	ErrCyclesExhausted = errors.New("subscription cycles exhausted")
	// ErrProductPaused — продукт или его родитель приостановлен мерчантом.
	ErrProductPaused = errors.New("product is paused by merchant")
	// ErrSubscriptionNotEligible — статус подписки не допускает операцию.
	ErrSubscriptionNotEligible = errors.New("subscription status does not allow operation")
	// ErrTooEarlyToBill — плановая дата списания ещё не наступила.
	ErrTooEarlyToBill = errors.New("too early to bill")
	// ErrSettlementLegFailed — не прошёл один из переводов расчёта за паузу.
	ErrSettlementLegFailed = errors.New("settlement leg failed")
	// ErrInvalidTokenPrice — цена токена неположительна, токенный перевод невозможен.
	ErrInvalidTokenPrice = errors.New("token price must be positive")
)
