package models

import "time"

// EventType перечисляет типы событий аудита биллингового движка.
type EventType string

const (
	// EventSubscriptionCreated — создана новая подписка.
	EventSubscriptionCreated EventType = "subscription.created"
	// EventPaymentSucceeded — успешное списание по циклу.
	EventPaymentSucceeded EventType = "payment.succeeded"
	// EventSubscriptionPaused — пауза по инициативе клиента с комиссией.
	EventSubscriptionPaused EventType = "subscription.paused"
	// EventSubscriptionActivated — подписка активирована.
	EventSubscriptionActivated EventType = "subscription.activated"
	// EventSubscriptionCancelled — подписка отменена.
	EventSubscriptionCancelled EventType = "subscription.cancelled"
	// EventProductPaused — продукт приостановлен мерчантом.
	EventProductPaused EventType = "product.paused"
	// EventProductUnpaused — продукт возобновлён мерчантом.
	EventProductUnpaused EventType = "product.unpaused"
)

// Event — запись аудита, сохраняется в той же транзакции,
// что и описываемая ею мутация, и публикуется внешним потребителям.
type Event struct {
	Type           EventType `json:"type"`
	SubscriptionID string    `json:"subscription_id,omitempty"`
	ProductID      string    `json:"product_id,omitempty"`
	Actor          string    `json:"actor"`
	CorrelationID  string    `json:"correlation_id,omitempty"`
	Currency       Currency  `json:"currency,omitempty"`
	BaseAmount     int64     `json:"base_amount,omitempty"`
	TokenAmount    int64     `json:"token_amount,omitempty"`
	TokenPrice     int64     `json:"token_price,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
