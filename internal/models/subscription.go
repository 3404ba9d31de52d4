// Package models содержит доменные структуры биллингового движка:
// подписку с её жизненным циклом, платёжные поручения
// и вспомогательные типы для приёма данных из JSON-запросов.
package models

import "time"

// Status описывает состояние жизненного цикла подписки.
// Отсутствующая запись соответствует состоянию NULL исходной модели.
type Status string

const (
	// StatusActive — подписка активна и подлежит списаниям.
	StatusActive Status = "active"
	// StatusPaused — подписка приостановлена клиентом, списания запрещены.
	StatusPaused Status = "paused"
	// StatusUnsubscribed — подписка отменена.
	StatusUnsubscribed Status = "unsubscribed"
	// StatusEnd — исчерпано количество оплаченных циклов.
	StatusEnd Status = "end"
)

// Currency обозначает валютный рельс платёжного шлюза.
type Currency string

const (
	// CurrencyBase — базовая валюта.
	CurrencyBase Currency = "base"
	// CurrencyToken — токенизированная валюта, цена масштабируется 10^18.
	CurrencyToken Currency = "token"
)

// TokenPriceScale — масштаб цены токена: tokenPrice хранится
// как цена одного токена в базовых единицах, умноженная на 10^18.
const TokenPriceScale int64 = 1_000_000_000_000_000_000

// Subscription представляет собой основную запись подписки.
// Денежные поля хранятся в нормализованных базовых единицах.
type Subscription struct {
	ID                 string     // Уникальный ключ подписки (UUID)
	UserAddress        string     // Адрес плательщика
	MerchantAddress    string     // Адрес получателя-мерчанта
	ProductID          string     // Идентификатор продукта
	ParentProductID    string     // Родительский продукт для паузы на уровне линейки
	Status             Status     // Текущее состояние жизненного цикла
	Unlimited          bool       // Подписка без ограничения количества циклов
	BillingDay         int        // 1-28 календарный режим, 0 — интервальный
	NextBillingTime    time.Time  // Списание запрещено до этого момента
	BillingCycleSecs   int64      // Длина цикла в секундах (интервальный режим)
	TotalCycles        int        // Максимум успешных списаний (если не Unlimited)
	PricePerCycle      int64      // Потолок суммы списания за цикл
	SuccessfulPayments int        // Счётчик успешных списаний, только растёт
	LastPaymentAt      *time.Time // Время последнего успешного списания
}

// CyclesRemaining сообщает, остались ли у подписки неоплаченные циклы.
func (s *Subscription) CyclesRemaining() bool {
	return s.Unlimited || s.SuccessfulPayments < s.TotalCycles
}

// PaymentOrder описывает параметры одной попытки списания.
// Ненулевой BaseAmount направляет платёж в базовую валюту,
// иначе списывается TokenAmount по цене TokenPrice.
type PaymentOrder struct {
	BaseAmount  int64 `json:"base_amount" validate:"gte=0"`
	TokenAmount int64 `json:"token_amount" validate:"gte=0"`
	TokenPrice  int64 `json:"token_price" validate:"gte=0"`
	UseFallback bool  `json:"use_fallback"`
}

// DummySubscription используется для приёма данных из JSON-запроса на создание,
// прежде чем конвертировать их в Subscription.
type DummySubscription struct {
	SubscriptionID   string       `json:"subscription_id" validate:"required,uuid"`
	UserAddress      string       `json:"user_address" validate:"required"`
	MerchantAddress  string       `json:"merchant_address" validate:"required"`
	ProductID        string       `json:"product_id" validate:"required"`
	ParentProductID  string       `json:"parent_product_id"`
	BillingDay       int          `json:"billing_day" validate:"gte=0,lte=28"`
	BillingCycleSecs int64        `json:"billing_cycle_seconds" validate:"gte=0"`
	TotalCycles      int          `json:"total_cycles" validate:"gte=0"`
	PricePerCycle    int64        `json:"price_per_cycle" validate:"required,gt=0"`
	Unlimited        bool         `json:"unlimited"`
	InitialPayment   PaymentOrder `json:"initial_payment"`
	ProcessID        string       `json:"process_id" validate:"required"`
}

// DummyCharge используется для приёма данных запроса на плановое списание.
type DummyCharge struct {
	PaymentOrder
	RebillID string `json:"rebill_id" validate:"required"`
}

// DummyPause используется для приёма данных запроса на паузу с комиссией.
type DummyPause struct {
	PayWithToken bool   `json:"pay_with_token"`
	TokenPrice   int64  `json:"token_price" validate:"gte=0"`
	ProcessID    string `json:"process_id" validate:"required"`
}

// RebillCommand — сообщение планировщика для воркера списаний.
type RebillCommand struct {
	SubscriptionID string `json:"subscription_id"`
	RebillID       string `json:"rebill_id"`
}
