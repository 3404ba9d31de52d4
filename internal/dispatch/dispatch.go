// Package dispatch выполняет платёжные поручения через внешний платёжный шлюз.
//
// Диспетчер проверяет потолок суммы списания, выбирает валютный рельс
// и сообщает исход платежа. Повторных попыток нет — политика ретраев
// принадлежит оркестратору.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/magabrotheeeer/billing-engine/internal/models"
)

// ErrOverchargeAttempt — сумма поручения превышает цену цикла подписки.
var ErrOverchargeAttempt = errors.New("payment order exceeds price per cycle")

// ErrPaymentFailed — шлюз отклонил платёж.
var ErrPaymentFailed = errors.New("payment failed")

// PaymentRequest — параметры перевода для платёжного шлюза.
type PaymentRequest struct {
	Payer            string
	Payee            string
	Amount           int64
	PriceHint        int64
	ChargeFullAmount bool
	AllowFallback    bool
	Rail             models.Currency
}

// PaymentResult — исход перевода.
type PaymentResult struct {
	Success      bool
	CurrencyUsed models.Currency
}

// Gateway — контракт внешнего платёжного шлюза.
// Внутренний учёт балансов и ценообразование токена не входят в ядро.
type Gateway interface {
	Pay(ctx context.Context, req PaymentRequest) (PaymentResult, error)
}

// Dispatcher выполняет приценённое списание и разовые переводы
// при расчёте комиссии за паузу.
type Dispatcher struct {
	gateway Gateway
	log     *slog.Logger
}

// New создает новый Dispatcher.
func New(gateway Gateway, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		gateway: gateway,
		log:     log,
	}
}

// Charge выполняет списание одного цикла подписки.
//
// Предусловие: baseAmount + tokenAmount*tokenPrice/10^18 не превышает
// pricePerCycle, иначе ErrOverchargeAttempt. Ненулевой baseAmount направляет
// платёж в базовую валюту, иначе списываются токены по цене tokenPrice.
// Возвращает фактически использованную валюту.
func (d *Dispatcher) Charge(ctx context.Context, sub *models.Subscription, order models.PaymentOrder) (models.Currency, error) {
	const op = "dispatch.Charge"

	if OrderValue(order).Cmp(big.NewInt(sub.PricePerCycle)) > 0 {
		return "", fmt.Errorf("%s: %w", op, ErrOverchargeAttempt)
	}

	req := PaymentRequest{
		Payer:         sub.UserAddress,
		Payee:         sub.MerchantAddress,
		AllowFallback: order.UseFallback,
	}
	if order.BaseAmount > 0 {
		req.Amount = order.BaseAmount
		req.Rail = models.CurrencyBase
	} else {
		req.Amount = order.TokenAmount
		req.PriceHint = order.TokenPrice
		req.Rail = models.CurrencyToken
	}

	res, err := d.gateway.Pay(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !res.Success {
		return "", fmt.Errorf("%s: %w", op, ErrPaymentFailed)
	}
	return res.CurrencyUsed, nil
}

// Settle выполняет один перевод расчёта за паузу на заданном рельсе.
// Суммы токенного рельса передаются уже в токенных единицах.
func (d *Dispatcher) Settle(ctx context.Context, payer, payee string, amount, priceHint int64, rail models.Currency) (models.Currency, error) {
	const op = "dispatch.Settle"

	res, err := d.gateway.Pay(ctx, PaymentRequest{
		Payer:            payer,
		Payee:            payee,
		Amount:           amount,
		PriceHint:        priceHint,
		ChargeFullAmount: true,
		Rail:             rail,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !res.Success {
		return "", fmt.Errorf("%s: %w", op, ErrPaymentFailed)
	}
	return res.CurrencyUsed, nil
}

// OrderValue возвращает стоимость поручения в базовых единицах:
// baseAmount + tokenAmount*tokenPrice/10^18. Произведение считается
// в big.Int, переполнение int64 исключено.
func OrderValue(order models.PaymentOrder) *big.Int {
	scale := big.NewInt(models.TokenPriceScale)
	tokenValue := big.NewInt(order.TokenAmount)
	tokenValue.Mul(tokenValue, big.NewInt(order.TokenPrice))
	tokenValue.Quo(tokenValue, scale)
	return tokenValue.Add(tokenValue, big.NewInt(order.BaseAmount))
}

// ToTokenUnits конвертирует сумму в базовых единицах в токенные единицы
// по цене tokenPrice: amount*10^18/tokenPrice.
func ToTokenUnits(amount, tokenPrice int64) int64 {
	if tokenPrice == 0 {
		return 0
	}
	scale := big.NewInt(models.TokenPriceScale)
	v := big.NewInt(amount)
	v.Mul(v, scale)
	v.Quo(v, big.NewInt(tokenPrice))
	return v.Int64()
}
