// Package metrics регистрирует счётчики Prometheus биллингового движка.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PaymentAttempts — общее число попыток списания.
	PaymentAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_payment_attempts_total",
		Help: "Total number of payment attempts dispatched to the gateway.",
	})
	// PaymentSuccesses — число успешных списаний.
	PaymentSuccesses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_payment_successes_total",
		Help: "Total number of successful subscription charges.",
	})
	// PaymentFailures — число неуспешных списаний.
	PaymentFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_payment_failures_total",
		Help: "Total number of failed subscription charges.",
	})
	// Pauses — число пауз с расчётом комиссии.
	Pauses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_pauses_total",
		Help: "Total number of customer-initiated pauses with settlement.",
	})
)
