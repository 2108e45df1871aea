// Package metrics содержит счётчики Prometheus сервиса магазина.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics содержит счётчики бизнес-событий магазина.
type Metrics struct {
	OrdersCreated     prometheus.Counter
	DownloadsRedeemed prometheus.Counter
	PaymentIntents    prometheus.Counter
	Emails            *prometheus.CounterVec
}

// New регистрирует и возвращает счётчики сервиса.
func New() *Metrics {
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "digitalstore",
		Name:      "orders_created_total",
		Help:      "Total number of completed orders.",
	})
	downloadsRedeemed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "digitalstore",
		Name:      "downloads_redeemed_total",
		Help:      "Total number of redeemed download tokens.",
	})
	paymentIntents := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "digitalstore",
		Name:      "payment_intents_created_total",
		Help:      "Total number of created payment intents.",
	})
	emails := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "digitalstore",
		Name:      "emails_total",
		Help:      "Total number of transactional emails by template and result.",
	}, []string{"template", "result"})

	prometheus.MustRegister(ordersCreated, downloadsRedeemed, paymentIntents, emails)

	return &Metrics{
		OrdersCreated:     ordersCreated,
		DownloadsRedeemed: downloadsRedeemed,
		PaymentIntents:    paymentIntents,
		Emails:            emails,
	}
}

// Handler возвращает HTTP-обработчик экспорта метрик.
func Handler() http.Handler {
	return promhttp.Handler()
}
