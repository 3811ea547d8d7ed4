// metrics регистрирует счётчики Prometheus сервиса: выпуск/проверка
// одноразовых токенов и HTTP-запросы.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "authenticator"

// Metrics — набор коллекторов. Реализует tokens.Observer.
type Metrics struct {
	tokensIssued   *prometheus.CounterVec
	tokensVerified *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New создаёт коллекторы и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "One-time tokens issued, by purpose.",
		}, []string{"purpose"}),
		tokensVerified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_verified_total",
			Help:      "One-time token verifications, by purpose and result.",
		}, []string{"purpose", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(m.tokensIssued, m.tokensVerified, m.httpRequests, m.httpDuration)

	return m
}

func (m *Metrics) TokenIssued(purpose string) {
	m.tokensIssued.WithLabelValues(purpose).Inc()
}

func (m *Metrics) TokenVerified(purpose, result string) {
	m.tokensVerified.WithLabelValues(purpose, result).Inc()
}

// ObserveHTTP учитывает завершённый HTTP-запрос. route — шаблон маршрута chi.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}

	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
