package status

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsSubscriber считает изменения статусов в Prometheus-счётчиках.
type MetricsSubscriber struct {
	transitions *prometheus.CounterVec
}

// NewMetricsSubscriber создаёт подписчика-счётчик.
// Метрики регистрируются в DefaultRegisterer.
func NewMetricsSubscriber() *MetricsSubscriber {
	return &MetricsSubscriber{
		transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stagehand_status_transitions_total",
			Help: "Total status transitions by domain and new status",
		}, []string{"domain", "new_status"}),
	}
}

// HandleStatusChange реализует Subscriber.
func (s *MetricsSubscriber) HandleStatusChange(_ context.Context, ev Event) {
	s.transitions.WithLabelValues(ev.Domain, ev.NewStatus).Inc()
}
