package alert

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var alertDeliveries = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "opsportal",
		Subsystem: "alerts",
		Name:      "deliveries_total",
		Help:      "Webhook alert delivery attempts by outcome",
	},
	[]string{"status"},
)

func recordAlertDelivery(status string) {
	alertDeliveries.WithLabelValues(status).Inc()
}
