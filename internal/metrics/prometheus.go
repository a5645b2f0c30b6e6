package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "hl_whale_alert"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type Prometheus struct {
	Metrics *Metrics

	registry         *prometheus.Registry
	ordersSeen       prometheus.Counter
	orderAlerts      prometheus.Counter
	positionReports  prometheus.Counter
	alertsFailed     prometheus.Counter
	fetchFailed      *prometheus.CounterVec
	rowsRejected     prometheus.Counter
	iterationsFailed prometheus.Counter
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	newCounter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      name,
			Help:      help,
		})
	}
	ordersSeen := newCounter("orders_seen_total", "Total number of latest-order rows parsed.")
	orderAlerts := newCounter("order_alerts_total", "Total number of new-order alerts delivered.")
	positionReports := newCounter("position_reports_total", "Total number of position reports delivered.")
	alertsFailed := newCounter("alerts_failed_total", "Total number of failed alert deliveries.")
	rowsRejected := newCounter("rows_rejected_total", "Total number of rows that failed to parse.")
	iterationsFailed := newCounter("iterations_failed_total", "Total number of poll iterations that panicked.")
	fetchFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "fetch_failed_total",
		Help:      "Total number of failed page fetches by view.",
	}, []string{"view"})

	registry.MustRegister(ordersSeen, orderAlerts, positionReports, alertsFailed, fetchFailed, rowsRejected, iterationsFailed)

	m := &Metrics{
		OrdersSeen:          promCounter{ordersSeen},
		OrderAlerts:         promCounter{orderAlerts},
		PositionReports:     promCounter{positionReports},
		AlertsFailed:        promCounter{alertsFailed},
		OrderFetchFailed:    promCounter{fetchFailed.WithLabelValues("orders")},
		PositionFetchFailed: promCounter{fetchFailed.WithLabelValues("positions")},
		RowsRejected:        promCounter{rowsRejected},
		IterationsFailed:    promCounter{iterationsFailed},
	}

	return &Prometheus{
		Metrics:          m,
		registry:         registry,
		ordersSeen:       ordersSeen,
		orderAlerts:      orderAlerts,
		positionReports:  positionReports,
		alertsFailed:     alertsFailed,
		fetchFailed:      fetchFailed,
		rowsRejected:     rowsRejected,
		iterationsFailed: iterationsFailed,
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
