package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BotUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "classbot", Name: "updates_total", Help: "Processed telegram updates",
	})
	HandlerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "classbot", Name: "handler_errors_total", Help: "Handler errors",
	})
	EventsIgnored = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "classbot", Name: "events_ignored_total", Help: "Events with no matching dialog rule",
	})
	NotifyFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "classbot", Name: "notify_failures_total", Help: "Best-effort notification delivery failures",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "classbot", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(BotUpdates, HandlerErrors, EventsIgnored, NotifyFailures, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }
