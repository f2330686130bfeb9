package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shiftboard",
			Name:      "http_requests_total",
			Help:      "Count of API requests by route and status code.",
		},
		[]string{"route", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shiftboard",
			Name:      "http_request_duration_seconds",
			Help:      "API request latency by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	shiftMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shiftboard",
			Name:      "shift_mutations_total",
			Help:      "Count of shift writes by operation.",
		},
		[]string{"op"},
	)

	validationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shiftboard",
			Name:      "shift_validation_failures_total",
			Help:      "Count of rejected shift writes by offending field.",
		},
		[]string{"field"},
	)

	sheetsSync = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shiftboard",
			Name:      "sheets_sync_total",
			Help:      "Count of Google Sheets mirror runs by result.",
		},
		[]string{"result"},
	)

	botActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shiftboard",
			Name:      "bot_actions_total",
			Help:      "Count of bot actions by name and outcome.",
		},
		[]string{"action", "outcome"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, shiftMutations, validationFailures, sheetsSync, botActions)
	})
}

func ObserveHTTP(route string, code int, elapsed time.Duration) {
	httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func IncShiftMutation(op string) {
	shiftMutations.WithLabelValues(op).Inc()
}

func IncValidationFailure(field string) {
	validationFailures.WithLabelValues(field).Inc()
}

func IncSheetsSync(result string) {
	sheetsSync.WithLabelValues(result).Inc()
}

func IncBotAction(action, outcome string) {
	botActions.WithLabelValues(action, outcome).Inc()
}
