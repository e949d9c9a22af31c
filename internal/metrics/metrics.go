package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
	AuthRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_rejections_total",
			Help: "Total number of unauthorized requests",
		},
		[]string{"reason"},
	)

	Joins = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "giveaway_joins_total",
		Help: "Participant records created",
	})
	TaskCompletions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "giveaway_task_completions_total",
		Help: "Task completions credited",
	})
	InvitesRedeemed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "giveaway_invites_redeemed_total",
		Help: "Referrals credited to inviters",
	})
	WinnerSelections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giveaway_winner_selections_total",
			Help: "Winners selected by method",
		},
		[]string{"method"},
	)
	Supports = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "giveaway_supports_total",
		Help: "Support entries recorded",
	})
	SupportAmount = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "giveaway_support_amount_total",
		Help: "Sum of recorded support amounts in minor units",
	})
	OperationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giveaway_operation_errors_total",
			Help: "Engine operations that returned an error, by code",
		},
		[]string{"operation", "code"},
	)
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giveaway_events_published_total",
			Help: "Domain events appended to the stream",
		},
		[]string{"type", "result"},
	)
)

var registerOnce sync.Once

// Register adds every collector to reg. Later calls are ignored.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			AuthRejections,
			Joins,
			TaskCompletions,
			InvitesRedeemed,
			WinnerSelections,
			Supports,
			SupportAmount,
			OperationErrors,
			EventsPublished,
		)
	})
}
