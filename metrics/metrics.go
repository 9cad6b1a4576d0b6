// Package metrics provides Prometheus metrics for the bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "maplebot"

var (
	// APIRequestsTotal counts Nexon API requests by endpoint and outcome.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of Nexon API requests",
		},
		[]string{"endpoint", "status"},
	)

	// APIRequestDuration measures Nexon API latency.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Duration of Nexon API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// OCIDCacheTotal counts OCID cache lookups.
	OCIDCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ocid_cache_total",
			Help:      "OCID cache lookups by result",
		},
		[]string{"result"},
	)

	// CommandsTotal counts handled chat commands.
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total number of handled chat commands",
		},
		[]string{"command", "status"},
	)

	// AnnouncementsTotal counts scheduled announcement deliveries.
	AnnouncementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "announcements_total",
			Help:      "Scheduled announcement deliveries by status",
		},
		[]string{"status"},
	)
)
