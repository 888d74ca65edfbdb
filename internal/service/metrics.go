package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	backendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llama_stylist_backend_requests_total",
			Help: "Total number of requests to the generation backend.",
		},
		[]string{"backend", "status"},
	)
	backendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llama_stylist_backend_request_duration_seconds",
			Help:    "Histogram of generation backend request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)
	promptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llama_stylist_prompt_tokens",
			Help:    "Histogram of estimated prompt token counts.",
			Buckets: prometheus.LinearBuckets(250, 250, 20), // 250, 500, ..., 5000
		},
		[]string{"backend"},
	)
	localResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llama_stylist_local_resolutions_total",
			Help: "Total number of prompts resolved without the remote backend, by reason.",
		},
		[]string{"reason"},
	)
	resolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llama_stylist_resolutions_total",
			Help: "Total number of resolved patch and style requests, by outcome.",
		},
		[]string{"operation", "outcome"},
	)
)
