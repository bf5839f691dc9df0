/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package metrics exposes the Prometheus instrumentation of the daemon.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	JobsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nexus_jobs_started_total",
		Help: "Jobs this node has started.",
	})

	JobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexus_jobs_finished_total",
		Help: "Jobs this node has reaped, by terminal status.",
	}, []string{"status"})

	SchedulerTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nexus_scheduler_ticks_total",
		Help: "Scheduler loop iterations.",
	})

	SchedulerTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nexus_scheduler_tick_duration_seconds",
		Help:    "Wall time of one scheduler iteration.",
		Buckets: prometheus.DefBuckets,
	})

	GpusAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nexus_gpus_available",
		Help: "GPUs currently free for scheduling on this node.",
	})

	HealthScore = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nexus_health_score",
		Help: "Last computed node health score.",
	})

	HttpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexus_http_requests_total",
		Help: "API requests by method, path template, and status code.",
	}, []string{"method", "path", "code"})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexus_notifications_sent_total",
		Help: "Notifications delivered, by channel.",
	}, []string{"channel"})
)

// Handler serves the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
