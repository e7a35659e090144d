// Package metrics exposes prometheus instrumentation for the face gate.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VerifyAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facegate",
		Name:      "verify_attempts_total",
		Help:      "Verification attempts by result",
	}, []string{"result"})

	Enrollments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facegate",
		Name:      "enrollments_total",
		Help:      "Enrollment attempts by result",
	}, []string{"result"})

	QuotaRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "facegate",
		Name:      "quota_rejections_total",
		Help:      "Verification attempts rejected by the daily quota",
	})

	DetectDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "facegate",
		Name:      "detect_duration_seconds",
		Help:      "Duration of one detector pass",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	})

	FaceVisible = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "facegate",
		Name:      "face_visible",
		Help:      "Whether the presence watcher currently sees a face (0/1)",
	})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "facegate",
		Name:      "ws_connections",
		Help:      "Number of active presence WebSocket connections",
	})
)
