/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package obsmetrics provides a Prometheus registry (zap remains the
// business-logic logger; this is a standalone logrus-backed metrics HTTP
// server): queue-depth gauges and claim/complete/fail counters for both
// job queues, served on their own port.
package obsmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsSubmittedTotal counts request_analysis/request_enrichment calls
	// by queue ("analysis"|"enrichment").
	JobsSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobs_submitted_total",
		Help: "Total jobs submitted, by queue.",
	}, []string{"queue"})

	// JobsClaimedTotal counts jobs handed out by claim_pending_jobs.
	JobsClaimedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobs_claimed_total",
		Help: "Total jobs claimed by workers, by queue.",
	}, []string{"queue"})

	// JobsCompletedTotal counts terminal-success transitions, by queue and
	// outcome (the HTTP handlers record every completion as "result").
	JobsCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobs_completed_total",
		Help: "Total jobs completed successfully, by queue and outcome.",
	}, []string{"queue", "outcome"})

	// JobsFailedTotal counts Failed transitions, by queue and reason
	// (the HTTP handlers use "worker_error"|"stuck_swept").
	JobsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobs_failed_total",
		Help: "Total jobs that ended Failed, by queue and reason.",
	}, []string{"queue", "reason"})

	// PendingQueueDepth is the live size of a queue's pending FIFO.
	PendingQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pending_queue_depth",
		Help: "Current pending-queue depth, by queue.",
	}, []string{"queue"})

	// JobDurationSeconds observes claim-to-terminal latency, by queue.
	JobDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Seconds from claim to terminal status, by queue.",
		Buckets: prometheus.DefBuckets,
	}, []string{"queue"})
)

const (
	QueueAnalysis   = "analysis"
	QueueEnrichment = "enrichment"
)

// RecordSubmitted implements the JobsSubmittedTotal increment site.
func RecordSubmitted(queue string) {
	JobsSubmittedTotal.WithLabelValues(queue).Inc()
}

// RecordClaimed increments JobsClaimedTotal by n (a single claim call can
// return multiple jobs).
func RecordClaimed(queue string, n int) {
	if n <= 0 {
		return
	}
	JobsClaimedTotal.WithLabelValues(queue).Add(float64(n))
}

// RecordCompleted implements the JobsCompletedTotal increment site.
func RecordCompleted(queue, outcome string) {
	JobsCompletedTotal.WithLabelValues(queue, outcome).Inc()
}

// RecordFailed implements the JobsFailedTotal increment site.
func RecordFailed(queue, reason string) {
	JobsFailedTotal.WithLabelValues(queue, reason).Inc()
}

// SetPendingDepth sets the current pending-queue gauge.
func SetPendingDepth(queue string, depth int) {
	PendingQueueDepth.WithLabelValues(queue).Set(float64(depth))
}

// Timer measures claim-to-terminal latency for a single job.
type Timer struct {
	start time.Time
	queue string
}

// NewTimer starts a latency measurement for queue.
func NewTimer(queue string) *Timer {
	return &Timer{start: time.Now(), queue: queue}
}

// ObserveDone records the elapsed duration into JobDurationSeconds.
func (t *Timer) ObserveDone() {
	JobDurationSeconds.WithLabelValues(t.queue).Observe(time.Since(t.start).Seconds())
}
