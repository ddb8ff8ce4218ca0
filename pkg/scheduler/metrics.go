package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhmac/elon/pkg/queue"
)

// metrics holds the Scheduler's Prometheus gauges. They are always
// constructed and kept current; RegisterMetrics decides whether a
// collector actually scrapes them.
type metrics struct {
	budgetRemaining prometheus.Gauge
	queueDepth      *prometheus.GaugeVec
	constraintScore prometheus.Gauge
}

func newMetrics() *metrics {
	return &metrics{
		budgetRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "elon_scheduler_budget_remaining_usd",
			Help: "Remaining USD budget as of the last cycle.",
		}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "elon_scheduler_queue_depth",
			Help: "Number of specs sitting in each work-queue bucket.",
		}, []string{"bucket"}),
		constraintScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "elon_scheduler_active_constraint_score",
			Help: "Score (1-10) of the engine log's active constraint, 0 if none.",
		}),
	}
}

// RegisterMetrics registers the Scheduler's gauges on registerer so a
// /metrics endpoint can scrape them. A nil registerer is a no-op, which
// keeps tests free of global-registry side effects.
func (s *Scheduler) RegisterMetrics(registerer prometheus.Registerer) error {
	if registerer == nil {
		return nil
	}
	collectors := []prometheus.Collector{s.metrics.budgetRemaining, s.metrics.queueDepth, s.metrics.constraintScore}
	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// refreshMetrics snapshots budget, queue depth and active-constraint score
// onto the gauges. Called at the end of every SingleCycle.
func (s *Scheduler) refreshMetrics() {
	if s.Ledger != nil && s.Config.Engine != nil {
		s.metrics.budgetRemaining.Set(s.Ledger.Remaining(s.Config.Engine.Budget))
	}
	for _, bucket := range []queue.Bucket{queue.BucketPending, queue.BucketApproved, queue.BucketCompleted, queue.BucketFailed, queue.BucketRejected} {
		specs, err := s.Queue.List(bucket)
		if err != nil {
			continue
		}
		s.metrics.queueDepth.WithLabelValues(string(bucket)).Set(float64(len(specs)))
	}
	log, err := s.Engine.Log.Load()
	if err != nil || log.Current == nil {
		s.metrics.constraintScore.Set(0)
		return
	}
	s.metrics.constraintScore.Set(float64(log.Current.Score))
}
