// Package scheduler implements the outer driver: the Single cycle, Loop
// (runLoop) and Fix-all top-level invocations that tie the Constraint
// Engine, the Spec Executor, the Observer and the Retention service
// together into one run. It is invoked on demand or on a cron timer and
// reports progress through a callback rather than driving any UI itself.
package scheduler

import (
	"context"
	"os"
	"path/filepath"

	"github.com/jhmac/elon/pkg/config"
	"github.com/jhmac/elon/pkg/constraint"
	"github.com/jhmac/elon/pkg/costledger"
	"github.com/jhmac/elon/pkg/executor"
	"github.com/jhmac/elon/pkg/observer"
	"github.com/jhmac/elon/pkg/progress"
	"github.com/jhmac/elon/pkg/queue"
	"github.com/jhmac/elon/pkg/retention"
)

// StopFlagName is the marker file whose presence under dataDir cancels any
// in-flight or about-to-start cycle.
const StopFlagName = "elon-stop-requested"

// DefaultConsecutiveDismissalLimit aborts runLoop after this many
// consecutive auth-rejected or duplicate dismissals (spec default K=5).
const DefaultConsecutiveDismissalLimit = 5

// Scheduler owns every collaborator the outer loop drives and the
// dataDir paths it reads/writes cycle-to-cycle state from.
type Scheduler struct {
	Config    *config.Config
	Engine    *constraint.Engine
	Executor  *executor.Executor
	Observer  *observer.Observer
	Queue     *queue.Queue
	Ledger    costledger.Ledger
	Retention *retention.Service
	Progress  *progress.Bus

	ObserverConfig     observer.Config
	ConsecutiveDismiss int

	DismissalLimit int
	MaxNoProgress  int

	metrics *metrics
}

// New wires a Scheduler from its already-constructed collaborators.
func New(cfg *config.Config, engine *constraint.Engine, exec *executor.Executor, obs *observer.Observer, q *queue.Queue, ledger costledger.Ledger, ret *retention.Service, bus *progress.Bus, obsCfg observer.Config) *Scheduler {
	dismissalLimit := cfg.Engine.DismissalLimit
	if dismissalLimit <= 0 {
		dismissalLimit = DefaultConsecutiveDismissalLimit
	}
	maxNoProgress := cfg.Engine.MaxNoProgress
	if maxNoProgress <= 0 {
		maxNoProgress = config.DefaultMaxNoProgress
	}
	return &Scheduler{
		Config:         cfg,
		Engine:         engine,
		Executor:       exec,
		Observer:       obs,
		Queue:          q,
		Ledger:         ledger,
		Retention:      ret,
		Progress:       bus,
		ObserverConfig: obsCfg,
		DismissalLimit: dismissalLimit,
		MaxNoProgress:  maxNoProgress,
		metrics:        newMetrics(),
	}
}

func (s *Scheduler) publish(phase, message string, detail map[string]any, level string) {
	if s.Progress == nil {
		return
	}
	switch level {
	case string(progress.LevelThinking):
		s.Progress.Thinking(phase, message, detail)
	case string(progress.LevelWarn):
		s.Progress.Warn(phase, message, detail)
	case string(progress.LevelError):
		s.Progress.Error(phase, message, detail)
	case string(progress.LevelSuccess):
		s.Progress.Success(phase, message, detail)
	default:
		s.Progress.Info(phase, message, detail)
	}
}

// stopRequested reports whether the external stop-flag marker file is
// present under dataDir.
func (s *Scheduler) stopRequested() bool {
	_, err := os.Stat(filepath.Join(s.Config.DataDir, StopFlagName))
	return err == nil
}

// ClearStopFlag removes the marker file, used once a requested stop has
// been honoured so the next invocation starts clean.
func (s *Scheduler) ClearStopFlag() error {
	err := os.Remove(filepath.Join(s.Config.DataDir, StopFlagName))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// collectEvidence runs the Observer and persists the bundle to
// last-crawl.json so the next cycle (and any out-of-process reader) can
// see the latest Evidence Bundle without re-crawling.
func (s *Scheduler) collectEvidence(ctx context.Context) *observer.Bundle {
	s.publish("observer", "collecting evidence", nil, string(progress.LevelInfo))
	bundle := s.Observer.Collect(ctx, s.ObserverConfig)
	if err := writeLastCrawl(s.Config.DataDir, bundle); err != nil {
		s.publish("observer", "failed to persist evidence bundle", map[string]any{"error": err.Error()}, string(progress.LevelWarn))
	}
	return bundle
}
