// Package retention provides the background service that periodically
// enforces elon's data directory retention policies: pruning backups to
// the most recent N and dropping known-error entries that haven't
// recurred in a long time.
package retention

import (
	"context"
	"log/slog"
	"time"
)

// Config controls what retention enforces and how often.
type Config struct {
	BackupDir        string
	KnownErrorsPath  string
	MaxBackups       int           // most-recent backups to keep; 0 disables pruning
	KnownErrorMaxAge time.Duration // drop issues whose LastSeen predates this; 0 disables
	Interval         time.Duration
}

// Service runs Config's policies on an interval, starting with an
// immediate pass. All operations are idempotent and safe to re-run.
type Service struct {
	config Config

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService constructs a Service. It does not start the loop.
func NewService(cfg Config) *Service {
	return &Service{config: cfg}
}

// Start launches the background retention loop. Calling Start twice on an
// already-running Service is a no-op.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("retention: started",
		"maxBackups", s.config.MaxBackups,
		"knownErrorMaxAge", s.config.KnownErrorMaxAge,
		"interval", s.config.Interval)
}

// Stop signals the loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("retention: stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll()

	if s.config.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll()
		}
	}
}

// RunOnce executes every configured policy synchronously, independent of
// the background loop. The scheduler calls this directly at the end of a
// run so retention happens even in single-cycle (non-looping) mode.
func (s *Service) RunOnce() {
	s.runAll()
}

func (s *Service) runAll() {
	s.pruneBackups()
	s.pruneKnownErrors()
}

func (s *Service) pruneBackups() {
	if s.config.MaxBackups <= 0 || s.config.BackupDir == "" {
		return
	}
	removed, err := PruneBackups(s.config.BackupDir, s.config.MaxBackups)
	if err != nil {
		slog.Error("retention: pruning backups failed", "error", err)
		return
	}
	if removed > 0 {
		slog.Info("retention: pruned backups", "removed", removed)
	}
}

func (s *Service) pruneKnownErrors() {
	if s.config.KnownErrorMaxAge <= 0 || s.config.KnownErrorsPath == "" {
		return
	}
	removed, err := PruneKnownErrors(s.config.KnownErrorsPath, s.config.KnownErrorMaxAge, time.Now())
	if err != nil {
		slog.Error("retention: pruning known errors failed", "error", err)
		return
	}
	if removed > 0 {
		slog.Info("retention: pruned known errors", "removed", removed)
	}
}
