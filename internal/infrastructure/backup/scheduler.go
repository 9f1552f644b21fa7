package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"notemesh/internal/core/ports"
	"notemesh/pkg/backup"

	"go.uber.org/zap"
)

// Locker gates a scheduled run so that only one node in a cluster performs
// it. A nil Locker means single-node operation.
type Locker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// Config contains scheduler configuration
type Config struct {
	Interval time.Duration
	Keep     int
}

// Scheduler takes periodic snapshots of the note store.
type Scheduler struct {
	service  *backup.Service
	notes    ports.NoteRepository
	lock     Locker
	interval time.Duration
	keep     int
	logger   *zap.SugaredLogger
	stopChan chan struct{}
}

func NewScheduler(
	service *backup.Service,
	notes ports.NoteRepository,
	lock Locker,
	cfg Config,
	logger *zap.SugaredLogger,
) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &Scheduler{
		service:  service,
		notes:    notes,
		lock:     lock,
		interval: cfg.Interval,
		keep:     cfg.Keep,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start runs until Stop is called or ctx is cancelled. The first snapshot is
// taken immediately.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.run(ctx)

	for {
		select {
		case <-ticker.C:
			s.run(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) Stop() {
	close(s.stopChan)
}

func (s *Scheduler) run(ctx context.Context) {
	if s.lock != nil {
		acquired, err := s.lock.TryLock(ctx)
		if err != nil {
			s.logger.Warnw("snapshot lock check failed", "error", err)
			return
		}
		if !acquired {
			s.logger.Debug("another node holds the snapshot lock, skipping")
			return
		}
		defer func() {
			if err := s.lock.Unlock(ctx); err != nil {
				s.logger.Warnw("failed to release snapshot lock", "error", err)
			}
		}()
	}

	name, err := s.Snapshot(ctx)
	if err != nil {
		s.logger.Errorw("scheduled snapshot failed", "error", err)
		return
	}
	s.logger.Infow("snapshot written", "name", name)

	if err := s.service.Prune(ctx, s.keep); err != nil {
		s.logger.Warnw("snapshot prune failed", "error", err)
	}
}

// Snapshot exports every note into one snapshot and returns its name.
func (s *Scheduler) Snapshot(ctx context.Context) (string, error) {
	notes, err := s.notes.ListAll(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to export notes: %w", err)
	}

	section, err := json.Marshal(notes)
	if err != nil {
		return "", fmt.Errorf("failed to marshal notes section: %w", err)
	}

	return s.service.Write(ctx, &backup.Snapshot{
		Sections: map[string]json.RawMessage{
			"notes": section,
		},
	})
}
