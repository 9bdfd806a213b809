package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"queryd/internal/domain"
)

// Defaults for the retention sweep.
const (
	DefaultSchedule       = "@hourly"
	DefaultHistoryMaxAge  = 30 * 24 * time.Hour
	DefaultHistoryMaxRows = 1000
	DefaultExportMaxAge   = 24 * time.Hour
)

// Config holds the retention limits.
type Config struct {
	// Schedule is a cron expression for the sweep.
	Schedule string
	// HistoryMaxAge prunes history rows older than this. Zero disables.
	HistoryMaxAge time.Duration
	// HistoryMaxRows caps history rows per principal. Zero disables.
	HistoryMaxRows int
	// ExportSpoolDir is swept for expired export files. Empty disables.
	ExportSpoolDir string
	// ExportMaxAge removes spool files older than this.
	ExportMaxAge time.Duration
}

func (c Config) withDefaults() Config {
	if c.Schedule == "" {
		c.Schedule = DefaultSchedule
	}
	if c.ExportMaxAge <= 0 {
		c.ExportMaxAge = DefaultExportMaxAge
	}
	return c
}

// Sweeper prunes old query history and expired export files on a cron
// schedule.
type Sweeper struct {
	cron    *cron.Cron
	history domain.QueryHistoryRepository
	cfg     Config
	logger  *slog.Logger
}

// NewSweeper creates a retention sweeper.
func NewSweeper(history domain.QueryHistoryRepository, cfg Config, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		cron:    cron.New(),
		history: history,
		cfg:     cfg.withDefaults(),
		logger:  logger.With("component", "retention"),
	}
}

// Start schedules the sweep and starts the cron scheduler.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		if err := s.Sweep(context.Background()); err != nil {
			s.logger.Warn("retention sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", s.cfg.Schedule, err)
	}
	s.cron.Start()
	s.logger.Info("retention sweeper started", "schedule", s.cfg.Schedule)
	return nil
}

// Stop gracefully stops the cron scheduler.
func (s *Sweeper) Stop() {
	s.cron.Stop()
	s.logger.Info("retention sweeper stopped")
}

// Sweep runs one pass of all configured prunes.
func (s *Sweeper) Sweep(ctx context.Context) error {
	if s.cfg.HistoryMaxAge > 0 {
		cutoff := time.Now().Add(-s.cfg.HistoryMaxAge)
		pruned, err := s.history.PruneOlderThan(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("prune history by age: %w", err)
		}
		if pruned > 0 {
			s.logger.Info("pruned history by age", "rows", pruned)
		}
	}

	if s.cfg.HistoryMaxRows > 0 {
		principals, err := s.history.Principals(ctx)
		if err != nil {
			return fmt.Errorf("list history principals: %w", err)
		}
		for _, principal := range principals {
			pruned, err := s.history.PruneToCount(ctx, principal, s.cfg.HistoryMaxRows)
			if err != nil {
				return fmt.Errorf("prune history for %q: %w", principal, err)
			}
			if pruned > 0 {
				s.logger.Info("pruned history by row cap", "principal", principal, "rows", pruned)
			}
		}
	}

	if s.cfg.ExportSpoolDir != "" {
		removed, err := s.sweepExports()
		if err != nil {
			return err
		}
		if removed > 0 {
			s.logger.Info("removed expired exports", "files", removed)
		}
	}

	return nil
}

// sweepExports deletes export files past their retention age.
func (s *Sweeper) sweepExports() (int, error) {
	entries, err := os.ReadDir(s.cfg.ExportSpoolDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read spool dir %q: %w", s.cfg.ExportSpoolDir, err)
	}

	cutoff := time.Now().Add(-s.cfg.ExportMaxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "export-") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.cfg.ExportSpoolDir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Warn("remove expired export", "file", entry.Name(), "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
