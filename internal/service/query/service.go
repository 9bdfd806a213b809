// Package query runs portable query definitions in the background: it
// launches one worker per run, supervises it, propagates cancel requests
// into the engine, and publishes finished results onto the session.
package query

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"queryd/internal/domain"
	"queryd/internal/session"
)

// Default timing knobs. All three are tunable via Config; none is part of
// the service contract.
const (
	DefaultFirstResultTick     = 25 * time.Millisecond
	DefaultSuperviseTick       = 1 * time.Second
	DefaultRegistryGracePeriod = 10 * time.Second
)

// Saver persists a query definition under a generated name. Implemented by
// profile.Service; the runner calls it on the success path when the caller
// asked for the query to be kept.
type Saver interface {
	SaveGenerated(ctx context.Context, principal string, def *domain.QueryDef) (*domain.SavedQuery, error)
}

// Config holds the service timing knobs.
type Config struct {
	// FirstResultTick is the cancel-poll cadence while waiting for the
	// engine to produce a cursor.
	FirstResultTick time.Duration
	// SuperviseTick is the cancel-poll cadence while the run is in flight.
	SuperviseTick time.Duration
	// RegistryGracePeriod is how long a finished job stays visible in the
	// session registry so late status polls still resolve.
	RegistryGracePeriod time.Duration
}

func (c Config) withDefaults() Config {
	if c.FirstResultTick <= 0 {
		c.FirstResultTick = DefaultFirstResultTick
	}
	if c.SuperviseTick <= 0 {
		c.SuperviseTick = DefaultSuperviseTick
	}
	if c.RegistryGracePeriod <= 0 {
		c.RegistryGracePeriod = DefaultRegistryGracePeriod
	}
	return c
}

// Service launches, supervises, and cancels background query runs.
type Service struct {
	engine     domain.DataEngine
	translator domain.QueryTranslator
	history    domain.QueryHistoryRepository
	saver      Saver
	cfg        Config
	logger     *slog.Logger

	jobSeq atomic.Int64
}

// NewService creates a Service. history and saver may be nil; runs then skip
// history recording and save-on-success respectively.
func NewService(eng domain.DataEngine, tr domain.QueryTranslator, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		engine:     eng,
		translator: tr,
		cfg:        cfg.withDefaults(),
		logger:     logger.With("component", "query"),
	}
}

// SetHistory configures run-history recording.
func (s *Service) SetHistory(repo domain.QueryHistoryRepository) {
	s.history = repo
}

// SetSaver configures save-on-success persistence.
func (s *Service) SetSaver(saver Saver) {
	s.saver = saver
}

// StartQuery registers monitor in the session's running-query registry under
// a fresh job id, launches the run in the background, and returns the id
// without waiting. Ids are strictly increasing for the process lifetime and
// never reused, so a registry slot is never re-registered.
//
// The registry entry outlives the run by the configured grace period: a
// client that polls shortly after completion still finds the monitor and can
// read its terminal state before the slot is pruned.
func (s *Service) StartQuery(sess *session.Session, def *domain.QueryDef, monitor domain.QueryMonitor, save bool) string {
	id := domain.FormatJobID(s.jobSeq.Add(1))
	sess.RegisterQuery(id, monitor)

	go func() {
		if _, err := s.Run(sess.Context(), sess, def, monitor, save); err != nil {
			s.logger.Error("background run finished with infrastructure error",
				"job_id", id, "session_id", sess.ID(), "error", err)
		}

		select {
		case <-time.After(s.cfg.RegistryGracePeriod):
		case <-sess.Context().Done():
		}
		sess.RemoveQuery(id)
	}()

	s.logger.Info("background query started",
		"job_id", id, "session_id", sess.ID(), "principal", sess.Principal())
	return id
}

// GetRunningQueryController returns the monitor registered under id. A miss
// is a normal outcome — the job may have finished past its grace period, or
// the id was never issued — so callers get a boolean, not an error.
func (s *Service) GetRunningQueryController(sess *session.Session, id string) (domain.QueryMonitor, bool) {
	return sess.LookupQuery(id)
}
