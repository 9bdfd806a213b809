package query

import (
	"context"
	"fmt"
	"time"

	"queryd/internal/domain"
	"queryd/internal/session"
)

// Run executes def synchronously on behalf of sess and reports whether
// results were published. The boolean is the caller-facing outcome; the
// error carries infrastructure failures on the success path (history write,
// save) and is nil for query failures and cancellations, which surface only
// through the session's error list and the monitor.
//
// The run is supervised in two logically separate waits. First the runner
// waits for the worker to publish its cursor (or to die before producing
// one); then it supervises the run until termination, polling the monitor
// for a cancel request at each tick. Both waits are event-driven on the
// worker's channels — the tickers exist only to poll cancellation intent.
//
// On a cancel request the runner forwards it to the engine by token, tells
// the monitor, and returns immediately: it does not wait for the worker to
// unwind. Cancellation is cooperative, so the worker may still complete
// naturally; either way the worker's own terminal notification is
// suppressed because the runner has already returned.
//
// monitor may be nil: notifications are skipped and the run cannot be
// canceled, but execution and publication are identical.
func (s *Service) Run(ctx context.Context, sess *session.Session, def *domain.QueryDef, monitor domain.QueryMonitor, save bool) (bool, error) {
	startedAt := time.Now()
	w := newWorker(s.engine, s.translator, def, s.logger)
	go w.run(ctx)

	// Wait for first output. A cancel request arriving before the cursor
	// exists is forwarded anyway; the engine ignores unknown tokens, and the
	// supervision loop below re-checks the instant the handle appears.
	firstOutput := time.NewTicker(s.cfg.FirstResultTick)
	waiting := true
	for waiting {
		select {
		case <-w.handleReady:
			waiting = false
		case <-w.done:
			waiting = false
		case <-firstOutput.C:
			if monitor != nil && monitor.ShouldCancelQuery() {
				s.engine.Cancel(w)
			}
		}
	}
	firstOutput.Stop()

	// Supervise until terminal. The cancel check runs before each wait so a
	// request pending from the first phase is honored without a tick of lag.
	supervise := time.NewTicker(s.cfg.SuperviseTick)
	defer supervise.Stop()
	running := true
	for running {
		if monitor != nil && monitor.ShouldCancelQuery() {
			s.engine.Cancel(w)
			s.recordHistory(ctx, sess, w, domain.JobStatusCanceled, startedAt)
			monitor.QueryCancelled()
			s.logger.Info("background query canceled", "session_id", sess.ID())
			return false, nil
		}
		select {
		case <-w.done:
			running = false
		case <-supervise.C:
		}
	}

	if w.failed() {
		sess.RecordError(w.errMsg)
		s.recordHistory(ctx, sess, w, domain.JobStatusFailed, startedAt)
		if monitor != nil {
			monitor.QueryCancelledWithError()
		}
		return false, nil
	}

	// Success: the result table is fully materialized, so publishing it to
	// both session slots exposes no partial state.
	sess.PublishResults(w.res)
	sess.SetCurrentQuery(def)

	var infraErr error
	if err := s.recordHistory(ctx, sess, w, domain.JobStatusCompleted, startedAt); err != nil {
		infraErr = fmt.Errorf("record query history: %w", err)
	}
	if save && s.saver != nil {
		saved, err := s.saver.SaveGenerated(ctx, sess.Principal(), def)
		if err != nil {
			infraErr = fmt.Errorf("save query: %w", err)
		} else {
			sess.RecordMessage(fmt.Sprintf("Query saved as %q.", saved.Name))
		}
	}

	if monitor != nil {
		monitor.QueryCompleted()
	}
	s.logger.Info("background query completed",
		"session_id", sess.ID(), "rows", w.res.Size(), "elapsed", time.Since(startedAt))
	return true, infraErr
}

// recordHistory writes one history row for a finished run. History is
// best-effort on the failure and cancel paths: a write error there is
// logged and must not mask the run's own outcome.
func (s *Service) recordHistory(ctx context.Context, sess *session.Session, w *worker, status domain.JobStatus, startedAt time.Time) error {
	if s.history == nil {
		return nil
	}

	now := time.Now()
	entry := &domain.QueryHistoryEntry{
		Principal:  sess.Principal(),
		Title:      historyTitle(w.def),
		Def:        w.def,
		SQLText:    w.sqlText,
		Status:     status,
		StartedAt:  startedAt,
		FinishedAt: &now,
	}
	if status == domain.JobStatusFailed && w.errMsg != "" {
		msg := w.errMsg
		entry.ErrorMessage = &msg
	}
	if status == domain.JobStatusCompleted && w.res != nil {
		n := int64(w.res.Size())
		entry.RowCount = &n
	}

	if _, err := s.history.Insert(ctx, entry); err != nil {
		if status != domain.JobStatusCompleted {
			s.logger.Warn("record query history", "status", status, "error", err)
			return nil
		}
		return err
	}
	return nil
}

func historyTitle(def *domain.QueryDef) string {
	if def == nil || def.From == "" {
		return "query"
	}
	return "query on " + def.From
}
