package query

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"

	"queryd/internal/domain"
	"queryd/internal/results"
)

// User-facing failure messages. Exactly one of these is recorded on a failed
// run; the full error only ever goes to the log.
const (
	MsgQueryDuration  = "The query took too long to run and was stopped. Add more constraints and try again."
	MsgGenericFailure = "An error occurred while running your query."
)

// worker owns the engine interaction for one background run. It is also the
// cancellation token: the engine's cancel directory is keyed by the worker
// pointer, so a cancel request from another goroutine aborts exactly this run.
//
// The record fields (sqlText, res, errMsg) are written by the worker goroutine
// only, each at most once, strictly before the channel close that makes them
// visible. The runner reads them only after observing that close.
type worker struct {
	engine     domain.DataEngine
	translator domain.QueryTranslator
	logger     *slog.Logger
	def        *domain.QueryDef

	// handleReady closes once the engine has produced a cursor and the
	// cancellation token is registered. done closes when the worker exits.
	handleReady chan struct{}
	done        chan struct{}

	sqlText string
	res     *results.PagedResults
	errMsg  string
}

func newWorker(eng domain.DataEngine, tr domain.QueryTranslator, def *domain.QueryDef, logger *slog.Logger) *worker {
	return &worker{
		engine:      eng,
		translator:  tr,
		logger:      logger,
		def:         def,
		handleReady: make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// run executes the query end to end. It never lets a failure escape: every
// exit path records its outcome on the worker and closes done.
func (w *worker) run(ctx context.Context) {
	defer close(w.done)
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("query worker panic",
				"panic", r,
				"stack", string(debug.Stack()),
			)
			if w.errMsg == "" {
				w.errMsg = MsgGenericFailure
			}
		}
	}()

	sqlText, err := w.translator.Translate(w.def)
	if err != nil {
		w.fail("translate query", err)
		return
	}
	w.sqlText = sqlText

	rows, cancel, err := w.engine.Execute(ctx, sqlText)
	if err != nil {
		w.fail("execute query", err)
		return
	}

	// Register the token before publishing the cursor: from the moment the
	// runner can see the handle, a cancel request must find a live
	// registration. Deregistration is deferred so it runs on every exit.
	w.engine.Register(w, cancel)
	defer w.engine.Deregister(w)
	defer cancel()

	close(w.handleReady)

	res, err := results.Materialize(rows, sqlText)
	closeErr := rows.Close()
	if err != nil {
		w.fail("materialize results", err)
		return
	}
	if closeErr != nil {
		w.logger.Warn("close result cursor", "error", closeErr)
	}

	w.res = res
}

// fail classifies err into one of the two user-facing messages and records
// it. Duration overruns get their own message; everything else is generic.
func (w *worker) fail(stage string, err error) {
	w.logger.Error("background query failed", "stage", stage, "error", err)
	if domain.IsQueryDuration(err) || errors.Is(err, context.DeadlineExceeded) {
		w.errMsg = MsgQueryDuration
		return
	}
	w.errMsg = MsgGenericFailure
}

// failed reports whether the worker recorded an error. Valid only after done.
func (w *worker) failed() bool { return w.errMsg != "" }
