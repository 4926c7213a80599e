// Package worker implements the periodic poll tick that drives peer
// ingestion, expansion and export for the collector.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ethernova/explorer/foundation/collector/state"
)

// Worker manages the poll workflow for the collector.
type Worker struct {
	state     *state.State
	wg        sync.WaitGroup
	ticker    *time.Ticker
	shut      chan struct{}
	poll      chan bool
	evHandler state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up the polling goroutine.
func Run(st *state.State, interval time.Duration, evHandler state.EventHandler) {
	w := Worker{
		state:     st,
		ticker:    time.NewTicker(interval),
		shut:      make(chan struct{}),
		poll:      make(chan bool, 1),
		evHandler: evHandler,
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Run the first tick before the interval starts so the service comes up
	// with data.
	w.runPollOperation()

	// We don't want to return until we know the G is up and running.
	hasStarted := make(chan bool)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		hasStarted <- true
		w.pollOperations()
	}()

	<-hasStarted
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutine performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.ticker.Stop()
	close(w.shut)
	w.wg.Wait()
}

// SignalPoll requests a poll outside the regular cadence. If a signal is
// already pending the request is dropped; a tick is coming either way.
func (w *Worker) SignalPoll() {
	select {
	case w.poll <- true:
	default:
	}
	w.evHandler("worker: SignalPoll: poll signaled")
}

// =============================================================================

// pollOperations handles the periodic collection tick.
func (w *Worker) pollOperations() {
	w.evHandler("worker: pollOperations: G started")
	defer w.evHandler("worker: pollOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() {
				w.runPollOperation()
			}
		case <-w.poll:
			if !w.isShutdown() {
				w.runPollOperation()
			}
		case <-w.shut:
			w.evHandler("worker: pollOperations: received shut signal")
			return
		}
	}
}

// runPollOperation executes one tick. Tick errors are reported and absorbed
// here; nothing on this path may take the process down.
func (w *Worker) runPollOperation() {
	if err := w.state.Poll(context.Background()); err != nil {
		w.evHandler("worker: runPollOperation: ERROR: %s", err)
	}
}

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
