// Package worker implements background mining for the ledger.
package worker

import (
	"sync"
	"time"

	"github.com/adamwoolhether/ledger/foundation/blockchain/state"
)

// DefaultRetryInterval is how often the worker checks for approved
// transactions that a failed or skipped mining operation left behind.
const DefaultRetryInterval = 10 * time.Second

// Worker runs mining off the request path. Approvals that fail to mine
// stay approved in the mempool and are picked up here.
type Worker struct {
	state        *state.State
	evHandler    state.EventHandler
	retry        *time.Ticker
	wg           sync.WaitGroup
	shut         chan struct{}
	startMining  chan bool
	cancelMining chan chan struct{}
}

// Run builds the worker, attaches it to the ledger and returns once the
// background operations are running. Anything approved before the node
// went down is mined straight away.
func Run(st *state.State, retryInterval time.Duration, evHandler state.EventHandler) *Worker {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	if retryInterval <= 0 {
		retryInterval = DefaultRetryInterval
	}

	w := Worker{
		state:        st,
		evHandler:    evHandler,
		retry:        time.NewTicker(retryInterval),
		shut:         make(chan struct{}),
		startMining:  make(chan bool, 1),
		cancelMining: make(chan chan struct{}, 1),
	}
	st.Worker = &w

	w.start(map[string]func(){
		"miningOperations": w.miningOperations,
		"retryOperations":  w.retryOperations,
	})

	w.SignalStartMining()

	return &w
}

// start launches one G per operation and blocks until every G is running.
func (w *Worker) start(operations map[string]func()) {
	running := make(chan struct{})
	w.wg.Add(len(operations))

	for name, op := range operations {
		go func(name string, op func()) {
			defer w.wg.Done()

			w.evHandler("worker: %s: G started", name)
			defer w.evHandler("worker: %s: G completed", name)

			running <- struct{}{}
			op()
		}(name, op)
	}

	for range operations {
		<-running
	}
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown stops the retry ticker, cancels any mining in flight and waits
// for every G to exit.
func (w *Worker) Shutdown() {
	w.evHandler("worker: Shutdown: started")
	defer w.evHandler("worker: Shutdown: completed")

	w.retry.Stop()

	done := w.SignalCancelMining()
	done()

	close(w.shut)
	w.wg.Wait()
}

// SignalStartMining asks for a mining operation. A signal already queued
// covers this one.
func (w *Worker) SignalStartMining() {
	select {
	case w.startMining <- true:
		w.evHandler("worker: SignalStartMining: mining signaled")
	default:
	}
}

// SignalCancelMining stops the mining operation in flight. The mining G
// blocks until done is called, so the caller can finish its own state
// changes before another operation starts.
func (w *Worker) SignalCancelMining() (done func()) {
	wait := make(chan struct{})

	select {
	case w.cancelMining <- wait:
		w.evHandler("worker: SignalCancelMining: MINING: CANCEL: signaled")
	default:
	}

	return func() { close(wait) }
}

// =============================================================================

func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
