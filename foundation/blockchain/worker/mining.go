package worker

import (
	"context"
	"errors"
	"time"

	"github.com/adamwoolhether/ledger/foundation/blockchain/state"
)

// miningOperations mines whenever a start signal arrives.
func (w *Worker) miningOperations() {
	for {
		select {
		case <-w.startMining:
			if w.isShutdown() {
				continue
			}
			w.runMiningOperation()

		case <-w.shut:
			return
		}
	}
}

// retryOperations signals mining on an interval so approved transactions
// are never stranded in the mempool.
func (w *Worker) retryOperations() {
	for {
		select {
		case <-w.retry.C:
			if w.isShutdown() {
				continue
			}
			if n := w.state.QueryMempoolLength(); n > 0 {
				w.evHandler("worker: retryOperations: approved[%d]: retrying", n)
				w.SignalStartMining()
			}

		case <-w.shut:
			return
		}
	}
}

// runMiningOperation mines the approved transactions into a block. A
// cancel signal stops the POW, and this call then holds until the party
// that cancelled says it is done.
func (w *Worker) runMiningOperation() {
	if w.state.QueryMempoolLength() == 0 {
		w.evHandler("worker: runMiningOperation: MINING: nothing approved")
		return
	}

	// A cancel left over from an idle period does not apply to this run.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: runMiningOperation: MINING: drained stale cancel")
	default:
	}

	ctx, cancel := context.WithCancel(context.Background())
	watcher := w.watchCancel(ctx, cancel)

	t := time.Now()
	block, err := w.state.MineNewBlock(ctx)
	cancel()

	w.report(time.Since(t), block.Number, err)

	if wait := <-watcher; wait != nil {
		w.evHandler("worker: runMiningOperation: MINING: cancelled: waiting for release")
		<-wait
	}
}

// watchCancel cancels ctx when a cancel signal arrives. The returned
// channel yields the signal's release channel, or nil when mining ended
// on its own.
func (w *Worker) watchCancel(ctx context.Context, cancel context.CancelFunc) <-chan chan struct{} {
	out := make(chan chan struct{}, 1)

	go func() {
		select {
		case wait := <-w.cancelMining:
			cancel()
			out <- wait
		case <-ctx.Done():
			out <- nil
		}
	}()

	return out
}

func (w *Worker) report(took time.Duration, number uint64, err error) {
	switch {
	case err == nil:
		w.evHandler("worker: runMiningOperation: MINING: block[%d]: duration[%v]", number, took)
	case errors.Is(err, state.ErrNoTransactions):
		w.evHandler("worker: runMiningOperation: MINING: WARNING: mempool drained by another miner")
	case errors.Is(err, context.Canceled):
		w.evHandler("worker: runMiningOperation: MINING: CANCELLED: duration[%v]", took)
	default:
		w.evHandler("worker: runMiningOperation: MINING: ERROR: duration[%v]: %s", took, err)
	}
}
