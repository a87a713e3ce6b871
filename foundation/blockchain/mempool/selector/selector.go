// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"
	"strings"

	"github.com/adamwoolhether/ledger/foundation/blockchain/database"
)

// List of select strategies.
const (
	StrategyOldest  = "oldest"
	StrategyLargest = "largest"
)

// map of select strategies with functions.
var strategies = map[string]Func{
	StrategyOldest:  oldestSelect,
	StrategyLargest: largestSelect,
}

// Func defines a function that takes a mempool of transactions grouped by
// sending account and selects howMany of them in an order based on the
// function strategy. All selector functions must respect the creation order
// of each account's transactions. Receiving -1 for howMany must return all
// the transactions in the strategy ordering.
type Func func(transactions map[database.AccountID][]database.Tx, howMany int) []database.Tx

// Retrieve returns the selected strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strings.ToLower(strategy)]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}

	return fn, nil
}

// =============================================================================

// byTime provides support to sort transactions by creation time. It's methods
// fulfill requirements for sort.Interface.
type byTime []database.Tx

// Len returns the number of transactions in the list.
func (bt byTime) Len() int {
	return len(bt)
}

// Less helps sort the list by timestamp in ascending order, falling back
// to the id so the order is stable.
func (bt byTime) Less(i, j int) bool {
	if bt[i].TimeStamp == bt[j].TimeStamp {
		return bt[i].ID < bt[j].ID
	}
	return bt[i].TimeStamp < bt[j].TimeStamp
}

// Swap moves the transactions in the order of the timestamp value.
func (bt byTime) Swap(i, j int) {
	bt[i], bt[j] = bt[j], bt[i]
}

// =============================================================================

// byAmount provides support to sort transactions by amount, largest first.
// It's methods implement sort.Interface.
type byAmount []database.Tx

// Len returns the number of transactions in the list.
func (ba byAmount) Len() int {
	return len(ba)
}

// Less helps sort the list by amount in descending order.
func (ba byAmount) Less(i, j int) bool {
	if ba[i].Amount.Equal(ba[j].Amount) {
		return byTime(ba).Less(i, j)
	}
	return ba[i].Amount.GreaterThan(ba[j].Amount)
}

// Swap moves the transactions in the order of the amount value.
func (ba byAmount) Swap(i, j int) {
	ba[i], ba[j] = ba[j], ba[i]
}
