package selector

import (
	"sort"

	"github.com/adamwoolhether/ledger/foundation/blockchain/database"
)

// oldestSelect returns transactions in the order they were created across
// all accounts.
var oldestSelect = func(m map[database.AccountID][]database.Tx, howMany int) []database.Tx {
	final := []database.Tx{}
	for _, txs := range m {
		final = append(final, txs...)
	}

	sort.Sort(byTime(final))

	if howMany >= 0 && len(final) > howMany {
		final = final[:howMany]
	}

	return final
}
