package selector

import (
	"sort"

	"github.com/adamwoolhether/ledger/foundation/blockchain/database"
)

// largestSelect returns transactions with the largest amount first while
// respecting the creation order for each account.
var largestSelect = func(m map[database.AccountID][]database.Tx, howMany int) []database.Tx {
	// Sort the transactions of each account by creation time.
	var total int
	for key := range m {
		if len(m[key]) > 1 {
			sort.Sort(byTime(m[key]))
		}
		total += len(m[key])
	}

	if howMany < 0 {
		howMany = total
	}

	// Pick the first transaction in the slice for each account. Each
	// iteration represents a new row of selections. Keep doing this
	// until all the transactions have been selected.
	var rows [][]database.Tx
	for {
		var row []database.Tx
		for key := range m {
			if len(m[key]) > 0 {
				row = append(row, m[key][0])
				m[key] = m[key][1:]
			}
		}
		if row == nil {
			break
		}
		rows = append(rows, row)
	}

	// Sort each row by amount and keep pulling transactions from each
	// row until the amount is fulfilled or there are no more transactions.
	final := []database.Tx{}
	for _, row := range rows {
		sort.Sort(byAmount(row))

		need := howMany - len(final)
		if len(row) > need {
			final = append(final, row[:need]...)
			break
		}
		final = append(final, row...)
	}

	return final
}
