package memory_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adamwoolhether/ledger/foundation/blockchain/database"
	"github.com/adamwoolhether/ledger/foundation/blockchain/storage/memory"
)

func TestMemory(t *testing.T) {
	m := memory.New()

	_, err := m.Load()
	require.ErrorIs(t, err, database.ErrNoSnapshot)

	require.NoError(t, m.Save(database.Snapshot{Difficulty: 4}))
	require.Equal(t, 1, m.Saves())

	snap, err := m.Load()
	require.NoError(t, err)
	require.Equal(t, 4, snap.Difficulty)

	boom := errors.New("disk full")
	m.FailWith(boom)
	require.ErrorIs(t, m.Save(database.Snapshot{Difficulty: 5}), boom)

	snap, err = m.Load()
	require.NoError(t, err)
	require.Equal(t, 4, snap.Difficulty, "a failed save must not replace the stored snapshot")

	m.FailWith(nil)
	require.NoError(t, m.Reset())

	_, err = m.Load()
	require.ErrorIs(t, err, database.ErrNoSnapshot)
}
