// Package genesis maintains access to the genesis settings of the ledger.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultTreasury is the account that backs every mint.
const DefaultTreasury = "government"

// Genesis represents the genesis settings of the ledger.
type Genesis struct {
	Date       time.Time         `json:"date" yaml:"date"`
	Difficulty int               `json:"difficulty" yaml:"difficulty"` // Number of leading zero hex characters a block hash needs.
	Treasury   string            `json:"treasury" yaml:"treasury"`     // Account debited by every approved mint.
	Balances   map[string]uint64 `json:"balances" yaml:"balances"`     // Seed balances applied on a fresh ledger.
}

// Default returns the settings a fresh ledger starts from when no
// genesis file is provided.
func Default() Genesis {
	return Genesis{
		Date:       time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Difficulty: 2,
		Treasury:   DefaultTreasury,
		Balances: map[string]uint64{
			DefaultTreasury: 1_000_000,
			"client1":       0,
			"client2":       0,
			"client3":       0,
		},
	}
}

// Load opens and consumes the genesis file. Files ending in .json are
// decoded as JSON, everything else as YAML.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var gen Genesis
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(content, &gen)
	default:
		err = yaml.Unmarshal(content, &gen)
	}
	if err != nil {
		return Genesis{}, fmt.Errorf("decoding %s: %w", path, err)
	}

	if gen.Treasury == "" {
		gen.Treasury = DefaultTreasury
	}

	if err := gen.Validate(); err != nil {
		return Genesis{}, err
	}

	return gen, nil
}

// Validate checks the settings can start a ledger.
func (g Genesis) Validate() error {
	if g.Difficulty < 0 || g.Difficulty > 64 {
		return fmt.Errorf("difficulty %d out of range [0,64]", g.Difficulty)
	}

	if g.Treasury == "" {
		return errors.New("treasury account is required")
	}

	if _, exists := g.Balances[g.Treasury]; !exists {
		return fmt.Errorf("treasury account %q has no seed balance", g.Treasury)
	}

	return nil
}
