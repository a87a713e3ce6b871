package database

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/adamwoolhether/ledger/foundation/blockchain/merkle"
	"github.com/adamwoolhether/ledger/foundation/blockchain/signature"
)

// yieldEvery is how many nonce attempts are made between cooperative
// checkpoints while mining.
const yieldEvery = 1 << 10

// Block represents a group of approved transactions sealed by proof of work.
type Block struct {
	Number       uint64 `json:"number"`
	TimeStamp    int64  `json:"timestamp"` // Unix milliseconds.
	PreviousHash string `json:"previous_hash"`
	Difficulty   int    `json:"difficulty"` // Number of leading 0's needed to solve the hash.
	TransRoot    string `json:"trans_root"` // Merkle root of the transaction content hashes.
	Nonce        uint64 `json:"nonce"`
	Hash         string `json:"hash"`
	Transactions []Tx   `json:"transactions"`
}

// GenesisBlock constructs the first block of every chain. It is never mined
// and carries the fixed zero hash.
func GenesisBlock(timeStamp time.Time) Block {
	return Block{
		TimeStamp:    timeStamp.UTC().UnixMilli(),
		PreviousHash: signature.ZeroHash,
		Hash:         signature.ZeroHash,
		Transactions: []Tx{},
	}
}

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	PrevBlock  Block
	Difficulty int
	Txs        []Tx
	EvHandler  func(v string, args ...any)
}

// POW constructs a new Block and performs the work to find a nonce that
// solves the cryptographic POW puzzle. The work can be cancelled through
// the context.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	ev := args.EvHandler
	if ev == nil {
		ev = func(string, ...any) {}
	}

	if len(args.Txs) == 0 {
		return Block{}, fmt.Errorf("%w: no transactions", ErrInvalidBlock)
	}

	for _, tx := range args.Txs {
		if tx.Status != StatusApproved {
			return Block{}, fmt.Errorf("%w: transaction %s is %s", ErrInvalidBlock, tx.ID, tx.Status)
		}
	}

	tree, err := merkle.NewTree(args.Txs)
	if err != nil {
		return Block{}, err
	}

	nb := Block{
		Number:       args.PrevBlock.Number + 1,
		TimeStamp:    time.Now().UTC().UnixMilli(),
		PreviousHash: args.PrevBlock.Hash,
		Difficulty:   args.Difficulty,
		TransRoot:    tree.RootHex(),
		Transactions: tree.Values(),
	}

	ev("database: POW: MINING: started: difficulty[%d]: numTrans[%d]", args.Difficulty, len(args.Txs))
	defer ev("database: POW: MINING: completed")

	if err := nb.performPOW(ctx, ev); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// performPOW does the work of mining to find a valid hash for a specified
// block. Control is given back to the scheduler periodically so mining never
// monopolizes a thread.
func (b *Block) performPOW(ctx context.Context, ev func(v string, args ...any)) error {
	var attempts uint64
	for b.Nonce = 0; ; b.Nonce++ {
		attempts++
		if attempts%yieldEvery == 0 {
			if err := ctx.Err(); err != nil {
				ev("database: POW: MINING: CANCELLED: attempts[%d]", attempts)
				return err
			}
			runtime.Gosched()
		}

		hash := b.CalculateHash()
		if isHashSolved(b.Difficulty, hash) {
			b.Hash = hash
			ev("database: POW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: attempts[%d]", b.PreviousHash, hash, attempts)
			return nil
		}
	}
}

// CalculateHash returns the digest over the previous hash, timestamp,
// transactions and nonce.
func (b Block) CalculateHash() string {
	var sb strings.Builder
	sb.WriteString(b.PreviousHash)
	sb.WriteString(strconv.FormatInt(b.TimeStamp, 10))
	sb.WriteString(b.TransRoot)
	sb.WriteString(strconv.FormatUint(b.Nonce, 10))

	return signature.HashString(sb.String())
}

// IsGenesis reports whether the block is the fixed first block of a chain.
func (b Block) IsGenesis() bool {
	return b.Number == 0 && b.Hash == signature.ZeroHash
}

// ValidateBlock takes a block and validates it to be included as the next
// block after the parent block.
func (b Block) ValidateBlock(parent Block, difficulty int) error {
	if b.Number != parent.Number+1 {
		return fmt.Errorf("%w: block %d is not the next block after %d", ErrInvalidBlock, b.Number, parent.Number)
	}

	if b.PreviousHash != parent.Hash {
		return fmt.Errorf("%w: previous hash %s doesn't match parent hash %s", ErrInvalidBlock, b.PreviousHash, parent.Hash)
	}

	if b.Difficulty != difficulty {
		return fmt.Errorf("%w: difficulty %d, exp %d", ErrInvalidBlock, b.Difficulty, difficulty)
	}

	if hash := b.CalculateHash(); hash != b.Hash {
		return fmt.Errorf("%w: hash %s doesn't match calculated %s", ErrInvalidBlock, b.Hash, hash)
	}

	if !isHashSolved(difficulty, b.Hash) {
		return fmt.Errorf("%w: hash %s is not solved for difficulty %d", ErrInvalidBlock, b.Hash, difficulty)
	}

	if len(b.Transactions) == 0 {
		return fmt.Errorf("%w: block %d has no transactions", ErrInvalidBlock, b.Number)
	}

	for _, tx := range b.Transactions {
		if tx.Status != StatusApproved {
			return fmt.Errorf("%w: transaction %s is %s", ErrInvalidBlock, tx.ID, tx.Status)
		}
		if err := tx.VerifyHash(); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidBlock, err)
		}
	}

	tree, err := merkle.NewTree(b.Transactions)
	if err != nil {
		return err
	}

	if root := tree.RootHex(); root != b.TransRoot {
		return fmt.Errorf("%w: merkle root %s doesn't match calculated %s", ErrInvalidBlock, b.TransRoot, root)
	}

	return nil
}

// VerifyChain walks the chain from genesis and validates every block
// against its parent and the difficulty it was sealed with.
func VerifyChain(chain []Block) error {
	if len(chain) == 0 {
		return fmt.Errorf("%w: empty chain", ErrInvalidBlock)
	}

	if !chain[0].IsGenesis() || len(chain[0].Transactions) != 0 {
		return errors.New("chain doesn't start with the genesis block")
	}

	for i := 1; i < len(chain); i++ {
		if err := chain[i].ValidateBlock(chain[i-1], chain[i].Difficulty); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
	}

	return nil
}

// =============================================================================

// isHashSolved checks the hash to make sure it complies with
// the POW rules. We need to match a difficulty number of 0's.
func isHashSolved(difficulty int, hash string) bool {
	if difficulty > len(hash) {
		return false
	}
	return strings.HasPrefix(hash, strings.Repeat("0", difficulty))
}
