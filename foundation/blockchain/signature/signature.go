// Package signature provides helper functions for handling the blockchain
// signature needs.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroHash represents the hash of the genesis block, which is never mined.
const ZeroHash = "0"

// ledgerID is an arbitrary number for signing messages. This will make it
// clear that the signature comes from this ledger.
const ledgerID = 29

// =============================================================================

// Hash returns a unique string for the value by marshaling it to JSON
// and running it through SHA-256.
func Hash(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ZeroHash
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// HashString returns the hex encoded SHA-256 digest of the string.
func HashString(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}

// Address returns the account address for the specified public key.
func Address(pk ecdsa.PublicKey) string {
	return crypto.PubkeyToAddress(pk).Hex()
}

// Sign signs the hex encoded digest with the private key and returns the
// signature in [R|S|V] hex form.
func Sign(digest string, privateKey *ecdsa.PrivateKey) (string, error) {
	stamp, err := stamp(digest)
	if err != nil {
		return "", err
	}

	sig, err := crypto.Sign(stamp, privateKey)
	if err != nil {
		return "", err
	}

	// Move the recovery id out of the 0/1 range so it can't be confused
	// with a signature produced for another chain.
	sig[64] += ledgerID

	return hex.EncodeToString(sig), nil
}

// FromAddress extracts the address of the account that signed the digest.
func FromAddress(digest string, sig string) (string, error) {
	pk, err := publicKey(digest, sig)
	if err != nil {
		return "", err
	}

	return Address(*pk), nil
}

// Verify checks the signature was produced over the digest by the key
// belonging to the address.
func Verify(digest string, sig string, address string) error {
	pk, err := publicKey(digest, sig)
	if err != nil {
		return err
	}

	stamp, err := stamp(digest)
	if err != nil {
		return err
	}

	raw, err := hex.DecodeString(sig)
	if err != nil {
		return err
	}

	if !crypto.VerifySignature(crypto.FromECDSAPub(pk), stamp, raw[:64]) {
		return errors.New("invalid signature")
	}

	if got := Address(*pk); got != address {
		return fmt.Errorf("signature belongs to %s, not %s", got, address)
	}

	return nil
}

// =============================================================================

// publicKey returns the public key that produced the signature.
func publicKey(digest string, sig string) (*ecdsa.PublicKey, error) {
	raw, err := hex.DecodeString(sig)
	if err != nil {
		return nil, fmt.Errorf("decoding signature: %w", err)
	}

	if len(raw) != crypto.SignatureLength {
		return nil, fmt.Errorf("signature length %d, exp %d", len(raw), crypto.SignatureLength)
	}

	if raw[64] != ledgerID && raw[64] != ledgerID+1 {
		return nil, errors.New("invalid recovery id")
	}

	stamp, err := stamp(digest)
	if err != nil {
		return nil, err
	}

	cpy := make([]byte, len(raw))
	copy(cpy, raw)
	cpy[64] -= ledgerID

	return crypto.SigToPub(stamp, cpy)
}

// stamp returns a hash of 32 bytes that represents the digest with the
// ledger stamp embedded into the final hash.
func stamp(digest string) ([]byte, error) {
	data, err := hex.DecodeString(digest)
	if err != nil {
		return nil, fmt.Errorf("decoding digest: %w", err)
	}

	stamp := []byte(fmt.Sprintf("\x19Ledger Signed Message:\n%d", len(data)))

	return crypto.Keccak256(stamp, data), nil
}
