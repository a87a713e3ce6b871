package database

import (
	"fmt"
	"strings"
)

// Kind is the closed set of value movements the ledger settles.
type Kind uint8

// Set of kinds a request or transaction can carry.
const (
	KindTransfer Kind = iota + 1
	KindMint
)

// String implements the fmt.Stringer interface.
func (k Kind) String() string {
	switch k {
	case KindTransfer:
		return "TRANSFER"
	case KindMint:
		return "MINT"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind converts the string form of a kind back into a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRANSFER":
		return KindTransfer, nil
	case "MINT":
		return KindMint, nil
	}
	return 0, fmt.Errorf("unknown kind %q", s)
}

// MarshalText implements the encoding.TextMarshaler interface.
func (k Kind) MarshalText() ([]byte, error) {
	if k != KindTransfer && k != KindMint {
		return nil, fmt.Errorf("unknown kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (k *Kind) UnmarshalText(data []byte) error {
	kind, err := ParseKind(string(data))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// =============================================================================

// Status is where a request or transaction is in the approval pipeline.
type Status uint8

// Set of statuses. PENDING moves to APPROVED or REJECTED exactly once.
const (
	StatusPending Status = iota + 1
	StatusApproved
	StatusRejected
)

// String implements the fmt.Stringer interface.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusApproved:
		return "APPROVED"
	case StatusRejected:
		return "REJECTED"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// ParseStatus converts the string form of a status back into a Status.
func ParseStatus(s string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PENDING":
		return StatusPending, nil
	case "APPROVED":
		return StatusApproved, nil
	case "REJECTED":
		return StatusRejected, nil
	}
	return 0, fmt.Errorf("unknown status %q", s)
}

// MarshalText implements the encoding.TextMarshaler interface.
func (s Status) MarshalText() ([]byte, error) {
	if s < StatusPending || s > StatusRejected {
		return nil, fmt.Errorf("unknown status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (s *Status) UnmarshalText(data []byte) error {
	status, err := ParseStatus(string(data))
	if err != nil {
		return err
	}
	*s = status
	return nil
}
