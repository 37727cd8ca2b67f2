package models

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// IdentifierLength is the size of a price feed identifier in bytes.
const IdentifierLength = 32

var (
	// ErrInvalidLength is returned when identifier text does not decode to
	// exactly 32 bytes.
	ErrInvalidLength = errors.New("identifier must be 32 bytes")
	// ErrInvalidHex is returned when identifier text contains non-hex
	// characters.
	ErrInvalidHex = errors.New("identifier is not valid hex")
)

// Identifier is a 32-byte price feed id. The textual form is 64 hex
// characters, case insensitive, optionally prefixed with "0x".
//
// Examples:
//   - 0xe62df6c8b4a85fe1a67db44dc12de5db330f7ac66b72dc658afedf0f4a415b43
//   - e62df6c8b4a85fe1a67db44dc12de5db330f7ac66b72dc658afedf0f4a415b43
type Identifier [IdentifierLength]byte

// NewIdentifier wraps raw bytes as an Identifier.
func NewIdentifier(b [IdentifierLength]byte) Identifier {
	return Identifier(b)
}

// ParseIdentifier parses identifier text. A leading "0x" or "0X" is
// stripped before decoding.
func ParseIdentifier(text string) (Identifier, error) {
	var id Identifier

	s := text
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	if len(s) != IdentifierLength*2 {
		return id, fmt.Errorf("%w: %d hex characters", ErrInvalidLength, len(s))
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, fmt.Errorf("%w: %q", ErrInvalidHex, text)
	}
	return id, nil
}

// Hex returns the canonical textual form: lower case, no prefix, exactly
// 64 characters.
func (id Identifier) Hex() string {
	return hex.EncodeToString(id[:])
}

func (id Identifier) String() string {
	return id.Hex()
}

// Bytes returns a copy of the raw identifier bytes.
func (id Identifier) Bytes() []byte {
	out := make([]byte, IdentifierLength)
	copy(out, id[:])
	return out
}

// Cmp compares identifiers byte-wise, giving the deterministic ordering
// used when feeds are sorted in collections.
func (id Identifier) Cmp(other Identifier) int {
	return bytes.Compare(id[:], other[:])
}

// Less reports whether id orders before other.
func (id Identifier) Less(other Identifier) bool {
	return id.Cmp(other) < 0
}

// MarshalText emits the canonical hex form.
func (id Identifier) MarshalText() ([]byte, error) {
	return []byte(id.Hex()), nil
}

// UnmarshalText accepts any valid textual form.
func (id *Identifier) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentifier(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
