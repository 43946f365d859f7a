package vault

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// IdentitySize is the fixed width of an actor identity in bytes.
const IdentitySize = 32

var ErrInvalidIdentity = errors.New("invalid identity")

// Identity is an authenticated actor (depositor or authority).
type Identity [IdentitySize]byte

// ParseIdentity decodes a 64 character hex string.
func ParseIdentity(s string) (Identity, error) {
	var id Identity

	if len(s) != hex.EncodedLen(IdentitySize) {
		return id, fmt.Errorf("%w: want %d hex chars, got %d", ErrInvalidIdentity, hex.EncodedLen(IdentitySize), len(s))
	}

	_, err := hex.Decode(id[:], []byte(s))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}

	if id.IsZero() {
		return Identity{}, fmt.Errorf("%w: zero identity", ErrInvalidIdentity)
	}

	return id, nil
}

func (id Identity) String() string {
	return hex.EncodeToString(id[:])
}

func (id Identity) IsZero() bool {
	return id == Identity{}
}

func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *Identity) UnmarshalText(b []byte) error {
	parsed, err := ParseIdentity(string(b))
	if err != nil {
		return err
	}

	*id = parsed

	return nil
}
