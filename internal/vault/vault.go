package vault

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// RecordVersion is the current layout version of an encoded vault record.
const RecordVersion uint8 = 1

// Record layout (v1):
//
//	[0:8)   discriminator "vault\x00\x00\x00"
//	[8]     version
//	[9:41)  authority
//	[41]    locked (0 or 1)
const (
	discriminatorSize = 8
	recordSizeV1      = discriminatorSize + 1 + IdentitySize + 1
)

var discriminator = [discriminatorSize]byte{'v', 'a', 'u', 'l', 't'}

var ErrInvalidRecord = errors.New("invalid vault record")

// bindingNamespace seeds the deterministic vault id derivation.
var bindingNamespace = uuid.MustParse("5b0e3a52-3f5e-4c43-9d0a-6a2b1f1e7c11")

// Vault is the custodied pool. Balance is the raw amount held by the vault's
// own account, including the reserve floor.
type Vault struct {
	ID        uuid.UUID
	Authority Identity
	Balance   uint64
	Locked    bool
	Version   uint8
}

// Account is an actor's external balance, the mirror side of every transfer.
type Account struct {
	ID      Identity
	Balance uint64
}

// DeriveID returns the vault identifier bound to authority. The same authority
// always maps to the same id.
func DeriveID(authority Identity) uuid.UUID {
	return uuid.NewSHA1(bindingNamespace, append([]byte("vault"), authority[:]...))
}

// New builds an unlocked, empty vault for authority at the current layout.
func New(authority Identity) Vault {
	return Vault{
		ID:        DeriveID(authority),
		Authority: authority,
		Version:   RecordVersion,
	}
}

// RecordSize is the stored size of the vault record for its layout version.
func (v Vault) RecordSize() int {
	// v1 is the only layout so far; new versions must size themselves here.
	return recordSizeV1
}

// EncodeRecord serializes the persisted fields of v. The balance is held by
// the account itself and is not part of the record.
func (v Vault) EncodeRecord() []byte {
	buf := make([]byte, recordSizeV1)

	copy(buf[:discriminatorSize], discriminator[:])
	buf[discriminatorSize] = RecordVersion
	copy(buf[discriminatorSize+1:discriminatorSize+1+IdentitySize], v.Authority[:])

	if v.Locked {
		buf[recordSizeV1-1] = 1
	}

	return buf
}

// DecodeRecord restores a vault from its record bytes and raw balance.
func DecodeRecord(id uuid.UUID, balance uint64, data []byte) (Vault, error) {
	if len(data) < discriminatorSize+1 {
		return Vault{}, fmt.Errorf("%w: short record (%d bytes)", ErrInvalidRecord, len(data))
	}

	if [discriminatorSize]byte(data[:discriminatorSize]) != discriminator {
		return Vault{}, fmt.Errorf("%w: bad discriminator", ErrInvalidRecord)
	}

	version := data[discriminatorSize]
	if version != RecordVersion {
		return Vault{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidRecord, version)
	}

	if len(data) != recordSizeV1 {
		return Vault{}, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidRecord, recordSizeV1, len(data))
	}

	var authority Identity
	copy(authority[:], data[discriminatorSize+1:discriminatorSize+1+IdentitySize])

	var locked bool

	switch data[recordSizeV1-1] {
	case 0:
	case 1:
		locked = true
	default:
		return Vault{}, fmt.Errorf("%w: bad locked flag %d", ErrInvalidRecord, data[recordSizeV1-1])
	}

	return Vault{
		ID:        id,
		Authority: authority,
		Balance:   balance,
		Locked:    locked,
		Version:   version,
	}, nil
}
