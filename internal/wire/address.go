package wire

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"

	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

const (
	// AccountAddressLen is the size of a packed account address.
	AccountAddressLen = 32

	// ContractAddressLen is the size of a packed contract address.
	ContractAddressLen = 16

	accountAddressVersion = 0x01
	checksumLen           = 4
)

// AccountAddress is the raw 32-byte form of a base58check account address.
type AccountAddress [AccountAddressLen]byte

// ParseAccountAddress decodes a base58check account address.
func ParseAccountAddress(s string) (AccountAddress, error) {
	var addr AccountAddress
	raw, err := base58.Decode(strings.TrimSpace(s))
	if err != nil {
		return addr, walleterr.WithDetails(walleterr.ErrInvalidAddress, map[string]string{"address": s})
	}
	if len(raw) != 1+AccountAddressLen+checksumLen || raw[0] != accountAddressVersion {
		return addr, walleterr.WithDetails(walleterr.ErrInvalidAddress, map[string]string{"address": s})
	}
	payload := raw[:1+AccountAddressLen]
	if !bytes.Equal(checksum(payload), raw[1+AccountAddressLen:]) {
		return addr, walleterr.WithDetails(walleterr.ErrInvalidAddress, map[string]string{
			"address": s,
			"reason":  "checksum mismatch",
		})
	}
	copy(addr[:], raw[1:])
	return addr, nil
}

// AccountAddressFromBytes copies a 32-byte slice into an AccountAddress.
func AccountAddressFromBytes(b []byte) (AccountAddress, error) {
	var addr AccountAddress
	if len(b) != AccountAddressLen {
		return addr, fmt.Errorf("%w: account address must be %d bytes, got %d",
			walleterr.ErrInvalidAddress, AccountAddressLen, len(b))
	}
	copy(addr[:], b)
	return addr, nil
}

// String returns the base58check encoding.
func (a AccountAddress) String() string {
	payload := make([]byte, 0, 1+AccountAddressLen+checksumLen)
	payload = append(payload, accountAddressVersion)
	payload = append(payload, a[:]...)
	payload = append(payload, checksum(payload)...)
	return base58.Encode(payload)
}

// IsZero reports whether the address is unset.
func (a AccountAddress) IsZero() bool {
	return a == AccountAddress{}
}

// PackAccountAddress decodes a base58check address into its 32 raw bytes.
func PackAccountAddress(s string) ([]byte, error) {
	addr, err := ParseAccountAddress(s)
	if err != nil {
		return nil, err
	}
	return addr[:], nil
}

func checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:checksumLen]
}

// ContractAddress identifies a smart contract instance.
type ContractAddress struct {
	Index    uint64 `json:"index"`
	Subindex uint64 `json:"subindex"`
}

// String renders the address as <index,subindex>.
func (c ContractAddress) String() string {
	return fmt.Sprintf("<%d,%d>", c.Index, c.Subindex)
}

// Key returns a compact map key of the form index:subindex.
func (c ContractAddress) Key() string {
	return strconv.FormatUint(c.Index, 10) + ":" + strconv.FormatUint(c.Subindex, 10)
}

// Less orders contracts by index then subindex.
func (c ContractAddress) Less(o ContractAddress) bool {
	if c.Index != o.Index {
		return c.Index < o.Index
	}
	return c.Subindex < o.Subindex
}

// Pack returns the 16-byte little-endian encoding.
func (c ContractAddress) Pack() []byte {
	w := NewWriter(ContractAddressLen)
	w.U64LE(c.Index)
	w.U64LE(c.Subindex)
	return w.Bytes()
}

// ParseContractAddress accepts "<i,s>", "i,s", "i:s" or a bare index.
func ParseContractAddress(s string) (ContractAddress, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(clean, "<")
	clean = strings.TrimSuffix(clean, ">")
	sep := strings.IndexAny(clean, ",:")
	idxPart, subPart := clean, "0"
	if sep >= 0 {
		idxPart, subPart = clean[:sep], clean[sep+1:]
	}
	idx, err := strconv.ParseUint(strings.TrimSpace(idxPart), 10, 64)
	if err != nil {
		return ContractAddress{}, walleterr.WithDetails(walleterr.ErrInvalidAddress, map[string]string{"contract": s})
	}
	sub, err := strconv.ParseUint(strings.TrimSpace(subPart), 10, 64)
	if err != nil {
		return ContractAddress{}, walleterr.WithDetails(walleterr.ErrInvalidAddress, map[string]string{"contract": s})
	}
	return ContractAddress{Index: idx, Subindex: sub}, nil
}
