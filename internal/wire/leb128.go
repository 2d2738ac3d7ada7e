// Package wire provides the binary primitives shared by the token protocol
// codec and the transaction builder: unsigned LEB128, fixed-width little
// and big endian integers, hex helpers, and account/contract address packing.
package wire

import (
	"errors"
	"fmt"
	"math/big"

	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

var (
	// ErrTruncated indicates the input ended before a value was complete.
	ErrTruncated = walleterr.Wrap(walleterr.ErrMalformedResponse, "truncated input")

	// ErrOverflow indicates a LEB128 value does not fit the target type.
	ErrOverflow = walleterr.Wrap(walleterr.ErrMalformedResponse, "leb128 overflow")

	// ErrNegative indicates a negative value was given to an unsigned encoder.
	ErrNegative = errors.New("value must be non-negative")
)

// MaxLEB128Len bounds the encoded length of a CIS-2 token amount (u256).
const MaxLEB128Len = 37

// AppendULEB128 appends the unsigned LEB128 encoding of v to dst.
func AppendULEB128(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			dst = append(dst, b|0x80)
			continue
		}
		return append(dst, b)
	}
}

// EncodeULEB128 returns the unsigned LEB128 encoding of v.
func EncodeULEB128(v uint64) []byte {
	return AppendULEB128(make([]byte, 0, 10), v)
}

// DecodeULEB128 decodes an unsigned LEB128 value from the start of b.
// It returns the value and the number of bytes consumed.
func DecodeULEB128(b []byte) (uint64, int, error) {
	var v uint64
	var shift uint
	for i, c := range b {
		if shift == 63 && c > 1 {
			return 0, 0, ErrOverflow
		}
		v |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			return v, i + 1, nil
		}
		shift += 7
		if shift > 63 {
			return 0, 0, ErrOverflow
		}
	}
	return 0, 0, ErrTruncated
}

// AppendULEB128Big appends the unsigned LEB128 encoding of an arbitrary
// precision value to dst.
func AppendULEB128Big(dst []byte, v *big.Int) ([]byte, error) {
	if v.Sign() < 0 {
		return dst, ErrNegative
	}
	if v.IsUint64() {
		return AppendULEB128(dst, v.Uint64()), nil
	}
	rest := new(big.Int).Set(v)
	mask := big.NewInt(0x7f)
	low := new(big.Int)
	for {
		b := byte(low.And(rest, mask).Uint64())
		rest.Rsh(rest, 7)
		if rest.Sign() != 0 {
			dst = append(dst, b|0x80)
			continue
		}
		return append(dst, b), nil
	}
}

// EncodeULEB128Big returns the unsigned LEB128 encoding of v.
func EncodeULEB128Big(v *big.Int) ([]byte, error) {
	return AppendULEB128Big(nil, v)
}

// DecodeULEB128Big decodes an unsigned LEB128 value of at most maxLen bytes
// from the start of b. A maxLen of zero disables the bound.
func DecodeULEB128Big(b []byte, maxLen int) (*big.Int, int, error) {
	v := new(big.Int)
	chunk := new(big.Int)
	var shift uint
	for i, c := range b {
		if maxLen > 0 && i >= maxLen {
			return nil, 0, fmt.Errorf("%w: more than %d bytes", ErrOverflow, maxLen)
		}
		chunk.SetUint64(uint64(c & 0x7f))
		v.Or(v, chunk.Lsh(chunk, shift))
		if c&0x80 == 0 {
			return v, i + 1, nil
		}
		shift += 7
	}
	return nil, 0, ErrTruncated
}
