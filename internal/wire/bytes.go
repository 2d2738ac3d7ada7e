package wire

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// Writer accumulates a binary payload.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Bytes returns the accumulated payload.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the payload length.
func (w *Writer) Len() int {
	return len(w.buf)
}

// U8 appends a single byte.
func (w *Writer) U8(v uint8) {
	w.buf = append(w.buf, v)
}

// U16LE appends a little-endian uint16.
func (w *Writer) U16LE(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// U64LE appends a little-endian uint64.
func (w *Writer) U64LE(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// U16BE appends a big-endian uint16.
func (w *Writer) U16BE(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

// U32BE appends a big-endian uint32.
func (w *Writer) U32BE(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

// U64BE appends a big-endian uint64.
func (w *Writer) U64BE(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

// Raw appends b unchanged.
func (w *Writer) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

// ULEB128 appends an unsigned LEB128 value.
func (w *Writer) ULEB128(v *big.Int) error {
	var err error
	w.buf, err = AppendULEB128Big(w.buf, v)
	return err
}

// Reader consumes a binary payload front to back.
type Reader struct {
	buf []byte
	off int
}

// NewReader returns a Reader over b.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// U8 reads a single byte.
func (r *Reader) U8() (uint8, error) {
	if r.Remaining() < 1 {
		return 0, fmt.Errorf("%w: reading u8 at offset %d", ErrTruncated, r.off)
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

// U16LE reads a little-endian uint16.
func (r *Reader) U16LE() (uint16, error) {
	if r.Remaining() < 2 {
		return 0, fmt.Errorf("%w: reading u16 at offset %d", ErrTruncated, r.off)
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

// U64LE reads a little-endian uint64.
func (r *Reader) U64LE() (uint64, error) {
	if r.Remaining() < 8 {
		return 0, fmt.Errorf("%w: reading u64 at offset %d", ErrTruncated, r.off)
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

// Bytes reads n bytes. The returned slice is a copy.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, fmt.Errorf("%w: reading %d bytes at offset %d", ErrTruncated, n, r.off)
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:r.off+n])
	r.off += n
	return out, nil
}

// Skip advances past n bytes.
func (r *Reader) Skip(n int) error {
	if n < 0 || r.Remaining() < n {
		return fmt.Errorf("%w: skipping %d bytes at offset %d", ErrTruncated, n, r.off)
	}
	r.off += n
	return nil
}

// ULEB128 reads an unsigned LEB128 value bounded to MaxLEB128Len bytes.
func (r *Reader) ULEB128() (*big.Int, error) {
	v, n, err := DecodeULEB128Big(r.buf[r.off:], MaxLEB128Len)
	if err != nil {
		return nil, fmt.Errorf("reading leb128 at offset %d: %w", r.off, err)
	}
	r.off += n
	return v, nil
}

// HexToBytes decodes a hex string, tolerating an optional 0x prefix.
func HexToBytes(s string) ([]byte, error) {
	clean := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if clean == "" {
		return []byte{}, nil
	}
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("decoding hex %q: %w", s, err)
	}
	return b, nil
}

// BytesToHex encodes b as lowercase hex without a prefix.
func BytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}
