// Package bcs writes the Binary Canonical Serialization used by the ledger for
// transaction data and signatures. Only the encoding side is implemented.
package bcs

import (
	"bytes"
	"encoding/binary"
)

type Encoder struct {
	buf bytes.Buffer
}

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (that *Encoder) U8(v uint8) *Encoder {
	that.buf.WriteByte(v)
	return that
}

func (that *Encoder) U16(v uint16) *Encoder {
	var raw [2]byte
	binary.LittleEndian.PutUint16(raw[:], v)
	that.buf.Write(raw[:])

	return that
}

func (that *Encoder) U64(v uint64) *Encoder {
	var raw [8]byte
	binary.LittleEndian.PutUint64(raw[:], v)
	that.buf.Write(raw[:])

	return that
}

func (that *Encoder) Bool(v bool) *Encoder {
	if v {
		return that.U8(1)
	}

	return that.U8(0)
}

// ULEB128 writes lengths and enum variant indexes.
func (that *Encoder) ULEB128(v uint64) *Encoder {
	for {
		b := byte(v & 0x7f)
		v >>= 7

		if v == 0 {
			that.buf.WriteByte(b)
			return that
		}

		that.buf.WriteByte(b | 0x80)
	}
}

// Variant writes an enum discriminant.
func (that *Encoder) Variant(index int) *Encoder {
	return that.ULEB128(uint64(index)) //nolint:gosec // variant indexes are small
}

// Length writes a sequence length prefix.
func (that *Encoder) Length(n int) *Encoder {
	return that.ULEB128(uint64(n)) //nolint:gosec // lengths are non-negative
}

// Fixed writes a fixed-size array without length prefix.
func (that *Encoder) Fixed(raw []byte) *Encoder {
	that.buf.Write(raw)
	return that
}

// Bytes writes a length-prefixed byte vector.
func (that *Encoder) Bytes(raw []byte) *Encoder {
	that.Length(len(raw))
	that.buf.Write(raw)

	return that
}

func (that *Encoder) String(s string) *Encoder {
	return that.Bytes([]byte(s))
}

func (that *Encoder) Result() []byte {
	out := make([]byte, that.buf.Len())
	copy(out, that.buf.Bytes())

	return out
}
