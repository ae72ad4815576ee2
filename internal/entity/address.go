package entity

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// AddressLength is the byte length of ledger addresses and object ids.
const AddressLength = 32

var ErrInvalidAddress = errors.New("invalid address")

// Address is a normalized ledger account address: "0x" followed by 64 lowercase hex digits.
type Address string

// ObjectID identifies a ledger object. It shares the address format.
type ObjectID string

func ParseAddress(raw string) (Address, error) {
	normalized, err := normalizeHex(raw)
	if err != nil {
		return "", err
	}

	return Address(normalized), nil
}

func ParseObjectID(raw string) (ObjectID, error) {
	normalized, err := normalizeHex(raw)
	if err != nil {
		return "", err
	}

	return ObjectID(normalized), nil
}

func AddressFromBytes(b [AddressLength]byte) Address {
	return Address("0x" + hex.EncodeToString(b[:]))
}

func (that Address) Bytes() ([AddressLength]byte, error) {
	return decodeHex(string(that))
}

func (that Address) String() string {
	return string(that)
}

// Short renders the address as 0x1234…cdef for terminal output.
func (that Address) Short() string {
	return shorten(string(that))
}

func (that ObjectID) Bytes() ([AddressLength]byte, error) {
	return decodeHex(string(that))
}

func (that ObjectID) String() string {
	return string(that)
}

func (that ObjectID) Short() string {
	return shorten(string(that))
}

func normalizeHex(raw string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.TrimPrefix(value, "0x")

	if value == "" || len(value) > AddressLength*2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}

	if _, err := hex.DecodeString(padHex(value)); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}

	return "0x" + padHex(value), nil
}

func padHex(value string) string {
	return strings.Repeat("0", AddressLength*2-len(value)) + value
}

func decodeHex(value string) ([AddressLength]byte, error) {
	var out [AddressLength]byte

	normalized, err := normalizeHex(value)
	if err != nil {
		return out, err
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(normalized, "0x"))
	if err != nil {
		return out, fmt.Errorf("%w: %q", ErrInvalidAddress, value)
	}

	copy(out[:], raw)

	return out, nil
}

func shorten(value string) string {
	if len(value) <= 12 {
		return value
	}

	return value[:6] + "…" + value[len(value)-4:]
}
