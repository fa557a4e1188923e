// Package rlp implements the length-prefixed list encoding used by the
// TransferBatch event. Event value slots only carry scalars and byte strings,
// so token id and amount lists are flattened with this codec before emission.
// The encoding is the RLP subset needed for lists of unsigned integers and is
// part of the public event schema: consumers decode the two byte fields back
// into lists with DecodeUintList.
package rlp

import (
	"errors"
	"fmt"
)

const (
	shortStringOffset = 0x80
	longStringOffset  = 0xb7
	shortListOffset   = 0xc0
	longListOffset    = 0xf7
	shortLengthMax    = 55
)

// ErrMalformed is returned when decoding input that is not a well-formed
// encoded list of unsigned integers.
var ErrMalformed = errors.New("rlp: malformed input")

// EncodeUintList encodes values as a list of minimal big-endian byte strings.
func EncodeUintList(values []uint64) []byte {
	var payload []byte
	for _, v := range values {
		payload = append(payload, encodeUint(v)...)
	}
	return append(encodeLength(len(payload), shortListOffset, longListOffset), payload...)
}

// DecodeUintList is the inverse of EncodeUintList. A decoded empty list is
// returned as a non-nil zero-length slice.
func DecodeUintList(data []byte) ([]uint64, error) {
	payload, rest, err := decodeLength(data, shortListOffset, longListOffset)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after list", ErrMalformed, len(rest))
	}

	values := []uint64{}
	for len(payload) > 0 {
		item, remaining, err := decodeLength(payload, shortStringOffset, longStringOffset)
		if err != nil {
			return nil, err
		}
		v, err := decodeUint(item)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		payload = remaining
	}
	return values, nil
}

// encodeUint encodes v as a minimal big-endian byte string item.
// Zero encodes as the empty string (0x80).
func encodeUint(v uint64) []byte {
	if v == 0 {
		return []byte{shortStringOffset}
	}
	if v < shortStringOffset {
		return []byte{byte(v)}
	}
	b := bigEndianMinimal(v)
	return append([]byte{shortStringOffset + byte(len(b))}, b...)
}

func decodeUint(item []byte) (uint64, error) {
	if len(item) > 8 {
		return 0, fmt.Errorf("%w: integer item longer than 8 bytes", ErrMalformed)
	}
	if len(item) > 1 && item[0] == 0 {
		return 0, fmt.Errorf("%w: non-minimal integer encoding", ErrMalformed)
	}
	var v uint64
	for _, b := range item {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// encodeLength builds the prefix for a payload of n bytes.
func encodeLength(n int, shortOffset, longOffset byte) []byte {
	if n <= shortLengthMax {
		return []byte{shortOffset + byte(n)}
	}
	lenBytes := bigEndianMinimal(uint64(n))
	return append([]byte{longOffset + byte(len(lenBytes))}, lenBytes...)
}

// bigEndianMinimal returns v as big-endian bytes with leading zeros stripped.
func bigEndianMinimal(v uint64) []byte {
	var buf [8]byte
	n := 0
	for i := 7; i >= 0; i-- {
		b := byte(v >> (8 * i))
		if n == 0 && b == 0 {
			continue
		}
		buf[n] = b
		n++
	}
	return buf[:n]
}

// decodeLength consumes one prefixed item and returns its payload and the
// remaining input. For string offsets a single byte below 0x80 decodes as
// itself.
func decodeLength(data []byte, shortOffset, longOffset byte) (payload, rest []byte, err error) {
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}

	prefix := data[0]
	switch {
	case shortOffset == shortStringOffset && prefix < shortStringOffset:
		return data[:1], data[1:], nil

	case prefix >= shortOffset && prefix <= shortOffset+shortLengthMax:
		n := int(prefix - shortOffset)
		if len(data)-1 < n {
			return nil, nil, fmt.Errorf("%w: truncated payload", ErrMalformed)
		}
		return data[1 : 1+n], data[1+n:], nil

	case prefix > longOffset && prefix <= longOffset+8:
		lenLen := int(prefix - longOffset)
		if len(data)-1 < lenLen {
			return nil, nil, fmt.Errorf("%w: truncated length", ErrMalformed)
		}
		n, err := decodeUint(data[1 : 1+lenLen])
		if err != nil {
			return nil, nil, err
		}
		if n <= shortLengthMax {
			return nil, nil, fmt.Errorf("%w: non-minimal length encoding", ErrMalformed)
		}
		if uint64(len(data)-1-lenLen) < n {
			return nil, nil, fmt.Errorf("%w: truncated payload", ErrMalformed)
		}
		return data[1+lenLen : 1+lenLen+int(n)], data[1+lenLen+int(n):], nil

	default:
		return nil, nil, fmt.Errorf("%w: unexpected prefix 0x%02x", ErrMalformed, prefix)
	}
}
