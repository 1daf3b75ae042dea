// Package vai implements the bus functional model of the valid/accept
// handshake used by the AES core.
package vai

import (
	"fmt"

	"lukechampine.com/uint128"
)

// Mode selects the direction of the cipher.
type Mode uint8

// The two modes, encoded as on the mode_i wire.
const (
	Encrypt Mode = 0
	Decrypt Mode = 1
)

func (m Mode) String() string {
	switch m {
	case Encrypt:
		return "Encrypt"
	case Decrypt:
		return "Decrypt"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// An Operation is one request to the core.
type Operation struct {
	Mode Mode
	Key  uint128.Uint128
	Data uint128.Uint128
}

func (op Operation) String() string {
	return fmt.Sprintf("%s data 0x%s key 0x%s",
		op.Mode, Hex(op.Data), Hex(op.Key))
}

// Hex prints a 128 bit value as 32 hex digits.
func Hex(v uint128.Uint128) string {
	return fmt.Sprintf("%016x%016x", v.Hi, v.Lo)
}

// ParseHex parses up to 32 hex digits, with or without a 0x prefix.
func ParseHex(s string) (uint128.Uint128, error) {
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}

	if s == "" || len(s) > 32 {
		return uint128.Zero, fmt.Errorf("invalid 128 bit hex value %q", s)
	}

	var hi, lo uint64

	for _, c := range s {
		var d uint64

		switch {
		case c >= '0' && c <= '9':
			d = uint64(c - '0')
		case c >= 'a' && c <= 'f':
			d = uint64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = uint64(c-'A') + 10
		default:
			return uint128.Zero, fmt.Errorf("invalid hex digit %q in %q", c, s)
		}

		hi = hi<<4 | lo>>60
		lo = lo<<4 | d
	}

	return uint128.New(lo, hi), nil
}
