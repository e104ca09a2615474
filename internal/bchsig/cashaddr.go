package bchsig

import (
	"errors"
	"fmt"
	"strings"
)

// CashAddr codec for Bitcoin Cash P2PKH/P2SH addresses, per the cashaddr
// specification (base32 payload with a BCH-polynomial checksum).

// MainnetPrefix is the human-readable prefix of mainnet cash addresses.
const MainnetPrefix = "bitcoincash"

const charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// Address type bits in the cashaddr version byte.
const (
	typeP2PKH = 0
	typeP2SH  = 1
)

var (
	// ErrInvalidCashAddr indicates a malformed cash address.
	ErrInvalidCashAddr = errors.New("invalid cash address")

	charsetRev [128]int8
)

//nolint:gochecknoinits // Builds the base32 reverse lookup table once
func init() {
	for i := range charsetRev {
		charsetRev[i] = -1
	}
	for i, c := range charset {
		charsetRev[c] = int8(i)
	}
}

// polymod is the cashaddr BCH checksum function.
func polymod(values []byte) uint64 {
	c := uint64(1)
	for _, d := range values {
		c0 := byte(c >> 35)
		c = ((c & 0x07ffffffff) << 5) ^ uint64(d)
		if c0&0x01 != 0 {
			c ^= 0x98f2bc8e61
		}
		if c0&0x02 != 0 {
			c ^= 0x79b76d99e2
		}
		if c0&0x04 != 0 {
			c ^= 0xf33e5fb3c4
		}
		if c0&0x08 != 0 {
			c ^= 0xae2eabe2a8
		}
		if c0&0x10 != 0 {
			c ^= 0x1e4f43e470
		}
	}
	return c ^ 1
}

// expandPrefix maps the prefix to its checksum input form: the low five bits
// of each character followed by a zero separator.
func expandPrefix(prefix string) []byte {
	out := make([]byte, len(prefix)+1)
	for i := 0; i < len(prefix); i++ {
		out[i] = prefix[i] & 0x1f
	}
	out[len(prefix)] = 0
	return out
}

// convertBits regroups the data from frombits-sized groups to tobits-sized
// groups. With pad, leftover bits are padded with zeros; without, leftover
// bits must be zero.
func convertBits(data []byte, frombits, tobits uint, pad bool) ([]byte, error) {
	acc := uint32(0)
	bits := uint(0)
	maxv := uint32(1<<tobits) - 1
	out := make([]byte, 0, len(data)*int(frombits)/int(tobits)+1)

	for _, v := range data {
		if uint32(v)>>frombits != 0 {
			return nil, ErrInvalidCashAddr
		}
		acc = acc<<frombits | uint32(v)
		bits += frombits
		for bits >= tobits {
			bits -= tobits
			out = append(out, byte(acc>>bits&maxv))
		}
	}

	if pad {
		if bits > 0 {
			out = append(out, byte(acc<<(tobits-bits)&maxv))
		}
	} else if bits >= frombits || acc<<(tobits-bits)&maxv != 0 {
		return nil, ErrInvalidCashAddr
	}
	return out, nil
}

// DecodeCashAddr decodes a mainnet cash address, with or without the
// "bitcoincash:" prefix, returning the 20-byte pubkey hash. Only P2PKH
// addresses are accepted; payers sign with a single key.
func DecodeCashAddr(addr string) ([]byte, error) {
	addr = strings.TrimSpace(addr)
	if addr != strings.ToLower(addr) && addr != strings.ToUpper(addr) {
		return nil, fmt.Errorf("%w: mixed case", ErrInvalidCashAddr)
	}
	addr = strings.ToLower(addr)

	prefix := MainnetPrefix
	if i := strings.IndexByte(addr, ':'); i >= 0 {
		prefix = addr[:i]
		addr = addr[i+1:]
	}
	if prefix != MainnetPrefix {
		return nil, fmt.Errorf("%w: prefix %q", ErrInvalidCashAddr, prefix)
	}
	if len(addr) < 8 {
		return nil, ErrInvalidCashAddr
	}

	values := make([]byte, len(addr))
	for i := 0; i < len(addr); i++ {
		c := addr[i]
		if c >= 128 || charsetRev[c] < 0 {
			return nil, fmt.Errorf("%w: character %q", ErrInvalidCashAddr, c)
		}
		values[i] = byte(charsetRev[c])
	}

	if polymod(append(expandPrefix(prefix), values...)) != 0 {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidCashAddr)
	}

	payload, err := convertBits(values[:len(values)-8], 5, 8, false)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, ErrInvalidCashAddr
	}

	version := payload[0]
	hash := payload[1:]
	if version>>3&0x0f != typeP2PKH {
		return nil, fmt.Errorf("%w: not a P2PKH address", ErrInvalidCashAddr)
	}
	if len(hash) != 20 {
		return nil, fmt.Errorf("%w: hash length %d", ErrInvalidCashAddr, len(hash))
	}
	return hash, nil
}

// EncodeCashAddr encodes a 20-byte pubkey hash as a mainnet P2PKH cash
// address including the "bitcoincash:" prefix.
func EncodeCashAddr(pkHash []byte) (string, error) {
	if len(pkHash) != 20 {
		return "", fmt.Errorf("%w: hash length %d", ErrInvalidCashAddr, len(pkHash))
	}

	payload := make([]byte, 0, 21)
	payload = append(payload, typeP2PKH<<3) // version byte: P2PKH, 160-bit hash
	payload = append(payload, pkHash...)

	values, err := convertBits(payload, 8, 5, true)
	if err != nil {
		return "", err
	}

	checksumInput := append(expandPrefix(MainnetPrefix), values...)
	checksumInput = append(checksumInput, make([]byte, 8)...)
	mod := polymod(checksumInput)

	var sb strings.Builder
	sb.WriteString(MainnetPrefix)
	sb.WriteByte(':')
	for _, v := range values {
		sb.WriteByte(charset[v])
	}
	for i := 0; i < 8; i++ {
		sb.WriteByte(charset[mod>>uint(5*(7-i))&0x1f])
	}
	return sb.String(), nil
}
