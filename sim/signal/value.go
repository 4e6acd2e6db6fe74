// Package signal defines the multi-bit signal value carried by nets and ports.
//
// A Value is immutable and comparable: the bit pattern lives in a string, so
// two ports holding "the same" value never alias mutable state.
package signal

import (
	"fmt"
	"math/big"
	"strings"
)

// HighZ is the text rendered for an unknown / high-impedance value in every base.
const HighZ = "HiZ"

// Value is a fixed-width bit vector or the unknown/high-impedance marker.
// The zero Value is unknown with width 0.
type Value struct {
	width   int
	bits    string // big-endian, byteLen(width) bytes, unused high bits cleared
	defined bool
}

func byteLen(width int) int { return (width + 7) / 8 }

func checkWidth(width int) {
	if width < 1 {
		panic(fmt.Sprintf("signal: invalid bit width %d", width))
	}
}

// New returns a width-bit value holding v truncated to width bits.
func New(width int, v uint64) Value {
	return FromBig(width, new(big.Int).SetUint64(v))
}

// FromBig returns a width-bit value holding x modulo 2^width. Negative inputs
// therefore yield their two's-complement pattern.
func FromBig(width int, x *big.Int) Value {
	checkWidth(width)
	m := new(big.Int).Lsh(big.NewInt(1), uint(width))
	r := new(big.Int).Mod(x, m)
	buf := make([]byte, byteLen(width))
	r.FillBytes(buf)
	return Value{width: width, bits: string(buf), defined: true}
}

// Bool returns a 1-bit value.
func Bool(b bool) Value {
	if b {
		return New(1, 1)
	}
	return New(1, 0)
}

// Unknown returns the high-impedance value for the given width.
func Unknown(width int) Value {
	return Value{width: width}
}

// Parse reads text in the given base. The HighZ sentinel parses to Unknown.
func Parse(width int, text string, base int) (Value, error) {
	if width < 1 {
		return Value{}, fmt.Errorf("invalid bit width %d", width)
	}
	text = strings.TrimSpace(text)
	if strings.EqualFold(text, HighZ) {
		return Unknown(width), nil
	}
	x, ok := new(big.Int).SetString(strings.ReplaceAll(text, "_", ""), base)
	if !ok {
		return Value{}, fmt.Errorf("cannot parse %q as base %d", text, base)
	}
	if x.Sign() >= 0 && x.BitLen() > width {
		return Value{}, fmt.Errorf("%q does not fit in %d bits", text, width)
	}
	if lowest := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), uint(width-1))); x.Cmp(lowest) < 0 {
		return Value{}, fmt.Errorf("%q is below %s, the lowest %d-bit signed value", text, lowest, width)
	}
	return FromBig(width, x), nil
}

// Width returns the bit width.
func (v Value) Width() int { return v.width }

// IsDefined reports whether v is a driven 0/1 pattern (not high-impedance).
func (v Value) IsDefined() bool { return v.defined }

// Equal reports value-wise equality. Unknown is distinct from every defined
// value and equal to any other unknown.
func (v Value) Equal(o Value) bool {
	if !v.defined || !o.defined {
		return v.defined == o.defined
	}
	return v.width == o.width && v.bits == o.bits
}

// Bit returns bit i (0 = least significant). ok is false for unknown values
// or out of range indexes.
func (v Value) Bit(i int) (bit bool, ok bool) {
	if !v.defined || i < 0 || i >= v.width {
		return false, false
	}
	b := v.bits[len(v.bits)-1-i/8]
	return b>>(uint(i)%8)&1 == 1, true
}

// Big returns the unsigned value as a new big.Int, or nil when unknown.
func (v Value) Big() *big.Int {
	if !v.defined {
		return nil
	}
	return new(big.Int).SetBytes([]byte(v.bits))
}

// Uint64 returns the low 64 bits. Unknown values return 0.
func (v Value) Uint64() uint64 {
	if !v.defined {
		return 0
	}
	return v.Big().Uint64()
}

// Signed returns the two's-complement interpretation for the value's width,
// or nil when unknown.
func (v Value) Signed() *big.Int {
	x := v.Big()
	if x == nil {
		return nil
	}
	if x.Bit(v.width-1) == 1 {
		x.Sub(x, new(big.Int).Lsh(big.NewInt(1), uint(v.width)))
	}
	return x
}

// Text renders v in base 2..36. Bases 2, 8 and 16 are zero padded to the
// number of digits the width needs.
func (v Value) Text(base int) string {
	if !v.defined {
		return HighZ
	}
	s := v.Big().Text(base)
	var digits int
	switch base {
	case 2:
		digits = v.width
	case 8:
		digits = (v.width + 2) / 3
	case 16:
		digits = (v.width + 3) / 4
	}
	if len(s) < digits {
		s = strings.Repeat("0", digits-len(s)) + s
	}
	return s
}

// SignedText renders the two's-complement signed decimal value.
func (v Value) SignedText() string {
	if !v.defined {
		return HighZ
	}
	return v.Signed().String()
}

// Format renders "<base text> (<unsigned>, <signed>)" when withDecimal is set,
// or just the base text. Unknown values always render as HighZ.
func (v Value) Format(base int, withDecimal bool) string {
	if !v.defined {
		return HighZ
	}
	if !withDecimal {
		return v.Text(base)
	}
	return fmt.Sprintf("%s (%s, %s)", v.Text(base), v.Text(10), v.SignedText())
}

func (v Value) String() string {
	return v.Text(2)
}

type byteOp func(a, b byte) byte

func (v Value) combine(o Value, op byteOp) Value {
	if !v.defined || !o.defined || v.width != o.width {
		return Unknown(max(v.width, o.width))
	}
	buf := make([]byte, len(v.bits))
	for i := range buf {
		buf[i] = op(v.bits[i], o.bits[i])
	}
	return Value{width: v.width, bits: string(buf), defined: true}
}

// And returns the bitwise AND; unknown if either operand is unknown.
func (v Value) And(o Value) Value {
	return v.combine(o, func(a, b byte) byte { return a & b })
}

// Or returns the bitwise OR; unknown if either operand is unknown.
func (v Value) Or(o Value) Value {
	return v.combine(o, func(a, b byte) byte { return a | b })
}

// Xor returns the bitwise XOR; unknown if either operand is unknown.
func (v Value) Xor(o Value) Value {
	return v.combine(o, func(a, b byte) byte { return a ^ b })
}

// Not returns the bitwise complement; unknown stays unknown.
func (v Value) Not() Value {
	if !v.defined {
		return v
	}
	buf := []byte(v.bits)
	for i := range buf {
		buf[i] = ^buf[i]
	}
	if r := v.width % 8; r != 0 {
		buf[0] &= byte(1)<<uint(r) - 1
	}
	return Value{width: v.width, bits: string(buf), defined: true}
}
