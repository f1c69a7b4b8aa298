// Package word implements the EVM's native 256-bit value and the
// arithmetic, comparison, and bitwise operations every opcode builds on.
//
// The underlying representation is holiman/uint256.Int, the fixed-width
// 256-bit integer type used across the go-ethereum lineage. This package
// exists to give those operations the EVM's own vocabulary (SDiv, Slt,
// SignExtend, Shl/Shr/Sar, ...) and to pin down the handful of edge cases
// spec'd explicitly by the Yellow Paper that are easy to get subtly wrong:
// division/modulus by zero, MIN_I256 / -1, signextend(k>=31), byte(i>=32),
// and shifts by >=256 bits.
package word

import "github.com/holiman/uint256"

// Word is a 256-bit unsigned integer with wraparound (modulo 2^256)
// arithmetic. Signed operations interpret the most significant bit as a
// two's-complement sign bit.
type Word uint256.Int

// Zero is the additive identity.
func Zero() Word { return Word{} }

// One is the multiplicative identity.
func One() Word {
	var w Word
	u := (*uint256.Int)(&w)
	u.SetOne()
	return w
}

// FromUint64 builds a Word from a native uint64.
func FromUint64(v uint64) Word {
	var w Word
	(*uint256.Int)(&w).SetUint64(v)
	return w
}

// FromBytes interprets b as a big-endian integer, as if left-padded with
// zeros to 32 bytes (extra leading bytes beyond 32 are ignored, matching
// uint256.SetBytes).
func FromBytes(b []byte) Word {
	var w Word
	(*uint256.Int)(&w).SetBytes(b)
	return w
}

// Bytes32 returns the big-endian 32-byte encoding of w.
func (w Word) Bytes32() [32]byte {
	u := (*uint256.Int)(&w)
	return u.Bytes32()
}

// Bytes20 returns the low 20 bytes of the big-endian encoding, used when a
// Word is reinterpreted as an address.
func (w Word) Bytes20() [20]byte {
	u := (*uint256.Int)(&w)
	return u.Bytes20()
}

// Uint64 returns the low 64 bits of w, silently discarding anything above.
func (w Word) Uint64() uint64 {
	return (*uint256.Int)(&w).Uint64()
}

// Uint64WithOverflow is like Uint64 but reports whether bits above the low
// 64 were discarded.
func (w Word) Uint64WithOverflow() (uint64, bool) {
	return (*uint256.Int)(&w).Uint64WithOverflow()
}

// String renders w in decimal, mainly for tracing/debugging.
func (w Word) String() string {
	return (*uint256.Int)(&w).Dec()
}

func (w Word) u() *uint256.Int { return (*uint256.Int)(&w) }

// IsZeroVal reports whether w is the zero word, as a native bool. Kept
// distinct from the free function IsZero, which returns the EVM's
// boolean-as-Word (0 or 1) for ISZERO's own stack result.
func (w Word) IsZeroVal() bool { return w.u().IsZero() }

func binOp(a, b Word, f func(dst, x, y *uint256.Int) *uint256.Int) Word {
	var dst Word
	f((*uint256.Int)(&dst), a.u(), b.u())
	return dst
}

// Add returns a+b mod 2^256.
func Add(a, b Word) Word { return binOp(a, b, (*uint256.Int).Add) }

// Sub returns a-b mod 2^256.
func Sub(a, b Word) Word { return binOp(a, b, (*uint256.Int).Sub) }

// Mul returns a*b mod 2^256.
func Mul(a, b Word) Word { return binOp(a, b, (*uint256.Int).Mul) }

// Div returns the unsigned quotient a/b, or zero if b is zero (EVM
// convention: division is total, never faults).
func Div(a, b Word) Word { return binOp(a, b, (*uint256.Int).Div) }

// Mod returns the unsigned remainder a%b, or zero if b is zero.
func Mod(a, b Word) Word { return binOp(a, b, (*uint256.Int).Mod) }

// SDiv returns the signed (two's complement) quotient a/b. Division by
// zero yields zero. MIN_I256 / -1 yields MIN_I256 (the one case where the
// mathematical quotient overflows back into range by wraparound).
func SDiv(a, b Word) Word { return binOp(a, b, (*uint256.Int).SDiv) }

// SMod returns the signed remainder a%b, or zero if b is zero.
func SMod(a, b Word) Word { return binOp(a, b, (*uint256.Int).SMod) }

// AddMod returns (a+b) mod n, or zero if n is zero. The addition is
// carried out at full precision (not reduced mod 2^256 first).
func AddMod(a, b, n Word) Word {
	var dst Word
	if n.u().IsZero() {
		return dst
	}
	(*uint256.Int)(&dst).AddMod(a.u(), b.u(), n.u())
	return dst
}

// MulMod returns (a*b) mod n, or zero if n is zero, at full precision.
func MulMod(a, b, n Word) Word {
	var dst Word
	if n.u().IsZero() {
		return dst
	}
	(*uint256.Int)(&dst).MulMod(a.u(), b.u(), n.u())
	return dst
}

// Exp returns base**exponent mod 2^256. exp(0,0) == 1 and exp(x,0) == 1
// for all x, including zero; exp(0,y) == 0 for y>0.
func Exp(base, exponent Word) Word {
	var dst Word
	(*uint256.Int)(&dst).Exp(base.u(), exponent.u())
	return dst
}

// SignExtend treats x as a (k+1)-byte signed integer and sign-extends it
// to the full 256 bits. k>=31 is the identity (x is already full width).
func SignExtend(k, x Word) Word {
	if !k.u().IsUint64() || k.u().Uint64() >= 31 {
		return x
	}
	var dst Word
	(*uint256.Int)(&dst).ExtendSign(x.u(), k.u())
	return dst
}

// Lt, Gt, Slt, Sgt, Eq, IsZero produce the boolean-as-Word (0 or 1)
// results the EVM comparison opcodes push.

func boolWord(b bool) Word {
	if b {
		return One()
	}
	return Zero()
}

func Lt(a, b Word) Word  { return boolWord(a.u().Lt(b.u())) }
func Gt(a, b Word) Word  { return boolWord(a.u().Gt(b.u())) }
func Slt(a, b Word) Word { return boolWord(a.u().Slt(b.u())) }
func Sgt(a, b Word) Word { return boolWord(a.u().Sgt(b.u())) }
func Eq(a, b Word) Word  { return boolWord(a.u().Eq(b.u())) }
func IsZero(a Word) Word { return boolWord(a.u().IsZero()) }

// And, Or, Xor, Not are the usual bitwise operations over all 256 bits.
func And(a, b Word) Word { return binOp(a, b, (*uint256.Int).And) }
func Or(a, b Word) Word  { return binOp(a, b, (*uint256.Int).Or) }
func Xor(a, b Word) Word { return binOp(a, b, (*uint256.Int).Xor) }

func Not(a Word) Word {
	var dst Word
	(*uint256.Int)(&dst).Not(a.u())
	return dst
}

// Byte returns the i-th byte of x counting from the most significant end
// (byte 0 is the top byte). Returns zero if i>=32.
func Byte(i, x Word) Word {
	dst := x
	(*uint256.Int)(&dst).Byte(i.u())
	return dst
}

// Shl returns value shifted left by shift bits, zero if shift>=256.
func Shl(shift, value Word) Word {
	if !shift.u().LtUint64(256) {
		return Zero()
	}
	var dst Word
	(*uint256.Int)(&dst).Lsh(value.u(), uint(shift.Uint64()))
	return dst
}

// Shr returns value logically shifted right by shift bits (zero-filled),
// zero if shift>=256.
func Shr(shift, value Word) Word {
	if !shift.u().LtUint64(256) {
		return Zero()
	}
	var dst Word
	(*uint256.Int)(&dst).Rsh(value.u(), uint(shift.Uint64()))
	return dst
}

// Sar returns value arithmetically shifted right by shift bits, sign
// filled. A shift >=256 collapses to all-zero (non-negative value) or
// all-one (negative value, i.e. -1).
func Sar(shift, value Word) Word {
	if !shift.u().LtUint64(256) {
		if value.u().Sign() >= 0 {
			return Zero()
		}
		var dst Word
		(*uint256.Int)(&dst).SetAllOne()
		return dst
	}
	var dst Word
	(*uint256.Int)(&dst).SRsh(value.u(), uint(shift.Uint64()))
	return dst
}
