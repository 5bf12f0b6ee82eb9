package safemath

import (
	"errors"
	"math/bits"
	"unsafe"
)

var (
	ErrOverflow       = errors.New("number overflow")
	ErrDivisionByZero = errors.New("division by zero")
)

// Integer is any built-in integer type.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

func signed[T Integer]() bool {
	var zero T
	return ^zero < zero
}

func minValue[T Integer]() T {
	if !signed[T]() {
		return 0
	}
	var zero T
	return T(1) << (unsafe.Sizeof(zero)*8 - 1)
}

// Add returns a+b and false if the result overflowed.
func Add[T Integer](a, b T) (T, bool) {
	r := a + b
	if signed[T]() {
		if (b > 0 && r < a) || (b < 0 && r > a) {
			return 0, false
		}
		return r, true
	}
	if r < a {
		return 0, false
	}
	return r, true
}

// Sub returns a-b and false if the result overflowed.
func Sub[T Integer](a, b T) (T, bool) {
	r := a - b
	if signed[T]() {
		if (b > 0 && r > a) || (b < 0 && r < a) {
			return 0, false
		}
		return r, true
	}
	if b > a {
		return 0, false
	}
	return r, true
}

// Mul returns a*b and false if the result overflowed.
func Mul[T Integer](a, b T) (T, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if signed[T]() {
		m, negOne := minValue[T](), ^T(0)
		if (a == negOne && b == m) || (b == negOne && a == m) {
			return 0, false
		}
	}
	r := a * b
	if r/b != a {
		return 0, false
	}
	return r, true
}

func Add32(a, b uint32) (uint32, bool) {
	v, carry := bits.Add32(a, b, 0)
	return v, carry == 0
}

func Add64(a, b uint64) (uint64, bool) {
	v, carry := bits.Add64(a, b, 0)
	return v, carry == 0
}

func Sub32(a, b uint32) (uint32, bool) {
	v, borrow := bits.Sub32(a, b, 0)
	return v, borrow == 0
}

func Sub64(a, b uint64) (uint64, bool) {
	v, borrow := bits.Sub64(a, b, 0)
	return v, borrow == 0
}

// MulDiv64 returns floor(a*b/c) computed over a 128-bit intermediate.
func MulDiv64(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, ErrDivisionByZero
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		return 0, ErrOverflow
	}
	q, _ := bits.Div64(hi, lo, c)
	return q, nil
}

// Sum adds values and fails on the first overflow.
func Sum(values ...uint64) (uint64, error) {
	var total uint64
	for _, v := range values {
		var ok bool
		if total, ok = Add64(total, v); !ok {
			return 0, ErrOverflow
		}
	}
	return total, nil
}
