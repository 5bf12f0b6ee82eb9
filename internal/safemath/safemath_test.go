package safemath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd(t *testing.T) {
	tests := []struct {
		name   string
		a, b   int64
		want   int64
		wantOk bool
	}{
		{"small positives", 1, 2, 3, true},
		{"positive at boundary", math.MaxInt64 - 1, 1, math.MaxInt64, true},
		{"negative at boundary", math.MinInt64 + 1, -1, math.MinInt64, true},
		{"mixed signs", math.MaxInt64, math.MinInt64 + 1, 0, true},
		{"overflow max plus one", math.MaxInt64, 1, 0, false},
		{"overflow min minus one", math.MinInt64, -1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Add(tt.a, tt.b)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	u, ok := Add[uint64](math.MaxUint64, 1)
	assert.False(t, ok)
	assert.Zero(t, u)

	u8, ok := Add[uint8](200, 55)
	assert.True(t, ok)
	assert.Equal(t, uint8(255), u8)
}

func TestSub(t *testing.T) {
	tests := []struct {
		name   string
		a, b   int32
		want   int32
		wantOk bool
	}{
		{"simple", 10, 3, 7, true},
		{"to negative", 3, 10, -7, true},
		{"min boundary", math.MinInt32 + 1, 1, math.MinInt32, true},
		{"overflow below min", math.MinInt32, 1, 0, false},
		{"overflow above max", math.MaxInt32, -1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Sub(tt.a, tt.b)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := Sub[uint64](1, 2)
	assert.False(t, ok)
	v, ok := Sub[uint64](2, 2)
	assert.True(t, ok)
	assert.Zero(t, v)
}

func TestMul(t *testing.T) {
	tests := []struct {
		name   string
		a, b   int64
		want   int64
		wantOk bool
	}{
		{"zero", 0, math.MinInt64, 0, true},
		{"mixed signs", 7, -8, -56, true},
		{"sqrt max approx", 3037000499, 3037000499, 9223372030926249001, true},
		{"min times one", math.MinInt64, 1, math.MinInt64, true},
		{"neg one times min", -1, math.MinInt64, 0, false},
		{"min times neg one", math.MinInt64, -1, 0, false},
		{"overflow sqrt max plus one", 3037000500, 3037000500, 0, false},
		{"overflow min times two", math.MinInt64, 2, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Mul(tt.a, tt.b)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := Mul[uint64](1<<32, 1<<32)
	assert.False(t, ok)

	// All ones is the largest unsigned value, not a -1 sentinel.
	u8, ok := Mul[uint8](math.MaxUint8, 1)
	assert.True(t, ok)
	assert.Equal(t, uint8(math.MaxUint8), u8)
	_, ok = Mul[uint8](math.MaxUint8, 2)
	assert.False(t, ok)
	i8, ok := Mul[int8](-1, math.MaxInt8)
	assert.True(t, ok)
	assert.Equal(t, int8(-math.MaxInt8), i8)
	_, ok = Mul[int8](-1, math.MinInt8)
	assert.False(t, ok)
	v, ok := Mul[uint64](1<<31, 1<<32)
	assert.True(t, ok)
	assert.Equal(t, uint64(1)<<63, v)
}

func TestAddSub64(t *testing.T) {
	_, ok := Add64(math.MaxUint64, 1)
	assert.False(t, ok)
	_, ok = Sub64(0, 1)
	assert.False(t, ok)
	v, ok := Add32(1, 2)
	assert.True(t, ok)
	assert.Equal(t, uint32(3), v)
	_, ok = Sub32(1, 2)
	assert.False(t, ok)
}

func TestMulDiv64(t *testing.T) {
	got, err := MulDiv64(math.MaxUint64, math.MaxUint64, math.MaxUint64)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), got)

	got, err = MulDiv64(60, 8000, 10000)
	require.NoError(t, err)
	assert.Equal(t, uint64(48), got)

	// Floors
	got, err = MulDiv64(10, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), got)

	_, err = MulDiv64(1, 1, 0)
	assert.ErrorIs(t, err, ErrDivisionByZero)

	_, err = MulDiv64(math.MaxUint64, 2, 1)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestSum(t *testing.T) {
	total, err := Sum(1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), total)

	_, err = Sum(math.MaxUint64, 1)
	assert.ErrorIs(t, err, ErrOverflow)
}
