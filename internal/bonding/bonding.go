// Package bonding implements the challenger minimum-bond curve and juror
// voting power. Both are pure functions over fixed-point reputation.
package bonding

import (
	"math/big"

	sdkmath "cosmossdk.io/math"

	"github.com/eigerco/tribunal/internal/params"
	"github.com/eigerco/tribunal/internal/safemath"
)

const (
	// SqrtHalf is sqrt(0.5) at params.ReputationPrecision.
	SqrtHalf uint64 = 707_100

	// UnprovenMultiplier scales the base bond for zero-reputation challengers.
	UnprovenMultiplier uint64 = 10

	floorNumerator   uint64 = 7
	floorDenominator uint64 = 10
)

// MinBond returns the minimum stake a challenger with the given reputation
// must post: baseBond*sqrt(0.5)/sqrt(reputation) with reputation taken as a
// fraction of params.ReputationPrecision, never below 70% of baseBond.
func MinBond(reputation, baseBond uint64) (uint64, error) {
	if reputation == 0 {
		v, ok := safemath.Mul(baseBond, UnprovenMultiplier)
		if !ok {
			return 0, safemath.ErrOverflow
		}
		return v, nil
	}

	floor, err := safemath.MulDiv64(baseBond, floorNumerator, floorDenominator)
	if err != nil {
		return 0, err
	}

	// sqrt(rep/P) scaled by P is sqrt(rep*P).
	scaledRep := sdkmath.NewIntFromUint64(reputation).Mul(sdkmath.NewIntFromUint64(params.ReputationPrecision))
	root := Sqrt(scaledRep)
	bond := sdkmath.NewIntFromUint64(baseBond).Mul(sdkmath.NewIntFromUint64(SqrtHalf)).Quo(root)
	if !bond.IsUint64() {
		return 0, safemath.ErrOverflow
	}
	return max(bond.Uint64(), floor), nil
}

// Sqrt returns floor(sqrt(n)) using Newton's method. Negative input yields zero.
func Sqrt(n sdkmath.Int) sdkmath.Int {
	if !n.IsPositive() {
		return sdkmath.ZeroInt()
	}
	if n.LT(sdkmath.NewInt(4)) {
		return sdkmath.OneInt()
	}

	// 2^ceil(bits/2) is never below the root, so the iteration decreases
	// monotonically until it reaches the floor.
	bits := n.BigInt().BitLen()
	x := sdkmath.NewIntFromBigInt(new(big.Int).Lsh(big.NewInt(1), uint((bits+1)/2)))
	for {
		next := x.Add(n.Quo(x)).QuoRaw(2)
		if next.GTE(x) {
			return x
		}
		x = next
	}
}

// VotingPower weights a juror's stake by reputation:
// stake + stake*reputation/ReputationPrecision.
func VotingPower(stake, reputation uint64) (uint64, error) {
	bonus, err := safemath.MulDiv64(stake, reputation, params.ReputationPrecision)
	if err != nil {
		return 0, err
	}
	power, ok := safemath.Add64(stake, bonus)
	if !ok {
		return 0, safemath.ErrOverflow
	}
	return power, nil
}
