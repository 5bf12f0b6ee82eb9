// Package rewards computes how the contested pool of a resolved round is
// split and what each participant may claim from it. Every amount is
// rounded down; rounding dust of the split goes to the platform fee and
// rounding dust of claims stays in escrow until the round is swept or
// settled.
package rewards

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/eigerco/tribunal/internal/params"
	"github.com/eigerco/tribunal/internal/safemath"
	"github.com/eigerco/tribunal/internal/state"
)

var ErrUnresolved = errors.New("round has no outcome")

// Split is the division of a contested pool.
type Split struct {
	Winner   uint64 `json:"winner_pool"`
	Juror    uint64 `json:"juror_pool"`
	Platform uint64 `json:"platform_fee"`
}

// Total returns the sum of the three parts.
func (s Split) Total() (uint64, error) {
	return safemath.Sum(s.Winner, s.Juror, s.Platform)
}

// ResolutionSplit divides contested = total stake + bond at risk.
//
// With votes cast the winner pool is WinnerShareBps of the pool and the juror
// pool is JurorShareBps of the fee; the platform takes the rest. Without
// votes nobody earns the juror share, so the platform keeps only its own
// share of the fee and everything else is refunded through the winner pool.
// A lost restoration forfeits the winner pool to the platform.
func ResolutionSplit(p params.Params, contested uint64, outcome state.Outcome, restore bool) (Split, error) {
	var s Split
	switch outcome {
	case state.OutcomeChallengerWins, state.OutcomeDefenderWins:
		winner, err := safemath.MulDiv64(contested, p.WinnerShareBps, params.BpsBase)
		if err != nil {
			return Split{}, err
		}
		juror, err := mulDiv(contested, p.TotalFeeBps*p.JurorShareBps, params.BpsBase*params.BpsBase)
		if err != nil {
			return Split{}, err
		}
		s = Split{Winner: winner, Juror: juror}
	case state.OutcomeNoParticipation:
		platform, err := mulDiv(contested, p.TotalFeeBps*p.PlatformShareBps, params.BpsBase*params.BpsBase)
		if err != nil {
			return Split{}, err
		}
		s = Split{Winner: contested - platform, Platform: platform}
		return s, nil
	case state.OutcomeNone:
		return Split{}, ErrUnresolved
	default:
		panic(fmt.Sprintf("unknown outcome %d", outcome))
	}

	if restore && outcome == state.OutcomeDefenderWins {
		s.Winner = 0
	}
	paid, err := safemath.Sum(s.Winner, s.Juror)
	if err != nil {
		return Split{}, err
	}
	if paid > contested {
		return Split{}, safemath.ErrOverflow
	}
	s.Platform = contested - paid
	return s, nil
}

// JurorReward is power/totalVoteWeight of the juror pool.
func JurorReward(r state.RoundResult, power uint64) (uint64, error) {
	if r.TotalVoteWeight == 0 {
		return 0, nil
	}
	return safemath.MulDiv64(power, r.JurorPool, r.TotalVoteWeight)
}

// ChallengerReward is the share of the winner pool owed to a challenger (or
// restorer) who staked stake in the round.
func ChallengerReward(r state.RoundResult, stake uint64) (uint64, error) {
	switch r.Outcome {
	case state.OutcomeChallengerWins:
		if r.TotalStake == 0 {
			return 0, safemath.ErrDivisionByZero
		}
		return safemath.MulDiv64(stake, r.WinnerPool, r.TotalStake)
	case state.OutcomeNoParticipation:
		contested, ok := safemath.Add64(r.TotalStake, r.BondAtRisk)
		if !ok {
			return 0, safemath.ErrOverflow
		}
		if contested == 0 {
			return 0, safemath.ErrDivisionByZero
		}
		return safemath.MulDiv64(stake, r.WinnerPool, contested)
	case state.OutcomeDefenderWins:
		return 0, nil
	case state.OutcomeNone:
		return 0, ErrUnresolved
	default:
		panic(fmt.Sprintf("unknown outcome %d", r.Outcome))
	}
}

// DefenderShare is what a defender may claim from a round.
type DefenderShare struct {
	// Reward is the defender's part of the winner pool.
	Reward uint64 `json:"reward"`
	// Safe is the part of the bond that was not at risk. It is only paid by
	// the claim when the challenger won; otherwise it was carried into the
	// next round at resolution.
	Safe uint64 `json:"safe"`
}

// Total returns the amount the claim pays out.
func (d DefenderShare) Total() (uint64, error) {
	return safemath.Sum(d.Reward, d.Safe)
}

// DefenderReward splits bond into at-risk and safe parts in proportion
// bondAtRisk : safeBond and computes what the claim pays.
func DefenderReward(r state.RoundResult, bond uint64) (DefenderShare, error) {
	totalBond, ok := safemath.Add64(r.BondAtRisk, r.SafeBond)
	if !ok {
		return DefenderShare{}, safemath.ErrOverflow
	}
	if totalBond == 0 {
		return DefenderShare{}, nil
	}

	switch r.Outcome {
	case state.OutcomeChallengerWins:
		safe, err := safemath.MulDiv64(bond, r.SafeBond, totalBond)
		if err != nil {
			return DefenderShare{}, err
		}
		return DefenderShare{Safe: safe}, nil
	case state.OutcomeDefenderWins:
		reward, err := safemath.MulDiv64(bond, r.WinnerPool, totalBond)
		if err != nil {
			return DefenderShare{}, err
		}
		return DefenderShare{Reward: reward}, nil
	case state.OutcomeNoParticipation:
		contested, ok := safemath.Add64(r.TotalStake, r.BondAtRisk)
		if !ok {
			return DefenderShare{}, safemath.ErrOverflow
		}
		num := sdkmath.NewIntFromUint64(bond).
			Mul(sdkmath.NewIntFromUint64(r.BondAtRisk)).
			Mul(sdkmath.NewIntFromUint64(r.WinnerPool))
		den := sdkmath.NewIntFromUint64(totalBond).Mul(sdkmath.NewIntFromUint64(contested))
		reward, err := quo(num, den)
		if err != nil {
			return DefenderShare{}, err
		}
		return DefenderShare{Reward: reward}, nil
	case state.OutcomeNone:
		return DefenderShare{}, ErrUnresolved
	default:
		panic(fmt.Sprintf("unknown outcome %d", r.Outcome))
	}
}

// SafeShares divides the safe bond among defenders in proportion to their
// bonds. The rounding remainder goes to the first defender, so the shares
// always sum to safe.
func SafeShares(bonds []uint64, safe uint64) ([]uint64, error) {
	total, err := safemath.Sum(bonds...)
	if err != nil {
		return nil, err
	}
	if safe > total {
		return nil, fmt.Errorf("safe bond %d exceeds total bond %d", safe, total)
	}
	shares := make([]uint64, len(bonds))
	if safe == 0 {
		return shares, nil
	}

	var assigned uint64
	for i, b := range bonds {
		shares[i], err = safemath.MulDiv64(b, safe, total)
		if err != nil {
			return nil, err
		}
		assigned += shares[i]
	}
	shares[0] += safe - assigned
	return shares, nil
}

func mulDiv(a, b, c uint64) (uint64, error) {
	num := sdkmath.NewIntFromUint64(a).Mul(sdkmath.NewIntFromUint64(b))
	return quo(num, sdkmath.NewIntFromUint64(c))
}

func quo(num, den sdkmath.Int) (uint64, error) {
	if den.IsZero() {
		return 0, safemath.ErrDivisionByZero
	}
	v := num.Quo(den)
	if !v.IsUint64() {
		return 0, safemath.ErrOverflow
	}
	return v.Uint64(), nil
}
