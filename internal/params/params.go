// Package params holds the protocol constants fixed at genesis. Values are
// integers in the smallest currency unit, basis points (10000 = 100%) or
// reputation fixed-point (ReputationPrecision = 100%).
package params

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const (
	// BpsBase is the total basis points representing 100%.
	BpsBase uint64 = 10_000

	// ReputationPrecision is the fixed-point denominator for reputation.
	ReputationPrecision uint64 = 1_000_000
)

const (
	DefaultTotalFeeBps    uint64 = 2_000 // 20% of the contested pool
	DefaultWinnerShareBps uint64 = 8_000 // 80% of the contested pool
	DefaultJurorShareBps  uint64 = 9_500 // of the fee
	DefaultPlatformBps    uint64 = 500   // of the fee

	DefaultMinJurorStake     uint64 = 10_000_000
	DefaultMinChallengerBond uint64 = 10_000_000
	DefaultMinDefenderStake  uint64 = 10_000_000

	DefaultClaimGracePeriod    = 30 * 24 * time.Hour
	DefaultTreasurySweepPeriod = 90 * 24 * time.Hour
	DefaultStakeUnlockBuffer   = 7 * 24 * time.Hour
	DefaultMinVotingPeriod     = 24 * time.Hour
	DefaultMaxVotingPeriod     = 30 * 24 * time.Hour

	DefaultBotRewardBps uint64 = 100 // 1% of a treasury sweep

	DefaultInitialReputation  uint64 = 500_000 // 50%
	DefaultMaxReputation      uint64 = ReputationPrecision
	DefaultReputationGainRate uint64 = 20_000 // +2% per correct vote
	DefaultReputationLossRate uint64 = 40_000 // -4% per incorrect vote
)

// Params are the genesis constants of a protocol instance.
type Params struct {
	TotalFeeBps      uint64 `json:"total_fee_bps"`
	WinnerShareBps   uint64 `json:"winner_share_bps"`
	JurorShareBps    uint64 `json:"juror_share_bps"`
	PlatformShareBps uint64 `json:"platform_share_bps"`

	MinJurorStake     uint64 `json:"min_juror_stake"`
	MinChallengerBond uint64 `json:"min_challenger_bond"`
	MinDefenderStake  uint64 `json:"min_defender_stake"`

	ClaimGracePeriod    time.Duration `json:"claim_grace_period"`
	TreasurySweepPeriod time.Duration `json:"treasury_sweep_period"`
	StakeUnlockBuffer   time.Duration `json:"stake_unlock_buffer"`
	MinVotingPeriod     time.Duration `json:"min_voting_period"`
	MaxVotingPeriod     time.Duration `json:"max_voting_period"`

	BotRewardBps uint64 `json:"bot_reward_bps"`

	InitialReputation  uint64 `json:"initial_reputation"`
	MaxReputation      uint64 `json:"max_reputation"`
	ReputationGainRate uint64 `json:"reputation_gain_rate"`
	ReputationLossRate uint64 `json:"reputation_loss_rate"`
}

// Default returns the mainnet parameter set.
func Default() Params {
	return Params{
		TotalFeeBps:         DefaultTotalFeeBps,
		WinnerShareBps:      DefaultWinnerShareBps,
		JurorShareBps:       DefaultJurorShareBps,
		PlatformShareBps:    DefaultPlatformBps,
		MinJurorStake:       DefaultMinJurorStake,
		MinChallengerBond:   DefaultMinChallengerBond,
		MinDefenderStake:    DefaultMinDefenderStake,
		ClaimGracePeriod:    DefaultClaimGracePeriod,
		TreasurySweepPeriod: DefaultTreasurySweepPeriod,
		StakeUnlockBuffer:   DefaultStakeUnlockBuffer,
		MinVotingPeriod:     DefaultMinVotingPeriod,
		MaxVotingPeriod:     DefaultMaxVotingPeriod,
		BotRewardBps:        DefaultBotRewardBps,
		InitialReputation:   DefaultInitialReputation,
		MaxReputation:       DefaultMaxReputation,
		ReputationGainRate:  DefaultReputationGainRate,
		ReputationLossRate:  DefaultReputationLossRate,
	}
}

// Validate checks internal consistency of the parameters.
func (p Params) Validate() error {
	if p.TotalFeeBps+p.WinnerShareBps != BpsBase {
		return fmt.Errorf("total fee bps (%d) and winner share bps (%d) must sum to %d",
			p.TotalFeeBps, p.WinnerShareBps, BpsBase)
	}
	if p.JurorShareBps+p.PlatformShareBps != BpsBase {
		return fmt.Errorf("juror share bps (%d) and platform share bps (%d) must sum to %d",
			p.JurorShareBps, p.PlatformShareBps, BpsBase)
	}
	if p.BotRewardBps > BpsBase {
		return fmt.Errorf("bot reward bps must be at most %d, got %d", BpsBase, p.BotRewardBps)
	}
	if p.MinJurorStake == 0 || p.MinChallengerBond == 0 || p.MinDefenderStake == 0 {
		return fmt.Errorf("minimum stakes must be positive")
	}
	if p.MinVotingPeriod < time.Second {
		return fmt.Errorf("min voting period must be at least one second")
	}
	if p.MaxVotingPeriod < p.MinVotingPeriod {
		return fmt.Errorf("max voting period %s is below min voting period %s", p.MaxVotingPeriod, p.MinVotingPeriod)
	}
	if p.ClaimGracePeriod <= 0 || p.StakeUnlockBuffer < 0 {
		return fmt.Errorf("claim grace period must be positive and unlock buffer non-negative")
	}
	if p.TreasurySweepPeriod < p.ClaimGracePeriod {
		return fmt.Errorf("treasury sweep period %s must not precede claim grace period %s",
			p.TreasurySweepPeriod, p.ClaimGracePeriod)
	}
	if p.MaxReputation == 0 || p.InitialReputation > p.MaxReputation {
		return fmt.Errorf("initial reputation %d must be within (0, %d]", p.InitialReputation, p.MaxReputation)
	}
	return nil
}

// Load reads a JSON parameter file. Fields missing from the file keep their
// default values.
func Load(path string) (Params, error) {
	p := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("read params: %w", err)
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return Params{}, fmt.Errorf("decode params: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, fmt.Errorf("invalid params: %w", err)
	}
	return p, nil
}
