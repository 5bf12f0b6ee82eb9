package rewards

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/tribunal/internal/params"
	"github.com/eigerco/tribunal/internal/safemath"
	"github.com/eigerco/tribunal/internal/state"
)

func TestResolutionSplit(t *testing.T) {
	p := params.Default()
	tests := []struct {
		name      string
		contested uint64
		outcome   state.Outcome
		restore   bool
		want      Split
	}{
		{"challenger wins small pool", 60, state.OutcomeChallengerWins, false, Split{Winner: 48, Juror: 11, Platform: 1}},
		{"defender wins", 1_000_000, state.OutcomeDefenderWins, false, Split{Winner: 800_000, Juror: 190_000, Platform: 10_000}},
		{"no participation", 8_000, state.OutcomeNoParticipation, false, Split{Winner: 7_920, Platform: 80}},
		{"restore lost", 1_000_000, state.OutcomeDefenderWins, true, Split{Juror: 190_000, Platform: 810_000}},
		{"restore won", 1_000_000, state.OutcomeChallengerWins, true, Split{Winner: 800_000, Juror: 190_000, Platform: 10_000}},
		{"empty pool", 0, state.OutcomeDefenderWins, false, Split{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolutionSplit(p, tt.contested, tt.outcome, tt.restore)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ResolutionSplit(p, 10, state.OutcomeNone, false)
	assert.ErrorIs(t, err, ErrUnresolved)
}

func TestResolutionSplit_Conservation(t *testing.T) {
	p := params.Default()
	outcomes := []state.Outcome{state.OutcomeChallengerWins, state.OutcomeDefenderWins, state.OutcomeNoParticipation}
	for _, outcome := range outcomes {
		for _, restore := range []bool{false, true} {
			for contested := uint64(0); contested < 5_000; contested += 37 {
				s, err := ResolutionSplit(p, contested, outcome, restore)
				require.NoError(t, err)
				total, err := s.Total()
				require.NoError(t, err)
				require.Equal(t, contested, total, "%s restore=%v contested=%d", outcome, restore, contested)
			}
		}
	}
}

func TestJurorReward(t *testing.T) {
	r := state.RoundResult{Outcome: state.OutcomeDefenderWins, JurorPool: 1_000, TotalVoteWeight: 3}
	got, err := JurorReward(r, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(333), got)

	r.TotalVoteWeight = 0
	got, err = JurorReward(r, 1)
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestChallengerReward(t *testing.T) {
	r := state.RoundResult{Outcome: state.OutcomeChallengerWins, TotalStake: 30, BondAtRisk: 30, WinnerPool: 48}
	got, err := ChallengerReward(r, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(16), got)

	r.Outcome = state.OutcomeDefenderWins
	got, err = ChallengerReward(r, 10)
	require.NoError(t, err)
	assert.Zero(t, got)

	r.Outcome = state.OutcomeChallengerWins
	r.TotalStake = 0
	_, err = ChallengerReward(r, 10)
	assert.ErrorIs(t, err, safemath.ErrDivisionByZero)
}

func TestDefenderReward(t *testing.T) {
	base := state.RoundResult{TotalStake: 30, BondAtRisk: 30, SafeBond: 20, WinnerPool: 48}

	won := base
	won.Outcome = state.OutcomeDefenderWins
	got, err := DefenderReward(won, 25)
	require.NoError(t, err)
	assert.Equal(t, DefenderShare{Reward: 24}, got)

	lost := base
	lost.Outcome = state.OutcomeChallengerWins
	got, err = DefenderReward(lost, 25)
	require.NoError(t, err)
	assert.Equal(t, DefenderShare{Safe: 10}, got)

	empty := state.RoundResult{Outcome: state.OutcomeDefenderWins, WinnerPool: 10}
	got, err = DefenderReward(empty, 0)
	require.NoError(t, err)
	assert.Zero(t, got)
}

// No votes: both sides are refunded from the winner pool over the whole
// contested pool and nothing but rounding dust is left over.
func TestNoParticipation_SidesSumToContested(t *testing.T) {
	p := params.Default()
	stakes := []uint64{1_000, 2_000}
	bonds := []uint64{4_000, 3_000}
	r := state.RoundResult{Outcome: state.OutcomeNoParticipation, TotalStake: 3_000, BondAtRisk: 5_000, SafeBond: 2_000}
	contested := r.TotalStake + r.BondAtRisk

	split, err := ResolutionSplit(p, contested, r.Outcome, false)
	require.NoError(t, err)
	r.WinnerPool, r.JurorPool, r.PlatformFee = split.Winner, split.Juror, split.Platform

	var paid uint64
	for _, s := range stakes {
		v, err := ChallengerReward(r, s)
		require.NoError(t, err)
		paid += v
	}
	for _, b := range bonds {
		v, err := DefenderReward(r, b)
		require.NoError(t, err)
		assert.Zero(t, v.Safe)
		paid += v.Reward
	}
	assert.Equal(t, uint64(7_919), paid)
	dust := split.Winner - paid
	assert.Less(t, dust, uint64(len(stakes)+len(bonds)))
	assert.Equal(t, contested, paid+dust+split.Juror+split.Platform)
}

func TestSafeShares(t *testing.T) {
	shares, err := SafeShares([]uint64{3, 3, 3}, 4)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 1, 1}, shares)

	shares, err = SafeShares([]uint64{10, 0}, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 0}, shares)

	_, err = SafeShares([]uint64{1}, 2)
	assert.Error(t, err)
}

func TestRatio(t *testing.T) {
	assert.Equal(t, "0.333333", Ratio(1, 3).String())
	assert.True(t, Ratio(5, 0).IsZero())
	assert.Equal(t, "20", Percent(2_000).String())
}
