package protocol_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/tribunal/internal/protocol"
	"github.com/eigerco/tribunal/internal/state"
)

func TestDecodeMsg(t *testing.T) {
	msg, err := protocol.DecodeMsg("create_subject", json.RawMessage(`{
		"signer": "alice",
		"subject_id": "listing-1",
		"match_mode": true,
		"voting_period": 86400000000000,
		"initial_bond": 50,
		"source": "pool"
	}`))
	require.NoError(t, err)
	assert.Equal(t, &protocol.MsgCreateSubject{
		SubjectRef:   subjectRef(alice),
		MatchMode:    true,
		VotingPeriod: day,
		InitialBond:  50,
		Source:       state.FundPool,
	}, msg)
	assert.Equal(t, alice, msg.GetSigner())

	msg, err = protocol.DecodeMsg("vote_on_restore", json.RawMessage(`{"signer":"carol","subject_id":"listing-1","choice":"against_restoration","stake":20}`))
	require.NoError(t, err)
	assert.Equal(t, state.AgainstRestoration, msg.(*protocol.MsgVoteOnRestore).Choice)

	msg, err = protocol.DecodeMsg("close_record", json.RawMessage(`{"signer":"bob","subject_id":"listing-1","round":3,"role":"challenger"}`))
	require.NoError(t, err)
	assert.Equal(t, &protocol.MsgCloseRecord{RoundRef: roundRef(bob, 3), Role: state.RoleChallenger}, msg)

	_, err = protocol.DecodeMsg("mint", json.RawMessage(`{}`))
	require.ErrorIs(t, err, protocol.ErrUnknownMsg)
	_, err = protocol.DecodeMsg("deposit", json.RawMessage(`{"role":"treasurer"}`))
	require.ErrorIs(t, err, protocol.ErrMalformedMsg)
	_, err = protocol.DecodeMsg("deposit", json.RawMessage(`[`))
	require.ErrorIs(t, err, protocol.ErrMalformedMsg)
}

func TestDeliver(t *testing.T) {
	f := newFixture(t)

	msg, err := protocol.DecodeMsg("deposit", json.RawMessage(`{"signer":"dan","role":"juror","amount":25}`))
	require.NoError(t, err)
	require.NoError(t, f.Engine.Deliver(f.Ctx, msg))
	assert.Equal(t, uint64(25), f.Pool(state.RoleJuror, dan).Balance)

	// Values are not routed, only the pointers DecodeMsg returns.
	err = f.Engine.Deliver(f.Ctx, protocol.MsgDeposit{Signed: protocol.Signed{Signer: dan}, Role: state.RoleJuror, Amount: 1})
	require.ErrorIs(t, err, protocol.ErrUnknownMsg)
	assert.Equal(t, uint64(25), f.Pool(state.RoleJuror, dan).Balance)
}

func TestValidateBasic(t *testing.T) {
	signed := protocol.Signed{Signer: alice}
	tests := []struct {
		name string
		msg  protocol.Msg
		err  error
	}{
		{"empty signer", &protocol.MsgDeposit{Role: state.RoleJuror, Amount: 1}, protocol.ErrInvalidIdentifier},
		{"signer with spaces", &protocol.MsgDeposit{Signed: protocol.Signed{Signer: "al ice"}, Role: state.RoleJuror, Amount: 1}, protocol.ErrInvalidIdentifier},
		{"zero deposit", &protocol.MsgDeposit{Signed: signed, Role: state.RoleJuror}, protocol.ErrInvalidAmount},
		{"unknown role", &protocol.MsgWithdraw{Signed: signed, Role: 7, Amount: 1}, protocol.ErrInvalidRole},
		{"empty treasury", &protocol.MsgUpdateTreasury{Signed: signed}, protocol.ErrInvalidIdentifier},
		{"empty subject", &protocol.MsgAddBond{SubjectRef: protocol.SubjectRef{Signed: signed}, Amount: 1}, protocol.ErrInvalidIdentifier},
		{"long subject", &protocol.MsgResolveDispute{SubjectRef: protocol.SubjectRef{Signed: signed, SubjectID: state.SubjectID(strings.Repeat("s", state.MaxIdentifierLength+1))}}, protocol.ErrInvalidIdentifier},
		{"zero voting period", &protocol.MsgCreateSubject{SubjectRef: subjectRef(alice)}, protocol.ErrInvalidVotingPeriod},
		{"unknown source", &protocol.MsgAddBond{SubjectRef: subjectRef(alice), Amount: 1, Source: 2}, protocol.ErrInvalidFundingSource},
		{"zero bond withdrawal", &protocol.MsgWithdrawBond{SubjectRef: subjectRef(alice)}, protocol.ErrInvalidAmount},
		{"unknown dispute type", &protocol.MsgCreateDispute{SubjectRef: subjectRef(bob), Stake: 10, DisputeType: 8}, protocol.ErrInvalidDisputeType},
		{"zero stake", &protocol.MsgJoinChallengers{SubjectRef: subjectRef(bob)}, protocol.ErrInvalidAmount},
		{"long rationale", &protocol.MsgVoteOnDispute{SubjectRef: subjectRef(carol), Stake: 10, Rationale: strings.Repeat("r", protocol.MaxDetailsLength+1)}, protocol.ErrDetailsTooLong},
		{"unknown vote", &protocol.MsgVoteOnDispute{SubjectRef: subjectRef(carol), Stake: 10, Choice: 2}, protocol.ErrInvalidVoteChoice},
		{"unknown restore vote", &protocol.MsgVoteOnRestore{SubjectRef: subjectRef(carol), Stake: 10, Choice: 2}, protocol.ErrInvalidVoteChoice},
		{"zero top up", &protocol.MsgAddToVote{SubjectRef: subjectRef(carol)}, protocol.ErrInvalidAmount},
		{"zero restore stake", &protocol.MsgSubmitRestore{SubjectRef: subjectRef(erin)}, protocol.ErrInvalidAmount},
		{"claim without subject", &protocol.MsgClaimJuror{RoundRef: protocol.RoundRef{SubjectRef: protocol.SubjectRef{Signed: signed}}}, protocol.ErrInvalidIdentifier},
		{"close unknown role", &protocol.MsgCloseRecord{RoundRef: roundRef(alice, 0), Role: 3}, protocol.ErrInvalidRole},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.ValidateBasic()
			require.ErrorIs(t, err, tc.err)
			assert.Equal(t, protocol.KindValidation, protocol.KindOf(err))

			// Operations reject what ValidateBasic rejects before touching state.
			f := newFixture(t)
			require.ErrorIs(t, f.Engine.Deliver(f.Ctx, tc.msg), tc.err)
		})
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		err  error
		kind protocol.Kind
		code string
	}{
		{protocol.ErrBelowMinimum, protocol.KindValidation, "amount_below_minimum"},
		{protocol.ErrDisputeExists, protocol.KindState, "dispute_already_pending"},
		{protocol.ErrStakeLocked, protocol.KindState, "stake_still_locked"},
		{protocol.ErrNotCreator, protocol.KindAuthorization, "not_subject_creator"},
		{protocol.ErrArithmeticOverflow, protocol.KindArithmetic, "arithmetic_overflow"},
		{protocol.ErrNotWinningSide, protocol.KindEligibility, "not_on_winning_side"},
	}
	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			wrapped := fmt.Errorf("op: %w", tc.err)
			assert.Equal(t, tc.kind, protocol.KindOf(wrapped))
			assert.Equal(t, tc.code, protocol.CodeOf(wrapped))
			assert.Equal(t, tc.code, tc.err.Error())
		})
	}

	plain := errors.New("disk full")
	assert.Zero(t, protocol.KindOf(plain))
	assert.Empty(t, protocol.CodeOf(plain))
	assert.Equal(t, "eligibility", protocol.KindEligibility.String())
	assert.Equal(t, "unknown", protocol.Kind(0).String())
}
