package protocol_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eigerco/tribunal/internal/protocol"
	"github.com/eigerco/tribunal/internal/state"
	"github.com/eigerco/tribunal/internal/testutils"
)

const (
	day    = 24 * time.Hour
	subjID = state.SubjectID("listing-1")

	alice state.Address = "alice"
	bob   state.Address = "bob"
	carol state.Address = "carol"
	dan   state.Address = "dan"
	erin  state.Address = "erin"
)

func newFixture(t *testing.T) *testutils.Fixture {
	t.Helper()
	return testutils.NewFixture(t, testutils.TestParams(), map[state.Address]uint64{
		alice: 1000,
		bob:   1000,
		carol: 1000,
		dan:   1000,
		erin:  1000,
	})
}

func subjectRef(signer state.Address) protocol.SubjectRef {
	return protocol.SubjectRef{Signed: protocol.Signed{Signer: signer}, SubjectID: subjID}
}

func roundRef(signer state.Address, round uint64) protocol.RoundRef {
	return protocol.RoundRef{SubjectRef: subjectRef(signer), Round: round}
}

func createSubject(f *testutils.Fixture, match bool, bond uint64) {
	f.Do(&protocol.MsgCreateSubject{
		SubjectRef:   subjectRef(alice),
		MatchMode:    match,
		VotingPeriod: day,
		InitialBond:  bond,
		Source:       state.FundDirect,
	})
}

func dispute(f *testutils.Fixture, challenger state.Address, stake uint64) {
	f.Do(&protocol.MsgCreateDispute{
		SubjectRef:  subjectRef(challenger),
		Stake:       stake,
		DisputeType: state.DisputeFraud,
		Source:      state.FundDirect,
	})
}

func jurorPool(f *testutils.Fixture, juror state.Address, amount uint64) {
	f.Do(&protocol.MsgCreatePool{Signed: protocol.Signed{Signer: juror}, Role: state.RoleJuror, Amount: amount})
}

func vote(f *testutils.Fixture, juror state.Address, choice state.VoteChoice, stake uint64) {
	f.Do(&protocol.MsgVoteOnDispute{SubjectRef: subjectRef(juror), Choice: choice, Stake: stake})
}

func resolve(f *testutils.Fixture) {
	f.Do(&protocol.MsgResolveDispute{SubjectRef: subjectRef(erin)})
}

// deliver returns the error of msg without failing the test.
func deliver(f *testutils.Fixture, msg protocol.Msg) error {
	return f.Engine.Deliver(f.Ctx, msg)
}

// challengerWins sets up a match mode subject bonded with 50, challenged
// with 30 and voted invalid by carol, then resolves it.
//
// contested 60: winner 48, jurors 11, platform 1; safe bond 20.
func challengerWins(t *testing.T) *testutils.Fixture {
	t.Helper()
	f := newFixture(t)
	jurorPool(f, carol, 100)
	createSubject(f, true, 50)
	dispute(f, bob, 30)
	require.Equal(t, uint64(30), f.Dispute(subjID).BondAtRisk)
	vote(f, carol, state.VoteForChallenger, 20)
	f.Advance(day)
	resolve(f)
	f.CheckInvariants()
	return f
}
