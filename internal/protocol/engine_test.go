package protocol_test

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/tribunal/internal/clock"
	"github.com/eigerco/tribunal/internal/protocol"
	"github.com/eigerco/tribunal/internal/state"
	"github.com/eigerco/tribunal/internal/store"
	"github.com/eigerco/tribunal/internal/testutils"
	"github.com/eigerco/tribunal/pkg/db/pebble"
)

func TestGenesis(t *testing.T) {
	ctx := context.Background()
	engine, err := protocol.New(testutils.NewStore(t), protocol.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	_, err = engine.Params()
	require.ErrorIs(t, err, protocol.ErrNotInitialized)
	err = engine.Deposit(ctx, protocol.MsgDeposit{Signed: protocol.Signed{Signer: alice}, Role: state.RoleJuror, Amount: 1})
	require.ErrorIs(t, err, protocol.ErrNotInitialized)

	g := protocol.Genesis{
		Params:    testutils.TestParams(),
		Authority: testutils.Authority,
		Treasury:  testutils.Treasury,
		Accounts:  []state.Account{{Owner: alice, Balance: 10}, {Owner: alice, Balance: 5}},
	}
	require.ErrorIs(t, engine.InitGenesis(ctx, g), protocol.ErrInvalidIdentifier)

	g.Accounts = g.Accounts[:1]
	g.Params.WinnerShareBps = 0
	require.ErrorIs(t, engine.InitGenesis(ctx, g), protocol.ErrInvalidParams)

	g.Params = testutils.TestParams()
	require.NoError(t, engine.InitGenesis(ctx, g))
	require.ErrorIs(t, engine.InitGenesis(ctx, g), protocol.ErrAlreadyInitialized)

	p, err := engine.Params()
	require.NoError(t, err)
	assert.Equal(t, testutils.TestParams(), p)

	cfg, err := engine.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, state.ProtocolConfig{Authority: testutils.Authority, Treasury: testutils.Treasury}, cfg)

	a, err := engine.Account(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), a.Balance)
	a, err = engine.Account(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, a.Balance)
}

func TestEngine_ReopenLoadsState(t *testing.T) {
	dir := t.TempDir()
	open := func() (*store.Store, *protocol.Engine) {
		kv, err := pebble.NewKVStore(pebble.WithPath(dir))
		require.NoError(t, err)
		st, err := store.New(kv, 16, zerolog.Nop())
		require.NoError(t, err)
		engine, err := protocol.New(st, protocol.WithClock(clock.NewManual(testutils.GenesisTime)), protocol.WithLogger(zerolog.Nop()))
		require.NoError(t, err)
		return st, engine
	}

	ctx := context.Background()
	st, engine := open()
	require.NoError(t, engine.InitGenesis(ctx, protocol.Genesis{
		Params:    testutils.TestParams(),
		Authority: testutils.Authority,
		Treasury:  testutils.Treasury,
		Accounts:  []state.Account{{Owner: alice, Balance: 100}},
	}))
	require.NoError(t, engine.CreateSubject(ctx, protocol.MsgCreateSubject{
		SubjectRef:   subjectRef(alice),
		VotingPeriod: day,
		InitialBond:  40,
	}))
	require.NoError(t, st.Close())

	st, engine = open()
	defer st.Close()
	p, err := engine.Params()
	require.NoError(t, err)
	assert.Equal(t, testutils.TestParams(), p)

	s, err := engine.Subject(ctx, subjID)
	require.NoError(t, err)
	assert.Equal(t, state.SubjectValid, s.Status)
	assert.Equal(t, uint64(40), s.AvailableBond)

	a, err := engine.Account(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), a.Balance)
}

func TestUpdateTreasury(t *testing.T) {
	f := challengerWins(t)
	assert.Equal(t, uint64(1), f.Account(testutils.Treasury))

	err := deliver(f, &protocol.MsgUpdateTreasury{Signed: protocol.Signed{Signer: alice}, Treasury: "vault"})
	require.ErrorIs(t, err, protocol.ErrNotAuthority)
	assert.Equal(t, protocol.KindAuthorization, protocol.KindOf(err))

	f.Do(&protocol.MsgUpdateTreasury{Signed: protocol.Signed{Signer: testutils.Authority}, Treasury: "vault"})
	cfg, err := f.Engine.Config(f.Ctx)
	require.NoError(t, err)
	assert.Equal(t, state.Address("vault"), cfg.Treasury)

	// Fees of later rounds go to the new treasury.
	f.Do(&protocol.MsgSubmitRestore{SubjectRef: subjectRef(erin), Stake: 60, DisputeType: state.DisputeOther})
	f.Do(&protocol.MsgVoteOnRestore{SubjectRef: subjectRef(carol), Choice: state.ForRestoration, Stake: 10})
	f.Advance(2 * day)
	resolve(f)
	assert.Equal(t, uint64(1), f.Account(testutils.Treasury))
	assert.Equal(t, uint64(1), f.Account("vault"))
	f.CheckInvariants()
}

func TestEngine_EventsAfterCommit(t *testing.T) {
	f := newFixture(t)
	events := f.Events()
	require.Len(t, events, 1)
	assert.Equal(t, protocol.EventGenesis, events[0].Type)

	err := deliver(f, &protocol.MsgWithdraw{Signed: protocol.Signed{Signer: alice}, Role: state.RoleDefender, Amount: 1})
	require.ErrorIs(t, err, protocol.ErrPoolNotFound)
	require.Len(t, f.Events(), 1)

	createSubject(f, false, 50)
	events = f.Events()
	require.Len(t, events, 2)
	assert.Equal(t, protocol.Event{
		Type:      protocol.EventSubjectCreated,
		Time:      testutils.GenesisTime,
		SubjectID: subjID,
		Actor:     alice,
		Amount:    50,
	}, events[1])
}

func TestEngine_FailedOperationChangesNothing(t *testing.T) {
	f := newFixture(t)
	createSubject(f, false, 50)
	before := f.Subject(subjID)
	supply, err := f.Engine.Supply(f.Ctx)
	require.NoError(t, err)

	err = deliver(f, &protocol.MsgCreateDispute{SubjectRef: subjectRef(bob), Stake: 1001, DisputeType: state.DisputeFraud})
	require.ErrorIs(t, err, protocol.ErrInsufficientFunds)
	err = deliver(f, &protocol.MsgCreateDispute{SubjectRef: subjectRef(bob), Stake: 30, DisputeType: state.DisputeFraud, Source: state.FundPool})
	require.ErrorIs(t, err, protocol.ErrPoolNotFound)

	assert.Equal(t, before, f.Subject(subjID))
	assert.Equal(t, state.DisputeNone, f.Dispute(subjID).Status)
	_, err = f.Engine.Pool(f.Ctx, state.RoleChallenger, bob)
	require.ErrorIs(t, err, protocol.ErrPoolNotFound)
	after, err := f.Engine.Supply(f.Ctx)
	require.NoError(t, err)
	assert.Equal(t, supply, after)
	assert.Equal(t, uint64(1000), f.Account(bob))

	ctx, cancel := context.WithCancel(f.Ctx)
	cancel()
	err = f.Engine.Deposit(ctx, protocol.MsgDeposit{Signed: protocol.Signed{Signer: bob}, Role: state.RoleJuror, Amount: 10})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint64(1000), f.Account(bob))
}

func TestEngine_ConcurrentDeposits(t *testing.T) {
	f := newFixture(t)
	owners := []state.Address{alice, bob, carol, dan, erin}

	var wg sync.WaitGroup
	for _, owner := range owners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				err := f.Engine.Deposit(f.Ctx, protocol.MsgDeposit{Signed: protocol.Signed{Signer: owner}, Role: state.RoleJuror, Amount: 7})
				assert.NoError(t, err)
				_, err = f.Engine.Supply(f.Ctx)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	for _, owner := range owners {
		assert.Equal(t, uint64(930), f.Account(owner))
		assert.Equal(t, uint64(70), f.Pool(state.RoleJuror, owner).Balance)
	}
	f.CheckInvariants()
}
