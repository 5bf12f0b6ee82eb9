package testutils

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/tribunal/internal/clock"
	"github.com/eigerco/tribunal/internal/params"
	"github.com/eigerco/tribunal/internal/protocol"
	"github.com/eigerco/tribunal/internal/state"
	"github.com/eigerco/tribunal/internal/store"
	"github.com/eigerco/tribunal/pkg/db/pebble"
)

// GenesisTime is the manual clock's starting point in tests.
const GenesisTime clock.Timestamp = 1_700_000_000

const (
	Authority state.Address = "authority"
	Treasury  state.Address = "treasury"
)

// TestParams are the default parameters with minimum stakes small enough
// for hand-computed scenarios.
func TestParams() params.Params {
	p := params.Default()
	p.MinJurorStake = 10
	p.MinChallengerBond = 10
	p.MinDefenderStake = 10
	return p
}

// NewStore returns an empty in-memory store closed at test cleanup.
func NewStore(t testing.TB) *store.Store {
	t.Helper()
	kv, err := pebble.NewKVStore()
	require.NoError(t, err)
	s, err := store.New(kv, 0, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// Fixture is an initialised engine driven by a manual clock.
type Fixture struct {
	T      testing.TB
	Ctx    context.Context
	Engine *protocol.Engine
	Clock  *clock.Manual
	Supply uint64

	mu     sync.Mutex
	events []protocol.Event
}

// NewFixture runs genesis with the given account balances.
func NewFixture(t testing.TB, p params.Params, accounts map[state.Address]uint64) *Fixture {
	t.Helper()
	f := &Fixture{T: t, Ctx: context.Background(), Clock: clock.NewManual(GenesisTime)}

	engine, err := protocol.New(NewStore(t),
		protocol.WithClock(f.Clock),
		protocol.WithLogger(zerolog.Nop()),
		protocol.WithObserver(protocol.ObserverFunc(f.record)),
	)
	require.NoError(t, err)
	f.Engine = engine

	g := protocol.Genesis{Params: p, Authority: Authority, Treasury: Treasury}
	for owner, balance := range accounts {
		g.Accounts = append(g.Accounts, state.Account{Owner: owner, Balance: balance})
		f.Supply += balance
	}
	require.NoError(t, engine.InitGenesis(f.Ctx, g))
	return f
}

func (f *Fixture) record(ev protocol.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

// Events returns the events observed so far.
func (f *Fixture) Events() []protocol.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.Event(nil), f.events...)
}

// Advance moves the clock forward.
func (f *Fixture) Advance(d time.Duration) {
	f.Clock.Advance(d)
}

// Do delivers msg and fails the test on error.
func (f *Fixture) Do(msg protocol.Msg) {
	f.T.Helper()
	require.NoError(f.T, f.Engine.Deliver(f.Ctx, msg), "%s", msg.Type())
}

func (f *Fixture) Account(owner state.Address) uint64 {
	f.T.Helper()
	a, err := f.Engine.Account(f.Ctx, owner)
	require.NoError(f.T, err)
	return a.Balance
}

func (f *Fixture) Pool(role state.Role, owner state.Address) state.Pool {
	f.T.Helper()
	p, err := f.Engine.Pool(f.Ctx, role, owner)
	require.NoError(f.T, err)
	return p
}

func (f *Fixture) Subject(id state.SubjectID) state.Subject {
	f.T.Helper()
	s, err := f.Engine.Subject(f.Ctx, id)
	require.NoError(f.T, err)
	return s
}

func (f *Fixture) Dispute(id state.SubjectID) state.Dispute {
	f.T.Helper()
	d, err := f.Engine.Dispute(f.Ctx, id)
	require.NoError(f.T, err)
	return d
}

func (f *Fixture) Escrow(id state.SubjectID) state.Escrow {
	f.T.Helper()
	e, err := f.Engine.Escrow(f.Ctx, id)
	require.NoError(f.T, err)
	return e
}

// Result returns the escrowed result of round, failing if it is gone.
func (f *Fixture) Result(id state.SubjectID, round uint64) state.RoundResult {
	f.T.Helper()
	e := f.Escrow(id)
	idx := e.Result(round)
	require.GreaterOrEqual(f.T, idx, 0, "no result for round %d", round)
	return e.Results[idx]
}

// CheckInvariants verifies that no funds were created or destroyed and
// that every escrow holds exactly the bond, pending stake and unclaimed
// settlements of its subject.
func (f *Fixture) CheckInvariants() {
	f.T.Helper()
	supply, err := f.Engine.Supply(f.Ctx)
	require.NoError(f.T, err)
	total, err := supply.Total()
	require.NoError(f.T, err)
	require.Equal(f.T, f.Supply, total, "supply %+v", supply)

	subjects, err := f.Engine.Subjects(f.Ctx)
	require.NoError(f.T, err)
	for _, s := range subjects {
		d := f.Dispute(s.ID)
		e := f.Escrow(s.ID)
		want := s.AvailableBond + e.Unclaimed()
		if d.Status == state.DisputePending {
			want += d.TotalStake
		}
		require.Equal(f.T, want, e.Balance, "escrow of %s", s.ID)
	}
}
