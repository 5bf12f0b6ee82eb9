package protocol

import (
	"github.com/rs/zerolog"

	"github.com/eigerco/tribunal/internal/clock"
	"github.com/eigerco/tribunal/internal/state"
)

// EventType names a committed state transition.
type EventType string

const (
	EventGenesis          EventType = "genesis"
	EventTreasuryUpdated  EventType = "treasury_updated"
	EventPoolCreated      EventType = "pool_created"
	EventPoolDeposit      EventType = "pool_deposit"
	EventPoolWithdraw     EventType = "pool_withdraw"
	EventMaxBondUpdated   EventType = "max_bond_updated"
	EventSubjectCreated   EventType = "subject_created"
	EventBondAdded        EventType = "bond_added"
	EventBondWithdrawn    EventType = "bond_withdrawn"
	EventDisputeCreated   EventType = "dispute_created"
	EventChallengerJoined EventType = "challenger_joined"
	EventVoteCast         EventType = "vote_cast"
	EventVoteIncreased    EventType = "vote_increased"
	EventDisputeResolved  EventType = "dispute_resolved"
	EventBondCarried      EventType = "bond_carried"
	EventRestoreSubmitted EventType = "restore_submitted"
	EventRewardClaimed    EventType = "reward_claimed"
	EventStakeUnlocked    EventType = "stake_unlocked"
	EventRecordClosed     EventType = "record_closed"
	EventRoundSwept       EventType = "round_swept"
	EventRoundSettled     EventType = "round_settled"
)

// Event describes a committed transition. It carries enough for a read
// model to mirror the entity it touches.
type Event struct {
	Type      EventType       `json:"type"`
	Time      clock.Timestamp `json:"time"`
	SubjectID state.SubjectID `json:"subject_id,omitempty"`
	Round     uint64          `json:"round"`
	Actor     state.Address   `json:"actor,omitempty"`
	Role      string          `json:"role,omitempty"`
	Amount    uint64          `json:"amount"`
	Outcome   state.Outcome   `json:"outcome"`
}

// Observer receives events after the transition that produced them has
// been committed. Observe must not call back into the engine.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(ev Event) { f(ev) }

// LogObserver writes every event to a logger at debug level.
type LogObserver struct {
	Log zerolog.Logger
}

func (o LogObserver) Observe(ev Event) {
	o.Log.Debug().
		Str("event", string(ev.Type)).
		Str("subject", string(ev.SubjectID)).
		Uint64("round", ev.Round).
		Str("actor", string(ev.Actor)).
		Uint64("amount", ev.Amount).
		Stringer("outcome", ev.Outcome).
		Int64("time", int64(ev.Time)).
		Msg("event")
}

// Observers fans events out to several observers in order.
type Observers []Observer

func (os Observers) Observe(ev Event) {
	for _, o := range os {
		o.Observe(ev)
	}
}
