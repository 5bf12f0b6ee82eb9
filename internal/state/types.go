// Package state defines the persistent entities of the arbitration protocol.
// Entities reference each other only through keys (subject id, owner,
// round), never through pointers.
package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/eigerco/tribunal/internal/clock"
)

// MaxIdentifierLength bounds addresses and subject identifiers.
const MaxIdentifierLength = 64

var (
	ErrEmptyIdentifier   = errors.New("identifier is empty")
	ErrIdentifierTooLong = errors.New("identifier is too long")
	ErrIdentifierFormat  = errors.New("identifier contains whitespace or control characters")
)

// Address identifies a participant.
type Address string

// Validate checks that the address is usable as a key component.
func (a Address) Validate() error { return validateIdentifier(string(a)) }

// SubjectID identifies a subject.
type SubjectID string

// Validate checks that the id is usable as a key component.
func (id SubjectID) Validate() error { return validateIdentifier(string(id)) }

func validateIdentifier(s string) error {
	if s == "" {
		return ErrEmptyIdentifier
	}
	if len(s) > MaxIdentifierLength {
		return fmt.Errorf("%w: %d > %d", ErrIdentifierTooLong, len(s), MaxIdentifierLength)
	}
	if strings.IndexFunc(s, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
		return ErrIdentifierFormat
	}
	return nil
}

// ProtocolConfig is the singleton administrative configuration.
type ProtocolConfig struct {
	Authority Address `json:"authority"`
	Treasury  Address `json:"treasury"`
}

// Account is a participant's funds outside the protocol. Direct payments are
// debited from it; withdrawals, sweeps and fees are credited to it.
type Account struct {
	Owner   Address `json:"owner"`
	Balance uint64  `json:"balance"`
}

// Pool is a participant's balance and reputation for a single role.
type Pool struct {
	Owner      Address `json:"owner"`
	Role       Role    `json:"role"`
	Balance    uint64  `json:"balance"`
	Held       uint64  `json:"held"`
	Reputation uint64  `json:"reputation"`
	// MaxBond caps automatic bond allocation; defender pools only.
	MaxBond   uint64          `json:"max_bond"`
	CreatedAt clock.Timestamp `json:"created_at"`
}

// Subject is the entity defended and disputed across rounds.
type Subject struct {
	ID               SubjectID       `json:"id"`
	Creator          Address         `json:"creator"`
	Round            uint64          `json:"round"`
	AvailableBond    uint64          `json:"available_bond"`
	DefenderCount    uint32          `json:"defender_count"`
	Status           SubjectStatus   `json:"status"`
	MatchMode        bool            `json:"match_mode"`
	VotingPeriod     time.Duration   `json:"voting_period"`
	ActiveDispute    bool            `json:"active_dispute"`
	LastDisputeTotal uint64          `json:"last_dispute_total"`
	LastVotingPeriod time.Duration   `json:"last_voting_period"`
	Details          string          `json:"details,omitempty"`
	CreatedAt        clock.Timestamp `json:"created_at"`
	UpdatedAt        clock.Timestamp `json:"updated_at"`
}

// Dispute is the single dispute slot of a subject, reused across rounds.
type Dispute struct {
	SubjectID          SubjectID       `json:"subject_id"`
	Round              uint64          `json:"round"`
	Status             DisputeStatus   `json:"status"`
	Type               DisputeType     `json:"dispute_type"`
	TotalStake         uint64          `json:"total_stake"`
	ChallengerCount    uint32          `json:"challenger_count"`
	BondAtRisk         uint64          `json:"bond_at_risk"`
	DefenderCount      uint32          `json:"defender_count"`
	VotesForChallenger uint64          `json:"votes_for_challenger"`
	VotesForDefender   uint64          `json:"votes_for_defender"`
	VoteCount          uint32          `json:"vote_count"`
	VotingStartsAt     clock.Timestamp `json:"voting_starts_at"`
	VotingEndsAt       clock.Timestamp `json:"voting_ends_at"`
	Outcome            Outcome         `json:"outcome"`
	ResolvedAt         clock.Timestamp `json:"resolved_at"`
	IsRestore          bool            `json:"is_restore"`
	RestoreStake       uint64          `json:"restore_stake"`
	Restorer           Address         `json:"restorer,omitempty"`
	Details            string          `json:"details,omitempty"`
}

// VotingOpen reports whether now falls inside the voting window.
func (d Dispute) VotingOpen(now clock.Timestamp) bool {
	return d.Status == DisputePending && !now.Before(d.VotingStartsAt) && now.Before(d.VotingEndsAt)
}

// TotalVoteWeight is the sum of both tallies.
func (d Dispute) TotalVoteWeight() (uint64, bool) {
	sum := d.VotesForChallenger + d.VotesForDefender
	return sum, sum >= d.VotesForChallenger
}

// DefenderRecord is a defender's bond in one round.
type DefenderRecord struct {
	SubjectID     SubjectID       `json:"subject_id"`
	Defender      Address         `json:"defender"`
	Round         uint64          `json:"round"`
	Bond          uint64          `json:"bond"`
	RewardClaimed bool            `json:"reward_claimed"`
	BondedAt      clock.Timestamp `json:"bonded_at"`
}

// ChallengerRecord is a challenger's (or restorer's) stake in one round.
type ChallengerRecord struct {
	SubjectID     SubjectID       `json:"subject_id"`
	Challenger    Address         `json:"challenger"`
	Round         uint64          `json:"round"`
	Stake         uint64          `json:"stake"`
	Details       string          `json:"details,omitempty"`
	RewardClaimed bool            `json:"reward_claimed"`
	ChallengedAt  clock.Timestamp `json:"challenged_at"`
}

// JurorRecord is a juror's vote in one round.
type JurorRecord struct {
	SubjectID       SubjectID       `json:"subject_id"`
	Juror           Address         `json:"juror"`
	Round           uint64          `json:"round"`
	Choice          VoteChoice      `json:"choice"`
	IsRestoreVote   bool            `json:"is_restore_vote"`
	StakeAllocation uint64          `json:"stake_allocation"`
	VotingPower     uint64          `json:"voting_power"`
	Rationale       string          `json:"rationale,omitempty"`
	RewardClaimed   bool            `json:"reward_claimed"`
	StakeUnlocked   bool            `json:"stake_unlocked"`
	VotedAt         clock.Timestamp `json:"voted_at"`
}

// RoundResult is the settlement snapshot of a resolved round.
type RoundResult struct {
	Round           uint64          `json:"round"`
	Creator         Address         `json:"creator"`
	ResolvedAt      clock.Timestamp `json:"resolved_at"`
	Outcome         Outcome         `json:"outcome"`
	IsRestore       bool            `json:"is_restore"`
	TotalStake      uint64          `json:"total_stake"`
	BondAtRisk      uint64          `json:"bond_at_risk"`
	SafeBond        uint64          `json:"safe_bond"`
	TotalVoteWeight uint64          `json:"total_vote_weight"`
	WinnerPool      uint64          `json:"winner_pool"`
	JurorPool       uint64          `json:"juror_pool"`
	PlatformFee     uint64          `json:"platform_fee"`

	// Claimant counts only include participants with a positive payout.
	DefenderCount   uint32 `json:"defender_count"`
	ChallengerCount uint32 `json:"challenger_count"`
	JurorCount      uint32 `json:"juror_count"`
	// VoterCount is every juror who locked stake in the round.
	VoterCount uint32 `json:"voter_count"`

	DefendersClaimed   uint32 `json:"defenders_claimed"`
	ChallengersClaimed uint32 `json:"challengers_claimed"`
	JurorsClaimed      uint32 `json:"jurors_claimed"`
	JurorsUnlocked     uint32 `json:"jurors_unlocked"`

	// Unclaimed is what the escrow still holds for this round.
	Unclaimed uint64 `json:"unclaimed"`
	Swept     bool   `json:"swept"`
}

// Settled reports whether nothing further can be paid from or unlocked
// against this round.
func (r RoundResult) Settled() bool {
	if r.JurorsUnlocked < r.VoterCount {
		return false
	}
	if r.Swept {
		return true
	}
	return r.DefendersClaimed >= r.DefenderCount &&
		r.ChallengersClaimed >= r.ChallengerCount &&
		r.JurorsClaimed >= r.JurorCount
}

// Escrow holds a subject's funds and its unsettled round results.
type Escrow struct {
	SubjectID SubjectID     `json:"subject_id"`
	Balance   uint64        `json:"balance"`
	Results   []RoundResult `json:"results"`
}

// Result returns the index of the result for round, or -1.
func (e *Escrow) Result(round uint64) int {
	for i := range e.Results {
		if e.Results[i].Round == round {
			return i
		}
	}
	return -1
}

// Unclaimed sums the unclaimed funds of all round results.
func (e *Escrow) Unclaimed() uint64 {
	var sum uint64
	for _, r := range e.Results {
		sum += r.Unclaimed
	}
	return sum
}

// Remove drops the result at index i keeping round order.
func (e *Escrow) Remove(i int) {
	e.Results = append(e.Results[:i], e.Results[i+1:]...)
}
