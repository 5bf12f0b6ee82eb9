package state

import (
	"fmt"
)

// SubjectStatus is the lifecycle state of a subject.
type SubjectStatus uint8

const (
	SubjectDormant SubjectStatus = iota
	SubjectValid
	SubjectDisputed
	SubjectInvalid
	SubjectRestoring
)

var subjectStatusNames = []string{"dormant", "valid", "disputed", "invalid", "restoring"}

func (s SubjectStatus) String() string               { return enumName(subjectStatusNames, s) }
func (s SubjectStatus) MarshalText() ([]byte, error) { return enumText(subjectStatusNames, s) }
func (s *SubjectStatus) UnmarshalText(b []byte) error {
	return parseEnum(subjectStatusNames, "subject status", b, s)
}

// DisputeStatus is the state of the dispute slot of a subject.
type DisputeStatus uint8

const (
	DisputeNone DisputeStatus = iota
	DisputePending
	DisputeResolved
)

var disputeStatusNames = []string{"none", "pending", "resolved"}

func (s DisputeStatus) String() string               { return enumName(disputeStatusNames, s) }
func (s DisputeStatus) MarshalText() ([]byte, error) { return enumText(disputeStatusNames, s) }
func (s *DisputeStatus) UnmarshalText(b []byte) error {
	return parseEnum(disputeStatusNames, "dispute status", b, s)
}

// Outcome is the result of a resolved dispute.
type Outcome uint8

const (
	OutcomeNone Outcome = iota
	OutcomeChallengerWins
	OutcomeDefenderWins
	OutcomeNoParticipation
)

var outcomeNames = []string{"none", "challenger_wins", "defender_wins", "no_participation"}

func (o Outcome) String() string                { return enumName(outcomeNames, o) }
func (o Outcome) MarshalText() ([]byte, error)  { return enumText(outcomeNames, o) }
func (o *Outcome) UnmarshalText(b []byte) error { return parseEnum(outcomeNames, "outcome", b, o) }

// Role selects which of a participant's pools or records is addressed.
type Role uint8

const (
	RoleDefender Role = iota
	RoleChallenger
	RoleJuror
)

var roleNames = []string{"defender", "challenger", "juror"}

func (r Role) String() string                { return enumName(roleNames, r) }
func (r Role) MarshalText() ([]byte, error)  { return enumText(roleNames, r) }
func (r *Role) UnmarshalText(b []byte) error { return parseEnum(roleNames, "role", b, r) }

// VoteChoice is a juror's side in a regular dispute. Restore votes are
// stored as the equivalent side, see RestoreVoteChoice.Side.
type VoteChoice uint8

const (
	VoteForChallenger VoteChoice = iota
	VoteForDefender
)

var voteChoiceNames = []string{"challenger", "defender"}

func (c VoteChoice) String() string               { return enumName(voteChoiceNames, c) }
func (c VoteChoice) MarshalText() ([]byte, error) { return enumText(voteChoiceNames, c) }
func (c *VoteChoice) UnmarshalText(b []byte) error {
	return parseEnum(voteChoiceNames, "vote choice", b, c)
}

// RestoreVoteChoice is a juror's side in a restoration vote.
type RestoreVoteChoice uint8

const (
	ForRestoration RestoreVoteChoice = iota
	AgainstRestoration
)

var restoreVoteChoiceNames = []string{"for_restoration", "against_restoration"}

func (c RestoreVoteChoice) String() string               { return enumName(restoreVoteChoiceNames, c) }
func (c RestoreVoteChoice) MarshalText() ([]byte, error) { return enumText(restoreVoteChoiceNames, c) }
func (c *RestoreVoteChoice) UnmarshalText(b []byte) error {
	return parseEnum(restoreVoteChoiceNames, "restore vote choice", b, c)
}

// Side maps a restore vote onto the tally it counts towards. The restorer
// occupies the challenger side of the dispute slot.
func (c RestoreVoteChoice) Side() VoteChoice {
	switch c {
	case ForRestoration:
		return VoteForChallenger
	case AgainstRestoration:
		return VoteForDefender
	default:
		panic(fmt.Sprintf("unknown restore vote choice %d", c))
	}
}

// FundingSource tells where bonds and challenger stakes are paid from.
type FundingSource uint8

const (
	// FundDirect debits the participant's external account.
	FundDirect FundingSource = iota
	// FundPool debits the participant's pool for the matching role.
	FundPool
)

var fundingSourceNames = []string{"direct", "pool"}

func (f FundingSource) String() string               { return enumName(fundingSourceNames, f) }
func (f FundingSource) MarshalText() ([]byte, error) { return enumText(fundingSourceNames, f) }
func (f *FundingSource) UnmarshalText(b []byte) error {
	return parseEnum(fundingSourceNames, "funding source", b, f)
}

// DisputeType classifies the grounds of a challenge.
type DisputeType uint8

const (
	DisputeOther DisputeType = iota
	DisputeBreach
	DisputeFraud
	DisputeQualityDispute
	DisputeNonDelivery
	DisputeMisrepresentation
	DisputePolicyViolation
	DisputeDamagesClaim
)

var disputeTypeNames = []string{
	"other", "breach", "fraud", "quality_dispute",
	"non_delivery", "misrepresentation", "policy_violation", "damages_claim",
}

func (d DisputeType) String() string               { return enumName(disputeTypeNames, d) }
func (d DisputeType) MarshalText() ([]byte, error) { return enumText(disputeTypeNames, d) }
func (d *DisputeType) UnmarshalText(b []byte) error {
	return parseEnum(disputeTypeNames, "dispute type", b, d)
}

// Valid reports whether d is a known dispute type.
func (d DisputeType) Valid() bool { return int(d) < len(disputeTypeNames) }

func enumName[T ~uint8](names []string, v T) string {
	if int(v) < len(names) {
		return names[v]
	}
	return fmt.Sprintf("unknown(%d)", uint8(v))
}

func enumText[T ~uint8](names []string, v T) ([]byte, error) {
	if int(v) >= len(names) {
		return nil, fmt.Errorf("unknown enum value %d", uint8(v))
	}
	return []byte(names[v]), nil
}

func parseEnum[T ~uint8](names []string, kind string, b []byte, out *T) error {
	for i, name := range names {
		if name == string(b) {
			*out = T(i)
			return nil
		}
	}
	return fmt.Errorf("unknown %s %q", kind, b)
}
