package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eigerco/tribunal/internal/state"
)

// MaxDetailsLength bounds free-form text attached to subjects, disputes and
// votes.
const MaxDetailsLength = 1024

// Msg is a signed request for one protocol operation.
type Msg interface {
	// Type is the stable name used to route and decode the message.
	Type() string
	// GetSigner is the principal the operation acts for.
	GetSigner() state.Address
	// ValidateBasic performs stateless checks.
	ValidateBasic() error
}

// Signed carries the principal of a message.
type Signed struct {
	Signer state.Address `json:"signer"`
}

func (s Signed) GetSigner() state.Address { return s.Signer }

func (s Signed) validate() error {
	if err := s.Signer.Validate(); err != nil {
		return fmt.Errorf("%w: signer: %w", ErrInvalidIdentifier, err)
	}
	return nil
}

// SubjectRef addresses a subject on behalf of a signer.
type SubjectRef struct {
	Signed
	SubjectID state.SubjectID `json:"subject_id"`
}

func (r SubjectRef) validate() error {
	if err := r.Signed.validate(); err != nil {
		return err
	}
	if err := r.SubjectID.Validate(); err != nil {
		return fmt.Errorf("%w: subject: %w", ErrInvalidIdentifier, err)
	}
	return nil
}

// RoundRef addresses one round of a subject on behalf of a signer.
type RoundRef struct {
	SubjectRef
	Round uint64 `json:"round"`
}

func positive(amount uint64) error {
	if amount == 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	return nil
}

func validRole(r state.Role) error {
	switch r {
	case state.RoleDefender, state.RoleChallenger, state.RoleJuror:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrInvalidRole, r)
	}
}

func validSource(s state.FundingSource) error {
	switch s {
	case state.FundDirect, state.FundPool:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrInvalidFundingSource, s)
	}
}

func validDetails(s string) error {
	if len(s) > MaxDetailsLength {
		return fmt.Errorf("%w: %d > %d", ErrDetailsTooLong, len(s), MaxDetailsLength)
	}
	return nil
}

func validDisputeType(t state.DisputeType) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidDisputeType, t)
	}
	return nil
}

type MsgUpdateTreasury struct {
	Signed
	Treasury state.Address `json:"treasury"`
}

func (MsgUpdateTreasury) Type() string { return "update_treasury" }
func (m MsgUpdateTreasury) ValidateBasic() error {
	if err := m.Signed.validate(); err != nil {
		return err
	}
	if err := m.Treasury.Validate(); err != nil {
		return fmt.Errorf("%w: treasury: %w", ErrInvalidIdentifier, err)
	}
	return nil
}

type MsgCreatePool struct {
	Signed
	Role   state.Role `json:"role"`
	Amount uint64     `json:"amount"`
}

func (MsgCreatePool) Type() string { return "create_pool" }
func (m MsgCreatePool) ValidateBasic() error {
	if err := m.Signed.validate(); err != nil {
		return err
	}
	return validRole(m.Role)
}

type MsgDeposit struct {
	Signed
	Role   state.Role `json:"role"`
	Amount uint64     `json:"amount"`
}

func (MsgDeposit) Type() string { return "deposit" }
func (m MsgDeposit) ValidateBasic() error {
	if err := m.Signed.validate(); err != nil {
		return err
	}
	if err := validRole(m.Role); err != nil {
		return err
	}
	return positive(m.Amount)
}

type MsgWithdraw struct {
	Signed
	Role   state.Role `json:"role"`
	Amount uint64     `json:"amount"`
}

func (MsgWithdraw) Type() string { return "withdraw" }
func (m MsgWithdraw) ValidateBasic() error {
	if err := m.Signed.validate(); err != nil {
		return err
	}
	if err := validRole(m.Role); err != nil {
		return err
	}
	return positive(m.Amount)
}

type MsgUpdateMaxBond struct {
	Signed
	MaxBond uint64 `json:"max_bond"`
}

func (MsgUpdateMaxBond) Type() string           { return "update_max_bond" }
func (m MsgUpdateMaxBond) ValidateBasic() error { return m.Signed.validate() }

type MsgCreateSubject struct {
	SubjectRef
	MatchMode    bool                `json:"match_mode"`
	VotingPeriod time.Duration       `json:"voting_period"`
	InitialBond  uint64              `json:"initial_bond"`
	Source       state.FundingSource `json:"source"`
	Details      string              `json:"details,omitempty"`
}

func (MsgCreateSubject) Type() string { return "create_subject" }
func (m MsgCreateSubject) ValidateBasic() error {
	if err := m.SubjectRef.validate(); err != nil {
		return err
	}
	if m.VotingPeriod < time.Second {
		return fmt.Errorf("%w: %s", ErrInvalidVotingPeriod, m.VotingPeriod)
	}
	if err := validSource(m.Source); err != nil {
		return err
	}
	return validDetails(m.Details)
}

type MsgAddBond struct {
	SubjectRef
	Amount uint64              `json:"amount"`
	Source state.FundingSource `json:"source"`
}

func (MsgAddBond) Type() string { return "add_bond" }
func (m MsgAddBond) ValidateBasic() error {
	if err := m.SubjectRef.validate(); err != nil {
		return err
	}
	if err := validSource(m.Source); err != nil {
		return err
	}
	return positive(m.Amount)
}

type MsgWithdrawBond struct {
	SubjectRef
	Amount uint64 `json:"amount"`
}

func (MsgWithdrawBond) Type() string { return "withdraw_bond" }
func (m MsgWithdrawBond) ValidateBasic() error {
	if err := m.SubjectRef.validate(); err != nil {
		return err
	}
	return positive(m.Amount)
}

type MsgCreateDispute struct {
	SubjectRef
	Stake       uint64              `json:"stake"`
	DisputeType state.DisputeType   `json:"dispute_type"`
	Source      state.FundingSource `json:"source"`
	Details     string              `json:"details,omitempty"`
}

func (MsgCreateDispute) Type() string { return "create_dispute" }
func (m MsgCreateDispute) ValidateBasic() error {
	if err := m.SubjectRef.validate(); err != nil {
		return err
	}
	if err := validDisputeType(m.DisputeType); err != nil {
		return err
	}
	if err := validSource(m.Source); err != nil {
		return err
	}
	if err := validDetails(m.Details); err != nil {
		return err
	}
	return positive(m.Stake)
}

type MsgJoinChallengers struct {
	SubjectRef
	Stake   uint64              `json:"stake"`
	Source  state.FundingSource `json:"source"`
	Details string              `json:"details,omitempty"`
}

func (MsgJoinChallengers) Type() string { return "join_challengers" }
func (m MsgJoinChallengers) ValidateBasic() error {
	if err := m.SubjectRef.validate(); err != nil {
		return err
	}
	if err := validSource(m.Source); err != nil {
		return err
	}
	if err := validDetails(m.Details); err != nil {
		return err
	}
	return positive(m.Stake)
}

type MsgVoteOnDispute struct {
	SubjectRef
	Choice    state.VoteChoice `json:"choice"`
	Stake     uint64           `json:"stake"`
	Rationale string           `json:"rationale,omitempty"`
}

func (MsgVoteOnDispute) Type() string { return "vote_on_dispute" }
func (m MsgVoteOnDispute) ValidateBasic() error {
	if err := m.SubjectRef.validate(); err != nil {
		return err
	}
	switch m.Choice {
	case state.VoteForChallenger, state.VoteForDefender:
	default:
		return fmt.Errorf("%w: %d", ErrInvalidVoteChoice, m.Choice)
	}
	if err := validDetails(m.Rationale); err != nil {
		return err
	}
	return positive(m.Stake)
}

type MsgVoteOnRestore struct {
	SubjectRef
	Choice    state.RestoreVoteChoice `json:"choice"`
	Stake     uint64                  `json:"stake"`
	Rationale string                  `json:"rationale,omitempty"`
}

func (MsgVoteOnRestore) Type() string { return "vote_on_restore" }
func (m MsgVoteOnRestore) ValidateBasic() error {
	if err := m.SubjectRef.validate(); err != nil {
		return err
	}
	switch m.Choice {
	case state.ForRestoration, state.AgainstRestoration:
	default:
		return fmt.Errorf("%w: restore %d", ErrInvalidVoteChoice, m.Choice)
	}
	if err := validDetails(m.Rationale); err != nil {
		return err
	}
	return positive(m.Stake)
}

type MsgAddToVote struct {
	SubjectRef
	Stake uint64 `json:"stake"`
}

func (MsgAddToVote) Type() string { return "add_to_vote" }
func (m MsgAddToVote) ValidateBasic() error {
	if err := m.SubjectRef.validate(); err != nil {
		return err
	}
	return positive(m.Stake)
}

type MsgResolveDispute struct {
	SubjectRef
}

func (MsgResolveDispute) Type() string           { return "resolve_dispute" }
func (m MsgResolveDispute) ValidateBasic() error { return m.SubjectRef.validate() }

type MsgSubmitRestore struct {
	SubjectRef
	Stake       uint64              `json:"stake"`
	DisputeType state.DisputeType   `json:"dispute_type"`
	Source      state.FundingSource `json:"source"`
	Details     string              `json:"details,omitempty"`
}

func (MsgSubmitRestore) Type() string { return "submit_restore" }
func (m MsgSubmitRestore) ValidateBasic() error {
	if err := m.SubjectRef.validate(); err != nil {
		return err
	}
	if err := validDisputeType(m.DisputeType); err != nil {
		return err
	}
	if err := validSource(m.Source); err != nil {
		return err
	}
	if err := validDetails(m.Details); err != nil {
		return err
	}
	return positive(m.Stake)
}

type MsgClaimJuror struct{ RoundRef }

func (MsgClaimJuror) Type() string           { return "claim_juror" }
func (m MsgClaimJuror) ValidateBasic() error { return m.SubjectRef.validate() }

type MsgClaimChallenger struct{ RoundRef }

func (MsgClaimChallenger) Type() string           { return "claim_challenger" }
func (m MsgClaimChallenger) ValidateBasic() error { return m.SubjectRef.validate() }

type MsgClaimDefender struct{ RoundRef }

func (MsgClaimDefender) Type() string           { return "claim_defender" }
func (m MsgClaimDefender) ValidateBasic() error { return m.SubjectRef.validate() }

type MsgUnlockJurorStake struct{ RoundRef }

func (MsgUnlockJurorStake) Type() string           { return "unlock_juror_stake" }
func (m MsgUnlockJurorStake) ValidateBasic() error { return m.SubjectRef.validate() }

type MsgCloseRecord struct {
	RoundRef
	Role state.Role `json:"role"`
}

func (MsgCloseRecord) Type() string { return "close_record" }
func (m MsgCloseRecord) ValidateBasic() error {
	if err := m.SubjectRef.validate(); err != nil {
		return err
	}
	return validRole(m.Role)
}

type MsgSweepRoundCreator struct{ RoundRef }

func (MsgSweepRoundCreator) Type() string           { return "sweep_round_creator" }
func (m MsgSweepRoundCreator) ValidateBasic() error { return m.SubjectRef.validate() }

type MsgSweepRoundTreasury struct{ RoundRef }

func (MsgSweepRoundTreasury) Type() string           { return "sweep_round_treasury" }
func (m MsgSweepRoundTreasury) ValidateBasic() error { return m.SubjectRef.validate() }

var msgTypes = map[string]func() Msg{
	MsgUpdateTreasury{}.Type():     func() Msg { return &MsgUpdateTreasury{} },
	MsgCreatePool{}.Type():         func() Msg { return &MsgCreatePool{} },
	MsgDeposit{}.Type():            func() Msg { return &MsgDeposit{} },
	MsgWithdraw{}.Type():           func() Msg { return &MsgWithdraw{} },
	MsgUpdateMaxBond{}.Type():      func() Msg { return &MsgUpdateMaxBond{} },
	MsgCreateSubject{}.Type():      func() Msg { return &MsgCreateSubject{} },
	MsgAddBond{}.Type():            func() Msg { return &MsgAddBond{} },
	MsgWithdrawBond{}.Type():       func() Msg { return &MsgWithdrawBond{} },
	MsgCreateDispute{}.Type():      func() Msg { return &MsgCreateDispute{} },
	MsgJoinChallengers{}.Type():    func() Msg { return &MsgJoinChallengers{} },
	MsgVoteOnDispute{}.Type():      func() Msg { return &MsgVoteOnDispute{} },
	MsgVoteOnRestore{}.Type():      func() Msg { return &MsgVoteOnRestore{} },
	MsgAddToVote{}.Type():          func() Msg { return &MsgAddToVote{} },
	MsgResolveDispute{}.Type():     func() Msg { return &MsgResolveDispute{} },
	MsgSubmitRestore{}.Type():      func() Msg { return &MsgSubmitRestore{} },
	MsgClaimJuror{}.Type():         func() Msg { return &MsgClaimJuror{} },
	MsgClaimChallenger{}.Type():    func() Msg { return &MsgClaimChallenger{} },
	MsgClaimDefender{}.Type():      func() Msg { return &MsgClaimDefender{} },
	MsgUnlockJurorStake{}.Type():   func() Msg { return &MsgUnlockJurorStake{} },
	MsgCloseRecord{}.Type():        func() Msg { return &MsgCloseRecord{} },
	MsgSweepRoundCreator{}.Type():  func() Msg { return &MsgSweepRoundCreator{} },
	MsgSweepRoundTreasury{}.Type(): func() Msg { return &MsgSweepRoundTreasury{} },
}

// DecodeMsg decodes the JSON body of a message of the named type.
func DecodeMsg(typ string, body json.RawMessage) (Msg, error) {
	newMsg, ok := msgTypes[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMsg, typ)
	}
	msg := newMsg()
	if err := json.Unmarshal(body, msg); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrMalformedMsg, typ, err)
	}
	return msg, nil
}

// Deliver routes msg to the operation it requests. Messages are expected
// as pointers, the way DecodeMsg returns them.
func (e *Engine) Deliver(ctx context.Context, msg Msg) error {
	switch m := msg.(type) {
	case *MsgUpdateTreasury:
		return e.UpdateTreasury(ctx, *m)
	case *MsgCreatePool:
		return e.CreatePool(ctx, *m)
	case *MsgDeposit:
		return e.Deposit(ctx, *m)
	case *MsgWithdraw:
		return e.Withdraw(ctx, *m)
	case *MsgUpdateMaxBond:
		return e.UpdateMaxBond(ctx, *m)
	case *MsgCreateSubject:
		return e.CreateSubject(ctx, *m)
	case *MsgAddBond:
		return e.AddBond(ctx, *m)
	case *MsgWithdrawBond:
		return e.WithdrawBond(ctx, *m)
	case *MsgCreateDispute:
		return e.CreateDispute(ctx, *m)
	case *MsgJoinChallengers:
		return e.JoinChallengers(ctx, *m)
	case *MsgVoteOnDispute:
		return e.VoteOnDispute(ctx, *m)
	case *MsgVoteOnRestore:
		return e.VoteOnRestore(ctx, *m)
	case *MsgAddToVote:
		return e.AddToVote(ctx, *m)
	case *MsgResolveDispute:
		return e.ResolveDispute(ctx, *m)
	case *MsgSubmitRestore:
		return e.SubmitRestore(ctx, *m)
	case *MsgClaimJuror:
		return e.ClaimJuror(ctx, *m)
	case *MsgClaimChallenger:
		return e.ClaimChallenger(ctx, *m)
	case *MsgClaimDefender:
		return e.ClaimDefender(ctx, *m)
	case *MsgUnlockJurorStake:
		return e.UnlockJurorStake(ctx, *m)
	case *MsgCloseRecord:
		return e.CloseRecord(ctx, *m)
	case *MsgSweepRoundCreator:
		return e.SweepRoundCreator(ctx, *m)
	case *MsgSweepRoundTreasury:
		return e.SweepRoundTreasury(ctx, *m)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownMsg, msg)
	}
}
