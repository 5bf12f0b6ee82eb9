package protocol

import (
	"context"
	"errors"
	"fmt"

	"github.com/eigerco/tribunal/internal/bonding"
	"github.com/eigerco/tribunal/internal/state"
	"github.com/eigerco/tribunal/internal/store"
)

// CreateDispute challenges a valid subject, opening the voting window for
// the subject's current round.
func (e *Engine) CreateDispute(ctx context.Context, msg MsgCreateDispute) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return e.apply(ctx, "create_dispute", func(o *op) error {
		subject, err := o.subject(msg.SubjectID)
		if err != nil {
			return err
		}
		switch subject.Status {
		case state.SubjectValid:
		case state.SubjectDisputed, state.SubjectRestoring:
			return fmt.Errorf("%w: %s", ErrDisputeExists, msg.SubjectID)
		case state.SubjectDormant, state.SubjectInvalid:
			return fmt.Errorf("%w: cannot dispute %s subject", ErrInvalidSubjectState, subject.Status)
		default:
			panic(fmt.Sprintf("unknown subject status %d", subject.Status))
		}
		d, err := o.dispute(msg.SubjectID)
		if err != nil {
			return err
		}
		if d.Status == state.DisputePending {
			return fmt.Errorf("%w: %s", ErrDisputeExists, msg.SubjectID)
		}
		if err := o.checkMinBond(msg.Signer, msg.Stake); err != nil {
			return err
		}
		if err := o.pay(msg.Source, state.RoleChallenger, msg.Signer, msg.Stake); err != nil {
			return err
		}
		if err := o.registerChallenger(msg.Signer); err != nil {
			return err
		}

		d = state.Dispute{
			SubjectID:       msg.SubjectID,
			Round:           subject.Round,
			Status:          state.DisputePending,
			Type:            msg.DisputeType,
			TotalStake:      msg.Stake,
			ChallengerCount: 1,
			BondAtRisk:      bondAtRisk(subject, msg.Stake),
			DefenderCount:   subject.DefenderCount,
			VotingStartsAt:  o.now,
			VotingEndsAt:    o.now.Add(subject.VotingPeriod),
			Details:         msg.Details,
		}
		err = o.txn.PutChallengerRecord(state.ChallengerRecord{
			SubjectID:    msg.SubjectID,
			Challenger:   msg.Signer,
			Round:        subject.Round,
			Stake:        msg.Stake,
			Details:      msg.Details,
			ChallengedAt: o.now,
		})
		if err != nil {
			return err
		}

		subject.Status = state.SubjectDisputed
		subject.ActiveDispute = true
		subject.UpdatedAt = o.now
		if err := o.txn.PutDispute(d); err != nil {
			return err
		}
		if err := o.txn.PutSubject(subject); err != nil {
			return err
		}
		if err := o.intoEscrow(msg.SubjectID, msg.Stake); err != nil {
			return err
		}
		o.emit(Event{Type: EventDisputeCreated, SubjectID: msg.SubjectID, Round: d.Round, Actor: msg.Signer, Amount: msg.Stake})
		return nil
	})
}

// JoinChallengers adds stake to a pending regular dispute before its voting
// window closes.
func (e *Engine) JoinChallengers(ctx context.Context, msg MsgJoinChallengers) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return e.apply(ctx, "join_challengers", func(o *op) error {
		d, err := o.pendingDispute(msg.SubjectID)
		if err != nil {
			return err
		}
		if d.IsRestore {
			return fmt.Errorf("%w: restorations cannot be joined", ErrRestoreDispute)
		}
		if !o.now.Before(d.VotingEndsAt) {
			return fmt.Errorf("%w: ended at %s", ErrVotingClosed, d.VotingEndsAt)
		}
		subject, err := o.subject(msg.SubjectID)
		if err != nil {
			return err
		}
		if err := o.checkMinBond(msg.Signer, msg.Stake); err != nil {
			return err
		}
		if err := o.pay(msg.Source, state.RoleChallenger, msg.Signer, msg.Stake); err != nil {
			return err
		}
		if err := o.registerChallenger(msg.Signer); err != nil {
			return err
		}

		rec, err := o.txn.ChallengerRecord(msg.SubjectID, d.Round, msg.Signer)
		switch {
		case errors.Is(err, store.ErrNotFound):
			rec = state.ChallengerRecord{
				SubjectID:    msg.SubjectID,
				Challenger:   msg.Signer,
				Round:        d.Round,
				Details:      msg.Details,
				ChallengedAt: o.now,
			}
			if d.ChallengerCount, err = inc(d.ChallengerCount); err != nil {
				return err
			}
		case err != nil:
			return err
		}
		if rec.Stake, err = add(rec.Stake, msg.Stake); err != nil {
			return err
		}
		if d.TotalStake, err = add(d.TotalStake, msg.Stake); err != nil {
			return err
		}
		d.BondAtRisk = bondAtRisk(subject, d.TotalStake)

		if err := o.txn.PutChallengerRecord(rec); err != nil {
			return err
		}
		if err := o.txn.PutDispute(d); err != nil {
			return err
		}
		if err := o.intoEscrow(msg.SubjectID, msg.Stake); err != nil {
			return err
		}
		o.emit(Event{Type: EventChallengerJoined, SubjectID: msg.SubjectID, Round: d.Round, Actor: msg.Signer, Amount: msg.Stake})
		return nil
	})
}

// checkMinBond enforces the bonding curve on a challenge stake.
func (o *op) checkMinBond(challenger state.Address, stake uint64) error {
	rep, err := o.reputation(state.RoleChallenger, challenger)
	if err != nil {
		return err
	}
	minBond, err := bonding.MinBond(rep, o.params.MinChallengerBond)
	if err != nil {
		return arith(err)
	}
	if stake < minBond {
		return fmt.Errorf("%w: stake %d < %d", ErrStakeBelowMinBond, stake, minBond)
	}
	return nil
}

// registerChallenger makes sure the challenger has a pool to carry their
// reputation.
func (o *op) registerChallenger(owner state.Address) error {
	p, created, err := o.poolOrNew(state.RoleChallenger, owner)
	if err != nil || !created {
		return err
	}
	return o.txn.PutPool(p)
}
