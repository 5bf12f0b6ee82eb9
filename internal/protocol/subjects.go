package protocol

import (
	"context"
	"errors"
	"fmt"

	"github.com/eigerco/tribunal/internal/state"
	"github.com/eigerco/tribunal/internal/store"
)

// CreateSubject registers a subject in round 0 together with its dispute
// slot and escrow. Without an explicit initial bond the creator's defender
// pool is drawn on, up to its max bond.
func (e *Engine) CreateSubject(ctx context.Context, msg MsgCreateSubject) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return e.apply(ctx, "create_subject", func(o *op) error {
		if _, err := o.txn.Subject(msg.SubjectID); err == nil {
			return fmt.Errorf("%w: %s", ErrSubjectExists, msg.SubjectID)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if msg.VotingPeriod < o.params.MinVotingPeriod || msg.VotingPeriod > o.params.MaxVotingPeriod {
			return fmt.Errorf("%w: %s not within [%s, %s]", ErrInvalidVotingPeriod,
				msg.VotingPeriod, o.params.MinVotingPeriod, o.params.MaxVotingPeriod)
		}

		bond := msg.InitialBond
		if bond > 0 {
			if bond < o.params.MinDefenderStake {
				return fmt.Errorf("%w: bond %d < %d", ErrBelowMinimum, bond, o.params.MinDefenderStake)
			}
			if err := o.pay(msg.Source, state.RoleDefender, msg.Signer, bond); err != nil {
				return err
			}
		} else {
			allocated, err := o.allocateFromPool(msg.Signer)
			if err != nil {
				return err
			}
			bond = allocated
		}

		subject := state.Subject{
			ID:           msg.SubjectID,
			Creator:      msg.Signer,
			Status:       state.SubjectDormant,
			MatchMode:    msg.MatchMode,
			VotingPeriod: msg.VotingPeriod,
			Details:      msg.Details,
			CreatedAt:    o.now,
			UpdatedAt:    o.now,
		}
		if bond > 0 {
			subject.Status = state.SubjectValid
			subject.AvailableBond = bond
			subject.DefenderCount = 1
			err := o.txn.PutDefenderRecord(state.DefenderRecord{
				SubjectID: msg.SubjectID,
				Defender:  msg.Signer,
				Bond:      bond,
				BondedAt:  o.now,
			})
			if err != nil {
				return err
			}
		}
		if err := o.txn.PutSubject(subject); err != nil {
			return err
		}
		if err := o.txn.PutDispute(state.Dispute{SubjectID: msg.SubjectID}); err != nil {
			return err
		}
		if err := o.txn.PutEscrow(state.Escrow{SubjectID: msg.SubjectID, Balance: bond}); err != nil {
			return err
		}
		o.emit(Event{Type: EventSubjectCreated, SubjectID: msg.SubjectID, Actor: msg.Signer, Amount: bond})
		return nil
	})
}

// allocateFromPool draws min(balance, max bond) from the owner's defender
// pool. A zero max bond leaves the allocation uncapped. Owners without a
// pool allocate nothing.
func (o *op) allocateFromPool(owner state.Address) (uint64, error) {
	p, err := o.txn.Pool(state.RoleDefender, owner)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	amount := p.Balance
	if p.MaxBond > 0 {
		amount = min(amount, p.MaxBond)
	}
	if amount == 0 {
		return 0, nil
	}
	p.Balance -= amount
	return amount, o.txn.PutPool(p)
}

// AddBond backs a subject's current round. While a dispute is pending the
// bond at risk is recomputed, so new bond is exposed in proportional mode
// and up to the total stake in match mode.
func (e *Engine) AddBond(ctx context.Context, msg MsgAddBond) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return e.apply(ctx, "add_bond", func(o *op) error {
		subject, err := o.subject(msg.SubjectID)
		if err != nil {
			return err
		}
		switch subject.Status {
		case state.SubjectDormant, state.SubjectValid, state.SubjectDisputed:
		case state.SubjectInvalid, state.SubjectRestoring:
			return fmt.Errorf("%w: cannot bond %s subject", ErrInvalidSubjectState, subject.Status)
		default:
			panic(fmt.Sprintf("unknown subject status %d", subject.Status))
		}
		if msg.Amount < o.params.MinDefenderStake {
			return fmt.Errorf("%w: bond %d < %d", ErrBelowMinimum, msg.Amount, o.params.MinDefenderStake)
		}
		if err := o.pay(msg.Source, state.RoleDefender, msg.Signer, msg.Amount); err != nil {
			return err
		}

		rec, err := o.txn.DefenderRecord(msg.SubjectID, subject.Round, msg.Signer)
		switch {
		case errors.Is(err, store.ErrNotFound):
			rec = state.DefenderRecord{SubjectID: msg.SubjectID, Defender: msg.Signer, Round: subject.Round, BondedAt: o.now}
			if subject.DefenderCount, err = inc(subject.DefenderCount); err != nil {
				return err
			}
		case err != nil:
			return err
		}
		if rec.Bond, err = add(rec.Bond, msg.Amount); err != nil {
			return err
		}
		if subject.AvailableBond, err = add(subject.AvailableBond, msg.Amount); err != nil {
			return err
		}
		if subject.Status == state.SubjectDormant {
			subject.Status = state.SubjectValid
		}

		if subject.Status == state.SubjectDisputed {
			d, err := o.pendingDispute(msg.SubjectID)
			if err != nil {
				return err
			}
			d.BondAtRisk = bondAtRisk(subject, d.TotalStake)
			if err := o.txn.PutDispute(d); err != nil {
				return err
			}
		}

		subject.UpdatedAt = o.now
		if err := o.txn.PutDefenderRecord(rec); err != nil {
			return err
		}
		if err := o.txn.PutSubject(subject); err != nil {
			return err
		}
		if err := o.intoEscrow(msg.SubjectID, msg.Amount); err != nil {
			return err
		}
		o.emit(Event{Type: EventBondAdded, SubjectID: msg.SubjectID, Round: subject.Round, Actor: msg.Signer, Amount: msg.Amount})
		return nil
	})
}

// WithdrawBond returns part of the signer's current-round bond to their
// defender pool. Bond cannot leave a subject with a pending dispute.
func (e *Engine) WithdrawBond(ctx context.Context, msg MsgWithdrawBond) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return e.apply(ctx, "withdraw_bond", func(o *op) error {
		subject, err := o.subject(msg.SubjectID)
		if err != nil {
			return err
		}
		switch subject.Status {
		case state.SubjectDormant, state.SubjectValid:
		case state.SubjectDisputed, state.SubjectInvalid, state.SubjectRestoring:
			return fmt.Errorf("%w: cannot withdraw bond from %s subject", ErrInvalidSubjectState, subject.Status)
		default:
			panic(fmt.Sprintf("unknown subject status %d", subject.Status))
		}

		rec, err := o.txn.DefenderRecord(msg.SubjectID, subject.Round, msg.Signer)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s has no bond on %s", ErrNotDefender, msg.Signer, msg.SubjectID)
		}
		if err != nil {
			return err
		}
		if msg.Amount > rec.Bond {
			return fmt.Errorf("%w: bond %d, withdraw %d", ErrInsufficientFunds, rec.Bond, msg.Amount)
		}
		rec.Bond -= msg.Amount
		if subject.AvailableBond, err = sub(subject.AvailableBond, msg.Amount); err != nil {
			return err
		}

		if rec.Bond == 0 {
			if err := o.txn.DeleteDefenderRecord(msg.SubjectID, subject.Round, msg.Signer); err != nil {
				return err
			}
			subject.DefenderCount--
		} else if err := o.txn.PutDefenderRecord(rec); err != nil {
			return err
		}
		if subject.AvailableBond == 0 {
			subject.Status = state.SubjectDormant
		}
		subject.UpdatedAt = o.now
		if err := o.txn.PutSubject(subject); err != nil {
			return err
		}

		esc, err := o.escrow(msg.SubjectID)
		if err != nil {
			return err
		}
		if esc.Balance, err = sub(esc.Balance, msg.Amount); err != nil {
			return err
		}
		if err := o.txn.PutEscrow(esc); err != nil {
			return err
		}
		if err := o.creditPool(state.RoleDefender, msg.Signer, msg.Amount); err != nil {
			return err
		}
		o.emit(Event{Type: EventBondWithdrawn, SubjectID: msg.SubjectID, Round: subject.Round, Actor: msg.Signer, Amount: msg.Amount})
		return nil
	})
}

// bondAtRisk is the part of the available bond exposed to a challenge of
// totalStake.
func bondAtRisk(s state.Subject, totalStake uint64) uint64 {
	if s.MatchMode {
		return min(totalStake, s.AvailableBond)
	}
	return s.AvailableBond
}
