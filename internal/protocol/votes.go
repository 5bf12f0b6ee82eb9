package protocol

import (
	"context"
	"errors"
	"fmt"

	"github.com/eigerco/tribunal/internal/bonding"
	"github.com/eigerco/tribunal/internal/state"
	"github.com/eigerco/tribunal/internal/store"
)

// VoteOnDispute locks juror stake behind a side of a pending regular dispute.
func (e *Engine) VoteOnDispute(ctx context.Context, msg MsgVoteOnDispute) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return e.apply(ctx, "vote_on_dispute", func(o *op) error {
		return o.castVote(msg.Signer, msg.SubjectID, msg.Choice, false, msg.Stake, msg.Rationale)
	})
}

// VoteOnRestore locks juror stake for or against a pending restoration.
func (e *Engine) VoteOnRestore(ctx context.Context, msg MsgVoteOnRestore) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return e.apply(ctx, "vote_on_restore", func(o *op) error {
		return o.castVote(msg.Signer, msg.SubjectID, msg.Choice.Side(), true, msg.Stake, msg.Rationale)
	})
}

func (o *op) castVote(juror state.Address, id state.SubjectID, side state.VoteChoice, restore bool, stake uint64, rationale string) error {
	d, err := o.pendingDispute(id)
	if err != nil {
		return err
	}
	switch {
	case restore && !d.IsRestore:
		return fmt.Errorf("%w: %s", ErrNotRestoreDispute, id)
	case !restore && d.IsRestore:
		return fmt.Errorf("%w: use a restore vote on %s", ErrRestoreDispute, id)
	}
	if !d.VotingOpen(o.now) {
		return fmt.Errorf("%w: window is [%s, %s)", ErrVotingClosed, d.VotingStartsAt, d.VotingEndsAt)
	}
	if _, err := o.txn.JurorRecord(id, d.Round, juror); err == nil {
		return fmt.Errorf("%w: %s in round %d", ErrAlreadyVoted, juror, d.Round)
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if stake < o.params.MinJurorStake {
		return fmt.Errorf("%w: juror stake %d < %d", ErrBelowMinimum, stake, o.params.MinJurorStake)
	}

	pool, err := o.pool(state.RoleJuror, juror)
	if err != nil {
		return err
	}
	if err := o.holdForDispute(&pool, stake); err != nil {
		return err
	}
	power, err := bonding.VotingPower(stake, pool.Reputation)
	if err != nil {
		return arith(err)
	}
	if err := tally(&d, side, power); err != nil {
		return err
	}
	if d.VoteCount, err = inc(d.VoteCount); err != nil {
		return err
	}

	err = o.txn.PutJurorRecord(state.JurorRecord{
		SubjectID:       id,
		Juror:           juror,
		Round:           d.Round,
		Choice:          side,
		IsRestoreVote:   restore,
		StakeAllocation: stake,
		VotingPower:     power,
		Rationale:       rationale,
		VotedAt:         o.now,
	})
	if err != nil {
		return err
	}
	if err := o.txn.PutPool(pool); err != nil {
		return err
	}
	if err := o.txn.PutDispute(d); err != nil {
		return err
	}
	o.emit(Event{Type: EventVoteCast, SubjectID: id, Round: d.Round, Actor: juror, Amount: stake})
	return nil
}

// AddToVote tops up an existing vote before the window closes. The extra
// stake is weighted by the juror's current reputation.
func (e *Engine) AddToVote(ctx context.Context, msg MsgAddToVote) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return e.apply(ctx, "add_to_vote", func(o *op) error {
		d, err := o.pendingDispute(msg.SubjectID)
		if err != nil {
			return err
		}
		if !d.VotingOpen(o.now) {
			return fmt.Errorf("%w: window is [%s, %s)", ErrVotingClosed, d.VotingStartsAt, d.VotingEndsAt)
		}
		rec, err := o.txn.JurorRecord(msg.SubjectID, d.Round, msg.Signer)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s in round %d", ErrNotVoted, msg.Signer, d.Round)
		}
		if err != nil {
			return err
		}

		pool, err := o.pool(state.RoleJuror, msg.Signer)
		if err != nil {
			return err
		}
		if err := o.holdForDispute(&pool, msg.Stake); err != nil {
			return err
		}
		power, err := bonding.VotingPower(msg.Stake, pool.Reputation)
		if err != nil {
			return arith(err)
		}
		if err := tally(&d, rec.Choice, power); err != nil {
			return err
		}
		if rec.StakeAllocation, err = add(rec.StakeAllocation, msg.Stake); err != nil {
			return err
		}
		if rec.VotingPower, err = add(rec.VotingPower, power); err != nil {
			return err
		}

		if err := o.txn.PutJurorRecord(rec); err != nil {
			return err
		}
		if err := o.txn.PutPool(pool); err != nil {
			return err
		}
		if err := o.txn.PutDispute(d); err != nil {
			return err
		}
		o.emit(Event{Type: EventVoteIncreased, SubjectID: msg.SubjectID, Round: d.Round, Actor: msg.Signer, Amount: msg.Stake})
		return nil
	})
}

func tally(d *state.Dispute, side state.VoteChoice, power uint64) error {
	var err error
	switch side {
	case state.VoteForChallenger:
		d.VotesForChallenger, err = add(d.VotesForChallenger, power)
	case state.VoteForDefender:
		d.VotesForDefender, err = add(d.VotesForDefender, power)
	default:
		panic(fmt.Sprintf("unknown vote choice %d", side))
	}
	if err != nil {
		return err
	}
	// Both tallies must stay summable for the round result.
	if _, ok := d.TotalVoteWeight(); !ok {
		return ErrArithmeticOverflow
	}
	return nil
}
