package protocol

import (
	"context"
	"fmt"

	"github.com/eigerco/tribunal/internal/params"
	"github.com/eigerco/tribunal/internal/safemath"
	"github.com/eigerco/tribunal/internal/state"
)

// SweepRoundCreator lets the subject's creator take a round's unclaimed
// funds once the claim grace period has passed.
func (e *Engine) SweepRoundCreator(ctx context.Context, msg MsgSweepRoundCreator) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return e.apply(ctx, "sweep_round_creator", func(o *op) error {
		esc, idx, err := o.claimableResult(msg.SubjectID, msg.Round)
		if err != nil {
			return err
		}
		rr := &esc.Results[idx]
		if rr.Creator != msg.Signer {
			return fmt.Errorf("%w: %s", ErrNotCreator, msg.Signer)
		}
		if at := rr.ResolvedAt.Add(o.params.ClaimGracePeriod); o.now.Before(at) {
			return fmt.Errorf("%w: until %s", ErrGracePeriodActive, at)
		}
		amount, err := o.sweep(&esc, idx)
		if err != nil {
			return err
		}
		if err := o.creditAccount(msg.Signer, amount); err != nil {
			return err
		}
		if err := o.settle(&esc, idx); err != nil {
			return err
		}
		if err := o.txn.PutEscrow(esc); err != nil {
			return err
		}
		o.emit(Event{Type: EventRoundSwept, SubjectID: msg.SubjectID, Round: msg.Round, Actor: msg.Signer, Amount: amount})
		return nil
	})
}

// SweepRoundTreasury sends a round's unclaimed funds to the treasury once the
// treasury sweep period has passed. The caller keeps BotRewardBps of it.
func (e *Engine) SweepRoundTreasury(ctx context.Context, msg MsgSweepRoundTreasury) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return e.apply(ctx, "sweep_round_treasury", func(o *op) error {
		esc, idx, err := o.claimableResult(msg.SubjectID, msg.Round)
		if err != nil {
			return err
		}
		if at := esc.Results[idx].ResolvedAt.Add(o.params.TreasurySweepPeriod); o.now.Before(at) {
			return fmt.Errorf("%w: until %s", ErrGracePeriodActive, at)
		}
		amount, err := o.sweep(&esc, idx)
		if err != nil {
			return err
		}
		bot, err := safemath.MulDiv64(amount, o.params.BotRewardBps, params.BpsBase)
		if err != nil {
			return arith(err)
		}
		if err := o.creditAccount(msg.Signer, bot); err != nil {
			return err
		}
		if err := o.creditTreasury(amount - bot); err != nil {
			return err
		}
		if err := o.settle(&esc, idx); err != nil {
			return err
		}
		if err := o.txn.PutEscrow(esc); err != nil {
			return err
		}
		o.emit(Event{Type: EventRoundSwept, SubjectID: msg.SubjectID, Round: msg.Round, Actor: msg.Signer, Amount: amount})
		return nil
	})
}

// sweep empties a round result and marks it swept.
func (o *op) sweep(esc *state.Escrow, idx int) (uint64, error) {
	rr := &esc.Results[idx]
	amount := rr.Unclaimed
	if amount == 0 {
		return 0, ErrNothingToSweep
	}
	var err error
	if esc.Balance, err = sub(esc.Balance, amount); err != nil {
		return 0, err
	}
	rr.Unclaimed = 0
	rr.Swept = true
	return amount, nil
}

// settle removes the result at idx once it is settled. Rounding dust left
// in a fully claimed round goes to the treasury.
func (o *op) settle(esc *state.Escrow, idx int) error {
	rr := esc.Results[idx]
	if !rr.Settled() {
		return nil
	}
	if rr.Unclaimed > 0 {
		var err error
		if esc.Balance, err = sub(esc.Balance, rr.Unclaimed); err != nil {
			return err
		}
		if err := o.creditTreasury(rr.Unclaimed); err != nil {
			return err
		}
	}
	esc.Remove(idx)
	o.emit(Event{Type: EventRoundSettled, SubjectID: esc.SubjectID, Round: rr.Round, Amount: rr.Unclaimed, Outcome: rr.Outcome})
	return nil
}
