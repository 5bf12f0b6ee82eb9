package protocol

import (
	"context"
	"errors"
	"fmt"

	"github.com/eigerco/tribunal/internal/rewards"
	"github.com/eigerco/tribunal/internal/state"
	"github.com/eigerco/tribunal/internal/store"
)

// ClaimJuror pays a juror's share of the juror pool into their juror pool.
func (e *Engine) ClaimJuror(ctx context.Context, msg MsgClaimJuror) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return e.apply(ctx, "claim_juror", func(o *op) error {
		rec, err := o.txn.JurorRecord(msg.SubjectID, msg.Round, msg.Signer)
		if err != nil {
			return recordErr(err)
		}
		if rec.RewardClaimed {
			return fmt.Errorf("%w: juror %s round %d", ErrAlreadyClaimed, msg.Signer, msg.Round)
		}
		esc, idx, err := o.claimableResult(msg.SubjectID, msg.Round)
		if err != nil {
			return err
		}
		rr := &esc.Results[idx]
		amount, err := rewards.JurorReward(*rr, rec.VotingPower)
		if err != nil {
			return arith(err)
		}
		if amount == 0 {
			return ErrNothingToClaim
		}
		if err := o.payClaim(&esc, idx, state.RoleJuror, msg.Signer, amount); err != nil {
			return err
		}
		rr.JurorsClaimed++
		rec.RewardClaimed = true
		if err := o.txn.PutJurorRecord(rec); err != nil {
			return err
		}
		return o.finishClaim(&esc, idx, msg.RoundRef, state.RoleJuror, amount)
	})
}

// ClaimChallenger pays a challenger's (or restorer's) share of the winner
// pool into their challenger pool.
func (e *Engine) ClaimChallenger(ctx context.Context, msg MsgClaimChallenger) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return e.apply(ctx, "claim_challenger", func(o *op) error {
		rec, err := o.txn.ChallengerRecord(msg.SubjectID, msg.Round, msg.Signer)
		if err != nil {
			return recordErr(err)
		}
		if rec.RewardClaimed {
			return fmt.Errorf("%w: challenger %s round %d", ErrAlreadyClaimed, msg.Signer, msg.Round)
		}
		esc, idx, err := o.claimableResult(msg.SubjectID, msg.Round)
		if err != nil {
			return err
		}
		rr := &esc.Results[idx]
		amount, err := rewards.ChallengerReward(*rr, rec.Stake)
		if err != nil {
			return arith(err)
		}
		if amount == 0 {
			if rr.Outcome == state.OutcomeDefenderWins {
				return ErrNotWinningSide
			}
			return ErrNothingToClaim
		}
		if err := o.payClaim(&esc, idx, state.RoleChallenger, msg.Signer, amount); err != nil {
			return err
		}
		rr.ChallengersClaimed++
		rec.RewardClaimed = true
		if err := o.txn.PutChallengerRecord(rec); err != nil {
			return err
		}
		return o.finishClaim(&esc, idx, msg.RoundRef, state.RoleChallenger, amount)
	})
}

// ClaimDefender pays a defender's winnings, or after a lost dispute the
// safe part of their bond, into their defender pool.
func (e *Engine) ClaimDefender(ctx context.Context, msg MsgClaimDefender) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return e.apply(ctx, "claim_defender", func(o *op) error {
		rec, err := o.txn.DefenderRecord(msg.SubjectID, msg.Round, msg.Signer)
		if err != nil {
			return recordErr(err)
		}
		if rec.RewardClaimed {
			return fmt.Errorf("%w: defender %s round %d", ErrAlreadyClaimed, msg.Signer, msg.Round)
		}
		esc, idx, err := o.claimableResult(msg.SubjectID, msg.Round)
		if err != nil {
			return err
		}
		rr := &esc.Results[idx]
		share, err := rewards.DefenderReward(*rr, rec.Bond)
		if err != nil {
			return arith(err)
		}
		amount, err := share.Total()
		if err != nil {
			return arith(err)
		}
		if amount == 0 {
			if rr.Outcome == state.OutcomeChallengerWins {
				return ErrNotWinningSide
			}
			return ErrNothingToClaim
		}
		if err := o.payClaim(&esc, idx, state.RoleDefender, msg.Signer, amount); err != nil {
			return err
		}
		rr.DefendersClaimed++
		rec.RewardClaimed = true
		if err := o.txn.PutDefenderRecord(rec); err != nil {
			return err
		}
		return o.finishClaim(&esc, idx, msg.RoundRef, state.RoleDefender, amount)
	})
}

// UnlockJurorStake releases a juror's locked stake once the unlock buffer
// after resolution has passed, and applies the vote's reputation change.
func (e *Engine) UnlockJurorStake(ctx context.Context, msg MsgUnlockJurorStake) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return e.apply(ctx, "unlock_juror_stake", func(o *op) error {
		rec, err := o.txn.JurorRecord(msg.SubjectID, msg.Round, msg.Signer)
		if err != nil {
			return recordErr(err)
		}
		if rec.StakeUnlocked {
			return fmt.Errorf("%w: juror %s round %d", ErrAlreadyUnlocked, msg.Signer, msg.Round)
		}
		esc, idx, err := o.roundResult(msg.SubjectID, msg.Round)
		if err != nil {
			return err
		}
		rr := &esc.Results[idx]
		unlockAt := rr.ResolvedAt.Add(o.params.StakeUnlockBuffer)
		if o.now.Before(unlockAt) {
			return fmt.Errorf("%w: until %s", ErrStakeLocked, unlockAt)
		}

		pool, err := o.pool(state.RoleJuror, msg.Signer)
		if err != nil {
			return err
		}
		if err := o.releaseFromDispute(&pool, rec.StakeAllocation); err != nil {
			return err
		}
		switch rr.Outcome {
		case state.OutcomeChallengerWins:
			pool.Reputation = adjustReputation(pool.Reputation, rec.Choice == state.VoteForChallenger, o.params)
		case state.OutcomeDefenderWins:
			pool.Reputation = adjustReputation(pool.Reputation, rec.Choice == state.VoteForDefender, o.params)
		case state.OutcomeNoParticipation:
		default:
			panic(fmt.Sprintf("unknown outcome %d", rr.Outcome))
		}
		if err := o.txn.PutPool(pool); err != nil {
			return err
		}

		rr.JurorsUnlocked++
		rec.StakeUnlocked = true
		if err := o.txn.PutJurorRecord(rec); err != nil {
			return err
		}
		if err := o.settle(&esc, idx); err != nil {
			return err
		}
		if err := o.txn.PutEscrow(esc); err != nil {
			return err
		}
		o.emit(Event{Type: EventStakeUnlocked, SubjectID: msg.SubjectID, Round: msg.Round, Actor: msg.Signer, Amount: rec.StakeAllocation})
		return nil
	})
}

// CloseRecord deletes a settled record of the signer. A record is settled
// once its reward is claimed, or its round was swept, or it never had
// anything to claim; juror records must also have their stake unlocked.
// Records of the current round back the live subject and stay open.
func (e *Engine) CloseRecord(ctx context.Context, msg MsgCloseRecord) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return e.apply(ctx, "close_record", func(o *op) error {
		var (
			claimed bool
			payout  func(state.RoundResult) (uint64, error)
			remove  func() error
		)
		id, round, owner := msg.SubjectID, msg.Round, msg.Signer
		switch msg.Role {
		case state.RoleDefender:
			rec, err := o.txn.DefenderRecord(id, round, owner)
			if err != nil {
				return recordErr(err)
			}
			claimed = rec.RewardClaimed
			payout = func(rr state.RoundResult) (uint64, error) {
				share, err := rewards.DefenderReward(rr, rec.Bond)
				if err != nil {
					return 0, err
				}
				return share.Total()
			}
			remove = func() error { return o.txn.DeleteDefenderRecord(id, round, owner) }
		case state.RoleChallenger:
			rec, err := o.txn.ChallengerRecord(id, round, owner)
			if err != nil {
				return recordErr(err)
			}
			claimed = rec.RewardClaimed
			payout = func(rr state.RoundResult) (uint64, error) { return rewards.ChallengerReward(rr, rec.Stake) }
			remove = func() error { return o.txn.DeleteChallengerRecord(id, round, owner) }
		case state.RoleJuror:
			rec, err := o.txn.JurorRecord(id, round, owner)
			if err != nil {
				return recordErr(err)
			}
			if !rec.StakeUnlocked {
				return fmt.Errorf("%w: juror %s round %d", ErrStakeNotUnlocked, owner, round)
			}
			claimed = rec.RewardClaimed
			payout = func(rr state.RoundResult) (uint64, error) { return rewards.JurorReward(rr, rec.VotingPower) }
			remove = func() error { return o.txn.DeleteJurorRecord(id, round, owner) }
		default:
			return ErrInvalidRole
		}

		if !claimed {
			subject, err := o.subject(id)
			if err != nil {
				return err
			}
			if round >= subject.Round {
				return fmt.Errorf("%w: round %d is still open", ErrNotClaimed, round)
			}
			esc, err := o.escrow(id)
			if err != nil {
				return err
			}
			// A removed round result means every payout was made.
			if idx := esc.Result(round); idx >= 0 && !esc.Results[idx].Swept {
				amount, err := payout(esc.Results[idx])
				if err != nil {
					return arith(err)
				}
				if amount > 0 {
					return fmt.Errorf("%w: %d still claimable", ErrNotClaimed, amount)
				}
			}
		}

		if err := remove(); err != nil {
			return err
		}
		o.emit(Event{Type: EventRecordClosed, SubjectID: id, Round: round, Actor: owner, Role: msg.Role.String()})
		return nil
	})
}

func recordErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrRecordNotFound
	}
	return err
}

// roundResult loads the escrow and locates the result of round.
func (o *op) roundResult(id state.SubjectID, round uint64) (state.Escrow, int, error) {
	esc, err := o.escrow(id)
	if err != nil {
		return state.Escrow{}, 0, err
	}
	idx := esc.Result(round)
	if idx < 0 {
		return state.Escrow{}, 0, fmt.Errorf("%w: %s round %d", ErrRoundNotFound, id, round)
	}
	return esc, idx, nil
}

// claimableResult is roundResult for rounds that have not been swept.
func (o *op) claimableResult(id state.SubjectID, round uint64) (state.Escrow, int, error) {
	esc, idx, err := o.roundResult(id, round)
	if err != nil {
		return state.Escrow{}, 0, err
	}
	if esc.Results[idx].Swept {
		return state.Escrow{}, 0, fmt.Errorf("%w: %s round %d", ErrRoundSwept, id, round)
	}
	return esc, idx, nil
}

// payClaim moves amount of a round's unclaimed funds out of escrow into the
// claimant's pool.
func (o *op) payClaim(esc *state.Escrow, idx int, role state.Role, claimant state.Address, amount uint64) error {
	rr := &esc.Results[idx]
	var err error
	if rr.Unclaimed, err = sub(rr.Unclaimed, amount); err != nil {
		return err
	}
	if esc.Balance, err = sub(esc.Balance, amount); err != nil {
		return err
	}
	return o.creditPool(role, claimant, amount)
}

func (o *op) finishClaim(esc *state.Escrow, idx int, ref RoundRef, role state.Role, amount uint64) error {
	if err := o.settle(esc, idx); err != nil {
		return err
	}
	if err := o.txn.PutEscrow(*esc); err != nil {
		return err
	}
	o.emit(Event{
		Type:      EventRewardClaimed,
		SubjectID: ref.SubjectID,
		Round:     ref.Round,
		Actor:     ref.Signer,
		Role:      role.String(),
		Amount:    amount,
	})
	return nil
}
