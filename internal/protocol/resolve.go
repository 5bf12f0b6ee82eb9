package protocol

import (
	"context"
	"fmt"
	"time"

	"github.com/eigerco/tribunal/internal/rewards"
	"github.com/eigerco/tribunal/internal/state"
)

// ResolveDispute settles a pending dispute once its voting window has
// passed. Anyone may call it.
//
// The contested pool (total stake plus bond at risk) is split into the
// winner pool, the juror pool and the platform fee; the fee is paid to the
// treasury at once and the rest stays in escrow under a new round result.
// The subject always moves to the next round.
func (e *Engine) ResolveDispute(ctx context.Context, msg MsgResolveDispute) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	var resolved state.RoundResult
	err := e.apply(ctx, "resolve_dispute", func(o *op) error {
		rr, err := o.resolve(msg.SubjectID)
		resolved = rr
		return err
	})
	if err != nil {
		return err
	}
	e.log.Info().
		Str("subject", string(msg.SubjectID)).
		Uint64("round", resolved.Round).
		Stringer("outcome", resolved.Outcome).
		Bool("restore", resolved.IsRestore).
		Uint64("winner_pool", resolved.WinnerPool).
		Uint64("juror_pool", resolved.JurorPool).
		Uint64("platform_fee", resolved.PlatformFee).
		Msg("dispute resolved")
	return nil
}

func (o *op) resolve(id state.SubjectID) (state.RoundResult, error) {
	d, err := o.pendingDispute(id)
	if err != nil {
		return state.RoundResult{}, err
	}
	if o.now.Before(d.VotingEndsAt) {
		return state.RoundResult{}, fmt.Errorf("%w: ends at %s", ErrVotingNotEnded, d.VotingEndsAt)
	}
	subject, err := o.subject(id)
	if err != nil {
		return state.RoundResult{}, err
	}

	outcome := decideOutcome(d)
	contested, err := add(d.TotalStake, d.BondAtRisk)
	if err != nil {
		return state.RoundResult{}, err
	}
	split, err := rewards.ResolutionSplit(o.params, contested, outcome, d.IsRestore)
	if err != nil {
		return state.RoundResult{}, arith(err)
	}
	safe, err := sub(subject.AvailableBond, d.BondAtRisk)
	if err != nil {
		return state.RoundResult{}, err
	}
	weight, ok := d.TotalVoteWeight()
	if !ok {
		return state.RoundResult{}, ErrArithmeticOverflow
	}

	rr := state.RoundResult{
		Round:           d.Round,
		Creator:         subject.Creator,
		ResolvedAt:      o.now,
		Outcome:         outcome,
		IsRestore:       d.IsRestore,
		TotalStake:      d.TotalStake,
		BondAtRisk:      d.BondAtRisk,
		SafeBond:        safe,
		TotalVoteWeight: weight,
		WinnerPool:      split.Winner,
		JurorPool:       split.Juror,
		PlatformFee:     split.Platform,
	}
	if rr.Unclaimed, err = add(split.Winner, split.Juror); err != nil {
		return state.RoundResult{}, err
	}

	defenders, err := o.txn.DefenderRecords(id, d.Round)
	if err != nil {
		return state.RoundResult{}, err
	}
	challengers, err := o.txn.ChallengerRecords(id, d.Round)
	if err != nil {
		return state.RoundResult{}, err
	}
	jurors, err := o.txn.JurorRecords(id, d.Round)
	if err != nil {
		return state.RoundResult{}, err
	}
	if err := countClaimants(&rr, defenders, challengers, jurors); err != nil {
		return state.RoundResult{}, err
	}

	switch outcome {
	case state.OutcomeChallengerWins:
		if d.IsRestore {
			subject.Status = state.SubjectValid
			break
		}
		// The safe bond stays in escrow for the defenders to claim.
		if rr.Unclaimed, err = add(rr.Unclaimed, safe); err != nil {
			return state.RoundResult{}, err
		}
		subject.Status = state.SubjectInvalid
		subject.AvailableBond = 0
		subject.DefenderCount = 0
	case state.OutcomeDefenderWins, state.OutcomeNoParticipation:
		if d.IsRestore {
			subject.Status = state.SubjectInvalid
			break
		}
		if err := o.carrySafeBond(&subject, defenders, safe); err != nil {
			return state.RoundResult{}, err
		}
		subject.Status = state.SubjectValid
	default:
		panic(fmt.Sprintf("unknown outcome %d", outcome))
	}

	if err := o.updateChallengerReputation(challengers, outcome); err != nil {
		return state.RoundResult{}, err
	}

	esc, err := o.escrow(id)
	if err != nil {
		return state.RoundResult{}, err
	}
	if esc.Balance, err = sub(esc.Balance, split.Platform); err != nil {
		return state.RoundResult{}, err
	}
	esc.Results = append(esc.Results, rr)
	if err := o.creditTreasury(split.Platform); err != nil {
		return state.RoundResult{}, err
	}
	if err := o.settle(&esc, len(esc.Results)-1); err != nil {
		return state.RoundResult{}, err
	}
	if err := o.txn.PutEscrow(esc); err != nil {
		return state.RoundResult{}, err
	}

	d.Status = state.DisputeResolved
	d.Outcome = outcome
	d.ResolvedAt = o.now
	if err := o.txn.PutDispute(d); err != nil {
		return state.RoundResult{}, err
	}

	subject.Round++
	subject.ActiveDispute = false
	subject.LastDisputeTotal = contested
	subject.LastVotingPeriod = time.Duration(d.VotingEndsAt-d.VotingStartsAt) * time.Second
	subject.UpdatedAt = o.now
	if err := o.txn.PutSubject(subject); err != nil {
		return state.RoundResult{}, err
	}

	o.emit(Event{
		Type:      EventDisputeResolved,
		SubjectID: id,
		Round:     d.Round,
		Amount:    contested,
		Outcome:   outcome,
	})
	return rr, nil
}

// decideOutcome applies the vote rule. Equal non-zero tallies keep the
// subject as it is: the defender (or, for a restoration, the side against
// it) wins.
func decideOutcome(d state.Dispute) state.Outcome {
	switch {
	case d.VoteCount == 0:
		return state.OutcomeNoParticipation
	case d.VotesForChallenger > d.VotesForDefender:
		return state.OutcomeChallengerWins
	default:
		return state.OutcomeDefenderWins
	}
}

// countClaimants records how many participants of each role have a positive
// payout, and how many jurors have stake to unlock.
func countClaimants(rr *state.RoundResult, defenders []state.DefenderRecord, challengers []state.ChallengerRecord, jurors []state.JurorRecord) error {
	for _, rec := range defenders {
		share, err := rewards.DefenderReward(*rr, rec.Bond)
		if err != nil {
			return arith(err)
		}
		total, err := share.Total()
		if err != nil {
			return arith(err)
		}
		if total > 0 {
			rr.DefenderCount++
		}
	}
	for _, rec := range challengers {
		reward, err := rewards.ChallengerReward(*rr, rec.Stake)
		if err != nil {
			return arith(err)
		}
		if reward > 0 {
			rr.ChallengerCount++
		}
	}
	for _, rec := range jurors {
		reward, err := rewards.JurorReward(*rr, rec.VotingPower)
		if err != nil {
			return arith(err)
		}
		if reward > 0 {
			rr.JurorCount++
		}
	}
	rr.VoterCount = uint32(len(jurors))
	return nil
}

// carrySafeBond moves the bond that was not at risk into the next round,
// split across the round's defenders in proportion to their bonds.
func (o *op) carrySafeBond(subject *state.Subject, defenders []state.DefenderRecord, safe uint64) error {
	bonds := make([]uint64, len(defenders))
	for i, rec := range defenders {
		bonds[i] = rec.Bond
	}
	shares, err := rewards.SafeShares(bonds, safe)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrArithmeticOverflow, err)
	}

	next := subject.Round + 1
	var count uint32
	for i, rec := range defenders {
		if shares[i] == 0 {
			continue
		}
		err := o.txn.PutDefenderRecord(state.DefenderRecord{
			SubjectID: subject.ID,
			Defender:  rec.Defender,
			Round:     next,
			Bond:      shares[i],
			BondedAt:  o.now,
		})
		if err != nil {
			return err
		}
		count++
		o.emit(Event{Type: EventBondCarried, SubjectID: subject.ID, Round: next, Actor: rec.Defender, Amount: shares[i]})
	}
	subject.AvailableBond = safe
	subject.DefenderCount = count
	return nil
}

// updateChallengerReputation rewards challengers of a successful dispute
// and penalises those of a failed one. Without votes nothing changes.
func (o *op) updateChallengerReputation(challengers []state.ChallengerRecord, outcome state.Outcome) error {
	var correct bool
	switch outcome {
	case state.OutcomeChallengerWins:
		correct = true
	case state.OutcomeDefenderWins:
		correct = false
	case state.OutcomeNoParticipation:
		return nil
	default:
		panic(fmt.Sprintf("unknown outcome %d", outcome))
	}
	for _, rec := range challengers {
		p, _, err := o.poolOrNew(state.RoleChallenger, rec.Challenger)
		if err != nil {
			return err
		}
		p.Reputation = adjustReputation(p.Reputation, correct, o.params)
		if err := o.txn.PutPool(p); err != nil {
			return err
		}
	}
	return nil
}
