package protocol

import (
	"context"
	"fmt"

	"github.com/eigerco/tribunal/internal/state"
)

// SubmitRestore opens a restoration vote on an invalid subject. The stake
// must cover the contested total of the dispute that ended last, and the
// vote runs for twice that dispute's voting period. Restorations cannot be
// joined.
func (e *Engine) SubmitRestore(ctx context.Context, msg MsgSubmitRestore) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return e.apply(ctx, "submit_restore", func(o *op) error {
		subject, err := o.subject(msg.SubjectID)
		if err != nil {
			return err
		}
		switch subject.Status {
		case state.SubjectInvalid:
		case state.SubjectRestoring, state.SubjectDisputed:
			return fmt.Errorf("%w: %s", ErrDisputeExists, msg.SubjectID)
		case state.SubjectDormant, state.SubjectValid:
			return fmt.Errorf("%w: cannot restore %s subject", ErrInvalidSubjectState, subject.Status)
		default:
			panic(fmt.Sprintf("unknown subject status %d", subject.Status))
		}
		if subject.LastVotingPeriod <= 0 {
			return fmt.Errorf("%w: %s has no resolved dispute", ErrRestoreNotAvailable, msg.SubjectID)
		}
		if msg.Stake < subject.LastDisputeTotal {
			return fmt.Errorf("%w: stake %d < %d", ErrRestoreStakeTooLow, msg.Stake, subject.LastDisputeTotal)
		}
		d, err := o.dispute(msg.SubjectID)
		if err != nil {
			return err
		}
		if d.Status == state.DisputePending {
			return fmt.Errorf("%w: %s", ErrDisputeExists, msg.SubjectID)
		}
		if err := o.pay(msg.Source, state.RoleChallenger, msg.Signer, msg.Stake); err != nil {
			return err
		}
		if err := o.registerChallenger(msg.Signer); err != nil {
			return err
		}

		period := min(2*subject.LastVotingPeriod, o.params.MaxVotingPeriod)
		d = state.Dispute{
			SubjectID:       msg.SubjectID,
			Round:           subject.Round,
			Status:          state.DisputePending,
			Type:            msg.DisputeType,
			TotalStake:      msg.Stake,
			ChallengerCount: 1,
			DefenderCount:   subject.DefenderCount,
			VotingStartsAt:  o.now,
			VotingEndsAt:    o.now.Add(period),
			IsRestore:       true,
			RestoreStake:    msg.Stake,
			Restorer:        msg.Signer,
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

		subject.Status = state.SubjectRestoring
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
		o.emit(Event{Type: EventRestoreSubmitted, SubjectID: msg.SubjectID, Round: d.Round, Actor: msg.Signer, Amount: msg.Stake})
		return nil
	})
}
