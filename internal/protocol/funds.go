package protocol

import (
	"errors"
	"fmt"

	"github.com/eigerco/tribunal/internal/params"
	"github.com/eigerco/tribunal/internal/state"
	"github.com/eigerco/tribunal/internal/store"
)

// Funds move between three places: external accounts, role pools and
// subject escrows. The helpers below are the only code that changes a
// balance; callers run every check before calling them.

func (o *op) account(owner state.Address) (state.Account, error) {
	a, err := o.txn.Account(owner)
	if errors.Is(err, store.ErrNotFound) {
		return state.Account{Owner: owner}, nil
	}
	return a, err
}

func (o *op) debitAccount(owner state.Address, amount uint64) error {
	a, err := o.account(owner)
	if err != nil {
		return err
	}
	if amount > a.Balance {
		return fmt.Errorf("%w: account %s holds %d, need %d", ErrInsufficientFunds, owner, a.Balance, amount)
	}
	a.Balance -= amount
	return o.txn.PutAccount(a)
}

func (o *op) creditAccount(owner state.Address, amount uint64) error {
	a, err := o.account(owner)
	if err != nil {
		return err
	}
	if a.Balance, err = add(a.Balance, amount); err != nil {
		return err
	}
	return o.txn.PutAccount(a)
}

func (o *op) creditTreasury(amount uint64) error {
	if amount == 0 {
		return nil
	}
	cfg, err := o.txn.Config()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return o.creditAccount(cfg.Treasury, amount)
}

func (o *op) pool(role state.Role, owner state.Address) (state.Pool, error) {
	p, err := o.txn.Pool(role, owner)
	if errors.Is(err, store.ErrNotFound) {
		return state.Pool{}, fmt.Errorf("%w: %s pool of %s", ErrPoolNotFound, role, owner)
	}
	return p, err
}

// poolOrNew loads a pool, registering it with the initial reputation if the
// owner has none yet.
func (o *op) poolOrNew(role state.Role, owner state.Address) (state.Pool, bool, error) {
	p, err := o.txn.Pool(role, owner)
	if errors.Is(err, store.ErrNotFound) {
		return state.Pool{
			Owner:      owner,
			Role:       role,
			Reputation: o.params.InitialReputation,
			CreatedAt:  o.now,
		}, true, nil
	}
	return p, false, err
}

func (o *op) creditPool(role state.Role, owner state.Address, amount uint64) error {
	p, _, err := o.poolOrNew(role, owner)
	if err != nil {
		return err
	}
	if p.Balance, err = add(p.Balance, amount); err != nil {
		return err
	}
	return o.txn.PutPool(p)
}

// reputation returns the owner's reputation for role. Owners without a pool
// count as newly registered.
func (o *op) reputation(role state.Role, owner state.Address) (uint64, error) {
	p, _, err := o.poolOrNew(role, owner)
	return p.Reputation, err
}

// pay takes amount from the payer according to source.
func (o *op) pay(source state.FundingSource, role state.Role, payer state.Address, amount uint64) error {
	switch source {
	case state.FundDirect:
		return o.debitAccount(payer, amount)
	case state.FundPool:
		p, err := o.pool(role, payer)
		if err != nil {
			return err
		}
		if amount > p.Balance {
			return fmt.Errorf("%w: %s pool of %s holds %d, need %d", ErrInsufficientFunds, role, payer, p.Balance, amount)
		}
		p.Balance -= amount
		return o.txn.PutPool(p)
	default:
		return ErrInvalidFundingSource
	}
}

// holdForDispute locks juror stake so it cannot be withdrawn while voting.
func (o *op) holdForDispute(p *state.Pool, amount uint64) error {
	if amount > p.Balance {
		return fmt.Errorf("%w: juror pool of %s holds %d, need %d", ErrInsufficientFunds, p.Owner, p.Balance, amount)
	}
	held, err := add(p.Held, amount)
	if err != nil {
		return err
	}
	p.Balance -= amount
	p.Held = held
	return nil
}

// releaseFromDispute returns locked juror stake to the available balance.
func (o *op) releaseFromDispute(p *state.Pool, amount uint64) error {
	if amount > p.Held {
		return fmt.Errorf("%w: release %d of %d held", ErrArithmeticOverflow, amount, p.Held)
	}
	balance, err := add(p.Balance, amount)
	if err != nil {
		return err
	}
	p.Held -= amount
	p.Balance = balance
	return nil
}

// adjustReputation applies a gain or a loss, saturating at 0 and max.
func adjustReputation(rep uint64, correct bool, p params.Params) uint64 {
	if correct {
		if rep >= p.MaxReputation || p.MaxReputation-rep <= p.ReputationGainRate {
			return p.MaxReputation
		}
		return rep + p.ReputationGainRate
	}
	if rep <= p.ReputationLossRate {
		return 0
	}
	return rep - p.ReputationLossRate
}

func (o *op) subject(id state.SubjectID) (state.Subject, error) {
	s, err := o.txn.Subject(id)
	if errors.Is(err, store.ErrNotFound) {
		return state.Subject{}, fmt.Errorf("%w: %s", ErrSubjectNotFound, id)
	}
	return s, err
}

func (o *op) dispute(id state.SubjectID) (state.Dispute, error) {
	d, err := o.txn.Dispute(id)
	if errors.Is(err, store.ErrNotFound) {
		return state.Dispute{}, fmt.Errorf("%w: %s", ErrSubjectNotFound, id)
	}
	return d, err
}

func (o *op) escrow(id state.SubjectID) (state.Escrow, error) {
	e, err := o.txn.Escrow(id)
	if errors.Is(err, store.ErrNotFound) {
		return state.Escrow{}, fmt.Errorf("%w: %s", ErrSubjectNotFound, id)
	}
	return e, err
}

// pendingDispute loads the dispute slot and requires a pending dispute.
func (o *op) pendingDispute(id state.SubjectID) (state.Dispute, error) {
	d, err := o.dispute(id)
	if err != nil {
		return state.Dispute{}, err
	}
	if d.Status != state.DisputePending {
		return state.Dispute{}, fmt.Errorf("%w: %s", ErrNoPendingDispute, id)
	}
	return d, nil
}

// intoEscrow adds amount to the subject's escrow balance.
func (o *op) intoEscrow(id state.SubjectID, amount uint64) error {
	e, err := o.escrow(id)
	if err != nil {
		return err
	}
	if e.Balance, err = add(e.Balance, amount); err != nil {
		return err
	}
	return o.txn.PutEscrow(e)
}
