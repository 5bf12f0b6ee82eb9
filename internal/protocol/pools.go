package protocol

import (
	"context"
	"fmt"

	"github.com/eigerco/tribunal/internal/state"
)

// CreatePool registers a pool for the signer and funds it from the signer's
// account.
func (e *Engine) CreatePool(ctx context.Context, msg MsgCreatePool) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return e.apply(ctx, "create_pool", func(o *op) error {
		p, created, err := o.poolOrNew(msg.Role, msg.Signer)
		if err != nil {
			return err
		}
		if !created {
			return fmt.Errorf("%w: %s pool of %s", ErrPoolExists, msg.Role, msg.Signer)
		}
		if err := o.debitAccount(msg.Signer, msg.Amount); err != nil {
			return err
		}
		p.Balance = msg.Amount
		if err := o.txn.PutPool(p); err != nil {
			return err
		}
		o.emit(Event{Type: EventPoolCreated, Actor: msg.Signer, Role: msg.Role.String(), Amount: msg.Amount})
		return nil
	})
}

// Deposit moves funds from the signer's account into a pool, registering the
// pool on first use.
func (e *Engine) Deposit(ctx context.Context, msg MsgDeposit) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return e.apply(ctx, "deposit", func(o *op) error {
		if err := o.debitAccount(msg.Signer, msg.Amount); err != nil {
			return err
		}
		if err := o.creditPool(msg.Role, msg.Signer, msg.Amount); err != nil {
			return err
		}
		o.emit(Event{Type: EventPoolDeposit, Actor: msg.Signer, Role: msg.Role.String(), Amount: msg.Amount})
		return nil
	})
}

// Withdraw moves available (not held) pool funds back to the signer's account.
func (e *Engine) Withdraw(ctx context.Context, msg MsgWithdraw) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return e.apply(ctx, "withdraw", func(o *op) error {
		p, err := o.pool(msg.Role, msg.Signer)
		if err != nil {
			return err
		}
		if msg.Amount > p.Balance {
			return fmt.Errorf("%w: %s pool of %s holds %d, need %d",
				ErrInsufficientFunds, msg.Role, msg.Signer, p.Balance, msg.Amount)
		}
		p.Balance -= msg.Amount
		if err := o.txn.PutPool(p); err != nil {
			return err
		}
		if err := o.creditAccount(msg.Signer, msg.Amount); err != nil {
			return err
		}
		o.emit(Event{Type: EventPoolWithdraw, Actor: msg.Signer, Role: msg.Role.String(), Amount: msg.Amount})
		return nil
	})
}

// UpdateMaxBond sets the cap for automatic bond allocation from the
// signer's defender pool.
func (e *Engine) UpdateMaxBond(ctx context.Context, msg MsgUpdateMaxBond) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return e.apply(ctx, "update_max_bond", func(o *op) error {
		p, err := o.pool(state.RoleDefender, msg.Signer)
		if err != nil {
			return err
		}
		p.MaxBond = msg.MaxBond
		if err := o.txn.PutPool(p); err != nil {
			return err
		}
		o.emit(Event{Type: EventMaxBondUpdated, Actor: msg.Signer, Role: state.RoleDefender.String(), Amount: msg.MaxBond})
		return nil
	})
}
