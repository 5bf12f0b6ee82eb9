package protocol

import (
	"context"
	"errors"
	"fmt"

	"github.com/eigerco/tribunal/internal/bonding"
	"github.com/eigerco/tribunal/internal/state"
	"github.com/eigerco/tribunal/internal/store"
)

// Config returns the administrative configuration.
func (e *Engine) Config(ctx context.Context) (state.ProtocolConfig, error) {
	var c state.ProtocolConfig
	err := e.view(ctx, func(txn *store.Txn) (err error) {
		c, err = txn.Config()
		return err
	})
	return c, err
}

// Account returns an external account. Unknown owners hold nothing.
func (e *Engine) Account(ctx context.Context, owner state.Address) (state.Account, error) {
	a := state.Account{Owner: owner}
	err := e.view(ctx, func(txn *store.Txn) error {
		got, err := txn.Account(owner)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		a = got
		return err
	})
	return a, err
}

func (e *Engine) Pool(ctx context.Context, role state.Role, owner state.Address) (state.Pool, error) {
	var p state.Pool
	err := e.view(ctx, func(txn *store.Txn) (err error) {
		p, err = txn.Pool(role, owner)
		return notFound(err, ErrPoolNotFound)
	})
	return p, err
}

func (e *Engine) Subject(ctx context.Context, id state.SubjectID) (state.Subject, error) {
	var s state.Subject
	err := e.view(ctx, func(txn *store.Txn) (err error) {
		s, err = txn.Subject(id)
		return notFound(err, ErrSubjectNotFound)
	})
	return s, err
}

// Subjects lists every subject.
func (e *Engine) Subjects(ctx context.Context) ([]state.Subject, error) {
	var out []state.Subject
	err := e.view(ctx, func(txn *store.Txn) (err error) {
		out, err = txn.Subjects()
		return err
	})
	return out, err
}

func (e *Engine) Dispute(ctx context.Context, id state.SubjectID) (state.Dispute, error) {
	var d state.Dispute
	err := e.view(ctx, func(txn *store.Txn) (err error) {
		d, err = txn.Dispute(id)
		return notFound(err, ErrSubjectNotFound)
	})
	return d, err
}

func (e *Engine) Escrow(ctx context.Context, id state.SubjectID) (state.Escrow, error) {
	var es state.Escrow
	err := e.view(ctx, func(txn *store.Txn) (err error) {
		es, err = txn.Escrow(id)
		return notFound(err, ErrSubjectNotFound)
	})
	return es, err
}

func (e *Engine) DefenderRecord(ctx context.Context, id state.SubjectID, round uint64, owner state.Address) (state.DefenderRecord, error) {
	var r state.DefenderRecord
	err := e.view(ctx, func(txn *store.Txn) (err error) {
		r, err = txn.DefenderRecord(id, round, owner)
		return notFound(err, ErrRecordNotFound)
	})
	return r, err
}

func (e *Engine) ChallengerRecord(ctx context.Context, id state.SubjectID, round uint64, owner state.Address) (state.ChallengerRecord, error) {
	var r state.ChallengerRecord
	err := e.view(ctx, func(txn *store.Txn) (err error) {
		r, err = txn.ChallengerRecord(id, round, owner)
		return notFound(err, ErrRecordNotFound)
	})
	return r, err
}

func (e *Engine) JurorRecord(ctx context.Context, id state.SubjectID, round uint64, owner state.Address) (state.JurorRecord, error) {
	var r state.JurorRecord
	err := e.view(ctx, func(txn *store.Txn) (err error) {
		r, err = txn.JurorRecord(id, round, owner)
		return notFound(err, ErrRecordNotFound)
	})
	return r, err
}

// MinBond returns the stake the challenger must post to open or join a
// dispute right now.
func (e *Engine) MinBond(ctx context.Context, challenger state.Address) (uint64, error) {
	var bond uint64
	err := e.view(ctx, func(txn *store.Txn) error {
		rep := e.params.InitialReputation
		p, err := txn.Pool(state.RoleChallenger, challenger)
		switch {
		case err == nil:
			rep = p.Reputation
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
		bond, err = bonding.MinBond(rep, e.params.MinChallengerBond)
		return arith(err)
	})
	return bond, err
}

// Supply is the total of all funds known to the protocol. It only changes
// at genesis.
type Supply struct {
	Accounts uint64 `json:"accounts"`
	Pools    uint64 `json:"pools"`
	Held     uint64 `json:"held"`
	Escrows  uint64 `json:"escrows"`
}

// Total sums all parts of the supply.
func (s Supply) Total() (uint64, error) {
	total, err := add(s.Accounts, s.Pools)
	if err != nil {
		return 0, err
	}
	if total, err = add(total, s.Held); err != nil {
		return 0, err
	}
	return add(total, s.Escrows)
}

// Supply adds up every account, pool and escrow balance.
func (e *Engine) Supply(ctx context.Context) (Supply, error) {
	var s Supply
	err := e.view(ctx, func(txn *store.Txn) error {
		accounts, err := txn.Accounts()
		if err != nil {
			return err
		}
		for _, a := range accounts {
			if s.Accounts, err = add(s.Accounts, a.Balance); err != nil {
				return err
			}
		}
		pools, err := txn.Pools()
		if err != nil {
			return err
		}
		for _, p := range pools {
			if s.Pools, err = add(s.Pools, p.Balance); err != nil {
				return err
			}
			if s.Held, err = add(s.Held, p.Held); err != nil {
				return err
			}
		}
		escrows, err := txn.Escrows()
		if err != nil {
			return err
		}
		for _, es := range escrows {
			if s.Escrows, err = add(s.Escrows, es.Balance); err != nil {
				return err
			}
		}
		return nil
	})
	return s, err
}

func notFound(err, target error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %w", target, err)
	}
	return err
}
