// Package protocol implements the dispute arbitration engine: stake pools,
// subjects, the dispute state machine and the escrow ledger that settles
// resolved rounds.
//
// Every operation runs against a store transaction and either commits all
// of its effects or none of them. Operations are serialised by the engine.
package protocol

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/eigerco/tribunal/internal/clock"
	"github.com/eigerco/tribunal/internal/params"
	"github.com/eigerco/tribunal/internal/state"
	"github.com/eigerco/tribunal/internal/store"
	"github.com/eigerco/tribunal/pkg/log"
)

// Engine applies protocol operations to a store.
type Engine struct {
	mu       sync.RWMutex
	store    *store.Store
	clock    clock.Clock
	log      zerolog.Logger
	observer Observer

	params      params.Params
	initialized bool
}

type Option func(*Engine)

// WithClock sets the time source used for all time gating.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger overrides the protocol component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithObserver sets the receiver of committed events. By default events are
// logged.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// New creates an engine over st. If st already holds a genesis the stored
// parameters are loaded.
func New(st *store.Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		store: st,
		clock: clock.System{},
		log:   log.Protocol,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.observer == nil {
		e.observer = LogObserver{Log: e.log}
	}

	err := st.View(func(txn *store.Txn) error {
		p, err := txn.Params()
		if err != nil {
			return err
		}
		e.params = p
		e.initialized = true
		return nil
	})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load params: %w", err)
	}
	return e, nil
}

// op is the state an operation works on.
type op struct {
	txn    *store.Txn
	now    clock.Timestamp
	params params.Params
	events []Event
}

func (o *op) emit(ev Event) {
	ev.Time = o.now
	o.events = append(o.events, ev)
}

// apply runs fn in a transaction and commits it if fn succeeds. Events are
// delivered only after the commit.
func (e *Engine) apply(ctx context.Context, name string, fn func(*op) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return ErrNotInitialized
	}
	o := &op{txn: e.store.Begin(), now: e.clock.Now(), params: e.params}
	defer o.txn.Discard()

	if err := fn(o); err != nil {
		e.log.Debug().Str("op", name).Err(err).Msg("operation rejected")
		return err
	}
	if err := o.txn.Commit(); err != nil {
		e.log.Error().Str("op", name).Err(err).Msg("commit failed")
		return fmt.Errorf("commit %s: %w", name, err)
	}
	e.log.Debug().Str("op", name).Int("events", len(o.events)).Int64("time", int64(o.now)).Msg("operation applied")

	for _, ev := range o.events {
		e.observer.Observe(ev)
	}
	return nil
}

// view runs a read-only fn against committed state.
func (e *Engine) view(ctx context.Context, fn func(*store.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.initialized {
		return ErrNotInitialized
	}
	return e.store.View(fn)
}

// Genesis is the initial state of a protocol instance.
type Genesis struct {
	Params    params.Params   `json:"params"`
	Authority state.Address   `json:"authority"`
	Treasury  state.Address   `json:"treasury"`
	Accounts  []state.Account `json:"accounts"`
}

// Validate checks the genesis for consistency.
func (g Genesis) Validate() error {
	if err := g.Params.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	if err := g.Authority.Validate(); err != nil {
		return fmt.Errorf("%w: authority: %w", ErrInvalidIdentifier, err)
	}
	if err := g.Treasury.Validate(); err != nil {
		return fmt.Errorf("%w: treasury: %w", ErrInvalidIdentifier, err)
	}
	seen := make(map[state.Address]struct{}, len(g.Accounts))
	var supply uint64
	for _, a := range g.Accounts {
		if err := a.Owner.Validate(); err != nil {
			return fmt.Errorf("%w: account: %w", ErrInvalidIdentifier, err)
		}
		if _, ok := seen[a.Owner]; ok {
			return fmt.Errorf("%w: duplicate account %s", ErrInvalidIdentifier, a.Owner)
		}
		seen[a.Owner] = struct{}{}
		var err error
		if supply, err = add(supply, a.Balance); err != nil {
			return err
		}
	}
	return nil
}

// InitGenesis writes the genesis state. It can be applied once per store.
func (e *Engine) InitGenesis(ctx context.Context, g Genesis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := g.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		return ErrAlreadyInitialized
	}

	txn := e.store.Begin()
	defer txn.Discard()
	if err := txn.PutParams(g.Params); err != nil {
		return err
	}
	if err := txn.PutConfig(state.ProtocolConfig{Authority: g.Authority, Treasury: g.Treasury}); err != nil {
		return err
	}
	for _, a := range g.Accounts {
		if err := txn.PutAccount(a); err != nil {
			return err
		}
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("commit genesis: %w", err)
	}

	e.params = g.Params
	e.initialized = true
	e.log.Info().
		Str("authority", string(g.Authority)).
		Str("treasury", string(g.Treasury)).
		Int("accounts", len(g.Accounts)).
		Msg("genesis applied")
	e.observer.Observe(Event{Type: EventGenesis, Time: e.clock.Now(), Actor: g.Authority})
	return nil
}

// Params returns the genesis parameters.
func (e *Engine) Params() (params.Params, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.initialized {
		return params.Params{}, ErrNotInitialized
	}
	return e.params, nil
}

// UpdateTreasury changes the treasury address. Only the authority may call it.
func (e *Engine) UpdateTreasury(ctx context.Context, msg MsgUpdateTreasury) error {
	if err := msg.ValidateBasic(); err != nil {
		return err
	}
	return e.apply(ctx, "update_treasury", func(o *op) error {
		cfg, err := o.txn.Config()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.Authority != msg.Signer {
			return ErrNotAuthority
		}
		cfg.Treasury = msg.Treasury
		if err := o.txn.PutConfig(cfg); err != nil {
			return err
		}
		o.emit(Event{Type: EventTreasuryUpdated, Actor: msg.Signer})
		return nil
	})
}
