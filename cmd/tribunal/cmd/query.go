package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/eigerco/tribunal/internal/clock"
	"github.com/eigerco/tribunal/internal/params"
	"github.com/eigerco/tribunal/internal/protocol"
	"github.com/eigerco/tribunal/internal/rewards"
	"github.com/eigerco/tribunal/internal/state"
)

func queryCmd(cfg *config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Read ledger state",
	}
	cmd.AddCommand(
		queryParamsCmd(cfg),
		queryConfigCmd(cfg),
		queryAccountCmd(cfg),
		queryPoolCmd(cfg),
		querySubjectCmd(cfg),
		querySubjectsCmd(cfg),
		queryEscrowCmd(cfg),
		queryRecordCmd(cfg),
		queryMinBondCmd(cfg),
		querySupplyCmd(cfg),
	)
	return cmd
}

// runQuery opens the ledger, runs fn and prints its result as JSON.
func runQuery(cfg *config, cmd *cobra.Command, fn func(context.Context, *protocol.Engine) (any, error)) (err error) {
	engine, closeEngine, err := cfg.openEngine(clock.System{})
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, closeEngine()) }()

	v, err := fn(cmd.Context(), engine)
	if err != nil {
		return err
	}
	return printJSON(cmd, v)
}

type paramsReport struct {
	params.Params
	TotalFeePercent      decimal.Decimal `json:"total_fee_percent"`
	WinnerSharePercent   decimal.Decimal `json:"winner_share_percent"`
	JurorSharePercent    decimal.Decimal `json:"juror_share_percent"`
	PlatformSharePercent decimal.Decimal `json:"platform_share_percent"`
	BotRewardPercent     decimal.Decimal `json:"bot_reward_percent"`
}

func queryParamsCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "Show the genesis parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cfg, cmd, func(_ context.Context, e *protocol.Engine) (any, error) {
				p, err := e.Params()
				if err != nil {
					return nil, err
				}
				return paramsReport{
					Params:               p,
					TotalFeePercent:      rewards.Percent(p.TotalFeeBps),
					WinnerSharePercent:   rewards.Percent(p.WinnerShareBps),
					JurorSharePercent:    rewards.Percent(p.JurorShareBps),
					PlatformSharePercent: rewards.Percent(p.PlatformShareBps),
					BotRewardPercent:     rewards.Percent(p.BotRewardBps),
				}, nil
			})
		},
	}
}

func queryConfigCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the authority and treasury",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cfg, cmd, func(ctx context.Context, e *protocol.Engine) (any, error) {
				return e.Config(ctx)
			})
		},
	}
}

func queryAccountCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "account [owner]",
		Short: "Show an external account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cfg, cmd, func(ctx context.Context, e *protocol.Engine) (any, error) {
				return e.Account(ctx, state.Address(args[0]))
			})
		},
	}
}

type poolReport struct {
	state.Pool
	ReputationPercent decimal.Decimal `json:"reputation_percent"`
}

func queryPoolCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "pool [defender|challenger|juror] [owner]",
		Short: "Show a participant's pool for a role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var role state.Role
			if err := role.UnmarshalText([]byte(args[0])); err != nil {
				return err
			}
			return runQuery(cfg, cmd, func(ctx context.Context, e *protocol.Engine) (any, error) {
				p, err := e.Pool(ctx, role, state.Address(args[1]))
				if err != nil {
					return nil, err
				}
				return poolReport{
					Pool:              p,
					ReputationPercent: rewards.Ratio(p.Reputation, params.ReputationPrecision).Shift(2),
				}, nil
			})
		},
	}
}

type subjectReport struct {
	Subject state.Subject `json:"subject"`
	Dispute state.Dispute `json:"dispute"`
}

func querySubjectCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "subject [subject-id]",
		Short: "Show a subject and its dispute slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := state.SubjectID(args[0])
			return runQuery(cfg, cmd, func(ctx context.Context, e *protocol.Engine) (any, error) {
				s, err := e.Subject(ctx, id)
				if err != nil {
					return nil, err
				}
				d, err := e.Dispute(ctx, id)
				if err != nil {
					return nil, err
				}
				return subjectReport{Subject: s, Dispute: d}, nil
			})
		},
	}
}

func querySubjectsCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "subjects",
		Short: "List all subjects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cfg, cmd, func(ctx context.Context, e *protocol.Engine) (any, error) {
				return e.Subjects(ctx)
			})
		},
	}
}

type roundReport struct {
	state.RoundResult
	// WinnerShare is the winner pool as a fraction of the contested pool.
	WinnerShare decimal.Decimal `json:"winner_share"`
	// PaidOut is the fraction of the round's payable funds that has left escrow.
	PaidOut decimal.Decimal `json:"paid_out"`
}

type escrowReport struct {
	SubjectID state.SubjectID `json:"subject_id"`
	Balance   uint64          `json:"balance"`
	Rounds    []roundReport   `json:"rounds"`
}

func newRoundReport(rr state.RoundResult) roundReport {
	contested := rr.TotalStake + rr.BondAtRisk
	payable := rr.WinnerPool + rr.JurorPool
	if rr.Outcome == state.OutcomeChallengerWins && !rr.IsRestore {
		payable += rr.SafeBond
	}
	var paid uint64
	if payable > rr.Unclaimed {
		paid = payable - rr.Unclaimed
	}
	return roundReport{
		RoundResult: rr,
		WinnerShare: rewards.Ratio(rr.WinnerPool, contested),
		PaidOut:     rewards.Ratio(paid, payable),
	}
}

func queryEscrowCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "escrow [subject-id]",
		Short: "Show a subject's escrow and its unsettled rounds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cfg, cmd, func(ctx context.Context, e *protocol.Engine) (any, error) {
				esc, err := e.Escrow(ctx, state.SubjectID(args[0]))
				if err != nil {
					return nil, err
				}
				report := escrowReport{SubjectID: esc.SubjectID, Balance: esc.Balance, Rounds: []roundReport{}}
				for _, rr := range esc.Results {
					report.Rounds = append(report.Rounds, newRoundReport(rr))
				}
				return report, nil
			})
		},
	}
}

func queryRecordCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "record [defender|challenger|juror] [subject-id] [round] [owner]",
		Short: "Show a participant's record of a round",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			var role state.Role
			if err := role.UnmarshalText([]byte(args[0])); err != nil {
				return err
			}
			id := state.SubjectID(args[1])
			round, err := strconv.ParseUint(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("parse round: %w", err)
			}
			owner := state.Address(args[3])
			return runQuery(cfg, cmd, func(ctx context.Context, e *protocol.Engine) (any, error) {
				switch role {
				case state.RoleDefender:
					return e.DefenderRecord(ctx, id, round, owner)
				case state.RoleChallenger:
					return e.ChallengerRecord(ctx, id, round, owner)
				default:
					return e.JurorRecord(ctx, id, round, owner)
				}
			})
		},
	}
}

func queryMinBondCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "min-bond [challenger]",
		Short: "Show the stake a challenger must post to open a dispute",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cfg, cmd, func(ctx context.Context, e *protocol.Engine) (any, error) {
				bond, err := e.MinBond(ctx, state.Address(args[0]))
				if err != nil {
					return nil, err
				}
				return map[string]uint64{"min_bond": bond}, nil
			})
		},
	}
}

func querySupplyCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "supply",
		Short: "Show where the ledger's funds are held",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cfg, cmd, func(ctx context.Context, e *protocol.Engine) (any, error) {
				return e.Supply(ctx)
			})
		},
	}
}
