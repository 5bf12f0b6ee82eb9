package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eigerco/tribunal/internal/clock"
	"github.com/eigerco/tribunal/internal/protocol"
	"github.com/eigerco/tribunal/pkg/log"
)

const (
	flagKeepGoing = "keep-going"
	flagNoSync    = "no-sync"

	maxScenarioLine = 1 << 20
)

// step is one line of a scenario file.
type step struct {
	// Time is when the message executes. Zero keeps the previous time.
	Time clock.Timestamp `json:"time"`
	Type string          `json:"type"`
	Msg  json.RawMessage `json:"msg"`
}

func applyCmd(cfg *config) *cobra.Command {
	var keepGoing bool
	cmd := &cobra.Command{
		Use:   "apply [scenario-file]",
		Short: "Apply a scenario of timestamped messages to the ledger",
		Long: "Each line of the scenario is a JSON object {\"time\", \"type\", \"msg\"}. Messages\n" +
			"execute in order against a clock set to their time; times must not decrease.\n" +
			"Committed events are written to stdout as JSON lines. Use - to read stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open scenario: %w", err)
				}
				defer f.Close()
				in = f
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			events := protocol.ObserverFunc(func(ev protocol.Event) {
				if err := enc.Encode(ev); err != nil {
					log.CLI.Warn().Err(err).Msg("write event")
				}
			})
			clk := clock.NewManual(0)
			engine, closeEngine, err := cfg.openEngine(clk, protocol.WithObserver(protocol.Observers{
				protocol.LogObserver{Log: log.Protocol},
				events,
			}))
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, closeEngine()) }()

			return runScenario(cmd, engine, clk, in, keepGoing)
		},
	}
	cmd.Flags().BoolVar(&keepGoing, flagKeepGoing, false, "log rejected messages and continue")
	cmd.Flags().BoolVar(&cfg.noSync, flagNoSync, false, "skip fsync after each message; a crash may lose applied messages")
	return cmd
}

func runScenario(cmd *cobra.Command, engine *protocol.Engine, clk *clock.Manual, in io.Reader, keepGoing bool) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxScenarioLine)

	var line, applied, rejected int
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		var s step
		if err := json.Unmarshal([]byte(text), &s); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if s.Time != 0 {
			if err := clk.Set(s.Time); err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
		}
		msg, err := protocol.DecodeMsg(s.Type, s.Msg)
		if err == nil {
			err = engine.Deliver(cmd.Context(), msg)
		}
		if err != nil {
			if !keepGoing {
				return fmt.Errorf("line %d: %s: %w", line, s.Type, err)
			}
			rejected++
			log.CLI.Warn().
				Int("line", line).
				Str("type", s.Type).
				Str("code", protocol.CodeOf(err)).
				Stringer("kind", protocol.KindOf(err)).
				Err(err).
				Msg("message rejected")
			continue
		}
		applied++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read scenario: %w", err)
	}

	log.CLI.Info().Int("applied", applied).Int("rejected", rejected).Msg("scenario applied")
	return nil
}
