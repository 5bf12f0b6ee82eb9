package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eigerco/tribunal/internal/clock"
	"github.com/eigerco/tribunal/internal/protocol"
)

func genesisCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "genesis [genesis-file]",
		Short: "Initialise the ledger from a genesis file",
		Long: "Reads the authority, treasury and funded accounts from a JSON genesis file\n" +
			"and writes them to a new ledger. Parameters missing from the file are taken\n" +
			"from --params, or from the defaults.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			p, err := cfg.loadParams()
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read genesis: %w", err)
			}
			g := protocol.Genesis{Params: p}
			if err := json.Unmarshal(raw, &g); err != nil {
				return fmt.Errorf("decode genesis: %w", err)
			}

			engine, closeEngine, err := cfg.openEngine(clock.System{})
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, closeEngine()) }()

			if err := engine.InitGenesis(cmd.Context(), g); err != nil {
				return err
			}
			supply, err := engine.Supply(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, supply)
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
