// Package cmd implements the tribunal operator CLI.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/eigerco/tribunal/internal/clock"
	"github.com/eigerco/tribunal/internal/params"
	"github.com/eigerco/tribunal/internal/protocol"
	"github.com/eigerco/tribunal/internal/store"
	"github.com/eigerco/tribunal/pkg/db/pebble"
	"github.com/eigerco/tribunal/pkg/log"
)

const (
	flagHome      = "home"
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
	flagParams    = "params"
	flagCacheSize = "cache-size"
)

// DefaultHome is where state is kept unless --home is given.
var DefaultHome = filepath.Join(os.Getenv("HOME"), ".tribunal")

type config struct {
	home       string
	logLevel   string
	logFormat  string
	paramsPath string
	cacheSize  int
	// noSync is set by commands whose writes can be replayed.
	noSync bool
}

// NewRootCmd builds the tribunal command tree.
func NewRootCmd() *cobra.Command {
	cfg := &config{}
	rootCmd := &cobra.Command{
		Use:           "tribunal",
		Short:         "Operate a stake-backed dispute arbitration ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := log.ParseLogLevel(cfg.logLevel)
			if err != nil {
				return err
			}
			typ, err := log.ParseLoggerType(cfg.logFormat)
			if err != nil {
				return err
			}
			log.Init(log.Options{LogLevel: level, Type: typ, Output: cmd.ErrOrStderr()})
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.home, flagHome, DefaultHome, "directory holding the ledger database")
	flags.StringVar(&cfg.logLevel, flagLogLevel, "info", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&cfg.logFormat, flagLogFormat, "console", "log format (console or json)")
	flags.StringVar(&cfg.paramsPath, flagParams, "", "JSON file overriding the default genesis parameters")
	flags.IntVar(&cfg.cacheSize, flagCacheSize, store.DefaultCacheSize, "entries in the store read cache")

	rootCmd.AddCommand(
		genesisCmd(cfg),
		applyCmd(cfg),
		queryCmd(cfg),
	)
	return rootCmd
}

// loadParams returns the default parameters, overridden by --params if set.
func (c *config) loadParams() (params.Params, error) {
	if c.paramsPath == "" {
		return params.Default(), nil
	}
	return params.Load(c.paramsPath)
}

// openEngine opens the ledger under --home. The returned close function
// must be called once the engine is no longer used.
func (c *config) openEngine(clk clock.Clock, opts ...protocol.Option) (*protocol.Engine, func() error, error) {
	if err := os.MkdirAll(c.home, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create home: %w", err)
	}
	kvOpts := []pebble.Option{pebble.WithPath(filepath.Join(c.home, "data"))}
	if c.noSync {
		kvOpts = append(kvOpts, pebble.WithoutSync())
	}
	kv, err := pebble.NewKVStore(kvOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	st, err := store.New(kv, c.cacheSize, log.Store)
	if err != nil {
		_ = kv.Close()
		return nil, nil, err
	}
	opts = append([]protocol.Option{protocol.WithClock(clk), protocol.WithLogger(log.Protocol)}, opts...)
	engine, err := protocol.New(st, opts...)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	return engine, st.Close, nil
}
