// Package cli implements pitwallctl, the operator command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/pitwall/internal/adapters/storage"
	"github.com/okian/pitwall/internal/config"
	"github.com/okian/pitwall/pkg/logger"
)

// Linker flags.
var (
	version = "dev"
	commit  = "none"
)

// app carries state shared by every subcommand.
type app struct {
	cfg      *config.Config
	backend  string
	dsn      string
	logLevel string
	out      io.Writer
	now      func() time.Time
}

// NewRootCommand builds the pitwallctl command tree writing to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	a := &app{out: out, now: time.Now}

	root := &cobra.Command{
		Use:           "pitwallctl",
		Short:         "Operate a pitwall betting database.",
		Long:          `pitwallctl migrates and seeds the database, scores predictions offline, prints leaderboards, exports scored bets and load-tests a running server.`,
		Version:       version + " (" + commit + ")",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig(cmd)
		},
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}
	root.SetOut(out)
	root.SetErr(out)

	pf := root.PersistentFlags()
	pf.StringVar(&a.backend, "backend", "", "database backend: sqlite, postgres or mysql (default from config)")
	pf.StringVar(&a.dsn, "dsn", "", "database DSN (default from config)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newMigrateCommand(a),
		newSeedCommand(a),
		newScoreCommand(a),
		newLeaderboardCommand(a),
		newExportCommand(a),
		newSimulateCommand(a),
	)
	return root
}

// Execute runs pitwallctl with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand(os.Stdout).ExecuteContext(ctx)
}

func (a *app) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("backend") {
		cfg.DBBackend = a.backend
	}
	if cmd.Flags().Changed("dsn") {
		cfg.DBDSN = a.dsn
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	// stdout carries command output
	if err := logger.Init(
		logger.WithFormat(logger.FormatJSON),
		logger.WithOutput(os.Stderr),
		logger.WithLevel(level),
		logger.WithSource(false),
	); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.cfg = cfg
	return nil
}

func (a *app) openStore(ctx context.Context) (*storage.Store, error) {
	st, err := storage.Open(ctx, a.cfg.DBBackend, a.cfg.DBDSN,
		storage.WithLogger(logger.Get().Named("storage")))
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", a.cfg.DBBackend, err)
	}
	return st, nil
}

// withStore opens the store, migrates it to the latest schema and runs fn.
func (a *app) withStore(ctx context.Context, fn func(*storage.Store) error) error {
	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	if _, err := st.Migrate(ctx, -1); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return fn(st)
}
