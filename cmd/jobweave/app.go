package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jobweave/jobweave/internal/bridge"
	"github.com/jobweave/jobweave/internal/config"
	"github.com/jobweave/jobweave/internal/logger"
	"github.com/jobweave/jobweave/internal/resolver"
	"github.com/jobweave/jobweave/internal/store"
	"github.com/jobweave/jobweave/internal/submission"
)

// dataDirFlag, quiet and debug mirror the teacher's package-level
// cmd.cfgFile/cmd.quiet flags, bound once on the root command and
// read by every subcommand's newApp call.
var (
	dataDirFlag string
	quiet       bool
	debug       bool
	bridgeKind  string
)

func addPersistentFlags(root *cobra.Command) {
	root.PersistentFlags().StringVarP(&dataDirFlag, "data-dir", "c", "", "data directory root holding the store and config.yaml (default: "+config.EnvDataDir+" or the XDG data dir)")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress informational log output")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug-level logging")
	root.PersistentFlags().StringVar(&bridgeKind, "bridge", "local", `scheduler bridge to dispatch jobscripts with: "local" or "slurmlike"`)
}

// app bundles the wiring every subcommand needs: the loaded
// configuration, a logger, the opened store and a ready submission
// controller. Built fresh per invocation rather than as a process-wide
// singleton (internal/config's package doc: "there is no process-wide
// singleton").
type app struct {
	cfg  *config.Config
	log  logger.Logger
	st   *store.Store
	ctrl *submission.Controller
}

// newApp loads configuration, opens the store (without creating its
// schema: only MakeWorkflow does that, through Store.CreateAll) and
// assembles a submission.Controller, following the
// teacher's initialize(cmd)-builds-appConfig/appLogger convention.
func newApp(cmd *cobra.Command) (*app, error) {
	if dataDirFlag != "" {
		if err := os.Setenv(config.EnvDataDir, dataDirFlag); err != nil {
			return nil, fmt.Errorf("set %s: %w", config.EnvDataDir, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logOpts := []logger.Option{logger.WithFormat(cfg.LogFormat)}
	if cfg.Debug || debug {
		logOpts = append(logOpts, logger.WithDebug())
	}
	if quiet {
		logOpts = append(logOpts, logger.WithQuiet())
	}
	log := logger.New(logOpts...)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	st, err := store.Open(cfg.StorePath())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	br, err := newBridge(bridgeKind)
	if err != nil {
		st.Close()
		return nil, err
	}

	ctrl := &submission.Controller{
		Store:             st,
		Scanner:           resolver.FilesystemScanner{},
		Bridge:            br,
		Log:               log,
		SubmitSubdirCount: 0,
	}

	return &app{cfg: cfg, log: log, st: st, ctrl: ctrl}, nil
}

func (a *app) close() {
	_ = a.st.Close()
}

func newBridge(kind string) (bridge.Bridge, error) {
	switch kind {
	case "", "local":
		return bridge.NewLocal(""), nil
	case "slurmlike":
		return &bridge.Slurmlike{SubmitCommand: "sbatch", CancelCommand: "scancel"}, nil
	default:
		return nil, fmt.Errorf("unknown bridge %q (want %q or %q)", kind, "local", "slurmlike")
	}
}
