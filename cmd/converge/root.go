package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ghmbegerez/converge/internal/check"
	"github.com/ghmbegerez/converge/internal/config"
	"github.com/ghmbegerez/converge/internal/flags"
	"github.com/ghmbegerez/converge/internal/orchestrator"
	"github.com/ghmbegerez/converge/internal/queue"
	"github.com/ghmbegerez/converge/internal/scm"
	"github.com/ghmbegerez/converge/internal/store"
	"github.com/ghmbegerez/converge/internal/store/dolt"
	"github.com/ghmbegerez/converge/internal/store/sqlite"
	"github.com/ghmbegerez/converge/internal/telemetry"
	"github.com/ghmbegerez/converge/internal/types"
)

// version is reported by `converge --version` and sent as the telemetry
// resource's service.version attribute.
const version = "0.1.0"

// Persistent flags, following cmd/bd/main.go's package-level-var shape.
var (
	dbPath      string
	actorFlag   string
	configPath  string
	policyFlag  string
	jsonOutput  bool

	rootCtx    context.Context
	rootCancel context.CancelFunc

	appStore   store.Store
	orch       *orchestrator.Orchestrator
	queueProc  *queue.Processor
	flagsReg   *flags.Registry
	appConfig  config.App
)

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Store DSN (overrides config store-dsn)")
	rootCmd.PersistentFlags().StringVar(&actorFlag, "actor", "", "Actor name for audit trail (overrides config actor)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "converge.yaml", "Path to the startup config file")
	rootCmd.PersistentFlags().StringVar(&policyFlag, "policy", "", "Explicit policy file path (overrides config/default candidates)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

var rootCmd = &cobra.Command{
	Use:     "converge",
	Version: version,
	Short:   "converge - policy-driven merge-coordination engine",
	Long:    "converge validates, queues, and merges Intents through a shared risk/policy/coherence pipeline, with every decision written to a hash-chained event log.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if isNoStoreCommand(cmd) {
			return nil
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		rootCtx, rootCancel = ctx, cancel

		cfg, err := config.LoadApp(configPath)
		if err != nil {
			return err
		}
		if dbPath != "" {
			cfg.StoreDSN = dbPath
		}
		if actorFlag != "" {
			cfg.Actor = actorFlag
		}
		if policyFlag != "" {
			cfg.PolicyPath = policyFlag
		}
		appConfig = cfg

		if _, err := telemetry.Init(ctx, "converge", version); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		appStore = st

		policyCfg, _, err := config.LoadPolicy(cfg.PolicyPath)
		if err != nil {
			return err
		}
		var harnessCfg types.HarnessConfig
		if cfg.HarnessPath != "" {
			harnessCfg, err = config.LoadHarness(cfg.HarnessPath)
			if err != nil {
				return err
			}
		}

		reg, err := flags.Load()
		if err != nil {
			return err
		}
		flagsReg = reg

		checksTable, err := config.LoadChecks(cfg.ChecksPath)
		if err != nil {
			return err
		}

		gitPort := scm.New(".", os.TempDir())

		orch = &orchestrator.Orchestrator{
			Store:         appStore,
			SCM:           gitPort,
			Checks:        check.NewRegistry(checksTable),
			PolicyConfig:  policyCfg,
			HarnessConfig: harnessCfg,
		}
		queueProc = &queue.Processor{
			Store:        appStore,
			SCM:          gitPort,
			Orchestrator: orch,
			Holder:       cfg.Actor,
			LockTTL:      cfg.LockTimeout,
			AutoConfirm:  true,
			IntakeMode:   currentIntakeMode,
		}

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if appStore != nil {
			_ = appStore.Close()
		}
		if rootCtx != nil {
			_ = telemetry.Shutdown(rootCtx)
		}
		if rootCancel != nil {
			rootCancel()
		}
		return nil
	},
}

// noStoreCommands lists commands that never open a store, so
// PersistentPreRunE can skip the whole setup phase for them (help, a bare
// root invocation).
var noStoreCommands = map[string]bool{
	"help":       true,
	"converge":   true,
	"completion": true,
}

func isNoStoreCommand(cmd *cobra.Command) bool {
	return noStoreCommands[cmd.Name()]
}

func openStore(ctx context.Context, cfg config.App) (store.Store, error) {
	switch cfg.StoreKind {
	case "", "sqlite":
		return sqlite.Open(ctx, cfg.StoreDSN)
	case "dolt":
		return dolt.Open(ctx, dolt.Config{Embedded: cfg.StoreDSN})
	default:
		return nil, fmt.Errorf("unknown store-kind %q", cfg.StoreKind)
	}
}

// currentIntakeMode reads the operator-set intake mode from the store's
// generic config table (spec §4.10's "mode semantics defined by caller").
func currentIntakeMode() types.IntakeMode {
	if appStore == nil {
		return ""
	}
	v, ok, err := appStore.GetConfig(rootCtx, "intake_mode")
	if err != nil || !ok {
		return ""
	}
	return types.IntakeMode(v)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
