package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ghmbegerez/converge/internal/idgen"
	"github.com/ghmbegerez/converge/internal/store"
	"github.com/ghmbegerez/converge/internal/types"
)

var intentCmd = &cobra.Command{
	Use:   "intent",
	Short: "Create and inspect Intents",
}

var (
	intentSource      string
	intentTarget      string
	intentOrigin      string
	intentRisk        string
	intentPriority    int
	intentChecks      []string
	intentDeps        []string
	intentScopeHint   []string
	intentListStatus  string
)

var intentCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new Intent",
	RunE: func(cmd *cobra.Command, args []string) error {
		origin := types.OriginType(strings.ToUpper(intentOrigin))
		if !origin.IsValid() {
			return fmt.Errorf("invalid --origin %q", intentOrigin)
		}

		now := time.Now().UTC()
		id := idgen.IntentID(intentSource, intentTarget, appConfig.Actor, now, 0)
		for nonce := 1; ; nonce++ {
			if _, err := appStore.GetIntent(rootCtx, id); err != nil {
				break
			}
			id = idgen.IntentID(intentSource, intentTarget, appConfig.Actor, now, nonce)
		}

		intent := types.NewIntent(id, intentSource, intentTarget, origin, appConfig.Actor, now)
		intent.Priority = intentPriority
		intent.ChecksRequired = intentChecks
		intent.Dependencies = intentDeps
		intent.Technical.ScopeHint = intentScopeHint
		if intentRisk != "" {
			risk := types.RiskLevel(strings.ToUpper(intentRisk))
			if !risk.IsValid() {
				return fmt.Errorf("invalid --risk %q", intentRisk)
			}
			intent.RiskLevel = risk
		}

		if err := appStore.CreateIntent(rootCtx, intent); err != nil {
			return err
		}
		if _, err := appStore.AppendEvent(rootCtx, &types.Event{
			TraceID:   idgen.TraceID(),
			Timestamp: now,
			EventType: types.EventIntentCreated,
			IntentID:  intent.ID,
			Payload:   map[string]any{"source": intent.Source, "target": intent.Target},
		}); err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(intent)
		}
		fmt.Printf("created %s (%s -> %s, risk=%s, priority=%d)\n", intent.ID, intent.Source, intent.Target, intent.RiskLevel, intent.Priority)
		return nil
	},
}

var intentShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one Intent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		intent, err := appStore.GetIntent(rootCtx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(intent)
		}
		fmt.Printf("%s  %s -> %s  status=%s risk=%s priority=%d retries=%d\n",
			intent.ID, intent.Source, intent.Target, intent.Status, intent.RiskLevel, intent.Priority, intent.Retries)
		if len(intent.Dependencies) > 0 {
			fmt.Printf("  depends_on: %s\n", strings.Join(intent.Dependencies, ", "))
		}
		if len(intent.Technical.ScopeHint) > 0 {
			fmt.Printf("  scope_hint: %s\n", strings.Join(intent.Technical.ScopeHint, ", "))
		}
		return nil
	},
}

var intentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List Intents",
	RunE: func(cmd *cobra.Command, args []string) error {
		intents, err := appStore.ListIntents(rootCtx, store.IntentFilter{
			Status:  types.Status(strings.ToUpper(intentListStatus)),
			OrderBy: store.OrderPriorityCreated,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(intents)
		}
		for _, intent := range intents {
			fmt.Printf("%s  %-10s %-8s %s -> %s\n", intent.ID, intent.Status, intent.RiskLevel, intent.Source, intent.Target)
		}
		return nil
	},
}

func init() {
	intentCreateCmd.Flags().StringVar(&intentSource, "source", "", "source ref (required)")
	intentCreateCmd.Flags().StringVar(&intentTarget, "target", "", "target ref (required)")
	intentCreateCmd.Flags().StringVar(&intentOrigin, "origin", "HUMAN", "origin type: HUMAN|AGENT|INTEGRATION")
	intentCreateCmd.Flags().StringVar(&intentRisk, "risk", "", "risk level override: LOW|MEDIUM|HIGH|CRITICAL")
	intentCreateCmd.Flags().IntVar(&intentPriority, "priority", types.DefaultPriority, "queue priority, lower runs first")
	intentCreateCmd.Flags().StringSliceVar(&intentChecks, "checks", nil, "required check names")
	intentCreateCmd.Flags().StringSliceVar(&intentDeps, "depends-on", nil, "Intent IDs this Intent depends on")
	intentCreateCmd.Flags().StringSliceVar(&intentScopeHint, "scope-hint", nil, "declared scope hint paths")
	_ = intentCreateCmd.MarkFlagRequired("source")
	_ = intentCreateCmd.MarkFlagRequired("target")

	intentListCmd.Flags().StringVar(&intentListStatus, "status", "", "filter by status")

	intentCmd.AddCommand(intentCreateCmd, intentShowCmd, intentListCmd)
	rootCmd.AddCommand(intentCmd)
}
