package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ghmbegerez/converge/internal/idgen"
	"github.com/ghmbegerez/converge/internal/policy"
	"github.com/ghmbegerez/converge/internal/types"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect and recalibrate policy profiles",
}

var policyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the loaded policy configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOutput {
			return printJSON(orch.PolicyConfig)
		}
		for level, profile := range orch.PolicyConfig.Profiles {
			fmt.Printf("%-8s entropy_budget=%.2f containment_min=%.2f blast_limit=%.2f checks=%v\n",
				level, profile.EntropyBudget, profile.ContainmentMin, profile.BlastLimit, profile.Checks)
		}
		return nil
	},
}

const entropyHistoryLimit = 500

var policyCalibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Recalibrate entropy-budget percentiles from recorded history",
	Long:  "Pulls the recorded entropy-score history and recomputes per-level entropy budgets off the P75/P90/P95 cutoffs (policy.py: calibrate_profiles), persisting the result through the store's config table and emitting POLICY_CALIBRATED.",
	RunE: func(cmd *cobra.Command, args []string) error {
		history, err := appStore.EntropyScoreHistory(rootCtx, entropyHistoryLimit)
		if err != nil {
			return err
		}

		calibrated := policy.CalibrateProfiles(history, orch.PolicyConfig.Profiles)
		orch.PolicyConfig.Profiles = calibrated

		data, err := json.Marshal(calibrated)
		if err != nil {
			return fmt.Errorf("marshaling calibrated profiles: %w", err)
		}
		if err := appStore.SetConfig(rootCtx, "policy:calibrated_profiles", string(data)); err != nil {
			return err
		}
		if _, err := appStore.AppendEvent(rootCtx, &types.Event{
			TraceID:   idgen.TraceID(),
			Timestamp: time.Now().UTC(),
			EventType: types.EventPolicyCalibrated,
			Payload:   map[string]any{"sample_size": len(history)},
		}); err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(calibrated)
		}
		fmt.Printf("recalibrated %d profiles from %d historical samples\n", len(calibrated), len(history))
		return nil
	},
}

var policyBucketCmd = &cobra.Command{
	Use:   "bucket <intent-id>",
	Short: "Print the deterministic rollout bucket for an Intent ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("%.4f\n", policy.RolloutBucket(args[0]))
		return nil
	},
}

func init() {
	policyCmd.AddCommand(policyShowCmd, policyCalibrateCmd, policyBucketCmd)
	rootCmd.AddCommand(policyCmd)
}
