package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <intent-id>",
	Short: "Run one Intent through the validation pipeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dec, err := orch.Validate(rootCtx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(dec)
		}
		if dec.Blocked {
			fmt.Printf("BLOCKED: %s (%s)\n", dec.TraceID, dec.BlockReason)
			return nil
		}
		fmt.Printf("PASSED: %s\n", dec.TraceID)
		if dec.RiskEval != nil {
			fmt.Printf("  risk_level=%s risk_score=%.3f damage=%.3f propagation=%.3f\n",
				dec.RiskEval.RiskLevel, dec.RiskEval.RiskScore, dec.RiskEval.DamageScore, dec.RiskEval.PropagationScore)
		}
		if dec.Coherence != nil {
			fmt.Printf("  coherence_score=%.3f downgraded=%v\n", dec.Coherence.Score, dec.Coherence.Downgraded)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
