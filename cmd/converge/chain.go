package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ghmbegerez/converge/internal/auditchain"
)

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Inspect the audit chain",
}

var chainVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Replay the checkpoint log and verify the audit chain is untampered",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := auditchain.VerifyChain(rootCtx, appStore)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(res)
		}
		if res.OK {
			fmt.Printf("OK: %d batches verified\n", res.BatchCount)
			return nil
		}
		fmt.Printf("TAMPERED: first mismatch at batch %d (trace %s)\n", res.TamperedAt, res.TraceID)
		return nil
	},
}

func init() {
	chainCmd.AddCommand(chainVerifyCmd)
	rootCmd.AddCommand(chainCmd)
}
