package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ghmbegerez/converge/internal/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Drive the human review task lifecycle",
}

func reviewService() *review.Service {
	return &review.Service{Store: appStore}
}

var reviewAssignCmd = &cobra.Command{
	Use:   "assign <review-id> <assignee>",
	Short: "Assign a pending review task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewService().Assign(rootCtx, args[0], args[1])
	},
}

var reviewCompleteCmd = &cobra.Command{
	Use:   "complete <review-id>",
	Short: "Mark an assigned review task complete",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewService().Complete(rootCtx, args[0])
	},
}

var reviewEscalateCmd = &cobra.Command{
	Use:   "escalate <review-id> <note>",
	Short: "Escalate an assigned review task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewService().Escalate(rootCtx, args[0], args[1])
	},
}

var reviewRejectCmd = &cobra.Command{
	Use:   "reject <review-id> <reason>",
	Short: "Reject a review task (pending or assigned)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewService().Reject(rootCtx, args[0], args[1])
	},
}

var reviewCancelCmd = &cobra.Command{
	Use:   "cancel <review-id>",
	Short: "Cancel a review task (admin override)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewService().Cancel(rootCtx, args[0])
	},
}

var reviewListCmd = &cobra.Command{
	Use:   "list <intent-id>",
	Short: "List review tasks for an Intent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tasks, err := appStore.GetReviewsForIntent(rootCtx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(tasks)
		}
		for _, t := range tasks {
			fmt.Printf("%s  %-10s reason=%q assignee=%s\n", t.ID, t.Status, t.Reason, t.Assignee)
		}
		return nil
	},
}

func init() {
	reviewCmd.AddCommand(reviewAssignCmd, reviewCompleteCmd, reviewEscalateCmd, reviewRejectCmd, reviewCancelCmd, reviewListCmd)
	rootCmd.AddCommand(reviewCmd)
}
