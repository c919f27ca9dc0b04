package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ghmbegerez/converge/internal/store"
	"github.com/ghmbegerez/converge/internal/types"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Drive the queue processor",
}

var queueRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one queue-processor pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := queueProc.RunOnce(rootCtx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(res)
		}
		fmt.Printf("processed=%d merged=%d requeued=%d rejected=%d dependency_blocked=%d skipped=%d\n",
			res.Processed, len(res.Merged), len(res.Requeued), len(res.Rejected), len(res.DependencyBlocked), len(res.Skipped))
		return nil
	},
}

var queueStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report VALIDATED/QUEUED Intent counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		validated, err := appStore.ListIntents(rootCtx, store.IntentFilter{Status: types.StatusValidated})
		if err != nil {
			return err
		}
		queued, err := appStore.ListIntents(rootCtx, store.IntentFilter{Status: types.StatusQueued})
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]int{"validated": len(validated), "queued": len(queued)})
		}
		fmt.Printf("validated=%d queued=%d\n", len(validated), len(queued))
		return nil
	},
}

const defaultQueuePollInterval = 5 * time.Second

// queuePollInterval reads CONVERGE_QUEUE_POLL_INTERVAL (a Go duration
// string, e.g. "5s"), falling back to defaultQueuePollInterval.
func queuePollInterval() time.Duration {
	s := os.Getenv("CONVERGE_QUEUE_POLL_INTERVAL")
	if s == "" {
		return defaultQueuePollInterval
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultQueuePollInterval
	}
	return d
}

var queueWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the queue processor until interrupted",
	Long:  "Runs RunOnce on a fixed interval (CONVERGE_QUEUE_POLL_INTERVAL, default 5s), draining the in-flight batch before exiting on SIGINT/SIGTERM. Grounded on the original worker.py's QueueWorker polling loop and the teacher's root-context signal handling.",
	RunE: func(cmd *cobra.Command, args []string) error {
		interval := queuePollInterval()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		fmt.Printf("watching queue every %s (ctrl-c to stop)\n", interval)
		for {
			select {
			case <-rootCtx.Done():
				fmt.Println("shutting down, draining current pass")
				return nil
			case <-ticker.C:
				res, err := queueProc.RunOnce(rootCtx)
				if err != nil {
					fmt.Fprintln(os.Stderr, "queue pass failed:", err)
					continue
				}
				if res.Processed > 0 {
					fmt.Printf("processed=%d merged=%d requeued=%d rejected=%d\n",
						res.Processed, len(res.Merged), len(res.Requeued), len(res.Rejected))
				}
			}
		}
	},
}

func init() {
	queueCmd.AddCommand(queueRunCmd, queueStatusCmd, queueWatchCmd)
	rootCmd.AddCommand(queueCmd)
}
