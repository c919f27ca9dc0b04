// Command converge is the merge-coordination engine's CLI: create and
// inspect Intents, drive the queue processor, inspect and calibrate
// policy, and verify the audit chain. Grounded on cmd/bd/main.go's
// persistent-flag/root-context shape, scaled down from bd's many
// stateful PersistentPreRun phases to the handful this domain needs.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
