package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"tokendrip/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	root := &cobra.Command{
		Use:          "tokendrip",
		Short:        "Distribute tokens to a CSV list of addresses",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	distributeCmd := &cobra.Command{
		Use:   "distribute",
		Short: "Run a distribution from a CSV file",
		RunE:  runDistribute,
	}
	distributeCmd.Flags().String("csv", "", "input CSV path (address,amount per line)")
	distributeCmd.Flags().String("endpoint", "", "node websocket endpoint")
	distributeCmd.Flags().String("network", "astar", "target network (astar, shiden, shibuya)")
	distributeCmd.Flags().String("seed", "", "funding account seed URI (or TOKENDRIP_SEED)")
	distributeCmd.Flags().Int("confirmation-depth", 2, "blocks to observe after inclusion")
	distributeCmd.Flags().Duration("confirmation-timeout", 5*time.Minute, "bound on the confirmation wait")
	distributeCmd.Flags().Int("checkpoint-interval", 10, "records between periodic checkpoints")
	distributeCmd.Flags().Duration("transfer-delay", time.Second, "delay after every processed record")
	distributeCmd.Flags().String("gas-buffer", "1.0", "balance headroom in major units")
	distributeCmd.Flags().String("min-transfer", "0.0000005", "existential deposit warning threshold in major units")
	distributeCmd.Flags().String("snapshot-dir", "./data/snapshots", "resume snapshot directory")
	distributeCmd.Flags().String("report", "./data/transactions.csv", "transaction report output path")
	distributeCmd.Flags().Bool("resume", false, "resume from the latest snapshot")
	distributeCmd.Flags().Bool("dry-run", false, "preview a sample without sending")
	distributeCmd.Flags().Int("dry-run-sample", 5, "records shown in the dry-run preview")
	distributeCmd.Flags().Duration("dry-run-delay", time.Second, "pacing between dry-run preview entries")
	distributeCmd.Flags().Bool("yes", false, "skip prompts and use the automatic failure policy")
	distributeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	distributeCmd.Flags().String("log-file", "", "optional rotating log file path")
	root.AddCommand(distributeCmd)

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a distribution CSV without sending anything",
		RunE:  runValidate,
	}
	validateCmd.Flags().String("csv", "", "input CSV path (address,amount per line)")
	validateCmd.Flags().String("network", "astar", "target network (astar, shiden, shibuya)")
	validateCmd.Flags().String("min-transfer", "0.0000005", "existential deposit warning threshold in major units")
	validateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	validateCmd.Flags().String("log-file", "", "optional rotating log file path")
	root.AddCommand(validateCmd)

	balanceCmd := &cobra.Command{
		Use:   "balance",
		Short: "Check the funding account balance against a CSV total",
		RunE:  runBalance,
	}
	balanceCmd.Flags().String("csv", "", "input CSV path (address,amount per line)")
	balanceCmd.Flags().String("endpoint", "", "node websocket endpoint")
	balanceCmd.Flags().String("network", "astar", "target network (astar, shiden, shibuya)")
	balanceCmd.Flags().String("seed", "", "funding account seed URI (or TOKENDRIP_SEED)")
	balanceCmd.Flags().String("gas-buffer", "1.0", "balance headroom in major units")
	balanceCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	balanceCmd.Flags().String("log-file", "", "optional rotating log file path")
	root.AddCommand(balanceCmd)

	root.AddCommand(newSnapshotsCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level, file string) (*zap.Logger, error) {
	return logger.New(level, file)
}
