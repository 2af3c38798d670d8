package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tokendrip/internal/address"
	"tokendrip/internal/chain"
	"tokendrip/internal/config"
	"tokendrip/internal/fixedpoint"
	"tokendrip/internal/ingest"
)

// maxShownErrors caps the error list printed to the operator; the remainder
// is summarized as a count.
const maxShownErrors = 10

func runValidate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.CSVPath == "" {
		return fmt.Errorf("csv path is required")
	}

	net := chain.LookupNetwork(cfg.Network)
	validator := address.NewSS58Validator(net.PrimaryPrefix, net.LegacyPrefix)

	minTransfer, err := fixedpoint.ToMinorUnits(cfg.MinTransfer)
	if err != nil {
		return fmt.Errorf("min-transfer: %w", err)
	}

	pipeline := ingest.NewPipeline(validator, ingest.Options{MinTransfer: minTransfer}, logger)
	result, err := pipeline.Validate(cfg.CSVPath)
	if err != nil {
		return err
	}

	printValidation(result)
	if !result.Valid {
		return fmt.Errorf("validation failed with %d errors", len(result.Errors))
	}
	return nil
}

func printValidation(result *ingest.Result) {
	fmt.Printf("valid records: %d\n", result.RecordCount)
	fmt.Printf("total amount:  %s (%s minor units)\n",
		fixedpoint.ToDecimalString(result.TotalAmount), result.TotalAmount.String())

	for kind, count := range result.AddressKinds {
		fmt.Printf("%s addresses: %d\n", kind, count)
	}

	if len(result.Errors) > 0 {
		fmt.Printf("\nerrors (%d):\n", len(result.Errors))
		shown := result.Errors
		if len(shown) > maxShownErrors {
			shown = shown[:maxShownErrors]
		}
		for _, e := range shown {
			fmt.Printf("  - %s\n", e)
		}
		if rest := len(result.Errors) - maxShownErrors; rest > 0 {
			fmt.Printf("  ... and %d more\n", rest)
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Printf("\nwarnings (%d):\n", len(result.Warnings))
		for _, w := range result.Warnings {
			fmt.Printf("  - %s\n", w)
		}
	}

	if len(result.Duplicates) > 0 {
		fmt.Printf("\nduplicate addresses (%d):\n", len(result.Duplicates))
		for _, dup := range result.Duplicates {
			lines := make([]string, len(dup.Lines))
			for i, n := range dup.Lines {
				lines[i] = fmt.Sprintf("%d", n)
			}
			fmt.Printf("  - %s on lines %s\n", dup.Address, strings.Join(lines, ", "))
		}
	}

	if result.Valid {
		fmt.Println("\nvalidation passed")
	}
}
