package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tokendrip/internal/address"
	"tokendrip/internal/chain"
	"tokendrip/internal/config"
	"tokendrip/internal/engine"
	"tokendrip/internal/fixedpoint"
	"tokendrip/internal/ingest"
	"tokendrip/internal/model"
	"tokendrip/internal/prompt"
	"tokendrip/internal/resume"
	"tokendrip/internal/txlog"
)

func runDistribute(cmd *cobra.Command, _ []string) error {
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	net := chain.LookupNetwork(cfg.Network)
	validator := address.NewSS58Validator(net.PrimaryPrefix, net.LegacyPrefix)

	minTransfer, err := fixedpoint.ToMinorUnits(cfg.MinTransfer)
	if err != nil {
		return fmt.Errorf("min-transfer: %w", err)
	}
	gasBuffer, err := fixedpoint.ToMinorUnits(cfg.GasBuffer)
	if err != nil {
		return fmt.Errorf("gas-buffer: %w", err)
	}

	pipeline := ingest.NewPipeline(validator, ingest.Options{MinTransfer: minTransfer}, logger)
	store := resume.NewStore(cfg.SnapshotDir, logger)

	var records []*model.DistributionRecord
	resumeFrom := 0
	sourceFile := cfg.CSVPath

	if cfg.Resume {
		snap, err := store.LoadLatest()
		if err != nil {
			return err
		}
		if snap != nil {
			records = snap.Records
			resumeFrom = snap.LastProcessedIndex
			if snap.SourceFile != "" {
				sourceFile = snap.SourceFile
			}
			logger.Info("resuming from snapshot",
				zap.Int("cursor", resumeFrom),
				zap.Int("records", len(records)),
				zap.String("source", sourceFile),
			)
		} else {
			logger.Info("no snapshot found, starting fresh")
		}
	}

	if records == nil {
		if cfg.CSVPath == "" {
			return fmt.Errorf("csv path is required")
		}
		result, err := pipeline.Validate(cfg.CSVPath)
		if err != nil {
			return err
		}
		printValidation(result)
		if !result.Valid {
			return fmt.Errorf("csv validation failed with %d errors", len(result.Errors))
		}
		records, err = pipeline.Parse(cfg.CSVPath)
		if err != nil {
			return err
		}
	}

	engineCfg := engine.Config{
		ConfirmationDepth:   cfg.ConfirmationDepth,
		ConfirmationTimeout: cfg.ConfirmationTimeout,
		CheckpointInterval:  cfg.CheckpointInterval,
		TransferDelay:       cfg.TransferDelay,
		GasBuffer:           gasBuffer,
		SourceFile:          sourceFile,
		DryRunSample:        cfg.DryRunSample,
		DryRunDelay:         cfg.DryRunDelay,
	}

	if cfg.DryRun {
		eng := engine.New(engineCfg, nil, nil, nil, logger)
		preview := eng.DryRun(ctx, records)
		fmt.Printf("dry run: previewed %d of %d records, nothing sent\n", len(preview), len(records))
		return nil
	}

	if cfg.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if cfg.Seed == "" {
		return fmt.Errorf("seed is required (flag --seed or TOKENDRIP_SEED)")
	}

	client, err := chain.Connect(cfg.Endpoint, cfg.Seed, net, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	term := prompt.NewTerminal(os.Stdin, os.Stdout)
	var policy engine.FailurePolicy = term
	if cfg.Yes {
		policy = engine.MaxAttemptsPolicy{MaxAttempts: 3}
	}

	eng := engine.New(engineCfg, client, store, policy, logger)

	total := new(big.Int)
	for _, rec := range records {
		total.Add(total, &rec.Amount.Int)
	}

	check, err := eng.ValidateSufficientBalance(ctx, total)
	if err != nil {
		logger.Warn("balance pre-check failed", zap.Error(err))
	} else if !check.Sufficient {
		fmt.Printf("balance %s is below the required %s (short by %s)\n",
			fixedpoint.ToDecimalString(check.CurrentBalance),
			fixedpoint.ToDecimalString(check.RequiredAmount),
			fixedpoint.ToDecimalString(check.Shortfall),
		)
		if cfg.Yes {
			logger.Warn("proceeding despite insufficient balance")
		} else if !term.Confirm("proceed anyway?") {
			return nil
		}
	}

	if !cfg.Yes {
		question := fmt.Sprintf("distribute %s to %d addresses on %s?",
			fixedpoint.ToDecimalString(total), len(records), net.Name)
		if !term.Confirm(question) {
			return nil
		}
	}

	summary, runErr := eng.Distribute(ctx, records, resumeFrom)

	if summary != nil {
		if err := txlog.Write(cfg.Report, cfg.Network, records); err != nil {
			logger.Warn("write transaction report failed", zap.Error(err))
		} else {
			fmt.Printf("transaction report written to %s\n", cfg.Report)
		}
		printSummary(summary)
	}

	return runErr
}

func printSummary(s *model.DistributionSummary) {
	fmt.Printf("records:     %d\n", s.TotalRecords)
	fmt.Printf("completed:   %d\n", s.Completed)
	fmt.Printf("failed:      %d\n", s.Failed)
	fmt.Printf("skipped:     %d\n", s.Skipped)
	fmt.Printf("distributed: %s\n", fixedpoint.ToDecimalString(&s.DistributedAmount.Int))
	fmt.Printf("failed amt:  %s\n", fixedpoint.ToDecimalString(&s.FailedAmount.Int))
	switch {
	case s.AbortedByUser:
		fmt.Println("run aborted by operator")
	case s.EndTime == nil:
		fmt.Println("run paused, resume with --resume")
	default:
		fmt.Printf("finished at %s\n", s.EndTime.Format("2006-01-02 15:04:05 MST"))
	}
}
