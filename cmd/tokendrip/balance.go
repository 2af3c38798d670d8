package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tokendrip/internal/address"
	"tokendrip/internal/chain"
	"tokendrip/internal/config"
	"tokendrip/internal/engine"
	"tokendrip/internal/fixedpoint"
	"tokendrip/internal/ingest"
)

func runBalance(cmd *cobra.Command, _ []string) error {
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
	if cfg.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if cfg.Seed == "" {
		return fmt.Errorf("seed is required (flag --seed or TOKENDRIP_SEED)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	net := chain.LookupNetwork(cfg.Network)
	validator := address.NewSS58Validator(net.PrimaryPrefix, net.LegacyPrefix)

	gasBuffer, err := fixedpoint.ToMinorUnits(cfg.GasBuffer)
	if err != nil {
		return fmt.Errorf("gas-buffer: %w", err)
	}

	pipeline := ingest.NewPipeline(validator, ingest.Options{}, logger)
	records, err := pipeline.Parse(cfg.CSVPath)
	if err != nil {
		return err
	}

	total := new(big.Int)
	for _, rec := range records {
		total.Add(total, &rec.Amount.Int)
	}

	client, err := chain.Connect(cfg.Endpoint, cfg.Seed, net, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	eng := engine.New(engine.Config{GasBuffer: gasBuffer}, client, nil, nil, logger)
	check, err := eng.ValidateSufficientBalance(ctx, total)
	if err != nil {
		return err
	}

	fmt.Printf("sender:   %s\n", client.Sender())
	fmt.Printf("balance:  %s\n", fixedpoint.ToDecimalString(check.CurrentBalance))
	fmt.Printf("required: %s (%d records + gas buffer)\n", fixedpoint.ToDecimalString(check.RequiredAmount), len(records))
	if check.Sufficient {
		fmt.Println("balance is sufficient")
	} else {
		fmt.Printf("short by %s\n", fixedpoint.ToDecimalString(check.Shortfall))
	}
	return nil
}
