// Package ingest streams a two-column address,amount CSV, validating every
// row and accumulating errors, warnings, duplicates, and exact totals. Row
// findings are collected, never thrown; only file access failures abort.
package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"go.uber.org/zap"

	"tokendrip/internal/address"
	"tokendrip/internal/fixedpoint"
	"tokendrip/internal/model"
)

// Options carries the advisory amount thresholds, all in minor units.
type Options struct {
	// MinTransfer is the existential deposit: amounts below it warn that the
	// destination account may be unable to hold the funds.
	MinTransfer *big.Int
	// DustThreshold flags amounts small enough to vanish in display rounding.
	DustThreshold *big.Int
	// LargeAmount flags suspiciously large amounts, usually a decimal slip.
	LargeAmount *big.Int
}

// Duplicate lists every 1-based line on which an address appears more than once.
type Duplicate struct {
	Address string `json:"address"`
	Lines   []int  `json:"lines"`
}

// Result is the outcome of a full validation pass over one file.
type Result struct {
	Valid        bool
	Errors       []string
	Warnings     []string
	Duplicates   []Duplicate
	TotalAmount  *big.Int
	RecordCount  int
	AddressKinds map[address.Kind]int
}

// Pipeline validates and parses distribution CSV files.
type Pipeline struct {
	validator *address.Validator
	opts      Options
	logger    *zap.Logger
}

func NewPipeline(validator *address.Validator, opts Options, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MinTransfer == nil {
		// 0.0000005 tokens at 18 decimals.
		opts.MinTransfer = new(big.Int).SetUint64(500_000_000_000)
	}
	if opts.DustThreshold == nil {
		opts.DustThreshold = new(big.Int).SetUint64(1000)
	}
	if opts.LargeAmount == nil {
		opts.LargeAmount = new(big.Int).Mul(big.NewInt(1_000_000), fixedpoint.Scale())
	}
	return &Pipeline{validator: validator, opts: opts, logger: logger}
}

// Validate runs a read-only pass over the file and reports every finding. It
// returns an error only when the file cannot be opened or read; validation
// findings live in the Result.
func (p *Pipeline) Validate(path string) (*Result, error) {
	result := &Result{
		TotalAmount:  new(big.Int),
		AddressKinds: make(map[address.Kind]int),
	}

	seen := make(map[string][]int)
	var seenOrder []string

	err := p.scan(path, func(lineNo int, line string) {
		rec, warnings, rowErr := p.parseRow(lineNo, line)
		if rowErr != nil {
			result.Errors = append(result.Errors, rowErr.Error())
			return
		}
		result.Warnings = append(result.Warnings, warnings...)

		if prior := seen[rec.Address]; len(prior) > 0 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("line %d: duplicate address %s (first seen on line %d)", lineNo, rec.Address, prior[0]))
		} else {
			seenOrder = append(seenOrder, rec.Address)
		}
		seen[rec.Address] = append(seen[rec.Address], lineNo)

		if _, kind, ok := p.validator.Classify(rec.Address); ok {
			result.AddressKinds[kind]++
		}

		result.TotalAmount.Add(result.TotalAmount, &rec.Amount.Int)
		result.RecordCount++
	})
	if err != nil {
		return nil, err
	}

	for _, addr := range seenOrder {
		if lines := seen[addr]; len(lines) > 1 {
			result.Duplicates = append(result.Duplicates, Duplicate{Address: addr, Lines: lines})
		}
	}

	if result.RecordCount == 0 {
		result.Errors = append(result.Errors, "no valid records found in file")
	} else if result.TotalAmount.Sign() == 0 {
		result.Errors = append(result.Errors, "total distribution amount is zero")
	}

	result.Valid = len(result.Errors) == 0

	p.logger.Info("csv validated",
		zap.String("path", path),
		zap.Int("records", result.RecordCount),
		zap.Int("errors", len(result.Errors)),
		zap.Int("warnings", len(result.Warnings)),
		zap.Int("duplicates", len(result.Duplicates)),
		zap.String("total", result.TotalAmount.String()),
	)

	return result, nil
}

// Parse runs a second pass and returns records for the rows that are
// individually valid, tagged with their 1-based source line number and
// status pending. Invalid rows are dropped silently; Validate reports them.
func (p *Pipeline) Parse(path string) ([]*model.DistributionRecord, error) {
	var records []*model.DistributionRecord
	err := p.scan(path, func(lineNo int, line string) {
		rec, _, rowErr := p.parseRow(lineNo, line)
		if rowErr != nil {
			return
		}
		records = append(records, rec)
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (p *Pipeline) scan(path string, visit func(lineNo int, line string)) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		visit(lineNo, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read csv: %w", err)
	}
	return nil
}

func (p *Pipeline) parseRow(lineNo int, line string) (*model.DistributionRecord, []string, error) {
	parts := strings.Split(line, ",")
	if len(parts) > 2 {
		return nil, nil, fmt.Errorf("line %d: expected address,amount but found %d fields", lineNo, len(parts))
	}

	addr := strings.TrimSpace(parts[0])
	if addr == "" {
		return nil, nil, fmt.Errorf("line %d: missing address", lineNo)
	}

	var amountStr string
	if len(parts) == 2 {
		amountStr = strings.TrimSpace(parts[1])
	}
	if amountStr == "" {
		return nil, nil, fmt.Errorf("line %d: missing amount", lineNo)
	}

	if res := p.validator.Validate(addr); !res.Valid {
		return nil, nil, fmt.Errorf("line %d: invalid address %q: %s", lineNo, addr, res.Err)
	}

	amount, err := fixedpoint.ToMinorUnits(amountStr)
	if err != nil {
		if errors.Is(err, fixedpoint.ErrTooManyDecimals) {
			return nil, nil, fmt.Errorf("line %d: amount %q has too many decimal places (maximum %d)", lineNo, amountStr, fixedpoint.Decimals)
		}
		return nil, nil, fmt.Errorf("line %d: invalid amount %q", lineNo, amountStr)
	}
	if amount.Sign() == 0 {
		return nil, nil, fmt.Errorf("line %d: amount %q is zero; amounts must be greater than zero", lineNo, amountStr)
	}

	var warnings []string
	if amount.Cmp(p.opts.MinTransfer) < 0 {
		warnings = append(warnings, fmt.Sprintf(
			"line %d: amount %s is below the existential deposit (%s); the transfer may still succeed for funded accounts",
			lineNo, fixedpoint.ToDecimalString(amount), fixedpoint.ToDecimalString(p.opts.MinTransfer)))
	}
	if amount.Cmp(p.opts.DustThreshold) < 0 {
		warnings = append(warnings, fmt.Sprintf(
			"line %d: amount %s minor units is below the precision threshold and may be indistinguishable from zero in display tools",
			lineNo, amount.String()))
	}
	if amount.Cmp(p.opts.LargeAmount) > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"line %d: amount %s is unusually large, double-check the decimal point",
			lineNo, fixedpoint.ToDecimalString(amount)))
	}

	rec := &model.DistributionRecord{
		Address:   addr,
		Amount:    model.NewAmount(amount),
		Status:    model.StatusPending,
		SourceRow: lineNo,
	}
	return rec, warnings, nil
}
