// Package txlog writes the per-run transaction report: one CSV row per
// distribution record with its outcome and an explorer link when available.
package txlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"tokendrip/internal/chain"
	"tokendrip/internal/fixedpoint"
	"tokendrip/internal/model"
)

var header = []string{"SourceFileRowNumber", "Address", "Amount", "Status", "TransactionHash", "ExplorerLink"}

// Write renders the report to path. Amounts use the canonical decimal form;
// csv.Writer handles RFC 4180 quoting (doubled internal quotes) for any field
// containing commas, quotes, or newlines.
func Write(path, network string, records []*model.DistributionRecord) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}

	for _, rec := range records {
		row := []string{
			strconv.Itoa(rec.SourceRow),
			rec.Address,
			fixedpoint.ToDecimalString(&rec.Amount.Int),
			string(rec.Status),
			rec.TxHash,
			chain.ExplorerLink(network, rec.TxHash),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write report row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return file.Close()
}
