package model

import (
	"math/big"
	"time"
)

// Status is the lifecycle state of a single distribution record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// DistributionRecord tracks one transfer from ingest through settlement.
// The engine is the sole mutator during a run; records are transitioned,
// never deleted.
type DistributionRecord struct {
	Address     string     `json:"address"`
	Amount      *Amount    `json:"amount"`
	Status      Status     `json:"status"`
	TxHash      string     `json:"tx_hash,omitempty"`
	BlockHash   string     `json:"block_hash,omitempty"`
	BlockNumber uint64     `json:"block_number,omitempty"`
	Error       string     `json:"error,omitempty"`
	Attempts    int        `json:"attempts"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	SourceRow   int        `json:"source_row,omitempty"`
}

// DistributionSummary aggregates run progress. Counters always satisfy
// Completed+Failed+Skipped <= TotalRecords, and DistributedAmount equals the
// sum of amounts over completed records.
type DistributionSummary struct {
	TotalRecords      int        `json:"total_records"`
	Completed         int        `json:"completed"`
	Failed            int        `json:"failed"`
	Skipped           int        `json:"skipped"`
	TotalAmount       *Amount    `json:"total_amount"`
	DistributedAmount *Amount    `json:"distributed_amount"`
	FailedAmount      *Amount    `json:"failed_amount"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           *time.Time `json:"end_time,omitempty"`
	ResumedFrom       int        `json:"resumed_from,omitempty"`
	AbortedByUser     bool       `json:"aborted_by_user,omitempty"`
}

// NewSummary initializes a summary for the given record set, with the exact
// total precomputed and all progress counters at zero.
func NewSummary(records []*DistributionRecord) *DistributionSummary {
	total := new(big.Int)
	for _, rec := range records {
		if rec.Amount != nil {
			total.Add(total, &rec.Amount.Int)
		}
	}
	return &DistributionSummary{
		TotalRecords:      len(records),
		TotalAmount:       NewAmount(total),
		DistributedAmount: NewAmount(nil),
		FailedAmount:      NewAmount(nil),
		StartTime:         time.Now().UTC(),
	}
}

// ResumeSnapshot is a durable point-in-time copy of a run: the full record
// sequence, the summary, and the cursor of the next record to process.
type ResumeSnapshot struct {
	Records            []*DistributionRecord `json:"records"`
	Summary            *DistributionSummary  `json:"summary"`
	LastProcessedIndex int                   `json:"last_processed_index"`
	Timestamp          time.Time             `json:"timestamp"`
	SourceFile         string                `json:"source_file,omitempty"`
}
