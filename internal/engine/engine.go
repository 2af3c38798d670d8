// Package engine drives the sequential, resumable distribution loop. At most
// one transfer is outstanding at any time: strict ordering keeps the sender
// nonce monotonic and the checkpoint cursor an unambiguous resume point.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"tokendrip/internal/chain"
	"tokendrip/internal/fixedpoint"
	"tokendrip/internal/model"
	"tokendrip/internal/resume"
)

// ErrNotInitialized is returned when the engine is missing its chain client.
var ErrNotInitialized = errors.New("engine not initialized")

// Config holds the run parameters.
type Config struct {
	// ConfirmationDepth is how many block headers must be observed after
	// inclusion before a transfer counts as settled.
	ConfirmationDepth int
	// ConfirmationTimeout bounds the confirmation wait; expiry fails the
	// transfer rather than hanging.
	ConfirmationTimeout time.Duration
	// CheckpointInterval is the number of records between periodic
	// checkpoints. Zero disables periodic checkpointing.
	CheckpointInterval int
	// TransferDelay is a throughput throttle applied after every processed
	// record regardless of outcome.
	TransferDelay time.Duration
	// GasBuffer, in minor units, is headroom added to the distribution total
	// in the balance pre-check.
	GasBuffer *big.Int
	// SourceFile is recorded in snapshots for operator reference.
	SourceFile string
	// DryRunSample and DryRunDelay shape the sampled dry-run preview.
	DryRunSample int
	DryRunDelay  time.Duration
}

// BalanceCheck is the outcome of the pre-run balance validation. Shortfall is
// nil when the balance suffices.
type BalanceCheck struct {
	Sufficient     bool
	CurrentBalance *big.Int
	RequiredAmount *big.Int
	Shortfall      *big.Int
}

// Engine executes one distribution run over an owned record sequence.
type Engine struct {
	cfg    Config
	client chain.Client
	store  *resume.Store
	policy FailurePolicy
	logger *zap.Logger
}

func New(cfg Config, client chain.Client, store *resume.Store, policy FailurePolicy, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == nil {
		policy = MaxAttemptsPolicy{}
	}
	if cfg.ConfirmationDepth <= 0 {
		cfg.ConfirmationDepth = 2
	}
	if cfg.ConfirmationTimeout <= 0 {
		cfg.ConfirmationTimeout = 5 * time.Minute
	}
	if cfg.GasBuffer == nil {
		cfg.GasBuffer = fixedpoint.Scale()
	}
	if cfg.DryRunSample <= 0 {
		cfg.DryRunSample = 5
	}
	return &Engine{cfg: cfg, client: client, store: store, policy: policy, logger: logger}
}

// Distribute processes records sequentially from resumeFrom to the end,
// mutating them in place and returning the run summary. Per-record transfer
// failures are absorbed into record state and counters; the error return is
// reserved for unrecoverable preconditions and context cancellation.
func (e *Engine) Distribute(ctx context.Context, records []*model.DistributionRecord, resumeFrom int) (*model.DistributionSummary, error) {
	if e.client == nil {
		return nil, ErrNotInitialized
	}
	if resumeFrom < 0 {
		resumeFrom = 0
	}

	summary := model.NewSummary(records)
	if resumeFrom > 0 {
		summary.ResumedFrom = resumeFrom
	}

	// Records before the cursor keep the outcome of the prior run.
	for _, rec := range records[:min(resumeFrom, len(records))] {
		switch rec.Status {
		case model.StatusCompleted:
			summary.Completed++
			summary.DistributedAmount.Add(&summary.DistributedAmount.Int, &rec.Amount.Int)
		case model.StatusFailed:
			summary.Failed++
			summary.FailedAmount.Add(&summary.FailedAmount.Int, &rec.Amount.Int)
		}
	}

	// Failed records from a paused run get another chance: back to pending,
	// error cleared, attempt count preserved.
	for _, rec := range records[min(resumeFrom, len(records)):] {
		if rec.Status == model.StatusFailed {
			rec.Status = model.StatusPending
			rec.Error = ""
		}
	}

	// Durability before the first send: a crash here resumes from the start.
	e.checkpoint(records, summary, resumeFrom)

	for i := resumeFrom; i < len(records); i++ {
		if err := ctx.Err(); err != nil {
			e.checkpoint(records, summary, i)
			return summary, err
		}

		rec := records[i]
		if rec.Status == model.StatusCompleted {
			summary.Skipped++
			summary.DistributedAmount.Add(&summary.DistributedAmount.Int, &rec.Amount.Int)
			continue
		}

		transferErr := e.processRecord(ctx, rec)
		if transferErr == nil {
			summary.Completed++
			summary.DistributedAmount.Add(&summary.DistributedAmount.Int, &rec.Amount.Int)
			e.logger.Info("transfer completed",
				zap.Int("index", i),
				zap.String("address", rec.Address),
				zap.String("amount", fixedpoint.ToDecimalString(&rec.Amount.Int)),
				zap.String("tx", rec.TxHash),
			)
		} else {
			e.logger.Warn("transfer failed",
				zap.Int("index", i),
				zap.String("address", rec.Address),
				zap.String("amount", fixedpoint.ToDecimalString(&rec.Amount.Int)),
				zap.Int("attempts", rec.Attempts),
				zap.Error(transferErr),
			)

			switch e.policy.OnTransferFailure(rec, i, transferErr, rec.Attempts) {
			case DecisionRetry:
				i--
			case DecisionPause:
				summary.Failed++
				summary.FailedAmount.Add(&summary.FailedAmount.Int, &rec.Amount.Int)
				// Checkpoint at the current index so the failed record is the
				// first one retried on resume. No end time: the run is paused,
				// not finished.
				e.checkpoint(records, summary, i)
				e.logger.Info("run paused", zap.Int("index", i))
				return summary, nil
			case DecisionAbort:
				summary.Failed++
				summary.FailedAmount.Add(&summary.FailedAmount.Int, &rec.Amount.Int)
				now := time.Now().UTC()
				summary.EndTime = &now
				summary.AbortedByUser = true
				e.checkpoint(records, summary, i+1)
				e.logger.Info("run aborted", zap.Int("index", i))
				return summary, nil
			default: // DecisionSkip
				summary.Failed++
				summary.FailedAmount.Add(&summary.FailedAmount.Int, &rec.Amount.Int)
			}
		}

		if e.cfg.CheckpointInterval > 0 && (i+1)%e.cfg.CheckpointInterval == 0 {
			e.checkpoint(records, summary, i+1)
		}

		if err := e.delay(ctx); err != nil {
			e.checkpoint(records, summary, i+1)
			return summary, err
		}
	}

	now := time.Now().UTC()
	summary.EndTime = &now

	// A fully completed run has nothing left to resume.
	if e.store != nil {
		if err := e.store.Clear(); err != nil {
			e.logger.Warn("clear snapshots failed", zap.Error(err))
		}
	}

	e.logger.Info("distribution complete",
		zap.Int("total", summary.TotalRecords),
		zap.Int("completed", summary.Completed),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.String("distributed", fixedpoint.ToDecimalString(&summary.DistributedAmount.Int)),
	)

	return summary, nil
}

// processRecord performs one transfer attempt, mutating the record to its
// outcome state. The returned error is the transfer failure, already recorded
// on the record.
func (e *Engine) processRecord(ctx context.Context, rec *model.DistributionRecord) error {
	now := time.Now().UTC()
	rec.Status = model.StatusProcessing
	rec.Timestamp = &now

	res, err := e.client.SubmitTransfer(ctx, rec.Address, rec.Amount.BigInt())
	if err == nil {
		err = e.client.AwaitConfirmations(ctx, res, e.cfg.ConfirmationDepth, e.cfg.ConfirmationTimeout)
	}

	if err != nil {
		rec.Status = model.StatusFailed
		rec.Error = err.Error()
		rec.Attempts++
		return err
	}

	rec.Status = model.StatusCompleted
	rec.TxHash = res.TxHash
	rec.BlockHash = res.BlockHash
	rec.BlockNumber = res.BlockNumber
	rec.Error = ""
	return nil
}

// ValidateSufficientBalance checks the sender's balance against the
// distribution total plus the gas buffer. It never blocks the run by itself;
// proceeding despite a shortfall is the caller's decision.
func (e *Engine) ValidateSufficientBalance(ctx context.Context, total *big.Int) (*BalanceCheck, error) {
	if e.client == nil {
		return nil, ErrNotInitialized
	}

	balance, err := e.client.Balance(ctx, e.client.Sender())
	if err != nil {
		return nil, fmt.Errorf("fetch sender balance: %w", err)
	}

	required := new(big.Int).Add(total, e.cfg.GasBuffer)
	check := &BalanceCheck{
		Sufficient:     balance.Cmp(required) >= 0,
		CurrentBalance: balance,
		RequiredAmount: required,
	}
	if !check.Sufficient {
		check.Shortfall = new(big.Int).Sub(required, balance)
	}
	return check, nil
}

// DryRun returns a sampled preview of the first records without touching the
// chain, pacing each entry by the configured delay. This is presentational: a
// sample, not a full simulation.
func (e *Engine) DryRun(ctx context.Context, records []*model.DistributionRecord) []*model.DistributionRecord {
	sample := e.cfg.DryRunSample
	if sample > len(records) {
		sample = len(records)
	}

	preview := make([]*model.DistributionRecord, 0, sample)
	for _, rec := range records[:sample] {
		preview = append(preview, rec)
		e.logger.Info("dry run",
			zap.Int("row", rec.SourceRow),
			zap.String("address", rec.Address),
			zap.String("amount", fixedpoint.ToDecimalString(&rec.Amount.Int)),
		)
		if e.cfg.DryRunDelay > 0 {
			timer := time.NewTimer(e.cfg.DryRunDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return preview
			case <-timer.C:
			}
		}
	}
	return preview
}

// checkpoint is fire-and-forget with respect to run correctness: a failed
// write is logged and the run continues, at the risk of replaying more work
// after a crash. It is synchronous relative to loop progression.
func (e *Engine) checkpoint(records []*model.DistributionRecord, summary *model.DistributionSummary, cursor int) {
	if e.store == nil {
		return
	}
	if err := e.store.Checkpoint(records, summary, cursor, e.cfg.SourceFile); err != nil {
		e.logger.Warn("checkpoint failed", zap.Int("cursor", cursor), zap.Error(err))
	}
}

func (e *Engine) delay(ctx context.Context) error {
	if e.cfg.TransferDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(e.cfg.TransferDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
