package engine

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokendrip/internal/chain"
	"tokendrip/internal/model"
	"tokendrip/internal/resume"
)

// fakeClient scripts transfer outcomes per destination address.
type fakeClient struct {
	sender     string
	balance    *big.Int
	failures   map[string]int // failures remaining before success
	confirmErr error
	submitted  []string
	closed     bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		sender:   "sender-address",
		balance:  new(big.Int),
		failures: make(map[string]int),
	}
}

func (f *fakeClient) Sender() string { return f.sender }

func (f *fakeClient) Balance(_ context.Context, _ string) (*big.Int, error) {
	return new(big.Int).Set(f.balance), nil
}

func (f *fakeClient) SubmitTransfer(_ context.Context, to string, _ *big.Int) (*chain.TransferResult, error) {
	if n := f.failures[to]; n > 0 {
		f.failures[to] = n - 1
		return nil, errors.New("node rejected the extrinsic")
	}
	f.submitted = append(f.submitted, to)
	return &chain.TransferResult{TxHash: "0xtx-" + to, BlockHash: "0xblock", BlockNumber: 100}, nil
}

func (f *fakeClient) AwaitConfirmations(_ context.Context, _ *chain.TransferResult, _ int, _ time.Duration) error {
	return f.confirmErr
}

func (f *fakeClient) Close() { f.closed = true }

// scriptedPolicy returns canned decisions in order, then skips.
type scriptedPolicy struct {
	decisions []Decision
	calls     int
}

func (p *scriptedPolicy) OnTransferFailure(_ *model.DistributionRecord, _ int, _ error, _ int) Decision {
	if p.calls >= len(p.decisions) {
		return DecisionSkip
	}
	d := p.decisions[p.calls]
	p.calls++
	return d
}

func testRecords(amounts ...uint64) []*model.DistributionRecord {
	records := make([]*model.DistributionRecord, len(amounts))
	for i, amt := range amounts {
		records[i] = &model.DistributionRecord{
			Address:   string(rune('a' + i)),
			Amount:    model.NewAmountFromUint64(amt),
			Status:    model.StatusPending,
			SourceRow: i + 1,
		}
	}
	return records
}

func newTestEngine(t *testing.T, client chain.Client, policy FailurePolicy) (*Engine, *resume.Store) {
	t.Helper()
	store := resume.NewStore(t.TempDir(), nil)
	eng := New(Config{
		CheckpointInterval: 1,
		TransferDelay:      0,
	}, client, store, policy, nil)
	return eng, store
}

func TestDistributeAllSuccess(t *testing.T) {
	client := newFakeClient()
	eng, store := newTestEngine(t, client, nil)
	records := testRecords(100, 250)

	summary, err := eng.Distribute(context.Background(), records, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Completed)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, "350", summary.TotalAmount.String())
	assert.Equal(t, "350", summary.DistributedAmount.String())
	assert.Equal(t, "0", summary.FailedAmount.String())
	require.NotNil(t, summary.EndTime)
	assert.False(t, summary.AbortedByUser)

	for _, rec := range records {
		assert.Equal(t, model.StatusCompleted, rec.Status)
		assert.NotEmpty(t, rec.TxHash)
		assert.Equal(t, uint64(100), rec.BlockNumber)
	}

	// Normal completion invalidates resumability.
	ids, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDistributeRetryThenSuccess(t *testing.T) {
	client := newFakeClient()
	client.failures["a"] = 2
	eng, _ := newTestEngine(t, client, MaxAttemptsPolicy{MaxAttempts: 3})
	records := testRecords(100, 250)

	summary, err := eng.Distribute(context.Background(), records, 0)
	require.NoError(t, err)

	// Retries do not double-count: the record completes exactly once.
	assert.Equal(t, 2, summary.Completed)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, "350", summary.DistributedAmount.String())
	assert.Equal(t, "0", summary.FailedAmount.String())

	assert.Equal(t, model.StatusCompleted, records[0].Status)
	assert.Equal(t, 2, records[0].Attempts)
	assert.Empty(t, records[0].Error)
}

func TestDistributeSkipAfterAttemptCap(t *testing.T) {
	client := newFakeClient()
	client.failures["a"] = 100
	eng, _ := newTestEngine(t, client, MaxAttemptsPolicy{MaxAttempts: 3})
	records := testRecords(100, 250)

	summary, err := eng.Distribute(context.Background(), records, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, "250", summary.DistributedAmount.String())
	assert.Equal(t, "100", summary.FailedAmount.String())
	require.NotNil(t, summary.EndTime)

	assert.Equal(t, model.StatusFailed, records[0].Status)
	assert.Equal(t, 3, records[0].Attempts)
	assert.Contains(t, records[0].Error, "rejected")
	assert.Equal(t, model.StatusCompleted, records[1].Status)
}

func TestDistributeConfirmationTimeoutIsFailure(t *testing.T) {
	client := newFakeClient()
	client.confirmErr = chain.ErrConfirmationTimeout
	eng, _ := newTestEngine(t, client, &scriptedPolicy{decisions: []Decision{DecisionSkip}})
	records := testRecords(100)

	summary, err := eng.Distribute(context.Background(), records, 0)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Completed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, model.StatusFailed, records[0].Status)
	assert.Contains(t, records[0].Error, "confirmation timeout")
}

func TestDistributePause(t *testing.T) {
	client := newFakeClient()
	client.failures["b"] = 100
	policy := &scriptedPolicy{decisions: []Decision{DecisionPause}}
	eng, store := newTestEngine(t, client, policy)
	records := testRecords(100, 250, 400)

	summary, err := eng.Distribute(context.Background(), records, 0)
	require.NoError(t, err)

	// Paused, not finished: distinguishable from both completion and abort.
	assert.Nil(t, summary.EndTime)
	assert.False(t, summary.AbortedByUser)
	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 1, summary.Failed)

	// Third record untouched.
	assert.Equal(t, model.StatusPending, records[2].Status)

	// Checkpointed at the failed index so resume retries it first.
	snap, err := store.LoadLatest()
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 1, snap.LastProcessedIndex)
	assert.Equal(t, model.StatusFailed, snap.Records[1].Status)
}

func TestDistributeAbort(t *testing.T) {
	client := newFakeClient()
	client.failures["b"] = 100
	policy := &scriptedPolicy{decisions: []Decision{DecisionAbort}}
	eng, store := newTestEngine(t, client, policy)
	records := testRecords(100, 250, 400)

	summary, err := eng.Distribute(context.Background(), records, 0)
	require.NoError(t, err)

	require.NotNil(t, summary.EndTime)
	assert.True(t, summary.AbortedByUser)
	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 1, summary.Failed)

	// Aborts checkpoint past the failed record.
	snap, err := store.LoadLatest()
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 2, snap.LastProcessedIndex)
}

func TestDistributeResumeRetriesFailedRecord(t *testing.T) {
	client := newFakeClient()
	eng, _ := newTestEngine(t, client, nil)

	records := testRecords(100, 250, 400)
	records[0].Status = model.StatusCompleted
	records[0].TxHash = "0xearlier"
	records[1].Status = model.StatusFailed
	records[1].Error = "node rejected the extrinsic"
	records[1].Attempts = 2

	summary, err := eng.Distribute(context.Background(), records, 1)
	require.NoError(t, err)

	// The failed record was reset and retried, attempts preserved.
	assert.Equal(t, model.StatusCompleted, records[1].Status)
	assert.Equal(t, 2, records[1].Attempts)
	assert.Empty(t, records[1].Error)

	// Pre-cursor completion carries into the summary.
	assert.Equal(t, 1, summary.ResumedFrom)
	assert.Equal(t, 3, summary.Completed)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, "750", summary.DistributedAmount.String())

	// The completed record was not re-sent.
	assert.NotContains(t, client.submitted, "a")
}

func TestDistributeSkipsCompletedInRange(t *testing.T) {
	client := newFakeClient()
	eng, _ := newTestEngine(t, client, nil)

	records := testRecords(100, 250)
	records[0].Status = model.StatusCompleted
	records[0].TxHash = "0xearlier"

	summary, err := eng.Distribute(context.Background(), records, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, "350", summary.DistributedAmount.String())
	assert.True(t, summary.Completed+summary.Failed+summary.Skipped <= summary.TotalRecords)
	assert.NotContains(t, client.submitted, "a")
}

func TestDistributeCancellation(t *testing.T) {
	client := newFakeClient()
	eng, store := newTestEngine(t, client, nil)
	records := testRecords(100, 250)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := eng.Distribute(ctx, records, 0)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	assert.Equal(t, 0, summary.Completed)

	// State was checkpointed before returning.
	snap, err := store.LoadLatest()
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 0, snap.LastProcessedIndex)
}

func TestDistributeNotInitialized(t *testing.T) {
	eng := New(Config{}, nil, nil, nil, nil)
	_, err := eng.Distribute(context.Background(), testRecords(100), 0)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestValidateSufficientBalance(t *testing.T) {
	client := newFakeClient()
	client.balance = big.NewInt(1000)
	eng := New(Config{GasBuffer: big.NewInt(50)}, client, nil, nil, nil)

	check, err := eng.ValidateSufficientBalance(context.Background(), big.NewInt(900))
	require.NoError(t, err)
	assert.True(t, check.Sufficient)
	assert.Equal(t, "1000", check.CurrentBalance.String())
	assert.Equal(t, "950", check.RequiredAmount.String())
	assert.Nil(t, check.Shortfall)

	check, err = eng.ValidateSufficientBalance(context.Background(), big.NewInt(980))
	require.NoError(t, err)
	assert.False(t, check.Sufficient)
	assert.Equal(t, "1030", check.RequiredAmount.String())
	assert.Equal(t, "30", check.Shortfall.String())

	// Exact equality counts as sufficient.
	check, err = eng.ValidateSufficientBalance(context.Background(), big.NewInt(950))
	require.NoError(t, err)
	assert.True(t, check.Sufficient)
	assert.Nil(t, check.Shortfall)
}

func TestDryRunSamples(t *testing.T) {
	eng := New(Config{DryRunSample: 2, DryRunDelay: 0}, newFakeClient(), nil, nil, nil)
	records := testRecords(100, 250, 400)

	preview := eng.DryRun(context.Background(), records)
	require.Len(t, preview, 2)
	assert.Equal(t, records[0], preview[0])
	assert.Equal(t, records[1], preview[1])

	// Nothing was sent and nothing was mutated.
	for _, rec := range records {
		assert.Equal(t, model.StatusPending, rec.Status)
	}
}

func TestMaxAttemptsPolicy(t *testing.T) {
	policy := MaxAttemptsPolicy{MaxAttempts: 3}

	assert.Equal(t, DecisionRetry, policy.OnTransferFailure(nil, 0, errors.New("x"), 1))
	assert.Equal(t, DecisionRetry, policy.OnTransferFailure(nil, 0, errors.New("x"), 2))
	assert.Equal(t, DecisionSkip, policy.OnTransferFailure(nil, 0, errors.New("x"), 3))

	// Zero value defaults to three attempts.
	zero := MaxAttemptsPolicy{}
	assert.Equal(t, DecisionRetry, zero.OnTransferFailure(nil, 0, errors.New("x"), 2))
	assert.Equal(t, DecisionSkip, zero.OnTransferFailure(nil, 0, errors.New("x"), 3))
}
