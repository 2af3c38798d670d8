// Package chain defines the chain access capability consumed by the
// distribution engine, plus its Substrate implementation. The engine only
// sees this interface; tests substitute fakes.
package chain

import (
	"context"
	"math/big"
	"time"
)

// TransferResult identifies a submitted transfer once it has been included in
// a block.
type TransferResult struct {
	TxHash      string
	BlockHash   string
	BlockNumber uint64
}

// Client is the capability the engine needs: submit one transfer, wait for it
// to settle, read a balance, release the connection. Implementations return
// errors, never panic, for transfer failures; a confirmation timeout is an
// error, not a hang.
type Client interface {
	// Sender returns the funding account's address.
	Sender() string

	// Balance returns the free balance of an address in minor units.
	Balance(ctx context.Context, address string) (*big.Int, error)

	// SubmitTransfer signs and submits a transfer and blocks until the
	// extrinsic is included in a block.
	SubmitTransfer(ctx context.Context, to string, amount *big.Int) (*TransferResult, error)

	// AwaitConfirmations blocks until depth block headers have been observed
	// after the inclusion block, or the timeout elapses. Any subscription is
	// torn down before returning, on every path.
	AwaitConfirmations(ctx context.Context, res *TransferResult, depth int, timeout time.Duration) error

	// Close releases the connection. Safe to call more than once.
	Close()
}
