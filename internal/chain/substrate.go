package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	gsrpc "github.com/centrifuge/go-substrate-rpc-api/v4"
	"github.com/centrifuge/go-substrate-rpc-api/v4/signature"
	"github.com/centrifuge/go-substrate-rpc-api/v4/types"
	"github.com/centrifuge/go-substrate-rpc-api/v4/types/codec"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"tokendrip/internal/ss58"
)

// ErrConfirmationTimeout marks a transfer whose confirmation wait ran out.
// The transfer may still settle on chain; the engine records it as failed.
var ErrConfirmationTimeout = errors.New("confirmation timeout")

// SubstrateClient implements Client against a Substrate node over websocket
// RPC. One client owns one connection; the engine holds it for the lifetime
// of a run and releases it via Close.
type SubstrateClient struct {
	api         *gsrpc.SubstrateAPI
	meta        *types.Metadata
	genesisHash types.Hash
	keypair     signature.KeyringPair
	network     Network
	sender      string
	logger      *zap.Logger

	inclusionTimeout time.Duration

	closeOnce sync.Once
}

// Connect dials the node, loads metadata, and derives the funding keypair
// from the seed URI.
func Connect(endpoint, seed string, network Network, logger *zap.Logger) (*SubstrateClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	api, err := gsrpc.NewSubstrateAPI(endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial node: %w", err)
	}

	meta, err := api.RPC.State.GetMetadataLatest()
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}

	genesisHash, err := api.RPC.Chain.GetBlockHash(0)
	if err != nil {
		return nil, fmt.Errorf("fetch genesis hash: %w", err)
	}

	keypair, err := signature.KeyringPairFromSecret(seed, network.PrimaryPrefix)
	if err != nil {
		return nil, fmt.Errorf("derive keypair: %w", err)
	}

	sender, err := ss58.Encode(keypair.PublicKey, network.PrimaryPrefix)
	if err != nil {
		return nil, fmt.Errorf("encode sender address: %w", err)
	}

	logger.Info("connected to node",
		zap.String("endpoint", endpoint),
		zap.String("network", network.Name),
		zap.String("sender", sender),
	)

	return &SubstrateClient{
		api:              api,
		meta:             meta,
		genesisHash:      genesisHash,
		keypair:          keypair,
		network:          network,
		sender:           sender,
		logger:           logger,
		inclusionTimeout: 5 * time.Minute,
	}, nil
}

func (c *SubstrateClient) Sender() string {
	return c.sender
}

// Balance reads the free balance from System.Account storage.
func (c *SubstrateClient) Balance(ctx context.Context, addr string) (*big.Int, error) {
	_, pubkey, err := ss58.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}

	key, err := types.CreateStorageKey(c.meta, "System", "Account", pubkey)
	if err != nil {
		return nil, fmt.Errorf("build storage key: %w", err)
	}

	var info types.AccountInfo
	ok, err := c.api.RPC.State.GetStorageLatest(key, &info)
	if err != nil {
		return nil, fmt.Errorf("read account storage: %w", err)
	}
	if !ok {
		// Account does not exist yet.
		return new(big.Int), nil
	}
	return new(big.Int).Set(info.Data.Free.Int), nil
}

// SubmitTransfer signs a Balances.transfer_keep_alive extrinsic and blocks
// until it is included in a block.
func (c *SubstrateClient) SubmitTransfer(ctx context.Context, to string, amount *big.Int) (*TransferResult, error) {
	_, destPubkey, err := ss58.Decode(to)
	if err != nil {
		return nil, fmt.Errorf("decode destination: %w", err)
	}

	dest, err := types.NewMultiAddressFromAccountID(destPubkey)
	if err != nil {
		return nil, fmt.Errorf("build destination: %w", err)
	}

	call, err := types.NewCall(c.meta, "Balances.transfer_keep_alive", dest, types.NewUCompact(amount))
	if err != nil {
		return nil, fmt.Errorf("build call: %w", err)
	}

	rv, err := c.api.RPC.State.GetRuntimeVersionLatest()
	if err != nil {
		return nil, fmt.Errorf("fetch runtime version: %w", err)
	}

	nonce, err := c.accountNonce()
	if err != nil {
		return nil, err
	}

	ext := types.NewExtrinsic(call)
	opts := types.SignatureOptions{
		BlockHash:          c.genesisHash,
		Era:                types.ExtrinsicEra{IsImmortalEra: true},
		GenesisHash:        c.genesisHash,
		Nonce:              types.NewUCompactFromUInt(uint64(nonce)),
		SpecVersion:        rv.SpecVersion,
		Tip:                types.NewUCompactFromUInt(0),
		TransactionVersion: rv.TransactionVersion,
	}
	if err := ext.Sign(c.keypair, opts); err != nil {
		return nil, fmt.Errorf("sign extrinsic: %w", err)
	}

	encoded, err := codec.Encode(ext)
	if err != nil {
		return nil, fmt.Errorf("encode extrinsic: %w", err)
	}
	txHash := blake2b.Sum256(encoded)
	result := &TransferResult{TxHash: fmt.Sprintf("%#x", txHash[:])}

	sub, err := c.api.RPC.Author.SubmitAndWatchExtrinsic(ext)
	if err != nil {
		return nil, fmt.Errorf("submit extrinsic: %w", err)
	}
	defer sub.Unsubscribe()

	timer := time.NewTimer(c.inclusionTimeout)
	defer timer.Stop()

	for {
		select {
		case status := <-sub.Chan():
			switch {
			case status.IsInBlock:
				header, err := c.api.RPC.Chain.GetHeader(status.AsInBlock)
				if err != nil {
					return nil, fmt.Errorf("fetch inclusion header: %w", err)
				}
				result.BlockHash = status.AsInBlock.Hex()
				result.BlockNumber = uint64(header.Number)
				c.logger.Debug("extrinsic in block",
					zap.String("tx", result.TxHash),
					zap.Uint64("block", result.BlockNumber),
				)
				return result, nil
			case status.IsDropped:
				return nil, errors.New("extrinsic dropped from the pool")
			case status.IsInvalid:
				return nil, errors.New("extrinsic reported invalid")
			case status.IsUsurped:
				return nil, errors.New("extrinsic usurped by a competing transaction")
			}
		case err := <-sub.Err():
			return nil, fmt.Errorf("watch extrinsic: %w", err)
		case <-timer.C:
			return nil, fmt.Errorf("inclusion wait: %w", ErrConfirmationTimeout)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// AwaitConfirmations watches new heads until depth blocks have been built on
// top of the inclusion block. The subscription is always torn down before
// returning; a timeout is an error, never a hang or a dangling listener.
func (c *SubstrateClient) AwaitConfirmations(ctx context.Context, res *TransferResult, depth int, timeout time.Duration) error {
	if depth <= 0 {
		return nil
	}

	sub, err := c.api.RPC.Chain.SubscribeNewHeads()
	if err != nil {
		return fmt.Errorf("subscribe new heads: %w", err)
	}
	defer sub.Unsubscribe()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	target := res.BlockNumber + uint64(depth)
	for {
		select {
		case head := <-sub.Chan():
			if uint64(head.Number) >= target {
				return nil
			}
		case err := <-sub.Err():
			return fmt.Errorf("new heads subscription: %w", err)
		case <-timer.C:
			return fmt.Errorf("waited %s for %d confirmations: %w", timeout, depth, ErrConfirmationTimeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close releases the websocket connection. Safe to call more than once.
func (c *SubstrateClient) Close() {
	c.closeOnce.Do(func() {
		c.api.Client.Close()
	})
}

func (c *SubstrateClient) accountNonce() (uint32, error) {
	key, err := types.CreateStorageKey(c.meta, "System", "Account", c.keypair.PublicKey)
	if err != nil {
		return 0, fmt.Errorf("build nonce storage key: %w", err)
	}

	var info types.AccountInfo
	ok, err := c.api.RPC.State.GetStorageLatest(key, &info)
	if err != nil {
		return 0, fmt.Errorf("read sender account: %w", err)
	}
	if !ok {
		return 0, nil
	}
	return uint32(info.Nonce), nil
}
