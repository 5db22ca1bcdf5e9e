// Package chainkit defines the narrow chain-facing interfaces the rest of
// the engine builds against: a Solana-side long chain and an Arbitrum-side
// short chain, plus the signer each uses to authorize a built transaction.
// Concrete adapters live in internal/venue; chainkit only carries the
// contracts, including the EIP-712 typed-data Signer contract for EVM signers.
package chainkit

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/shopspring/decimal"
)

// LongChain is the Solana-side margin-lending chain client. It builds,
// signs, and submits the transactions the long leg needs without exposing
// protocol-specific instruction encoding to callers.
type LongChain interface {
	// AccountHealth returns the health factor for the given position's PDA.
	AccountHealth(ctx context.Context, pdaKey string) (decimal.Decimal, error)
	// SubmitSigned broadcasts a pre-signed transaction and returns its hash;
	// it does not wait for confirmation (see Confirmed).
	SubmitSigned(ctx context.Context, signedTx []byte) (txHash string, err error)
	// Confirmed reports whether a previously submitted transaction landed.
	Confirmed(ctx context.Context, txHash string) (bool, error)
	// IsHealthy reports whether the RPC endpoint is currently reachable.
	IsHealthy(ctx context.Context) bool
}

// ShortChain is the Arbitrum-side chain client backing the perp venue's
// bridge/deposit flow.
type ShortChain interface {
	// BridgeDeposit moves quoteAmount of USDC from Arbitrum to the perp
	// venue's bridge contract, returning the L1 tx hash.
	BridgeDeposit(ctx context.Context, from common.Address, quoteAmount decimal.Decimal) (txHash string, err error)
	// BridgeConfirmed reports whether a bridge deposit has been credited.
	BridgeConfirmed(ctx context.Context, txHash string) (bool, error)
	// NativeBalance returns the wallet's native ETH balance, used to confirm
	// there's enough gas on hand before a bridge deposit is attempted.
	NativeBalance(ctx context.Context, address common.Address) (decimal.Decimal, error)
	// IsHealthy reports whether the RPC endpoint is currently reachable.
	IsHealthy(ctx context.Context) bool
}

// Signer authorizes a piece of typed data for an EVM-style venue. It is
// deliberately narrow so paper/test adapters can satisfy it with a no-op.
type Signer interface {
	Address() common.Address
	SignTypedData(domain apitypes.TypedDataDomain, message apitypes.TypedDataMessage, primaryType string) ([]byte, error)
}
