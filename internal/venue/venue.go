// Package venue defines the long/short trading-venue contracts the rest of
// the engine drives, plus deterministic paper implementations used for
// dry-run mode and tests. Live adapters wrap internal/chainkit clients and
// satisfy the same interfaces.
package venue

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/web3guy0/basisbot/internal/types"
)

// LongQuote is one protocol's current lending/borrowing terms for an asset.
type LongQuote struct {
	Rates types.VenueRates
	Price decimal.Decimal
}

// LongVenue is the Solana margin-lending side: Asgard in production.
type LongVenue interface {
	// BestProtocol returns the protocol with the highest net carry for the
	// given asset and leverage, or ok=false if none has capacity.
	BestProtocol(ctx context.Context, asset types.Asset, leverage decimal.Decimal) (LongQuote, bool, error)
	// OpenLong deposits collateral and borrows against it, returning the
	// opened leg's on-chain reference.
	OpenLong(ctx context.Context, protocol types.Protocol, asset types.Asset, collateralQty, leverage decimal.Decimal) (types.LongLeg, error)
	// CloseLong repays the borrow and withdraws collateral.
	CloseLong(ctx context.Context, leg types.LongLeg) (types.LongLeg, error)
	// HealthFactor returns the live health factor for an open position.
	HealthFactor(ctx context.Context, leg types.LongLeg) (decimal.Decimal, error)
	// CurrentPrice returns the spot price of asset in USD.
	CurrentPrice(ctx context.Context, asset types.Asset) (decimal.Decimal, error)
	// IsHealthy reports whether the venue/RPC is reachable.
	IsHealthy(ctx context.Context) bool
	// NativeBalance returns the wallet's native SOL balance, used for the
	// preflight gas-reserve check.
	NativeBalance(ctx context.Context) (decimal.Decimal, error)
	// QuoteBalance returns the wallet's free stablecoin balance available
	// to fund new collateral deposits.
	QuoteBalance(ctx context.Context) (decimal.Decimal, error)
}

// PerpVenue is the Arbitrum perpetual-exchange side: Hyperliquid in production.
type PerpVenue interface {
	// CurrentFunding returns the latest funding observation for coin.
	CurrentFunding(ctx context.Context, coin string) (types.FundingRate, error)
	// PredictNextFunding forecasts the next period's annualized funding rate.
	PredictNextFunding(ctx context.Context, coin string) (decimal.Decimal, error)
	// FundingVolatility computes the stddev of 8h funding over the lookback window.
	FundingVolatility(ctx context.Context, coin string, lookbackHours int) (decimal.Decimal, error)
	// OpenShort opens a short position of the given USD notional.
	OpenShort(ctx context.Context, coin string, notionalUSD, leverage decimal.Decimal) (types.ShortLeg, error)
	// CloseShort closes an open short position.
	CloseShort(ctx context.Context, leg types.ShortLeg) (types.ShortLeg, error)
	// MarginFraction returns the live margin fraction for an open position.
	MarginFraction(ctx context.Context, leg types.ShortLeg) (decimal.Decimal, error)
	// MarkPrice returns the current mark price for coin.
	MarkPrice(ctx context.Context, coin string) (decimal.Decimal, error)
	// IsHealthy reports whether the venue/API is reachable.
	IsHealthy(ctx context.Context) bool
	// AccountValue returns the account's total equity on the perp venue.
	AccountValue(ctx context.Context) (decimal.Decimal, error)
	// BridgeableBalance returns the USDC balance sitting on the Arbitrum
	// bridge wallet, available to top up the perp account.
	BridgeableBalance(ctx context.Context) (decimal.Decimal, error)
	// SetLeverage sets the account-level leverage for coin before a short opens.
	SetLeverage(ctx context.Context, coin string, leverage decimal.Decimal) error
	// BridgeDeposit moves amount from the bridge wallet into the perp
	// account's margin balance, returning the bridge transaction hash.
	BridgeDeposit(ctx context.Context, amount decimal.Decimal) (string, error)
}
