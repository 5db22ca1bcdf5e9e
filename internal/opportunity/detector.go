// Package opportunity scans the configured asset universe for funding-rate
// arbitrage candidates: a long-leg protocol paying positive net carry
// matched against a short-leg coin paying negative (i.e. short-favorable)
// funding.
package opportunity

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/basisbot/internal/config"
	"github.com/web3guy0/basisbot/internal/types"
	"github.com/web3guy0/basisbot/internal/venue"
)

// coinForAsset maps a long-leg asset to its Hyperliquid perp coin. LSTs all
// trade against the SOL perp since Hyperliquid lists no LST-specific market.
func coinForAsset(a types.Asset) string {
	return "SOL"
}

// Detector scans AllAssets each cycle and ranks viable opportunities by
// total expected APY.
type Detector struct {
	long   venue.LongVenue
	perp   venue.PerpVenue
	limits config.RiskLimits
}

// NewDetector wires a detector against both venues and the risk limits that
// gate funding volatility and leverage.
func NewDetector(long venue.LongVenue, perp venue.PerpVenue, limits config.RiskLimits) *Detector {
	return &Detector{long: long, perp: perp, limits: limits}
}

// ScanOpportunities walks every asset in the universe, discards non-viable
// candidates, and returns the rest sorted by TotalExpectedAPY descending.
func (d *Detector) ScanOpportunities(ctx context.Context, leverage decimal.Decimal) ([]types.Opportunity, error) {
	var found []types.Opportunity

	for _, asset := range types.AllAssets {
		opp, ok, err := d.analyzeAsset(ctx, asset, leverage)
		if err != nil {
			log.Warn().Err(err).Str("asset", string(asset)).Msg("⚠️ opportunity scan failed for asset")
			continue
		}
		if !ok {
			continue
		}
		found = append(found, opp)
	}

	sort.Slice(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if !a.Score.TotalExpectedAPY.Equal(b.Score.TotalExpectedAPY) {
			return a.Score.TotalExpectedAPY.GreaterThan(b.Score.TotalExpectedAPY)
		}
		if !a.FundingVolatility8h.Equal(b.FundingVolatility8h) {
			return a.FundingVolatility8h.LessThan(b.FundingVolatility8h)
		}
		// Tied on return and volatility: prefer native SOL over an LST so the
		// long leg carries no depeg risk.
		return !a.Asset.IsLST() && b.Asset.IsLST()
	})

	log.Info().Int("count", len(found)).Msg("🔎 opportunity scan complete")
	return found, nil
}

// analyzeAsset runs the full discard chain for a single asset: current
// funding must already be negative, a long venue protocol must have
// capacity, predicted next funding must stay negative, and funding
// volatility over the lookback window must stay under the configured cap.
func (d *Detector) analyzeAsset(ctx context.Context, asset types.Asset, leverage decimal.Decimal) (types.Opportunity, bool, error) {
	coin := coinForAsset(asset)

	currentFunding, err := d.perp.CurrentFunding(ctx, coin)
	if err != nil {
		return types.Opportunity{}, false, err
	}
	if !currentFunding.IsNegative() {
		return types.Opportunity{}, false, nil
	}

	quote, ok, err := d.long.BestProtocol(ctx, asset, leverage)
	if err != nil {
		return types.Opportunity{}, false, err
	}
	if !ok {
		return types.Opportunity{}, false, nil
	}

	predictedAPY, err := d.perp.PredictNextFunding(ctx, coin)
	if err != nil {
		return types.Opportunity{}, false, err
	}
	if predictedAPY.GreaterThanOrEqual(decimal.Zero) {
		return types.Opportunity{}, false, nil
	}

	volatility, err := d.perp.FundingVolatility(ctx, coin, 168)
	if err != nil {
		return types.Opportunity{}, false, err
	}
	if volatility.GreaterThan(d.limits.MaxFundingVolatility) {
		return types.Opportunity{}, false, nil
	}

	meta, _ := types.Metadata(asset)
	netCarry := quote.Rates.NetCarryAPY(leverage)
	// The short leg earns funding on its full leveraged notional, not the
	// unleveraged predicted rate — scale by leverage and take the magnitude
	// since a negative funding rate here means the short is being paid.
	fundingAPY := currentFunding.RateAnnual().Abs().Mul(leverage)

	score := types.OpportunityScore{
		LendingAPY:       quote.Rates.LendingAPY,
		StakingAPY:       meta.StakingAPY,
		BorrowingCostAPY: quote.Rates.BorrowingAPY,
		FundingAPY:       fundingAPY,
		TotalExpectedAPY: netCarry.Add(fundingAPY),
	}

	opp := types.Opportunity{
		ID:                  uuid.New(),
		Asset:               asset,
		Protocol:            quote.Rates.Protocol,
		PerpCoin:            coin,
		CurrentFundingRate:  currentFunding.Rate8h,
		PredictedFundingAPY: predictedAPY,
		FundingVolatility8h: volatility,
		Leverage:            leverage,
		Score:               score,
		DetectedAt:          time.Now(),
	}
	return opp, true, nil
}
