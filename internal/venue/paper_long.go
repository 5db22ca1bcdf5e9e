package venue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/web3guy0/basisbot/internal/types"
)

// PaperLongConfig tunes the deterministic simulator.
type PaperLongConfig struct {
	SlippageBps   int
	BasePrices    map[types.Asset]decimal.Decimal
	NativeBalance decimal.Decimal
	QuoteBalance  decimal.Decimal
}

// DefaultPaperLongConfig returns sensible dry-run defaults.
func DefaultPaperLongConfig() PaperLongConfig {
	return PaperLongConfig{
		SlippageBps: 5,
		BasePrices: map[types.Asset]decimal.Decimal{
			types.AssetSOL:     decimal.NewFromFloat(150),
			types.AssetJitoSOL: decimal.NewFromFloat(165),
			types.AssetJupSOL:  decimal.NewFromFloat(160),
			types.AssetINF:     decimal.NewFromFloat(158),
		},
		NativeBalance: decimal.NewFromFloat(5),
		QuoteBalance:  decimal.NewFromInt(1_000_000),
	}
}

// PaperLongVenue simulates Asgard margin-lending fills with fixed slippage
// and a static rate table, for DRY_RUN mode and tests.
type PaperLongVenue struct {
	mu     sync.RWMutex
	config PaperLongConfig
	rates  map[types.Protocol]map[types.Asset]types.VenueRates
	health map[string]decimal.Decimal // pda key -> health factor
}

// NewPaperLongVenue constructs a simulator seeded with a flat rate table
// across all four protocols.
func NewPaperLongVenue(config PaperLongConfig) *PaperLongVenue {
	rates := make(map[types.Protocol]map[types.Asset]types.VenueRates)
	protocolSpread := map[types.Protocol]decimal.Decimal{
		types.ProtocolMarginFi: decimal.NewFromFloat(0.00),
		types.ProtocolKamino:   decimal.NewFromFloat(0.002),
		types.ProtocolSolend:   decimal.NewFromFloat(-0.001),
		types.ProtocolDrift:    decimal.NewFromFloat(0.001),
	}
	for p, bump := range protocolSpread {
		rates[p] = make(map[types.Asset]types.VenueRates)
		for _, asset := range types.AllAssets {
			meta, _ := types.Metadata(asset)
			rates[p][asset] = types.VenueRates{
				Protocol:             p,
				LongAssetMint:        meta.Mint,
				QuoteMint:            "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
				LendingAPY:           meta.StakingAPY.Add(decimal.NewFromFloat(0.02)).Add(bump),
				BorrowingAPY:         decimal.NewFromFloat(0.06).Add(bump),
				MaxBorrowCapacityUSD: decimal.NewFromInt(5_000_000),
			}
		}
	}

	v := &PaperLongVenue{
		config: config,
		rates:  rates,
		health: make(map[string]decimal.Decimal),
	}

	log.Info().Bool("paper_mode", true).Msg("💧 paper long venue initialized")
	return v
}

func (v *PaperLongVenue) BestProtocol(ctx context.Context, asset types.Asset, leverage decimal.Decimal) (LongQuote, bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var best LongQuote
	found := false
	var bestCarry decimal.Decimal
	for _, p := range []types.Protocol{types.ProtocolMarginFi, types.ProtocolKamino, types.ProtocolSolend, types.ProtocolDrift} {
		rates, ok := v.rates[p][asset]
		if !ok {
			continue
		}
		carry := rates.NetCarryAPY(leverage)
		if !found || carry.GreaterThan(bestCarry) {
			best = LongQuote{Rates: rates, Price: v.config.BasePrices[asset]}
			bestCarry = carry
			found = true
		}
	}
	return best, found, nil
}

func (v *PaperLongVenue) OpenLong(ctx context.Context, protocol types.Protocol, asset types.Asset, collateralQty, leverage decimal.Decimal) (types.LongLeg, error) {
	price := v.applySlippage(v.config.BasePrices[asset], true)
	positionSizeUSD := collateralQty.Mul(price).Mul(leverage)
	borrowed := positionSizeUSD.Sub(collateralQty.Mul(price))

	leg := types.LongLeg{
		Protocol:        protocol,
		Asset:           asset,
		EntryPrice:      price,
		CollateralQty:   collateralQty,
		BorrowedUSD:     borrowed,
		PositionSizeUSD: positionSizeUSD,
		HealthFactor:    decimal.NewFromFloat(1.5),
		PDAKey:          fmt.Sprintf("paper-long-%s-%s-%d", protocol, asset, time.Now().UnixNano()),
		State:           types.TxConfirmed,
		StateHistory: []types.TransactionEvent{
			{State: types.TxConfirmed, At: time.Now(), TxHash: "paper", Detail: "simulated fill"},
		},
	}

	v.mu.Lock()
	v.health[leg.PDAKey] = leg.HealthFactor
	v.mu.Unlock()

	log.Info().
		Str("protocol", protocol.String()).
		Str("asset", string(asset)).
		Str("entry_price", price.StringFixed(4)).
		Str("position_size_usd", positionSizeUSD.StringFixed(2)).
		Msg("✅ paper long opened")

	return leg, nil
}

func (v *PaperLongVenue) CloseLong(ctx context.Context, leg types.LongLeg) (types.LongLeg, error) {
	leg.State = types.TxConfirmed
	leg.StateHistory = append(leg.StateHistory, types.TransactionEvent{
		State: types.TxConfirmed, At: time.Now(), TxHash: "paper", Detail: "simulated close",
	})

	v.mu.Lock()
	delete(v.health, leg.PDAKey)
	v.mu.Unlock()

	log.Info().Str("pda_key", leg.PDAKey).Msg("✅ paper long closed")
	return leg, nil
}

func (v *PaperLongVenue) HealthFactor(ctx context.Context, leg types.LongLeg) (decimal.Decimal, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if hf, ok := v.health[leg.PDAKey]; ok {
		return hf, nil
	}
	return leg.HealthFactor, nil
}

func (v *PaperLongVenue) CurrentPrice(ctx context.Context, asset types.Asset) (decimal.Decimal, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	price, ok := v.config.BasePrices[asset]
	if !ok {
		return decimal.Zero, fmt.Errorf("no paper price configured for asset %s", asset)
	}
	return price, nil
}

func (v *PaperLongVenue) IsHealthy(ctx context.Context) bool {
	return true
}

func (v *PaperLongVenue) NativeBalance(ctx context.Context) (decimal.Decimal, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.config.NativeBalance, nil
}

func (v *PaperLongVenue) QuoteBalance(ctx context.Context) (decimal.Decimal, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.config.QuoteBalance, nil
}

// SetHealthFactor lets tests force a position into a risk condition.
func (v *PaperLongVenue) SetHealthFactor(pdaKey string, hf decimal.Decimal) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.health[pdaKey] = hf
}

func (v *PaperLongVenue) applySlippage(price decimal.Decimal, buying bool) decimal.Decimal {
	slippage := decimal.NewFromInt(int64(v.config.SlippageBps)).Div(decimal.NewFromInt(10000))
	if buying {
		return price.Mul(decimal.NewFromInt(1).Add(slippage))
	}
	return price.Mul(decimal.NewFromInt(1).Sub(slippage))
}
