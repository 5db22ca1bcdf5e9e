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

// PaperPerpConfig tunes the deterministic simulator.
type PaperPerpConfig struct {
	SlippageBps       int
	MarkPrices        map[string]decimal.Decimal
	FundingRate8h     map[string]decimal.Decimal
	AccountValue      decimal.Decimal
	BridgeableBalance decimal.Decimal
}

// DefaultPaperPerpConfig returns sensible dry-run defaults: small negative
// funding so shorts get paid, matching the opportunity detector's filter.
func DefaultPaperPerpConfig() PaperPerpConfig {
	return PaperPerpConfig{
		SlippageBps: 5,
		MarkPrices: map[string]decimal.Decimal{
			"SOL": decimal.NewFromFloat(150),
		},
		FundingRate8h: map[string]decimal.Decimal{
			"SOL": decimal.NewFromFloat(-0.0012),
		},
		AccountValue:      decimal.NewFromInt(1_000_000),
		BridgeableBalance: decimal.NewFromInt(1_000_000),
	}
}

// PaperPerpVenue simulates Hyperliquid perp fills and funding for DRY_RUN
// mode and tests.
type PaperPerpVenue struct {
	mu     sync.RWMutex
	config PaperPerpConfig
	margin map[string]decimal.Decimal // position key -> margin fraction
}

// NewPaperPerpVenue constructs a simulator over the given config.
func NewPaperPerpVenue(config PaperPerpConfig) *PaperPerpVenue {
	log.Info().Bool("paper_mode", true).Msg("💧 paper perp venue initialized")
	return &PaperPerpVenue{config: config, margin: make(map[string]decimal.Decimal)}
}

func (v *PaperPerpVenue) CurrentFunding(ctx context.Context, coin string) (types.FundingRate, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	rate, ok := v.config.FundingRate8h[coin]
	if !ok {
		return types.FundingRate{}, fmt.Errorf("no paper funding configured for coin %s", coin)
	}
	return types.FundingRate{VenueCoin: coin, Rate8h: rate, ObservedAt: time.Now()}, nil
}

func (v *PaperPerpVenue) PredictNextFunding(ctx context.Context, coin string) (decimal.Decimal, error) {
	fr, err := v.CurrentFunding(ctx, coin)
	if err != nil {
		return decimal.Zero, err
	}
	return fr.RateAnnual(), nil
}

func (v *PaperPerpVenue) FundingVolatility(ctx context.Context, coin string, lookbackHours int) (decimal.Decimal, error) {
	// Deterministic simulator: flat historical rate implies zero volatility.
	return decimal.Zero, nil
}

func (v *PaperPerpVenue) OpenShort(ctx context.Context, coin string, notionalUSD, leverage decimal.Decimal) (types.ShortLeg, error) {
	mark, ok := v.config.MarkPrices[coin]
	if !ok {
		return types.ShortLeg{}, fmt.Errorf("no paper mark price configured for coin %s", coin)
	}
	price := v.applySlippage(mark, false)
	qty := notionalUSD.Div(price)

	leg := types.ShortLeg{
		Coin:            coin,
		EntryPrice:      price,
		Qty:             qty,
		PositionSizeUSD: notionalUSD,
		MarginFraction:  decimal.NewFromFloat(0.5),
		PositionKey:     fmt.Sprintf("paper-short-%s-%d", coin, time.Now().UnixNano()),
		State:           types.TxConfirmed,
		StateHistory: []types.TransactionEvent{
			{State: types.TxConfirmed, At: time.Now(), TxHash: "paper", Detail: "simulated fill"},
		},
	}

	v.mu.Lock()
	v.margin[leg.PositionKey] = leg.MarginFraction
	v.mu.Unlock()

	log.Info().
		Str("coin", coin).
		Str("entry_price", price.StringFixed(4)).
		Str("notional_usd", notionalUSD.StringFixed(2)).
		Msg("✅ paper short opened")

	return leg, nil
}

func (v *PaperPerpVenue) CloseShort(ctx context.Context, leg types.ShortLeg) (types.ShortLeg, error) {
	leg.State = types.TxConfirmed
	leg.StateHistory = append(leg.StateHistory, types.TransactionEvent{
		State: types.TxConfirmed, At: time.Now(), TxHash: "paper", Detail: "simulated close",
	})

	v.mu.Lock()
	delete(v.margin, leg.PositionKey)
	v.mu.Unlock()

	log.Info().Str("position_key", leg.PositionKey).Msg("✅ paper short closed")
	return leg, nil
}

func (v *PaperPerpVenue) MarginFraction(ctx context.Context, leg types.ShortLeg) (decimal.Decimal, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if mf, ok := v.margin[leg.PositionKey]; ok {
		return mf, nil
	}
	return leg.MarginFraction, nil
}

func (v *PaperPerpVenue) MarkPrice(ctx context.Context, coin string) (decimal.Decimal, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	price, ok := v.config.MarkPrices[coin]
	if !ok {
		return decimal.Zero, fmt.Errorf("no paper mark price configured for coin %s", coin)
	}
	return price, nil
}

func (v *PaperPerpVenue) IsHealthy(ctx context.Context) bool {
	return true
}

func (v *PaperPerpVenue) AccountValue(ctx context.Context) (decimal.Decimal, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.config.AccountValue, nil
}

func (v *PaperPerpVenue) BridgeableBalance(ctx context.Context) (decimal.Decimal, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.config.BridgeableBalance, nil
}

func (v *PaperPerpVenue) SetLeverage(ctx context.Context, coin string, leverage decimal.Decimal) error {
	log.Debug().Str("coin", coin).Str("leverage", leverage.String()).Msg("paper perp leverage set")
	return nil
}

func (v *PaperPerpVenue) BridgeDeposit(ctx context.Context, amount decimal.Decimal) (string, error) {
	v.mu.Lock()
	v.config.BridgeableBalance = v.config.BridgeableBalance.Sub(amount)
	v.config.AccountValue = v.config.AccountValue.Add(amount)
	v.mu.Unlock()

	txHash := fmt.Sprintf("paper-bridge-%d", time.Now().UnixNano())
	log.Info().Str("amount_usd", amount.StringFixed(2)).Str("tx_hash", txHash).Msg("✅ paper bridge deposit")
	return txHash, nil
}

// SetMarginFraction lets tests force a position into a risk condition.
func (v *PaperPerpVenue) SetMarginFraction(positionKey string, mf decimal.Decimal) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.margin[positionKey] = mf
}

func (v *PaperPerpVenue) applySlippage(price decimal.Decimal, buying bool) decimal.Decimal {
	slippage := decimal.NewFromInt(int64(v.config.SlippageBps)).Div(decimal.NewFromInt(10000))
	if buying {
		return price.Mul(decimal.NewFromInt(1).Add(slippage))
	}
	return price.Mul(decimal.NewFromInt(1).Sub(slippage))
}
