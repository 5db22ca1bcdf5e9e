package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/basisbot/internal/chainkit"
	"github.com/web3guy0/basisbot/internal/types"
)

// HyperliquidLiveConfig points the live venue at Hyperliquid's REST API.
type HyperliquidLiveConfig struct {
	APIURL     string
	HTTPClient *http.Client
}

// HyperliquidLiveVenue is the production perp-venue adapter. It talks to
// Hyperliquid's info/exchange REST endpoints over net/http and encoding/json,
// the same pattern the rest of this module's REST integrations use.
type HyperliquidLiveVenue struct {
	cfg    HyperliquidLiveConfig
	bridge chainkit.ShortChain
	signer chainkit.Signer
}

// NewHyperliquidLiveVenue wires a live venue against the Arbitrum bridge
// client and the wallet signer authorizing exchange actions.
func NewHyperliquidLiveVenue(cfg HyperliquidLiveConfig, bridge chainkit.ShortChain, signer chainkit.Signer) *HyperliquidLiveVenue {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HyperliquidLiveVenue{cfg: cfg, bridge: bridge, signer: signer}
}

func (v *HyperliquidLiveVenue) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.APIURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("post %s: unexpected status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type hlMetaAndAssetCtx struct {
	FundingRate string `json:"funding"`
	MarkPx      string `json:"markPx"`
}

// CurrentFunding queries Hyperliquid's metaAndAssetCtxs info endpoint. The
// response is not mapped to coin, so it returns an error even after a
// successful fetch.
func (v *HyperliquidLiveVenue) CurrentFunding(ctx context.Context, coin string) (types.FundingRate, error) {
	var ctxs []hlMetaAndAssetCtx
	if err := v.post(ctx, "/info", map[string]string{"type": "metaAndAssetCtxs"}, &ctxs); err != nil {
		return types.FundingRate{}, fmt.Errorf("fetch funding for %s: %w", coin, err)
	}
	return types.FundingRate{}, fmt.Errorf("funding lookup by coin not yet mapped for %s", coin)
}

// PredictNextFunding is not implemented: Hyperliquid does not expose a
// forward-looking funding prediction endpoint, only the current and
// trailing-hour realized rate.
func (v *HyperliquidLiveVenue) PredictNextFunding(ctx context.Context, coin string) (decimal.Decimal, error) {
	return decimal.Zero, fmt.Errorf("predictive funding not supported by hyperliquid for %s", coin)
}

// FundingVolatility is not implemented: computing trailing volatility
// requires paginating fundingHistory, deferred until that endpoint is
// integrated.
func (v *HyperliquidLiveVenue) FundingVolatility(ctx context.Context, coin string, lookbackHours int) (decimal.Decimal, error) {
	return decimal.Zero, fmt.Errorf("funding volatility lookup not implemented for %s", coin)
}

// OpenShort is not implemented: placing a live order requires the
// L1-action signing scheme (msgpack + EIP-712 over the exchange endpoint),
// deferred until that signer integration lands.
func (v *HyperliquidLiveVenue) OpenShort(ctx context.Context, coin string, notionalUSD, leverage decimal.Decimal) (types.ShortLeg, error) {
	return types.ShortLeg{}, fmt.Errorf("live open short not implemented for %s", coin)
}

// CloseShort is not implemented for the same reason as OpenShort.
func (v *HyperliquidLiveVenue) CloseShort(ctx context.Context, leg types.ShortLeg) (types.ShortLeg, error) {
	return types.ShortLeg{}, fmt.Errorf("live close short not implemented for %s", leg.Coin)
}

// MarginFraction is not implemented: requires the signed /info clearinghouseState
// request scoped to the wallet address, deferred with OpenShort/CloseShort.
func (v *HyperliquidLiveVenue) MarginFraction(ctx context.Context, leg types.ShortLeg) (decimal.Decimal, error) {
	return decimal.Zero, fmt.Errorf("live margin fraction lookup not implemented for %s", leg.Coin)
}

type hlL2Book struct {
	Levels [][]struct {
		Px string `json:"px"`
	} `json:"levels"`
}

// MarkPrice queries Hyperliquid's l2Book info endpoint and reads the best
// bid as a mark-price proxy.
func (v *HyperliquidLiveVenue) MarkPrice(ctx context.Context, coin string) (decimal.Decimal, error) {
	var book hlL2Book
	if err := v.post(ctx, "/info", map[string]string{"type": "l2Book", "coin": coin}, &book); err != nil {
		return decimal.Zero, fmt.Errorf("fetch mark price for %s: %w", coin, err)
	}
	if len(book.Levels) == 0 || len(book.Levels[0]) == 0 {
		return decimal.Zero, fmt.Errorf("empty order book for %s", coin)
	}
	return decimal.NewFromString(book.Levels[0][0].Px)
}

// IsHealthy reports whether the Arbitrum bridge RPC is reachable, which in
// turn implies the deposit path used before any perp order can be placed.
func (v *HyperliquidLiveVenue) IsHealthy(ctx context.Context) bool {
	return v.bridge.IsHealthy(ctx)
}

// AccountValue is not implemented for the same reason as MarginFraction: it
// requires a signed clearinghouseState request scoped to the wallet address.
func (v *HyperliquidLiveVenue) AccountValue(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, fmt.Errorf("live account value lookup not implemented: signed clearinghouseState not wired")
}

// BridgeableBalance is not implemented: reading the bridge wallet's USDC
// balance needs the Arbitrum USDC contract's ERC20 ABI, which this module
// does not carry.
func (v *HyperliquidLiveVenue) BridgeableBalance(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, fmt.Errorf("live bridgeable balance lookup not implemented: erc20 balanceOf not wired")
}

// SetLeverage is not implemented for the same reason as OpenShort: it is an
// L1 exchange action requiring the msgpack + EIP-712 signing scheme.
func (v *HyperliquidLiveVenue) SetLeverage(ctx context.Context, coin string, leverage decimal.Decimal) error {
	return fmt.Errorf("live set leverage not implemented for %s", coin)
}

// BridgeDeposit checks the signer's wallet has enough ETH on hand to cover
// gas before attempting the deposit, then fails: the bridge contract ABI
// needed to actually move funds is not yet wired.
func (v *HyperliquidLiveVenue) BridgeDeposit(ctx context.Context, amount decimal.Decimal) (string, error) {
	balance, err := v.bridge.NativeBalance(ctx, v.signer.Address())
	if err != nil {
		return "", fmt.Errorf("check gas balance before bridge deposit: %w", err)
	}
	if balance.IsZero() {
		return "", fmt.Errorf("bridge wallet %s has no ETH for gas", v.signer.Address())
	}
	return "", fmt.Errorf("live bridge deposit not implemented: bridge contract abi not wired")
}
