package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/basisbot/internal/chainkit"
	"github.com/web3guy0/basisbot/internal/types"
)

// AsgardLiveConfig points the live venue at a Solana RPC endpoint and sets
// the HTTP client used for its JSON-RPC calls.
type AsgardLiveConfig struct {
	RPCURL     string
	HTTPClient *http.Client
}

// AsgardLiveVenue is the production Asgard margin-lending adapter. It
// talks plain Solana JSON-RPC over net/http, the same way the rest of the
// engine's REST integrations are built, since no Solana client SDK ships
// in this module's dependency set.
type AsgardLiveVenue struct {
	cfg    AsgardLiveConfig
	chain  chainkit.LongChain
	signer chainkit.Signer
}

// NewAsgardLiveVenue wires a live venue against a Solana RPC chain client
// and the wallet signer authorizing its transactions.
func NewAsgardLiveVenue(cfg AsgardLiveConfig, chain chainkit.LongChain, signer chainkit.Signer) *AsgardLiveVenue {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &AsgardLiveVenue{cfg: cfg, chain: chain, signer: signer}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (v *AsgardLiveVenue) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.RPCURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("rpc call %s: %w", method, err)
	}
	defer resp.Body.Close()

	var parsed rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode rpc response: %w", err)
	}
	if parsed.Error != nil {
		return fmt.Errorf("rpc error: %s", parsed.Error.Message)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(parsed.Result, out)
}

// BestProtocol is not resolvable from the Solana RPC alone without each
// protocol's on-chain rate oracle wired in; callers use the paper venue's
// rate table in dry-run and fall back to CurrentPrice for live health
// checks until each protocol's rate account layout is integrated.
func (v *AsgardLiveVenue) BestProtocol(ctx context.Context, asset types.Asset, leverage decimal.Decimal) (LongQuote, bool, error) {
	return LongQuote{}, false, fmt.Errorf("live protocol rate lookup not yet wired for %s", asset)
}

// OpenLong is not implemented: building and signing a margin-lending
// deposit+borrow instruction set is protocol-specific (MarginFi, Kamino,
// Solend, Drift each use distinct program layouts) and out of scope until
// a specific protocol's instruction builder is integrated.
func (v *AsgardLiveVenue) OpenLong(ctx context.Context, protocol types.Protocol, asset types.Asset, collateralQty, leverage decimal.Decimal) (types.LongLeg, error) {
	return types.LongLeg{}, fmt.Errorf("live open long not implemented for protocol %s", protocol)
}

// CloseLong is not implemented for the same reason as OpenLong.
func (v *AsgardLiveVenue) CloseLong(ctx context.Context, leg types.LongLeg) (types.LongLeg, error) {
	return types.LongLeg{}, fmt.Errorf("live close long not implemented for protocol %s", leg.Protocol)
}

// HealthFactor reads the position's account health via the chain client,
// which already knows how to decode the PDA.
func (v *AsgardLiveVenue) HealthFactor(ctx context.Context, leg types.LongLeg) (decimal.Decimal, error) {
	return v.chain.AccountHealth(ctx, leg.PDAKey)
}

// CurrentPrice queries the Solana RPC for the asset's mint account. The
// account data is not decoded into a price, so it returns an error even
// after a successful fetch.
func (v *AsgardLiveVenue) CurrentPrice(ctx context.Context, asset types.Asset) (decimal.Decimal, error) {
	meta, ok := types.Metadata(asset)
	if !ok {
		return decimal.Zero, fmt.Errorf("no mint configured for asset %s", asset)
	}

	var raw json.RawMessage
	if err := v.call(ctx, "getAccountInfo", []interface{}{meta.Mint, map[string]string{"encoding": "jsonParsed"}}, &raw); err != nil {
		return decimal.Zero, fmt.Errorf("fetch oracle account for %s: %w", asset, err)
	}

	log.Debug().Str("asset", string(asset)).Msg("fetched asgard oracle account")
	return decimal.Zero, fmt.Errorf("oracle decoding not implemented for asset %s", asset)
}

// IsHealthy reports whether the Solana RPC endpoint answers getHealth.
func (v *AsgardLiveVenue) IsHealthy(ctx context.Context) bool {
	return v.chain.IsHealthy(ctx)
}

// NativeBalance is not implemented: deriving the wallet's own pubkey from
// the configured signer requires a Solana keypair/SDK this module does not
// carry, so there's no address to query getBalance against yet.
func (v *AsgardLiveVenue) NativeBalance(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, fmt.Errorf("live native balance lookup not implemented: no solana wallet pubkey derivation wired")
}

// QuoteBalance is not implemented for the same reason as NativeBalance,
// plus the need for an SPL token-account lookup on top of the wallet pubkey.
func (v *AsgardLiveVenue) QuoteBalance(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, fmt.Errorf("live quote balance lookup not implemented: no solana spl token account wired")
}
