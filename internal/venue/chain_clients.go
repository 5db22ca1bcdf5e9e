package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/basisbot/internal/chainkit"
)

// weiPerEther converts a wei big.Int balance into a decimal ETH amount.
var weiPerEther = decimal.New(1, 18)

// SolanaRPCChain is the minimal chainkit.LongChain implementation backing
// AsgardLiveVenue: plain JSON-RPC over net/http against a Solana cluster.
type SolanaRPCChain struct {
	rpcURL string
	client *http.Client
}

// NewSolanaRPCChain builds a chain client against the given cluster RPC URL.
func NewSolanaRPCChain(rpcURL string) *SolanaRPCChain {
	return &SolanaRPCChain{rpcURL: rpcURL, client: &http.Client{Timeout: 10 * time.Second}}
}

func (c *SolanaRPCChain) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	body, _ := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0", "id": 1, "method": method, "params": params,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var parsed struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return err
	}
	if parsed.Error != nil {
		return fmt.Errorf("solana rpc error: %s", parsed.Error.Message)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(parsed.Result, out)
}

// AccountHealth is not implemented: each lending protocol encodes health
// factor in its own account layout, deferred until a specific protocol's
// decoder is integrated.
func (c *SolanaRPCChain) AccountHealth(ctx context.Context, pdaKey string) (decimal.Decimal, error) {
	return decimal.Zero, fmt.Errorf("account health decoding not implemented for pda %s", pdaKey)
}

// SubmitSigned broadcasts a pre-signed, base64-encoded transaction via
// sendTransaction.
func (c *SolanaRPCChain) SubmitSigned(ctx context.Context, signedTx []byte) (string, error) {
	var txHash string
	err := c.call(ctx, "sendTransaction", []interface{}{string(signedTx), map[string]string{"encoding": "base64"}}, &txHash)
	return txHash, err
}

// Confirmed checks a transaction's signature status.
func (c *SolanaRPCChain) Confirmed(ctx context.Context, txHash string) (bool, error) {
	var result struct {
		Value []struct {
			ConfirmationStatus string `json:"confirmationStatus"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getSignatureStatuses", []interface{}{[]string{txHash}}, &result); err != nil {
		return false, err
	}
	if len(result.Value) == 0 {
		return false, nil
	}
	return result.Value[0].ConfirmationStatus == "confirmed" || result.Value[0].ConfirmationStatus == "finalized", nil
}

// IsHealthy calls getHealth and reports whether the cluster answered "ok".
func (c *SolanaRPCChain) IsHealthy(ctx context.Context) bool {
	var health string
	return c.call(ctx, "getHealth", nil, &health) == nil && health == "ok"
}

// ArbitrumBridgeChain is the minimal chainkit.ShortChain implementation
// backing HyperliquidLiveVenue's bridge path, using go-ethereum's ethclient.
type ArbitrumBridgeChain struct {
	client *ethclient.Client
}

// NewArbitrumBridgeChain dials the given Arbitrum RPC endpoint.
func NewArbitrumBridgeChain(rpcURL string) (*ArbitrumBridgeChain, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial arbitrum rpc: %w", err)
	}
	return &ArbitrumBridgeChain{client: client}, nil
}

// BridgeDeposit is not implemented: depositing USDC into Hyperliquid's
// bridge contract requires the bridge ABI and a funded signer, deferred
// until that contract binding is integrated.
func (c *ArbitrumBridgeChain) BridgeDeposit(ctx context.Context, from common.Address, quoteAmount decimal.Decimal) (string, error) {
	return "", fmt.Errorf("bridge deposit not implemented for %s", from)
}

// BridgeConfirmed is not implemented for the same reason as BridgeDeposit.
func (c *ArbitrumBridgeChain) BridgeConfirmed(ctx context.Context, txHash string) (bool, error) {
	return false, fmt.Errorf("bridge confirmation lookup not implemented for %s", txHash)
}

// NativeBalance queries the live ETH balance at address via eth_getBalance
// and converts the returned wei amount to a decimal ETH value.
func (c *ArbitrumBridgeChain) NativeBalance(ctx context.Context, address common.Address) (decimal.Decimal, error) {
	wei, err := c.client.BalanceAt(ctx, address, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch native balance for %s: %w", address, err)
	}
	return decimal.NewFromBigInt(new(big.Int).Set(wei), 0).Div(weiPerEther), nil
}

// IsHealthy reports whether the Arbitrum RPC answers eth_blockNumber.
func (c *ArbitrumBridgeChain) IsHealthy(ctx context.Context) bool {
	_, err := c.client.BlockNumber(ctx)
	return err == nil
}

var _ chainkit.LongChain = (*SolanaRPCChain)(nil)
var _ chainkit.ShortChain = (*ArbitrumBridgeChain)(nil)
