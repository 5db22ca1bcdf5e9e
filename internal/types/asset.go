// Package types holds the shared data model for the basis-trade engine:
// assets, protocols, funding rates, venue quotes, opportunities, and the
// two-leg combined position. Kept dependency-free so every other package
// can import it without cycles.
package types

import "github.com/shopspring/decimal"

// Asset is the closed set of longable tokens on the long venue.
type Asset string

const (
	AssetSOL     Asset = "SOL"
	AssetJitoSOL Asset = "JITOSOL"
	AssetJupSOL  Asset = "JUPSOL"
	AssetINF     Asset = "INF"
)

// AllAssets is the default scan universe, in the order the detector walks them.
var AllAssets = []Asset{AssetSOL, AssetJitoSOL, AssetJupSOL, AssetINF}

// AssetMetadata describes a longable token.
type AssetMetadata struct {
	Symbol   Asset
	Mint     string
	Decimals int32
	IsLST    bool
	// StakingAPY is the approximate annual staking yield; zero for native SOL.
	StakingAPY decimal.Decimal
}

var assetMetadata = map[Asset]AssetMetadata{
	AssetSOL: {
		Symbol: AssetSOL, Mint: "So11111111111111111111111111111111111111112",
		Decimals: 9, IsLST: false, StakingAPY: decimal.Zero,
	},
	AssetJitoSOL: {
		Symbol: AssetJitoSOL, Mint: "J1toso1uCk3RLmjorhTtrVwY9HJ7X8V9yYac6Y7kGCPn",
		Decimals: 9, IsLST: true, StakingAPY: decimal.NewFromFloat(0.07),
	},
	AssetJupSOL: {
		Symbol: AssetJupSOL, Mint: "jupSoLaHXQiZZTSfEWMTRRgpnyFm8f6sZdosWBjx93v",
		Decimals: 9, IsLST: true, StakingAPY: decimal.NewFromFloat(0.065),
	},
	AssetINF: {
		Symbol: AssetINF, Mint: "5oVNBeEEQvYi1cX3ir8Dx5n1P7pdxydbGF2X4TxVusJm",
		Decimals: 9, IsLST: true, StakingAPY: decimal.NewFromFloat(0.068),
	},
}

// Metadata looks up the static metadata for an asset. ok is false for
// symbols outside the closed set.
func Metadata(a Asset) (AssetMetadata, bool) {
	m, ok := assetMetadata[a]
	return m, ok
}

// IsLST reports whether the asset appreciates relative to native SOL.
func (a Asset) IsLST() bool {
	m, ok := assetMetadata[a]
	return ok && m.IsLST
}

// Protocol is the closed set of Solana margin-lending sub-venues, ordered
// as the fixed tie-breaker used when two protocols offer equal net carry.
type Protocol int

const (
	ProtocolMarginFi Protocol = iota
	ProtocolKamino
	ProtocolSolend
	ProtocolDrift
)

func (p Protocol) String() string {
	switch p {
	case ProtocolMarginFi:
		return "MARGINFI"
	case ProtocolKamino:
		return "KAMINO"
	case ProtocolSolend:
		return "SOLEND"
	case ProtocolDrift:
		return "DRIFT"
	default:
		return "UNKNOWN"
	}
}

// ProtocolFromString parses the name String() produces, for round-tripping
// through persistence. ok is false for an unrecognized name.
func ProtocolFromString(name string) (Protocol, bool) {
	switch name {
	case "MARGINFI":
		return ProtocolMarginFi, true
	case "KAMINO":
		return ProtocolKamino, true
	case "SOLEND":
		return ProtocolSolend, true
	case "DRIFT":
		return ProtocolDrift, true
	default:
		return 0, false
	}
}
