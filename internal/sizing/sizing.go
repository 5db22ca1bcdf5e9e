// Package sizing computes how much capital a new position should deploy on
// each leg, resolving the limiting balance across both venues and clamping
// deployment and leverage to configured limits.
package sizing

import (
	"github.com/shopspring/decimal"

	"github.com/web3guy0/basisbot/internal/config"
	"github.com/web3guy0/basisbot/internal/types"
)

// PositionSizer resolves per-leg deployment from each venue's free balance.
type PositionSizer struct {
	limits config.RiskLimits
}

// NewPositionSizer builds a sizer against the given risk limits.
func NewPositionSizer(limits config.RiskLimits) *PositionSizer {
	return &PositionSizer{limits: limits}
}

// Calculate resolves the sizing for both legs given each venue's free
// balance, the requested deployment percentage, and leverage. Mirrors the
// original sizer: size both legs off the smaller balance, clamp leverage
// and deployment, then rescale up to the configured minimum position size
// if the naive result falls short of it.
func (s *PositionSizer) Calculate(solanaBalance, hyperliquidBalance, deploymentPct, leverage decimal.Decimal) types.SizingResult {
	leverage = clamp(leverage, s.limits.MinLeverage, s.limits.MaxLeverage)

	wasCappedByMax := deploymentPct.GreaterThanOrEqual(s.limits.MaxDeploymentPct)
	if deploymentPct.GreaterThan(s.limits.MaxDeploymentPct) {
		deploymentPct = s.limits.MaxDeploymentPct
	}

	limitingBalance := solanaBalance
	wasCappedByBalance := "solana"
	if hyperliquidBalance.LessThan(solanaBalance) {
		limitingBalance = hyperliquidBalance
		wasCappedByBalance = "hyperliquid"
	}

	totalDeployment := limitingBalance.Mul(deploymentPct)
	perLegDeployment := totalDeployment.Div(decimal.NewFromInt(2))
	positionSize := perLegDeployment.Mul(leverage)
	borrowed := positionSize.Sub(perLegDeployment)

	wasCappedByMin := false
	if positionSize.LessThan(s.limits.MinPositionUSD) {
		wasCappedByMin = true
		positionSize = s.limits.MinPositionUSD
		perLegDeployment = positionSize.Div(leverage)
		borrowed = positionSize.Sub(perLegDeployment)
		totalDeployment = perLegDeployment.Mul(decimal.NewFromInt(2))

		if totalDeployment.GreaterThan(limitingBalance) {
			return types.SizingResult{
				Ok:                 false,
				Reason:             "insufficient balance to meet minimum position size",
				WasCappedByMin:     true,
				WasCappedByMax:     wasCappedByMax,
				WasCappedByBalance: wasCappedByBalance,
			}
		}
	}

	return types.SizingResult{
		Size: types.PositionSize{
			PositionSizeUSD:     positionSize,
			PerLegDeploymentUSD: perLegDeployment,
			BorrowedUSD:         borrowed,
			TotalDeploymentUSD:  totalDeployment,
			Leverage:            leverage,
			DeploymentPct:       deploymentPct,
		},
		Ok:                 true,
		WasCappedByMin:     wasCappedByMin,
		WasCappedByMax:     wasCappedByMax,
		WasCappedByBalance: wasCappedByBalance,
	}
}

func clamp(v, min, max decimal.Decimal) decimal.Decimal {
	if v.LessThan(min) {
		return min
	}
	if v.GreaterThan(max) {
		return max
	}
	return v
}
