package sizing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/basisbot/internal/config"
)

func TestCalculateSplitsDeploymentAcrossLegs(t *testing.T) {
	sizer := NewPositionSizer(config.DefaultRiskLimits())

	result := sizer.Calculate(
		decimal.NewFromInt(100_000),
		decimal.NewFromInt(100_000),
		decimal.NewFromFloat(0.10),
		decimal.NewFromFloat(3.0),
	)

	require.True(t, result.Ok)
	assert.True(t, decimal.NewFromInt(10_000).Equal(result.Size.TotalDeploymentUSD))
	assert.True(t, decimal.NewFromInt(5_000).Equal(result.Size.PerLegDeploymentUSD))
	assert.True(t, decimal.NewFromInt(15_000).Equal(result.Size.PositionSizeUSD))
	assert.True(t, decimal.NewFromInt(10_000).Equal(result.Size.BorrowedUSD))
	assert.False(t, result.WasCappedByMin)
}

func TestCalculateUsesLimitingBalance(t *testing.T) {
	sizer := NewPositionSizer(config.DefaultRiskLimits())

	result := sizer.Calculate(
		decimal.NewFromInt(100_000),
		decimal.NewFromInt(20_000),
		decimal.NewFromFloat(0.10),
		decimal.NewFromFloat(3.0),
	)

	require.True(t, result.Ok)
	assert.Equal(t, "hyperliquid", result.WasCappedByBalance)
	assert.True(t, decimal.NewFromInt(2_000).Equal(result.Size.TotalDeploymentUSD))
}

func TestCalculateClampsLeverageToMax(t *testing.T) {
	sizer := NewPositionSizer(config.DefaultRiskLimits())

	result := sizer.Calculate(
		decimal.NewFromInt(100_000),
		decimal.NewFromInt(100_000),
		decimal.NewFromFloat(0.10),
		decimal.NewFromFloat(10.0),
	)

	require.True(t, result.Ok)
	assert.True(t, config.DefaultRiskLimits().MaxLeverage.Equal(result.Size.Leverage))
}

func TestCalculateRescalesUpToMinimumPosition(t *testing.T) {
	sizer := NewPositionSizer(config.DefaultRiskLimits())

	result := sizer.Calculate(
		decimal.NewFromInt(1_000),
		decimal.NewFromInt(1_000),
		decimal.NewFromFloat(0.10),
		decimal.NewFromFloat(3.0),
	)

	require.True(t, result.Ok)
	assert.True(t, result.WasCappedByMin)
	assert.True(t, decimal.NewFromInt(1000).Equal(result.Size.PositionSizeUSD))
}

func TestCalculateFailsWhenBalanceTooSmallForMinimum(t *testing.T) {
	sizer := NewPositionSizer(config.DefaultRiskLimits())

	result := sizer.Calculate(
		decimal.NewFromInt(10),
		decimal.NewFromInt(10),
		decimal.NewFromFloat(0.10),
		decimal.NewFromFloat(3.0),
	)

	assert.False(t, result.Ok)
	assert.NotEmpty(t, result.Reason)
}
