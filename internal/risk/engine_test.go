package risk

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/web3guy0/basisbot/internal/config"
	"github.com/web3guy0/basisbot/internal/types"
)

func TestCheckLongHealthClassifiesCritical(t *testing.T) {
	engine := NewEngine(config.DefaultRiskLimits())

	result := engine.CheckLongHealth("user-1", "pda-1", decimal.NewFromFloat(0.04))

	assert.Equal(t, types.RiskCritical, result.Level)
	assert.True(t, result.ShouldClose())
}

func TestCheckLongHealthTracksProximity(t *testing.T) {
	engine := NewEngine(config.DefaultRiskLimits())

	result := engine.CheckLongHealth("user-1", "pda-1", decimal.NewFromFloat(0.22))

	assert.True(t, result.InProximity())
	assert.NotNil(t, result.InProximitySince)
}

func TestEvaluateExitTriggerPrioritizesChainOutageFirst(t *testing.T) {
	engine := NewEngine(config.DefaultRiskLimits())

	decision := engine.EvaluateExitTrigger(ExitTriggerInput{
		ChainOutage: true,
		LongHealth:  types.HealthCheckResult{Level: types.RiskCritical},
	})

	assert.True(t, decision.ShouldExit)
	assert.Equal(t, types.ExitChainOutage, decision.Reason)
}

func TestEvaluateExitTriggerFallsThroughToFundingFlip(t *testing.T) {
	engine := NewEngine(config.DefaultRiskLimits())

	decision := engine.EvaluateExitTrigger(ExitTriggerInput{
		LongHealth:         types.HealthCheckResult{Level: types.RiskNormal},
		ShortMargin:        types.MarginCheckResult{Level: types.RiskNormal},
		PositionValueUSD:   decimal.NewFromInt(45000),
		CurrentFundingRate: decimal.NewFromFloat(0.001),
		Leverage:           decimal.NewFromFloat(3.0),
	})

	assert.True(t, decision.ShouldExit)
	assert.Equal(t, types.ExitFundingFlip, decision.Reason)
}

func TestEvaluateExitTriggerNoExitWhenAllClear(t *testing.T) {
	engine := NewEngine(config.DefaultRiskLimits())

	decision := engine.EvaluateExitTrigger(ExitTriggerInput{
		LongHealth:         types.HealthCheckResult{Level: types.RiskNormal},
		ShortMargin:        types.MarginCheckResult{Level: types.RiskNormal},
		PositionValueUSD:   decimal.NewFromInt(45000),
		PnLUSD:             decimal.NewFromInt(500),
		CurrentFundingRate: decimal.NewFromFloat(-0.001),
		Leverage:           decimal.NewFromFloat(3.0),
	})

	assert.False(t, decision.ShouldExit)
}

func TestEvaluateExitTriggerExitsOnInsufficientCarry(t *testing.T) {
	engine := NewEngine(config.DefaultRiskLimits())

	decision := engine.EvaluateExitTrigger(ExitTriggerInput{
		LongHealth:         types.HealthCheckResult{Level: types.RiskNormal},
		ShortMargin:        types.MarginCheckResult{Level: types.RiskNormal},
		PositionValueUSD:   decimal.NewFromInt(45000),
		PnLUSD:             decimal.NewFromInt(500),
		CurrentFundingRate: decimal.NewFromFloat(-0.000005),
		Leverage:           decimal.NewFromFloat(3.0),
	})

	assert.True(t, decision.ShouldExit)
	assert.Equal(t, types.ExitInsufficientCarry, decision.Reason)
}

func TestEvaluateExitTriggerExitsOnStopLoss(t *testing.T) {
	engine := NewEngine(config.DefaultRiskLimits())

	decision := engine.EvaluateExitTrigger(ExitTriggerInput{
		LongHealth:         types.HealthCheckResult{Level: types.RiskNormal},
		ShortMargin:        types.MarginCheckResult{Level: types.RiskNormal},
		PositionValueUSD:   decimal.NewFromInt(45000),
		PnLUSD:             decimal.NewFromInt(-2000),
		CurrentFundingRate: decimal.NewFromFloat(-0.01),
		Leverage:           decimal.NewFromFloat(3.0),
	})

	assert.True(t, decision.ShouldExit)
	assert.Equal(t, types.ExitStopLoss, decision.Reason)
}

func TestCheckShortMarginTracksProximity(t *testing.T) {
	engine := NewEngine(config.DefaultRiskLimits())

	result := engine.CheckShortMargin("user-1", "pos-1", decimal.NewFromFloat(0.11))

	assert.True(t, result.InProximity())
	assert.NotNil(t, result.InProximitySince)
}
