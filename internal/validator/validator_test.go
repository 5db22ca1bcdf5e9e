package validator

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/web3guy0/basisbot/internal/types"
)

func TestValidateFillsProceedsWhenFillsAreClose(t *testing.T) {
	v := NewFillValidator()
	ref := CreatePositionReference(decimal.NewFromFloat(150), decimal.NewFromFloat(150), decimal.NewFromFloat(0.005))

	longFill := types.FillInfo{ExpectedPrice: decimal.NewFromFloat(150), ActualPrice: decimal.NewFromFloat(150.05), Qty: decimal.NewFromInt(10)}
	shortFill := types.FillInfo{ExpectedPrice: decimal.NewFromFloat(150), ActualPrice: decimal.NewFromFloat(149.95), Qty: decimal.NewFromInt(10)}

	result := v.ValidateFills(context.Background(), longFill, shortFill, decimal.NewFromFloat(0.10), ref)

	assert.Equal(t, types.ActionProceed, result.Action)
}

func TestValidateFillsSoftStopsOnLargeDeviation(t *testing.T) {
	v := NewFillValidator()
	ref := CreatePositionReference(decimal.NewFromFloat(150), decimal.NewFromFloat(150), decimal.NewFromFloat(0.005))

	longFill := types.FillInfo{ExpectedPrice: decimal.NewFromFloat(150), ActualPrice: decimal.NewFromFloat(153), Qty: decimal.NewFromInt(10)}
	shortFill := types.FillInfo{ExpectedPrice: decimal.NewFromFloat(150), ActualPrice: decimal.NewFromFloat(149.95), Qty: decimal.NewFromInt(10)}

	result := v.ValidateFills(context.Background(), longFill, shortFill, decimal.NewFromFloat(0.10), ref)

	assert.Equal(t, types.ActionSoftStop, result.Action)
}

func TestValidateFillsHardStopsWhenAdjustedAPYNegative(t *testing.T) {
	v := NewFillValidator()
	ref := CreatePositionReference(decimal.NewFromFloat(150), decimal.NewFromFloat(150), decimal.NewFromFloat(0.05))

	longFill := types.FillInfo{ExpectedPrice: decimal.NewFromFloat(150), ActualPrice: decimal.NewFromFloat(160), Qty: decimal.NewFromInt(10)}
	shortFill := types.FillInfo{ExpectedPrice: decimal.NewFromFloat(150), ActualPrice: decimal.NewFromFloat(150), Qty: decimal.NewFromInt(10)}

	result := v.ValidateFills(context.Background(), longFill, shortFill, decimal.NewFromFloat(0.02), ref)

	assert.Equal(t, types.ActionHardStop, result.Action)
	assert.True(t, result.ShouldUnwind)
}

func TestFiveMinuteLossUSD(t *testing.T) {
	loss := FiveMinuteLossUSD(decimal.NewFromInt(100_000), decimal.NewFromFloat(-0.10))
	assert.True(t, loss.GreaterThan(decimal.Zero))
}
