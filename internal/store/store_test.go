package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/basisbot/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dsn)
	require.NoError(t, err)
	return s
}

func testPosition(userID string, asset types.Asset) *types.CombinedPosition {
	return &types.CombinedPosition{
		ID:       uuid.New(),
		UserID:   userID,
		Asset:    asset,
		Leverage: decimal.NewFromFloat(3.0),
		Long: types.LongLeg{
			Protocol:        types.ProtocolMarginFi,
			Asset:           asset,
			EntryPrice:      decimal.NewFromFloat(150),
			CollateralQty:   decimal.NewFromInt(100),
			BorrowedUSD:     decimal.NewFromInt(10000),
			PositionSizeUSD: decimal.NewFromInt(45000),
			HealthFactor:    decimal.NewFromFloat(1.5),
			PDAKey:          "pda-1",
			State:           types.TxConfirmed,
		},
		Short: types.ShortLeg{
			Coin:            "SOL",
			EntryPrice:      decimal.NewFromFloat(150),
			Qty:             decimal.NewFromInt(300),
			PositionSizeUSD: decimal.NewFromInt(45000),
			MarginFraction:  decimal.NewFromFloat(0.5),
			PositionKey:     "pos-1",
			State:           types.TxConfirmed,
		},
	}
}

func TestSaveAndLoadOpenPosition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	combined := testPosition("user-1", types.AssetSOL)
	require.NoError(t, s.SavePosition(ctx, combined))

	loaded, err := s.LoadOpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, combined.ID, loaded[0].ID)
	assert.Equal(t, types.ProtocolMarginFi, loaded[0].Long.Protocol)
}

func TestHasOpenPositionDetectsDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	combined := testPosition("user-1", types.AssetSOL)
	require.NoError(t, s.SavePosition(ctx, combined))

	has, err := s.HasOpenPosition(ctx, "user-1", types.AssetSOL)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = s.HasOpenPosition(ctx, "user-2", types.AssetSOL)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestClosedPositionExcludedFromOpenList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	combined := testPosition("user-1", types.AssetSOL)
	require.NoError(t, s.SavePosition(ctx, combined))

	has, err := s.HasOpenPosition(ctx, "user-1", types.AssetSOL)
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, s.LogAction(ctx, combined.ID.String(), "close", "manual", "test close"))

	combined.Status = types.StatusClosed
	combined.ExitReason = types.ExitManual
	require.NoError(t, s.CloseToHistory(ctx, combined, decimal.NewFromInt(1200)))

	has, err = s.HasOpenPosition(ctx, "user-1", types.AssetSOL)
	require.NoError(t, err)
	assert.False(t, has)

	loaded, err := s.LoadOpenPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	var history []PositionHistoryRow
	require.NoError(t, s.db.WithContext(ctx).Where("position_id = ?", combined.ID.String()).Find(&history).Error)
	require.Len(t, history, 1)
	assert.Equal(t, "1200", history[0].PnLUSD.String())
	assert.Equal(t, string(types.StatusClosed), history[0].Status)
}

func TestAppendHistoryRecordsTransitionEvent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	combined := testPosition("user-1", types.AssetSOL)
	require.NoError(t, s.SavePosition(ctx, combined))

	event := types.TransactionEvent{State: types.TxConfirmed, Detail: "short leg opened"}
	require.NoError(t, s.AppendHistory(ctx, combined.ID.String(), "short", event))

	var rows []TransactionEventRow
	require.NoError(t, s.db.WithContext(ctx).Where("position_id = ?", combined.ID.String()).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "short", rows[0].Leg)
}
