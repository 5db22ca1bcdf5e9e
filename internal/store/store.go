// Package store persists combined positions, their state-transition
// history, and an append-only action log to Postgres or SQLite via gorm,
// the same dual-driver pattern the rest of the engine's persistence uses.
package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/web3guy0/basisbot/internal/types"
)

// PositionRow is the persisted row for one open combined position,
// flattening both legs into columns since a position always has exactly
// one of each.
type PositionRow struct {
	ID       string          `gorm:"primaryKey"`
	UserID   string          `gorm:"index"`
	Asset    string          `gorm:"index"`
	Leverage decimal.Decimal `gorm:"type:decimal(10,4)"`

	LongProtocol        string
	LongEntryPrice      decimal.Decimal `gorm:"type:decimal(20,6)"`
	LongCollateralQty   decimal.Decimal `gorm:"type:decimal(20,6)"`
	LongBorrowedUSD     decimal.Decimal `gorm:"type:decimal(20,6)"`
	LongPositionSizeUSD decimal.Decimal `gorm:"type:decimal(20,6)"`
	LongHealthFactor    decimal.Decimal `gorm:"type:decimal(10,6)"`
	LongPDAKey          string          `gorm:"index"`
	LongState           string

	ShortCoin            string
	ShortEntryPrice      decimal.Decimal `gorm:"type:decimal(20,6)"`
	ShortQty             decimal.Decimal `gorm:"type:decimal(20,6)"`
	ShortPositionSizeUSD decimal.Decimal `gorm:"type:decimal(20,6)"`
	ShortMarginFraction  decimal.Decimal `gorm:"type:decimal(10,6)"`
	ShortPositionKey     string          `gorm:"index"`
	ShortState           string

	// Reference carries the entry-time price-consensus snapshot so a
	// restarted process can still run fill validation against it.
	ReferenceLongPrice     decimal.Decimal `gorm:"type:decimal(20,6)"`
	ReferenceShortPrice    decimal.Decimal `gorm:"type:decimal(20,6)"`
	ReferenceMaxDeviation  decimal.Decimal `gorm:"type:decimal(10,6)"`

	Status                string `gorm:"index"`
	ExitReason             string
	CumFundingReceivedUSD  decimal.Decimal `gorm:"type:decimal(20,6)"`
	CumFundingPaidUSD      decimal.Decimal `gorm:"type:decimal(20,6)"`
	State                  string

	OpenedAt  time.Time
	ClosedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PositionRow) TableName() string { return "positions" }

// TransactionEventRow is one append-only state-transition event for a leg
// or for the combined position itself.
type TransactionEventRow struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	PositionID string `gorm:"index"`
	Leg        string // "long", "short", or "combined"
	State      string
	TxHash     string
	Detail     string
	At         time.Time
}

func (TransactionEventRow) TableName() string { return "transaction_events" }

// PositionHistoryRow is the closed-position summary a position moves into
// once both legs are unwound: final status, PnL, and lifetime funding.
type PositionHistoryRow struct {
	ID               uint   `gorm:"primaryKey;autoIncrement"`
	PositionID       string `gorm:"index"`
	UserID           string `gorm:"index"`
	Asset            string `gorm:"index"`
	Status           string
	ExitReason       string
	OpenedAt         time.Time
	ClosedAt         time.Time
	PnLUSD           decimal.Decimal `gorm:"type:decimal(20,6)"`
	FundingEarnedUSD decimal.Decimal `gorm:"type:decimal(20,6)"`
}

func (PositionHistoryRow) TableName() string { return "position_history" }

// ActionLogRow records a risk/exit/rebalance decision for audit purposes.
type ActionLogRow struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	PositionID string `gorm:"index"`
	Action     string // "open", "close", "rebalance", "exit_trigger"
	Reason     string
	Detail     string
	CreatedAt  time.Time
}

func (ActionLogRow) TableName() string { return "action_log" }

// Store wraps a gorm connection over either Postgres or SQLite, chosen by
// DSN scheme.
type Store struct {
	db *gorm.DB
}

// Open connects to dsn, auto-migrating the schema. A postgres:// or
// postgresql:// prefix selects Postgres; anything else is treated as a
// SQLite file path.
func Open(dsn string) (*Store, error) {
	var db *gorm.DB
	var err error

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		if err != nil {
			return nil, err
		}
		log.Info().Msg("📦 store connected (postgres)")
	} else {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		db, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", dsn).Msg("📦 store connected (sqlite)")
	}

	if err := db.AutoMigrate(&PositionRow{}, &TransactionEventRow{}, &PositionHistoryRow{}, &ActionLogRow{}); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// SavePosition upserts a combined position's current snapshot.
func (s *Store) SavePosition(ctx context.Context, combined *types.CombinedPosition) error {
	row := toRow(combined)
	return s.db.WithContext(ctx).Save(&row).Error
}

// HasOpenPosition reports whether userID already has an open position in
// asset, used by the bot's entry path to avoid doubling up.
func (s *Store) HasOpenPosition(ctx context.Context, userID string, asset types.Asset) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&PositionRow{}).
		Where("user_id = ? AND asset = ? AND closed_at IS NULL", userID, string(asset)).
		Count(&count).Error
	return count > 0, err
}

// LoadOpenPositions returns every position without a ClosedAt, for startup
// recovery into internal/position.Manager.
func (s *Store) LoadOpenPositions(ctx context.Context) ([]*types.CombinedPosition, error) {
	var rows []PositionRow
	if err := s.db.WithContext(ctx).Where("closed_at IS NULL").Find(&rows).Error; err != nil {
		return nil, err
	}

	positions := make([]*types.CombinedPosition, 0, len(rows))
	for _, row := range rows {
		positions = append(positions, fromRow(row))
	}
	return positions, nil
}

// AppendHistory records one state-transition event for a leg or the
// combined position.
func (s *Store) AppendHistory(ctx context.Context, positionID, leg string, event types.TransactionEvent) error {
	row := TransactionEventRow{
		PositionID: positionID,
		Leg:        leg,
		State:      string(event.State),
		TxHash:     event.TxHash,
		Detail:     event.Detail,
		At:         event.At,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// CloseToHistory moves a closed position out of the live positions table
// and into the position_history summary table, in a single transaction so
// a crash mid-close never leaves the position counted as both open and closed.
func (s *Store) CloseToHistory(ctx context.Context, combined *types.CombinedPosition, pnlUSD decimal.Decimal) error {
	closedAt := time.Now()
	if combined.ClosedAt != nil {
		closedAt = *combined.ClosedAt
	}

	historyRow := PositionHistoryRow{
		PositionID:       combined.ID.String(),
		UserID:           combined.UserID,
		Asset:            string(combined.Asset),
		Status:           string(combined.Status),
		ExitReason:       string(combined.ExitReason),
		OpenedAt:         combined.OpenedAt,
		ClosedAt:         closedAt,
		PnLUSD:           pnlUSD,
		FundingEarnedUSD: combined.CumFundingReceived.Sub(combined.CumFundingPaid),
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&historyRow).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", combined.ID.String()).Delete(&PositionRow{}).Error
	})
}

// LogAction records an audit-trail entry for a risk or lifecycle decision.
func (s *Store) LogAction(ctx context.Context, positionID, action, reason, detail string) error {
	row := ActionLogRow{PositionID: positionID, Action: action, Reason: reason, Detail: detail}
	return s.db.WithContext(ctx).Create(&row).Error
}

func toRow(c *types.CombinedPosition) PositionRow {
	return PositionRow{
		ID:       c.ID.String(),
		UserID:   c.UserID,
		Asset:    string(c.Asset),
		Leverage: c.Leverage,

		LongProtocol:        c.Long.Protocol.String(),
		LongEntryPrice:      c.Long.EntryPrice,
		LongCollateralQty:   c.Long.CollateralQty,
		LongBorrowedUSD:     c.Long.BorrowedUSD,
		LongPositionSizeUSD: c.Long.PositionSizeUSD,
		LongHealthFactor:    c.Long.HealthFactor,
		LongPDAKey:          c.Long.PDAKey,
		LongState:           string(c.Long.State),

		ShortCoin:            c.Short.Coin,
		ShortEntryPrice:      c.Short.EntryPrice,
		ShortQty:             c.Short.Qty,
		ShortPositionSizeUSD: c.Short.PositionSizeUSD,
		ShortMarginFraction:  c.Short.MarginFraction,
		ShortPositionKey:     c.Short.PositionKey,
		ShortState:           string(c.Short.State),

		ReferenceLongPrice:    c.Reference.AsgardEntryPrice,
		ReferenceShortPrice:   c.Reference.HyperliquidEntryPrice,
		ReferenceMaxDeviation: c.Reference.MaxAcceptableDeviation,

		Status:                string(c.Status),
		ExitReason:            string(c.ExitReason),
		CumFundingReceivedUSD: c.CumFundingReceived,
		CumFundingPaidUSD:     c.CumFundingPaid,
		State:                 string(c.State),

		OpenedAt: c.OpenedAt,
		ClosedAt: c.ClosedAt,
	}
}

func fromRow(row PositionRow) *types.CombinedPosition {
	id, _ := uuid.Parse(row.ID)
	protocol, _ := types.ProtocolFromString(row.LongProtocol)
	return &types.CombinedPosition{
		ID:       id,
		UserID:   row.UserID,
		Asset:    types.Asset(row.Asset),
		Leverage: row.Leverage,
		Long: types.LongLeg{
			Protocol:        protocol,
			Asset:           types.Asset(row.Asset),
			EntryPrice:      row.LongEntryPrice,
			CollateralQty:   row.LongCollateralQty,
			BorrowedUSD:     row.LongBorrowedUSD,
			PositionSizeUSD: row.LongPositionSizeUSD,
			HealthFactor:    row.LongHealthFactor,
			PDAKey:          row.LongPDAKey,
			State:           types.TransactionState(row.LongState),
		},
		Short: types.ShortLeg{
			Coin:            row.ShortCoin,
			EntryPrice:      row.ShortEntryPrice,
			Qty:             row.ShortQty,
			PositionSizeUSD: row.ShortPositionSizeUSD,
			MarginFraction:  row.ShortMarginFraction,
			PositionKey:     row.ShortPositionKey,
			State:           types.TransactionState(row.ShortState),
		},
		Reference: types.PositionReference{
			AsgardEntryPrice:       row.ReferenceLongPrice,
			HyperliquidEntryPrice:  row.ReferenceShortPrice,
			MaxAcceptableDeviation: row.ReferenceMaxDeviation,
		},
		Status:             types.PositionStatus(row.Status),
		ExitReason:         types.ExitReason(row.ExitReason),
		CumFundingReceived: row.CumFundingReceivedUSD,
		CumFundingPaid:     row.CumFundingPaidUSD,
		State:              types.TransactionState(row.State),
		OpenedAt:           row.OpenedAt,
		ClosedAt:           row.ClosedAt,
	}
}
