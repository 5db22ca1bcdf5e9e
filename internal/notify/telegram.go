package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// TelegramNotifier formats Bus events as Markdown messages and sends them
// to a single configured chat, mirroring the original bot's alert helpers.
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier connects to the Telegram Bot API with token and binds
// alerts to a single chat.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	log.Info().Str("username", api.Self.UserName).Msg("🤖 telegram notifier connected")
	return &TelegramNotifier{api: api, chatID: chatID}, nil
}

// Subscribe registers this notifier on bus so it receives every event.
func (n *TelegramNotifier) Subscribe(bus *Bus) {
	bus.Subscribe(n.handle)
}

func (n *TelegramNotifier) handle(e Event) {
	text := n.format(e)
	if text == "" {
		return
	}
	if err := n.sendMarkdown(text); err != nil {
		log.Warn().Err(err).Str("event", string(e.Kind)).Msg("failed to deliver telegram alert")
	}
}

func (n *TelegramNotifier) format(e Event) string {
	switch e.Kind {
	case EventPositionOpened:
		if e.Position == nil {
			return ""
		}
		return fmt.Sprintf("📈 *Position Opened*\n\nAsset: %s\nLeverage: %sx\nSize: $%s\nLong PDA: `%s`\nShort key: `%s`",
			e.Position.Asset, e.Position.Leverage.StringFixed(2), e.Position.Long.PositionSizeUSD.StringFixed(2),
			e.Position.Long.PDAKey, e.Position.Short.PositionKey)

	case EventPositionClosed:
		if e.Position == nil {
			return ""
		}
		emoji := "⚪"
		if e.PnLUSD.IsPositive() {
			emoji = "✅"
		} else if e.PnLUSD.IsNegative() {
			emoji = "❌"
		}
		return fmt.Sprintf("📉 *Position Closed*\n\nAsset: %s\n%s PnL: $%s",
			e.Position.Asset, emoji, e.PnLUSD.StringFixed(2))

	case EventExitTriggered:
		if e.Decision == nil {
			return ""
		}
		return fmt.Sprintf("⚠️ *Exit Triggered*\n\nReason: %s\n%s", e.Decision.Reason, e.Decision.Detail)

	case EventRebalanced:
		if e.Rebalance == nil {
			return ""
		}
		return fmt.Sprintf("💧 *Position Rebalanced*\n\nLeg: %s\nAdjustment: $%s",
			e.Rebalance.AdjustedLeg, e.Rebalance.AdjustmentUSD.StringFixed(2))

	case EventKillSwitchTripped:
		return fmt.Sprintf("🚨🚨🚨 *KILL SWITCH TRIGGERED*\n\n%s", e.Reason)

	case EventCircuitBreaker:
		return fmt.Sprintf("🛑 *Circuit Breaker Tripped*\n\n%s", e.Reason)

	default:
		return ""
	}
}

func (n *TelegramNotifier) sendMarkdown(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = "Markdown"
	msg.DisableWebPagePreview = true
	_, err := n.api.Send(msg)
	return err
}
