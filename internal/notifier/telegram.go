package notifier

import (
	"context"
	"fmt"

	"manas-backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramNotifier pages the staff channel through a Telegram bot.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

// NewTelegramNotifier returns nil when the token is empty; callers fall back
// to the log notifier.
func NewTelegramNotifier(token string, chatID int64, logger *zap.Logger) (*TelegramNotifier, error) {
	if token == "" {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	logger.Info("Telegram notifier authorized", zap.String("bot", bot.Self.UserName))
	return &TelegramNotifier{bot: bot, chatID: chatID, logger: logger}, nil
}

func (n *TelegramNotifier) NotifyEscalation(_ context.Context, alert *models.CrisisAlert) error {
	text := fmt.Sprintf(
		"🚨 Crisis alert escalated\nUser: %d\nSession: %s\nSeverity: %d/10\nFirst detected: %s\nUnacknowledged since detection. Please follow up now.",
		alert.UserID,
		alert.SessionID,
		alert.Severity,
		alert.FirstDetectedAt.Format("2006-01-02 15:04:05 MST"),
	)

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send escalation message: %w", err)
	}
	n.logger.Info("Escalation pushed to staff channel", zap.String("alert_id", alert.ID))
	return nil
}
