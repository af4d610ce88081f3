package tg

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Spok95/telegram-classroom-bot/internal/metrics"
)

// Notifier — best-effort доставка уведомлений: неудача логируется и
// считается, но никогда не блокирует и не откатывает основной переход.
type Notifier struct {
	Bot *tgbotapi.BotAPI
	Log *zap.SugaredLogger
}

func (n *Notifier) Notify(chatID int64, text string) {
	if chatID == 0 {
		return
	}
	if _, err := Send(n.Bot, tgbotapi.NewMessage(chatID, text)); err != nil {
		metrics.NotifyFailures.Inc()
		n.Log.Warnw("уведомление не доставлено", "chat_id", chatID, "err", err)
	}
}
