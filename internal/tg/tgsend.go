package tg

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/telegram-classroom-bot/internal/observability"
)

// Считаем системными: 5xx, 429, timeout. 400-ки и типичные телеграм-валидации в Sentry не шлём.
func isSystemErr(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	if strings.Contains(s, "429") || strings.Contains(s, "502") || strings.Contains(s, "503") || strings.Contains(s, "timeout") {
		return true
	}
	if strings.Contains(s, "Bad Request") ||
		strings.Contains(s, "message is not modified") ||
		strings.Contains(s, "chat not found") ||
		strings.Contains(s, "can't parse entities") {
		return false
	}
	return false
}

func Send(bot *tgbotapi.BotAPI, msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	m, err := bot.Send(msg)
	if isSystemErr(err) {
		observability.CaptureErr(err)
	}
	return m, err
}

func Request(bot *tgbotapi.BotAPI, req tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	r, err := bot.Request(req)
	if isSystemErr(err) {
		observability.CaptureErr(err)
	}
	return r, err
}

// SendFileWithFallback отправляет вложение по трёхступенчатой цепочке:
// фото → обычный документ → текстовая заметка об ошибке. Telegram отклоняет
// file_id чужого типа, поэтому каждую ступень пробуем отдельно.
func SendFileWithFallback(bot *tgbotapi.BotAPI, chatID int64, fileID, caption string, markup *tgbotapi.InlineKeyboardMarkup) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
	photo.Caption = caption
	if markup != nil {
		photo.ReplyMarkup = markup
	}
	if _, err := Send(bot, photo); err == nil {
		return nil
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileID(fileID))
	doc.Caption = caption
	if markup != nil {
		doc.ReplyMarkup = markup
	}
	if _, err := Send(bot, doc); err == nil {
		return nil
	}

	note := tgbotapi.NewMessage(chatID, caption+"\n\n⚠️ Вложение отправить не удалось.")
	if markup != nil {
		note.ReplyMarkup = markup
	}
	_, err := Send(bot, note)
	return err
}
