package flows

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/telegram-classroom-bot/internal/bot/shared/fsmutil"
	"github.com/Spok95/telegram-classroom-bot/internal/dialog"
	"github.com/Spok95/telegram-classroom-bot/internal/session"
	"github.com/Spok95/telegram-classroom-bot/internal/tg"
)

// show рисует шаг сценария: callback-события редактируем на месте,
// текстовые отвечаем новым сообщением.
func (d *Deps) show(ev dialog.Event, text string, rows [][]tgbotapi.InlineKeyboardButton) {
	if ev.MessageID != 0 {
		edit := tgbotapi.NewEditMessageText(ev.ChatID, ev.MessageID, text)
		if len(rows) > 0 {
			markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
			edit.ReplyMarkup = &markup
		}
		if _, err := tg.Send(d.Bot, edit); err == nil {
			return
		}
		// Сообщение могло быть удалено пользователем; падаем на обычную отправку.
	}
	msg := tgbotapi.NewMessage(ev.ChatID, text)
	if len(rows) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	if _, err := tg.Send(d.Bot, msg); err != nil {
		d.Log.Warnw("не удалось отправить шаг сценария", "chat_id", ev.ChatID, "err", err)
	}
}

func (d *Deps) sendText(chatID int64, text string) {
	if _, err := tg.Send(d.Bot, tgbotapi.NewMessage(chatID, text)); err != nil {
		d.Log.Warnw("не удалось отправить сообщение", "chat_id", chatID, "err", err)
	}
}

// desync — черновик сценария потерян (рестарт процесса, гонка со старой
// клавиатурой). Сбрасываем сессию и просим войти заново.
func (d *Deps) desync(ev dialog.Event) (dialog.State, error) {
	d.Log.Warnw("рассинхронизация сценария", "chat_id", ev.ChatID, "data", ev.Cmd.Raw)
	d.Sessions.Clear(ev.ChatID)
	d.sendText(ev.ChatID, "⚠️ Сессия устарела. Отправьте /start, чтобы войти заново.")
	return dialog.End, nil
}

// draft достаёт черновик сценария из сессии, создавая пустой при первом
// обращении. Тип черновика свой у каждого сценария.
func draft[T any](s *session.Session, flow string) *T {
	if v, ok := s.Scratch(flow); ok {
		if t, ok := v.(*T); ok {
			return t
		}
	}
	t := new(T)
	s.SetScratch(flow, t)
	return t
}

// cancelRules — общий fallback: inline-отмена и текстовая отмена
// завершают сценарий из любого состояния.
func (d *Deps) cancelRules(cancelWord, doneText string) []dialog.Rule {
	finish := func(_ context.Context, ev dialog.Event) (dialog.State, error) {
		d.show(ev, doneText, nil)
		return dialog.End, nil
	}
	return []dialog.Rule{
		{When: dialog.OnKeyword(cancelWord), Do: finish},
		{
			When: func(c dialog.Command) bool {
				return c.Kind == dialog.KindText && fsmutil.IsCancelText(c.Text)
			},
			Do: finish,
		},
	}
}

// parseValueComment разбирает ввод вида "50 комментарий": первое слово —
// целая ценность, остаток — необязательный комментарий.
func parseValueComment(input string) (int, string, error) {
	input = strings.TrimSpace(input)
	first, rest, found := strings.Cut(input, " ")
	if found {
		if v, err := strconv.Atoi(first); err == nil {
			return v, strings.TrimSpace(rest), nil
		}
	}
	v, err := strconv.Atoi(input)
	if err != nil {
		return 0, "", errors.New("ожидается «ценность [комментарий]», например: 50 отличная работа")
	}
	return v, "", nil
}

// parseDeadline принимает дату в виде дд-мм-гггг.
func parseDeadline(input string) (time.Time, error) {
	return time.Parse("02-01-2006", strings.TrimSpace(input))
}
