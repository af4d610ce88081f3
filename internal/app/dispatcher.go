package app

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/telegram-classroom-bot/internal/bot/flows"
	"github.com/Spok95/telegram-classroom-bot/internal/bot/menu"
	"github.com/Spok95/telegram-classroom-bot/internal/bot/shared/fsmutil"
	"github.com/Spok95/telegram-classroom-bot/internal/ctxutil"
	"github.com/Spok95/telegram-classroom-bot/internal/db"
	"github.com/Spok95/telegram-classroom-bot/internal/dialog"
	"github.com/Spok95/telegram-classroom-bot/internal/export"
	"github.com/Spok95/telegram-classroom-bot/internal/metrics"
	"github.com/Spok95/telegram-classroom-bot/internal/models"
	"github.com/Spok95/telegram-classroom-bot/internal/observability"
	"github.com/Spok95/telegram-classroom-bot/internal/tg"
)

// Dispatcher — входная точка для апдейтов Telegram: разбирает событие,
// отдаёт его активному сценарию, иначе сопоставляет кнопкам главного меню.
type Dispatcher struct {
	deps     *flows.Deps
	limiter  *ChatLimiter
	adminIDs []int64

	login      *dialog.Flow
	settings   *dialog.Flow
	guilds     *dialog.Flow
	activities *dialog.Flow
	pendings   *dialog.Flow
	submit     *dialog.Flow
	grant      *dialog.Flow
	confs      *dialog.Flow
	practics   *dialog.Flow
}

func NewDispatcher(deps *flows.Deps, adminIDs []int64) *Dispatcher {
	return &Dispatcher{
		deps:     deps,
		limiter:  NewChatLimiter(),
		adminIDs: adminIDs,

		login:      flows.NewLoginFlow(deps),
		settings:   flows.NewSettingsFlow(deps),
		guilds:     flows.NewGuildFlow(deps),
		activities: flows.NewActivityFlow(deps),
		pendings:   flows.NewPendingFlow(deps),
		submit:     flows.NewSubmitFlow(deps),
		grant:      flows.NewGrantFlow(deps),
		confs:      flows.NewConferenceFlow(deps),
		practics:   flows.NewPracticFlow(deps),
	}
}

// HandleUpdate обрабатывает один апдейт. События одного чата строго
// последовательны, разные чаты идут параллельно.
func (d *Dispatcher) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	ev, ok := d.decode(upd)
	if !ok {
		return
	}
	metrics.BotUpdates.Inc()

	ctx = ctxutil.WithChatID(ctx, ev.ChatID)
	ctx, cancel := ctxutil.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	unlock := d.limiter.lock(ev.ChatID)
	defer unlock()

	defer func() {
		if rec := recover(); rec != nil {
			d.fail(ev.ChatID, fmt.Errorf("panic: %v\n%s", rec, debug.Stack()))
		}
	}()

	d.route(ctx, ev)
}

// decode переводит апдейт в dialog.Event. Callback подтверждаем сразу,
// чтобы кнопка не «висела» у пользователя.
func (d *Dispatcher) decode(upd tgbotapi.Update) (dialog.Event, bool) {
	if q := upd.CallbackQuery; q != nil && q.Message != nil {
		_, _ = d.deps.Bot.Request(tgbotapi.NewCallback(q.ID, ""))
		return dialog.Event{
			ChatID:    q.Message.Chat.ID,
			MessageID: q.Message.MessageID,
			Cmd:       dialog.ParseCallback(q.Data),
			Query:     q,
		}, true
	}
	if m := upd.Message; m != nil {
		ev := dialog.Event{ChatID: m.Chat.ID, Msg: m}
		switch {
		case len(m.Photo) > 0:
			ev.Cmd = dialog.FileCommand(m.Photo[len(m.Photo)-1].FileID, m.Caption)
		case m.Document != nil:
			ev.Cmd = dialog.FileCommand(m.Document.FileID, m.Caption)
		default:
			ev.Cmd = dialog.TextCommand(m.Text)
		}
		return ev, true
	}
	return dialog.Event{}, false
}

func (d *Dispatcher) route(ctx context.Context, ev dialog.Event) {
	// /start перезапускает вход из любого состояния.
	if ev.Cmd.Kind == dialog.KindText && strings.TrimSpace(ev.Cmd.Text) == "/start" {
		d.deps.Engine.Abort(ev.ChatID)
		if err := d.deps.Engine.Start(ctx, d.login, ev); err != nil {
			d.fail(ev.ChatID, err)
		}
		return
	}

	claimed, err := d.deps.Engine.Dispatch(ctx, ev)
	if err != nil {
		d.fail(ev.ChatID, err)
		return
	}
	if claimed {
		return
	}

	// Сценария нет. Callback от устаревшей клавиатуры игнорируем молча.
	if ev.Cmd.Kind != dialog.KindText {
		metrics.EventsIgnored.Inc()
		return
	}

	sess := d.deps.Sessions.Get(ev.ChatID)
	role := sess.Role()
	if role == "" {
		d.sendText(ev.ChatID, "Отправьте /start, чтобы войти.")
		return
	}

	switch ev.Cmd.Text {
	case menu.BtnLogout:
		d.logout(ev.ChatID)
	case menu.BtnActivities:
		d.startTeacherFlow(ctx, d.activities, ev, role)
	case menu.BtnPendings:
		d.startTeacherFlow(ctx, d.pendings, ev, role)
	case menu.BtnGuilds:
		d.startTeacherFlow(ctx, d.guilds, ev, role)
	case menu.BtnGrant:
		d.startTeacherFlow(ctx, d.grant, ev, role)
	case menu.BtnSettings:
		d.startTeacherFlow(ctx, d.settings, ev, role)
	case menu.BtnPractics:
		d.startTeacherFlow(ctx, d.practics, ev, role)
	case menu.BtnConfs:
		if role == models.RoleTeacher {
			d.startFlow(ctx, d.confs, ev)
			return
		}
		d.listConferences(ctx, ev.ChatID)
	case menu.BtnExport:
		if role != models.RoleTeacher {
			d.sendText(ev.ChatID, "Эта команда доступна только преподавателю.")
			return
		}
		d.export(ctx, ev.ChatID)
	case menu.BtnSubmit:
		if role != models.RoleStudent {
			d.sendText(ev.ChatID, "Эта команда доступна только ученику.")
			return
		}
		d.startFlow(ctx, d.submit, ev)
	case menu.BtnRating:
		if role != models.RoleStudent {
			d.sendText(ev.ChatID, "Эта команда доступна только ученику.")
			return
		}
		d.rating(ctx, ev.ChatID)
	default:
		d.freeText(ctx, ev)
	}
}

func (d *Dispatcher) startTeacherFlow(ctx context.Context, f *dialog.Flow, ev dialog.Event, role models.Role) {
	if role != models.RoleTeacher {
		d.sendText(ev.ChatID, "Эта команда доступна только преподавателю.")
		return
	}
	d.startFlow(ctx, f, ev)
}

func (d *Dispatcher) startFlow(ctx context.Context, f *dialog.Flow, ev dialog.Event) {
	err := d.deps.Engine.Start(ctx, f, ev)
	switch {
	case err == dialog.ErrFlowActive:
		d.sendText(ev.ChatID, "⏳ Сначала завершите текущее действие или нажмите «Отмена».")
	case err != nil:
		d.fail(ev.ChatID, err)
	}
}

// freeText — текст без активного сценария и без кнопки меню. Единственный
// осмысленный случай: ученик отвечает на запрос уточнения по заявке.
func (d *Dispatcher) freeText(ctx context.Context, ev dialog.Event) {
	sess := d.deps.Sessions.Get(ev.ChatID)
	if sess.Role() == models.RoleStudent {
		p, err := db.PendingAwaitingInfo(ctx, d.deps.DB, sess.ProfileID())
		if err != nil {
			d.fail(ev.ChatID, err)
			return
		}
		if p != nil {
			if err := d.deps.Workflow.SubmitMoreInfo(ctx, p.ID, ev.Cmd.Text); err != nil {
				d.fail(ev.ChatID, err)
				return
			}
			d.sendText(ev.ChatID, "✅ Ответ отправлен проверяющему.")
			return
		}
	}
	metrics.EventsIgnored.Inc()
}

func (d *Dispatcher) logout(chatID int64) {
	d.deps.Engine.Abort(chatID)
	d.deps.Sessions.Clear(chatID)
	msg := tgbotapi.NewMessage(chatID, "🚪 Вы вышли. Отправьте /start, чтобы войти снова.")
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	_, _ = tg.Send(d.deps.Bot, msg)
}

func (d *Dispatcher) rating(ctx context.Context, chatID int64) {
	sess := d.deps.Sessions.Get(chatID)
	total, err := db.StudentTotal(ctx, d.deps.DB, sess.ProfileID())
	if err != nil {
		d.fail(chatID, err)
		return
	}
	d.sendText(chatID, fmt.Sprintf("📊 Ваши баллы: %d", total))
}

func (d *Dispatcher) listConferences(ctx context.Context, chatID int64) {
	sess := d.deps.Sessions.Get(chatID)
	list, err := db.ConferencesByClassroom(ctx, d.deps.DB, sess.ActiveClassroomID())
	if err != nil {
		d.fail(chatID, err)
		return
	}
	if len(list) == 0 {
		d.sendText(chatID, "🎤 Конференций пока не назначено.")
		return
	}
	var b strings.Builder
	b.WriteString("🎤 Конференции:\n")
	for _, c := range list {
		b.WriteString("• " + c.Name)
		if c.Date != nil {
			b.WriteString(" — " + c.Date.Format("02.01.2006"))
		}
		b.WriteString("\n")
		if c.Link != nil && *c.Link != "" {
			b.WriteString("  " + *c.Link + "\n")
		}
	}
	d.sendText(chatID, b.String())
}

// export формирует файл в фоне, повторный запрос до завершения отбивается.
// Фон живёт дольше апдейта, поэтому контекст свой.
func (d *Dispatcher) export(_ context.Context, chatID int64) {
	if !fsmutil.SetPending(chatID, "export") {
		d.sendText(chatID, "⏳ Экспорт уже выполняется, подождите.")
		return
	}
	sess := d.deps.Sessions.Get(chatID)
	classroomID := sess.ActiveClassroomID()
	if classroomID == 0 {
		fsmutil.ClearPending(chatID, "export")
		d.sendText(chatID, "Сначала выберите активный класс в настройках курса.")
		return
	}
	go func() {
		defer fsmutil.ClearPending(chatID, "export")
		bgCtx, cancel := ctxutil.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := export.ExportHistoryExcel(bgCtx, d.deps.Bot, d.deps.DB, classroomID, chatID); err != nil {
			d.fail(chatID, err)
		}
	}()
	d.sendText(chatID, "📤 Готовлю выгрузку…")
}

// fail — общий контракт ошибок: лог, событие в Sentry, сигнал операторам,
// короткое извинение пользователю. Состояние сценария не трогаем.
func (d *Dispatcher) fail(chatID int64, err error) {
	metrics.HandlerErrors.Inc()
	d.deps.Log.Errorw("ошибка обработчика", "chat_id", chatID, "err", err)
	observability.CaptureErr(err)
	for _, adminID := range d.adminIDs {
		msg := tgbotapi.NewMessage(adminID, fmt.Sprintf("⚠️ Ошибка в чате %d: %v", chatID, err))
		_, _ = tg.Send(d.deps.Bot, msg)
	}
	d.sendText(chatID, "😔 Что-то пошло не так. Попробуйте ещё раз.")
}

func (d *Dispatcher) sendText(chatID int64, text string) {
	_, _ = tg.Send(d.deps.Bot, tgbotapi.NewMessage(chatID, text))
}
