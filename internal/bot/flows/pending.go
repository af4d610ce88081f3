package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/telegram-classroom-bot/internal/bot/shared/fsmutil"
	"github.com/Spok95/telegram-classroom-bot/internal/db"
	"github.com/Spok95/telegram-classroom-bot/internal/dialog"
	"github.com/Spok95/telegram-classroom-bot/internal/models"
	"github.com/Spok95/telegram-classroom-bot/internal/pagination"
	"github.com/Spok95/telegram-classroom-bot/internal/tg"
	"github.com/Spok95/telegram-classroom-bot/internal/workflow"
)

const flowPendings = "pendings"

const (
	pndStateMenu dialog.State = iota + 1
	pndStateList
	pndStateDetail
	pndStateApproveValue
	pndStateRejectReason
	pndStateAssignPick
)

type pendingDraft struct {
	PendingID int64
	Filter    string // "open" | "direct" | "all"
	List      *pagination.Cache
	Page      int
	Title     string
}

// NewPendingFlow — проверка заявок: общая очередь (без назначенного),
// назначенные лично и полный список класса.
func NewPendingFlow(d *Deps) *dialog.Flow {
	return &dialog.Flow{
		Name:         flowPendings,
		AllowReentry: true,
		Entry:        d.pndEntry,
		States: map[dialog.State][]dialog.Rule{
			pndStateMenu: {
				{When: dialog.OnKeyword("pnd_open"), Do: d.pndList("open")},
				{When: dialog.OnKeyword("pnd_direct"), Do: d.pndList("direct")},
				{When: dialog.OnKeyword("pnd_all"), Do: d.pndList("all")},
			},
			pndStateList: {
				{When: dialog.OnSelect("pending"), Do: d.pndOpenDetail},
				{When: dialog.OnPage(), Do: d.pndPage(pndStateList)},
				{When: dialog.OnKeyword("pnd_menu"), Do: d.pndShowMenu},
			},
			pndStateDetail: {
				{When: dialog.OnKeyword("pnd_approve"), Do: d.pndApprove},
				{When: dialog.OnKeyword("pnd_reject"), Do: d.pndAskReason},
				{When: dialog.OnKeyword("pnd_assign"), Do: d.pndAssignPick},
				{When: dialog.OnKeyword("pnd_info"), Do: d.pndRequestInfo},
				{When: dialog.OnKeyword("pnd_list"), Do: d.pndRelist},
			},
			pndStateApproveValue: {
				{When: dialog.OnText(), Do: d.pndApproveWithValue},
				{When: dialog.OnKeyword("pnd_detail"), Do: d.pndReopenDetail},
			},
			pndStateRejectReason: {
				{When: dialog.OnText(), Do: d.pndRejectWithReason},
				{When: dialog.OnKeyword("pnd_skip_reason"), Do: d.pndRejectNoReason},
				{When: dialog.OnKeyword("pnd_detail"), Do: d.pndReopenDetail},
			},
			pndStateAssignPick: {
				{When: dialog.OnSelect("teacher"), Do: d.pndAssign},
				{When: dialog.OnPage(), Do: d.pndPage(pndStateAssignPick)},
				{When: dialog.OnKeyword("pnd_detail"), Do: d.pndReopenDetail},
			},
		},
		Fallback: d.cancelRules("pnd_close", "Раздел заявок закрыт."),
	}
}

func (d *Deps) pndEntry(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	if sess.Role() != models.RoleTeacher || sess.ActiveClassroomID() == 0 {
		d.sendText(ev.ChatID, "Раздел доступен преподавателю с активным классом.")
		return dialog.End, nil
	}
	return d.pndShowMenu(ctx, ev)
}

func (d *Deps) pndShowMenu(_ context.Context, ev dialog.Event) (dialog.State, error) {
	d.show(ev, "📥 Заявки класса", [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📥 Общая очередь", "pnd_open"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📬 Назначенные мне", "pnd_direct"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗂 Все заявки", "pnd_all"),
		),
		fsmutil.CancelRow("pnd_close"),
	})
	return pndStateMenu, nil
}

func (d *Deps) pndList(filter string) dialog.Handler {
	return func(ctx context.Context, ev dialog.Event) (dialog.State, error) {
		dr := draft[pendingDraft](d.Sessions.Get(ev.ChatID), flowPendings)
		dr.Filter = filter
		return d.pndRenderList(ctx, ev)
	}
}

func (d *Deps) pndRelist(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	return d.pndRenderList(ctx, ev)
}

func (d *Deps) pndRenderList(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[pendingDraft](sess, flowPendings)

	var (
		list []models.Pending
		err  error
	)
	switch dr.Filter {
	case "direct":
		list, err = db.DirectPendings(ctx, d.DB, sess.ActiveClassroomID(), sess.ProfileID())
		dr.Title = "📬 Заявки, назначенные вам"
	case "all":
		list, err = db.AllPendings(ctx, d.DB, sess.ActiveClassroomID())
		dr.Title = "🗂 Все заявки класса"
	default:
		list, err = db.OpenPendings(ctx, d.DB, sess.ActiveClassroomID())
		dr.Title = "📥 Общая очередь"
	}
	if err != nil {
		return dialog.End, err
	}

	items := make([]pagination.Item, 0, len(list))
	for _, p := range list {
		name, err := db.StudentName(ctx, d.DB, p.StudentID)
		if err != nil {
			name = "?"
		}
		mark := ""
		switch p.Status {
		case models.PendingApproved:
			mark = "✅ "
		case models.PendingRejected:
			mark = "❌ "
		}
		if p.MoreInfo == models.MoreInfoSent {
			mark += "📩 "
		}
		label := fmt.Sprintf("%s%s · %s", mark, name, p.CreatedAt.Format("02.01"))
		items = append(items, pagination.Item{Label: label, Data: fmt.Sprintf("pending#%d", p.ID)})
	}
	if len(items) == 0 {
		dr.Title += "\nЗаявок нет."
	}
	dr.List = &pagination.Cache{Items: items, PageSize: d.PageSize, Back: "pnd_menu"}
	dr.Page = 1
	d.show(ev, dr.Title, dr.List.Rows(1))
	return pndStateList, nil
}

func (d *Deps) pndPage(stay dialog.State) dialog.Handler {
	return func(_ context.Context, ev dialog.Event) (dialog.State, error) {
		dr := draft[pendingDraft](d.Sessions.Get(ev.ChatID), flowPendings)
		if dr.List == nil {
			return d.desync(ev)
		}
		dr.Page = ev.Cmd.Page
		d.show(ev, dr.Title, dr.List.Rows(dr.Page))
		return stay, nil
	}
}

func (d *Deps) pndOpenDetail(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[pendingDraft](d.Sessions.Get(ev.ChatID), flowPendings)
	dr.PendingID = ev.Cmd.ID
	return d.pndDetail(ctx, ev)
}

func (d *Deps) pndReopenDetail(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	return d.pndDetail(ctx, ev)
}

func (d *Deps) pndDetail(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[pendingDraft](d.Sessions.Get(ev.ChatID), flowPendings)
	p, err := db.PendingByID(ctx, d.DB, dr.PendingID)
	if err != nil {
		return dialog.End, err
	}
	if p == nil {
		return d.desync(ev)
	}

	name, err := db.StudentName(ctx, d.DB, p.StudentID)
	if err != nil {
		name = "?"
	}
	tt, err := db.TokenTypeByID(ctx, d.DB, p.TokenTypeID)
	if err != nil {
		return dialog.End, err
	}
	category := "?"
	if tt != nil {
		category = tt.Type
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Заявка #%d\nОт: %s\nКатегория: %s\nСоздана: %s\n",
		p.ID, name, category, p.CreatedAt.Format("02-01-2006 15:04"))
	if p.GuildID != nil {
		if g, err := db.GuildByID(ctx, d.DB, *p.GuildID); err == nil && g != nil {
			fmt.Fprintf(&b, "Гильдия: %s\n", g.Name)
		}
	}
	if p.Status != models.PendingOpen {
		fmt.Fprintf(&b, "Статус: %s\n", p.Status)
	}
	if p.MoreInfo == models.MoreInfoRequested {
		b.WriteString("⏳ Ожидается уточнение от ученика.\n")
	}
	b.WriteString("\n" + p.Text)

	var rows [][]tgbotapi.InlineKeyboardButton
	if p.Status == models.PendingOpen {
		rows = append(rows,
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✅ Одобрить", "pnd_approve"),
				tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить", "pnd_reject"),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("📬 Назначить", "pnd_assign"),
				tgbotapi.NewInlineKeyboardButtonData("✍️ Уточнить", "pnd_info"),
			),
		)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ К списку", "pnd_list"),
	))

	// Заявку с вложением показываем отдельным сообщением: старую клавиатуру
	// гасим, файл с подписью и кнопками уходит следом.
	if p.FileID != nil {
		if ev.MessageID != 0 {
			fsmutil.DisableMarkup(d.Bot, ev.ChatID, ev.MessageID)
		}
		markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
		if err := tg.SendFileWithFallback(d.Bot, ev.ChatID, *p.FileID, b.String(), &markup); err != nil {
			d.Log.Warnw("не удалось показать заявку с вложением", "pending_id", p.ID, "err", err)
		}
		return pndStateDetail, nil
	}
	d.show(ev, b.String(), rows)
	return pndStateDetail, nil
}

// pndApprove — одобрение. Заявка по заданию начисляет токен задания сразу;
// свободная заявка требует ввода ценности.
func (d *Deps) pndApprove(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[pendingDraft](sess, flowPendings)

	p, err := db.PendingByID(ctx, d.DB, dr.PendingID)
	if err != nil {
		return dialog.End, err
	}
	if p == nil {
		return d.desync(ev)
	}
	if p.TokenID == nil {
		d.show(ev, "Введите «ценность [комментарий]», например: 50 отличная работа.",
			[][]tgbotapi.InlineKeyboardButton{fsmutil.BackCancelRow("pnd_detail", "pnd_close")})
		return pndStateApproveValue, nil
	}

	return d.pndFinishApprove(ctx, ev, 0, "")
}

func (d *Deps) pndApproveWithValue(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	value, comment, err := parseValueComment(ev.Cmd.Text)
	if err != nil {
		d.sendText(ev.ChatID, "❌ "+err.Error())
		return pndStateApproveValue, nil
	}
	return d.pndFinishApprove(ctx, ev, value, comment)
}

func (d *Deps) pndFinishApprove(ctx context.Context, ev dialog.Event, value int, comment string) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[pendingDraft](sess, flowPendings)

	err := d.Workflow.Approve(ctx, dr.PendingID, sess.ProfileID(), value, comment)
	if errors.Is(err, workflow.ErrAlreadyResolved) {
		d.sendText(ev.ChatID, "⚠️ Заявку уже закрыл другой проверяющий.")
		return d.pndRenderList(ctx, ev)
	}
	if err != nil {
		return pndStateDetail, err
	}
	d.sendText(ev.ChatID, "✅ Заявка одобрена, баллы начислены.")
	return d.pndRenderList(ctx, ev)
}

func (d *Deps) pndAskReason(_ context.Context, ev dialog.Event) (dialog.State, error) {
	d.show(ev, "Укажите причину отказа или пропустите шаг.",
		[][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("⏭ Без причины", "pnd_skip_reason"),
			),
			fsmutil.BackCancelRow("pnd_detail", "pnd_close"),
		})
	return pndStateRejectReason, nil
}

func (d *Deps) pndRejectWithReason(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	return d.pndFinishReject(ctx, ev, strings.TrimSpace(ev.Cmd.Text))
}

func (d *Deps) pndRejectNoReason(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	return d.pndFinishReject(ctx, ev, "")
}

func (d *Deps) pndFinishReject(ctx context.Context, ev dialog.Event, reason string) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[pendingDraft](sess, flowPendings)

	err := d.Workflow.Reject(ctx, dr.PendingID, sess.ProfileID(), reason)
	if errors.Is(err, workflow.ErrAlreadyResolved) {
		d.sendText(ev.ChatID, "⚠️ Заявку уже закрыл другой проверяющий.")
		return d.pndRenderList(ctx, ev)
	}
	if err != nil {
		return pndStateRejectReason, err
	}
	d.sendText(ev.ChatID, "❌ Заявка отклонена.")
	return d.pndRenderList(ctx, ev)
}

func (d *Deps) pndAssignPick(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[pendingDraft](sess, flowPendings)

	teachers, err := db.TeachersByClassroom(ctx, d.DB, sess.ActiveClassroomID())
	if err != nil {
		return dialog.End, err
	}
	var items []pagination.Item
	for _, t := range teachers {
		if t.StudentID == sess.ProfileID() {
			continue
		}
		items = append(items, pagination.Item{Label: t.Name, Data: fmt.Sprintf("teacher#%d", t.StudentID)})
	}
	if len(items) == 0 {
		d.sendText(ev.ChatID, "В классе нет других преподавателей.")
		return d.pndDetail(ctx, ev)
	}
	dr.List = &pagination.Cache{Items: items, PageSize: d.PageSize, Back: "pnd_detail"}
	dr.Page = 1
	dr.Title = "Кому назначить заявку?"
	d.show(ev, dr.Title, dr.List.Rows(1))
	return pndStateAssignPick, nil
}

func (d *Deps) pndAssign(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[pendingDraft](d.Sessions.Get(ev.ChatID), flowPendings)

	err := d.Workflow.Assign(ctx, dr.PendingID, ev.Cmd.ID)
	if errors.Is(err, workflow.ErrAlreadyResolved) {
		d.sendText(ev.ChatID, "⚠️ Заявка уже закрыта.")
		return d.pndRenderList(ctx, ev)
	}
	if err != nil {
		return pndStateAssignPick, err
	}
	d.sendText(ev.ChatID, "📬 Заявка назначена.")
	return d.pndRenderList(ctx, ev)
}

func (d *Deps) pndRequestInfo(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[pendingDraft](sess, flowPendings)

	err := d.Workflow.RequestMoreInfo(ctx, dr.PendingID, sess.ProfileID())
	if errors.Is(err, workflow.ErrAlreadyResolved) {
		d.sendText(ev.ChatID, "⚠️ Заявка уже закрыта.")
		return d.pndRenderList(ctx, ev)
	}
	if err != nil {
		return pndStateDetail, err
	}
	d.sendText(ev.ChatID, "✍️ Запрос отправлен ученику. Заявка закреплена за вами.")
	return d.pndRenderList(ctx, ev)
}
