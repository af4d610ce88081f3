package flows

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/telegram-classroom-bot/internal/bot/shared/fsmutil"
	"github.com/Spok95/telegram-classroom-bot/internal/db"
	"github.com/Spok95/telegram-classroom-bot/internal/dialog"
	"github.com/Spok95/telegram-classroom-bot/internal/models"
	"github.com/Spok95/telegram-classroom-bot/internal/pagination"
)

const flowConfs = "conferences"

const (
	cnfStateList dialog.State = iota + 1
	cnfStateName
	cnfStateDesc
	cnfStateDate
	cnfStateLink
	cnfStateMenu
	cnfStateEdit
	cnfStateDelete
)

type confDraft struct {
	ConfID    int64
	NewName   string
	NewDesc   string
	NewDate   *string // строка дд-мм-гггг до создания
	EditField string
	List      *pagination.Cache
	Page      int
	Title     string
}

// NewConferenceFlow — конференции класса: анонс с датой и ссылкой.
func NewConferenceFlow(d *Deps) *dialog.Flow {
	return &dialog.Flow{
		Name:         flowConfs,
		AllowReentry: true,
		Entry:        d.cnfEntry,
		States: map[dialog.State][]dialog.Rule{
			cnfStateList: {
				{When: dialog.OnSelect("conf"), Do: d.cnfOpen},
				{When: dialog.OnPage(), Do: d.cnfPage(cnfStateList)},
				{When: dialog.OnKeyword("cnf_create"), Do: d.cnfAskName},
			},
			cnfStateName: {
				{When: dialog.OnText(), Do: d.cnfName},
			},
			cnfStateDesc: {
				{When: dialog.OnText(), Do: d.cnfDesc},
			},
			cnfStateDate: {
				{When: dialog.OnText(), Do: d.cnfDate},
				{When: dialog.OnKeyword("cnf_skip_date"), Do: d.cnfNoDate},
			},
			cnfStateLink: {
				{When: dialog.OnText(), Do: d.cnfCreateWithLink},
				{When: dialog.OnKeyword("cnf_skip_link"), Do: d.cnfCreateNoLink},
			},
			cnfStateMenu: {
				{When: dialog.OnKeyword("cnf_edit_name"), Do: d.cnfAskEdit("name", "Введите новое название конференции.")},
				{When: dialog.OnKeyword("cnf_edit_desc"), Do: d.cnfAskEdit("description", "Введите новое описание.")},
				{When: dialog.OnKeyword("cnf_edit_date"), Do: d.cnfAskEdit("date", "Введите дату в формате дд-мм-гггг.")},
				{When: dialog.OnKeyword("cnf_edit_link"), Do: d.cnfAskEdit("link", "Пришлите ссылку на конференцию.")},
				{When: dialog.OnKeyword("cnf_delete"), Do: d.cnfConfirmDelete},
				{When: dialog.OnKeyword("cnf_list"), Do: d.cnfList},
			},
			cnfStateEdit: {
				{When: dialog.OnText(), Do: d.cnfEdit},
				{When: dialog.OnKeyword("cnf_back"), Do: d.cnfReopen},
			},
			cnfStateDelete: {
				{When: dialog.OnKeyword("cnf_delete_yes"), Do: d.cnfDelete},
				{When: dialog.OnKeyword("cnf_back"), Do: d.cnfReopen},
			},
		},
		Fallback: d.cancelRules("cnf_close", "Раздел конференций закрыт."),
	}
}

func (d *Deps) cnfEntry(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	if sess.Role() != models.RoleTeacher || sess.ActiveClassroomID() == 0 {
		d.sendText(ev.ChatID, "Раздел доступен преподавателю с активным классом.")
		return dialog.End, nil
	}
	return d.cnfList(ctx, ev)
}

func (d *Deps) cnfList(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[confDraft](sess, flowConfs)

	confs, err := db.ConferencesByClassroom(ctx, d.DB, sess.ActiveClassroomID())
	if err != nil {
		return dialog.End, err
	}
	items := make([]pagination.Item, 0, len(confs))
	for _, c := range confs {
		label := c.Name
		if c.Date != nil {
			label = fmt.Sprintf("%s · %s", c.Name, c.Date.Format("02-01-2006"))
		}
		items = append(items, pagination.Item{Label: label, Data: fmt.Sprintf("conf#%d", c.ID)})
	}
	dr.List = &pagination.Cache{
		Items:    items,
		PageSize: d.PageSize,
		Aux: [][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("➕ Новая конференция", "cnf_create"),
			),
		},
		Back: "cnf_close",
	}
	dr.Page = 1
	dr.Title = "🎤 Конференции класса"
	if len(items) == 0 {
		dr.Title = "Конференций пока нет."
	}
	d.show(ev, dr.Title, dr.List.Rows(1))
	return cnfStateList, nil
}

func (d *Deps) cnfPage(stay dialog.State) dialog.Handler {
	return func(_ context.Context, ev dialog.Event) (dialog.State, error) {
		dr := draft[confDraft](d.Sessions.Get(ev.ChatID), flowConfs)
		if dr.List == nil {
			return d.desync(ev)
		}
		dr.Page = ev.Cmd.Page
		d.show(ev, dr.Title, dr.List.Rows(dr.Page))
		return stay, nil
	}
}

func (d *Deps) cnfAskName(_ context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[confDraft](d.Sessions.Get(ev.ChatID), flowConfs)
	dr.NewName, dr.NewDesc, dr.NewDate = "", "", nil
	d.show(ev, "Введите название конференции.",
		[][]tgbotapi.InlineKeyboardButton{fsmutil.CancelRow("cnf_close")})
	return cnfStateName, nil
}

func (d *Deps) cnfName(_ context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[confDraft](d.Sessions.Get(ev.ChatID), flowConfs)
	name := strings.TrimSpace(ev.Cmd.Text)
	if name == "" {
		d.sendText(ev.ChatID, "Название не может быть пустым.")
		return cnfStateName, nil
	}
	dr.NewName = name
	d.show(ev, "Введите описание.",
		[][]tgbotapi.InlineKeyboardButton{fsmutil.CancelRow("cnf_close")})
	return cnfStateDesc, nil
}

func (d *Deps) cnfDesc(_ context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[confDraft](d.Sessions.Get(ev.ChatID), flowConfs)
	dr.NewDesc = strings.TrimSpace(ev.Cmd.Text)
	d.show(ev, "Введите дату в формате дд-мм-гггг или пропустите шаг.",
		[][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("⏭ Без даты", "cnf_skip_date"),
			),
			fsmutil.CancelRow("cnf_close"),
		})
	return cnfStateDate, nil
}

func (d *Deps) cnfDate(_ context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[confDraft](d.Sessions.Get(ev.ChatID), flowConfs)
	if _, err := parseDeadline(ev.Cmd.Text); err != nil {
		d.sendText(ev.ChatID, "Не получилось разобрать дату. Формат: дд-мм-гггг.")
		return cnfStateDate, nil
	}
	date := strings.TrimSpace(ev.Cmd.Text)
	dr.NewDate = &date
	return d.cnfAskLink(ev)
}

func (d *Deps) cnfNoDate(_ context.Context, ev dialog.Event) (dialog.State, error) {
	return d.cnfAskLink(ev)
}

func (d *Deps) cnfAskLink(ev dialog.Event) (dialog.State, error) {
	d.show(ev, "Пришлите ссылку на конференцию или пропустите шаг.",
		[][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("⏭ Без ссылки", "cnf_skip_link"),
			),
			fsmutil.CancelRow("cnf_close"),
		})
	return cnfStateLink, nil
}

func (d *Deps) cnfCreateWithLink(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	link := strings.TrimSpace(ev.Cmd.Text)
	return d.cnfCreate(ctx, ev, &link)
}

func (d *Deps) cnfCreateNoLink(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	return d.cnfCreate(ctx, ev, nil)
}

func (d *Deps) cnfCreate(ctx context.Context, ev dialog.Event, link *string) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[confDraft](sess, flowConfs)
	if dr.NewName == "" {
		return d.desync(ev)
	}

	c := models.Conference{
		ClassroomID: sess.ActiveClassroomID(),
		Name:        dr.NewName,
		Description: dr.NewDesc,
		Link:        link,
	}
	if dr.NewDate != nil {
		t, err := parseDeadline(*dr.NewDate)
		if err == nil {
			c.Date = &t
		}
	}
	id, err := db.CreateConference(ctx, d.DB, c)
	if err != nil {
		return cnfStateLink, err
	}
	dr.ConfID = id
	d.sendText(ev.ChatID, fmt.Sprintf("✅ Конференция «%s» создана.", dr.NewName))
	return d.cnfShow(ctx, ev)
}

func (d *Deps) cnfOpen(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[confDraft](d.Sessions.Get(ev.ChatID), flowConfs)
	dr.ConfID = ev.Cmd.ID
	return d.cnfShow(ctx, ev)
}

func (d *Deps) cnfReopen(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	return d.cnfShow(ctx, ev)
}

func (d *Deps) cnfShow(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[confDraft](d.Sessions.Get(ev.ChatID), flowConfs)
	c, err := db.ConferenceByID(ctx, d.DB, dr.ConfID)
	if err != nil {
		return dialog.End, err
	}
	if c == nil {
		return d.desync(ev)
	}

	date := "не назначена"
	if c.Date != nil {
		date = c.Date.Format("02-01-2006")
	}
	link := "нет"
	if c.Link != nil {
		link = *c.Link
	}
	text := fmt.Sprintf("🎤 «%s»\n%s\nДата: %s\nСсылка: %s", c.Name, c.Description, date, link)

	d.show(ev, text, [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Название", "cnf_edit_name"),
			tgbotapi.NewInlineKeyboardButtonData("📝 Описание", "cnf_edit_desc"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Дата", "cnf_edit_date"),
			tgbotapi.NewInlineKeyboardButtonData("🔗 Ссылка", "cnf_edit_link"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", "cnf_delete"),
			tgbotapi.NewInlineKeyboardButtonData("⬅️ К списку", "cnf_list"),
		),
	})
	return cnfStateMenu, nil
}

func (d *Deps) cnfAskEdit(field, prompt string) dialog.Handler {
	return func(_ context.Context, ev dialog.Event) (dialog.State, error) {
		dr := draft[confDraft](d.Sessions.Get(ev.ChatID), flowConfs)
		dr.EditField = field
		d.show(ev, prompt,
			[][]tgbotapi.InlineKeyboardButton{fsmutil.BackCancelRow("cnf_back", "cnf_close")})
		return cnfStateEdit, nil
	}
}

func (d *Deps) cnfEdit(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[confDraft](d.Sessions.Get(ev.ChatID), flowConfs)
	input := strings.TrimSpace(ev.Cmd.Text)
	if input == "" {
		d.sendText(ev.ChatID, "Значение не может быть пустым.")
		return cnfStateEdit, nil
	}

	var value any = input
	if dr.EditField == "date" {
		t, err := parseDeadline(input)
		if err != nil {
			d.sendText(ev.ChatID, "Не получилось разобрать дату. Формат: дд-мм-гггг.")
			return cnfStateEdit, nil
		}
		value = t
	}
	if err := db.UpdateConferenceField(ctx, d.DB, dr.ConfID, dr.EditField, value); err != nil {
		return cnfStateEdit, err
	}
	return d.cnfShow(ctx, ev)
}

func (d *Deps) cnfConfirmDelete(_ context.Context, ev dialog.Event) (dialog.State, error) {
	d.show(ev, "⚠️ Удалить конференцию?",
		[][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🗑 Да, удалить", "cnf_delete_yes"),
			),
			fsmutil.BackCancelRow("cnf_back", "cnf_close"),
		})
	return cnfStateDelete, nil
}

func (d *Deps) cnfDelete(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[confDraft](d.Sessions.Get(ev.ChatID), flowConfs)
	if err := db.DeleteConference(ctx, d.DB, dr.ConfID); err != nil {
		return cnfStateDelete, err
	}
	d.sendText(ev.ChatID, "🗑 Конференция удалена.")
	return d.cnfList(ctx, ev)
}
