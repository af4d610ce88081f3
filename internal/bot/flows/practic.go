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

const flowPractics = "practics"

const (
	prcStateList dialog.State = iota + 1
	prcStateName
	prcStateDesc
	prcStateMenu
	prcStateEdit
	prcStateExName
	prcStateExFile
	prcStateExRemove
	prcStateDelete
)

type practicDraft struct {
	ClassID   int64
	ExName    string
	EditField string
	List      *pagination.Cache
	Page      int
	Title     string
}

// NewPracticFlow — практические занятия: набор упражнений с вложениями.
func NewPracticFlow(d *Deps) *dialog.Flow {
	return &dialog.Flow{
		Name:         flowPractics,
		AllowReentry: true,
		Entry:        d.prcEntry,
		States: map[dialog.State][]dialog.Rule{
			prcStateList: {
				{When: dialog.OnSelect("practic"), Do: d.prcOpen},
				{When: dialog.OnPage(), Do: d.prcPage(prcStateList)},
				{When: dialog.OnKeyword("prc_create"), Do: d.prcAskName},
			},
			prcStateName: {
				{When: dialog.OnText(), Do: d.prcName},
			},
			prcStateDesc: {
				{When: dialog.OnText(), Do: d.prcCreate},
			},
			prcStateMenu: {
				{When: dialog.OnKeyword("prc_ex_add"), Do: d.prcAskExName},
				{When: dialog.OnKeyword("prc_ex_remove"), Do: d.prcExRemovePick},
				{When: dialog.OnKeyword("prc_edit_name"), Do: d.prcAskEdit("name", "Введите новое название практики.")},
				{When: dialog.OnKeyword("prc_edit_desc"), Do: d.prcAskEdit("description", "Введите новое описание.")},
				{When: dialog.OnKeyword("prc_delete"), Do: d.prcConfirmDelete},
				{When: dialog.OnKeyword("prc_list"), Do: d.prcList},
			},
			prcStateEdit: {
				{When: dialog.OnText(), Do: d.prcEdit},
				{When: dialog.OnKeyword("prc_back"), Do: d.prcReopen},
			},
			prcStateExName: {
				{When: dialog.OnText(), Do: d.prcExName},
			},
			prcStateExFile: {
				{When: dialog.OnFileOrContinue("prc_skip_file"), Do: d.prcExCreate},
			},
			prcStateExRemove: {
				{When: dialog.OnSelect("exercise"), Do: d.prcExRemove},
				{When: dialog.OnPage(), Do: d.prcPage(prcStateExRemove)},
				{When: dialog.OnKeyword("prc_back"), Do: d.prcReopen},
			},
			prcStateDelete: {
				{When: dialog.OnKeyword("prc_delete_yes"), Do: d.prcDelete},
				{When: dialog.OnKeyword("prc_back"), Do: d.prcReopen},
			},
		},
		Fallback: d.cancelRules("prc_close", "Раздел практик закрыт."),
	}
}

func (d *Deps) prcEntry(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	if sess.Role() != models.RoleTeacher || sess.ActiveClassroomID() == 0 {
		d.sendText(ev.ChatID, "Раздел доступен преподавателю с активным классом.")
		return dialog.End, nil
	}
	return d.prcList(ctx, ev)
}

func (d *Deps) prcList(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[practicDraft](sess, flowPractics)

	classes, err := db.PracticClassesByClassroom(ctx, d.DB, sess.ActiveClassroomID())
	if err != nil {
		return dialog.End, err
	}
	items := make([]pagination.Item, 0, len(classes))
	for _, p := range classes {
		items = append(items, pagination.Item{Label: p.Name, Data: fmt.Sprintf("practic#%d", p.ID)})
	}
	dr.List = &pagination.Cache{
		Items:    items,
		PageSize: d.PageSize,
		Aux: [][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("➕ Новая практика", "prc_create"),
			),
		},
		Back: "prc_close",
	}
	dr.Page = 1
	dr.Title = "🧪 Практики класса"
	if len(items) == 0 {
		dr.Title = "Практик пока нет."
	}
	d.show(ev, dr.Title, dr.List.Rows(1))
	return prcStateList, nil
}

func (d *Deps) prcPage(stay dialog.State) dialog.Handler {
	return func(_ context.Context, ev dialog.Event) (dialog.State, error) {
		dr := draft[practicDraft](d.Sessions.Get(ev.ChatID), flowPractics)
		if dr.List == nil {
			return d.desync(ev)
		}
		dr.Page = ev.Cmd.Page
		d.show(ev, dr.Title, dr.List.Rows(dr.Page))
		return stay, nil
	}
}

func (d *Deps) prcAskName(_ context.Context, ev dialog.Event) (dialog.State, error) {
	d.show(ev, "Введите название практики.",
		[][]tgbotapi.InlineKeyboardButton{fsmutil.CancelRow("prc_close")})
	return prcStateName, nil
}

func (d *Deps) prcName(_ context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[practicDraft](d.Sessions.Get(ev.ChatID), flowPractics)
	name := strings.TrimSpace(ev.Cmd.Text)
	if name == "" {
		d.sendText(ev.ChatID, "Название не может быть пустым.")
		return prcStateName, nil
	}
	dr.ExName = name // временно держим название до создания
	d.show(ev, "Введите описание практики.",
		[][]tgbotapi.InlineKeyboardButton{fsmutil.CancelRow("prc_close")})
	return prcStateDesc, nil
}

func (d *Deps) prcCreate(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[practicDraft](sess, flowPractics)
	if dr.ExName == "" {
		return d.desync(ev)
	}

	id, err := db.CreatePracticClass(ctx, d.DB, models.PracticClass{
		ClassroomID: sess.ActiveClassroomID(),
		Name:        dr.ExName,
		Description: strings.TrimSpace(ev.Cmd.Text),
	})
	if err != nil {
		return prcStateDesc, err
	}
	dr.ClassID = id
	dr.ExName = ""
	d.sendText(ev.ChatID, "✅ Практика создана.")
	return d.prcShow(ctx, ev)
}

func (d *Deps) prcOpen(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[practicDraft](d.Sessions.Get(ev.ChatID), flowPractics)
	dr.ClassID = ev.Cmd.ID
	return d.prcShow(ctx, ev)
}

func (d *Deps) prcReopen(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	return d.prcShow(ctx, ev)
}

func (d *Deps) prcShow(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[practicDraft](d.Sessions.Get(ev.ChatID), flowPractics)
	p, err := db.PracticClassByID(ctx, d.DB, dr.ClassID)
	if err != nil {
		return dialog.End, err
	}
	if p == nil {
		return d.desync(ev)
	}
	exercises, err := db.PracticExercisesByClass(ctx, d.DB, dr.ClassID)
	if err != nil {
		return dialog.End, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🧪 «%s»\n%s\n\nУпражнения (%d):\n", p.Name, p.Description, len(exercises))
	for _, e := range exercises {
		mark := ""
		if e.FileID != nil {
			mark = " 📎"
		}
		b.WriteString("• " + e.Name + mark + "\n")
	}
	if len(exercises) == 0 {
		b.WriteString("пока нет\n")
	}

	d.show(ev, b.String(), [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Упражнение", "prc_ex_add"),
			tgbotapi.NewInlineKeyboardButtonData("➖ Убрать", "prc_ex_remove"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Название", "prc_edit_name"),
			tgbotapi.NewInlineKeyboardButtonData("📝 Описание", "prc_edit_desc"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", "prc_delete"),
			tgbotapi.NewInlineKeyboardButtonData("⬅️ К списку", "prc_list"),
		),
	})
	return prcStateMenu, nil
}

func (d *Deps) prcAskEdit(field, prompt string) dialog.Handler {
	return func(_ context.Context, ev dialog.Event) (dialog.State, error) {
		dr := draft[practicDraft](d.Sessions.Get(ev.ChatID), flowPractics)
		dr.EditField = field
		d.show(ev, prompt,
			[][]tgbotapi.InlineKeyboardButton{fsmutil.BackCancelRow("prc_back", "prc_close")})
		return prcStateEdit, nil
	}
}

func (d *Deps) prcEdit(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[practicDraft](d.Sessions.Get(ev.ChatID), flowPractics)
	value := strings.TrimSpace(ev.Cmd.Text)
	if value == "" {
		d.sendText(ev.ChatID, "Значение не может быть пустым.")
		return prcStateEdit, nil
	}
	if err := db.UpdatePracticClassField(ctx, d.DB, dr.ClassID, dr.EditField, value); err != nil {
		return prcStateEdit, err
	}
	return d.prcShow(ctx, ev)
}

func (d *Deps) prcAskExName(_ context.Context, ev dialog.Event) (dialog.State, error) {
	d.show(ev, "Введите название упражнения.",
		[][]tgbotapi.InlineKeyboardButton{fsmutil.BackCancelRow("prc_back", "prc_close")})
	return prcStateExName, nil
}

func (d *Deps) prcExName(_ context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[practicDraft](d.Sessions.Get(ev.ChatID), flowPractics)
	name := strings.TrimSpace(ev.Cmd.Text)
	if name == "" {
		d.sendText(ev.ChatID, "Название не может быть пустым.")
		return prcStateExName, nil
	}
	dr.ExName = name
	d.show(ev, "Пришлите вложение к упражнению или продолжите без него.",
		[][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("⏭ Без вложения", "prc_skip_file"),
			),
			fsmutil.BackCancelRow("prc_back", "prc_close"),
		})
	return prcStateExFile, nil
}

func (d *Deps) prcExCreate(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[practicDraft](d.Sessions.Get(ev.ChatID), flowPractics)
	if dr.ExName == "" {
		return d.desync(ev)
	}

	e := models.PracticClassExercise{PracticClassID: dr.ClassID, Name: dr.ExName}
	if ev.Cmd.Kind == dialog.KindFile {
		fileID := ev.Cmd.FileID
		e.FileID = &fileID
	}
	if _, err := db.CreatePracticExercise(ctx, d.DB, e); err != nil {
		return prcStateExFile, err
	}
	dr.ExName = ""
	return d.prcShow(ctx, ev)
}

func (d *Deps) prcExRemovePick(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[practicDraft](d.Sessions.Get(ev.ChatID), flowPractics)

	exercises, err := db.PracticExercisesByClass(ctx, d.DB, dr.ClassID)
	if err != nil {
		return dialog.End, err
	}
	if len(exercises) == 0 {
		d.sendText(ev.ChatID, "Упражнений нет.")
		return d.prcShow(ctx, ev)
	}
	items := make([]pagination.Item, 0, len(exercises))
	for _, e := range exercises {
		items = append(items, pagination.Item{Label: e.Name, Data: fmt.Sprintf("exercise#%d", e.ID)})
	}
	dr.List = &pagination.Cache{Items: items, PageSize: d.PageSize, Back: "prc_back"}
	dr.Page = 1
	dr.Title = "Какое упражнение убрать?"
	d.show(ev, dr.Title, dr.List.Rows(1))
	return prcStateExRemove, nil
}

func (d *Deps) prcExRemove(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	if err := db.DeletePracticExercise(ctx, d.DB, ev.Cmd.ID); err != nil {
		return prcStateExRemove, err
	}
	return d.prcShow(ctx, ev)
}

func (d *Deps) prcConfirmDelete(_ context.Context, ev dialog.Event) (dialog.State, error) {
	d.show(ev, "⚠️ Удалить практику вместе с упражнениями?",
		[][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🗑 Да, удалить", "prc_delete_yes"),
			),
			fsmutil.BackCancelRow("prc_back", "prc_close"),
		})
	return prcStateDelete, nil
}

func (d *Deps) prcDelete(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[practicDraft](d.Sessions.Get(ev.ChatID), flowPractics)
	if err := db.DeletePracticClass(ctx, d.DB, dr.ClassID); err != nil {
		return prcStateDelete, err
	}
	d.sendText(ev.ChatID, "🗑 Практика удалена.")
	return d.prcList(ctx, ev)
}
