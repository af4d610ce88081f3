package flows

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/telegram-classroom-bot/internal/bot/shared/fsmutil"
	"github.com/Spok95/telegram-classroom-bot/internal/db"
	"github.com/Spok95/telegram-classroom-bot/internal/dialog"
	"github.com/Spok95/telegram-classroom-bot/internal/models"
	"github.com/Spok95/telegram-classroom-bot/internal/pagination"
	"github.com/Spok95/telegram-classroom-bot/internal/workflow"
)

const flowActivities = "activities"

const (
	actStateTypeList dialog.State = iota + 1
	actStateTypeName
	actStateTypeDesc
	actStateTypeKind
	actStateTypeSingle
	actStateTypeFile
	actStateTypeMenu
	actStateTypeEdit
	actStateTypeEditFile
	actStateTypeDelete
	actStateActList
	actStateActName
	actStateActDesc
	actStateActFile
	actStateActValue
	actStateActTokenType
	actStateActDeadline
	actStateActMenu
	actStateActEdit
	actStateActDelete
	actStateReviewPick
	actStateReviewValue
)

type activityDraft struct {
	TypeID int64
	ActID  int64

	// черновик создаваемого типа
	NewType models.ActivityType

	// черновик создаваемого задания
	ActName      string
	ActDesc      string
	ActFile      *string
	ActValue     int
	ActTokenType int64

	EditField     string // "name" | "description" | "deadline"
	TargetStudent int64
	TargetGuild   int64

	List  *pagination.Cache
	Page  int
	Title string
}

// NewActivityFlow — типы активностей и задания активного класса: мастера
// создания, редактирование, удаление и ручная проверка с начислением.
func NewActivityFlow(d *Deps) *dialog.Flow {
	return &dialog.Flow{
		Name:         flowActivities,
		AllowReentry: true,
		Entry:        d.actEntry,
		States: map[dialog.State][]dialog.Rule{
			actStateTypeList: {
				{When: dialog.OnSelect("atype"), Do: d.actOpenType},
				{When: dialog.OnPage(), Do: d.actPage(actStateTypeList)},
				{When: dialog.OnKeyword("act_type_create"), Do: d.actAskTypeName},
			},
			actStateTypeName: {
				{When: dialog.OnText(), Do: d.actTypeName},
			},
			actStateTypeDesc: {
				{When: dialog.OnText(), Do: d.actTypeDesc},
			},
			actStateTypeKind: {
				{When: dialog.OnKeyword("act_kind_solo"), Do: d.actTypeKind(false)},
				{When: dialog.OnKeyword("act_kind_guild"), Do: d.actTypeKind(true)},
			},
			actStateTypeSingle: {
				{When: dialog.OnKeyword("act_single_yes"), Do: d.actTypeSingle(true)},
				{When: dialog.OnKeyword("act_single_no"), Do: d.actTypeSingle(false)},
			},
			actStateTypeFile: {
				{When: dialog.OnFileOrContinue("act_skip_file"), Do: d.actTypeCreate},
			},
			actStateTypeMenu: {
				{When: dialog.OnKeyword("act_list"), Do: d.actList},
				{When: dialog.OnKeyword("act_create"), Do: d.actAskActName},
				{When: dialog.OnKeyword("act_type_edit_name"), Do: d.actAskTypeEdit("name", "Введите новое название типа.")},
				{When: dialog.OnKeyword("act_type_edit_desc"), Do: d.actAskTypeEdit("description", "Введите новое описание типа.")},
				{When: dialog.OnKeyword("act_type_edit_file"), Do: d.actAskTypeFile},
				{When: dialog.OnKeyword("act_type_delete"), Do: d.actConfirmTypeDelete},
				{When: dialog.OnKeyword("act_types"), Do: d.actTypeList},
			},
			actStateTypeEdit: {
				{When: dialog.OnText(), Do: d.actTypeEdit},
				{When: dialog.OnKeyword("act_type_back"), Do: d.actReopenType},
			},
			actStateTypeEditFile: {
				{When: dialog.OnFile(), Do: d.actTypeFile},
				{When: dialog.OnKeyword("act_file_clear"), Do: d.actTypeFileClear},
				{When: dialog.OnKeyword("act_type_back"), Do: d.actReopenType},
			},
			actStateTypeDelete: {
				{When: dialog.OnKeyword("act_type_delete_yes"), Do: d.actTypeDelete},
				{When: dialog.OnKeyword("act_type_back"), Do: d.actReopenType},
			},
			actStateActList: {
				{When: dialog.OnSelect("act"), Do: d.actOpen},
				{When: dialog.OnPage(), Do: d.actPage(actStateActList)},
				{When: dialog.OnKeyword("act_type_back"), Do: d.actReopenType},
			},
			actStateActName: {
				{When: dialog.OnText(), Do: d.actActName},
			},
			actStateActDesc: {
				{When: dialog.OnText(), Do: d.actActDesc},
			},
			actStateActFile: {
				{When: dialog.OnFileOrContinue("act_skip_file"), Do: d.actActFile},
			},
			actStateActValue: {
				{When: dialog.OnText(), Do: d.actActValue},
			},
			actStateActTokenType: {
				{When: dialog.OnSelect("ttype"), Do: d.actActTokenType},
				{When: dialog.OnPage(), Do: d.actPage(actStateActTokenType)},
			},
			actStateActDeadline: {
				{When: dialog.OnText(), Do: d.actActDeadline},
				{When: dialog.OnKeyword("act_skip_deadline"), Do: d.actActNoDeadline},
			},
			actStateActMenu: {
				{When: dialog.OnKeyword("act_review"), Do: d.actReviewPick},
				{When: dialog.OnKeyword("act_edit_name"), Do: d.actAskActEdit("name", "Введите новое название задания.")},
				{When: dialog.OnKeyword("act_edit_desc"), Do: d.actAskActEdit("description", "Введите новое описание задания.")},
				{When: dialog.OnKeyword("act_edit_deadline"), Do: d.actAskActEdit("deadline", "Введите дедлайн в формате дд-мм-гггг.")},
				{When: dialog.OnKeyword("act_delete"), Do: d.actConfirmDelete},
				{When: dialog.OnKeyword("act_list"), Do: d.actList},
			},
			actStateActEdit: {
				{When: dialog.OnText(), Do: d.actActEdit},
				{When: dialog.OnKeyword("act_clear_deadline"), Do: d.actActClearDeadline},
				{When: dialog.OnKeyword("act_back"), Do: d.actReopen},
			},
			actStateActDelete: {
				{When: dialog.OnKeyword("act_delete_yes"), Do: d.actDelete},
				{When: dialog.OnKeyword("act_back"), Do: d.actReopen},
			},
			actStateReviewPick: {
				{When: dialog.OnSelect("student"), Do: d.actReviewTarget},
				{When: dialog.OnSelect("guild"), Do: d.actReviewTarget},
				{When: dialog.OnPage(), Do: d.actPage(actStateReviewPick)},
				{When: dialog.OnKeyword("act_back"), Do: d.actReopen},
			},
			actStateReviewValue: {
				{When: dialog.OnText(), Do: d.actReviewGrant},
				{When: dialog.OnKeyword("act_back"), Do: d.actReopen},
			},
		},
		Fallback: d.cancelRules("act_close", "Раздел активностей закрыт."),
	}
}

func (d *Deps) actEntry(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	if sess.Role() != models.RoleTeacher || sess.ActiveClassroomID() == 0 {
		d.sendText(ev.ChatID, "Раздел доступен преподавателю с активным классом.")
		return dialog.End, nil
	}
	return d.actTypeList(ctx, ev)
}

func (d *Deps) actPage(stay dialog.State) dialog.Handler {
	return func(_ context.Context, ev dialog.Event) (dialog.State, error) {
		dr := draft[activityDraft](d.Sessions.Get(ev.ChatID), flowActivities)
		if dr.List == nil {
			return d.desync(ev)
		}
		dr.Page = ev.Cmd.Page
		d.show(ev, dr.Title, dr.List.Rows(dr.Page))
		return stay, nil
	}
}

// ==== типы активностей ====

func (d *Deps) actTypeList(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[activityDraft](sess, flowActivities)

	types, err := db.ActivityTypesByClassroom(ctx, d.DB, sess.ActiveClassroomID())
	if err != nil {
		return dialog.End, err
	}
	items := make([]pagination.Item, 0, len(types))
	for _, t := range types {
		label := t.Name
		if t.GuildBased {
			label = "🏰 " + label
		}
		items = append(items, pagination.Item{Label: label, Data: fmt.Sprintf("atype#%d", t.ID)})
	}
	dr.List = &pagination.Cache{
		Items:    items,
		PageSize: d.PageSize,
		Aux: [][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("➕ Новый тип", "act_type_create"),
			),
		},
		Back: "act_close",
	}
	dr.Page = 1
	dr.Title = "📚 Типы активностей"
	if len(items) == 0 {
		dr.Title = "Типов активностей пока нет."
	}
	d.show(ev, dr.Title, dr.List.Rows(1))
	return actStateTypeList, nil
}

func (d *Deps) actAskTypeName(_ context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[activityDraft](d.Sessions.Get(ev.ChatID), flowActivities)
	dr.NewType = models.ActivityType{}
	d.show(ev, "Введите название типа активности.",
		[][]tgbotapi.InlineKeyboardButton{fsmutil.CancelRow("act_close")})
	return actStateTypeName, nil
}

func (d *Deps) actTypeName(_ context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[activityDraft](d.Sessions.Get(ev.ChatID), flowActivities)
	name := strings.TrimSpace(ev.Cmd.Text)
	if name == "" {
		d.sendText(ev.ChatID, "Название не может быть пустым.")
		return actStateTypeName, nil
	}
	dr.NewType.Name = name
	d.show(ev, "Введите описание типа.",
		[][]tgbotapi.InlineKeyboardButton{fsmutil.CancelRow("act_close")})
	return actStateTypeDesc, nil
}

func (d *Deps) actTypeDesc(_ context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[activityDraft](d.Sessions.Get(ev.ChatID), flowActivities)
	dr.NewType.Description = strings.TrimSpace(ev.Cmd.Text)
	d.show(ev, "Кто выполняет задания этого типа?", [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🧍 Ученики", "act_kind_solo"),
			tgbotapi.NewInlineKeyboardButtonData("🏰 Гильдии", "act_kind_guild"),
		),
		fsmutil.CancelRow("act_close"),
	})
	return actStateTypeKind, nil
}

func (d *Deps) actTypeKind(guildBased bool) dialog.Handler {
	return func(_ context.Context, ev dialog.Event) (dialog.State, error) {
		dr := draft[activityDraft](d.Sessions.Get(ev.ChatID), flowActivities)
		dr.NewType.GuildBased = guildBased
		d.show(ev, "Разрешить только одну сдачу на задание?", [][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("☝️ Одна", "act_single_yes"),
				tgbotapi.NewInlineKeyboardButtonData("🔁 Без ограничений", "act_single_no"),
			),
			fsmutil.CancelRow("act_close"),
		})
		return actStateTypeSingle, nil
	}
}

func (d *Deps) actTypeSingle(single bool) dialog.Handler {
	return func(_ context.Context, ev dialog.Event) (dialog.State, error) {
		dr := draft[activityDraft](d.Sessions.Get(ev.ChatID), flowActivities)
		dr.NewType.SingleSubmission = single
		d.show(ev, "Пришлите вложение к типу (картинку или документ) или продолжите без него.",
			[][]tgbotapi.InlineKeyboardButton{
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData("⏭ Без вложения", "act_skip_file"),
				),
				fsmutil.CancelRow("act_close"),
			})
		return actStateTypeFile, nil
	}
}

func (d *Deps) actTypeCreate(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[activityDraft](sess, flowActivities)
	if dr.NewType.Name == "" {
		return d.desync(ev)
	}
	if ev.Cmd.Kind == dialog.KindFile {
		fileID := ev.Cmd.FileID
		dr.NewType.FileID = &fileID
	}
	dr.NewType.ClassroomID = sess.ActiveClassroomID()

	id, err := db.CreateActivityType(ctx, d.DB, dr.NewType)
	if err != nil {
		return actStateTypeFile, err
	}
	dr.TypeID = id
	d.sendText(ev.ChatID, fmt.Sprintf("✅ Тип «%s» создан.", dr.NewType.Name))
	return d.actShowType(ctx, ev)
}

func (d *Deps) actOpenType(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[activityDraft](d.Sessions.Get(ev.ChatID), flowActivities)
	dr.TypeID = ev.Cmd.ID
	return d.actShowType(ctx, ev)
}

func (d *Deps) actReopenType(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	return d.actShowType(ctx, ev)
}

func (d *Deps) actShowType(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[activityDraft](d.Sessions.Get(ev.ChatID), flowActivities)
	t, err := db.ActivityTypeByID(ctx, d.DB, dr.TypeID)
	if err != nil {
		return dialog.End, err
	}
	if t == nil {
		return d.desync(ev)
	}

	kind := "ученики"
	if t.GuildBased {
		kind = "гильдии"
	}
	single := "без ограничений"
	if t.SingleSubmission {
		single = "одна сдача"
	}
	attach := "нет"
	if t.FileID != nil {
		attach = "есть"
	}
	text := fmt.Sprintf("📚 Тип «%s»\n%s\nВыполняют: %s\nСдачи: %s\nВложение: %s",
		t.Name, t.Description, kind, single, attach)

	d.show(ev, text, [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 Задания", "act_list"),
			tgbotapi.NewInlineKeyboardButtonData("➕ Новое задание", "act_create"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Название", "act_type_edit_name"),
			tgbotapi.NewInlineKeyboardButtonData("📝 Описание", "act_type_edit_desc"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📎 Вложение", "act_type_edit_file"),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", "act_type_delete"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ К типам", "act_types"),
		),
	})
	return actStateTypeMenu, nil
}

func (d *Deps) actAskTypeEdit(field, prompt string) dialog.Handler {
	return func(_ context.Context, ev dialog.Event) (dialog.State, error) {
		dr := draft[activityDraft](d.Sessions.Get(ev.ChatID), flowActivities)
		dr.EditField = field
		d.show(ev, prompt,
			[][]tgbotapi.InlineKeyboardButton{fsmutil.BackCancelRow("act_type_back", "act_close")})
		return actStateTypeEdit, nil
	}
}

func (d *Deps) actTypeEdit(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[activityDraft](d.Sessions.Get(ev.ChatID), flowActivities)
	value := strings.TrimSpace(ev.Cmd.Text)
	if value == "" {
		d.sendText(ev.ChatID, "Значение не может быть пустым.")
		return actStateTypeEdit, nil
	}
	if err := db.UpdateActivityTypeField(ctx, d.DB, dr.TypeID, dr.EditField, value); err != nil {
		return actStateTypeEdit, err
	}
	return d.actShowType(ctx, ev)
}

func (d *Deps) actAskTypeFile(_ context.Context, ev dialog.Event) (dialog.State, error) {
	d.show(ev, "Пришлите новое вложение или уберите текущее.",
		[][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🚫 Убрать вложение", "act_file_clear"),
			),
			fsmutil.BackCancelRow("act_type_back", "act_close"),
		})
	return actStateTypeEditFile, nil
}

func (d *Deps) actTypeFile(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[activityDraft](d.Sessions.Get(ev.ChatID), flowActivities)
	if err := db.UpdateActivityTypeField(ctx, d.DB, dr.TypeID, "file_id", ev.Cmd.FileID); err != nil {
		return actStateTypeEditFile, err
	}
	return d.actShowType(ctx, ev)
}

func (d *Deps) actTypeFileClear(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[activityDraft](d.Sessions.Get(ev.ChatID), flowActivities)
	if err := db.UpdateActivityTypeField(ctx, d.DB, dr.TypeID, "file_id", nil); err != nil {
		return actStateTypeEditFile, err
	}
	return d.actShowType(ctx, ev)
}

func (d *Deps) actConfirmTypeDelete(_ context.Context, ev dialog.Event) (dialog.State, error) {
	d.show(ev, "⚠️ Удалить тип вместе со всеми его заданиями?",
		[][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🗑 Да, удалить", "act_type_delete_yes"),
			),
			fsmutil.BackCancelRow("act_type_back", "act_close"),
		})
	return actStateTypeDelete, nil
}

func (d *Deps) actTypeDelete(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[activityDraft](d.Sessions.Get(ev.ChatID), flowActivities)
	if err := db.DeleteActivityType(ctx, d.DB, dr.TypeID); err != nil {
		return actStateTypeDelete, err
	}
	d.sendText(ev.ChatID, "🗑 Тип удалён.")
	return d.actTypeList(ctx, ev)
}

// ==== задания ====

func (d *Deps) actList(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[activityDraft](d.Sessions.Get(ev.ChatID), flowActivities)

	acts, err := db.ActivitiesByType(ctx, d.DB, dr.TypeID)
	if err != nil {
		return dialog.End, err
	}
	items := make([]pagination.Item, 0, len(acts))
	for _, a := range acts {
		label := a.Name
		if a.Deadline != nil {
			label = fmt.Sprintf("%s (до %s)", a.Name, a.Deadline.Format("02-01-2006"))
		}
		items = append(items, pagination.Item{Label: label, Data: fmt.Sprintf("act#%d", a.ID)})
	}
	dr.List = &pagination.Cache{Items: items, PageSize: d.PageSize, Back: "act_type_back"}
	dr.Page = 1
	dr.Title = "📋 Задания типа"
	if len(items) == 0 {
		dr.Title = "Заданий пока нет."
	}
	d.show(ev, dr.Title, dr.List.Rows(1))
	return actStateActList, nil
}

func (d *Deps) actAskActName(_ context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[activityDraft](d.Sessions.Get(ev.ChatID), flowActivities)
	dr.ActName, dr.ActDesc, dr.ActFile, dr.ActValue, dr.ActTokenType = "", "", nil, 0, 0
	d.show(ev, "Введите название задания.",
		[][]tgbotapi.InlineKeyboardButton{fsmutil.CancelRow("act_close")})
	return actStateActName, nil
}

func (d *Deps) actActName(_ context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[activityDraft](d.Sessions.Get(ev.ChatID), flowActivities)
	name := strings.TrimSpace(ev.Cmd.Text)
	if name == "" {
		d.sendText(ev.ChatID, "Название не может быть пустым.")
		return actStateActName, nil
	}
	dr.ActName = name
	d.show(ev, "Введите описание задания.",
		[][]tgbotapi.InlineKeyboardButton{fsmutil.CancelRow("act_close")})
	return actStateActDesc, nil
}

func (d *Deps) actActDesc(_ context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[activityDraft](d.Sessions.Get(ev.ChatID), flowActivities)
	dr.ActDesc = strings.TrimSpace(ev.Cmd.Text)
	d.show(ev, "Пришлите вложение к заданию или продолжите без него.",
		[][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("⏭ Без вложения", "act_skip_file"),
			),
			fsmutil.CancelRow("act_close"),
		})
	return actStateActFile, nil
}

func (d *Deps) actActFile(_ context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[activityDraft](d.Sessions.Get(ev.ChatID), flowActivities)
	if ev.Cmd.Kind == dialog.KindFile {
		fileID := ev.Cmd.FileID
		dr.ActFile = &fileID
	}
	d.show(ev, "Сколько баллов даёт выполнение? Введите число.",
		[][]tgbotapi.InlineKeyboardButton{fsmutil.CancelRow("act_close")})
	return actStateActValue, nil
}

func (d *Deps) actActValue(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[activityDraft](sess, flowActivities)

	v, err := strconv.Atoi(strings.TrimSpace(ev.Cmd.Text))
	if err != nil || v <= 0 {
		d.sendText(ev.ChatID, "Нужно положительное число, например 50.")
		return actStateActValue, nil
	}
	dr.ActValue = v

	types, err := db.TokenTypesForClassroom(ctx, d.DB, sess.ActiveClassroomID())
	if err != nil {
		return dialog.End, err
	}
	items := make([]pagination.Item, 0, len(types))
	for _, tt := range types {
		items = append(items, pagination.Item{Label: tt.Type, Data: fmt.Sprintf("ttype#%d", tt.ID)})
	}
	dr.List = &pagination.Cache{Items: items, PageSize: d.PageSize, Back: "act_close"}
	dr.Page = 1
	dr.Title = "В какой категории начислять баллы за задание?"
	d.show(ev, dr.Title, dr.List.Rows(1))
	return actStateActTokenType, nil
}

func (d *Deps) actActTokenType(_ context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[activityDraft](d.Sessions.Get(ev.ChatID), flowActivities)
	dr.ActTokenType = ev.Cmd.ID
	d.show(ev, "Введите дедлайн в формате дд-мм-гггг или пропустите шаг.",
		[][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("⏭ Без дедлайна", "act_skip_deadline"),
			),
			fsmutil.CancelRow("act_close"),
		})
	return actStateActDeadline, nil
}

func (d *Deps) actActDeadline(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	deadline, err := parseDeadline(ev.Cmd.Text)
	if err != nil {
		d.sendText(ev.ChatID, "Не получилось разобрать дату. Формат: дд-мм-гггг, например 15-09-2026.")
		return actStateActDeadline, nil
	}
	return d.actActCreate(ctx, ev, &deadline)
}

func (d *Deps) actActNoDeadline(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	return d.actActCreate(ctx, ev, nil)
}

func (d *Deps) actActCreate(ctx context.Context, ev dialog.Event, deadline *time.Time) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[activityDraft](sess, flowActivities)
	if dr.ActName == "" || dr.ActTokenType == 0 {
		return d.desync(ev)
	}

	id, err := db.CreateActivity(ctx, d.DB, models.Activity{
		ActivityTypeID: dr.TypeID,
		Name:           dr.ActName,
		Description:    dr.ActDesc,
		FileID:         dr.ActFile,
		Deadline:       deadline,
	}, dr.ActTokenType, dr.ActValue)
	if err != nil {
		return actStateActDeadline, err
	}
	dr.ActID = id
	d.sendText(ev.ChatID, fmt.Sprintf("✅ Задание «%s» создано (%d баллов).", dr.ActName, dr.ActValue))
	return d.actShow(ctx, ev)
}

func (d *Deps) actOpen(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[activityDraft](d.Sessions.Get(ev.ChatID), flowActivities)
	dr.ActID = ev.Cmd.ID
	return d.actShow(ctx, ev)
}

func (d *Deps) actReopen(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	return d.actShow(ctx, ev)
}

func (d *Deps) actShow(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[activityDraft](d.Sessions.Get(ev.ChatID), flowActivities)
	a, err := db.ActivityByID(ctx, d.DB, dr.ActID)
	if err != nil {
		return dialog.End, err
	}
	if a == nil {
		return d.desync(ev)
	}
	token, err := db.TokenByID(ctx, d.DB, a.TokenID)
	if err != nil {
		return dialog.End, err
	}

	deadline := "нет"
	if a.Deadline != nil {
		deadline = a.Deadline.Format("02-01-2006")
	}
	value := 0
	if token != nil {
		value = token.Value
	}
	text := fmt.Sprintf("📋 Задание «%s»\n%s\nБаллы: %d\nДедлайн: %s", a.Name, a.Description, value, deadline)

	d.show(ev, text, [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Проверка", "act_review"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Название", "act_edit_name"),
			tgbotapi.NewInlineKeyboardButtonData("📝 Описание", "act_edit_desc"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Дедлайн", "act_edit_deadline"),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", "act_delete"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ К заданиям", "act_list"),
		),
	})
	return actStateActMenu, nil
}

func (d *Deps) actAskActEdit(field, prompt string) dialog.Handler {
	return func(_ context.Context, ev dialog.Event) (dialog.State, error) {
		dr := draft[activityDraft](d.Sessions.Get(ev.ChatID), flowActivities)
		dr.EditField = field
		rows := [][]tgbotapi.InlineKeyboardButton{fsmutil.BackCancelRow("act_back", "act_close")}
		if field == "deadline" {
			rows = append([][]tgbotapi.InlineKeyboardButton{
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData("🚫 Убрать дедлайн", "act_clear_deadline"),
				),
			}, rows...)
		}
		d.show(ev, prompt, rows)
		return actStateActEdit, nil
	}
}

func (d *Deps) actActEdit(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[activityDraft](d.Sessions.Get(ev.ChatID), flowActivities)
	input := strings.TrimSpace(ev.Cmd.Text)
	if input == "" {
		d.sendText(ev.ChatID, "Значение не может быть пустым.")
		return actStateActEdit, nil
	}

	var value any = input
	if dr.EditField == "deadline" {
		t, err := parseDeadline(input)
		if err != nil {
			d.sendText(ev.ChatID, "Не получилось разобрать дату. Формат: дд-мм-гггг.")
			return actStateActEdit, nil
		}
		value = t
	}
	if err := db.UpdateActivityField(ctx, d.DB, dr.ActID, dr.EditField, value); err != nil {
		return actStateActEdit, err
	}
	return d.actShow(ctx, ev)
}

func (d *Deps) actActClearDeadline(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[activityDraft](d.Sessions.Get(ev.ChatID), flowActivities)
	if err := db.UpdateActivityField(ctx, d.DB, dr.ActID, "deadline", nil); err != nil {
		return actStateActEdit, err
	}
	return d.actShow(ctx, ev)
}

func (d *Deps) actConfirmDelete(_ context.Context, ev dialog.Event) (dialog.State, error) {
	d.show(ev, "⚠️ Удалить задание? Уже начисленные за него баллы сохранятся.",
		[][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🗑 Да, удалить", "act_delete_yes"),
			),
			fsmutil.BackCancelRow("act_back", "act_close"),
		})
	return actStateActDelete, nil
}

func (d *Deps) actDelete(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[activityDraft](d.Sessions.Get(ev.ChatID), flowActivities)
	if err := db.DeleteActivity(ctx, d.DB, dr.ActID); err != nil {
		return actStateActDelete, err
	}
	d.sendText(ev.ChatID, "🗑 Задание удалено.")
	return d.actList(ctx, ev)
}

// ==== ручная проверка ====

// actReviewPick — кандидаты на начисление: ученики или гильдии класса,
// у которых токена задания ещё нет.
func (d *Deps) actReviewPick(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[activityDraft](sess, flowActivities)

	a, err := db.ActivityByID(ctx, d.DB, dr.ActID)
	if err != nil {
		return dialog.End, err
	}
	if a == nil {
		return d.desync(ev)
	}
	t, err := db.ActivityTypeByID(ctx, d.DB, a.ActivityTypeID)
	if err != nil {
		return dialog.End, err
	}
	if t == nil {
		return d.desync(ev)
	}

	var items []pagination.Item
	if t.GuildBased {
		guilds, err := db.GuildsWithoutToken(ctx, d.DB, sess.ActiveClassroomID(), a.TokenID)
		if err != nil {
			return dialog.End, err
		}
		for _, g := range guilds {
			items = append(items, pagination.Item{Label: g.Name, Data: fmt.Sprintf("guild#%d", g.ID)})
		}
	} else {
		students, err := db.StudentsWithoutToken(ctx, d.DB, sess.ActiveClassroomID(), a.TokenID)
		if err != nil {
			return dialog.End, err
		}
		for _, s := range students {
			items = append(items, pagination.Item{Label: s.Name, Data: fmt.Sprintf("student#%d", s.StudentID)})
		}
	}
	if len(items) == 0 {
		d.sendText(ev.ChatID, "Все уже получили баллы за это задание.")
		return d.actShow(ctx, ev)
	}

	dr.List = &pagination.Cache{Items: items, PageSize: d.PageSize, Back: "act_back"}
	dr.Page = 1
	dr.Title = "Кому зачесть выполнение?"
	d.show(ev, dr.Title, dr.List.Rows(1))
	return actStateReviewPick, nil
}

func (d *Deps) actReviewTarget(_ context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[activityDraft](d.Sessions.Get(ev.ChatID), flowActivities)
	dr.TargetStudent, dr.TargetGuild = 0, 0
	if ev.Cmd.Action == "guild" {
		dr.TargetGuild = ev.Cmd.ID
	} else {
		dr.TargetStudent = ev.Cmd.ID
	}
	d.show(ev, "Введите «ценность [комментарий]», например: 50 отличная работа.",
		[][]tgbotapi.InlineKeyboardButton{fsmutil.BackCancelRow("act_back", "act_close")})
	return actStateReviewValue, nil
}

// actReviewGrant — ручное начисление за задание, минуя очередь заявок.
func (d *Deps) actReviewGrant(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[activityDraft](sess, flowActivities)

	value, comment, err := parseValueComment(ev.Cmd.Text)
	if err != nil {
		d.sendText(ev.ChatID, "❌ "+err.Error())
		return actStateReviewValue, nil
	}

	a, err := db.ActivityByID(ctx, d.DB, dr.ActID)
	if err != nil {
		return dialog.End, err
	}
	if a == nil {
		return d.desync(ev)
	}
	token, err := db.TokenByID(ctx, d.DB, a.TokenID)
	if err != nil {
		return dialog.End, err
	}
	if token == nil {
		return d.desync(ev)
	}

	grant := workflow.ManualGrant{
		ClassroomID: sess.ActiveClassroomID(),
		TokenTypeID: token.TokenTypeID,
		TokenID:     &a.TokenID,
		GrantedBy:   sess.ProfileID(),
		Value:       value,
		Comment:     comment,
	}
	if dr.TargetGuild != 0 {
		members, err := db.GuildMembers(ctx, d.DB, dr.TargetGuild)
		if err != nil {
			return dialog.End, err
		}
		if len(members) == 0 {
			d.sendText(ev.ChatID, "В гильдии нет участников, начислять некому.")
			return d.actShow(ctx, ev)
		}
		grant.GuildID = &dr.TargetGuild
		grant.StudentID = members[0].StudentID
	} else {
		grant.StudentID = dr.TargetStudent
	}

	if _, err := d.Workflow.GrantManual(ctx, grant); err != nil {
		return actStateReviewValue, err
	}
	d.sendText(ev.ChatID, fmt.Sprintf("✅ Начислено %d баллов.", value))
	return d.actReviewPick(ctx, ev)
}
