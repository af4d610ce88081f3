package flows

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/telegram-classroom-bot/internal/bot/shared/fsmutil"
	"github.com/Spok95/telegram-classroom-bot/internal/db"
	"github.com/Spok95/telegram-classroom-bot/internal/dialog"
	"github.com/Spok95/telegram-classroom-bot/internal/models"
	"github.com/Spok95/telegram-classroom-bot/internal/pagination"
)

const flowSettings = "settings"

const (
	setStateMenu dialog.State = iota + 1
	setStateCourseName
	setStateRenameCourse
	setStateClassList
	setStateClassMenu
	setStateClassName
	setStateClassRename
	setStatePassValue
	setStateNotify
	setStateTransferPick
	setStateDeleteCourse
	setStateDeleteClass
)

type settingsDraft struct {
	CourseID int64
	Owner    bool
	ClassID  int64
	PassRole models.Role
	List     *pagination.Cache
	Page     int
}

// NewSettingsFlow — администрирование курса и классов. Полное меню видит
// только владелец курса; остальные преподаватели — коды своих классов.
func NewSettingsFlow(d *Deps) *dialog.Flow {
	return &dialog.Flow{
		Name:         flowSettings,
		AllowReentry: true,
		Entry:        d.setEntry,
		States: map[dialog.State][]dialog.Rule{
			setStateMenu: {
				{When: dialog.OnKeyword("set_create_course"), Do: d.setAskCourseName},
				{When: dialog.OnKeyword("set_rename_course"), Do: d.setAskRenameCourse},
				{When: dialog.OnKeyword("set_classes"), Do: d.setClassList},
				{When: dialog.OnKeyword("set_class_create"), Do: d.setAskClassName},
				{When: dialog.OnKeyword("set_transfer"), Do: d.setTransferPick},
				{When: dialog.OnKeyword("set_delete_course"), Do: d.setConfirmDeleteCourse},
			},
			setStateCourseName: {
				{When: dialog.OnText(), Do: d.setCreateCourse},
			},
			setStateRenameCourse: {
				{When: dialog.OnText(), Do: d.setRenameCourse},
			},
			setStateClassList: {
				{When: dialog.OnSelect("cls"), Do: d.setOpenClass},
				{When: dialog.OnPage(), Do: d.setClassListPage},
				{When: dialog.OnKeyword("set_menu"), Do: d.setBackToMenu},
			},
			setStateClassMenu: {
				{When: dialog.OnKeyword("set_class_rename"), Do: d.setAskClassRename},
				{When: dialog.OnKeyword("set_pass_teacher"), Do: d.setAskPass(models.RoleTeacher)},
				{When: dialog.OnKeyword("set_pass_student"), Do: d.setAskPass(models.RoleStudent)},
				{When: dialog.OnKeyword("set_notify"), Do: d.setAskNotify},
				{When: dialog.OnKeyword("set_class_delete"), Do: d.setConfirmDeleteClass},
				{When: dialog.OnKeyword("set_classes"), Do: d.setClassList},
			},
			setStateClassName: {
				{When: dialog.OnText(), Do: d.setCreateClass},
			},
			setStateClassRename: {
				{When: dialog.OnText(), Do: d.setRenameClass},
			},
			setStatePassValue: {
				{When: dialog.OnText(), Do: d.setPassFromText},
				{When: dialog.OnKeyword("set_pass_gen"), Do: d.setPassGenerated},
				{When: dialog.OnKeyword("set_class_back"), Do: d.setReopenClass},
			},
			setStateNotify: {
				{When: dialog.OnText(), Do: d.setNotifyFromText},
				{When: dialog.OnKeyword("set_notify_off"), Do: d.setNotifyOff},
				{When: dialog.OnKeyword("set_class_back"), Do: d.setReopenClass},
			},
			setStateTransferPick: {
				{When: dialog.OnSelect("teacher"), Do: d.setTransfer},
				{When: dialog.OnPage(), Do: d.setTransferPage},
				{When: dialog.OnKeyword("set_menu"), Do: d.setBackToMenu},
			},
			setStateDeleteCourse: {
				{When: dialog.OnKeyword("set_delete_course_yes"), Do: d.setDeleteCourse},
				{When: dialog.OnKeyword("set_menu"), Do: d.setBackToMenu},
			},
			setStateDeleteClass: {
				{When: dialog.OnKeyword("set_delete_class_yes"), Do: d.setDeleteClass},
				{When: dialog.OnKeyword("set_class_back"), Do: d.setReopenClass},
			},
		},
		Fallback: d.cancelRules("set_close", "Настройки закрыты."),
	}
}

func (d *Deps) setEntry(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	if sess.Role() != models.RoleTeacher {
		d.sendText(ev.ChatID, "Раздел доступен только преподавателям.")
		return dialog.End, nil
	}
	dr := draft[settingsDraft](sess, flowSettings)

	// Курс берём по активному классу, иначе первый из собственных.
	if cls := sess.ActiveClassroomID(); cls != 0 {
		c, err := db.ClassroomByID(ctx, d.DB, cls)
		if err != nil {
			return dialog.End, err
		}
		if c != nil {
			dr.CourseID = c.CourseID
		}
	}
	if dr.CourseID == 0 {
		owned, err := db.CoursesByOwner(ctx, d.DB, sess.ProfileID())
		if err != nil {
			return dialog.End, err
		}
		if len(owned) > 0 {
			dr.CourseID = owned[0].ID
		}
	}
	if dr.CourseID == 0 {
		d.show(ev, "У вас пока нет курса.", [][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("➕ Создать курс", "set_create_course"),
			),
			fsmutil.CancelRow("set_close"),
		})
		return setStateMenu, nil
	}
	return d.setShowMenu(ctx, ev)
}

func (d *Deps) setShowMenu(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[settingsDraft](sess, flowSettings)

	course, err := db.CourseByID(ctx, d.DB, dr.CourseID)
	if err != nil {
		return dialog.End, err
	}
	if course == nil {
		return d.desync(ev)
	}
	dr.Owner = course.OwnerTeacherID == sess.ProfileID()

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏫 Классы", "set_classes"),
		),
	}
	if dr.Owner {
		rows = append(rows,
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✏️ Переименовать", "set_rename_course"),
				tgbotapi.NewInlineKeyboardButtonData("➕ Новый класс", "set_class_create"),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🔁 Передать курс", "set_transfer"),
				tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить курс", "set_delete_course"),
			),
		)
	}
	rows = append(rows, fsmutil.CancelRow("set_close"))

	title := fmt.Sprintf("⚙️ Курс «%s»", course.Name)
	if !dr.Owner {
		title += "\n(вы не владелец: доступен только просмотр классов)"
	}
	d.show(ev, title, rows)
	return setStateMenu, nil
}

func (d *Deps) setBackToMenu(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	return d.setShowMenu(ctx, ev)
}

// setRequireOwner перечитывает владельца перед изменением: клавиатура могла
// пережить передачу курса другому преподавателю.
func (d *Deps) setRequireOwner(ctx context.Context, ev dialog.Event) (bool, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[settingsDraft](sess, flowSettings)
	course, err := db.CourseByID(ctx, d.DB, dr.CourseID)
	if err != nil {
		return false, err
	}
	if course == nil {
		return false, nil
	}
	dr.Owner = course.OwnerTeacherID == sess.ProfileID()
	return dr.Owner, nil
}

func (d *Deps) setRefuseNotOwner(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	d.sendText(ev.ChatID, "Действие доступно только владельцу курса.")
	return d.setShowMenu(ctx, ev)
}

func (d *Deps) setAskCourseName(_ context.Context, ev dialog.Event) (dialog.State, error) {
	d.show(ev, "Введите название курса.",
		[][]tgbotapi.InlineKeyboardButton{fsmutil.CancelRow("set_close")})
	return setStateCourseName, nil
}

func (d *Deps) setCreateCourse(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[settingsDraft](sess, flowSettings)

	name := strings.TrimSpace(ev.Cmd.Text)
	if name == "" {
		d.sendText(ev.ChatID, "Название не может быть пустым.")
		return setStateCourseName, nil
	}
	id, err := db.CreateCourse(ctx, d.DB, name, sess.ProfileID())
	if err != nil {
		return setStateCourseName, err
	}
	dr.CourseID = id

	d.show(ev, fmt.Sprintf("✅ Курс «%s» создан. Теперь введите название первого класса.", name),
		[][]tgbotapi.InlineKeyboardButton{fsmutil.CancelRow("set_close")})
	return setStateClassName, nil
}

func (d *Deps) setAskRenameCourse(_ context.Context, ev dialog.Event) (dialog.State, error) {
	d.show(ev, "Введите новое название курса.",
		[][]tgbotapi.InlineKeyboardButton{fsmutil.CancelRow("set_close")})
	return setStateRenameCourse, nil
}

func (d *Deps) setRenameCourse(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[settingsDraft](d.Sessions.Get(ev.ChatID), flowSettings)
	if ok, err := d.setRequireOwner(ctx, ev); err != nil {
		return setStateRenameCourse, err
	} else if !ok {
		return d.setRefuseNotOwner(ctx, ev)
	}
	name := strings.TrimSpace(ev.Cmd.Text)
	if name == "" {
		d.sendText(ev.ChatID, "Название не может быть пустым.")
		return setStateRenameCourse, nil
	}
	if err := db.RenameCourse(ctx, d.DB, dr.CourseID, name); err != nil {
		return setStateRenameCourse, err
	}
	return d.setShowMenu(ctx, ev)
}

func (d *Deps) setClassList(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[settingsDraft](d.Sessions.Get(ev.ChatID), flowSettings)

	classes, err := db.ClassroomsByCourse(ctx, d.DB, dr.CourseID)
	if err != nil {
		return dialog.End, err
	}
	items := make([]pagination.Item, 0, len(classes))
	for _, c := range classes {
		items = append(items, pagination.Item{Label: c.Name, Data: fmt.Sprintf("cls#%d", c.ID)})
	}
	dr.List = &pagination.Cache{Items: items, PageSize: d.PageSize, Back: "set_menu"}
	dr.Page = 1

	d.show(ev, d.setClassListTitle(dr), dr.List.Rows(1))
	return setStateClassList, nil
}

func (d *Deps) setClassListTitle(dr *settingsDraft) string {
	if len(dr.List.Items) == 0 {
		return "Классов пока нет."
	}
	return fmt.Sprintf("🏫 Классы (стр. %d/%d)", dr.Page, dr.List.Pages())
}

func (d *Deps) setClassListPage(_ context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[settingsDraft](d.Sessions.Get(ev.ChatID), flowSettings)
	if dr.List == nil {
		return d.desync(ev)
	}
	dr.Page = ev.Cmd.Page
	d.show(ev, d.setClassListTitle(dr), dr.List.Rows(dr.Page))
	return setStateClassList, nil
}

func (d *Deps) setOpenClass(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[settingsDraft](d.Sessions.Get(ev.ChatID), flowSettings)
	dr.ClassID = ev.Cmd.ID
	return d.setShowClass(ctx, ev)
}

func (d *Deps) setReopenClass(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	return d.setShowClass(ctx, ev)
}

func (d *Deps) setShowClass(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[settingsDraft](d.Sessions.Get(ev.ChatID), flowSettings)
	cls, err := db.ClassroomByID(ctx, d.DB, dr.ClassID)
	if err != nil {
		return dialog.End, err
	}
	if cls == nil {
		return d.desync(ev)
	}

	notify := "не настроен"
	if cls.NotifyChatID != nil {
		notify = strconv.FormatInt(*cls.NotifyChatID, 10)
	}
	text := fmt.Sprintf("🏫 Класс «%s»\nКод преподавателя: %s\nКод ученика: %s\nКанал уведомлений: %s",
		cls.Name, cls.TeacherAuth, cls.StudentAuth, notify)

	rows := [][]tgbotapi.InlineKeyboardButton{}
	if dr.Owner {
		rows = append(rows,
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✏️ Переименовать", "set_class_rename"),
				tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", "set_class_delete"),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🔑 Код преподавателя", "set_pass_teacher"),
				tgbotapi.NewInlineKeyboardButtonData("🔑 Код ученика", "set_pass_student"),
			),
		)
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📢 Канал уведомлений", "set_notify"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ К классам", "set_classes"),
		),
	)
	d.show(ev, text, rows)
	return setStateClassMenu, nil
}

func (d *Deps) setAskClassName(_ context.Context, ev dialog.Event) (dialog.State, error) {
	d.show(ev, "Введите название нового класса.",
		[][]tgbotapi.InlineKeyboardButton{fsmutil.CancelRow("set_close")})
	return setStateClassName, nil
}

func (d *Deps) setCreateClass(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[settingsDraft](sess, flowSettings)
	if ok, err := d.setRequireOwner(ctx, ev); err != nil {
		return setStateClassName, err
	} else if !ok {
		return d.setRefuseNotOwner(ctx, ev)
	}

	name := strings.TrimSpace(ev.Cmd.Text)
	if name == "" {
		d.sendText(ev.ChatID, "Название не может быть пустым.")
		return setStateClassName, nil
	}
	cls, err := db.CreateClassroom(ctx, d.DB, dr.CourseID, name)
	if err != nil {
		return setStateClassName, err
	}
	if err := db.AddTeacherToClassroom(ctx, d.DB, sess.ProfileID(), cls.ID); err != nil {
		return setStateClassName, err
	}
	if sess.ActiveClassroomID() == 0 {
		if err := db.SetTeacherActiveClassroom(ctx, d.DB, sess.ProfileID(), &cls.ID); err != nil {
			return setStateClassName, err
		}
		sess.SetActiveClassroom(cls.ID)
	}

	d.sendText(ev.ChatID, fmt.Sprintf(
		"✅ Класс «%s» создан.\nКод преподавателя: %s\nКод ученика: %s", cls.Name, cls.TeacherAuth, cls.StudentAuth))
	return d.setShowMenu(ctx, ev)
}

func (d *Deps) setAskClassRename(_ context.Context, ev dialog.Event) (dialog.State, error) {
	d.show(ev, "Введите новое название класса.",
		[][]tgbotapi.InlineKeyboardButton{fsmutil.BackCancelRow("set_class_back", "set_close")})
	return setStateClassRename, nil
}

func (d *Deps) setRenameClass(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[settingsDraft](d.Sessions.Get(ev.ChatID), flowSettings)
	if ok, err := d.setRequireOwner(ctx, ev); err != nil {
		return setStateClassRename, err
	} else if !ok {
		return d.setRefuseNotOwner(ctx, ev)
	}
	name := strings.TrimSpace(ev.Cmd.Text)
	if name == "" {
		d.sendText(ev.ChatID, "Название не может быть пустым.")
		return setStateClassRename, nil
	}
	if err := db.RenameClassroom(ctx, d.DB, dr.ClassID, name); err != nil {
		return setStateClassRename, err
	}
	return d.setShowClass(ctx, ev)
}

func (d *Deps) setAskPass(role models.Role) dialog.Handler {
	return func(_ context.Context, ev dialog.Event) (dialog.State, error) {
		dr := draft[settingsDraft](d.Sessions.Get(ev.ChatID), flowSettings)
		dr.PassRole = role
		who := "ученика"
		if role == models.RoleTeacher {
			who = "преподавателя"
		}
		d.show(ev, fmt.Sprintf("Введите новый код %s или сгенерируйте случайный.", who),
			[][]tgbotapi.InlineKeyboardButton{
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData("🎲 Сгенерировать", "set_pass_gen"),
				),
				fsmutil.BackCancelRow("set_class_back", "set_close"),
			})
		return setStatePassValue, nil
	}
}

func (d *Deps) setPassFromText(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	return d.setPass(ctx, ev, strings.TrimSpace(ev.Cmd.Text))
}

func (d *Deps) setPassGenerated(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	return d.setPass(ctx, ev, db.NewAuthCode())
}

func (d *Deps) setPass(ctx context.Context, ev dialog.Event, code string) (dialog.State, error) {
	dr := draft[settingsDraft](d.Sessions.Get(ev.ChatID), flowSettings)
	if ok, err := d.setRequireOwner(ctx, ev); err != nil {
		return setStatePassValue, err
	} else if !ok {
		return d.setRefuseNotOwner(ctx, ev)
	}
	if code == "" {
		d.sendText(ev.ChatID, "Код не может быть пустым.")
		return setStatePassValue, nil
	}
	if err := db.SetClassroomAuth(ctx, d.DB, dr.ClassID, dr.PassRole, code); err != nil {
		// Коды уникальны по всем классам; занятый предлагаем заменить.
		if strings.Contains(err.Error(), "duplicate key") {
			d.sendText(ev.ChatID, "❌ Такой код уже занят, введите другой.")
			return setStatePassValue, nil
		}
		return setStatePassValue, err
	}
	d.sendText(ev.ChatID, "✅ Код обновлён: "+code)
	return d.setShowClass(ctx, ev)
}

func (d *Deps) setAskNotify(_ context.Context, ev dialog.Event) (dialog.State, error) {
	d.show(ev, "Пришлите ID канала или группы для уведомлений класса (бот должен быть участником).",
		[][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🚫 Отключить", "set_notify_off"),
			),
			fsmutil.BackCancelRow("set_class_back", "set_close"),
		})
	return setStateNotify, nil
}

func (d *Deps) setNotifyFromText(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[settingsDraft](d.Sessions.Get(ev.ChatID), flowSettings)
	id, err := strconv.ParseInt(strings.TrimSpace(ev.Cmd.Text), 10, 64)
	if err != nil {
		d.sendText(ev.ChatID, "Нужен числовой ID чата, например -1001234567890.")
		return setStateNotify, nil
	}
	if err := db.SetClassroomNotifyChat(ctx, d.DB, dr.ClassID, &id); err != nil {
		return setStateNotify, err
	}
	d.sendText(ev.ChatID, "✅ Канал уведомлений настроен.")
	return d.setShowClass(ctx, ev)
}

func (d *Deps) setNotifyOff(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[settingsDraft](d.Sessions.Get(ev.ChatID), flowSettings)
	if err := db.SetClassroomNotifyChat(ctx, d.DB, dr.ClassID, nil); err != nil {
		return setStateNotify, err
	}
	return d.setShowClass(ctx, ev)
}

func (d *Deps) setTransferPick(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[settingsDraft](sess, flowSettings)

	classes, err := db.ClassroomsByCourse(ctx, d.DB, dr.CourseID)
	if err != nil {
		return dialog.End, err
	}
	seen := map[int64]bool{sess.ProfileID(): true}
	var items []pagination.Item
	for _, c := range classes {
		teachers, err := db.TeachersByClassroom(ctx, d.DB, c.ID)
		if err != nil {
			return dialog.End, err
		}
		for _, t := range teachers {
			if seen[t.StudentID] {
				continue
			}
			seen[t.StudentID] = true
			items = append(items, pagination.Item{Label: t.Name, Data: fmt.Sprintf("teacher#%d", t.StudentID)})
		}
	}
	if len(items) == 0 {
		d.sendText(ev.ChatID, "В курсе нет других преподавателей, передавать некому.")
		return d.setShowMenu(ctx, ev)
	}
	dr.List = &pagination.Cache{Items: items, PageSize: d.PageSize, Back: "set_menu"}
	dr.Page = 1
	d.show(ev, "Кому передать курс?", dr.List.Rows(1))
	return setStateTransferPick, nil
}

func (d *Deps) setTransferPage(_ context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[settingsDraft](d.Sessions.Get(ev.ChatID), flowSettings)
	if dr.List == nil {
		return d.desync(ev)
	}
	dr.Page = ev.Cmd.Page
	d.show(ev, "Кому передать курс?", dr.List.Rows(dr.Page))
	return setStateTransferPick, nil
}

// setTransfer передаёт курс; бывший владелец выходит из аккаунта, потому что
// его права на активный курс изменились.
func (d *Deps) setTransfer(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[settingsDraft](d.Sessions.Get(ev.ChatID), flowSettings)
	if ok, err := d.setRequireOwner(ctx, ev); err != nil {
		return setStateTransferPick, err
	} else if !ok {
		return d.setRefuseNotOwner(ctx, ev)
	}
	if err := db.TransferCourse(ctx, d.DB, dr.CourseID, ev.Cmd.ID); err != nil {
		return setStateTransferPick, err
	}
	d.Sessions.Clear(ev.ChatID)
	d.show(ev, "✅ Курс передан. Отправьте /start, чтобы войти заново.", nil)
	return dialog.End, nil
}

func (d *Deps) setConfirmDeleteCourse(_ context.Context, ev dialog.Event) (dialog.State, error) {
	d.show(ev, "⚠️ Курс будет удалён вместе со всеми классами, активностями и историей. Продолжить?",
		[][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🗑 Да, удалить", "set_delete_course_yes"),
			),
			fsmutil.BackCancelRow("set_menu", "set_close"),
		})
	return setStateDeleteCourse, nil
}

func (d *Deps) setDeleteCourse(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[settingsDraft](d.Sessions.Get(ev.ChatID), flowSettings)
	if ok, err := d.setRequireOwner(ctx, ev); err != nil {
		return setStateDeleteCourse, err
	} else if !ok {
		return d.setRefuseNotOwner(ctx, ev)
	}
	if err := db.DeleteCourse(ctx, d.DB, dr.CourseID); err != nil {
		return setStateDeleteCourse, err
	}
	d.Sessions.Clear(ev.ChatID)
	d.show(ev, "🗑 Курс удалён. Отправьте /start, чтобы войти заново.", nil)
	return dialog.End, nil
}

func (d *Deps) setConfirmDeleteClass(_ context.Context, ev dialog.Event) (dialog.State, error) {
	d.show(ev, "⚠️ Класс будет удалён вместе с активностями и заявками. Продолжить?",
		[][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🗑 Да, удалить", "set_delete_class_yes"),
			),
			fsmutil.BackCancelRow("set_class_back", "set_close"),
		})
	return setStateDeleteClass, nil
}

func (d *Deps) setDeleteClass(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[settingsDraft](sess, flowSettings)
	if ok, err := d.setRequireOwner(ctx, ev); err != nil {
		return setStateDeleteClass, err
	} else if !ok {
		return d.setRefuseNotOwner(ctx, ev)
	}
	wasActive := sess.ActiveClassroomID() == dr.ClassID

	if err := db.DeleteClassroom(ctx, d.DB, dr.ClassID); err != nil {
		return setStateDeleteClass, err
	}
	if wasActive {
		d.Sessions.Clear(ev.ChatID)
		d.show(ev, "🗑 Класс удалён. Это был ваш активный класс, отправьте /start для входа.", nil)
		return dialog.End, nil
	}
	d.sendText(ev.ChatID, "🗑 Класс удалён.")
	return d.setClassList(ctx, ev)
}
