package flows

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/telegram-classroom-bot/internal/bot/menu"
	"github.com/Spok95/telegram-classroom-bot/internal/bot/shared/fsmutil"
	"github.com/Spok95/telegram-classroom-bot/internal/db"
	"github.com/Spok95/telegram-classroom-bot/internal/dialog"
	"github.com/Spok95/telegram-classroom-bot/internal/models"
	"github.com/Spok95/telegram-classroom-bot/internal/tg"
)

const flowLogin = "login"

const (
	loginStateName dialog.State = iota + 1
	loginStateConfirm
	loginStateRole
	loginStateCode
)

type loginDraft struct {
	Name      string
	Role      models.Role
	UserID    int64
	ProfileID int64
}

// NewLoginFlow — вход по /start. Нового пользователя ведём по цепочке
// имя → подтверждение → роль → код класса; знакомого с профилем и активным
// классом пускаем в меню сразу.
func NewLoginFlow(d *Deps) *dialog.Flow {
	return &dialog.Flow{
		Name:         flowLogin,
		AllowReentry: true, // повторный /start перезапускает вход с нуля
		Entry:        d.loginEntry,
		States: map[dialog.State][]dialog.Rule{
			loginStateName: {
				{When: dialog.OnText(), Do: d.loginName},
			},
			loginStateConfirm: {
				{When: dialog.OnKeyword("login_ok"), Do: d.loginConfirmed},
				{When: dialog.OnKeyword("login_edit"), Do: d.loginAskNameAgain},
			},
			loginStateRole: {
				{When: dialog.OnKeyword("login_student"), Do: d.loginPickRole(models.RoleStudent)},
				{When: dialog.OnKeyword("login_teacher"), Do: d.loginPickRole(models.RoleTeacher)},
			},
			loginStateCode: {
				{When: dialog.OnText(), Do: d.loginCode},
				{When: dialog.OnKeyword("login_skip"), Do: d.loginSkipCode},
			},
		},
		Fallback: d.cancelRules("login_cancel", "Вход отменён. Отправьте /start, когда будете готовы."),
	}
}

func (d *Deps) loginEntry(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	u, err := db.GetUserByTelegramID(ctx, d.DB, ev.ChatID)
	if err != nil {
		return dialog.End, err
	}
	sess := d.Sessions.Get(ev.ChatID)

	if u != nil {
		// Знакомый пользователь: восстанавливаем роль по профилю.
		if t, err := db.TeacherByUserID(ctx, d.DB, u.ID); err != nil {
			return dialog.End, err
		} else if t != nil {
			return d.loginRestore(ev, models.RoleTeacher, u, t.ID, t.ActiveClassroomID)
		}
		if s, err := db.StudentByUserID(ctx, d.DB, u.ID); err != nil {
			return dialog.End, err
		} else if s != nil {
			return d.loginRestore(ev, models.RoleStudent, u, s.ID, s.ActiveClassroomID)
		}
		// Пользователь есть, профиля нет: регистрацию прервали на роли.
		dr := draft[loginDraft](sess, flowLogin)
		dr.Name, dr.UserID = u.Name, u.ID
		d.loginAskRole(ev)
		return loginStateRole, nil
	}

	d.show(ev, "👋 Здравствуйте! Как вас зовут? Введите имя и фамилию.",
		[][]tgbotapi.InlineKeyboardButton{fsmutil.CancelRow("login_cancel")})
	return loginStateName, nil
}

func (d *Deps) loginRestore(ev dialog.Event, role models.Role, u *models.User, profileID int64, classroomID *int64) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	cls := int64(0)
	if classroomID != nil {
		cls = *classroomID
	}
	sess.Login(role, u.ID, profileID, cls)

	if cls == 0 {
		// Профиль есть, класса нет: достраиваем вход через код класса.
		dr := draft[loginDraft](sess, flowLogin)
		dr.Name, dr.Role, dr.UserID, dr.ProfileID = u.Name, role, u.ID, profileID
		d.loginAskCode(ev, role, fmt.Sprintf("С возвращением, %s! ", u.Name))
		return loginStateCode, nil
	}

	msg := tgbotapi.NewMessage(ev.ChatID, fmt.Sprintf("С возвращением, %s!", u.Name))
	msg.ReplyMarkup = menu.GetRoleMenu(role)
	if _, err := tg.Send(d.Bot, msg); err != nil {
		d.Log.Warnw("не удалось показать меню", "chat_id", ev.ChatID, "err", err)
	}
	return dialog.End, nil
}

func (d *Deps) loginName(_ context.Context, ev dialog.Event) (dialog.State, error) {
	name := strings.TrimSpace(ev.Cmd.Text)
	if name == "" {
		d.sendText(ev.ChatID, "Имя не может быть пустым, попробуйте ещё раз.")
		return loginStateName, nil
	}
	dr := draft[loginDraft](d.Sessions.Get(ev.ChatID), flowLogin)
	dr.Name = name

	d.show(ev, fmt.Sprintf("Записать имя «%s»?", name), [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Да", "login_ok"),
			tgbotapi.NewInlineKeyboardButtonData("✏️ Изменить", "login_edit"),
		),
		fsmutil.CancelRow("login_cancel"),
	})
	return loginStateConfirm, nil
}

func (d *Deps) loginAskNameAgain(_ context.Context, ev dialog.Event) (dialog.State, error) {
	d.show(ev, "Хорошо, введите имя ещё раз.",
		[][]tgbotapi.InlineKeyboardButton{fsmutil.CancelRow("login_cancel")})
	return loginStateName, nil
}

func (d *Deps) loginConfirmed(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[loginDraft](sess, flowLogin)

	userID, err := db.CreateUser(ctx, d.DB, ev.ChatID, dr.Name)
	if err != nil {
		return loginStateConfirm, err
	}
	dr.UserID = userID

	d.loginAskRole(ev)
	return loginStateRole, nil
}

func (d *Deps) loginAskRole(ev dialog.Event) {
	d.show(ev, "Кто вы?", [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎓 Ученик", "login_student"),
			tgbotapi.NewInlineKeyboardButtonData("👩‍🏫 Преподаватель", "login_teacher"),
		),
		fsmutil.CancelRow("login_cancel"),
	})
}

func (d *Deps) loginPickRole(role models.Role) dialog.Handler {
	return func(ctx context.Context, ev dialog.Event) (dialog.State, error) {
		sess := d.Sessions.Get(ev.ChatID)
		dr := draft[loginDraft](sess, flowLogin)
		if dr.UserID == 0 {
			return d.desync(ev)
		}
		dr.Role = role

		var err error
		if role == models.RoleStudent {
			dr.ProfileID, err = db.CreateStudent(ctx, d.DB, dr.UserID)
		} else {
			dr.ProfileID, err = db.CreateTeacher(ctx, d.DB, dr.UserID)
		}
		if err != nil {
			return loginStateRole, err
		}

		d.loginAskCode(ev, role, "")
		return loginStateCode, nil
	}
}

func (d *Deps) loginAskCode(ev dialog.Event, role models.Role, prefix string) {
	rows := [][]tgbotapi.InlineKeyboardButton{fsmutil.CancelRow("login_cancel")}
	text := "Введите код класса, который вам выдали."
	if role == models.RoleTeacher {
		rows = [][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("⏭ Пропустить", "login_skip"),
			),
			fsmutil.CancelRow("login_cancel"),
		}
		text = "Введите код преподавателя для вашего класса. Если класса ещё нет, пропустите шаг и создайте курс в настройках."
	}
	d.show(ev, prefix+text, rows)
}

func (d *Deps) loginCode(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[loginDraft](sess, flowLogin)
	if dr.UserID == 0 {
		return d.desync(ev)
	}
	code := strings.TrimSpace(ev.Cmd.Text)

	var cls *models.Classroom
	var err error
	if dr.Role == models.RoleStudent {
		cls, err = db.ClassroomByStudentAuth(ctx, d.DB, code)
	} else {
		cls, err = db.ClassroomByTeacherAuth(ctx, d.DB, code)
	}
	if err != nil {
		return loginStateCode, err
	}
	if cls == nil {
		d.sendText(ev.ChatID, "❌ Код не подошёл. Проверьте и введите ещё раз.")
		return loginStateCode, nil
	}

	if dr.Role == models.RoleStudent {
		if err := db.AddStudentToClassroom(ctx, d.DB, dr.ProfileID, cls.ID); err != nil {
			return loginStateCode, err
		}
		if err := db.SetStudentActiveClassroom(ctx, d.DB, dr.ProfileID, &cls.ID); err != nil {
			return loginStateCode, err
		}
	} else {
		if err := db.AddTeacherToClassroom(ctx, d.DB, dr.ProfileID, cls.ID); err != nil {
			return loginStateCode, err
		}
		if err := db.SetTeacherActiveClassroom(ctx, d.DB, dr.ProfileID, &cls.ID); err != nil {
			return loginStateCode, err
		}
	}
	sess.Login(dr.Role, dr.UserID, dr.ProfileID, cls.ID)

	msg := tgbotapi.NewMessage(ev.ChatID, fmt.Sprintf("✅ Вы вошли в класс «%s». Добро пожаловать!", cls.Name))
	msg.ReplyMarkup = menu.GetRoleMenu(dr.Role)
	_, _ = tg.Send(d.Bot, msg)
	return dialog.End, nil
}

// loginSkipCode — преподаватель без класса: вход без активного класса.
func (d *Deps) loginSkipCode(_ context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[loginDraft](sess, flowLogin)
	if dr.UserID == 0 || dr.Role != models.RoleTeacher {
		return d.desync(ev)
	}
	sess.Login(dr.Role, dr.UserID, dr.ProfileID, 0)

	msg := tgbotapi.NewMessage(ev.ChatID, "✅ Вы вошли. Создайте курс и класс в «⚙️ Настройки курса».")
	msg.ReplyMarkup = menu.GetRoleMenu(models.RoleTeacher)
	_, _ = tg.Send(d.Bot, msg)
	return dialog.End, nil
}
