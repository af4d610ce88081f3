//go:build testutil
// +build testutil

package flows

import (
	"context"
	"testing"

	"github.com/Spok95/telegram-classroom-bot/internal/db"
	"github.com/Spok95/telegram-classroom-bot/internal/models"
)

func TestLoginNewStudentRegistration(t *testing.T) {
	h := startFlowDB(t)
	fx := buildClassFixture(t, h)
	d := newFlowDeps(t, h)
	flow := NewLoginFlow(d)
	ctx := context.Background()
	chat := int64(5001)

	if err := d.Engine.Start(ctx, flow, textEv(chat, "/start")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := d.Engine.ActiveFlow(chat); got != flowLogin {
		t.Fatalf("после /start активен %q", got)
	}

	dispatch(t, d, textEv(chat, "Иван Сидоров"))
	dispatch(t, d, callbackEv(chat, "login_ok"))
	dispatch(t, d, callbackEv(chat, "login_student"))
	dispatch(t, d, textEv(chat, fx.classroom.StudentAuth))

	if got := d.Engine.ActiveFlow(chat); got != "" {
		t.Fatalf("вход должен завершиться, активен %q", got)
	}

	// Ровно один пользователь и один профиль ученика.
	u, err := db.GetUserByTelegramID(ctx, h.DB, chat)
	if err != nil || u == nil {
		t.Fatalf("пользователь: %v %v", u, err)
	}
	if u.Name != "Иван Сидоров" {
		t.Fatalf("имя %q", u.Name)
	}
	s, err := db.StudentByUserID(ctx, h.DB, u.ID)
	if err != nil || s == nil {
		t.Fatalf("профиль ученика: %v %v", s, err)
	}
	if s.ActiveClassroomID == nil || *s.ActiveClassroomID != fx.classroom.ID {
		t.Fatalf("активный класс: %v", s.ActiveClassroomID)
	}

	sess := d.Sessions.Get(chat)
	if sess.Role() != models.RoleStudent || sess.ActiveClassroomID() != fx.classroom.ID {
		t.Fatalf("сессия: role=%s class=%d", sess.Role(), sess.ActiveClassroomID())
	}
}

// Знакомый ученик без класса не должен утыкаться в тупик: после /start
// сценарий остаётся на шаге кода, и введённый код подключает класс.
func TestLoginReturningStudentJoinsByCode(t *testing.T) {
	h := startFlowDB(t)
	fx := buildClassFixture(t, h)
	d := newFlowDeps(t, h)
	flow := NewLoginFlow(d)
	ctx := context.Background()
	chat := int64(5002)

	// Профиль уже есть, active_classroom_id пуст.
	userID, err := db.CreateUser(ctx, h.DB, chat, "Пётр Орлов")
	if err != nil {
		t.Fatal(err)
	}
	studentID, err := db.CreateStudent(ctx, h.DB, userID)
	if err != nil {
		t.Fatal(err)
	}

	if err := d.Engine.Start(ctx, flow, textEv(chat, "/start")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := d.Engine.ActiveFlow(chat); got != flowLogin {
		t.Fatalf("сценарий должен ждать код класса, активен %q", got)
	}

	// Неверный код переспрашивает, не завершая сценарий.
	dispatch(t, d, textEv(chat, "не-тот-код"))
	if got := d.Engine.ActiveFlow(chat); got != flowLogin {
		t.Fatalf("после неверного кода активен %q", got)
	}

	dispatch(t, d, textEv(chat, fx.classroom.StudentAuth))
	if got := d.Engine.ActiveFlow(chat); got != "" {
		t.Fatalf("после верного кода сценарий должен завершиться, активен %q", got)
	}

	s, err := db.StudentByUserID(ctx, h.DB, userID)
	if err != nil || s == nil {
		t.Fatalf("профиль: %v %v", s, err)
	}
	if s.ActiveClassroomID == nil || *s.ActiveClassroomID != fx.classroom.ID {
		t.Fatalf("активный класс не проставлен: %v", s.ActiveClassroomID)
	}
	students, err := db.StudentsByClassroom(ctx, h.DB, fx.classroom.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(students) != 1 || students[0].StudentID != studentID {
		t.Fatalf("состав класса: %+v", students)
	}
	sess := d.Sessions.Get(chat)
	if sess.Role() != models.RoleStudent || sess.ActiveClassroomID() != fx.classroom.ID {
		t.Fatalf("сессия: role=%s class=%d", sess.Role(), sess.ActiveClassroomID())
	}
}

func TestLoginReturningStudentWithClassGoesToMenu(t *testing.T) {
	h := startFlowDB(t)
	fx := buildClassFixture(t, h)
	d := newFlowDeps(t, h)
	flow := NewLoginFlow(d)
	ctx := context.Background()
	chat := int64(5003)

	userID, err := db.CreateUser(ctx, h.DB, chat, "Анна Ким")
	if err != nil {
		t.Fatal(err)
	}
	studentID, err := db.CreateStudent(ctx, h.DB, userID)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AddStudentToClassroom(ctx, h.DB, studentID, fx.classroom.ID); err != nil {
		t.Fatal(err)
	}
	if err := db.SetStudentActiveClassroom(ctx, h.DB, studentID, &fx.classroom.ID); err != nil {
		t.Fatal(err)
	}

	if err := d.Engine.Start(ctx, flow, textEv(chat, "/start")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := d.Engine.ActiveFlow(chat); got != "" {
		t.Fatalf("ученику с классом сценарий не нужен, активен %q", got)
	}
	sess := d.Sessions.Get(chat)
	if sess.Role() != models.RoleStudent || sess.ActiveClassroomID() != fx.classroom.ID {
		t.Fatalf("сессия: role=%s class=%d", sess.Role(), sess.ActiveClassroomID())
	}
}
