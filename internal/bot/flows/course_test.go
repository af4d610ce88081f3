//go:build testutil
// +build testutil

package flows

import (
	"context"
	"testing"

	"github.com/Spok95/telegram-classroom-bot/internal/db"
	"github.com/Spok95/telegram-classroom-bot/internal/models"
)

// Владелец мог смениться, пока клавиатура висела в чате: подтверждение
// удаления от бывшего владельца не должно удалять курс.
func TestSettingsOwnerRecheckedBeforeDelete(t *testing.T) {
	h := startFlowDB(t)
	fx := buildClassFixture(t, h)
	d := newFlowDeps(t, h)
	flow := NewSettingsFlow(d)
	ctx := context.Background()
	chat := int64(6001)

	otherUserID, err := db.CreateUser(ctx, h.DB, 6002, "Олег Сергеевич")
	if err != nil {
		t.Fatal(err)
	}
	otherTeacherID, err := db.CreateTeacher(ctx, h.DB, otherUserID)
	if err != nil {
		t.Fatal(err)
	}

	d.Sessions.Get(chat).Login(models.RoleTeacher, 1, fx.teacherID, fx.classroom.ID)
	if err := d.Engine.Start(ctx, flow, textEv(chat, "настройки")); err != nil {
		t.Fatalf("Start: %v", err)
	}

	dispatch(t, d, callbackEv(chat, "set_delete_course"))

	// Пока висело подтверждение, курс передали другому преподавателю.
	if err := db.TransferCourse(ctx, h.DB, fx.classroom.CourseID, otherTeacherID); err != nil {
		t.Fatal(err)
	}

	dispatch(t, d, callbackEv(chat, "set_delete_course_yes"))

	course, err := db.CourseByID(ctx, h.DB, fx.classroom.CourseID)
	if err != nil {
		t.Fatal(err)
	}
	if course == nil {
		t.Fatal("курс не должен удаляться по устаревшей клавиатуре")
	}
	if course.OwnerTeacherID != otherTeacherID {
		t.Fatalf("владелец: %d", course.OwnerTeacherID)
	}
}

func TestSettingsOwnerDeletesCourse(t *testing.T) {
	h := startFlowDB(t)
	fx := buildClassFixture(t, h)
	d := newFlowDeps(t, h)
	flow := NewSettingsFlow(d)
	ctx := context.Background()
	chat := int64(6003)

	d.Sessions.Get(chat).Login(models.RoleTeacher, 1, fx.teacherID, fx.classroom.ID)
	if err := d.Engine.Start(ctx, flow, textEv(chat, "настройки")); err != nil {
		t.Fatalf("Start: %v", err)
	}

	dispatch(t, d, callbackEv(chat, "set_delete_course"))
	dispatch(t, d, callbackEv(chat, "set_delete_course_yes"))

	course, err := db.CourseByID(ctx, h.DB, fx.classroom.CourseID)
	if err != nil {
		t.Fatal(err)
	}
	if course != nil {
		t.Fatal("владелец должен иметь возможность удалить курс")
	}
	// Сессия сброшена, требуется повторный вход.
	if role := d.Sessions.Get(chat).Role(); role != "" {
		t.Fatalf("после удаления курса сессия должна сброситься, роль %q", role)
	}
}
