//go:build testutil
// +build testutil

package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/Spok95/telegram-classroom-bot/internal/db"
	"github.com/Spok95/telegram-classroom-bot/internal/models"
	"github.com/Spok95/telegram-classroom-bot/internal/testutil/testdb"
)

// Один контейнер на весь пакет: каждый тест строит свои сущности.
func startDB(t *testing.T) *testdb.DBHandle {
	t.Helper()
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Skipf("контейнер postgres недоступен: %v", err)
	}
	t.Cleanup(h.Close)
	return h
}

type fixture struct {
	teacherID   int64
	studentID   int64
	classroomID int64
	tokenTypeID int64
}

func buildFixture(t *testing.T, h *testdb.DBHandle) fixture {
	t.Helper()
	ctx := context.Background()

	tUserID, err := db.CreateUser(ctx, h.DB, 1001, "Мария Петровна")
	if err != nil {
		t.Fatal(err)
	}
	teacherID, err := db.CreateTeacher(ctx, h.DB, tUserID)
	if err != nil {
		t.Fatal(err)
	}
	sUserID, err := db.CreateUser(ctx, h.DB, 1002, "Иван Сидоров")
	if err != nil {
		t.Fatal(err)
	}
	studentID, err := db.CreateStudent(ctx, h.DB, sUserID)
	if err != nil {
		t.Fatal(err)
	}

	courseID, err := db.CreateCourse(ctx, h.DB, "Информатика", teacherID)
	if err != nil {
		t.Fatal(err)
	}
	cls, err := db.CreateClassroom(ctx, h.DB, courseID, "10-А")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AddStudentToClassroom(ctx, h.DB, studentID, cls.ID); err != nil {
		t.Fatal(err)
	}

	if err := db.SeedTokenTypes(ctx, h.DB); err != nil {
		t.Fatal(err)
	}
	types, err := db.TokenTypesForClassroom(ctx, h.DB, cls.ID)
	if err != nil || len(types) == 0 {
		t.Fatalf("типы баллов: %v (%d)", err, len(types))
	}

	return fixture{teacherID: teacherID, studentID: studentID, classroomID: cls.ID, tokenTypeID: types[0].ID}
}

func TestCreateUserIdempotent(t *testing.T) {
	h := startDB(t)
	ctx := context.Background()

	id1, err := db.CreateUser(ctx, h.DB, 42, "Пользователь")
	if err != nil {
		t.Fatal(err)
	}
	id2, err := db.CreateUser(ctx, h.DB, 42, "Пользователь")
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Fatalf("повторный CreateUser по тому же telegram_id: %d != %d", id1, id2)
	}
}

func TestJoinClassroomIdempotent(t *testing.T) {
	h := startDB(t)
	fx := buildFixture(t, h)
	ctx := context.Background()

	// Повторный ввод того же кода не создаёт дубликат связи.
	if err := db.AddStudentToClassroom(ctx, h.DB, fx.studentID, fx.classroomID); err != nil {
		t.Fatal(err)
	}
	students, err := db.StudentsByClassroom(ctx, h.DB, fx.classroomID)
	if err != nil {
		t.Fatal(err)
	}
	if len(students) != 1 {
		t.Fatalf("ожидали одного ученика в классе, получили %d", len(students))
	}
}

func TestGrantUniquePerToken(t *testing.T) {
	h := startDB(t)
	fx := buildFixture(t, h)
	ctx := context.Background()

	tokID, err := db.CreateToken(ctx, h.DB, models.Token{
		TokenTypeID: fx.tokenTypeID, Name: "Эссе", Value: 30,
	})
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	ok, err := db.GrantStudentToken(ctx, h.DB, fx.studentID, tokID, 30, fx.teacherID, now)
	if err != nil || !ok {
		t.Fatalf("первая выдача: ok=%v err=%v", ok, err)
	}
	ok, err = db.GrantStudentToken(ctx, h.DB, fx.studentID, tokID, 30, fx.teacherID, now)
	if err != nil {
		t.Fatalf("повторная выдача не должна падать: %v", err)
	}
	if ok {
		t.Fatal("повторная выдача того же токена должна быть no-op")
	}

	total, err := db.StudentTotal(ctx, h.DB, fx.studentID)
	if err != nil || total != 30 {
		t.Fatalf("рейтинг: %d (%v)", total, err)
	}
}

func TestStudentTotalSumsGrantedValues(t *testing.T) {
	h := startDB(t)
	fx := buildFixture(t, h)
	ctx := context.Background()

	tok1, _ := db.CreateToken(ctx, h.DB, models.Token{TokenTypeID: fx.tokenTypeID, Name: "Доклад", Value: 30})
	tok2, _ := db.CreateToken(ctx, h.DB, models.Token{TokenTypeID: fx.tokenTypeID, Name: "Проект", Value: 30})

	now := time.Now()
	// Вторая выдача с перекрытой ценностью: рейтинг считает снапшоты.
	if _, err := db.GrantStudentToken(ctx, h.DB, fx.studentID, tok1, 30, fx.teacherID, now); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GrantStudentToken(ctx, h.DB, fx.studentID, tok2, 50, fx.teacherID, now); err != nil {
		t.Fatal(err)
	}

	total, err := db.StudentTotal(ctx, h.DB, fx.studentID)
	if err != nil {
		t.Fatal(err)
	}
	if total != 80 {
		t.Fatalf("ожидали 80, получили %d", total)
	}
}

func TestResolvePendingConditional(t *testing.T) {
	h := startDB(t)
	fx := buildFixture(t, h)
	ctx := context.Background()

	id, err := db.CreatePending(ctx, h.DB, models.Pending{
		StudentID: fx.studentID, ClassroomID: fx.classroomID, TokenTypeID: fx.tokenTypeID,
		Status: models.PendingOpen, Text: "Заявка", CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	ok, err := db.ResolvePending(ctx, h.DB, id, models.PendingApproved, fx.teacherID, now, nil)
	if err != nil || !ok {
		t.Fatalf("первый resolve: ok=%v err=%v", ok, err)
	}
	ok, err = db.ResolvePending(ctx, h.DB, id, models.PendingRejected, fx.teacherID, now, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("закрытая заявка не должна закрываться второй раз")
	}

	p, err := db.PendingByID(ctx, h.DB, id)
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != models.PendingApproved {
		t.Fatalf("статус после гонки: %s", p.Status)
	}
}

func TestGuildOfStudent(t *testing.T) {
	h := startDB(t)
	fx := buildFixture(t, h)
	ctx := context.Background()

	g, err := db.GuildOfStudent(ctx, h.DB, fx.classroomID, fx.studentID)
	if err != nil {
		t.Fatal(err)
	}
	if g != nil {
		t.Fatal("ученик ещё не в гильдии")
	}

	guildID, err := db.CreateGuild(ctx, h.DB, fx.classroomID, "Грифоны")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AddGuildMember(ctx, h.DB, guildID, fx.studentID); err != nil {
		t.Fatal(err)
	}

	g, err = db.GuildOfStudent(ctx, h.DB, fx.classroomID, fx.studentID)
	if err != nil {
		t.Fatal(err)
	}
	if g == nil || g.ID != guildID || g.Name != "Грифоны" {
		t.Fatalf("гильдия ученика: %+v", g)
	}
}
