//go:build testutil
// +build testutil

package flows

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Spok95/telegram-classroom-bot/internal/db"
	"github.com/Spok95/telegram-classroom-bot/internal/dialog"
	"github.com/Spok95/telegram-classroom-bot/internal/models"
	"github.com/Spok95/telegram-classroom-bot/internal/session"
	"github.com/Spok95/telegram-classroom-bot/internal/testutil/testdb"
	"github.com/Spok95/telegram-classroom-bot/internal/tg"
	"github.com/Spok95/telegram-classroom-bot/internal/workflow"
)

// stubBot — Bot API поверх httptest: любой метод отвечает ok, сценарии
// гоняются без сети.
func stubBot(t *testing.T) *tgbotapi.BotAPI {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/getMe") {
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"bot","username":"classbot"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":1,"chat":{"id":1,"type":"private"}}}`))
	}))
	t.Cleanup(ts.Close)

	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint("test-token", ts.URL+"/bot%s/%s")
	if err != nil {
		t.Fatalf("stub bot: %v", err)
	}
	return bot
}

func startFlowDB(t *testing.T) *testdb.DBHandle {
	t.Helper()
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Skipf("контейнер postgres недоступен: %v", err)
	}
	t.Cleanup(h.Close)
	return h
}

func newFlowDeps(t *testing.T, h *testdb.DBHandle) *Deps {
	t.Helper()
	logger := zap.NewNop().Sugar()
	bot := stubBot(t)
	sessions := session.New()
	engine := dialog.NewEngine(sessions, logger)
	wf := workflow.New(&db.Store{DB: h.DB}, &tg.Notifier{Bot: bot, Log: logger}, logger)
	return &Deps{
		Bot:      bot,
		DB:       h.DB,
		Sessions: sessions,
		Engine:   engine,
		Workflow: wf,
		Log:      logger,
		PageSize: 5,
	}
}

func textEv(chatID int64, text string) dialog.Event {
	return dialog.Event{ChatID: chatID, Cmd: dialog.TextCommand(text)}
}

func callbackEv(chatID int64, data string) dialog.Event {
	return dialog.Event{ChatID: chatID, Cmd: dialog.ParseCallback(data)}
}

func dispatch(t *testing.T, d *Deps, ev dialog.Event) {
	t.Helper()
	claimed, err := d.Engine.Dispatch(context.Background(), ev)
	if err != nil {
		t.Fatalf("Dispatch(%s): %v", ev.Cmd.Raw, err)
	}
	if !claimed {
		t.Fatalf("событие %q никем не востребовано", ev.Cmd.Raw)
	}
}

// classFixture — преподаватель с курсом и классом, чтобы было куда входить.
type classFixture struct {
	teacherID int64
	classroom *models.Classroom
}

func buildClassFixture(t *testing.T, h *testdb.DBHandle) classFixture {
	t.Helper()
	ctx := context.Background()

	userID, err := db.CreateUser(ctx, h.DB, 9001, "Мария Петровна")
	if err != nil {
		t.Fatal(err)
	}
	teacherID, err := db.CreateTeacher(ctx, h.DB, userID)
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
	return classFixture{teacherID: teacherID, classroom: cls}
}
