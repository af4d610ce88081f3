package flows

import (
	"database/sql"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Spok95/telegram-classroom-bot/internal/dialog"
	"github.com/Spok95/telegram-classroom-bot/internal/session"
	"github.com/Spok95/telegram-classroom-bot/internal/workflow"
)

// Deps — общие зависимости всех сценариев. Один экземпляр на процесс,
// сценарии держат его по указателю.
type Deps struct {
	Bot      *tgbotapi.BotAPI
	DB       *sql.DB
	Sessions *session.Store
	Engine   *dialog.Engine
	Workflow *workflow.Service
	Log      *zap.SugaredLogger
	PageSize int
}
