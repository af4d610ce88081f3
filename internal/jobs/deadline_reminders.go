package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/telegram-classroom-bot/internal/db"
	"github.com/Spok95/telegram-classroom-bot/internal/observability"
	"github.com/Spok95/telegram-classroom-bot/internal/tg"
)

const (
	reminderWindow = 24 * time.Hour
	reminderBatch  = 100
)

// DeadlineReminders напоминает в чат класса о заданиях, дедлайн которых
// наступает в ближайшие сутки. Каждое задание напоминается один раз.
type DeadlineReminders struct {
	DB       *sql.DB
	Notifier *tg.Notifier
	Log      *zap.SugaredLogger
}

func (j *DeadlineReminders) Run(ctx context.Context) error {
	due, err := db.ActivitiesDueWithin(ctx, j.DB, reminderWindow, reminderBatch)
	if err != nil {
		observability.CaptureErr(err)
		return err
	}
	if len(due) == 0 {
		return nil
	}

	done := make([]int64, 0, len(due))
	for _, a := range due {
		if a.NotifyChatID == nil || *a.NotifyChatID == 0 {
			// Чат уведомлений не настроен, второй раз не возвращаемся.
			done = append(done, a.ID)
			continue
		}
		j.Notifier.Notify(*a.NotifyChatID, fmt.Sprintf(
			"⏰ Напоминание: дедлайн задания «%s» — %s.",
			a.Name, a.Deadline.Format("02.01.2006 15:04")))
		done = append(done, a.ID)
	}

	if err := db.MarkActivitiesReminded(ctx, j.DB, done); err != nil {
		observability.CaptureErr(err)
		return err
	}
	j.Log.Infow("разосланы напоминания о дедлайнах", "count", len(done))
	return nil
}
