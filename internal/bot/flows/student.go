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
	"github.com/Spok95/telegram-classroom-bot/internal/tg"
)

const flowSubmit = "submit"

const (
	subStateMenu dialog.State = iota + 1
	subStateTypePick
	subStateActTypePick
	subStateActPick
	subStateText
	subStateFile
)

type submitDraft struct {
	TokenTypeID int64
	TokenID     *int64
	GuildID     *int64
	Text        string
	List        *pagination.Cache
	Page        int
	Title       string
}

// NewSubmitFlow — подача заявки учеником: свободная по категории или сдача
// задания. Гильдейское задание уходит заявкой от имени гильдии ученика.
func NewSubmitFlow(d *Deps) *dialog.Flow {
	return &dialog.Flow{
		Name:         flowSubmit,
		AllowReentry: true,
		Entry:        d.subEntry,
		States: map[dialog.State][]dialog.Rule{
			subStateMenu: {
				{When: dialog.OnKeyword("sub_free"), Do: d.subTypePick},
				{When: dialog.OnKeyword("sub_activity"), Do: d.subActTypePick},
			},
			subStateTypePick: {
				{When: dialog.OnSelect("ttype"), Do: d.subFreeType},
				{When: dialog.OnPage(), Do: d.subPage(subStateTypePick)},
				{When: dialog.OnKeyword("sub_menu"), Do: d.subShowMenu},
			},
			subStateActTypePick: {
				{When: dialog.OnSelect("atype"), Do: d.subActPick},
				{When: dialog.OnPage(), Do: d.subPage(subStateActTypePick)},
				{When: dialog.OnKeyword("sub_menu"), Do: d.subShowMenu},
			},
			subStateActPick: {
				{When: dialog.OnSelect("act"), Do: d.subActivity},
				{When: dialog.OnPage(), Do: d.subPage(subStateActPick)},
				{When: dialog.OnKeyword("sub_acttypes"), Do: d.subActTypePick},
			},
			subStateText: {
				{When: dialog.OnText(), Do: d.subText},
			},
			subStateFile: {
				{When: dialog.OnFileOrContinue("sub_skip_file"), Do: d.subSubmit},
			},
		},
		Fallback: d.cancelRules("sub_close", "Подача заявки отменена."),
	}
}

func (d *Deps) subEntry(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	if sess.Role() != models.RoleStudent || sess.ActiveClassroomID() == 0 {
		d.sendText(ev.ChatID, "Подача заявок доступна ученику класса.")
		return dialog.End, nil
	}
	return d.subShowMenu(ctx, ev)
}

func (d *Deps) subShowMenu(_ context.Context, ev dialog.Event) (dialog.State, error) {
	d.show(ev, "📨 За что вы хотите получить баллы?", [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🖊 Свободная заявка", "sub_free"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 Сдать задание", "sub_activity"),
		),
		fsmutil.CancelRow("sub_close"),
	})
	return subStateMenu, nil
}

func (d *Deps) subPage(stay dialog.State) dialog.Handler {
	return func(_ context.Context, ev dialog.Event) (dialog.State, error) {
		dr := draft[submitDraft](d.Sessions.Get(ev.ChatID), flowSubmit)
		if dr.List == nil {
			return d.desync(ev)
		}
		dr.Page = ev.Cmd.Page
		d.show(ev, dr.Title, dr.List.Rows(dr.Page))
		return stay, nil
	}
}

func (d *Deps) subTypePick(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[submitDraft](sess, flowSubmit)

	types, err := db.TokenTypesForClassroom(ctx, d.DB, sess.ActiveClassroomID())
	if err != nil {
		return dialog.End, err
	}
	items := make([]pagination.Item, 0, len(types))
	for _, tt := range types {
		items = append(items, pagination.Item{Label: tt.Type, Data: fmt.Sprintf("ttype#%d", tt.ID)})
	}
	dr.List = &pagination.Cache{Items: items, PageSize: d.PageSize, Back: "sub_menu"}
	dr.Page = 1
	dr.Title = "Выберите категорию."
	d.show(ev, dr.Title, dr.List.Rows(1))
	return subStateTypePick, nil
}

func (d *Deps) subFreeType(_ context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[submitDraft](d.Sessions.Get(ev.ChatID), flowSubmit)
	dr.TokenTypeID = ev.Cmd.ID
	dr.TokenID, dr.GuildID = nil, nil
	d.show(ev, "Опишите, за что вы просите баллы.",
		[][]tgbotapi.InlineKeyboardButton{fsmutil.CancelRow("sub_close")})
	return subStateText, nil
}

func (d *Deps) subActTypePick(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[submitDraft](sess, flowSubmit)

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
	if len(items) == 0 {
		d.sendText(ev.ChatID, "В классе пока нет активностей.")
		return d.subShowMenu(ctx, ev)
	}
	dr.List = &pagination.Cache{Items: items, PageSize: d.PageSize, Back: "sub_menu"}
	dr.Page = 1
	dr.Title = "Выберите тип активности."
	d.show(ev, dr.Title, dr.List.Rows(1))
	return subStateActTypePick, nil
}

func (d *Deps) subActPick(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[submitDraft](d.Sessions.Get(ev.ChatID), flowSubmit)

	acts, err := db.ActivitiesByType(ctx, d.DB, ev.Cmd.ID)
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
	if len(items) == 0 {
		d.sendText(ev.ChatID, "Заданий этого типа пока нет.")
		return subStateActTypePick, nil
	}
	dr.List = &pagination.Cache{Items: items, PageSize: d.PageSize, Back: "sub_acttypes"}
	dr.Page = 1
	dr.Title = "Выберите задание."
	d.show(ev, dr.Title, dr.List.Rows(1))
	return subStateActPick, nil
}

func (d *Deps) subActivity(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[submitDraft](sess, flowSubmit)

	a, err := db.ActivityByID(ctx, d.DB, ev.Cmd.ID)
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
	token, err := db.TokenByID(ctx, d.DB, a.TokenID)
	if err != nil {
		return dialog.End, err
	}
	if token == nil {
		return d.desync(ev)
	}

	if t.SingleSubmission {
		has, err := db.StudentHasToken(ctx, d.DB, sess.ProfileID(), a.TokenID)
		if err != nil {
			return dialog.End, err
		}
		if has {
			d.sendText(ev.ChatID, "☝️ Это задание принимается один раз, вы его уже сдали.")
			return subStateActPick, nil
		}
	}

	dr.TokenID = &a.TokenID
	dr.TokenTypeID = token.TokenTypeID
	dr.GuildID = nil
	if t.GuildBased {
		g, err := db.GuildOfStudent(ctx, d.DB, sess.ActiveClassroomID(), sess.ProfileID())
		if err != nil {
			return dialog.End, err
		}
		if g == nil {
			d.sendText(ev.ChatID, "🏰 Это гильдейское задание, а вы не состоите в гильдии.")
			return subStateActPick, nil
		}
		dr.GuildID = &g.ID
	}

	d.show(ev, fmt.Sprintf("Задание «%s». Опишите вашу сдачу.", a.Name),
		[][]tgbotapi.InlineKeyboardButton{fsmutil.CancelRow("sub_close")})
	return subStateText, nil
}

func (d *Deps) subText(_ context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[submitDraft](d.Sessions.Get(ev.ChatID), flowSubmit)
	text := strings.TrimSpace(ev.Cmd.Text)
	if text == "" {
		d.sendText(ev.ChatID, "Текст заявки не может быть пустым.")
		return subStateText, nil
	}
	dr.Text = text
	d.show(ev, "Прикрепите подтверждение (фото или документ) или отправьте без него.",
		[][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("⏭ Без вложения", "sub_skip_file"),
			),
			fsmutil.CancelRow("sub_close"),
		})
	return subStateFile, nil
}

func (d *Deps) subSubmit(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[submitDraft](sess, flowSubmit)
	if dr.Text == "" || dr.TokenTypeID == 0 {
		return d.desync(ev)
	}

	var fileID *string
	if ev.Cmd.Kind == dialog.KindFile {
		f := ev.Cmd.FileID
		fileID = &f
	}

	if _, err := d.Workflow.Submit(ctx, models.Pending{
		StudentID:   sess.ProfileID(),
		ClassroomID: sess.ActiveClassroomID(),
		TokenTypeID: dr.TokenTypeID,
		TokenID:     dr.TokenID,
		GuildID:     dr.GuildID,
		Text:        dr.Text,
		FileID:      fileID,
	}); err != nil {
		return subStateFile, err
	}

	msg := tgbotapi.NewMessage(ev.ChatID, "✅ Заявка отправлена на проверку. Мы сообщим о решении.")
	_, _ = tg.Send(d.Bot, msg)
	return dialog.End, nil
}
