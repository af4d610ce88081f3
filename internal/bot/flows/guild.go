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
)

const flowGuilds = "guilds"

const (
	gldStateList dialog.State = iota + 1
	gldStateCreateName
	gldStateMenu
	gldStateRename
	gldStateAddPick
	gldStateRemovePick
	gldStateDelete
)

type guildDraft struct {
	GuildID int64
	List    *pagination.Cache
	Page    int
	Title   string
}

// NewGuildFlow — гильдии активного класса: состав, создание, удаление.
// Ученик состоит не более чем в одной гильдии класса, поэтому кандидаты
// на добавление — только «безгильдейные».
func NewGuildFlow(d *Deps) *dialog.Flow {
	return &dialog.Flow{
		Name:         flowGuilds,
		AllowReentry: true,
		Entry:        d.gldEntry,
		States: map[dialog.State][]dialog.Rule{
			gldStateList: {
				{When: dialog.OnSelect("guild"), Do: d.gldOpen},
				{When: dialog.OnPage(), Do: d.gldPage(gldStateList)},
				{When: dialog.OnKeyword("gld_create"), Do: d.gldAskName},
			},
			gldStateCreateName: {
				{When: dialog.OnText(), Do: d.gldCreate},
			},
			gldStateMenu: {
				{When: dialog.OnKeyword("gld_rename"), Do: d.gldAskRename},
				{When: dialog.OnKeyword("gld_add"), Do: d.gldAddPick},
				{When: dialog.OnKeyword("gld_remove"), Do: d.gldRemovePick},
				{When: dialog.OnKeyword("gld_delete"), Do: d.gldConfirmDelete},
				{When: dialog.OnKeyword("gld_list"), Do: d.gldList},
			},
			gldStateRename: {
				{When: dialog.OnText(), Do: d.gldRename},
			},
			gldStateAddPick: {
				{When: dialog.OnSelect("student"), Do: d.gldAdd},
				{When: dialog.OnPage(), Do: d.gldPage(gldStateAddPick)},
				{When: dialog.OnKeyword("gld_back"), Do: d.gldReopen},
			},
			gldStateRemovePick: {
				{When: dialog.OnSelect("student"), Do: d.gldRemove},
				{When: dialog.OnPage(), Do: d.gldPage(gldStateRemovePick)},
				{When: dialog.OnKeyword("gld_back"), Do: d.gldReopen},
			},
			gldStateDelete: {
				{When: dialog.OnKeyword("gld_delete_yes"), Do: d.gldDelete},
				{When: dialog.OnKeyword("gld_back"), Do: d.gldReopen},
			},
		},
		Fallback: d.cancelRules("gld_close", "Раздел гильдий закрыт."),
	}
}

func (d *Deps) gldEntry(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	if sess.Role() != models.RoleTeacher || sess.ActiveClassroomID() == 0 {
		d.sendText(ev.ChatID, "Раздел доступен преподавателю с активным классом.")
		return dialog.End, nil
	}
	return d.gldList(ctx, ev)
}

func (d *Deps) gldList(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[guildDraft](sess, flowGuilds)

	guilds, err := db.GuildsByClassroom(ctx, d.DB, sess.ActiveClassroomID())
	if err != nil {
		return dialog.End, err
	}
	items := make([]pagination.Item, 0, len(guilds))
	for _, g := range guilds {
		items = append(items, pagination.Item{Label: g.Name, Data: fmt.Sprintf("guild#%d", g.ID)})
	}
	dr.List = &pagination.Cache{
		Items:    items,
		PageSize: d.PageSize,
		Aux: [][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("➕ Создать гильдию", "gld_create"),
			),
		},
		Back: "gld_close",
	}
	dr.Page = 1
	dr.Title = "🏰 Гильдии класса"
	if len(items) == 0 {
		dr.Title = "Гильдий пока нет."
	}
	d.show(ev, dr.Title, dr.List.Rows(1))
	return gldStateList, nil
}

func (d *Deps) gldPage(stay dialog.State) dialog.Handler {
	return func(_ context.Context, ev dialog.Event) (dialog.State, error) {
		dr := draft[guildDraft](d.Sessions.Get(ev.ChatID), flowGuilds)
		if dr.List == nil {
			return d.desync(ev)
		}
		dr.Page = ev.Cmd.Page
		d.show(ev, dr.Title, dr.List.Rows(dr.Page))
		return stay, nil
	}
}

func (d *Deps) gldAskName(_ context.Context, ev dialog.Event) (dialog.State, error) {
	d.show(ev, "Введите название гильдии.",
		[][]tgbotapi.InlineKeyboardButton{fsmutil.CancelRow("gld_close")})
	return gldStateCreateName, nil
}

func (d *Deps) gldCreate(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[guildDraft](sess, flowGuilds)

	name := strings.TrimSpace(ev.Cmd.Text)
	if name == "" {
		d.sendText(ev.ChatID, "Название не может быть пустым.")
		return gldStateCreateName, nil
	}
	id, err := db.CreateGuild(ctx, d.DB, sess.ActiveClassroomID(), name)
	if err != nil {
		return gldStateCreateName, err
	}
	dr.GuildID = id
	return d.gldShow(ctx, ev)
}

func (d *Deps) gldOpen(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[guildDraft](d.Sessions.Get(ev.ChatID), flowGuilds)
	dr.GuildID = ev.Cmd.ID
	return d.gldShow(ctx, ev)
}

func (d *Deps) gldReopen(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	return d.gldShow(ctx, ev)
}

func (d *Deps) gldShow(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[guildDraft](d.Sessions.Get(ev.ChatID), flowGuilds)
	g, err := db.GuildByID(ctx, d.DB, dr.GuildID)
	if err != nil {
		return dialog.End, err
	}
	if g == nil {
		return d.desync(ev)
	}
	members, err := db.GuildMembers(ctx, d.DB, dr.GuildID)
	if err != nil {
		return dialog.End, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏰 Гильдия «%s»\nУчастники (%d):\n", g.Name, len(members))
	for _, m := range members {
		b.WriteString("• " + m.Name + "\n")
	}
	if len(members) == 0 {
		b.WriteString("пока никого\n")
	}

	d.show(ev, b.String(), [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Добавить", "gld_add"),
			tgbotapi.NewInlineKeyboardButtonData("➖ Исключить", "gld_remove"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Переименовать", "gld_rename"),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", "gld_delete"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ К списку", "gld_list"),
		),
	})
	return gldStateMenu, nil
}

func (d *Deps) gldAskRename(_ context.Context, ev dialog.Event) (dialog.State, error) {
	d.show(ev, "Введите новое название гильдии.",
		[][]tgbotapi.InlineKeyboardButton{fsmutil.BackCancelRow("gld_back", "gld_close")})
	return gldStateRename, nil
}

func (d *Deps) gldRename(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[guildDraft](d.Sessions.Get(ev.ChatID), flowGuilds)
	name := strings.TrimSpace(ev.Cmd.Text)
	if name == "" {
		d.sendText(ev.ChatID, "Название не может быть пустым.")
		return gldStateRename, nil
	}
	if err := db.RenameGuild(ctx, d.DB, dr.GuildID, name); err != nil {
		return gldStateRename, err
	}
	return d.gldShow(ctx, ev)
}

func (d *Deps) gldAddPick(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[guildDraft](sess, flowGuilds)

	free, err := db.StudentsWithoutGuild(ctx, d.DB, sess.ActiveClassroomID())
	if err != nil {
		return dialog.End, err
	}
	if len(free) == 0 {
		d.sendText(ev.ChatID, "Все ученики класса уже состоят в гильдиях.")
		return d.gldShow(ctx, ev)
	}
	items := make([]pagination.Item, 0, len(free))
	for _, s := range free {
		items = append(items, pagination.Item{Label: s.Name, Data: fmt.Sprintf("student#%d", s.StudentID)})
	}
	dr.List = &pagination.Cache{Items: items, PageSize: d.PageSize, Back: "gld_back"}
	dr.Page = 1
	dr.Title = "Кого добавить в гильдию?"
	d.show(ev, dr.Title, dr.List.Rows(1))
	return gldStateAddPick, nil
}

func (d *Deps) gldAdd(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[guildDraft](d.Sessions.Get(ev.ChatID), flowGuilds)
	if err := db.AddGuildMember(ctx, d.DB, dr.GuildID, ev.Cmd.ID); err != nil {
		return gldStateAddPick, err
	}
	return d.gldShow(ctx, ev)
}

func (d *Deps) gldRemovePick(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[guildDraft](d.Sessions.Get(ev.ChatID), flowGuilds)

	members, err := db.GuildMembers(ctx, d.DB, dr.GuildID)
	if err != nil {
		return dialog.End, err
	}
	if len(members) == 0 {
		d.sendText(ev.ChatID, "В гильдии никого нет.")
		return d.gldShow(ctx, ev)
	}
	items := make([]pagination.Item, 0, len(members))
	for _, m := range members {
		items = append(items, pagination.Item{Label: m.Name, Data: fmt.Sprintf("student#%d", m.StudentID)})
	}
	dr.List = &pagination.Cache{Items: items, PageSize: d.PageSize, Back: "gld_back"}
	dr.Page = 1
	dr.Title = "Кого исключить из гильдии?"
	d.show(ev, dr.Title, dr.List.Rows(1))
	return gldStateRemovePick, nil
}

func (d *Deps) gldRemove(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[guildDraft](d.Sessions.Get(ev.ChatID), flowGuilds)
	if err := db.RemoveGuildMember(ctx, d.DB, dr.GuildID, ev.Cmd.ID); err != nil {
		return gldStateRemovePick, err
	}
	return d.gldShow(ctx, ev)
}

func (d *Deps) gldConfirmDelete(_ context.Context, ev dialog.Event) (dialog.State, error) {
	d.show(ev, "⚠️ Удалить гильдию? Уже выданные участникам баллы сохранятся.",
		[][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🗑 Да, удалить", "gld_delete_yes"),
			),
			fsmutil.BackCancelRow("gld_back", "gld_close"),
		})
	return gldStateDelete, nil
}

func (d *Deps) gldDelete(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[guildDraft](d.Sessions.Get(ev.ChatID), flowGuilds)
	if err := db.DeleteGuild(ctx, d.DB, dr.GuildID); err != nil {
		return gldStateDelete, err
	}
	d.sendText(ev.ChatID, "🗑 Гильдия удалена.")
	return d.gldList(ctx, ev)
}
