package flows

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/telegram-classroom-bot/internal/bot/shared/fsmutil"
	"github.com/Spok95/telegram-classroom-bot/internal/db"
	"github.com/Spok95/telegram-classroom-bot/internal/dialog"
	"github.com/Spok95/telegram-classroom-bot/internal/models"
	"github.com/Spok95/telegram-classroom-bot/internal/pagination"
	"github.com/Spok95/telegram-classroom-bot/internal/workflow"
)

const flowGrant = "grant"

const (
	grtStateTypePick dialog.State = iota + 1
	grtStateTargetKind
	grtStateTargetPick
	grtStateValue
)

type grantDraft struct {
	TokenTypeID int64
	Guild       bool
	StudentID   int64
	GuildID     int64
	List        *pagination.Cache
	Page        int
	Title       string
}

// NewGrantFlow — ручная выдача баллов без заявки: категория → адресат →
// «ценность [комментарий]». Начисление проходит тем же воркфлоу, что и
// одобрение заявки, и остаётся в истории.
func NewGrantFlow(d *Deps) *dialog.Flow {
	return &dialog.Flow{
		Name:         flowGrant,
		AllowReentry: true,
		Entry:        d.grtEntry,
		States: map[dialog.State][]dialog.Rule{
			grtStateTypePick: {
				{When: dialog.OnSelect("ttype"), Do: d.grtType},
				{When: dialog.OnPage(), Do: d.grtPage(grtStateTypePick)},
			},
			grtStateTargetKind: {
				{When: dialog.OnKeyword("grt_students"), Do: d.grtTargets(false)},
				{When: dialog.OnKeyword("grt_guilds"), Do: d.grtTargets(true)},
			},
			grtStateTargetPick: {
				{When: dialog.OnSelect("student"), Do: d.grtTarget},
				{When: dialog.OnSelect("guild"), Do: d.grtTarget},
				{When: dialog.OnPage(), Do: d.grtPage(grtStateTargetPick)},
				{When: dialog.OnKeyword("grt_kind"), Do: d.grtAskKind},
			},
			grtStateValue: {
				{When: dialog.OnText(), Do: d.grtGrant},
			},
		},
		Fallback: d.cancelRules("grt_close", "Выдача баллов отменена."),
	}
}

func (d *Deps) grtEntry(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	if sess.Role() != models.RoleTeacher || sess.ActiveClassroomID() == 0 {
		d.sendText(ev.ChatID, "Раздел доступен преподавателю с активным классом.")
		return dialog.End, nil
	}
	dr := draft[grantDraft](sess, flowGrant)

	types, err := db.TokenTypesForClassroom(ctx, d.DB, sess.ActiveClassroomID())
	if err != nil {
		return dialog.End, err
	}
	items := make([]pagination.Item, 0, len(types))
	for _, tt := range types {
		items = append(items, pagination.Item{Label: tt.Type, Data: fmt.Sprintf("ttype#%d", tt.ID)})
	}
	dr.List = &pagination.Cache{Items: items, PageSize: d.PageSize, Back: "grt_close"}
	dr.Page = 1
	dr.Title = "🎖 В какой категории начислить баллы?"
	d.show(ev, dr.Title, dr.List.Rows(1))
	return grtStateTypePick, nil
}

func (d *Deps) grtPage(stay dialog.State) dialog.Handler {
	return func(_ context.Context, ev dialog.Event) (dialog.State, error) {
		dr := draft[grantDraft](d.Sessions.Get(ev.ChatID), flowGrant)
		if dr.List == nil {
			return d.desync(ev)
		}
		dr.Page = ev.Cmd.Page
		d.show(ev, dr.Title, dr.List.Rows(dr.Page))
		return stay, nil
	}
}

func (d *Deps) grtType(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[grantDraft](d.Sessions.Get(ev.ChatID), flowGrant)
	dr.TokenTypeID = ev.Cmd.ID
	return d.grtAskKind(ctx, ev)
}

func (d *Deps) grtAskKind(_ context.Context, ev dialog.Event) (dialog.State, error) {
	d.show(ev, "Кому начислить?", [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🧍 Ученику", "grt_students"),
			tgbotapi.NewInlineKeyboardButtonData("🏰 Гильдии", "grt_guilds"),
		),
		fsmutil.CancelRow("grt_close"),
	})
	return grtStateTargetKind, nil
}

func (d *Deps) grtTargets(guild bool) dialog.Handler {
	return func(ctx context.Context, ev dialog.Event) (dialog.State, error) {
		sess := d.Sessions.Get(ev.ChatID)
		dr := draft[grantDraft](sess, flowGrant)
		dr.Guild = guild

		var items []pagination.Item
		if guild {
			guilds, err := db.GuildsByClassroom(ctx, d.DB, sess.ActiveClassroomID())
			if err != nil {
				return dialog.End, err
			}
			for _, g := range guilds {
				items = append(items, pagination.Item{Label: g.Name, Data: fmt.Sprintf("guild#%d", g.ID)})
			}
		} else {
			students, err := db.StudentsByClassroom(ctx, d.DB, sess.ActiveClassroomID())
			if err != nil {
				return dialog.End, err
			}
			for _, s := range students {
				items = append(items, pagination.Item{Label: s.Name, Data: fmt.Sprintf("student#%d", s.StudentID)})
			}
		}
		if len(items) == 0 {
			d.sendText(ev.ChatID, "Начислять некому.")
			return d.grtAskKind(ctx, ev)
		}
		dr.List = &pagination.Cache{Items: items, PageSize: d.PageSize, Back: "grt_kind"}
		dr.Page = 1
		dr.Title = "Выберите адресата."
		d.show(ev, dr.Title, dr.List.Rows(1))
		return grtStateTargetPick, nil
	}
}

func (d *Deps) grtTarget(_ context.Context, ev dialog.Event) (dialog.State, error) {
	dr := draft[grantDraft](d.Sessions.Get(ev.ChatID), flowGrant)
	dr.StudentID, dr.GuildID = 0, 0
	if ev.Cmd.Action == "guild" {
		dr.GuildID = ev.Cmd.ID
	} else {
		dr.StudentID = ev.Cmd.ID
	}
	d.show(ev, "Введите «ценность [комментарий]», например: 50 отличная работа.",
		[][]tgbotapi.InlineKeyboardButton{fsmutil.CancelRow("grt_close")})
	return grtStateValue, nil
}

func (d *Deps) grtGrant(ctx context.Context, ev dialog.Event) (dialog.State, error) {
	sess := d.Sessions.Get(ev.ChatID)
	dr := draft[grantDraft](sess, flowGrant)

	value, comment, err := parseValueComment(ev.Cmd.Text)
	if err != nil {
		d.sendText(ev.ChatID, "❌ "+err.Error())
		return grtStateValue, nil
	}

	grant := workflow.ManualGrant{
		ClassroomID: sess.ActiveClassroomID(),
		TokenTypeID: dr.TokenTypeID,
		GrantedBy:   sess.ProfileID(),
		Value:       value,
		Comment:     comment,
	}
	if dr.GuildID != 0 {
		members, err := db.GuildMembers(ctx, d.DB, dr.GuildID)
		if err != nil {
			return dialog.End, err
		}
		if len(members) == 0 {
			d.sendText(ev.ChatID, "В гильдии нет участников, начислять некому.")
			return dialog.End, nil
		}
		grant.GuildID = &dr.GuildID
		grant.StudentID = members[0].StudentID
	} else {
		grant.StudentID = dr.StudentID
	}

	if _, err := d.Workflow.GrantManual(ctx, grant); err != nil {
		return grtStateValue, err
	}
	d.show(ev, fmt.Sprintf("✅ Начислено %d баллов.", value), nil)
	return dialog.End, nil
}
