package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/telegram-classroom-bot/internal/models"
)

// fakeGateway — in-memory реализация Gateway с той же семантикой условных
// переходов, что и в db: ResolvePending закрывает только открытую заявку.
type fakeGateway struct {
	pendings map[int64]*models.Pending
	tokens   map[int64]*models.Token
	nextID   int64

	studentGrants map[int64][]grantRow // studentID -> выдачи
	guildGrants   map[int64][]grantRow
	guildMembers  map[int64][]int64

	studentChats map[int64]int64
	teacherChats map[int64]int64
	notifyChat   *int64
}

type grantRow struct {
	tokenID int64
	value   int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		pendings:      make(map[int64]*models.Pending),
		tokens:        make(map[int64]*models.Token),
		studentGrants: make(map[int64][]grantRow),
		guildGrants:   make(map[int64][]grantRow),
		guildMembers:  make(map[int64][]int64),
		studentChats:  make(map[int64]int64),
		teacherChats:  make(map[int64]int64),
	}
}

func (g *fakeGateway) id() int64 { g.nextID++; return g.nextID }

func (g *fakeGateway) PendingByID(_ context.Context, id int64) (*models.Pending, error) {
	p, ok := g.pendings[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (g *fakeGateway) CreatePending(_ context.Context, p models.Pending) (int64, error) {
	p.ID = g.id()
	g.pendings[p.ID] = &p
	return p.ID, nil
}

func (g *fakeGateway) ResolvePending(_ context.Context, id int64, to models.PendingStatus, approvedBy int64, at time.Time, explanation *string) (bool, error) {
	p, ok := g.pendings[id]
	if !ok || p.Status != models.PendingOpen {
		return false, nil
	}
	p.Status = to
	p.ApprovedBy = &approvedBy
	p.ResolvedAt = &at
	p.Explanation = explanation
	return true, nil
}

func (g *fakeGateway) AssignPending(_ context.Context, id, teacherID int64) (bool, error) {
	p, ok := g.pendings[id]
	if !ok || p.Status != models.PendingOpen {
		return false, nil
	}
	p.TeacherID = &teacherID
	return true, nil
}

func (g *fakeGateway) SetMoreInfo(_ context.Context, id int64, flag models.MoreInfo) (bool, error) {
	p, ok := g.pendings[id]
	if !ok || p.Status != models.PendingOpen {
		return false, nil
	}
	p.MoreInfo = flag
	return true, nil
}

func (g *fakeGateway) AppendText(_ context.Context, id int64, addition string) error {
	p, ok := g.pendings[id]
	if !ok {
		return errors.New("нет заявки")
	}
	p.Text += "\n" + addition
	return nil
}

func (g *fakeGateway) TokenByID(_ context.Context, id int64) (*models.Token, error) {
	t, ok := g.tokens[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (g *fakeGateway) CreateToken(_ context.Context, t models.Token) (int64, error) {
	t.ID = g.id()
	g.tokens[t.ID] = &t
	return t.ID, nil
}

func (g *fakeGateway) GrantStudentToken(_ context.Context, studentID, tokenID int64, value int, _ int64, _ time.Time) (bool, error) {
	for _, r := range g.studentGrants[studentID] {
		if r.tokenID == tokenID {
			return false, nil // UNIQUE (student_id, token_id)
		}
	}
	g.studentGrants[studentID] = append(g.studentGrants[studentID], grantRow{tokenID, value})
	return true, nil
}

func (g *fakeGateway) GrantGuildToken(_ context.Context, guildID, tokenID int64, value int, _ int64, _ time.Time) (bool, error) {
	for _, r := range g.guildGrants[guildID] {
		if r.tokenID == tokenID {
			return false, nil
		}
	}
	g.guildGrants[guildID] = append(g.guildGrants[guildID], grantRow{tokenID, value})
	return true, nil
}

func (g *fakeGateway) GuildMemberIDs(_ context.Context, guildID int64) ([]int64, error) {
	return g.guildMembers[guildID], nil
}

func (g *fakeGateway) StudentChatID(_ context.Context, studentID int64) (int64, error) {
	return g.studentChats[studentID], nil
}

func (g *fakeGateway) TeacherChatID(_ context.Context, teacherID int64) (int64, error) {
	return g.teacherChats[teacherID], nil
}

func (g *fakeGateway) ClassroomNotifyChat(_ context.Context, _ int64) (*int64, error) {
	return g.notifyChat, nil
}

type sentNote struct {
	chatID int64
	text   string
}

type recordingNotifier struct {
	sent []sentNote
}

func (n *recordingNotifier) Notify(chatID int64, text string) {
	n.sent = append(n.sent, sentNote{chatID, text})
}

func (n *recordingNotifier) textsFor(chatID int64) []string {
	var out []string
	for _, s := range n.sent {
		if s.chatID == chatID {
			out = append(out, s.text)
		}
	}
	return out
}

func newTestService() (*Service, *fakeGateway, *recordingNotifier) {
	gw := newFakeGateway()
	n := &recordingNotifier{}
	return New(gw, n, zap.NewNop().Sugar()), gw, n
}

func TestSubmitNotifiesClassroom(t *testing.T) {
	s, gw, n := newTestService()
	chat := int64(777)
	gw.notifyChat = &chat

	id, err := s.Submit(context.Background(), models.Pending{
		StudentID: 1, ClassroomID: 10, TokenTypeID: 2, Text: "Сделал проект",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	p := gw.pendings[id]
	if p.Status != models.PendingOpen {
		t.Fatalf("новая заявка должна быть открытой, статус %s", p.Status)
	}
	if got := n.textsFor(chat); len(got) != 1 {
		t.Fatalf("ожидали одно уведомление в чат класса, получили %d", len(got))
	}
}

func TestApproveFreeFormValue(t *testing.T) {
	s, gw, n := newTestService()
	gw.studentChats[1] = 100

	ctx := context.Background()
	id, _ := s.Submit(ctx, models.Pending{StudentID: 1, ClassroomID: 10, TokenTypeID: 2, Text: "Доклад"})

	if err := s.Approve(ctx, id, 5, 50, "хорошо"); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	grants := gw.studentGrants[1]
	if len(grants) != 1 || grants[0].value != 50 {
		t.Fatalf("ожидали одну выдачу на 50, получили %+v", grants)
	}
	// Свободная заявка создаёт токен с той же ценностью.
	tok := gw.tokens[grants[0].tokenID]
	if tok == nil || tok.Value != 50 {
		t.Fatalf("токен свободной выдачи: %+v", tok)
	}
	if gw.pendings[id].Status != models.PendingApproved {
		t.Fatalf("статус %s", gw.pendings[id].Status)
	}
	if !strings.Contains(gw.pendings[id].Text, "Комментарий проверяющего: хорошо") {
		t.Fatalf("комментарий не дописан: %q", gw.pendings[id].Text)
	}
	if got := n.textsFor(100); len(got) != 1 || !strings.HasPrefix(got[0], "✅") {
		t.Fatalf("уведомления ученику: %v", got)
	}
}

func TestApproveActivityTokenDefaultValue(t *testing.T) {
	s, gw, _ := newTestService()
	ctx := context.Background()

	tokID, _ := gw.CreateToken(ctx, models.Token{TokenTypeID: 2, Name: "Эссе", Value: 30})
	id, _ := s.Submit(ctx, models.Pending{StudentID: 1, ClassroomID: 10, TokenTypeID: 2, TokenID: &tokID, Text: "Эссе"})

	// value=0 — берём ценность токена.
	if err := s.Approve(ctx, id, 5, 0, ""); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	grants := gw.studentGrants[1]
	if len(grants) != 1 || grants[0].value != 30 || grants[0].tokenID != tokID {
		t.Fatalf("выдача по токену активности: %+v", grants)
	}
}

func TestApproveExplicitValueOverridesToken(t *testing.T) {
	s, gw, _ := newTestService()
	ctx := context.Background()

	tokID, _ := gw.CreateToken(ctx, models.Token{TokenTypeID: 2, Name: "Эссе", Value: 30})
	id, _ := s.Submit(ctx, models.Pending{StudentID: 1, ClassroomID: 10, TokenTypeID: 2, TokenID: &tokID, Text: "Эссе"})

	if err := s.Approve(ctx, id, 5, 45, ""); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	grants := gw.studentGrants[1]
	if len(grants) != 1 || grants[0].value != 45 {
		t.Fatalf("явная ценность должна перекрывать токен: %+v", grants)
	}
	// Ценность самого токена не меняется.
	if gw.tokens[tokID].Value != 30 {
		t.Fatalf("токен не должен меняться: %+v", gw.tokens[tokID])
	}
}

func TestApproveRaceSecondReviewerLoses(t *testing.T) {
	s, gw, _ := newTestService()
	ctx := context.Background()

	id, _ := s.Submit(ctx, models.Pending{StudentID: 1, ClassroomID: 10, TokenTypeID: 2, Text: "Доклад"})

	if err := s.Approve(ctx, id, 5, 50, ""); err != nil {
		t.Fatalf("первый Approve: %v", err)
	}
	if err := s.Approve(ctx, id, 6, 70, ""); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("второй Approve должен проигрывать гонку: %v", err)
	}
	if err := s.Reject(ctx, id, 6, "поздно"); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("Reject закрытой заявки: %v", err)
	}
	if grants := gw.studentGrants[1]; len(grants) != 1 || grants[0].value != 50 {
		t.Fatalf("двойного начисления быть не должно: %+v", grants)
	}
}

func TestRejectWithExplanation(t *testing.T) {
	s, gw, n := newTestService()
	gw.studentChats[1] = 100
	ctx := context.Background()

	id, _ := s.Submit(ctx, models.Pending{StudentID: 1, ClassroomID: 10, TokenTypeID: 2, Text: "Доклад"})
	if err := s.Reject(ctx, id, 5, "нет подтверждения"); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	p := gw.pendings[id]
	if p.Status != models.PendingRejected || p.Explanation == nil || *p.Explanation != "нет подтверждения" {
		t.Fatalf("заявка после отклонения: %+v", p)
	}
	got := n.textsFor(100)
	if len(got) != 1 || !strings.Contains(got[0], "Причина: нет подтверждения") || !strings.Contains(got[0], "Доклад") {
		t.Fatalf("ученик должен получить текст и причину: %v", got)
	}
	if len(gw.studentGrants[1]) != 0 {
		t.Fatal("отклонение не должно начислять")
	}
}

func TestGuildApproveFanOut(t *testing.T) {
	s, gw, _ := newTestService()
	ctx := context.Background()

	guildID := int64(3)
	gw.guildMembers[guildID] = []int64{1, 2, 4}
	tokID, _ := gw.CreateToken(ctx, models.Token{TokenTypeID: 2, Name: "Квест", Value: 20})

	id, _ := s.Submit(ctx, models.Pending{
		StudentID: 1, ClassroomID: 10, TokenTypeID: 2, TokenID: &tokID, GuildID: &guildID, Text: "Квест",
	})
	if err := s.Approve(ctx, id, 5, 0, ""); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	if len(gw.guildGrants[guildID]) != 1 {
		t.Fatalf("гильдейская выдача: %+v", gw.guildGrants[guildID])
	}
	for _, sid := range []int64{1, 2, 4} {
		grants := gw.studentGrants[sid]
		if len(grants) != 1 || grants[0].value != 20 {
			t.Fatalf("участник %d: %+v", sid, grants)
		}
	}
}

func TestGuildGrantIdempotent(t *testing.T) {
	s, gw, _ := newTestService()
	ctx := context.Background()

	guildID := int64(3)
	gw.guildMembers[guildID] = []int64{1, 2}
	tokID, _ := gw.CreateToken(ctx, models.Token{TokenTypeID: 2, Name: "Квест", Value: 20})

	// Участник 1 уже получил этот токен лично.
	if _, err := gw.GrantStudentToken(ctx, 1, tokID, 20, 5, time.Now()); err != nil {
		t.Fatal(err)
	}

	id, _ := s.Submit(ctx, models.Pending{
		StudentID: 1, ClassroomID: 10, TokenTypeID: 2, TokenID: &tokID, GuildID: &guildID, Text: "Квест",
	})
	if err := s.Approve(ctx, id, 5, 0, ""); err != nil {
		t.Fatalf("повторная выдача участнику не должна ломать одобрение: %v", err)
	}
	if grants := gw.studentGrants[1]; len(grants) != 1 {
		t.Fatalf("дубль у участника 1: %+v", grants)
	}
	if grants := gw.studentGrants[2]; len(grants) != 1 {
		t.Fatalf("участник 2 должен получить токен: %+v", grants)
	}
}

func TestGrantManualValueSnapshot(t *testing.T) {
	s, gw, _ := newTestService()
	ctx := context.Background()

	tokID, _ := gw.CreateToken(ctx, models.Token{TokenTypeID: 2, Name: "Активность", Value: 30})
	id, err := s.GrantManual(ctx, ManualGrant{
		ClassroomID: 10, TokenTypeID: 2, TokenID: &tokID,
		StudentID: 1, GrantedBy: 5, Value: 50, Comment: "особый случай",
	})
	if err != nil {
		t.Fatalf("GrantManual: %v", err)
	}

	// Строка леджера несёт ценность 50, хотя у токена дефолт 30.
	grants := gw.studentGrants[1]
	if len(grants) != 1 || grants[0].value != 50 {
		t.Fatalf("снапшот ценности: %+v", grants)
	}
	p := gw.pendings[id]
	if p.Status != models.PendingApproved || p.ApprovedBy == nil || *p.ApprovedBy != 5 {
		t.Fatalf("ручная выдача должна сразу быть approved: %+v", p)
	}
}

func TestRequestMoreInfoRoundtrip(t *testing.T) {
	s, gw, n := newTestService()
	gw.studentChats[1] = 100
	gw.teacherChats[5] = 200
	ctx := context.Background()

	id, _ := s.Submit(ctx, models.Pending{StudentID: 1, ClassroomID: 10, TokenTypeID: 2, Text: "Доклад"})

	if err := s.RequestMoreInfo(ctx, id, 5); err != nil {
		t.Fatalf("RequestMoreInfo: %v", err)
	}
	p := gw.pendings[id]
	if p.MoreInfo != models.MoreInfoRequested {
		t.Fatalf("флаг %q", p.MoreInfo)
	}
	if p.TeacherID == nil || *p.TeacherID != 5 {
		t.Fatal("запросивший должен стать прямым проверяющим")
	}
	if got := n.textsFor(100); len(got) != 1 || !strings.Contains(got[0], "уточнить") {
		t.Fatalf("ученик должен получить запрос: %v", got)
	}

	if err := s.SubmitMoreInfo(ctx, id, "Вот ссылка на работу"); err != nil {
		t.Fatalf("SubmitMoreInfo: %v", err)
	}
	p = gw.pendings[id]
	if p.MoreInfo != models.MoreInfoSent {
		t.Fatalf("флаг после ответа %q", p.MoreInfo)
	}
	if !strings.Contains(p.Text, "Вот ссылка на работу") {
		t.Fatalf("ответ не дописан: %q", p.Text)
	}
	if got := n.textsFor(200); len(got) != 1 || !strings.Contains(got[0], "дополнил") {
		t.Fatalf("проверяющий должен получить ответ: %v", got)
	}
}

func TestApproveMissingPending(t *testing.T) {
	s, _, _ := newTestService()
	if err := s.Approve(context.Background(), 999, 5, 10, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("несуществующая заявка: %v", err)
	}
}
