package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/telegram-classroom-bot/internal/models"
)

var (
	ErrNotFound        = errors.New("workflow: заявка не найдена")
	ErrAlreadyResolved = errors.New("workflow: заявка уже закрыта")
)

// Gateway — персистентность, нужная воркфлоу заявок. Реализуется db.Store;
// в тестах — фейком в памяти.
type Gateway interface {
	PendingByID(ctx context.Context, id int64) (*models.Pending, error)
	CreatePending(ctx context.Context, p models.Pending) (int64, error)
	ResolvePending(ctx context.Context, id int64, to models.PendingStatus, approvedBy int64, at time.Time, explanation *string) (bool, error)
	AssignPending(ctx context.Context, id, teacherID int64) (bool, error)
	SetMoreInfo(ctx context.Context, id int64, flag models.MoreInfo) (bool, error)
	AppendText(ctx context.Context, id int64, addition string) error

	TokenByID(ctx context.Context, id int64) (*models.Token, error)
	CreateToken(ctx context.Context, t models.Token) (int64, error)
	GrantStudentToken(ctx context.Context, studentID, tokenID int64, value int, grantedBy int64, at time.Time) (bool, error)
	GrantGuildToken(ctx context.Context, guildID, tokenID int64, value int, grantedBy int64, at time.Time) (bool, error)
	GuildMemberIDs(ctx context.Context, guildID int64) ([]int64, error)

	StudentChatID(ctx context.Context, studentID int64) (int64, error)
	TeacherChatID(ctx context.Context, teacherID int64) (int64, error)
	ClassroomNotifyChat(ctx context.Context, classroomID int64) (*int64, error)
}

// Notifier — best-effort доставка; никогда не возвращает ошибку
// и не должна блокировать переход.
type Notifier interface {
	Notify(chatID int64, text string)
}

type Service struct {
	gw  Gateway
	n   Notifier
	log *zap.SugaredLogger
}

func New(gw Gateway, n Notifier, log *zap.SugaredLogger) *Service {
	return &Service{gw: gw, n: n, log: log}
}

// Submit создаёт заявку со статусом pending.
func (s *Service) Submit(ctx context.Context, p models.Pending) (int64, error) {
	p.Status = models.PendingOpen
	p.MoreInfo = models.MoreInfoNone
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	id, err := s.gw.CreatePending(ctx, p)
	if err != nil {
		return 0, err
	}
	s.notifyClassroom(ctx, p.ClassroomID, "📨 Поступила новая заявка на баллы.")
	return id, nil
}

// Approve закрывает заявку и начисляет токен тем же дуал-райтом, что и
// ручная выдача. Переход условный: заявка, закрытая параллельно другим
// проверяющим, не начисляется второй раз. value обязателен для свободной
// заявки; для заявки по активности 0 означает ценность её токена.
func (s *Service) Approve(ctx context.Context, pendingID, approverID int64, value int, comment string) error {
	p, err := s.gw.PendingByID(ctx, pendingID)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrNotFound
	}

	now := time.Now()
	ok, err := s.gw.ResolvePending(ctx, pendingID, models.PendingApproved, approverID, now, nil)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyResolved
	}
	if comment != "" {
		if err := s.gw.AppendText(ctx, pendingID, "Комментарий проверяющего: "+comment); err != nil {
			return err
		}
	}

	tokenID, award, err := s.ensureToken(ctx, p, value)
	if err != nil {
		return err
	}
	if err := s.grant(ctx, p.StudentID, p.GuildID, tokenID, award, approverID, now); err != nil {
		return err
	}

	s.notifyStudent(ctx, p.StudentID, fmt.Sprintf("✅ Ваша заявка одобрена!\n\n%s", p.Text))
	s.notifyClassroom(ctx, p.ClassroomID, "✅ Заявка одобрена: "+p.Text)
	return nil
}

// Reject закрывает заявку с необязательным объяснением; ученик получает
// исходный текст заявки и причину.
func (s *Service) Reject(ctx context.Context, pendingID, approverID int64, explanation string) error {
	p, err := s.gw.PendingByID(ctx, pendingID)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrNotFound
	}

	var expl *string
	if explanation != "" {
		expl = &explanation
	}
	ok, err := s.gw.ResolvePending(ctx, pendingID, models.PendingRejected, approverID, time.Now(), expl)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyResolved
	}

	text := fmt.Sprintf("❌ Ваша заявка отклонена.\n\n%s", p.Text)
	if explanation != "" {
		text += "\n\nПричина: " + explanation
	}
	s.notifyStudent(ctx, p.StudentID, text)
	s.notifyClassroom(ctx, p.ClassroomID, "❌ Заявка отклонена: "+p.Text)
	return nil
}

// Assign делегирует открытую заявку другому проверяющему; из общей очереди
// она уходит, статус не меняется.
func (s *Service) Assign(ctx context.Context, pendingID, teacherID int64) error {
	ok, err := s.gw.AssignPending(ctx, pendingID, teacherID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyResolved
	}
	if chatID, err := s.gw.TeacherChatID(ctx, teacherID); err == nil {
		s.n.Notify(chatID, "📬 Вам назначена заявка на проверку.")
	}
	return nil
}

// RequestMoreInfo помечает заявку флагом requested и спрашивает ученика.
// Запросивший становится прямым проверяющим: ответ вернётся именно ему.
func (s *Service) RequestMoreInfo(ctx context.Context, pendingID, teacherID int64) error {
	p, err := s.gw.PendingByID(ctx, pendingID)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrNotFound
	}
	ok, err := s.gw.SetMoreInfo(ctx, pendingID, models.MoreInfoRequested)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyResolved
	}
	if _, err := s.gw.AssignPending(ctx, pendingID, teacherID); err != nil {
		return err
	}

	s.notifyStudent(ctx, p.StudentID,
		fmt.Sprintf("✍️ Преподаватель просит уточнить заявку:\n\n%s\n\nОтветьте текстом на это сообщение.", p.Text))
	return nil
}

// SubmitMoreInfo дописывает ответ ученика к тексту заявки, переводит флаг
// в sent и уведомляет запросившего. Статус не меняется.
func (s *Service) SubmitMoreInfo(ctx context.Context, pendingID int64, reply string) error {
	p, err := s.gw.PendingByID(ctx, pendingID)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrNotFound
	}
	if err := s.gw.AppendText(ctx, pendingID, reply); err != nil {
		return err
	}
	if _, err := s.gw.SetMoreInfo(ctx, pendingID, models.MoreInfoSent); err != nil {
		return err
	}
	if p.TeacherID != nil {
		if chatID, err := s.gw.TeacherChatID(ctx, *p.TeacherID); err == nil {
			s.n.Notify(chatID, "📩 Ученик дополнил заявку:\n\n"+p.Text+"\n"+reply)
		}
	}
	return nil
}

// ManualGrant — ручная выдача преподавателем, минуя статус pending:
// строки леджера плюс заявка, сразу проштампованная approved (история
// проверок и леджер делят один тип записи).
type ManualGrant struct {
	ClassroomID int64
	TokenTypeID int64
	TokenID     *int64 // существующий токен активности; nil — свободная выдача
	StudentID   int64  // для гильдии — номинальный ученик (первый участник)
	GuildID     *int64
	GrantedBy   int64 // id профиля преподавателя
	Value       int
	Comment     string
}

func (s *Service) GrantManual(ctx context.Context, g ManualGrant) (int64, error) {
	now := time.Now()

	p := models.Pending{
		StudentID:   g.StudentID,
		ClassroomID: g.ClassroomID,
		TokenTypeID: g.TokenTypeID,
		TokenID:     g.TokenID,
		GuildID:     g.GuildID,
		Status:      models.PendingApproved,
		Text:        g.Comment,
		ApprovedBy:  &g.GrantedBy,
		CreatedAt:   now,
		ResolvedAt:  &now,
	}

	tokenID, award, err := s.ensureToken(ctx, &p, g.Value)
	if err != nil {
		return 0, err
	}
	p.TokenID = &tokenID

	if err := s.grant(ctx, g.StudentID, g.GuildID, tokenID, award, g.GrantedBy, now); err != nil {
		return 0, err
	}

	id, err := s.gw.CreatePending(ctx, p)
	if err != nil {
		return 0, err
	}

	text := fmt.Sprintf("🎖 Вам начислено %d баллов.", g.Value)
	if g.Comment != "" {
		text += "\nКомментарий: " + g.Comment
	}
	if g.GuildID != nil {
		members, err := s.gw.GuildMemberIDs(ctx, *g.GuildID)
		if err == nil {
			for _, sid := range members {
				s.notifyStudent(ctx, sid, text)
			}
		}
	} else {
		s.notifyStudent(ctx, g.StudentID, text)
	}
	s.notifyClassroom(ctx, g.ClassroomID, "🎖 Начисление: "+g.Comment)
	return id, nil
}

// ensureToken возвращает токен заявки и ценность выдачи, создавая токен
// при свободной выдаче. Явный value перекрывает ценность токена.
func (s *Service) ensureToken(ctx context.Context, p *models.Pending, value int) (int64, int, error) {
	if p.TokenID != nil {
		t, err := s.gw.TokenByID(ctx, *p.TokenID)
		if err != nil {
			return 0, 0, err
		}
		if t == nil {
			return 0, 0, fmt.Errorf("workflow: токен %d не найден", *p.TokenID)
		}
		if value <= 0 {
			value = t.Value
		}
		return t.ID, value, nil
	}
	name := p.Text
	if name == "" {
		name = "Начисление"
	}
	id, err := s.gw.CreateToken(ctx, models.Token{
		TokenTypeID: p.TokenTypeID,
		Name:        name,
		Value:       value,
	})
	return id, value, err
}

// grant раздаёт токен адресату. Гильдейская выдача фанаутится каждому
// текущему участнику, чтобы личный и гильдейский рейтинги сходились;
// вступившие позже задним числом токен не получают.
func (s *Service) grant(ctx context.Context, studentID int64, guildID *int64, tokenID int64, value int, grantedBy int64, at time.Time) error {
	if guildID == nil {
		_, err := s.gw.GrantStudentToken(ctx, studentID, tokenID, value, grantedBy, at)
		return err
	}
	if _, err := s.gw.GrantGuildToken(ctx, *guildID, tokenID, value, grantedBy, at); err != nil {
		return err
	}
	members, err := s.gw.GuildMemberIDs(ctx, *guildID)
	if err != nil {
		return err
	}
	for _, sid := range members {
		if _, err := s.gw.GrantStudentToken(ctx, sid, tokenID, value, grantedBy, at); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) notifyStudent(ctx context.Context, studentID int64, text string) {
	chatID, err := s.gw.StudentChatID(ctx, studentID)
	if err != nil || chatID == 0 {
		s.log.Warnw("чат ученика не найден", "student_id", studentID, "err", err)
		return
	}
	s.n.Notify(chatID, text)
}

func (s *Service) notifyClassroom(ctx context.Context, classroomID int64, text string) {
	chatID, err := s.gw.ClassroomNotifyChat(ctx, classroomID)
	if err != nil || chatID == nil {
		return
	}
	s.n.Notify(*chatID, text)
}
