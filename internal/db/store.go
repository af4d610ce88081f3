package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/Spok95/telegram-classroom-bot/internal/models"
)

// Store — адаптер пакетных функций под workflow.Gateway.
type Store struct {
	DB *sql.DB
}

func (s *Store) PendingByID(ctx context.Context, id int64) (*models.Pending, error) {
	return PendingByID(ctx, s.DB, id)
}

func (s *Store) CreatePending(ctx context.Context, p models.Pending) (int64, error) {
	return CreatePending(ctx, s.DB, p)
}

func (s *Store) ResolvePending(ctx context.Context, id int64, to models.PendingStatus, approvedBy int64, at time.Time, explanation *string) (bool, error) {
	return ResolvePending(ctx, s.DB, id, to, approvedBy, at, explanation)
}

func (s *Store) AssignPending(ctx context.Context, id, teacherID int64) (bool, error) {
	return AssignPending(ctx, s.DB, id, teacherID)
}

func (s *Store) SetMoreInfo(ctx context.Context, id int64, flag models.MoreInfo) (bool, error) {
	return SetPendingMoreInfo(ctx, s.DB, id, flag)
}

func (s *Store) AppendText(ctx context.Context, id int64, addition string) error {
	return AppendPendingText(ctx, s.DB, id, addition)
}

func (s *Store) TokenByID(ctx context.Context, id int64) (*models.Token, error) {
	return TokenByID(ctx, s.DB, id)
}

func (s *Store) CreateToken(ctx context.Context, t models.Token) (int64, error) {
	return CreateToken(ctx, s.DB, t)
}

func (s *Store) GrantStudentToken(ctx context.Context, studentID, tokenID int64, value int, grantedBy int64, at time.Time) (bool, error) {
	return GrantStudentToken(ctx, s.DB, studentID, tokenID, value, grantedBy, at)
}

func (s *Store) GrantGuildToken(ctx context.Context, guildID, tokenID int64, value int, grantedBy int64, at time.Time) (bool, error) {
	return GrantGuildToken(ctx, s.DB, guildID, tokenID, value, grantedBy, at)
}

func (s *Store) GuildMemberIDs(ctx context.Context, guildID int64) ([]int64, error) {
	members, err := GuildMembers(ctx, s.DB, guildID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.StudentID)
	}
	return ids, nil
}

func (s *Store) StudentChatID(ctx context.Context, studentID int64) (int64, error) {
	return StudentChatID(ctx, s.DB, studentID)
}

func (s *Store) TeacherChatID(ctx context.Context, teacherID int64) (int64, error) {
	return TeacherChatID(ctx, s.DB, teacherID)
}

func (s *Store) ClassroomNotifyChat(ctx context.Context, classroomID int64) (*int64, error) {
	c, err := ClassroomByID(ctx, s.DB, classroomID)
	if err != nil || c == nil {
		return nil, err
	}
	return c.NotifyChatID, nil
}
