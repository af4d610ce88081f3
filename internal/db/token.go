package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Spok95/telegram-classroom-bot/internal/models"
)

func CreateTokenType(ctx context.Context, database *sql.DB, classroomID *int64, typ string) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
INSERT INTO token_types (classroom_id, type) VALUES ($1, $2) RETURNING id`, classroomID, typ).Scan(&id)
	return id, err
}

func TokenTypeByID(ctx context.Context, database *sql.DB, id int64) (*models.TokenType, error) {
	var tt models.TokenType
	err := database.QueryRowContext(ctx, `
SELECT id, classroom_id, type, hidden FROM token_types WHERE id = $1`, id).
		Scan(&tt.ID, &tt.ClassroomID, &tt.Type, &tt.Hidden)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tt, nil
}

// TokenTypesForClassroom — типы класса плюс глобальные, без скрытых.
func TokenTypesForClassroom(ctx context.Context, database *sql.DB, classroomID int64) ([]models.TokenType, error) {
	rows, err := database.QueryContext(ctx, `
SELECT id, classroom_id, type, hidden FROM token_types
WHERE (classroom_id = $1 OR classroom_id IS NULL) AND NOT hidden
ORDER BY type`, classroomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TokenType
	for rows.Next() {
		var tt models.TokenType
		if err := rows.Scan(&tt.ID, &tt.ClassroomID, &tt.Type, &tt.Hidden); err != nil {
			return nil, err
		}
		out = append(out, tt)
	}
	return out, rows.Err()
}

func CreateToken(ctx context.Context, database *sql.DB, t models.Token) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
INSERT INTO tokens (token_type_id, name, value, activity_id)
VALUES ($1, $2, $3, $4) RETURNING id`, t.TokenTypeID, t.Name, t.Value, t.ActivityID).Scan(&id)
	return id, err
}

func TokenByID(ctx context.Context, database *sql.DB, id int64) (*models.Token, error) {
	var t models.Token
	err := database.QueryRowContext(ctx, `
SELECT id, token_type_id, name, value, activity_id FROM tokens WHERE id = $1`, id).
		Scan(&t.ID, &t.TokenTypeID, &t.Name, &t.Value, &t.ActivityID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GrantStudentToken — строка леджера; value фиксируется на момент выдачи.
// Возвращает false, если токен у ученика уже был (повторная выдача — no-op).
func GrantStudentToken(ctx context.Context, database *sql.DB, studentID, tokenID int64, value int, grantedBy int64, at time.Time) (bool, error) {
	res, err := database.ExecContext(ctx, `
INSERT INTO student_tokens (student_id, token_id, value, granted_by, granted_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (student_id, token_id) DO NOTHING`, studentID, tokenID, value, grantedBy, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func GrantGuildToken(ctx context.Context, database *sql.DB, guildID, tokenID int64, value int, grantedBy int64, at time.Time) (bool, error) {
	res, err := database.ExecContext(ctx, `
INSERT INTO guild_tokens (guild_id, token_id, value, granted_by, granted_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (guild_id, token_id) DO NOTHING`, guildID, tokenID, value, grantedBy, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func StudentHasToken(ctx context.Context, database *sql.DB, studentID, tokenID int64) (bool, error) {
	var one int
	err := database.QueryRowContext(ctx, `
SELECT 1 FROM student_tokens WHERE student_id = $1 AND token_id = $2`, studentID, tokenID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// StudentTotal — рейтинг ученика: сумма ценностей выданных токенов.
func StudentTotal(ctx context.Context, database *sql.DB, studentID int64) (int, error) {
	var total int
	err := database.QueryRowContext(ctx, `
SELECT COALESCE(SUM(value), 0) FROM student_tokens WHERE student_id = $1`, studentID).Scan(&total)
	return total, err
}

// StudentsWithoutToken — ученики класса без данного токена
// (кандидаты ручной проверки активности).
func StudentsWithoutToken(ctx context.Context, database *sql.DB, classroomID, tokenID int64) ([]StudentRow, error) {
	rows, err := database.QueryContext(ctx, `
SELECT s.id, u.name
FROM student_classroom sc
JOIN students s ON s.id = sc.student_id
JOIN users u ON u.id = s.user_id
WHERE sc.classroom_id = $1
  AND NOT EXISTS (SELECT 1 FROM student_tokens st WHERE st.student_id = s.id AND st.token_id = $2)
ORDER BY u.name`, classroomID, tokenID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StudentRow
	for rows.Next() {
		var r StudentRow
		if err := rows.Scan(&r.StudentID, &r.Name); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func GuildsWithoutToken(ctx context.Context, database *sql.DB, classroomID, tokenID int64) ([]models.Guild, error) {
	rows, err := database.QueryContext(ctx, `
SELECT g.id, g.classroom_id, g.name
FROM guilds g
WHERE g.classroom_id = $1
  AND NOT EXISTS (SELECT 1 FROM guild_tokens gt WHERE gt.guild_id = g.id AND gt.token_id = $2)
ORDER BY g.name`, classroomID, tokenID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Guild
	for rows.Next() {
		var g models.Guild
		if err := rows.Scan(&g.ID, &g.ClassroomID, &g.Name); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// HistoryRow — строка истории выдач для экспорта.
type HistoryRow struct {
	StudentName string
	TokenName   string
	Value       int
	GrantedAt   time.Time
}

func GrantHistoryByClassroom(ctx context.Context, database *sql.DB, classroomID int64) ([]HistoryRow, error) {
	rows, err := database.QueryContext(ctx, `
SELECT u.name, t.name, st.value, st.granted_at
FROM student_tokens st
JOIN tokens t ON t.id = st.token_id
JOIN students s ON s.id = st.student_id
JOIN users u ON u.id = s.user_id
JOIN student_classroom sc ON sc.student_id = s.id AND sc.classroom_id = $1
ORDER BY st.granted_at DESC`, classroomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryRow
	for rows.Next() {
		var h HistoryRow
		if err := rows.Scan(&h.StudentName, &h.TokenName, &h.Value, &h.GrantedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
