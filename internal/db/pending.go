package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Spok95/telegram-classroom-bot/internal/models"
)

func CreatePending(ctx context.Context, database *sql.DB, p models.Pending) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
INSERT INTO pendings (student_id, classroom_id, token_type_id, token_id, guild_id, teacher_id,
                      status, more_info, text, file_id, explanation, approved_by, created_at, resolved_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING id`,
		p.StudentID, p.ClassroomID, p.TokenTypeID, p.TokenID, p.GuildID, p.TeacherID,
		p.Status, p.MoreInfo, p.Text, p.FileID, p.Explanation, p.ApprovedBy, p.CreatedAt, p.ResolvedAt).Scan(&id)
	return id, err
}

const pendingCols = `id, student_id, classroom_id, token_type_id, token_id, guild_id, teacher_id,
status, more_info, text, file_id, explanation, approved_by, created_at, resolved_at`

func scanPending(sc interface{ Scan(...any) error }) (*models.Pending, error) {
	var p models.Pending
	err := sc.Scan(&p.ID, &p.StudentID, &p.ClassroomID, &p.TokenTypeID, &p.TokenID, &p.GuildID,
		&p.TeacherID, &p.Status, &p.MoreInfo, &p.Text, &p.FileID, &p.Explanation,
		&p.ApprovedBy, &p.CreatedAt, &p.ResolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func PendingByID(ctx context.Context, database *sql.DB, id int64) (*models.Pending, error) {
	return scanPending(database.QueryRowContext(ctx,
		`SELECT `+pendingCols+` FROM pendings WHERE id = $1`, id))
}

func queryPendings(ctx context.Context, database *sql.DB, query string, args ...any) ([]models.Pending, error) {
	rows, err := database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Pending
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// OpenPendings — общая очередь класса: открытые заявки без прямого
// назначенного (назначенные видны только своему проверяющему и в «всех»).
func OpenPendings(ctx context.Context, database *sql.DB, classroomID int64) ([]models.Pending, error) {
	return queryPendings(ctx, database, `
SELECT `+pendingCols+` FROM pendings
WHERE classroom_id = $1 AND status = 'pending' AND teacher_id IS NULL
ORDER BY created_at`, classroomID)
}

// DirectPendings — открытые заявки, назначенные лично проверяющему.
func DirectPendings(ctx context.Context, database *sql.DB, classroomID, teacherID int64) ([]models.Pending, error) {
	return queryPendings(ctx, database, `
SELECT `+pendingCols+` FROM pendings
WHERE classroom_id = $1 AND status = 'pending' AND teacher_id = $2
ORDER BY created_at`, classroomID, teacherID)
}

// AllPendings — нефильтрованный вид, включая назначенные и закрытые.
func AllPendings(ctx context.Context, database *sql.DB, classroomID int64) ([]models.Pending, error) {
	return queryPendings(ctx, database, `
SELECT `+pendingCols+` FROM pendings
WHERE classroom_id = $1
ORDER BY created_at DESC`, classroomID)
}

// ResolvePending — условный перевод pending → approved/rejected.
// false — заявка уже была закрыта (защита от двойного начисления).
func ResolvePending(ctx context.Context, database *sql.DB, id int64, to models.PendingStatus, approvedBy int64, at time.Time, explanation *string) (bool, error) {
	res, err := database.ExecContext(ctx, `
UPDATE pendings
SET status = $2, approved_by = $3, resolved_at = $4, explanation = COALESCE($5, explanation)
WHERE id = $1 AND status = 'pending'`, id, to, approvedBy, at, explanation)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// AssignPending проставляет прямого проверяющего, статус не меняется.
func AssignPending(ctx context.Context, database *sql.DB, id, teacherID int64) (bool, error) {
	res, err := database.ExecContext(ctx, `
UPDATE pendings SET teacher_id = $2 WHERE id = $1 AND status = 'pending'`, id, teacherID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func SetPendingMoreInfo(ctx context.Context, database *sql.DB, id int64, flag models.MoreInfo) (bool, error) {
	res, err := database.ExecContext(ctx, `
UPDATE pendings SET more_info = $2 WHERE id = $1 AND status = 'pending'`, id, flag)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// AppendPendingText дописывает ответ ученика к тексту заявки.
func AppendPendingText(ctx context.Context, database *sql.DB, id int64, addition string) error {
	_, err := database.ExecContext(ctx, `
UPDATE pendings SET text = text || E'\n' || $2 WHERE id = $1`, id, addition)
	return err
}

// PendingAwaitingInfo — открытая заявка ученика с запрошенным уточнением
// (его ответ относится к ней).
func PendingAwaitingInfo(ctx context.Context, database *sql.DB, studentID int64) (*models.Pending, error) {
	return scanPending(database.QueryRowContext(ctx, `
SELECT `+pendingCols+` FROM pendings
WHERE student_id = $1 AND status = 'pending' AND more_info = 'requested'
ORDER BY created_at DESC
LIMIT 1`, studentID))
}
