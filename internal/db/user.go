package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Spok95/telegram-classroom-bot/internal/models"
)

func GetUserByTelegramID(ctx context.Context, database *sql.DB, telegramID int64) (*models.User, error) {
	var u models.User
	err := database.QueryRowContext(ctx, `
SELECT id, telegram_id, name, created_at FROM users WHERE telegram_id = $1`, telegramID).
		Scan(&u.ID, &u.TelegramID, &u.Name, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func GetUserByID(ctx context.Context, database *sql.DB, id int64) (*models.User, error) {
	var u models.User
	err := database.QueryRowContext(ctx, `
SELECT id, telegram_id, name, created_at FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.TelegramID, &u.Name, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser идемпотентен по telegram_id: повторный /start не плодит записи.
func CreateUser(ctx context.Context, database *sql.DB, telegramID int64, name string) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
INSERT INTO users (telegram_id, name) VALUES ($1, $2)
ON CONFLICT (telegram_id) DO UPDATE SET name = EXCLUDED.name
RETURNING id`, telegramID, name).Scan(&id)
	return id, err
}

func StudentByUserID(ctx context.Context, database *sql.DB, userID int64) (*models.StudentProfile, error) {
	var p models.StudentProfile
	err := database.QueryRowContext(ctx, `
SELECT id, user_id, active_classroom_id FROM students WHERE user_id = $1`, userID).
		Scan(&p.ID, &p.UserID, &p.ActiveClassroomID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func TeacherByUserID(ctx context.Context, database *sql.DB, userID int64) (*models.TeacherProfile, error) {
	var p models.TeacherProfile
	err := database.QueryRowContext(ctx, `
SELECT id, user_id, active_classroom_id FROM teachers WHERE user_id = $1`, userID).
		Scan(&p.ID, &p.UserID, &p.ActiveClassroomID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func CreateStudent(ctx context.Context, database *sql.DB, userID int64) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
INSERT INTO students (user_id) VALUES ($1)
ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
RETURNING id`, userID).Scan(&id)
	return id, err
}

func CreateTeacher(ctx context.Context, database *sql.DB, userID int64) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
INSERT INTO teachers (user_id) VALUES ($1)
ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
RETURNING id`, userID).Scan(&id)
	return id, err
}

func SetStudentActiveClassroom(ctx context.Context, database *sql.DB, studentID int64, classroomID *int64) error {
	_, err := database.ExecContext(ctx, `
UPDATE students SET active_classroom_id = $2 WHERE id = $1`, studentID, classroomID)
	return err
}

func SetTeacherActiveClassroom(ctx context.Context, database *sql.DB, teacherID int64, classroomID *int64) error {
	_, err := database.ExecContext(ctx, `
UPDATE teachers SET active_classroom_id = $2 WHERE id = $1`, teacherID, classroomID)
	return err
}

// StudentChatID — telegram-чат ученика по id профиля (для уведомлений).
func StudentChatID(ctx context.Context, database *sql.DB, studentID int64) (int64, error) {
	var chatID int64
	err := database.QueryRowContext(ctx, `
SELECT u.telegram_id FROM students s JOIN users u ON u.id = s.user_id WHERE s.id = $1`, studentID).
		Scan(&chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return chatID, err
}

func TeacherChatID(ctx context.Context, database *sql.DB, teacherID int64) (int64, error) {
	var chatID int64
	err := database.QueryRowContext(ctx, `
SELECT u.telegram_id FROM teachers t JOIN users u ON u.id = t.user_id WHERE t.id = $1`, teacherID).
		Scan(&chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return chatID, err
}

// StudentName — имя ученика для текстов уведомлений и списков.
func StudentName(ctx context.Context, database *sql.DB, studentID int64) (string, error) {
	var name string
	err := database.QueryRowContext(ctx, `
SELECT u.name FROM students s JOIN users u ON u.id = s.user_id WHERE s.id = $1`, studentID).
		Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return name, err
}
