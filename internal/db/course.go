package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Spok95/telegram-classroom-bot/internal/models"
)

func CreateCourse(ctx context.Context, database *sql.DB, name string, ownerTeacherID int64) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
INSERT INTO courses (name, owner_teacher_id) VALUES ($1, $2) RETURNING id`, name, ownerTeacherID).Scan(&id)
	return id, err
}

func CourseByID(ctx context.Context, database *sql.DB, id int64) (*models.Course, error) {
	var c models.Course
	err := database.QueryRowContext(ctx, `
SELECT id, name, owner_teacher_id FROM courses WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.OwnerTeacherID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func CoursesByOwner(ctx context.Context, database *sql.DB, teacherID int64) ([]models.Course, error) {
	rows, err := database.QueryContext(ctx, `
SELECT id, name, owner_teacher_id FROM courses WHERE owner_teacher_id = $1 ORDER BY name`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Course
	for rows.Next() {
		var c models.Course
		if err := rows.Scan(&c.ID, &c.Name, &c.OwnerTeacherID); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func RenameCourse(ctx context.Context, database *sql.DB, id int64, name string) error {
	_, err := database.ExecContext(ctx, `UPDATE courses SET name = $2 WHERE id = $1`, id, name)
	return err
}

func TransferCourse(ctx context.Context, database *sql.DB, id, newOwnerTeacherID int64) error {
	_, err := database.ExecContext(ctx, `
UPDATE courses SET owner_teacher_id = $2 WHERE id = $1`, id, newOwnerTeacherID)
	return err
}

// DeleteCourse удаляет курс со всем поддеревом (каскады в схеме) и
// сбрасывает активный класс у всех, кто указывал внутрь поддерева, чтобы
// не осталось висячих ссылок в сессиях.
func DeleteCourse(ctx context.Context, database *sql.DB, id int64) error {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
UPDATE students SET active_classroom_id = NULL
WHERE active_classroom_id IN (SELECT id FROM classrooms WHERE course_id = $1)`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE teachers SET active_classroom_id = NULL
WHERE active_classroom_id IN (SELECT id FROM classrooms WHERE course_id = $1)`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id); err != nil {
		return err
	}
	return tx.Commit()
}
