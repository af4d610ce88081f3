package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/Spok95/telegram-classroom-bot/internal/models"
)

// NewAuthCode — секретный код входа. UUID даёт глобальную уникальность,
// уникальный индекс в схеме страхует от коллизий.
func NewAuthCode() string { return uuid.NewString() }

func CreateClassroom(ctx context.Context, database *sql.DB, courseID int64, name string) (*models.Classroom, error) {
	c := models.Classroom{
		CourseID:    courseID,
		Name:        name,
		TeacherAuth: NewAuthCode(),
		StudentAuth: NewAuthCode(),
	}
	err := database.QueryRowContext(ctx, `
INSERT INTO classrooms (course_id, name, teacher_auth, student_auth)
VALUES ($1, $2, $3, $4) RETURNING id`, c.CourseID, c.Name, c.TeacherAuth, c.StudentAuth).Scan(&c.ID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanClassroom(row *sql.Row) (*models.Classroom, error) {
	var c models.Classroom
	err := row.Scan(&c.ID, &c.CourseID, &c.Name, &c.TeacherAuth, &c.StudentAuth, &c.NotifyChatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func ClassroomByID(ctx context.Context, database *sql.DB, id int64) (*models.Classroom, error) {
	return scanClassroom(database.QueryRowContext(ctx, `
SELECT id, course_id, name, teacher_auth, student_auth, notify_chat_id
FROM classrooms WHERE id = $1`, id))
}

func ClassroomByTeacherAuth(ctx context.Context, database *sql.DB, code string) (*models.Classroom, error) {
	return scanClassroom(database.QueryRowContext(ctx, `
SELECT id, course_id, name, teacher_auth, student_auth, notify_chat_id
FROM classrooms WHERE teacher_auth = $1`, code))
}

func ClassroomByStudentAuth(ctx context.Context, database *sql.DB, code string) (*models.Classroom, error) {
	return scanClassroom(database.QueryRowContext(ctx, `
SELECT id, course_id, name, teacher_auth, student_auth, notify_chat_id
FROM classrooms WHERE student_auth = $1`, code))
}

func ClassroomsByCourse(ctx context.Context, database *sql.DB, courseID int64) ([]models.Classroom, error) {
	rows, err := database.QueryContext(ctx, `
SELECT id, course_id, name, teacher_auth, student_auth, notify_chat_id
FROM classrooms WHERE course_id = $1 ORDER BY name`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Classroom
	for rows.Next() {
		var c models.Classroom
		if err := rows.Scan(&c.ID, &c.CourseID, &c.Name, &c.TeacherAuth, &c.StudentAuth, &c.NotifyChatID); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func RenameClassroom(ctx context.Context, database *sql.DB, id int64, name string) error {
	_, err := database.ExecContext(ctx, `UPDATE classrooms SET name = $2 WHERE id = $1`, id, name)
	return err
}

// SetClassroomAuth меняет один из кодов входа. Нарушение уникальности
// отдаём наружу: сценарий просит другой код, черновик не трогаем.
func SetClassroomAuth(ctx context.Context, database *sql.DB, id int64, role models.Role, code string) error {
	col := "student_auth"
	if role == models.RoleTeacher {
		col = "teacher_auth"
	}
	_, err := database.ExecContext(ctx, `UPDATE classrooms SET `+col+` = $2 WHERE id = $1`, id, code)
	return err
}

func SetClassroomNotifyChat(ctx context.Context, database *sql.DB, id int64, chatID *int64) error {
	_, err := database.ExecContext(ctx, `UPDATE classrooms SET notify_chat_id = $2 WHERE id = $1`, id, chatID)
	return err
}

func DeleteClassroom(ctx context.Context, database *sql.DB, id int64) error {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
UPDATE students SET active_classroom_id = NULL WHERE active_classroom_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE teachers SET active_classroom_id = NULL WHERE active_classroom_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM classrooms WHERE id = $1`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// AddStudentToClassroom идемпотентен: повторный ввод того же кода не
// создаёт дубликат связи.
func AddStudentToClassroom(ctx context.Context, database *sql.DB, studentID, classroomID int64) error {
	_, err := database.ExecContext(ctx, `
INSERT INTO student_classroom (student_id, classroom_id) VALUES ($1, $2)
ON CONFLICT DO NOTHING`, studentID, classroomID)
	return err
}

func AddTeacherToClassroom(ctx context.Context, database *sql.DB, teacherID, classroomID int64) error {
	_, err := database.ExecContext(ctx, `
INSERT INTO teacher_classroom (teacher_id, classroom_id) VALUES ($1, $2)
ON CONFLICT DO NOTHING`, teacherID, classroomID)
	return err
}

type StudentRow struct {
	StudentID int64
	Name      string
}

func StudentsByClassroom(ctx context.Context, database *sql.DB, classroomID int64) ([]StudentRow, error) {
	rows, err := database.QueryContext(ctx, `
SELECT s.id, u.name
FROM student_classroom sc
JOIN students s ON s.id = sc.student_id
JOIN users u ON u.id = s.user_id
WHERE sc.classroom_id = $1
ORDER BY u.name`, classroomID)
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

func TeachersByClassroom(ctx context.Context, database *sql.DB, classroomID int64) ([]StudentRow, error) {
	rows, err := database.QueryContext(ctx, `
SELECT t.id, u.name
FROM teacher_classroom tc
JOIN teachers t ON t.id = tc.teacher_id
JOIN users u ON u.id = t.user_id
WHERE tc.classroom_id = $1
ORDER BY u.name`, classroomID)
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
