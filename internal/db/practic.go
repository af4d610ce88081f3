package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Spok95/telegram-classroom-bot/internal/models"
)

func CreatePracticClass(ctx context.Context, database *sql.DB, p models.PracticClass) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
INSERT INTO practic_classes (classroom_id, name, description)
VALUES ($1, $2, $3) RETURNING id`, p.ClassroomID, p.Name, p.Description).Scan(&id)
	return id, err
}

func PracticClassByID(ctx context.Context, database *sql.DB, id int64) (*models.PracticClass, error) {
	var p models.PracticClass
	err := database.QueryRowContext(ctx, `
SELECT id, classroom_id, name, description FROM practic_classes WHERE id = $1`, id).
		Scan(&p.ID, &p.ClassroomID, &p.Name, &p.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func PracticClassesByClassroom(ctx context.Context, database *sql.DB, classroomID int64) ([]models.PracticClass, error) {
	rows, err := database.QueryContext(ctx, `
SELECT id, classroom_id, name, description
FROM practic_classes WHERE classroom_id = $1 ORDER BY name`, classroomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PracticClass
	for rows.Next() {
		var p models.PracticClass
		if err := rows.Scan(&p.ID, &p.ClassroomID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func UpdatePracticClassField(ctx context.Context, database *sql.DB, id int64, field string, value any) error {
	switch field {
	case "name", "description":
	default:
		return errors.New("db: недопустимое поле practic_class: " + field)
	}
	_, err := database.ExecContext(ctx, `UPDATE practic_classes SET `+field+` = $2 WHERE id = $1`, id, value)
	return err
}

func DeletePracticClass(ctx context.Context, database *sql.DB, id int64) error {
	_, err := database.ExecContext(ctx, `DELETE FROM practic_classes WHERE id = $1`, id)
	return err
}

func CreatePracticExercise(ctx context.Context, database *sql.DB, e models.PracticClassExercise) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
INSERT INTO practic_class_exercises (practic_class_id, name, file_id)
VALUES ($1, $2, $3) RETURNING id`, e.PracticClassID, e.Name, e.FileID).Scan(&id)
	return id, err
}

func PracticExercisesByClass(ctx context.Context, database *sql.DB, practicClassID int64) ([]models.PracticClassExercise, error) {
	rows, err := database.QueryContext(ctx, `
SELECT id, practic_class_id, name, file_id
FROM practic_class_exercises WHERE practic_class_id = $1 ORDER BY name`, practicClassID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PracticClassExercise
	for rows.Next() {
		var e models.PracticClassExercise
		if err := rows.Scan(&e.ID, &e.PracticClassID, &e.Name, &e.FileID); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func DeletePracticExercise(ctx context.Context, database *sql.DB, id int64) error {
	_, err := database.ExecContext(ctx, `DELETE FROM practic_class_exercises WHERE id = $1`, id)
	return err
}
