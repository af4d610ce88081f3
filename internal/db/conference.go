package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Spok95/telegram-classroom-bot/internal/models"
)

func CreateConference(ctx context.Context, database *sql.DB, c models.Conference) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
INSERT INTO conferences (classroom_id, name, description, date, link)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		c.ClassroomID, c.Name, c.Description, c.Date, c.Link).Scan(&id)
	return id, err
}

func ConferenceByID(ctx context.Context, database *sql.DB, id int64) (*models.Conference, error) {
	var c models.Conference
	err := database.QueryRowContext(ctx, `
SELECT id, classroom_id, name, description, date, link FROM conferences WHERE id = $1`, id).
		Scan(&c.ID, &c.ClassroomID, &c.Name, &c.Description, &c.Date, &c.Link)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func ConferencesByClassroom(ctx context.Context, database *sql.DB, classroomID int64) ([]models.Conference, error) {
	rows, err := database.QueryContext(ctx, `
SELECT id, classroom_id, name, description, date, link
FROM conferences WHERE classroom_id = $1 ORDER BY date NULLS LAST, name`, classroomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Conference
	for rows.Next() {
		var c models.Conference
		if err := rows.Scan(&c.ID, &c.ClassroomID, &c.Name, &c.Description, &c.Date, &c.Link); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func UpdateConferenceField(ctx context.Context, database *sql.DB, id int64, field string, value any) error {
	switch field {
	case "name", "description", "date", "link":
	default:
		return errors.New("db: недопустимое поле conference: " + field)
	}
	_, err := database.ExecContext(ctx, `UPDATE conferences SET `+field+` = $2 WHERE id = $1`, id, value)
	return err
}

func DeleteConference(ctx context.Context, database *sql.DB, id int64) error {
	_, err := database.ExecContext(ctx, `DELETE FROM conferences WHERE id = $1`, id)
	return err
}
