package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Spok95/telegram-classroom-bot/internal/models"
)

func CreateActivityType(ctx context.Context, database *sql.DB, at models.ActivityType) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
INSERT INTO activity_types (classroom_id, name, description, guild_based, single_submission, file_id)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		at.ClassroomID, at.Name, at.Description, at.GuildBased, at.SingleSubmission, at.FileID).Scan(&id)
	return id, err
}

func ActivityTypeByID(ctx context.Context, database *sql.DB, id int64) (*models.ActivityType, error) {
	var at models.ActivityType
	err := database.QueryRowContext(ctx, `
SELECT id, classroom_id, name, description, guild_based, single_submission, file_id
FROM activity_types WHERE id = $1`, id).
		Scan(&at.ID, &at.ClassroomID, &at.Name, &at.Description, &at.GuildBased, &at.SingleSubmission, &at.FileID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &at, nil
}

func ActivityTypesByClassroom(ctx context.Context, database *sql.DB, classroomID int64) ([]models.ActivityType, error) {
	rows, err := database.QueryContext(ctx, `
SELECT id, classroom_id, name, description, guild_based, single_submission, file_id
FROM activity_types WHERE classroom_id = $1 ORDER BY name`, classroomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ActivityType
	for rows.Next() {
		var at models.ActivityType
		if err := rows.Scan(&at.ID, &at.ClassroomID, &at.Name, &at.Description, &at.GuildBased, &at.SingleSubmission, &at.FileID); err != nil {
			return nil, err
		}
		out = append(out, at)
	}
	return out, rows.Err()
}

func UpdateActivityTypeField(ctx context.Context, database *sql.DB, id int64, field string, value any) error {
	switch field {
	case "name", "description", "file_id":
	default:
		return errors.New("db: недопустимое поле activity_type: " + field)
	}
	_, err := database.ExecContext(ctx, `UPDATE activity_types SET `+field+` = $2 WHERE id = $1`, id, value)
	return err
}

func DeleteActivityType(ctx context.Context, database *sql.DB, id int64) error {
	_, err := database.ExecContext(ctx, `DELETE FROM activity_types WHERE id = $1`, id)
	return err
}

// CreateActivity создаёт задание вместе с его токеном (связь 1:1)
// в одной транзакции.
func CreateActivity(ctx context.Context, database *sql.DB, a models.Activity, tokenTypeID int64, value int) (int64, error) {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var tokenID int64
	if err := tx.QueryRowContext(ctx, `
INSERT INTO tokens (token_type_id, name, value) VALUES ($1, $2, $3) RETURNING id`,
		tokenTypeID, a.Name, value).Scan(&tokenID); err != nil {
		return 0, err
	}

	var id int64
	if err := tx.QueryRowContext(ctx, `
INSERT INTO activities (activity_type_id, token_id, name, description, file_id, deadline)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		a.ActivityTypeID, tokenID, a.Name, a.Description, a.FileID, a.Deadline).Scan(&id); err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE tokens SET activity_id = $2 WHERE id = $1`, tokenID, id); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func ActivityByID(ctx context.Context, database *sql.DB, id int64) (*models.Activity, error) {
	var a models.Activity
	err := database.QueryRowContext(ctx, `
SELECT id, activity_type_id, token_id, name, description, file_id, deadline
FROM activities WHERE id = $1`, id).
		Scan(&a.ID, &a.ActivityTypeID, &a.TokenID, &a.Name, &a.Description, &a.FileID, &a.Deadline)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func ActivitiesByType(ctx context.Context, database *sql.DB, activityTypeID int64) ([]models.Activity, error) {
	rows, err := database.QueryContext(ctx, `
SELECT id, activity_type_id, token_id, name, description, file_id, deadline
FROM activities WHERE activity_type_id = $1 ORDER BY name`, activityTypeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Activity
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(&a.ID, &a.ActivityTypeID, &a.TokenID, &a.Name, &a.Description, &a.FileID, &a.Deadline); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func UpdateActivityField(ctx context.Context, database *sql.DB, id int64, field string, value any) error {
	switch field {
	case "name", "description", "file_id", "deadline":
	default:
		return errors.New("db: недопустимое поле activity: " + field)
	}
	_, err := database.ExecContext(ctx, `UPDATE activities SET `+field+` = $2 WHERE id = $1`, id, value)
	return err
}

func DeleteActivity(ctx context.Context, database *sql.DB, id int64) error {
	_, err := database.ExecContext(ctx, `DELETE FROM activities WHERE id = $1`, id)
	return err
}

// DueActivity — кандидат на напоминание о дедлайне.
type DueActivity struct {
	ID           int64
	Name         string
	Deadline     time.Time
	NotifyChatID *int64
}

// ActivitiesDueWithin — задания с дедлайном в ближайшем окне, по которым
// ещё не напоминали.
func ActivitiesDueWithin(ctx context.Context, database *sql.DB, within time.Duration, limit int) ([]DueActivity, error) {
	rows, err := database.QueryContext(ctx, `
SELECT a.id, a.name, a.deadline, c.notify_chat_id
FROM activities a
JOIN activity_types at ON at.id = a.activity_type_id
JOIN classrooms c ON c.id = at.classroom_id
WHERE a.deadline IS NOT NULL
  AND NOT a.reminded
  AND a.deadline BETWEEN now() AND now() + make_interval(secs => $1)
LIMIT $2`, within.Seconds(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DueActivity
	for rows.Next() {
		var d DueActivity
		if err := rows.Scan(&d.ID, &d.Name, &d.Deadline, &d.NotifyChatID); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func MarkActivitiesReminded(ctx context.Context, database *sql.DB, ids []int64) error {
	for _, id := range ids {
		if _, err := database.ExecContext(ctx, `UPDATE activities SET reminded = true WHERE id = $1`, id); err != nil {
			return err
		}
	}
	return nil
}
