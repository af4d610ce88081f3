package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Spok95/telegram-classroom-bot/internal/models"
)

func CreateGuild(ctx context.Context, database *sql.DB, classroomID int64, name string) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
INSERT INTO guilds (classroom_id, name) VALUES ($1, $2) RETURNING id`, classroomID, name).Scan(&id)
	return id, err
}

func GuildByID(ctx context.Context, database *sql.DB, id int64) (*models.Guild, error) {
	var g models.Guild
	err := database.QueryRowContext(ctx, `
SELECT id, classroom_id, name FROM guilds WHERE id = $1`, id).Scan(&g.ID, &g.ClassroomID, &g.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func GuildsByClassroom(ctx context.Context, database *sql.DB, classroomID int64) ([]models.Guild, error) {
	rows, err := database.QueryContext(ctx, `
SELECT id, classroom_id, name FROM guilds WHERE classroom_id = $1 ORDER BY name`, classroomID)
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

func RenameGuild(ctx context.Context, database *sql.DB, id int64, name string) error {
	_, err := database.ExecContext(ctx, `UPDATE guilds SET name = $2 WHERE id = $1`, id, name)
	return err
}

func DeleteGuild(ctx context.Context, database *sql.DB, id int64) error {
	_, err := database.ExecContext(ctx, `DELETE FROM guilds WHERE id = $1`, id)
	return err
}

func AddGuildMember(ctx context.Context, database *sql.DB, guildID, studentID int64) error {
	_, err := database.ExecContext(ctx, `
INSERT INTO guild_students (guild_id, student_id) VALUES ($1, $2)
ON CONFLICT DO NOTHING`, guildID, studentID)
	return err
}

func RemoveGuildMember(ctx context.Context, database *sql.DB, guildID, studentID int64) error {
	_, err := database.ExecContext(ctx, `
DELETE FROM guild_students WHERE guild_id = $1 AND student_id = $2`, guildID, studentID)
	return err
}

func GuildMembers(ctx context.Context, database *sql.DB, guildID int64) ([]StudentRow, error) {
	rows, err := database.QueryContext(ctx, `
SELECT s.id, u.name
FROM guild_students gs
JOIN students s ON s.id = gs.student_id
JOIN users u ON u.id = s.user_id
WHERE gs.guild_id = $1
ORDER BY u.name`, guildID)
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

// GuildOfStudent — гильдия ученика в данном классе, nil если не состоит.
func GuildOfStudent(ctx context.Context, database *sql.DB, classroomID, studentID int64) (*models.Guild, error) {
	var g models.Guild
	err := database.QueryRowContext(ctx, `
SELECT g.id, g.classroom_id, g.name
FROM guild_students gs
JOIN guilds g ON g.id = gs.guild_id
WHERE gs.student_id = $1 AND g.classroom_id = $2`, studentID, classroomID).
		Scan(&g.ID, &g.ClassroomID, &g.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// StudentsWithoutGuild — ученики класса, ещё не состоящие ни в одной его
// гильдии; только их предлагаем при добавлении (одна гильдия на класс).
func StudentsWithoutGuild(ctx context.Context, database *sql.DB, classroomID int64) ([]StudentRow, error) {
	rows, err := database.QueryContext(ctx, `
SELECT s.id, u.name
FROM student_classroom sc
JOIN students s ON s.id = sc.student_id
JOIN users u ON u.id = s.user_id
WHERE sc.classroom_id = $1
  AND NOT EXISTS (
    SELECT 1 FROM guild_students gs
    JOIN guilds g ON g.id = gs.guild_id
    WHERE gs.student_id = s.id AND g.classroom_id = $1)
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
