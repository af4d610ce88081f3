package models

import "time"

// ActivityType настраивает категорию активностей: командная или
// индивидуальная, допускает ли конкретные под-активности.
type ActivityType struct {
	ID               int64   `db:"id"`
	ClassroomID      int64   `db:"classroom_id"`
	Name             string  `db:"name"`
	Description      string  `db:"description"`
	GuildBased       bool    `db:"guild_based"`
	SingleSubmission bool    `db:"single_submission"`
	FileID           *string `db:"file_id"`
}

// Activity — конкретное задание, 1:1 связано с токеном.
type Activity struct {
	ID             int64      `db:"id"`
	ActivityTypeID int64      `db:"activity_type_id"`
	TokenID        int64      `db:"token_id"`
	Name           string     `db:"name"`
	Description    string     `db:"description"`
	FileID         *string    `db:"file_id"`
	Deadline       *time.Time `db:"deadline"`
}
