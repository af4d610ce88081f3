package models

import "time"

type Conference struct {
	ID          int64      `db:"id"`
	ClassroomID int64      `db:"classroom_id"`
	Name        string     `db:"name"`
	Description string     `db:"description"`
	Date        *time.Time `db:"date"`
	Link        *string    `db:"link"`
}

type PracticClass struct {
	ID          int64  `db:"id"`
	ClassroomID int64  `db:"classroom_id"`
	Name        string `db:"name"`
	Description string `db:"description"`
}

type PracticClassExercise struct {
	ID             int64   `db:"id"`
	PracticClassID int64   `db:"practic_class_id"`
	Name           string  `db:"name"`
	FileID         *string `db:"file_id"`
}
