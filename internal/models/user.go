package models

import "time"

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

type User struct {
	ID         int64     `db:"id"`
	TelegramID int64     `db:"telegram_id"`
	Name       string    `db:"name"`
	CreatedAt  time.Time `db:"created_at"`
}

// StudentProfile — специализация User (1:1 по user_id).
// ActiveClassroomID — класс, в который пользователь сейчас «залогинен».
type StudentProfile struct {
	ID                int64  `db:"id"`
	UserID            int64  `db:"user_id"`
	ActiveClassroomID *int64 `db:"active_classroom_id"`
}

type TeacherProfile struct {
	ID                int64  `db:"id"`
	UserID            int64  `db:"user_id"`
	ActiveClassroomID *int64 `db:"active_classroom_id"`
}
