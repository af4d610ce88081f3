package models

type Course struct {
	ID             int64  `db:"id"`
	Name           string `db:"name"`
	OwnerTeacherID int64  `db:"owner_teacher_id"`
}

// Classroom — секция курса. TeacherAuth/StudentAuth — секретные коды входа,
// глобально уникальные. NotifyChatID — необязательный канал уведомлений класса.
type Classroom struct {
	ID           int64  `db:"id"`
	CourseID     int64  `db:"course_id"`
	Name         string `db:"name"`
	TeacherAuth  string `db:"teacher_auth"`
	StudentAuth  string `db:"student_auth"`
	NotifyChatID *int64 `db:"notify_chat_id"`
}

type Guild struct {
	ID          int64  `db:"id"`
	ClassroomID int64  `db:"classroom_id"`
	Name        string `db:"name"`
}
