package models

import "time"

type PendingStatus string

const (
	PendingOpen     PendingStatus = "pending"
	PendingApproved PendingStatus = "approved"
	PendingRejected PendingStatus = "rejected"
)

type MoreInfo string

const (
	MoreInfoNone      MoreInfo = ""
	MoreInfoRequested MoreInfo = "requested"
	MoreInfoSent      MoreInfo = "sent"
)

// Pending — заявка на баллы. Для гильдейской заявки StudentID хранит
// первого участника гильдии (номинальный ученик), GuildID — саму гильдию.
// TeacherID — прямой назначенный проверяющий (direct pending).
type Pending struct {
	ID          int64         `db:"id"`
	StudentID   int64         `db:"student_id"`
	ClassroomID int64         `db:"classroom_id"`
	TokenTypeID int64         `db:"token_type_id"`
	TokenID     *int64        `db:"token_id"`
	GuildID     *int64        `db:"guild_id"`
	TeacherID   *int64        `db:"teacher_id"`
	Status      PendingStatus `db:"status"`
	MoreInfo    MoreInfo      `db:"more_info"`
	Text        string        `db:"text"`
	FileID      *string       `db:"file_id"`
	Explanation *string       `db:"explanation"`
	ApprovedBy  *int64        `db:"approved_by"`
	CreatedAt   time.Time     `db:"created_at"`
	ResolvedAt  *time.Time    `db:"resolved_at"`
}
