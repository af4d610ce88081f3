package models

import "time"

// TokenType — категория событий, за которые начисляются баллы.
// ClassroomID = nil — глобальный (дефолтный) тип.
type TokenType struct {
	ID          int64  `db:"id"`
	ClassroomID *int64 `db:"classroom_id"`
	Type        string `db:"type"`
	Hidden      bool   `db:"hidden"`
}

// Token — конкретный именованный экземпляр типа с ценностью;
// может быть привязан к активности.
type Token struct {
	ID          int64  `db:"id"`
	TokenTypeID int64  `db:"token_type_id"`
	Name        string `db:"name"`
	Value       int    `db:"value"`
	ActivityID  *int64 `db:"activity_id"`
}

// StudentToken / GuildToken — строки выдачи, они же леджер:
// Value — ценность на момент выдачи, рейтинг = сумма Value.
type StudentToken struct {
	ID        int64     `db:"id"`
	StudentID int64     `db:"student_id"`
	TokenID   int64     `db:"token_id"`
	Value     int       `db:"value"`
	GrantedBy int64     `db:"granted_by"`
	GrantedAt time.Time `db:"granted_at"`
}

type GuildToken struct {
	ID        int64     `db:"id"`
	GuildID   int64     `db:"guild_id"`
	TokenID   int64     `db:"token_id"`
	Value     int       `db:"value"`
	GrantedBy int64     `db:"granted_by"`
	GrantedAt time.Time `db:"granted_at"`
}
