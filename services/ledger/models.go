package ledger

import "time"

// Attempt is the per (group, user) attempt budget.
type Attempt struct {
	GroupID   int64     `json:"group_id" gorm:"primaryKey;autoIncrement:false"`
	UserID    int64     `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	Remaining int       `json:"remaining" gorm:"not null;default:0"`
	Blocked   bool      `json:"blocked" gorm:"not null;default:false"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Attempt) TableName() string {
	return "attempts"
}

type key struct {
	group int64
	user  int64
}

func keyOf(a Attempt) key {
	return key{group: a.GroupID, user: a.UserID}
}
