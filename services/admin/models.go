package admin

import "time"

// Admin is one member of the admin identity set.
type Admin struct {
	UserID    int64     `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	AddedBy   int64     `json:"added_by"`
	CreatedAt time.Time `json:"created_at"`
}

func (Admin) TableName() string {
	return "admins"
}

// Confirmation is a pending group deletion awaiting its second step.
type Confirmation struct {
	Token       string    `json:"token"`
	GroupID     int64     `json:"group_id"`
	RequestedBy int64     `json:"requested_by"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (c Confirmation) expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
