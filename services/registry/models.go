package registry

import (
	"time"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/presentation"
)

// Group is one channel that receives recurring code prompts.
type Group struct {
	ID              int64              `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Secret          string             `json:"-" gorm:"not null"`
	Cadence         int                `json:"cadence" gorm:"not null"`
	Style           presentation.Style `json:"style" gorm:"size:16;not null"`
	Timezone        string             `json:"timezone" gorm:"size:64;not null"`
	Active          bool               `json:"active" gorm:"not null;default:false"`
	DefaultAttempts int                `json:"default_attempts" gorm:"not null;default:0"`
	Handle          string             `json:"handle" gorm:"size:36;uniqueIndex;not null"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func (Group) TableName() string {
	return "bot_groups"
}

// HasSecret reports whether codes can be derived for the group.
func (g Group) HasSecret() bool {
	return g.Secret != ""
}

// Redacted returns a copy safe to show outside the core.
func (g Group) Redacted() Group {
	if g.Secret != "" {
		g.Secret = "********"
	}
	return g
}

// Update carries a partial edit; nil fields keep the stored value.
type Update struct {
	Secret          *string
	Cadence         *int
	Style           *presentation.Style
	Timezone        *string
	Active          *bool
	DefaultAttempts *int
}

func (u Update) Empty() bool {
	return u.Secret == nil && u.Cadence == nil && u.Style == nil &&
		u.Timezone == nil && u.Active == nil && u.DefaultAttempts == nil
}
