package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// MentorProfile holds the bookable side of a mentor account. HourlyRate is in
// toman and prices every slot the mentor declares.
type MentorProfile struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	UserID     uint   `gorm:"not null;uniqueIndex" json:"user_id"`
	HourlyRate int64  `gorm:"not null;default:0" json:"hourly_rate" validate:"gte=0"`
	Headline   string `gorm:"type:varchar(200)" json:"headline"`
	Bio        string `gorm:"type:text" json:"bio" validate:"max=2000"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (m *MentorProfile) Validate() error {
	v := validator.New()

	return v.Struct(m)
}
