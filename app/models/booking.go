package models

import "time"

const (
	BookingStatusPending   = "PENDING"
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusCanceled  = "CANCELED"
)

// Booking links a student, a mentor's time slot and the purchase paying for
// it. It is created together with the purchase during checkout and confirmed
// only after the purchase completed.
type Booking struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	StudentID   uint   `gorm:"not null;index" json:"student_id"`
	TimeSlotID  uint   `gorm:"not null;index" json:"time_slot_id"`
	PurchaseID  uint   `gorm:"not null;index" json:"purchase_id"`
	Status      string `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	MeetingLink string `gorm:"type:varchar(255)" json:"meeting_link"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
