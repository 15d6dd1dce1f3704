package models

import "time"

const (
	TimeSlotStatusAvailable = "AVAILABLE"
	TimeSlotStatusBooked    = "BOOKED"
)

// TimeSlot is a mentor-declared bookable interval. Status is mutated only by
// the reservation package; UI-facing code never flips it directly.
type TimeSlot struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MentorID  uint      `gorm:"not null;index;uniqueIndex:ux_time_slots_mentor_start,priority:1" json:"mentor_id"`
	StartTime time.Time `gorm:"not null;uniqueIndex:ux_time_slots_mentor_start,priority:2" json:"start_time"`
	EndTime   time.Time `gorm:"not null" json:"end_time"`
	Status    string    `gorm:"type:varchar(20);not null;default:'AVAILABLE';index" json:"status"`
	Title     string    `gorm:"type:varchar(150)" json:"title"`
	Color     string    `gorm:"type:varchar(20)" json:"color"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsAvailable reports whether the slot can still be reserved.
func (s *TimeSlot) IsAvailable() bool {
	return s.Status == TimeSlotStatusAvailable
}
