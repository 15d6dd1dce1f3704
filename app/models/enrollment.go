package models

import "time"

// Enrollment is the proof that a user may access a course. Created exactly
// once per (user, course), either by a completed COURSE purchase or directly
// for free courses.
type Enrollment struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	UserID   uint `gorm:"not null;uniqueIndex:ux_enrollments_user_course,priority:1" json:"user_id"`
	CourseID uint `gorm:"not null;uniqueIndex:ux_enrollments_user_course,priority:2" json:"course_id"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
