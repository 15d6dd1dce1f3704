package models

import "time"

const (
	PurchaseKindCourse     = "COURSE"
	PurchaseKindMentorship = "MENTORSHIP"
)

const (
	PurchaseStatusPending   = "PENDING"
	PurchaseStatusCompleted = "COMPLETED"
	PurchaseStatusFailed    = "FAILED"
)

// Purchase is one money-collection attempt. Rows are created PENDING by a
// checkout initiator and moved to exactly one terminal state by the payment
// callback; they are never deleted (financial audit trail).
type Purchase struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	OrderRef  string  `gorm:"type:varchar(36);not null;uniqueIndex" json:"order_ref"`
	UserID    uint    `gorm:"not null;index" json:"user_id"`
	Kind      string  `gorm:"type:varchar(20);not null;index" json:"kind"`
	Amount    int64   `gorm:"not null" json:"amount"`
	Status    string  `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	Gateway   string  `gorm:"type:varchar(20);not null" json:"gateway"`
	Authority *string `gorm:"type:varchar(191);uniqueIndex" json:"authority,omitempty"`
	RefID     *string `gorm:"type:varchar(100)" json:"ref_id,omitempty"`
	CourseID  *uint   `gorm:"index" json:"course_id,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the purchase reached a final state.
func (p *Purchase) IsTerminal() bool {
	return p.Status == PurchaseStatusCompleted || p.Status == PurchaseStatusFailed
}
