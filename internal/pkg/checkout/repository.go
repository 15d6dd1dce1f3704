package checkout

import (
	"errors"

	"github.com/anahno/coursehub/app/models"
	"github.com/anahno/coursehub/internal/pkg/reservation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository owns the purchase ledger rows plus the enrollment writes that
// hang off a completed course purchase.
type Repository interface {
	GetCourse(courseID uint) (*models.Course, error)
	IsEnrolled(userID, courseID uint) (bool, error)
	CreateEnrollment(userID, courseID uint) (bool, error)
	CreatePurchase(p *models.Purchase) error
	SetAuthority(purchaseID uint, authority string) error
	GetPurchase(purchaseID uint) (*models.Purchase, error)
	GetPurchaseByAuthority(authority string) (*models.Purchase, error)
	CompletePurchase(p *models.Purchase, refID string) (bool, error)
	FailPurchase(p *models.Purchase) (bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a checkout repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetCourse(courseID uint) (*models.Course, error) {
	var course models.Course
	if err := r.db.First(&course, courseID).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *gormRepository) IsEnrolled(userID, courseID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error
	return count > 0, err
}

// CreateEnrollment inserts the (user, course) pair, backed by the unique
// index so a duplicate is a silent no-op. Returns whether a row was created.
func (r *gormRepository) CreateEnrollment(userID, courseID uint) (bool, error) {
	enrollment := models.Enrollment{UserID: userID, CourseID: courseID}
	tx := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&enrollment)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) CreatePurchase(p *models.Purchase) error {
	return r.db.Create(p).Error
}

func (r *gormRepository) SetAuthority(purchaseID uint, authority string) error {
	return r.db.Model(&models.Purchase{}).
		Where("id = ?", purchaseID).
		Update("authority", authority).Error
}

func (r *gormRepository) GetPurchase(purchaseID uint) (*models.Purchase, error) {
	var p models.Purchase
	if err := r.db.First(&p, purchaseID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) GetPurchaseByAuthority(authority string) (*models.Purchase, error) {
	var p models.Purchase
	if err := r.db.Where("authority = ?", authority).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// CompletePurchase performs the terminal success transition and its
// downstream effects in one transaction: PENDING -> COMPLETED with the
// gateway reference, plus enrollment creation (course) or booking
// confirmation (mentorship). The PENDING guard means exactly one of two
// concurrent callback deliveries applies the effects; the other sees
// applied == false and must re-read for the verdict.
func (r *gormRepository) CompletePurchase(p *models.Purchase, refID string) (bool, error) {
	applied := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Purchase{}).
			Where("id = ? AND status = ?", p.ID, models.PurchaseStatusPending).
			Updates(map[string]interface{}{
				"status": models.PurchaseStatusCompleted,
				"ref_id": refID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true

		switch p.Kind {
		case models.PurchaseKindCourse:
			if p.CourseID == nil {
				return errors.New("course purchase has no course reference")
			}
			enrollment := models.Enrollment{UserID: p.UserID, CourseID: *p.CourseID}
			return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&enrollment).Error
		case models.PurchaseKindMentorship:
			return reservation.ConfirmBookingsTx(tx, p.ID)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if applied {
		p.Status = models.PurchaseStatusCompleted
		p.RefID = &refID
	}
	return applied, nil
}

// FailPurchase is the single compensation path: the terminal failure
// transition (guarded, so an already-resolved purchase is untouched) plus an
// unconditional idempotent release of any reserved slots. Every failure
// branch (cancellation, rejection, sweep race) funnels through here.
func (r *gormRepository) FailPurchase(p *models.Purchase) (bool, error) {
	applied := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Purchase{}).
			Where("id = ? AND status = ?", p.ID, models.PurchaseStatusPending).
			Update("status", models.PurchaseStatusFailed)
		if res.Error != nil {
			return res.Error
		}
		applied = res.RowsAffected > 0

		if p.Kind == models.PurchaseKindMentorship {
			return reservation.ReleaseForPurchaseTx(tx, p.ID)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if applied {
		p.Status = models.PurchaseStatusFailed
	}
	return applied, nil
}
