package reservation

import (
	"fmt"
	"time"

	"github.com/anahno/coursehub/app/models"
	"gorm.io/gorm"
)

// Repository provides the DB operations used by the reservation service.
type Repository interface {
	GetMentorProfile(mentorID uint) (*models.MentorProfile, error)
	ReserveSlots(mentorID, studentID uint, slotIDs []uint) ([]uint, error)
	AttachPurchase(bookingIDs []uint, purchaseID uint) error
	ReleaseForPurchase(purchaseID uint) error
	ListAbandonedPurchaseIDs(mentorID uint, olderThan time.Time) ([]uint, error)
	SweepPurchase(purchaseID uint) (bool, error)
	ReleaseOrphanBookings(mentorID uint, olderThan time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a reservation repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetMentorProfile(mentorID uint) (*models.MentorProfile, error) {
	var profile models.MentorProfile
	if err := r.db.Where("user_id = ?", mentorID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// ReserveSlots flips every requested slot AVAILABLE -> BOOKED and creates its
// booking row in one transaction. The flip is a conditional update, so a slot
// raced away by a concurrent reservation aborts the whole attempt and rolls
// back any slots already flipped within this call.
func (r *gormRepository) ReserveSlots(mentorID, studentID uint, slotIDs []uint) ([]uint, error) {
	bookingIDs := make([]uint, 0, len(slotIDs))

	err := r.db.Transaction(func(tx *gorm.DB) error {
		for _, slotID := range slotIDs {
			res := tx.Model(&models.TimeSlot{}).
				Where("id = ? AND mentor_id = ? AND status = ?", slotID, mentorID, models.TimeSlotStatusAvailable).
				Update("status", models.TimeSlotStatusBooked)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return fmt.Errorf("slot %d: %w", slotID, ErrSlotUnavailable)
			}

			booking := models.Booking{
				StudentID:  studentID,
				TimeSlotID: slotID,
				Status:     models.BookingStatusPending,
			}
			if err := tx.Create(&booking).Error; err != nil {
				return err
			}
			bookingIDs = append(bookingIDs, booking.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bookingIDs, nil
}

func (r *gormRepository) AttachPurchase(bookingIDs []uint, purchaseID uint) error {
	if len(bookingIDs) == 0 {
		return nil
	}
	return r.db.Model(&models.Booking{}).
		Where("id IN ?", bookingIDs).
		Update("purchase_id", purchaseID).Error
}

func (r *gormRepository) ReleaseForPurchase(purchaseID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return ReleaseForPurchaseTx(tx, purchaseID)
	})
}

func (r *gormRepository) ListAbandonedPurchaseIDs(mentorID uint, olderThan time.Time) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Purchase{}).
		Distinct("purchases.id").
		Joins("JOIN bookings ON bookings.purchase_id = purchases.id").
		Joins("JOIN time_slots ON time_slots.id = bookings.time_slot_id").
		Where("time_slots.mentor_id = ?", mentorID).
		Where("purchases.kind = ? AND purchases.status = ?", models.PurchaseKindMentorship, models.PurchaseStatusPending).
		Where("purchases.created_at < ?", olderThan).
		Pluck("purchases.id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// SweepPurchase force-fails one abandoned purchase and releases its slots.
// The PENDING guard makes concurrent sweeps and late callbacks safe: whoever
// wins the conditional update performs the release, everyone else no-ops.
func (r *gormRepository) SweepPurchase(purchaseID uint) (bool, error) {
	swept := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Purchase{}).
			Where("id = ? AND status = ?", purchaseID, models.PurchaseStatusPending).
			Update("status", models.PurchaseStatusFailed)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		swept = true
		return ReleaseForPurchaseTx(tx, purchaseID)
	})
	return swept, err
}

// ReleaseOrphanBookings reclaims bookings that never got a purchase attached
// (a checkout that died between reserving and creating its purchase row).
func (r *gormRepository) ReleaseOrphanBookings(mentorID uint, olderThan time.Time) (int64, error) {
	var released int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var slotIDs []uint
		if err := tx.Model(&models.Booking{}).
			Joins("JOIN time_slots ON time_slots.id = bookings.time_slot_id").
			Where("time_slots.mentor_id = ?", mentorID).
			Where("bookings.purchase_id = 0 AND bookings.status = ?", models.BookingStatusPending).
			Where("bookings.created_at < ?", olderThan).
			Pluck("bookings.time_slot_id", &slotIDs).Error; err != nil {
			return err
		}
		if len(slotIDs) == 0 {
			return nil
		}

		if err := tx.Model(&models.TimeSlot{}).
			Where("id IN ? AND status = ?", slotIDs, models.TimeSlotStatusBooked).
			Update("status", models.TimeSlotStatusAvailable).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Booking{}).
			Where("time_slot_id IN ? AND purchase_id = 0 AND status = ?", slotIDs, models.BookingStatusPending).
			Update("status", models.BookingStatusCanceled)
		released = res.RowsAffected
		return res.Error
	})
	return released, err
}

// ConfirmBookingsTx confirms every pending booking tied to a purchase. Slot
// status is untouched: a confirmed booking keeps its slot BOOKED for good.
// Exported so the payment callback can run it inside its own transaction.
func ConfirmBookingsTx(tx *gorm.DB, purchaseID uint) error {
	return tx.Model(&models.Booking{}).
		Where("purchase_id = ? AND status = ?", purchaseID, models.BookingStatusPending).
		Update("status", models.BookingStatusConfirmed).Error
}

// ReleaseForPurchaseTx returns the slots of a purchase's unconfirmed bookings
// to AVAILABLE and cancels those bookings. Releasing an already-released set
// is a no-op, so every failure path may call it unconditionally.
func ReleaseForPurchaseTx(tx *gorm.DB, purchaseID uint) error {
	var slotIDs []uint
	err := tx.Model(&models.Booking{}).
		Where("purchase_id = ? AND status = ?", purchaseID, models.BookingStatusPending).
		Pluck("time_slot_id", &slotIDs).Error
	if err != nil {
		return err
	}
	if len(slotIDs) == 0 {
		return nil
	}

	if err := tx.Model(&models.TimeSlot{}).
		Where("id IN ? AND status = ?", slotIDs, models.TimeSlotStatusBooked).
		Update("status", models.TimeSlotStatusAvailable).Error; err != nil {
		return err
	}

	return tx.Model(&models.Booking{}).
		Where("purchase_id = ? AND status = ?", purchaseID, models.BookingStatusPending).
		Update("status", models.BookingStatusCanceled).Error
}
