package reservation

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"
)

// AbandonAfter is the wall-clock window after which a reservation whose
// purchase never reached a terminal state is considered abandoned.
const AbandonAfter = 30 * time.Minute

var (
	// ErrSlotUnavailable means a requested slot was taken by a concurrent
	// reservation; nothing was reserved.
	ErrSlotUnavailable = errors.New("time slot is no longer available")

	// ErrNoSlots is returned for an empty or all-duplicate slot list.
	ErrNoSlots = errors.New("no time slots requested")

	// ErrOwnSlot rejects a mentor booking their own slot.
	ErrOwnSlot = errors.New("cannot book your own time slot")
)

// ReserveResult is what a successful reservation hands back to checkout.
type ReserveResult struct {
	BookingIDs []uint
	Amount     int64
}

// Service owns TimeSlot and Booking state: reserve on intent, confirm on
// payment success, release on any failure, sweep abandoned reservations.
type Service struct {
	repo Repository
}

// NewService creates a reservation service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a reservation service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// Reserve atomically flips every requested slot to BOOKED and creates its
// booking. All-or-nothing: one unavailable slot fails the whole attempt. The
// total amount is the mentor's hourly rate times the slot count.
func (s *Service) Reserve(ctx context.Context, mentorID uint, slotIDs []uint, studentID uint) (*ReserveResult, error) {
	_ = ctx
	if studentID == mentorID {
		return nil, ErrOwnSlot
	}

	unique := dedupeIDs(slotIDs)
	if len(unique) == 0 {
		return nil, ErrNoSlots
	}

	profile, err := s.repo.GetMentorProfile(mentorID)
	if err != nil {
		return nil, err
	}

	bookingIDs, err := s.repo.ReserveSlots(mentorID, studentID, unique)
	if err != nil {
		return nil, err
	}

	return &ReserveResult{
		BookingIDs: bookingIDs,
		Amount:     profile.HourlyRate * int64(len(unique)),
	}, nil
}

// AttachPurchase ties freshly created bookings to their purchase row.
func (s *Service) AttachPurchase(ctx context.Context, bookingIDs []uint, purchaseID uint) error {
	_ = ctx
	if purchaseID == 0 {
		return errors.New("purchase_id is required")
	}
	return s.repo.AttachPurchase(bookingIDs, purchaseID)
}

// Release returns the slots of a purchase's unconfirmed bookings to
// AVAILABLE. Idempotent; every failure path may call it. Confirmation has no
// counterpart here: it only ever happens inside the purchase completion
// transaction, via ConfirmBookingsTx.
func (s *Service) Release(ctx context.Context, purchaseID uint) error {
	_ = ctx
	return s.repo.ReleaseForPurchase(purchaseID)
}

// SweepExpired reclaims this mentor's reservations whose purchase sat
// PENDING past the abandonment window, plus bookings that never got a
// purchase attached. Invoked opportunistically from profile views; callers
// are expected to throttle.
func (s *Service) SweepExpired(ctx context.Context, mentorID uint) (int, error) {
	_ = ctx
	cutoff := time.Now().Add(-AbandonAfter)

	ids, err := s.repo.ListAbandonedPurchaseIDs(mentorID, cutoff)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, id := range ids {
		ok, err := s.repo.SweepPurchase(id)
		if err != nil {
			log.Printf("reservation sweep: purchase %d: %v", id, err)
			continue
		}
		if ok {
			swept++
		}
	}

	if n, err := s.repo.ReleaseOrphanBookings(mentorID, cutoff); err != nil {
		log.Printf("reservation sweep: orphan bookings for mentor %d: %v", mentorID, err)
	} else {
		swept += int(n)
	}

	return swept, nil
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
