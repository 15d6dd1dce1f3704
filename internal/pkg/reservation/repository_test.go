package reservation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/anahno/coursehub/app/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.MentorProfile{},
		&models.TimeSlot{},
		&models.Booking{},
		&models.Purchase{},
	))
	return db
}

func createSlot(t *testing.T, db *gorm.DB, mentorID uint, start time.Time, status string) uint {
	t.Helper()
	slot := models.TimeSlot{
		MentorID:  mentorID,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Status:    status,
	}
	require.NoError(t, db.Create(&slot).Error)
	return slot.ID
}

func slotStatus(t *testing.T, db *gorm.DB, slotID uint) string {
	t.Helper()
	var slot models.TimeSlot
	require.NoError(t, db.First(&slot, slotID).Error)
	return slot.Status
}

func bookingStatus(t *testing.T, db *gorm.DB, bookingID uint) string {
	t.Helper()
	var booking models.Booking
	require.NoError(t, db.First(&booking, bookingID).Error)
	return booking.Status
}

func createPendingPurchase(t *testing.T, db *gorm.DB, orderRef string, createdAt time.Time) uint {
	t.Helper()
	p := models.Purchase{
		OrderRef: orderRef,
		UserID:   9,
		Kind:     models.PurchaseKindMentorship,
		Amount:   80000,
		Status:   models.PurchaseStatusPending,
		Gateway:  "zarinpal",
	}
	require.NoError(t, db.Create(&p).Error)
	require.NoError(t, db.Model(&models.Purchase{}).Where("id = ?", p.ID).
		Update("created_at", createdAt).Error)
	return p.ID
}

func TestReserveSlots_FlipsSlotsAndCreatesBookings(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	base := time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC)
	slotA := createSlot(t, db, 7, base, models.TimeSlotStatusAvailable)
	slotB := createSlot(t, db, 7, base.Add(time.Hour), models.TimeSlotStatusAvailable)

	bookingIDs, err := repo.ReserveSlots(7, 9, []uint{slotA, slotB})
	require.NoError(t, err)
	require.Len(t, bookingIDs, 2)

	assert.Equal(t, models.TimeSlotStatusBooked, slotStatus(t, db, slotA))
	assert.Equal(t, models.TimeSlotStatusBooked, slotStatus(t, db, slotB))
	for _, id := range bookingIDs {
		var booking models.Booking
		require.NoError(t, db.First(&booking, id).Error)
		assert.Equal(t, models.BookingStatusPending, booking.Status)
		assert.Equal(t, uint(9), booking.StudentID)
		assert.Equal(t, uint(0), booking.PurchaseID, "no purchase exists yet at reserve time")
	}
}

func TestReserveSlots_AllOrNothingOnTakenSlot(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	base := time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC)
	free := createSlot(t, db, 7, base, models.TimeSlotStatusAvailable)
	taken := createSlot(t, db, 7, base.Add(time.Hour), models.TimeSlotStatusBooked)

	_, err := repo.ReserveSlots(7, 9, []uint{free, taken})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSlotUnavailable))

	// the first flip must be rolled back with the failed one
	assert.Equal(t, models.TimeSlotStatusAvailable, slotStatus(t, db, free))

	var bookings int64
	db.Model(&models.Booking{}).Count(&bookings)
	assert.Zero(t, bookings)
}

func TestReserveSlots_LoserOfRaceGetsNothing(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	base := time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC)
	slot := createSlot(t, db, 7, base, models.TimeSlotStatusAvailable)

	_, err := repo.ReserveSlots(7, 9, []uint{slot})
	require.NoError(t, err)

	_, err = repo.ReserveSlots(7, 12, []uint{slot})
	assert.True(t, errors.Is(err, ErrSlotUnavailable))

	var bookings int64
	db.Model(&models.Booking{}).Where("student_id = ?", 12).Count(&bookings)
	assert.Zero(t, bookings, "the losing student must not get a booking")
}

func TestConfirmBookingsTx_ConfirmsAllBookingsOfPurchase(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	base := time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC)
	slotA := createSlot(t, db, 7, base, models.TimeSlotStatusAvailable)
	slotB := createSlot(t, db, 7, base.Add(time.Hour), models.TimeSlotStatusAvailable)

	bookingIDs, err := repo.ReserveSlots(7, 9, []uint{slotA, slotB})
	require.NoError(t, err)
	purchaseID := createPendingPurchase(t, db, "ref-confirm", time.Now())
	require.NoError(t, repo.AttachPurchase(bookingIDs, purchaseID))

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return ConfirmBookingsTx(tx, purchaseID)
	}))

	for _, id := range bookingIDs {
		assert.Equal(t, models.BookingStatusConfirmed, bookingStatus(t, db, id))
	}
	// confirmed sessions keep their slots BOOKED for good
	assert.Equal(t, models.TimeSlotStatusBooked, slotStatus(t, db, slotA))
	assert.Equal(t, models.TimeSlotStatusBooked, slotStatus(t, db, slotB))
}

func TestReleaseForPurchaseTx_ReleasesAndIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	base := time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC)
	slot := createSlot(t, db, 7, base, models.TimeSlotStatusAvailable)

	bookingIDs, err := repo.ReserveSlots(7, 9, []uint{slot})
	require.NoError(t, err)
	purchaseID := createPendingPurchase(t, db, "ref-release", time.Now())
	require.NoError(t, repo.AttachPurchase(bookingIDs, purchaseID))

	require.NoError(t, repo.ReleaseForPurchase(purchaseID))
	assert.Equal(t, models.TimeSlotStatusAvailable, slotStatus(t, db, slot))
	assert.Equal(t, models.BookingStatusCanceled, bookingStatus(t, db, bookingIDs[0]))

	// releasing an already-released purchase changes nothing
	require.NoError(t, repo.ReleaseForPurchase(purchaseID))
	assert.Equal(t, models.TimeSlotStatusAvailable, slotStatus(t, db, slot))
}

func TestReleaseForPurchaseTx_LeavesConfirmedBookingsAlone(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	base := time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC)
	slot := createSlot(t, db, 7, base, models.TimeSlotStatusAvailable)

	bookingIDs, err := repo.ReserveSlots(7, 9, []uint{slot})
	require.NoError(t, err)
	purchaseID := createPendingPurchase(t, db, "ref-keep", time.Now())
	require.NoError(t, repo.AttachPurchase(bookingIDs, purchaseID))
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return ConfirmBookingsTx(tx, purchaseID)
	}))

	require.NoError(t, repo.ReleaseForPurchase(purchaseID))

	assert.Equal(t, models.BookingStatusConfirmed, bookingStatus(t, db, bookingIDs[0]))
	assert.Equal(t, models.TimeSlotStatusBooked, slotStatus(t, db, slot))
}

func TestSweepPurchase_PendingGuard(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	base := time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC)
	slot := createSlot(t, db, 7, base, models.TimeSlotStatusAvailable)

	bookingIDs, err := repo.ReserveSlots(7, 9, []uint{slot})
	require.NoError(t, err)
	purchaseID := createPendingPurchase(t, db, "ref-sweep", time.Now().Add(-time.Hour))
	require.NoError(t, repo.AttachPurchase(bookingIDs, purchaseID))

	swept, err := repo.SweepPurchase(purchaseID)
	require.NoError(t, err)
	assert.True(t, swept)
	assert.Equal(t, models.TimeSlotStatusAvailable, slotStatus(t, db, slot))

	var p models.Purchase
	require.NoError(t, db.First(&p, purchaseID).Error)
	assert.Equal(t, models.PurchaseStatusFailed, p.Status)

	// second sweep loses the guard and no-ops
	swept, err = repo.SweepPurchase(purchaseID)
	require.NoError(t, err)
	assert.False(t, swept)
}

func TestSweepPurchase_DoesNotTouchResolvedPurchase(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	base := time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC)
	slot := createSlot(t, db, 7, base, models.TimeSlotStatusAvailable)

	bookingIDs, err := repo.ReserveSlots(7, 9, []uint{slot})
	require.NoError(t, err)
	purchaseID := createPendingPurchase(t, db, "ref-done", time.Now().Add(-time.Hour))
	require.NoError(t, repo.AttachPurchase(bookingIDs, purchaseID))
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return ConfirmBookingsTx(tx, purchaseID)
	}))
	require.NoError(t, db.Model(&models.Purchase{}).Where("id = ?", purchaseID).
		Update("status", models.PurchaseStatusCompleted).Error)

	swept, err := repo.SweepPurchase(purchaseID)
	require.NoError(t, err)
	assert.False(t, swept)
	assert.Equal(t, models.TimeSlotStatusBooked, slotStatus(t, db, slot))
	assert.Equal(t, models.BookingStatusConfirmed, bookingStatus(t, db, bookingIDs[0]))
}

func TestListAbandonedPurchaseIDs(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	base := time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC)

	// stale PENDING purchase for mentor 7
	staleSlot := createSlot(t, db, 7, base, models.TimeSlotStatusAvailable)
	staleBookings, err := repo.ReserveSlots(7, 9, []uint{staleSlot})
	require.NoError(t, err)
	staleID := createPendingPurchase(t, db, "ref-stale", time.Now().Add(-time.Hour))
	require.NoError(t, repo.AttachPurchase(staleBookings, staleID))

	// fresh PENDING purchase for the same mentor
	freshSlot := createSlot(t, db, 7, base.Add(2*time.Hour), models.TimeSlotStatusAvailable)
	freshBookings, err := repo.ReserveSlots(7, 9, []uint{freshSlot})
	require.NoError(t, err)
	freshID := createPendingPurchase(t, db, "ref-fresh", time.Now())
	require.NoError(t, repo.AttachPurchase(freshBookings, freshID))

	// stale purchase for a different mentor
	otherSlot := createSlot(t, db, 8, base, models.TimeSlotStatusAvailable)
	otherBookings, err := repo.ReserveSlots(8, 9, []uint{otherSlot})
	require.NoError(t, err)
	otherID := createPendingPurchase(t, db, "ref-other", time.Now().Add(-time.Hour))
	require.NoError(t, repo.AttachPurchase(otherBookings, otherID))

	ids, err := repo.ListAbandonedPurchaseIDs(7, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []uint{staleID}, ids)
}

func TestReleaseOrphanBookings(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	base := time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC)
	slot := createSlot(t, db, 7, base, models.TimeSlotStatusAvailable)

	// reserved but the checkout died before a purchase was ever created
	bookingIDs, err := repo.ReserveSlots(7, 9, []uint{slot})
	require.NoError(t, err)

	released, err := repo.ReleaseOrphanBookings(7, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)
	assert.Equal(t, models.TimeSlotStatusAvailable, slotStatus(t, db, slot))
	assert.Equal(t, models.BookingStatusCanceled, bookingStatus(t, db, bookingIDs[0]))

	// attached bookings are not orphans
	slot2 := createSlot(t, db, 7, base.Add(time.Hour), models.TimeSlotStatusAvailable)
	attached, err := repo.ReserveSlots(7, 9, []uint{slot2})
	require.NoError(t, err)
	purchaseID := createPendingPurchase(t, db, "ref-attached", time.Now())
	require.NoError(t, repo.AttachPurchase(attached, purchaseID))

	released, err = repo.ReleaseOrphanBookings(7, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, released)
	assert.Equal(t, models.TimeSlotStatusBooked, slotStatus(t, db, slot2))
}
