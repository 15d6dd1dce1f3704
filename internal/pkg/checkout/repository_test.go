package checkout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/anahno/coursehub/app/models"
	"github.com/anahno/coursehub/internal/pkg/reservation"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Course{},
		&models.MentorProfile{},
		&models.TimeSlot{},
		&models.Booking{},
		&models.Purchase{},
		&models.Enrollment{},
	))
	return db
}

func seedMentorshipPurchase(t *testing.T, db *gorm.DB) (*models.Purchase, []uint, uint) {
	t.Helper()

	base := time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC)
	slotA := models.TimeSlot{MentorID: 7, StartTime: base, EndTime: base.Add(time.Hour), Status: models.TimeSlotStatusAvailable}
	slotB := models.TimeSlot{MentorID: 7, StartTime: base.Add(time.Hour), EndTime: base.Add(2 * time.Hour), Status: models.TimeSlotStatusAvailable}
	require.NoError(t, db.Create(&slotA).Error)
	require.NoError(t, db.Create(&slotB).Error)

	resRepo := reservation.NewRepository(db)
	bookingIDs, err := resRepo.ReserveSlots(7, 9, []uint{slotA.ID, slotB.ID})
	require.NoError(t, err)

	p := &models.Purchase{
		OrderRef: "ref-mentorship",
		UserID:   9,
		Kind:     models.PurchaseKindMentorship,
		Amount:   80000,
		Status:   models.PurchaseStatusPending,
		Gateway:  "zibal",
	}
	require.NoError(t, db.Create(p).Error)
	require.NoError(t, resRepo.AttachPurchase(bookingIDs, p.ID))

	return p, bookingIDs, slotA.ID
}

func TestCreateEnrollment_DuplicateIsNoOp(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	created, err := repo.CreateEnrollment(9, 1)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateEnrollment(9, 1)
	require.NoError(t, err)
	assert.False(t, created)

	var count int64
	db.Model(&models.Enrollment{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCompletePurchase_CourseEnrollsExactlyOnce(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	courseID := uint(1)
	p := &models.Purchase{
		OrderRef: "ref-course",
		UserID:   9,
		Kind:     models.PurchaseKindCourse,
		Amount:   50000,
		Status:   models.PurchaseStatusPending,
		Gateway:  "zarinpal",
		CourseID: &courseID,
	}
	require.NoError(t, db.Create(p).Error)

	applied, err := repo.CompletePurchase(p, "424242")
	require.NoError(t, err)
	assert.True(t, applied)

	var stored models.Purchase
	require.NoError(t, db.First(&stored, p.ID).Error)
	assert.Equal(t, models.PurchaseStatusCompleted, stored.Status)
	require.NotNil(t, stored.RefID)
	assert.Equal(t, "424242", *stored.RefID)

	enrolled, err := repo.IsEnrolled(9, courseID)
	require.NoError(t, err)
	assert.True(t, enrolled)

	// a second delivery loses the PENDING guard and applies nothing
	applied, err = repo.CompletePurchase(p, "424242")
	require.NoError(t, err)
	assert.False(t, applied)

	var enrollments int64
	db.Model(&models.Enrollment{}).Count(&enrollments)
	assert.Equal(t, int64(1), enrollments)
}

func TestCompletePurchase_MentorshipConfirmsBookings(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	p, bookingIDs, slotID := seedMentorshipPurchase(t, db)

	applied, err := repo.CompletePurchase(p, "112233")
	require.NoError(t, err)
	assert.True(t, applied)

	for _, id := range bookingIDs {
		var booking models.Booking
		require.NoError(t, db.First(&booking, id).Error)
		assert.Equal(t, models.BookingStatusConfirmed, booking.Status)
	}
	var slot models.TimeSlot
	require.NoError(t, db.First(&slot, slotID).Error)
	assert.Equal(t, models.TimeSlotStatusBooked, slot.Status)
}

func TestFailPurchase_MentorshipReleasesSlots(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	p, bookingIDs, slotID := seedMentorshipPurchase(t, db)

	applied, err := repo.FailPurchase(p)
	require.NoError(t, err)
	assert.True(t, applied)

	var stored models.Purchase
	require.NoError(t, db.First(&stored, p.ID).Error)
	assert.Equal(t, models.PurchaseStatusFailed, stored.Status)

	var slot models.TimeSlot
	require.NoError(t, db.First(&slot, slotID).Error)
	assert.Equal(t, models.TimeSlotStatusAvailable, slot.Status)

	var booking models.Booking
	require.NoError(t, db.First(&booking, bookingIDs[0]).Error)
	assert.Equal(t, models.BookingStatusCanceled, booking.Status)
}

func TestFailPurchase_DoesNotUndoCompletion(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	p, bookingIDs, slotID := seedMentorshipPurchase(t, db)

	applied, err := repo.CompletePurchase(p, "112233")
	require.NoError(t, err)
	require.True(t, applied)

	// a late cancel callback must not fail a completed purchase or free
	// its confirmed slots
	stale := &models.Purchase{ID: p.ID, Kind: models.PurchaseKindMentorship, Status: models.PurchaseStatusPending}
	applied, err = repo.FailPurchase(stale)
	require.NoError(t, err)
	assert.False(t, applied)

	var stored models.Purchase
	require.NoError(t, db.First(&stored, p.ID).Error)
	assert.Equal(t, models.PurchaseStatusCompleted, stored.Status)

	var slot models.TimeSlot
	require.NoError(t, db.First(&slot, slotID).Error)
	assert.Equal(t, models.TimeSlotStatusBooked, slot.Status)

	var booking models.Booking
	require.NoError(t, db.First(&booking, bookingIDs[0]).Error)
	assert.Equal(t, models.BookingStatusConfirmed, booking.Status)
}
