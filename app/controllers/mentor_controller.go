package controllers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/anahno/coursehub/app/models"
	"github.com/anahno/coursehub/internal/pkg/cache"
	"github.com/anahno/coursehub/internal/pkg/database"
	"github.com/anahno/coursehub/internal/pkg/reservation"
	"github.com/anahno/coursehub/internal/pkg/usercontext"
	"github.com/anahno/coursehub/internal/pkg/utils"
)

// sweepThrottle caps how often a profile view may trigger the abandoned
// reservation sweep for one mentor.
const sweepThrottle = time.Minute

// HandleMentorProfile renders a mentor's public page with their available
// slots. Viewing the page opportunistically sweeps abandoned reservations so
// stale BOOKED slots reappear without a background scheduler.
func HandleMentorProfile(c *fiber.Ctx) error {
	mentorID := paramUint(c, "id")
	if mentorID == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "mentor not found"})
	}

	db := database.GetDB()

	var profile models.MentorProfile
	if err := db.Where("user_id = ?", mentorID).First(&profile).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "mentor not found"})
	}

	var mentor models.User
	if err := db.First(&mentor, mentorID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "mentor not found"})
	}

	sweepAbandonedReservations(mentorID)

	var slots []models.TimeSlot
	db.Where("mentor_id = ? AND status = ? AND start_time > ?",
		mentorID, models.TimeSlotStatusAvailable, time.Now()).
		Order("start_time asc").
		Find(&slots)

	avatar := mentor.AvatarURL
	if avatar == "" {
		avatar = utils.GetGravatarURL(mentor.Email, 200)
	}

	return c.Render("mentor_profile", fiber.Map{
		"Page":       mentor.Name,
		"Mentor":     mentor,
		"Profile":    profile,
		"Slots":      slots,
		"AvatarURL":  avatar,
		"IsLoggedIn": usercontext.IsLoggedIn(c),
		"CSRFToken":  csrfToken(c),
		"Flash":      flash.Get(c),
	})
}

// HandleMentorSlotCreate lets a mentor declare a new bookable slot.
func HandleMentorSlotCreate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	start, err := time.Parse(time.RFC3339, c.FormValue("start_time"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid start_time, want RFC3339"})
	}
	end, err := time.Parse(time.RFC3339, c.FormValue("end_time"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid end_time, want RFC3339"})
	}
	if !start.Before(end) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start_time must be before end_time"})
	}

	slot := models.TimeSlot{
		MentorID:  userCtx.UserID,
		StartTime: start,
		EndTime:   end,
		Status:    models.TimeSlotStatusAvailable,
		Title:     c.FormValue("title"),
		Color:     c.FormValue("color"),
	}

	if err := database.GetDB().Create(&slot).Error; err != nil {
		// unique index on (mentor_id, start_time)
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "a slot at this start time already exists"})
	}

	return c.Status(fiber.StatusCreated).JSON(slot)
}

// sweepAbandonedReservations runs the passive expiry sweep at most once per
// throttle window per mentor. Redis being down only skips the throttle check.
func sweepAbandonedReservations(mentorID uint) {
	key := fmt.Sprintf("sweep:mentor:%d", mentorID)
	acquired, err := cache.SetNX(key, 1, sweepThrottle)
	if err == nil && !acquired {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	svc := reservation.NewServiceFromDB(database.GetDB())
	if _, err := svc.SweepExpired(ctx, mentorID); err != nil {
		log.Printf("mentor %d sweep failed: %v", mentorID, err)
	}
}
