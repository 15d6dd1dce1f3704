package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/anahno/coursehub/app/models"
	"github.com/anahno/coursehub/internal/pkg/database"
	"github.com/anahno/coursehub/internal/pkg/usercontext"
)

// HandleStart renders the landing page with the published course catalog.
func HandleStart(c *fiber.Ctx) error {
	var courses []models.Course
	database.GetDB().Where("published = ?", true).Order("created_at desc").Limit(50).Find(&courses)

	return c.Render("index", fiber.Map{
		"Page":       "Courses",
		"Courses":    courses,
		"IsLoggedIn": usercontext.IsLoggedIn(c),
		"Flash":      flash.Get(c),
	})
}

// HandleCourseDetail renders one course page with its effective price and the
// viewer's enrollment state.
func HandleCourseDetail(c *fiber.Ctx) error {
	courseID := paramUint(c, "id")
	if courseID == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "course not found"})
	}

	db := database.GetDB()

	var course models.Course
	if err := db.First(&course, courseID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "course not found"})
	}
	if !course.Published {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "course not found"})
	}

	userCtx := usercontext.GetUserContext(c)
	enrolled := false
	if userCtx.IsLoggedIn {
		var n int64
		db.Model(&models.Enrollment{}).
			Where("user_id = ? AND course_id = ?", userCtx.UserID, course.ID).
			Count(&n)
		enrolled = n > 0
	}

	return c.Render("course_detail", fiber.Map{
		"Page":       course.Title,
		"Course":     course,
		"Price":      course.EffectivePrice(),
		"IsFree":     course.IsFree(),
		"Enrolled":   enrolled,
		"IsLoggedIn": userCtx.IsLoggedIn,
		"Flash":      flash.Get(c),
	})
}
