package controllers

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/anahno/coursehub/internal/pkg/checkout"
	"github.com/anahno/coursehub/internal/pkg/constants"
	"github.com/anahno/coursehub/internal/pkg/database"
	"github.com/anahno/coursehub/internal/pkg/payment"
	"github.com/anahno/coursehub/internal/pkg/reservation"
	"github.com/anahno/coursehub/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"
)

// HandleCourseCheckout starts the purchase flow for a paid course, or enrolls
// the user directly when the effective price is zero.
func HandleCourseCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Redirect(constants.LoginRoute, fiber.StatusSeeOther)
	}

	courseID := paramUint(c, "id")
	if courseID == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "course not found"})
	}
	gatewayID := c.Query("gateway", payment.GatewayZarinPal)

	svc := checkout.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	result, err := svc.StartCourseCheckout(ctx, courseID, userCtx.UserID, gatewayID)
	if err != nil {
		return redirectCheckoutError(c, err)
	}

	if result.Enrolled {
		return flash.WithSuccess(c, fiber.Map{"type": "success", "message": "You are enrolled."}).
			Redirect(result.RedirectURL)
	}
	return c.Redirect(result.RedirectURL, fiber.StatusSeeOther)
}

// HandleMentorshipCheckout reserves the posted slots and starts the purchase
// flow for a mentorship booking.
func HandleMentorshipCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Redirect(constants.LoginRoute, fiber.StatusSeeOther)
	}

	mentorID := paramUint(c, "id")
	if mentorID == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "mentor not found"})
	}
	slotIDs := parseIDList(c.FormValue("slot_ids"))
	gatewayID := firstNonEmpty(c.FormValue("gateway"), payment.GatewayZarinPal)

	svc := checkout.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	result, err := svc.StartMentorshipCheckout(ctx, mentorID, slotIDs, userCtx.UserID, gatewayID)
	if err != nil {
		return redirectCheckoutError(c, err)
	}

	return c.Redirect(result.RedirectURL, fiber.StatusSeeOther)
}

// HandlePaymentCallback is the endpoint the gateway sends the user's browser
// back to. It normalizes the provider-specific query parameters into a
// correlation token plus outcome flag and redirects to a landing page; it
// never errors toward the user.
func HandlePaymentCallback(c *fiber.Ctx) error {
	var authority string
	var gatewayOK bool

	switch c.Params("gateway") {
	case payment.GatewayZarinPal:
		authority = c.Query("Authority")
		gatewayOK = c.Query("Status") == "OK"
	case payment.GatewayZibal:
		authority = c.Query("trackId")
		gatewayOK = c.Query("success") == "1"
	default:
		return c.Redirect(constants.PaymentFailedRoute+"?code=unknown_gateway", fiber.StatusSeeOther)
	}

	svc := checkout.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	outcome := svc.HandleCallback(ctx, authority, gatewayOK)
	if outcome.Success {
		return c.Redirect(constants.PaymentSuccessRoute, fiber.StatusSeeOther)
	}

	target := constants.PaymentFailedRoute
	if outcome.FailureCode != "" {
		target += "?code=" + url.QueryEscape(outcome.FailureCode)
	}
	return c.Redirect(target, fiber.StatusSeeOther)
}

// HandlePaymentSuccess renders the fixed success landing page.
func HandlePaymentSuccess(c *fiber.Ctx) error {
	return c.Render("payment_success", fiber.Map{
		"Page": "Payment successful",
	})
}

// HandlePaymentFailed renders the fixed failure landing page with the
// diagnostic code from the callback, if any.
func HandlePaymentFailed(c *fiber.Ctx) error {
	return c.Render("payment_failed", fiber.Map{
		"Page": "Payment failed",
		"Code": c.Query("code"),
	})
}

func redirectCheckoutError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, checkout.ErrAlreadyEnrolled):
		return flash.WithInfo(c, fiber.Map{"type": "info", "message": "You already own this course."}).Redirect("/")
	case errors.Is(err, checkout.ErrCourseNotPurchasable):
		return flash.WithError(c, fiber.Map{"type": "error", "message": "This course cannot be purchased."}).Redirect("/")
	case errors.Is(err, reservation.ErrSlotUnavailable):
		return flash.WithError(c, fiber.Map{"type": "error", "message": "One of the selected slots was just booked by someone else."}).Redirect("/")
	case errors.Is(err, reservation.ErrNoSlots):
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Select at least one time slot."}).Redirect("/")
	case errors.Is(err, reservation.ErrOwnSlot):
		return flash.WithError(c, fiber.Map{"type": "error", "message": "You cannot book your own slot."}).Redirect("/")
	case errors.Is(err, payment.ErrUnknownGateway):
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Unknown payment gateway."}).Redirect("/")
	case errors.Is(err, payment.ErrAmountTooSmall):
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Amount is below the gateway minimum."}).Redirect("/")
	case errors.Is(err, payment.ErrGatewayUnavailable):
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Payment gateway is unavailable. Please try again."}).Redirect("/")
	default:
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Checkout failed. Please try again."}).Redirect("/")
	}
}
