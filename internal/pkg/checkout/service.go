package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/anahno/coursehub/app/models"
	"github.com/anahno/coursehub/internal/pkg/constants"
	"github.com/anahno/coursehub/internal/pkg/env"
	"github.com/anahno/coursehub/internal/pkg/payment"
	"github.com/anahno/coursehub/internal/pkg/reservation"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrCourseNotPurchasable covers unpublished courses.
	ErrCourseNotPurchasable = errors.New("course is not purchasable")

	// ErrAlreadyEnrolled rejects buying a course the user already owns.
	ErrAlreadyEnrolled = errors.New("user is already enrolled in this course")
)

// Result is what a checkout initiator hands back to the controller. For a
// free course no purchase exists and Enrolled is set.
type Result struct {
	RedirectURL string
	Enrolled    bool
}

// Outcome is the verification handler's verdict; the controller turns it
// into a redirect to one of the two landing pages.
type Outcome struct {
	Success     bool
	FailureCode string
}

// Service assembles purchase intents, delegates money collection to a
// gateway and reconciles the asynchronous callback against the ledger.
type Service struct {
	repo         Repository
	gateways     *payment.Router
	reservations *reservation.Service
}

// NewService creates a checkout service from injected collaborators.
func NewService(repo Repository, gateways *payment.Router, reservations *reservation.Service) *Service {
	return &Service{repo: repo, gateways: gateways, reservations: reservations}
}

// NewServiceFromDB wires the service from a GORM DB handle and env config.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), payment.NewRouterFromEnv(), reservation.NewServiceFromDB(db))
}

// StartCourseCheckout validates the course, bypasses payment entirely for
// free items, and otherwise opens a gateway transaction. The purchase row is
// committed, with its authority persisted, before the redirect URL is
// returned: the callback may arrive before this function's caller does
// anything with the URL.
func (s *Service) StartCourseCheckout(ctx context.Context, courseID, userID uint, gatewayID string) (*Result, error) {
	course, err := s.repo.GetCourse(courseID)
	if err != nil {
		return nil, err
	}
	if !course.Published {
		return nil, ErrCourseNotPurchasable
	}

	enrolled, err := s.repo.IsEnrolled(userID, courseID)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return nil, ErrAlreadyEnrolled
	}

	if course.IsFree() {
		if _, err := s.repo.CreateEnrollment(userID, courseID); err != nil {
			return nil, err
		}
		return &Result{RedirectURL: constants.PaymentSuccessRoute, Enrolled: true}, nil
	}

	gw, err := s.gateways.Get(gatewayID)
	if err != nil {
		return nil, err
	}

	purchase := &models.Purchase{
		OrderRef: uuid.NewString(),
		UserID:   userID,
		Kind:     models.PurchaseKindCourse,
		Amount:   course.EffectivePrice(),
		Status:   models.PurchaseStatusPending,
		Gateway:  gw.Name(),
		CourseID: &course.ID,
	}
	if err := s.repo.CreatePurchase(purchase); err != nil {
		return nil, err
	}

	initiated, err := gw.Initiate(ctx, payment.InitiateRequest{
		Amount:      purchase.Amount,
		Description: fmt.Sprintf("Course: %s", course.Title),
		CallbackURL: callbackURL(gw.Name()),
		OrderRef:    purchase.OrderRef,
	})
	if err != nil {
		return nil, err
	}

	// The authority must be on the row before the browser can reach the
	// gateway: the callback looks the purchase up by this token alone.
	if err := s.repo.SetAuthority(purchase.ID, initiated.Authority); err != nil {
		return nil, err
	}

	return &Result{RedirectURL: initiated.RedirectURL}, nil
}

// StartMentorshipCheckout reserves the requested slots first (failing fast if
// any raced away), creates the purchase over the reservation's computed
// amount, then opens the gateway transaction. A gateway failure after the
// reservation compensates by failing the purchase and releasing the slots.
func (s *Service) StartMentorshipCheckout(ctx context.Context, mentorID uint, slotIDs []uint, studentID uint, gatewayID string) (*Result, error) {
	gw, err := s.gateways.Get(gatewayID)
	if err != nil {
		return nil, err
	}

	reserved, err := s.reservations.Reserve(ctx, mentorID, slotIDs, studentID)
	if err != nil {
		return nil, err
	}

	purchase := &models.Purchase{
		OrderRef: uuid.NewString(),
		UserID:   studentID,
		Kind:     models.PurchaseKindMentorship,
		Amount:   reserved.Amount,
		Status:   models.PurchaseStatusPending,
		Gateway:  gw.Name(),
	}
	if err := s.repo.CreatePurchase(purchase); err != nil {
		// The unattached bookings are reclaimed by the orphan sweep.
		return nil, err
	}
	if err := s.reservations.AttachPurchase(ctx, reserved.BookingIDs, purchase.ID); err != nil {
		// Without attached bookings the abandonment sweep cannot find this
		// purchase, so it must be failed here or it stays PENDING forever.
		s.compensate(purchase)
		return nil, err
	}

	initiated, err := gw.Initiate(ctx, payment.InitiateRequest{
		Amount:      purchase.Amount,
		Description: fmt.Sprintf("Mentorship booking, %d slot(s)", len(reserved.BookingIDs)),
		CallbackURL: callbackURL(gw.Name()),
		OrderRef:    purchase.OrderRef,
	})
	if err != nil {
		s.compensate(purchase)
		return nil, err
	}

	if err := s.repo.SetAuthority(purchase.ID, initiated.Authority); err != nil {
		s.compensate(purchase)
		return nil, err
	}

	return &Result{RedirectURL: initiated.RedirectURL}, nil
}

// HandleCallback is the verification state machine. It is safe against
// re-delivery, unknown authorities and concurrent deliveries; the caller
// only ever receives a success or failure verdict to redirect on.
func (s *Service) HandleCallback(ctx context.Context, authority string, gatewayOK bool) Outcome {
	authority = strings.TrimSpace(authority)
	if authority == "" {
		return failure("missing_authority")
	}

	purchase, err := s.repo.GetPurchaseByAuthority(authority)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Benign: nothing local matches, nothing to mutate.
			return failure("unknown_authority")
		}
		log.Printf("checkout callback: lookup authority=%s: %v", authority, err)
		return failure("internal_error")
	}

	if !gatewayOK {
		// User canceled or the gateway reported a non-success outcome
		// before verification. FailPurchase is a no-op on resolved rows
		// but still releases slots.
		if _, err := s.repo.FailPurchase(purchase); err != nil {
			log.Printf("checkout callback: cancel purchase %d: %v", purchase.ID, err)
		}
		return failure("canceled")
	}

	// Re-delivered callback for a resolved purchase: do not verify again,
	// do not re-run finalizers.
	if purchase.Status == models.PurchaseStatusCompleted {
		return Outcome{Success: true}
	}
	if purchase.Status == models.PurchaseStatusFailed {
		return failure("already_failed")
	}

	gw, err := s.gateways.Get(purchase.Gateway)
	if err != nil {
		log.Printf("checkout callback: purchase %d names unknown gateway %q", purchase.ID, purchase.Gateway)
		return s.abort(ctx, purchase, "internal_error")
	}

	verified, err := gw.Verify(ctx, authority, purchase.Amount)
	if err != nil {
		// Verdict unknown: leave the purchase PENDING for a retry, but
		// never leave slots stuck behind it.
		log.Printf("checkout callback: verify purchase %d: %v", purchase.ID, err)
		return s.abort(ctx, purchase, "gateway_error")
	}

	if !verified.Accepted {
		if _, err := s.repo.FailPurchase(purchase); err != nil {
			log.Printf("checkout callback: fail purchase %d: %v", purchase.ID, err)
		}
		return failure(verified.FailureCode)
	}

	applied, err := s.repo.CompletePurchase(purchase, verified.RefID)
	if err != nil {
		log.Printf("checkout callback: complete purchase %d: %v", purchase.ID, err)
		return s.abort(ctx, purchase, "finalize_error")
	}
	if !applied {
		// A concurrent delivery or the sweeper resolved it first.
		current, err := s.repo.GetPurchase(purchase.ID)
		if err == nil && current.Status == models.PurchaseStatusCompleted {
			return Outcome{Success: true}
		}
		return failure("already_resolved")
	}

	return Outcome{Success: true}
}

// abort handles the paths where no terminal verdict exists: the purchase
// stays PENDING, but mentorship slots are released best-effort so nothing
// stays BOOKED without a path to recovery.
func (s *Service) abort(ctx context.Context, purchase *models.Purchase, code string) Outcome {
	if purchase.Kind == models.PurchaseKindMentorship {
		if err := s.reservations.Release(ctx, purchase.ID); err != nil {
			log.Printf("checkout callback: release purchase %d: %v", purchase.ID, err)
		}
	}
	return failure(code)
}

func (s *Service) compensate(purchase *models.Purchase) {
	if _, err := s.repo.FailPurchase(purchase); err != nil {
		log.Printf("checkout: compensate purchase %d: %v", purchase.ID, err)
	}
}

func failure(code string) Outcome {
	return Outcome{Success: false, FailureCode: code}
}

func callbackURL(gatewayID string) string {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}
	return base + constants.PaymentCallbackRoute + "/" + gatewayID
}
