package constants

// Static route constants
const (
	PaymentCallbackRoute = "/payment/callback"
	PaymentSuccessRoute  = "/payment/success"
	PaymentFailedRoute   = "/payment/failed"

	LoginRoute    = "/login"
	RegisterRoute = "/register"
	LogoutRoute   = "/logout"
)
