package payment

import (
	"context"
	"errors"
)

// Gateway identifiers form a closed enumeration; the router rejects anything
// else with ErrUnknownGateway.
const (
	GatewayZarinPal = "zarinpal"
	GatewayZibal    = "zibal"
)

var (
	// ErrUnknownGateway is returned when a caller asks for a gateway id
	// outside the supported enumeration.
	ErrUnknownGateway = errors.New("unknown payment gateway")

	// ErrGatewayUnavailable is the generic error surfaced to callers for any
	// network or provider failure. The raw provider payload is logged, never
	// propagated.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrAmountTooSmall is returned before any network call when the amount
	// is below the provider's transactable minimum.
	ErrAmountTooSmall = errors.New("amount below gateway minimum")
)

// InitiateRequest carries everything a provider needs to open a transaction.
// Amount is in toman; unit conversion is the concern of each client.
type InitiateRequest struct {
	Amount      int64
	Description string
	CallbackURL string
	OrderRef    string
}

// InitiateResult is the provider token plus the URL the user's browser is
// sent to.
type InitiateResult struct {
	Authority   string
	RedirectURL string
}

// VerifyResult reports the provider's verdict on a transaction. A provider
// rejection is not an error: Accepted is false and FailureCode carries the
// provider's code for diagnostics.
type VerifyResult struct {
	Accepted    bool
	RefID       string
	FailureCode string
}

// Gateway is the uniform contract every payment provider client implements.
type Gateway interface {
	Name() string
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
	Verify(ctx context.Context, authority string, amount int64) (*VerifyResult, error)
}

// Router selects a gateway client by its identifier.
type Router struct {
	gateways map[string]Gateway
}

// NewRouter builds a router over the given clients.
func NewRouter(gateways ...Gateway) *Router {
	m := make(map[string]Gateway, len(gateways))
	for _, g := range gateways {
		m[g.Name()] = g
	}
	return &Router{gateways: m}
}

// NewRouterFromEnv wires up all supported providers from environment config.
func NewRouterFromEnv() *Router {
	return NewRouter(
		NewZarinPalClientFromEnv(),
		NewZibalClientFromEnv(),
	)
}

// Get resolves a gateway identifier to its client.
func (r *Router) Get(name string) (Gateway, error) {
	g, ok := r.gateways[name]
	if !ok {
		return nil, ErrUnknownGateway
	}
	return g, nil
}
