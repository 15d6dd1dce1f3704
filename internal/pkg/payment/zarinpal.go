package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anahno/coursehub/internal/pkg/env"
)

const (
	defaultZarinPalAPIBaseURL  = "https://payment.zarinpal.com/pg/v4/payment"
	defaultZarinPalStartPayURL = "https://payment.zarinpal.com/pg/StartPay"

	// Minimum transactable amount in toman; ZarinPal rejects anything below.
	zarinPalMinAmount = 1000

	zarinPalCodeVerified        = 100
	zarinPalCodeAlreadyVerified = 101
)

// ZarinPalClient talks to the ZarinPal REST API v4.
type ZarinPalClient struct {
	MerchantID  string
	APIBaseURL  string
	StartPayURL string

	HTTPClient *http.Client
}

func NewZarinPalClientFromEnv() *ZarinPalClient {
	return &ZarinPalClient{
		MerchantID:  strings.TrimSpace(env.GetEnv("ZARINPAL_MERCHANT_ID", "")),
		APIBaseURL:  strings.TrimRight(env.GetEnv("ZARINPAL_API_BASE_URL", defaultZarinPalAPIBaseURL), "/"),
		StartPayURL: strings.TrimRight(env.GetEnv("ZARINPAL_STARTPAY_URL", defaultZarinPalStartPayURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *ZarinPalClient) Name() string {
	return GatewayZarinPal
}

// zarinPalRial converts the platform's toman amount to the rial unit the
// provider transacts in. Initiate and Verify must both send this unit.
func zarinPalRial(amount int64) int64 {
	return amount * 10
}

func (c *ZarinPalClient) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	if req.Amount < zarinPalMinAmount {
		return nil, fmt.Errorf("%w: minimum is %d toman", ErrAmountTooSmall, zarinPalMinAmount)
	}

	payload := map[string]interface{}{
		"merchant_id":  c.MerchantID,
		"amount":       zarinPalRial(req.Amount),
		"callback_url": req.CallbackURL,
		"description":  req.Description,
		"metadata":     map[string]string{"order_id": req.OrderRef},
	}

	var out struct {
		Data struct {
			Authority string `json:"authority"`
			Code      int    `json:"code"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/request.json", payload, &out); err != nil {
		return nil, err
	}
	if out.Data.Code != zarinPalCodeVerified || strings.TrimSpace(out.Data.Authority) == "" {
		log.Printf("zarinpal initiate rejected: code=%d order_ref=%s", out.Data.Code, req.OrderRef)
		return nil, fmt.Errorf("zarinpal initiate code %d: %w", out.Data.Code, ErrGatewayUnavailable)
	}

	return &InitiateResult{
		Authority:   out.Data.Authority,
		RedirectURL: c.StartPayURL + "/" + out.Data.Authority,
	}, nil
}

func (c *ZarinPalClient) Verify(ctx context.Context, authority string, amount int64) (*VerifyResult, error) {
	payload := map[string]interface{}{
		"merchant_id": c.MerchantID,
		"amount":      zarinPalRial(amount),
		"authority":   authority,
	}

	var out struct {
		Data struct {
			Code  int   `json:"code"`
			RefID int64 `json:"ref_id"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/verify.json", payload, &out); err != nil {
		return nil, err
	}

	switch out.Data.Code {
	case zarinPalCodeVerified, zarinPalCodeAlreadyVerified:
		return &VerifyResult{
			Accepted: true,
			RefID:    strconv.FormatInt(out.Data.RefID, 10),
		}, nil
	default:
		return &VerifyResult{
			Accepted:    false,
			FailureCode: strconv.Itoa(out.Data.Code),
		}, nil
	}
}

func (c *ZarinPalClient) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		log.Printf("zarinpal request failed: path=%s err=%v", path, err)
		return fmt.Errorf("zarinpal unreachable: %w", ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("zarinpal request rejected: path=%s status=%d body=%s", path, resp.StatusCode, string(raw))
		return fmt.Errorf("zarinpal status %d: %w", resp.StatusCode, ErrGatewayUnavailable)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		log.Printf("zarinpal response unparsable: path=%s body=%s", path, string(raw))
		return fmt.Errorf("zarinpal response invalid: %w", ErrGatewayUnavailable)
	}
	return nil
}
