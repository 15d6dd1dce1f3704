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
	defaultZibalAPIBaseURL = "https://gateway.zibal.ir"

	zibalResultOK              = 100
	zibalResultAlreadyVerified = 201
)

// ZibalClient talks to the Zibal gateway API. Zibal transacts in the same
// unit the platform stores, so amounts pass through unmodified.
type ZibalClient struct {
	Merchant   string
	APIBaseURL string

	HTTPClient *http.Client
}

func NewZibalClientFromEnv() *ZibalClient {
	return &ZibalClient{
		Merchant:   strings.TrimSpace(env.GetEnv("ZIBAL_MERCHANT", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("ZIBAL_API_BASE_URL", defaultZibalAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *ZibalClient) Name() string {
	return GatewayZibal
}

func (c *ZibalClient) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	payload := map[string]interface{}{
		"merchant":    c.Merchant,
		"amount":      req.Amount,
		"callbackUrl": req.CallbackURL,
		"description": req.Description,
		"orderId":     req.OrderRef,
	}

	var out struct {
		TrackID int64 `json:"trackId"`
		Result  int   `json:"result"`
	}
	if err := c.post(ctx, "/v1/request", payload, &out); err != nil {
		return nil, err
	}
	if out.Result != zibalResultOK || out.TrackID == 0 {
		log.Printf("zibal initiate rejected: result=%d order_ref=%s", out.Result, req.OrderRef)
		return nil, fmt.Errorf("zibal initiate result %d: %w", out.Result, ErrGatewayUnavailable)
	}

	track := strconv.FormatInt(out.TrackID, 10)
	return &InitiateResult{
		Authority:   track,
		RedirectURL: c.APIBaseURL + "/start/" + track,
	}, nil
}

func (c *ZibalClient) Verify(ctx context.Context, authority string, amount int64) (*VerifyResult, error) {
	_ = amount // zibal verifies by trackId alone; the amount was fixed at initiation

	trackID, err := strconv.ParseInt(strings.TrimSpace(authority), 10, 64)
	if err != nil {
		return &VerifyResult{Accepted: false, FailureCode: "bad_track_id"}, nil
	}

	payload := map[string]interface{}{
		"merchant": c.Merchant,
		"trackId":  trackID,
	}

	var out struct {
		Result    int    `json:"result"`
		RefNumber int64  `json:"refNumber"`
		Status    int    `json:"status"`
		Message   string `json:"message"`
	}
	if err := c.post(ctx, "/v1/verify", payload, &out); err != nil {
		return nil, err
	}

	switch out.Result {
	case zibalResultOK, zibalResultAlreadyVerified:
		return &VerifyResult{
			Accepted: true,
			RefID:    strconv.FormatInt(out.RefNumber, 10),
		}, nil
	default:
		return &VerifyResult{
			Accepted:    false,
			FailureCode: strconv.Itoa(out.Result),
		}, nil
	}
}

func (c *ZibalClient) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
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
		log.Printf("zibal request failed: path=%s err=%v", path, err)
		return fmt.Errorf("zibal unreachable: %w", ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("zibal request rejected: path=%s status=%d body=%s", path, resp.StatusCode, string(raw))
		return fmt.Errorf("zibal status %d: %w", resp.StatusCode, ErrGatewayUnavailable)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		log.Printf("zibal response unparsable: path=%s body=%s", path, string(raw))
		return fmt.Errorf("zibal response invalid: %w", ErrGatewayUnavailable)
	}
	return nil
}
