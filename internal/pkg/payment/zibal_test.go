package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newZibalTestClient(srv *httptest.Server) *ZibalClient {
	return &ZibalClient{
		Merchant:   "test-merchant",
		APIBaseURL: srv.URL,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestZibalInitiate_AmountPassesThrough(t *testing.T) {
	var sentAmount int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/request", r.URL.Path)

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		sentAmount = int64(payload["amount"].(float64))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"trackId": 987654,
			"result":  100,
		})
	}))
	defer srv.Close()

	client := newZibalTestClient(srv)
	result, err := client.Initiate(context.Background(), InitiateRequest{
		Amount:   75000,
		OrderRef: "order-2",
	})
	require.NoError(t, err)

	// no unit conversion for zibal
	assert.Equal(t, int64(75000), sentAmount)
	assert.Equal(t, "987654", result.Authority)
	assert.Equal(t, srv.URL+"/start/987654", result.RedirectURL)
}

func TestZibalVerify_Accepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/verify", r.URL.Path)

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, float64(987654), payload["trackId"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"result":    100,
			"refNumber": 112233,
		})
	}))
	defer srv.Close()

	client := newZibalTestClient(srv)
	result, err := client.Verify(context.Background(), "987654", 75000)
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, "112233", result.RefID)
}

func TestZibalVerify_AlreadyVerifiedIsAccepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"result":    201,
			"refNumber": 112233,
		})
	}))
	defer srv.Close()

	client := newZibalTestClient(srv)
	result, err := client.Verify(context.Background(), "987654", 75000)
	require.NoError(t, err)
	assert.True(t, result.Accepted)
}

func TestZibalVerify_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"result": 102,
		})
	}))
	defer srv.Close()

	client := newZibalTestClient(srv)
	result, err := client.Verify(context.Background(), "987654", 75000)
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, "102", result.FailureCode)
}

func TestZibalVerify_BadTrackID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no network call expected for an unparsable track id")
	}))
	defer srv.Close()

	client := newZibalTestClient(srv)
	result, err := client.Verify(context.Background(), "not-a-number", 75000)
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, "bad_track_id", result.FailureCode)
}
