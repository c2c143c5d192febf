// internal/flights/handler_test.go
package flights

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/fawad-mazhar/skyhub/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOffer = `{
	"price": {"grandTotal": "1234.56"},
	"itineraries": [
		{"duration": "PT11H30M", "segments": [{"carrierCode": "LO"}]},
		{"duration": "PT12H", "segments": [{"carrierCode": "LO"}]}
	]
}`

func testAmadeusConfig(url string) config.AmadeusConfig {
	return config.AmadeusConfig{
		URL:                  url,
		APIKey:               "key",
		APISecret:            "secret",
		MaxRequestsAtOnce:    10,
		MaxRequestsPerSecond: 100,
		RequestTimeout:       2,
	}
}

func newSearchAPIServer(t *testing.T, searches *atomic.Int32, searchStatus int) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/security/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		json.NewEncoder(w).Encode(map[string]string{"access_token": "token-123"})
	})
	mux.HandleFunc("/v2/shopping/flight-offers", func(w http.ResponseWriter, r *http.Request) {
		searches.Add(1)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		if searchStatus != http.StatusOK {
			w.WriteHeader(searchStatus)
			json.NewEncoder(w).Encode(map[string]any{"errors": []string{"boom"}})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"data": []json.RawMessage{json.RawMessage(testOffer)}})
	})
	return httptest.NewServer(mux)
}

// two date pairs x one round-trip airport tuple = two search requests
func testTaskParams(t *testing.T) json.RawMessage {
	t.Helper()
	params := SearchParams{
		DateFrom:           "2024-04-25",
		DateTo:             "2024-04-26",
		NightsInDstFrom:    7,
		NightsInDstTo:      7,
		ReturnFrom:         "2024-05-01",
		ReturnTo:           "2024-05-05",
		FlyFromAirports:    []string{"WAW"},
		FlyToAirports:      []string{"MLE"},
		ReturnFromAirports: []string{"MLE"},
		ReturnToAirports:   []string{"WAW"},
		PassengersMap:      Passengers{Adults: 1},
		CurrencyCode:       "PLN",
	}
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	return raw
}

func TestHandlerRun(t *testing.T) {
	t.Run("aggregates and filters fan-out results", func(t *testing.T) {
		var searches atomic.Int32
		server := newSearchAPIServer(t, &searches, http.StatusOK)
		defer server.Close()

		handler := NewHandler(testAmadeusConfig(server.URL), testLogger())
		handler.settle = 0

		results, err := handler.Run(context.Background(), "task-1", testTaskParams(t))
		require.NoError(t, err)
		assert.Equal(t, int32(2), searches.Load())

		var offers []json.RawMessage
		require.NoError(t, json.Unmarshal(results, &offers))
		require.Len(t, offers, 2)

		offer, err := ParseOffer(offers[0])
		require.NoError(t, err)
		assert.Equal(t, 1234.56, offer.Price)
		assert.Equal(t, 2, offer.Segments)
		assert.Equal(t, 23.5, offer.Hours)
	})

	t.Run("upstream errors shrink the result set without failing the task", func(t *testing.T) {
		var searches atomic.Int32
		server := newSearchAPIServer(t, &searches, http.StatusTooManyRequests)
		defer server.Close()

		handler := NewHandler(testAmadeusConfig(server.URL), testLogger())
		handler.settle = 0

		results, err := handler.Run(context.Background(), "task-1", testTaskParams(t))
		require.NoError(t, err)

		var offers []json.RawMessage
		require.NoError(t, json.Unmarshal(results, &offers))
		assert.Empty(t, offers)
	})

	t.Run("token failure fails the task", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		handler := NewHandler(testAmadeusConfig(server.URL), testLogger())
		handler.settle = 0

		_, err := handler.Run(context.Background(), "task-1", testTaskParams(t))
		assert.Error(t, err)
	})

	t.Run("rejects malformed params", func(t *testing.T) {
		handler := NewHandler(testAmadeusConfig("http://unused"), testLogger())
		handler.settle = 0

		_, err := handler.Run(context.Background(), "task-1", json.RawMessage(`{"date_from":5}`))
		assert.Error(t, err)
	})
}
