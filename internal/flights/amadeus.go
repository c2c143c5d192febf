// internal/flights/amadeus.go
package flights

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/fawad-mazhar/skyhub/internal/config"
	"github.com/google/uuid"
)

// CabinClassAny disables the cabin restriction in search requests.
const CabinClassAny = "any"

var cabinClassMap = map[string]string{
	CabinClassAny:     "",
	"first":           "FIRST",
	"business":        "BUSINESS",
	"premium_economy": "PREMIUM_ECONOMY",
	"economy":         "ECONOMY",
}

// Amadeus is a client for the external flight search API. One access token is
// obtained per task invocation and reused across the whole fan-out.
type Amadeus struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	apiSecret   string
	accessToken string
	logger      *slog.Logger
}

// SearchOutcome is the result of one search request. Timeouts surface as a
// synthetic 408 status instead of an error, so a slow request never fails the
// batch.
type SearchOutcome struct {
	Status int
	Offers []Offer
}

// Offer is one priced itinerary set from a search response. Raw carries the
// full upstream document so survivors round-trip into the result record
// unchanged; the remaining fields are the filter's precomputed metrics.
type Offer struct {
	Raw      json.RawMessage
	Price    float64
	Segments int
	Hours    float64
}

func NewAmadeus(cfg config.AmadeusConfig, httpClient *http.Client, logger *slog.Logger) *Amadeus {
	return &Amadeus{
		httpClient: httpClient,
		baseURL:    cfg.URL,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		logger:     logger,
	}
}

func (a *Amadeus) apiURL(path string) string {
	return fmt.Sprintf("%s/%s", a.baseURL, path)
}

func clientRequestID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// InstallAccessToken performs the client-credentials exchange once; further
// calls reuse the cached token.
func (a *Amadeus) InstallAccessToken(ctx context.Context) error {
	if a.accessToken != "" {
		return nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", a.apiKey)
	form.Set("client_secret", a.apiSecret)

	endpoint := a.apiURL("v1/security/oauth2/token")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Ama-Client-Ref", clientRequestID())
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	a.logger.Info("requesting access token", "url", endpoint)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token request returned status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return errors.New("token response contained no access_token")
	}

	a.accessToken = body.AccessToken
	return nil
}

type originDestination struct {
	ID                      int            `json:"id"`
	OriginLocationCode      string         `json:"originLocationCode"`
	DestinationLocationCode string         `json:"destinationLocationCode"`
	DepartureDateTimeRange  map[string]any `json:"departureDateTimeRange"`
}

type traveler struct {
	ID           int      `json:"id"`
	TravelerType string   `json:"travelerType"`
	FareOptions  []string `json:"fareOptions"`
}

// Search issues one flight-offers request. The context carries the caller's
// per-request deadline; exceeding it yields a 408 outcome rather than an error.
func (a *Amadeus) Search(ctx context.Context, request SearchRequest) SearchOutcome {
	payload := a.buildPayload(request)

	data, err := json.Marshal(payload)
	if err != nil {
		a.logger.Error("failed to marshal search payload", "error", err)
		return SearchOutcome{Status: http.StatusInternalServerError}
	}

	endpoint := a.apiURL("v2/shopping/flight-offers")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		a.logger.Error("failed to build search request", "error", err)
		return SearchOutcome{Status: http.StatusInternalServerError}
	}
	req.Header.Set("Ama-Client-Ref", clientRequestID())
	req.Header.Set("Authorization", "Bearer "+a.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return SearchOutcome{Status: http.StatusRequestTimeout}
		}
		a.logger.Error("search request failed", "error", err)
		return SearchOutcome{Status: http.StatusBadGateway}
	}
	defer resp.Body.Close()

	var body struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if isTimeout(err) {
			return SearchOutcome{Status: http.StatusRequestTimeout}
		}
		a.logger.Error("failed to decode search response", "error", err)
		return SearchOutcome{Status: http.StatusBadGateway}
	}

	offers := make([]Offer, 0, len(body.Data))
	for _, raw := range body.Data {
		offer, err := ParseOffer(raw)
		if err != nil {
			a.logger.Error("failed to parse offer", "error", err)
			return SearchOutcome{Status: http.StatusBadGateway}
		}
		offers = append(offers, offer)
	}

	return SearchOutcome{Status: resp.StatusCode, Offers: offers}
}

func (a *Amadeus) buildPayload(request SearchRequest) map[string]any {
	searchCriteria := map[string]any{
		"allowAlternativeFareOptions": true,
		"additionalInformation": map[string]any{
			"chargeableCheckedBags": true,
		},
	}

	origins := make([]originDestination, len(request.Legs))
	for i, leg := range request.Legs {
		origins[i] = originDestination{
			ID:                      i + 1,
			OriginLocationCode:      leg.From,
			DestinationLocationCode: leg.To,
			DepartureDateTimeRange:  map[string]any{"date": leg.DepartureDate},
		}
	}

	travelers := make([]traveler, 0, request.Passengers.Adults+len(request.Passengers.Children))
	for i := 0; i < request.Passengers.Adults; i++ {
		travelers = append(travelers, traveler{
			ID:           i + 1,
			TravelerType: "ADULT",
			FareOptions:  []string{"STANDARD"},
		})
	}
	for i := range request.Passengers.Children {
		travelers = append(travelers, traveler{
			ID:           i + 1 + request.Passengers.Adults,
			TravelerType: "CHILD",
			FareOptions:  []string{"STANDARD"},
		})
	}

	if cabin := cabinClassMap[request.CabinClass]; cabin != "" {
		ids := make([]int, len(origins))
		for i := range origins {
			ids[i] = origins[i].ID
		}
		searchCriteria["flightFilters"] = map[string]any{
			"cabinRestrictions": []map[string]any{
				{"cabin": cabin, "originDestinationIds": ids},
			},
		}
	}

	return map[string]any{
		"currencyCode":       request.Currency,
		"searchCriteria":     searchCriteria,
		"originDestinations": origins,
		"travelers":          travelers,
		"sources":            []string{"GDS", "PYTON", "LTC", "EAC", "NDC"},
	}
}

// ParseOffer extracts the filter metrics from an upstream offer document while
// keeping the raw bytes intact.
func ParseOffer(raw json.RawMessage) (Offer, error) {
	var meta struct {
		Price struct {
			GrandTotal string `json:"grandTotal"`
		} `json:"price"`
		Itineraries []struct {
			Duration string            `json:"duration"`
			Segments []json.RawMessage `json:"segments"`
		} `json:"itineraries"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Offer{}, fmt.Errorf("malformed offer: %w", err)
	}

	price, err := strconv.ParseFloat(meta.Price.GrandTotal, 64)
	if err != nil {
		return Offer{}, fmt.Errorf("malformed offer price %q: %w", meta.Price.GrandTotal, err)
	}

	var segments int
	var hours float64
	for _, itinerary := range meta.Itineraries {
		segments += len(itinerary.Segments)
		h, err := DurationHours(itinerary.Duration)
		if err != nil {
			return Offer{}, err
		}
		hours += h
	}

	return Offer{Raw: raw, Price: price, Segments: segments, Hours: hours}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
