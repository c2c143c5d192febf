// internal/flights/handler.go
package flights

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/fawad-mazhar/skyhub/internal/config"
)

// TaskName is the registry key of the flight-search task.
const TaskName = "amadeus_preselection"

// settling delay between obtaining the access token and the first dispatch
const sleepAfterToken = 500 * time.Millisecond

// Handler runs the flight-search task: expand parameters into concrete search
// requests, fan them out against the external API under the dual limiter, and
// filter the aggregate down to a competitive subset.
type Handler struct {
	cfg    config.AmadeusConfig
	logger *slog.Logger
	settle time.Duration
}

// Stats summarizes one fan-out run; logged for observability.
type Stats struct {
	TotalTasks int   `json:"total_tasks"`
	OK         int   `json:"ok_responses"`
	Errors     int   `json:"error_responses"`
	ErrorCodes []int `json:"error_codes"`
	Found      int   `json:"found"`
	Filtered   int   `json:"filtered"`
}

func NewHandler(cfg config.AmadeusConfig, logger *slog.Logger) *Handler {
	return &Handler{cfg: cfg, logger: logger, settle: sleepAfterToken}
}

// Run executes one flight-search task invocation.
func (h *Handler) Run(ctx context.Context, taskID string, params json.RawMessage) (json.RawMessage, error) {
	var searchParams SearchParams
	if err := json.Unmarshal(params, &searchParams); err != nil {
		return nil, fmt.Errorf("invalid flight search params: %w", err)
	}

	requests, err := BuildSearchRequests(searchParams, h.logger)
	if err != nil {
		return nil, err
	}

	requestTimeout := time.Duration(h.cfg.RequestTimeout) * time.Second
	client := NewAmadeus(h.cfg, &http.Client{}, h.logger)

	h.logger.Info("obtaining access token", "task_id", taskID, "prepared_requests", len(requests))

	tokenCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	if err := client.InstallAccessToken(tokenCtx); err != nil {
		return nil, fmt.Errorf("failed to obtain access token: %w", err)
	}
	time.Sleep(h.settle)

	h.logger.Info("dispatching search requests", "task_id", taskID, "count", len(requests))

	outcomes := h.fanOut(ctx, client, requests, requestTimeout)

	var okCount, errorCount int
	errorCodes := make(map[int]struct{})
	var found []Offer
	for _, outcome := range outcomes {
		if outcome.Status != http.StatusOK {
			errorCount++
			errorCodes[outcome.Status] = struct{}{}
			continue
		}
		okCount++
		found = append(found, outcome.Offers...)
	}

	filtered := FilterOffers(found, h.logger)

	codes := make([]int, 0, len(errorCodes))
	for code := range errorCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	stats := Stats{
		TotalTasks: len(requests),
		OK:         okCount,
		Errors:     errorCount,
		ErrorCodes: codes,
		Found:      len(found),
		Filtered:   len(filtered),
	}
	h.logger.Info("fan-out complete", "task_id", taskID, "stats", stats)

	results := make([]json.RawMessage, len(filtered))
	for i, offer := range filtered {
		results[i] = offer.Raw
	}
	return json.Marshal(results)
}

// fanOut dispatches all requests concurrently under the dual limiter. Each
// request gets its own deadline; there is no batch-level cancellation once
// dispatch has begun.
func (h *Handler) fanOut(ctx context.Context, client *Amadeus, requests []SearchRequest, timeout time.Duration) []SearchOutcome {
	limiter := NewDualLimiter(h.cfg.MaxRequestsAtOnce, h.cfg.MaxRequestsPerSecond)
	outcomes := make([]SearchOutcome, len(requests))

	var wg sync.WaitGroup
	for i, request := range requests {
		wg.Add(1)
		go func(i int, request SearchRequest) {
			defer wg.Done()

			if err := limiter.Acquire(ctx); err != nil {
				outcomes[i] = SearchOutcome{Status: http.StatusRequestTimeout}
				return
			}
			defer limiter.Release()

			reqCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			outcomes[i] = client.Search(reqCtx, request)
		}(i, request)
	}
	wg.Wait()

	return outcomes
}
