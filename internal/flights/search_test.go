// internal/flights/search_test.go
package flights

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func baseParams() SearchParams {
	return SearchParams{
		DateFrom:           "2024-04-25",
		DateTo:             "2024-04-27",
		NightsInDstFrom:    7,
		NightsInDstTo:      8,
		ReturnFrom:         "2024-05-03",
		ReturnTo:           "2024-05-04",
		FlyFromAirports:    []string{"GDN"},
		FlyToAirports:      []string{"MLE"},
		ReturnFromAirports: []string{"MLE"},
		ReturnToAirports:   []string{"GDN"},
		PassengersMap:      Passengers{Adults: 2, Children: []int{9}},
		CurrencyCode:       "PLN",
	}
}

func TestBuildSearchRequests(t *testing.T) {
	t.Run("keeps only date pairs whose return lands in the window", func(t *testing.T) {
		requests, err := BuildSearchRequests(baseParams(), testLogger())
		require.NoError(t, err)

		// 04-25+8, 04-26+7, 04-26+8, 04-27+7 land inside 05-03..05-04
		require.Len(t, requests, 4)

		var pairs [][2]string
		for _, r := range requests {
			require.Len(t, r.Legs, 2)
			pairs = append(pairs, [2]string{r.Legs[0].DepartureDate, r.Legs[1].DepartureDate})
		}
		assert.ElementsMatch(t, [][2]string{
			{"2024-04-25", "2024-05-03"},
			{"2024-04-26", "2024-05-03"},
			{"2024-04-26", "2024-05-04"},
			{"2024-04-27", "2024-05-04"},
		}, pairs)
	})

	t.Run("carries passenger and currency context into every request", func(t *testing.T) {
		requests, err := BuildSearchRequests(baseParams(), testLogger())
		require.NoError(t, err)

		for _, r := range requests {
			assert.Equal(t, Passengers{Adults: 2, Children: []int{9}}, r.Passengers)
			assert.Equal(t, "PLN", r.Currency)
			assert.Equal(t, "GDN", r.Legs[0].From)
			assert.Equal(t, "MLE", r.Legs[0].To)
			assert.Equal(t, "MLE", r.Legs[1].From)
			assert.Equal(t, "GDN", r.Legs[1].To)
		}
	})

	t.Run("without multicity only round trips survive", func(t *testing.T) {
		params := baseParams()
		params.ReturnFromAirports = []string{"MLE", "GAN"}
		params.ReturnToAirports = []string{"GDN", "WAW"}

		requests, err := BuildSearchRequests(params, testLogger())
		require.NoError(t, err)

		// only GDN->MLE / MLE->GDN forms a true round trip
		require.Len(t, requests, 4)
		for _, r := range requests {
			assert.Equal(t, r.Legs[0].From, r.Legs[1].To)
			assert.Equal(t, r.Legs[0].To, r.Legs[1].From)
		}
	})

	t.Run("multicity keeps every airport combination", func(t *testing.T) {
		params := baseParams()
		params.Multicity = true
		params.ReturnFromAirports = []string{"MLE", "GAN"}
		params.ReturnToAirports = []string{"GDN", "WAW"}

		requests, err := BuildSearchRequests(params, testLogger())
		require.NoError(t, err)

		// 4 date pairs x 4 airport tuples
		assert.Len(t, requests, 16)
	})

	t.Run("deduplicates repeated airports", func(t *testing.T) {
		params := baseParams()
		params.FlyFromAirports = []string{"GDN", "GDN"}

		requests, err := BuildSearchRequests(params, testLogger())
		require.NoError(t, err)
		assert.Len(t, requests, 4)
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		params := baseParams()
		params.DateFrom = "25-04-2024"

		_, err := BuildSearchRequests(params, testLogger())
		assert.Error(t, err)
	})

	t.Run("empty when no return date fits the window", func(t *testing.T) {
		params := baseParams()
		params.ReturnFrom = "2024-06-01"
		params.ReturnTo = "2024-06-02"

		requests, err := BuildSearchRequests(params, testLogger())
		require.NoError(t, err)
		assert.Empty(t, requests)
	})
}
