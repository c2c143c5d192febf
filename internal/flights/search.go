// internal/flights/search.go
package flights

import (
	"fmt"
	"log/slog"
	"sort"
	"time"
)

const dateFormat = "2006-01-02"

// SearchParams are the typed task parameters of the flight-search task.
type SearchParams struct {
	DateFrom           string     `json:"date_from"`
	DateTo             string     `json:"date_to"`
	NightsInDstFrom    int        `json:"nights_in_dst_from"`
	NightsInDstTo      int        `json:"nights_in_dst_to"`
	PassengersMap      Passengers `json:"passengers_map"`
	FlyFromAirports    []string   `json:"fly_from_airports"`
	FlyToAirports      []string   `json:"fly_to_airports"`
	ReturnFromAirports []string   `json:"return_from_airports"`
	ReturnToAirports   []string   `json:"return_to_airports"`
	ReturnFrom         string     `json:"return_from"`
	ReturnTo           string     `json:"return_to"`
	AllowOppositeRoute bool       `json:"allow_opposite_route"`
	CurrencyCode       string     `json:"currency_code"`
	Multicity          bool       `json:"multicity"`
}

// Passengers describes traveler composition by type.
type Passengers struct {
	Adults   int   `json:"adults"`
	Children []int `json:"children"`
}

// Leg is one flight of a search request.
type Leg struct {
	From          string
	To            string
	DepartureDate string
}

// SearchRequest is one concrete date/airport combination sent to the search API.
type SearchRequest struct {
	Legs       []Leg
	Passengers Passengers
	Currency   string
	CabinClass string
}

type datePair struct {
	departure string
	ret       string
}

type airportTuple struct {
	flyFrom    string
	flyTo      string
	returnFrom string
	returnTo   string
}

// BuildSearchRequests expands task parameters into the full set of concrete
// search requests: every departure date crossed with every nights value whose
// return date lands inside the return window, crossed with every airport
// combination. Without multicity only true round trips survive.
func BuildSearchRequests(params SearchParams, logger *slog.Logger) ([]SearchRequest, error) {
	dateFrom, err := time.Parse(dateFormat, params.DateFrom)
	if err != nil {
		return nil, fmt.Errorf("invalid date_from: %w", err)
	}
	dateTo, err := time.Parse(dateFormat, params.DateTo)
	if err != nil {
		return nil, fmt.Errorf("invalid date_to: %w", err)
	}
	returnFrom, err := time.Parse(dateFormat, params.ReturnFrom)
	if err != nil {
		return nil, fmt.Errorf("invalid return_from: %w", err)
	}
	returnTo, err := time.Parse(dateFormat, params.ReturnTo)
	if err != nil {
		return nil, fmt.Errorf("invalid return_to: %w", err)
	}

	var datePairs []datePair
	for d := dateFrom; !d.After(dateTo); d = d.AddDate(0, 0, 1) {
		for nights := params.NightsInDstFrom; nights <= params.NightsInDstTo; nights++ {
			returnDate := d.AddDate(0, 0, nights)
			if returnDate.Before(returnFrom) || returnDate.After(returnTo) {
				continue
			}
			datePairs = append(datePairs, datePair{
				departure: d.Format(dateFormat),
				ret:       returnDate.Format(dateFormat),
			})
		}
	}

	seen := make(map[airportTuple]struct{})
	var airports []airportTuple
	for _, flyFrom := range params.FlyFromAirports {
		for _, flyTo := range params.FlyToAirports {
			for _, returnFrom := range params.ReturnFromAirports {
				for _, returnTo := range params.ReturnToAirports {
					t := airportTuple{flyFrom, flyTo, returnFrom, returnTo}
					if _, dup := seen[t]; dup {
						continue
					}
					// only keep proper two-way trips between the same airports
					if !params.Multicity && (t.flyFrom != t.returnTo || t.flyTo != t.returnFrom) {
						continue
					}
					seen[t] = struct{}{}
					airports = append(airports, t)
				}
			}
		}
	}
	sort.Slice(airports, func(i, j int) bool {
		a, b := airports[i], airports[j]
		if a.flyFrom != b.flyFrom {
			return a.flyFrom < b.flyFrom
		}
		if a.flyTo != b.flyTo {
			return a.flyTo < b.flyTo
		}
		if a.returnFrom != b.returnFrom {
			return a.returnFrom < b.returnFrom
		}
		return a.returnTo < b.returnTo
	})

	requests := make([]SearchRequest, 0, len(datePairs)*len(airports))
	for _, dates := range datePairs {
		for _, t := range airports {
			requests = append(requests, SearchRequest{
				Legs: []Leg{
					{From: t.flyFrom, To: t.flyTo, DepartureDate: dates.departure},
					{From: t.returnFrom, To: t.returnTo, DepartureDate: dates.ret},
				},
				Passengers: params.PassengersMap,
				Currency:   params.CurrencyCode,
			})
		}
	}

	logger.Info("expanded search requests",
		"date_combinations", len(datePairs),
		"airport_combinations", len(airports),
		"total_combinations", len(requests),
		"multicity", params.Multicity,
		"allow_opposite_route", params.AllowOppositeRoute,
	)

	return requests, nil
}
