// internal/flights/duration.go
package flights

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DurationHours converts an ISO 8601 duration as returned per itinerary
// (e.g. "PT2H30M", "P1DT4H", "PT45M") into a total hour count. Rounding to
// two decimals is kept deliberately for output parity with stored results.
// An empty duration means zero.
func DurationHours(iso string) (float64, error) {
	if iso == "" {
		return 0, nil
	}

	if !strings.HasPrefix(iso, "P") {
		return 0, fmt.Errorf("invalid duration %q", iso)
	}

	datePart, timePart, hasTime := strings.Cut(iso[1:], "T")
	if hasTime && timePart == "" {
		return 0, fmt.Errorf("invalid duration %q", iso)
	}

	dateVals, err := parseComponents(datePart, "D")
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", iso, err)
	}
	timeVals, err := parseComponents(timePart, "HMS")
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", iso, err)
	}

	hours := float64(dateVals['D'])*24 +
		float64(timeVals['H']) +
		float64(timeVals['M'])/60 +
		float64(timeVals['S'])/3600

	return math.Round(hours*100) / 100, nil
}

// parseComponents scans a duration fragment as a sequence of <digits><unit>
// pairs, with units restricted to the given set and appearing at most once.
func parseComponents(part string, units string) (map[byte]int, error) {
	vals := make(map[byte]int)

	i := 0
	for i < len(part) {
		j := i
		for j < len(part) && part[j] >= '0' && part[j] <= '9' {
			j++
		}
		if j == i || j == len(part) {
			return nil, fmt.Errorf("malformed component at %q", part[i:])
		}

		unit := part[j]
		if !strings.ContainsRune(units, rune(unit)) {
			return nil, fmt.Errorf("unexpected unit %q", string(unit))
		}
		if _, dup := vals[unit]; dup {
			return nil, fmt.Errorf("duplicate unit %q", string(unit))
		}

		n, err := strconv.Atoi(part[i:j])
		if err != nil {
			return nil, err
		}
		vals[unit] = n
		i = j + 1
	}

	return vals, nil
}
