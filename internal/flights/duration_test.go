// internal/flights/duration_test.go
package flights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationHours(t *testing.T) {
	cases := []struct {
		iso   string
		hours float64
	}{
		{"", 0},
		{"PT2H", 2},
		{"PT2H30M", 2.5},
		{"PT45M", 0.75},
		{"PT1H5M", 1.08},
		{"PT1H05M", 1.08},
		{"P2D", 48},
		{"P1DT4H", 28},
		{"P1DT2H30M", 26.5},
		{"PT10H30M", 10.5},
		{"PT30S", 0.01},
		{"PT0H0M", 0},
	}

	for _, tc := range cases {
		t.Run(tc.iso, func(t *testing.T) {
			hours, err := DurationHours(tc.iso)

			require.NoError(t, err)
			assert.Equal(t, tc.hours, hours)
		})
	}
}

func TestDurationHoursRejectsMalformedInput(t *testing.T) {
	for _, iso := range []string{"2H", "PT", "PTXH", "PT5X", "PT5H5H", "P1D2H"} {
		t.Run(iso, func(t *testing.T) {
			_, err := DurationHours(iso)
			assert.Error(t, err)
		})
	}
}
