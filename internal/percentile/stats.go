package percentile

import (
	"sort"
	"time"
)

// WindowStats describes the current rolling window for diagnostics.
type WindowStats struct {
	WindowDays   int     `json:"window_days"`
	DataPoints   int     `json:"data_points"`
	Mean         float64 `json:"mean"`
	Median       float64 `json:"median"`
	Std          float64 `json:"std"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Percentile80 float64 `json:"percentile_80"` // full threshold
	Percentile60 float64 `json:"percentile_60"` // half threshold
	Percentile40 float64 `json:"percentile_40"` // quarter threshold
}

// WindowStats returns diagnostics for the window ending at date. The second
// return is false when the window holds no data at all.
func (s *Sizer) WindowStats(date time.Time) (WindowStats, bool) {
	window := s.windowScores(date)
	if len(window) == 0 {
		return WindowStats{WindowDays: s.windowDays}, false
	}

	sorted := append([]float64(nil), window...)
	sort.Float64s(sorted)

	return WindowStats{
		WindowDays:   s.windowDays,
		DataPoints:   len(window),
		Mean:         mean(window),
		Median:       median(window),
		Std:          stddev(window),
		Min:          sorted[0],
		Max:          sorted[len(sorted)-1],
		Percentile80: interpolate(sorted, 80),
		Percentile60: interpolate(sorted, 60),
		Percentile40: interpolate(sorted, 40),
	}, true
}

// interpolate computes the p-th percentile with linear interpolation over a
// sorted slice.
func interpolate(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	pos := p / 100 * float64(len(sorted)-1)
	lower := int(pos)
	if lower >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lower)
	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}
