package position

import "github.com/marketmate/marketmate/internal/signal"

// ATR computes the Average True Range over the trailing period from a bar
// series, returning one value per bar. Bars before a full period have ATR 0,
// which disables the Chandelier ratchet until enough history exists.
// Malformed bars contribute nothing: true ranges span consecutive valid
// bars only, so a bad print never inflates the trailing mean.
func ATR(bars []signal.Bar, period int) []float64 {
	out := make([]float64, len(bars))
	if period <= 0 {
		return out
	}

	var trueRanges []float64
	prevClose := 0.0
	for i, bar := range bars {
		if !bar.Valid() {
			continue
		}
		if prevClose > 0 {
			highLow := bar.High - bar.Low
			highClose := abs(bar.High - prevClose)
			lowClose := abs(bar.Low - prevClose)
			trueRanges = append(trueRanges, max3(highLow, highClose, lowClose))

			if len(trueRanges) >= period {
				sum := 0.0
				for _, tr := range trueRanges[len(trueRanges)-period:] {
					sum += tr
				}
				out[i] = sum / float64(period)
			}
		}
		prevClose = bar.Close
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
