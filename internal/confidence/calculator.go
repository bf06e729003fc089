// Package confidence converts a normalized technical score plus macro risk
// context into a bounded confidence percentage and a position-size tier.
package confidence

import (
	"fmt"
	"strings"

	"github.com/marketmate/marketmate/internal/signal"
)

// Level labels for the discrete confidence buckets.
const (
	LevelStrongBuy = "STRONG_BUY"
	LevelBuy       = "BUY"
	LevelWatch     = "WATCH"
	LevelCaution   = "CAUTION"
	LevelAvoid     = "AVOID"
)

// Result is the outcome of one confidence evaluation.
type Result struct {
	Confidence     float64  `json:"confidence"`      // 0-100 after adjustments
	BaseConfidence float64  `json:"base_confidence"` // 0-100 before adjustments
	Adjustments    float64  `json:"adjustments"`     // signed sum applied
	Level          string   `json:"level"`
	SizeTier       signal.Tier `json:"size_tier"`
	RiskFactors    []string `json:"risk_factors,omitempty"`
}

// Calculate maps baseScore in [-10,10] to a confidence in [0,100] and applies
// additive macro risk adjustments. It is a pure function: nil optional inputs
// are skipped, nothing is fetched, nothing panics. Only negative adjustments
// append risk factors; positive ones are silent.
func Calculate(baseScore float64, risk signal.RiskInputs) Result {
	base := ((baseScore + 10) / 20) * 100
	base = clamp(base, 0, 100)

	var adjustments float64
	var factors []string

	if risk.VIX != nil {
		vix := *risk.VIX
		switch {
		case vix > 30:
			adjustments -= 25
			factors = append(factors, fmt.Sprintf("High VIX (%.1f) - Market panic", vix))
		case vix > 25:
			adjustments -= 15
			factors = append(factors, fmt.Sprintf("Elevated VIX (%.1f) - Increased volatility", vix))
		case vix > 20:
			adjustments -= 5
			factors = append(factors, fmt.Sprintf("Moderate VIX (%.1f)", vix))
		case vix < 15:
			adjustments += 10
		}
	}

	if risk.SPXTrend != nil {
		trend := *risk.SPXTrend
		if !trend.Bullish {
			adjustments -= 20
			factors = append(factors, fmt.Sprintf("Bear Market (SPX %.1f%% below 200MA)", trend.DistancePct))
		} else if trend.DistancePct > 5 {
			adjustments += 15
		} else {
			adjustments += 5
		}
	}

	if risk.MacroRegime != nil {
		switch *risk.MacroRegime {
		case signal.RegimeBearish:
			adjustments -= 15
			factors = append(factors, "Bearish macro regime")
		case signal.RegimeBullish:
			adjustments += 10
		}
	}

	if risk.MacroScore != nil {
		ms := *risk.MacroScore
		if ms < 4 {
			adjustments -= 10
			factors = append(factors, fmt.Sprintf("Weak macro (score %.1f/10)", ms))
		} else if ms > 7 {
			adjustments += 10
		}
	}

	if risk.FearGreedLabel != nil {
		label := *risk.FearGreedLabel
		if strings.Contains(label, "Extreme Greed") {
			adjustments -= 10
			factors = append(factors, "Extreme Greed - Overheated market")
		} else if strings.Contains(label, "Extreme Fear") {
			adjustments += 5 // contrarian opportunity
		}
	}

	final := clamp(base+adjustments, 0, 100)
	level, tier := classify(final)

	return Result{
		Confidence:     final,
		BaseConfidence: base,
		Adjustments:    adjustments,
		Level:          level,
		SizeTier:       tier,
		RiskFactors:    factors,
	}
}

// classify maps a final confidence to its level label and size tier.
func classify(confidence float64) (string, signal.Tier) {
	switch {
	case confidence >= 80:
		return LevelStrongBuy, signal.TierFull
	case confidence >= 65:
		return LevelBuy, signal.TierFull
	case confidence >= 50:
		return LevelWatch, signal.TierHalf
	case confidence >= 35:
		return LevelCaution, signal.TierQuarter
	default:
		return LevelAvoid, signal.TierNone
	}
}

// Describe returns the user-facing explanation of a confidence level.
func Describe(level string) string {
	switch level {
	case LevelStrongBuy:
		return "High probability setup with favorable market conditions"
	case LevelBuy:
		return "Good setup with acceptable risk"
	case LevelWatch:
		return "Moderate setup - consider reduced position size"
	case LevelCaution:
		return "Elevated risk - small position only"
	case LevelAvoid:
		return "High risk - wait for better conditions"
	default:
		return "Unknown"
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
