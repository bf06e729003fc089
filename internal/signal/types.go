// Package signal defines the shared domain types for the scoring and
// position sizing pipeline: size tiers, scored candidates, and price bars.
package signal

import "time"

// Tier is a discrete position-size bucket derived from confidence or
// percentile ranking. Ordering matters: none < quarter < half < full.
type Tier int

const (
	TierNone Tier = iota
	TierQuarter
	TierHalf
	TierFull
)

func (t Tier) String() string {
	switch t {
	case TierNone:
		return "none"
	case TierQuarter:
		return "quarter"
	case TierHalf:
		return "half"
	case TierFull:
		return "full"
	default:
		return "unknown"
	}
}

// Fraction returns the share of allocated capital the tier represents.
func (t Tier) Fraction() float64 {
	switch t {
	case TierQuarter:
		return 0.25
	case TierHalf:
		return 0.50
	case TierFull:
		return 1.0
	default:
		return 0
	}
}

// ParseTier maps a tier label back to its Tier value. Unknown labels map to
// TierNone, matching the permissive lookups in the sizing rules.
func ParseTier(s string) Tier {
	switch s {
	case "quarter":
		return TierQuarter
	case "half":
		return TierHalf
	case "full":
		return TierFull
	default:
		return TierNone
	}
}

// Max returns the larger of two tiers. Used by min-size floors, which can
// only raise a tier, never lower it.
func (t Tier) Max(other Tier) Tier {
	if other > t {
		return other
	}
	return t
}

// SPXTrend describes the index position relative to its 200-period MA.
type SPXTrend struct {
	Bullish     bool    `json:"bullish"`
	AboveMA     bool    `json:"above_ma"`
	DistancePct float64 `json:"distance_pct"`
}

// MacroRegime classifies the broad macro environment.
type MacroRegime string

const (
	RegimeBullish    MacroRegime = "bullish"
	RegimeBearish    MacroRegime = "bearish"
	RegimeTransition MacroRegime = "transition"
)

// RiskInputs carries the optional macro/sentiment context consumed by the
// confidence calculator. Nil fields are simply skipped in the adjustment sum.
type RiskInputs struct {
	VIX            *float64     `json:"vix,omitempty"`
	SPXTrend       *SPXTrend    `json:"spx_trend,omitempty"`
	MacroRegime    *MacroRegime `json:"macro_regime,omitempty"`
	MacroScore     *float64     `json:"macro_score,omitempty"`
	FearGreedLabel *string      `json:"fear_greed_label,omitempty"`
}

// Bar is one pricing tick consumed by the engine: OHLCV plus the
// externally computed technical score and optional macro context.
type Bar struct {
	Date   time.Time `json:"date"`
	Price  float64   `json:"price"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`

	TechnicalScore float64    `json:"technical_score"`
	Risk           RiskInputs `json:"risk"`
}

// Valid reports whether the bar carries usable price data. Malformed bars
// are skipped by the simulation loop without mutating positions.
func (b Bar) Valid() bool {
	return b.Close > 0 && b.High >= b.Low && b.Low > 0 && !b.Date.IsZero()
}

// ScoredCandidate is an immutable snapshot of one ticker's evaluation for a
// single cycle. Created fresh each scan; never mutated after ranking and
// override application.
type ScoredCandidate struct {
	Ticker          string   `json:"ticker"`
	RawScore        float64  `json:"raw_score"`        // unbounded, typically 0-10
	BaseScore       float64  `json:"base_score"`       // normalized -10..+10
	Confidence      float64  `json:"confidence"`       // 0-100
	Level           string   `json:"level"`            // STRONG_BUY..AVOID
	SizeTier        Tier     `json:"size_tier"`
	Percentile      float64  `json:"percentile"`
	RiskFactors     []string `json:"risk_factors,omitempty"`
	TopNOverride    bool     `json:"top_n_override,omitempty"`
	OverrideReason  string   `json:"override_reason,omitempty"`
	SectorCapped    bool     `json:"sector_capped,omitempty"`
	SectorCapReason string   `json:"sector_cap_reason,omitempty"`
}
