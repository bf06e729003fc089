package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marketmate/marketmate/internal/signal"
)

func floatPtr(v float64) *float64   { return &v }
func strPtr(s string) *string       { return &s }
func regimePtr(r signal.MacroRegime) *signal.MacroRegime { return &r }

func TestCalculateBaseMapping(t *testing.T) {
	tests := []struct {
		name      string
		baseScore float64
		wantBase  float64
	}{
		{"neutral score", 0, 50},
		{"max score", 10, 100},
		{"min score", -10, 0},
		{"strong score", 8, 90},
		{"weak score", -4, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Calculate(tt.baseScore, signal.RiskInputs{})
			assert.Equal(t, tt.wantBase, result.BaseConfidence)
			assert.Equal(t, tt.wantBase, result.Confidence, "no adjustments without risk inputs")
			assert.Zero(t, result.Adjustments)
			assert.Empty(t, result.RiskFactors)
		})
	}
}

func TestCalculateFavorableConditions(t *testing.T) {
	result := Calculate(8.0, signal.RiskInputs{
		VIX:        floatPtr(14),
		SPXTrend:   &signal.SPXTrend{Bullish: true, AboveMA: true, DistancePct: 6.2},
		MacroScore: floatPtr(7.5),
	})

	assert.GreaterOrEqual(t, result.Confidence, 80.0)
	assert.Equal(t, LevelStrongBuy, result.Level)
	assert.Equal(t, signal.TierFull, result.SizeTier)
	assert.Empty(t, result.RiskFactors, "positive adjustments are silent")
}

func TestCalculateHostileConditions(t *testing.T) {
	result := Calculate(6.0, signal.RiskInputs{
		VIX:         floatPtr(32),
		MacroRegime: regimePtr(signal.RegimeBearish),
		MacroScore:  floatPtr(3.5),
	})

	assert.Equal(t, 80.0, result.BaseConfidence)
	assert.Equal(t, -50.0, result.Adjustments)
	assert.Equal(t, 30.0, result.Confidence)
	assert.Equal(t, LevelAvoid, result.Level)
	assert.Equal(t, signal.TierNone, result.SizeTier)
	assert.Len(t, result.RiskFactors, 3, "each negative adjustment names a factor")
}

func TestCalculateVIXBands(t *testing.T) {
	tests := []struct {
		vix  float64
		want float64
	}{
		{35, -25},
		{27, -15},
		{22, -5},
		{18, 0},
		{14, 10},
	}

	for _, tt := range tests {
		result := Calculate(0, signal.RiskInputs{VIX: floatPtr(tt.vix)})
		assert.Equal(t, tt.want, result.Adjustments, "vix %.1f", tt.vix)
	}
}

func TestCalculateSPXTrend(t *testing.T) {
	bear := Calculate(0, signal.RiskInputs{SPXTrend: &signal.SPXTrend{Bullish: false, DistancePct: -3.1}})
	assert.Equal(t, -20.0, bear.Adjustments)
	assert.NotEmpty(t, bear.RiskFactors)

	strongBull := Calculate(0, signal.RiskInputs{SPXTrend: &signal.SPXTrend{Bullish: true, DistancePct: 7}})
	assert.Equal(t, 15.0, strongBull.Adjustments)

	mildBull := Calculate(0, signal.RiskInputs{SPXTrend: &signal.SPXTrend{Bullish: true, DistancePct: 2}})
	assert.Equal(t, 5.0, mildBull.Adjustments)
}

func TestCalculateSentiment(t *testing.T) {
	greed := Calculate(0, signal.RiskInputs{FearGreedLabel: strPtr("Extreme Greed")})
	assert.Equal(t, -10.0, greed.Adjustments)

	fear := Calculate(0, signal.RiskInputs{FearGreedLabel: strPtr("Extreme Fear")})
	assert.Equal(t, 5.0, fear.Adjustments)
	assert.Empty(t, fear.RiskFactors)

	neutral := Calculate(0, signal.RiskInputs{FearGreedLabel: strPtr("Neutral")})
	assert.Zero(t, neutral.Adjustments)
}

func TestCalculateBounded(t *testing.T) {
	// Every adjustment negative at once, on a floor score.
	worst := Calculate(-10, signal.RiskInputs{
		VIX:            floatPtr(40),
		SPXTrend:       &signal.SPXTrend{Bullish: false, DistancePct: -12},
		MacroRegime:    regimePtr(signal.RegimeBearish),
		MacroScore:     floatPtr(1),
		FearGreedLabel: strPtr("Extreme Greed"),
	})
	assert.Equal(t, 0.0, worst.Confidence)

	best := Calculate(10, signal.RiskInputs{
		VIX:            floatPtr(12),
		SPXTrend:       &signal.SPXTrend{Bullish: true, DistancePct: 8},
		MacroRegime:    regimePtr(signal.RegimeBullish),
		MacroScore:     floatPtr(9),
		FearGreedLabel: strPtr("Extreme Fear"),
	})
	assert.Equal(t, 100.0, best.Confidence)
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		confidence float64
		wantLevel  string
		wantTier   signal.Tier
	}{
		{80, LevelStrongBuy, signal.TierFull},
		{79.9, LevelBuy, signal.TierFull},
		{65, LevelBuy, signal.TierFull},
		{64.9, LevelWatch, signal.TierHalf},
		{50, LevelWatch, signal.TierHalf},
		{49.9, LevelCaution, signal.TierQuarter},
		{35, LevelCaution, signal.TierQuarter},
		{34.9, LevelAvoid, signal.TierNone},
	}

	for _, tt := range tests {
		level, tier := classify(tt.confidence)
		assert.Equal(t, tt.wantLevel, level, "confidence %.1f", tt.confidence)
		assert.Equal(t, tt.wantTier, tier, "confidence %.1f", tt.confidence)
	}
}
