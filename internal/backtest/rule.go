package backtest

import (
	"context"

	"github.com/marketmate/marketmate/internal/confidence"
	"github.com/marketmate/marketmate/internal/percentile"
	"github.com/marketmate/marketmate/internal/scan"
	"github.com/marketmate/marketmate/internal/signal"
)

// EntryRule decides whether a bar opens a position. Implementations own any
// state they need (score windows, regime filters); the engine only consumes
// the decision.
type EntryRule interface {
	Decide(ctx context.Context, bar signal.Bar) (EntryDecision, error)
}

// ModeRule is the standard entry rule: confidence gates the entry, the
// percentile sizer picks the tier, and the mode config sets the stop buffer
// and target ladder. Each bar's raw score is fed into the rolling window
// before the percentile lookup.
type ModeRule struct {
	mode  signal.ModeConfig
	sizer *percentile.Sizer
}

// NewModeRule builds the standard rule for a mode.
func NewModeRule(mode signal.Mode, sizer *percentile.Sizer) *ModeRule {
	return &ModeRule{mode: mode.Config(), sizer: sizer}
}

func (r *ModeRule) Decide(ctx context.Context, bar signal.Bar) (EntryDecision, error) {
	if err := r.sizer.AddDailyScores(ctx, bar.Date, []float64{bar.TechnicalScore}); err != nil {
		return EntryDecision{}, err
	}

	if bar.TechnicalScore < r.mode.MinBuyScore {
		return EntryDecision{}, nil
	}

	conf := confidence.Calculate(scan.NormalizeScore(bar.TechnicalScore), bar.Risk)
	if conf.SizeTier == signal.TierNone {
		return EntryDecision{}, nil
	}

	tier := r.sizer.PositionSize(bar.TechnicalScore, bar.Date, signal.TierNone)
	if tier == signal.TierNone {
		return EntryDecision{}, nil
	}

	m := r.mode.TargetMultiplier
	return EntryDecision{
		Enter:          true,
		Tier:           tier,
		Confidence:     conf.Confidence,
		StopLossBuffer: r.mode.StopLossBuffer,
		TargetGains:    [3]float64{0.04 * m, 0.08 * m, 0.15 * m},
	}, nil
}
