package scan

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketmate/marketmate/internal/percentile"
	"github.com/marketmate/marketmate/internal/persistence"
	"github.com/marketmate/marketmate/internal/sector"
	"github.com/marketmate/marketmate/internal/signal"
)

type stubEvaluator struct {
	bars map[string]signal.Bar
	errs map[string]error
}

func (e *stubEvaluator) Evaluate(_ context.Context, ticker string, date time.Time) (signal.Bar, error) {
	if err, ok := e.errs[ticker]; ok {
		return signal.Bar{}, err
	}
	bar, ok := e.bars[ticker]
	if !ok {
		return signal.Bar{}, fmt.Errorf("no data for %s", ticker)
	}
	return bar, nil
}

func scanDate() time.Time {
	return time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC)
}

func scoredBar(score float64) signal.Bar {
	return signal.Bar{
		Date: scanDate(), Price: 100, High: 101, Low: 99, Close: 100, Volume: 1000,
		TechnicalScore: score,
	}
}

func newTestPipeline(t *testing.T, evaluator Evaluator) *Pipeline {
	t.Helper()
	p, _ := newTestPipelineWithRepo(t, evaluator)
	return p
}

func newTestPipelineWithRepo(t *testing.T, evaluator Evaluator) (*Pipeline, *persistence.MemoryScoreHistory) {
	t.Helper()
	repo := persistence.NewMemoryScoreHistory()
	sizer, err := percentile.NewSizer(context.Background(), repo, 30)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.EvaluationsPerSec = 1000
	return NewPipeline(cfg, evaluator, sizer, sector.NewMapper(2)), repo
}

func TestScanExcludesFailedTickers(t *testing.T) {
	evaluator := &stubEvaluator{
		bars: map[string]signal.Bar{
			"VOLV-B": scoredBar(8),
			"ERIC-B": scoredBar(7),
		},
		errs: map[string]error{"AZN": fmt.Errorf("provider timeout")},
	}
	p := newTestPipeline(t, evaluator)

	cycle, err := p.Scan(context.Background(), scanDate(), []string{"VOLV-B", "AZN", "ERIC-B"}, nil)
	require.NoError(t, err, "a ticker failure never aborts the cycle")

	assert.Len(t, cycle.Candidates, 2)
	require.Len(t, cycle.Errors, 1)
	assert.Equal(t, "AZN", cycle.Errors[0].Ticker)
	assert.Error(t, cycle.Errors[0].Err)
}

func TestScanMalformedBarIsError(t *testing.T) {
	evaluator := &stubEvaluator{
		bars: map[string]signal.Bar{"VOLV-B": {Date: scanDate(), Close: -5}},
	}
	p := newTestPipeline(t, evaluator)

	cycle, err := p.Scan(context.Background(), scanDate(), []string{"VOLV-B"}, nil)
	require.NoError(t, err)
	assert.Empty(t, cycle.Candidates)
	assert.Len(t, cycle.Errors, 1)
}

func TestScanKeepsWeakTickers(t *testing.T) {
	// Score 1 normalizes to -8: confidence 10, below every actionable
	// tier. The ticker still scores and stays in the ranked list.
	evaluator := &stubEvaluator{
		bars: map[string]signal.Bar{"VOLV-B": scoredBar(1)},
	}
	p := newTestPipeline(t, evaluator)

	cycle, err := p.Scan(context.Background(), scanDate(), []string{"VOLV-B"}, nil)
	require.NoError(t, err)
	require.Len(t, cycle.Candidates, 1)
	assert.Equal(t, "AVOID", cycle.Candidates[0].Level)
	assert.Empty(t, cycle.Errors, "a weak score is not a failure")

	// Ranked first in a one-ticker universe, it is still eligible for the
	// Top-N floor despite its confidence level.
	assert.True(t, cycle.Candidates[0].TopNOverride)
	assert.Equal(t, signal.TierHalf, cycle.Candidates[0].SizeTier)
}

func TestScanWindowHoldsEveryScoredTicker(t *testing.T) {
	// Half the universe is far below any actionable confidence. The
	// rolling window must still record the full cross-section, or every
	// later percentile is ranked against a truncated distribution.
	bars := make(map[string]signal.Bar)
	var universe []string
	for i := 0; i < 5; i++ {
		weak := fmt.Sprintf("WEAK-%d", i)
		strong := fmt.Sprintf("STRONG-%d", i)
		bars[weak] = scoredBar(2)
		bars[strong] = scoredBar(8)
		universe = append(universe, weak, strong)
	}
	p, repo := newTestPipelineWithRepo(t, &stubEvaluator{bars: bars})

	cycle, err := p.Scan(context.Background(), scanDate(), universe, nil)
	require.NoError(t, err)
	assert.Len(t, cycle.Candidates, 10)

	days, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, 10, days[0].Count, "window holds every scanned score")

	// With the weak half anchoring the distribution, a strong score ranks
	// in the top half instead of at the floor.
	strong := cycle.Candidates[0]
	assert.Equal(t, 8.0, strong.RawScore)
	assert.Equal(t, 50.0, strong.Percentile)
}

func TestScanRanksScoreDescending(t *testing.T) {
	evaluator := &stubEvaluator{
		bars: map[string]signal.Bar{
			"VOLV-B": scoredBar(6),
			"ERIC-B": scoredBar(9),
			"AZN":    scoredBar(7.5),
		},
	}
	p := newTestPipeline(t, evaluator)

	cycle, err := p.Scan(context.Background(), scanDate(), []string{"VOLV-B", "ERIC-B", "AZN"}, nil)
	require.NoError(t, err)

	require.Len(t, cycle.Candidates, 3)
	assert.Equal(t, "ERIC-B", cycle.Candidates[0].Ticker)
	assert.Equal(t, "AZN", cycle.Candidates[1].Ticker)
	assert.Equal(t, "VOLV-B", cycle.Candidates[2].Ticker)

	for _, c := range cycle.Candidates {
		assert.NotZero(t, c.Confidence)
		assert.GreaterOrEqual(t, c.Percentile, 0.0)
	}
}

func TestScanAppliesTopNOverride(t *testing.T) {
	// Day-one scores sit in the absolute-fallback range where the sizer
	// yields at most a quarter tier, so only the Top-N floor lifts them.
	evaluator := &stubEvaluator{
		bars: map[string]signal.Bar{
			"VOLV-B": scoredBar(4.0), // Industrials
			"ERIC-B": scoredBar(4.4), // Technology
			"AZN":    scoredBar(4.2), // Healthcare
			"BOL":    scoredBar(3.6), // Materials
		},
	}
	p := newTestPipeline(t, evaluator)

	cycle, err := p.Scan(context.Background(), scanDate(), []string{"VOLV-B", "ERIC-B", "AZN", "BOL"}, nil)
	require.NoError(t, err)
	require.Len(t, cycle.Candidates, 4)

	overridden := 0
	for _, c := range cycle.Candidates {
		if c.TopNOverride {
			overridden++
			assert.GreaterOrEqual(t, c.SizeTier, signal.TierHalf)
		}
	}
	assert.Equal(t, 3, overridden)
	assert.False(t, cycle.Candidates[3].TopNOverride, "fourth candidate gets no floor")
}

func TestScanMarksSectorCap(t *testing.T) {
	evaluator := &stubEvaluator{
		bars: map[string]signal.Bar{
			"SWED-A": scoredBar(8), // Financials, cap already reached
			"ERIC-B": scoredBar(7),
		},
	}
	p := newTestPipeline(t, evaluator)

	cycle, err := p.Scan(context.Background(), scanDate(), []string{"SWED-A", "ERIC-B"}, []string{"SEB-A", "SHB-A"})
	require.NoError(t, err)
	require.Len(t, cycle.Candidates, 2)

	assert.True(t, cycle.Candidates[0].SectorCapped)
	assert.Contains(t, cycle.Candidates[0].SectorCapReason, "Financials")
	assert.False(t, cycle.Candidates[1].SectorCapped)
}

func TestNormalizeScore(t *testing.T) {
	assert.Equal(t, 0.0, NormalizeScore(5))
	assert.Equal(t, 10.0, NormalizeScore(10))
	assert.Equal(t, -10.0, NormalizeScore(0))
	assert.Equal(t, 6.0, NormalizeScore(8))
}
