// Package scan runs the per-cycle universe evaluation: score every ticker,
// rank, size by percentile, and apply the Top-N and sector-cap rules. A
// failed ticker is excluded from the cycle without aborting the scan.
package scan

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/marketmate/marketmate/internal/confidence"
	"github.com/marketmate/marketmate/internal/metrics"
	"github.com/marketmate/marketmate/internal/percentile"
	"github.com/marketmate/marketmate/internal/sector"
	"github.com/marketmate/marketmate/internal/signal"
)

// Evaluator supplies one ticker's externally computed inputs for a cycle:
// price bar, technical score, and macro context. Implementations talk to
// data providers; the pipeline never does.
type Evaluator interface {
	Evaluate(ctx context.Context, ticker string, date time.Time) (signal.Bar, error)
}

// Result is one ticker's outcome for a cycle: a scored candidate when
// evaluation succeeded, or the error that excluded the ticker. Callers can
// tell a data failure apart from a weak-but-scored ticker without aborting
// the rest of the universe.
type Result struct {
	Ticker    string
	Candidate *signal.ScoredCandidate
	Err       error
}

// Config tunes a scan cycle.
type Config struct {
	TopN            int         `yaml:"top_n"`             // candidates guaranteed a floor tier
	MinOverrideSize signal.Tier `yaml:"min_override_size"` // floor tier for Top-N
	EvaluationsPerSec float64   `yaml:"evaluations_per_sec"`
}

// DefaultConfig returns the standard scan configuration.
func DefaultConfig() Config {
	return Config{
		TopN:              3,
		MinOverrideSize:   signal.TierHalf,
		EvaluationsPerSec: 5,
	}
}

// CycleResult is the outcome of one full universe scan.
type CycleResult struct {
	Date       time.Time                `json:"date"`
	Candidates []signal.ScoredCandidate `json:"candidates"` // ranked, overrides applied
	Errors     []Result                 `json:"-"`          // excluded tickers with their errors
}

// Pipeline orchestrates evaluation, ranking, sizing, and diversification.
type Pipeline struct {
	config    Config
	evaluator Evaluator
	sizer     *percentile.Sizer
	sectors   *sector.Mapper
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
}

// NewPipeline wires a scan pipeline. The evaluator sits behind a circuit
// breaker and a rate limiter so a degraded data provider trips fast instead
// of stalling the whole cycle.
func NewPipeline(config Config, evaluator Evaluator, sizer *percentile.Sizer, sectors *sector.Mapper) *Pipeline {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "scan-evaluator",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	perSec := config.EvaluationsPerSec
	if perSec <= 0 {
		perSec = DefaultConfig().EvaluationsPerSec
	}

	return &Pipeline{
		config:    config,
		evaluator: evaluator,
		sizer:     sizer,
		sectors:   sectors,
		limiter:   rate.NewLimiter(rate.Limit(perSec), 1),
		breaker:   breaker,
	}
}

// Scan evaluates the universe for one date. Ticker failures are collected
// and excluded; every scored ticker stays in the cycle regardless of its
// confidence level, so the rolling window and the ranking cover the whole
// cross-section. Candidates are ranked score-descending (stable), sized by
// percentile, given the Top-N floor, and marked against the live sector
// cap. The day's raw scores are fed into the window before percentiles are
// computed; the confidence gate is an entry-time concern, not a scan one.
func (p *Pipeline) Scan(ctx context.Context, date time.Time, universe []string, activeTickers []string) (*CycleResult, error) {
	var candidates []signal.ScoredCandidate
	var failures []Result
	var dayScores []float64

	for _, ticker := range universe {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("scan cancelled: %w", err)
		}

		result := p.evaluateTicker(ctx, ticker, date)
		if result.Err != nil {
			metrics.ScanErrorsTotal.Inc()
			log.Warn().Err(result.Err).Str("ticker", ticker).Msg("ticker excluded from cycle")
			failures = append(failures, result)
			continue
		}
		candidates = append(candidates, *result.Candidate)
		dayScores = append(dayScores, result.Candidate.RawScore)
	}

	if err := p.sizer.AddDailyScores(ctx, date, dayScores); err != nil {
		return nil, fmt.Errorf("record daily scores: %w", err)
	}

	// Rank score-descending; ties keep original relative order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].RawScore > candidates[j].RawScore
	})

	for i := range candidates {
		candidates[i].Percentile = p.sizer.Percentile(candidates[i].RawScore, date)
		candidates[i].SizeTier = p.sizer.PositionSize(candidates[i].RawScore, date, signal.TierNone)
	}

	candidates = p.sectors.ApplyTopNOverride(candidates, p.config.TopN, p.config.MinOverrideSize)
	candidates = p.sectors.FilterBySectorCap(candidates, activeTickers)

	metrics.ScanCandidatesTotal.Add(float64(len(candidates)))
	log.Info().Time("date", date).Int("candidates", len(candidates)).
		Int("errors", len(failures)).Msg("scan cycle complete")

	return &CycleResult{Date: date, Candidates: candidates, Errors: failures}, nil
}

// evaluateTicker scores a single ticker, catching provider failures in the
// Result rather than propagating them.
func (p *Pipeline) evaluateTicker(ctx context.Context, ticker string, date time.Time) Result {
	raw, err := p.breaker.Execute(func() (interface{}, error) {
		return p.evaluator.Evaluate(ctx, ticker, date)
	})
	if err != nil {
		return Result{Ticker: ticker, Err: fmt.Errorf("evaluate %s: %w", ticker, err)}
	}

	bar := raw.(signal.Bar)
	if !bar.Valid() {
		return Result{Ticker: ticker, Err: fmt.Errorf("evaluate %s: malformed bar", ticker)}
	}

	// Weak tickers stay in the cycle with their AVOID level intact: their
	// scores anchor the low end of the percentile distribution, and a
	// top-ranked one is still eligible for the Top-N floor.
	baseScore := NormalizeScore(bar.TechnicalScore)
	conf := confidence.Calculate(baseScore, bar.Risk)

	return Result{
		Ticker: ticker,
		Candidate: &signal.ScoredCandidate{
			Ticker:      ticker,
			RawScore:    bar.TechnicalScore,
			BaseScore:   baseScore,
			Confidence:  conf.Confidence,
			Level:       conf.Level,
			SizeTier:    conf.SizeTier,
			RiskFactors: conf.RiskFactors,
		},
	}
}

// NormalizeScore maps the raw technical score (centered near 5 on a 0-10
// scale) to the -10..+10 range the confidence calculator expects.
func NormalizeScore(raw float64) float64 {
	return (raw - 5) * 2
}
