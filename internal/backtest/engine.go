package backtest

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/marketmate/marketmate/internal/metrics"
	"github.com/marketmate/marketmate/internal/position"
	"github.com/marketmate/marketmate/internal/signal"
)

// Engine replays a chronological bar series through the entry rule and the
// position state machine. One position at a time; any remainder is force
// closed at the final valid bar.
type Engine struct {
	config Config
	rule   EntryRule
}

// NewEngine wires a backtest engine.
func NewEngine(config Config, rule EntryRule) *Engine {
	return &Engine{config: config, rule: rule}
}

// Run simulates the bar series in order. Bars must be ascending by date;
// malformed bars are counted and skipped without touching positions or the
// equity curve. A run with no entries returns an empty Metrics block.
func (e *Engine) Run(ctx context.Context, bars []signal.Bar) (*Result, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("backtest requires at least one bar")
	}

	started := time.Now()
	capital := e.config.InitialCapital
	atrs := position.ATR(bars, position.DefaultATRPeriod)

	result := &Result{Config: e.config}
	var pos *position.Position
	var entryScore float64
	var lastValid signal.Bar

	for i, bar := range bars {
		if !bar.Valid() {
			result.SkippedBars++
			continue
		}
		if result.StartDate.IsZero() {
			result.StartDate = bar.Date
		}
		lastValid = bar

		// Portfolio value is marked before the bar's transitions, so the
		// curve reflects the holdings carried into the bar rather than
		// the friction of trades executed on it.
		value := capital
		if pos != nil {
			value += float64(pos.RemainingQuantity) * bar.Close
		}
		result.EquityCurve = append(result.EquityCurve, EquityPoint{Date: bar.Date, Value: value, Cash: capital})

		if pos != nil {
			record, err := pos.Advance(bar, atrs[i], e.config.Costs)
			if err != nil {
				return nil, fmt.Errorf("advance %s at %s: %w", pos.Ticker, bar.Date.Format("2006-01-02"), err)
			}
			if record != nil {
				capital += proceeds(pos, record)
				result.Trades = append(result.Trades, newTrade(pos, record, entryScore))
			}
			if pos.Status == position.StatusClosed {
				pos = nil
			}
		}

		if pos == nil {
			opened, cost, err := e.tryEnter(ctx, bar, capital)
			if err != nil {
				return nil, err
			}
			if opened != nil {
				pos = opened
				entryScore = bar.TechnicalScore
				capital -= cost
			}
		}
	}

	if result.StartDate.IsZero() {
		return nil, fmt.Errorf("backtest requires at least one valid bar")
	}
	result.EndDate = lastValid.Date

	if pos != nil {
		record, err := pos.ForceClose(lastValid.Date, lastValid.Close, e.config.Costs)
		if err != nil {
			return nil, fmt.Errorf("close %s at period end: %w", pos.Ticker, err)
		}
		if record != nil {
			capital += proceeds(pos, record)
			result.Trades = append(result.Trades, newTrade(pos, record, entryScore))
			last := len(result.EquityCurve) - 1
			result.EquityCurve[last].Value = capital
			result.EquityCurve[last].Cash = capital
		}
	}

	result.Metrics = computeMetrics(e.config.InitialCapital, capital, result.Trades, result.EquityCurve, result.StartDate, result.EndDate)

	metrics.BacktestDuration.Observe(time.Since(started).Seconds())
	log.Info().Str("ticker", e.config.Ticker).Int("bars", len(bars)).
		Int("trades", result.Metrics.TotalTrades).
		Float64("total_return", result.Metrics.TotalReturn).
		Msg("backtest complete")
	return result, nil
}

// tryEnter asks the rule for a decision and, if affirmative, opens a position
// sized to the tier's capital fraction. Entries the remaining capital cannot
// fund are skipped silently.
func (e *Engine) tryEnter(ctx context.Context, bar signal.Bar, capital float64) (*position.Position, float64, error) {
	decision, err := e.rule.Decide(ctx, bar)
	if err != nil {
		return nil, 0, fmt.Errorf("entry rule at %s: %w", bar.Date.Format("2006-01-02"), err)
	}
	if !decision.Enter {
		return nil, 0, nil
	}

	entryPrice := bar.Close * (1 + e.config.Costs.Slippage)
	allocated := capital * decision.Tier.Fraction()
	quantity := int64(math.Floor(allocated / entryPrice))
	if quantity < 1 {
		return nil, 0, nil
	}

	cost := float64(quantity) * entryPrice * (1 + e.config.Costs.Commission)
	if cost > capital {
		quantity = int64(math.Floor(capital / (entryPrice * (1 + e.config.Costs.Commission))))
		if quantity < 1 {
			return nil, 0, nil
		}
		cost = float64(quantity) * entryPrice * (1 + e.config.Costs.Commission)
	}

	stop := entryPrice * (1 - decision.StopLossBuffer)
	targets := position.NewTargets(
		entryPrice*(1+decision.TargetGains[0]),
		entryPrice*(1+decision.TargetGains[1]),
		entryPrice*(1+decision.TargetGains[2]),
	)

	pos, err := position.New(e.config.Ticker, entryPrice, bar.Date, quantity, stop, targets, decision.Tier, decision.Confidence)
	if err != nil {
		return nil, 0, fmt.Errorf("open position at %s: %w", bar.Date.Format("2006-01-02"), err)
	}

	log.Debug().Time("date", bar.Date).Int64("quantity", quantity).
		Float64("entry", entryPrice).Str("tier", decision.Tier.String()).
		Msg("backtest entry")
	return pos, cost, nil
}

// proceeds is the cash returned by one exit record: fill value net of the
// exit commission.
func proceeds(pos *position.Position, record *position.ExitRecord) float64 {
	return float64(record.Quantity) * (record.PnLPerUnit + pos.EntryPrice)
}

func newTrade(pos *position.Position, record *position.ExitRecord, score float64) Trade {
	pnl := record.PnLPerUnit * float64(record.Quantity)
	return Trade{
		Ticker:     pos.Ticker,
		EntryDate:  pos.EntryTime,
		ExitDate:   record.Timestamp,
		Quantity:   record.Quantity,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  record.Price,
		PnL:        pnl,
		PnLPercent: record.PnLPerUnit / pos.EntryPrice * 100,
		ExitReason: record.Reason.String(),
		Score:      score,
		Confidence: pos.ConfidenceAtEntry,
	}
}
