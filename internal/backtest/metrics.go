package backtest

import (
	"math"
	"time"
)

// computeMetrics summarizes a finished run. With zero trades it returns the
// empty marker instead of NaN-laden ratios.
func computeMetrics(initial, final float64, trades []Trade, curve []EquityPoint, start, end time.Time) Metrics {
	if len(trades) == 0 {
		return Metrics{Empty: true, InitialCapital: initial, FinalValue: final}
	}

	m := Metrics{
		InitialCapital: initial,
		FinalValue:     final,
		TotalTrades:    len(trades),
		TotalReturn:    (final - initial) / initial * 100,
	}

	years := end.Sub(start).Hours() / 24 / 365.25
	if years > 0 && final > 0 {
		m.CAGR = (math.Pow(final/initial, 1/years) - 1) * 100
	}

	var winSum, lossSum float64
	var returns []float64
	for _, t := range trades {
		returns = append(returns, t.PnLPercent)
		m.TotalPnL += t.PnL
		if t.PnL > 0 {
			m.WinningTrades++
			winSum += t.PnLPercent
		} else {
			m.LosingTrades++
			lossSum += t.PnLPercent
		}
	}
	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
	if m.WinningTrades > 0 {
		m.AvgGain = winSum / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = lossSum / float64(m.LosingTrades)
	}
	if m.AvgLoss != 0 {
		m.ProfitFactor = math.Abs(m.AvgGain / m.AvgLoss)
	}

	m.MaxDrawdown = maxDrawdown(curve)
	m.SharpeRatio = sharpeLike(returns)
	return m
}

// maxDrawdown is the largest peak-to-trough decline on the equity curve, as
// a positive percentage.
func maxDrawdown(curve []EquityPoint) float64 {
	var peak, worst float64
	for _, p := range curve {
		if p.Value > peak {
			peak = p.Value
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - p.Value) / peak * 100
		if dd > worst {
			worst = dd
		}
	}
	return worst
}

// sharpeLike is the per-trade return mean over its deviation, annualized by
// sqrt(252/trades). Not a calendar-time Sharpe ratio; kept for report parity
// with earlier research runs.
func sharpeLike(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var sumSq float64
	for _, r := range returns {
		d := r - mean
		sumSq += d * d
	}
	std := math.Sqrt(sumSq / float64(len(returns)))
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(252/float64(len(returns)))
}
