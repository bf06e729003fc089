package position

import (
	"github.com/marketmate/marketmate/internal/signal"
)

// Chandelier parameters for the trailing stop on the final tranche.
const (
	DefaultATRMultiplier = 3.0
	DefaultATRPeriod     = 22
)

// Advance evaluates one pricing tick against the transition rules and
// executes at most one exit. Priority order:
//
//  1. stop hit      — sell everything remaining, pre-empts all targets
//  2. target 3 hit  — sell everything remaining
//  3. target 2 hit  — sell one third (only after the first tranche)
//  4. target 1 hit  — sell one third, ratchet stop to break-even
//
// Target stages are tracked with an explicit tranche counter, so target 2
// can never fire before target 1 even when price gaps past both; the later
// target simply fires on the following tick.
//
// After the transition check the high-water mark is updated and, once two
// tranches are sold, the Chandelier stop (high - ATR*multiplier) is
// ratcheted in. Malformed bars are skipped without mutating the position.
func (p *Position) Advance(bar signal.Bar, atr float64, costs Costs) (*ExitRecord, error) {
	if p.Status == StatusClosed {
		return nil, nil
	}
	if !bar.Valid() {
		return nil, nil
	}

	price := bar.Close
	tranche := p.InitialQuantity / 3
	if tranche == 0 {
		// Positions too small to slice trade out whole at the first
		// target reached.
		tranche = p.RemainingQuantity
	}

	var record *ExitRecord
	var err error

	switch {
	case price <= p.StopLoss:
		record, err = p.executeExit(bar.Date, price, p.RemainingQuantity, StopLoss, costs)

	case price >= p.Targets.T3 && p.RemainingQuantity > 0:
		record, err = p.executeExit(bar.Date, price, p.RemainingQuantity, Target3, costs)
		if err == nil {
			p.TranchesSold = 3
		}

	case price >= p.Targets.T2 && p.TranchesSold == 1:
		record, err = p.executeExit(bar.Date, price, tranche, Target2, costs)
		if err == nil {
			p.TranchesSold = 2
		}

	case price >= p.Targets.T1 && p.TranchesSold == 0:
		record, err = p.executeExit(bar.Date, price, tranche, Target1, costs)
		if err == nil {
			p.TranchesSold = 1
			// Break-even rule: the first banked tranche pays for a
			// risk-free runner.
			p.ratchetStop(p.EntryPrice)
		}
	}
	if err != nil {
		return nil, err
	}

	p.updateTrailing(bar, atr)
	return record, nil
}

// updateTrailing maintains the high-water mark and, in the let-it-run phase
// (two tranches banked), ratchets the Chandelier stop. The ratchet keeps
// max(current, new) so the stop is strictly non-decreasing.
func (p *Position) updateTrailing(bar signal.Bar, atr float64) {
	if p.Status == StatusClosed {
		return
	}

	high := bar.High
	if high <= 0 {
		high = bar.Close
	}
	if high > p.HighestPrice {
		p.HighestPrice = high
	}

	if p.TranchesSold >= 2 && atr > 0 {
		p.ratchetStop(p.HighestPrice - atr*DefaultATRMultiplier)
	}
}

// ChandelierStop computes the raw Chandelier Exit level for a given
// high-water mark and ATR, before the ratchet is applied.
func ChandelierStop(highestHigh, atr, multiplier float64) float64 {
	return highestHigh - atr*multiplier
}
