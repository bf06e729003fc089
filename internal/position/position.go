// Package position implements the staged "thirds" exit state machine: a
// position opens with full quantity, sheds one third at each of two price
// targets, and runs the final third under a Chandelier trailing stop. The
// stop is a ratchet and never moves down.
package position

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/marketmate/marketmate/internal/signal"
)

// Status is the lifecycle state of a position.
type Status int

const (
	StatusOpen    Status = iota // full quantity held
	StatusPartial               // one or two tranches sold
	StatusClosed                // terminal
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "OPEN"
	case StatusPartial:
		return "PARTIAL"
	case StatusClosed:
		return "CLOSED"
	default:
		return "unknown"
	}
}

// ExitReason identifies what triggered an exit.
type ExitReason int

const (
	NoExit ExitReason = iota
	StopLoss
	Target1
	Target2
	Target3
	Manual
	EndOfPeriod
)

func (r ExitReason) String() string {
	switch r {
	case NoExit:
		return "NO_EXIT"
	case StopLoss:
		return "STOP_LOSS"
	case Target1:
		return "TARGET_1"
	case Target2:
		return "TARGET_2"
	case Target3:
		return "TARGET_3"
	case Manual:
		return "MANUAL"
	case EndOfPeriod:
		return "END_OF_PERIOD"
	default:
		return "unknown"
	}
}

// ExitRecord is one executed sale. Append-only; never modified afterwards.
type ExitRecord struct {
	Timestamp  time.Time  `json:"timestamp"`
	Quantity   int64      `json:"quantity"`
	Price      float64    `json:"price"`
	Reason     ExitReason `json:"reason"`
	PnLPerUnit float64    `json:"pnl_per_unit"` // net of exit commission
}

// Targets holds the three staged profit targets, strictly ascending.
type Targets struct {
	T1 float64 `json:"target_1"`
	T2 float64 `json:"target_2"`
	T3 float64 `json:"target_3"`
}

// NewTargets enforces strict ordering by clamping the higher targets upward
// when the inputs overlap.
func NewTargets(t1, t2, t3 float64) Targets {
	if t2 <= t1 {
		t2 = math.Nextafter(t1, math.Inf(1))
	}
	if t3 <= t2 {
		t3 = math.Nextafter(t2, math.Inf(1))
	}
	return Targets{T1: t1, T2: t2, T3: t3}
}

// Costs models execution friction. Slippage makes sell fills worse than the
// quoted price (never better); commission is charged on entry and exit value.
type Costs struct {
	Slippage   float64 `yaml:"slippage"`
	Commission float64 `yaml:"commission"`
}

// DefaultCosts returns the standard cost assumptions.
func DefaultCosts() Costs {
	return Costs{Slippage: 0.001, Commission: 0.0025}
}

// Position is one open holding with its staged-exit state. Mutated only by
// exit execution, stop updates, and the trailing-stop recompute.
type Position struct {
	ID                string       `json:"id"`
	Ticker            string       `json:"ticker"`
	EntryPrice        float64      `json:"entry_price"`
	EntryTime         time.Time    `json:"entry_time"`
	InitialQuantity   int64        `json:"initial_quantity"`
	RemainingQuantity int64        `json:"remaining_quantity"`
	StopLoss          float64      `json:"stop_loss"`
	Targets           Targets      `json:"targets"`
	SizeTier          signal.Tier  `json:"size_tier"`
	ConfidenceAtEntry float64      `json:"confidence_at_entry"`
	TranchesSold      int          `json:"tranches_sold"`
	HighestPrice      float64      `json:"highest_price"`
	Exits             []ExitRecord `json:"exits"`
	Status            Status       `json:"status"`
}

// New opens a position. The stop must sit below entry and quantity must be
// positive; targets are re-clamped to strict ordering.
func New(ticker string, entryPrice float64, entryTime time.Time, quantity int64, stopLoss float64, targets Targets, tier signal.Tier, confidence float64) (*Position, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("position quantity must be positive, got %d", quantity)
	}
	if entryPrice <= 0 {
		return nil, fmt.Errorf("entry price must be positive, got %.4f", entryPrice)
	}
	if stopLoss >= entryPrice {
		return nil, fmt.Errorf("stop loss %.4f must be below entry %.4f", stopLoss, entryPrice)
	}

	return &Position{
		ID:                uuid.NewString(),
		Ticker:            ticker,
		EntryPrice:        entryPrice,
		EntryTime:         entryTime,
		InitialQuantity:   quantity,
		RemainingQuantity: quantity,
		StopLoss:          stopLoss,
		Targets:           NewTargets(targets.T1, targets.T2, targets.T3),
		SizeTier:          tier,
		ConfidenceAtEntry: confidence,
		HighestPrice:      entryPrice,
		Status:            StatusOpen,
	}, nil
}

// Clone returns a deep copy. Callers stage transitions on the copy and swap
// it in only once the change is durable.
func (p *Position) Clone() *Position {
	c := *p
	c.Exits = append([]ExitRecord(nil), p.Exits...)
	return &c
}

// RaiseStop moves the stop up. Lowering the stop is a contract violation and
// is rejected without mutating state.
func (p *Position) RaiseStop(newStop float64) error {
	if newStop < p.StopLoss {
		return fmt.Errorf("stop loss may not move down: current %.4f, proposed %.4f", p.StopLoss, newStop)
	}
	p.StopLoss = newStop
	return nil
}

// ratchetStop applies a candidate stop, keeping the maximum. Unlike
// RaiseStop this never errors; lower candidates are simply ignored.
func (p *Position) ratchetStop(candidate float64) {
	if candidate > p.StopLoss {
		p.StopLoss = candidate
	}
}

// executeExit records a sale of quantity units at rawPrice, applying sell
// slippage and commission. Rejects overselling by construction.
func (p *Position) executeExit(ts time.Time, rawPrice float64, quantity int64, reason ExitReason, costs Costs) (*ExitRecord, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("exit quantity must be positive, got %d", quantity)
	}
	if quantity > p.RemainingQuantity {
		return nil, fmt.Errorf("exit quantity %d exceeds remaining %d", quantity, p.RemainingQuantity)
	}

	fillPrice := rawPrice * (1 - costs.Slippage)
	record := ExitRecord{
		Timestamp:  ts,
		Quantity:   quantity,
		Price:      fillPrice,
		Reason:     reason,
		PnLPerUnit: fillPrice*(1-costs.Commission) - p.EntryPrice,
	}

	p.Exits = append(p.Exits, record)
	p.RemainingQuantity -= quantity
	if p.RemainingQuantity == 0 {
		p.Status = StatusClosed
	} else {
		p.Status = StatusPartial
	}
	return &record, nil
}

// ExitManual sells quantity units at the quoted price outside the automated
// transition rules.
func (p *Position) ExitManual(ts time.Time, price float64, quantity int64, costs Costs) (*ExitRecord, error) {
	return p.executeExit(ts, price, quantity, Manual, costs)
}

// ForceClose liquidates the remainder at the final available price, used at
// the end of a simulation period.
func (p *Position) ForceClose(ts time.Time, price float64, costs Costs) (*ExitRecord, error) {
	if p.RemainingQuantity == 0 {
		return nil, nil
	}
	return p.executeExit(ts, price, p.RemainingQuantity, EndOfPeriod, costs)
}

// RealizedPnL sums realized profit across all exits.
func (p *Position) RealizedPnL() float64 {
	var total float64
	for _, e := range p.Exits {
		total += e.PnLPerUnit * float64(e.Quantity)
	}
	return total
}

// ExitedQuantity returns the total quantity sold so far.
func (p *Position) ExitedQuantity() int64 {
	var total int64
	for _, e := range p.Exits {
		total += e.Quantity
	}
	return total
}
