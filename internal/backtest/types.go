// Package backtest replays the signal-to-position engine over a historical
// bar series: confidence-gated entries, percentile sizing, the staged
// thirds-exit lifecycle, and performance metrics over the resulting trades.
package backtest

import (
	"time"

	"github.com/marketmate/marketmate/internal/position"
	"github.com/marketmate/marketmate/internal/signal"
)

// Config controls a backtest run.
type Config struct {
	Ticker         string         `yaml:"ticker" json:"ticker"`
	InitialCapital float64        `yaml:"initial_capital" json:"initial_capital"`
	Mode           signal.Mode    `yaml:"-" json:"-"`
	ModeName       string         `yaml:"mode" json:"mode"`
	Costs          position.Costs `yaml:"costs" json:"costs"`
	OutputDir      string         `yaml:"output_dir" json:"output_dir,omitempty"`
}

// DefaultConfig returns the standard backtest configuration.
func DefaultConfig() Config {
	return Config{
		InitialCapital: 100000,
		Mode:           signal.ModeConservative,
		ModeName:       signal.ModeConservative.String(),
		Costs:          position.DefaultCosts(),
	}
}

// Trade is one realized exit slice produced during the simulation.
type Trade struct {
	Ticker     string    `json:"ticker"`
	EntryDate  time.Time `json:"entry_date"`
	ExitDate   time.Time `json:"exit_date"`
	Quantity   int64     `json:"quantity"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	PnL        float64   `json:"pnl"`
	PnLPercent float64   `json:"pnl_percent"`
	ExitReason string    `json:"exit_reason"`
	Score      float64   `json:"score"`
	Confidence float64   `json:"confidence"`
}

// EquityPoint is one sample of portfolio value on the equity curve.
type EquityPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
	Cash  float64   `json:"cash"`
}

// Metrics summarizes a run. A run with zero trades reports the zero value
// with Empty set rather than fabricated numbers.
type Metrics struct {
	Empty          bool    `json:"empty"`
	InitialCapital float64 `json:"initial_capital"`
	FinalValue     float64 `json:"final_value"`
	TotalReturn    float64 `json:"total_return"` // percent
	CAGR           float64 `json:"cagr"`         // percent, calendar-time based
	TotalTrades    int     `json:"total_trades"`
	WinningTrades  int     `json:"winning_trades"`
	LosingTrades   int     `json:"losing_trades"`
	WinRate        float64 `json:"win_rate"` // percent
	AvgGain        float64 `json:"avg_gain"` // percent, winners only
	AvgLoss        float64 `json:"avg_loss"` // percent, losers only
	MaxDrawdown    float64 `json:"max_drawdown"` // percent, peak to trough
	SharpeRatio    float64 `json:"sharpe_ratio"`
	ProfitFactor   float64 `json:"profit_factor"`
	TotalPnL       float64 `json:"total_pnl"`
}

// Result is the complete outcome of one backtest run.
type Result struct {
	Config      Config        `json:"config"`
	StartDate   time.Time     `json:"start_date"`
	EndDate     time.Time     `json:"end_date"`
	Trades      []Trade       `json:"trades"`
	EquityCurve []EquityPoint `json:"equity_curve"`
	Metrics     Metrics       `json:"metrics"`
	SkippedBars int           `json:"skipped_bars"` // malformed ticks ignored
}

// EntryDecision is an entry rule's verdict for one bar.
type EntryDecision struct {
	Enter          bool
	Tier           signal.Tier
	Confidence     float64
	StopLossBuffer float64    // fraction below entry
	TargetGains    [3]float64 // fractional gains above entry, ascending
}
