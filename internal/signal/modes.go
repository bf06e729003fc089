package signal

import "fmt"

// Mode selects a trading risk profile. Each mode resolves to a fully typed
// ModeConfig; there are no string-keyed config blobs.
type Mode int

const (
	ModeConservative Mode = iota
	ModeAggressive
	ModeAIHybrid
)

func (m Mode) String() string {
	switch m {
	case ModeConservative:
		return "conservative"
	case ModeAggressive:
		return "aggressive"
	case ModeAIHybrid:
		return "ai-hybrid"
	default:
		return "unknown"
	}
}

// ParseMode resolves a mode label. Unknown labels are an error rather than a
// silent fallback so callers cannot run the wrong risk profile by typo.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "conservative":
		return ModeConservative, nil
	case "aggressive":
		return ModeAggressive, nil
	case "ai-hybrid":
		return ModeAIHybrid, nil
	default:
		return ModeConservative, fmt.Errorf("unknown signal mode %q", s)
	}
}

// EntryTriggers gates what counts as an actionable setup for a mode.
type EntryTriggers struct {
	BreakoutConfirmed   bool    `yaml:"breakout_confirmed"`
	EarlyBreakout       bool    `yaml:"early_breakout"`
	VolumeRequired      bool    `yaml:"volume_required"`
	MACDCrossover       bool    `yaml:"macd_crossover"`
	RSIThreshold        float64 `yaml:"rsi_threshold"`
	AISentimentRequired bool    `yaml:"ai_sentiment_required"`
}

// ModeConfig is the fully typed risk profile for one signal mode.
type ModeConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	Triggers EntryTriggers `yaml:"entry_triggers"`

	StopLossBuffer   float64 `yaml:"stop_loss_buffer"`  // fraction under support
	TargetMultiplier float64 `yaml:"target_multiplier"` // scales profit targets
	MaxRiskPercent   float64 `yaml:"max_risk_percent"`

	TechWeight  float64 `yaml:"tech_weight"`
	MacroWeight float64 `yaml:"macro_weight"`
	AIWeight    float64 `yaml:"ai_weight"`

	MinBuyScore    float64 `yaml:"min_buy_score"`
	MinStrongScore float64 `yaml:"min_strong_score"`

	VolumeSpikeThreshold float64 `yaml:"volume_spike_threshold"`
	VolumeWeight         float64 `yaml:"volume_weight"`

	TrailingStop float64 `yaml:"trailing_stop"`
	TimeExitDays int     `yaml:"time_exit_days"`

	MinSentimentScore float64 `yaml:"min_sentiment_score"`
	MinPatternScore   float64 `yaml:"min_pattern_score"`
}

// Config returns the typed configuration for a mode.
func (m Mode) Config() ModeConfig {
	switch m {
	case ModeAggressive:
		return ModeConfig{
			Name:        "Aggressive",
			Description: "Early entry at momentum start, tuned for leveraged products",
			Triggers: EntryTriggers{
				EarlyBreakout:  true,
				VolumeRequired: true,
				MACDCrossover:  true,
				RSIThreshold:   40,
			},
			StopLossBuffer:       0.012,
			TargetMultiplier:     1.3,
			MaxRiskPercent:       2.0,
			TechWeight:           0.85,
			MacroWeight:          0.15,
			MinBuyScore:          2.5,
			MinStrongScore:       5.0,
			VolumeSpikeThreshold: 1.5,
			VolumeWeight:         1.5,
			TrailingStop:         0.008,
			TimeExitDays:         2,
		}
	case ModeAIHybrid:
		return ModeConfig{
			Name:        "AI-Hybrid",
			Description: "Sentiment and pattern aware, balanced between tech and AI inputs",
			Triggers: EntryTriggers{
				EarlyBreakout:       true,
				VolumeRequired:      true,
				RSIThreshold:        35,
				AISentimentRequired: true,
			},
			StopLossBuffer:       0.018,
			TargetMultiplier:     1.15,
			MaxRiskPercent:       2.5,
			TechWeight:           0.6,
			AIWeight:             0.3,
			MacroWeight:          0.1,
			MinBuyScore:          3.0,
			MinStrongScore:       6.0,
			VolumeSpikeThreshold: 1.3,
			VolumeWeight:         1.2,
			TrailingStop:         0.012,
			TimeExitDays:         3,
			MinSentimentScore:    6.0,
			MinPatternScore:      3.0,
		}
	default: // conservative
		return ModeConfig{
			Name:        "Conservative",
			Description: "Confirmation required, lower risk, suited to cash equity",
			Triggers: EntryTriggers{
				BreakoutConfirmed: true,
				VolumeRequired:    true,
				RSIThreshold:      30,
			},
			StopLossBuffer:       0.025,
			TargetMultiplier:     1.0,
			MaxRiskPercent:       3.0,
			TechWeight:           0.7,
			MacroWeight:          0.3,
			MinBuyScore:          4.0,
			MinStrongScore:       7.0,
			VolumeSpikeThreshold: 1.2,
			VolumeWeight:         1.0,
			TrailingStop:         0.015,
			TimeExitDays:         5,
		}
	}
}
