// Package sector classifies tickers into sectors and enforces the
// diversification rules applied over a ranked candidate list: the per-sector
// position cap and the Top-N minimum-size override.
package sector

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/marketmate/marketmate/internal/signal"
)

// DefaultMaxPerSector is the cap on positions or overridden slots per sector.
const DefaultMaxPerSector = 2

// defaultSectorMap covers the OMX30 universe with GICS-style sectors.
var defaultSectorMap = map[string]string{
	"SEB-A":    "Financials",
	"SHB-A":    "Financials",
	"SWED-A":   "Financials",
	"INVE-B":   "Financials",
	"SBB-B":    "Real Estate",
	"ABB":      "Industrials",
	"ALFA":     "Industrials",
	"ASSA-B":   "Industrials",
	"ATCO-A":   "Industrials",
	"SAND":     "Industrials",
	"SKF-B":    "Industrials",
	"VOLV-B":   "Industrials",
	"SECU-B":   "Industrials",
	"SKA-B":    "Industrials",
	"SWMA":     "Industrials",
	"NDA-SE":   "Industrials",
	"ERIC-B":   "Technology",
	"HEXA-B":   "Technology",
	"TEL2-B":   "Technology",
	"EVO":      "Consumer Discretionary",
	"HM-B":     "Consumer Discretionary",
	"ELUX-B":   "Consumer Discretionary",
	"ESSITY-B": "Consumer Staples",
	"AZN":      "Healthcare",
	"GETI-B":   "Healthcare",
	"BOL":      "Materials",
	"SCA-B":    "Materials",
	"KINV-B":   "Communication Services",
	"NIBE-B":   "Energy",
}

// Mapper resolves tickers to sectors and applies diversification rules.
// The mapping is read-only after construction.
type Mapper struct {
	maxPerSector int
	sectors      map[string]string
}

// NewMapper returns a mapper over the built-in OMX30 table.
func NewMapper(maxPerSector int) *Mapper {
	if maxPerSector <= 0 {
		maxPerSector = DefaultMaxPerSector
	}
	return &Mapper{maxPerSector: maxPerSector, sectors: defaultSectorMap}
}

// LoadMapper reads a ticker→sector table from a YAML file.
func LoadMapper(path string, maxPerSector int) (*Mapper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sector map: %w", err)
	}
	sectors := make(map[string]string)
	if err := yaml.Unmarshal(data, &sectors); err != nil {
		return nil, fmt.Errorf("parse sector map: %w", err)
	}
	m := NewMapper(maxPerSector)
	m.sectors = sectors
	return m, nil
}

// Sector returns the sector for a ticker, or "Unknown".
func (m *Mapper) Sector(ticker string) string {
	if s, ok := m.sectors[ticker]; ok {
		return s
	}
	return "Unknown"
}

// ApplyTopNOverride walks a score-descending candidate list and raises the
// size tier of the first topN candidates to at least minSize, skipping any
// candidate whose sector already holds maxPerSector overridden slots.
// Skipped candidates do not count toward topN. Ties keep their original
// relative order; the input slice order is the ranking.
func (m *Mapper) ApplyTopNOverride(ranked []signal.ScoredCandidate, topN int, minSize signal.Tier) []signal.ScoredCandidate {
	if len(ranked) == 0 {
		return nil
	}

	updated := append([]signal.ScoredCandidate(nil), ranked...)
	sectorCounts := make(map[string]int)
	applied := 0

	for i := range updated {
		if applied >= topN {
			break
		}

		sec := m.Sector(updated[i].Ticker)
		if sectorCounts[sec] >= m.maxPerSector {
			continue
		}

		if minSize > updated[i].SizeTier {
			updated[i].SizeTier = minSize
			updated[i].TopNOverride = true
			updated[i].OverrideReason = fmt.Sprintf("Top-%d signal", applied+1)
		}

		sectorCounts[sec]++
		applied++
	}

	return updated
}

// Diversification summarizes the portfolio's sector exposure.
type Diversification struct {
	SectorCounts map[string]int `json:"sector_counts"`
	Warnings     []string       `json:"warnings,omitempty"`
	Diversified  bool           `json:"diversified"`
}

// CheckDiversification flags any sector holding more than the cap among the
// currently active tickers.
func (m *Mapper) CheckDiversification(activeTickers []string) Diversification {
	counts := make(map[string]int)
	for _, ticker := range activeTickers {
		counts[m.Sector(ticker)]++
	}

	var warnings []string
	for sec, count := range counts {
		if count > m.maxPerSector {
			warnings = append(warnings, fmt.Sprintf("%s: %d positions (max %d)", sec, count, m.maxPerSector))
		}
	}

	return Diversification{
		SectorCounts: counts,
		Warnings:     warnings,
		Diversified:  len(warnings) == 0,
	}
}

// FilterBySectorCap marks (without removing) signals whose entry would push
// a sector past the cap given the live portfolio. Unmarked signals count
// toward the cap for subsequent signals in the same batch.
func (m *Mapper) FilterBySectorCap(candidates []signal.ScoredCandidate, activeTickers []string) []signal.ScoredCandidate {
	counts := make(map[string]int)
	for _, ticker := range activeTickers {
		counts[m.Sector(ticker)]++
	}

	out := append([]signal.ScoredCandidate(nil), candidates...)
	for i := range out {
		sec := m.Sector(out[i].Ticker)
		if counts[sec] < m.maxPerSector {
			counts[sec]++
			continue
		}
		out[i].SectorCapped = true
		out[i].SectorCapReason = fmt.Sprintf("Sector cap reached (%s)", sec)
	}
	return out
}
