package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/marketmate/marketmate/internal/signal"
)

// LoadBarsCSV reads a bar series from a CSV file with a header row:
//
//	date,high,low,close,volume,score[,vix]
//
// Dates are 2006-01-02. The optional vix column feeds the risk context;
// missing or empty cells leave it unset. Rows are returned sorted ascending
// by date.
func LoadBarsCSV(path string) ([]signal.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bars file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read bars header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"date", "high", "low", "close", "volume", "score"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("bars file missing column %q", required)
		}
	}

	var bars []signal.Bar
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read bars row %d: %w", line, err)
		}

		bar, err := parseBar(row, col)
		if err != nil {
			return nil, fmt.Errorf("bars row %d: %w", line, err)
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func parseBar(row []string, col map[string]int) (signal.Bar, error) {
	date, err := time.Parse("2006-01-02", row[col["date"]])
	if err != nil {
		return signal.Bar{}, fmt.Errorf("parse date: %w", err)
	}

	fields := map[string]float64{}
	for _, name := range []string{"high", "low", "close", "volume", "score"} {
		v, err := strconv.ParseFloat(row[col[name]], 64)
		if err != nil {
			return signal.Bar{}, fmt.Errorf("parse %s: %w", name, err)
		}
		fields[name] = v
	}

	bar := signal.Bar{
		Date:           date,
		Price:          fields["close"],
		High:           fields["high"],
		Low:            fields["low"],
		Close:          fields["close"],
		Volume:         fields["volume"],
		TechnicalScore: fields["score"],
	}

	if i, ok := col["vix"]; ok && i < len(row) && row[i] != "" {
		vix, err := strconv.ParseFloat(row[i], 64)
		if err != nil {
			return signal.Bar{}, fmt.Errorf("parse vix: %w", err)
		}
		bar.Risk.VIX = &vix
	}
	return bar, nil
}
