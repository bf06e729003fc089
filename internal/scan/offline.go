package scan

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/marketmate/marketmate/internal/signal"
)

// SnapshotEvaluator serves bars from pre-computed snapshot files instead of a
// live data provider, for offline cycles and replays. One CSV per date with a
// header row:
//
//	ticker,high,low,close,volume,score[,vix]
type SnapshotEvaluator struct {
	dir  string
	bars map[string]map[string]signal.Bar // date -> ticker -> bar
}

// NewSnapshotEvaluator creates an evaluator over a snapshot directory. Files
// are loaded lazily per date and cached.
func NewSnapshotEvaluator(dir string) *SnapshotEvaluator {
	return &SnapshotEvaluator{dir: dir, bars: make(map[string]map[string]signal.Bar)}
}

// Evaluate returns the snapshot bar for ticker on date. A missing ticker in a
// present snapshot is a data error for that ticker only.
func (e *SnapshotEvaluator) Evaluate(ctx context.Context, ticker string, date time.Time) (signal.Bar, error) {
	if err := ctx.Err(); err != nil {
		return signal.Bar{}, err
	}

	key := date.Format("2006-01-02")
	day, ok := e.bars[key]
	if !ok {
		loaded, err := e.loadDay(key, date)
		if err != nil {
			return signal.Bar{}, err
		}
		e.bars[key] = loaded
		day = loaded
	}

	bar, ok := day[ticker]
	if !ok {
		return signal.Bar{}, fmt.Errorf("no snapshot row for %s on %s", ticker, key)
	}
	return bar, nil
}

func (e *SnapshotEvaluator) loadDay(key string, date time.Time) (map[string]signal.Bar, error) {
	f, err := os.Open(fmt.Sprintf("%s/%s.csv", e.dir, key))
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read snapshot header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"ticker", "high", "low", "close", "volume", "score"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("snapshot missing column %q", required)
		}
	}

	day := make(map[string]signal.Bar)
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read snapshot row %d: %w", line, err)
		}

		fields := map[string]float64{}
		for _, name := range []string{"high", "low", "close", "volume", "score"} {
			v, err := strconv.ParseFloat(row[col[name]], 64)
			if err != nil {
				return nil, fmt.Errorf("snapshot row %d: parse %s: %w", line, name, err)
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
				return nil, fmt.Errorf("snapshot row %d: parse vix: %w", line, err)
			}
			bar.Risk.VIX = &vix
		}
		day[row[col["ticker"]]] = bar
	}
	return day, nil
}
