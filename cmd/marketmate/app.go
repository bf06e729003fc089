package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/spf13/pflag"

	"github.com/marketmate/marketmate/internal/config"
	"github.com/marketmate/marketmate/internal/ledger"
	"github.com/marketmate/marketmate/internal/percentile"
	"github.com/marketmate/marketmate/internal/persistence"
	filestore "github.com/marketmate/marketmate/internal/persistence/file"
	redisstore "github.com/marketmate/marketmate/internal/persistence/redis"
	pgstore "github.com/marketmate/marketmate/internal/persistence/postgres"
	"github.com/marketmate/marketmate/internal/sector"
)

const storeTimeout = 5 * time.Second

// app holds the wired components shared by the subcommands.
type app struct {
	cfg     config.Config
	sizer   *percentile.Sizer
	sectors *sector.Mapper
	book    *ledger.Manager

	closers []func() error
}

// addModeFlag registers the shared --mode flag.
func addModeFlag(fs *pflag.FlagSet, target *string, def string) {
	fs.StringVar(target, "mode", def, "signal mode (conservative|aggressive|ai-hybrid)")
}

// newApp loads the configuration and wires the storage backend, sizer,
// sector mapper, and position ledger.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	scores, archive, err := a.openStores(cfg.Storage)
	if err != nil {
		return nil, err
	}

	a.sizer, err = percentile.NewSizer(ctx, scores, cfg.WindowDays)
	if err != nil {
		a.close()
		return nil, err
	}

	if cfg.SectorMapPath != "" {
		a.sectors, err = sector.LoadMapper(cfg.SectorMapPath, sector.DefaultMaxPerSector)
		if err != nil {
			a.close()
			return nil, err
		}
	} else {
		a.sectors = sector.NewMapper(sector.DefaultMaxPerSector)
	}

	a.book, err = ledger.NewManager(ledger.NewFileStore(cfg.LedgerPath), archive, cfg.Costs)
	if err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// openStores builds the score history repo and the optional trade archive
// for the configured backend.
func (a *app) openStores(storage config.StorageConfig) (persistence.ScoreHistoryRepo, persistence.TradeArchive, error) {
	switch storage.Backend {
	case config.BackendRedis:
		opts, err := redis.ParseURL(storage.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		a.closers = append(a.closers, client.Close)
		return redisstore.NewScoreHistory(client), nil, nil

	case config.BackendPostgres:
		db, err := sqlx.Connect("postgres", storage.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		return pgstore.NewScoreHistory(db, storeTimeout), pgstore.NewTradeArchive(db, storeTimeout), nil

	default:
		scores, err := filestore.OpenScoreHistory(filepath.Join(storage.DataDir, "score_history.json"))
		if err != nil {
			return nil, nil, err
		}
		return scores, nil, nil
	}
}

func (a *app) close() {
	for _, fn := range a.closers {
		_ = fn()
	}
}
