package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/dualmind/config"
	"github.com/mohammad-safakhou/dualmind/internal/critic"
	"github.com/mohammad-safakhou/dualmind/internal/engine"
	"github.com/mohammad-safakhou/dualmind/internal/loop"
	"github.com/mohammad-safakhou/dualmind/internal/orchestrator"
	"github.com/mohammad-safakhou/dualmind/internal/pattern"
	"github.com/mohammad-safakhou/dualmind/internal/planner"
	"github.com/mohammad-safakhou/dualmind/internal/store"
	"github.com/mohammad-safakhou/dualmind/internal/telemetry"
	"github.com/mohammad-safakhou/dualmind/provider"
	"github.com/mohammad-safakhou/dualmind/tools"
)

// app holds the assembled pipeline plus the optional shared backends.
type app struct {
	cfg      *config.Config
	orch     *orchestrator.Orchestrator
	store    *store.Store
	patterns pattern.Store
	tel      *telemetry.Telemetry
}

// buildApp wires config into a ready pipeline. Both postgres and redis
// are optional: without postgres the pattern archive lives in memory
// and sessions are not persisted, without redis tool outputs are not
// cached.
func buildApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	logger := log.New(log.Writer(), "[BOOT] ", log.LstdFlags)

	prov, err := provider.New(cfg.LLM)
	if err != nil {
		return nil, err
	}
	if prov == nil {
		logger.Printf("no LLM provider configured; planning and synthesis run deterministically")
	}

	reg, err := tools.BuildRegistry(cfg.Tools, prov)
	if err != nil {
		return nil, err
	}

	pln := planner.New(prov, reg, cfg.Planner.MaxSteps)
	crt := critic.New(prov, reg, cfg.Planner.ApprovalThreshold, cfg.Planner.MaxSteps)
	refiner := loop.New(pln, crt, cfg.Planner.MaxIterations, cfg.Planner.RejectionThreshold)

	var cache engine.Cache
	if cfg.Databases.Redis.Host != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.Databases.Redis.Host, cfg.Databases.Redis.Port),
			Password: cfg.Databases.Redis.Password,
			DB:       cfg.Databases.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Printf("redis unreachable, continuing without tool cache: %v", err)
		} else {
			cache = engine.NewRedisCache(client, cfg.Engine.CacheTTL)
		}
	}
	eng := engine.New(reg, cfg.Engine.MaxRetries, cache)

	var st *store.Store
	var patterns pattern.Store
	var sink orchestrator.SessionSink
	switch cfg.Patterns.Backend {
	case "postgres":
		dsn, err := cfg.Databases.PostgresDSN()
		if err != nil {
			return nil, err
		}
		st, err = store.Open(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		patterns = pattern.NewPostgresStore(st.DB)
		sink = st
	default:
		patterns = pattern.NewMemoryStore()
		dataDir := cfg.General.DataDir
		if dataDir == "" {
			dataDir = "./data"
		}
		sink = store.NewFileSink(filepath.Join(dataDir, "sessions"))
	}

	var tel *telemetry.Telemetry
	if cfg.Telemetry.Enabled {
		tel = telemetry.New("dualmind")
	}

	orch := orchestrator.New(refiner, eng, patterns, sink, tel, orchestrator.Options{
		SimilarityThreshold: cfg.Patterns.SimilarityThreshold,
		SuccessRate:         cfg.Patterns.SuccessRate,
		MatchLimit:          cfg.Patterns.MatchLimit,
	})

	return &app{cfg: cfg, orch: orch, store: st, patterns: patterns, tel: tel}, nil
}

func (a *app) close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}
