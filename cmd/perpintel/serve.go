package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/perpintel/engine/internal/absorption"
	"github.com/perpintel/engine/internal/cache"
	"github.com/perpintel/engine/internal/candle"
	"github.com/perpintel/engine/internal/config"
	"github.com/perpintel/engine/internal/httpapi"
	"github.com/perpintel/engine/internal/metrics"
	"github.com/perpintel/engine/internal/provider"
	"github.com/perpintel/engine/internal/replay"
	"github.com/perpintel/engine/internal/state"
)

const postgresOpTimeout = 10 * time.Second

// openStores picks Postgres-backed absorption/replay stores when dsn
// is non-empty (§6.4's persisted schema), falling back to the
// in-memory implementations the demo/CLI path uses otherwise. Both
// implementations satisfy the same absorption.Store/replay.Store
// interfaces, so callers never branch on which is active.
func openStores(dsn string) (absorption.Store, replay.Store, error) {
	if dsn == "" {
		return absorption.NewMemory(), replay.NewMemory(), nil
	}
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, nil, err
	}
	return absorption.NewPostgres(db, postgresOpTimeout), replay.NewPostgres(db, postgresOpTimeout), nil
}

func newServeCmd() *cobra.Command {
	var (
		host        string
		port        int
		symbol      string
		demoBars    int
		postgresDSN string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the §6.2 HTTP surface: /analyze, /config, /replay",
		RunE: func(cmd *cobra.Command, args []string) error {
			nowMs := time.Now().UTC().UnixMilli()
			cfgStore, err := config.NewStore(config.Default())
			if err != nil {
				return err
			}
			reg := metrics.NewRegistry()
			mem := newDemoProvider(symbol, demoBars, nowMs)
			cached := provider.NewCached(mem, cache.NewMemory(), reg, "memory")
			absStore, replayStore, err := openStores(postgresDSN)
			if err != nil {
				return err
			}

			deps := runnerDeps{Provider: cached, ConfigStore: cfgStore, AbsorptionStore: absStore, Metrics: reg}
			run := deps.buildRunner()

			runner := func(ctx context.Context, sym string, tf candle.Timeframe, asOfMs int64) (state.MarketState, error) {
				if asOfMs == 0 {
					asOfMs = time.Now().UTC().UnixMilli()
				}
				return run(ctx, sym, tf, asOfMs)
			}

			orch := replay.NewOrchestrator(func(ctx context.Context, asOfMs int64) (state.MarketState, error) {
				return runner(ctx, symbol, candle.TF1h, asOfMs)
			}, replayStore)
			batches := replay.NewBatchRegistry()
			hub := httpapi.NewHub()

			handlers := httpapi.NewHandlers(runner, cfgStore, absStore, replayStore, orch, batches, hub)
			srvCfg := httpapi.DefaultServerConfig()
			srvCfg.Host = host
			srvCfg.Port = port
			srvCfg.Metrics = reg.Gatherer()

			logger := log.Logger.With().Str("component", "httpapi").Logger()
			server := httpapi.NewServer(srvCfg, handlers, logger)

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-sigCh:
				log.Info().Msg("shutting down")
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(ctx)
			}
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "bind host")
	cmd.Flags().IntVar(&port, "port", 8090, "bind port")
	cmd.Flags().StringVar(&symbol, "symbol", "BTCUSDT", "symbol the demo provider seeds data for")
	cmd.Flags().IntVar(&demoBars, "demo-bars", 240, "synthetic candle count to seed for the demo provider")
	cmd.Flags().StringVar(&postgresDSN, "postgres-dsn", "", "Postgres DSN for absorption/replay persistence; empty uses in-memory stores")
	return cmd
}
