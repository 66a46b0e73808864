package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/voyagen/tvonline/internal/cache"
	"github.com/voyagen/tvonline/internal/catalog"
	"github.com/voyagen/tvonline/internal/config"
	"github.com/voyagen/tvonline/internal/embedding"
	"github.com/voyagen/tvonline/internal/logging"
	"github.com/voyagen/tvonline/internal/server"
	"github.com/voyagen/tvonline/internal/service"
	"github.com/voyagen/tvonline/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Optional config file path (YAML); else use env and .env files")
	flushCache := flag.Bool("flush-cache", false, "Drop cached playlists and search results at start-up")
	flag.Parse()

	cfg := config.Load()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
	}

	log := logging.New("tvonline", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *flushCache); err != nil {
		log.WithError(err).Error("exiting")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Entry, flushCache bool) error {
	var (
		st    store.Store = store.NewMemory()
		index store.VectorIndex
		opts  = []service.Option{service.WithFetcher(cfg.UserAgent, cfg.Timeout)}
	)

	if cfg.HasDatabase() {
		if err := store.EnsurePgvector(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("pgvector: %w", err)
		}
		version, err := store.RunMigrations(cfg.DatabaseURL, migrationsURL(cfg.MigrationsPath))
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.WithField("version", version).Info("migrations applied")

		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("db: %w", err)
		}
		defer pg.Close()
		st, index = pg, pg
	} else {
		log.Warn("DATABASE_URL not set, state is kept in memory only")
	}

	if cfg.HasRedis() {
		rds, err := cache.New(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rds.Close()
		if err := rds.Ping(ctx); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		cached := store.NewCachedStore(st, rds, log)
		if flushCache {
			cached.ClearAll(ctx)
			log.Info("cache flushed")
		}
		st = cached
		if index != nil {
			index = cached
		}
		opts = append(opts, service.WithRedis(rds))
		log.Info("redis connected (cache, index queue and import lock enabled)")
	}

	if cfg.HasEmbeddings() {
		opts = append(opts, service.WithSearch(index, embedding.NewClient(cfg.VoyageAPIKey, cfg.VoyageModel)))
		log.Info("semantic search enabled (VoyageAI)")
	} else {
		log.Info("semantic search disabled (needs VOYAGE_API_KEY and DATABASE_URL)")
	}

	svc := service.New(catalog.New(), st, log, opts...)
	if err := svc.Restore(ctx); err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	go svc.RunIndexWorker(ctx)

	return server.New(svc, cfg.ServerPort, log).ListenAndServe(ctx)
}

// migrationsURL turns a relative file:// migrations source into an absolute
// one, falling back to the directory next to the executable.
func migrationsURL(source string) string {
	dir, ok := strings.CutPrefix(source, "file://")
	if !ok || filepath.IsAbs(dir) {
		return source
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	if _, err := os.Stat(abs); err != nil {
		if exe, e := os.Executable(); e == nil {
			abs = filepath.Join(filepath.Dir(exe), dir)
		}
	}
	return "file://" + abs
}
