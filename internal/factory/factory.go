package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/karalama/karalama/internal/bus"
	"github.com/karalama/karalama/internal/dependencies/clock"
	"github.com/karalama/karalama/internal/dependencies/random"
	"github.com/karalama/karalama/internal/services/classifier"
	"github.com/karalama/karalama/internal/services/directory"
	"github.com/karalama/karalama/internal/services/lexicon"
	"github.com/karalama/karalama/internal/services/scheduler"
	"github.com/karalama/karalama/internal/services/score"
	"github.com/karalama/karalama/internal/storage"
	"github.com/karalama/karalama/internal/storage/memory"
	redisstorage "github.com/karalama/karalama/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage and transport
	Storage storage.Storage
	Bus     bus.Bus

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Lexicon    *lexicon.Service
	Directory  *directory.Service
	Scheduler  *scheduler.Service
	Score      *score.Service
	Classifier classifier.Classifier

	redisClient *goredis.Client
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis").
	// Redis also backs the broadcast bus, so a memory deployment is
	// single-process only. If empty, defaults to "memory".
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SchedulerConfig holds round and guess window durations (optional)
	// If zero value, defaults to scheduler.DefaultConfig()
	SchedulerConfig scheduler.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	var (
		store       storage.Storage
		b           bus.Bus
		redisClient *goredis.Client
	)

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
		b = bus.NewMemory()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		client, err := connectRedis(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		// Storage and bus share one client pool
		store = redisstorage.NewWithClient(client, *cfg.RedisConfig)
		b = bus.NewRedis(client, logger)
		redisClient = client
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	schedCfg := cfg.SchedulerConfig
	if schedCfg.RoundDuration == 0 {
		schedCfg = scheduler.DefaultConfig()
	}

	app := newWithDependencies(store, b, clock.New(), random.New(), schedCfg, logger)
	app.redisClient = redisClient
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, b bus.Bus, clk clock.Clock, rnd random.Random, schedCfg scheduler.Config, logger *slog.Logger) *App {
	lex := lexicon.New(rnd)
	dir := directory.New(store, b, clk, rnd, logger)

	return &App{
		Storage:    store,
		Bus:        b,
		Clock:      clk,
		Random:     rnd,
		Lexicon:    lex,
		Directory:  dir,
		Scheduler:  scheduler.New(dir, lex, clk, schedCfg, logger),
		Score:      score.New(dir, lex, logger),
		Classifier: classifier.NewFallback(lex, rnd),
	}
}

// Close releases the backend connections
func (a *App) Close() error {
	if a.redisClient != nil {
		return a.redisClient.Close()
	}
	return nil
}

func connectRedis(cfg redisstorage.Config) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
