package control

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/curator/internal/core/config"
	"github.com/vietddude/curator/internal/core/cursor"
	"github.com/vietddude/curator/internal/core/domain"
	"github.com/vietddude/curator/internal/indexing/collector"
	"github.com/vietddude/curator/internal/indexing/health"
	"github.com/vietddude/curator/internal/infra/redis"
	"github.com/vietddude/curator/internal/infra/rpc/provider"
	"github.com/vietddude/curator/internal/infra/rpc/routing"
	"github.com/vietddude/curator/internal/infra/storage"
	"github.com/vietddude/curator/internal/infra/storage/csvfile"
	"github.com/vietddude/curator/internal/infra/storage/memory"
	"github.com/vietddude/curator/internal/infra/storage/postgres"
	"github.com/vietddude/curator/internal/recommend"
)

const (
	upstreamName    = "anilist"
	healthCacheTTL  = 5 * time.Second
	shutdownTimeout = 15 * time.Second
)

// App owns every long-lived component and is passed explicitly to the
// command handlers.
type App struct {
	cfg          *config.AppConfig
	upstream     *provider.HTTPProvider
	executor     *routing.Executor
	cursors      *cursor.DefaultManager
	checkpoints  storage.CheckpointRepository
	collector    *collector.Collector
	recommender  *recommend.Service
	healthMon    *health.Monitor
	healthServer *health.Server
	db           *postgres.DB
	redisClient  *redis.Client
	log          *slog.Logger
}

// Option customises App construction.
type Option func(*options)

type options struct {
	sleeper     routing.Sleeper
	recommender recommend.Recommender
	metadata    recommend.MetadataSource
}

// WithSleeper replaces the wall-clock sleeper for retry backoff and page delays.
func WithSleeper(s routing.Sleeper) Option {
	return func(o *options) { o.sleeper = s }
}

// WithRecommender replaces the HTTP recommender client.
func WithRecommender(r recommend.Recommender) Option {
	return func(o *options) { o.recommender = r }
}

// WithMetadata replaces the file-backed metadata table.
func WithMetadata(m recommend.MetadataSource) Option {
	return func(o *options) { o.metadata = m }
}

// New creates an App with all dependencies initialized from cfg.
func New(ctx context.Context, cfg *config.AppConfig, opts ...Option) (*App, error) {
	o := options{sleeper: routing.SleepContext}
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{cfg: cfg, log: slog.Default()}

	if err := app.initStorage(ctx); err != nil {
		app.Close()
		return nil, err
	}

	// Upstream
	app.upstream = provider.NewHTTPProvider(upstreamName, cfg.AniList.Endpoint, cfg.AniList.Timeout)
	app.executor = routing.NewExecutor(app.upstream, routing.RetryConfig{
		MaxAttempts:    cfg.AniList.Retry.MaxAttempts,
		InitialBackoff: cfg.AniList.Retry.InitialBackoff,
		MaxBackoff:     cfg.AniList.Retry.MaxBackoff,
	}, routing.WithSleeper(o.sleeper))

	app.cursors.SetStateChangeCallback(func(rt domain.RecordType, t cursor.Transition) {
		app.log.Info("Cursor state changed",
			"record_type", rt,
			"from", t.From,
			"to", t.To,
			"reason", t.Reason,
		)
	})

	app.collector = collector.New(collector.Config{
		PerPage:            cfg.AniList.PerPage,
		StartPage:          cfg.Collector.StartPage,
		CheckpointInterval: cfg.Collector.CheckpointInterval,
		PageDelay:          cfg.Collector.PageDelay,
		MaxPageRetries:     cfg.Collector.MaxPageRetries,
		Resume:             cfg.Collector.Resume,
	}, app.executor, app.checkpoints, app.cursors, collector.WithSleeper(o.sleeper))

	// Recommendations
	rec := o.recommender
	if rec == nil {
		rec = recommend.NewHTTPRecommender(cfg.Recommender.Endpoint, cfg.Recommender.Token, cfg.Recommender.Timeout)
	}
	meta := o.metadata
	if meta == nil {
		meta = recommend.NewFileMetadata(cfg.Recommender.MetadataPath)
	}
	app.recommender = recommend.NewService(rec, meta, recommend.ServiceConfig{
		Limit:             cfg.Recommender.Limit,
		RequestsPerMinute: cfg.Recommender.RequestsPerMinute,
		RateLimitCooldown: cfg.Recommender.RateLimitCooldown,
	})

	// Health and HTTP surface
	app.healthMon = health.NewMonitor(app.cursors, app.upstream, healthCacheTTL)
	app.healthServer = health.NewServer(app.healthMon, cfg.Server.Port)
	app.healthServer.Handle("/recommend", recommend.Handler(app.recommender))

	return app, nil
}

func (a *App) initStorage(ctx context.Context) error {
	cfg := a.cfg
	var store *memory.MemoryStorage
	memoryStore := func() *memory.MemoryStorage {
		if store == nil {
			store = memory.NewMemoryStorage()
		}
		return store
	}

	if cfg.Checkpoint.Backend == "postgres" || cfg.Cursor.Backend == "postgres" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.db = db
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		a.log.Info("Connected to PostgreSQL", "driver", cfg.Database.Driver)
	}

	var cursorRepo storage.CursorRepository
	switch cfg.Cursor.Backend {
	case "postgres":
		cursorRepo = postgres.NewCursorRepo(a.db)
	case "redis":
		client, err := redis.NewClient(cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.redisClient = client
		cursorRepo = redis.NewCursorRepo(client, cfg.Redis.KeyPrefix)
		a.log.Info("Connected to Redis")
	default:
		cursorRepo = memory.NewCursorRepo(memoryStore())
	}
	a.cursors = cursor.NewManager(cursorRepo)

	switch cfg.Checkpoint.Backend {
	case "postgres":
		a.checkpoints = postgres.NewCheckpointRepo(a.db)
	case "memory":
		a.checkpoints = memory.NewCheckpointRepo(memoryStore())
	default:
		a.checkpoints = csvfile.NewStore(cfg.Checkpoint.Dir)
	}
	return nil
}

// Collect runs the collector over the record types with the HTTP server
// alongside. The server is shut down once collection ends.
func (a *App) Collect(ctx context.Context, recordTypes ...domain.RecordType) error {
	a.startBackground(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.healthServer.Start)
	g.Go(func() error {
		defer a.stopServer()
		return a.collector.Run(gctx, recordTypes...)
	})
	return g.Wait()
}

// Serve runs the HTTP server until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	a.startBackground(ctx)
	a.log.Info("Serving", "port", a.cfg.Server.Port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.healthServer.Start)
	g.Go(func() error {
		<-gctx.Done()
		a.stopServer()
		return nil
	})
	return g.Wait()
}

func (a *App) startBackground(ctx context.Context) {
	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}
}

func (a *App) stopServer() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.healthServer.Stop(ctx); err != nil {
		a.log.Warn("Failed to stop HTTP server", "error", err)
	}
}

// Recommend answers one recommendation request.
func (a *App) Recommend(ctx context.Context, mode, search string) recommend.Result {
	return a.recommender.Recommend(ctx, mode, search)
}

// Cursors returns the cursor manager.
func (a *App) Cursors() cursor.Manager {
	return a.cursors
}

// Checkpoints returns the configured checkpoint store.
func (a *App) Checkpoints() storage.CheckpointRepository {
	return a.checkpoints
}

// Health returns the current health report.
func (a *App) Health(ctx context.Context) *health.HealthReport {
	return a.healthMon.CheckHealth(ctx)
}

// Handler exposes the HTTP routes without binding a port.
func (a *App) Handler() http.Handler {
	return a.healthServer.Handler()
}

// Close releases upstream and storage connections.
func (a *App) Close() {
	if a.upstream != nil {
		if err := a.upstream.Close(); err != nil {
			a.log.Warn("Failed to close upstream", "error", err)
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	}
}
