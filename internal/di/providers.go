package di

import (
	"context"
	"fmt"
	"time"

	"PowerPull/internal/domain/models"
	"PowerPull/internal/domain/repository"
	"PowerPull/internal/handler/api"
	mid "PowerPull/internal/middleware"
	internalrepo "PowerPull/internal/repository"
	"PowerPull/internal/scheduler"
	imetrics "PowerPull/internal/service/metrics"
	"PowerPull/internal/service/ratelimit"
	"PowerPull/internal/services/series"
	"PowerPull/internal/usecase"
	pkgch "PowerPull/pkg/clickhouse"
	"PowerPull/pkg/config"
	xhttp "PowerPull/pkg/http"
	pkgkafka "PowerPull/pkg/kafka"
	"PowerPull/pkg/lock"
	applogger "PowerPull/pkg/logger"
	"PowerPull/pkg/metrics"
	pkgredis "PowerPull/pkg/redis"
	"PowerPull/pkg/server"
	"PowerPull/pkg/sqlite"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
)

const initTimeout = 10 * time.Second

// ProvideRegistry creates the Prometheus registry with Go and process collectors.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, reg prometheus.Registerer) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithProducerRegisterer(reg),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideLogger creates the application logger. Warn and error entries are
// aggregated and shipped to Kafka when the collector is enabled.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, func(), error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Logging.Collector.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Logging.Collector.Interval,
			CountThreshold: cfg.Logging.Collector.CountThreshold,
			Topic:          cfg.Logging.Collector.Topic,
			Publisher:      producer,
			Levels:         []string{"warn", "error"},
			Service:        "powerpull",
		})
	}
	return l, l.RemoveCollector, nil
}

// ProvideMetrics creates the domain metrics recorder.
func ProvideMetrics(reg prometheus.Registerer) repository.Metrics {
	return metrics.New(reg)
}

func ProvideViewMetrics(reg prometheus.Registerer) *imetrics.ViewMetrics {
	return imetrics.NewViewMetrics(reg)
}

// ProvideSnapshotStore opens the configured store and creates its schema.
func ProvideSnapshotStore(cfg *config.Config, l *applogger.Logger) (repository.SnapshotStore, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	dialect, err := internalrepo.DialectFor(cfg.Store.Driver)
	if err != nil {
		return nil, nil, err
	}

	var (
		store   *internalrepo.SQLSnapshotStore
		closeFn func() error
	)
	switch cfg.Store.Driver {
	case "clickhouse":
		client, err := pkgch.NewClient(ctx,
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithMaxConnections(cfg.ClickHouse.MaxOpenConns, cfg.ClickHouse.MaxIdleConns),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}
		store, err = internalrepo.NewSQLSnapshotStore(client.DB(), cfg.ClickHouse.Database+"."+cfg.Store.Table, dialect)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		closeFn = client.Close
	default:
		db, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		store, err = internalrepo.NewSQLSnapshotStore(db, cfg.Store.Table, dialect)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		closeFn = db.Close
	}

	store.SetLogger(l)
	if err := store.Init(ctx); err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	l.Info("snapshot store ready",
		applogger.String("driver", cfg.Store.Driver),
		applogger.String("table", cfg.Store.Table),
	)
	cleanup := func() {
		if err := closeFn(); err != nil {
			l.Warn("snapshot store close error", applogger.Error(err))
		}
	}
	return store, cleanup, nil
}

// ProvideFlatFileSource returns nil when no export location is configured.
func ProvideFlatFileSource(cfg *config.Config, m repository.Metrics, l *applogger.Logger) *internalrepo.FlatFileSource {
	switch {
	case cfg.FlatFile.URL != "":
		client := xhttp.NewClient(xhttp.WithTimeout(cfg.FlatFile.Timeout))
		return internalrepo.NewFlatFileSource(internalrepo.HTTPLoader{URL: cfg.FlatFile.URL, Client: client}, m, l)
	case cfg.FlatFile.Path != "":
		return internalrepo.NewFlatFileSource(internalrepo.FileLoader{Path: cfg.FlatFile.Path}, m, l)
	default:
		return nil
	}
}

// ProvideSources lists every configured record source.
func ProvideSources(store repository.SnapshotStore, flat *internalrepo.FlatFileSource, m repository.Metrics, l *applogger.Logger) []repository.Source {
	sources := []repository.Source{internalrepo.NewRemoteSource(store, m, l)}
	if flat != nil {
		sources = append(sources, flat)
	}
	return sources
}

// ProvideLocation loads the market time zone.
func ProvideLocation(cfg *config.Config) (*time.Location, error) {
	loc, err := time.LoadLocation(cfg.Pipeline.Timezone)
	if err != nil {
		return nil, fmt.Errorf("pipeline timezone: %w", err)
	}
	return loc, nil
}

// ProvideEngine builds the series engine from the pipeline settings.
func ProvideEngine(cfg *config.Config) (*series.Engine, error) {
	convention, err := series.ParseHourConvention(cfg.Pipeline.HourConvention)
	if err != nil {
		return nil, err
	}
	policy, err := series.ParsePolicy(cfg.Pipeline.GapFill)
	if err != nil {
		return nil, err
	}
	baselines := make(map[models.Measure]float64, len(cfg.Pipeline.Baselines))
	for k, v := range cfg.Pipeline.Baselines {
		baselines[models.Measure(k)] = v
	}
	return series.NewEngine(series.Options{
		Convention:    convention,
		Policy:        policy,
		BaselinePrice: cfg.Pipeline.BaselinePrice,
		Baselines:     baselines,
		Jitter:        cfg.Pipeline.Jitter,
		DailyJitter:   cfg.Pipeline.DailyJitter,
		Seed:          cfg.Pipeline.Seed,
	}), nil
}

// ProvideRedisClient connects to Redis, or returns nil when it is disabled.
func ProvideRedisClient(cfg *config.Config, l *applogger.Logger) (*goredis.Client, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	client, err := pkgredis.NewClient(ctx,
		pkgredis.WithHost(cfg.Redis.Host),
		pkgredis.WithPort(cfg.Redis.Port),
		pkgredis.WithPassword(cfg.Redis.Password),
		pkgredis.WithDB(cfg.Redis.DB),
		pkgredis.WithPool(cfg.Redis.PoolSize, 0, 0),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	l.Info("redis ready", applogger.String("host", cfg.Redis.Host))
	return client, func() { _ = client.Close() }, nil
}

// ProvideGenerationStore shares view generations through Redis when enabled.
func ProvideGenerationStore(cfg *config.Config, client *goredis.Client) repository.GenerationStore {
	if client == nil {
		return internalrepo.NewMemoryGenerationStore(cfg.Redis.GenerationTTL)
	}
	return internalrepo.NewRedisGenerationStore(client, cfg.Redis.Prefix, cfg.Redis.GenerationTTL)
}

// ProvideImportLock shares the import lease through Redis when enabled.
func ProvideImportLock(cfg *config.Config, client *goredis.Client) lock.Locker {
	if client == nil {
		return lock.NewMemoryLocker()
	}
	return lock.NewRedisLocker(client, cfg.Redis.Prefix)
}

func ProvideViewTracker(gens repository.GenerationStore, m repository.Metrics) *usecase.ViewTracker {
	return usecase.NewViewTracker(gens, m)
}

func ProvideSeriesViewUseCase(
	cfg *config.Config,
	engine *series.Engine,
	sources []repository.Source,
	tracker *usecase.ViewTracker,
	m repository.Metrics,
	loc *time.Location,
	l *applogger.Logger,
) *usecase.SeriesViewUseCase {
	return usecase.NewSeriesViewUseCase(engine, sources,
		usecase.WithLocation(loc),
		usecase.WithDefaultSource(models.GranularityHourly, cfg.Pipeline.HourlySource),
		usecase.WithDefaultSource(models.GranularityDaily, cfg.Pipeline.DailySource),
		usecase.WithTracker(tracker),
		usecase.WithSeriesMetrics(m),
		usecase.WithSeriesLogger(l),
	)
}

// ProvideRateLimiter returns nil when rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.Server.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst, 10*time.Minute)
}

// ProvideHTTPHandler groups every route handler.
func ProvideHTTPHandler(
	l *applogger.Logger,
	uc *usecase.SeriesViewUseCase,
	limiter *ratelimit.Limiter,
	vm *imetrics.ViewMetrics,
	store repository.SnapshotStore,
) xhttp.Handler {
	return xhttp.Handlers{
		api.NewSeriesEchoHandler(l, uc, limiter, vm),
		api.NewHealthHandler(l, store),
	}
}

func ProvideHTTPServer(cfg *config.Config, handler xhttp.Handler, reg *prometheus.Registry, l *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(l),
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		opts = append(opts, xhttp.WithCORSOrigins(cfg.Server.CORSOrigins))
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(reg, reg, cfg.Metrics.Path, cfg.Server.SlowThreshold))
	} else {
		opts = append(opts, xhttp.WithMetrics(nil, nil, "", 0))
	}
	return xhttp.NewServer(handler, opts...)
}

// ProvideIngestBatcher returns nil when Kafka ingestion is disabled.
func ProvideIngestBatcher(cfg *config.Config, store repository.SnapshotStore, m repository.Metrics, l *applogger.Logger) *mid.IngestBatcher {
	if !cfg.Kafka.Enabled {
		return nil
	}
	return mid.NewIngestBatcher(store, m,
		mid.WithBatchSize(cfg.Kafka.Batcher.BatchSize),
		mid.WithFlushInterval(cfg.Kafka.Batcher.FlushInterval),
		mid.WithMaxBuffer(cfg.Kafka.Batcher.MaxBuffer),
		mid.WithBatcherLogger(l),
	)
}

// ProvideKafkaConsumer returns a consumer with the snapshot handler registered,
// or nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, batcher *mid.IngestBatcher, m repository.Metrics, reg prometheus.Registerer, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || batcher == nil {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerOffsetReset(cfg.Kafka.Consumer.OffsetReset),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerLogger(l),
		pkgkafka.WithConsumerRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewSnapshotIngestHandler(cfg.Kafka.IngestTopic, batcher, m, l))
	return consumer, nil
}

// ProvideScheduler registers the flat-file import when both an export and a
// cron spec are configured.
func ProvideScheduler(
	cfg *config.Config,
	flat *internalrepo.FlatFileSource,
	store repository.SnapshotStore,
	locker lock.Locker,
	m repository.Metrics,
	loc *time.Location,
	l *applogger.Logger,
) (*scheduler.Scheduler, error) {
	var importer scheduler.Importer
	if flat != nil {
		importer = usecase.NewFlatFileImport(flat, store, m, l)
	}
	s := scheduler.NewScheduler(importer, loc, cfg.FlatFile.Timeout*2, l, scheduler.WithImportLock(locker))
	if err := s.RegisterImport(cfg.FlatFile.ImportCron); err != nil {
		return nil, err
	}
	return s, nil
}

func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	batcher *mid.IngestBatcher,
	sched *scheduler.Scheduler,
) *server.App {
	return server.New(cfg, l, httpServer, consumer, batcher, sched)
}
