package di

import (
	"context"
	"fmt"
	"time"

	"PricePulse/internal/domain/repository"
	"PricePulse/internal/handler/api"
	internalrepo "PricePulse/internal/repository"
	"PricePulse/internal/service/cache"
	"PricePulse/internal/service/ratelimit"
	"PricePulse/internal/services/decision"
	"PricePulse/internal/services/forecast"
	"PricePulse/internal/services/resolver"
	"PricePulse/internal/services/timeseries"
	"PricePulse/internal/services/trend"
	"PricePulse/internal/usecase"
	pkgch "PricePulse/pkg/clickhouse"
	"PricePulse/pkg/config"
	xhttp "PricePulse/pkg/http"
	pkgkafka "PricePulse/pkg/kafka"
	applogger "PricePulse/pkg/logger"
	"PricePulse/pkg/metrics"
	"PricePulse/pkg/server"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// Storage is the configured price backend. Sink is nil for read-only sources.
type Storage struct {
	Source repository.RowSource
	Sink   repository.RowSink
}

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

func ProvideHolder() *timeseries.Holder {
	return timeseries.NewHolder()
}

// ProvideClickHouseClient opens ClickHouse and ensures the price table.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	c := cfg.ClickHouse
	client, err := pkgch.NewClient(ctx,
		pkgch.WithAddr(c.Host, c.Port),
		pkgch.WithDatabase(c.Database),
		pkgch.WithCredentials(c.User, c.Password),
		pkgch.WithHTTP(c.UseHTTP),
		pkgch.WithTimeouts(c.DialTimeout, c.ReadTimeout),
		pkgch.WithMaxExecutionTime(c.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	stmts, err := pkgch.PriceSchema(client.Database(), cfg.Store.Table)
	if err == nil {
		err = client.Migrate(ctx, stmts)
	}
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideStorage opens the backend named by store.source.
func ProvideStorage(cfg *config.Config, l *applogger.Logger) (*Storage, func(), error) {
	noop := func() {}
	switch cfg.Store.Source {
	case config.SourceCSV:
		return &Storage{Source: internalrepo.NewCSVSource(cfg.Store.CSVPath, l)}, noop, nil

	case config.SourceSQL:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		db, err := internalrepo.OpenSQL(ctx, cfg.SQL.Driver, cfg.SQL.DSN, cfg.SQL.MaxOpenConns)
		if err != nil {
			return nil, nil, err
		}
		store, err := internalrepo.NewSQLPriceStore(db, cfg.Store.Table, l)
		if err == nil {
			err = store.InitSchema(ctx)
		}
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		cleanup := func() {
			if err := db.Close(); err != nil {
				l.Warn("sql close error", applogger.Error(err))
			}
		}
		return &Storage{Source: store, Sink: store}, cleanup, nil

	case config.SourceClickHouse:
		client, err := ProvideClickHouseClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		store, err := internalrepo.NewCHPriceStore(client, cfg.Store.Table, l)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		cleanup := func() {
			if err := client.Close(); err != nil {
				l.Warn("clickhouse close error", applogger.Error(err))
			}
		}
		return &Storage{Source: store, Sink: store}, cleanup, nil

	default:
		return &Storage{}, noop, nil
	}
}

// ProvideKafkaProducer creates a Kafka producer, or nil when kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideEventPublisher publishes recommendation events when kafka and an
// events topic are configured.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.EventPublisher {
	if producer == nil || cfg.Kafka.EventsTopic == "" {
		return internalrepo.NopEventPublisher{}
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.EventsTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer, or nil when kafka ingestion is off.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.PricesTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerLogger(l),
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(
		pkgkafka.TraceHook{},
		pkgkafka.PayloadHook{MaxBytes: 1 << 20},
		pkgkafka.LogHook{Log: l},
	))
	return consumer, nil
}

func ProvideResolver(cfg *config.Config) *resolver.Resolver {
	return resolver.New(
		resolver.WithMinOverlap(cfg.Forecast.MinOverlap),
		resolver.WithMinPoints(cfg.Forecast.MinPoints),
	)
}

func ProvideFitter() *trend.OLSFitter {
	return trend.NewOLSFitter()
}

func ProvideForecaster(cfg *config.Config) *forecast.LinearForecaster {
	return forecast.NewLinearForecaster(forecast.WithMinPrice(cfg.Forecast.MinPrice))
}

func ProvideDecisionEngine(cfg *config.Config) *decision.Engine {
	return decision.NewEngine(decision.WithDiscounts(cfg.Forecast.SimilarDiscount, cfg.Forecast.CategoryDiscount))
}

// ProvidePriceAdvisor creates the analyze use case.
func ProvidePriceAdvisor(
	cfg *config.Config,
	holder *timeseries.Holder,
	res *resolver.Resolver,
	fitter *trend.OLSFitter,
	fc *forecast.LinearForecaster,
	engine *decision.Engine,
	events repository.EventPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.PriceAdvisor {
	return usecase.NewPriceAdvisor(holder, res, fitter, fc, engine, events, m, l, usecase.AdvisorConfig{
		Horizons:            cfg.Forecast.Horizons,
		Threshold:           cfg.Forecast.Threshold,
		ScaleToCurrentPrice: cfg.Forecast.ScaleToCurrentPrice,
		BatchLimit:          cfg.Forecast.BatchLimit,
		BatchWorkers:        cfg.Forecast.BatchWorkers,
	})
}

func ProvideCatalog(holder *timeseries.Holder) *usecase.Catalog {
	return usecase.NewCatalog(holder)
}

func ProvideStoreLoader(cfg *config.Config, st *Storage, holder *timeseries.Holder, m repository.Metrics, l *applogger.Logger) *usecase.StoreLoader {
	return usecase.NewStoreLoader(st.Source, holder, m, l, cfg.Store.LoadTimeout)
}

func ProvideIngestPipeline(cfg *config.Config, st *Storage, holder *timeseries.Holder, m repository.Metrics, l *applogger.Logger) *usecase.IngestPipeline {
	opts := []usecase.PipelineOption{
		usecase.WithBatchSize(cfg.Ingest.BatchSize),
		usecase.WithFlushInterval(cfg.Ingest.FlushInterval),
		usecase.WithBufferSize(cfg.Ingest.BufferSize),
	}
	if st.Sink != nil {
		opts = append(opts, usecase.WithSink(st.Sink))
	}
	return usecase.NewIngestPipeline(holder, m, l, opts...)
}

func ProvideKafkaPricesHandler(cfg *config.Config, pipeline *usecase.IngestPipeline, m repository.Metrics) *usecase.KafkaPricesHandler {
	return usecase.NewKafkaPricesHandler(cfg.Kafka.PricesTopic, pipeline, m)
}

// ProvideResponseCache picks redis, in-process or no caching.
func ProvideResponseCache(cfg *config.Config, l *applogger.Logger) (*cache.ResponseCache, func(), error) {
	if !cfg.Cache.Enabled {
		return nil, func() {}, nil
	}
	if !cfg.Cache.Redis.Enabled {
		return cache.NewResponseCache(cache.NewTTLCache(0), cfg.Cache.TTL, l), func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r := cfg.Cache.Redis
	rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:         r.Addr,
		Password:     r.Password,
		DB:           r.DB,
		PoolSize:     r.PoolSize,
		DialTimeout:  r.DialTimeout,
		ReadTimeout:  r.OpTimeout,
		WriteTimeout: r.OpTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := rc.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}
	return cache.NewResponseCache(rc, cfg.Cache.TTL, l), cleanup, nil
}

func ProvidePricesHandler(
	cfg *config.Config,
	l *applogger.Logger,
	advisor *usecase.PriceAdvisor,
	catalog *usecase.Catalog,
	loader *usecase.StoreLoader,
	rc *cache.ResponseCache,
) *api.PricesEchoHandler {
	return api.NewPricesEchoHandler(l, advisor, catalog, loader, rc, cfg.Server.RequestTimeout)
}

// ProvideHTTPServer builds the echo server around the pricing handler.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h *api.PricesEchoHandler) *xhttp.Server {
	var mws []echo.MiddlewareFunc
	if cfg.RateLimit.Enabled {
		mws = append(mws, ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst).Middleware(l))
	}
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(l, h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithSlowThreshold(cfg.Server.SlowRequest),
		xhttp.WithQuietPaths("/api/health"),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithMiddleware(mws...),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	loader *usecase.StoreLoader,
	pipeline *usecase.IngestPipeline,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaPricesHandler,
	advisor *usecase.PriceAdvisor,
	events repository.EventPublisher,
	producer *pkgkafka.Producer,
) *server.App {
	app := server.New(cfg, l, httpServer, loader, pipeline, advisor, events)
	if consumer != nil {
		app.WithConsumer(consumer, kh)
	}
	if producer != nil {
		app.WithLogPublisher(producer)
	}
	return app
}
