package di

import (
	"context"
	"fmt"
	"time"

	drepo "LunarPull/internal/domain/repository"
	dsvc "LunarPull/internal/domain/service"
	"LunarPull/internal/handler/api"
	internalrepo "LunarPull/internal/repository"
	icache "LunarPull/internal/service/cache"
	"LunarPull/internal/services/lunar"
	"LunarPull/internal/services/prices"
	"LunarPull/internal/services/report"
	"LunarPull/internal/services/stats"
	"LunarPull/internal/usecase"
	pkgch "LunarPull/pkg/clickhouse"
	"LunarPull/pkg/config"
	xhttp "LunarPull/pkg/http"
	pkgkafka "LunarPull/pkg/kafka"
	applogger "LunarPull/pkg/logger"
	"LunarPull/pkg/metrics"
	"LunarPull/pkg/server"
	"LunarPull/pkg/sqldb"
)

const initTimeout = 30 * time.Second

func noop() {}

// ProvideLogger builds the process logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: "stdout",
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideLogCollector aggregates run warnings; entries go to the logs topic
// when Kafka is configured.
func ProvideLogCollector(cfg *config.Config, producer *pkgkafka.Producer) *applogger.LogCollector {
	cc := &applogger.CollectionConfig{CountThreshold: 200}
	if producer != nil && cfg.Kafka.LogsTopic != "" {
		cc.Topic = cfg.Kafka.LogsTopic
		cc.Publisher = producer
	}
	return applogger.NewLogCollector(cc)
}

// ProvideRecorder creates the pipeline's Prometheus recorder.
func ProvideRecorder() *metrics.Recorder {
	return metrics.New()
}

// ProvideBytesCache returns Redis when enabled and reachable, otherwise an
// in-process TTL cache.
func ProvideBytesCache(cfg *config.Config, log *applogger.Logger) (icache.BytesCache, func(), error) {
	if !cfg.Redis.Enabled {
		return icache.NewTTLCache(), noop, nil
	}
	rc := icache.NewRedisCache(icache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		log.Warn("redis unreachable, using in-process cache", applogger.String("addr", cfg.Redis.Addr), applogger.Error(err))
		_ = rc.Close()
		return icache.NewTTLCache(), noop, nil
	}
	return rc, func() {
		if err := rc.Close(); err != nil {
			log.Warn("redis close error", applogger.Error(err))
		}
	}, nil
}

// ProvideUSNOClient creates the phase event client with its own rate limit.
func ProvideUSNOClient(cfg *config.Config, c icache.BytesCache, log *applogger.Logger) *lunar.USNOClient {
	hc := xhttp.NewClient(
		xhttp.WithTimeout(cfg.Phases.Timeout),
		xhttp.WithRateLimit(cfg.Phases.RateLimit, 1),
	)
	return lunar.NewUSNOClient(cfg.Phases.BaseURL, hc,
		lunar.WithCache(c, cfg.Phases.CacheTTL),
		lunar.WithLogger(log),
	)
}

// ProvideResolver creates the phase resolver with local fallback.
func ProvideResolver(cfg *config.Config, usno *lunar.USNOClient, log *applogger.Logger) dsvc.PhaseResolver {
	return lunar.NewResolver(usno, cfg.Phases.GapFill, log)
}

// ProvideClickHouseClient connects to the price warehouse; nil when disabled.
func ProvideClickHouseClient(cfg *config.Config, log *applogger.Logger) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, noop, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	client, err := pkgch.NewClient(ctx,
		pkgch.WithAddress(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, func() {
		if err := client.Close(); err != nil {
			log.Warn("clickhouse close error", applogger.Error(err))
		}
	}, nil
}

// ProvidePriceStore creates the warehouse table; nil when ClickHouse is off.
func ProvidePriceStore(cfg *config.Config, ch *pkgch.Client, log *applogger.Logger) (drepo.PriceStore, error) {
	if ch == nil {
		return nil, nil
	}
	store := internalrepo.NewCHPriceStore(ch, cfg.ClickHouse.Database, log)
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvidePriceSource selects where daily prices come from.
func ProvidePriceSource(cfg *config.Config, warehouse drepo.PriceStore, log *applogger.Logger) (drepo.PriceSource, error) {
	switch cfg.Run.PriceSource {
	case "warehouse":
		if warehouse == nil {
			return nil, fmt.Errorf("price source %q requires clickhouse.enabled", cfg.Run.PriceSource)
		}
		return warehouse, nil
	case "csv":
		return prices.NewCSVSource(cfg.Run.DataDir), nil
	default:
		hc := xhttp.NewClient(
			xhttp.WithTimeout(cfg.Yahoo.Timeout),
			xhttp.WithRateLimit(cfg.Yahoo.RateLimit, 1),
			xhttp.WithUserAgent(cfg.Yahoo.UserAgent),
		)
		return prices.NewYahooClient(cfg.Yahoo.BaseURL, hc, log), nil
	}
}

// ProvideSQLClient opens the relational store; nil when disabled.
func ProvideSQLClient(cfg *config.Config, log *applogger.Logger) (*sqldb.Client, func(), error) {
	if !cfg.SQL.Enabled {
		return nil, noop, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	client, err := sqldb.NewClient(ctx,
		sqldb.WithDriver(cfg.SQL.Driver),
		sqldb.WithDSN(cfg.SQL.DSN),
		sqldb.WithPool(cfg.SQL.MaxOpenConns, cfg.SQL.MaxIdleConns, cfg.SQL.ConnMaxLifetime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("sql client: %w", err)
	}
	return client, func() {
		if err := client.Close(); err != nil {
			log.Warn("sql close error", applogger.Error(err))
		}
	}, nil
}

// ProvideAnalysisStore ensures the result tables exist. Without SQL the
// pipeline still runs and the API answers with empty results.
func ProvideAnalysisStore(cfg *config.Config, client *sqldb.Client, log *applogger.Logger) (drepo.AnalysisStore, error) {
	if client == nil {
		log.Info("sql store disabled")
		return internalrepo.NopStore{}, nil
	}
	store := internalrepo.NewSQLStore(client, cfg.SQL.BatchSize, log)
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("sql schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer; nil when disabled.
func ProvideKafkaProducer(cfg *config.Config, rec *metrics.Recorder, log *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, noop, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithAutoCreateTopics(true),
		pkgkafka.WithRegisterer(rec.Registry()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() {
		if err := producer.Close(); err != nil {
			log.Warn("kafka close error", applogger.Error(err))
		}
	}, nil
}

// ProvidePublisher publishes run results to Kafka, or nowhere.
func ProvidePublisher(cfg *config.Config, producer *pkgkafka.Producer) drepo.Publisher {
	if producer == nil {
		return internalrepo.NopPublisher{}
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideBlobStore uploads run artifacts to Azure, or to blob.local_dir when
// no connection string is set; nil when disabled.
func ProvideBlobStore(cfg *config.Config, log *applogger.Logger) (drepo.BlobStore, error) {
	if !cfg.Blob.Enabled {
		return nil, nil
	}
	if cfg.Blob.ConnectionString != "" {
		s, err := internalrepo.NewAzureBlobStore(cfg.Blob.ConnectionString, log)
		if err != nil {
			return nil, fmt.Errorf("blob store: %w", err)
		}
		return s, nil
	}
	return internalrepo.NewLocalBlobStore(cfg.Blob.LocalDir), nil
}

func ProvideStatsEngine() dsvc.StatsEngine { return stats.NewEngine() }

func ProvideRenderer(log *applogger.Logger) dsvc.ReportRenderer { return report.NewRenderer(log) }

// ProvidePipelineConfig maps the run section onto the pipeline.
func ProvidePipelineConfig(cfg *config.Config) usecase.PipelineConfig {
	return usecase.PipelineConfig{
		Instruments:    cfg.Run.Symbols,
		Range:          cfg.Range,
		DataDir:        cfg.Run.DataDir,
		ReportDir:      cfg.Run.ReportDir,
		LunarContainer: cfg.Blob.LunarContainer,
		StockContainer: cfg.Blob.StockContainer,
		StorePrices:    cfg.ClickHouse.Enabled && cfg.Run.PriceSource != "warehouse",
		Timeout:        cfg.Run.Timeout,
		PushgatewayURL: cfg.Metrics.PushgatewayURL,
		MetricsJob:     cfg.Metrics.Job,
	}
}

// ProvidePipeline creates the batch run. Its logger feeds the collector so
// warnings end up in the report diagnostics.
func ProvidePipeline(
	pc usecase.PipelineConfig,
	resolver dsvc.PhaseResolver,
	source drepo.PriceSource,
	warehouse drepo.PriceStore,
	store drepo.AnalysisStore,
	blobs drepo.BlobStore,
	pub drepo.Publisher,
	engine dsvc.StatsEngine,
	renderer dsvc.ReportRenderer,
	rec *metrics.Recorder,
	collector *applogger.LogCollector,
	log *applogger.Logger,
) *usecase.Pipeline {
	return usecase.NewPipeline(pc, resolver, source, warehouse, store, blobs, pub, engine, renderer, rec, rec, log.WithCollector(collector))
}

// ProvideRunner drives the pipeline for cmd/app, logging scheduler events.
func ProvideRunner(cfg *config.Config, p *usecase.Pipeline, log *applogger.Logger) *usecase.Runner {
	return usecase.NewRunner(p, cfg.Run.Schedule, log)
}

func ProvideResultsUseCase(store drepo.AnalysisStore, resolver dsvc.PhaseResolver, log *applogger.Logger) *usecase.ResultsUseCase {
	return usecase.NewResultsUseCase(store, resolver, log)
}

func ProvideAnalysisHandler(cfg *config.Config, log *applogger.Logger, uc *usecase.ResultsUseCase, c icache.BytesCache) *api.AnalysisEchoHandler {
	return api.NewAnalysisEchoHandler(log, uc, c, cfg.Server.CacheTTL)
}

// ProvideHTTPServer creates the Echo server for the read API.
func ProvideHTTPServer(cfg *config.Config, h *api.AnalysisEchoHandler, log *applogger.Logger) *xhttp.Server {
	path := ""
	if cfg.Metrics.Enabled {
		path = cfg.Metrics.Path
	}
	return xhttp.NewServer(h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(log),
		xhttp.WithMetricsPath(path),
	)
}

// ProvideApp creates the application server.
func ProvideApp(cfg *config.Config, srv *xhttp.Server, log *applogger.Logger) *server.App {
	return server.New(srv, cfg.Server.ShutdownTimeout, log)
}
