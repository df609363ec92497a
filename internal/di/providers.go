package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	drepo "HistPull/internal/domain/repository"
	"HistPull/internal/handler/api"
	internalrepo "HistPull/internal/repository"
	"HistPull/internal/service/binance"
	"HistPull/internal/service/fred"
	"HistPull/internal/service/oanda"
	"HistPull/internal/service/ratelimit"
	"HistPull/internal/service/twelvedata"
	"HistPull/internal/service/yahoo"
	"HistPull/internal/usecase"
	pkgch "HistPull/pkg/clickhouse"
	"HistPull/pkg/config"
	xhttp "HistPull/pkg/http"
	pkgkafka "HistPull/pkg/kafka"
	applogger "HistPull/pkg/logger"
	"HistPull/pkg/metrics"
	"HistPull/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideSeriesStore selects the checkpoint backend.
func ProvideSeriesStore(cfg *config.Config, log *applogger.Logger) (drepo.SeriesStore, error) {
	switch cfg.Checkpoint.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Checkpoint.Redis.Addr,
			Password: cfg.Checkpoint.Redis.Password,
			DB:       cfg.Checkpoint.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return internalrepo.NewRedisStore(rdb, cfg.Checkpoint.Redis.Prefix, log), nil
	default:
		return internalrepo.NewFileStore(cfg.DataDir, log), nil
	}
}

// ProvideClickHouseClient creates the ClickHouse pool and ensures the sink
// schema. Returns nil when the sink is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.Schema(cfg.ClickHouse.Database, cfg.ClickHouse.Table)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvidePublisher assembles the optional downstream sinks. Returns nil when
// neither Kafka nor ClickHouse is enabled.
func ProvidePublisher(cfg *config.Config, chClient *pkgch.Client) (drepo.Publisher, error) {
	var sinks []drepo.Publisher

	if cfg.Kafka.Enabled {
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
			pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
			pkgkafka.WithBatchSize(cfg.Kafka.BatchSize),
			pkgkafka.WithBatchBytes(cfg.Kafka.BatchBytes),
			pkgkafka.WithBatchTimeout(cfg.Kafka.Linger),
			pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.ReadTimeout),
			pkgkafka.WithHashByKey(true),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		sinks = append(sinks, internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic))
	}

	if chClient != nil {
		table := cfg.ClickHouse.Database + "." + cfg.ClickHouse.Table
		sinks = append(sinks, internalrepo.NewClickHouseSink(chClient.DB(), table))
	}

	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	default:
		return internalrepo.NewMultiPublisher(sinks...), nil
	}
}

// ProvideTracker creates the shared progress tracker.
func ProvideTracker() *usecase.Tracker {
	return usecase.NewTracker()
}

// ProvideStatusHandler creates the ops status handler.
func ProvideStatusHandler(tracker *usecase.Tracker) *api.StatusHandler {
	return api.NewStatusHandler(tracker)
}

// ProvideSourceRuns builds one collector per enabled source. A source whose
// credential or symbol file is missing is skipped with an error log; the
// others still run.
func ProvideSourceRuns(
	cfg *config.Config,
	store drepo.SeriesStore,
	pub drepo.Publisher,
	m drepo.Metrics,
	tracker *usecase.Tracker,
	log *applogger.Logger,
) []server.SourceRun {
	hc := xhttp.NewClient(xhttp.WithTimeout(30 * time.Second))
	var runs []server.SourceRun

	add := func(source string, adapter drepo.SourceAdapter, symbolsFile string, rate config.RateConfig, maxCalls int) {
		symbols, err := config.LoadSymbols(symbolsFile)
		if err != nil {
			log.Error("source disabled: symbol file unreadable",
				applogger.String("source", source),
				applogger.String("file", symbolsFile),
				applogger.Error(err))
			return
		}
		if len(symbols) == 0 {
			log.Warn("source has no symbols",
				applogger.String("source", source),
				applogger.String("file", symbolsFile))
			return
		}
		collector := usecase.NewCollector(adapter, store, ratelimit.New(rate.Limit, rate.Window),
			usecase.WithPublisher(pub),
			usecase.WithMetrics(m),
			usecase.WithLogger(log),
			usecase.WithTracker(tracker),
			usecase.WithCallBudget(maxCalls),
			usecase.WithRetry(cfg.Collection.Retries, cfg.Collection.RetryBackoff),
		)
		runs = append(runs, server.SourceRun{Source: source, Collector: collector, Symbols: symbols})
	}

	if cfg.Binance.Enabled {
		add("binance",
			binance.New(cfg.Binance.BaseURL, cfg.Binance.Interval, cfg.Binance.QuoteAsset, hc),
			cfg.Binance.SymbolsFile, cfg.Binance.Rate, cfg.Binance.MaxCalls)
	}
	if cfg.Oanda.Enabled {
		if cfg.Oanda.Token == "" {
			log.Error("source disabled: missing credential",
				applogger.String("source", "oanda"),
				applogger.String("env", "OANDA_KEY"))
		} else {
			add("oanda",
				oanda.New(cfg.Oanda.BaseURL, cfg.Oanda.Token, cfg.Oanda.Granularity, hc),
				cfg.Oanda.SymbolsFile, cfg.Oanda.Rate, cfg.Oanda.MaxCalls)
		}
	}
	if cfg.TwelveData.Enabled {
		if cfg.TwelveData.APIKey == "" {
			log.Error("source disabled: missing credential",
				applogger.String("source", "twelvedata"),
				applogger.String("env", "TD_KEY"))
		} else {
			add("twelvedata",
				twelvedata.New(cfg.TwelveData.BaseURL, cfg.TwelveData.APIKey, cfg.TwelveData.Interval, cfg.TwelveData.OutputSize, hc),
				cfg.TwelveData.SymbolsFile, cfg.TwelveData.Rate, cfg.TwelveData.MaxCalls)
		}
	}
	if cfg.Fred.Enabled {
		if cfg.Fred.APIKey == "" {
			log.Error("source disabled: missing credential",
				applogger.String("source", "fred"),
				applogger.String("env", "FRED_KEY"))
		} else {
			add("fred",
				fred.New(cfg.Fred.BaseURL, cfg.Fred.APIKey, cfg.Fred.LookbackYears, hc),
				cfg.Fred.SeriesFile, cfg.Fred.Rate, 0)
		}
	}
	if cfg.Yahoo.Enabled {
		add("yahoo",
			yahoo.New(cfg.Yahoo.BaseURL, cfg.Yahoo.Interval, cfg.Yahoo.LookbackYears, hc),
			cfg.Yahoo.SymbolsFile, cfg.Yahoo.Rate, 0)
	}

	return runs
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	store drepo.SeriesStore,
	pub drepo.Publisher,
	runs []server.SourceRun,
	status *api.StatusHandler,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, log, store, pub, runs, status, chClient)
}
