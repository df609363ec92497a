package server

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	drepo "HistPull/internal/domain/repository"
	"HistPull/internal/handler/api"
	"HistPull/internal/usecase"
	pkgch "HistPull/pkg/clickhouse"
	"HistPull/pkg/config"
	xhttp "HistPull/pkg/http"
	applogger "HistPull/pkg/logger"
)

// SourceRun is one source's work for this run: its collector and the symbol
// batch it collects.
type SourceRun struct {
	Source    string
	Collector *usecase.Collector
	Symbols   []string
}

// App owns the process lifecycle: sources run concurrently (symbols within a
// source stay sequential, the rate budget is per source), the ops server
// serves progress while they do, and the process exits when all sources are
// done. Per-symbol failures are reported in the summary, not via exit code.
type App struct {
	cfg      *config.Config
	log      *applogger.Logger
	store    drepo.SeriesStore
	pub      drepo.Publisher
	runs     []SourceRun
	status   *api.StatusHandler
	chClient *pkgch.Client
}

func New(
	cfg *config.Config,
	log *applogger.Logger,
	store drepo.SeriesStore,
	pub drepo.Publisher,
	runs []SourceRun,
	status *api.StatusHandler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:      cfg,
		log:      log,
		store:    store,
		pub:      pub,
		runs:     runs,
		status:   status,
		chClient: chClient,
	}
}

// Run executes one collection pass and blocks until every source finishes or
// the process is interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var httpServer *xhttp.Server
	if a.cfg.Server.Enabled {
		httpServer = xhttp.NewServer(a.status,
			xhttp.WithPort(a.cfg.Server.Port),
			xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
			xhttp.WithLogger(a.log),
		)
		if err := httpServer.Start(); err != nil {
			return err
		}
		a.log.Info("ops server listening", applogger.Int("port", a.cfg.Server.Port))
	}

	if len(a.runs) == 0 {
		a.log.Warn("no sources enabled, nothing to collect")
	}

	var wg sync.WaitGroup
	for _, run := range a.runs {
		wg.Add(1)
		go func(r SourceRun) {
			defer wg.Done()
			a.log.Info("source starting",
				applogger.String("source", r.Source),
				applogger.Int("symbols", len(r.Symbols)))
			sum := r.Collector.Run(ctx, r.Symbols)
			if a.status != nil {
				a.status.Record(sum)
			}
			a.log.Info("source finished",
				applogger.String("source", sum.Source),
				applogger.Int("calls", sum.Calls),
				applogger.Int("added", sum.Added),
				applogger.Int("failed", sum.Failed),
				applogger.Duration("elapsed", sum.Elapsed))
		}(run)
	}
	wg.Wait()

	if ctx.Err() == nil {
		a.deriveVIXDelta(context.Background())
	}

	return a.shutdown(httpServer)
}

// deriveVIXDelta builds the volatility-change series from the raw VIX close
// series after FRED collection completes.
func (a *App) deriveVIXDelta(ctx context.Context) {
	if !a.cfg.Fred.Enabled || !a.cfg.Fred.VIXDelta {
		return
	}
	raw, err := a.store.Load(ctx, "fred", "VIXCLS")
	if err != nil {
		a.log.Warn("vix delta: load failed", applogger.Error(err))
		return
	}
	if len(raw) < 2 {
		a.log.Warn("vix delta: not enough raw observations", applogger.Int("count", len(raw)))
		return
	}
	deltas := usecase.BuildLogDelta(raw)
	if err := a.store.Save(ctx, "fred", usecase.VIXDeltaSymbol, deltas); err != nil {
		a.log.Error("vix delta: save failed", applogger.Error(err))
		return
	}
	if a.pub != nil {
		if err := a.pub.PublishBatch(ctx, "fred", usecase.VIXDeltaSymbol, deltas); err != nil {
			a.log.Warn("vix delta: publish failed", applogger.Error(err))
		}
	}
	a.log.Info("vix delta series written", applogger.Int("observations", len(deltas)))
}

func (a *App) shutdown(httpServer *xhttp.Server) error {
	if httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Stop(ctx); err != nil {
			a.log.Warn("ops server shutdown error", applogger.Error(err))
		}
	}
	if a.pub != nil {
		if err := a.pub.Close(); err != nil {
			a.log.Warn("publisher close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	a.log.Info("run complete")
	return nil
}
