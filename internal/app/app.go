package app

import (
	"context"
	"io"
	"net/http"
	"time"

	"CatalogScraper/internal/database"
	"CatalogScraper/internal/metrics"
	"CatalogScraper/internal/scraper"
	"CatalogScraper/internal/scraper/yhd"
	"CatalogScraper/internal/server"
	"CatalogScraper/internal/transport"
	"CatalogScraper/pkg/config"
	"CatalogScraper/utils"

	"github.com/go-faster/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

// App is the main application structure holding all dependencies.
type App struct {
	Config  *config.Config
	Log     *logrus.Logger
	Metrics *metrics.Metrics
	Repo    *database.DBRepository
	Scraper scraper.Scraper

	closers []io.Closer
}

// New loads the configuration at cfgPath and wires the logger, metrics and export store.
// The scraper and its transport are created by InitScraper.
func New(cfgPath string) (*App, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	log := utils.NewLogger(cfg.Log.Level, cfg.Log.Format)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	repo, err := database.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "open export database %s", cfg.Database.Path)
	}

	return &App{
		Config:  cfg,
		Log:     log,
		Metrics: m,
		Repo:    repo,
		closers: []io.Closer{repo},
	}, nil
}

// InitScraper opens the configured transport (launching a browser for "browser") and builds
// the Yihaodian scraper on top of it. Close releases the transport.
func (a *App) InitScraper() error {
	getter, err := a.newGetter()
	if err != nil {
		return err
	}

	workers := utils.GetOptimalWorkerCount(a.Log, a.Config.Scraper.Workers, a.Config.Scraper.Transport)
	a.Scraper = yhd.New(getter, a.Config.Scraper, a.Config.Yhd, workers, a.Log, a.Metrics)
	return nil
}

func (a *App) newGetter() (transport.Getter, error) {
	switch a.Config.Scraper.Transport {
	case utils.TransportBrowser:
		getter, err := transport.NewBrowserGetter(a.Config.Scraper.Headless, a.Config.Scraper.Timeout)
		if err != nil {
			return nil, errors.Wrap(err, "start browser")
		}
		a.closers = append(a.closers, getter)
		return getter, nil
	default:
		getter, err := transport.NewHTTPGetter(transport.HTTPOptions{
			Timeout:           a.Config.Scraper.Timeout,
			RequestsPerSecond: a.Config.Scraper.RequestsPerSecond,
			Burst:             a.Config.Scraper.Burst,
			UserAgent:         a.Config.Scraper.UserAgent,
			Encoding:          a.Config.Yhd.Encoding,
		})
		if err != nil {
			return nil, errors.Wrap(err, "create http client")
		}
		return getter, nil
	}
}

// Close releases the browser (if any) and the database.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

// RunExtraction extracts every category in turn and replaces its exported snapshot.
// A failing category is logged and skipped; its partial results are never exported.
func (a *App) RunExtraction(ctx context.Context, categoryIDs []string) error {
	log := a.Log.WithField("source", a.Scraper.SourceSite())
	log.WithField("categories", len(categoryIDs)).Info("--- Starting Category Extraction Task ---")

	var failed int
	for i, categoryID := range categoryIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		catLog := log.WithField("category", categoryID)
		catLog.Infof("Extracting category [%d/%d]", i+1, len(categoryIDs))

		run := database.NewRun(categoryID, a.Scraper.SourceSite(), time.Now())
		products, err := a.Scraper.ExtractCategory(ctx, categoryID)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			catLog.WithError(err).Error("Extraction failed, skipping category")
			failed++
			continue
		}

		run.FinishedAt = time.Now()
		if err := a.Repo.SaveSnapshot(ctx, run, products); err != nil {
			catLog.WithError(err).Error("Failed to export snapshot")
			failed++
			continue
		}
		catLog.WithField("products", len(products)).Info("Category exported")
	}

	if failed > 0 {
		return errors.Errorf("%d of %d categories failed", failed, len(categoryIDs))
	}
	log.Info("--- Category Extraction Task Finished ---")
	return nil
}

// ServeAPI runs the read API until ctx is cancelled.
func (a *App) ServeAPI(ctx context.Context) error {
	return server.Start(ctx, a.Repo, a.Config.Server.Port, a.Metrics, a.Log)
}

// StartMetricsListener exposes /metrics on metrics.listen_address while an extraction runs.
// It does nothing when the address is empty.
func (a *App) StartMetricsListener(ctx context.Context) {
	addr := a.Config.Metrics.ListenAddress
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.Metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	go func() {
		a.Log.WithField("address", addr).Info("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.WithError(err).Warn("Metrics listener stopped")
		}
	}()
}
