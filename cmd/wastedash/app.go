package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"wastedash/adapters/excel"
	"wastedash/domain/waste"
	"wastedash/internal"
	"wastedash/internal/chart"
	"wastedash/internal/config"
	"wastedash/internal/errors"
	"wastedash/internal/markers"
	"wastedash/internal/pipeline"
	"wastedash/internal/views"
)

// application holds the wired services shared by every command
type application struct {
	cfg     *config.Config
	logger  *internal.Logger
	cache   *pipeline.SourceCache
	views   *views.Service
	markers *markers.Service
}

func newApplication() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := internal.NewLogger(cfg.LogLevel)
	if err := configureChartFont(cfg.Chart, logger); err != nil {
		return nil, err
	}

	catalog := views.DefaultCatalog()
	if cfg.Data.ViewsFile != "" {
		catalog, err = views.LoadCatalog(cfg.Data.ViewsFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load view catalog")
		}
		logger.Info("loaded %d views from %s", len(catalog), cfg.Data.ViewsFile)
	}

	cache := pipeline.NewSourceCache(excel.NewDataReader(logger), logger)
	app := &application{
		cfg:    cfg,
		logger: logger,
		cache:  cache,
		views: views.NewService(cache, catalog, views.Options{
			DataDir:          cfg.Data.Dir,
			DefaultEncodings: cfg.Data.Encodings,
			Logger:           logger,
		}),
	}

	if cfg.Markers.Enabled() {
		path := cfg.Markers.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.Data.Dir, path)
		}
		app.markers = markers.NewService(cache,
			waste.Source{Path: path, Encodings: cfg.Data.Encodings},
			markers.ColumnMapping{
				Latitude:  cfg.Markers.LatitudeColumn,
				Longitude: cfg.Markers.LongitudeColumn,
				Magnitude: cfg.Markers.MagnitudeColumn,
			},
			cfg.Markers.MinRadius, cfg.Markers.MaxRadius)
	}
	return app, nil
}

// configureChartFont installs the configured Hangul font, or the first one
// installed on the host. Without one, Korean chart labels draw as boxes.
func configureChartFont(cfg config.ChartConfig, logger *internal.Logger) error {
	path := cfg.Font
	if path == "" {
		found, ok := chart.FindHangulFont()
		if !ok {
			logger.Warn("no Hangul font found, Korean chart labels will not render; set CHART_FONT")
			return nil
		}
		path = found
	}
	fnt, err := chart.UseFont(path)
	if err != nil {
		if cfg.Font != "" {
			return errors.ConfigInvalid(fmt.Sprintf("CHART_FONT: %v", err))
		}
		logger.Warn("skipping chart font %s: %v", path, err)
		return nil
	}
	logger.Debug("chart font %s from %s", fnt.Typeface, path)
	return nil
}

// warm loads every view once so the first requests hit the cache. Failures
// are logged and left for the request that needs the view.
func (a *application) warm(ctx context.Context) {
	for _, spec := range a.views.Views() {
		if _, err := a.cache.Load(ctx, a.views.SourceFor(spec)); err != nil {
			a.logger.Warn("view %s unavailable: %v", spec.ID, err)
		}
	}
	a.logger.Info("cached %d of %d sources", a.cache.Len(), len(a.views.Views()))
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
