// Package views runs the normalization pipeline for each dashboard dataset.
// Every call re-derives its records from the cached wide table, so one view
// failing never affects the others.
package views

import (
	"context"
	"path/filepath"

	"wastedash/adapters/datareadiness"
	"wastedash/domain/core"
	"wastedash/domain/waste"
	"wastedash/internal"
	"wastedash/internal/pipeline"
	"wastedash/ports"
)

// Service answers per-view queries over a shared table loader
type Service struct {
	loader   ports.TableLoader
	dataDir  string
	encoding []waste.Encoding
	rules    pipeline.ExclusionRules
	specs    map[string]ViewSpec
	order    []string
	profiler *datareadiness.ProfilerAdapter
	logger   *internal.Logger
}

// Options configures a Service
type Options struct {
	DataDir          string
	DefaultEncodings []waste.Encoding
	Rules            *pipeline.ExclusionRules
	Logger           *internal.Logger
}

// NewService creates a view service for catalog
func NewService(loader ports.TableLoader, catalog []ViewSpec, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}
	rules := pipeline.DefaultExclusionRules()
	if opts.Rules != nil {
		rules = *opts.Rules
	}
	s := &Service{
		loader:   loader,
		dataDir:  opts.DataDir,
		encoding: opts.DefaultEncodings,
		rules:    rules,
		specs:    make(map[string]ViewSpec, len(catalog)),
		profiler: datareadiness.NewProfilerAdapter(nil),
		logger:   logger.WithComponent("Views"),
	}
	for _, spec := range catalog {
		if _, dup := s.specs[spec.ID]; !dup {
			s.order = append(s.order, spec.ID)
		}
		s.specs[spec.ID] = spec
	}
	return s
}

// Views lists the catalog in declaration order
func (s *Service) Views() []ViewSpec {
	out := make([]ViewSpec, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.specs[id])
	}
	return out
}

// View looks up a view by id
func (s *Service) View(id string) (ViewSpec, error) {
	spec, ok := s.specs[id]
	if !ok {
		return ViewSpec{}, core.NewViewNotFoundError(id)
	}
	return spec, nil
}

// SourceFor resolves the file and encodings of a view
func (s *Service) SourceFor(spec ViewSpec) waste.Source {
	path := spec.File
	if !filepath.IsAbs(path) && s.dataDir != "" {
		path = filepath.Join(s.dataDir, path)
	}
	encodings := spec.Encodings
	if len(encodings) == 0 {
		encodings = s.encoding
	}
	return waste.Source{Path: path, Encodings: encodings}
}

// Records returns the normalized records of a view inside sel
func (s *Service) Records(ctx context.Context, id string, sel pipeline.Selection) ([]waste.NormalizedRecord, error) {
	spec, err := s.View(id)
	if err != nil {
		return nil, err
	}
	table, err := s.loader.Load(ctx, s.SourceFor(spec))
	if err != nil {
		s.logger.Warn("view %s: %v", id, err)
		return nil, err
	}
	records, err := pipeline.Normalize(table, spec.Dimensionality, s.rules)
	if err != nil {
		s.logger.Warn("view %s: %v", id, err)
		return nil, err
	}
	return sel.Apply(records), nil
}

// Facets are the selector options of a view
type Facets struct {
	Categories []string `json:"categories"`
	Metrics    []string `json:"metrics"`
	Years      []int    `json:"years"`
}

// Facets lists the categories, metrics and years of the whole view
func (s *Service) Facets(ctx context.Context, id string) (Facets, error) {
	records, err := s.Records(ctx, id, pipeline.Selection{})
	if err != nil {
		return Facets{}, err
	}
	return Facets{
		Categories: pipeline.Categories(records),
		Metrics:    pipeline.Metrics(records),
		Years:      pipeline.Years(records),
	}, nil
}

// Summary computes the metric cards of a view
func (s *Service) Summary(ctx context.Context, id string, sel pipeline.Selection, groupBy pipeline.GroupBy) (waste.TrendSummary, error) {
	records, err := s.Records(ctx, id, sel)
	if err != nil {
		return waste.TrendSummary{}, err
	}
	return pipeline.Summarize(records, groupBy), nil
}

// Pivot computes the year-over-year change table of a view, largest increase
// first. Metric views without a metric in sel are pivoted on per-category
// totals across metrics.
func (s *Service) Pivot(ctx context.Context, id string, sel pipeline.Selection) (waste.PivotGrid, error) {
	records, err := s.Records(ctx, id, sel)
	if err != nil {
		return waste.PivotGrid{}, err
	}
	return pipeline.SortByChange(pipeline.PivotDelta(records), true), nil
}

// Shares returns the composition of the latest year with data in sel
func (s *Service) Shares(ctx context.Context, id string, sel pipeline.Selection) (int, []waste.Share, error) {
	records, err := s.Records(ctx, id, sel)
	if err != nil {
		return 0, nil, err
	}
	year, ok := pipeline.LatestYear(records)
	if !ok {
		return 0, []waste.Share{}, nil
	}
	return year, pipeline.Shares(records, year), nil
}

// Profile reports per-column coercion coverage of the raw table behind a
// view. Columns the cleaning step drops are flagged as excluded.
func (s *Service) Profile(ctx context.Context, id string) (*datareadiness.TableProfile, error) {
	spec, err := s.View(id)
	if err != nil {
		return nil, err
	}
	table, err := s.loader.Load(ctx, s.SourceFor(spec))
	if err != nil {
		return nil, err
	}
	profile, err := s.profiler.ProfileTable(ctx, table, datareadiness.ProfileOptions{Counts: spec.CountsItems()})
	if err != nil {
		return nil, err
	}

	kept := make(map[string]bool)
	for _, col := range pipeline.ExcludeDerivedColumns(table, s.rules).Columns {
		kept[col] = true
	}
	for i := range profile.Columns {
		profile.Columns[i].Excluded = !kept[profile.Columns[i].Column]
	}
	return profile, nil
}
