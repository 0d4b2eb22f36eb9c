package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"wastedash/internal/chart"
	"wastedash/internal/markers"
	"wastedash/internal/pipeline"
	"wastedash/ui"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "wastedash",
		Short:         "Agricultural waste statistics: normalize, summarize and serve",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newViewsCmd(),
		newRecordsCmd(),
		newSummaryCmd(),
		newPivotCmd(),
		newChartCmd(),
		newProfileCmd(),
		newMarkersCmd(),
		newServeCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// selectionFlags are shared by every per-view command
type selectionFlags struct {
	categories []string
	years      []int
	metric     string
	asJSON     bool
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.categories, "category", nil, "Categories to keep (repeatable)")
	cmd.Flags().IntSliceVar(&f.years, "year", nil, "Years to keep (repeatable)")
	cmd.Flags().StringVar(&f.metric, "metric", "", "Metric to keep, for metric views")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print JSON instead of a table")
}

func (f *selectionFlags) selection() pipeline.Selection {
	sel := pipeline.Selection{Categories: f.categories, Years: f.years}
	if f.metric != "" {
		metric := f.metric
		sel.Metric = &metric
	}
	return sel
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.0f", *v)
}

func newViewsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "views",
		Short: "List the configured views",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tDIMENSION\tFILE")
			for _, spec := range app.views.Views() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", spec.ID, spec.Title, spec.Dimensionality, spec.File)
			}
			return w.Flush()
		},
	}
}

func newRecordsCmd() *cobra.Command {
	var flags selectionFlags

	cmd := &cobra.Command{
		Use:   "records [view-id]",
		Short: "Print the normalized long-form records of a view",
		Long: `Load a view, drop derived columns and aggregate rows, and print one
record per category, year and metric.

Example: wastedash records pesticide --year 2023 --metric 플라스틱`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication()
			if err != nil {
				return err
			}
			records, err := app.views.Records(cmd.Context(), args[0], flags.selection())
			if err != nil {
				return err
			}
			if flags.asJSON {
				return printJSON(records)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tYEAR\tMETRIC\tVALUE")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", r.Category, r.Year, r.MetricLabel(), formatValue(r.Value))
			}
			return w.Flush()
		},
	}
	flags.register(cmd)
	return cmd
}

func newSummaryCmd() *cobra.Command {
	var flags selectionFlags
	var groupBy string

	cmd := &cobra.Command{
		Use:   "summary [view-id]",
		Short: "Print totals, yearly mean, top category and per-category change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			by, ok := pipeline.ParseGroupBy(groupBy)
			if !ok {
				return fmt.Errorf("invalid --group-by %q (use category or year)", groupBy)
			}
			app, err := newApplication()
			if err != nil {
				return err
			}
			summary, err := app.views.Summary(cmd.Context(), args[0], flags.selection(), by)
			if err != nil {
				return err
			}
			if flags.asJSON {
				return printJSON(summary)
			}

			fmt.Printf("📊 %s\n", args[0])
			fmt.Printf("Total: %.0f\n", summary.Total)
			fmt.Printf("Yearly mean: %.1f\n", summary.YearlyMean)
			if summary.TopCategory != nil {
				fmt.Printf("Top category: %s\n", *summary.TopCategory)
			}
			if summary.MinYear != 0 {
				fmt.Printf("Years: %d-%d\n", summary.MinYear, summary.MaxYear)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "\n%s\tTOTAL\tCOUNT\tCHANGE\n", strings.ToUpper(by.String()))
			for _, g := range summary.Groups {
				change := "-"
				if d, ok := summary.Deltas[g.Key]; ok {
					change = formatValue(d)
				}
				fmt.Fprintf(w, "%s\t%.0f\t%d\t%s\n", g.Key, g.Total, g.Count, change)
			}
			return w.Flush()
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&groupBy, "group-by", "category", "Group totals by category or year")
	return cmd
}

func newPivotCmd() *cobra.Command {
	var flags selectionFlags
	var ascending bool

	cmd := &cobra.Command{
		Use:   "pivot [view-id]",
		Short: "Print the category by year table with first-to-last-year change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication()
			if err != nil {
				return err
			}
			grid, err := app.views.Pivot(cmd.Context(), args[0], flags.selection())
			if err != nil {
				return err
			}
			if ascending {
				grid = pipeline.SortByChange(grid, false)
			}
			if flags.asJSON {
				return printJSON(grid)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
			header := []string{"CATEGORY"}
			for _, y := range grid.Years {
				header = append(header, fmt.Sprint(y))
			}
			fmt.Fprintln(w, strings.Join(append(header, "CHANGE"), "\t")+"\t")
			for _, row := range grid.Rows {
				cells := []string{row.Category}
				for _, y := range grid.Years {
					cells = append(cells, formatValue(row.Values[y]))
				}
				fmt.Fprintln(w, strings.Join(append(cells, formatValue(row.Change)), "\t")+"\t")
			}
			return w.Flush()
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&ascending, "ascending", false, "Largest decrease first")
	return cmd
}

func newChartCmd() *cobra.Command {
	var flags selectionFlags
	var kind, output string

	cmd := &cobra.Command{
		Use:   "chart [view-id]",
		Short: "Render a bar or line chart of a view as PNG, or print pie shares",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := chart.ParseKind(kind)
			if err != nil {
				return err
			}
			app, err := newApplication()
			if err != nil {
				return err
			}

			if k == chart.KindPie {
				year, shares, err := app.views.Shares(cmd.Context(), args[0], flags.selection())
				if err != nil {
					return err
				}
				if flags.asJSON {
					return printJSON(map[string]interface{}{"year": year, "shares": shares})
				}
				fmt.Printf("Composition in %d\n", year)
				for _, s := range shares {
					fmt.Printf("  %-20s %10.0f  %5.1f%%\n", s.Category, s.Value, s.Ratio*100)
				}
				return nil
			}

			spec, err := app.views.View(args[0])
			if err != nil {
				return err
			}
			records, err := app.views.Records(cmd.Context(), spec.ID, flags.selection())
			if err != nil {
				return err
			}
			img, err := chart.Render(k, records, chart.Options{Title: spec.Title, YLabel: spec.ValueLabel})
			if err != nil {
				return err
			}
			if output == "" {
				output = spec.ID + "-" + string(k) + ".png"
			}
			if err := writeFile(output, img); err != nil {
				return fmt.Errorf("failed to write chart: %w", err)
			}
			fmt.Printf("✅ wrote %s (%d bytes)\n", output, len(img))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&kind, "kind", "bar", "bar, line or pie")
	cmd.Flags().StringVarP(&output, "output", "o", "", "PNG output path (default <view>-<kind>.png)")
	return cmd
}

func newProfileCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "profile [view-id]",
		Short: "Report which cells of a view's source coerce to numbers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication()
			if err != nil {
				return err
			}
			profile, err := app.views.Profile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(profile)
			}

			fmt.Printf("🔬 %s: %d rows, quality %.2f\n", profile.Source, profile.Rows, profile.QualityScore)
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "COLUMN\tNUMERIC\tMISSING\tUNPARSEABLE\tMIN\tMAX\tNOTE")
			for _, col := range profile.Columns {
				note := ""
				if col.Excluded {
					note = "excluded"
				} else if len(col.Samples) > 0 {
					note = "e.g. " + strings.Join(col.Samples, ", ")
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
					col.Column, col.Numeric, col.Missing, col.Unparseable, formatValue(col.Min), formatValue(col.Max), note)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newMarkersCmd() *cobra.Command {
	var asGeoJSON bool

	cmd := &cobra.Command{
		Use:   "markers",
		Short: "Print radius-scaled map markers from MARKERS_FILE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication()
			if err != nil {
				return err
			}
			if app.markers == nil {
				return fmt.Errorf("MARKERS_FILE is not set")
			}
			list, skipped, err := app.markers.Markers(cmd.Context())
			if err != nil {
				return err
			}
			if asGeoJSON {
				return printJSON(markers.ToGeoJSON(list))
			}

			sorted := append([]markers.Marker(nil), list...)
			sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Magnitude > sorted[j].Magnitude })
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tLAT\tLON\tMAGNITUDE\tRADIUS")
			for _, m := range sorted {
				fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.0f\t%.1f\n", m.Category, m.Lat, m.Lon, m.Magnitude, m.Radius)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if skipped > 0 {
				fmt.Printf("⚠️  skipped %d rows without coordinates or magnitude\n", skipped)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asGeoJSON, "geojson", false, "Print a GeoJSON FeatureCollection")
	return cmd
}

func newServeCmd() *cobra.Command {
	var warm bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication()
			if err != nil {
				return err
			}
			gin.SetMode(app.cfg.Server.GinMode)
			if warm {
				app.warm(cmd.Context())
			}
			server := ui.NewServer(app.views, app.markers, app.logger)
			return server.Run(cmd.Context(), ":"+app.cfg.Server.Port)
		},
	}
	cmd.Flags().BoolVar(&warm, "warm", true, "Load every view before accepting requests")
	return cmd
}
