package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"excelviz/adapters/excel"
	"excelviz/adapters/render"
	"excelviz/domain/chart"
	"excelviz/domain/core"
	"excelviz/domain/dataset"
	"excelviz/internal/aggregate"
	"excelviz/internal/charting"
	"excelviz/internal/export"
	"excelviz/internal/workspace"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "excelviz",
		Short: "Chart the columns of a spreadsheet from the command line",
	}

	rootCmd.AddCommand(
		newColumnsCmd(),
		newCountCmd(),
		newChartCmd(),
		newReportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newColumnsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "columns [file]",
		Short: "List the columns of a sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadTable(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, col := range table.Columns {
				fmt.Fprintln(out, col)
			}
			fmt.Fprintf(out, "\n%d columns, %d rows\n", len(table.Columns), len(table.Records))
			return nil
		},
	}
}

func newCountCmd() *cobra.Command {
	var sorted bool

	cmd := &cobra.Command{
		Use:   "count [file] [column]",
		Short: "Count the occurrences of each value of a column",
		Long: `Count the occurrences of each value of a column, in first-seen order.

Empty cells are not counted.

Example: excelviz count tickets.xlsx Status --sorted`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadTable(args[0])
			if err != nil {
				return err
			}
			if !table.HasColumn(args[1]) {
				return fmt.Errorf("%w: %s", core.ErrColumnNotFound, args[1])
			}
			res := aggregate.Count(table.Records, args[1])
			if sorted {
				res = res.Sorted()
			}
			return writeCounts(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().BoolVar(&sorted, "sorted", false, "Order values lexicographically")
	return cmd
}

func newChartCmd() *cobra.Command {
	var (
		kind     string
		theme    string
		out      string
		multi    bool
		seed     int64
		excludes []string
		width    int
		height   int
	)

	cmd := &cobra.Command{
		Use:   "chart [file] [columns...]",
		Short: "Render one PNG per column, or one comparison chart with --multi",
		Long: `Render charts for the given columns as PNG files in the output directory.

Kinds: bar, horizontal-bar, stacked-bar, line, area, pie, doughnut, radar, scatter, bubble.
Themes: default, pastel, neon, dark.

Example: excelviz chart tickets.xlsx Status Priority --kind pie --theme pastel --out charts/ --exclude Priority=Low`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := chart.ParseKind(kind)
			if err != nil {
				return err
			}
			t, err := charting.ParseTheme(theme)
			if err != nil {
				return err
			}
			session, err := openSession(args[0], t, seed, excludes)
			if err != nil {
				return err
			}
			files, err := renderCharts(cmd.Context(), session, args[1:], k, multi, out, width, height)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(workspace.DefaultKind), "Chart kind")
	cmd.Flags().StringVar(&theme, "theme", "default", "Color theme")
	cmd.Flags().StringVar(&out, "out", ".", "Output directory")
	cmd.Flags().BoolVar(&multi, "multi", false, "Compare all columns in one chart")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for theme colors")
	cmd.Flags().StringArrayVar(&excludes, "exclude", nil, "Hide a value from the charts, as Column=Value (repeatable)")
	cmd.Flags().IntVar(&width, "width", render.DefaultWidth, "Image width in pixels")
	cmd.Flags().IntVar(&height, "height", render.DefaultHeight, "Image height in pixels")
	return cmd
}

func newReportCmd() *cobra.Command {
	var (
		html     bool
		excludes []string
	)

	cmd := &cobra.Command{
		Use:   "report [file] [columns...]",
		Short: "Print a markdown (or HTML) summary of the given columns",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openSession(args[0], charting.ThemeDefault, 42, excludes)
			if err != nil {
				return err
			}
			v, err := session.Generate(args[1:])
			if err != nil {
				return err
			}
			if !v.OK {
				return v.Err()
			}
			md := session.Report()
			if html {
				_, err = cmd.OutOrStdout().Write(export.HTML(filepath.Base(args[0]), md))
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), md)
			return err
		},
	}

	cmd.Flags().BoolVar(&html, "html", false, "Render the report as a standalone HTML page")
	cmd.Flags().StringArrayVar(&excludes, "exclude", nil, "Hide a value from the report, as Column=Value (repeatable)")
	return cmd
}

func loadTable(path string) (*dataset.Table, error) {
	return excel.NewTabulator(excel.DefaultTabulatorConfig()).ParseFile(path)
}

// openSession loads path into a session with the exclusions applied
func openSession(path string, theme charting.Theme, seed int64, excludes []string) (*workspace.Session, error) {
	table, err := loadTable(path)
	if err != nil {
		return nil, err
	}
	rules, err := parseExclusions(excludes)
	if err != nil {
		return nil, err
	}

	session := workspace.NewSession(core.NewSessionID(), table, workspace.NopRenderer{}, workspace.Options{
		Theme: theme,
		Rand:  rand.New(rand.NewSource(seed)),
	})
	if len(rules) == 0 {
		return session, nil
	}

	columns := make([]string, 0, len(rules))
	for col := range rules {
		columns = append(columns, col)
	}
	if _, err := session.RegisterFilters(columns); err != nil {
		return nil, err
	}
	for col, values := range rules {
		for _, v := range values {
			if err := session.SetInclusion(col, v, false); err != nil {
				return nil, err
			}
		}
	}
	return session, nil
}

// parseExclusions reads Column=Value pairs into values per column
func parseExclusions(pairs []string) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, pair := range pairs {
		col, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(col) == "" {
			return nil, fmt.Errorf("invalid --exclude %q, want Column=Value", pair)
		}
		col = strings.TrimSpace(col)
		out[col] = append(out[col], value)
	}
	return out, nil
}

// renderCharts builds the charts in the session and draws every spec to its
// own PNG, in parallel
func renderCharts(ctx context.Context, session *workspace.Session, columns []string, kind chart.Kind, multi bool, dir string, width, height int) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	seeds := columns
	if multi {
		seeds = columns[:1]
	}
	v, err := session.Generate(seeds)
	if err != nil {
		return nil, err
	}
	if !v.OK {
		return nil, v.Err()
	}
	for _, col := range seeds {
		slot := chart.SlotKey(col)
		if err := session.SetKind(slot, kind); err != nil {
			return nil, err
		}
		if multi {
			if v, err := session.SetMultiColumns(slot, columns); err != nil {
				return nil, err
			} else if !v.OK {
				return nil, v.Err()
			}
		}
	}

	type job struct {
		key  string
		spec chart.Spec
	}
	var jobs []job
	for _, c := range session.Charts() {
		if !c.Split() {
			jobs = append(jobs, job{key: c.Slot, spec: c.Spec})
			continue
		}
		for i, part := range c.Parts {
			jobs = append(jobs, job{key: chart.PartKey(c.Slot, i), spec: part})
		}
	}

	files := make([]string, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, j := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(dir, j.key+".png")
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			if err := render.Draw(f, j.spec, width, height); err != nil {
				f.Close()
				os.Remove(path)
				return fmt.Errorf("%s: %w", j.key, err)
			}
			files[i] = path
			return f.Close()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func writeCounts(w io.Writer, res aggregate.Result) error {
	shares := res.Shares()
	for i, label := range res.Labels {
		t := export.Triple{Label: label, Value: float64(res.Get(label)), Percent: shares[i]}
		if _, err := fmt.Fprintln(w, t.String()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\nTotal: %d\n", res.Total())
	return err
}
