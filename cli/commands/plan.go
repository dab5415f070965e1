package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/seedgraph/cli/internal/ui"
	"github.com/satishbabariya/seedgraph/fixture"
	"github.com/satishbabariya/seedgraph/loader"
	"github.com/satishbabariya/seedgraph/store/memstore"
)

var planCmd = &cobra.Command{
	Use:   "plan labels...",
	Short: "Show the order fixtures would be created in",
	Long: `Resolve the labels like loaddata does and print, for each batch, the
order its objects would be created in and what each one depends on. The
database is not touched.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

var planMarkdown bool

func init() {
	planCmd.Flags().BoolVar(&planMarkdown, "markdown", false, "render the plan as markdown")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cfg)
	if err != nil {
		return err
	}
	labels := make([]any, len(args))
	for i, a := range args {
		labels[i] = a
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	batches, err := p.loader(cfg, memstore.New()).Plan(ctx, labels...)
	if err != nil {
		return err
	}

	if planMarkdown {
		var b strings.Builder
		if err := writePlanMarkdown(&b, batches); err != nil {
			return err
		}
		return ui.PrintMarkdown(b.String())
	}
	for _, batch := range batches {
		ui.PrintSection(fmt.Sprintf("%s (%d fixtures, %d objects)", batch.Label, len(batch.Fixtures), len(batch.Order)))
		rows, err := planRows(batch)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			ui.PrintInfo("nothing to load")
			continue
		}
		if err := ui.PrintTable([]string{"#", "Object", "Fixture", "Depends on"}, rows); err != nil {
			return err
		}
	}
	return nil
}

func planRows(b loader.Batch) ([][]string, error) {
	g, err := fixture.BuildGraph(b.Fixtures...)
	if err != nil {
		return nil, err
	}
	rows := make([][]string, 0, len(b.Order))
	for i, spec := range b.Order {
		var deps []string
		for _, d := range g.Dependencies(spec) {
			deps = append(deps, d.String())
		}
		rows = append(rows, []string{fmt.Sprint(i + 1), spec.String(), spec.Fixture().Name(), strings.Join(deps, ", ")})
	}
	return rows, nil
}

func writePlanMarkdown(w io.Writer, batches []loader.Batch) error {
	fmt.Fprintln(w, "# Load plan")
	for _, b := range batches {
		fmt.Fprintf(w, "\n## %s\n\n", b.Label)
		rows, err := planRows(b)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Fprintln(w, "_Nothing to load._")
			continue
		}
		fmt.Fprintln(w, "| # | Object | Fixture | Depends on |")
		fmt.Fprintln(w, "|---|--------|---------|------------|")
		for _, r := range rows {
			fmt.Fprintf(w, "| %s |\n", strings.Join(r, " | "))
		}
	}
	return nil
}
