package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/seedgraph/cli/internal/ui"
	"github.com/satishbabariya/seedgraph/store/memstore"
)

var validateCmd = &cobra.Command{
	Use:   "validate [labels...]",
	Short: "Check the schema and fixtures without a database",
	Long: `Check the schema and fixtures without touching the database.

This command will:
- Parse the schema file and link its relations
- Resolve the labels, or every registered app when none are given
- Build each batch's dependency graph and report duplicates and cycles`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cfg)
	if err != nil {
		return err
	}
	ui.PrintSuccess("Schema is valid: %s (%d models)", cfg.SchemaPath, len(p.schema.Models()))

	labels := make([]any, 0, len(args))
	for _, a := range args {
		labels = append(labels, a)
	}
	if len(labels) == 0 {
		for _, app := range Registry.Apps() {
			labels = append(labels, app)
		}
	}
	if len(labels) == 0 {
		ui.PrintInfo("No fixture labels given and no apps registered")
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	batches, err := p.loader(cfg, memstore.New()).Plan(ctx, labels...)
	if err != nil {
		return err
	}
	total := 0
	for _, b := range batches {
		total += len(b.Order)
		ui.PrintInfo("%s: %d fixture(s), %d object(s)", b.Label, len(b.Fixtures), len(b.Order))
	}
	ui.PrintSuccess("%s", fmt.Sprintf("%d batch(es) with %d object(s) are consistent", len(batches), total))
	return nil
}
