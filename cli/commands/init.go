package commands

import (
	"fmt"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/satishbabariya/seedgraph/cli/internal/config"
	"github.com/satishbabariya/seedgraph/cli/internal/ui"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a seedgraph config and fixtures directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInit,
}

var initYes bool

func init() {
	initCmd.Flags().BoolVarP(&initYes, "yes", "y", false, "accept the defaults without prompting")
	rootCmd.AddCommand(initCmd)
}

const exampleSchema = `datasource db {
  provider = "%s"
  url      = env("DATABASE_URL")
}

model Company {
  id        Int        @id
  name      String
  employees Employee[]
}

model Employee {
  id        Int        @id
  name      String
  companyId Int        @map("company_id")
  company   Company    @relation(fields: [companyId], references: [id])
}
`

const exampleFixture = `{
  "version": "1.0",
  "objects": [
    {"model": "Company", "pk": 1, "fields": {"name": "Acme"}},
    {"model": "Employee", "pk": 1, "fields": {"name": "Ann", "company": 1}}
  ]
}
`

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	answers := struct {
		Provider string `survey:"provider"`
		Schema   string `survey:"schema"`
		Fixtures string `survey:"fixtures"`
	}{Provider: "postgresql", Schema: "schema.prisma", Fixtures: "fixtures"}

	ui.PrintHeader("seedgraph", "Project setup")
	if !initYes {
		qs := []*survey.Question{
			{Name: "provider", Prompt: &survey.Select{
				Message: "Database provider:",
				Options: []string{"postgresql", "mysql", "sqlite"},
				Default: answers.Provider,
			}},
			{Name: "schema", Prompt: &survey.Input{Message: "Schema file:", Default: answers.Schema}},
			{Name: "fixtures", Prompt: &survey.Input{Message: "Fixtures directory:", Default: answers.Fixtures}},
		}
		if err := survey.Ask(qs, &answers); err != nil {
			return err
		}
	}

	fs := config.AppFs
	schemaPath := filepath.Join(dir, answers.Schema)
	if ok, _ := afero.Exists(fs, schemaPath); ok {
		ui.PrintWarning("Schema file already exists: %s", schemaPath)
	} else {
		if err := fs.MkdirAll(filepath.Dir(schemaPath), 0o755); err != nil {
			return err
		}
		if err := afero.WriteFile(fs, schemaPath, []byte(fmt.Sprintf(exampleSchema, answers.Provider)), 0o644); err != nil {
			return fmt.Errorf("failed to create schema file: %w", err)
		}
		ui.PrintSuccess("Created schema file: %s", schemaPath)
	}

	fixturesDir := filepath.Join(dir, answers.Fixtures)
	if err := fs.MkdirAll(fixturesDir, 0o755); err != nil {
		return err
	}
	initial := filepath.Join(fixturesDir, "initial_data.json")
	if ok, _ := afero.Exists(fs, initial); !ok {
		if err := afero.WriteFile(fs, initial, []byte(exampleFixture), 0o644); err != nil {
			return fmt.Errorf("failed to create %s: %w", initial, err)
		}
		ui.PrintSuccess("Created example fixture: %s", initial)
	}

	path, err := config.Save(viper.New(), &config.Config{
		SchemaPath:  answers.Schema,
		Provider:    answers.Provider,
		FixtureDirs: []string{answers.Fixtures},
		Commit:      true,
	}, dir)
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	ui.PrintSuccess("Wrote %s", path)
	ui.PrintInfo("Next: set DATABASE_URL and run seedgraph loaddata --initial-data")
	return nil
}
