// Package commands implements the seedgraph command line.
//
// Programs that declare fixtures in Go register them with the discovery
// package and call Execute from their own main, so the commands see those
// fixtures alongside serialized fixture files.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/satishbabariya/seedgraph/cli/internal/config"
	"github.com/satishbabariya/seedgraph/cli/internal/ui"
	"github.com/satishbabariya/seedgraph/cli/internal/version"
	"github.com/satishbabariya/seedgraph/internal/debug"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "seedgraph",
	Short: "Load object-graph fixtures into SQL databases",
	Long: `seedgraph installs fixtures declared as Go object graphs or as
serialized JSON, YAML and msgpack files.

Relations between fixture objects may point at objects declared later or in
other fixtures; seedgraph works out a creation order, creates every object
once and attaches many-to-many relations after their owners exist.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default .seedgraph.yaml)")
	flags.Bool("debug", false, "enable debug logging")
	flags.StringP("schema", "s", "", "path to the schema file")
	flags.String("database", "", "database url (defaults to the schema datasource or DATABASE_URL)")
	flags.String("provider", "", "database provider: postgresql, mysql or sqlite")
	flags.StringSlice("fixture-dir", nil, "directories searched for fixture files")

	_ = viper.BindPFlag("debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("schema_path", flags.Lookup("schema"))
	_ = viper.BindPFlag("database_url", flags.Lookup("database"))
	_ = viper.BindPFlag("provider", flags.Lookup("provider"))
	_ = viper.BindPFlag("fixture_dirs", flags.Lookup("fixture-dir"))
}

func setup(cmd *cobra.Command, args []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	c, err := config.Load()
	if err != nil {
		return err
	}
	cfg = c
	debug.Init(cfg.Debug)

	if constraint := viper.GetString("require_version"); constraint != "" {
		ok, err := version.Get().Satisfies(constraint)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("this project requires seedgraph %s, have %s", constraint, version.Version)
		}
	}
	return nil
}

// Root returns the root command, for programs that add their own commands.
func Root() *cobra.Command { return rootCmd }

// Execute runs the command line.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("%v", err)
		return err
	}
	return nil
}
