package commands

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/satishbabariya/seedgraph/cli/internal/config"
	"github.com/satishbabariya/seedgraph/cli/internal/ui"
	"github.com/satishbabariya/seedgraph/cli/internal/watch"
	"github.com/satishbabariya/seedgraph/loader"
)

var loaddataCmd = &cobra.Command{
	Use:   "loaddata [labels...]",
	Short: "Install the named fixtures in the database",
	Long: `Install the named fixtures in the database.

A label is one of:
  app               every fixture module of app except initial_data
  app.module        one fixture module of app
  name.json         a serialized fixture file (also .yaml, .yml, .msgpack)
  name              fixture files called name.* plus every module called name

All labels are loaded in one transaction. Each label is one batch: its
fixtures may reference each other in any order, and objects outside the
batch must already exist in the database.`,
	Example: `  seedgraph loaddata staff music.bands
  seedgraph loaddata --initial-data
  seedgraph loaddata bands.json --skip-existing --watch`,
	RunE: runLoaddata,
}

var loaddataOpts struct {
	initialData bool
	dryRun      bool
	verbosity   int
	watch       bool
	interactive bool
}

func init() {
	flags := loaddataCmd.Flags()
	flags.BoolVar(&loaddataOpts.initialData, "initial-data", false, "load every initial_data fixture")
	flags.Bool("no-commit", false, "do not wrap the load in a transaction")
	flags.Bool("skip-existing", false, "reuse objects whose primary key is already in the database")
	flags.BoolVar(&loaddataOpts.dryRun, "dry-run", false, "load into memory instead of the database")
	flags.IntVarP(&loaddataOpts.verbosity, "verbosity", "v", 1, "0 = quiet, 1 = summary, 2 = log SQL, 3 = list created objects")
	flags.BoolVarP(&loaddataOpts.watch, "watch", "w", false, "reload when fixture files or the schema change")
	flags.BoolVarP(&loaddataOpts.interactive, "interactive", "i", false, "ask before writing to the database")

	_ = viper.BindPFlag("skip_existing", flags.Lookup("skip-existing"))

	rootCmd.AddCommand(loaddataCmd)
}

func runLoaddata(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !loaddataOpts.initialData {
		return errors.New("enter at least one fixture label")
	}
	if noCommit, _ := cmd.Flags().GetBool("no-commit"); noCommit {
		cfg.Commit = false
	}

	if loaddataOpts.interactive && !loaddataOpts.dryRun {
		p, err := loadProject(cfg)
		if err != nil {
			return err
		}
		what := strings.Join(args, ", ")
		if loaddataOpts.initialData {
			what = "initial data"
		}
		ok, err := confirm(fmt.Sprintf("Load %s into %s?", what, redact(p.url)))
		if err != nil {
			return err
		}
		if !ok {
			ui.PrintWarning("Aborted")
			return nil
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	run := func() error { return loadOnce(ctx, args) }
	if !loaddataOpts.watch {
		return run()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	w, err := watch.NewWatcher(watchPaths(cfg), isFixtureFile, func() error {
		if err := run(); err != nil {
			ui.PrintError("%v", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	ui.PrintInfo("Watching for changes, press Ctrl+C to stop")
	<-ctx.Done()
	return w.Stop()
}

func loadOnce(ctx context.Context, labels []string) error {
	p, err := loadProject(cfg)
	if err != nil {
		return err
	}
	s, closeStore, err := p.openStore(loaddataOpts.dryRun, loaddataOpts.verbosity >= 2)
	if err != nil {
		return err
	}
	defer closeStore()

	var spinner interface {
		Success(...any)
		Fail(...any)
	}
	if loaddataOpts.verbosity > 0 {
		spinner = ui.Spinner("Loading fixtures...")
	}

	l := p.loader(cfg, s)
	var rep loader.Report
	if loaddataOpts.initialData {
		rep, err = l.LoadInitialData(ctx)
	} else {
		anyLabels := make([]any, len(labels))
		for i, label := range labels {
			anyLabels[i] = label
		}
		rep, err = l.LoadLabels(ctx, anyLabels...)
	}
	if err != nil {
		if spinner != nil {
			spinner.Fail("Problem installing fixtures")
		}
		return err
	}

	if spinner != nil {
		spinner.Success(rep.String())
	}
	if loaddataOpts.verbosity >= 3 && len(rep.Order) > 0 {
		rows := make([][]string, len(rep.Order))
		for i, ref := range rep.Order {
			rows[i] = []string{fmt.Sprint(i + 1), ref.Entity, fmt.Sprint(ref.PK)}
		}
		return ui.PrintTable([]string{"#", "Model", "PK"}, rows)
	}
	return nil
}

func watchPaths(c *config.Config) []string {
	paths := []string{c.SchemaPath}
	for _, dir := range c.FixtureDirs {
		if ok, _ := exists(dir); ok {
			paths = append(paths, dir)
		}
	}
	return paths
}

func exists(path string) (bool, error) {
	_, err := config.AppFs.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return raw
	}
	return u.Redacted()
}
