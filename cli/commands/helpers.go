package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/satishbabariya/seedgraph/cli/internal/config"
	"github.com/satishbabariya/seedgraph/discovery"
	"github.com/satishbabariya/seedgraph/internal/debug"
	"github.com/satishbabariya/seedgraph/legacy"
	"github.com/satishbabariya/seedgraph/loader"
	"github.com/satishbabariya/seedgraph/schema"
	"github.com/satishbabariya/seedgraph/schema/psl"
	"github.com/satishbabariya/seedgraph/store"
	"github.com/satishbabariya/seedgraph/store/memstore"
	"github.com/satishbabariya/seedgraph/store/sqlstore"
)

// Registry is the discovery registry the commands resolve labels against.
var Registry = discovery.Default

// project is the schema and database a command works on.
type project struct {
	schema     *schema.Registry
	datasource *psl.Datasource
	provider   string
	url        string
}

func loadProject(c *config.Config) (*project, error) {
	f, err := psl.ParseFile(config.AppFs, c.SchemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	reg, err := psl.Build(f)
	if err != nil {
		return nil, err
	}
	p := &project{schema: reg}
	if ds, err := psl.DatasourceOf(f); err == nil {
		p.datasource = ds
	}
	p.provider, p.url = connectionInfo(c, p.datasource)
	return p, nil
}

// connectionInfo picks the provider and url from flags and config first,
// then the schema datasource, then the url itself.
func connectionInfo(c *config.Config, ds *psl.Datasource) (string, string) {
	provider, url := c.Provider, c.DatabaseURL
	if ds != nil {
		if provider == "" {
			provider = ds.Provider
		}
		if url == "" {
			url = ds.URL
		}
	}
	if provider == "" && url != "" {
		provider = detectProvider(url)
	}
	return provider, url
}

func detectProvider(connStr string) string {
	if strings.HasPrefix(connStr, "mysql") || strings.Contains(connStr, "@tcp(") {
		return "mysql"
	} else if strings.Contains(connStr, "sqlite") || strings.HasPrefix(connStr, "file:") || strings.HasSuffix(connStr, ".db") {
		return "sqlite"
	}
	return "postgresql"
}

// openStore connects to the project database. With dryRun, objects are
// written to an in-memory store instead.
func (p *project) openStore(dryRun bool, logSQL bool) (store.Store, func() error, error) {
	if dryRun {
		return memstore.New(), func() error { return nil }, nil
	}
	if p.url == "" {
		return nil, nil, errors.New("no database url: pass --database, set DATABASE_URL or add a datasource to the schema")
	}
	opts := []sqlstore.Option{}
	if logSQL {
		opts = append(opts, sqlstore.WithMiddleware(sqlstore.LoggingMiddleware(debug.Component("sql"))))
	}
	s, err := sqlstore.Open(p.provider, p.url, opts...)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}

func (p *project) loader(c *config.Config, s store.Store, opts ...loader.Option) *loader.Loader {
	src := &legacy.Source{Fs: config.AppFs, Dirs: c.FixtureDirs, Schema: p.schema}
	base := []loader.Option{
		loader.WithRegistry(Registry),
		loader.WithLegacy(src),
		loader.WithCommit(c.Commit),
		loader.WithSkipExisting(c.SkipExisting),
	}
	return loader.New(s, append(base, opts...)...)
}

// confirm asks a yes/no question. Interrupting the prompt answers no.
func confirm(message string) (bool, error) {
	ok := false
	err := survey.AskOne(&survey.Confirm{Message: message, Default: false}, &ok)
	if errors.Is(err, terminal.InterruptErr) {
		return false, nil
	}
	return ok, err
}

func isFixtureFile(path string) bool {
	_, ok := legacy.FormatOf(path)
	return ok
}
