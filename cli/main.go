// Command seedgraph loads fixture files into the database named by the
// project's schema. Programs that declare Go fixtures build their own binary:
// register the fixtures with the discovery package, then call
// commands.Execute.
package main

import (
	"os"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/satishbabariya/seedgraph/cli/commands"
	"github.com/satishbabariya/seedgraph/fixture"
)

func main() {
	err := commands.Execute()
	switch {
	case err == nil:
	case fixture.IsUsage(err):
		os.Exit(2)
	default:
		os.Exit(1)
	}
}
