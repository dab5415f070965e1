// Package psl reads entity metadata from Prisma-style schema files.
//
// Models, enums, datasource and generator blocks are parsed; Build turns
// the models into a linked schema.Registry.
package psl

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/spf13/afero"
)

var parser = participle.MustBuild[File](
	participle.Lexer(Lexer),
	participle.Elide("Whitespace", "Newline", "Comment", "DocComment", "MultiLineComment"),
	participle.Unquote("String"),
	participle.UseLookahead(10),
)

// Parse parses a schema from r. filename is used in error positions.
func Parse(filename string, r io.Reader) (*File, error) {
	f, err := parser.Parse(filename, r)
	if err != nil {
		return nil, fmt.Errorf("psl: %w", err)
	}
	return f, nil
}

// ParseString parses a schema held in a string.
func ParseString(filename, input string) (*File, error) {
	return Parse(filename, strings.NewReader(input))
}

// ParseFile parses the schema at path on fs.
func ParseFile(fs afero.Fs, path string) (*File, error) {
	fh, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("psl: %w", err)
	}
	defer fh.Close()
	return Parse(path, fh)
}
