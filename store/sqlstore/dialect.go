package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
)

type dialect struct {
	name     string
	quote    byte
	numbered bool // $1 placeholders instead of ?
}

func dialectFor(provider string) (dialect, error) {
	switch provider {
	case "postgresql", "postgres":
		return dialect{name: "postgres", quote: '"', numbered: true}, nil
	case "mysql":
		return dialect{name: "mysql", quote: '`'}, nil
	case "sqlite", "sqlite3":
		return dialect{name: "sqlite", quote: '"'}, nil
	default:
		return dialect{}, fmt.Errorf("sqlstore: unsupported provider: %s", provider)
	}
}

func (d dialect) ident(name string) string {
	q := string(d.quote)
	return q + strings.ReplaceAll(name, q, q+q) + q
}

func (d dialect) placeholder(i int) string {
	if d.numbered {
		return "$" + strconv.Itoa(i)
	}
	return "?"
}

func (d dialect) insert(table string, cols []string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(d.ident(table))
	b.WriteString(" (")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.ident(c))
	}
	b.WriteString(") VALUES (")
	for i := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.placeholder(i + 1))
	}
	b.WriteString(")")
	return b.String()
}

func (d dialect) selectWhere(table string, cols, where []string) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.ident(c))
	}
	b.WriteString(" FROM ")
	b.WriteString(d.ident(table))
	b.WriteString(" WHERE ")
	for i, c := range where {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(d.ident(c))
		b.WriteString(" = ")
		b.WriteString(d.placeholder(i + 1))
	}
	return b.String()
}
