package psl

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// File is a parsed schema file.
type File struct {
	Pos   lexer.Position
	Items []*Item `@@*`
}

// Item is one top-level block.
type Item struct {
	Model  *Model  `  @@`
	Enum   *Enum   `| @@`
	Config *Config `| @@`
}

// Models returns the model blocks in file order.
func (f *File) Models() []*Model {
	var out []*Model
	for _, it := range f.Items {
		if it.Model != nil {
			out = append(out, it.Model)
		}
	}
	return out
}

// Enums returns the enum blocks in file order.
func (f *File) Enums() []*Enum {
	var out []*Enum
	for _, it := range f.Items {
		if it.Enum != nil {
			out = append(out, it.Enum)
		}
	}
	return out
}

// Configs returns the datasource and generator blocks with the given keyword.
func (f *File) Configs(keyword string) []*Config {
	var out []*Config
	for _, it := range f.Items {
		if it.Config != nil && it.Config.Keyword == keyword {
			out = append(out, it.Config)
		}
	}
	return out
}

// Model is a model block.
type Model struct {
	Pos        lexer.Position
	Name       string       `"model" @(Ident | Keyword)`
	Fields     []*Field     `"{" @@*`
	Attributes []*Attribute `("@@" @@)* "}"`
}

// Attribute returns the first block attribute with the given name.
func (m *Model) Attribute(name string) *Attribute {
	return findAttribute(m.Attributes, name)
}

// Field is a model field.
type Field struct {
	Pos        lexer.Position
	Name       string       `@(Ident | Keyword)`
	Type       string       `@(Ident | Keyword)`
	List       bool         `@("[" "]")?`
	Optional   bool         `@"?"?`
	Attributes []*Attribute `("@" @@)*`
}

// Attribute returns the first field attribute with the given name.
func (f *Field) Attribute(name string) *Attribute {
	return findAttribute(f.Attributes, name)
}

// Attribute is a field (@) or block (@@) attribute with optional arguments.
type Attribute struct {
	Pos  lexer.Position
	Name string      `@Ident (@"." @Ident)*`
	Args []*Argument `("(" (@@ ("," @@)*)? ","? ")")?`
}

// Arg returns the named argument, or the positional argument at index
// position when no argument has that name.
func (a *Attribute) Arg(name string, position int) *Value {
	for _, arg := range a.Args {
		if arg.Name != nil && *arg.Name == name {
			return arg.Value
		}
	}
	n := 0
	for _, arg := range a.Args {
		if arg.Name != nil {
			continue
		}
		if n == position {
			return arg.Value
		}
		n++
	}
	return nil
}

// Argument is a named or positional attribute argument.
type Argument struct {
	Name  *string `(@Ident ":")?`
	Value *Value  `@@`
}

// Value is an argument or property expression.
type Value struct {
	Pos    lexer.Position
	Func   *Call   `  @@`
	Array  *Array  `| @@`
	String *string `| @String`
	Number *string `| @Number`
	Ident  *string `| @(Ident | Keyword)`
}

// Call is a function call such as env("DATABASE_URL").
type Call struct {
	Name string      `@Ident "("`
	Args []*Argument `(@@ ("," @@)*)? ")"`
}

// Array is a bracketed list of values.
type Array struct {
	Elements []*Value `"[" (@@ ("," @@)*)? "]"`
}

// Names returns the identifiers or strings of an array value.
func (v *Value) Names() []string {
	if v == nil {
		return nil
	}
	if v.Array == nil {
		if s := v.Text(); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(v.Array.Elements))
	for _, e := range v.Array.Elements {
		out = append(out, e.Text())
	}
	return out
}

// Text returns a string literal or identifier value.
func (v *Value) Text() string {
	switch {
	case v == nil:
		return ""
	case v.String != nil:
		return *v.String
	case v.Ident != nil:
		return *v.Ident
	case v.Number != nil:
		return *v.Number
	}
	return ""
}

// Enum is an enum block. Enum-typed fields are stored as scalars.
type Enum struct {
	Pos        lexer.Position
	Name       string       `"enum" @(Ident | Keyword)`
	Values     []*EnumValue `"{" @@*`
	Attributes []*Attribute `("@@" @@)* "}"`
}

// EnumValue is one enum member.
type EnumValue struct {
	Name       string       `@(Ident | Keyword)`
	Attributes []*Attribute `("@" @@)*`
}

// Config is a datasource or generator block.
type Config struct {
	Pos        lexer.Position
	Keyword    string      `@("datasource" | "generator")`
	Name       string      `@(Ident | Keyword)`
	Properties []*Property `"{" @@* "}"`
}

// Property returns the value assigned to name.
func (c *Config) Property(name string) *Value {
	for _, p := range c.Properties {
		if p.Name == name {
			return p.Value
		}
	}
	return nil
}

// Property is a key = value line inside a config block.
type Property struct {
	Name  string `@(Ident | Keyword)`
	Value *Value `"=" @@`
}

func findAttribute(attrs []*Attribute, name string) *Attribute {
	for _, a := range attrs {
		if a.Name == name {
			return a
		}
	}
	return nil
}
