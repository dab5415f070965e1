// Package legacy loads serialized fixture files into fixtures.
//
// A file holds either a bare list of objects or a document with a format
// version:
//
//	{"version": "1.0", "objects": [{"model": "shop.band", "pk": 1, "fields": {"name": "X"}}]}
//
// The model label may carry an app prefix, which is ignored. Relation
// fields hold primary keys or natural-key lists, and many-to-many fields
// hold lists of those.
package legacy

import (
	"bytes"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-version"
	jsoniter "github.com/json-iterator/go"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// DefaultVersion is assumed for files without a version.
const DefaultVersion = "1.0"

// SupportedVersions is the range of document versions this package reads.
const SupportedVersions = ">= 1.0, < 2.0"

var supported = version.MustConstraints(version.NewConstraint(SupportedVersions))

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Object is one serialized record.
type Object struct {
	Model  string
	PK     any
	Fields map[string]any
}

// Document is a decoded fixture file.
type Document struct {
	Version string
	Objects []Object
}

type decodeFunc func(data []byte, v *any) error

var decoders = map[string]decodeFunc{
	"json": func(data []byte, v *any) error { return json.Unmarshal(data, v) },
	"yaml": func(data []byte, v *any) error { return yaml.Unmarshal(data, v) },
	"yml":  func(data []byte, v *any) error { return yaml.Unmarshal(data, v) },
	"msgpack": func(data []byte, v *any) error {
		return msgpack.NewDecoder(bytes.NewReader(data)).Decode(v)
	},
}

// Formats lists the file extensions understood by Decode, without dots.
func Formats() []string {
	return []string{"json", "yaml", "yml", "msgpack"}
}

// IsFormat reports whether ext, with or without a leading dot, is a
// supported serialization format.
func IsFormat(ext string) bool {
	_, ok := decoders[strings.TrimPrefix(strings.ToLower(ext), ".")]
	return ok
}

// FormatOf returns the format of path judged by its extension.
func FormatOf(path string) (string, bool) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	_, ok := decoders[ext]
	return ext, ok
}

// Decode parses data in the given format.
func Decode(format string, data []byte) (*Document, error) {
	dec, ok := decoders[format]
	if !ok {
		return nil, fmt.Errorf("unknown fixture format %q", format)
	}
	var raw any
	if len(bytes.TrimSpace(data)) > 0 {
		if err := dec(data, &raw); err != nil {
			return nil, err
		}
	}
	return document(normalize(raw))
}

func document(raw any) (*Document, error) {
	doc := &Document{Version: DefaultVersion}
	var list any
	switch x := raw.(type) {
	case nil:
		return doc, nil
	case []any:
		list = x
	case map[string]any:
		if v, ok := x["version"]; ok && v != nil {
			doc.Version = fmt.Sprint(v)
		}
		list = x["objects"]
	default:
		return nil, fmt.Errorf("expected a list of objects, got %T", raw)
	}

	v, err := version.NewVersion(doc.Version)
	if err != nil {
		return nil, fmt.Errorf("bad version %q: %w", doc.Version, err)
	}
	if !supported.Check(v) {
		return nil, fmt.Errorf("version %s is not supported (want %s)", v, supported)
	}

	items, ok := list.([]any)
	if !ok && list != nil {
		return nil, fmt.Errorf("objects must be a list, got %T", list)
	}
	for i, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("object %d: expected a mapping, got %T", i, it)
		}
		obj := Object{PK: m["pk"]}
		obj.Model, _ = m["model"].(string)
		if obj.Model == "" {
			return nil, fmt.Errorf("object %d: missing model", i)
		}
		if obj.PK == nil {
			return nil, fmt.Errorf("object %d (%s): missing pk", i, obj.Model)
		}
		if f, ok := m["fields"]; ok && f != nil {
			if obj.Fields, ok = f.(map[string]any); !ok {
				return nil, fmt.Errorf("object %d (%s): fields must be a mapping", i, obj.Model)
			}
		}
		doc.Objects = append(doc.Objects, obj)
	}
	return doc, nil
}

// normalize makes decoded values uniform across formats: integers become
// int64, integral floats become int64 and mappings get string keys.
func normalize(v any) any {
	switch x := v.(type) {
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x)
		}
		return x
	case float32:
		return normalize(float64(x))
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint:
		if uint64(x) <= math.MaxInt64 {
			return int64(x)
		}
		return x
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}
		return x
	case []any:
		for i := range x {
			x[i] = normalize(x[i])
		}
		return x
	case map[string]any:
		for k, e := range x {
			x[k] = normalize(e)
		}
		return x
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[fmt.Sprint(k)] = normalize(e)
		}
		return out
	default:
		return v
	}
}
