package legacy

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/satishbabariya/seedgraph/fixture"
	"github.com/satishbabariya/seedgraph/schema"
	"github.com/satishbabariya/seedgraph/store"
	"github.com/satishbabariya/seedgraph/store/memstore"
)

func testSchema() *schema.Registry {
	return schema.MustRegistry(
		schema.NewModel("Band").Scalar("name"),
		schema.NewModel("Roadie").
			Scalar("name").
			ManyToMany("hauls_for", "Band", "roadie_hauls_for", "roadie_id", "band_id"),
		schema.NewModel("Competency").
			Scalar("framework").
			Scalar("level").
			WithNaturalKey("framework", "level"),
		schema.NewModel("JobPosting").
			Scalar("title").
			ForeignKey("main_competency", "Competency", "main_competency_id"),
	)
}

const bandsJSON = `{
  "version": "1.2",
  "objects": [
    {"model": "music.band", "pk": 1, "fields": {"name": "Bar Fighters"}},
    {"model": "music.band", "pk": 2, "fields": {"name": "Brutallica"}}
  ]
}`

const roadiesYAML = `
- model: music.roadie
  pk: 1
  fields:
    name: Ciggy Tardust
    hauls_for: [1, 2]
`

func TestDecode(t *testing.T) {
	doc, err := Decode("json", []byte(bandsJSON))
	require.NoError(t, err)
	assert.Equal(t, "1.2", doc.Version)
	require.Len(t, doc.Objects, 2)
	assert.Equal(t, Object{Model: "music.band", PK: int64(1), Fields: map[string]any{"name": "Bar Fighters"}}, doc.Objects[0])

	doc, err = Decode("yaml", []byte(roadiesYAML))
	require.NoError(t, err)
	assert.Equal(t, DefaultVersion, doc.Version)
	assert.Equal(t, []any{int64(1), int64(2)}, doc.Objects[0].Fields["hauls_for"])

	data, err := msgpack.Marshal([]map[string]any{
		{"model": "Band", "pk": uint8(7), "fields": map[string]any{"name": "Packed"}},
	})
	require.NoError(t, err)
	doc, err = Decode("msgpack", data)
	require.NoError(t, err)
	assert.Equal(t, int64(7), doc.Objects[0].PK)

	doc, err = Decode("json", []byte("  "))
	require.NoError(t, err)
	assert.Empty(t, doc.Objects)
}

func TestDecodeErrors(t *testing.T) {
	cases := map[string]string{
		"unsupported version": `{"version": "2.0", "objects": []}`,
		"bad version":         `{"version": "one", "objects": []}`,
		"missing model":       `[{"pk": 1}]`,
		"missing pk":          `[{"model": "Band"}]`,
		"scalar document":     `42`,
		"fields not mapping":  `[{"model": "Band", "pk": 1, "fields": [1]}]`,
		"malformed":           `[{`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode("json", []byte(src))
			assert.Error(t, err)
		})
	}

	_, err := Decode("xml", []byte("<x/>"))
	assert.Error(t, err)
}

func TestFormats(t *testing.T) {
	assert.True(t, IsFormat(".json"))
	assert.True(t, IsFormat("YML"))
	assert.False(t, IsFormat("xml"))
	format, ok := FormatOf("fixtures/bands.msgpack")
	assert.True(t, ok)
	assert.Equal(t, "msgpack", format)
}

func newSource(t *testing.T) *Source {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "fixtures/bands.json", []byte(bandsJSON), 0o644))
	require.NoError(t, afero.WriteFile(fs, "fixtures/roadies.yaml", []byte(roadiesYAML), 0o644))
	require.NoError(t, afero.WriteFile(fs, "other/roadies.json", []byte(`[]`), 0o644))
	return &Source{Fs: fs, Dirs: []string{"fixtures", "other"}, Schema: testSchema()}
}

func TestFind(t *testing.T) {
	src := newSource(t)

	paths, err := src.Find("roadies")
	require.NoError(t, err)
	assert.Equal(t, []string{"other/roadies.json", "fixtures/roadies.yaml"}, paths)

	paths, err = src.Find("bands.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"fixtures/bands.json"}, paths)

	paths, err = src.Find("fixtures/bands.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"fixtures/bands.json"}, paths)

	paths, err = src.Find("nothing")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestLoad(t *testing.T) {
	src := newSource(t)
	fixtures, err := src.Load(context.Background(), "fixtures/roadies.yaml", "fixtures/bands.json")
	require.NoError(t, err)
	require.Len(t, fixtures, 2)
	assert.Equal(t, "fixtures/roadies.yaml:Roadie", fixtures[0].Name())
	assert.Equal(t, "fixtures/bands.json:Band", fixtures[1].Name())
	for _, f := range fixtures {
		assert.True(t, f.IsRaw())
	}

	s := memstore.New()
	rep, err := fixture.Load(context.Background(), s, fixtures...)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Objects)
	assert.Equal(t, []string{"Band(1)", "Band(2)", "Roadie(1)"}, s.Created())
	assert.Equal(t, []any{int64(1), int64(2)}, s.Related("Roadie", 1, "hauls_for"))
}

func TestLoadNaturalKeys(t *testing.T) {
	reg := testSchema()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "postings.json", []byte(`[
  {"model": "JobPosting", "pk": 1, "fields": {"title": "Dev", "main_competency": ["Python", 3]}}
]`), 0o644))

	competency, _ := reg.Lookup("Competency")
	s := memstore.New()
	_, err := s.Seed(competency, 9, map[string]any{"framework": "Python", "level": int64(3)})
	require.NoError(t, err)

	src := &Source{Fs: fs, Schema: reg}
	fixtures, err := src.Load(context.Background(), "postings.json")
	require.NoError(t, err)
	_, err = fixture.Load(context.Background(), s, fixtures...)
	require.NoError(t, err)

	posting, ok := s.Get("JobPosting", 1)
	require.True(t, ok)
	main, _ := posting.Get("main_competency")
	assert.Equal(t, 9, store.RelatedPK(main))
}

func TestLoadErrors(t *testing.T) {
	src := newSource(t)
	require.NoError(t, afero.WriteFile(src.Fs, "fixtures/ghosts.json", []byte(`[{"model": "Ghost", "pk": 1}]`), 0o644))
	require.NoError(t, afero.WriteFile(src.Fs, "fixtures/twice.json", []byte(`[
  {"model": "Band", "pk": 1, "fields": {}},
  {"model": "Band", "pk": 1, "fields": {}}
]`), 0o644))

	_, err := src.Load(context.Background(), "fixtures/bands.json", "fixtures/ghosts.json")
	assert.ErrorContains(t, err, `unknown model "Ghost"`)

	_, err = src.Load(context.Background(), "fixtures/twice.json")
	assert.True(t, fixture.IsDuplicateKey(err))

	_, err = src.Load(context.Background(), "fixtures/missing.json")
	assert.Error(t, err)

	_, err = (&Source{Fs: src.Fs}).Load(context.Background(), "fixtures/bands.json")
	assert.Error(t, err)
}

func TestModelOf(t *testing.T) {
	reg := testSchema()
	m, ok := ModelOf(reg, "shop.jobposting")
	require.True(t, ok)
	assert.Equal(t, "JobPosting", m.Name)
	_, ok = ModelOf(reg, "Ghost")
	assert.False(t, ok)
}
