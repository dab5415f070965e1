package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/seedgraph/schema"
	"github.com/satishbabariya/seedgraph/store"
)

func models(t *testing.T) (band, roadie, competency *schema.Model) {
	t.Helper()
	band = schema.NewModel("Band").Scalar("name")
	roadie = schema.NewModel("Roadie").Scalar("name").
		ManyToMany("hauls_for", "Band", "roadies_hauls_for", "roadie_id", "band_id")
	competency = schema.NewModel("Competency").Scalar("framework").Scalar("level").
		WithNaturalKey("framework", "level")
	schema.MustRegistry(band, roadie, competency)
	return band, roadie, competency
}

func value(t *testing.T, m *schema.Model, name string, v any) store.Value {
	t.Helper()
	f, ok := m.Field(name)
	require.True(t, ok)
	return store.Value{Field: f, Value: v}
}

func TestCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	band, _, _ := models(t)
	s := New()

	obj, err := s.Create(ctx, band, 1, []store.Value{value(t, band, "name", "Bar Fighters")}, false)
	require.NoError(t, err)
	assert.Equal(t, "Band", obj.Model())

	got, err := s.LookupByPK(ctx, band, int64(1))
	require.NoError(t, err)
	assert.Same(t, obj, got)

	_, err = s.LookupByPK(ctx, band, 2)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	_, err = s.Create(ctx, band, uint(1), nil, false)
	assert.Error(t, err)
	assert.Equal(t, 1, s.Count("Band"))
	assert.Equal(t, []string{"Band(1)"}, s.Created())
}

func TestNaturalKeyLookup(t *testing.T) {
	ctx := context.Background()
	_, _, competency := models(t)
	s := New()

	_, err := s.Seed(competency, 1, map[string]any{"framework": "Python", "level": 1})
	require.NoError(t, err)
	_, err = s.Seed(competency, 2, map[string]any{"framework": "Python", "level": 2})
	require.NoError(t, err)

	obj, err := s.LookupByNaturalKey(ctx, competency, []any{"Python", int64(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, obj.PK())

	_, err = s.LookupByNaturalKey(ctx, competency, []any{"Go", 1})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.LookupByNaturalKey(ctx, competency, []any{"Python"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrNotFound)
}

func TestAttachMany(t *testing.T) {
	ctx := context.Background()
	band, roadie, _ := models(t)
	s := New()

	b1, _ := s.Seed(band, 1, nil)
	b2, _ := s.Seed(band, 2, nil)
	r, _ := s.Seed(roadie, 1, map[string]any{"name": "Ciggy"})

	hauls, _ := roadie.Field("hauls_for")
	require.NoError(t, s.AttachMany(ctx, r, roadie, hauls, []store.Object{b2, b1, b2}))
	assert.Equal(t, []any{int64(2), int64(1)}, s.Related("Roadie", 1, "hauls_for"))

	name, _ := roadie.Field("name")
	assert.Error(t, s.AttachMany(ctx, r, roadie, name, []store.Object{b1}))
	assert.Error(t, s.AttachMany(ctx, r, roadie, hauls, []store.Object{r}))
}

func TestHooksSkippedInRawMode(t *testing.T) {
	ctx := context.Background()
	band, _, _ := models(t)
	calls := 0
	s := New(WithHooks(store.Hook{Model: "Band", BeforeSave: func(sc *store.SaveContext) error {
		calls++
		sc.Set("name", "hooked")
		return nil
	}}))

	hooked, err := s.Create(ctx, band, 1, []store.Value{value(t, band, "name", "plain")}, false)
	require.NoError(t, err)
	rawObj, err := s.Create(ctx, band, 2, []store.Value{value(t, band, "name", "plain")}, true)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	v, _ := hooked.Get("name")
	assert.Equal(t, "hooked", v)
	v, _ = rawObj.Get("name")
	assert.Equal(t, "plain", v)
}

func TestInTx(t *testing.T) {
	ctx := context.Background()
	band, _, _ := models(t)
	s := New()

	err := s.InTx(ctx, func(tx store.Store) error {
		_, err := tx.Create(ctx, band, 1, nil, true)
		require.NoError(t, err)
		return errors.New("abort")
	})
	assert.EqualError(t, err, "abort")
	assert.Equal(t, 0, s.Count("Band"))

	err = s.InTx(ctx, func(tx store.Store) error {
		_, err := tx.Create(ctx, band, 1, nil, true)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count("Band"))
	_, ok := s.Get("Band", 1)
	assert.True(t, ok)
}
