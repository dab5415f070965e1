// Package loader runs fixture loads: it resolves labels through discovery,
// reads legacy files, and hands each batch to the fixture resolver inside
// one transaction.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/satishbabariya/seedgraph/discovery"
	"github.com/satishbabariya/seedgraph/fixture"
	"github.com/satishbabariya/seedgraph/internal/debug"
	"github.com/satishbabariya/seedgraph/legacy"
	"github.com/satishbabariya/seedgraph/store"
)

// Report summarizes a run.
type Report struct {
	fixture.Report
	RunID   string
	Batches int
}

func (r Report) String() string {
	if r.Fixtures == 0 {
		return "No fixtures found."
	}
	s := fmt.Sprintf("Installed %d object(s) from %d fixture(s)", r.Objects, r.Fixtures)
	if r.Skipped > 0 {
		s += fmt.Sprintf(", %d already present", r.Skipped)
	}
	return s
}

// Option configures a Loader.
type Option func(*Loader)

// WithRegistry sets the discovery registry. It defaults to discovery.Default.
func WithRegistry(r *discovery.Registry) Option {
	return func(l *Loader) { l.registry = r }
}

// WithLegacy sets the source for serialized fixture files. Without one,
// bare labels only name fixture modules.
func WithLegacy(src *legacy.Source) Option {
	return func(l *Loader) { l.legacy = src }
}

// WithCommit controls whether a run is wrapped in a transaction when the
// store supports them. It defaults to true.
func WithCommit(commit bool) Option {
	return func(l *Loader) { l.commit = commit }
}

// WithSkipExisting reuses objects already in the store.
func WithSkipExisting(skip bool) Option {
	return func(l *Loader) { l.skipExisting = skip }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(l *Loader) { l.log = log }
}

// Loader loads fixtures into a store.
type Loader struct {
	store        store.Store
	registry     *discovery.Registry
	legacy       *legacy.Source
	commit       bool
	skipExisting bool
	log          *slog.Logger
}

// New creates a loader writing to s.
func New(s store.Store, opts ...Option) *Loader {
	l := &Loader{store: s, commit: true}
	for _, opt := range opts {
		opt(l)
	}
	if l.registry == nil {
		l.registry = discovery.Default
	}
	if l.log == nil {
		l.log = debug.Component("loader")
	}
	return l
}

// Batch is the set of fixtures loaded together for one label.
type Batch struct {
	Label    string
	Fixtures []*fixture.Fixture
	Order    []*fixture.ObjectSpec // set by Plan
}

// LoadBatch loads fixtures as one batch.
func (l *Loader) LoadBatch(ctx context.Context, fixtures ...*fixture.Fixture) (Report, error) {
	return l.run(ctx, []Batch{{Label: "batch", Fixtures: fixtures}})
}

// LoadLabels resolves labels and loads each one as its own batch, in
// order. A fixture named by several labels is loaded once.
func (l *Loader) LoadLabels(ctx context.Context, labels ...any) (Report, error) {
	batches, err := l.Batches(ctx, labels...)
	if err != nil {
		return Report{}, err
	}
	return l.run(ctx, batches)
}

// LoadInitialData loads initial_data files and every initial_data module
// as one batch.
func (l *Loader) LoadInitialData(ctx context.Context) (Report, error) {
	b := Batch{Label: discovery.InitialData}
	files, err := l.legacyFixtures(ctx, discovery.InitialData)
	if err != nil {
		return Report{}, err
	}
	b.Fixtures = append(files, l.registry.InitialData()...)
	return l.run(ctx, []Batch{b})
}

// Plan returns each label's batch with the order its objects would be
// created in, without writing anything.
func (l *Loader) Plan(ctx context.Context, labels ...any) ([]Batch, error) {
	batches, err := l.Batches(ctx, labels...)
	if err != nil {
		return nil, err
	}
	r := fixture.NewResolver(l.store)
	for i := range batches {
		if batches[i].Order, err = r.Plan(batches[i].Fixtures...); err != nil {
			return nil, err
		}
	}
	return batches, nil
}

// Batches resolves labels into batches.
func (l *Loader) Batches(ctx context.Context, labels ...any) ([]Batch, error) {
	seen := map[*fixture.Fixture]bool{}
	var out []Batch
	for _, label := range labels {
		handlers, err := l.registry.Resolve(label)
		if err != nil {
			return nil, err
		}
		b := Batch{Label: fmt.Sprint(label)}
		if len(handlers) == 1 {
			b.Label = handlers[0].Label
		}
		for _, h := range handlers {
			fixtures := h.Fixtures
			if h.Kind == discovery.Legacy {
				if fixtures, err = l.legacyFixtures(ctx, h.Label); err != nil {
					return nil, err
				}
			}
			for _, f := range fixtures {
				if !seen[f] {
					seen[f] = true
					b.Fixtures = append(b.Fixtures, f)
				}
			}
		}
		out = append(out, b)
	}
	return out, nil
}

func (l *Loader) legacyFixtures(ctx context.Context, label string) ([]*fixture.Fixture, error) {
	if l.legacy == nil {
		if legacy.IsFormat(filepath.Ext(label)) {
			return nil, &fixture.UsageError{Msg: fmt.Sprintf("cannot load %q: no fixture directories configured", label)}
		}
		return nil, nil
	}
	paths, err := l.legacy.Find(label)
	if err != nil || len(paths) == 0 {
		return nil, err
	}
	return l.legacy.Load(ctx, paths...)
}

func (l *Loader) run(ctx context.Context, batches []Batch) (Report, error) {
	rep := Report{RunID: uuid.NewString()}
	log := l.log.With("run", rep.RunID)

	load := func(s store.Store) error {
		r := fixture.NewResolver(s, fixture.SkipExisting(l.skipExisting), fixture.WithLogger(log))
		for _, b := range batches {
			if len(b.Fixtures) == 0 {
				log.Debug("nothing to load", "label", b.Label)
				continue
			}
			br, err := r.Load(ctx, b.Fixtures...)
			if err != nil {
				log.Error("batch failed", "label", b.Label, "error", err)
				return err
			}
			log.Debug("batch loaded", "label", b.Label, "objects", br.Objects, "skipped", br.Skipped)
			rep.Add(br)
			rep.Batches++
		}
		return nil
	}

	tx, ok := l.store.(store.Transactional)
	var err error
	if l.commit && ok {
		err = tx.InTx(ctx, load)
	} else {
		err = load(l.store)
	}
	if err != nil {
		return Report{RunID: rep.RunID}, err
	}
	log.Info("load finished", "objects", rep.Objects, "fixtures", rep.Fixtures, "batches", rep.Batches)
	return rep, nil
}
