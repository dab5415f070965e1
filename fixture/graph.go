package fixture

import (
	"container/heap"

	"github.com/satishbabariya/seedgraph/store"
)

type nodeKey struct {
	model string
	pk    any
}

type node struct {
	spec       *ObjectSpec
	deps       []int // nodes this one needs, in field order
	dependents []int
}

// Graph is the dependency graph of every spec in a batch. Edges run from a
// spec to the specs its tokens name.
type Graph struct {
	fixtures []*Fixture
	nodes    []*node
	byKey    map[nodeKey]int
	natural  map[string]map[string]int
	edges    int
	order    []*ObjectSpec
}

// BuildGraph indexes every spec of fixtures, links tokens to the specs they
// name and checks the result for cycles. A fixture passed twice is used once.
func BuildGraph(fixtures ...*Fixture) (*Graph, error) {
	g := &Graph{
		byKey:   make(map[nodeKey]int),
		natural: make(map[string]map[string]int),
	}

	seen := make(map[*Fixture]bool, len(fixtures))
	for _, f := range fixtures {
		if f == nil || seen[f] {
			continue
		}
		seen[f] = true
		g.fixtures = append(g.fixtures, f)

		for _, s := range f.specs {
			k := nodeKey{model: f.model.Name, pk: store.NormalizeKey(s.pk)}
			if prev, dup := g.byKey[k]; dup {
				return nil, &DuplicateKeyError{
					Entity: f.model.Name,
					PK:     s.pk,
					First:  g.nodes[prev].spec.fixture.Name(),
					Second: f.Name(),
				}
			}
			g.byKey[k] = len(g.nodes)
			g.nodes = append(g.nodes, &node{spec: s})
		}
	}

	g.indexNaturalKeys()

	for i, n := range g.nodes {
		linked := make(map[int]bool)
		link := func(r Ref) {
			t, ok := r.Token()
			if !ok {
				return
			}
			j, ok := g.lookup(t)
			if !ok || linked[j] {
				return
			}
			linked[j] = true
			n.deps = append(n.deps, j)
			g.nodes[j].dependents = append(g.nodes[j].dependents, i)
			g.edges++
		}
		for _, fv := range n.spec.fields {
			switch v := fv.Value.(type) {
			case Ref:
				link(v)
			case Many:
				for _, r := range v {
					link(r)
				}
			}
		}
	}

	if err := g.checkCycles(); err != nil {
		return nil, err
	}
	g.order = g.sort()
	return g, nil
}

// indexNaturalKeys records the natural key of every spec whose model
// declares one and whose natural-key fields are all literals.
func (g *Graph) indexNaturalKeys() {
	for i, n := range g.nodes {
		m := n.spec.Model()
		if len(m.NaturalKey) == 0 {
			continue
		}
		vals := make([]any, 0, len(m.NaturalKey))
		for _, name := range m.NaturalKey {
			v, ok := literalField(n.spec, name)
			if !ok {
				break
			}
			vals = append(vals, v)
		}
		if len(vals) != len(m.NaturalKey) {
			continue
		}
		idx := g.natural[m.Name]
		if idx == nil {
			idx = make(map[string]int)
			g.natural[m.Name] = idx
		}
		k := store.TupleKey(vals)
		if _, taken := idx[k]; !taken {
			idx[k] = i
		}
	}
}

func literalField(s *ObjectSpec, name string) (any, bool) {
	for _, fv := range s.fields {
		if fv.Field.Name != name {
			continue
		}
		lit, ok := fv.Value.(Literal)
		return lit.V, ok
	}
	return nil, false
}

func (g *Graph) lookup(t Token) (int, bool) {
	if t.fixture == nil {
		return 0, false
	}
	model := t.fixture.model.Name
	switch t.key.kind {
	case KeyPK:
		if !store.Comparable(t.key.pk) {
			return 0, false
		}
		i, ok := g.byKey[nodeKey{model: model, pk: store.NormalizeKey(t.key.pk)}]
		return i, ok
	case KeyNatural:
		i, ok := g.natural[model][store.TupleKey(t.key.natural)]
		return i, ok
	}
	return 0, false
}

// Lookup returns the spec in the batch a token names, if any.
func (g *Graph) Lookup(t Token) (*ObjectSpec, bool) {
	i, ok := g.lookup(t)
	if !ok {
		return nil, false
	}
	return g.nodes[i].spec, true
}

const (
	white = iota
	grey
	black
)

func (g *Graph) checkCycles() error {
	color := make([]int, len(g.nodes))
	var stack []int

	var visit func(i int) error
	visit = func(i int) error {
		color[i] = grey
		stack = append(stack, i)
		for _, j := range g.nodes[i].deps {
			switch color[j] {
			case grey:
				return g.cycleError(stack, j)
			case white:
				if err := visit(j); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[i] = black
		return nil
	}

	for i := range g.nodes {
		if color[i] == white {
			if err := visit(i); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *Graph) cycleError(stack []int, start int) error {
	var path []SpecRef
	for k := len(stack) - 1; k >= 0; k-- {
		if stack[k] == start {
			for _, i := range stack[k:] {
				path = append(path, g.nodes[i].spec.Ref())
			}
			break
		}
	}
	path = append(path, g.nodes[start].spec.Ref())
	return &CyclicDependencyError{Path: path}
}

// sort runs Kahn's algorithm. Among ready specs the one declared first
// goes first, so the order is stable for a given input.
func (g *Graph) sort() []*ObjectSpec {
	inDegree := make([]int, len(g.nodes))
	ready := &intHeap{}
	for i, n := range g.nodes {
		inDegree[i] = len(n.deps)
		if inDegree[i] == 0 {
			*ready = append(*ready, i)
		}
	}
	heap.Init(ready)

	out := make([]*ObjectSpec, 0, len(g.nodes))
	for ready.Len() > 0 {
		current := heap.Pop(ready).(int)
		out = append(out, g.nodes[current].spec)
		for _, d := range g.nodes[current].dependents {
			inDegree[d]--
			if inDegree[d] == 0 {
				heap.Push(ready, d)
			}
		}
	}
	return out
}

// Order returns every spec, dependencies first.
func (g *Graph) Order() []*ObjectSpec {
	return append([]*ObjectSpec(nil), g.order...)
}

// Dependencies returns the specs s needs created first.
func (g *Graph) Dependencies(s *ObjectSpec) []*ObjectSpec {
	i, ok := g.byKey[nodeKey{model: s.Model().Name, pk: store.NormalizeKey(s.pk)}]
	if !ok || g.nodes[i].spec != s {
		return nil
	}
	out := make([]*ObjectSpec, len(g.nodes[i].deps))
	for k, j := range g.nodes[i].deps {
		out[k] = g.nodes[j].spec
	}
	return out
}

func (g *Graph) Fixtures() []*Fixture { return append([]*Fixture(nil), g.fixtures...) }
func (g *Graph) Len() int             { return len(g.nodes) }
func (g *Graph) Edges() int           { return g.edges }

type intHeap []int

func (h intHeap) Len() int           { return len(h) }
func (h intHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
