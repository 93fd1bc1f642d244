package flatten

import "github.com/gyaneshwarpardhi/flatten/internal/value"

// Pair is one flattened leaf.
type Pair struct {
	Path  string
	Value value.Value
}

// Result is an ordered set of leaves keyed by path. Setting a path that is
// already present overwrites its value in place.
type Result struct {
	pairs []Pair
	index map[string]int
}

func newResult() *Result {
	return &Result{index: make(map[string]int)}
}

func (r *Result) Set(path string, v value.Value) {
	if i, ok := r.index[path]; ok {
		r.pairs[i].Value = v
		return
	}
	r.index[path] = len(r.pairs)
	r.pairs = append(r.pairs, Pair{Path: path, Value: v})
}

// Merge copies o into r; o wins on colliding paths.
func (r *Result) Merge(o *Result) {
	for _, p := range o.pairs {
		r.Set(p.Path, p.Value)
	}
}

func (r *Result) Get(path string) (value.Value, bool) {
	i, ok := r.index[path]
	if !ok {
		return value.Value{}, false
	}
	return r.pairs[i].Value, true
}

func (r *Result) Len() int { return len(r.pairs) }

// Pairs returns the leaves in walk order. The slice must not be modified.
func (r *Result) Pairs() []Pair { return r.pairs }

// FlattenNode walks node and returns one pair per non-mapping leaf, with paths
// rooted at prefix. A non-mapping node yields an empty result. Sequences are
// leaves and are not descended into.
func FlattenNode(prefix string, node value.Value) *Result {
	res := newResult()
	m, ok := node.AsMap()
	if !ok {
		return res
	}
	m.Range(func(key string, v value.Value) bool {
		path := prefix + "." + key
		if v.Kind() == value.KindMapping {
			res.Merge(FlattenNode(path, v))
		} else {
			res.Set(path, v)
		}
		return true
	})
	return res
}
