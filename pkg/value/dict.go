package value

import (
	"fmt"
	"math"
	"strings"
)

type hashKey struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

// keyOf maps a hashable value onto a comparable Go key. Numbers that compare
// equal (True, 1, 1.0) share a key.
func keyOf(v Value) (hashKey, error) {
	switch x := v.(type) {
	case NoneType:
		return hashKey{kind: KindNone}, nil
	case Bool:
		if x {
			return hashKey{kind: KindInt, i: 1}, nil
		}
		return hashKey{kind: KindInt}, nil
	case Int:
		return hashKey{kind: KindInt, i: int64(x)}, nil
	case Float:
		f := float64(x)
		if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return hashKey{kind: KindInt, i: int64(f)}, nil
		}
		return hashKey{kind: KindFloat, f: f}, nil
	case Str:
		return hashKey{kind: KindStr, s: string(x)}, nil
	case *Tuple:
		var b strings.Builder
		for _, item := range x.Items {
			k, err := keyOf(item)
			if err != nil {
				return hashKey{}, err
			}
			fmt.Fprintf(&b, "%d:%d:%v:%q;", k.kind, k.i, k.f, k.s)
		}
		return hashKey{kind: KindTuple, s: b.String()}, nil
	case *List, *Dict, *Set:
		return hashKey{}, Errorf(TypeError, "unhashable type: '%s'", TypeName(v))
	}
	return hashKey{kind: v.Kind(), s: fmt.Sprintf("%p", v)}, nil
}

// Hash returns a stable hash for a hashable value.
func Hash(v Value) (int64, error) {
	k, err := keyOf(v)
	if err != nil {
		return 0, err
	}
	if k.kind == KindInt {
		return k.i, nil
	}
	var h uint64 = 14695981039346656037
	for _, c := range []byte(fmt.Sprintf("%d|%v|%s", k.kind, k.f, k.s)) {
		h ^= uint64(c)
		h *= 1099511628211
	}
	return int64(h), nil
}

// table is an insertion-ordered hash index shared by Dict and Set.
type table struct {
	keys  []Value
	index map[hashKey]int
}

func (t *table) find(k Value) (int, error) {
	hk, err := keyOf(k)
	if err != nil {
		return -1, err
	}
	if i, ok := t.index[hk]; ok {
		return i, nil
	}
	return -1, nil
}

func (t *table) insert(k Value) (int, bool, error) {
	hk, err := keyOf(k)
	if err != nil {
		return -1, false, err
	}
	if i, ok := t.index[hk]; ok {
		return i, false, nil
	}
	if t.index == nil {
		t.index = make(map[hashKey]int)
	}
	t.keys = append(t.keys, k)
	t.index[hk] = len(t.keys) - 1
	return len(t.keys) - 1, true, nil
}

func (t *table) remove(i int) {
	t.keys = append(t.keys[:i], t.keys[i+1:]...)
	t.reindex()
}

func (t *table) reindex() {
	t.index = make(map[hashKey]int, len(t.keys))
	for i, k := range t.keys {
		hk, _ := keyOf(k)
		t.index[hk] = i
	}
}

// Dict is an insertion-ordered mapping.
type Dict struct {
	t    table
	vals []Value
}

func NewDict() *Dict { return &Dict{} }

func (*Dict) Kind() Kind { return KindDict }

func (d *Dict) Len() int {
	if d == nil {
		return 0
	}
	return len(d.t.keys)
}

func (d *Dict) Get(k Value) (Value, bool, error) {
	if d == nil {
		return nil, false, nil
	}
	i, err := d.t.find(k)
	if err != nil || i < 0 {
		return nil, false, err
	}
	return d.vals[i], true, nil
}

func (d *Dict) Set(k, v Value) error {
	i, added, err := d.t.insert(k)
	if err != nil {
		return err
	}
	if added {
		d.vals = append(d.vals, v)
		return nil
	}
	d.vals[i] = v
	return nil
}

// SetStr stores v under a string key; string keys are always hashable.
func (d *Dict) SetStr(name string, v Value) {
	_ = d.Set(Str(name), v)
}

// Delete removes k and reports whether it was present.
func (d *Dict) Delete(k Value) (bool, error) {
	i, err := d.t.find(k)
	if err != nil || i < 0 {
		return false, err
	}
	d.vals = append(d.vals[:i], d.vals[i+1:]...)
	d.t.remove(i)
	return true, nil
}

func (d *Dict) Keys() []Value {
	if d == nil {
		return nil
	}
	return append([]Value(nil), d.t.keys...)
}

func (d *Dict) Values() []Value {
	if d == nil {
		return nil
	}
	return append([]Value(nil), d.vals...)
}

// Each calls fn for every entry in insertion order.
func (d *Dict) Each(fn func(k, v Value)) {
	if d == nil {
		return
	}
	for i, k := range d.t.keys {
		fn(k, d.vals[i])
	}
}

func (d *Dict) Update(other *Dict) error {
	if other == nil {
		return nil
	}
	for i, k := range other.t.keys {
		if err := d.Set(k, other.vals[i]); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dict) Copy() *Dict {
	c := NewDict()
	_ = c.Update(d)
	return c
}

func (d *Dict) Clear() {
	d.t = table{}
	d.vals = nil
}

// Set is an insertion-ordered set.
type Set struct {
	t table
}

func NewSet(items ...Value) (*Set, error) {
	s := &Set{}
	for _, item := range items {
		if err := s.Add(item); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (*Set) Kind() Kind { return KindSet }

func (s *Set) Len() int { return len(s.t.keys) }

func (s *Set) Add(v Value) error {
	_, _, err := s.t.insert(v)
	return err
}

func (s *Set) Contains(v Value) (bool, error) {
	i, err := s.t.find(v)
	return i >= 0, err
}

// Discard removes v and reports whether it was present.
func (s *Set) Discard(v Value) (bool, error) {
	i, err := s.t.find(v)
	if err != nil || i < 0 {
		return false, err
	}
	s.t.remove(i)
	return true, nil
}

func (s *Set) Items() []Value { return append([]Value(nil), s.t.keys...) }

func (s *Set) Copy() *Set {
	c := &Set{}
	for _, k := range s.t.keys {
		_ = c.Add(k)
	}
	return c
}

func (s *Set) Clear() { s.t = table{} }
