package value

// Iter implements iter() over every iterable host value.
func Iter(v Value) (*Iterator, error) {
	switch x := v.(type) {
	case *Iterator:
		return x, nil
	case *List:
		i := 0
		return NewIterator(func() (Value, bool, error) {
			if i >= len(x.Items) {
				return nil, false, nil
			}
			i++
			return x.Items[i-1], true, nil
		}), nil
	case *Tuple:
		return sliceIterator(x.Items), nil
	case Str:
		runes := []rune(string(x))
		items := make([]Value, len(runes))
		for i, r := range runes {
			items[i] = Str(string(r))
		}
		return sliceIterator(items), nil
	case *Dict:
		return sliceIterator(x.Keys()), nil
	case *Set:
		return sliceIterator(x.Items()), nil
	case *Range:
		i, n := int64(0), x.Len()
		return NewIterator(func() (Value, bool, error) {
			if i >= n {
				return nil, false, nil
			}
			i++
			return x.At(i - 1), true, nil
		}), nil
	case *Object:
		if r, found, err := x.callMethod("__iter__"); found {
			if err != nil {
				return nil, err
			}
			return objectIterator(r)
		}
	}
	return nil, Errorf(TypeError, "'%s' object is not iterable", TypeName(v))
}

func sliceIterator(items []Value) *Iterator {
	i := 0
	return NewIterator(func() (Value, bool, error) {
		if i >= len(items) {
			return nil, false, nil
		}
		i++
		return items[i-1], true, nil
	})
}

// objectIterator adapts an object implementing __next__ and signalling
// exhaustion with StopIteration.
func objectIterator(v Value) (*Iterator, error) {
	if it, ok := v.(*Iterator); ok {
		return it, nil
	}
	o, ok := v.(*Object)
	if !ok {
		return Iter(v)
	}
	next, ok := o.method("__next__")
	if !ok {
		return nil, Errorf(TypeError, "iter() returned non-iterator of type '%s'", TypeName(v))
	}
	return NewIterator(func() (Value, bool, error) {
		r, err := next.Call(nil, nil)
		if IsInstance(err, StopIteration) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		return r, true, nil
	}), nil
}

// Collect drains an iterable into a slice.
func Collect(v Value) ([]Value, error) {
	switch x := v.(type) {
	case *List:
		return append([]Value(nil), x.Items...), nil
	case *Tuple:
		return append([]Value(nil), x.Items...), nil
	}
	it, err := Iter(v)
	if err != nil {
		return nil, err
	}
	var out []Value
	for {
		item, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, item)
	}
}

// Indices resolves the slice against a sequence of length n the way
// slice.indices does.
func (s *Slice) Indices(n int) (start, stop, step int, err error) {
	step = 1
	if !isNone(s.Step) {
		if step, err = AsIndex(s.Step); err != nil {
			return
		}
		if step == 0 {
			err = Errorf(ValueError, "slice step cannot be zero")
			return
		}
	}
	lower, upper := 0, n
	if step < 0 {
		lower, upper = -1, n-1
	}
	bound := func(v Value, def int) (int, error) {
		if isNone(v) {
			return def, nil
		}
		i, err := AsIndex(v)
		if err != nil {
			return 0, err
		}
		if i < 0 {
			i += n
			if i < lower {
				i = lower
			}
		} else if i > upper {
			i = upper
		}
		return i, nil
	}
	if step > 0 {
		if start, err = bound(s.Start, lower); err != nil {
			return
		}
		stop, err = bound(s.Stop, upper)
	} else {
		if start, err = bound(s.Start, upper); err != nil {
			return
		}
		stop, err = bound(s.Stop, lower)
	}
	return
}

func (s *Slice) positions(n int) ([]int, error) {
	start, stop, step, err := s.Indices(n)
	if err != nil {
		return nil, err
	}
	var out []int
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, i)
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, i)
		}
	}
	return out, nil
}

func pick(items []Value, s *Slice) ([]Value, error) {
	pos, err := s.positions(len(items))
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(pos))
	for i, p := range pos {
		out[i] = items[p]
	}
	return out, nil
}

func normIndex(key Value, n int, what string) (int, error) {
	i, err := AsIndex(key)
	if err != nil {
		return 0, Errorf(TypeError, "%s indices must be integers or slices, not %s", what, TypeName(key))
	}
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, Errorf(IndexError, "%s index out of range", what)
	}
	return i, nil
}

// GetItem implements container[key].
func GetItem(container, key Value) (Value, error) {
	switch x := container.(type) {
	case *List:
		if s, ok := key.(*Slice); ok {
			items, err := pick(x.Items, s)
			return NewList(items...), err
		}
		i, err := normIndex(key, len(x.Items), "list")
		if err != nil {
			return nil, err
		}
		return x.Items[i], nil
	case *Tuple:
		if s, ok := key.(*Slice); ok {
			items, err := pick(x.Items, s)
			return NewTuple(items...), err
		}
		i, err := normIndex(key, len(x.Items), "tuple")
		if err != nil {
			return nil, err
		}
		return x.Items[i], nil
	case Str:
		runes := []rune(string(x))
		if s, ok := key.(*Slice); ok {
			pos, err := s.positions(len(runes))
			if err != nil {
				return nil, err
			}
			out := make([]rune, len(pos))
			for i, p := range pos {
				out[i] = runes[p]
			}
			return Str(string(out)), nil
		}
		i, err := normIndex(key, len(runes), "string")
		if err != nil {
			return nil, err
		}
		return Str(string(runes[i])), nil
	case *Dict:
		v, found, err := x.Get(key)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, NewException(KeyError, key)
		}
		return v, nil
	case *Range:
		i, err := normIndex(key, int(x.Len()), "range object")
		if err != nil {
			return nil, err
		}
		return x.At(int64(i)), nil
	case *Object:
		if r, found, err := x.callMethod("__getitem__", key); found {
			return r, err
		}
	}
	return nil, Errorf(TypeError, "'%s' object is not subscriptable", TypeName(container))
}

// SetItem implements container[key] = v.
func SetItem(container, key, v Value) error {
	switch x := container.(type) {
	case *List:
		if s, ok := key.(*Slice); ok {
			return assignSlice(x, s, v)
		}
		i, err := normIndex(key, len(x.Items), "list assignment")
		if err != nil {
			return err
		}
		x.Items[i] = v
		return nil
	case *Dict:
		return x.Set(key, v)
	case *Object:
		if _, found, err := x.callMethod("__setitem__", key, v); found {
			return err
		}
	}
	return Errorf(TypeError, "'%s' object does not support item assignment", TypeName(container))
}

func assignSlice(l *List, s *Slice, v Value) error {
	items, err := Collect(v)
	if err != nil {
		return err
	}
	start, stop, step, err := s.Indices(len(l.Items))
	if err != nil {
		return err
	}
	if step == 1 {
		if stop < start {
			stop = start
		}
		out := make([]Value, 0, len(l.Items)-(stop-start)+len(items))
		out = append(out, l.Items[:start]...)
		out = append(out, items...)
		out = append(out, l.Items[stop:]...)
		l.Items = out
		return nil
	}
	pos, _ := s.positions(len(l.Items))
	if len(pos) != len(items) {
		return Errorf(ValueError, "attempt to assign sequence of size %d to extended slice of size %d", len(items), len(pos))
	}
	for i, p := range pos {
		l.Items[p] = items[i]
	}
	return nil
}

// DelItem implements del container[key].
func DelItem(container, key Value) error {
	switch x := container.(type) {
	case *List:
		if s, ok := key.(*Slice); ok {
			pos, err := s.positions(len(x.Items))
			if err != nil {
				return err
			}
			drop := make(map[int]bool, len(pos))
			for _, p := range pos {
				drop[p] = true
			}
			kept := x.Items[:0:0]
			for i, item := range x.Items {
				if !drop[i] {
					kept = append(kept, item)
				}
			}
			x.Items = kept
			return nil
		}
		i, err := normIndex(key, len(x.Items), "list assignment")
		if err != nil {
			return err
		}
		x.Items = append(x.Items[:i], x.Items[i+1:]...)
		return nil
	case *Dict:
		found, err := x.Delete(key)
		if err != nil {
			return err
		}
		if !found {
			return NewException(KeyError, key)
		}
		return nil
	case *Object:
		if _, found, err := x.callMethod("__delitem__", key); found {
			return err
		}
	}
	return Errorf(TypeError, "'%s' object does not support item deletion", TypeName(container))
}
