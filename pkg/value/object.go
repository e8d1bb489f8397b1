package value

// Class is a user-defined class produced by __build_class__.
type Class struct {
	Name  string
	Bases []*Class
	Dict  map[string]Value
}

// Object is an instance of a user-defined class.
type Object struct {
	Class *Class
	Dict  map[string]Value
}

func NewClass(name string, bases []*Class, dict map[string]Value) *Class {
	if dict == nil {
		dict = make(map[string]Value)
	}
	return &Class{Name: name, Bases: bases, Dict: dict}
}

func (*Class) Kind() Kind  { return KindClass }
func (*Object) Kind() Kind { return KindObject }

// Lookup searches the class and then its bases depth-first, left to right.
func (c *Class) Lookup(name string) (Value, bool) {
	if v, ok := c.Dict[name]; ok {
		return v, true
	}
	for _, b := range c.Bases {
		if v, ok := b.Lookup(name); ok {
			return v, true
		}
	}
	return nil, false
}

// IsSubclass reports whether c is other or inherits from it.
func (c *Class) IsSubclass(other *Class) bool {
	if c == other {
		return true
	}
	for _, b := range c.Bases {
		if b.IsSubclass(other) {
			return true
		}
	}
	return false
}

// Call instantiates the class and runs __init__ when one is defined.
func (c *Class) Call(args []Value, kwargs *Dict) (Value, error) {
	obj := &Object{Class: c, Dict: make(map[string]Value)}
	init, ok := c.Lookup("__init__")
	if !ok {
		if len(args) > 0 || kwargs.Len() > 0 {
			return nil, Errorf(TypeError, "%s() takes no arguments", c.Name)
		}
		return obj, nil
	}
	fn, ok := init.(Callable)
	if !ok {
		return nil, Errorf(TypeError, "'%s' object is not callable", TypeName(init))
	}
	full := append([]Value{obj}, args...)
	if _, err := fn.Call(full, kwargs); err != nil {
		return nil, err
	}
	return obj, nil
}

// method looks up a dunder on the instance's class and binds it.
func (o *Object) method(name string) (Callable, bool) {
	v, ok := o.Class.Lookup(name)
	if !ok {
		return nil, false
	}
	fn, ok := v.(Callable)
	if !ok {
		return nil, false
	}
	return &BoundMethod{Self: o, Func: fn}, true
}

// callMethod invokes a dunder and reports whether the class defines it.
func (o *Object) callMethod(name string, args ...Value) (Value, bool, error) {
	m, ok := o.method(name)
	if !ok {
		return nil, false, nil
	}
	v, err := m.Call(args, nil)
	return v, true, err
}
