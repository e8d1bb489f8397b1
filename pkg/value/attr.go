package value

func noAttr(v Value, name string) error {
	return Errorf(AttributeError, "'%s' object has no attribute '%s'", TypeName(v), name)
}

// GetAttr implements obj.name, binding methods where the host language would.
func GetAttr(v Value, name string) (Value, error) {
	switch x := v.(type) {
	case *Object:
		if a, ok := x.Dict[name]; ok {
			return a, nil
		}
		if a, ok := x.Class.Lookup(name); ok {
			if b, ok := a.(Binder); ok {
				return b.Bind(x), nil
			}
			return a, nil
		}
		if name == "__class__" {
			return x.Class, nil
		}
	case *Class:
		if a, ok := x.Lookup(name); ok {
			return a, nil
		}
		if name == "__name__" {
			return Str(x.Name), nil
		}
	case *Module:
		if a, ok := x.Dict[name]; ok {
			return a, nil
		}
		if name == "__name__" {
			return Str(x.Name), nil
		}
	case *Exception:
		switch name {
		case "args":
			return NewTuple(x.Args...), nil
		case "__cause__":
			if x.Cause == nil {
				return None, nil
			}
			return x.Cause, nil
		case "__class__":
			return x.Class, nil
		}
		if a, ok := x.Attrs[name]; ok {
			return a, nil
		}
		if a, ok := x.Class.Dict[name]; ok {
			if b, ok := a.(Binder); ok {
				return b.Bind(x), nil
			}
			return a, nil
		}
	case *ExceptionClass:
		if name == "__name__" {
			return Str(x.Name), nil
		}
		if a, ok := x.Dict[name]; ok {
			return a, nil
		}
	case *Type:
		if name == "__name__" {
			return Str(x.Name), nil
		}
	case *Slice:
		switch name {
		case "start":
			return x.Start, nil
		case "stop":
			return x.Stop, nil
		case "step":
			return x.Step, nil
		}
	case *Range:
		switch name {
		case "start":
			return Int(x.Start), nil
		case "stop":
			return Int(x.Stop), nil
		case "step":
			return Int(x.Step), nil
		}
	case AttrGetter:
		if a, ok := x.GetAttr(name); ok {
			return a, nil
		}
	}
	if m, ok := lookupMethod(v, name); ok {
		return m, nil
	}
	return nil, noAttr(v, name)
}

// SetAttr implements obj.name = value.
func SetAttr(v Value, name string, val Value) error {
	switch x := v.(type) {
	case *Object:
		x.Dict[name] = val
		return nil
	case *Class:
		x.Dict[name] = val
		return nil
	case *Module:
		x.Dict[name] = val
		return nil
	case *Exception:
		if x.Attrs == nil {
			x.Attrs = make(map[string]Value)
		}
		x.Attrs[name] = val
		return nil
	case AttrSetter:
		if x.SetAttr(name, val) {
			return nil
		}
	}
	return noAttr(v, name)
}

// DelAttr implements del obj.name.
func DelAttr(v Value, name string) error {
	var dict map[string]Value
	switch x := v.(type) {
	case *Object:
		dict = x.Dict
	case *Class:
		dict = x.Dict
	case *Module:
		dict = x.Dict
	case *Exception:
		dict = x.Attrs
	}
	if _, ok := dict[name]; !ok {
		return noAttr(v, name)
	}
	delete(dict, name)
	return nil
}
