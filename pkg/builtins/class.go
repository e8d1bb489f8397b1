package builtins

import (
	"bytevm/pkg/value"
)

// buildClass implements __build_class__(body, name, *bases). The body
// function runs once and its final locals become the class namespace. A
// class deriving from an exception class is itself an exception class.
func buildClass(args []value.Value, kw *value.Dict) (value.Value, error) {
	if err := arity("__build_class__", args, 2, -1); err != nil {
		return nil, err
	}
	body, ok := args[0].(value.BodyRunner)
	if !ok {
		return nil, value.Errorf(value.TypeError, "__build_class__: func must be a function")
	}
	name, ok := args[1].(value.Str)
	if !ok {
		return nil, value.Errorf(value.TypeError, "__build_class__: name is not a string")
	}

	var bases []*value.Class
	var excBase *value.ExceptionClass
	for _, b := range args[2:] {
		switch x := b.(type) {
		case *value.Class:
			bases = append(bases, x)
		case *value.ExceptionClass:
			if excBase != nil {
				return nil, value.Errorf(value.TypeError, "multiple exception bases are not supported")
			}
			excBase = x
		default:
			return nil, value.Errorf(value.TypeError, "bases must be types, not %s", value.TypeName(b))
		}
	}
	if excBase != nil && len(bases) > 0 {
		return nil, value.Errorf(value.TypeError, "cannot mix exception and plain bases")
	}

	ns, err := body.RunBody()
	if err != nil {
		return nil, err
	}
	ns["__name__"] = name
	if _, ok := ns["__qualname__"]; !ok {
		ns["__qualname__"] = name
	}

	if excBase != nil {
		c := value.NewExceptionClass(string(name), excBase)
		c.Dict = ns
		return c, nil
	}
	return value.NewClass(string(name), bases, ns), nil
}
