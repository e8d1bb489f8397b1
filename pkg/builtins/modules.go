package builtins

import (
	"math"

	"bytevm/pkg/value"
)

// modules maps importable names to their constructors.
var modules = map[string]func() *value.Module{
	"math": newMath,
}

// Importer resolves import_name against the host module table. Each module
// is built once per importer, so repeated imports yield the same object.
type Importer struct {
	loaded map[string]*value.Module
}

func NewImporter() *Importer {
	return &Importer{loaded: make(map[string]*value.Module)}
}

// Import has the shape the machine expects of a host importer.
func (imp *Importer) Import(name string, fromlist value.Value, level int) (value.Value, error) {
	if level > 0 {
		return nil, value.Errorf(value.ImportError, "attempted relative import with no known parent package")
	}
	if m, ok := imp.loaded[name]; ok {
		return m, nil
	}
	ctor, ok := modules[name]
	if !ok {
		return nil, value.Errorf(value.ModuleNotFoundError, "No module named '%s'", name)
	}
	m := ctor()
	imp.loaded[name] = m
	return m, nil
}

func newMath() *value.Module {
	m := value.NewModule("math")
	m.Dict["pi"] = value.Float(math.Pi)
	m.Dict["e"] = value.Float(math.E)
	m.Dict["tau"] = value.Float(2 * math.Pi)
	m.Dict["inf"] = value.Float(math.Inf(1))
	m.Dict["nan"] = value.Float(math.NaN())

	unary := func(name string, fn func(float64) float64) {
		m.Dict[name] = value.NewBuiltin(name, func(args []value.Value, kw *value.Dict) (value.Value, error) {
			if err := arity(name, args, 1, 1); err != nil {
				return nil, err
			}
			x, err := toFloat(args[0])
			if err != nil {
				return nil, err
			}
			return value.Float(fn(x)), nil
		})
	}
	unary("fabs", math.Abs)
	unary("exp", math.Exp)
	unary("sin", math.Sin)
	unary("cos", math.Cos)
	unary("tan", math.Tan)

	m.Dict["sqrt"] = value.NewBuiltin("sqrt", func(args []value.Value, kw *value.Dict) (value.Value, error) {
		if err := arity("sqrt", args, 1, 1); err != nil {
			return nil, err
		}
		x, err := toFloat(args[0])
		if err != nil {
			return nil, err
		}
		if x < 0 {
			return nil, value.Errorf(value.ValueError, "math domain error")
		}
		return value.Float(math.Sqrt(x)), nil
	})
	m.Dict["log"] = value.NewBuiltin("log", func(args []value.Value, kw *value.Dict) (value.Value, error) {
		if err := arity("log", args, 1, 2); err != nil {
			return nil, err
		}
		x, err := toFloat(args[0])
		if err != nil {
			return nil, err
		}
		if x <= 0 {
			return nil, value.Errorf(value.ValueError, "math domain error")
		}
		r := math.Log(x)
		if len(args) == 2 {
			b, err := toFloat(args[1])
			if err != nil {
				return nil, err
			}
			r /= math.Log(b)
		}
		return value.Float(r), nil
	})
	m.Dict["floor"] = rounding("floor", math.Floor)
	m.Dict["ceil"] = rounding("ceil", math.Ceil)
	m.Dict["gcd"] = value.NewBuiltin("gcd", func(args []value.Value, kw *value.Dict) (value.Value, error) {
		var g int64
		for _, a := range args {
			n, ok := a.(value.Int)
			if !ok {
				return nil, value.Errorf(value.TypeError, "'%s' object cannot be interpreted as an integer", value.TypeName(a))
			}
			x := int64(n)
			if x < 0 {
				x = -x
			}
			for x != 0 {
				g, x = x, g%x
			}
		}
		return value.Int(g), nil
	})
	return m
}

// rounding wraps floor and ceil, which return integers.
func rounding(name string, fn func(float64) float64) *value.Builtin {
	return value.NewBuiltin(name, func(args []value.Value, kw *value.Dict) (value.Value, error) {
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		if n, ok := args[0].(value.Int); ok {
			return n, nil
		}
		x, err := toFloat(args[0])
		if err != nil {
			return nil, err
		}
		n, err := toInt(value.Float(fn(x)))
		if err != nil {
			return nil, err
		}
		return value.Int(n), nil
	})
}
