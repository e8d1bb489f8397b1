package value

import (
	"errors"
	"fmt"
	"strings"
)

// ExceptionClass is the class of a raisable exception.
type ExceptionClass struct {
	Name string
	Base *ExceptionClass
	Dict map[string]Value
}

// Exception is a raised (or raisable) exception instance. It doubles as a Go
// error so host operations can return it directly.
type Exception struct {
	Class *ExceptionClass
	Args  []Value
	Cause *Exception
	Attrs map[string]Value
}

var (
	BaseException       = &ExceptionClass{Name: "BaseException"}
	ExceptionBase       = NewExceptionClass("Exception", BaseException)
	ArithmeticError     = NewExceptionClass("ArithmeticError", ExceptionBase)
	AssertionError      = NewExceptionClass("AssertionError", ExceptionBase)
	AttributeError      = NewExceptionClass("AttributeError", ExceptionBase)
	ImportError         = NewExceptionClass("ImportError", ExceptionBase)
	LookupError         = NewExceptionClass("LookupError", ExceptionBase)
	NameError           = NewExceptionClass("NameError", ExceptionBase)
	RuntimeError        = NewExceptionClass("RuntimeError", ExceptionBase)
	StopIteration       = NewExceptionClass("StopIteration", ExceptionBase)
	TypeError           = NewExceptionClass("TypeError", ExceptionBase)
	ValueError          = NewExceptionClass("ValueError", ExceptionBase)
	IndexError          = NewExceptionClass("IndexError", LookupError)
	KeyError            = NewExceptionClass("KeyError", LookupError)
	ModuleNotFoundError = NewExceptionClass("ModuleNotFoundError", ImportError)
	NotImplementedError = NewExceptionClass("NotImplementedError", RuntimeError)
	OverflowError       = NewExceptionClass("OverflowError", ArithmeticError)
	RecursionError      = NewExceptionClass("RecursionError", RuntimeError)
	UnboundLocalError   = NewExceptionClass("UnboundLocalError", NameError)
	ZeroDivisionError   = NewExceptionClass("ZeroDivisionError", ArithmeticError)
)

// ExceptionClasses lists the predefined exception hierarchy.
var ExceptionClasses = []*ExceptionClass{
	BaseException, ExceptionBase, ArithmeticError, AssertionError, AttributeError,
	ImportError, LookupError, NameError, RuntimeError, StopIteration, TypeError,
	ValueError, IndexError, KeyError, ModuleNotFoundError, NotImplementedError,
	OverflowError, RecursionError, UnboundLocalError, ZeroDivisionError,
}

func NewExceptionClass(name string, base *ExceptionClass) *ExceptionClass {
	return &ExceptionClass{Name: name, Base: base, Dict: make(map[string]Value)}
}

func (*ExceptionClass) Kind() Kind { return KindExceptionClass }

func (c *ExceptionClass) Call(args []Value, kwargs *Dict) (Value, error) {
	if kwargs.Len() > 0 {
		return nil, Errorf(TypeError, "%s() takes no keyword arguments", c.Name)
	}
	return &Exception{Class: c, Args: append([]Value(nil), args...)}, nil
}

// IsSubclass reports whether c is other or derives from it.
func (c *ExceptionClass) IsSubclass(other *ExceptionClass) bool {
	for k := c; k != nil; k = k.Base {
		if k == other {
			return true
		}
	}
	return false
}

func (*Exception) Kind() Kind { return KindException }

// Message is the str() of the exception.
func (e *Exception) Message() string {
	switch len(e.Args) {
	case 0:
		return ""
	case 1:
		if e.Class.IsSubclass(KeyError) {
			return Repr(e.Args[0])
		}
		return ToStr(e.Args[0])
	}
	return Repr(NewTuple(e.Args...))
}

func (e *Exception) Error() string {
	msg := e.Message()
	if msg == "" {
		return e.Class.Name
	}
	return e.Class.Name + ": " + msg
}

// Errorf builds an exception of class c with a formatted message.
func Errorf(c *ExceptionClass, format string, args ...any) *Exception {
	return &Exception{Class: c, Args: []Value{Str(fmt.Sprintf(format, args...))}}
}

// NewException builds an exception whose single argument is v.
func NewException(c *ExceptionClass, v Value) *Exception {
	return &Exception{Class: c, Args: []Value{v}}
}

// IsInstance reports whether err is an exception of class c (or a subclass).
func IsInstance(err error, c *ExceptionClass) bool {
	var e *Exception
	return errors.As(err, &e) && e.Class.IsSubclass(c)
}

// Traceback renders the exception together with its cause chain.
func (e *Exception) Traceback() string {
	var parts []string
	for x := e; x != nil; x = x.Cause {
		parts = append(parts, x.Error())
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "\n\nThe above exception was the direct cause of the following exception:\n\n")
}
