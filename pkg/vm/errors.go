package vm

import (
	"errors"
	"fmt"

	"bytevm/pkg/value"
)

var (
	ErrMaxStepsExceeded = errors.New("maximum steps exceeded")
	ErrRecursionLimit   = errors.New("maximum recursion depth exceeded")
)

// NameLookupError reports a name missing from every scope searched, or
// missing from the scope a delete targets.
type NameLookupError struct {
	Name string
}

func (e *NameLookupError) Error() string {
	return fmt.Sprintf("NameError: name '%s' is not defined", e.Name)
}

func (e *NameLookupError) Exception() *value.Exception {
	return value.Errorf(value.NameError, "name '%s' is not defined", e.Name)
}

// KeyLookupError reports a subscript, attribute or delete-by-key miss.
// Err is the underlying KeyError, IndexError or AttributeError.
type KeyLookupError struct {
	Key value.Value
	Err *value.Exception
}

func (e *KeyLookupError) Error() string { return e.Err.Error() }
func (e *KeyLookupError) Unwrap() error { return e.Err }

func (e *KeyLookupError) Exception() *value.Exception { return e.Err }

// CallBindingError reports arguments that cannot be bound to a callee's parameters.
type CallBindingError struct {
	Func string
	Msg  string
}

func (e *CallBindingError) Error() string {
	return fmt.Sprintf("TypeError: %s() %s", e.Func, e.Msg)
}

func (e *CallBindingError) Exception() *value.Exception {
	return value.Errorf(value.TypeError, "%s() %s", e.Func, e.Msg)
}

func bindingError(fn, format string, args ...any) *CallBindingError {
	return &CallBindingError{Func: fn, Msg: fmt.Sprintf(format, args...)}
}

// UnboundLocalError reports a checked local load that found nothing in any scope.
type UnboundLocalError struct {
	Name string
}

func (e *UnboundLocalError) Error() string {
	return fmt.Sprintf("UnboundLocalError: cannot access local variable '%s' where it is not associated with a value", e.Name)
}

func (e *UnboundLocalError) Exception() *value.Exception {
	return value.Errorf(value.UnboundLocalError, "cannot access local variable '%s' where it is not associated with a value", e.Name)
}

// RaisedCondition carries an exception raised by raise_varargs.
type RaisedCondition struct {
	Exception *value.Exception
}

func (e *RaisedCondition) Error() string { return e.Exception.Error() }
func (e *RaisedCondition) Unwrap() error { return e.Exception }

// AsException converts any error produced while running code into the
// exception instance the program would observe.
func AsException(err error) (*value.Exception, bool) {
	var raised *RaisedCondition
	if errors.As(err, &raised) {
		return raised.Exception, true
	}
	var ex interface{ Exception() *value.Exception }
	if errors.As(err, &ex) {
		return ex.Exception(), true
	}
	var exc *value.Exception
	if errors.As(err, &exc) {
		return exc, true
	}
	return nil, false
}

// lookupMiss wraps key, index and attribute misses from the value layer.
func lookupMiss(key value.Value, err error) error {
	var exc *value.Exception
	if errors.As(err, &exc) {
		if exc.Class.IsSubclass(value.LookupError) || exc.Class.IsSubclass(value.AttributeError) {
			return &KeyLookupError{Key: key, Err: exc}
		}
	}
	return err
}
