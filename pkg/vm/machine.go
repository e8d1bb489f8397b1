package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"bytevm/internal/logger"
	"bytevm/pkg/bytecode"
	"bytevm/pkg/value"
)

// DefaultMaxDepth bounds nested calls unless WithMaxDepth says otherwise.
const DefaultMaxDepth = 1000

// Importer resolves import_name for the host. fromlist is None or a tuple
// of names; level is the relative import level.
type Importer func(name string, fromlist value.Value, level int) (value.Value, error)

// Machine owns the state shared by every frame of one top-level execution:
// the globals and builtins mappings and the run limits.
type Machine struct {
	builtins map[string]value.Value
	globals  map[string]value.Value

	out      io.Writer
	log      *log.Logger
	trace    bool
	importer Importer

	maxSteps int // 0 = unlimited
	steps    int
	maxDepth int
	depth    int
}

type Option func(*Machine)

// WithWriter sets the output writer for the print intrinsic
func WithWriter(w io.Writer) Option {
	return func(m *Machine) { m.out = w }
}

// WithMaxSteps sets a maximum number of dispatched instructions before returning ErrMaxStepsExceeded
func WithMaxSteps(n int) Option {
	return func(m *Machine) { m.maxSteps = n }
}

// WithMaxDepth sets the maximum call nesting before returning ErrRecursionLimit
func WithMaxDepth(n int) Option {
	return func(m *Machine) { m.maxDepth = n }
}

func WithLogger(l *log.Logger) Option {
	return func(m *Machine) { m.log = l }
}

// WithTrace logs every dispatched instruction at debug level
func WithTrace(trace bool) Option {
	return func(m *Machine) { m.trace = trace }
}

func WithImporter(imp Importer) Option {
	return func(m *Machine) { m.importer = imp }
}

// NewMachine creates a machine over a host-supplied builtins mapping.
func NewMachine(builtins map[string]value.Value, opts ...Option) *Machine {
	if builtins == nil {
		builtins = make(map[string]value.Value)
	}
	m := &Machine{
		builtins: builtins,
		globals:  make(map[string]value.Value),
		maxDepth: DefaultMaxDepth,
	}
	for _, o := range opts {
		o(m)
	}

	if m.out == nil {
		m.out = os.Stdout
	}
	if m.log == nil {
		m.log = logger.Discard()
	}

	return m
}

// Globals returns the shared module namespace.
func (m *Machine) Globals() map[string]value.Value {
	return m.globals
}

// Builtins returns the builtin-name mapping.
func (m *Machine) Builtins() map[string]value.Value {
	return m.builtins
}

// Output returns the output writer used for print
func (m *Machine) Output() io.Writer {
	return m.out
}

// Steps reports how many instructions have been dispatched.
func (m *Machine) Steps() int {
	return m.steps
}

// Reset clears the module namespace and counters.
func (m *Machine) Reset() {
	m.globals = make(map[string]value.Value)
	m.steps = 0
	m.depth = 0
}

// Run executes a top-level code unit, discarding its return value.
func (m *Machine) Run(code *bytecode.CodeUnit) error {
	_, err := m.Eval(code)
	return err
}

// Eval executes a top-level code unit and returns the value its return
// instruction produced. Module code shares one mapping for globals and locals.
func (m *Machine) Eval(code *bytecode.CodeUnit) (value.Value, error) {
	if err := code.Validate(); err != nil {
		return nil, err
	}
	f := m.newFrame(code, m.globals)
	m.log.Debug("run", "code", code.Name, "file", code.Filename, "instructions", len(code.Instructions))
	return f.run()
}

// Run is the entry point: it executes code against fresh globals and the
// given builtins and discards the result.
func Run(code *bytecode.CodeUnit, builtins map[string]value.Value, opts ...Option) error {
	return NewMachine(builtins, opts...).Run(code)
}

func (m *Machine) tick() error {
	if m.maxSteps > 0 && m.steps >= m.maxSteps {
		return ErrMaxStepsExceeded
	}
	m.steps++
	return nil
}

func (m *Machine) enter(name string) error {
	if m.maxDepth > 0 && m.depth >= m.maxDepth {
		return fmt.Errorf("%w while calling %s()", ErrRecursionLimit, name)
	}
	m.depth++
	return nil
}

func (m *Machine) leave() {
	m.depth--
}
