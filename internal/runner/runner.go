package runner

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"bytevm/internal/config"
	"bytevm/pkg/builtins"
	"bytevm/pkg/bytecode"
	"bytevm/pkg/color"
	"bytevm/pkg/value"
	"bytevm/pkg/vm"
)

// ImageExt is the extension of compiled CBOR program images.
const ImageExt = ".bvmc"

type Runner struct {
	Help       bool   // Show help message
	Verbose    bool   // Enable verbose output
	NoColor    bool   // Disable colored output
	Trace      bool   // Log every dispatched instruction
	Dump       bool   // Print the disassembly instead of running
	ConfigFile string // Path to a bytevm.toml file
	CompileTo  string // Write a CBOR image here instead of running
	SourceFile string // Path to the program (.yaml or .bvmc)

	Config *config.Config

	Stdout io.Writer // listings and program output; defaults to os.Stdout
	Stderr io.Writer // uncaught exceptions; defaults to os.Stderr
}

// LoadProgram reads a YAML assembly listing or a CBOR image, chosen by
// file extension.
func LoadProgram(path string) (*bytecode.CodeUnit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ImageExt:
		return bytecode.UnmarshalCode(data)
	case ".yaml", ".yml":
		return bytecode.LoadAssembly(bytes.NewReader(data), filepath.Base(path))
	}
	return nil, fmt.Errorf("%s: unsupported program format (want .yaml, .yml or %s)", path, ImageExt)
}

// Run loads the program, then lists, compiles or executes it according to
// the options set.
func (r *Runner) Run() error {
	if r.Stdout == nil {
		r.Stdout = os.Stdout
	}
	if r.Stderr == nil {
		r.Stderr = os.Stderr
	}
	if r.Config == nil {
		r.Config = config.Default()
	}
	if r.NoColor {
		color.EnableColor(false)
	}

	log.Info("Processing file", "file", r.SourceFile)
	code, err := LoadProgram(r.SourceFile)
	if err != nil {
		return err
	}

	if r.Verbose || r.Dump {
		fmt.Fprintln(r.Stdout, color.GreenText("=== Disassembly ==="))
		if err := bytecode.Disassemble(r.Stdout, code); err != nil {
			return fmt.Errorf("disassembly failed: %w", err)
		}
	}
	if r.Dump {
		return nil
	}

	if r.CompileTo != "" {
		image, err := bytecode.MarshalCode(code)
		if err != nil {
			return fmt.Errorf("image encoding failed: %w", err)
		}
		if err := os.WriteFile(r.CompileTo, image, 0644); err != nil {
			return fmt.Errorf("cannot write %s: %w", r.CompileTo, err)
		}
		log.Info("Wrote image", "file", r.CompileTo, "bytes", len(image))
		return nil
	}

	m := r.machine()
	if r.Verbose {
		fmt.Fprintln(r.Stdout, color.GreenText("\n=== Program Output ==="))
	}
	if err := m.Run(code); err != nil {
		r.report(err)
		return fmt.Errorf("execution failed: %w", err)
	}
	log.Debug("Finished", "steps", m.Steps())
	return nil
}

func (r *Runner) machine() *vm.Machine {
	c := r.Config.Machine
	m := vm.NewMachine(builtins.New(r.Stdout),
		vm.WithWriter(r.Stdout),
		vm.WithMaxDepth(c.MaxDepth),
		vm.WithMaxSteps(c.MaxSteps),
		vm.WithTrace(c.Trace || r.Trace),
		vm.WithLogger(log.Default()),
		vm.WithImporter(builtins.NewImporter().Import),
	)
	m.Globals()["__name__"] = value.Str("__main__")
	return m
}

// report prints an uncaught exception with its cause chain.
func (r *Runner) report(err error) {
	exc, ok := vm.AsException(err)
	if !ok {
		return
	}
	fmt.Fprintln(r.Stderr, color.BrightRedText("=== Uncaught Exception ==="))
	fmt.Fprintln(r.Stderr, exc.Traceback())
}
