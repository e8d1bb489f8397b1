package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"bytevm/internal/config"
	"bytevm/internal/logger"
	"bytevm/internal/runner"
)

// Main entry point for the bytevm runner.
func main() {
	options := runner.Runner{}
	var maxSteps, maxDepth int

	flag.BoolVar(&options.Help, "h", false, "Show help")
	flag.BoolVar(&options.Verbose, "v", false, "Verbose mode")
	flag.BoolVar(&options.NoColor, "n", false, "No color")
	flag.BoolVar(&options.Trace, "t", false, "Trace every dispatched instruction")
	flag.BoolVar(&options.Dump, "dump", false, "Print the disassembly and exit")
	flag.StringVar(&options.ConfigFile, "config", "", "Path to a "+config.FileName+" file")
	flag.StringVar(&options.CompileTo, "compile", "", "Write a CBOR image (e.g. out"+runner.ImageExt+") instead of running")
	flag.IntVar(&maxSteps, "steps", 0, "Maximum dispatched instructions (0 = unlimited)")
	flag.IntVar(&maxDepth, "depth", 0, "Maximum call depth")

	flag.Parse()
	args := flag.Args()

	if options.Help {
		fmt.Printf("Usage: %s [options] <program.yaml|program%s>\n", os.Args[0], runner.ImageExt)
		fmt.Println("Options:")
		flag.PrintDefaults()
		return
	}

	if len(args) == 0 {
		logger.Init(options.Verbose, options.NoColor)
		log.Fatal("No input file provided", "help", fmt.Sprintf("%s -h", os.Args[0]))
	}
	options.SourceFile = args[0]

	cfg, err := loadConfig(options.ConfigFile, options.SourceFile)
	if err != nil {
		logger.Init(options.Verbose, options.NoColor)
		log.Fatal("Invalid configuration", "error", err)
	}

	// flags given on the command line win over the file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "steps":
			cfg.Machine.MaxSteps = maxSteps
		case "depth":
			cfg.Machine.MaxDepth = maxDepth
		}
	})
	options.Verbose = options.Verbose || cfg.Log.Verbose
	options.NoColor = options.NoColor || cfg.Log.NoColor
	options.Trace = options.Trace || cfg.Machine.Trace
	options.Config = cfg

	logger.Init(options.Verbose || options.Trace, options.NoColor)

	if err := options.Run(); err != nil {
		log.Fatal("Execution failed", "error", err)
	}
}

// loadConfig reads the explicit file, or bytevm.toml next to the program
// when present.
func loadConfig(path, program string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	beside := filepath.Join(filepath.Dir(program), config.FileName)
	if _, err := os.Stat(beside); err == nil {
		return config.Load(beside)
	}
	return config.Default(), nil
}
