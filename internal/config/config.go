// Package config parses and validates the super resolution command line.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// ErrHelp is returned by Parse when -h was given. Usage has been printed.
var ErrHelp = errors.New("help requested")

// Environment variables that provide defaults for flags.
const (
	EnvDevice      = "SR_DEVICE"
	EnvIterations  = "SR_ITERATIONS"
	EnvOutputDir   = "SR_OUTPUT_DIR"
	EnvLibraryPath = "ONNXRUNTIME_SHARED_LIBRARY_PATH"
)

// Params is the validated parameter set threaded through the pipeline.
type Params struct {
	Device       string
	ModelPath    string
	Inputs       []string
	Iterations   int
	PluginPath   string
	CPUExtension string
	GPUExtension string
	PerfCounters bool
	Show         bool
	OutputDir    string
}

type usageLine struct{ flag, text string }

var usage = []usageLine{
	{"-h", "Print a usage message."},
	{"-i \"<path>\"", "Required. Path to an image or a folder with images. Extra arguments are more images."},
	{"-m \"<path>\"", "Required. Path to a model file; a .json descriptor with the same basename must sit next to it."},
	{"-d \"<device>\"", "Optional. Target device: CPU, CUDA[:id], OPENVINO[:type], GPU, MYRIAD, HDDL or NPU. Default CPU."},
	{"-ni \"<integer>\"", "Optional. Number of inference iterations. Default 1."},
	{"-pp \"<path>\"", "Optional. Path to the inference runtime shared library."},
	{"-l \"<absolute_path>\"", "Optional. CPU extension library with custom layer implementations."},
	{"-c \"<absolute_path>\"", "Optional. Device extension description file."},
	{"-pc", "Optional. Print per-layer performance counters."},
	{"-show", "Optional. Show each result image before it is written."},
	{"-o \"<path>\"", "Optional. Directory for sr_<n>.png results. Default current directory."},
}

// WriteUsage prints the help text.
func WriteUsage(w io.Writer, program string) {
	fmt.Fprintf(w, "\n%s [OPTION]\nOptions:\n\n", program)
	for _, u := range usage {
		fmt.Fprintf(w, "    %-24s %s\n", u.flag, u.text)
	}
}

// Parse reads args (without the program name). Environment defaults come
// from getenv, flags override them. Paths following -i up to the next flag
// are all inputs. The returned Params are validated.
func Parse(program string, args []string, getenv func(string) string, out io.Writer) (Params, error) {
	p, envErr := defaults(getenv)

	fs := flag.NewFlagSet(program, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var input string
	var help bool
	fs.BoolVar(&help, "h", false, "")
	fs.StringVar(&input, "i", "", "")
	fs.StringVar(&p.ModelPath, "m", "", "")
	fs.StringVar(&p.Device, "d", p.Device, "")
	fs.IntVar(&p.Iterations, "ni", p.Iterations, "")
	fs.StringVar(&p.PluginPath, "pp", p.PluginPath, "")
	fs.StringVar(&p.CPUExtension, "l", "", "")
	fs.StringVar(&p.GPUExtension, "c", "", "")
	fs.BoolVar(&p.PerfCounters, "pc", false, "")
	fs.BoolVar(&p.Show, "show", false, "")
	fs.StringVar(&p.OutputDir, "o", p.OutputDir, "")

	var extra []string
	for rest := args; ; {
		if err := fs.Parse(rest); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				WriteUsage(out, program)
				return Params{}, ErrHelp
			}
			return Params{}, err
		}
		rest = fs.Args()
		for len(rest) > 0 && !isFlag(rest[0]) {
			extra = append(extra, rest[0])
			rest = rest[1:]
		}
		if len(rest) == 0 {
			break
		}
	}
	if help {
		WriteUsage(out, program)
		return Params{}, ErrHelp
	}

	iterationsSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "ni" {
			iterationsSet = true
		}
	})
	if envErr != nil && !iterationsSet {
		return Params{}, envErr
	}

	if input != "" {
		p.Inputs = append(p.Inputs, input)
	}
	p.Inputs = append(p.Inputs, extra...)

	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

func isFlag(arg string) bool {
	return len(arg) > 1 && arg[0] == '-'
}

// defaults applies the environment. A malformed iteration count is
// returned as an error next to otherwise usable defaults, since -ni may
// still override it.
func defaults(getenv func(string) string) (Params, error) {
	p := Params{
		Device:     "CPU",
		Iterations: 1,
		OutputDir:  ".",
		PluginPath: getenv(EnvLibraryPath),
	}
	if v := getenv(EnvDevice); v != "" {
		p.Device = v
	}
	if v := getenv(EnvOutputDir); v != "" {
		p.OutputDir = v
	}
	if v := getenv(EnvIterations); v != "" {
		// cast reads a leading 0 as octal
		digits := strings.TrimLeft(strings.TrimSpace(v), "0")
		if digits == "" {
			digits = "0"
		}
		n, err := cast.ToIntE(digits)
		if err != nil {
			return p, fmt.Errorf("invalid %s: %w", EnvIterations, err)
		}
		p.Iterations = n
	}
	return p, nil
}

// Validate checks the constraints that must hold before any model is loaded.
func (p Params) Validate() error {
	if p.Iterations < 1 {
		return errors.New("parameter -ni should be more than 0")
	}
	if len(p.Inputs) == 0 {
		return errors.New("parameter -i is not set")
	}
	if p.ModelPath == "" {
		return errors.New("parameter -m is not set")
	}
	return nil
}

// ExpandInputs resolves every input path to image file names. Directories
// contribute their regular files in name order; nested directories are
// ignored.
func ExpandInputs(paths []string) ([]string, error) {
	var names []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", path, err)
		}
		if !info.IsDir() {
			names = append(names, path)
			continue
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", path, err)
		}
		var files []string
		for _, e := range entries {
			if e.Type().IsRegular() {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
		sort.Strings(files)
		names = append(names, files...)
	}
	if len(names) == 0 {
		return nil, errors.New("no suitable images were found")
	}
	return names, nil
}
