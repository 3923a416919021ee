package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"github.com/funvibe/solidscript/internal/config"
	"github.com/funvibe/solidscript/internal/diagnostics"
	"github.com/funvibe/solidscript/internal/parser"
	"github.com/funvibe/solidscript/internal/printer"
	"github.com/funvibe/solidscript/internal/render"
	"github.com/funvibe/solidscript/pkg/interp"
)

type options struct {
	expr       string
	file       string
	configPath string
	stlPath    string
	remote     string
	cells      int
	dumpAST    bool
	stats      bool
	quiet      bool
	noCache    bool
	help       bool
}

func main() {
	// Catch panics and show user-friendly error
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r) // Re-panic to get stack trace
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug. Please report it.")
			os.Exit(1)
		}
	}()

	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := parseArgs(args)
	if err != nil {
		errorf("%v", err)
		fmt.Fprintln(os.Stderr, "Run with --help for usage.")
		return 1
	}
	if opts.help {
		printUsage(os.Stdout)
		return 0
	}

	source, err := readSource(opts)
	if err != nil {
		errorf("%v", err)
		return 1
	}

	if opts.dumpAST {
		return dumpAST(source)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		errorf("%v", err)
		return 1
	}
	if opts.noCache {
		cfg.EnableCaching = false
	}
	if opts.stlPath != "" {
		// Mesh export needs live solids; cached replays carry
		// summaries only.
		cfg.CachePath = ""
	}

	pipe := interp.New(cfg)
	if err := pipe.Initialize(); err != nil {
		reportError(err)
		return 1
	}
	defer pipe.Close()

	ctx := context.Background()
	res, err := pipe.ProcessCode(ctx, source)
	if err != nil {
		reportError(err)
		return 1
	}

	if !opts.quiet {
		printSummaries(os.Stdout, res.Summaries)
	}
	if opts.stats {
		printStats(os.Stdout, res)
	}
	if opts.stlPath != "" {
		if err := exportSTL(opts.stlPath, opts.cells, res); err != nil {
			errorf("%v", err)
			return 1
		}
	}
	if opts.remote != "" {
		if err := pushRemote(ctx, opts.remote, res.Summaries); err != nil {
			errorf("%v", err)
			return 1
		}
	}
	return 0
}

func parseArgs(args []string) (options, error) {
	var opts options
	next := func(i int, flag string) (string, error) {
		if i+1 >= len(args) {
			return "", fmt.Errorf("%s requires an argument", flag)
		}
		return args[i+1], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-h", "--help", "help":
			opts.help = true
		case "-e":
			v, err := next(i, arg)
			if err != nil {
				return opts, err
			}
			opts.expr = v
			i++
		case "--config":
			v, err := next(i, arg)
			if err != nil {
				return opts, err
			}
			opts.configPath = v
			i++
		case "--stl":
			v, err := next(i, arg)
			if err != nil {
				return opts, err
			}
			opts.stlPath = v
			i++
		case "--remote":
			v, err := next(i, arg)
			if err != nil {
				return opts, err
			}
			opts.remote = v
			i++
		case "--cells":
			v, err := next(i, arg)
			if err != nil {
				return opts, err
			}
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return opts, fmt.Errorf("--cells needs a positive integer, got %q", v)
			}
			opts.cells = n
			i++
		case "--dump-ast":
			opts.dumpAST = true
		case "--stats":
			opts.stats = true
		case "--quiet":
			opts.quiet = true
		case "--no-cache":
			opts.noCache = true
		default:
			if strings.HasPrefix(arg, "-") {
				return opts, fmt.Errorf("unknown flag %s", arg)
			}
			if opts.file != "" {
				return opts, fmt.Errorf("more than one input file: %s and %s", opts.file, arg)
			}
			opts.file = arg
		}
	}
	return opts, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: solidscript [options] <file.scad>")
	fmt.Fprintln(w, "       solidscript [options] -e '<code>'")
	fmt.Fprintln(w, "       cat model.scad | solidscript")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  -e <code>        process the given code instead of a file")
	fmt.Fprintln(w, "  --config <path>  load configuration from a YAML file")
	fmt.Fprintln(w, "  --dump-ast       print the parsed tree and exit")
	fmt.Fprintln(w, "  --stats          print per-stage timing and operation metrics")
	fmt.Fprintln(w, "  --stl <path>     export the scene as a binary STL mesh")
	fmt.Fprintln(w, "  --cells <n>      mesh resolution for STL export (default 200)")
	fmt.Fprintln(w, "  --remote <addr>  stream geometry summaries to a render service")
	fmt.Fprintln(w, "  --no-cache       process fresh, ignoring cached results")
	fmt.Fprintln(w, "  --quiet          suppress per-node output")
	fmt.Fprintln(w, "  -h, --help       show this help")
}

func readSource(opts options) (string, error) {
	if opts.expr != "" {
		return opts.expr, nil
	}
	if opts.file != "" {
		data, err := os.ReadFile(opts.file)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", opts.file, err)
		}
		return string(data), nil
	}
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) != 0 {
		return "", errors.New("no input: pass a file, -e '<code>', or pipe from stdin")
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

func loadConfig(opts options) (config.Config, error) {
	if opts.configPath != "" {
		return config.Load(opts.configPath)
	}
	path, err := config.Find(".")
	if err != nil || path == "" {
		return config.Default(), err
	}
	return config.Load(path)
}

func dumpAST(source string) int {
	p := parser.New(source)
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		for _, e := range errs {
			errorf("%v", e)
		}
		return 1
	}
	fmt.Print(printer.Print(program))
	return 0
}

func printSummaries(w io.Writer, summaries []render.Summary) {
	for _, s := range summaries {
		fmt.Fprintln(w, s.String())
	}
	fmt.Fprintf(w, "total: %d\n", len(summaries))
}

func printStats(w io.Writer, res *interp.ProcessingResult) {
	fmt.Fprintln(w, "stages:")
	for _, name := range res.Metadata.StagesCompleted {
		fmt.Fprintf(w, "  %-24s %s\n", name, res.Metadata.StageTiming[name])
	}
	fmt.Fprintf(w, "processing time: %s\n", res.Metadata.ProcessingTime)
	fmt.Fprintf(w, "memory delta: %d bytes\n", res.Metadata.MemoryUsage)

	if res.Metrics == nil {
		return
	}
	fmt.Fprintf(w, "operations: %d (avg %s)\n", res.Metrics.TotalOperations, res.Metrics.AverageDuration)
	if len(res.Metrics.SlowestOperations) > 0 {
		fmt.Fprintln(w, "slowest:")
		for _, rec := range res.Metrics.SlowestOperations {
			fmt.Fprintf(w, "  %-24s %-12s %s\n", rec.Operation, rec.Subject, rec.Duration)
		}
	}
}

func exportSTL(path string, cells int, res *interp.ProcessingResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := render.WriteSTL(f, res.GeometryNodes, cells); err != nil {
		f.Close()
		return fmt.Errorf("meshing %s: %w", path, err)
	}
	return f.Close()
}

func pushRemote(ctx context.Context, addr string, summaries []render.Summary) error {
	sink, err := render.DialRenderer(addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer sink.Close()
	if err := sink.Consume(ctx, summaries); err != nil {
		return fmt.Errorf("streaming to %s: %w", addr, err)
	}
	return nil
}

func reportError(err error) {
	var ie *diagnostics.IntegrationError
	if errors.As(err, &ie) {
		errorf("%s", ie.Message)
		fmt.Fprintf(os.Stderr, "  stage: %s\n", ie.Stage)
		fmt.Fprintf(os.Stderr, "  category: %s\n", ie.Category)
		for _, hint := range ie.Suggestions {
			fmt.Fprintf(os.Stderr, "  hint: %s\n", hint)
		}
		return
	}
	errorf("%v", err)
}

var (
	colorOnce sync.Once
	colorOn   bool
)

// useColor follows the NO_COLOR convention and only colors interactive
// terminals.
func useColor() bool {
	colorOnce.Do(func() {
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			return
		}
		if os.Getenv("TERM") == "dumb" {
			return
		}
		colorOn = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	})
	return colorOn
}

func errorf(format string, args ...interface{}) {
	prefix := "error: "
	if useColor() {
		prefix = "\x1b[31merror:\x1b[0m "
	}
	fmt.Fprintf(os.Stderr, prefix+format+"\n", args...)
}
