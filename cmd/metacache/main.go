// Command metacache validates the metadata cache embedded in a test
// document against the metadata of a completed test run, and regenerates
// the cache block when it is missing or out of sync.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/harnesskit/metacache/diag"
	"github.com/harnesskit/metacache/pass"
)

const (
	exitSuccess  = 0
	exitInvalid  = 2
	exitInternal = 10
)

const usage = "usage: metacache <check|render|write> [options]"

// maxInputSize bounds results and document reads (16 MiB).
const maxInputSize = 16 * 1024 * 1024

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return exitInvalid
	}
	switch args[0] {
	case "check":
		return cmdCheck(args[1:], stdin, stdout, stderr)
	case "render":
		return cmdRender(args[1:], stdin, stdout, stderr)
	case "write":
		return cmdWrite(args[1:], stdin, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, usage)
		return exitInvalid
	}
}

type flags struct {
	results string
	doc     string
	config  string
	strict  bool
	quiet   bool
	logMode bool
	help    bool
}

func parseFlags(args []string) (flags, error) {
	var f flags
	for i := 0; i < len(args); i++ {
		arg := args[i]
		takeValue := func() (string, error) {
			i++
			if i >= len(args) {
				return "", fmt.Errorf("option %s requires a value", arg)
			}
			return args[i], nil
		}
		var err error
		switch arg {
		case "--results", "-r":
			f.results, err = takeValue()
		case "--doc", "-d":
			f.doc, err = takeValue()
		case "--config", "-c":
			f.config, err = takeValue()
		case "--strict":
			f.strict = true
		case "--quiet", "-q":
			f.quiet = true
		case "--log":
			f.logMode = true
		case "--help", "-h":
			f.help = true
		default:
			if strings.HasPrefix(arg, "-") {
				return flags{}, fmt.Errorf("unknown option: %s", arg)
			}
			return flags{}, fmt.Errorf("unexpected argument: %s", arg)
		}
		if err != nil {
			return flags{}, err
		}
	}
	return f, nil
}

// resolve layers the optional config file under the command-line flags.
func resolve(f flags) (flags, error) {
	if f.config == "" {
		return f, nil
	}
	cfg, err := loadConfig(f.config)
	if err != nil {
		return flags{}, err
	}
	if f.results == "" {
		f.results = cfg.Results
	}
	if f.doc == "" {
		f.doc = cfg.Doc
	}
	if cfg.Strict {
		f.strict = true
	}
	return f, nil
}

func cmdCheck(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	f, err := parseFlags(args)
	if err == nil {
		f, err = resolve(f)
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitInvalid
	}
	if f.help {
		fmt.Fprintln(stderr, "usage: metacache check [--results FILE|-] [--doc FILE] [--config FILE] [--strict] [--log] [--quiet]")
		fmt.Fprintln(stderr, "  Validate the cache embedded in the document against the run results.")
		return exitSuccess
	}

	res, err := loadResults(f.results, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitInvalid
	}
	doc, err := loadDoc(f.doc)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitInvalid
	}

	sink, flush := makeSink(f, stdout)
	defer flush()

	out, err := pass.Run(res, doc, sink)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitInternal
	}

	switch out.Class {
	case pass.ClassSuccess:
		if !f.quiet {
			fmt.Fprintln(stderr, "ok")
		}
		return exitSuccess
	case pass.ClassCacheAbsent:
		if f.strict {
			return exitInvalid
		}
		return exitSuccess
	default:
		return exitInvalid
	}
}

func cmdRender(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	f, err := parseFlags(args)
	if err == nil {
		f, err = resolve(f)
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitInvalid
	}
	if f.help {
		fmt.Fprintln(stderr, "usage: metacache render [--results FILE|-]")
		fmt.Fprintln(stderr, "  Print the regenerated cache block for the run results.")
		return exitSuccess
	}

	res, err := loadResults(f.results, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitInvalid
	}

	block, err := renderBlock(res, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitInternal
	}
	fmt.Fprintln(stdout, block)
	return exitSuccess
}

func cmdWrite(args []string, stdin io.Reader, stderr io.Writer) int {
	f, err := parseFlags(args)
	if err == nil {
		f, err = resolve(f)
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitInvalid
	}
	if f.help {
		fmt.Fprintln(stderr, "usage: metacache write [--results FILE|-] --doc FILE")
		fmt.Fprintln(stderr, "  Splice the regenerated cache block into the document, atomically.")
		return exitSuccess
	}
	if f.doc == "" {
		fmt.Fprintln(stderr, "error: write requires --doc")
		return exitInvalid
	}

	res, err := loadResults(f.results, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitInvalid
	}
	doc, err := loadDoc(f.doc)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitInvalid
	}

	block, err := renderBlock(res, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitInternal
	}
	if err := writeAtomic(f.doc, spliceCacheBlock(doc, block)); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitInternal
	}
	return exitSuccess
}

// makeSink picks the diagnostic sink for check mode: colored terminal
// output by default, a structured logger with --log.
func makeSink(f flags, stdout io.Writer) (diag.Sink, func()) {
	if !f.logMode {
		return diag.NewTermSink(stdout), func() {}
	}
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	return diag.NewLogSink(logger), func() { _ = logger.Sync() }
}

func loadDoc(path string) ([]byte, error) {
	if path == "" {
		// No document given: same outcome as a document without a
		// cache element.
		return nil, nil
	}
	return readFileBounded(path)
}

func readFileBounded(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer func() { _ = file.Close() }()
	data, err := readBounded(file)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	return data, nil
}

func readBounded(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInputSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxInputSize {
		return nil, fmt.Errorf("input exceeds maximum size %d bytes", maxInputSize)
	}
	return data, nil
}
