package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/Lllllllleong/pdmerge/internal/gcp"
	"github.com/Lllllllleong/pdmerge/internal/models"
	"github.com/Lllllllleong/pdmerge/internal/report"
	"github.com/Lllllllleong/pdmerge/internal/services"
)

var version = "0.1.0"

const (
	exitOK    = 0
	exitBuild = 1
	exitCheck = 2
	exitRun   = 3
	exitUsage = 64
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, " ") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type options struct {
	req         models.MergeRequest
	noOptimize  bool
	workers     int
	logLevel    string
	logFormat   string
	showVersion bool
}

func newFlagSet(stderr io.Writer, opts *options) *flag.FlagSet {
	fs := flag.NewFlagSet("pdmerge merge", flag.ContinueOnError)
	fs.SetOutput(stderr)

	inputs := (*stringList)(&opts.req.Inputs)
	fs.Var(inputs, "i", "input PDF file or directory (repeatable)")
	fs.Var(inputs, "input", "input PDF file or directory (repeatable)")
	fs.StringVar(&opts.req.Output, "o", "", "output PDF file")
	fs.StringVar(&opts.req.Output, "output", "", "output PDF file")
	fs.BoolVar(&opts.req.Override, "override", false, "overwrite the output if it exists")
	fs.BoolVar(&opts.req.AllowRepetition, "allow-repetition", false, "allow the same file more than once")
	fs.StringVar(&opts.req.Depth, "d", "", "directory depth: a positive number or *")
	fs.StringVar(&opts.req.Depth, "depth", "", "directory depth: a positive number or *")
	fs.BoolVar(&opts.req.CreateParentDirs, "p", false, "create the output's parent directories")
	fs.BoolVar(&opts.req.CreateParentDirs, "parent", false, "create the output's parent directories")
	fs.StringVar(&opts.req.OrderBy, "order-by", "", "file order: alpha, datetime or def")
	fs.BoolVar(&opts.noOptimize, "no-optimize", !envBool("PDMERGE_OPTIMIZE", true), "skip the pdfcpu optimization pass")
	fs.IntVar(&opts.workers, "workers", gcp.GetEnvInt("PDMERGE_WORKERS", runtime.NumCPU()), "number of files decoded at once")
	fs.StringVar(&opts.logLevel, "log-level", gcp.GetEnv("PDMERGE_LOG_LEVEL", "warn"), "log level: debug, info, warn or error")
	fs.StringVar(&opts.logFormat, "log-format", gcp.GetEnv("PDMERGE_LOG_FORMAT", "text"), "log format: text or json")
	fs.BoolVar(&opts.showVersion, "version", false, "print the version and exit")
	return fs
}

// expandInputs rewrites "-i a.pdf b.pdf" into "-i a.pdf -i b.pdf" so that
// several inputs can follow a single flag.
func expandInputs(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		out = append(out, args[i])
		switch args[i] {
		case "-i", "--i", "-input", "--input":
		default:
			continue
		}
		if i+1 >= len(args) {
			break
		}
		i++
		out = append(out, args[i])
		for i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
			out = append(out, "-i", args[i])
		}
	}
	return out
}

func envBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(gcp.GetEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: pdmerge merge -i <input>... -o <output.pdf> [flags]")
		fmt.Fprintln(stderr, "Try `pdmerge merge -h` to get usage tips!")
		return exitUsage
	}
	switch args[0] {
	case "--version", "-version", "version":
		fmt.Fprintln(stdout, "pdmerge", version)
		return exitOK
	case "merge":
		args = args[1:]
	default:
		fmt.Fprintf(stderr, "unknown subcommand %q\n", args[0])
		return exitUsage
	}

	var opts options
	fs := newFlagSet(stderr, &opts)
	if err := fs.Parse(expandInputs(args)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if opts.showVersion {
		fmt.Fprintln(stdout, "pdmerge", version)
		return exitOK
	}
	opts.req.Inputs = append(opts.req.Inputs, fs.Args()...)

	logger, err := newLogger(stderr, opts.logLevel, opts.logFormat)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	slog.SetDefault(logger)

	printer := report.New(stdout, stderr)
	svc := services.NewMergeService(services.MergeConfig{
		Workers:  opts.workers,
		Optimize: !opts.noOptimize,
		Logger:   logger,
	})

	m, err := services.BuildMerge(opts.req)
	if err != nil {
		printer.Error(err)
		return exitBuild
	}
	logger.Debug("Merge arguments built", "merge", m.Describe())
	if err := m.Check(); err != nil {
		printer.Error(err)
		return exitCheck
	}
	res, err := svc.Run(context.Background(), m)
	if err != nil {
		printer.Error(err)
		return exitRun
	}
	printer.Success(res)
	return exitOK
}
