// Package report prints merge outcomes for people at a terminal.
package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/Lllllllleong/pdmerge/internal/models"
	"github.com/Lllllllleong/pdmerge/internal/services"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
	ansiBold   = "\x1b[1m"
)

// Tag labels a report title.
type Tag int

const (
	TagDone Tag = iota
	TagWarning
	TagError
)

func (t Tag) label() (string, string) {
	switch t {
	case TagWarning:
		return "warning:", ansiYellow
	case TagError:
		return "error:", ansiRed
	default:
		return "done:", ansiGreen
	}
}

// Printer writes reports to an output and an error stream.
type Printer struct {
	out, err io.Writer
	color    bool
}

// New returns a Printer writing to out and errOut. Colors are used only
// when both are terminals.
func New(out, errOut io.Writer) *Printer {
	return &Printer{out: out, err: errOut, color: isTerminal(out) && isTerminal(errOut)}
}

// NewPlain returns a Printer that never colors its output.
func NewPlain(out, errOut io.Writer) *Printer {
	return &Printer{out: out, err: errOut}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *Printer) paint(s, code string) string {
	if !p.color {
		return s
	}
	return code + s + ansiReset
}

func (p *Printer) title(w io.Writer, tag Tag, msg string) {
	label, code := tag.label()
	fmt.Fprintf(w, "%s %s\n", p.paint(label, ansiBold+code), msg)
}

// Warning prints a warning title to the error stream.
func (p *Printer) Warning(msg string) {
	p.title(p.err, TagWarning, msg)
}

// Success prints the merged files, the elapsed time and the output path.
func (p *Printer) Success(res *models.RunSuccess) {
	p.title(p.out, TagDone, fmt.Sprintf("merged %d file(s) into %s", len(res.Files), p.paint(res.Output, ansiCyan)))
	for _, f := range res.Files {
		fmt.Fprintf(p.out, "  %s %s\n", p.paint("+", ansiGreen), f)
	}
	fmt.Fprintf(p.out, "\n%d page(s) in %.2fs\n", res.Pages, res.Seconds)
}

// Error prints err to the error stream followed by a tip for its kind.
func (p *Printer) Error(err error) {
	p.title(p.err, TagError, err.Error())
	if tip := p.tip(err); tip != "" {
		fmt.Fprintf(p.err, "\n%s\n", tip)
	}
}

func (p *Printer) flag(s string) string { return "`" + p.paint(s, ansiGreen) + "`" }

func (p *Printer) tip(err error) string {
	var (
		buildErr *services.BuildError
		checkErr *services.CheckError
		runErr   *services.RunError
	)
	switch {
	case errors.As(err, &buildErr):
		switch buildErr.Kind {
		case services.InputIsEmpty, services.OutputIsEmpty:
			return p.inputOutputTip()
		case services.UnparseableDepth:
			return p.depthValueTip()
		case services.UnparseableOrderMode:
			return fmt.Sprintf("The %s flag accepts %s, %s or %s.",
				p.flag("--order-by"), p.paint("alpha", ansiCyan), p.paint("datetime", ansiCyan), p.paint("def", ansiCyan))
		}
	case errors.As(err, &checkErr):
		switch checkErr.Kind {
		case services.InputIsSingleFile, services.InputIsNotPdfFile,
			services.OutputIsDirectory, services.OutputIsNotPdfFile:
			return p.inputOutputTip()
		case services.InputIsDirectoryReference, services.OutputIsDirectoryReference:
			return lines(
				"Directory references aren't allowed, they make path exploits",
				"and endless traversal possible.",
				"",
				fmt.Sprintf("Avoid '%s' and '%s'. Use the dir/file name instead.", p.paint(".", ansiCyan), p.paint("..", ansiCyan)),
			)
		case services.DepthNotSpecified:
			return lines(
				"This occurs when trying to access a directory",
				fmt.Sprintf("without specifying the %s flag.", p.flag("--depth")),
				"",
				fmt.Sprintf("The depth must be greater than %s; PDF files are", p.paint("0", ansiCyan)),
				fmt.Sprintf("collected down to the %sth layer.", p.paint("N", ansiCyan)),
			)
		case services.InputRepetitionWithoutFlag:
			return p.repetitionTip()
		case services.ParentOutputWithoutFlag:
			return lines(
				"The directory of the output file doesn't exist.",
				"",
				fmt.Sprintf("If you're sure about what you're doing, use the %s flag.", p.flag("--parent")),
			)
		case services.CouldNotReadOrCheckFilePath:
			return p.unreadableTip()
		case services.OutputAlreadyExists:
			return lines(
				"This prevents accidentally overwriting a PDF file.",
				"",
				fmt.Sprintf("If you're sure about what you're doing, use the %s flag.", p.flag("--override")),
			)
		}
	case errors.As(err, &runErr):
		switch runErr.Kind {
		case services.EntryDoesNotExist, services.CouldNotReadEntry:
			return p.unreadableTip()
		case services.InputRepeatedAfterExpansion:
			return p.repetitionTip()
		case services.CouldNotLoadInput, services.RootPageNotFound, services.CatalogIsNone:
			return lines(
				"This occurs when a PDF file can't be parsed or has no page tree.",
				fmt.Sprintf("The reason can be %s, missing privileges,", p.paint("bad formatting", ansiRed)),
				"an empty file, etc.",
			)
		case services.CouldNotSaveTheOutput:
			return lines(
				fmt.Sprintf("This usually happens in environments with %s privileges.", p.paint("not enough", ansiRed)),
				"It can also be a memory or disk space issue.",
			)
		}
	}
	return ""
}

func (p *Printer) inputOutputTip() string {
	return lines(
		"Input should be at least 1 directory path or 2 pdf file paths.",
		"Output must be a single pdf file path.",
		"",
		fmt.Sprintf("%s: `%s`", p.paint("ie", ansiGreen), p.paint("pdmerge -i integrals.pdf derivatives.pdf -o math.pdf", ansiCyan)),
	)
}

func (p *Printer) depthValueTip() string {
	return lines(
		fmt.Sprintf("The %s flag must always be followed by a positive number", p.flag("--depth")),
		fmt.Sprintf("or the infinity repr (`%s`).", p.paint("*", ansiGreen)),
	)
}

func (p *Printer) repetitionTip() string {
	return lines(
		"This prevents duplicate content within the output file",
		fmt.Sprintf("(works for both %s and collected %s paths).", p.paint("input", ansiCyan), p.paint("file", ansiCyan)),
		"",
		fmt.Sprintf("If you're sure about what you're doing, use the %s flag.", p.flag("--allow-repetition")),
	)
}

func (p *Printer) unreadableTip() string {
	return lines(
		"This occurs when a file or directory path can't be read,",
		fmt.Sprintf("usually for %s or %s reasons.", p.paint("missing", ansiRed), p.paint("privilege", ansiRed)),
	)
}

func lines(ls ...string) string { return strings.Join(ls, "\n") }
