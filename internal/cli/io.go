package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// IO handles command output. Results go to stdout; errors and warnings go
// to stderr. Warnings are printed both before the first stdout line and at
// the end, and any warning turns the exit code into 1.
type IO struct {
	out      io.Writer
	errOut   io.Writer
	warnings []string
	started  bool

	green  *color.Color
	yellow *color.Color
	red    *color.Color
}

// NewIO creates a new IO instance. colorMode is auto, always or never; auto
// colors only when out is a terminal and NO_COLOR is unset.
func NewIO(out, errOut io.Writer, colorMode string, env map[string]string) *IO {
	o := &IO{
		out:    out,
		errOut: errOut,
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed, color.Bold),
	}

	enabled := false

	switch colorMode {
	case "always":
		enabled = true
	case "never":
	default:
		_, noColor := env["NO_COLOR"]
		enabled = !noColor && isTerminal(out)
	}

	for _, c := range []*color.Color{o.green, o.yellow, o.red} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return o
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// OK colors a success word.
func (o *IO) OK(s string) string { return o.green.Sprint(s) }

// Changed colors a word describing a modification.
func (o *IO) Changed(s string) string { return o.yellow.Sprint(s) }

// Bad colors a failure word.
func (o *IO) Bad(s string) string { return o.red.Sprint(s) }

// Warn records an actionable warning: what went wrong and what to do.
// Output to stdout still occurs; warnings only flag the run.
func (o *IO) Warn(issue string, action string) {
	o.warnings = append(o.warnings, fmt.Sprintf("%s: %s", issue, action))
}

// Println writes to stdout. On first call, any collected warnings
// are printed to stderr first.
func (o *IO) Println(a ...any) {
	o.flushWarningsStart()
	_, _ = fmt.Fprintln(o.out, a...)
}

// Printf writes formatted output to stdout.
func (o *IO) Printf(format string, a ...any) {
	o.flushWarningsStart()
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// ErrPrintln writes to stderr.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// Out is the stdout writer, for commands that stream.
func (o *IO) Out() io.Writer {
	return o.out
}

// Finish prints warnings to stderr and returns the exit code, 1 if any
// warning was recorded.
func (o *IO) Finish() int {
	o.flushWarningsStart()

	for _, w := range o.warnings {
		_, _ = fmt.Fprintln(o.errOut, "warning:", w)
	}

	if len(o.warnings) > 0 {
		return 1
	}

	return 0
}

func (o *IO) flushWarningsStart() {
	if !o.started && len(o.warnings) > 0 {
		for _, w := range o.warnings {
			_, _ = fmt.Fprintln(o.errOut, "warning:", w)
		}

		o.started = true
	}
}
