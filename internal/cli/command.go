package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command is one subcommand of a program. Help output is derived from
// Usage, Short, Long and the flag set.
type Command struct {
	Flags *flag.FlagSet

	// Usage starts with the command name, e.g. "show <target> [id] [flags]".
	Usage string

	// Short is listed in the program help; Long (or Short) in command help.
	Short string
	Long  string

	// Args validates positional arguments before Exec. Nil accepts any.
	Args func(args []string) error

	Exec func(ctx context.Context, o *IO, args []string) error
}

var (
	errTooManyArgs   = errors.New("too many arguments")
	errTargetMissing = errors.New("target is required")
)

func noArgs(args []string) error {
	return maxArgs(0)(args)
}

func maxArgs(n int) func([]string) error {
	return func(args []string) error {
		if len(args) > n {
			return fmt.Errorf("%w: %s", errTooManyArgs, strings.Join(args[n:], " "))
		}

		return nil
	}
}

// targetAndMax requires a leading target argument and at most n arguments.
func targetAndMax(n int) func([]string) error {
	return func(args []string) error {
		if len(args) == 0 {
			return errTargetMissing
		}

		return maxArgs(n)(args)
	}
}

// Name is the first word of Usage.
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")

	return name
}

// HelpLine is the command's row in the program help.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-28s %s", c.Usage, c.Short)
}

func (c *Command) description() string {
	if c.Long != "" {
		return c.Long
	}

	return c.Short
}

// PrintHelp prints "<prog> <cmd> --help" output.
func (c *Command) PrintHelp(o *IO, prog string) {
	o.Printf("Usage: %s %s\n\n%s\n", prog, c.Usage, c.description())

	if c.Flags == nil || !c.Flags.HasFlags() {
		return
	}

	var buf strings.Builder
	c.Flags.SetOutput(&buf)
	c.Flags.PrintDefaults()
	o.Printf("\nFlags:\n%s", buf.String())
}

// Run parses args, validates positionals and runs Exec. The result is the
// process exit code.
func (c *Command) Run(ctx context.Context, o *IO, prog string, args []string) int {
	c.Flags.SetOutput(io.Discard)

	if err := c.Flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(o, prog)

			return 0
		}

		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.PrintHelp(o, prog)

		return 1
	}

	positional := c.Flags.Args()

	if c.Args != nil {
		if err := c.Args(positional); err != nil {
			o.ErrPrintln("error:", err)

			return 1
		}
	}

	if err := c.Exec(ctx, o, positional); err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	return o.Finish()
}
