package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/unsafe-docs/internal/example"
	"github.com/calvinalkan/unsafe-docs/internal/index"
	"github.com/calvinalkan/unsafe-docs/internal/render"
)

var errUnknownExample = errors.New("unknown example")

// ShowCmd returns the show command.
func ShowCmd(env *environment) *Command {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.BoolP("interactive", "i", false, "Browse examples at a prompt")

	return &Command{
		Flags: fs,
		Usage: "show <target> [id] [flags]",
		Short: "Show indexed examples",
		Long: "Scan target and print its examples, or one example with its code. " +
			"With --interactive, read example ids from a prompt.",
		Args: targetAndMax(2),
		Exec: func(ctx context.Context, o *IO, args []string) error {
			target, err := env.target(args[0])
			if err != nil {
				return err
			}

			idx, err := index.Build(target, index.Options{Exclude: env.cfg.ExcludeDirs})
			if err != nil {
				return err
			}

			if interactive, _ := fs.GetBool("interactive"); interactive {
				return browse(ctx, o, env, idx)
			}

			if len(args) == 1 {
				printSummary(o, env, idx)

				return nil
			}

			ex, err := lookupExample(idx, args[1])
			if err != nil {
				return err
			}

			printExample(o, ex)

			return nil
		},
	}
}

func lookupExample(idx *index.Index, arg string) (*example.Example, error) {
	id, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", errUnknownExample, arg)
	}

	ex, ok := idx.Examples[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", errUnknownExample, id)
	}

	return ex, nil
}

func printSummary(o *IO, env *environment, idx *index.Index) {
	o.Printf("target: %s\n", env.rel(idx.Root))
	o.Printf("examples: %d\n", len(idx.Examples))
	o.Printf("attachments: %d\n", len(idx.Attachments))
	o.Printf("signature: %s\n", idx.BuildSignature)

	if len(idx.Examples) == 0 {
		return
	}

	o.Println()
	printTable(o, idx)
}

func printTable(o *IO, idx *index.Index) {
	tw := tabwriter.NewWriter(o.Out(), 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(tw, "ID\tKIND\tPARTS\tSOURCE\tTITLE")

	for _, id := range idx.SortedIDs() {
		ex := idx.Examples[id]
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", id, ex.Kind, len(ex.Parts), render.DeepLink(ex), ex.DisplayTitle())
	}

	_ = tw.Flush()
}

func printExample(o *IO, ex *example.Example) {
	o.Printf("Example %d: %s\n", ex.ID, ex.DisplayTitle())
	o.Printf("kind: %s\n", ex.Kind)
	o.Printf("language: %s\n", ex.Language)

	if ex.RequestDetails != "" {
		o.Printf("request-details: %s\n", ex.RequestDetails)
	}

	o.Printf("fingerprint: %s\n", ex.Fingerprint)

	if notes := render.Fold(ex.Notes); notes != "" {
		o.Println()
		o.Println(notes)
	}

	for _, part := range ex.Parts {
		o.Println()
		o.Printf("--- part %d: %s#L%d-L%d\n", part.Number, part.Rel, part.Span.Start, part.Span.End)

		for _, line := range part.Code {
			o.Println(line)
		}
	}
}

// prompter is the subset of liner.State the browser needs.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

var browseCommands = []string{"list", "quit"}

func newPrompter(in io.Reader, out io.Writer, ids []string) prompter {
	if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		state := liner.NewLiner()
		state.SetCtrlCAborts(true)
		state.SetCompleter(func(line string) []string {
			var matches []string

			for _, candidate := range append(ids, browseCommands...) {
				if strings.HasPrefix(candidate, line) {
					matches = append(matches, candidate)
				}
			}

			return matches
		})

		return state
	}

	return &linePrompter{scanner: bufio.NewScanner(in), out: out}
}

// linePrompter reads plain lines when input is not a terminal.
type linePrompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func (p *linePrompter) Prompt(prompt string) (string, error) {
	_, _ = io.WriteString(p.out, prompt)

	if !p.scanner.Scan() {
		_, _ = io.WriteString(p.out, "\n")

		err := p.scanner.Err()
		if err == nil {
			err = io.EOF
		}

		return "", err
	}

	return p.scanner.Text(), nil
}

func (p *linePrompter) AppendHistory(string) {}

func (p *linePrompter) Close() error { return nil }

func browse(ctx context.Context, o *IO, env *environment, idx *index.Index) error {
	if env.in == nil {
		env.in = strings.NewReader("")
	}

	ids := make([]string, 0, len(idx.Examples))
	for _, id := range idx.SortedIDs() {
		ids = append(ids, strconv.Itoa(id))
	}

	p := newPrompter(env.in, o.Out(), ids)
	defer func() { _ = p.Close() }()

	o.Printf("%s: %d examples. Enter an id, 'list' or 'quit'.\n", env.rel(idx.Root), len(idx.Examples))

	for ctx.Err() == nil {
		line, err := p.Prompt("show> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		p.AppendHistory(line)

		switch line {
		case "quit", "exit", "q":
			return nil
		case "list", "ls":
			printTable(o, idx)
		default:
			ex, err := lookupExample(idx, line)
			if err != nil {
				o.Println(err)

				continue
			}

			printExample(o, ex)
		}
	}

	return nil
}
