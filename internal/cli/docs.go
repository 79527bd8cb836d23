package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/unsafe-docs/internal/docs"
	"github.com/calvinalkan/unsafe-docs/internal/fsutil"
	"github.com/calvinalkan/unsafe-docs/internal/index"
	"github.com/calvinalkan/unsafe-docs/internal/outline"
)

var (
	errNotTarget    = errors.New("not a documentation directory (no " + outline.FileName + ")")
	errNoTargets    = errors.New("no documentation directories found")
	errTargetFailed = errors.New("one or more targets failed")
	errTargetsStale = errors.New("one or more targets are stale")
)

var docsApp = app{
	prog:    "unsafe-docs",
	summary: "index annotated examples and generate README.md",
	commands: func(env *environment) []*Command {
		return []*Command{
			ListCmd(env),
			IndexCmd(env),
			GenerateCmd(env),
			AllCmd(env),
			WatchCmd(env),
			VerifyCmd(env),
			ShowCmd(env),
			PrintConfigCmd(env),
		}
	},
}

func (e *environment) processor() *docs.Processor {
	return &docs.Processor{
		Logger:      e.logger,
		Exclude:     e.cfg.ExcludeDirs,
		LockTimeout: e.cfg.LockTimeout,
	}
}

// targets returns the named target or, without one, every target below the
// configured root.
func (e *environment) targets(args []string) ([]string, error) {
	switch len(args) {
	case 0:
		targets, err := docs.Targets(e.cfg.RootAbs, e.cfg.ExcludeDirs)
		if err != nil {
			return nil, err
		}

		if len(targets) == 0 {
			return nil, fmt.Errorf("%w below %s", errNoTargets, e.cfg.RootAbs)
		}

		return targets, nil
	case 1:
		target, err := e.target(args[0])
		if err != nil {
			return nil, err
		}

		return []string{target}, nil
	default:
		return nil, errTooManyArgs
	}
}

func (e *environment) target(arg string) (string, error) {
	target := e.abs(arg)

	exists, err := fsutil.Exists(filepath.Join(target, outline.FileName))
	if err != nil {
		return "", err
	}

	if !exists {
		return "", fmt.Errorf("%s: %w", arg, errNotTarget)
	}

	return target, nil
}

func pipelineFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Bool("dry-run", false, "Compute and report without writing files")
	fs.Bool("force", false, "Regenerate even when nothing changed")

	return fs
}

func pipelineOptions(fs *flag.FlagSet) docs.Options {
	dryRun, _ := fs.GetBool("dry-run")
	force, _ := fs.GetBool("force")

	return docs.Options{DryRun: dryRun, Force: force}
}

// eachTarget runs fn for every target. A failing target is reported and
// the batch continues; the command fails at the end.
func eachTarget(ctx context.Context, o *IO, env *environment, targets []string, fn func(target string) error) error {
	failed := 0

	for _, target := range targets {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := fn(target)
		if err != nil {
			o.ErrPrintln(o.Bad("error:"), env.rel(target)+":", err)

			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w (%d of %d)", errTargetFailed, failed, len(targets))
	}

	return nil
}

// ListCmd returns the list command.
func ListCmd(env *environment) *Command {
	return &Command{
		Flags: flag.NewFlagSet("list", flag.ContinueOnError),
		Usage: "list",
		Short: "List documentation directories",
		Long:  "List every directory below the root that holds a " + outline.FileName + ", with the number of indexed examples.",
		Args:  noArgs,
		Exec: func(_ context.Context, o *IO, _ []string) error {
			targets, err := env.targets(nil)
			if err != nil {
				return err
			}

			for _, target := range targets {
				idx, ok := index.Load(filepath.Join(target, index.FileName))
				if !ok {
					o.Printf("%s\t%s\n", env.rel(target), o.Changed("not indexed"))

					continue
				}

				o.Printf("%s\t%d examples\n", env.rel(target), len(idx.Examples))
			}

			return nil
		},
	}
}

// IndexCmd returns the index command.
func IndexCmd(env *environment) *Command {
	fs := pipelineFlags("index")

	return &Command{
		Flags: fs,
		Usage: "index [target] [flags]",
		Short: "Refresh index.yml",
		Long:  "Scan sources for annotations and refresh index.yml. README.md is not touched.",
		Args:  maxArgs(1),
		Exec: func(ctx context.Context, o *IO, args []string) error {
			targets, err := env.targets(args)
			if err != nil {
				return err
			}

			opts := pipelineOptions(fs)
			p := env.processor()

			return eachTarget(ctx, o, env, targets, func(target string) error {
				res, err := p.Index(ctx, target, opts)
				if err != nil {
					return err
				}

				status := o.OK("unchanged")
				if opts.DryRun || res.WroteIndex {
					status = o.Changed(verb(opts.DryRun, "updated"))
				}

				o.Printf("%s: %s %s (%d examples)\n", env.rel(target), index.FileName, status, len(res.Index.Examples))

				return nil
			})
		},
	}
}

// GenerateCmd returns the generate command.
func GenerateCmd(env *environment) *Command {
	fs := pipelineFlags("generate")

	return &Command{
		Flags: fs,
		Usage: "generate [target] [flags]",
		Short: "Refresh index.yml and README.md",
		Long: "Refresh index.yml and regenerate README.md when sources, attachments or " +
			outline.FileName + " changed. Without a target every directory below the root is processed.",
		Args: maxArgs(1),
		Exec: func(ctx context.Context, o *IO, args []string) error {
			targets, err := env.targets(args)
			if err != nil {
				return err
			}

			return generate(ctx, o, env, targets, pipelineOptions(fs))
		},
	}
}

// AllCmd returns the all command.
func AllCmd(env *environment) *Command {
	fs := pipelineFlags("all")

	return &Command{
		Flags: fs,
		Usage: "all [flags]",
		Short: "Generate every documentation directory",
		Args:  noArgs,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			targets, err := env.targets(nil)
			if err != nil {
				return err
			}

			return generate(ctx, o, env, targets, pipelineOptions(fs))
		},
	}
}

func generate(ctx context.Context, o *IO, env *environment, targets []string, opts docs.Options) error {
	p := env.processor()

	return eachTarget(ctx, o, env, targets, func(target string) error {
		res, err := p.Generate(ctx, target, opts)
		if err != nil {
			return err
		}

		o.Println(describe(o, env, res, opts.DryRun))

		return nil
	})
}

func describe(o *IO, env *environment, res docs.Result, dryRun bool) string {
	if !res.Decision.Regenerate {
		return fmt.Sprintf("%s: %s", env.rel(res.Target), o.OK("up to date"))
	}

	reasons := make([]string, 0, len(res.Decision.Reasons))
	for _, r := range res.Decision.Reasons {
		reasons = append(reasons, string(r))
	}

	word := verb(dryRun, "regenerated")
	if !dryRun && !res.WroteReadme {
		word = "unchanged"
	}

	return fmt.Sprintf("%s: %s %s (%s)", env.rel(res.Target), docs.ReadmeName, o.Changed(word), strings.Join(reasons, ", "))
}

func verb(dryRun bool, done string) string {
	if dryRun {
		return "would be " + done
	}

	return done
}

// VerifyCmd returns the verify command.
func VerifyCmd(env *environment) *Command {
	return &Command{
		Flags: flag.NewFlagSet("verify", flag.ContinueOnError),
		Usage: "verify [target]",
		Short: "Check that index.yml and README.md are current",
		Long: "Compare persisted index.yml and README.md against the sources without writing anything. " +
			"Exits 1 if any target is stale.",
		Args: maxArgs(1),
		Exec: func(ctx context.Context, o *IO, args []string) error {
			targets, err := env.targets(args)
			if err != nil {
				return err
			}

			p := env.processor()
			stale := 0

			err = eachTarget(ctx, o, env, targets, func(target string) error {
				problems, err := p.Verify(target)
				if err != nil {
					return err
				}

				if len(problems) == 0 {
					o.Printf("%s: %s\n", env.rel(target), o.OK("ok"))

					return nil
				}

				stale++

				for _, problem := range problems {
					o.Printf("%s: %s: %s\n", env.rel(target), o.Bad(string(problem.Kind)), problem.Detail)
				}

				return nil
			})
			if err != nil {
				return err
			}

			if stale > 0 {
				return fmt.Errorf("%w (%d of %d)", errTargetsStale, stale, len(targets))
			}

			return nil
		},
	}
}

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(env *environment) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration and which files it was loaded from.",
		Args:  noArgs,
		Exec: func(_ context.Context, o *IO, _ []string) error {
			for _, line := range env.cfg.Lines() {
				o.Println(line)
			}

			return nil
		},
	}
}
