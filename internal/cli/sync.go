package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/unsafe-docs/internal/specsync"
)

var syncApp = app{
	prog:    "spec-sync",
	summary: "materialize inherited HTTP specs across versions",
	commands: func(env *environment) []*Command {
		return []*Command{
			SyncGenerateCmd(env),
			SyncCleanCmd(env),
			SyncStatusCmd(env),
			SyncMigrateCmd(env),
			SyncDiffCmd(env),
			PrintConfigCmd(env),
		}
	},
}

func (e *environment) syncer() (*specsync.Syncer, error) {
	path := e.cfg.SpecFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.cfg.RootAbs, path)
	}

	return specsync.Open(path, e.logger)
}

func dryRunFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Bool("dry-run", false, "Report without writing files")

	return fs
}

// eachVersion runs fn for the requested versions, or all of them. A failing
// version is reported and the rest still run.
func eachVersion(ctx context.Context, o *IO, env *environment, args []string, fn func(s *specsync.Syncer, version string) error) error {
	s, err := env.syncer()
	if err != nil {
		return err
	}

	versions, err := s.Versions(args)
	if err != nil {
		return err
	}

	failed := 0

	for _, version := range versions {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := fn(s, version)
		if err != nil {
			o.ErrPrintln(o.Bad("error:"), version+":", err)

			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w (%d of %d)", errTargetFailed, failed, len(versions))
	}

	return nil
}

// SyncGenerateCmd returns the generate command of spec-sync.
func SyncGenerateCmd(env *environment) *Command {
	fs := dryRunFlags("generate")

	return &Command{
		Flags: fs,
		Usage: "generate [versions...] [flags]",
		Short: "Materialize inherited specs and retag",
		Long: "Write " + specsync.InheritedPrefix + "<name>" + specsync.Ext + " copies of every inherited spec, " +
			"delete copies that are no longer inherited, and retag owned specs with the version's tags.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			dryRun, _ := fs.GetBool("dry-run")

			return eachVersion(ctx, o, env, args, func(s *specsync.Syncer, version string) error {
				report, err := s.Generate(version, dryRun)
				if err != nil {
					return err
				}

				changes := 0

				for _, action := range report.Actions {
					if action.Kind == specsync.ActionKeep {
						continue
					}

					changes++

					o.Printf("%s: %s %s\n", version, o.Changed(string(action.Kind)), env.rel(action.Path))
				}

				for _, path := range report.Retagged {
					changes++

					o.Printf("%s: %s %s\n", version, o.Changed("retag"), env.rel(path))
				}

				if changes == 0 {
					o.Printf("%s: %s\n", version, o.OK("up to date"))
				}

				return nil
			})
		},
	}
}

// SyncCleanCmd returns the clean command of spec-sync.
func SyncCleanCmd(env *environment) *Command {
	fs := dryRunFlags("clean")

	return &Command{
		Flags: fs,
		Usage: "clean [versions...] [flags]",
		Short: "Remove all inherited copies",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			dryRun, _ := fs.GetBool("dry-run")

			return eachVersion(ctx, o, env, args, func(s *specsync.Syncer, version string) error {
				removed, err := s.Clean(version, dryRun)
				if err != nil {
					return err
				}

				for _, path := range removed {
					o.Printf("%s: %s %s\n", version, o.Changed("delete"), env.rel(path))
				}

				return nil
			})
		},
	}
}

// SyncStatusCmd returns the status command of spec-sync.
func SyncStatusCmd(env *environment) *Command {
	return &Command{
		Flags: flag.NewFlagSet("status", flag.ContinueOnError),
		Usage: "status [versions...]",
		Short: "Show owned, inherited and orphaned specs",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return eachVersion(ctx, o, env, args, func(s *specsync.Syncer, version string) error {
				st, err := s.Status(version)
				if err != nil {
					return err
				}

				o.Printf("%s:\n", version)
				o.Printf("  own: %s\n", list(st.Own))

				if len(st.Undeclared) > 0 {
					o.Printf("  undeclared: %s\n", list(st.Undeclared))
				}

				for _, inh := range st.Inherited {
					state := string(inh.State)
					if inh.State == specsync.CopyFresh {
						state = o.OK(state)
					} else {
						state = o.Changed(state)
					}

					o.Printf("  inherited: %s from %s (%s)\n", inh.Spec, inh.From, state)
				}

				for _, orphan := range st.Orphans {
					o.Printf("  orphan: %s\n", o.Bad(orphan))
					o.Warn(version+": orphaned inherited copy "+orphan, "run spec-sync generate "+version+" to remove it")
				}

				return nil
			})
		},
	}
}

func list(names []string) string {
	if len(names) == 0 {
		return "-"
	}

	return strings.Join(names, ", ")
}

// SyncMigrateCmd returns the migrate command of spec-sync.
func SyncMigrateCmd(env *environment) *Command {
	fs := dryRunFlags("migrate")

	return &Command{
		Flags: fs,
		Usage: "migrate [versions...] [flags]",
		Short: "Turn undeclared identical local specs into inherited copies",
		Long: "Replace local specs that are not declared in the spec file and are byte-identical " +
			"to the spec the version inherits with inherited copies. Differing files are reported and kept.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			dryRun, _ := fs.GetBool("dry-run")

			return eachVersion(ctx, o, env, args, func(s *specsync.Syncer, version string) error {
				report, err := s.Migrate(version, dryRun)
				if err != nil {
					return err
				}

				for _, spec := range report.Converted {
					o.Printf("%s: %s %s\n", version, o.Changed("migrate"), spec)
				}

				for _, spec := range report.Differing {
					o.Printf("%s: %s %s (differs from inherited spec)\n", version, o.Bad("keep"), spec)
				}

				for _, spec := range report.Unmatched {
					o.Printf("%s: keep %s (nothing inherited)\n", version, spec)
				}

				return nil
			})
		},
	}
}

// SyncDiffCmd returns the diff command of spec-sync.
func SyncDiffCmd(env *environment) *Command {
	return &Command{
		Flags: flag.NewFlagSet("diff", flag.ContinueOnError),
		Usage: "diff [versions...]",
		Short: "Show how owned specs differ from the specs they override",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return eachVersion(ctx, o, env, args, func(s *specsync.Syncer, version string) error {
				diffs, err := s.Diff(version)
				if err != nil {
					return err
				}

				for _, d := range diffs {
					o.Printf("%s", d.Text)
				}

				return nil
			})
		},
	}
}
