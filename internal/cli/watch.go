package cli

import (
	"context"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/unsafe-docs/internal/docs"
)

// WatchCmd returns the watch command.
func WatchCmd(env *environment) *Command {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.Duration("interval", 0, "Polling interval (default from config, 2s)")

	return &Command{
		Flags: fs,
		Usage: "watch [target] [flags]",
		Short: "Regenerate on change until interrupted",
		Long: "Poll the targets and regenerate index.yml and README.md whenever the build " +
			"signature or readme.yml changes. Errors are reported and polling continues. Stop with Ctrl-C.",
		Args: maxArgs(1),
		Exec: func(ctx context.Context, o *IO, args []string) error {
			targets, err := env.targets(args)
			if err != nil {
				return err
			}

			interval, _ := fs.GetDuration("interval")
			if interval <= 0 {
				interval = env.cfg.WatchInterval
			}

			o.Printf("watching %d target(s) every %s\n", len(targets), interval)

			p := env.processor()

			return p.Watch(ctx, targets, interval, func(ctx context.Context, target string) error {
				res, err := p.Generate(ctx, target, docs.Options{})
				if err != nil {
					if ctx.Err() == nil {
						o.ErrPrintln(o.Bad("error:"), env.rel(target)+":", err)
					}

					return nil
				}

				if res.Changed() {
					o.Printf("%s %s\n", time.Now().Format(time.TimeOnly), describe(o, env, res, false))
				}

				return nil
			})
		},
	}
}
