package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/calvinalkan/unsafe-docs/internal/config"
)

// environment is filled in after global flags and config are resolved.
// Commands capture a pointer to it when they are constructed.
type environment struct {
	in     io.Reader
	cfg    config.Config
	logger *zap.Logger
	env    map[string]string
}

// abs resolves a user supplied path against the effective working dir.
func (e *environment) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Join(e.cfg.EffectiveCwd, path)
}

// rel shortens path for display, relative to the configured root.
func (e *environment) rel(path string) string {
	rel, err := filepath.Rel(e.cfg.RootAbs, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}

	return rel
}

// app describes one binary.
type app struct {
	prog     string
	summary  string
	commands func(env *environment) []*Command
}

// Run is the entry point of the documentation tool. Returns exit code.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	return runApp(docsApp, in, out, errOut, args, env, sigCh)
}

// RunSync is the entry point of the spec synchronizer. Returns exit code.
func RunSync(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	return runApp(syncApp, in, out, errOut, args, env, sigCh)
}

type globalFlags struct {
	set        *flag.FlagSet
	workDir    *string
	configPath *string
	root       *string
	color      *string
	verbose    *bool
	help       *bool
}

func newGlobalFlags(prog string) globalFlags {
	set := flag.NewFlagSet(prog, flag.ContinueOnError)
	set.SetInterspersed(false)
	set.SetOutput(&strings.Builder{})

	return globalFlags{
		set:        set,
		workDir:    set.StringP("cwd", "C", "", "Run as if started in `dir`"),
		configPath: set.StringP("config", "c", "", "Use specified config `file`"),
		root:       set.String("root", "", "Documentation root `dir` (overrides config)"),
		color:      set.String("color", "", "Color output: auto|always|never"),
		verbose:    set.BoolP("verbose", "v", false, "Log pipeline details to stderr"),
		help:       set.BoolP("help", "h", false, "Show help"),
	}
}

func runApp(a app, in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	if env == nil {
		env = map[string]string{}
	}

	globals := newGlobalFlags(a.prog)
	shared := &environment{in: in, env: env}
	commands := a.commands(shared)

	if len(args) > 0 {
		args = args[1:]
	}

	err := globals.set.Parse(args)
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fprintln(errOut, "error:", err)
		fprintln(errOut)
		printUsage(errOut, a, globals, commands)

		return 1
	}

	rest := globals.set.Args()

	if errors.Is(err, flag.ErrHelp) || *globals.help || len(rest) == 0 {
		printUsage(out, a, globals, commands)

		return 0
	}

	var cmd *Command

	for _, c := range commands {
		if c.Name() == rest[0] {
			cmd = c
		}
	}

	if cmd == nil {
		fprintln(errOut, "error: unknown command:", rest[0])
		fprintln(errOut)
		printUsage(errOut, a, globals, commands)

		return 1
	}

	cfg, err := config.Load(config.LoadInput{
		WorkDirOverride: *globals.workDir,
		ConfigPath:      *globals.configPath,
		RootOverride:    *globals.root,
		ColorOverride:   *globals.color,
		Env:             env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	logger := newLogger(errOut, *globals.verbose)
	defer func() { _ = logger.Sync() }()

	shared.cfg = cfg
	shared.logger = logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				logger.Debug("interrupted")
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	o := NewIO(out, errOut, cfg.Color, env)

	return cmd.Run(ctx, o, a.prog, rest[1:])
}

// newLogger writes human readable log lines to w. Without verbose only
// warnings and errors get through.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.TimeKey = ""

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(w), level)

	return zap.New(core)
}

func printUsage(w io.Writer, a app, globals globalFlags, commands []*Command) {
	fprintln(w, a.prog, "-", a.summary)
	fprintln(w)
	fprintln(w, "Usage:", a.prog, "[global flags] <command> [args]")
	fprintln(w)
	fprintln(w, "Global flags:")

	var buf strings.Builder
	globals.set.SetOutput(&buf)
	globals.set.PrintDefaults()
	globals.set.SetOutput(&strings.Builder{})
	_, _ = fmt.Fprint(w, buf.String())

	fprintln(w)
	fprintln(w, "Commands:")

	for _, c := range commands {
		fprintln(w, c.HelpLine())
	}
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}
