// Package docs runs the per-directory documentation pipeline: build the
// index, decide whether anything changed, render README.md and persist both.
package docs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/calvinalkan/unsafe-docs/internal/fsutil"
	"github.com/calvinalkan/unsafe-docs/internal/index"
	"github.com/calvinalkan/unsafe-docs/internal/outline"
	"github.com/calvinalkan/unsafe-docs/internal/render"
)

// ReadmeName is the generated document.
const ReadmeName = "README.md"

// LockName guards writes to one target.
const LockName = ".index.lock"

// Targets returns every directory at or below root that holds a readme.yml,
// sorted. Hidden and excluded directories are not descended into.
func Targets(root string, exclude []string) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}

	var targets []string

	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if entry.IsDir() {
			name := entry.Name()
			if path != root && (strings.HasPrefix(name, ".") || slices.Contains(exclude, name)) {
				return filepath.SkipDir
			}

			return nil
		}

		if entry.Name() == outline.FileName {
			targets = append(targets, filepath.Dir(path))
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	slices.Sort(targets)

	return targets, nil
}

// Processor runs the pipeline for single targets.
type Processor struct {
	Logger      *zap.Logger
	Exclude     []string
	LockTimeout time.Duration
}

// Options modify a single run.
type Options struct {
	DryRun bool
	Force  bool
}

// Result describes what a run computed and wrote.
type Result struct {
	Target      string
	Index       *index.Index
	Decision    index.Decision
	WroteIndex  bool
	WroteReadme bool
}

// Changed reports whether the run touched any file.
func (r Result) Changed() bool {
	return r.WroteIndex || r.WroteReadme
}

type state struct {
	readme      *outline.Readme
	outlineHash string
	prior       *index.Index
	fresh       *index.Index
	decision    index.Decision
}

func (p *Processor) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}

	return p.Logger
}

// load computes everything a run needs without touching the disk.
func (p *Processor) load(target string, force bool) (*state, error) {
	log := p.logger().With(zap.String("target", target))

	readme, raw, err := outline.Load(filepath.Join(target, outline.FileName))
	if err != nil {
		return nil, err
	}

	fresh, err := index.Build(target, index.Options{
		Exclude:   p.Exclude,
		Category:  readme.Category,
		Namespace: readme.Namespace,
	})
	if err != nil {
		return nil, err
	}

	log.Debug("index built",
		zap.Int("examples", len(fresh.Examples)),
		zap.Int("attachments", len(fresh.Attachments)),
		zap.String("signature", fresh.BuildSignature))

	prior, _ := index.Load(filepath.Join(target, index.FileName))

	readmeExists, err := fsutil.Exists(filepath.Join(target, ReadmeName))
	if err != nil {
		return nil, err
	}

	outlineHash := fsutil.HashBytes(raw)
	decision := index.Decide(prior, fresh, outlineHash, force, readmeExists)

	if prior != nil {
		fresh.LastReadmeFingerprint = prior.LastReadmeFingerprint
	}

	log.Debug("regeneration decision",
		zap.Bool("regenerate", decision.Regenerate),
		zap.Any("reasons", decision.Reasons))

	return &state{
		readme:      readme,
		outlineHash: outlineHash,
		prior:       prior,
		fresh:       fresh,
		decision:    decision,
	}, nil
}

// Index refreshes index.yml only. README.md is left untouched, so the
// recorded README fingerprint is carried over from the prior index.
func (p *Processor) Index(ctx context.Context, target string, opts Options) (Result, error) {
	err := ctx.Err()
	if err != nil {
		return Result{}, err
	}

	st, err := p.load(target, opts.Force)
	if err != nil {
		return Result{}, err
	}

	res := Result{Target: target, Index: st.fresh, Decision: st.decision}

	data, err := index.Marshal(st.fresh)
	if err != nil {
		return Result{}, err
	}

	if opts.DryRun {
		return res, nil
	}

	lock, err := fsutil.AcquireLock(filepath.Join(target, LockName), p.LockTimeout)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = lock.Close() }()

	res.WroteIndex, err = fsutil.WriteIfChanged(filepath.Join(target, index.FileName), data)
	if err != nil {
		return Result{}, err
	}

	return res, nil
}

// Generate refreshes index.yml and, when the decision says so, README.md.
// Both documents are fully computed before anything is written.
func (p *Processor) Generate(ctx context.Context, target string, opts Options) (Result, error) {
	err := ctx.Err()
	if err != nil {
		return Result{}, err
	}

	st, err := p.load(target, opts.Force)
	if err != nil {
		return Result{}, err
	}

	res := Result{Target: target, Index: st.fresh, Decision: st.decision}

	var readme []byte

	if st.decision.Regenerate {
		text, err := render.Render(st.fresh, st.readme, os.DirFS(target))
		if err != nil {
			return Result{}, err
		}

		readme = []byte(text)
		st.fresh.LastReadmeFingerprint = st.decision.ReadmeFingerprint
	}

	data, err := index.Marshal(st.fresh)
	if err != nil {
		return Result{}, err
	}

	if opts.DryRun {
		return res, nil
	}

	lock, err := fsutil.AcquireLock(filepath.Join(target, LockName), p.LockTimeout)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = lock.Close() }()

	// README first: if it fails the old index still marks the target stale.
	if readme != nil {
		res.WroteReadme, err = fsutil.WriteIfChanged(filepath.Join(target, ReadmeName), readme)
		if err != nil {
			return Result{}, err
		}
	}

	res.WroteIndex, err = fsutil.WriteIfChanged(filepath.Join(target, index.FileName), data)
	if err != nil {
		return Result{}, err
	}

	p.logger().Debug("generated",
		zap.String("target", target),
		zap.Bool("wrote_index", res.WroteIndex),
		zap.Bool("wrote_readme", res.WroteReadme))

	return res, nil
}
