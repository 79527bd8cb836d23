package specsync

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"go.uber.org/zap"

	"github.com/calvinalkan/unsafe-docs/internal/fsutil"
)

// ActionKind says what Apply does with one file.
type ActionKind string

// Plan actions.
const (
	ActionWrite  ActionKind = "write"
	ActionDelete ActionKind = "delete"
	ActionKeep   ActionKind = "keep"
)

// Action is one planned change to an inherited copy.
type Action struct {
	Kind    ActionKind
	Version string
	Spec    string
	Path    string // the inherited copy
	Source  string // file the copy is made from; empty for deletes
}

// Syncer operates on the versions declared in one spec.yml.
type Syncer struct {
	Root   string // directory holding spec.yml and the version directories
	File   *File
	Logger *zap.Logger
}

// Open loads the spec file at path.
func Open(path string, logger *zap.Logger) (*Syncer, error) {
	file, err := Load(path)
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Syncer{Root: root, File: file, Logger: logger}, nil
}

// Versions returns names in declaration order, or names checked against
// spec.yml when given.
func (s *Syncer) Versions(names []string) ([]string, error) {
	if len(names) == 0 {
		return slices.Clone(s.File.Order), nil
	}

	for _, name := range names {
		if _, ok := s.File.Versions[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownVersion, name)
		}
	}

	return names, nil
}

func (s *Syncer) dir(version string) string {
	return filepath.Join(s.Root, version)
}

// Plan computes the changes that bring the inherited copies of version in
// line with its resolved spec set. Owned files never appear in a plan.
func (s *Syncer) Plan(version string) ([]Action, error) {
	vs, err := NewResolver(s.Root, s.File).Resolve(version)
	if err != nil {
		return nil, err
	}

	return s.plan(vs)
}

func (s *Syncer) plan(vs *VersionSpec) ([]Action, error) {
	var actions []Action

	for _, spec := range vs.Names() {
		src := vs.Specs[spec]
		if src.Version == vs.Name {
			continue
		}

		target := InheritedPath(s.Root, vs.Name, spec)

		same, err := sameContent(src.Path, target)
		if err != nil {
			return nil, err
		}

		kind := ActionWrite
		if same {
			kind = ActionKeep
		}

		actions = append(actions, Action{Kind: kind, Version: vs.Name, Spec: spec, Path: target, Source: src.Path})
	}

	existing, err := inheritedFiles(s.dir(vs.Name))
	if err != nil {
		return nil, err
	}

	for _, spec := range existing {
		if src, ok := vs.Specs[spec]; ok && src.Version != vs.Name {
			continue
		}

		actions = append(actions, Action{
			Kind:    ActionDelete,
			Version: vs.Name,
			Spec:    spec,
			Path:    InheritedPath(s.Root, vs.Name, spec),
		})
	}

	sort.Slice(actions, func(i, j int) bool { return actions[i].Path < actions[j].Path })

	return actions, nil
}

func sameContent(source, target string) (bool, error) {
	want, err := os.ReadFile(source) //nolint:gosec // resolved spec path
	if err != nil {
		return false, fmt.Errorf("read %s: %w", source, err)
	}

	have, err := os.ReadFile(target) //nolint:gosec // resolved spec path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("read %s: %w", target, err)
	}

	return bytes.Equal(want, have), nil
}

// Apply executes actions. It reports how many files changed.
func (s *Syncer) Apply(actions []Action) (int, error) {
	changed := 0

	for _, action := range actions {
		switch action.Kind {
		case ActionWrite:
			data, err := os.ReadFile(action.Source)
			if err != nil {
				return changed, fmt.Errorf("read %s: %w", action.Source, err)
			}

			err = os.MkdirAll(filepath.Dir(action.Path), 0o750)
			if err != nil {
				return changed, fmt.Errorf("create %s: %w", filepath.Dir(action.Path), err)
			}

			wrote, err := fsutil.WriteIfChanged(action.Path, data)
			if err != nil {
				return changed, err
			}

			if wrote {
				changed++
			}
		case ActionDelete:
			removed, err := fsutil.RemoveIfExists(action.Path)
			if err != nil {
				return changed, err
			}

			if removed {
				changed++
			}
		case ActionKeep:
		}

		s.Logger.Debug("spec action",
			zap.String("version", action.Version),
			zap.String("spec", action.Spec),
			zap.String("action", string(action.Kind)))
	}

	return changed, nil
}

// Report summarizes a generate run for one version.
type Report struct {
	Version  string
	Actions  []Action
	Retagged []string // owned files whose tags changed
}

// Generate materializes inherited copies and retags owned specs. With
// dryRun nothing is written but the report is the same.
func (s *Syncer) Generate(version string, dryRun bool) (*Report, error) {
	vs, err := NewResolver(s.Root, s.File).Resolve(version)
	if err != nil {
		return nil, err
	}

	actions, err := s.plan(vs)
	if err != nil {
		return nil, err
	}

	report := &Report{Version: version, Actions: actions}

	if !dryRun {
		_, err = s.Apply(actions)
		if err != nil {
			return nil, err
		}
	}

	retagged, err := s.retag(vs, dryRun)
	if err != nil {
		return nil, err
	}

	report.Retagged = retagged

	return report, nil
}

func (s *Syncer) retag(vs *VersionSpec, dryRun bool) ([]string, error) {
	if len(vs.Tags) == 0 {
		return nil, nil
	}

	own, err := ownFiles(s.dir(vs.Name))
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(vs.Specs)+len(own))
	for _, spec := range vs.Names() {
		paths = append(paths, vs.Specs[spec].Path)
	}

	for _, spec := range own {
		paths = append(paths, OwnPath(s.Root, vs.Name, spec))
	}

	referenced := map[string]bool{}
	contents := map[string][]byte{}

	for _, path := range paths {
		if _, seen := contents[path]; seen {
			continue
		}

		data, err := os.ReadFile(path) //nolint:gosec // resolved spec path
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		contents[path] = data

		for _, ref := range References(data) {
			referenced[ref] = true
		}
	}

	var changed []string

	for _, spec := range own {
		path := OwnPath(s.Root, vs.Name, spec)
		data := contents[path]

		tagged := Retag(data, vs.Tags, referenced)
		if bytes.Equal(tagged, data) {
			continue
		}

		changed = append(changed, path)

		if dryRun {
			continue
		}

		_, err := fsutil.WriteIfChanged(path, tagged)
		if err != nil {
			return nil, err
		}
	}

	return changed, nil
}

// Clean removes every inherited copy of version and returns their paths.
func (s *Syncer) Clean(version string, dryRun bool) ([]string, error) {
	if _, ok := s.File.Versions[version]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVersion, version)
	}

	specs, err := inheritedFiles(s.dir(version))
	if err != nil {
		return nil, err
	}

	removed := make([]string, 0, len(specs))

	for _, spec := range specs {
		path := InheritedPath(s.Root, version, spec)
		removed = append(removed, path)

		if dryRun {
			continue
		}

		_, err := fsutil.RemoveIfExists(path)
		if err != nil {
			return removed, err
		}
	}

	return removed, nil
}
