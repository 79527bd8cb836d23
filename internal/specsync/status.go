package specsync

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/calvinalkan/unsafe-docs/internal/fsutil"
)

// CopyState describes an inherited copy on disk.
type CopyState string

// Copy states.
const (
	CopyFresh   CopyState = "fresh"
	CopyStale   CopyState = "stale"
	CopyMissing CopyState = "missing"
)

// InheritedStatus is one spec a version inherits.
type InheritedStatus struct {
	Spec  string
	From  string
	State CopyState
}

// Status is the state of one version directory.
type Status struct {
	Version    string
	Own        []string // declared under specs
	Undeclared []string // local files not declared under specs
	Inherited  []InheritedStatus
	Orphans    []string // inherited copies not in the resolved set
}

// Status inspects version without changing anything.
func (s *Syncer) Status(version string) (*Status, error) {
	vs, err := NewResolver(s.Root, s.File).Resolve(version)
	if err != nil {
		return nil, err
	}

	declared := s.File.Versions[version].Specs

	st := &Status{Version: version, Own: slices.Sorted(slices.Values(declared))}

	own, err := ownFiles(s.dir(version))
	if err != nil {
		return nil, err
	}

	for _, spec := range own {
		if !slices.Contains(declared, spec) {
			st.Undeclared = append(st.Undeclared, spec)
		}
	}

	actions, err := s.plan(vs)
	if err != nil {
		return nil, err
	}

	for _, action := range actions {
		switch action.Kind {
		case ActionKeep:
			st.Inherited = append(st.Inherited, InheritedStatus{action.Spec, vs.Specs[action.Spec].Version, CopyFresh})
		case ActionWrite:
			state := CopyStale

			exists, err := fsutil.Exists(action.Path)
			if err != nil {
				return nil, err
			}

			if !exists {
				state = CopyMissing
			}

			st.Inherited = append(st.Inherited, InheritedStatus{action.Spec, vs.Specs[action.Spec].Version, state})
		case ActionDelete:
			st.Orphans = append(st.Orphans, action.Spec)
		}
	}

	return st, nil
}

// MigrateReport lists what Migrate did with undeclared local specs.
type MigrateReport struct {
	Version   string
	Converted []string // identical to the inherited source, now an inherited copy
	Differing []string // real overrides, left in place
	Unmatched []string // nothing to inherit from, left in place
}

// Migrate turns undeclared local specs that are byte-identical to what the
// version inherits into inherited copies.
func (s *Syncer) Migrate(version string, dryRun bool) (*MigrateReport, error) {
	v, ok := s.File.Versions[version]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVersion, version)
	}

	report := &MigrateReport{Version: version}

	inherited := map[string]Source{}

	if v.Inherits != "" {
		parent, err := NewResolver(s.Root, s.File).Resolve(v.Inherits)
		if err != nil {
			return nil, err
		}

		inherited = parent.Specs
	}

	own, err := ownFiles(s.dir(version))
	if err != nil {
		return nil, err
	}

	for _, spec := range own {
		if slices.Contains(v.Specs, spec) {
			continue
		}

		src, ok := inherited[spec]
		if !ok || slices.Contains(v.Exclude, spec) {
			report.Unmatched = append(report.Unmatched, spec)

			continue
		}

		path := OwnPath(s.Root, version, spec)

		local, err := os.ReadFile(path) //nolint:gosec // version directory
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		parent, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", src.Path, err)
		}

		if !bytes.Equal(local, parent) {
			report.Differing = append(report.Differing, spec)

			continue
		}

		report.Converted = append(report.Converted, spec)

		if dryRun {
			continue
		}

		_, err = fsutil.WriteIfChanged(InheritedPath(s.Root, version, spec), parent)
		if err != nil {
			return nil, err
		}

		_, err = fsutil.RemoveIfExists(path)
		if err != nil {
			return nil, err
		}
	}

	return report, nil
}

// FileDiff is the difference between an owned spec and the one it
// overrides.
type FileDiff struct {
	Spec string
	From string
	To   string
	Text string
}

// Diff returns unified diffs of every spec version owns that overrides an
// inherited one. Identical overrides are skipped.
func (s *Syncer) Diff(version string) ([]FileDiff, error) {
	v, ok := s.File.Versions[version]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVersion, version)
	}

	if v.Inherits == "" {
		return nil, nil
	}

	r := NewResolver(s.Root, s.File)

	vs, err := r.Resolve(version)
	if err != nil {
		return nil, err
	}

	parent, err := r.Resolve(v.Inherits)
	if err != nil {
		return nil, err
	}

	var diffs []FileDiff

	for _, spec := range vs.Names() {
		src := vs.Specs[spec]

		base, overrides := parent.Specs[spec]
		if src.Version != version || !overrides {
			continue
		}

		d, err := s.diffFiles(spec, base.Path, src.Path)
		if err != nil {
			return nil, err
		}

		if d.Text != "" {
			diffs = append(diffs, d)
		}
	}

	return diffs, nil
}

func (s *Syncer) diffFiles(spec, from, to string) (FileDiff, error) {
	a, err := os.ReadFile(from) //nolint:gosec // resolved spec path
	if err != nil {
		return FileDiff{}, fmt.Errorf("read %s: %w", from, err)
	}

	b, err := os.ReadFile(to) //nolint:gosec // resolved spec path
	if err != nil {
		return FileDiff{}, fmt.Errorf("read %s: %w", to, err)
	}

	d := FileDiff{Spec: spec, From: s.rel(from), To: s.rel(to)}

	d.Text, err = difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a)),
		B:        difflib.SplitLines(string(b)),
		FromFile: d.From,
		ToFile:   d.To,
		Context:  3,
	})
	if err != nil {
		return FileDiff{}, fmt.Errorf("diff %s: %w", spec, err)
	}

	return d, nil
}

func (s *Syncer) rel(path string) string {
	rel, ok := strings.CutPrefix(path, s.Root+string(os.PathSeparator))
	if !ok {
		return path
	}

	return rel
}
