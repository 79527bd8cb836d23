package specsync

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Source is where a resolved spec's content lives.
type Source struct {
	Version string
	Path    string
	// Declared is false for a local file that overrides an inherited spec
	// without being listed under specs.
	Declared bool
}

// VersionSpec is the flattened spec set of one version.
type VersionSpec struct {
	Name  string
	Tags  []string
	Specs map[string]Source
}

// Names returns the resolved spec names sorted.
func (v *VersionSpec) Names() []string {
	return slices.Sorted(maps.Keys(v.Specs))
}

// Resolver flattens inheritance. Results are memoized in the resolver, so
// use one resolver per operation.
type Resolver struct {
	root     string
	file     *File
	resolved map[string]*VersionSpec
	visiting map[string]bool
}

// NewResolver resolves versions of file whose directories live below root.
func NewResolver(root string, file *File) *Resolver {
	return &Resolver{
		root:     root,
		file:     file,
		resolved: map[string]*VersionSpec{},
		visiting: map[string]bool{},
	}
}

// Resolve returns the flattened spec set of name: the parent's set minus
// exclude, overridden by the version's own specs.
func (r *Resolver) Resolve(name string) (*VersionSpec, error) {
	if spec, ok := r.resolved[name]; ok {
		return spec, nil
	}

	version, ok := r.file.Versions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVersion, name)
	}

	if r.visiting[name] {
		return nil, fmt.Errorf("%w at %q", ErrInheritanceCycle, name)
	}

	r.visiting[name] = true
	defer delete(r.visiting, name)

	vs := &VersionSpec{Name: name, Tags: version.Tags, Specs: map[string]Source{}}

	if version.Inherits != "" {
		parent, err := r.Resolve(version.Inherits)
		if err != nil {
			return nil, fmt.Errorf("%s inherits %s: %w", name, version.Inherits, err)
		}

		maps.Copy(vs.Specs, parent.Specs)
	}

	for _, excluded := range version.Exclude {
		delete(vs.Specs, excluded)
	}

	local, err := ownFiles(filepath.Join(r.root, name))
	if err != nil {
		return nil, err
	}

	for _, declared := range version.Specs {
		path := OwnPath(r.root, name, declared)
		if !slices.Contains(local, declared) {
			return nil, fmt.Errorf("%w: %s/%s (expected %s)", ErrSpecMissing, name, declared, path)
		}

		vs.Specs[declared] = Source{Version: name, Path: path, Declared: true}
	}

	// A local file shadows the inherited spec of the same name even when
	// it is not declared.
	for _, spec := range local {
		src, inherited := vs.Specs[spec]
		if !inherited || src.Version == name {
			continue
		}

		vs.Specs[spec] = Source{Version: name, Path: OwnPath(r.root, name, spec)}
	}

	r.resolved[name] = vs

	return vs, nil
}

// ownFiles lists the un-prefixed spec names present in dir.
func ownFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var names []string

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, Ext) || strings.HasPrefix(name, InheritedPrefix) {
			continue
		}

		names = append(names, strings.TrimSuffix(name, Ext))
	}

	return names, nil
}

// inheritedFiles lists the materialized spec names present in dir.
func inheritedFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var names []string

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, Ext) || !strings.HasPrefix(name, InheritedPrefix) {
			continue
		}

		names = append(names, strings.TrimSuffix(strings.TrimPrefix(name, InheritedPrefix), Ext))
	}

	return names, nil
}

// InheritedPath is the materialized copy of spec inside version.
func InheritedPath(root, version, spec string) string {
	return filepath.Join(root, version, InheritedPrefix+spec+Ext)
}

// OwnPath is the owned spec file inside version.
func OwnPath(root, version, spec string) string {
	return filepath.Join(root, version, spec+Ext)
}
