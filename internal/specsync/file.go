// Package specsync materializes inherited HTTP request specs across
// versioned directories described by spec.yml.
//
// Layout below the directory holding spec.yml:
//
//	<version>/<name>.http             spec owned by the version
//	<version>/_inherited_<name>.http  copy of the spec the version inherits
package specsync

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// Ext is the spec file extension.
	Ext = ".http"
	// InheritedPrefix marks materialized copies.
	InheritedPrefix = "_inherited_"
)

var (
	ErrInvalid          = errors.New("invalid spec file")
	ErrUnknownKey       = errors.New("unknown key")
	ErrUnknownVersion   = errors.New("unknown version")
	ErrInheritanceCycle = errors.New("inheritance cycle")
	ErrSpecMissing      = errors.New("declared spec has no file")
)

var versionKeys = []string{"description", "tags", "inherits", "exclude", "specs"}

// Version is one entry of spec.yml.
type Version struct {
	Name        string
	Description string
	Tags        []string
	Inherits    string
	Exclude     []string
	Specs       []string
}

// File is the parsed spec.yml. Order keeps declaration order.
type File struct {
	Versions map[string]*Version
	Order    []string
}

// Load reads and validates spec.yml.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // caller controlled
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	file, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return file, nil
}

// Parse decodes spec.yml content.
func Parse(data []byte) (*File, error) {
	var doc yaml.Node

	err := yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	file := &File{Versions: map[string]*Version{}}

	if len(doc.Content) == 0 {
		return file, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must map version names to versions", ErrInvalid)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value

		if _, dup := file.Versions[name]; dup {
			return nil, fmt.Errorf("%w: version %q declared twice", ErrInvalid, name)
		}

		version, err := decodeVersion(name, root.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("version %q: %w", name, err)
		}

		file.Versions[name] = version
		file.Order = append(file.Order, name)
	}

	return file, nil
}

func decodeVersion(name string, node *yaml.Node) (*Version, error) {
	version := &Version{Name: name}

	if node.Tag == "!!null" {
		return version, nil
	}

	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: expected a mapping", ErrInvalid)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]

		if !slices.Contains(versionKeys, key.Value) {
			return nil, fmt.Errorf("%w %q (line %d)", ErrUnknownKey, key.Value, key.Line)
		}

		var err error

		switch key.Value {
		case "description":
			err = value.Decode(&version.Description)
		case "inherits":
			err = value.Decode(&version.Inherits)
		case "tags":
			err = value.Decode(&version.Tags)
		case "exclude":
			err = value.Decode(&version.Exclude)
			version.Exclude = specNames(version.Exclude)
		case "specs":
			err = value.Decode(&version.Specs)
			version.Specs = specNames(version.Specs)
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, key.Value, err)
		}
	}

	return version, nil
}

// specNames accepts names with or without the .http suffix.
func specNames(names []string) []string {
	for i, name := range names {
		names[i] = strings.TrimSuffix(name, Ext)
	}

	return names
}
