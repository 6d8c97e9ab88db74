package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed builtin.yaml
var builtinYAML []byte

// File is the on-disk catalog layout shared by the YAML and TOML formats.
type File struct {
	Categories map[string][]string `yaml:"categories,omitempty" toml:"categories,omitempty"`
	Tools      []Descriptor        `yaml:"tools" toml:"tools"`
}

// Builtin parses the catalog compiled into the binary.
func Builtin() (File, error) {
	f, err := decode(builtinYAML, "yaml")
	if err != nil {
		return File{}, fmt.Errorf("parse builtin catalog: %w", err)
	}
	return f, nil
}

// ReadFile parses one catalog file. The format follows the extension:
// .toml selects TOML, anything else is read as YAML.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("load catalog %q: %w", path, err)
	}
	f, err := decode(data, formatFor(path))
	if err != nil {
		return File{}, fmt.Errorf("parse catalog %q: %w", path, err)
	}
	return f, nil
}

func formatFor(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return "toml"
	}
	return "yaml"
}

func decode(data []byte, format string) (File, error) {
	var f File
	switch format {
	case "toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return File{}, err
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return File{}, err
		}
	}
	return f, nil
}

// Load builds the catalog from the builtin descriptors and the given user
// files. A user descriptor replaces a builtin one of the same name; the same
// name in two user files is an error.
func Load(paths []string, includeBuiltin bool) (*Catalog, error) {
	descriptors := map[string]Descriptor{}
	var order []string
	categories := map[string][]string{}

	if includeBuiltin {
		builtin, err := Builtin()
		if err != nil {
			return nil, err
		}
		for _, d := range builtin.Tools {
			key := d.Key()
			if _, seen := descriptors[key]; !seen {
				order = append(order, key)
			}
			descriptors[key] = d
		}
		for name, members := range builtin.Categories {
			categories[normalizeName(name)] = members
		}
	}

	sources := map[string]string{}
	for _, path := range paths {
		f, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		for _, d := range f.Tools {
			key := d.Key()
			if existing, ok := sources[key]; ok {
				return nil, fmt.Errorf("tool %q defined in both %q and %q", d.Name, existing, path)
			}
			sources[key] = path
			if _, seen := descriptors[key]; !seen {
				order = append(order, key)
			}
			descriptors[key] = d
		}
		for name, members := range f.Categories {
			categories[normalizeName(name)] = members
		}
	}

	list := make([]Descriptor, 0, len(order))
	for _, key := range order {
		list = append(list, descriptors[key])
	}
	return New(list, categories)
}
