package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/jsonutil"
)

// Format identifies the encoding of a graph file.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatOf infers the format from a file name. Files ending in .yaml or .yml
// are YAML; everything else is TOML.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// LoadFile parses the graph file at path. For TOML files the returned
// metadata can be used to detect unknown keys via MetaData.Undecoded(); it is
// nil for YAML files, which are decoded strictly instead.
func LoadFile(path string) (*File, *toml.MetaData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("config: loading %s: %w", path, err)
	}
	f, md, err := Parse(data, FormatOf(path))
	if err != nil {
		return nil, nil, fmt.Errorf("config: loading %s: %w", path, err)
	}
	return f, md, nil
}

// Parse decodes data in the given format. Decoded values (defaults, allowed
// values, params) are normalized with jsonutil.Normalize so both formats
// produce identical Go types.
func Parse(data []byte, format Format) (*File, *toml.MetaData, error) {
	var f File
	var mdp *toml.MetaData

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return nil, nil, err
		}
	default:
		md, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, nil, err
		}
		mdp = &md
	}

	normalize(&f)
	return &f, mdp, nil
}

func normalize(f *File) {
	for key, sc := range f.State {
		sc.Default = jsonutil.Normalize(sc.Default)
		for i, v := range sc.Allowed {
			sc.Allowed[i] = jsonutil.Normalize(v)
		}
		f.State[key] = sc
	}
	for i := range f.Nodes {
		f.Nodes[i].Params = jsonutil.NormalizeMap(f.Nodes[i].Params)
	}
	for i := range f.Branches {
		f.Branches[i].Params = jsonutil.NormalizeMap(f.Branches[i].Params)
	}
}

// FindGraphFiles returns the graph files under root matching the doublestar
// pattern (DefaultPattern when empty). Paths are joined with root and sorted.
func FindGraphFiles(root, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("config: invalid glob pattern %q", pattern)
	}
	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: searching %s: %w", root, err)
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, filepath.Join(root, filepath.FromSlash(m)))
	}
	sort.Strings(out)
	return out, nil
}
