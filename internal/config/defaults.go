package config

// DefaultPattern is the doublestar pattern FindGraphFiles uses when none is
// given.
const DefaultPattern = "**/*.graph.{toml,yaml,yml}"

// Graph file suffixes recognized by LoadFile.
const (
	SuffixTOML = ".graph.toml"
	SuffixYAML = ".graph.yaml"
	SuffixYML  = ".graph.yml"
)

// NewDefaults returns a File holding only the defaults a new graph file
// starts from.
func NewDefaults() *File {
	return &File{
		MaxSteps: 25,
		Timeout:  "1m",
		State:    map[string]StateConfig{},
	}
}
