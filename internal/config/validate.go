package config

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/graph"
	"github.com/AbdelazizMoustafa10m/stepgraph/internal/nodes"
	"github.com/AbdelazizMoustafa10m/stepgraph/internal/state"
)

// ValidationSeverity indicates whether a validation issue is an error or warning.
type ValidationSeverity string

const (
	// SeverityError indicates a fatal validation issue; the graph file is unusable.
	SeverityError ValidationSeverity = "error"
	// SeverityWarning indicates an informational validation issue; the graph
	// builds but may not behave as intended.
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue represents a single validation finding.
type ValidationIssue struct {
	Severity ValidationSeverity `json:"severity"`
	Field    string             `json:"field"` // dotted path, e.g., "nodes[2].kind"
	Message  string             `json:"message"`
}

func (i ValidationIssue) String() string {
	if i.Field == "" {
		return fmt.Sprintf("%s: %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Field, i.Message)
}

// ValidationResult holds all validation findings.
type ValidationResult struct {
	Issues []ValidationIssue `json:"issues"`
}

// HasErrors returns true if any issue has error severity.
func (vr *ValidationResult) HasErrors() bool {
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasWarnings returns true if any issue has warning severity.
func (vr *ValidationResult) HasWarnings() bool {
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// Errors returns only error-severity issues.
func (vr *ValidationResult) Errors() []ValidationIssue {
	var errs []ValidationIssue
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityError {
			errs = append(errs, issue)
		}
	}
	return errs
}

// Warnings returns only warning-severity issues.
func (vr *ValidationResult) Warnings() []ValidationIssue {
	var warns []ValidationIssue
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityWarning {
			warns = append(warns, issue)
		}
	}
	return warns
}

// String renders one issue per line.
func (vr *ValidationResult) String() string {
	lines := make([]string, len(vr.Issues))
	for i, issue := range vr.Issues {
		lines[i] = "  " + issue.String()
	}
	return strings.Join(lines, "\n")
}

// ValidateFile loads and validates the graph file at path. A file that
// cannot be read or parsed yields a single error issue rather than an error.
func ValidateFile(path string, reg *nodes.Registry) *ValidationResult {
	if _, err := os.Stat(path); err != nil {
		vr := &ValidationResult{}
		addError(vr, "", fmt.Sprintf("cannot read graph file: %v", err))
		return vr
	}
	f, md, err := LoadFile(path)
	if err != nil {
		vr := &ValidationResult{}
		addError(vr, "", err.Error())
		return vr
	}
	return Validate(f, md, reg)
}

// Validate checks a decoded graph file for problems that the graph compiler
// cannot see: unknown node and router kinds, bad parameters, malformed state
// declarations, and unknown keys. When the file builds, the compiled graph's
// structural errors are reported too.
//
// Parameters:
//   - f: the decoded file
//   - meta: TOML metadata from BurntSushi/toml (nil for YAML files)
//   - reg: node and router kinds (nodes.DefaultRegistry when nil)
func Validate(f *File, meta *toml.MetaData, reg *nodes.Registry) *ValidationResult {
	vr := &ValidationResult{}

	if f == nil {
		addError(vr, "", "graph file is nil")
		return vr
	}
	if reg == nil {
		reg = nodes.DefaultRegistry
	}

	validateSettings(vr, f)
	validateState(vr, f)
	validateNodes(vr, f, reg)
	validateEdges(vr, f)
	validateBranches(vr, f, reg)
	validateUnknownKeys(vr, meta)

	if !vr.HasErrors() {
		validateStructure(vr, f, reg)
	}
	return vr
}

// validateSettings checks the top-level run settings.
func validateSettings(vr *ValidationResult, f *File) {
	if f.Name == "" {
		addError(vr, "name", "must not be empty")
	}
	if f.MaxSteps < 0 {
		addError(vr, "max_steps", "must not be negative")
	}
	if f.Concurrency < 0 {
		addError(vr, "concurrency", "must not be negative")
	}
	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		switch {
		case err != nil:
			addError(vr, "timeout", fmt.Sprintf("invalid duration %q: %v", f.Timeout, err))
		case d < 0:
			addError(vr, "timeout", "must not be negative")
		}
	}
	if f.Entry == "" && !hasStartEdge(f) {
		addError(vr, "entry", "must be set, or an edge must start at "+graph.Start)
	}
}

func hasStartEdge(f *File) bool {
	for _, e := range f.Edges {
		if e.From == graph.Start {
			return true
		}
	}
	return false
}

// validateState checks every [state.<key>] section.
func validateState(vr *ValidationResult, f *File) {
	for _, key := range slices.Sorted(maps.Keys(f.State)) {
		sc := f.State[key]
		prefix := "state." + key

		kind, err := state.ParseKind(sc.Type)
		if err != nil {
			addError(vr, prefix+".type", fmt.Sprintf("%v; must be one of: %s", err, kindList()))
			continue
		}

		reducer, ok := state.ReducerByName(sc.Reducer)
		if !ok {
			addError(vr, prefix+".reducer",
				fmt.Sprintf("unknown reducer %q; must be one of: %s", sc.Reducer, strings.Join(state.ReducerNames(), ", ")))
			continue
		}

		// Reuse the schema's own checks for defaults and allowed values.
		if _, err := state.NewFieldSet(state.Field{Name: key, Kind: kind, Default: sc.Default, Allowed: sc.Allowed, Reducer: reducer}); err != nil {
			addError(vr, prefix+".default", err.Error())
		}

		switch sc.Reducer {
		case state.ReducerAppend:
			if kind != state.KindList && kind != state.KindAny {
				addWarning(vr, prefix+".reducer", fmt.Sprintf("append produces a list but the key is declared %s", kind))
			}
		case state.ReducerSum, state.ReducerMax, state.ReducerMin:
			if kind != state.KindInt && kind != state.KindFloat && kind != state.KindAny {
				addWarning(vr, prefix+".reducer", fmt.Sprintf("%s needs numbers but the key is declared %s", sc.Reducer, kind))
			}
		case state.ReducerMerge:
			if kind != state.KindMap && kind != state.KindAny {
				addWarning(vr, prefix+".reducer", fmt.Sprintf("merge needs a map but the key is declared %s", kind))
			}
		}
	}
}

func kindList() string {
	kinds := state.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// validateNodes checks every [[nodes]] entry, building each node to surface
// parameter errors early.
func validateNodes(vr *ValidationResult, f *File, reg *nodes.Registry) {
	seen := make(map[string]bool, len(f.Nodes))
	for i, nc := range f.Nodes {
		prefix := fmt.Sprintf("nodes[%d]", i)

		switch {
		case nc.Name == "":
			addError(vr, prefix+".name", "must not be empty")
		case nc.Name == graph.Start || nc.Name == graph.End:
			addError(vr, prefix+".name", fmt.Sprintf("%q is reserved", nc.Name))
		case seen[nc.Name]:
			addError(vr, prefix+".name", fmt.Sprintf("node %q is declared more than once", nc.Name))
		}
		seen[nc.Name] = true

		if nc.Kind == "" {
			addError(vr, prefix+".kind", "must not be empty")
			continue
		}
		if !reg.HasNode(nc.Kind) {
			addError(vr, prefix+".kind", fmt.Sprintf("unknown node kind %q; must be one of: %s", nc.Kind, nodeKindList(reg)))
			continue
		}
		if _, err := reg.NewNode(nc.Kind, nc.Name, nodes.Params(nc.Params)); err != nil {
			addError(vr, prefix+".params", err.Error())
			continue
		}

		validateNodeKeys(vr, f, prefix, nc)
	}
}

// validateNodeKeys checks the state keys a builtin node writes against the
// declared state, when there is one.
func validateNodeKeys(vr *ValidationResult, f *File, prefix string, nc NodeConfig) {
	if len(f.State) == 0 {
		return
	}
	p := nodes.Params(nc.Params)
	var written []string
	switch nc.Kind {
	case nodes.KindSet:
		values, _ := p.Map("values")
		written = append(written, slices.Sorted(maps.Keys(values))...)
		if k, _ := p.String("key", ""); k != "" {
			written = append(written, k)
		}
	case nodes.KindIncrement, nodes.KindAppend:
		k, _ := p.String("key", "")
		written = append(written, k)
	case nodes.KindCopy:
		k, _ := p.String("to", "")
		written = append(written, k)
	}

	for _, k := range written {
		sc, ok := f.State[k]
		if !ok {
			addError(vr, prefix+".params", fmt.Sprintf("writes undeclared state key %q", k))
			continue
		}
		switch {
		case nc.Kind == nodes.KindAppend && sc.Reducer != state.ReducerAppend:
			addWarning(vr, prefix+".params", fmt.Sprintf("append targets %q, which does not use the append reducer", k))
		case nc.Kind == nodes.KindIncrement && sc.Reducer == state.ReducerSum:
			addWarning(vr, prefix+".params", fmt.Sprintf("increment writes an absolute value but %q sums writes", k))
		}
	}
}

func nodeKindList(reg *nodes.Registry) string {
	kinds := reg.Nodes()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.Name
	}
	return strings.Join(names, ", ")
}

func routerKindList(reg *nodes.Registry) string {
	kinds := reg.Routers()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.Name
	}
	return strings.Join(names, ", ")
}

// validateEdges checks every [[edges]] entry for missing endpoints.
func validateEdges(vr *ValidationResult, f *File) {
	for i, ec := range f.Edges {
		prefix := fmt.Sprintf("edges[%d]", i)
		if ec.From == "" {
			addError(vr, prefix+".from", "must not be empty")
		}
		if ec.To == "" {
			addError(vr, prefix+".to", "must not be empty")
		}
		if ec.From == graph.End {
			addError(vr, prefix+".from", graph.End+" has no outgoing edges")
		}
	}
}

// validateBranches checks every [[branches]] entry.
func validateBranches(vr *ValidationResult, f *File, reg *nodes.Registry) {
	for i, bc := range f.Branches {
		prefix := fmt.Sprintf("branches[%d]", i)
		if bc.From == "" {
			addError(vr, prefix+".from", "must not be empty")
		}
		if len(bc.Routes) == 0 {
			addError(vr, prefix+".routes", "must not be empty")
		}
		for _, label := range slices.Sorted(maps.Keys(bc.Routes)) {
			if bc.Routes[label] == "" {
				addError(vr, prefix+".routes."+label, "target must not be empty")
			}
		}

		if bc.Router == "" {
			addError(vr, prefix+".router", "must not be empty")
			continue
		}
		if !reg.HasRouter(bc.Router) {
			addError(vr, prefix+".router", fmt.Sprintf("unknown router kind %q; must be one of: %s", bc.Router, routerKindList(reg)))
			continue
		}
		if _, err := reg.NewRouter(bc.Router, nodes.Params(bc.Params)); err != nil {
			addError(vr, prefix+".params", err.Error())
			continue
		}

		if bc.Router == nodes.RouterConstant {
			label, _ := nodes.Params(bc.Params).String("label", "")
			if _, ok := bc.Routes[label]; !ok {
				addError(vr, prefix+".params.label", fmt.Sprintf("label %q has no route", label))
			}
		}
	}
}

// validateStructure builds and compiles the graph, reporting the first
// structural error the compiler finds.
func validateStructure(vr *ValidationResult, f *File, reg *nodes.Registry) {
	g, err := Build(f, reg)
	if err != nil {
		addError(vr, "", err.Error())
		return
	}
	if _, err := graph.Compile(g.Definition); err != nil {
		field := ""
		if kind := graph.KindOf(err); kind != "" {
			field = "graph." + string(kind)
		}
		addError(vr, field, err.Error())
	}
}

// freeForm reports whether an undecoded key lies inside a value the file
// format leaves open (params tables, state defaults and allowed values).
func freeForm(key toml.Key) bool {
	for i, part := range key {
		if part == "params" && i > 0 {
			return true
		}
		if i == 2 && key[0] == "state" && (part == "default" || part == "allowed") {
			return true
		}
	}
	return false
}

// validateUnknownKeys checks for TOML keys that did not map to any field.
func validateUnknownKeys(vr *ValidationResult, meta *toml.MetaData) {
	if meta == nil {
		return
	}

	for _, key := range meta.Undecoded() {
		if freeForm(key) {
			continue
		}
		path := strings.Join(key, ".")
		addWarning(vr, path, "unknown configuration key")
	}
}

// addError appends an error-severity issue to the validation result.
func addError(vr *ValidationResult, field, message string) {
	vr.Issues = append(vr.Issues, ValidationIssue{
		Severity: SeverityError,
		Field:    field,
		Message:  message,
	})
}

// addWarning appends a warning-severity issue to the validation result.
func addWarning(vr *ValidationResult, field, message string) {
	vr.Issues = append(vr.Issues, ValidationIssue{
		Severity: SeverityWarning,
		Field:    field,
		Message:  message,
	})
}
