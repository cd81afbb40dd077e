package config

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/charmbracelet/log"
)

//go:embed templates
var templateFS embed.FS

// templatesRoot is the directory in the embedded FS that holds the graph
// file templates, one <name>.graph.toml.tmpl per template.
const templatesRoot = "templates"

const templateSuffix = SuffixTOML + ".tmpl"

// TemplateVars holds the values substituted into a graph template.
type TemplateVars struct {
	// Name is the graph name (e.g., "triage").
	Name string
	// Description is a one-line summary of the graph.
	Description string
	// MaxSteps is the default superstep budget.
	MaxSteps int
}

// ListTemplates returns the names of all available graph templates.
func ListTemplates() ([]string, error) {
	entries, err := templateFS.ReadDir(templatesRoot)
	if err != nil {
		return nil, fmt.Errorf("reading templates directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), templateSuffix) {
			names = append(names, strings.TrimSuffix(e.Name(), templateSuffix))
		}
	}
	return names, nil
}

// TemplateExists reports whether a template with the given name exists.
func TemplateExists(name string) bool {
	_, err := fs.Stat(templateFS, templatePath(name))
	return err == nil
}

func templatePath(name string) string {
	return templatesRoot + "/" + name + templateSuffix
}

// RenderTemplate renders the named template with vars and writes it to
// dest. When force is false an existing dest is left untouched and an error
// is returned.
func RenderTemplate(name, dest string, vars TemplateVars, force bool) error {
	if !TemplateExists(name) {
		return fmt.Errorf("template %q not found", name)
	}

	if _, statErr := os.Stat(dest); statErr == nil {
		if !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", dest)
		}
		log.Debug("overwriting existing file", "path", dest)
	}

	content, err := templateFS.ReadFile(templatePath(name))
	if err != nil {
		return fmt.Errorf("reading embedded template %s: %w", name, err)
	}
	tmpl, err := template.New(name).Parse(string(content))
	if err != nil {
		return fmt.Errorf("parsing template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return fmt.Errorf("executing template %s: %w", name, err)
	}

	if dir := filepath.Dir(dest); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", dest, err)
		}
	}
	if err := os.WriteFile(dest, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing file %s: %w", dest, err)
	}

	log.Debug("created graph file", "path", dest, "template", name)
	return nil
}
