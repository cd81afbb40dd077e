package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/config"
	"github.com/AbdelazizMoustafa10m/stepgraph/internal/tui"
)

// defaultInitTemplate is the template used when --template is not given.
const defaultInitTemplate = "linear"

// initFlags holds the flag values for the init subcommand.
type initFlags struct {
	Template    string
	Name        string
	Description string
	MaxSteps    int
	Force       bool
	Interactive bool
}

var initFlagValues initFlags

// initCmd implements "stepgraph init [path]".
var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Create a new graph file from a template",
	Long: `Create a new graph file by rendering an embedded template. The path may
be a file ending in .graph.toml or a directory; when omitted the file is
written to ./<name>.graph.toml. Existing files are preserved unless --force
is supplied.

Examples:
  stepgraph init                              # linear template, ./linear.graph.toml
  stepgraph init --template loop --name agent # ./agent.graph.toml
  stepgraph init graphs/ --template fan-out
  stepgraph init --interactive`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	f := initCmd.Flags()
	f.StringVarP(&initFlagValues.Template, "template", "t", defaultInitTemplate, "Template to render")
	f.StringVarP(&initFlagValues.Name, "name", "n", "", "Graph name (defaults to the file name or template name)")
	f.StringVar(&initFlagValues.Description, "description", "", "One-line graph description")
	f.IntVar(&initFlagValues.MaxSteps, "max-steps", config.NewDefaults().MaxSteps, "Step limit written to the file")
	f.BoolVar(&initFlagValues.Force, "force", false, "Overwrite an existing file")
	f.BoolVarP(&initFlagValues.Interactive, "interactive", "I", false, "Choose the template and settings in a form")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	flags := initFlagValues

	templates, err := config.ListTemplates()
	if err != nil {
		return err
	}

	if flags.Interactive {
		answers := &tui.InitAnswers{
			Template:    flags.Template,
			Name:        flags.Name,
			Description: flags.Description,
			MaxSteps:    flags.MaxSteps,
		}
		if err := tui.NewInitForm(templates, answers).Run(); err != nil {
			return fmt.Errorf("init form: %w", err)
		}
		if err := answers.Finish(); err != nil {
			return err
		}
		flags.Template = answers.Template
		flags.Name = answers.Name
		flags.Description = answers.Description
		flags.MaxSteps = answers.MaxSteps
	}

	if !config.TemplateExists(flags.Template) {
		return fmt.Errorf("template %q not found; available templates: %s",
			flags.Template, strings.Join(templates, ", "))
	}

	var target string
	if len(args) > 0 {
		target = args[0]
	}
	dest, name, err := resolveInitTarget(target, flags.Name, flags.Template)
	if err != nil {
		return err
	}

	vars := config.TemplateVars{
		Name:        name,
		Description: flags.Description,
		MaxSteps:    flags.MaxSteps,
	}
	if vars.Description == "" {
		vars.Description = fmt.Sprintf("%s graph created from the %s template", name, flags.Template)
	}
	if err := config.RenderTemplate(flags.Template, dest, vars, flags.Force); err != nil {
		return err
	}

	// The rendered file must load; a broken template is a bug worth surfacing.
	result := config.ValidateFile(dest, nil)
	if result.HasErrors() {
		return fmt.Errorf("rendered %s is invalid:\n%s", dest, result.String())
	}

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "Created %s from template %q\n\n", dest, flags.Template)
	fmt.Fprintln(stderr, "Next steps:")
	fmt.Fprintf(stderr, "  1. Inspect the plan:  stepgraph plan %s\n", dest)
	fmt.Fprintf(stderr, "  2. Run it:            stepgraph run %s\n", dest)
	return nil
}

// resolveInitTarget returns the file to write and the graph name. An empty
// target means the current directory; a target without the .graph.toml
// suffix is treated as a directory.
func resolveInitTarget(target, name, template string) (string, string, error) {
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return "", "", fmt.Errorf("invalid graph name %q: must not contain path separators", name)
	}

	if strings.HasSuffix(target, config.SuffixTOML) {
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(target), config.SuffixTOML)
		}
		return target, name, nil
	}

	dir := target
	if dir == "" {
		dir = "."
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		return "", "", fmt.Errorf("%s exists and is not a directory or %s file", dir, config.SuffixTOML)
	}
	if name == "" {
		name = template
	}
	return filepath.Join(dir, name+config.SuffixTOML), name, nil
}
