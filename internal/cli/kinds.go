package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/config"
	"github.com/AbdelazizMoustafa10m/stepgraph/internal/nodes"
)

var kindsJSON bool

// kindsCmd implements "stepgraph kinds".
var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List node kinds, router kinds and templates",
	Long:  "List the builtin node kinds and router kinds a graph file can use, and the templates available to init.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := nodes.DefaultRegistry
		templates, err := config.ListTemplates()
		if err != nil {
			return err
		}

		if kindsJSON {
			type entry struct {
				Name        string `json:"name"`
				Description string `json:"description"`
			}
			report := struct {
				Nodes     []entry  `json:"nodes"`
				Routers   []entry  `json:"routers"`
				Templates []string `json:"templates"`
			}{Templates: templates}
			for _, k := range reg.Nodes() {
				report.Nodes = append(report.Nodes, entry{k.Name, k.Description})
			}
			for _, k := range reg.Routers() {
				report.Routers = append(report.Routers, entry{k.Name, k.Description})
			}
			return writeJSON(cmd.OutOrStdout(), report)
		}

		out := cmd.OutOrStdout()
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(out, styleSection.Render("Node kinds"))
		for _, k := range reg.Nodes() {
			fmt.Fprintf(tw, "  %s\t%s\n", k.Name, k.Description)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, styleSection.Render("Router kinds"))
		for _, k := range reg.Routers() {
			fmt.Fprintf(tw, "  %s\t%s\n", k.Name, k.Description)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, styleSection.Render("Templates"))
		for _, t := range templates {
			fmt.Fprintf(out, "  %s\n", t)
		}
		return nil
	},
}

func init() {
	kindsCmd.Flags().BoolVar(&kindsJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(kindsCmd)
}
