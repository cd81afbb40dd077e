package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/buildinfo"
)

var versionJSON bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show stepgraph version and build information",
	Long:  "Display the version, git commit, build date and Go version of this stepgraph binary.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := buildinfo.GetInfo()
		if versionJSON {
			return writeJSON(cmd.OutOrStdout(), info)
		}
		fmt.Fprintln(cmd.OutOrStdout(), info.String())
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Output version info as JSON")
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = buildinfo.GetInfo().Version
	rootCmd.SetVersionTemplate(buildinfo.GetInfo().Short() + "\n")
}
