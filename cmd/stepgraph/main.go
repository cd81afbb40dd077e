// Command stepgraph compiles state graphs from TOML or YAML files and runs
// them with a bulk-synchronous superstep engine.
package main

import (
	"os"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
