// Command gen-manpages writes reference pages for stepgraph and every
// subcommand with cobra's doc package. The Makefile "manpages" target runs it
// before packaging a release.
//
// Usage:
//
//	go run ./scripts/gen-manpages [--out dir] [--format man|markdown] [--date YYYY-MM-DD]
//
// The page date defaults to SOURCE_DATE_EPOCH when set so release archives
// are reproducible, and to today otherwise.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra/doc"
	"github.com/spf13/pflag"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/buildinfo"
	"github.com/AbdelazizMoustafa10m/stepgraph/internal/cli"
)

func main() {
	if err := run(os.Args[1:], os.Getenv, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "gen-manpages: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, getenv func(string) string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("gen-manpages", pflag.ContinueOnError)
	outDir := fs.StringP("out", "o", "man/man1", "Output directory")
	format := fs.String("format", "man", "Page format: man or markdown")
	dateFlag := fs.String("date", "", "Page date as YYYY-MM-DD (default: SOURCE_DATE_EPOCH or today)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	date, err := pageDate(*dateFlag, getenv("SOURCE_DATE_EPOCH"))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir %q: %w", *outDir, err)
	}

	root := cli.NewRootCmd()
	root.DisableAutoGenTag = true

	switch *format {
	case "man":
		header := &doc.GenManHeader{
			Title:   "STEPGRAPH",
			Section: "1",
			Date:    &date,
			Source:  buildinfo.GetInfo().Short(),
			Manual:  "stepgraph workflow graph runner",
		}
		err = doc.GenManTree(root, header, *outDir)
	case "markdown":
		err = doc.GenMarkdownTree(root, *outDir)
	default:
		return fmt.Errorf("unknown format %q; use man or markdown", *format)
	}
	if err != nil {
		return fmt.Errorf("generating %s pages: %w", *format, err)
	}

	fmt.Fprintf(stdout, "%s pages written to %s/\n", *format, *outDir)
	return nil
}

// pageDate resolves the date printed in page footers.
func pageDate(flag, epoch string) (time.Time, error) {
	switch {
	case flag != "":
		d, err := time.Parse(time.DateOnly, flag)
		if err != nil {
			return time.Time{}, fmt.Errorf("--date %q: expected YYYY-MM-DD", flag)
		}
		return d, nil
	case epoch != "":
		secs, err := strconv.ParseInt(epoch, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("SOURCE_DATE_EPOCH %q: %w", epoch, err)
		}
		return time.Unix(secs, 0).UTC(), nil
	default:
		return time.Now().UTC(), nil
	}
}
