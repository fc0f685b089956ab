package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
)

var version string

// main wires the ten subcommands onto one go-flags parser, the way
// cmd/psqldef wires one option struct onto its single command,
// generalized here to a command-per-analysis binary.
func main() {
	var opts struct {
		Version bool `long:"version" description:"show this version"`
	}

	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[options] <command>"
	parser.SubcommandsOptional = true

	mustAdd(parser, "scan", "Run every detector and print the full analysis", &scanCmd{})
	mustAdd(parser, "schema", "Print the full analysis report (same output as scan)", &schemaCmd{})
	mustAdd(parser, "relationships", "Print the full analysis report (same output as scan)", &relationshipsCmd{})
	mustAdd(parser, "procedures", "Print the full analysis report (same output as scan)", &proceduresCmd{})
	mustAdd(parser, "indexes", "Print the full analysis report (same output as scan)", &indexesCmd{})
	mustAdd(parser, "deadcode", "Print the full analysis report (same output as scan)", &deadcodeCmd{})
	mustAdd(parser, "graph", "Print the full analysis report (same output as scan)", &graphCmd{})
	mustAdd(parser, "impact", "Print the reverse-reachable closure of one table", &impactCmd{})
	mustAdd(parser, "health", "Print the health score", &healthCmd{})
	mustAdd(parser, "diff", "Compare two catalog snapshots and render a migration script", &diffCmd{})

	_, err := parser.ParseArgs(os.Args[1:])
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}

	if opts.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if parser.Active == nil {
		parser.WriteHelp(os.Stderr)
		os.Exit(1)
	}
}

func mustAdd(parser *flags.Parser, name, short string, data interface{}) {
	if _, err := parser.AddCommand(name, short, short, data); err != nil {
		panic(err)
	}
}
