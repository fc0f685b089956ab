package main

import (
	"os"

	"github.com/k0kubun/pp/v3"

	"github.com/dbforensic/dbforensic/depgraph"
	"github.com/dbforensic/dbforensic/diff"
	"github.com/dbforensic/dbforensic/relate"
	"github.com/dbforensic/dbforensic/report"
	"github.com/dbforensic/dbforensic/reporters"
)

// diffCmd compares two catalog snapshots (source and target) and
// renders the resulting migration script or change report. Each side
// gets its own full connOpts group under a namespace prefix, the same
// way cmd/psqldef separates "from" and "to" connection details when a
// tool has to talk to two databases in one invocation.
type diffCmd struct {
	Source connOpts `group:"source connection" namespace:"source"`
	Target connOpts `group:"target connection" namespace:"target"`

	Format    string `long:"format" description:"console, json, markdown, or sql" default:"console"`
	DebugDump bool   `long:"debug-dump" description:"pretty-print the assembled diff report to stderr"`
}

func (c *diffCmd) Execute(_ []string) error {
	sourceCat, _, _, err := c.Source.buildCatalog()
	if err != nil {
		return err
	}
	targetCat, _, _, err := c.Target.buildCatalog()
	if err != nil {
		return err
	}

	targetEdges := relate.Build(targetCat)
	var targetNodes []depgraph.ObjectRef
	for _, t := range targetCat.Tables() {
		targetNodes = append(targetNodes, depgraph.ObjectRef{Kind: depgraph.KindTable, FQN: t.FQN})
	}
	for _, v := range targetCat.Views() {
		targetNodes = append(targetNodes, depgraph.ObjectRef{Kind: depgraph.KindView, FQN: v.FQN})
	}
	for _, r := range targetCat.Routines() {
		kind := depgraph.KindProcedure
		if r.Kind.String() == "function" {
			kind = depgraph.KindFunction
		}
		targetNodes = append(targetNodes, depgraph.ObjectRef{Kind: kind, FQN: r.FQN})
	}
	targetGraph := depgraph.Build(targetNodes, targetEdges)

	cs := diff.Build(sourceCat, targetCat, targetGraph)
	dr := report.AssembleDiff(sourceCat, targetCat, cs)

	if c.DebugDump {
		pp.Fprintln(os.Stderr, dr)
	}

	switch c.Format {
	case "json":
		return reporters.JSONDiff(os.Stdout, dr)
	case "markdown":
		return reporters.MarkdownDiff(os.Stdout, dr)
	case "sql":
		return reporters.SQL(os.Stdout, dr)
	default:
		return reporters.ConsoleDiff(os.Stdout, dr)
	}
}
