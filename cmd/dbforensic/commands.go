package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/k0kubun/pp/v3"

	"github.com/dbforensic/dbforensic/catalog"
	"github.com/dbforensic/dbforensic/depgraph"
	"github.com/dbforensic/dbforensic/errs"
	"github.com/dbforensic/dbforensic/health"
	"github.com/dbforensic/dbforensic/issues"
	"github.com/dbforensic/dbforensic/relate"
	"github.com/dbforensic/dbforensic/report"
	"github.com/dbforensic/dbforensic/reporters"
)

// exitError carries the exit code a command wants main() to use:
// 0 success, 2 connection, 3 analysis, 4 below fail-under.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

// exitCode maps an error from buildReport/buildCatalog to its process
// exit code.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if ee, ok := err.(*exitError); ok {
		return ee.code
	}
	if _, ok := err.(*errs.ConnectionError); ok {
		return 2
	}
	if _, ok := err.(*errs.CatalogIntegrityError); ok {
		return 3
	}
	return 3
}

// buildReport runs the whole single-catalog pipeline: connect, build
// catalog, infer relationships, build graph, run detectors, score
// health, assemble the report.
func (o *connOpts) buildReport() (report.Report, error) {
	cat, warnings, cfg, err := o.buildCatalog()
	if err != nil {
		return report.Report{}, err
	}

	edges := relate.Build(cat)
	var nodes []depgraph.ObjectRef
	for _, t := range cat.Tables() {
		nodes = append(nodes, depgraph.ObjectRef{Kind: depgraph.KindTable, FQN: t.FQN})
	}
	for _, v := range cat.Views() {
		nodes = append(nodes, depgraph.ObjectRef{Kind: depgraph.KindView, FQN: v.FQN})
	}
	for _, r := range cat.Routines() {
		kind := depgraph.KindProcedure
		if r.Kind.String() == "function" {
			kind = depgraph.KindFunction
		}
		nodes = append(nodes, depgraph.ObjectRef{Kind: kind, FQN: r.FQN})
	}
	g := depgraph.Build(nodes, edges)

	allIssues := issues.Run(cat, g)
	hb := health.Score(cat, allIssues)

	warningMsgs := make([]string, len(warnings))
	for i, w := range warnings {
		warningMsgs[i] = w.Error()
	}
	r := report.Assemble(cat, g, allIssues, hb, warningMsgs)

	if o.DebugDump {
		pp.Fprintln(os.Stderr, r)
	}

	slog.Info("analysis complete", "provider", o.Provider, "tables", len(cat.Tables()), "issues", len(allIssues), "health", hb.Score)

	if cfg.FailUnder > 0 && hb.Score < cfg.FailUnder {
		return r, &exitError{code: 4, err: fmt.Errorf("health score %d below fail-under threshold %d", hb.Score, cfg.FailUnder)}
	}
	return r, nil
}

func renderReport(format string, w *os.File, r report.Report) error {
	switch format {
	case "json":
		return reporters.JSON(w, r)
	case "markdown":
		return reporters.Markdown(w, r)
	default:
		return reporters.Console(w, r)
	}
}

// runAndRender is the common Execute body shared by every single-catalog
// subcommand: build the report, render it regardless of a fail-under
// exit, and propagate the right process exit code.
func (o *connOpts) runAndRender() error {
	r, err := o.buildReport()
	if ee, ok := err.(*exitError); ok {
		renderReport(o.Format, os.Stdout, r)
		return ee
	}
	if err != nil {
		return err
	}
	return renderReport(o.Format, os.Stdout, r)
}

// scanCmd runs the full pipeline and prints everything: catalog
// summary, issues, graph hotspots, health.
type scanCmd struct {
	connOpts
}

func (c *scanCmd) Execute(_ []string) error { return c.runAndRender() }

// schemaCmd renders the same full report as scanCmd; its output is not
// narrowed to the catalog summary and table/column listing.
type schemaCmd struct {
	connOpts
}

func (c *schemaCmd) Execute(_ []string) error { return c.runAndRender() }

// relationshipsCmd renders the same full report as scanCmd; its output
// is not narrowed to the inferred edge set.
type relationshipsCmd struct {
	connOpts
}

func (c *relationshipsCmd) Execute(_ []string) error { return c.runAndRender() }

// proceduresCmd renders the same full report as scanCmd; its output is
// not narrowed to routine complexity stats.
type proceduresCmd struct {
	connOpts
}

func (c *proceduresCmd) Execute(_ []string) error { return c.runAndRender() }

// indexesCmd renders the same full report as scanCmd; its output is not
// narrowed to index-related issues (MissingFKIndex, UnusedIndex,
// DuplicateIndex).
type indexesCmd struct {
	connOpts
}

func (c *indexesCmd) Execute(_ []string) error { return c.runAndRender() }

// deadcodeCmd renders the same full report as scanCmd; its output is
// not narrowed to DeadTable/DeadRoutine/OrphanColumn/EmptyTable
// findings.
type deadcodeCmd struct {
	connOpts
}

func (c *deadcodeCmd) Execute(_ []string) error { return c.runAndRender() }

// graphCmd renders the same full report as scanCmd; its output is not
// narrowed to the dependency graph and hotspot ranking.
type graphCmd struct {
	connOpts
}

func (c *graphCmd) Execute(_ []string) error { return c.runAndRender() }

// impactCmd prints the reverse-reachable closure of one named table.
type impactCmd struct {
	connOpts
	Table string `long:"table" description:"fully-qualified table name to analyze" required:"true"`
}

func (c *impactCmd) Execute(_ []string) error {
	r, err := c.buildReport()
	if err != nil {
		if _, ok := err.(*exitError); !ok {
			return err
		}
	}
	schema, name, qualified := strings.Cut(c.Table, ".")
	if !qualified {
		schema, name = c.Schema, c.Table
	}
	key := depgraph.ObjectRef{Kind: depgraph.KindTable, FQN: catalog.NewFQN(schema, name)}.Key()
	entry, ok := r.ImpactCache[key]
	if !ok {
		fmt.Printf("no such object in impact cache: %s\n", c.Table)
		return nil
	}
	fmt.Printf("impact of %s: %d dependents\n", c.Table, entry.Count)
	for kind, count := range entry.ByKind {
		fmt.Printf("  %s: %d\n", kind, count)
	}
	return nil
}

// healthCmd prints only the health score and its band, honoring
// --fail-under.
type healthCmd struct {
	connOpts
}

func (c *healthCmd) Execute(_ []string) error {
	r, err := c.buildReport()
	if ee, ok := err.(*exitError); ok {
		fmt.Printf("health: %d (%s)\n", r.Health.Score, r.Health.Band.String())
		return ee
	}
	if err != nil {
		return err
	}
	fmt.Printf("health: %d (%s)\n", r.Health.Score, r.Health.Band.String())
	return nil
}
