// Package reporters implements the output-formatting boundary:
// console, JSON, Markdown and SQL-migration renderers over an
// already-assembled report.Report/report.DiffReport, plus a zap-backed
// audit logger recording which reporter ran against which catalog.
package reporters

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/dbforensic/dbforensic/report"
)

// Console renders a Report as a human-readable, tab-aligned summary —
// the default format for every CLI subcommand.
func Console(w io.Writer, r report.Report) error {
	fmt.Fprintf(w, "catalog: %s (%s)\n", r.CatalogSummary.DefaultSchema, r.CatalogSummary.Provider.String())
	fmt.Fprintf(w, "tables=%d views=%d routines=%d\n", r.CatalogSummary.TableCount, r.CatalogSummary.ViewCount, r.CatalogSummary.RoutineCount)
	fmt.Fprintf(w, "health: %d (%s)\n\n", r.Health.Score, r.Health.Band.String())

	if len(r.Issues) > 0 {
		fmt.Fprintln(w, "issues:")
		tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
		fmt.Fprintln(tw, "SEVERITY\tDETECTOR\tMESSAGE")
		for _, iss := range r.Issues {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", iss.Severity.String(), iss.Detector, iss.Message)
		}
		tw.Flush()
		fmt.Fprintln(w)
	}

	if len(r.Hotspots) > 0 {
		fmt.Fprintln(w, "hotspots:")
		tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
		fmt.Fprintln(tw, "TABLE\tIN-DEGREE\tRISK")
		for _, h := range r.Hotspots {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", h.Table.FQN.String(), h.InDegree, h.Risk.String())
		}
		tw.Flush()
		fmt.Fprintln(w)
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "warnings:")
		warnings := append([]string(nil), r.Warnings...)
		sort.Strings(warnings)
		for _, msg := range warnings {
			fmt.Fprintf(w, "  - %s\n", msg)
		}
	}

	return nil
}

// ConsoleDiff renders a DiffReport as a human-readable summary.
func ConsoleDiff(w io.Writer, dr report.DiffReport) error {
	fmt.Fprintf(w, "diff: %s -> %s\n", dr.SourceInfo.DefaultSchema, dr.TargetInfo.DefaultSchema)
	fmt.Fprintf(w, "overall risk: %s\n", dr.OverallRisk.String())
	fmt.Fprintf(w, "changes: %d\n\n", dr.Summary.Total)

	kinds := make([]string, 0, len(dr.Summary.CountByKind))
	for k := range dr.Summary.CountByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tCOUNT")
	for _, k := range kinds {
		fmt.Fprintf(tw, "%s\t%d\n", k, dr.Summary.CountByKind[k])
	}
	tw.Flush()

	return nil
}
