package reporters

import (
	"fmt"
	"io"

	"github.com/dbforensic/dbforensic/report"
)

// Markdown renders a Report as a GitHub-flavored Markdown document,
// suitable for posting as a PR comment or wiki page.
func Markdown(w io.Writer, r report.Report) error {
	fmt.Fprintf(w, "# Database forensics report\n\n")
	fmt.Fprintf(w, "- Provider: `%s`\n", r.CatalogSummary.Provider.String())
	fmt.Fprintf(w, "- Schema: `%s`\n", r.CatalogSummary.DefaultSchema)
	fmt.Fprintf(w, "- Tables: %d, Views: %d, Routines: %d\n", r.CatalogSummary.TableCount, r.CatalogSummary.ViewCount, r.CatalogSummary.RoutineCount)
	fmt.Fprintf(w, "- Health score: **%d** (%s)\n\n", r.Health.Score, r.Health.Band.String())

	if len(r.Issues) > 0 {
		fmt.Fprintf(w, "## Issues\n\n")
		fmt.Fprintf(w, "| Severity | Detector | Message |\n|---|---|---|\n")
		for _, iss := range r.Issues {
			fmt.Fprintf(w, "| %s | %s | %s |\n", iss.Severity.String(), iss.Detector, iss.Message)
		}
		fmt.Fprintln(w)
	}

	if len(r.Hotspots) > 0 {
		fmt.Fprintf(w, "## Hotspots\n\n")
		fmt.Fprintf(w, "| Table | In-degree | Risk |\n|---|---|---|\n")
		for _, h := range r.Hotspots {
			fmt.Fprintf(w, "| %s | %d | %s |\n", h.Table.FQN.String(), h.InDegree, h.Risk.String())
		}
		fmt.Fprintln(w)
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(w, "## Warnings\n\n")
		for _, msg := range r.Warnings {
			fmt.Fprintf(w, "- %s\n", msg)
		}
	}

	return nil
}

// MarkdownDiff renders a DiffReport as Markdown.
func MarkdownDiff(w io.Writer, dr report.DiffReport) error {
	fmt.Fprintf(w, "# Schema diff report\n\n")
	fmt.Fprintf(w, "- Overall risk: **%s**\n", dr.OverallRisk.String())
	fmt.Fprintf(w, "- Total changes: %d\n\n", dr.Summary.Total)
	fmt.Fprintf(w, "| Kind | Count |\n|---|---|\n")
	for kind, count := range dr.Summary.CountByKind {
		fmt.Fprintf(w, "| %s | %d |\n", kind, count)
	}
	return nil
}
