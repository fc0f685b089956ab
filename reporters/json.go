package reporters

import (
	"encoding/json"
	"io"

	"github.com/dbforensic/dbforensic/report"
)

// JSON renders a Report as indented JSON, a stable machine-readable
// schema (snake_case fields, lowercase enums).
func JSON(w io.Writer, r report.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// JSONDiff renders a DiffReport as indented JSON.
func JSONDiff(w io.Writer, dr report.DiffReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(dr)
}
