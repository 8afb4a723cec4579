package report

import (
	"encoding/json"
	"io"

	"ferrolint/internal/rules"
)

// Output is the root of the JSON report.
type Output struct {
	Version  string          `json:"version,omitempty"`
	Findings []rules.Finding `json:"findings"`
	Errors   []FileError     `json:"errors,omitempty"`
	Summary  Summary         `json:"summary"`
}

func renderJSON(w io.Writer, findings []rules.Finding, opts Options) error {
	out := Output{
		Version:  opts.ToolVersion,
		Findings: findings,
		Errors:   opts.Errors,
		Summary:  summarize(findings),
	}
	if out.Findings == nil {
		out.Findings = []rules.Finding{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
