package report

import (
	"fmt"
	"io"

	"ferrolint/internal/rules"

	"github.com/fatih/color"
)

type palette struct {
	err, warn, info, path, dim *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:  color.New(color.FgRed, color.Bold),
		warn: color.New(color.FgYellow, color.Bold),
		info: color.New(color.FgCyan),
		path: color.New(color.Bold),
		dim:  color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.path, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s rules.Severity) *color.Color {
	switch s {
	case rules.SeverityError:
		return p.err
	case rules.SeverityWarning:
		return p.warn
	}
	return p.info
}

// renderText prints one line per finding:
//
//	path:line:col: severity CODE rule-id: message
func renderText(w io.Writer, findings []rules.Finding, opts Options) error {
	p := newPalette(opts.Color)
	for _, f := range findings {
		loc := fmt.Sprintf("%s:%d:%d:", f.Path, f.Start.Line, f.Start.Column)
		if _, err := fmt.Fprintf(w, "%s %s %s %s: %s\n",
			p.path.Sprint(loc),
			p.severity(f.Severity).Sprint(string(f.Severity)),
			f.Code,
			p.dim.Sprint(f.RuleID),
			f.Message,
		); err != nil {
			return err
		}
	}
	for _, e := range opts.Errors {
		if _, err := fmt.Fprintf(w, "%s %s\n", p.err.Sprint(e.Path+": error:"), e.Message); err != nil {
			return err
		}
	}

	s := summarize(findings)
	if s.Total == 0 && len(opts.Errors) == 0 {
		_, err := fmt.Fprintln(w, "no findings")
		return err
	}
	_, err := fmt.Fprintf(w, "%d findings (%d errors, %d warnings, %d info)", s.Total, s.Errors, s.Warnings, s.Info)
	if err != nil {
		return err
	}
	if len(opts.Errors) > 0 {
		if _, err := fmt.Fprintf(w, ", %d files failed", len(opts.Errors)); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(w)
	return err
}
