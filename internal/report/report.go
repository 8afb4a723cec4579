// Package report renders findings as text, JSON or SARIF.
package report

import (
	"fmt"
	"io"
	"strings"

	"ferrolint/internal/rules"
)

type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatSARIF Format = "sarif"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatSARIF:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown report format %q (want text, json or sarif)", s)
}

// FileError is a file that could not be scanned, listed alongside findings.
type FileError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Options tunes rendering.
type Options struct {
	// Color enables ANSI colours in text output.
	Color bool
	// Registry supplies rule metadata for SARIF output.
	Registry    *rules.Registry
	ToolVersion string
	Errors      []FileError
}

// Render writes findings to w in the given format. Output depends only on
// the input order of findings, so equal inputs give byte-identical output.
func Render(w io.Writer, format Format, findings []rules.Finding, opts Options) error {
	switch format {
	case FormatText, "":
		return renderText(w, findings, opts)
	case FormatJSON:
		return renderJSON(w, findings, opts)
	case FormatSARIF:
		return renderSARIF(w, findings, opts)
	}
	return fmt.Errorf("unknown report format %q", format)
}

// Summary counts findings by severity.
type Summary struct {
	Total    int `json:"total"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
}

func summarize(findings []rules.Finding) Summary {
	s := Summary{Total: len(findings)}
	for _, f := range findings {
		switch f.Severity {
		case rules.SeverityError:
			s.Errors++
		case rules.SeverityWarning:
			s.Warnings++
		default:
			s.Info++
		}
	}
	return s
}
