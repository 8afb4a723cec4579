package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"ferrolint/internal/rules"
	"ferrolint/internal/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFindings() []rules.Finding {
	return []rules.Finding{
		{
			RuleID:      rules.IDUnwrapOnResult,
			Code:        "RUST001",
			Path:        "src/lib.rs",
			Span:        source.Span{Start: 10, End: 19},
			Start:       source.Position{Line: 1, Column: 11},
			End:         source.Position{Line: 1, Column: 20},
			Severity:    rules.SeverityWarning,
			Message:     "unwrap() may panic at runtime; use ? or match on the result",
			Fingerprint: "RUST001:0011223344556677",
		},
		{
			RuleID:   rules.IDHardcodedSecret,
			Code:     "RUST009",
			Path:     "src/lib.rs",
			Span:     source.Span{Start: 40, End: 58},
			Start:    source.Position{Line: 3, Column: 23},
			End:      source.Position{Line: 3, Column: 41},
			Severity: rules.SeverityError,
			Message:  "hardcoded apikey in `API_KEY`; load it from the environment or a secret store",
		},
	}
}

func render(t *testing.T, format Format, findings []rules.Finding, opts Options) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, format, findings, opts))
	return buf.String()
}

func TestRender_Text(t *testing.T) {
	out := render(t, FormatText, sampleFindings(), Options{})
	want := "src/lib.rs:1:11: warning RUST001 unwrap-on-result: unwrap() may panic at runtime; use ? or match on the result\n" +
		"src/lib.rs:3:23: error RUST009 hardcoded-secret: hardcoded apikey in `API_KEY`; load it from the environment or a secret store\n" +
		"2 findings (1 errors, 1 warnings, 0 info)\n"
	assert.Equal(t, want, out)

	t.Run("Empty", func(t *testing.T) {
		assert.Equal(t, "no findings\n", render(t, FormatText, nil, Options{}))
	})

	t.Run("File errors", func(t *testing.T) {
		out := render(t, FormatText, nil, Options{Errors: []FileError{{Path: "bad.rs", Message: "bad.rs:1:1: syntax error"}}})
		assert.Contains(t, out, "bad.rs: error: bad.rs:1:1: syntax error\n")
		assert.Contains(t, out, ", 1 files failed\n")
	})

	t.Run("Color", func(t *testing.T) {
		out := render(t, FormatText, sampleFindings(), Options{Color: true})
		assert.Contains(t, out, "\x1b[")
	})
}

func TestRender_JSON(t *testing.T) {
	out := render(t, FormatJSON, sampleFindings(), Options{ToolVersion: "test"})

	var decoded Output
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "test", decoded.Version)
	require.Len(t, decoded.Findings, 2)
	assert.Equal(t, "RUST001:0011223344556677", decoded.Findings[0].Fingerprint)
	assert.Equal(t, Summary{Total: 2, Errors: 1, Warnings: 1}, decoded.Summary)

	empty := render(t, FormatJSON, nil, Options{})
	assert.Contains(t, empty, `"findings": []`)
}

func TestRender_SARIF(t *testing.T) {
	reg := rules.Default(rules.Options{})
	out := render(t, FormatSARIF, sampleFindings(), Options{Registry: reg})

	var log sarifLog
	require.NoError(t, json.Unmarshal([]byte(out), &log))
	assert.Equal(t, "2.1.0", log.Version)
	require.Len(t, log.Runs, 1)

	run := log.Runs[0]
	assert.Equal(t, "ferrolint", run.Tool.Driver.Name)
	assert.Len(t, run.Tool.Driver.Rules, 14)
	require.Len(t, run.Results, 2)

	secret := run.Results[1]
	assert.Equal(t, "RUST009", secret.RuleID)
	assert.Equal(t, 8, secret.RuleIndex)
	assert.Equal(t, "error", secret.Level)
	assert.Equal(t, "src/lib.rs", secret.Locations[0].PhysicalLocation.ArtifactLocation.URI)
	assert.Equal(t, 3, secret.Locations[0].PhysicalLocation.Region.StartLine)
	assert.Equal(t, "RUST009", run.Tool.Driver.Rules[secret.RuleIndex].ID)
	assert.Nil(t, secret.PartialFingerprints)
	assert.Equal(t, "RUST001:0011223344556677", run.Results[0].PartialFingerprints["ferrolint/v1"])
}

func TestRender_Deterministic(t *testing.T) {
	for _, format := range []Format{FormatText, FormatJSON, FormatSARIF} {
		a := render(t, format, sampleFindings(), Options{Registry: rules.Default(rules.Options{})})
		b := render(t, format, sampleFindings(), Options{Registry: rules.Default(rules.Options{})})
		assert.Equal(t, a, b, string(format))
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("SARIF")
	require.NoError(t, err)
	assert.Equal(t, FormatSARIF, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
