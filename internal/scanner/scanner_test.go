package scanner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ferrolint/internal/report"
	"ferrolint/internal/rules"
	"ferrolint/internal/source"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newScanner(opts ...Option) *Scanner {
	return New(rules.Default(rules.Options{}), opts...)
}

func render(t *testing.T, s *Scanner, format report.Format, r *Report) []byte {
	t.Helper()
	var fileErrors []report.FileError
	for _, e := range r.Errors {
		fileErrors = append(fileErrors, report.FileError{Path: e.Path, Message: e.Error()})
	}
	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, format, r.Findings, report.Options{
		Registry:    s.Registry(),
		ToolVersion: "test",
		Errors:      fileErrors,
	}))
	return buf.Bytes()
}

func TestScan_Fixture(t *testing.T) {
	findings, err := newScanner().ScanFile(context.Background(), filepath.Join("testdata", "errors.rs"))
	require.NoError(t, err)

	labelled := []struct {
		code string
		line int
	}{
		{"RUST001", 7},
		{"RUST002", 13},
		{"RUST003", 18},
		{"RUST004", 25},
		{"RUST005", 31},
		{"RUST006", 36},
		{"RUST007", 41},
		{"RUST008", 47},
		{"RUST008", 48},
		{"RUST009", 52},
		{"RUST009", 53},
		{"RUST010", 57},
		{"RUST011", 67},
		{"RUST012", 73},
		{"RUST013", 78},
		{"RUST014", 84},
	}
	for _, l := range labelled {
		t.Run(l.code, func(t *testing.T) {
			count := 0
			for _, f := range findings {
				if f.Code == l.code && f.Start.Line == l.line {
					count++
				}
			}
			assert.Equal(t, 1, count, "%s on line %d", l.code, l.line)
		})
	}
}

func TestScan_UnwrapExample(t *testing.T) {
	src := []byte("fn f() { x.unwrap(); }")
	findings, err := newScanner().ScanSource(context.Background(), "f.rs", src)
	require.NoError(t, err)

	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, rules.IDUnwrapOnResult, f.RuleID)
	assert.Equal(t, "RUST001", f.Code)
	assert.Equal(t, ".unwrap()", string(src[f.Span.Start:f.Span.End]))
	assert.Equal(t, source.Position{Line: 1, Column: 11}, f.Start)
	assert.Equal(t, rules.SeverityWarning, f.Severity)
	assert.False(t, f.Fixable)
	assert.NotEmpty(t, f.Fingerprint)
}

func TestScan_Fingerprints(t *testing.T) {
	s := newScanner()
	fingerprints := func(src string) []string {
		findings, err := s.ScanSource(context.Background(), "lib.rs", []byte(src))
		require.NoError(t, err)
		var out []string
		for _, f := range findings {
			out = append(out, f.Fingerprint)
		}
		return out
	}

	t.Run("Same text in different functions", func(t *testing.T) {
		fps := fingerprints("fn load() { x.unwrap(); }\nfn save() { x.unwrap(); }\n")
		require.Len(t, fps, 2)
		assert.NotEqual(t, fps[0], fps[1])
	})

	t.Run("Same text twice in one function", func(t *testing.T) {
		fps := fingerprints("fn load() {\n    x.unwrap();\n    x.unwrap();\n}\n")
		require.Len(t, fps, 2)
		assert.NotEqual(t, fps[0], fps[1])
	})

	t.Run("Methods of different types", func(t *testing.T) {
		fps := fingerprints("impl A { fn run(&self) { x.unwrap(); } }\nimpl B { fn run(&self) { x.unwrap(); } }\n")
		require.Len(t, fps, 2)
		assert.NotEqual(t, fps[0], fps[1])
	})

	t.Run("Stable across line shifts", func(t *testing.T) {
		before := fingerprints("fn load() { read().unwrap(); }\n")
		after := fingerprints("use std::fs;\n\n// loads\nfn load() {\n    read().unwrap();\n}\n")
		require.Len(t, before, 1)
		assert.Equal(t, before, after)
	})

	t.Run("Added function keeps old fingerprints", func(t *testing.T) {
		before := fingerprints("fn load() { read().unwrap(); }\n")
		after := fingerprints("fn load() { read().unwrap(); }\nfn save() { write().unwrap(); }\n")
		require.Len(t, after, 2)
		assert.Equal(t, before[0], after[0])
		assert.NotEqual(t, after[0], after[1])
	})
}

func TestScan_HardcodedSecretExample(t *testing.T) {
	src := []byte(`const API_KEY: &str = "secret-key-12345";`)
	findings, err := newScanner().ScanSource(context.Background(), "keys.rs", src)
	require.NoError(t, err)

	require.Len(t, findings, 1)
	assert.Equal(t, rules.IDHardcodedSecret, findings[0].RuleID)
	assert.Equal(t, rules.SeverityError, findings[0].Severity)
	assert.Equal(t, `"secret-key-12345"`, string(src[findings[0].Span.Start:findings[0].Span.End]))
}

func TestScan_CleanInput(t *testing.T) {
	src := []byte(`use std::error::Error;

/// Parses a port number.
#[must_use]
pub fn parse_port(s: &str) -> Result<u16, Box<dyn Error + Send + Sync>> {
    let port: u16 = s.trim().parse()?;
    Ok(port)
}

fn total(values: &[i32]) -> i32 {
    let mut sum = 0;
    for v in values {
        sum += v;
    }
    sum
}
`)
	findings, err := newScanner().ScanSource(context.Background(), "clean.rs", src)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestScan_OrderWithinItem(t *testing.T) {
	src := []byte("pub fn load() -> Result<(), Box<dyn Error>> {\n    Ok(())\n}\n")
	findings, err := newScanner().ScanSource(context.Background(), "load.rs", src)
	require.NoError(t, err)

	var codes []string
	for _, f := range findings {
		codes = append(codes, f.Code)
	}
	assert.Equal(t, []string{"RUST007", "RUST014"}, codes, "registration order for one item")
}

func TestScan_TestCodeIsExempt(t *testing.T) {
	src := []byte(`#[cfg(test)]
mod tests {
    #[test]
    fn parses() {
        let v = parse("1").unwrap();
        assert_eq!(v, 1);
    }
}
`)
	findings, err := newScanner().ScanSource(context.Background(), "lib.rs", src)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestScan_SeverityOverride(t *testing.T) {
	s := newScanner(WithSeverityOverrides(map[string]rules.Severity{
		"RUST001":      rules.SeverityError,
		"no-such-rule": rules.SeverityInfo,
	}))
	findings, err := s.ScanSource(context.Background(), "f.rs", []byte("fn f() { x.unwrap(); }"))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, rules.SeverityError, findings[0].Severity)
}

func TestScan_ParseError(t *testing.T) {
	_, err := newScanner().ScanSource(context.Background(), "bad.rs", []byte("fn broken( {"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, source.ErrParse))
}

func TestScan_Deterministic(t *testing.T) {
	s := newScanner()
	path := filepath.Join("testdata", "errors.rs")
	first, err := s.ScanFile(context.Background(), path)
	require.NoError(t, err)
	second, err := s.ScanFile(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(first, second))
}

func writeTree(t *testing.T) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	fixture, err := os.ReadFile(filepath.Join("testdata", "errors.rs"))
	require.NoError(t, err)

	files := map[string][]byte{
		"a/errors.rs": fixture,
		"b/errors.rs": fixture,
		"c/clean.rs":  []byte("fn ok() -> i32 { 1 }\n"),
		"d/broken.rs": []byte("fn broken( {\n"),
		"e/errors.rs": fixture,
	}
	var paths []string
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, content, 0o644))
		paths = append(paths, p)
	}
	return dir, paths
}

func TestScanFiles(t *testing.T) {
	dir, paths := writeTree(t)
	s := newScanner()

	t.Run("Parse errors are isolated", func(t *testing.T) {
		report, err := s.ScanFiles(context.Background(), paths, 4)
		require.NoError(t, err)
		assert.Equal(t, 5, report.Files)
		require.Len(t, report.Errors, 1)
		assert.Equal(t, filepath.Join(dir, "d", "broken.rs"), report.Errors[0].Path)
		assert.True(t, errors.Is(report.Errors[0], source.ErrParse))

		perFile := map[string]int{}
		for _, f := range report.Findings {
			perFile[f.Path]++
		}
		assert.Len(t, perFile, 3)
		assert.Equal(t, perFile[filepath.Join(dir, "a", "errors.rs")], perFile[filepath.Join(dir, "e", "errors.rs")])
	})

	t.Run("Sequential and parallel runs agree", func(t *testing.T) {
		seq, err := s.ScanFiles(context.Background(), paths, 1)
		require.NoError(t, err)
		par, err := s.ScanFiles(context.Background(), paths, 8)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(seq.Findings, par.Findings))

		for _, format := range []report.Format{report.FormatText, report.FormatJSON, report.FormatSARIF} {
			want := render(t, s, format, seq)
			assert.NotEmpty(t, want)
			assert.Equal(t, want, render(t, s, format, par), "format %s", format)
		}
	})

	t.Run("Sorted by path then position", func(t *testing.T) {
		report, err := s.ScanFiles(context.Background(), paths, 8)
		require.NoError(t, err)
		for i := 1; i < len(report.Findings); i++ {
			a, b := report.Findings[i-1], report.Findings[i]
			if a.Path == b.Path {
				assert.LessOrEqual(t, a.Span.Start, b.Span.Start)
			} else {
				assert.Less(t, a.Path, b.Path)
			}
		}
	})

	t.Run("Cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := s.ScanFiles(ctx, paths, 2)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
