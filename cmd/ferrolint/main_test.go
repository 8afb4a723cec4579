package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ferrolint/internal/rules"
	"ferrolint/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const unwrapSrc = `pub fn load(path: &str) -> String {
    std::fs::read_to_string(path).unwrap()
}
`

const closureSrc = `fn describe(x: &i32) -> String {
    format!("{x}")
}

pub fn names(xs: &[i32]) -> Vec<String> {
    xs.iter().map(|x| describe(x)).collect()
}
`

const cleanSrc = `fn add(a: i32, b: i32) -> i32 {
    a + b
}
`

func project(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRulesCommand(t *testing.T) {
	code, out, _ := execute(t, "rules")
	require.Equal(t, exitClean, code)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 15)
	assert.True(t, strings.HasPrefix(lines[1], "RUST001"))
	assert.True(t, strings.HasPrefix(lines[14], "RUST014"))
}

func TestScanCommand(t *testing.T) {
	dir := project(t, map[string]string{
		"src/lib.rs":   unwrapSrc,
		"src/clean.rs": cleanSrc,
	})

	t.Run("Findings fail the run", func(t *testing.T) {
		code, out, _ := execute(t, "scan", "--no-color", dir)
		assert.Equal(t, exitFindings, code)
		assert.Contains(t, out, "RUST001")
		assert.Contains(t, out, "lib.rs:2:")
	})

	t.Run("JSON output", func(t *testing.T) {
		code, out, _ := execute(t, "scan", "--format", "json", dir)
		assert.Equal(t, exitFindings, code)
		var doc struct {
			Findings []rules.Finding `json:"findings"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		require.NotEmpty(t, doc.Findings)
		assert.Equal(t, rules.CodeUnwrapOnResult, doc.Findings[0].Code)
	})

	t.Run("Fail on none", func(t *testing.T) {
		code, _, _ := execute(t, "scan", "--fail-on", "none", dir)
		assert.Equal(t, exitClean, code)
	})

	t.Run("Disabled rule", func(t *testing.T) {
		code, out, _ := execute(t, "scan", "--disable", "RUST001", filepath.Join(dir, "src", "lib.rs"))
		assert.Equal(t, exitClean, code)
		assert.NotContains(t, out, "RUST001")
	})

	t.Run("Clean file", func(t *testing.T) {
		code, out, _ := execute(t, "scan", filepath.Join(dir, "src", "clean.rs"))
		assert.Equal(t, exitClean, code)
		assert.Contains(t, out, "no findings")
	})

	t.Run("Unknown rule", func(t *testing.T) {
		code, _, errOut := execute(t, "scan", "--disable", "RUST999", dir)
		assert.Equal(t, exitError, code)
		assert.Contains(t, errOut, "unknown rule")
	})

	t.Run("Broken file", func(t *testing.T) {
		broken := project(t, map[string]string{"bad.rs": "fn broken( {\n"})
		code, out, _ := execute(t, "scan", broken)
		assert.Equal(t, exitError, code)
		assert.Contains(t, out, "1 files failed")
	})
}

func TestScanCommand_Database(t *testing.T) {
	dir := project(t, map[string]string{"lib.rs": unwrapSrc})
	db := filepath.Join(t.TempDir(), "runs.db")

	code, _, _ := execute(t, "scan", "--db", db, dir)
	require.Equal(t, exitFindings, code)

	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	runs, err := store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].Files)
	assert.Positive(t, runs[0].Findings)

	code, out, _ := execute(t, "scan", "--db", db, "--baseline", runs[0].ID, dir)
	assert.Equal(t, exitClean, code, "every finding is in the baseline")
	assert.Contains(t, out, "no findings")

	code, out, _ = execute(t, "runs", "--db", db)
	assert.Equal(t, exitClean, code)
	assert.Contains(t, out, runs[0].ID)

	code, out, _ = execute(t, "runs", "--db", db, "--show", runs[0].ID)
	assert.Equal(t, exitClean, code)
	assert.Contains(t, out, "RUST001")
}

func TestScanCommand_BaselineReportsAddedFunction(t *testing.T) {
	dir := project(t, map[string]string{"lib.rs": "fn load() { read().unwrap(); }\n"})
	db := filepath.Join(t.TempDir(), "runs.db")

	code, _, _ := execute(t, "scan", "--db", db, dir)
	require.Equal(t, exitFindings, code)

	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	runs, err := store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.Len(t, runs, 1)

	src := "fn load() { read().unwrap(); }\nfn save() { write().unwrap(); }\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.rs"), []byte(src), 0o644))

	code, out, _ := execute(t, "scan", "--db", db, "--baseline", runs[0].ID, "--format", "json", dir)
	assert.Equal(t, exitFindings, code)
	var doc struct {
		Findings []rules.Finding `json:"findings"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Findings, 1)
	assert.Equal(t, rules.CodeUnwrapOnResult, doc.Findings[0].Code)
	assert.Equal(t, 2, doc.Findings[0].Start.Line)
}

func TestFixCommand(t *testing.T) {
	dir := project(t, map[string]string{"names.rs": closureSrc})
	path := filepath.Join(dir, "names.rs")

	code, out, _ := execute(t, "fix", "--dry-run", dir)
	require.Equal(t, exitClean, code)
	assert.Contains(t, out, "+    xs.iter().map(describe).collect()")
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, closureSrc, string(content), "dry run leaves the file alone")

	code, _, _ = execute(t, "fix", "--rule", "RUST013", dir)
	require.Equal(t, exitClean, code)
	content, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "map(describe)")

	code, _, _ = execute(t, "fix", "--rule", "nope", dir)
	assert.Equal(t, exitError, code)
}
