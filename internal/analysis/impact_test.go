package analysis

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ferrolint/internal/git"
	"ferrolint/internal/graph"
	"ferrolint/internal/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const impactSrc = `fn leaf() -> i32 {
    1
}

fn middle() -> i32 {
    leaf() + 1
}

pub fn top() -> i32 {
    middle()
}

fn unrelated() -> i32 {
    2
}
`

func names(syms []*graph.Symbol) []string {
	out := make([]string, 0, len(syms))
	for _, s := range syms {
		out = append(out, s.Name)
	}
	return out
}

func TestAnalyzer_AnalyzeImpact(t *testing.T) {
	f, err := source.Parse(context.Background(), "impact.rs", []byte(impactSrc))
	require.NoError(t, err)
	defer f.Close()

	report := NewAnalyzer(graph.FromFile(f)).AnalyzeImpact([]int{2})
	assert.Equal(t, []string{"leaf"}, names(report.DirectlyAffected))
	assert.Equal(t, []string{"middle", "top"}, names(report.IndirectlyAffected))
	assert.Equal(t, []int{1, 2, 3, 5, 6, 7, 9, 10, 11}, report.Lines())

	report = NewAnalyzer(graph.FromFile(f)).AnalyzeImpact([]int{4})
	assert.Empty(t, report.DirectlyAffected)
	assert.Empty(t, report.Lines())
}

func TestExpandChanges(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib.rs")
	require.NoError(t, os.WriteFile(lib, []byte(impactSrc), 0o644))

	changes := []git.ChangedFile{
		{Path: lib, ChangedLines: []int{14}},
		{Path: filepath.Join(dir, "README.md"), ChangedLines: []int{1}},
		{Path: filepath.Join(dir, "gone.rs"), ChangedLines: []int{3}},
	}
	expanded, err := ExpandChanges(context.Background(), changes, nil)
	require.NoError(t, err)
	require.Len(t, expanded, 3)
	assert.Equal(t, []int{13, 14, 15}, expanded[0].ChangedLines)
	assert.Equal(t, changes[1], expanded[1])
	assert.Equal(t, changes[2], expanded[2])
}
