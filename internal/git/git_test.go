package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"ferrolint/internal/rules"
	"ferrolint/internal/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDiff = `diff --git a/src/lib.rs b/src/lib.rs
index 3b18e51..a9c2f3d 100644
--- a/src/lib.rs
+++ b/src/lib.rs
@@ -2,0 +3,2 @@ fn a() {}
+fn b() {}
+fn c() {}
@@ -10 +12 @@ fn d() {
-    x.unwrap();
+    x.expect("x is set by init");
diff --git a/src/old.rs b/src/old.rs
deleted file mode 100644
index 3b18e51..0000000
--- a/src/old.rs
+++ /dev/null
@@ -1 +0,0 @@
-fn gone() {}
`

func TestParseDiff(t *testing.T) {
	files, err := ParseDiff([]byte(sampleDiff))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "src/lib.rs", files[0].Path)
	assert.Equal(t, []int{3, 4, 12}, files[0].ChangedLines)
}

func TestChangeSet_FilterFindings(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib.rs")
	cs := NewChangeSet([]ChangedFile{{Path: lib, ChangedLines: []int{3, 12}}})

	at := func(path string, start, end int) rules.Finding {
		return rules.Finding{
			Path:  path,
			Start: source.Position{Line: start, Column: 1},
			End:   source.Position{Line: end, Column: 1},
		}
	}
	findings := []rules.Finding{
		at(lib, 1, 2),
		at(lib, 2, 4),
		at(lib, 12, 12),
		at(filepath.Join(dir, "main.rs"), 3, 3),
	}

	kept := cs.FilterFindings(findings)
	require.Len(t, kept, 2)
	assert.Equal(t, 2, kept[0].Start.Line)
	assert.Equal(t, 12, kept[1].Start.Line)
}

func TestGetChangedFiles(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	gitCmd := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", append([]string{"-c", "user.name=test", "-c", "user.email=test@example.com"}, args...)...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	lib := filepath.Join(dir, "lib.rs")

	gitCmd("init", "-q")
	require.NoError(t, os.WriteFile(lib, []byte("fn a() {}\nfn b() {}\n"), 0o644))
	gitCmd("add", ".")
	gitCmd("commit", "-q", "-m", "init")

	require.NoError(t, os.WriteFile(lib, []byte("fn a() {}\nfn b() { x.unwrap(); }\nfn c() {}\n"), 0o644))

	files, err := GetChangedFiles(context.Background(), dir, "HEAD")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, []int{2, 3}, files[0].ChangedLines)
	assert.True(t, NewChangeSet(files).Touches(lib, 2, 2))

	_, err = GetChangedFiles(context.Background(), dir, "no-such-rev")
	assert.Error(t, err)
}
