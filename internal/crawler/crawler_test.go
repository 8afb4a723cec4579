package crawler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, name := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("fn main() {}\n"), 0o644))
	}
	return root
}

func relative(t *testing.T, root string, files []string) []string {
	t.Helper()
	out := make([]string, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestCrawler_Collect(t *testing.T) {
	root := writeTree(t,
		"src/main.rs",
		"src/lib.rs",
		"src/parser/mod.rs",
		"src/generated/bindings.rs",
		"target/debug/build.rs",
		".git/hooks/x.rs",
		"README.md",
		"benches/speed.rs",
	)

	t.Run("Default ignores", func(t *testing.T) {
		files, err := NewCrawler(nil).Collect([]string{root})
		require.NoError(t, err)
		assert.Equal(t, []string{
			"benches/speed.rs",
			"src/generated/bindings.rs",
			"src/lib.rs",
			"src/main.rs",
			"src/parser/mod.rs",
		}, relative(t, root, files))
	})

	t.Run("Exclude patterns", func(t *testing.T) {
		files, err := NewCrawler([]string{"**/generated/**", "benches", "src/main.rs"}).Collect([]string{root})
		require.NoError(t, err)
		assert.Equal(t, []string{"src/lib.rs", "src/parser/mod.rs"}, relative(t, root, files))
	})

	t.Run("Explicit files and duplicates", func(t *testing.T) {
		lib := filepath.Join(root, "src", "lib.rs")
		files, err := NewCrawler([]string{"lib.rs"}).Collect([]string{lib, filepath.Join(root, "src", "parser"), lib})
		require.NoError(t, err)
		assert.Equal(t, []string{"src/lib.rs", "src/parser/mod.rs"}, relative(t, root, files))
	})

	t.Run("Missing root", func(t *testing.T) {
		_, err := NewCrawler(nil).Collect([]string{filepath.Join(root, "nope")})
		assert.Error(t, err)
	})
}

func TestCrawler_Dirs(t *testing.T) {
	root := writeTree(t, "src/a.rs", "src/gen/b.rs", "target/c.rs")

	dirs, err := NewCrawler([]string{"gen"}).Dirs(root)
	require.NoError(t, err)
	rel := relative(t, root, dirs)
	assert.Equal(t, []string{".", "src"}, rel)
}
