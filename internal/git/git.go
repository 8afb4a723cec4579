// Package git limits findings to the lines changed since a revision.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"ferrolint/internal/rules"

	"github.com/sourcegraph/go-diff/diff"
)

type ChangedFile struct {
	Path         string
	ChangedLines []int
}

// GetChangedFiles runs git diff in dir and returns the added or modified
// lines of every file, with paths made absolute against the repository root.
func GetChangedFiles(ctx context.Context, dir, baseRef string) ([]ChangedFile, error) {
	top, err := run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, err
	}
	root := strings.TrimSpace(string(top))

	output, err := run(ctx, dir, "diff", "-U0", "--no-color", baseRef, "--")
	if err != nil {
		return nil, err
	}
	files, err := ParseDiff(output)
	if err != nil {
		return nil, err
	}
	for i := range files {
		files[i].Path = filepath.Join(root, filepath.FromSlash(files[i].Path))
	}
	return files, nil
}

func run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git %s failed: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return output, nil
}

// ParseDiff extracts the new-side line numbers of added lines from a
// unified diff. Deleted files are omitted.
func ParseDiff(output []byte) ([]ChangedFile, error) {
	fileDiffs, err := diff.NewMultiFileDiffReader(bytes.NewReader(output)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	var changes []ChangedFile
	for _, fd := range fileDiffs {
		if fd.NewName == "/dev/null" {
			continue
		}
		cf := ChangedFile{Path: strings.TrimPrefix(fd.NewName, "b/"), ChangedLines: []int{}}
		for _, hunk := range fd.Hunks {
			line := int(hunk.NewStartLine)
			for _, text := range strings.Split(string(hunk.Body), "\n") {
				switch {
				case strings.HasPrefix(text, "+"):
					cf.ChangedLines = append(cf.ChangedLines, line)
					line++
				case strings.HasPrefix(text, " "):
					line++
				}
			}
		}
		changes = append(changes, cf)
	}
	return changes, nil
}

// ChangeSet answers whether a line of a file was changed.
type ChangeSet struct {
	lines map[string]map[int]bool
}

func NewChangeSet(files []ChangedFile) *ChangeSet {
	cs := &ChangeSet{lines: make(map[string]map[int]bool, len(files))}
	for _, f := range files {
		set := make(map[int]bool, len(f.ChangedLines))
		for _, l := range f.ChangedLines {
			set[l] = true
		}
		cs.lines[key(f.Path)] = set
	}
	return cs
}

// Touches reports whether any line in [start, end] of path changed.
func (cs *ChangeSet) Touches(path string, start, end int) bool {
	set, ok := cs.lines[key(path)]
	if !ok {
		return false
	}
	for l := start; l <= end; l++ {
		if set[l] {
			return true
		}
	}
	return false
}

// Files returns the changed paths in sorted order.
func (cs *ChangeSet) Files() []string {
	out := make([]string, 0, len(cs.lines))
	for p := range cs.lines {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// FilterFindings keeps the findings whose line range touches a changed line.
func (cs *ChangeSet) FilterFindings(findings []rules.Finding) []rules.Finding {
	out := make([]rules.Finding, 0, len(findings))
	for _, f := range findings {
		if cs.Touches(f.Path, f.Start.Line, f.End.Line) {
			out = append(out, f)
		}
	}
	return out
}

func key(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	return filepath.Clean(path)
}
