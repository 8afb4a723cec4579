// Package crawler discovers the Rust source files to scan.
package crawler

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultIgnored are directory names never descended into.
var DefaultIgnored = []string{".git", "target", "vendor", "node_modules"}

// Crawler walks directories for .rs files.
type Crawler struct {
	ignored []string
	exclude []string
}

// NewCrawler creates a crawler. Exclude patterns use path.Match syntax
// against slash-separated paths relative to the walk root; a pattern
// without a slash matches any single path segment, a leading "**/"
// matches at any depth and a trailing "/**" matches everything below.
func NewCrawler(exclude []string) *Crawler {
	return &Crawler{
		ignored: DefaultIgnored,
		exclude: exclude,
	}
}

// ScanProject walks root and calls onFile for every Rust file in lexical
// order. An error from onFile stops the walk.
func (c *Crawler) ScanProject(root string, onFile func(path string) error) error {
	return c.walk(root, nil, onFile)
}

// Dirs returns root and every directory below it that is not ignored or
// excluded.
func (c *Crawler) Dirs(root string) ([]string, error) {
	var dirs []string
	err := c.walk(root, func(dir string) error {
		dirs = append(dirs, dir)
		return nil
	}, nil)
	return dirs, err
}

func (c *Crawler) walk(root string, onDir, onFile func(path string) error) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil || rel == "." {
			rel = ""
		}
		rel = filepath.ToSlash(rel)

		// Skip ignored directories
		if d.IsDir() {
			if rel != "" && c.Ignored(d.Name(), rel) {
				return filepath.SkipDir
			}
			if onDir != nil {
				return onDir(p)
			}
			return nil
		}

		if onFile == nil || !IsRust(d.Name()) || c.excluded(rel) {
			return nil
		}
		return onFile(p)
	})
}

// Ignored reports whether a directory with the given base name and
// root-relative slash path is skipped.
func (c *Crawler) Ignored(name, rel string) bool {
	for _, ign := range c.ignored {
		if name == ign {
			return true
		}
	}
	return c.excluded(rel)
}

// Collect expands roots (files or directories) into a sorted, duplicate
// free list of Rust files. Files named explicitly are kept even when an
// exclude pattern would match them.
func (c *Crawler) Collect(roots []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) error {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
		return nil
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", root, err)
		}
		if !info.IsDir() {
			_ = add(root)
			continue
		}
		if err := c.ScanProject(root, add); err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

func (c *Crawler) excluded(rel string) bool {
	if rel == "" {
		return false
	}
	segments := strings.Split(rel, "/")
	for _, pattern := range c.exclude {
		pattern = strings.TrimSuffix(filepath.ToSlash(pattern), "/**")
		pattern = strings.TrimPrefix(pattern, "./")
		if match(pattern, rel) {
			return true
		}
		if deep, ok := strings.CutPrefix(pattern, "**/"); ok {
			for i := range segments {
				if match(deep, strings.Join(segments[i:], "/")) {
					return true
				}
			}
			continue
		}
		if !strings.Contains(pattern, "/") {
			for _, seg := range segments {
				if match(pattern, seg) {
					return true
				}
			}
		}
	}
	return false
}

func match(pattern, name string) bool {
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}

// IsRust reports whether name is a Rust source file.
func IsRust(name string) bool {
	return strings.HasSuffix(name, ".rs")
}
