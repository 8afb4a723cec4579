package source

import (
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// File is the parsed Source Model of one Rust file. It is immutable once
// built; a changed file is parsed again rather than updated in place.
type File struct {
	Path     string
	Content  []byte
	Items    []*Item
	Comments []Comment

	tree       *sitter.Tree
	lineStarts []int

	// macros maps a macro invocation's start byte to its arguments parsed
	// as one expression. Those nodes come from trees in macroTrees but
	// their byte offsets are offsets into Content.
	macros     map[uint32]*sitter.Node
	macroTrees []*sitter.Tree
}

// Walk visits every item in document order (pre-order). Returning false
// from fn skips the children of that item.
func (f *File) Walk(fn func(*Item) bool) {
	var walk func(items []*Item)
	walk = func(items []*Item) {
		for _, it := range items {
			if fn(it) {
				walk(it.Children)
			}
		}
	}
	walk(f.Items)
}

// All returns the flattened item list in document order.
func (f *File) All() []*Item {
	var out []*Item
	f.Walk(func(it *Item) bool {
		out = append(out, it)
		return true
	})
	return out
}

// Text returns the source text covered by s, clamped to the file bounds.
func (f *File) Text(s Span) string {
	start, end := clampOffset(s.Start, len(f.Content)), clampOffset(s.End, len(f.Content))
	if end < start {
		return ""
	}
	return string(f.Content[start:end])
}

// NodeText returns the source text of a syntax node.
func (f *File) NodeText(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(f.Content)
}

// Position converts a byte offset into a 1-based line and column.
func (f *File) Position(offset int) Position {
	offset = clampOffset(offset, len(f.Content))
	line := sort.Search(len(f.lineStarts), func(i int) bool {
		return f.lineStarts[i] > offset
	})
	return Position{Line: line, Column: offset - f.lineStarts[line-1] + 1}
}

// LineText returns the text of a 1-based line without its line terminator.
func (f *File) LineText(line int) string {
	if line < 1 || line > len(f.lineStarts) {
		return ""
	}
	start := f.lineStarts[line-1]
	end := len(f.Content)
	if line < len(f.lineStarts) {
		end = f.lineStarts[line]
	}
	return strings.TrimRight(string(f.Content[start:end]), "\r\n")
}

// MacroArgs returns the parsed arguments of a macro_invocation node: a
// tuple, parenthesized or array expression spanning the macro's
// delimiters. It returns nil for other nodes and for macros whose
// arguments are not an expression list.
func (f *File) MacroArgs(n *sitter.Node) *sitter.Node {
	if f == nil || n == nil || n.Type() != "macro_invocation" {
		return nil
	}
	return f.macros[n.StartByte()]
}

// Close releases the underlying syntax tree. Items must not be used afterwards.
func (f *File) Close() {
	if f.tree != nil {
		f.tree.Close()
		f.tree = nil
	}
	for _, t := range f.macroTrees {
		t.Close()
	}
	f.macroTrees, f.macros = nil, nil
}

func computeLineStarts(content []byte) []int {
	starts := []int{0}
	for i, b := range content {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func clampOffset(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
