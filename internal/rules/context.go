package rules

import (
	"path/filepath"
	"strings"

	"ferrolint/internal/graph"
	"ferrolint/internal/source"
)

// Context carries the per-file lexical facts that predicates may consult.
// It is built once per file and never mutated by rules.
type Context struct {
	File  *source.File
	Graph *graph.Graph

	reachable map[string]bool
	testPath  bool
}

// NewContext builds the context for f, including its call graph.
func NewContext(f *source.File) *Context {
	g := graph.FromFile(f)
	return &Context{
		File:      f,
		Graph:     g,
		reachable: g.Reachable(g.PublicRoots()),
		testPath:  isTestPath(f.Path),
	}
}

// InTest reports whether item is test code: inside a #[test] function, a
// #[cfg(test)] module, or a file under a tests directory.
func (c *Context) InTest(item *source.Item) bool {
	if c.testPath {
		return true
	}
	for it := item; it != nil; it = it.Parent {
		for _, attr := range it.Attributes {
			if isTestAttribute(attr) {
				return true
			}
		}
	}
	return false
}

// EnclosingFunction returns the nearest function item holding item, item
// itself included.
func (c *Context) EnclosingFunction(item *source.Item) *source.Item {
	for it := item; it != nil; it = it.Parent {
		if it.Function != nil {
			return it
		}
	}
	return nil
}

// FunctionName returns the qualified name (Type::name for methods) of the
// function holding item, or "" outside functions.
func (c *Context) FunctionName(item *source.Item) string {
	fn := c.EnclosingFunction(item)
	if fn == nil {
		return ""
	}
	if node, ok := c.Graph.Nodes[graph.SymbolID(c.File, fn)]; ok {
		return node.Symbol.QualifiedName()
	}
	return fn.Function.Name
}

// InMain reports whether item belongs to the top-level fn main.
func (c *Context) InMain(item *source.Item) bool {
	fn := c.EnclosingFunction(item)
	return fn != nil && fn.Parent == nil && fn.Function.Name == "main"
}

// PublicReachable reports whether the function holding item is exported or
// called, directly or transitively, from an exported function of the file.
func (c *Context) PublicReachable(item *source.Item) bool {
	fn := c.EnclosingFunction(item)
	if fn == nil {
		return false
	}
	return c.reachable[graph.SymbolID(c.File, fn)]
}

// InTraitImpl reports whether item is a method of an `impl Trait for T` block.
func (c *Context) InTraitImpl(item *source.Item) bool {
	for it := item; it != nil; it = it.Parent {
		if it.Node != nil && it.Node.Type() == "impl_item" {
			return it.Node.ChildByFieldName("trait") != nil
		}
	}
	return false
}

// CommentsAbove returns the run of comments that ends on the line before
// line (attribute lines in between are skipped), plus any comment that
// starts on line itself.
func (c *Context) CommentsAbove(line int) []source.Comment {
	var out []source.Comment
	prev := line - 1
	for prev > 0 && strings.HasPrefix(strings.TrimSpace(c.File.LineText(prev)), "#[") {
		prev--
	}
	for i := len(c.File.Comments) - 1; i >= 0; i-- {
		cm := c.File.Comments[i]
		switch {
		case cm.StartLine == line:
			out = append(out, cm)
		case cm.EndLine == prev:
			out = append(out, cm)
			prev = cm.StartLine - 1
		case cm.EndLine < prev:
			return out
		}
	}
	return out
}

// Following returns the source text from the end of item to the end of
// the block that holds it.
func (c *Context) Following(item *source.Item) string {
	end := len(c.File.Content)
	if item.Parent != nil {
		end = item.Parent.Span.End
	}
	return c.File.Text(source.Span{Start: item.Span.End, End: end})
}

// Line returns the 1-based line of a byte offset.
func (c *Context) Line(offset int) int {
	return c.File.Position(offset).Line
}

func isTestAttribute(attr string) bool {
	a := strings.Join(strings.Fields(attr), "")
	return a == "#[test]" || a == "#[bench]" ||
		strings.Contains(a, "cfg(test)") ||
		strings.HasSuffix(a, "::test]") ||
		strings.Contains(a, "::test(")
}

func isTestPath(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, part := range strings.Split(slashed, "/") {
		if part == "tests" || part == "benches" {
			return true
		}
	}
	base := filepath.Base(slashed)
	return strings.HasSuffix(base, "_test.rs") || base == "tests.rs"
}
