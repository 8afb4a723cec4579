package graph

import (
	"fmt"
	"strings"

	"ferrolint/internal/source"

	sitter "github.com/smacker/go-tree-sitter"
)

// FromFile builds and links the call graph of every function in f.
func FromFile(f *source.File) *Graph {
	g := NewGraph()
	f.Walk(func(it *source.Item) bool {
		if it.Function != nil {
			g.AddSymbol(symbolFor(f, it))
		}
		return true
	})
	g.LinkRelations()
	return g
}

// SymbolID returns the graph ID of a function item.
func SymbolID(f *source.File, it *source.Item) string {
	if it == nil || it.Function == nil {
		return ""
	}
	name := it.Function.Name
	if owner := ownerOf(f, it); owner != "" {
		name = owner + "::" + name
	}
	return fmt.Sprintf("%s:%s:%d", f.Path, name, f.Position(it.Span.Start).Line)
}

func symbolFor(f *source.File, it *source.Item) *Symbol {
	s := &Symbol{
		ID:        SymbolID(f, it),
		Name:      it.Function.Name,
		Owner:     ownerOf(f, it),
		Public:    it.Function.Public,
		StartLine: f.Position(it.Span.Start).Line,
		EndLine:   f.Position(it.Span.End).Line,
		Item:      it,
	}
	if body := it.Node.ChildByFieldName("body"); body != nil {
		s.Relations = collectCalls(f, body)
	}
	return s
}

// ownerOf returns the self type of the impl block holding it, if any.
func ownerOf(f *source.File, it *source.Item) string {
	p := it.Parent
	if p == nil || p.Node == nil || p.Node.Type() != "impl_item" {
		return ""
	}
	typ := p.Node.ChildByFieldName("type")
	if typ == nil {
		return ""
	}
	name := f.NodeText(typ)
	if i := strings.IndexByte(name, '<'); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

func collectCalls(f *source.File, body *sitter.Node) []Relation {
	var rels []Relation
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "function_item" {
			return
		}
		if n.Type() == "call_expression" {
			if rel, ok := callRelation(f, n); ok {
				rels = append(rels, rel)
			}
		}
		if args := f.MacroArgs(n); args != nil {
			walk(args)
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if child := n.NamedChild(i); child != nil {
				walk(child)
			}
		}
	}
	walk(body)
	return rels
}

func callRelation(f *source.File, call *sitter.Node) (Relation, bool) {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return Relation{}, false
	}
	line := f.Position(int(call.StartByte())).Line

	switch fn.Type() {
	case "identifier":
		return Relation{Target: f.NodeText(fn), Kind: RelationCalls, Line: line}, true
	case "scoped_identifier":
		name := fn.ChildByFieldName("name")
		if name == nil {
			return Relation{}, false
		}
		rel := Relation{Target: f.NodeText(name), Kind: RelationCalls, Line: line}
		if path := fn.ChildByFieldName("path"); path != nil {
			scope := f.NodeText(path)
			switch scope {
			case "crate", "super":
				// module-relative path to a free function of this file
			default:
				rel.Scope = scope
			}
		}
		return rel, true
	case "field_expression":
		field := fn.ChildByFieldName("field")
		if field == nil {
			return Relation{}, false
		}
		rel := Relation{Target: f.NodeText(field), Kind: RelationMethodCalls, Line: line}
		if value := fn.ChildByFieldName("value"); value != nil && f.NodeText(value) == "self" {
			rel.Scope = "self"
		}
		return rel, true
	}
	return Relation{}, false
}
