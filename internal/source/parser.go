package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
)

// ErrParse is matched by every *ParseError.
var ErrParse = errors.New("parse error")

// ParseError reports source text whose item boundaries cannot be identified.
type ParseError struct {
	Path   string
	Line   int
	Column int
	Near   string
}

func (e *ParseError) Error() string {
	if e.Near == "" {
		return fmt.Sprintf("%s:%d:%d: syntax error", e.Path, e.Line, e.Column)
	}
	return fmt.Sprintf("%s:%d:%d: syntax error near %q", e.Path, e.Line, e.Column, e.Near)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// ParseFile reads and parses a single Rust source file.
func ParseFile(ctx context.Context, path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return Parse(ctx, path, content)
}

// Parse builds the Source Model for content. The caller must not modify
// content afterwards.
func Parse(ctx context.Context, path string, content []byte) (*File, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(rust.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", path, err)
	}

	f := &File{
		Path:       path,
		Content:    content,
		tree:       tree,
		lineStarts: computeLineStarts(content),
	}

	root := tree.RootNode()
	if root == nil {
		f.Close()
		return nil, &ParseError{Path: path, Line: 1, Column: 1}
	}
	if root.HasError() {
		perr := &ParseError{Path: path, Line: 1, Column: 1}
		if bad := firstError(root); bad != nil {
			pos := f.Position(int(bad.StartByte()))
			perr.Line, perr.Column = pos.Line, pos.Column
			perr.Near = snippet(bad.Content(content))
		}
		f.Close()
		return nil, perr
	}

	b := &builder{file: f}
	if err := b.macros(ctx, parser, root); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to parse file %s: %w", path, err)
	}
	f.Items = b.container(root, nil)
	f.Comments = b.comments(root)
	return f, nil
}

// NodeSpan returns the byte span of a syntax node.
func NodeSpan(n *sitter.Node) Span {
	return Span{Start: int(n.StartByte()), End: int(n.EndByte())}
}

// IsContainer reports whether nodes of this type hold items of their own.
func IsContainer(nodeType string) bool {
	switch nodeType {
	case "source_file", "block", "declaration_list":
		return true
	}
	return false
}

// Own visits the syntax nodes that belong to item itself, in document order,
// without entering nested blocks or declaration lists: their contents are
// separate items. Macro invocations are followed into their parsed
// arguments, where blocks are entered as well since no item holds them.
// Returning false from visit skips the node's children.
func Own(item *Item, visit func(n *sitter.Node) bool) {
	if item == nil || item.Node == nil || IsContainer(item.Node.Type()) {
		return
	}
	var walk func(n *sitter.Node, inMacro bool)
	walk = func(n *sitter.Node, inMacro bool) {
		if !visit(n) {
			return
		}
		if args := item.file.MacroArgs(n); args != nil {
			walk(args, true)
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child == nil || (!inMacro && IsContainer(child.Type())) {
				continue
			}
			walk(child, inMacro)
		}
	}
	walk(item.Node, false)
}

// FindOwn returns the first own node of item accepted by match, or nil.
func FindOwn(item *Item, match func(n *sitter.Node) bool) *sitter.Node {
	var found *sitter.Node
	Own(item, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if match(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

type builder struct {
	file *File
}

// container collects the items held directly by a container node, attaching
// preceding outer attributes to the item they decorate.
func (b *builder) container(node *sitter.Node, parent *Item) []*Item {
	var items []*Item
	var attrs []string
	topLevel := node.Type() != "block"

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "line_comment", "block_comment", "inner_attribute_item", "empty_statement", "label":
			continue
		case "attribute_item":
			attrs = append(attrs, child.Content(b.file.Content))
			continue
		}

		item := &Item{
			Kind:       classify(child.Type(), topLevel),
			Span:       NodeSpan(child),
			Node:       child,
			Attributes: attrs,
			Parent:     parent,
			file:       b.file,
		}
		attrs = nil

		switch item.Kind {
		case KindFunction:
			item.Function = b.function(child)
		case KindConstant:
			item.Constant = b.constant(child)
		}

		item.Children = b.nested(child, item)
		if item.Function != nil {
			item.Function.Body = item.Children
		}
		items = append(items, item)
	}
	return items
}

// nested finds the containers below node and collects their items.
func (b *builder) nested(node *sitter.Node, owner *Item) []*Item {
	var out []*Item
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		if IsContainer(child.Type()) {
			out = append(out, b.container(child, owner)...)
			continue
		}
		out = append(out, b.nested(child, owner)...)
	}
	return out
}

// macroDelimiters wrap macro arguments into a function body so they parse
// as a single expression statement. The opening text ends with the
// macro's own delimiter and the closing text starts with it.
var macroDelimiters = map[byte][2]string{
	'(': {"fn m(){(", ");}"},
	'[': {"fn m(){[", "];}"},
}

// macros parses the arguments of every macro invocation that reads as an
// expression list, including invocations nested in other macros' arguments.
// Arguments are copied to the same byte offsets of an otherwise blank
// buffer, so nodes of the extra trees address Content directly.
func (b *builder) macros(ctx context.Context, parser *sitter.Parser, root *sitter.Node) error {
	f := b.file
	f.macros = make(map[uint32]*sitter.Node)

	var walk func(n *sitter.Node) error
	walk = func(n *sitter.Node) error {
		if n.Type() == "macro_invocation" {
			args, err := b.macroArgs(ctx, parser, n)
			if err != nil || args == nil {
				return err
			}
			f.macros[n.StartByte()] = args
			return walk(args)
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if child := n.NamedChild(i); child != nil {
				if err := walk(child); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walk(root)
}

func (b *builder) macroArgs(ctx context.Context, parser *sitter.Parser, n *sitter.Node) (*sitter.Node, error) {
	var tt *sitter.Node
	for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
		if c := n.NamedChild(i); c != nil && c.Type() == "token_tree" {
			tt = c
			break
		}
	}
	if tt == nil {
		return nil, nil
	}

	content := b.file.Content
	start, end := int(tt.StartByte()), int(tt.EndByte())
	if end-start < 3 || end > len(content) {
		return nil, nil
	}
	wrap, ok := macroDelimiters[content[start]]
	if !ok || start+1 < len(wrap[0]) {
		return nil, nil
	}

	buf := make([]byte, end-1+len(wrap[1]))
	for i := range buf {
		buf[i] = ' '
	}
	copy(buf[start+1-len(wrap[0]):], wrap[0])
	copy(buf[start+1:], content[start+1:end-1])
	copy(buf[end-1:], wrap[1])

	tree, err := parser.ParseCtx(ctx, nil, buf)
	if err != nil {
		return nil, err
	}
	expr := wrappedExpression(tree.RootNode())
	if expr == nil || int(expr.StartByte()) != start || int(expr.EndByte()) != end {
		tree.Close()
		return nil, nil
	}
	b.file.macroTrees = append(b.file.macroTrees, tree)
	return expr, nil
}

// wrappedExpression returns the expression of `fn m(){<expr>;}` or nil
// when the wrapper did not parse cleanly.
func wrappedExpression(root *sitter.Node) *sitter.Node {
	if root == nil || root.HasError() || root.NamedChildCount() != 1 {
		return nil
	}
	body := root.NamedChild(0).ChildByFieldName("body")
	if body == nil || body.NamedChildCount() != 1 {
		return nil
	}
	stmt := body.NamedChild(0)
	if stmt.Type() != "expression_statement" || stmt.NamedChildCount() != 1 {
		return nil
	}
	return stmt.NamedChild(0)
}

func classify(nodeType string, topLevel bool) Kind {
	switch {
	case nodeType == "function_item" || nodeType == "function_signature_item":
		return KindFunction
	case nodeType == "const_item" || nodeType == "static_item":
		return KindConstant
	case topLevel:
		return KindStatement
	case nodeType == "let_declaration" || nodeType == "expression_statement":
		return KindStatement
	case strings.HasSuffix(nodeType, "_item") || strings.HasSuffix(nodeType, "_declaration"):
		return KindStatement
	default:
		return KindExpression
	}
}

func (b *builder) function(node *sitter.Node) *Function {
	src := b.file.Content
	fn := &Function{}

	if name := node.ChildByFieldName("name"); name != nil {
		fn.Name = name.Content(src)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "visibility_modifier":
			fn.Public = strings.TrimSpace(child.Content(src)) == "pub"
		case "function_modifiers":
			fn.Unsafe = strings.Contains(child.Content(src), "unsafe")
		}
	}

	sigEnd := int(node.StartByte())
	if params := node.ChildByFieldName("parameters"); params != nil {
		sigEnd = int(params.EndByte())
		for i := 0; i < int(params.NamedChildCount()); i++ {
			p := params.NamedChild(i)
			if p == nil || p.Type() != "parameter" {
				continue
			}
			fn.Params = append(fn.Params, b.param(p))
		}
	}
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		fn.ReturnType = ret.Content(src)
		fn.ReturnSpan = NodeSpan(ret)
		sigEnd = int(ret.EndByte())
	}
	fn.SignatureSpan = Span{Start: int(node.StartByte()), End: sigEnd}
	return fn
}

func (b *builder) param(node *sitter.Node) Param {
	src := b.file.Content
	var p Param
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if c := node.NamedChild(i); c != nil && c.Type() == "mutable_specifier" {
			p.Mutable = true
		}
	}
	if pat := node.ChildByFieldName("pattern"); pat != nil {
		name := strings.TrimSpace(pat.Content(src))
		if rest, ok := strings.CutPrefix(name, "mut "); ok {
			p.Mutable = true
			name = strings.TrimSpace(rest)
		}
		p.Name = name
	}
	if typ := node.ChildByFieldName("type"); typ != nil {
		p.Type = typ.Content(src)
		p.TypeSpan = NodeSpan(typ)
	}
	return p
}

func (b *builder) constant(node *sitter.Node) *Constant {
	src := b.file.Content
	c := &Constant{Static: node.Type() == "static_item"}
	if name := node.ChildByFieldName("name"); name != nil {
		c.Name = name.Content(src)
	}
	if typ := node.ChildByFieldName("type"); typ != nil {
		c.Type = typ.Content(src)
	}
	if val := node.ChildByFieldName("value"); val != nil {
		c.Value = val.Content(src)
		c.ValueSpan = NodeSpan(val)
	}
	return c
}

// comments gathers every comment node of the tree in document order.
func (b *builder) comments(root *sitter.Node) []Comment {
	var out []Comment
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "line_comment", "block_comment":
			span := NodeSpan(n)
			text := strings.TrimRight(n.Content(b.file.Content), "\r\n")
			end := span.Start + len(text)
			if end > span.Start {
				end--
			}
			out = append(out, Comment{
				Text:      text,
				Span:      span,
				StartLine: b.file.Position(span.Start).Line,
				EndLine:   b.file.Position(end).Line,
			})
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if child := n.Child(i); child != nil {
				walk(child)
			}
		}
	}
	walk(root)
	return out
}

func firstError(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if bad := firstError(node.Child(i)); bad != nil {
			return bad
		}
	}
	return nil
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
