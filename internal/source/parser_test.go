package source

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFile_Sample(t *testing.T) {
	f, err := ParseFile(context.Background(), filepath.Join("testdata", "sample.rs"))
	require.NoError(t, err)
	defer f.Close()

	t.Run("Top level items", func(t *testing.T) {
		require.Len(t, f.Items, 5)
		kinds := []Kind{}
		for _, it := range f.Items {
			kinds = append(kinds, it.Kind)
		}
		assert.Equal(t, []Kind{KindStatement, KindFunction, KindConstant, KindConstant, KindStatement}, kinds)
	})

	t.Run("Function payload", func(t *testing.T) {
		add := f.Items[1]
		require.NotNil(t, add.Function)
		assert.Equal(t, "add", add.Function.Name)
		assert.True(t, add.Function.Public)
		assert.Equal(t, []string{"#[inline]"}, add.Attributes)
		require.Len(t, add.Function.Params, 2)
		assert.Equal(t, "a", add.Function.Params[0].Name)
		assert.True(t, add.Function.Params[0].Mutable)
		assert.Equal(t, "i32", add.Function.Params[1].Type)
		assert.False(t, add.Function.Params[1].Mutable)
		assert.Equal(t, "i32", add.Function.ReturnType)
		assert.Equal(t, "pub fn add(mut a: i32, b: i32) -> i32", f.Text(add.Function.SignatureSpan))
	})

	t.Run("Body items", func(t *testing.T) {
		add := f.Items[1]
		require.Len(t, add.Children, 3)
		assert.Equal(t, KindStatement, add.Children[0].Kind)
		assert.Equal(t, KindStatement, add.Children[1].Kind)
		assert.Equal(t, KindExpression, add.Children[2].Kind)
		assert.Equal(t, "c", f.Text(add.Children[2].Span))

		ifStmt := add.Children[1]
		require.Len(t, ifStmt.Children, 1)
		assert.Equal(t, `println!("big");`, f.Text(ifStmt.Children[0].Span))
		assert.Same(t, ifStmt, ifStmt.Children[0].Parent)
		assert.Same(t, add, ifStmt.Parent)
	})

	t.Run("Constants", func(t *testing.T) {
		limit := f.Items[2].Constant
		require.NotNil(t, limit)
		assert.Equal(t, "LIMIT", limit.Name)
		assert.Equal(t, "u32", limit.Type)
		assert.Equal(t, "10", limit.Value)
		assert.False(t, limit.Static)

		name := f.Items[3].Constant
		require.NotNil(t, name)
		assert.True(t, name.Static)
		assert.Equal(t, `"ferro"`, f.Text(name.ValueSpan))
	})

	t.Run("Impl methods", func(t *testing.T) {
		impl := f.Items[4]
		require.Len(t, impl.Children, 1)
		norm := impl.Children[0]
		require.NotNil(t, norm.Function)
		assert.Equal(t, "norm", norm.Function.Name)
		assert.False(t, norm.Function.Public, "pub(crate) is not exported")
		assert.Empty(t, norm.Function.Params, "self parameter is not a regular param")
	})

	t.Run("Document order", func(t *testing.T) {
		all := f.All()
		require.Len(t, all, 11)
		for i := 1; i < len(all); i++ {
			assert.Less(t, all[i-1].Span.Start, all[i].Span.Start)
		}
	})

	t.Run("Comments", func(t *testing.T) {
		require.Len(t, f.Comments, 1)
		assert.Equal(t, "/// Adds numbers.", f.Comments[0].Text)
		assert.Equal(t, 3, f.Comments[0].StartLine)
		assert.Equal(t, 3, f.Comments[0].EndLine)
	})
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := Parse(context.Background(), "broken.rs", []byte("fn ok() {}\n\nfn broken( {\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "broken.rs", perr.Path)
	assert.GreaterOrEqual(t, perr.Line, 3)
}

func TestFile_Positions(t *testing.T) {
	f, err := Parse(context.Background(), "pos.rs", []byte("fn a() {}\nfn b() {\n    x();\n}\n"))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, Position{Line: 1, Column: 1}, f.Position(0))
	assert.Equal(t, Position{Line: 2, Column: 1}, f.Position(10))
	assert.Equal(t, Position{Line: 3, Column: 5}, f.Position(23))
	assert.Equal(t, "    x();", f.LineText(3))
	assert.Equal(t, "", f.LineText(99))
}

func TestOwn_StopsAtNestedBlocks(t *testing.T) {
	f, err := Parse(context.Background(), "own.rs", []byte("fn f() {\n    if x > 0 { a.unwrap(); }\n}\n"))
	require.NoError(t, err)
	defer f.Close()

	ifStmt := f.Items[0].Children[0]
	call := FindOwn(ifStmt, func(n *sitter.Node) bool { return n.Type() == "call_expression" })
	assert.Nil(t, call, "the call lives in the nested block item")

	inner := ifStmt.Children[0]
	call = FindOwn(inner, func(n *sitter.Node) bool { return n.Type() == "call_expression" })
	require.NotNil(t, call)
	assert.Equal(t, "a.unwrap()", f.NodeText(call))
}

func TestMacroArgs(t *testing.T) {
	src := "fn f() {\n    println!(\"{}\", format!(\"{}\", a.unwrap()));\n    let v = vec![b.clone(); 2];\n    my_macro!(x => y);\n}\n"
	f, err := Parse(context.Background(), "macros.rs", []byte(src))
	require.NoError(t, err)
	defer f.Close()

	body := f.Items[0].Children
	require.Len(t, body, 3)

	t.Run("Nested macro calls", func(t *testing.T) {
		call := FindOwn(body[0], func(n *sitter.Node) bool { return n.Type() == "call_expression" })
		require.NotNil(t, call)
		assert.Equal(t, "a.unwrap()", f.NodeText(call))
		assert.Equal(t, 2, f.Position(int(call.StartByte())).Line)
	})

	t.Run("Repeat array", func(t *testing.T) {
		call := FindOwn(body[1], func(n *sitter.Node) bool { return n.Type() == "call_expression" })
		require.NotNil(t, call)
		assert.Equal(t, "b.clone()", f.NodeText(call))
	})

	t.Run("Non expression arguments", func(t *testing.T) {
		mac := FindOwn(body[2], func(n *sitter.Node) bool { return n.Type() == "macro_invocation" })
		require.NotNil(t, mac)
		assert.Nil(t, f.MacroArgs(mac))
	})
}

func TestSpan_Overlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Span
		want bool
	}{
		{"Disjoint", Span{0, 3}, Span{3, 6}, false},
		{"Overlapping", Span{0, 4}, Span{3, 6}, true},
		{"Nested", Span{0, 10}, Span{2, 3}, true},
		{"Two insertions", Span{5, 5}, Span{5, 5}, false},
		{"Insertion at start", Span{2, 2}, Span{2, 6}, true},
		{"Insertion at end", Span{6, 6}, Span{2, 6}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}
