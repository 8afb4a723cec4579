package rules

import (
	"fmt"
	"regexp"
	"strings"

	"ferrolint/internal/source"

	sitter "github.com/smacker/go-tree-sitter"
)

type unnecessaryClone struct{ meta }

func newUnnecessaryClone() *unnecessaryClone {
	return &unnecessaryClone{meta{
		id:          IDUnnecessaryClone,
		code:        CodeUnnecessaryClone,
		description: "clone() of a value that is never mutated independently; borrow it instead",
		severity:    SeverityWarning,
	}}
}

func (r *unnecessaryClone) Check(ctx *Context, item *source.Item) *Match {
	f := ctx.File
	call, recv, args := findMethodCall(f, item, "clone")
	if call == nil || len(namedArgs(args)) != 0 || recv.Type() != "identifier" {
		return nil
	}
	name := f.NodeText(recv)
	rest := ctx.Following(item)
	if mutated(rest, name) {
		return nil
	}
	if item.Node.Type() == "let_declaration" {
		if hasMutSpecifier(item.Node) {
			return nil
		}
		if pat := item.Node.ChildByFieldName("pattern"); pat != nil && mutated(rest, f.NodeText(pat)) {
			return nil
		}
	}
	return &Match{
		Span:    source.NodeSpan(call),
		Message: fmt.Sprintf("%s.clone() copies a value that is never mutated afterwards; borrow &%s instead", name, name),
	}
}

type unnecessaryMut struct{ meta }

func newUnnecessaryMut() *unnecessaryMut {
	return &unnecessaryMut{meta{
		id:          IDUnnecessaryMut,
		code:        CodeUnnecessaryMut,
		description: "let mut binding that is never reassigned, mutably borrowed or method-called",
		severity:    SeverityWarning,
	}}
}

var mutPrefixRe = regexp.MustCompile(`^mut\s+`)

func (r *unnecessaryMut) Check(ctx *Context, item *source.Item) *Match {
	if item.Node.Type() != "let_declaration" {
		return nil
	}
	mutSpec := mutSpecifier(item.Node)
	pat := item.Node.ChildByFieldName("pattern")
	if mutSpec == nil || pat == nil || pat.Type() != "identifier" {
		return nil
	}
	name := ctx.File.NodeText(pat)
	rest := ctx.Following(item)
	if mutated(rest, name) || usedAsReceiver(rest, name) {
		return nil
	}
	return &Match{
		Span:    source.Span{Start: int(mutSpec.StartByte()), End: int(pat.EndByte())},
		Message: fmt.Sprintf("variable `%s` is declared mut but never mutated", name),
	}
}

// Fix drops the `mut ` keyword.
func (r *unnecessaryMut) Fix(file *source.File, f Finding) (Edit, error) {
	text := file.Text(f.Span)
	loc := mutPrefixRe.FindStringIndex(text)
	if loc == nil {
		return Edit{}, fmt.Errorf("no mut keyword at %d", f.Span.Start)
	}
	span := source.Span{Start: f.Span.Start, End: f.Span.Start + loc[1]}
	return Edit{
		Span:        span,
		OldText:     file.Text(span),
		NewText:     "",
		Description: "remove unnecessary mut",
	}, nil
}

type ownedStringParam struct{ meta }

func newOwnedStringParam() *ownedStringParam {
	return &ownedStringParam{meta{
		id:          IDOwnedStringParam,
		code:        CodeOwnedStringParam,
		description: "parameter takes an owned String where &str would do",
		severity:    SeverityInfo,
	}}
}

func (r *ownedStringParam) Check(ctx *Context, item *source.Item) *Match {
	fn := item.Function
	if fn == nil || ctx.InMain(item) || ctx.InTraitImpl(item) || ctx.InTest(item) {
		return nil
	}
	body := item.Node.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	bodyText := ctx.File.NodeText(body)
	returnsString := strings.Contains(fn.ReturnType, "String")

	for _, p := range fn.Params {
		if strings.TrimSpace(p.Type) != "String" || p.Mutable || p.Name == "" || p.Name == "_" {
			continue
		}
		if mutated(bodyText, p.Name) || consumed(bodyText, p.Name) {
			continue
		}
		if returnsString && regexp.MustCompile(`\b`+regexp.QuoteMeta(p.Name)+`\b`).MatchString(bodyText) {
			continue
		}
		return &Match{
			Span:    p.TypeSpan,
			Message: fmt.Sprintf("parameter `%s` takes an owned String; accept &str unless ownership is needed", p.Name),
		}
	}
	return nil
}

func hasMutSpecifier(n *sitter.Node) bool { return mutSpecifier(n) != nil }

func mutSpecifier(n *sitter.Node) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c != nil && c.Type() == "mutable_specifier" {
			return c
		}
	}
	return nil
}

// usedAsReceiver reports member access on name, or name as a write! target.
func usedAsReceiver(text, name string) bool {
	q := regexp.QuoteMeta(name)
	re := regexp.MustCompile(`(?:^|[^\w.])` + q + `\s*\.|(?:write|writeln)!\s*\(\s*` + q + `\b`)
	return re.MatchString(text)
}

// consumed reports conversions that need an owned value.
func consumed(text, name string) bool {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\s*\.\s*into\w*\s*\(`)
	return re.MatchString(text)
}
