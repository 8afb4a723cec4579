package rules

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"ferrolint/internal/source"

	sitter "github.com/smacker/go-tree-sitter"
)

var printMacros = map[string]bool{"println": true, "print": true, "eprintln": true, "eprint": true}

var (
	placeholderRe = regexp.MustCompile(`\{\{|\}\}|\{[^{}]*\}`)
	escapeRe      = regexp.MustCompile(`\\(?:u\{[0-9a-fA-F]+\}|x[0-9a-fA-F]{2}|.)`)
)

type printlnAsLogging struct{ meta }

func newPrintlnAsLogging() *printlnAsLogging {
	return &printlnAsLogging{meta{
		id:          IDPrintlnAsLogging,
		code:        CodePrintlnAsLogging,
		description: "console print used for diagnostic narration instead of a logging facade",
		severity:    SeverityInfo,
	}}
}

func (r *printlnAsLogging) Check(ctx *Context, item *source.Item) *Match {
	if ctx.InTest(item) || ctx.InMain(item) {
		return nil
	}
	var found *sitter.Node
	source.Own(item, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if !printMacros[macroName(ctx.File, n)] {
			return true
		}
		format, ok := macroFormatString(ctx.File.NodeText(n))
		if ok && hasProse(format) && !strings.Contains(strings.ToLower(format), "debug") {
			found = n
		}
		return false
	})
	if found == nil {
		return nil
	}
	return &Match{
		Span:    source.NodeSpan(found),
		Message: fmt.Sprintf("%s! used for logging; use the log or tracing crate", macroName(ctx.File, found)),
	}
}

// hasProse reports letters outside of format placeholders and escapes.
func hasProse(format string) bool {
	rest := escapeRe.ReplaceAllString(placeholderRe.ReplaceAllString(format, ""), "")
	return strings.IndexFunc(rest, unicode.IsLetter) >= 0
}

var toStringCallRe = regexp.MustCompile(`(?s)^(.*?)\s*\.\s*to_string\s*\(\s*\)$`)

type redundantToString struct{ meta }

func newRedundantToString() *redundantToString {
	return &redundantToString{meta{
		id:          IDRedundantToString,
		code:        CodeRedundantToString,
		description: "to_string() on a string literal; String::from states the intent",
		severity:    SeverityInfo,
	}}
}

func (r *redundantToString) Check(ctx *Context, item *source.Item) *Match {
	var found *sitter.Node
	source.Own(item, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		recv, method, args, ok := methodCall(ctx.File, n)
		if ok && method == "to_string" && isStringLiteral(recv) && len(namedArgs(args)) == 0 {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return nil
	}
	return &Match{
		Span:    source.NodeSpan(found),
		Message: "use String::from for string literals instead of to_string()",
	}
}

// Fix rewrites "lit".to_string() to String::from("lit").
func (r *redundantToString) Fix(file *source.File, f Finding) (Edit, error) {
	text := file.Text(f.Span)
	m := toStringCallRe.FindStringSubmatch(text)
	if m == nil {
		return Edit{}, fmt.Errorf("no to_string call at %d", f.Span.Start)
	}
	return Edit{
		Span:        f.Span,
		OldText:     text,
		NewText:     "String::from(" + m[1] + ")",
		Description: "replace to_string() with String::from",
	}, nil
}

var forwardingClosureRe = regexp.MustCompile(`^(?:move\s+)?\|([^|]*)\|\s*([\w:]+)\s*\(([^()]*)\)$`)

type redundantClosure struct{ meta }

func newRedundantClosure() *redundantClosure {
	return &redundantClosure{meta{
		id:          IDRedundantClosure,
		code:        CodeRedundantClosure,
		description: "closure that only forwards its arguments to a named function",
		severity:    SeverityInfo,
	}}
}

func (r *redundantClosure) Check(ctx *Context, item *source.Item) *Match {
	var found *sitter.Node
	var callee string
	source.Own(item, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.Type() != "closure_expression" {
			return true
		}
		if name, ok := forwardedFunction(ctx.File, n); ok {
			found, callee = n, name
			return false
		}
		return true
	})
	if found == nil {
		return nil
	}
	return &Match{
		Span:    source.NodeSpan(found),
		Message: fmt.Sprintf("redundant closure; pass %s directly", callee),
	}
}

// Fix replaces the closure by the path of the function it forwards to.
func (r *redundantClosure) Fix(file *source.File, f Finding) (Edit, error) {
	text := file.Text(f.Span)
	m := forwardingClosureRe.FindStringSubmatch(text)
	if m == nil {
		return Edit{}, fmt.Errorf("no forwarding closure at %d", f.Span.Start)
	}
	return Edit{
		Span:        f.Span,
		OldText:     text,
		NewText:     m[2],
		Description: "replace closure with " + m[2],
	}, nil
}

// forwardedFunction returns the callee of a closure of the form
// |a, b| f(a, b), where the arguments are the parameters in order.
func forwardedFunction(f *source.File, closure *sitter.Node) (string, bool) {
	params := closure.ChildByFieldName("parameters")
	body := closure.ChildByFieldName("body")
	if params == nil || body == nil || body.Type() != "call_expression" {
		return "", false
	}
	fn := body.ChildByFieldName("function")
	if fn == nil || (fn.Type() != "identifier" && fn.Type() != "scoped_identifier") {
		return "", false
	}

	var names []string
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		if p == nil || p.Type() != "identifier" {
			return "", false
		}
		names = append(names, f.NodeText(p))
	}
	args := namedArgs(body.ChildByFieldName("arguments"))
	if len(args) != len(names) {
		return "", false
	}
	callee := f.NodeText(fn)
	for i, a := range args {
		if a.Type() != "identifier" || f.NodeText(a) != names[i] || names[i] == callee {
			return "", false
		}
	}
	if !forwardingClosureRe.MatchString(f.NodeText(closure)) {
		return "", false
	}
	return callee, true
}
