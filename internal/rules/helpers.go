package rules

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"ferrolint/internal/source"

	sitter "github.com/smacker/go-tree-sitter"
)

// methodCall matches `receiver.method(args)` and returns its parts.
func methodCall(f *source.File, n *sitter.Node) (recv *sitter.Node, method string, args *sitter.Node, ok bool) {
	if n.Type() != "call_expression" {
		return nil, "", nil, false
	}
	fn := n.ChildByFieldName("function")
	if fn == nil || fn.Type() != "field_expression" {
		return nil, "", nil, false
	}
	field := fn.ChildByFieldName("field")
	recv = fn.ChildByFieldName("value")
	if field == nil || recv == nil {
		return nil, "", nil, false
	}
	return recv, f.NodeText(field), n.ChildByFieldName("arguments"), true
}

// findMethodCall returns the first own call of method on item.
func findMethodCall(f *source.File, item *source.Item, method string) (call, recv, args *sitter.Node) {
	source.Own(item, func(n *sitter.Node) bool {
		if call != nil {
			return false
		}
		if r, m, a, ok := methodCall(f, n); ok && m == method {
			call, recv, args = n, r, a
			return false
		}
		return true
	})
	return call, recv, args
}

// namedArgs returns the named children of an arguments node.
func namedArgs(args *sitter.Node) []*sitter.Node {
	if args == nil {
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(args.NamedChildCount()); i++ {
		if a := args.NamedChild(i); a != nil && !isComment(a) {
			out = append(out, a)
		}
	}
	return out
}

func isComment(n *sitter.Node) bool {
	return n.Type() == "line_comment" || n.Type() == "block_comment"
}

func isStringLiteral(n *sitter.Node) bool {
	return n != nil && (n.Type() == "string_literal" || n.Type() == "raw_string_literal")
}

// literalValue strips the quotes (and raw-string hashes) of a literal.
func literalValue(text string) string {
	s := strings.TrimPrefix(text, "b")
	if strings.HasPrefix(s, "r") {
		s = strings.TrimPrefix(s, "r")
		s = strings.Trim(s, "#")
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// macroName returns the invoked macro's name without the bang.
func macroName(f *source.File, n *sitter.Node) string {
	if n.Type() != "macro_invocation" {
		return ""
	}
	m := n.ChildByFieldName("macro")
	if m == nil {
		return ""
	}
	name := f.NodeText(m)
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	return name
}

var formatStringRe = regexp.MustCompile(`^[\w:]+!\s*[(\[{]\s*"((?:[^"\\]|\\.)*)"`)

// macroFormatString returns the leading string literal of a macro call.
func macroFormatString(text string) (string, bool) {
	m := formatStringRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

var mutatingMethods = []string{
	"push", "push_str", "push_back", "push_front", "pop", "pop_back", "pop_front",
	"insert", "remove", "clear", "extend", "truncate", "append", "drain", "retain",
	"sort", "sort_by", "sort_by_key", "sort_unstable", "dedup", "reverse", "swap",
	"resize", "split_off", "iter_mut", "get_mut", "as_mut", "entry", "make_ascii_lowercase",
	"make_ascii_uppercase", "set",
}

// mutated reports whether text assigns to, mutably borrows, or calls a
// mutating method on the variable name.
func mutated(text, name string) bool {
	if name == "" {
		return false
	}
	q := regexp.QuoteMeta(name)
	patterns := []string{
		`(?:^|[^\w.])` + q + `\s*(?:[+\-*/%&|^]|<<|>>)?=(?:[^=>]|$)`,
		`&\s*mut\s+` + q + `\b`,
		`\b` + q + `\s*\.\s*(?:` + strings.Join(mutatingMethods, "|") + `)\s*\(`,
	}
	for _, p := range patterns {
		if regexp.MustCompile(p).MatchString(text) {
			return true
		}
	}
	return false
}

// identifierWords splits an identifier into lower-case words on
// underscores and camel-case boundaries.
func identifierWords(name string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-':
			flush()
		case unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return words
}

// shannonEntropy returns the per-character entropy of s in bits.
func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	freq := map[rune]float64{}
	n := 0.0
	for _, r := range s {
		freq[r]++
		n++
	}
	var h float64
	for _, c := range freq {
		p := c / n
		h -= p * math.Log2(p)
	}
	return h
}

func leadingIndent(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}
