package rules

import (
	"fmt"
	"regexp"
	"strings"

	"ferrolint/internal/source"

	sitter "github.com/smacker/go-tree-sitter"
)

// DefaultSecretNames are identifier words that mark a binding as a secret
// regardless of its value.
var DefaultSecretNames = []string{
	"password", "passwd", "pwd", "secret", "token", "credential", "credentials", "apikey", "auth",
}

var secretPrefixes = []string{
	"sk_live_", "sk_test_", "ghp_", "gho_", "github_pat_", "AKIA", "xoxb-", "xoxp-", "-----BEGIN",
}

// ambiguousSecretNames also name non-secret things such as endpoints and
// header names, so they only count for values that look like credentials.
var ambiguousSecretNames = map[string]bool{"auth": true, "token": true}

// plainWordsRe matches header-like values such as "Authorization" or "X-Auth-Token".
var plainWordsRe = regexp.MustCompile(`^[A-Za-z]+(?:-[A-Za-z]+)*$`)

// envNameRe matches values that name an environment variable rather than hold a secret.
var envNameRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

const (
	weakKeyMinLength    = 8
	entropyMinLength    = 20
	entropyMinBitsPerCh = 4.0
)

type hardcodedSecret struct {
	meta
	names []string
}

func newHardcodedSecret(names []string) *hardcodedSecret {
	lower := make([]string, 0, len(names))
	for _, n := range names {
		lower = append(lower, strings.ToLower(strings.ReplaceAll(n, "_", "")))
	}
	return &hardcodedSecret{
		meta: meta{
			id:          IDHardcodedSecret,
			code:        CodeHardcodedSecret,
			description: "string literal bound to a secret-looking name or holding a token-like value",
			severity:    SeverityError,
		},
		names: lower,
	}
}

func (r *hardcodedSecret) Check(ctx *Context, item *source.Item) *Match {
	if ctx.InTest(item) {
		return nil
	}
	var name string
	var lit *sitter.Node
	switch {
	case item.Constant != nil:
		name = item.Constant.Name
		lit = item.Node.ChildByFieldName("value")
	case item.Node.Type() == "let_declaration":
		pat := item.Node.ChildByFieldName("pattern")
		if pat == nil || pat.Type() != "identifier" {
			return nil
		}
		name = ctx.File.NodeText(pat)
		lit = item.Node.ChildByFieldName("value")
	default:
		return nil
	}
	if !isStringLiteral(lit) {
		return nil
	}
	value := literalValue(ctx.File.NodeText(lit))
	if value == "" || envNameRe.MatchString(value) {
		return nil
	}
	reason := r.reason(name, value)
	if reason == "" {
		return nil
	}
	return &Match{
		Span:    source.NodeSpan(lit),
		Message: fmt.Sprintf("hardcoded %s in `%s`; load it from the environment or a secret store", reason, name),
	}
}

func (r *hardcodedSecret) reason(name, value string) string {
	words := identifierWords(name)
	joined := strings.Join(words, "")
	for _, s := range r.names {
		if ambiguousSecretNames[s] && !credentialLike(value) {
			continue
		}
		for _, w := range words {
			if w == s {
				return s
			}
		}
		if len(s) >= 5 && strings.Contains(joined, s) {
			return s
		}
	}
	for _, w := range words {
		if w == "key" && len(value) >= weakKeyMinLength {
			return "key"
		}
	}
	for _, p := range secretPrefixes {
		if strings.HasPrefix(value, p) {
			return "token"
		}
	}
	if len(value) >= entropyMinLength && !strings.ContainsAny(value, " \t\n") &&
		shannonEntropy(value) >= entropyMinBitsPerCh {
		return "high-entropy string"
	}
	return ""
}

// credentialLike rejects URLs, paths, prose and plain words.
func credentialLike(value string) bool {
	return len(value) >= weakKeyMinLength &&
		!strings.Contains(value, "://") &&
		!strings.HasPrefix(value, "/") &&
		!strings.ContainsAny(value, " \t\n") &&
		!plainWordsRe.MatchString(value)
}

type undocumentedUnsafe struct{ meta }

func newUndocumentedUnsafe() *undocumentedUnsafe {
	return &undocumentedUnsafe{meta{
		id:          IDUndocumentedUnsafe,
		code:        CodeUndocumentedUnsafe,
		description: "unsafe block or fn without a SAFETY comment justifying it",
		severity:    SeverityWarning,
	}}
}

const unsafeKeyword = "unsafe"

func (r *undocumentedUnsafe) Check(ctx *Context, item *source.Item) *Match {
	if fn := item.Function; fn != nil {
		if !fn.Unsafe || r.documented(ctx, ctx.Line(item.Span.Start)) {
			return nil
		}
		sig := ctx.File.Text(fn.SignatureSpan)
		at := strings.Index(sig, unsafeKeyword)
		if at < 0 {
			return nil
		}
		start := fn.SignatureSpan.Start + at
		return &Match{
			Span:    source.Span{Start: start, End: start + len(unsafeKeyword)},
			Message: fmt.Sprintf("unsafe fn %s has no `# Safety` section or SAFETY comment", fn.Name),
		}
	}

	block := source.FindOwn(item, func(n *sitter.Node) bool { return n.Type() == "unsafe_block" })
	if block == nil {
		return nil
	}
	start := int(block.StartByte())
	if r.documented(ctx, ctx.Line(start)) || r.documented(ctx, ctx.Line(item.Span.Start)) {
		return nil
	}
	return &Match{
		Span:    source.Span{Start: start, End: start + len(unsafeKeyword)},
		Message: "unsafe block without a // SAFETY: comment explaining why it is sound",
	}
}

func (r *undocumentedUnsafe) documented(ctx *Context, line int) bool {
	for _, c := range ctx.CommentsAbove(line) {
		if strings.Contains(strings.ToUpper(c.Text), "SAFETY") {
			return true
		}
	}
	return false
}
