package rules

import (
	"fmt"
	"regexp"
	"strings"

	"ferrolint/internal/source"

	sitter "github.com/smacker/go-tree-sitter"
)

var (
	boxDynErrorRe = regexp.MustCompile(`Box<\s*dyn\s+(?:[\w:]*::)?Error\b([^<>]*)>`)
	sendRe        = regexp.MustCompile(`\bSend\b`)
	syncRe        = regexp.MustCompile(`\bSync\b`)
)

type errorObjectNotSendSync struct{ meta }

func newErrorObjectNotSendSync() *errorObjectNotSendSync {
	return &errorObjectNotSendSync{meta{
		id:          IDErrorObjectNotSendSync,
		code:        CodeErrorObjectNotSendSync,
		description: "Box<dyn Error> in a signature without Send + Sync bounds",
		severity:    SeverityWarning,
	}}
}

func (r *errorObjectNotSendSync) Check(ctx *Context, item *source.Item) *Match {
	fn := item.Function
	if fn == nil {
		return nil
	}
	sig := ctx.File.Text(fn.SignatureSpan)
	for _, m := range boxDynErrorRe.FindAllStringSubmatchIndex(sig, -1) {
		if missingBounds(sig[m[2]:m[3]]) == "" {
			continue
		}
		return &Match{
			Span:    source.Span{Start: fn.SignatureSpan.Start + m[0], End: fn.SignatureSpan.Start + m[1]},
			Message: "Box<dyn Error> is not thread-safe; use Box<dyn Error + Send + Sync>",
		}
	}
	return nil
}

// Fix appends the missing bounds before the closing angle bracket.
func (r *errorObjectNotSendSync) Fix(file *source.File, f Finding) (Edit, error) {
	text := file.Text(f.Span)
	m := boxDynErrorRe.FindStringSubmatchIndex(text)
	if m == nil || m[0] != 0 || m[1] != len(text) {
		return Edit{}, fmt.Errorf("no Box<dyn Error> at %d", f.Span.Start)
	}
	missing := missingBounds(text[m[2]:m[3]])
	if missing == "" {
		return Edit{}, fmt.Errorf("bounds already present at %d", f.Span.Start)
	}
	at := f.Span.End - 1
	return Edit{
		Span:        source.Span{Start: at, End: at},
		NewText:     missing,
		Description: "add Send + Sync bounds to the error trait object",
	}, nil
}

func missingBounds(bounds string) string {
	var out strings.Builder
	if !sendRe.MatchString(bounds) {
		out.WriteString(" + Send")
	}
	if !syncRe.MatchString(bounds) {
		out.WriteString(" + Sync")
	}
	return out.String()
}

var errPatternRe = regexp.MustCompile(`^(?:[\w:]*::)?Err\s*\(`)

type emptyErrorArm struct{ meta }

func newEmptyErrorArm() *emptyErrorArm {
	return &emptyErrorArm{meta{
		id:          IDEmptyErrorArm,
		code:        CodeEmptyErrorArm,
		description: "match arm on Err(..) with an empty body silently drops the error",
		severity:    SeverityWarning,
	}}
}

func (r *emptyErrorArm) Check(ctx *Context, item *source.Item) *Match {
	var found *sitter.Node
	source.Own(item, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.Type() != "match_arm" {
			return true
		}
		pat := n.ChildByFieldName("pattern")
		val := n.ChildByFieldName("value")
		if pat == nil || val == nil || !errPatternRe.MatchString(ctx.File.NodeText(pat)) {
			return true
		}
		if (val.Type() == "block" && val.NamedChildCount() == 0) || val.Type() == "unit_expression" {
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
		Message: "empty Err arm discards the error; handle it, log it, or explain with a comment",
	}
}

var resultReturnRe = regexp.MustCompile(`^(?:\w+::)*Result\b`)

type missingMustUse struct{ meta }

func newMissingMustUse() *missingMustUse {
	return &missingMustUse{meta{
		id:          IDMissingMustUse,
		code:        CodeMissingMustUse,
		description: "public function returning Result without #[must_use]",
		severity:    SeverityInfo,
	}}
}

func (r *missingMustUse) Check(ctx *Context, item *source.Item) *Match {
	fn := item.Function
	if fn == nil || !fn.Public || !resultReturnRe.MatchString(strings.TrimSpace(fn.ReturnType)) {
		return nil
	}
	for _, attr := range item.Attributes {
		if strings.Contains(attr, "must_use") {
			return nil
		}
	}
	return &Match{
		Span:    fn.SignatureSpan,
		Message: fmt.Sprintf("pub fn %s returns %s; mark it #[must_use] so callers cannot ignore it", fn.Name, fn.ReturnType),
	}
}

// Fix inserts a #[must_use] line above the signature, at its indentation.
func (r *missingMustUse) Fix(file *source.File, f Finding) (Edit, error) {
	indent := leadingIndent(file.LineText(file.Position(f.Span.Start).Line))
	return Edit{
		Span:        source.Span{Start: f.Span.Start, End: f.Span.Start},
		NewText:     "#[must_use]\n" + indent,
		Description: "add #[must_use]",
	}, nil
}
