package rules

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"ferrolint/internal/source"

	sitter "github.com/smacker/go-tree-sitter"
)

type unwrapOnResult struct{ meta }

func newUnwrapOnResult() *unwrapOnResult {
	return &unwrapOnResult{meta{
		id:          IDUnwrapOnResult,
		code:        CodeUnwrapOnResult,
		description: "unwrap() panics on Err or None; propagate the error with ? or handle it",
		severity:    SeverityWarning,
	}}
}

func (r *unwrapOnResult) Check(ctx *Context, item *source.Item) *Match {
	if ctx.InTest(item) {
		return nil
	}
	call, recv, args := findMethodCall(ctx.File, item, "unwrap")
	if call == nil || len(namedArgs(args)) != 0 {
		return nil
	}
	return &Match{
		Span:    source.Span{Start: int(recv.EndByte()), End: int(call.EndByte())},
		Message: "unwrap() may panic at runtime; use ? or match on the result",
	}
}

// vagueExpectMessages are messages that say nothing about the failed invariant.
var vagueExpectMessages = map[string]bool{
	"err": true, "error": true, "fail": true, "failed": true, "failure": true,
	"oops": true, "todo": true, "fixme": true, "bad": true, "wrong": true,
	"panic": true, "none": true, "invalid": true, "unreachable": true,
	"should not happen": true, "impossible": true,
}

type expectWithoutMessage struct {
	meta
	minLength int
}

func newExpectWithoutMessage(minLength int) *expectWithoutMessage {
	return &expectWithoutMessage{
		meta: meta{
			id:          IDExpectWithoutMessage,
			code:        CodeExpectWithoutMessage,
			description: "expect() message too short or vague to explain the failure",
			severity:    SeverityWarning,
		},
		minLength: minLength,
	}
}

func (r *expectWithoutMessage) Check(ctx *Context, item *source.Item) *Match {
	if ctx.InTest(item) {
		return nil
	}
	var found *Match
	source.Own(item, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		recv, method, args, ok := methodCall(ctx.File, n)
		if !ok || method != "expect" {
			return true
		}
		a := namedArgs(args)
		if len(a) != 1 || !isStringLiteral(a[0]) {
			return true
		}
		msg := literalValue(ctx.File.NodeText(a[0]))
		if utf8.RuneCountInString(strings.TrimSpace(msg)) >= r.minLength &&
			!vagueExpectMessages[strings.ToLower(strings.TrimSpace(msg))] {
			return true
		}
		found = &Match{
			Span:    source.Span{Start: int(recv.EndByte()), End: int(n.EndByte())},
			Message: fmt.Sprintf("expect(%q) does not explain what went wrong; describe the violated expectation", msg),
		}
		return false
	})
	return found
}

var abortMacros = map[string]bool{"panic": true, "todo": true, "unimplemented": true}

type panicInLibrary struct{ meta }

func newPanicInLibrary() *panicInLibrary {
	return &panicInLibrary{meta{
		id:          IDPanicInLibrary,
		code:        CodePanicInLibrary,
		description: "panic!, todo! or unimplemented! reachable from a public function",
		severity:    SeverityWarning,
	}}
}

func (r *panicInLibrary) Check(ctx *Context, item *source.Item) *Match {
	if ctx.InTest(item) || ctx.InMain(item) || !ctx.PublicReachable(item) {
		return nil
	}
	var found *sitter.Node
	source.Own(item, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if abortMacros[macroName(ctx.File, n)] {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return nil
	}
	fn := ctx.EnclosingFunction(item)
	return &Match{
		Span:    source.NodeSpan(found),
		Message: fmt.Sprintf("%s! in library code reachable from public API (fn %s); return a Result instead", macroName(ctx.File, found), fn.Function.Name),
	}
}
