package rules

// Rule identifiers, in registration order.
const (
	IDUnwrapOnResult         = "unwrap-on-result"
	IDExpectWithoutMessage   = "expect-without-message"
	IDUnnecessaryClone       = "unnecessary-clone"
	IDPanicInLibrary         = "panic-in-library"
	IDUnnecessaryMut         = "unnecessary-mut"
	IDOwnedStringParam       = "owned-string-param"
	IDErrorObjectNotSendSync = "error-trait-object-not-thread-safe"
	IDPrintlnAsLogging       = "println-as-logging"
	IDHardcodedSecret        = "hardcoded-secret"
	IDUndocumentedUnsafe     = "undocumented-unsafe-block"
	IDEmptyErrorArm          = "empty-error-arm"
	IDRedundantToString      = "redundant-to-string-literal"
	IDRedundantClosure       = "redundant-closure"
	IDMissingMustUse         = "missing-must-use-on-result-return"
)

// Fixture codes, one per rule.
const (
	CodeUnwrapOnResult         = "RUST001"
	CodeExpectWithoutMessage   = "RUST002"
	CodeUnnecessaryClone       = "RUST003"
	CodePanicInLibrary         = "RUST004"
	CodeUnnecessaryMut         = "RUST005"
	CodeOwnedStringParam       = "RUST006"
	CodeErrorObjectNotSendSync = "RUST007"
	CodePrintlnAsLogging       = "RUST008"
	CodeHardcodedSecret        = "RUST009"
	CodeUndocumentedUnsafe     = "RUST010"
	CodeEmptyErrorArm          = "RUST011"
	CodeRedundantToString      = "RUST012"
	CodeRedundantClosure       = "RUST013"
	CodeMissingMustUse         = "RUST014"
)
