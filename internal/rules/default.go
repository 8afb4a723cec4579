package rules

// DefaultExpectMinLength is the shortest expect() message accepted as descriptive.
const DefaultExpectMinLength = 10

// Options tunes the built-in rules.
type Options struct {
	ExpectMinLength int
	// SecretNames extends DefaultSecretNames.
	SecretNames []string
}

// Default returns a registry holding the built-in rules in RUST001..RUST014
// order. It panics if the built-in set is inconsistent.
func Default(opts Options) *Registry {
	if opts.ExpectMinLength <= 0 {
		opts.ExpectMinLength = DefaultExpectMinLength
	}
	names := append(append([]string{}, DefaultSecretNames...), opts.SecretNames...)

	reg := NewRegistry()
	reg.MustRegister(
		newUnwrapOnResult(),
		newExpectWithoutMessage(opts.ExpectMinLength),
		newUnnecessaryClone(),
		newPanicInLibrary(),
		newUnnecessaryMut(),
		newOwnedStringParam(),
		newErrorObjectNotSendSync(),
		newPrintlnAsLogging(),
		newHardcodedSecret(names),
		newUndocumentedUnsafe(),
		newEmptyErrorArm(),
		newRedundantToString(),
		newRedundantClosure(),
		newMissingMustUse(),
	)
	return reg
}
