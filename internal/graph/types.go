package graph

import "ferrolint/internal/source"

type RelationKind string

const (
	RelationCalls       RelationKind = "calls"
	RelationMethodCalls RelationKind = "method_calls"
)

type UnresolvedReason string

const (
	ReasonNoCandidate UnresolvedReason = "no_candidate"
	ReasonAmbiguous   UnresolvedReason = "ambiguous"
)

// Symbol is a function of the file together with the calls it makes.
type Symbol struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Owner     string     `json:"owner,omitempty"` // impl type, empty for free functions
	Public    bool       `json:"public"`
	StartLine int        `json:"start_line"`
	EndLine   int        `json:"end_line"`
	Relations []Relation `json:"relations,omitempty"`

	Item *source.Item `json:"-"`
}

// QualifiedName returns Owner::Name for methods and Name otherwise.
func (s *Symbol) QualifiedName() string {
	if s.Owner == "" {
		return s.Name
	}
	return s.Owner + "::" + s.Name
}

type Relation struct {
	Target string       `json:"target"`
	Kind   RelationKind `json:"kind"`
	// Scope is the path qualifier of the call site ("Self", a type name), if any.
	Scope string `json:"scope,omitempty"`
	Line  int    `json:"line"`
}

// Unresolved records a call whose target could not be pinned to one symbol.
type Unresolved struct {
	From   string           `json:"from"`
	Target string           `json:"target"`
	Reason UnresolvedReason `json:"reason"`
}
