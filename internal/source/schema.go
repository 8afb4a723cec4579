package source

import sitter "github.com/smacker/go-tree-sitter"

// Kind tags an Item with its syntactic role.
type Kind string

const (
	KindFunction   Kind = "function"
	KindConstant   Kind = "constant"
	KindStatement  Kind = "statement"
	KindExpression Kind = "expression"
)

// Span is a half-open byte range [Start, End) within a file.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int { return s.End - s.Start }

// Contains reports whether o lies entirely inside s.
func (s Span) Contains(o Span) bool {
	return s.Start <= o.Start && o.End <= s.End
}

// Overlaps reports whether two spans conflict when used as edit targets.
// Two empty spans never overlap; an empty span overlaps a non-empty one
// when its position falls in [Start, End).
func (s Span) Overlaps(o Span) bool {
	if s.Len() == 0 && o.Len() == 0 {
		return false
	}
	if s.Len() == 0 {
		return o.Start <= s.Start && s.Start < o.End
	}
	if o.Len() == 0 {
		return s.Start <= o.Start && o.Start < s.End
	}
	return s.Start < o.End && o.Start < s.End
}

// Position is a 1-based line and byte column.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Param is a single function parameter.
type Param struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Mutable  bool   `json:"mutable,omitempty"`
	TypeSpan Span   `json:"type_span"`
}

// Function holds the signature details of a function item.
type Function struct {
	Name       string  `json:"name"`
	Public     bool    `json:"public"`
	Unsafe     bool    `json:"unsafe,omitempty"`
	Params     []Param `json:"params"`
	ReturnType string  `json:"return_type,omitempty"`
	ReturnSpan Span    `json:"return_span"`
	// SignatureSpan runs from the start of the item (visibility included)
	// to the end of the return type, or the parameter list when there is none.
	SignatureSpan Span    `json:"signature_span"`
	Body          []*Item `json:"-"`
}

// Constant holds the details of a const or static item.
type Constant struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Value     string `json:"value"`
	ValueSpan Span   `json:"value_span"`
	Static    bool   `json:"static,omitempty"`
}

// Item is one entry of the Source Model: a top-level item or a statement
// of some block, together with the items of its own nested blocks.
type Item struct {
	Kind       Kind
	Span       Span
	Node       *sitter.Node
	Attributes []string // outer attributes, e.g. "#[must_use]"
	Parent     *Item
	Children   []*Item

	Function *Function
	Constant *Constant

	file *File
}

// Comment is a line or block comment found anywhere in the file.
type Comment struct {
	Text      string
	Span      Span
	StartLine int
	EndLine   int
}
