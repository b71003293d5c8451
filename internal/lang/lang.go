// Package lang normalizes source files from different languages into a
// common stream of syntax facts (imports, function spans, branching
// nodes, class shapes). The structural and architecture check handlers
// operate on this stream and never touch language syntax directly.
package lang

import (
	"path/filepath"
	"strings"
)

// NodeKind classifies a structural node inside a function body.
type NodeKind string

const (
	NodeBranch        NodeKind = "branch"        // if/elif/case
	NodeLoop          NodeKind = "loop"          // for/while/range
	NodeExcept        NodeKind = "except"        // exception handler
	NodeWith          NodeKind = "with"          // context manager
	NodeAssert        NodeKind = "assert"        // assert statement
	NodeBoolOp        NodeKind = "boolop"        // n-way and/or combinator
	NodeComprehension NodeKind = "comprehension" // comprehension/generator clause
)

// Node is one structural fact inside a function.
type Node struct {
	Kind NodeKind
	Line int
	// Depth is the lexical nesting depth of branching/loop/except/with
	// constructs at this node, with 1 being directly inside the function.
	Depth int
	// Operands is the arity of a boolop combinator (an n-way chain of
	// and/or contributes n-1 to cyclomatic complexity).
	Operands int
}

// Function is a normalized function or method.
type Function struct {
	Name      string
	Class     string // enclosing class, if any
	StartLine int
	EndLine   int
	// Params excludes a conventional leading self/this-like parameter
	// and a Go method receiver.
	Params int
	// CodeLines counts non-blank, non-comment-only lines in the span.
	CodeLines int
	Nodes     []Node
}

// Call is a function/attribute call site.
type Call struct {
	Name string // dotted callee, e.g. "requests.get" or "open"
	Line int
}

// Class is a normalized class or struct declaration.
type Class struct {
	Name      string
	StartLine int
	EndLine   int
	// Members counts fields/attributes plus methods.
	Members int
	HasConstructor bool
	// CtorParams counts constructor parameters, excluding self/this.
	CtorParams int
	// CtorInstantiated lists type names directly constructed inside the
	// constructor body.
	CtorInstantiated []Call
}

// Import is one import statement.
type Import struct {
	Module string
	Line   int
	// TypeCheckingOnly marks imports inside a type-checking-only guard
	// block; circular-import analysis can be configured to ignore them.
	TypeCheckingOnly bool
}

// File is the normalized view of one source file.
type File struct {
	Path      string
	Language  string
	Imports   []Import
	Functions []*Function
	Classes   []*Class
	Calls     []Call
}

// Adapter parses one language into the normalized stream.
type Adapter interface {
	Language() string
	Extensions() []string
	Parse(path string, src []byte) (*File, error)
}

// Registry maps file extensions to adapters.
type Registry struct {
	byExt map[string]Adapter
}

// NewRegistry returns a registry with the default adapters installed.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{byExt: make(map[string]Adapter)}
	if len(adapters) == 0 {
		adapters = []Adapter{NewPythonAdapter(), NewGoAdapter("")}
	}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register installs an adapter for its extensions.
func (r *Registry) Register(a Adapter) {
	for _, ext := range a.Extensions() {
		r.byExt[ext] = a
	}
}

// ForPath returns the adapter for a file, or nil when the language is
// not supported. Unsupported files are simply outside structural checks.
func (r *Registry) ForPath(path string) Adapter {
	return r.byExt[strings.ToLower(filepath.Ext(path))]
}
