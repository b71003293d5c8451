package lang

import (
	"regexp"
	"strings"
)

// PythonAdapter produces the normalized stream from Python source using
// an indentation-aware line scanner. It does not build a full parse
// tree; it extracts exactly the facts the structural and architecture
// checks consume.
type PythonAdapter struct{}

// NewPythonAdapter returns the Python adapter.
func NewPythonAdapter() *PythonAdapter { return &PythonAdapter{} }

func (a *PythonAdapter) Language() string      { return "python" }
func (a *PythonAdapter) Extensions() []string  { return []string{".py", ".pyi"} }

var (
	pyDefRe    = regexp.MustCompile(`^(?:async\s+)?def\s+([A-Za-z_]\w*)\s*\(`)
	pyClassRe  = regexp.MustCompile(`^class\s+([A-Za-z_]\w*)\s*[(:\s]`)
	pyImportRe = regexp.MustCompile(`^import\s+(.+)$`)
	pyFromRe   = regexp.MustCompile(`^from\s+([\w.]+)\s+import\b`)
	pyGuardRe  = regexp.MustCompile(`^if\s+(?:typing\.)?TYPE_CHECKING\s*:`)
	pyCallRe   = regexp.MustCompile(`([A-Za-z_][\w.]*)\s*\(`)
	pyMemberRe = regexp.MustCompile(`^([A-Za-z_]\w*)\s*(?::[^=]+)?=`)
	pyWordRe   = regexp.MustCompile(`\b(and|or)\b`)
	pyCompRe   = regexp.MustCompile(`\bfor\s+[\w,()\s*]+\s+in\b`)
)

// pyKeywords are callee names that look like calls but are statements.
var pyKeywords = map[string]bool{
	"if": true, "elif": true, "while": true, "for": true, "return": true,
	"def": true, "class": true, "with": true, "assert": true, "lambda": true,
	"yield": true, "await": true, "raise": true, "except": true, "del": true,
	"not": true, "and": true, "or": true, "in": true, "is": true,
}

type pyBlock struct {
	kind   string // "class", "def", "guard"
	indent int
	fn     *Function
	cls    *Class
}

// Parse scans Python source line by line.
func (a *PythonAdapter) Parse(path string, src []byte) (*File, error) {
	f := &File{Path: path, Language: "python"}
	lines := strings.Split(string(src), "\n")

	var stack []pyBlock
	var branchStack []int // indents of open branching constructs, per innermost function
	inString := ""        // active triple-quote delimiter, "" when outside

	currentFunc := func() *Function {
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].kind == "def" {
				return stack[i].fn
			}
		}
		return nil
	}
	currentClass := func() *Class {
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].kind == "class" {
				return stack[i].cls
			}
		}
		return nil
	}
	inGuard := func(indent int) bool {
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].kind == "guard" && indent > stack[i].indent {
				return true
			}
		}
		return false
	}
	closeTo := func(indent, endLine int) {
		for len(stack) > 0 && indent <= stack[len(stack)-1].indent {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top.fn != nil && top.fn.EndLine == 0 {
				top.fn.EndLine = endLine
			}
			if top.cls != nil && top.cls.EndLine == 0 {
				top.cls.EndLine = endLine
			}
		}
	}

	lastCode := 0
	for i := 0; i < len(lines); i++ {
		lineNo := i + 1
		raw := lines[i]

		if inString != "" {
			if strings.Contains(raw, inString) {
				inString = ""
			}
			continue
		}

		code := stripPyStrings(raw)
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		// A docstring or multi-line string opener with no closer on the
		// same line suspends scanning until the delimiter recurs.
		if delim := openTriple(raw); delim != "" {
			inString = delim
			continue
		}
		indent := indentOf(raw)
		closeTo(indent, lastCode)
		lastCode = lineNo

		// A code line counts toward every enclosing def, so an outer
		// function's length covers nested-function bodies in its span.
		for _, blk := range stack {
			if blk.kind == "def" {
				blk.fn.CodeLines++
			}
		}
		fn := currentFunc()
		if fn != nil {
			// Branch nesting depth tracks open branching constructs by
			// indent; anything at or left of the new indent is closed.
			for len(branchStack) > 0 && indent <= branchStack[len(branchStack)-1] {
				branchStack = branchStack[:len(branchStack)-1]
			}
		} else {
			branchStack = branchStack[:0]
		}

		switch {
		case pyGuardRe.MatchString(trimmed):
			stack = append(stack, pyBlock{kind: "guard", indent: indent})
			continue

		case pyImportRe.MatchString(trimmed):
			for _, mod := range splitPyImports(pyImportRe.FindStringSubmatch(trimmed)[1]) {
				f.Imports = append(f.Imports, Import{Module: mod, Line: lineNo, TypeCheckingOnly: inGuard(indent)})
			}
			continue

		case pyFromRe.MatchString(trimmed):
			mod := pyFromRe.FindStringSubmatch(trimmed)[1]
			f.Imports = append(f.Imports, Import{Module: mod, Line: lineNo, TypeCheckingOnly: inGuard(indent)})
			continue
		}

		if m := pyClassRe.FindStringSubmatch(trimmed); m != nil {
			cls := &Class{Name: m[1], StartLine: lineNo}
			f.Classes = append(f.Classes, cls)
			stack = append(stack, pyBlock{kind: "class", indent: indent, cls: cls})
			continue
		}

		if m := pyDefRe.FindStringSubmatch(trimmed); m != nil {
			cls := currentClass()
			sig, consumed := collectSignature(lines, i)
			i += consumed
			params := countPyParams(sig, cls != nil)
			newFn := &Function{Name: m[1], StartLine: lineNo, Params: params, CodeLines: 1}
			if cls != nil {
				newFn.Class = cls.Name
				cls.Members++
				if m[1] == "__init__" {
					cls.HasConstructor = true
					cls.CtorParams = params
				}
			}
			f.Functions = append(f.Functions, newFn)
			stack = append(stack, pyBlock{kind: "def", indent: indent, fn: newFn})
			branchStack = branchStack[:0]
			continue
		}

		// Class attribute at class-body indent.
		if cls := currentClass(); cls != nil && currentFunc() == nil {
			if pyMemberRe.MatchString(trimmed) {
				cls.Members++
			}
		}

		// Structural nodes inside a function body.
		if fn != nil {
			recordPyNodes(fn, trimmed, lineNo, indent, &branchStack)
		}

		// Call sites.
		for _, m := range pyCallRe.FindAllStringSubmatch(code, -1) {
			callee := m[1]
			base := callee
			if idx := strings.Index(base, "."); idx >= 0 {
				base = base[:idx]
			}
			if pyKeywords[base] {
				continue
			}
			call := Call{Name: callee, Line: lineNo}
			f.Calls = append(f.Calls, call)
			if fn != nil && fn.Name == "__init__" && isCtorCall(callee) {
				if cls := currentClass(); cls != nil {
					cls.CtorInstantiated = append(cls.CtorInstantiated, call)
				}
			}
		}
	}
	closeTo(-1, lastCode)
	return f, nil
}

func recordPyNodes(fn *Function, trimmed string, lineNo, indent int, branchStack *[]int) {
	var kind NodeKind
	switch {
	case strings.HasPrefix(trimmed, "if ") || strings.HasPrefix(trimmed, "elif ") ||
		strings.HasPrefix(trimmed, "case "):
		kind = NodeBranch
	case strings.HasPrefix(trimmed, "for ") || strings.HasPrefix(trimmed, "while "):
		kind = NodeLoop
	case strings.HasPrefix(trimmed, "except"):
		kind = NodeExcept
	case strings.HasPrefix(trimmed, "with ") || strings.HasPrefix(trimmed, "async with "):
		kind = NodeWith
	case strings.HasPrefix(trimmed, "assert "):
		kind = NodeAssert
	}
	if kind != "" {
		*branchStack = append(*branchStack, indent)
		fn.Nodes = append(fn.Nodes, Node{Kind: kind, Line: lineNo, Depth: len(*branchStack)})
	}

	if n := len(pyWordRe.FindAllString(trimmed, -1)); n > 0 {
		fn.Nodes = append(fn.Nodes, Node{Kind: NodeBoolOp, Line: lineNo, Operands: n + 1})
	}

	// Comprehension clauses: a `for ... in` that is not the statement head.
	if !strings.HasPrefix(trimmed, "for ") {
		for range pyCompRe.FindAllString(trimmed, -1) {
			fn.Nodes = append(fn.Nodes, Node{Kind: NodeComprehension, Line: lineNo})
		}
	}
}

// collectSignature joins continuation lines until the def's parens
// balance, returning the joined signature and extra lines consumed.
func collectSignature(lines []string, start int) (string, int) {
	sig := stripPyStrings(lines[start])
	consumed := 0
	for depth(sig) > 0 && start+consumed+1 < len(lines) {
		consumed++
		sig += " " + stripPyStrings(lines[start+consumed])
	}
	return sig, consumed
}

func depth(s string) int {
	d := 0
	for _, r := range s {
		switch r {
		case '(', '[', '{':
			d++
		case ')', ']', '}':
			d--
		}
	}
	return d
}

// countPyParams counts parameters in a def signature, excluding a
// conventional leading self/cls when the def is a method, and the bare
// * and / positional markers.
func countPyParams(sig string, isMethod bool) int {
	open := strings.Index(sig, "(")
	if open < 0 {
		return 0
	}
	inner, d := "", 0
	for _, r := range sig[open:] {
		switch r {
		case '(', '[', '{':
			d++
			if d == 1 {
				continue
			}
		case ')', ']', '}':
			d--
			if d == 0 {
				goto done
			}
		}
		inner += string(r)
	}
done:
	count := 0
	first := true
	for _, part := range splitTopLevel(inner) {
		p := strings.TrimSpace(part)
		if p == "" || p == "*" || p == "/" {
			continue
		}
		name := strings.TrimLeft(p, "*")
		if idx := strings.IndexAny(name, ":=["); idx >= 0 {
			name = name[:idx]
		}
		name = strings.TrimSpace(name)
		if first && isMethod && (name == "self" || name == "cls") {
			first = false
			continue
		}
		first = false
		count++
	}
	return count
}

func splitTopLevel(s string) []string {
	var parts []string
	d, last := 0, 0
	for i, r := range s {
		switch r {
		case '(', '[', '{':
			d++
		case ')', ']', '}':
			d--
		case ',':
			if d == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	return append(parts, s[last:])
}

func splitPyImports(clause string) []string {
	var mods []string
	for _, part := range strings.Split(clause, ",") {
		p := strings.TrimSpace(part)
		if idx := strings.Index(p, " as "); idx >= 0 {
			p = p[:idx]
		}
		p = strings.TrimSpace(strings.TrimSuffix(p, "\\"))
		if p != "" {
			mods = append(mods, p)
		}
	}
	return mods
}

// isCtorCall reports whether a callee looks like direct type
// construction: its final dotted segment starts with an upper-case
// letter, the Python class naming convention.
func isCtorCall(callee string) bool {
	seg := callee
	if idx := strings.LastIndex(seg, "."); idx >= 0 {
		seg = seg[idx+1:]
	}
	return seg != "" && seg[0] >= 'A' && seg[0] <= 'Z'
}

func indentOf(line string) int {
	n := 0
	for _, r := range line {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}

// openTriple returns the delimiter of a triple-quoted string opened but
// not closed on this line, or "".
func openTriple(line string) string {
	for _, delim := range []string{`"""`, "'''"} {
		if n := strings.Count(line, delim); n%2 == 1 {
			return delim
		}
	}
	return ""
}

// stripPyStrings removes single-quoted string contents and a trailing
// # comment so keyword and call scans don't fire inside literals.
func stripPyStrings(line string) string {
	var b strings.Builder
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
				b.WriteByte(c)
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
			b.WriteByte(c)
		case '#':
			return b.String()
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
