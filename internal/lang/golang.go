package lang

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
)

// GoAdapter produces the normalized stream from Go source via go/ast.
// modulePath, when known, lets import analysis classify local packages.
type GoAdapter struct {
	modulePath string
}

// NewGoAdapter returns a Go adapter. modulePath may be empty; use
// ModulePath to read it from the repository's go.mod.
func NewGoAdapter(modulePath string) *GoAdapter {
	return &GoAdapter{modulePath: modulePath}
}

// ModulePath reads the module path from go.mod under root, returning ""
// when there is none.
func ModulePath(root string) string {
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return ""
	}
	return modfile.ModulePath(data)
}

func (a *GoAdapter) Language() string     { return "go" }
func (a *GoAdapter) Extensions() []string { return []string{".go"} }

// Parse builds the normalized stream from one Go file.
func (a *GoAdapter) Parse(path string, src []byte) (*File, error) {
	fset := token.NewFileSet()
	parsed, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	f := &File{Path: path, Language: "go"}

	for _, imp := range parsed.Imports {
		mod := strings.Trim(imp.Path.Value, `"`)
		f.Imports = append(f.Imports, Import{Module: mod, Line: fset.Position(imp.Pos()).Line})
	}

	structs := make(map[string]*Class)
	for _, decl := range parsed.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				st, ok := ts.Type.(*ast.StructType)
				if !ok {
					continue
				}
				cls := &Class{
					Name:      ts.Name.Name,
					StartLine: fset.Position(ts.Pos()).Line,
					EndLine:   fset.Position(ts.End()).Line,
				}
				for _, field := range st.Fields.List {
					if n := len(field.Names); n > 0 {
						cls.Members += n
					} else {
						cls.Members++ // embedded field
					}
				}
				structs[cls.Name] = cls
				f.Classes = append(f.Classes, cls)
			}

		case *ast.FuncDecl:
			fn := a.parseFunc(fset, src, d)
			f.Functions = append(f.Functions, fn)
			f.Calls = append(f.Calls, collectCalls(fset, d.Body)...)

			// A NewT constructor counts as T's constructor; composite
			// literals of other types inside it count as direct
			// instantiation.
			if target, ok := strings.CutPrefix(d.Name.Name, "New"); ok && d.Recv == nil {
				if cls, ok := structs[target]; ok {
					cls.HasConstructor = true
					cls.CtorParams = fn.Params
					cls.CtorInstantiated = ctorLiterals(fset, d.Body, target)
				}
			}
		}
	}

	// Methods contribute to member counts.
	for _, decl := range parsed.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Recv == nil || len(fd.Recv.List) == 0 {
			continue
		}
		if cls, ok := structs[receiverType(fd)]; ok {
			cls.Members++
		}
	}

	return f, nil
}

func (a *GoAdapter) parseFunc(fset *token.FileSet, src []byte, d *ast.FuncDecl) *Function {
	fn := &Function{
		Name:      d.Name.Name,
		StartLine: fset.Position(d.Pos()).Line,
		EndLine:   fset.Position(d.End()).Line,
	}
	if d.Recv != nil {
		fn.Class = receiverType(d)
	}
	if d.Type.Params != nil {
		for _, field := range d.Type.Params.List {
			if n := len(field.Names); n > 0 {
				fn.Params += n
			} else {
				fn.Params++
			}
		}
	}
	fn.CodeLines = countGoCodeLines(src, fn.StartLine, fn.EndLine)
	if d.Body != nil {
		walkGoNodes(fset, d.Body, 0, fn)
	}
	return fn
}

// walkGoNodes records branching/loop nodes with their nesting depth and
// boolean combinators, mirroring what the Python adapter extracts.
func walkGoNodes(fset *token.FileSet, node ast.Node, parentDepth int, fn *Function) {
	ast.Inspect(node, func(n ast.Node) bool {
		switch v := n.(type) {
		case *ast.IfStmt:
			d := parentDepth + 1
			fn.Nodes = append(fn.Nodes, Node{Kind: NodeBranch, Line: fset.Position(v.Pos()).Line, Depth: d})
			walkGoNodes(fset, v.Body, d, fn)
			if v.Else != nil {
				walkGoNodes(fset, v.Else, d, fn)
			}
			if v.Cond != nil {
				countGoBoolOps(fset, v.Cond, fn)
			}
			return false
		case *ast.ForStmt:
			d := parentDepth + 1
			fn.Nodes = append(fn.Nodes, Node{Kind: NodeLoop, Line: fset.Position(v.Pos()).Line, Depth: d})
			walkGoNodes(fset, v.Body, d, fn)
			if v.Cond != nil {
				countGoBoolOps(fset, v.Cond, fn)
			}
			return false
		case *ast.RangeStmt:
			d := parentDepth + 1
			fn.Nodes = append(fn.Nodes, Node{Kind: NodeLoop, Line: fset.Position(v.Pos()).Line, Depth: d})
			walkGoNodes(fset, v.Body, d, fn)
			return false
		case *ast.CaseClause:
			// Each non-default case arm is a branch.
			if len(v.List) > 0 {
				fn.Nodes = append(fn.Nodes, Node{Kind: NodeBranch, Line: fset.Position(v.Pos()).Line, Depth: parentDepth + 1})
			}
			for _, stmt := range v.Body {
				walkGoNodes(fset, stmt, parentDepth+1, fn)
			}
			return false
		case *ast.CommClause:
			if v.Comm != nil {
				fn.Nodes = append(fn.Nodes, Node{Kind: NodeBranch, Line: fset.Position(v.Pos()).Line, Depth: parentDepth + 1})
			}
			for _, stmt := range v.Body {
				walkGoNodes(fset, stmt, parentDepth+1, fn)
			}
			return false
		case *ast.BinaryExpr:
			countGoBoolOps(fset, v, fn)
			return false
		}
		return true
	})
}

// countGoBoolOps flattens a chain of &&/|| into one n-way combinator node.
func countGoBoolOps(fset *token.FileSet, expr ast.Expr, fn *Function) {
	ops := countBoolLinks(expr)
	if ops > 0 {
		fn.Nodes = append(fn.Nodes, Node{Kind: NodeBoolOp, Line: fset.Position(expr.Pos()).Line, Operands: ops + 1})
	}
}

func countBoolLinks(expr ast.Expr) int {
	be, ok := expr.(*ast.BinaryExpr)
	if !ok {
		return 0
	}
	n := 0
	if be.Op == token.LAND || be.Op == token.LOR {
		n = 1
	}
	return n + countBoolLinks(be.X) + countBoolLinks(be.Y)
}

func collectCalls(fset *token.FileSet, body *ast.BlockStmt) []Call {
	if body == nil {
		return nil
	}
	var calls []Call
	ast.Inspect(body, func(n ast.Node) bool {
		ce, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		if name := calleeName(ce.Fun); name != "" {
			calls = append(calls, Call{Name: name, Line: fset.Position(ce.Pos()).Line})
		}
		return true
	})
	return calls
}

func calleeName(expr ast.Expr) string {
	switch v := expr.(type) {
	case *ast.Ident:
		return v.Name
	case *ast.SelectorExpr:
		if base := calleeName(v.X); base != "" {
			return base + "." + v.Sel.Name
		}
		return v.Sel.Name
	}
	return ""
}

func ctorLiterals(fset *token.FileSet, body *ast.BlockStmt, selfType string) []Call {
	if body == nil {
		return nil
	}
	var lits []Call
	ast.Inspect(body, func(n ast.Node) bool {
		cl, ok := n.(*ast.CompositeLit)
		if !ok {
			return true
		}
		name := calleeName(cl.Type)
		if name != "" && name != selfType && name != "&"+selfType {
			lits = append(lits, Call{Name: name, Line: fset.Position(cl.Pos()).Line})
		}
		return true
	})
	return lits
}

func receiverType(fd *ast.FuncDecl) string {
	if fd.Recv == nil || len(fd.Recv.List) == 0 {
		return ""
	}
	t := fd.Recv.List[0].Type
	for {
		switch v := t.(type) {
		case *ast.StarExpr:
			t = v.X
		case *ast.IndexExpr:
			t = v.X
		case *ast.Ident:
			return v.Name
		default:
			return ""
		}
	}
}

func countGoCodeLines(src []byte, start, end int) int {
	lines := strings.Split(string(src), "\n")
	count := 0
	for i := start - 1; i < end && i < len(lines); i++ {
		t := strings.TrimSpace(lines[i])
		if t == "" || strings.HasPrefix(t, "//") {
			continue
		}
		count++
	}
	return count
}
