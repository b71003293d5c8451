package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pySrc = `import os
import sys, json

from typing import TYPE_CHECKING

if TYPE_CHECKING:
    from models import User


class Service:
    limit = 10

    def __init__(self, repo, cache):
        self.repo = repo
        self.client = HttpClient(repo)

    def lookup(self, key, default=None):
        if key in self.repo:
            for item in self.repo[key]:
                if item and item.ok:
                    return item
        return default


def helper(a, b, c):
    values = [x for x in a if x]
    with open(b) as fh:
        data = fh.read()
    assert data
    return values
`

func parsePython(t *testing.T, src string) *File {
	t.Helper()
	f, err := NewPythonAdapter().Parse("service.py", []byte(src))
	require.NoError(t, err)
	return f
}

func findFunc(t *testing.T, f *File, name string) *Function {
	t.Helper()
	for _, fn := range f.Functions {
		if fn.Name == name {
			return fn
		}
	}
	t.Fatalf("function %s not found", name)
	return nil
}

func TestPythonImports(t *testing.T) {
	f := parsePython(t, pySrc)
	mods := map[string]Import{}
	for _, imp := range f.Imports {
		mods[imp.Module] = imp
	}
	assert.Contains(t, mods, "os")
	assert.Contains(t, mods, "sys")
	assert.Contains(t, mods, "json")
	assert.Contains(t, mods, "typing")

	require.Contains(t, mods, "models")
	assert.True(t, mods["models"].TypeCheckingOnly, "guarded import is type-checking only")
	assert.False(t, mods["os"].TypeCheckingOnly)
}

func TestPythonClass(t *testing.T) {
	f := parsePython(t, pySrc)
	require.Len(t, f.Classes, 1)
	cls := f.Classes[0]
	assert.Equal(t, "Service", cls.Name)
	assert.Equal(t, 3, cls.Members, "one attribute plus two methods")
	assert.True(t, cls.HasConstructor)
	assert.Equal(t, 2, cls.CtorParams, "self excluded")

	require.Len(t, cls.CtorInstantiated, 1)
	assert.Equal(t, "HttpClient", cls.CtorInstantiated[0].Name)
}

func TestPythonFunctionNodes(t *testing.T) {
	f := parsePython(t, pySrc)

	lookup := findFunc(t, f, "lookup")
	assert.Equal(t, "Service", lookup.Class)
	assert.Equal(t, 2, lookup.Params)

	byKind := map[NodeKind]int{}
	maxDepth := 0
	for _, n := range lookup.Nodes {
		byKind[n.Kind]++
		if n.Depth > maxDepth {
			maxDepth = n.Depth
		}
	}
	assert.Equal(t, 2, byKind[NodeBranch])
	assert.Equal(t, 1, byKind[NodeLoop])
	assert.Equal(t, 1, byKind[NodeBoolOp])
	assert.Equal(t, 3, maxDepth, "if > for > if")

	helper := findFunc(t, f, "helper")
	assert.Equal(t, "", helper.Class)
	assert.Equal(t, 3, helper.Params)

	byKind = map[NodeKind]int{}
	for _, n := range helper.Nodes {
		byKind[n.Kind]++
	}
	assert.Equal(t, 1, byKind[NodeComprehension])
	assert.Equal(t, 1, byKind[NodeWith])
	assert.Equal(t, 1, byKind[NodeAssert])
	assert.Equal(t, 6, helper.CodeLines)
}

func TestPythonNestedFunctionLength(t *testing.T) {
	src := `def outer(a):
    x = a + 1

    def inner(b):
        if b:
            return b
        return 0

    return inner(x)
`
	f := parsePython(t, src)
	inner := findFunc(t, f, "inner")
	assert.Equal(t, 4, inner.CodeLines)

	outer := findFunc(t, f, "outer")
	assert.Equal(t, 7, outer.CodeLines, "span includes the nested def's body")
}

func TestPythonMultiLineSignature(t *testing.T) {
	src := `def configure(
    host,
    port=8080,
    *,
    timeout=30,
):
    return host
`
	f := parsePython(t, src)
	fn := findFunc(t, f, "configure")
	assert.Equal(t, 3, fn.Params, "bare * marker excluded")
}

func TestPythonDocstringSuspendsScan(t *testing.T) {
	src := `def documented():
    """Docstring with def fake(): and import nothing
    more text
    """
    return 1
`
	f := parsePython(t, src)
	assert.Len(t, f.Functions, 1)
	assert.Empty(t, f.Imports)
}

func TestPythonCommentsAndStringsIgnored(t *testing.T) {
	src := `def f():
    x = "if this were code(it would count)"
    # for loops in comments do not count
    return x
`
	f := parsePython(t, src)
	fn := findFunc(t, f, "f")
	assert.Empty(t, fn.Nodes)
}

func TestRegistryForPath(t *testing.T) {
	r := NewRegistry()
	assert.NotNil(t, r.ForPath("pkg/mod.py"))
	assert.Equal(t, "python", r.ForPath("pkg/mod.PY").Language())
	assert.NotNil(t, r.ForPath("main.go"))
	assert.Nil(t, r.ForPath("README.md"))
}
