package checks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/codeconform/conform/internal/contract"
	"github.com/codeconform/conform/internal/lang"
	"github.com/codeconform/conform/internal/pathmatch"
)

// defaultImpureModules covers common network, filesystem, database and
// cloud libraries a pure domain layer must not touch.
var defaultImpureModules = []string{
	"requests", "urllib", "urllib3", "httpx", "aiohttp", "socket", "http",
	"ftplib", "smtplib",
	"sqlalchemy", "psycopg2", "pymongo", "redis", "sqlite3", "mysql",
	"boto3", "botocore", "google.cloud", "azure",
	"shutil", "pathlib", "tempfile", "subprocess",
	"net/http", "database/sql", "os/exec",
}

// defaultImpureCalls are call-site prefixes that perform I/O directly.
var defaultImpureCalls = []string{
	"open", "requests.", "urllib.", "socket.", "boto3.", "subprocess.",
	"os.remove", "os.rename", "os.mkdir", "os.makedirs", "shutil.",
}

// DomainPurityHandler flags I/O-capable imports and calls inside files
// that belong to the domain layer.
//
// Config:
//
//	domain_paths: ["app/domain/**"]
//	forbidden_imports: []   # defaults cover network/fs/db/cloud
//	forbidden_calls: []
type DomainPurityHandler struct {
	langs *lang.Registry
}

// NewDomainPurityHandler returns the domain-purity handler.
func NewDomainPurityHandler(langs *lang.Registry) *DomainPurityHandler {
	return &DomainPurityHandler{langs: langs}
}

// Execute implements Handler.
func (h *DomainPurityHandler) Execute(ctx context.Context, check *contract.Check, repoRoot string, files []string) ([]Result, error) {
	domainPaths := cfgStrings(check.Config, "domain_paths")
	if len(domainPaths) == 0 {
		// The check's applies_to may already scope to domain files.
		domainPaths = []string{"**"}
	}
	modules := cfgStrings(check.Config, "forbidden_imports")
	if len(modules) == 0 {
		modules = defaultImpureModules
	}
	calls := cfgStrings(check.Config, "forbidden_calls")
	if len(calls) == 0 {
		calls = defaultImpureCalls
	}

	var results []Result
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !pathmatch.MatchAny(domainPaths, file) {
			continue
		}
		adapter := h.langs.ForPath(file)
		if adapter == nil {
			continue
		}
		src, err := os.ReadFile(filepath.Join(repoRoot, file))
		if err != nil {
			continue
		}
		parsed, err := adapter.Parse(file, src)
		if err != nil {
			continue
		}

		clean := true
		for _, imp := range parsed.Imports {
			if impureModule(modules, imp.Module) {
				clean = false
				results = append(results, Result{
					File:    file,
					Line:    imp.Line,
					Message: fmt.Sprintf("domain layer imports I/O-capable module %s", imp.Module),
					RuleID:  "import",
				})
			}
		}
		for _, call := range parsed.Calls {
			if impureCall(calls, call.Name) {
				clean = false
				results = append(results, Result{
					File:    file,
					Line:    call.Line,
					Message: fmt.Sprintf("domain layer calls I/O-capable function %s", call.Name),
					RuleID:  "call",
				})
			}
		}
		if clean {
			results = append(results, Result{File: file, Passed: true})
		}
	}
	return results, nil
}

func impureModule(forbidden []string, module string) bool {
	for _, f := range forbidden {
		if module == f || strings.HasPrefix(module, f+".") || strings.HasPrefix(module, f+"/") {
			return true
		}
	}
	return false
}

func impureCall(forbidden []string, callee string) bool {
	for _, f := range forbidden {
		if strings.HasSuffix(f, ".") {
			if strings.HasPrefix(callee, f) {
				return true
			}
			continue
		}
		if callee == f {
			return true
		}
	}
	return false
}
