package checks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/codeconform/conform/internal/contract"
)

// FileExistsHandler requires listed files or directories to exist,
// resolved relative to the repository root.
//
// Config:
//
//	files:
//	  - path: README.md
//	    message: every repository needs a README
//	  - path: docs/
//
// Entries may also be plain strings.
type FileExistsHandler struct{}

// NewFileExistsHandler returns the file-exists handler.
func NewFileExistsHandler() *FileExistsHandler { return &FileExistsHandler{} }

// Execute implements Handler. The candidate file set is irrelevant here;
// the check asserts presence of specific paths.
func (h *FileExistsHandler) Execute(ctx context.Context, check *contract.Check, repoRoot string, files []string) ([]Result, error) {
	type required struct {
		path    string
		message string
	}
	var wanted []required
	for _, s := range cfgStrings(check.Config, "files") {
		wanted = append(wanted, required{path: s})
	}
	for _, m := range cfgMapSlice(check.Config, "files") {
		wanted = append(wanted, required{path: cfgString(m, "path", ""), message: cfgString(m, "message", "")})
	}
	if len(wanted) == 0 {
		return nil, fmt.Errorf("file-exists check %s lists no files", check.ID)
	}

	var results []Result
	for _, w := range wanted {
		if w.path == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(repoRoot, w.path)); err != nil {
			msg := w.message
			if msg == "" {
				msg = fmt.Sprintf("required path %s does not exist", w.path)
			}
			results = append(results, Result{File: w.path, Message: msg})
		} else {
			results = append(results, Result{File: w.path, Passed: true})
		}
	}
	return results, nil
}
