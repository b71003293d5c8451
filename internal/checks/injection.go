package checks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/codeconform/conform/internal/contract"
	"github.com/codeconform/conform/internal/lang"
)

// ConstructorInjectionHandler requires that classes matching a name
// pattern take their dependencies through the constructor: the class
// must have a constructor, optionally with at least one parameter, and
// the constructor body must not directly instantiate types matching the
// forbidden-instantiation patterns.
//
// Config:
//
//	class_pattern: ".*(Service|UseCase)$"
//	check_for_init_params: true
//	forbidden_instantiations: [".*Repository$", ".*Client$"]
type ConstructorInjectionHandler struct {
	langs *lang.Registry
}

// NewConstructorInjectionHandler returns the constructor-injection handler.
func NewConstructorInjectionHandler(langs *lang.Registry) *ConstructorInjectionHandler {
	return &ConstructorInjectionHandler{langs: langs}
}

// Execute implements Handler.
func (h *ConstructorInjectionHandler) Execute(ctx context.Context, check *contract.Check, repoRoot string, files []string) ([]Result, error) {
	classExpr := cfgString(check.Config, "class_pattern", ".*")
	classRe, err := regexp.Compile(classExpr)
	if err != nil {
		return nil, fmt.Errorf("constructor-injection check %s: invalid class_pattern: %w", check.ID, err)
	}
	requireParams := cfgBool(check.Config, "check_for_init_params", false)

	var forbidden []*regexp.Regexp
	for _, expr := range cfgStrings(check.Config, "forbidden_instantiations") {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("constructor-injection check %s: invalid pattern %q: %w", check.ID, expr, err)
		}
		forbidden = append(forbidden, re)
	}

	var results []Result
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
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

		for _, cls := range parsed.Classes {
			if !classRe.MatchString(cls.Name) {
				continue
			}
			ok := true
			if !cls.HasConstructor {
				ok = false
				results = append(results, Result{
					File:    file,
					Line:    cls.StartLine,
					Message: fmt.Sprintf("class %s has no constructor; dependencies must be injected", cls.Name),
					RuleID:  cls.Name,
				})
			} else if requireParams && cls.CtorParams == 0 {
				ok = false
				results = append(results, Result{
					File:    file,
					Line:    cls.StartLine,
					Message: fmt.Sprintf("constructor of %s takes no parameters; inject dependencies instead", cls.Name),
					RuleID:  cls.Name,
				})
			}
			for _, inst := range cls.CtorInstantiated {
				for _, re := range forbidden {
					if re.MatchString(inst.Name) {
						ok = false
						results = append(results, Result{
							File:    file,
							Line:    inst.Line,
							Message: fmt.Sprintf("constructor of %s instantiates %s directly; inject it instead", cls.Name, inst.Name),
							RuleID:  cls.Name,
						})
						break
					}
				}
			}
			if ok {
				results = append(results, Result{File: file, Line: cls.StartLine, Passed: true, RuleID: cls.Name})
			}
		}
	}
	return results, nil
}
