package checks

import (
	"context"
	"fmt"

	"github.com/codeconform/conform/internal/contract"
)

// NestedContractHandler runs another contract's resolved checks inline,
// scoped by the parent check's applies_to. The nested results keep the
// child contract's check IDs so violations stay attributable.
//
// Config:
//
//	contract: naming-conventions
type NestedContractHandler struct {
	contracts *contract.Registry
	executor  *Executor
}

// NewNestedContractHandler returns the nested-contract handler. The
// executor reference is set after construction because handler and
// executor reference each other.
func NewNestedContractHandler(contracts *contract.Registry) *NestedContractHandler {
	return &NestedContractHandler{contracts: contracts}
}

// SetExecutor wires the executor used for the nested dispatch.
func (h *NestedContractHandler) SetExecutor(e *Executor) { h.executor = e }

// Execute implements Handler.
func (h *NestedContractHandler) Execute(ctx context.Context, check *contract.Check, repoRoot string, files []string) ([]Result, error) {
	name := cfgString(check.Config, "contract", "")
	if name == "" {
		return nil, fmt.Errorf("nested-contract check %s names no contract", check.ID)
	}
	child, ok := h.contracts.Get(name)
	if !ok {
		return nil, fmt.Errorf("nested-contract check %s: unknown contract %q", check.ID, name)
	}
	if h.executor == nil {
		return nil, fmt.Errorf("nested-contract check %s: executor not wired", check.ID)
	}

	var results []Result
	for _, nested := range h.contracts.Resolve(child) {
		// Guard against a contract nesting itself through this check.
		if nested.Type == contract.CheckNestedContract && cfgString(nested.Config, "contract", "") == name {
			continue
		}
		results = append(results, h.executor.Run(ctx, name, nested, repoRoot, files)...)
	}
	return results, nil
}
