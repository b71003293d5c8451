package checks

import (
	"github.com/codeconform/conform/internal/contract"
	"github.com/codeconform/conform/internal/lang"
)

// DefaultRegistry wires every built-in handler and returns the handler
// registry plus an executor over it. The custom check type delegates to
// the command handler; its distinct type name exists so contracts can
// tag locally-written checks.
func DefaultRegistry(contracts *contract.Registry, langs *lang.Registry) (*HandlerRegistry, *Executor) {
	if langs == nil {
		langs = lang.NewRegistry()
	}

	hr := NewHandlerRegistry()
	command := NewCommandHandler()
	nested := NewNestedContractHandler(contracts)

	hr.Register(contract.CheckPattern, NewPatternHandler())
	hr.Register(contract.CheckCommand, command)
	hr.Register(contract.CheckCustom, command)
	hr.Register(contract.CheckFileExists, NewFileExistsHandler())
	hr.Register(contract.CheckStructuralMetric, NewStructuralHandler(langs))
	hr.Register(contract.CheckLayerImport, NewLayerImportHandler(langs))
	hr.Register(contract.CheckConstructorInjection, NewConstructorInjectionHandler(langs))
	hr.Register(contract.CheckDomainPurity, NewDomainPurityHandler(langs))
	hr.Register(contract.CheckCircularImport, NewCircularImportHandler(langs))
	hr.Register(contract.CheckNestedContract, nested)

	executor := NewExecutor(hr)
	nested.SetExecutor(executor)
	return hr, executor
}
