package script

import (
	"fmt"

	"github.com/dop251/goja"
)

// applySandbox strips host-environment globals from a runtime so
// problem scripts stay pure functions over their state values.
func applySandbox(vm *goja.Runtime) error {
	dangerousGlobals := []string{
		"require",
		"module",
		"exports",
		"process",
		"global",
		"__dirname",
		"__filename",
		"Buffer",
		"setImmediate",
		"clearImmediate",
		"setTimeout",
		"setInterval",
	}
	for _, name := range dangerousGlobals {
		if err := vm.Set(name, goja.Undefined()); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	return nil
}
