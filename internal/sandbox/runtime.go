package sandbox

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"crucible/internal/sandbox/hostmod"
)

// scrubScript strips every global binding not on the safe builtin list.
// Deleting eval, Function, Reflect, Proxy, and globalThis this way means
// the escape primitives do not exist in the guest namespace at all
// rather than being merely name-blocked; the allowlist is authoritative
// even for globals added by future interpreter versions.
const scrubScript = `(function () {
	var keep = {
		"Object": 1, "Array": 1, "String": 1, "Number": 1, "Boolean": 1,
		"Symbol": 1, "Math": 1, "JSON": 1, "Date": 1, "RegExp": 1,
		"Map": 1, "Set": 1, "WeakMap": 1, "WeakSet": 1, "Promise": 1,
		"Error": 1, "EvalError": 1, "RangeError": 1, "ReferenceError": 1,
		"SyntaxError": 1, "TypeError": 1, "URIError": 1, "AggregateError": 1,
		"ArrayBuffer": 1, "DataView": 1,
		"Int8Array": 1, "Uint8Array": 1, "Uint8ClampedArray": 1,
		"Int16Array": 1, "Uint16Array": 1, "Int32Array": 1, "Uint32Array": 1,
		"Float32Array": 1, "Float64Array": 1,
		"parseInt": 1, "parseFloat": 1, "isNaN": 1, "isFinite": 1,
		"decodeURI": 1, "decodeURIComponent": 1,
		"encodeURI": 1, "encodeURIComponent": 1,
		"NaN": 1, "Infinity": 1, "undefined": 1
	};
	var names = Object.getOwnPropertyNames(this);
	for (var i = 0; i < names.length; i++) {
		if (!Object.prototype.hasOwnProperty.call(keep, names[i])) {
			delete this[names[i]];
		}
	}
})();`

var scrubProgram = goja.MustCompile("scrub", scrubScript, false)

// newRuntime builds the restricted execution context for one attempt: a
// fresh interpreter scrubbed down to safe builtins, print and console
// bound to the capture buffers, and one pre-imported binding per
// allowed module. The runtime is discarded after the attempt, so
// bindings never leak across executions.
func (e *Engine) newRuntime(hctx *hostmod.HostContext, stdout, stderr *captureBuffer) (*goja.Runtime, error) {
	vm := goja.New()

	if _, err := vm.RunProgram(scrubProgram); err != nil {
		return nil, fmt.Errorf("scrubbing globals: %w", err)
	}

	writer := func(buf *captureBuffer) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			buf.WriteString(formatArgs(call.Arguments) + "\n")
			return goja.Undefined()
		}
	}

	_ = vm.Set("print", writer(stdout))

	console := vm.NewObject()
	for _, name := range []string{"log", "info", "debug"} {
		_ = console.Set(name, writer(stdout))
	}
	for _, name := range []string{"warn", "error"} {
		_ = console.Set(name, writer(stderr))
	}
	_ = vm.Set("console", console)

	bound := make(map[string]goja.Value, len(e.policy.AllowedImports))
	for _, name := range e.policy.AllowedImports {
		mod, ok := e.mods.Get(name)
		if !ok {
			return nil, fmt.Errorf("allowed import %q has no host module", name)
		}
		v, err := mod.Register(vm, hctx)
		if err != nil {
			return nil, fmt.Errorf("registering module %q: %w", name, err)
		}
		bound[name] = v
		_ = vm.Set(name, v)
	}

	_ = vm.Set("require", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		if v, ok := bound[name]; ok {
			return v
		}
		panic(vm.NewTypeError(fmt.Sprintf("module %q is not available", name)))
	})

	return vm, nil
}

// formatArgs joins arguments with spaces like console.log.
func formatArgs(args []goja.Value) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = arg.String()
	}
	return strings.Join(parts, " ")
}
