package hostmod

import (
	"fmt"
	"math/rand/v2"

	"github.com/dop251/goja"
)

type randomModule struct{}

func (randomModule) Name() string { return "random" }

func (randomModule) Register(rt *goja.Runtime, _ *HostContext) (goja.Value, error) {
	obj := rt.NewObject()

	_ = obj.Set("float", func(goja.FunctionCall) goja.Value {
		return rt.ToValue(rand.Float64())
	})

	// int(lo, hi) draws from the inclusive range [lo, hi].
	_ = obj.Set("int", func(call goja.FunctionCall) goja.Value {
		lo := call.Argument(0).ToInteger()
		hi := call.Argument(1).ToInteger()
		if hi < lo {
			panic(rt.NewTypeError(fmt.Sprintf("empty range [%d, %d]", lo, hi)))
		}
		return rt.ToValue(lo + rand.Int64N(hi-lo+1))
	})

	_ = obj.Set("choice", func(call goja.FunctionCall) goja.Value {
		items := valueSlice(rt, call.Argument(0))
		if len(items) == 0 {
			panic(rt.NewTypeError("choice from an empty array"))
		}
		return items[rand.IntN(len(items))]
	})

	// shuffle returns a new array; the argument is not reordered.
	_ = obj.Set("shuffle", func(call goja.FunctionCall) goja.Value {
		items := valueSlice(rt, call.Argument(0))
		rand.Shuffle(len(items), func(i, j int) {
			items[i], items[j] = items[j], items[i]
		})
		return sliceValue(rt, items)
	})

	_ = obj.Set("sample", func(call goja.FunctionCall) goja.Value {
		items := valueSlice(rt, call.Argument(0))
		n := int(call.Argument(1).ToInteger())
		if n < 0 || n > len(items) {
			panic(rt.NewTypeError(fmt.Sprintf("sample size %d out of range for %d items", n, len(items))))
		}
		rand.Shuffle(len(items), func(i, j int) {
			items[i], items[j] = items[j], items[i]
		})
		return sliceValue(rt, items[:n])
	})

	return obj, nil
}
