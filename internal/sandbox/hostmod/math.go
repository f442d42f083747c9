package hostmod

import (
	"math"

	"github.com/dop251/goja"
)

type mathModule struct{}

func (mathModule) Name() string { return "math" }

func (mathModule) Register(rt *goja.Runtime, _ *HostContext) (goja.Value, error) {
	obj := rt.NewObject()

	_ = obj.Set("pi", math.Pi)
	_ = obj.Set("e", math.E)
	_ = obj.Set("abs", math.Abs)
	_ = obj.Set("floor", math.Floor)
	_ = obj.Set("ceil", math.Ceil)
	_ = obj.Set("round", math.Round)
	_ = obj.Set("trunc", math.Trunc)
	_ = obj.Set("sqrt", math.Sqrt)
	_ = obj.Set("cbrt", math.Cbrt)
	_ = obj.Set("pow", math.Pow)
	_ = obj.Set("exp", math.Exp)
	_ = obj.Set("log", math.Log)
	_ = obj.Set("log2", math.Log2)
	_ = obj.Set("log10", math.Log10)
	_ = obj.Set("sin", math.Sin)
	_ = obj.Set("cos", math.Cos)
	_ = obj.Set("tan", math.Tan)
	_ = obj.Set("atan2", math.Atan2)
	_ = obj.Set("hypot", math.Hypot)

	_ = obj.Set("sum", func(call goja.FunctionCall) goja.Value {
		total := 0.0
		for _, v := range numberSlice(rt, call.Argument(0)) {
			total += v
		}
		return rt.ToValue(total)
	})

	_ = obj.Set("mean", func(call goja.FunctionCall) goja.Value {
		values := numberSlice(rt, call.Argument(0))
		if len(values) == 0 {
			panic(rt.NewTypeError("mean of an empty array"))
		}
		total := 0.0
		for _, v := range values {
			total += v
		}
		return rt.ToValue(total / float64(len(values)))
	})

	_ = obj.Set("min", func(call goja.FunctionCall) goja.Value {
		values := numberSlice(rt, call.Argument(0))
		if len(values) == 0 {
			panic(rt.NewTypeError("min of an empty array"))
		}
		lo := values[0]
		for _, v := range values[1:] {
			lo = math.Min(lo, v)
		}
		return rt.ToValue(lo)
	})

	_ = obj.Set("max", func(call goja.FunctionCall) goja.Value {
		values := numberSlice(rt, call.Argument(0))
		if len(values) == 0 {
			panic(rt.NewTypeError("max of an empty array"))
		}
		hi := values[0]
		for _, v := range values[1:] {
			hi = math.Max(hi, v)
		}
		return rt.ToValue(hi)
	})

	return obj, nil
}

// numberSlice reads a guest array as float64 values.
func numberSlice(rt *goja.Runtime, v goja.Value) []float64 {
	items := valueSlice(rt, v)
	out := make([]float64, len(items))
	for i, item := range items {
		out[i] = item.ToFloat()
	}
	return out
}
