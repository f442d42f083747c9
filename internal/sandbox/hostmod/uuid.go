package hostmod

import (
	"github.com/dop251/goja"
	"github.com/google/uuid"
)

type uuidModule struct{}

func (uuidModule) Name() string { return "uuid" }

func (uuidModule) Register(rt *goja.Runtime, _ *HostContext) (goja.Value, error) {
	obj := rt.NewObject()

	_ = obj.Set("v4", func(goja.FunctionCall) goja.Value {
		return rt.ToValue(uuid.NewString())
	})

	_ = obj.Set("validate", func(call goja.FunctionCall) goja.Value {
		return rt.ToValue(uuid.Validate(call.Argument(0).String()) == nil)
	})

	return obj, nil
}
