package hostmod

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/dop251/goja"
)

type encodingModule struct{}

func (encodingModule) Name() string { return "encoding" }

func (encodingModule) Register(rt *goja.Runtime, _ *HostContext) (goja.Value, error) {
	obj := rt.NewObject()

	_ = obj.Set("base64Encode", func(call goja.FunctionCall) goja.Value {
		return rt.ToValue(base64.StdEncoding.EncodeToString([]byte(call.Argument(0).String())))
	})

	_ = obj.Set("base64Decode", func(call goja.FunctionCall) goja.Value {
		decoded, err := base64.StdEncoding.DecodeString(call.Argument(0).String())
		if err != nil {
			panic(rt.NewTypeError(fmt.Sprintf("decoding base64: %v", err)))
		}
		return rt.ToValue(string(decoded))
	})

	_ = obj.Set("hexEncode", func(call goja.FunctionCall) goja.Value {
		return rt.ToValue(hex.EncodeToString([]byte(call.Argument(0).String())))
	})

	_ = obj.Set("hexDecode", func(call goja.FunctionCall) goja.Value {
		decoded, err := hex.DecodeString(call.Argument(0).String())
		if err != nil {
			panic(rt.NewTypeError(fmt.Sprintf("decoding hex: %v", err)))
		}
		return rt.ToValue(string(decoded))
	})

	return obj, nil
}
