package hostmod

import (
	"fmt"
	"time"

	"github.com/dop251/goja"
)

type datetimeModule struct{}

func (datetimeModule) Name() string { return "datetime" }

// Register exposes wall-clock helpers over RFC 3339 strings and unix
// seconds. All output is UTC so results do not depend on the host zone.
func (datetimeModule) Register(rt *goja.Runtime, _ *HostContext) (goja.Value, error) {
	obj := rt.NewObject()

	_ = obj.Set("now", func(goja.FunctionCall) goja.Value {
		return rt.ToValue(time.Now().UTC().Format(time.RFC3339))
	})

	_ = obj.Set("unix", func(goja.FunctionCall) goja.Value {
		return rt.ToValue(time.Now().Unix())
	})

	// parse(iso) returns unix seconds for an RFC 3339 timestamp.
	_ = obj.Set("parse", func(call goja.FunctionCall) goja.Value {
		raw := call.Argument(0).String()
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			panic(rt.NewTypeError(fmt.Sprintf("parsing timestamp %q: not RFC 3339", raw)))
		}
		return rt.ToValue(t.Unix())
	})

	// format(unixSeconds) renders unix seconds back to RFC 3339 UTC.
	_ = obj.Set("format", func(call goja.FunctionCall) goja.Value {
		secs := call.Argument(0).ToInteger()
		return rt.ToValue(time.Unix(secs, 0).UTC().Format(time.RFC3339))
	})

	// since(iso) returns elapsed seconds from an RFC 3339 timestamp.
	_ = obj.Set("since", func(call goja.FunctionCall) goja.Value {
		raw := call.Argument(0).String()
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			panic(rt.NewTypeError(fmt.Sprintf("parsing timestamp %q: not RFC 3339", raw)))
		}
		return rt.ToValue(time.Since(t).Seconds())
	})

	return obj, nil
}
