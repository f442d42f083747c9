// Package hostmod provides the host-implemented modules the sandbox can
// inject into a guest runtime. A bare interpreter has no ambient
// authority; every capability a snippet can use comes from one of these
// modules, bound only when its name is on the policy allowlist.
package hostmod

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/dop251/goja"
)

// HostContext carries per-execution state modules may need. Ctx holds
// the execution deadline; anything blocking a module does must respect
// it.
type HostContext struct {
	Ctx context.Context
}

// Module is one guest-visible capability namespace. Register builds the
// value bound under the module's name inside a single runtime; it is
// called once per execution, so no state crosses runs unless the module
// deliberately keeps it host-side.
type Module interface {
	Name() string
	Register(rt *goja.Runtime, hctx *HostContext) (goja.Value, error)
}

// Registry maps module names to implementations.
type Registry struct {
	mods map[string]Module
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{mods: make(map[string]Module)}
}

// Add registers a module under its name, replacing any previous one.
func (r *Registry) Add(m Module) {
	r.mods[m.Name()] = m
}

// Get returns the module registered under name.
func (r *Registry) Get(name string) (Module, bool) {
	m, ok := r.mods[name]
	return m, ok
}

// Names returns the registered module names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.mods))
	for name := range r.mods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Config tunes the modules that need host-side limits.
type Config struct {
	HTTPAllowlist []string      // hosts the http module may reach; empty denies all
	HTTPMaxBody   int64         // response size cap in bytes
	HTTPTimeout   time.Duration // per-request ceiling under the execution deadline
}

// Default returns a registry holding every built-in module.
func Default(cfg Config) *Registry {
	r := NewRegistry()
	r.Add(mathModule{})
	r.Add(randomModule{})
	r.Add(datetimeModule{})
	r.Add(csvModule{})
	r.Add(uuidModule{})
	r.Add(encodingModule{})
	r.Add(newHTTPModule(cfg))
	return r
}

// valueSlice reads a guest array into a Go slice of values.
func valueSlice(rt *goja.Runtime, v goja.Value) []goja.Value {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	obj := v.ToObject(rt)
	length := obj.Get("length")
	if length == nil {
		return nil
	}
	n := length.ToInteger()
	out := make([]goja.Value, 0, n)
	for i := int64(0); i < n; i++ {
		item := obj.Get(strconv.FormatInt(i, 10))
		if item == nil {
			item = goja.Undefined()
		}
		out = append(out, item)
	}
	return out
}

// sliceValue converts a slice of values back into a guest array.
func sliceValue(rt *goja.Runtime, items []goja.Value) goja.Value {
	arr := make([]interface{}, len(items))
	for i, item := range items {
		arr[i] = item
	}
	return rt.NewArray(arr...)
}
