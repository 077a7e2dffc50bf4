package script

import (
	"github.com/dop251/goja"
)

const (
	identOld   = "$old"
	identEl    = "$el"
	identHost  = "$host"
	identEvent = "$event"
)

// environment adapts an Env to goja.DynamicObject.
type environment struct {
	r   *Runtime
	env Env
	b   Bindings
}

func (r *Runtime) envObject(env Env, b Bindings) *goja.Object {
	return r.vm.NewDynamicObject(&environment{r: r, env: env, b: b})
}

func (e *environment) fixed(key string) (goja.Value, bool) {
	switch key {
	case identOld:
		return e.r.vm.NewDynamicObject(&oldValues{r: e.r, old: e.b.Old}), true
	case identEl:
		return e.r.nodeValue(e.b.Node), true
	case identHost:
		return e.r.nodeValue(e.b.Host), true
	case identEvent:
		if e.b.Event == nil {
			return goja.Undefined(), true
		}
		return e.r.wrapEvent(e.b.Event), true
	}
	if v, ok := e.b.Extra[key]; ok {
		return e.r.toJS(v), true
	}
	return nil, false
}

func (e *environment) isFixed(key string) bool {
	switch key {
	case identOld, identEl, identHost, identEvent:
		return true
	}
	_, ok := e.b.Extra[key]
	return ok
}

func (e *environment) Get(key string) goja.Value {
	if v, ok := e.fixed(key); ok {
		return v
	}
	return e.r.toJS(e.env.Get(key))
}

func (e *environment) Set(key string, val goja.Value) bool {
	if e.isFixed(key) {
		return false
	}
	e.env.Set(key, e.r.fromJS(val))
	return true
}

// Has claims every identifier that is not a JavaScript global, so unknown
// names resolve to scope variables instead of throwing ReferenceError.
func (e *environment) Has(key string) bool {
	if e.isFixed(key) || e.env.Has(key) {
		return true
	}
	return !e.r.isGlobal(key)
}

func (e *environment) Delete(string) bool {
	return false
}

func (e *environment) Keys() []string {
	return nil
}

func (r *Runtime) isGlobal(key string) bool {
	return r.vm.GlobalObject().Get(key) != nil
}

// oldValues exposes previous variable values as $old.
type oldValues struct {
	r   *Runtime
	old func(string) any
}

func (o *oldValues) Get(key string) goja.Value {
	if o.old == nil {
		return goja.Undefined()
	}
	return o.r.toJS(o.old(key))
}

func (o *oldValues) Set(string, goja.Value) bool { return false }
func (o *oldValues) Has(string) bool             { return o.old != nil }
func (o *oldValues) Delete(string) bool          { return false }
func (o *oldValues) Keys() []string              { return nil }
