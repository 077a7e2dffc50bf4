package script

import (
	"strings"

	"github.com/dop251/goja"

	"github.com/vango-dev/tendril/pkg/host"
)

func (r *Runtime) nodeValue(n host.Node) goja.Value {
	if n == nil {
		return goja.Null()
	}
	return r.wrapNode(n)
}

// wrapNode returns the JavaScript object for n. The same object is returned
// for the same node.
func (r *Runtime) wrapNode(n host.Node) *goja.Object {
	if obj, ok := r.nodes[n]; ok {
		return obj
	}
	obj := r.vm.NewObject()
	r.nodes[n] = obj

	_ = obj.Set("tagName", strings.ToUpper(n.Tag()))
	_ = obj.Set("nodeType", int(n.Kind()))

	r.defineAccessor(obj, "textContent",
		func() goja.Value { return r.vm.ToValue(n.Text()) },
		func(v goja.Value) { n.SetText(r.Stringify(r.fromJS(v))) })
	r.defineAccessor(obj, "innerHTML",
		func() goja.Value { return r.vm.ToValue(n.HTML()) },
		func(v goja.Value) {
			if err := n.SetHTML(r.Stringify(r.fromJS(v))); err != nil {
				panic(r.vm.NewGoError(err))
			}
		})
	r.defineAccessor(obj, "outerHTML",
		func() goja.Value { return r.vm.ToValue(n.OuterHTML()) }, nil)
	r.defineAccessor(obj, "id",
		func() goja.Value { v, _ := n.Attr("id"); return r.vm.ToValue(v) },
		func(v goja.Value) { n.SetAttr("id", v.String()) })
	r.defineAccessor(obj, "parentNode",
		func() goja.Value { return r.nodeValue(n.Parent()) }, nil)
	r.defineAccessor(obj, "shadowRoot",
		func() goja.Value { return r.nodeValue(n.Shadow()) }, nil)
	r.defineAccessor(obj, "isConnected",
		func() goja.Value { return r.vm.ToValue(n.Connected()) }, nil)

	_ = obj.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		v, ok := n.Attr(call.Argument(0).String())
		if !ok {
			return goja.Null()
		}
		return r.vm.ToValue(v)
	})
	_ = obj.Set("hasAttribute", func(call goja.FunctionCall) goja.Value {
		_, ok := n.Attr(call.Argument(0).String())
		return r.vm.ToValue(ok)
	})
	_ = obj.Set("setAttribute", func(call goja.FunctionCall) goja.Value {
		n.SetAttr(call.Argument(0).String(), r.Stringify(r.fromJS(call.Argument(1))))
		return goja.Undefined()
	})
	_ = obj.Set("removeAttribute", func(call goja.FunctionCall) goja.Value {
		n.RemoveAttr(call.Argument(0).String())
		return goja.Undefined()
	})
	_ = obj.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		return r.nodeValue(n.Query(call.Argument(0).String()))
	})
	_ = obj.Set("remove", func(goja.FunctionCall) goja.Value {
		n.Remove()
		return goja.Undefined()
	})
	_ = obj.Set("dispatchEvent", func(call goja.FunctionCall) goja.Value {
		ev := host.NewEvent(call.Argument(0).String(), r.Export(r.fromJS(call.Argument(1))))
		return r.vm.ToValue(n.Dispatch(ev))
	})
	return obj
}

func (r *Runtime) defineAccessor(obj *goja.Object, name string, get func() goja.Value, set func(goja.Value)) {
	getter := r.vm.ToValue(func(goja.FunctionCall) goja.Value {
		return get()
	})
	setter := goja.Undefined()
	if set != nil {
		setter = r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			set(call.Argument(0))
			return goja.Undefined()
		})
	}
	if err := obj.DefineAccessorProperty(name, getter, setter, goja.FLAG_FALSE, goja.FLAG_TRUE); err != nil {
		r.logger.Error("failed to define accessor", "property", name, "error", err)
	}
}

// wrapEvent exposes ev to JavaScript. Event objects are not cached.
func (r *Runtime) wrapEvent(ev *host.Event) *goja.Object {
	obj := r.vm.NewObject()
	_ = obj.Set("type", ev.Type)
	_ = obj.Set("detail", r.toJS(ev.Detail))
	r.defineAccessor(obj, "target",
		func() goja.Value { return r.nodeValue(ev.Target) }, nil)
	r.defineAccessor(obj, "currentTarget",
		func() goja.Value { return r.nodeValue(ev.CurrentTarget) }, nil)
	r.defineAccessor(obj, "defaultPrevented",
		func() goja.Value { return r.vm.ToValue(ev.DefaultPrevented()) }, nil)
	_ = obj.Set("preventDefault", func(goja.FunctionCall) goja.Value {
		ev.PreventDefault()
		return goja.Undefined()
	})
	_ = obj.Set("stopPropagation", func(goja.FunctionCall) goja.Value {
		ev.StopPropagation()
		return goja.Undefined()
	})
	return obj
}
