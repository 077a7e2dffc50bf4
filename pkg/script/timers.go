package script

import (
	"time"

	"github.com/dop251/goja"

	tderrors "github.com/vango-dev/tendril/internal/errors"
)

// initTimers installs setTimeout and clearTimeout backed by the clock.
// Callbacks run wherever the clock runs them, on the loop for the real
// clock.
func (r *Runtime) initTimers() {
	_ = r.vm.GlobalObject().Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		fn, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(r.vm.NewTypeError("setTimeout: callback is not a function"))
		}
		ms := call.Argument(1).ToInteger()
		if ms < 0 {
			ms = 0
		}
		var extra []goja.Value
		if len(call.Arguments) > 2 {
			extra = append(extra, call.Arguments[2:]...)
		}

		r.timerSeq++
		id := r.timerSeq
		r.timers[id] = r.clock.AfterFunc(time.Duration(ms)*time.Millisecond, func() {
			delete(r.timers, id)
			if _, err := fn(goja.Undefined(), extra...); err != nil {
				r.reportError(tderrors.New(tderrors.ErrEval).WithDetail("A setTimeout callback threw.").Wrap(err))
			}
		})
		return r.vm.ToValue(id)
	})
	_ = r.vm.GlobalObject().Set("clearTimeout", func(call goja.FunctionCall) goja.Value {
		id := call.Argument(0).ToInteger()
		if t, ok := r.timers[id]; ok {
			t.Stop()
			delete(r.timers, id)
		}
		return goja.Undefined()
	})
}

func (r *Runtime) reportError(err error) {
	if r.onError != nil {
		r.onError(err)
		return
	}
	r.logger.Error("script error", "error", err)
}
