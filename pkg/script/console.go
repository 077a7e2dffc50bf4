package script

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dop251/goja"
)

// initConsole installs a console object that writes to the logger.
func (r *Runtime) initConsole() {
	console := r.vm.NewObject()
	logFunc := func(level slog.Level) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			args := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				if obj, ok := arg.(*goja.Object); ok {
					if _, isFn := goja.AssertFunction(obj); !isFn {
						if s, err := r.JSON(obj); err == nil {
							args[i] = s
							continue
						}
					}
				}
				args[i] = arg.String()
			}
			r.logger.Log(context.Background(), level, "console", "message", strings.Join(args, " "))
			return goja.Undefined()
		}
	}

	_ = console.Set("log", logFunc(slog.LevelInfo))
	_ = console.Set("info", logFunc(slog.LevelInfo))
	_ = console.Set("warn", logFunc(slog.LevelWarn))
	_ = console.Set("error", logFunc(slog.LevelError))
	_ = console.Set("debug", logFunc(slog.LevelDebug))

	_ = r.vm.GlobalObject().Set("console", console)
}
