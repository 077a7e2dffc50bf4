package script

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dop251/goja"

	tderrors "github.com/vango-dev/tendril/internal/errors"
	"github.com/vango-dev/tendril/internal/logging"
	"github.com/vango-dev/tendril/pkg/host"
	"github.com/vango-dev/tendril/pkg/loop"
)

// Env is the variable environment an expression runs against.
type Env interface {
	Get(name string) any
	Set(name string, value any)
	Has(name string) bool
}

// Bindings are the fixed identifiers of one evaluation.
type Bindings struct {
	// Old returns the previous value of a scope variable.
	Old func(name string) any
	// Node is exposed as $el.
	Node host.Node
	// Host is exposed as $host.
	Host host.Node
	// Event is exposed as $event.
	Event *host.Event
	// Extra adds directive-specific identifiers.
	Extra map[string]any
}

type form uint8

const (
	formExpression form = iota
	formTemplate
	formScript
)

type programKey struct {
	form form
	src  string
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger console calls are written to.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// WithClock enables setTimeout and clearTimeout on the given clock.
func WithClock(c loop.Clock) Option {
	return func(r *Runtime) {
		r.clock = c
	}
}

// WithErrorHandler sets the function receiving errors thrown by timer
// callbacks.
func WithErrorHandler(fn func(error)) Option {
	return func(r *Runtime) {
		r.onError = fn
	}
}

// Runtime compiles and runs expressions.
type Runtime struct {
	vm       *goja.Runtime
	programs map[programKey]*goja.Program
	nodes    map[host.Node]*goja.Object
	logger   *slog.Logger
	clock    loop.Clock
	onError  func(error)
	timers   map[int64]loop.Timer
	timerSeq int64
}

// New creates a runtime with console support and, when a clock is given,
// timers.
func New(opts ...Option) *Runtime {
	r := &Runtime{
		vm:       goja.New(),
		programs: make(map[programKey]*goja.Program),
		nodes:    make(map[host.Node]*goja.Object),
		timers:   make(map[int64]loop.Timer),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.NewNop()
	}
	r.initConsole()
	if r.clock != nil {
		r.initTimers()
	}
	return r
}

// IsTemplate reports whether src contains an embedded ${...} template.
func IsTemplate(src string) bool {
	return strings.Contains(src, "${")
}

// Eval evaluates src as an expression.
func (r *Runtime) Eval(src string, env Env, b Bindings) (any, error) {
	v, err := r.run(formExpression, src, env, b)
	if err != nil {
		return nil, err
	}
	return r.fromJS(v), nil
}

// Template evaluates src as the body of a template literal.
func (r *Runtime) Template(src string, env Env, b Bindings) (string, error) {
	v, err := r.run(formTemplate, src, env, b)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// Value evaluates src as a template when it contains ${...} and as an
// expression otherwise.
func (r *Runtime) Value(src string, env Env, b Bindings) (any, error) {
	if IsTemplate(src) {
		return r.Template(src, env, b)
	}
	return r.Eval(src, env, b)
}

// Exec runs src as a sequence of statements.
func (r *Runtime) Exec(src string, env Env, b Bindings) error {
	_, err := r.run(formScript, src, env, b)
	return err
}

// Handle evaluates src and, when the result is a function, calls it with
// args and the environment as this. It returns the function's result, or
// the expression's value when it is not callable.
func (r *Runtime) Handle(src string, env Env, b Bindings, args ...any) (any, error) {
	envObj := r.envObject(env, b)
	v, err := r.call(formExpression, src, envObj)
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return r.fromJS(v), nil
	}
	out, err := fn(envObj, r.toJSAll(args)...)
	if err != nil {
		return nil, r.evalError(src, err)
	}
	return r.fromJS(out), nil
}

// Callable reports whether v is a JavaScript function.
func (r *Runtime) Callable(v any) bool {
	jv, ok := v.(goja.Value)
	if !ok {
		return false
	}
	_, ok = goja.AssertFunction(jv)
	return ok
}

// Call invokes a JavaScript function value.
func (r *Runtime) Call(fn any, args ...any) (any, error) {
	jv, ok := fn.(goja.Value)
	if !ok {
		return nil, fmt.Errorf("script: %T is not callable", fn)
	}
	f, ok := goja.AssertFunction(jv)
	if !ok {
		return nil, fmt.Errorf("script: %s is not callable", jv.String())
	}
	out, err := f(goja.Undefined(), r.toJSAll(args)...)
	if err != nil {
		return nil, tderrors.New(tderrors.ErrEval).Wrap(err)
	}
	return r.fromJS(out), nil
}

func (r *Runtime) run(f form, src string, env Env, b Bindings) (goja.Value, error) {
	return r.call(f, src, r.envObject(env, b))
}

func (r *Runtime) call(f form, src string, envObj *goja.Object) (goja.Value, error) {
	prog, err := r.program(f, src)
	if err != nil {
		return nil, err
	}
	wrapper, err := r.vm.RunProgram(prog)
	if err != nil {
		return nil, r.evalError(src, err)
	}
	fn, ok := goja.AssertFunction(wrapper)
	if !ok {
		return nil, r.evalError(src, fmt.Errorf("compiled program is not a function"))
	}
	v, err := fn(envObj, envObj)
	if err != nil {
		return nil, r.evalError(src, err)
	}
	return v, nil
}

// program compiles src once per form and caches the result.
func (r *Runtime) program(f form, src string) (*goja.Program, error) {
	key := programKey{form: f, src: src}
	if p, ok := r.programs[key]; ok {
		return p, nil
	}
	var code string
	switch f {
	case formTemplate:
		code = "(function($env){with($env){return (`" + escapeTemplate(src) + "`);}})"
	case formScript:
		code = "(function($env){with($env){" + src + "\n}})"
	default:
		code = "(function($env){with($env){return (" + src + "\n);}})"
	}
	p, err := goja.Compile("directive", code, false)
	if err != nil {
		return nil, r.evalError(src, err)
	}
	r.programs[key] = p
	return p, nil
}

// escapeTemplate escapes backticks outside ${...} placeholders so src can
// sit inside a template literal unchanged.
func escapeTemplate(src string) string {
	var b strings.Builder
	depth := 0
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '$' && i+1 < len(src) && src[i+1] == '{':
			depth++
			b.WriteString("${")
			i++
			continue
		case c == '{' && depth > 0:
			depth++
		case c == '}' && depth > 0:
			depth--
		case c == '`' && depth == 0:
			b.WriteString("\\`")
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func (r *Runtime) evalError(src string, err error) error {
	return tderrors.New(tderrors.ErrEval).WithDirective("", "", src).Wrap(err)
}

// Stringify converts a value to attribute or content text. nil, undefined
// and null become the empty string; everything else follows JavaScript's
// String conversion.
func (r *Runtime) Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case goja.Value:
		if goja.IsUndefined(t) || goja.IsNull(t) {
			return ""
		}
		return t.String()
	}
	return r.vm.ToValue(v).String()
}

// Export converts goja values held in Go into plain Go data.
func (r *Runtime) Export(v any) any {
	if jv, ok := v.(goja.Value); ok {
		if goja.IsUndefined(jv) || goja.IsNull(jv) {
			return nil
		}
		return jv.Export()
	}
	return v
}

// JSON serializes v the way JSON.stringify does.
func (r *Runtime) JSON(v any) (string, error) {
	jsonObj := r.vm.Get("JSON").ToObject(r.vm)
	stringify, ok := goja.AssertFunction(jsonObj.Get("stringify"))
	if !ok {
		return "", fmt.Errorf("script: JSON.stringify unavailable")
	}
	out, err := stringify(jsonObj, r.toJS(v))
	if err != nil {
		return "", err
	}
	if goja.IsUndefined(out) {
		return "", nil
	}
	return out.String(), nil
}

func (r *Runtime) toJS(v any) goja.Value {
	switch t := v.(type) {
	case nil:
		return goja.Undefined()
	case goja.Value:
		return t
	case host.Node:
		return r.wrapNode(t)
	case *host.Event:
		return r.wrapEvent(t)
	}
	return r.vm.ToValue(v)
}

func (r *Runtime) toJSAll(args []any) []goja.Value {
	out := make([]goja.Value, len(args))
	for i, a := range args {
		out[i] = r.toJS(a)
	}
	return out
}

func (r *Runtime) fromJS(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	if _, ok := v.(*goja.Object); ok {
		return v
	}
	return v.Export()
}
