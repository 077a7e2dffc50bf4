package script

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tderrors "github.com/vango-dev/tendril/internal/errors"
	"github.com/vango-dev/tendril/pkg/host"
	"github.com/vango-dev/tendril/pkg/htmltree"
	"github.com/vango-dev/tendril/pkg/loop"
	"github.com/vango-dev/tendril/pkg/reactive"
)

func TestEvalReadsAndWritesScope(t *testing.T) {
	r := New()
	scope := reactive.NewScope(nil)
	scope.Set("count", int64(2))

	v, err := r.Eval("count * 3", scope, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, int64(6), v)

	_, err = r.Eval("count = count + 1", scope, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), scope.Get("count"))
}

func TestUnknownNamesAreCreatedLazily(t *testing.T) {
	r := New()
	scope := reactive.NewScope(nil)

	v, err := r.Eval("typeof missing", scope, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, "undefined", v)
	assert.True(t, scope.Has("missing"))

	v, err = r.Eval("Math.max(1, 2)", scope, Bindings{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, v)
	assert.False(t, scope.Has("Math"), "globals are not captured")
}

func TestTemplate(t *testing.T) {
	r := New()
	scope := reactive.NewScope(nil)
	scope.Set("name", "world")

	assert.True(t, IsTemplate("Hello ${name}"))
	assert.False(t, IsTemplate("name"))

	s, err := r.Template("Hello ${name}, `quoted` ${`nested`}", scope, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, "Hello world, `quoted` nested", s)

	v, err := r.Value("name", scope, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, "world", v)
}

func TestTrackingThroughEnv(t *testing.T) {
	r := New()
	scope := reactive.NewScope(nil)
	scope.Set("a", int64(1))
	scope.Set("b", int64(2))
	scope.Set("flag", false)

	tr := reactive.Track(scope)
	_, err := r.Template("${flag ? a : b}", tr, Bindings{})
	require.NoError(t, err)

	deps := tr.Signals()
	require.Len(t, deps, 2, "only the branch taken is tracked")
	flag, _ := scope.Lookup("flag")
	b, _ := scope.Lookup("b")
	assert.Same(t, flag, deps[0])
	assert.Same(t, b, deps[1])
}

func TestFixedIdentifiers(t *testing.T) {
	d := htmltree.MustParse(`<body><button id="b" data-x="7">go</button></body>`)
	btn := d.Query("#b")
	r := New()
	scope := reactive.NewScope(nil)
	scope.Set("count", int64(1))
	scope.Set("count", int64(2))

	ev := host.NewEvent("click", map[string]any{"n": 5})
	b := Bindings{Old: scope.Old, Node: btn, Event: ev, Extra: map[string]any{"extra": "yes"}}

	v, err := r.Eval("[$old.count, $el.getAttribute('data-x'), $event.type, $event.detail.n, extra, $host].join(',')", scope, b)
	require.NoError(t, err)
	assert.Equal(t, "1,7,click,5,yes,", v)

	_, err = r.Eval("$el = 1", scope, b)
	require.NoError(t, err)
	assert.False(t, scope.Has("$el"), "fixed identifiers are read-only")
}

func TestHandleCallsFunctionsWithScopeAsThis(t *testing.T) {
	r := New()
	scope := reactive.NewScope(nil)
	scope.Set("clicks", int64(0))
	ev := host.NewEvent("click", nil)

	_, err := r.Handle("(e) => { this.clicks++; last = e.type }", scope, Bindings{Event: ev}, ev)
	require.NoError(t, err)
	assert.Equal(t, int64(1), scope.Get("clicks"))
	assert.Equal(t, "click", scope.Get("last"))

	v, err := r.Handle("clicks + 1", scope, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestExecScript(t *testing.T) {
	r := New()
	scope := reactive.NewScope(nil)
	err := r.Exec("total = 0; for (let i = 1; i <= 3; i++) { total += i }", scope, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, int64(6), scope.Get("total"))
}

func TestErrorsAreCoded(t *testing.T) {
	r := New()
	scope := reactive.NewScope(nil)

	_, err := r.Eval("(", scope, Bindings{})
	require.Error(t, err)
	assert.Equal(t, tderrors.ErrEval, tderrors.CodeOf(err))

	_, err = r.Eval("nothing.deeper", scope, Bindings{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TypeError")
}

func TestObjectsKeepIdentity(t *testing.T) {
	r := New()
	scope := reactive.NewScope(nil)

	_, err := r.Eval("user = {name: 'ada', tags: ['a', 'b']}", scope, Bindings{})
	require.NoError(t, err)
	v, err := r.Eval("user.name", scope, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, "ada", v)

	exported := r.Export(scope.Get("user"))
	assert.Equal(t, map[string]any{"name": "ada", "tags": []any{"a", "b"}}, exported)

	s, err := r.JSON(scope.Get("user"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"ada","tags":["a","b"]}`, s)

	assert.Equal(t, "a,b", r.Stringify(mustEval(t, r, "user.tags", scope)))
	assert.Equal(t, "", r.Stringify(nil))
	assert.Equal(t, "3.5", r.Stringify(3.5))
}

func mustEval(t *testing.T, r *Runtime, src string, env Env) any {
	t.Helper()
	v, err := r.Eval(src, env, Bindings{})
	require.NoError(t, err)
	return v
}

func TestCallable(t *testing.T) {
	r := New()
	scope := reactive.NewScope(nil)
	fn := mustEval(t, r, "(a, b) => a + b", scope)
	require.True(t, r.Callable(fn))
	assert.False(t, r.Callable("nope"))

	out, err := r.Call(fn, int64(2), int64(3))
	require.NoError(t, err)
	assert.Equal(t, int64(5), out)

	_, err = r.Call("nope")
	assert.Error(t, err)
}

func TestNodeWrapper(t *testing.T) {
	d := htmltree.MustParse(`<body><div id="d"><span>a</span></div></body>`)
	div := d.Query("#d")
	r := New()
	scope := reactive.NewScope(nil)
	b := Bindings{Node: div}

	require.NoError(t, r.Exec(`$el.setAttribute("title", 5); $el.querySelector("span").textContent = "b"`, scope, b))
	v, _ := div.Attr("title")
	assert.Equal(t, "5", v)
	assert.Equal(t, "b", div.Text())

	got := 0
	div.Listen("ping", func(ev *host.Event) { got = int(ev.Detail.(int64)) }, host.ListenOptions{})
	require.NoError(t, r.Exec(`$el.dispatchEvent("ping", 9)`, scope, b))
	assert.Equal(t, 9, got)

	v2, err := r.Eval("$el === $el", scope, b)
	require.NoError(t, err)
	assert.Equal(t, true, v2)
}

func TestConsoleWritesToLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := New(WithLogger(logger))
	require.NoError(t, r.Exec(`console.warn("hi", {a: 1})`, reactive.NewScope(nil), Bindings{}))

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, `message="hi {\"a\":1}"`)
}

func TestTimers(t *testing.T) {
	clock := loop.NewManualClock(time.Unix(0, 0))
	var errs []error
	r := New(WithClock(clock), WithErrorHandler(func(err error) { errs = append(errs, err) }))
	scope := reactive.NewScope(nil)

	require.NoError(t, r.Exec(`
		setTimeout(() => { fired = true }, 100);
		const id = setTimeout(() => { cancelled = true }, 50);
		clearTimeout(id);
		setTimeout(() => { throw new Error("late") }, 10);
	`, scope, Bindings{}))

	clock.Advance(200 * time.Millisecond)
	assert.Equal(t, true, scope.Get("fired"))
	assert.Nil(t, scope.Get("cancelled"))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "late")
}
