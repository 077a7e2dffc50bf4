package tendril

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tderrors "github.com/vango-dev/tendril/internal/errors"
	"github.com/vango-dev/tendril/pkg/fetch"
	"github.com/vango-dev/tendril/pkg/host"
	"github.com/vango-dev/tendril/pkg/htmltree"
	"github.com/vango-dev/tendril/pkg/loop"
	"github.com/vango-dev/tendril/pkg/metrics"
	"github.com/vango-dev/tendril/pkg/reactive"
	"github.com/vango-dev/tendril/pkg/store"
)

type fixture struct {
	t      *testing.T
	doc    *htmltree.Document
	clock  *loop.ManualClock
	engine *Engine
	faults []error
}

func newFixture(t *testing.T, markup string, opts ...Option) *fixture {
	t.Helper()
	clock := loop.NewManualClock(time.Unix(0, 0))
	l := loop.New(loop.WithClock(clock))
	f := &fixture{
		t:     t,
		doc:   htmltree.MustParse(markup, htmltree.WithPoster(l.Post)),
		clock: clock,
	}
	base := []Option{
		WithLoop(l),
		WithFaultHandler(func(err error) { f.faults = append(f.faults, err) }),
	}
	f.engine = New(f.doc, append(base, opts...)...)
	require.NoError(t, f.engine.Mount())
	f.settle()
	return f
}

func (f *fixture) settle() {
	f.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(f.t, f.engine.Settle(ctx))
}

func (f *fixture) node(selector string) host.Node {
	f.t.Helper()
	n := f.doc.Query(selector)
	require.NotNil(f.t, n, selector)
	return n
}

func (f *fixture) scope(selector string) *reactive.Scope {
	f.t.Helper()
	s, ok := f.engine.ScopeOf(f.node(selector))
	require.True(f.t, ok, "no scope for %s", selector)
	return s
}

func (f *fixture) dispatch(selector, typ string, detail any) {
	f.t.Helper()
	require.NoError(f.t, f.engine.Dispatch(selector, typ, detail))
}

func (f *fixture) noFaults() {
	f.t.Helper()
	assert.Empty(f.t, f.faults)
}

func TestCounter(t *testing.T) {
	f := newFixture(t, `
		<div #let:count="1">
			<span id="out" ::text="count"></span>
			<button id="inc" @click="count = count + 1">+</button>
		</div>`)

	assert.Equal(t, "1", f.node("#out").Text())
	f.dispatch("#inc", "click", nil)
	f.dispatch("#inc", "click", nil)
	assert.Equal(t, "3", f.node("#out").Text())
	f.noFaults()
}

func TestTemplateBinding(t *testing.T) {
	f := newFixture(t, `<p id="p" #let:name="'World'" :title="Hello ${name}!">x</p>`)

	title, _ := f.node("#p").Attr("title")
	assert.Equal(t, "Hello World!", title)

	f.scope("#p").Set("name", "Ada")
	title, _ = f.node("#p").Attr("title")
	assert.Equal(t, "Hello Ada!", title)
	f.noFaults()
}

func TestInheritedWrites(t *testing.T) {
	f := newFixture(t, `
		<section id="outer" #let:total="0">
			<div id="a" ::text="total"></div>
			<div id="b"><button id="add" @click="total = total + 5"></button></div>
		</section>`)

	f.dispatch("#add", "click", nil)
	assert.EqualValues(t, 5, f.scope("#outer").Get("total"))
	assert.Equal(t, "5", f.node("#a").Text())

	_, local := f.scope("#b").Lookup("total")
	assert.True(t, local, "the ancestor signal resolves from below")
	assert.Same(t, f.scope("#outer"), f.scope("#b").Owner("total"))
}

func TestUndeclaredReadIsStable(t *testing.T) {
	f := newFixture(t, `<div id="d" ::text="missing"></div>`)
	s := f.scope("#d")

	sig := s.Signal("missing")
	assert.Same(t, sig, s.Signal("missing"))
	assert.Nil(t, s.Get("missing"))
	assert.Nil(t, s.Get("missing"))
	assert.Equal(t, "", f.node("#d").Text())

	s.Set("missing", "now")
	assert.Equal(t, "now", f.node("#d").Text())
}

func TestLetDependencies(t *testing.T) {
	f := newFixture(t, `<div id="d" #let:v1="1" #let:v2="v1 * 2" #let:v3|v1="v1 * 3"></div>`)
	s := f.scope("#d")

	assert.EqualValues(t, 2, s.Get("v2"))
	assert.EqualValues(t, 3, s.Get("v3"))

	s.Set("v1", 5)
	assert.EqualValues(t, 2, s.Get("v2"), "a #let without dependencies runs once")
	assert.EqualValues(t, 15, s.Get("v3"))
	f.noFaults()
}

func TestDecodedNames(t *testing.T) {
	f := newFixture(t, `<div id="d" #let:first-name="'Ada'" ::style.background-color="'red'" @value-changed="seen = $event.type"></div>`)
	d := f.node("#d")

	assert.Equal(t, "Ada", f.scope("#d").Get("firstName"))
	style, _ := d.Attr("style")
	assert.Equal(t, "background-color: red", style)

	d.Dispatch(host.NewEvent("valueChanged", nil))
	assert.Equal(t, "valueChanged", f.scope("#d").Get("seen"))
}

func TestPersistedVariables(t *testing.T) {
	query, err := store.ParseQueryStore("page=7")
	require.NoError(t, err)
	session := store.NewMemoryStore()
	require.NoError(t, session.Set("theme", "dark"))
	local := store.NewMemoryStore()

	f := newFixture(t, `
		<div id="d"
			#let-url:page="1"
			#let-session:theme="'light'"
			#let-local:visits="10"></div>`,
		WithStores(store.Set{URL: query, Session: session, Local: local}))
	s := f.scope("#d")

	assert.EqualValues(t, 7, s.Get("page"), "stored value wins over the default")
	assert.Equal(t, "dark", s.Get("theme"))
	v, _ := session.Get("theme")
	assert.Equal(t, "dark", v)

	assert.EqualValues(t, 10, s.Get("visits"))
	v, ok := local.Get("visits")
	require.True(t, ok, "the default is written through")
	assert.Equal(t, "10", v)

	s.Set("page", 3)
	assert.Equal(t, "page=3", query.String())
	s.Set("theme", map[string]any{"mode": "x"})
	v, _ = session.Get("theme")
	assert.JSONEq(t, `{"mode":"x"}`, v)
	f.noFaults()
}

func TestPersistedStringsKeepTheirType(t *testing.T) {
	local := store.NewMemoryStore()
	session := store.NewMemoryStore()
	stores := store.Set{URL: store.NewQueryStore(nil), Session: session, Local: local}
	markup := `<div id="d" #let-local:code="'12345'" #let-session:flag="'true'"></div>`

	f := newFixture(t, markup, WithStores(stores))
	v, _ := local.Get("code")
	assert.Equal(t, `"12345"`, v)
	f.scope("#d").Set("code", "007")

	g := newFixture(t, markup, WithStores(stores))
	assert.Equal(t, "007", g.scope("#d").Get("code"))
	assert.Equal(t, "true", g.scope("#d").Get("flag"))
	g.noFaults()
}

type failingStore struct{}

func (failingStore) Get(string) (string, bool) { return "", false }
func (failingStore) Set(string, string) error  { return assert.AnError }

func TestStoreWriteFault(t *testing.T) {
	f := newFixture(t, `<div #let-local:x="1"></div>`,
		WithStores(store.Set{URL: store.NewQueryStore(nil), Session: store.NewMemoryStore(), Local: failingStore{}}))

	require.Len(t, f.faults, 1)
	assert.Equal(t, tderrors.ErrStoreWrite, tderrors.CodeOf(f.faults[0]))
	assert.ErrorIs(t, f.faults[0], assert.AnError)
}

func TestAppendBinding(t *testing.T) {
	f := newFixture(t, `<ul id="list" #let:item="'<li>A</li>'" ::html+="item"></ul>`)

	assert.Equal(t, "<li>A</li>", f.node("#list").HTML())
	f.scope("#list").Set("item", "<li>B</li>")
	assert.Equal(t, "<li>A</li><li>B</li>", f.node("#list").HTML())
}

func TestRemovalUnsubscribes(t *testing.T) {
	f := newFixture(t, `
		<div id="root" #let:n="0">
			<p id="a" ::text="n" :title="n"></p>
			<p id="b" ::text="n"></p>
		</div>`)
	sig := f.scope("#root").Signal("n")
	require.Equal(t, 3, sig.Listeners())

	a := f.node("#a")
	a.Remove()
	f.settle()
	assert.Equal(t, 1, sig.Listeners())
	_, ok := f.engine.ScopeOf(a)
	assert.False(t, ok)

	f.scope("#root").Set("n", 9)
	assert.Equal(t, "0", a.Text(), "removed node is not updated")
	assert.Equal(t, "9", f.node("#b").Text())
}

func TestRemoveAndReAddInOneBatch(t *testing.T) {
	f := newFixture(t, `<div id="wrap" #let:n="0"><span id="s" ::text="n"></span></div>`)
	sig := f.scope("#wrap").Signal("n")
	require.Equal(t, 1, sig.Listeners())

	s := f.node("#s")
	s.Remove()
	require.NoError(t, f.node("#wrap").Append(s))
	f.settle()

	assert.Equal(t, 1, sig.Listeners())
	f.scope("#wrap").Set("n", 5)
	assert.Equal(t, "5", s.Text())
}

func TestInsertedMarkupIsWired(t *testing.T) {
	f := newFixture(t, `
		<div id="host" #let:label="'hi'" #let:markup="''" ::html="markup"></div>`)

	f.scope("#host").Set("markup", `<b id="inner" ::text="label"></b>`)
	f.settle()
	assert.Equal(t, "hi", f.node("#inner").Text())

	f.scope("#host").Set("label", "bye")
	assert.Equal(t, "bye", f.node("#inner").Text())
}

func TestHandlerFunction(t *testing.T) {
	f := newFixture(t, `<button id="b" @click="function(ev) { this.kind = ev.type; return 1 }"></button>`)
	f.dispatch("#b", "click", nil)
	assert.Equal(t, "click", f.scope("#b").Get("kind"))
}

func TestEventModifiers(t *testing.T) {
	f := newFixture(t, `
		<div id="d" #let:hits="0">
			<button id="once" @tap|once="hits = hits + 1"></button>
		</div>`)

	f.dispatch("#once", "tap", nil)
	f.dispatch("#once", "tap", nil)
	assert.EqualValues(t, 1, f.scope("#d").Get("hits"))
}

func TestThrottle(t *testing.T) {
	f := newFixture(t, `<div id="d" #let:seen="''" @ping|throttle:100="seen += $event.detail + ';'"></div>`)

	f.dispatch("#d", "ping", 0)
	f.clock.Advance(50 * time.Millisecond)
	f.dispatch("#d", "ping", 50)
	f.clock.Advance(70 * time.Millisecond)
	assert.Equal(t, "50;", f.scope("#d").Get("seen"))

	f.dispatch("#d", "ping", 120)
	f.clock.Advance(100 * time.Millisecond)
	assert.Equal(t, "50;120;", f.scope("#d").Get("seen"))
}

func TestThrottleCanceledOnRemoval(t *testing.T) {
	f := newFixture(t, `<div id="root"><p id="d" @ping|throttle:100="fired = true"></p></div>`)
	f.dispatch("#d", "ping", nil)
	require.Equal(t, 1, f.clock.Pending())

	f.node("#d").Remove()
	f.settle()
	assert.Equal(t, 0, f.clock.Pending())
}

func TestDelay(t *testing.T) {
	f := newFixture(t, `<div id="root" #let:fired="false"><p id="d" @go|delay:30="fired = true"></p></div>`)

	f.dispatch("#d", "go", nil)
	assert.Equal(t, false, f.scope("#root").Get("fired"))
	f.clock.Advance(30 * time.Millisecond)
	assert.Equal(t, true, f.scope("#root").Get("fired"))
}

func TestDelayAfterRemovalIsDropped(t *testing.T) {
	f := newFixture(t, `<div id="root" #let:fired="false"><p id="d" @go|delay:30="fired = true"></p></div>`)

	f.dispatch("#d", "go", nil)
	f.node("#d").Remove()
	f.settle()
	f.clock.Advance(time.Second)
	assert.Equal(t, false, f.scope("#root").Get("fired"))
}

func fixtures() fetch.Transport {
	return &fetch.DirTransport{FS: fstest.MapFS{
		"hello.json": {Data: []byte(`{"hello":"world"}`)},
		"items.json": {Data: []byte(`[1,2,3]`)},
		"frag.html":  {Data: []byte(`<li class="dyn" ::text="label"></li>`)},
		"part.html":  {Data: []byte(`<p id="part">part</p>`)},
		"tail.html":  {Data: []byte(`<footer id="tail">tail</footer>`)},
	}}
}

func TestFetchThis(t *testing.T) {
	f := newFixture(t, `<button id="b" @click|fetch:json="'/hello.json' -> this"></button>`,
		WithTransport(fixtures()))

	f.dispatch("#b", "click", nil)
	f.settle()
	assert.Equal(t, "world", f.scope("#b").Get("hello"))
	f.noFaults()
}

func TestFetchConsole(t *testing.T) {
	var logged []any
	f := newFixture(t, `<button id="b" @click|fetch:json="['/items.json', {method: 'GET'}] -> console"></button>`,
		WithTransport(fixtures()),
		WithConsole(func(v any) { logged = append(logged, v) }))

	f.dispatch("#b", "click", nil)
	f.settle()
	assert.Equal(t, []any{[]any{1.0, 2.0, 3.0}}, logged)
}

func TestFetchVariable(t *testing.T) {
	f := newFixture(t, `
		<div id="d" #let:items="null">
			<button id="b" @click|fetch:json="'/items.json' -> items"></button>
		</div>`,
		WithTransport(fixtures()))

	f.dispatch("#b", "click", nil)
	f.settle()
	assert.Equal(t, []any{1.0, 2.0, 3.0}, f.scope("#d").Get("items"))
}

func TestFetchNotOK(t *testing.T) {
	var buf bytes.Buffer
	f := newFixture(t, `
		<div id="d" #let:items="'before'">
			<button id="b" @click|fetch="'/missing.json' -> items"></button>
		</div>`,
		WithTransport(fixtures()),
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	f.dispatch("#b", "click", nil)
	f.settle()
	assert.Equal(t, "before", f.scope("#d").Get("items"))
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "status=404")
	f.noFaults()
}

func TestFetchSelector(t *testing.T) {
	f := newFixture(t, `
		<ul id="list" #let:label="'dyn'"><li>A</li></ul>
		<button id="b" @click|fetch="'/frag.html' -> #list -> beforeEnd"></button>
		<button id="miss" @click|fetch="'/frag.html' -> #nowhere"></button>`,
		WithTransport(fixtures()))

	f.dispatch("#b", "click", nil)
	f.settle()
	assert.Equal(t, "dyn", f.node("#list .dyn").Text())
	assert.Len(t, f.node("#list").Children(), 2)

	f.dispatch("#miss", "click", nil)
	f.settle()
	require.Len(t, f.faults, 1)
	assert.Equal(t, tderrors.ErrTargetNotFound, tderrors.CodeOf(f.faults[0]))
}

func TestFetchDroppedAfterRemoval(t *testing.T) {
	release := make(chan struct{})
	files := fixtures()
	slow := fetch.TransportFunc(func(ctx context.Context, req *fetch.Request) (*fetch.Response, error) {
		<-release
		return files.Do(ctx, req)
	})
	f := newFixture(t, `<div id="root"><button id="b" @click|fetch:json="'/hello.json' -> this"></button></div>`,
		WithTransport(slow))
	b := f.node("#b")
	scope := f.scope("#b")

	f.dispatch("#b", "click", nil)
	b.Remove()
	f.engine.Loop().Flush()
	_, wired := f.engine.ScopeOf(b)
	require.False(t, wired)

	close(release)
	f.settle()
	assert.Nil(t, scope.Get("hello"))
	f.noFaults()
}

func TestFetchTransportFault(t *testing.T) {
	broken := fetch.TransportFunc(func(context.Context, *fetch.Request) (*fetch.Response, error) {
		return nil, assert.AnError
	})
	f := newFixture(t, `<button id="b" @click|fetch:json="'/hello.json' -> this"></button>`,
		WithTransport(broken))

	f.dispatch("#b", "click", nil)
	f.settle()
	require.Len(t, f.faults, 1)
	assert.Equal(t, tderrors.ErrFetchRequest, tderrors.CodeOf(f.faults[0]))
	assert.ErrorIs(t, f.faults[0], assert.AnError)
}

func TestRemountRestartsFetches(t *testing.T) {
	f := newFixture(t, `<button id="b" @click|fetch:json="'/hello.json' -> this"></button>`,
		WithTransport(fixtures()))
	require.NoError(t, f.engine.Unmount())
	require.NoError(t, f.engine.Mount())
	f.settle()

	f.dispatch("#b", "click", nil)
	f.settle()
	assert.Equal(t, "world", f.scope("#b").Get("hello"))
	f.noFaults()
}

func TestInclude(t *testing.T) {
	f := newFixture(t, `<html><head>
		<link rel="include" href="/part.html" #include="#main -> afterBegin">
		<link rel="include" href="/tail.html" #include>
		</head><body><main id="main"><p>end</p></main></body></html>`,
		WithTransport(fixtures()))

	main := f.node("#main")
	assert.Equal(t, `<p id="part">part</p><p>end</p>`, main.HTML())
	body := f.node("body").Children()
	last := body[len(body)-1]
	assert.Equal(t, "footer", last.Tag())
	f.noFaults()
}

func TestJSVar(t *testing.T) {
	f := newFixture(t, `<div id="root"><div id="d" #jsvar="app" #let:x="1"></div></div>`)

	s, ok := f.engine.Registry().Lookup("app")
	require.True(t, ok)
	assert.EqualValues(t, 1, s.Get("x"))
	assert.Equal(t, []string{"app"}, f.engine.Registry().Names())

	f.node("#d").Remove()
	f.settle()
	_, ok = f.engine.Registry().Lookup("app")
	assert.False(t, ok)
}

func TestEvalFault(t *testing.T) {
	var buf bytes.Buffer
	f := newFixture(t, `<div id="d" :title="(" #let:ok="1" ::text="ok"></div>`,
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	require.Len(t, f.faults, 1)
	assert.Equal(t, tderrors.ErrEval, tderrors.CodeOf(f.faults[0]))
	var te *tderrors.TendrilError
	require.ErrorAs(t, f.faults[0], &te)
	require.NotNil(t, te.Directive)
	assert.Equal(t, ":title", te.Directive.Attr)
	assert.Equal(t, "<div id=d>", te.Directive.Node)

	assert.Equal(t, "1", f.node("#d").Text(), "other directives still run")
	assert.Contains(t, buf.String(), "code=E001")
}

func TestModifierFault(t *testing.T) {
	f := newFixture(t, `<div @click|sometimes="x = 1"></div>`)
	require.Len(t, f.faults, 1)
	assert.Equal(t, tderrors.ErrModifier, tderrors.CodeOf(f.faults[0]))
}

func TestMountLifecycle(t *testing.T) {
	f := newFixture(t, `<div id="d" #let:n="0" ::text="n"></div>`)
	assert.ErrorIs(t, f.engine.Mount(), ErrAlreadyMounted)
	assert.True(t, f.engine.Mounted())

	require.NoError(t, f.engine.Set("g", 1))
	v, err := f.engine.Get("g")
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)

	sig := f.scope("#d").Signal("n")
	require.NoError(t, f.engine.Unmount())
	assert.Equal(t, 0, sig.Listeners())
	assert.ErrorIs(t, f.engine.Unmount(), ErrNotMounted)
	assert.ErrorIs(t, f.engine.Set("g", 2), ErrNotMounted)
	_, ok := f.engine.ScopeOf(f.node("#d"))
	assert.False(t, ok)
}

func TestMetrics(t *testing.T) {
	m := metrics.New()
	f := newFixture(t, `<div #let:n="0"><b ::text="n"></b><i id="i" @click="n = n + 1"></i></div>`, WithMetrics(m))
	f.dispatch("#i", "click", nil)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, fam := range families {
		for _, metric := range fam.GetMetric() {
			switch {
			case metric.Counter != nil:
				values[fam.GetName()] += metric.Counter.GetValue()
			case metric.Gauge != nil:
				values[fam.GetName()] += metric.Gauge.GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, values["tendril_bindings"])
	assert.Equal(t, 1.0, values["tendril_events_total"])
	assert.Equal(t, 2.0, values["tendril_writes_total"])
}
