package tendril

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	tderrors "github.com/vango-dev/tendril/internal/errors"
	"github.com/vango-dev/tendril/internal/logging"
	"github.com/vango-dev/tendril/pkg/event"
	"github.com/vango-dev/tendril/pkg/fetch"
	"github.com/vango-dev/tendril/pkg/host"
	"github.com/vango-dev/tendril/pkg/loop"
	"github.com/vango-dev/tendril/pkg/metrics"
	"github.com/vango-dev/tendril/pkg/reactive"
	"github.com/vango-dev/tendril/pkg/script"
	"github.com/vango-dev/tendril/pkg/store"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLoop sets the loop that runs timers, fetch completions and, when the
// document posts to it, mutation batches. Default: a new loop.
func WithLoop(l *loop.Loop) Option {
	return func(e *Engine) {
		e.loop = l
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics enables metrics collection.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTransport sets the transport used by fetch directives and #include.
func WithTransport(t fetch.Transport) Option {
	return func(e *Engine) {
		e.transport = t
	}
}

// WithStores sets the persisted variable stores. Default: memory stores.
func WithStores(s store.Set) Option {
	return func(e *Engine) {
		e.stores = s
	}
}

// WithRegistry shares a #jsvar registry. Default: a private registry.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithConsole receives values routed to the console fetch target instead
// of the logger.
func WithConsole(fn func(any)) Option {
	return func(e *Engine) {
		e.console = fn
	}
}

// WithFaultHandler is called with every fault after it is logged.
func WithFaultHandler(fn func(error)) Option {
	return func(e *Engine) {
		e.onFault = fn
	}
}

// WithRuntime sets the script runtime. Default: a runtime on the loop's
// clock logging to the engine logger.
func WithRuntime(rt *script.Runtime) Option {
	return func(e *Engine) {
		e.rt = rt
	}
}

// Engine wires the directives of one document.
type Engine struct {
	doc       host.Document
	loop      *loop.Loop
	rt        *script.Runtime
	pipeline  *event.Pipeline
	fetch     *fetch.Handler
	transport fetch.Transport
	stores    store.Set
	registry  *Registry
	metrics   *metrics.Metrics
	logger    *slog.Logger
	console   func(any)
	onFault   func(error)

	states     map[host.Node]*nodeState
	templates  map[host.Node]string
	components map[string]*Component
	instances  map[*instance]struct{}

	root      *reactive.Scope
	mounted   bool
	unobserve func()
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates an engine for doc. Nothing is wired until Mount.
func New(doc host.Document, opts ...Option) *Engine {
	e := &Engine{
		doc:        doc,
		states:     make(map[host.Node]*nodeState),
		templates:  make(map[host.Node]string),
		components: make(map[string]*Component),
		instances:  make(map[*instance]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.loop == nil {
		e.loop = loop.New(loop.WithPanicHandler(e.panicked))
	}
	if e.rt == nil {
		e.rt = script.New(
			script.WithLogger(e.logger),
			script.WithClock(e.loop.Clock()),
			script.WithErrorHandler(e.fault),
		)
	}
	if e.registry == nil {
		e.registry = NewRegistry()
	}
	if e.stores == (store.Set{}) {
		e.stores = store.NewMemorySet()
	}
	e.pipeline = event.NewPipeline(e.loop.Clock())

	fopts := []fetch.HandlerOption{
		fetch.WithLogger(e.logger),
		fetch.WithObserver(e.observeFetch),
	}
	if e.console != nil {
		fopts = append(fopts, fetch.WithConsole(e.console))
	}
	e.fetch = fetch.NewHandler(e.transport, fopts...)
	return e
}

// Document returns the document the engine wires.
func (e *Engine) Document() host.Document {
	return e.doc
}

// Loop returns the engine loop.
func (e *Engine) Loop() *loop.Loop {
	return e.loop
}

// Runtime returns the script runtime.
func (e *Engine) Runtime() *script.Runtime {
	return e.rt
}

// Registry returns the #jsvar registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Root returns the document scope, the ancestor of every scope outside
// components.
func (e *Engine) Root() *reactive.Scope {
	return e.root
}

// Components returns the defined component tags, sorted.
func (e *Engine) Components() []string {
	tags := make([]string, 0, len(e.components))
	for tag := range e.components {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// ScopeOf returns the scope of a wired node.
func (e *Engine) ScopeOf(n host.Node) (*reactive.Scope, bool) {
	st, ok := e.states[n]
	if !ok {
		return nil, false
	}
	return st.scope, true
}

// Mount wires the document and starts following its mutations. After an
// Unmount, component instances still in the tree are connected again.
func (e *Engine) Mount() error {
	if e.mounted {
		return ErrAlreadyMounted
	}
	e.mounted = true
	e.ctx, e.cancel = context.WithCancel(context.Background())

	root := e.doc.Root()
	e.root = reactive.NewScope(nil)
	e.states[root] = newNodeState(root, e.root, nil)
	e.unobserve = e.doc.Observe(root, e.onMutations)
	for _, c := range root.Children() {
		e.setup(c)
	}
	for in := range e.instances {
		if !in.host.Connected() {
			delete(e.instances, in)
			continue
		}
		in.Connected()
	}
	e.logger.Debug("mounted", "nodes", len(e.states), "components", len(e.components))
	return nil
}

// Unmount tears down every node and component and stops following
// mutations. In-flight fetches are canceled.
func (e *Engine) Unmount() error {
	if !e.mounted {
		return ErrNotMounted
	}
	e.mounted = false
	e.cancel()
	if e.unobserve != nil {
		e.unobserve()
		e.unobserve = nil
	}
	for in := range e.instances {
		in.Disconnected()
	}
	root := e.doc.Root()
	e.teardown(root)
	clear(e.templates)
	e.root = nil
	return nil
}

// Mounted reports whether Mount has been called without Unmount.
func (e *Engine) Mounted() bool {
	return e.mounted
}

type mutationFlusher interface {
	FlushMutations() int
}

// Settle runs the loop until no task, async work or queued mutation batch
// is left. Timers are not waited for.
func (e *Engine) Settle(ctx context.Context) error {
	for {
		if err := e.loop.Settle(ctx); err != nil {
			return err
		}
		f, ok := e.doc.(mutationFlusher)
		if !ok || f.FlushMutations() == 0 {
			if e.loop.Pending() == 0 {
				return nil
			}
		}
	}
}

// Set writes a variable in the document scope.
func (e *Engine) Set(name string, value any) error {
	if !e.mounted {
		return ErrNotMounted
	}
	e.write(e.root, name, value)
	return nil
}

// Get reads a variable from the document scope.
func (e *Engine) Get(name string) (any, error) {
	if !e.mounted {
		return nil, ErrNotMounted
	}
	return e.root.Get(name), nil
}

// Dispatch fires a bubbling event of type typ at the first node matching
// selector.
func (e *Engine) Dispatch(selector, typ string, detail any) error {
	n := e.doc.Query(selector)
	if n == nil {
		return tderrors.New(tderrors.ErrTargetNotFound).WithDetailf("No node matches %q.", selector)
	}
	n.Dispatch(host.NewEvent(typ, detail))
	return nil
}

func (e *Engine) write(scope *reactive.Scope, name string, value any) {
	e.metrics.RecordWrite()
	scope.Set(name, value)
}

// fault reports an error raised by a directive or handler.
func (e *Engine) fault(err error) {
	if err == nil {
		return
	}
	code := tderrors.CodeOf(err)
	e.logger.Error("fault", "code", code, "err", err)
	e.metrics.RecordFault(code)
	if e.onFault != nil {
		e.onFault(err)
	}
}

// faultAt reports err with the directive it was raised for.
func (e *Engine) faultAt(err error, n host.Node, attr, source string) {
	te := tderrors.FromError(err, tderrors.ErrDirective)
	te.WithDirective(describe(n), attr, source)
	e.fault(te)
}

func (e *Engine) panicked(r any) {
	e.fault(tderrors.New(tderrors.ErrTaskPanic).Wrap(fmt.Errorf("%v", r)))
}

func (e *Engine) observeFetch(req *fetch.Request, resp *fetch.Response, elapsed time.Duration, err error) {
	status := 0
	if resp != nil {
		status = resp.Status
	}
	e.metrics.RecordFetch(status, elapsed)
}

// describe renders a node as an opening tag with its id.
func describe(n host.Node) string {
	if n == nil {
		return ""
	}
	if n.Kind() != host.KindElement {
		return n.Kind().String()
	}
	if id, ok := n.Attr("id"); ok && id != "" {
		return fmt.Sprintf("<%s id=%s>", n.Tag(), id)
	}
	return "<" + n.Tag() + ">"
}
