package tendril

import (
	"strings"

	tderrors "github.com/vango-dev/tendril/internal/errors"
	"github.com/vango-dev/tendril/pkg/bind"
	"github.com/vango-dev/tendril/pkg/host"
	"github.com/vango-dev/tendril/pkg/reactive"
	"github.com/vango-dev/tendril/pkg/script"
)

// Component is a definition read from a #component template.
type Component struct {
	Tag string
	// Attributes lists the declared external attributes in markup order.
	Attributes []string
	// Defaults maps each external attribute to its default expression.
	Defaults map[string]string

	Construct  []string
	Connect    []string
	Disconnect []string

	content []host.Node
}

// Phase is the lifecycle state of a component instance.
type Phase uint8

const (
	PhaseConstructing Phase = iota
	PhaseConnected
	PhaseDisconnected
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseConstructing:
		return "constructing"
	case PhaseConnected:
		return "connected"
	case PhaseDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Component returns the definition of tag.
func (e *Engine) Component(tag string) (*Component, bool) {
	c, ok := e.components[strings.ToLower(tag)]
	return c, ok
}

// parseComponent reads a definition from a template element. Attributes
// without a directive prefix are the external attributes; script
// children are lifecycle buckets and the other children are the content.
func parseComponent(tpl host.Node, tag string) *Component {
	c := &Component{Tag: tag, Defaults: make(map[string]string)}
	for _, a := range tpl.Attributes() {
		if a.Name == "" || strings.ContainsRune("#@:", rune(a.Name[0])) {
			continue
		}
		c.Attributes = append(c.Attributes, a.Name)
		c.Defaults[a.Name] = a.Value
	}
	for _, child := range tpl.Children() {
		if child.Kind() != host.KindElement || child.Tag() != "script" {
			c.content = append(c.content, child)
			continue
		}
		src := child.Text()
		switch {
		case hasDirective(child, DirectiveConnected):
			c.Connect = append(c.Connect, src)
		case hasDirective(child, DirectiveDisconnected):
			c.Disconnect = append(c.Disconnect, src)
		default:
			c.Construct = append(c.Construct, src)
		}
	}
	return c
}

func hasDirective(n host.Node, kind DirectiveKind) bool {
	for _, a := range n.Attributes() {
		if d, err := Classify(a.Name); err == nil && d.Kind == kind {
			return true
		}
	}
	return false
}

// defineComponent registers the custom element declared by tpl.
func (e *Engine) defineComponent(tpl host.Node, tag string) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		e.faultAt(tderrors.New(tderrors.ErrComponent).WithDetail("#component needs a tag name."), tpl, "#component", tag)
		return
	}
	e.templates[tpl] = tag
	if _, ok := e.components[tag]; ok {
		return
	}

	def := parseComponent(tpl, tag)
	e.components[tag] = def
	err := e.doc.Define(tag, host.ElementDefinition{
		ObservedAttributes: def.Attributes,
		Construct: func(el host.Node) host.ElementCallbacks {
			return e.newInstance(def, el)
		},
	})
	if err != nil {
		delete(e.components, tag)
		e.faultAt(tderrors.New(tderrors.ErrComponent).Wrap(err), tpl, "#component", tag)
		return
	}
	e.logger.Debug("component defined", "tag", tag, "attributes", def.Attributes)
}

// instance is one element of a component type.
type instance struct {
	e          *Engine
	def        *Component
	host       host.Node
	shadow     host.Node
	scope      *reactive.Scope
	state      *nodeState
	phase      Phase
	unobserve  func()
	reflecting bool

	// seeded holds the text reflected from each default, so a reconstruct
	// can tell an evaluated default from a value set on the host.
	seeded map[string]string
}

var _ host.ElementCallbacks = (*instance)(nil)

func (e *Engine) newInstance(def *Component, el host.Node) *instance {
	in := &instance{e: e, def: def, host: el, seeded: make(map[string]string)}
	e.instances[in] = struct{}{}
	in.construct()
	return in
}

func (in *instance) bindings() script.Bindings {
	return script.Bindings{Old: in.scope.Old, Node: in.host, Host: in.host}
}

// construct builds a fresh scope and shadow content, applies attribute
// values or defaults and runs the plain scripts.
func (in *instance) construct() {
	e := in.e
	in.phase = PhaseConstructing
	in.scope = reactive.NewScope(nil)
	in.shadow = in.host.AttachShadow()
	in.state = newNodeState(in.shadow, in.scope, in.host)

	for _, c := range in.shadow.Children() {
		c.Remove()
	}
	for _, c := range in.def.content {
		if err := in.shadow.Append(e.doc.Clone(c, true)); err != nil {
			in.fault(tderrors.New(tderrors.ErrComponent).Wrap(err), "#component", in.def.Tag)
		}
	}

	env := e.env(in.state)
	for _, name := range in.def.Attributes {
		key := bind.DecodeName(name)
		if v, ok := in.host.Attr(name); ok {
			if seed, seeded := in.seeded[name]; !seeded || seed != v {
				delete(in.seeded, name)
				e.write(in.scope, key, v)
				continue
			}
		}
		expr := in.def.Defaults[name]
		v, err := e.rt.Value(expr, env, in.bindings())
		if err != nil {
			in.fault(err, name, expr)
			continue
		}
		e.write(in.scope, key, v)
		seed := e.rt.Stringify(v)
		in.seeded[name] = seed
		in.reflecting = true
		in.host.SetAttr(name, seed)
		in.reflecting = false
	}

	in.run(in.def.Construct)
	e.metrics.RecordComponent(in.def.Tag, PhaseConstructing.String())
	e.logger.Debug("component constructed", "tag", in.def.Tag)
}

// Connected wires the shadow tree, follows its mutations and runs the
// connect scripts. A reconnected instance is constructed again first.
func (in *instance) Connected() {
	e := in.e
	e.instances[in] = struct{}{}
	if !e.mounted || in.phase == PhaseConnected {
		return
	}
	if in.phase == PhaseDisconnected {
		in.construct()
	}
	e.states[in.shadow] = in.state
	for _, c := range in.shadow.Children() {
		e.setup(c)
	}
	in.unobserve = e.doc.Observe(in.shadow, e.onMutations)
	in.run(in.def.Connect)
	in.phase = PhaseConnected
	e.metrics.RecordComponent(in.def.Tag, PhaseConnected.String())
	e.logger.Debug("component connected", "tag", in.def.Tag)
}

// Disconnected runs the disconnect scripts while the scope is still
// valid, then tears down the shadow tree and drops the scope. An instance
// whose host has left the tree is forgotten until it connects again.
func (in *instance) Disconnected() {
	e := in.e
	defer func() {
		if !in.host.Connected() {
			delete(e.instances, in)
		}
	}()
	if in.phase != PhaseConnected {
		return
	}
	in.run(in.def.Disconnect)
	if in.unobserve != nil {
		in.unobserve()
		in.unobserve = nil
	}
	e.teardown(in.shadow)
	in.scope = nil
	in.state = nil
	in.phase = PhaseDisconnected
	e.metrics.RecordComponent(in.def.Tag, PhaseDisconnected.String())
	e.logger.Debug("component disconnected", "tag", in.def.Tag)
}

// AttributeChanged reflects an external attribute into the scope.
func (in *instance) AttributeChanged(name, oldValue, newValue string) {
	if in.reflecting || in.scope == nil {
		return
	}
	delete(in.seeded, name)
	in.e.write(in.scope, bind.DecodeName(name), newValue)
}

func (in *instance) run(scripts []string) {
	if len(scripts) == 0 {
		return
	}
	env := in.e.env(in.state)
	for _, src := range scripts {
		if err := in.e.rt.Exec(src, env, in.bindings()); err != nil {
			in.fault(err, "script", src)
		}
	}
}

func (in *instance) fault(err error, attr, source string) {
	in.e.faultAt(err, in.host, attr, source)
}
