package host

// Mutation records children added to and removed from one parent.
type Mutation struct {
	Target  Node
	Added   []Node
	Removed []Node
}

// MutationBatch is the set of records delivered to an observer at once.
type MutationBatch []Mutation

// ElementCallbacks are the lifecycle hooks of a custom element instance.
type ElementCallbacks interface {
	Connected()
	Disconnected()
	AttributeChanged(name, oldValue, newValue string)
}

// ElementDefinition registers a custom element type.
type ElementDefinition struct {
	// ObservedAttributes lists the attributes whose changes are reported
	// through AttributeChanged.
	ObservedAttributes []string

	// Construct is called once per element when it is upgraded.
	Construct func(el Node) ElementCallbacks
}

// Document is the root of a host tree.
type Document interface {
	// Root returns the document node.
	Root() Node
	Head() Node
	Body() Node

	// Query returns the first element of the document matching selector.
	Query(selector string) Node

	// Observe reports child additions and removals anywhere below root,
	// in batches delivered after the mutations happened. Shadow trees are
	// observed separately.
	Observe(root Node, fn func(MutationBatch)) (disconnect func())

	// Define registers a custom element and upgrades existing instances.
	Define(tag string, def ElementDefinition) error

	// Defined reports whether tag is registered.
	Defined(tag string) bool

	// Clone copies a node. Deep clones include all descendants.
	Clone(n Node, deep bool) Node
}
