// Package script evaluates directive expressions with goja.
//
// Every expression runs inside a with block over an environment object
// backed by an Env. Identifier lookups that are not JavaScript globals go
// through Env.Has, Env.Get and Env.Set, so unknown names resolve to scope
// variables and are created lazily on first use. A handful of fixed
// identifiers are always available:
//
//	$old    previous values of scope variables ($old.count)
//	$el     the node owning the directive
//	$host   the component element owning the node, if any
//	$event  the event being handled, if any
//
// Inside an expression, this is the environment object.
//
// Values crossing into Go are converted with fromJS: undefined and null
// become nil, primitives become Go strings, bools, int64 and float64, and
// objects and functions stay goja values so they keep their identity.
//
// A Runtime wraps a single goja.Runtime and is not safe for concurrent use.
package script
