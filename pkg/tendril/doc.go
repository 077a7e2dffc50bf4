// Package tendril attaches reactive scopes to a host document and keeps
// the bindings declared in its markup in sync with them.
//
// Directives are attributes with a prefix:
//
//	@event[|mod[:arg]]*="handler"          event listener (see package event)
//	:attr="expr"                           attribute binding
//	::prop[.nested][+]="expr"              property binding, "+" appends
//	#let[-url|-local|-session]:name[|dep]*="expr"
//	                                       variable declaration
//	#jsvar="name"                          export the scope to the Registry
//	#component="tag-name"                  component template
//	#include[="selector -> position"]      include a linked resource
//	#onconnected / #ondisconnected         component script buckets
//
// Every element gets a scope chained to its parent's. An Engine wires the
// directives of the document when mounted and follows insertions and
// removals afterwards; removed nodes release every subscription they held.
//
// A typical host loop:
//
//	l := loop.New()
//	doc, _ := htmltree.ParseString(markup, htmltree.WithPoster(l.Post))
//	e := tendril.New(doc, tendril.WithLoop(l))
//	if err := e.Mount(); err != nil {
//	    return err
//	}
//	_ = e.Settle(ctx)
package tendril
