// Package htmltree is an in-memory host tree built on golang.org/x/net/html.
//
// It implements the host interfaces the engine needs: attribute and
// property access, markup insertion, CSS selector queries through
// htmlquery, event dispatch with capture and bubble phases, batched
// mutation observation, shadow roots and custom element reactions.
// Rendering emits shadow roots as declarative shadow DOM templates.
//
// A Document is not safe for concurrent use. Mutation batches are handed
// to the poster configured with WithPoster; the default poster queues
// them until FlushMutations is called.
package htmltree
