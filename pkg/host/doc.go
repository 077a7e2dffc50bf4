// Package host defines the document tree the engine runs against.
//
// The engine never touches a rendering surface directly. Everything it
// needs from a tree (attributes, nested properties, content insertion,
// queries, events, batched mutation observation and custom element
// registration) is expressed by the interfaces in this package. The
// htmltree package provides an in-memory implementation.
package host
