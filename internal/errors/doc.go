// Package errors provides structured, actionable error messages for tendril.
//
// Every fault the engine reports carries a unique code (e.g. "E001") that
// maps to a short message, a longer explanation and a documentation URL.
// Faults raised while wiring a directive also record where they happened:
// the node, the attribute and the expression source.
//
// # Error Categories
//
//   - eval: user-authored expressions that failed to compile or threw
//   - directive: malformed directive attributes and modifiers
//   - fetch: request, routing and body parsing faults
//   - store: persisted variable write failures
//   - component: invalid component templates
//   - config: configuration file errors
//   - cli: command line errors
//
// # Usage
//
//	err := errors.New("E001").
//	    WithDirective("<button id=save>", "@click", "save(").
//	    Wrap(cause)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E001: Expression evaluation failed
//	//
//	//   <button id=save> @click="save("
//	//
//	//   The expression threw or could not be compiled.
//	//
//	//   Caused by: SyntaxError: (anonymous): Line 1:40 Unexpected token )
//	//
//	//   Learn more: https://tendril.dev/docs/errors/E001
package errors
