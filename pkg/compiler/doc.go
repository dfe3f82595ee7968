// Package compiler turns annotated markup into a live, data-bound tree.
//
// A Compiler walks a container once. Attributes are classified into
// directives, text nodes containing {{ }} interpolations are turned into
// expressions, and every bound location gets one subscription on the
// change notifier whose callback applies the matching update strategy:
//
//	c := compiler.New(compiler.WithLogger(logger))
//	view, err := c.Mount(ctx, container, scope.New(data))
//	...
//	_ = view.Scope().(scope.Setter).Set("user.name", "Ada") // tree updates in place
//	view.Destroy()
//
// Directive syntax (markers are configurable):
//
//	f-kind[:prop]="expr"   text, html, md, model, show, if, for, attr, style
//	@event="expr"          event listener; the event value is bound as "event"
//	:prop="expr"           property binding
//	{{ expr }}             interpolation inside text
//
// Compilation is best effort. A directive that cannot be handled is logged,
// counted and stripped, and the rest of the tree still compiles.
package compiler
