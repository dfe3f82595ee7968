// Package errors provides coded, structured errors for fbind.
//
// Every failure the compiler, the loaders and the preview server can report has a
// registered code. A code maps to a category, a short message and an optional
// hint:
//
//	err := errors.New("B001").
//	    WithDetail(`attribute "f-frob" names no directive kind`)
//
//	errors.PrintError(err)
//	// ERROR B001: Unknown directive kind
//	//
//	//   attribute "f-frob" names no directive kind
//	//
//	//   Hint: Use one of: text, html, md, model, show, if, for, attr, style
//
// # Code ranges
//
//   - B001-B099: directive compilation and binding
//   - C100-C199: configuration
//   - S200-S299: template and scope sources
//   - P300-P399: preview server
package errors
