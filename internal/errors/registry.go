package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Compile and binding errors (B001-B099)
	// ============================================

	"B001": {
		Category:   CategoryCompile,
		Message:    "Unknown directive kind",
		Suggestion: "Use one of: text, html, md, model, show, if, for, attr, style",
	},
	"B002": {
		Category:   CategoryCompile,
		Message:    "Conflicting control directives",
		Suggestion: "Move the if directive to an element wrapping the for directive",
	},
	"B003": {
		Category: CategoryCompile,
		Message:  "Invalid binding expression",
	},
	"B004": {
		Category:   CategoryBinding,
		Message:    "Placeholder anchor is detached",
		Suggestion: "Do not remove conditional placeholders from the tree",
	},
	"B005": {
		Category: CategoryBinding,
		Message:  "Binding callback failed",
	},
	"B006": {
		Category:   CategoryCompile,
		Message:    "No handler registered for directive",
		Suggestion: "Register one with compiler.WithHandler",
	},
	"B007": {
		Category: CategoryBinding,
		Message:  "Expression evaluation failed",
	},
	"B008": {
		Category:   CategoryBinding,
		Message:    "Scope is not writable",
		Suggestion: "Two-way bindings need a scope implementing scope.Setter",
	},
	"B009": {
		Category: CategoryCompile,
		Message:  "Invalid mount target",
	},
	"B010": {
		Category: CategoryBinding,
		Message:  "No event target",
	},

	// ============================================
	// Configuration errors (C100-C199)
	// ============================================

	"C100": {
		Category:   CategoryConfig,
		Message:    "Invalid configuration file",
		Suggestion: "Check that fbind.json is valid JSON",
	},
	"C101": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},

	// ============================================
	// Source errors (S200-S299)
	// ============================================

	"S200": {
		Category: CategorySource,
		Message:  "Source not found",
	},
	"S201": {
		Category: CategorySource,
		Message:  "Unsupported source location",
	},
	"S202": {
		Category:   CategorySource,
		Message:    "Invalid scope data",
		Suggestion: "Scope files must hold a JSON or YAML object at the top level",
	},
	"S203": {
		Category: CategorySource,
		Message:  "Invalid template markup",
	},

	// ============================================
	// Preview errors (P300-P399)
	// ============================================

	"P300": {
		Category: CategoryPreview,
		Message:  "Preview server failed",
	},
	"P301": {
		Category: CategoryPreview,
		Message:  "Invalid preview message",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
