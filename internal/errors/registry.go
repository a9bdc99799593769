package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Configuration (E100-E199)
	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file could not be read or parsed.",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Invalid environment override",
		Detail:   "A POSTBOARD_* environment variable could not be parsed.",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},
	"E141": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
	},

	// Store (E200-E299)
	"E200": {
		Category: CategoryStore,
		Message:  "Store closed",
		Detail:   "The post store stopped before the operation completed.",
	},
	"E201": {
		Category: CategoryStore,
		Message:  "Store did not settle",
		Detail:   "Pending requests were not applied before the deadline.",
	},

	// Command line (E300-E399)
	"E300": {
		Category: CategoryCLI,
		Message:  "Server failed",
	},
	"E301": {
		Category: CategoryCLI,
		Message:  "Invalid argument",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
