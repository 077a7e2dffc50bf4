package errors

// Error codes raised by the engine.
const (
	ErrEval              = "E001"
	ErrDirective         = "E002"
	ErrModifier          = "E003"
	ErrFetchDirective    = "E004"
	ErrTargetNotFound    = "E005"
	ErrStoreWrite        = "E006"
	ErrComponent         = "E007"
	ErrInclude           = "E008"
	ErrPosition          = "E009"
	ErrProperty          = "E010"
	ErrFetchParse        = "E011"
	ErrFetchRequest      = "E012"
	ErrTaskPanic         = "E013"
	ErrConfigNotFound    = "E120"
	ErrConfigInvalid     = "E121"
	ErrConfigUnsupported = "E122"
	ErrConfigWrite       = "E123"
	ErrDocumentNotFound  = "E140"
	ErrDocumentParse     = "E141"
	ErrDispatchSpec      = "E142"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Engine Errors (E001-E099)
	// ============================================

	"E001": {
		Category: CategoryEval,
		Message:  "Expression evaluation failed",
		Detail:   "The expression threw or could not be compiled.",
		DocURL:   "https://tendril.dev/docs/errors/E001",
	},
	"E002": {
		Category: CategoryDirective,
		Message:  "Invalid directive",
		Detail:   "The attribute uses a directive prefix but its name could not be parsed.",
		DocURL:   "https://tendril.dev/docs/errors/E002",
	},
	"E003": {
		Category: CategoryDirective,
		Message:  "Invalid event modifier",
		Detail:   "Event modifiers are once, capture, passive, delay:<ms>, throttle:<ms> and fetch[:<mode>].",
		DocURL:   "https://tendril.dev/docs/errors/E003",
	},
	"E004": {
		Category: CategoryFetch,
		Message:  "Invalid fetch directive",
		Detail:   `Fetch directives have the form "<args> -> <target> [-> <subtarget>]".`,
		DocURL:   "https://tendril.dev/docs/errors/E004",
	},
	"E005": {
		Category: CategoryFetch,
		Message:  "Target node not found",
		Detail:   "No node matched the selector given as the insertion target.",
		DocURL:   "https://tendril.dev/docs/errors/E005",
	},
	"E006": {
		Category: CategoryStore,
		Message:  "Store write failed",
		Detail:   "A persisted variable could not be written through to its store.",
		DocURL:   "https://tendril.dev/docs/errors/E006",
	},
	"E007": {
		Category: CategoryComponent,
		Message:  "Invalid component definition",
		Detail:   "Component templates need a hyphenated tag name that is not already defined.",
		DocURL:   "https://tendril.dev/docs/errors/E007",
	},
	"E008": {
		Category: CategoryFetch,
		Message:  "Include failed",
		Detail:   "The linked resource could not be fetched or inserted.",
		DocURL:   "https://tendril.dev/docs/errors/E008",
	},
	"E009": {
		Category: CategoryDirective,
		Message:  "Invalid insertion position",
		Detail:   "Positions are beforeBegin, afterBegin, beforeEnd, afterEnd, textContent and outerHTML.",
		DocURL:   "https://tendril.dev/docs/errors/E009",
	},
	"E010": {
		Category: CategoryDirective,
		Message:  "Property write failed",
		Detail:   "The binding target could not be assigned on the node.",
		DocURL:   "https://tendril.dev/docs/errors/E010",
	},
	"E011": {
		Category: CategoryFetch,
		Message:  "Response body could not be parsed",
		Detail:   "The body did not match the requested parse mode.",
		DocURL:   "https://tendril.dev/docs/errors/E011",
	},
	"E012": {
		Category: CategoryFetch,
		Message:  "Fetch request failed",
		Detail:   "The request arguments were invalid or the transport could not complete the request.",
		DocURL:   "https://tendril.dev/docs/errors/E012",
	},
	"E013": {
		Category: CategoryEval,
		Message:  "Task panicked",
		Detail:   "A task running on the engine loop panicked.",
		DocURL:   "https://tendril.dev/docs/errors/E013",
	},

	// ============================================
	// Configuration Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "The configuration file could not be read.",
		DocURL:   "https://tendril.dev/docs/errors/E120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "The configuration file could not be decoded or failed validation.",
		DocURL:   "https://tendril.dev/docs/errors/E121",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Unsupported store kind",
		Detail:   "stores.local.kind must be memory, file or redis.",
		DocURL:   "https://tendril.dev/docs/errors/E122",
	},
	"E123": {
		Category: CategoryConfig,
		Message:  "Configuration could not be written",
		Detail:   "The configuration file could not be saved.",
		DocURL:   "https://tendril.dev/docs/errors/E123",
	},

	// ============================================
	// CLI Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryCLI,
		Message:  "Document not found",
		Detail:   "The HTML document given on the command line does not exist.",
		DocURL:   "https://tendril.dev/docs/errors/E140",
	},
	"E141": {
		Category: CategoryCLI,
		Message:  "Document could not be parsed",
		Detail:   "The HTML document could not be parsed.",
		DocURL:   "https://tendril.dev/docs/errors/E141",
	},
	"E142": {
		Category: CategoryCLI,
		Message:  "Invalid dispatch",
		Detail:   `Dispatches have the form "<selector>@<event>".`,
		DocURL:   "https://tendril.dev/docs/errors/E142",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
