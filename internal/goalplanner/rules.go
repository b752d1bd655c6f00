package goalplanner

// ContextSource names where a missing param may be filled from:
// the most recent ContextFrame produced for Domain, reading field Key.
type ContextSource struct {
	Domain string
	Key    string
}

// ContextProduction declares that a successfully validated goal emits a
// ContextFrame for Domain carrying the named Keys (read out of the
// validated args map).
type ContextProduction struct {
	Domain string
	Keys   []string
}

// Rule is one entry of the PlannerRules table. The planner body reads
// these fields; it never special-cases by domain/verb name.
type Rule struct {
	Intent              string
	ActionClass         string
	DescriptionTemplate string
	RequiredParams      []string
	DefaultParams       map[string]string
	AllowedValues       map[string][]string
	// ComputedParams derives a missing param from already-present ones via
	// a {param} template, applied after defaults and context fill. An
	// explicit value for the key always wins over the computation.
	ComputedParams     map[string]string
	AllowSemanticOnly  bool
	ContextConsumption map[string]ContextSource
	ContextProduction  *ContextProduction
}

type ruleKey struct{ domain, verb string }

// PlannerRules is the authoritative, data-only table governing every goal
// the planner can accept. Adding behavior is a data edit here, never a
// code branch in goalplanner.go.
var PlannerRules = map[ruleKey]Rule{
	{"browser", "navigate"}: {
		Intent:              "browser_control",
		ActionClass:         "actuate",
		DescriptionTemplate: "navigate:{url}",
		RequiredParams:      []string{"url"},
		ContextProduction:   &ContextProduction{Domain: "browser", Keys: []string{"url"}},
	},
	// browser.search fuses a search query into a navigable results URL.
	// "base" defaults to YouTube's search prefix and may be overridden by
	// the interpreter when the user names another site.
	{"browser", "search"}: {
		Intent:              "browser_control",
		ActionClass:         "actuate",
		DescriptionTemplate: "navigate:{url}",
		RequiredParams:      []string{"query"},
		DefaultParams:       map[string]string{"base": "https://www.youtube.com/results?search_query="},
		ComputedParams:      map[string]string{"url": "{base}{query}"},
		ContextProduction:   &ContextProduction{Domain: "browser", Keys: []string{"url"}},
	},
	{"file", "create_folder"}: {
		Intent:              "file_operation",
		ActionClass:         "actuate",
		DescriptionTemplate: "create:folder:{path}",
		RequiredParams:      []string{"path"},
		ContextProduction:   &ContextProduction{Domain: "file", Keys: []string{"path"}},
	},
	{"file", "create_file"}: {
		Intent:              "file_operation",
		ActionClass:         "actuate",
		DescriptionTemplate: "create:file:{path}",
		RequiredParams:      []string{"path"},
	},
	{"file", "create_directory"}: {
		Intent:              "file_operation",
		ActionClass:         "actuate",
		DescriptionTemplate: "create:folder:{path}",
		RequiredParams:      []string{"path"},
		ContextProduction:   &ContextProduction{Domain: "file", Keys: []string{"path"}},
	},
	{"file", "move"}: {
		Intent:              "file_operation",
		ActionClass:         "actuate",
		DescriptionTemplate: "move:{path}->{destination}",
		RequiredParams:      []string{"path", "destination"},
	},
	{"file", "read"}: {
		Intent:              "file_operation",
		ActionClass:         "observe",
		DescriptionTemplate: "read:{path}",
		RequiredParams:      []string{"path"},
	},
	{"app", "launch"}: {
		Intent:              "application_launch",
		ActionClass:         "actuate",
		DescriptionTemplate: "launch:{app_name}",
		RequiredParams:      []string{"app_name"},
	},
	{"app", "quit"}: {
		Intent:              "application_launch",
		ActionClass:         "actuate",
		DescriptionTemplate: "quit:{app_name}",
		RequiredParams:      []string{"app_name"},
	},
	{"system", "volume"}: {
		Intent:              "system_control",
		ActionClass:         "actuate",
		DescriptionTemplate: "volume:{level}",
		RequiredParams:      []string{"level"},
	},
	{"system", "brightness"}: {
		Intent:              "system_control",
		ActionClass:         "actuate",
		DescriptionTemplate: "brightness:{level}",
		RequiredParams:      []string{"level"},
	},
	{"system", "lock"}: {
		Intent:              "system_control",
		ActionClass:         "actuate",
		DescriptionTemplate: "lock_screen",
	},
	{"clipboard", "copy"}: {
		Intent:              "clipboard_control",
		ActionClass:         "actuate",
		DescriptionTemplate: "clipboard:copy:{text}",
		RequiredParams:      []string{"text"},
		ContextProduction:   &ContextProduction{Domain: "clipboard", Keys: []string{"text"}},
	},
	{"clipboard", "paste"}: {
		Intent:              "clipboard_control",
		ActionClass:         "actuate",
		DescriptionTemplate: "clipboard:paste",
		ContextConsumption: map[string]ContextSource{
			"text": {Domain: "clipboard", Key: "text"},
		},
	},
	{"notification", "show"}: {
		Intent:              "notification",
		ActionClass:         "actuate",
		DescriptionTemplate: "notify:{topic}",
		RequiredParams:      []string{"topic"},
		ContextConsumption: map[string]ContextSource{
			"topic": {Domain: "note", Key: "topic"},
		},
	},
	{"media", "play_pause"}: {
		Intent:              "media_control",
		ActionClass:         "actuate",
		DescriptionTemplate: "media:play_pause",
	},
	{"window", "focus"}: {
		Intent:              "window_management",
		ActionClass:         "actuate",
		DescriptionTemplate: "window:focus:{app_name}",
		RequiredParams:      []string{"app_name"},
	},
	{"file", "find"}: {
		Intent:              "file_operation",
		ActionClass:         "observe",
		DescriptionTemplate: "glob:{pattern}",
		RequiredParams:      []string{"pattern"},
	},
	{"automation", "run_shortcut"}: {
		Intent:              "automation",
		ActionClass:         "actuate",
		DescriptionTemplate: "shortcut:{name}",
		RequiredParams:      []string{"name"},
	},
	{"search", "web"}: {
		Intent:              "search",
		ActionClass:         "observe",
		DescriptionTemplate: "websearch:{query}",
		RequiredParams:      []string{"query"},
	},
	{"search", "query"}: {
		Intent:              "search",
		ActionClass:         "observe",
		DescriptionTemplate: "search:{query}",
		RequiredParams:      []string{"query"},
	},
	{"info", "query"}: {
		Intent:              "information_query",
		ActionClass:         "observe",
		DescriptionTemplate: "answer:{question}",
		RequiredParams:      []string{"question"},
	},
	// note/jot is semantic-only: accepted without a technical param,
	// producing only a ContextFrame for a later goal to consume (e.g. a
	// notification goal that follows it). No tool is invoked for it.
	{"note", "jot"}: {
		Intent:              "automation",
		ActionClass:         "observe",
		DescriptionTemplate: "note:{topic}",
		AllowSemanticOnly:   true,
		ContextProduction:   &ContextProduction{Domain: "note", Keys: []string{"topic"}},
	},
}
