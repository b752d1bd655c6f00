package toolresolver

import "github.com/deskshell/reasoncore/internal/types"

// IntentToolDomains lists the preferred tool-name prefixes for Stage 1
// (direct structured-description lookup) per intent tag.
var IntentToolDomains = map[types.Intent][]string{
	types.IntentFileOperation:     {"files."},
	types.IntentSystemControl:     {"system.audio.", "system.display.", "system.power."},
	types.IntentApplicationLaunch: {"system.apps."},
	types.IntentBrowserControl:    {"browser.", "system.apps."},
	types.IntentInputControl:      {"system.input."},
	types.IntentMediaControl:      {"system.media."},
	types.IntentWindowManagement:  {"system.window."},
	types.IntentClipboardControl:  {"system.clipboard."},
	types.IntentSearch:            {"system.apps.", "system.search."},
	types.IntentInformationQuery:  {"system.info."},
	types.IntentNotification:      {"system.notification."},
	types.IntentAutomation:        {"system.automation."},
}

// IntentAllowedDomains is the stricter Stage 2 similarity-fallback set: a
// subset of IntentToolDomains, since a fuzzy match must stay closer to
// home than a direct hit.
var IntentAllowedDomains = map[types.Intent][]string{
	types.IntentFileOperation:     {"files."},
	types.IntentSystemControl:     {"system.audio.", "system.display.", "system.power."},
	types.IntentApplicationLaunch: {"system.apps."},
	types.IntentBrowserControl:    {"system.apps.launch"},
	types.IntentInputControl:      {"system.input."},
	types.IntentMediaControl:      {"system.media."},
	types.IntentWindowManagement:  {"system.window."},
	types.IntentClipboardControl:  {"system.clipboard."},
	types.IntentSearch:            {"system.apps.", "system.search."},
	types.IntentInformationQuery:  {"system.info."},
	types.IntentNotification:      {"system.notification."},
	types.IntentAutomation:        {"system.automation."},
}

// IntentDisallowedDomains hard-excludes classes of tool from an intent's
// fallback search even if nothing else would catch them. system.input.*
// (raw mouse/keyboard) must never be reached by fallback from any intent
// except input_control.
var IntentDisallowedDomains = map[types.Intent][]string{
	types.IntentFileOperation:     {"system.input."},
	types.IntentSystemControl:     {"system.input."},
	types.IntentApplicationLaunch: {"system.input."},
	types.IntentBrowserControl:    {"system.input."},
	types.IntentMediaControl:      {"system.input."},
	types.IntentWindowManagement:  {"system.input."},
	types.IntentClipboardControl:  {"system.input."},
	types.IntentSearch:            {"system.input."},
	types.IntentInformationQuery:  {"system.input."},
	types.IntentNotification:      {"system.input."},
	types.IntentAutomation:        {"system.input."},
}

// directLookup maps a description's literal leading segment to the exact
// tool name it names, mirroring the GoalPlanner's description_template
// table one-for-one. This is Stage 1: a direct, table-driven lookup, not
// a guess.
var directLookup = map[string]string{
	"navigate:":        "browser.navigate",
	"create:folder:":   "files.create_folder",
	"create:file:":     "files.create_file",
	"move:":            "files.move",
	"read:":            "files.read",
	"launch:":          "system.apps.launch",
	"quit:":            "system.apps.quit",
	"volume:":          "system.audio.set_volume",
	"brightness:":      "system.display.set_brightness",
	"lock_screen":      "system.power.lock",
	"clipboard:copy:":  "system.clipboard.copy",
	"clipboard:paste":  "system.clipboard.paste",
	"media:play_pause": "system.media.play_pause",
	"window:focus:":    "system.window.focus",
	"search:":          "system.apps.search",
	"websearch:":       "system.search.web",
	"glob:":            "files.glob",
	"shortcut:":        "system.automation.run_shortcut",
	"answer:":          "system.info.answer",
	"notify:":          "system.notification.show",
}
