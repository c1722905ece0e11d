package model

// RoleMap maps raw accessibility control types to compact role codes.
// Both UI Automation control type names and macOS AX roles are accepted.
var RoleMap = map[string]string{
	"ButtonControl":   "btn",
	"EditControl":     "input",
	"DocumentControl": "doc",
	"TextControl":     "txt",
	"ListControl":     "list",
	"ListItemControl": "row",
	"PaneControl":     "group",
	"GroupControl":    "group",
	"ToolBarControl":  "toolbar",
	"WindowControl":   "window",
	"AXButton":        "btn",
	"AXTextField":     "input",
	"AXTextArea":      "input",
	"AXStaticText":    "txt",
	"AXList":          "list",
	"AXRow":           "row",
	"AXGroup":         "group",
	"AXToolbar":       "toolbar",
	"AXWebArea":       "doc",
	"AXWindow":        "window",
}

// MapRole converts a raw accessibility role to a compact code.
func MapRole(raw string) string {
	if short, ok := RoleMap[raw]; ok {
		return short
	}
	return "other"
}

// IsTextEntry reports whether a role code accepts typed text.
// The chat input is exposed as either an edit or a document control.
func IsTextEntry(role string) bool {
	return role == "input" || role == "doc"
}
