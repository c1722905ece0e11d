package model

// Element represents a control in the target window's accessibility tree.
type Element struct {
	ID       int       `yaml:"i"           json:"i"`           // Sequential integer ID
	Role     string    `yaml:"r"           json:"r"`           // Abbreviated role code
	Name     string    `yaml:"n,omitempty" json:"n,omitempty"` // Accessible name / label
	Value    string    `yaml:"v,omitempty" json:"v,omitempty"` // Current value
	Bounds   [4]int    `yaml:"b"           json:"b"`           // [x, y, width, height]
	Focused  bool      `yaml:"f,omitempty" json:"f,omitempty"` // Has keyboard focus
	Children []Element `yaml:"c,omitempty" json:"c,omitempty"` // Child elements
	Actions  []string  `yaml:"a,omitempty" json:"a,omitempty"` // Available actions
}

// Center returns the midpoint of the element's bounds.
func (e Element) Center() (int, int) {
	return e.Bounds[0] + e.Bounds[2]/2, e.Bounds[1] + e.Bounds[3]/2
}

// HasAction reports whether the element advertises the named action.
func (e Element) HasAction(action string) bool {
	for _, a := range e.Actions {
		if a == action {
			return true
		}
	}
	return false
}
