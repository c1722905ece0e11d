package model

// Window is a top-level window reported by window enumeration.
type Window struct {
	Handle int    `yaml:"handle" json:"handle"`
	PID    int    `yaml:"pid"    json:"pid"`
	Title  string `yaml:"title"  json:"title"`
	Rect   Rect   `yaml:"rect"   json:"rect"`
}

// WindowSession tracks the target window for one engine instance. The
// session is owned by the engine; the guardrail layer reads and refreshes
// it, nothing else holds a reference.
type WindowSession struct {
	Handle int
	PID    int
	Title  string
	Rect   Rect
	// Generation increments every time the handle or rect is replaced so
	// callers can tell whether a rect they hold is still current.
	Generation int
}

// Bound reports whether the session refers to a window at all.
func (s *WindowSession) Bound() bool {
	return s != nil && s.Handle != 0
}

// Bind replaces the tracked window.
func (s *WindowSession) Bind(w Window) {
	s.Handle = w.Handle
	s.PID = w.PID
	s.Title = w.Title
	s.Rect = w.Rect
	s.Generation++
}

// UpdateRect records a freshly read window rectangle.
func (s *WindowSession) UpdateRect(r Rect) {
	if r != s.Rect {
		s.Generation++
	}
	s.Rect = r
}

// Invalidate drops the tracked window, e.g. after the process was killed.
func (s *WindowSession) Invalidate() {
	*s = WindowSession{Generation: s.Generation + 1}
}
