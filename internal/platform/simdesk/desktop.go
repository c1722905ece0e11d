// Package simdesk is an in-memory desktop running a scripted chat
// application. It implements every platform backend plus the OCR engine so
// the automation flow can be exercised without a real display.
//
// Geometry follows the default layout: the app window occupies
// (100,50)-(1100,850) on a 1200x900 screen. Every control is drawn relative
// to the window, so moving Geometry moves the whole app.
package simdesk

import (
	"fmt"
	"strings"
	"time"

	"github.com/mj1618/desktop-escalate/internal/clock"
	"github.com/mj1618/desktop-escalate/internal/model"
	"github.com/mj1618/desktop-escalate/internal/platform"
)

const (
	ScreenWidth  = 1200
	ScreenHeight = 900

	panelRowHeight = 35
	panelBandTop   = 85  // first highlight band below the panel's top skip
	panelFirstRow  = 2   // panel labels start in the third band
	panelLastTop   = 765 // last band whose bottom stays inside the scan region

	listTop      = 300
	listRowPitch = 40
	listRows     = 8
	listLabelX   = 420

	titleBarHeight = 30
)

// defaultGeometry is the window position the layout constants are measured
// against.
var defaultGeometry = model.Rect{Left: 100, Top: 50, Right: 1100, Bottom: 850}

// Conversation is one chat thread inside a project.
type Conversation struct {
	Name         string
	LastResponse string
	pending      string
	pendingReady time.Time
	Prompts      []string
}

// Desktop is the simulated machine. Exported fields configure behavior and
// can be changed between operations, typically from clock hooks.
type Desktop struct {
	Clock *clock.Fake

	Exe      string
	AppName  string
	Geometry model.Rect

	// Projects in panel order; Conversations holds each project's threads.
	// Threads under the empty project key are listed when no project is open.
	Projects      []string
	Conversations map[string][]*Conversation

	// Responder produces the reply for a submitted prompt.
	Responder   func(prompt string, attempt int) string
	GenerateFor time.Duration
	LaunchDelay time.Duration

	// Fault injection.
	TerminateFails     bool
	LaunchFails        bool
	PlainFocusBlocked  bool // SetForeground and BringToTop are ignored
	InputClickDead     bool // clicks on the input do not focus it
	AXDisabled         bool
	PanelClickSkew     int // added to y of clicks inside the panel
	OCRMisreads        map[string]string
	CanSteal           bool
	CanBlock           bool
	TitleFollowsThread bool
	CaptureFails       bool // screen captures return an error

	// Hooks.
	OnConversationOpened func(d *Desktop, name string)
	OnSubmit             func(d *Desktop, prompt string)
	OnFocusRead          func(d *Desktop, focus string)

	// Observations.
	Launches        int
	Terminations    int
	Clicks          int
	PanelScrolls    int
	ListScrolls     int
	ChatScrolls     int
	Submitted       []string
	DangerousPushes []string
	BlockCalls      []bool
	Events          []string

	running     bool
	pid         int
	handle      int
	windowAt    time.Time
	minimized   bool
	foreground  int
	locked      bool
	title       string
	panelOpen   bool
	panelOffset int
	listOffset  int
	project     string
	selectedRow int // panel item index, -1 when none
	thread      *Conversation
	input       string
	selectAll   bool
	focus       string
	searching   bool
	query       string
	clipboard   string
	genUntil    time.Time
	submits     int
	blocked     bool
}

var (
	_ platform.ProcessManager = (*Desktop)(nil)
	_ platform.WindowManager  = (*Desktop)(nil)
	_ platform.Accessibility  = (*Desktop)(nil)
	_ platform.Screen         = (*Desktop)(nil)
	_ platform.Clipboard      = (*Desktop)(nil)
	_ platform.Inputter       = (*Desktop)(nil)
	_ platform.Privileges     = (*Desktop)(nil)
)

// New returns a desktop with the chat app installed but not running.
func New(c *clock.Fake) *Desktop {
	return &Desktop{
		Clock:              c,
		Exe:                "ChatGPT.exe",
		AppName:            "ChatGPT",
		Geometry:           defaultGeometry,
		Conversations:      map[string][]*Conversation{},
		GenerateFor:        4 * time.Second,
		LaunchDelay:        2 * time.Second,
		CanSteal:           true,
		TitleFollowsThread: true,
		selectedRow:        -1,
		Responder: func(prompt string, _ int) string {
			return fmt.Sprintf(`{"answer": "Simulated reply to %d characters of prompt."}`, len(prompt))
		},
	}
}

// Provider bundles the desktop as a platform.Provider.
func (d *Desktop) Provider() *platform.Provider {
	return &platform.Provider{
		Processes:     d,
		Windows:       d,
		Accessibility: d,
		Screen:        d,
		Clipboard:     d,
		Inputter:      d,
		Privileges:    d,
	}
}

// AddProject appends a project with the named threads.
func (d *Desktop) AddProject(name string, threads ...string) {
	if name != "" {
		d.Projects = append(d.Projects, name)
	}
	for _, t := range threads {
		d.Conversations[name] = append(d.Conversations[name], &Conversation{Name: t})
	}
}

// Thread returns the named conversation of project.
func (d *Desktop) Thread(project, name string) *Conversation {
	for _, c := range d.Conversations[project] {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Start launches the app immediately with its window already shown.
func (d *Desktop) Start() {
	d.launch()
	d.windowAt = d.Clock.Now()
}

// StealFocusAway moves the OS foreground to another application and keeps it
// there until the app is relaunched.
func (d *Desktop) StealFocusAway() {
	d.locked = true
	d.foreground = 0
	d.event("focus stolen")
}

// Minimize minimizes the app window.
func (d *Desktop) Minimize() {
	d.minimized = true
	if d.foreground == d.handle {
		d.foreground = 0
	}
	d.event("minimized")
}

// Defocus gives the foreground to another window without locking it.
func (d *Desktop) Defocus() {
	d.foreground = 0
}

// SetTitle replaces the window title until the next conversation opens.
func (d *Desktop) SetTitle(title string) {
	d.title = title
}

// TypeStray types text into the input as a user would.
func (d *Desktop) TypeStray(text string) {
	d.input += text
}

func (d *Desktop) Running() bool      { return d.running }
func (d *Desktop) Handle() int        { return d.handle }
func (d *Desktop) PanelOpen() bool    { return d.panelOpen }
func (d *Desktop) Project() string    { return d.project }
func (d *Desktop) Input() string      { return d.input }
func (d *Desktop) Focus() string      { return d.focus }
func (d *Desktop) InputBlocked() bool { return d.blocked }
func (d *Desktop) IsForeground() bool { return d.running && d.foreground == d.handle }
func (d *Desktop) Generating() bool   { return d.Clock.Now().Before(d.genUntil) }
func (d *Desktop) ActiveThread() string {
	if d.thread == nil {
		return ""
	}
	return d.thread.Name
}

func (d *Desktop) event(format string, args ...any) {
	d.Events = append(d.Events, fmt.Sprintf(format, args...))
}

func (d *Desktop) launch() {
	d.Launches++
	d.running = true
	d.pid = 4000 + d.Launches
	d.handle = 1000 + d.Launches*10
	d.windowAt = d.Clock.Now().Add(d.LaunchDelay)
	d.minimized = false
	d.foreground = d.handle
	d.locked = false
	d.title = d.AppName
	d.panelOpen = false
	d.panelOffset = 0
	d.listOffset = 0
	d.project = ""
	d.selectedRow = -1
	d.thread = nil
	d.input = ""
	d.selectAll = false
	d.focus = ""
	d.searching = false
	d.genUntil = time.Time{}
	d.event("launched pid=%d", d.pid)
}

// settle finishes any generation whose time has passed.
func (d *Desktop) settle() {
	now := d.Clock.Now()
	for _, threads := range d.Conversations {
		for _, c := range threads {
			if c.pending != "" && !now.Before(c.pendingReady) {
				c.LastResponse = c.pending
				c.pending = ""
			}
		}
	}
}

func (d *Desktop) windowShown() bool {
	return d.running && !d.Clock.Now().Before(d.windowAt)
}

func (d *Desktop) visible() bool {
	return d.windowShown() && !d.minimized
}

func (d *Desktop) listItems() []*Conversation {
	return d.Conversations[d.project]
}

func (d *Desktop) listView() bool {
	return d.visible() && d.thread == nil
}

func (d *Desktop) hasResponse() bool {
	d.settle()
	return d.thread != nil && d.thread.LastResponse != ""
}

func (d *Desktop) openThread(c *Conversation) {
	d.thread = c
	d.searching = false
	if d.TitleFollowsThread {
		d.title = c.Name
	}
	d.event("opened %q", c.Name)
	if d.OnConversationOpened != nil {
		d.OnConversationOpened(d, c.Name)
	}
}

func (d *Desktop) submit() {
	prompt := d.input
	d.input = ""
	d.selectAll = false
	d.submits++
	d.Submitted = append(d.Submitted, prompt)
	d.event("submitted %d chars", len(prompt))
	if d.thread == nil {
		return
	}
	d.thread.Prompts = append(d.thread.Prompts, prompt)
	d.thread.LastResponse = ""
	d.thread.pending = d.Responder(prompt, d.submits)
	d.genUntil = d.Clock.Now().Add(d.GenerateFor)
	d.thread.pendingReady = d.genUntil
	if d.OnSubmit != nil {
		d.OnSubmit(d, prompt)
	}
}

func (d *Desktop) dangerous(name string) bool {
	n := strings.ToLower(name)
	for _, w := range []string{"like", "regenerate", "refresh", "more", "thumb"} {
		if strings.Contains(n, w) {
			return true
		}
	}
	return false
}
