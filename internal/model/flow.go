package model

// ReasonCode classifies why a flow attempt failed.
type ReasonCode string

const (
	ReasonNone                 ReasonCode = ""
	ReasonKillFailed           ReasonCode = "kill_failed"
	ReasonStartFailed          ReasonCode = "start_failed"
	ReasonFocusFailed          ReasonCode = "focus_failed"
	ReasonSidebarFailed        ReasonCode = "sidebar_failed"
	ReasonProjectNotFound      ReasonCode = "project_not_found"
	ReasonConversationNotFound ReasonCode = "conversation_not_found"
	ReasonSendFailed           ReasonCode = "send_failed"
	ReasonResponseTimeout      ReasonCode = "response_timeout"
	ReasonCopyFailed           ReasonCode = "copy_failed"
	ReasonEmptyResponse        ReasonCode = "empty_response"
	ReasonInvalidResponse      ReasonCode = "invalid_response"
	ReasonFocusLost            ReasonCode = "focus_lost"
	ReasonTimeout              ReasonCode = "timeout"
	ReasonInvalidConfig        ReasonCode = "invalid_config"
	ReasonUnknown              ReasonCode = "unknown"
)

// Step identifies a state-machine step. Step 8 no longer exists on its own;
// its work happens inside StepSend.
type Step int

const (
	StepNone         Step = 0
	StepKill         Step = 1
	StepLaunch       Step = 2
	StepFocus        Step = 3
	StepOpenPanel    Step = 4
	StepProject      Step = 5
	StepConversation Step = 6
	StepSend         Step = 7
	StepWait         Step = 9
	StepCopy         Step = 10
)

var stepNames = map[Step]string{
	StepKill:         "terminate",
	StepLaunch:       "launch",
	StepFocus:        "focus",
	StepOpenPanel:    "open-panel",
	StepProject:      "select-project",
	StepConversation: "select-conversation",
	StepSend:         "send-prompt",
	StepWait:         "wait-for-completion",
	StepCopy:         "copy-response",
}

func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return "none"
}

// Steps lists the state-machine steps in execution order.
var Steps = []Step{StepKill, StepLaunch, StepFocus, StepOpenPanel, StepProject, StepConversation, StepSend, StepWait, StepCopy}

// ButtonState is the send/stop button's pixel classification.
type ButtonState string

const (
	ButtonGenerating ButtonState = "generating"
	ButtonIdle       ButtonState = "idle"
	ButtonReady      ButtonState = "ready"
	ButtonUnknown    ButtonState = "unknown"
)

// MatchCandidate is one OCR reading scored against a target string.
type MatchCandidate struct {
	Text       string
	Box        Rect // relative to the scanned region
	Confidence float64
	Score      float64
}

// StepOutcome is the terminal result of one step.
type StepOutcome struct {
	Step    Step       `yaml:"step"             json:"step"`
	Success bool       `yaml:"success"          json:"success"`
	Error   string     `yaml:"error,omitempty"  json:"error,omitempty"`
	Reason  ReasonCode `yaml:"reason,omitempty" json:"reason,omitempty"`
}

// FlowResult is the outcome of a run, possibly spanning several attempts.
type FlowResult struct {
	Success    bool          `yaml:"success"               json:"success"`
	Response   string        `yaml:"response,omitempty"    json:"response,omitempty"`
	FailedStep Step          `yaml:"failed_step,omitempty" json:"failed_step,omitempty"`
	Reason     ReasonCode    `yaml:"reason,omitempty"      json:"reason,omitempty"`
	Attempts   int           `yaml:"attempts"              json:"attempts"`
	Error      string        `yaml:"error,omitempty"       json:"error,omitempty"`
	Steps      []StepOutcome `yaml:"steps,omitempty"       json:"steps,omitempty"`
}

// LastOutcome returns the final recorded step outcome, if any.
func (r FlowResult) LastOutcome() (StepOutcome, bool) {
	if len(r.Steps) == 0 {
		return StepOutcome{}, false
	}
	return r.Steps[len(r.Steps)-1], true
}
