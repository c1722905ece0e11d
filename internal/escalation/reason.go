package escalation

import (
	"strings"

	"github.com/mj1618/desktop-escalate/internal/model"
)

var stepReasons = map[model.Step]model.ReasonCode{
	model.StepKill:         model.ReasonKillFailed,
	model.StepLaunch:       model.ReasonStartFailed,
	model.StepFocus:        model.ReasonFocusFailed,
	model.StepOpenPanel:    model.ReasonSidebarFailed,
	model.StepProject:      model.ReasonProjectNotFound,
	model.StepConversation: model.ReasonConversationNotFound,
	model.StepSend:         model.ReasonSendFailed,
	model.StepWait:         model.ReasonResponseTimeout,
	model.StepCopy:         model.ReasonCopyFailed,
}

var recoverable = map[model.ReasonCode]bool{
	model.ReasonFocusFailed:   true,
	model.ReasonStartFailed:   true,
	model.ReasonSidebarFailed: true,
	model.ReasonFocusLost:     true,
}

// Reason classifies a failed run from its failed step and error text. The
// step picks a base code which keywords in the message can refine.
func Reason(step model.Step, msg string) model.ReasonCode {
	base, ok := stepReasons[step]
	if !ok {
		return model.ReasonUnknown
	}
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "empty") || strings.Contains(m, "too short"):
		return model.ReasonEmptyResponse
	case (step == model.StepProject || step == model.StepConversation) &&
		(strings.Contains(m, "not found") || strings.Contains(m, "failed to find")):
		return base
	case strings.Contains(m, "timeout"):
		return model.ReasonTimeout
	case strings.Contains(m, "focus"):
		return model.ReasonFocusLost
	case strings.Contains(m, "validation failed"):
		return model.ReasonInvalidResponse
	}
	return base
}

// Recoverable reports whether a fresh run can be expected to get past the
// failure.
func Recoverable(code model.ReasonCode) bool {
	return recoverable[code]
}
