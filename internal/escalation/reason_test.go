package escalation

import (
	"testing"

	"github.com/mj1618/desktop-escalate/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestReason(t *testing.T) {
	tests := []struct {
		step model.Step
		msg  string
		want model.ReasonCode
	}{
		{model.StepKill, "ChatGPT.exe still running after 5s", model.ReasonKillFailed},
		{model.StepLaunch, "no window of ChatGPT.exe appeared within 15s", model.ReasonStartFailed},
		{model.StepFocus, "window could not be brought to the foreground within 5s", model.ReasonFocusFailed},
		{model.StepOpenPanel, "navigation panel did not open", model.ReasonSidebarFailed},
		{model.StepProject, `project "X" not found after 3 attempts`, model.ReasonProjectNotFound},
		{model.StepConversation, "failed to find conversation", model.ReasonConversationNotFound},
		{model.StepSend, "lost focus before sending prompt", model.ReasonFocusLost},
		{model.StepSend, "app still generating after 8 readiness probes", model.ReasonSendFailed},
		{model.StepWait, "response not complete after 2m0s", model.ReasonResponseTimeout},
		{model.StepWait, "ocr timeout", model.ReasonTimeout},
		{model.StepCopy, "response could not be copied", model.ReasonCopyFailed},
		{model.StepCopy, "copied response too short (2 chars)", model.ReasonEmptyResponse},
		{model.StepCopy, "clipboard was empty", model.ReasonEmptyResponse},
		{model.StepCopy, "validation failed after clarification: no JSON object in response", model.ReasonInvalidResponse},
		// "empty" outranks the step's not-found refinement.
		{model.StepProject, "panel empty, project not found", model.ReasonEmptyResponse},
		{model.StepNone, "anything with a timeout", model.ReasonUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Reason(tt.step, tt.msg), "step %d: %s", tt.step, tt.msg)
	}
}

func TestRecoverable(t *testing.T) {
	for _, code := range []model.ReasonCode{
		model.ReasonFocusFailed, model.ReasonStartFailed, model.ReasonSidebarFailed, model.ReasonFocusLost,
	} {
		assert.True(t, Recoverable(code), code)
	}
	for _, code := range []model.ReasonCode{
		model.ReasonKillFailed, model.ReasonProjectNotFound, model.ReasonConversationNotFound,
		model.ReasonSendFailed, model.ReasonResponseTimeout, model.ReasonCopyFailed,
		model.ReasonEmptyResponse, model.ReasonInvalidResponse, model.ReasonTimeout,
		model.ReasonInvalidConfig, model.ReasonUnknown,
	} {
		assert.False(t, Recoverable(code), code)
	}
}
