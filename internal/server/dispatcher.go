// Package server implements the line-delimited command protocol: one JSON
// request per input line, one JSON response per output line.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mj1618/desktop-escalate/internal/escalation"
	"github.com/mj1618/desktop-escalate/internal/flow"
	"github.com/mj1618/desktop-escalate/internal/fuzzy"
	"github.com/mj1618/desktop-escalate/internal/model"
	"github.com/mj1618/desktop-escalate/internal/output"
	"github.com/mj1618/desktop-escalate/internal/platform"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Protocol actions.
const (
	ActionProbe    = "probe-availability"
	ActionFocus    = "focus"
	ActionNavigate = "navigate-to-conversation"
	ActionSend     = "send-message"
	ActionWait     = "wait-for-completion"
	ActionFetch    = "fetch-response"
	ActionEscalate = "full-escalation"
)

// Actions lists every supported action.
var Actions = []string{ActionProbe, ActionFocus, ActionNavigate, ActionSend, ActionWait, ActionFetch, ActionEscalate}

// maxLine bounds a single request line. Prompts can be long.
const maxLine = 16 << 20

// Request is one protocol command.
type Request struct {
	Action string                 `yaml:"action"           json:"action"`
	Params map[string]interface{} `yaml:"params,omitempty" json:"params,omitempty"`
}

// Response is one protocol reply.
type Response struct {
	Success     bool        `yaml:"success"                json:"success"`
	Data        interface{} `yaml:"data,omitempty"         json:"data,omitempty"`
	Error       string      `yaml:"error,omitempty"        json:"error,omitempty"`
	FailedStep  int         `yaml:"failed_step,omitempty"  json:"failed_step,omitempty"`
	ErrorReason string      `yaml:"error_reason,omitempty" json:"error_reason,omitempty"`
	Attempts    int         `yaml:"attempts,omitempty"     json:"attempts,omitempty"`
	RunID       string      `yaml:"run_id,omitempty"       json:"run_id,omitempty"`
}

// EscalationData is the data of a successful full-escalation.
type EscalationData struct {
	Response     string `yaml:"response"          json:"response"`
	Project      string `yaml:"project,omitempty" json:"project,omitempty"`
	Conversation string `yaml:"conversation"      json:"conversation"`
	RunID        string `yaml:"run_id"            json:"run_id"`
	Attempts     int    `yaml:"attempts"          json:"attempts"`
}

// Dispatcher executes requests one at a time. Single actions share one
// engine attached to the running app; the engine is replaced after a
// failure or a full escalation.
type Dispatcher struct {
	mu        sync.Mutex
	newEngine func() *flow.Engine
	engine    *flow.Engine
	ctrl      *escalation.Controller
	log       *zap.Logger
}

// New returns a Dispatcher. newEngine must return a fresh engine on every
// call.
func New(newEngine func() *flow.Engine, ctrl *escalation.Controller, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{newEngine: newEngine, ctrl: ctrl, log: log.Named("server")}
}

// Serve reads requests from r until EOF or ctx is done and writes one
// response per request to w.
func (d *Dispatcher) Serve(ctx context.Context, r io.Reader, w *output.LineWriter) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		req, err := ParseRequest(line)
		var resp Response
		if err != nil {
			resp = Response{Error: err.Error()}
		} else {
			resp = d.Handle(ctx, req)
		}
		if err := w.Write(resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
	return scanner.Err()
}

// ParseRequest decodes one request line.
func ParseRequest(line string) (Request, error) {
	if !gjson.Valid(line) {
		return Request{}, fmt.Errorf("invalid request: not a JSON document")
	}
	doc := gjson.Parse(line)
	if !doc.IsObject() {
		return Request{}, fmt.Errorf("invalid request: expected a JSON object")
	}
	req := Request{Action: doc.Get("action").String(), Params: map[string]interface{}{}}
	if req.Action == "" {
		return Request{}, fmt.Errorf("invalid request: action is required")
	}
	if p := doc.Get("params"); p.IsObject() {
		req.Params = p.Value().(map[string]interface{})
	}
	return req, nil
}

// Handle executes one request.
func (d *Dispatcher) Handle(ctx context.Context, req Request) Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	p := req.Params
	runID := stringParam(p, "", "run_id")
	if runID == "" {
		runID = uuid.NewString()
	}
	log := d.log.With(zap.String("run_id", runID), zap.String("action", req.Action))
	start := time.Now()
	log.Info("request received")

	var resp Response
	switch req.Action {
	case ActionProbe:
		resp = Response{Success: true, Data: d.current().Probe()}
	case ActionFocus:
		resp = d.focus()
	case ActionNavigate:
		resp = d.navigate(ctx, p)
	case ActionSend:
		resp = d.send(p)
	case ActionWait:
		resp = d.wait(p)
	case ActionFetch:
		resp = d.fetch()
	case ActionEscalate:
		resp = d.escalate(ctx, p, runID)
	default:
		resp = unknown(req.Action)
	}
	resp.RunID = runID

	log.Info("request finished",
		zap.Bool("success", resp.Success),
		zap.Int("failed_step", resp.FailedStep),
		zap.Duration("elapsed", time.Since(start)))
	return resp
}

func (d *Dispatcher) current() *flow.Engine {
	if d.engine == nil {
		d.engine = d.newEngine()
	}
	return d.engine
}

type action struct {
	step model.Step
	run  func() error
}

// attached prefixes acts with binding the engine to the running app.
func (d *Dispatcher) attached(eng *flow.Engine, acts ...action) []action {
	return append([]action{{model.StepFocus, eng.Attach}}, acts...)
}

func (d *Dispatcher) runActions(acts []action) Response {
	for _, a := range acts {
		if err := a.run(); err != nil {
			d.engine = nil
			reason := escalation.Reason(a.step, err.Error())
			if errors.Is(err, platform.ErrBackendMissing) {
				reason = model.ReasonInvalidConfig
			}
			return Response{
				Error:       err.Error(),
				FailedStep:  int(a.step),
				ErrorReason: string(reason),
			}
		}
	}
	return Response{Success: true}
}

func (d *Dispatcher) focus() Response {
	eng := d.current()
	resp := d.runActions(d.attached(eng, action{model.StepFocus, eng.Focus}))
	if resp.Success {
		resp.Data = map[string]interface{}{"title": eng.Session().Title, "handle": eng.Session().Handle}
	}
	return resp
}

func (d *Dispatcher) navigate(ctx context.Context, p map[string]interface{}) Response {
	project := stringParam(p, "", "project", "project_name")
	conversation := stringParam(p, "", "conversation", "title")
	if strings.TrimSpace(conversation) == "" {
		return invalid("conversation is required")
	}
	eng := d.current()
	resp := d.runActions(d.attached(eng,
		action{model.StepFocus, eng.Focus},
		action{model.StepOpenPanel, eng.OpenPanel},
		action{model.StepProject, func() error { return eng.SelectProject(ctx, project) }},
		action{model.StepConversation, func() error { return eng.SelectConversation(ctx, conversation) }},
	))
	if resp.Success {
		resp.Data = map[string]interface{}{"project": project, "conversation": conversation, "title": eng.Session().Title}
	}
	return resp
}

func (d *Dispatcher) send(p map[string]interface{}) Response {
	message := stringParam(p, "", "message")
	if strings.TrimSpace(message) == "" {
		return invalid("message is required")
	}
	eng := d.current()
	resp := d.runActions(d.attached(eng,
		action{model.StepFocus, eng.Focus},
		action{model.StepSend, func() error { return eng.Send(message) }},
	))
	if resp.Success {
		resp.Data = map[string]interface{}{"sent_chars": len(message)}
	}
	return resp
}

func (d *Dispatcher) wait(p map[string]interface{}) Response {
	timeout := time.Duration(intParam(p, 0, "timeout_ms")) * time.Millisecond
	eng := d.current()
	resp := d.runActions(d.attached(eng, action{model.StepWait, func() error { return eng.Wait(timeout) }}))
	if resp.Success {
		resp.Data = map[string]interface{}{"button_state": string(eng.ButtonState())}
	}
	return resp
}

func (d *Dispatcher) fetch() Response {
	eng := d.current()
	var text string
	resp := d.runActions(d.attached(eng, action{model.StepCopy, func() error {
		var err error
		text, err = eng.Copy()
		return err
	}}))
	if resp.Success {
		resp.Data = map[string]interface{}{"response": text}
	}
	return resp
}

func (d *Dispatcher) escalate(ctx context.Context, p map[string]interface{}, runID string) Response {
	req := flow.Request{
		Project:         stringParam(p, "", "project", "project_name"),
		Conversation:    stringParam(p, "", "conversation", "title"),
		Prompt:          stringParam(p, "", "message"),
		ResponseTimeout: time.Duration(intParam(p, 0, "timeout_ms")) * time.Millisecond,
	}
	// The controller restarts the app, so any attached engine is stale.
	d.engine = nil
	res := d.ctrl.Escalate(ctx, req)
	if !res.Success {
		return Response{
			Error:       res.Error,
			FailedStep:  int(res.FailedStep),
			ErrorReason: string(res.Reason),
			Attempts:    res.Attempts,
		}
	}
	data := EscalationData{
		Response:     res.Response,
		Project:      req.Project,
		Conversation: req.Conversation,
		RunID:        runID,
		Attempts:     res.Attempts,
	}
	return Response{Success: true, Attempts: res.Attempts, Data: data}
}

// unknown names the closest supported action when the request looks like a
// misspelling of one.
func unknown(name string) Response {
	msg := fmt.Sprintf("unknown action: %s", name)
	if near, _, ok := fuzzy.Match(name, Actions, fuzzy.DefaultMatchThreshold); ok {
		msg += fmt.Sprintf(" (did you mean %s?)", near)
	} else {
		msg += fmt.Sprintf(" (use %s)", strings.Join(Actions, ", "))
	}
	return Response{Error: msg, ErrorReason: string(model.ReasonInvalidConfig)}
}

func invalid(msg string) Response {
	return Response{
		Error:       fmt.Sprintf("%v: %s", flow.ErrInvalidRequest, msg),
		ErrorReason: string(model.ReasonInvalidConfig),
	}
}
