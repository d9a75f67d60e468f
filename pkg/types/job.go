package types

import "time"

// JobDocument is an action list as delivered by the rule generator or a caller.
type JobDocument struct {
	Name    string      `json:"name,omitempty" yaml:"name,omitempty"`
	Actions []RawAction `json:"actions" yaml:"actions"`
}

// Decode returns the typed actions of the document in order.
func (d *JobDocument) Decode() []Action {
	actions := make([]Action, len(d.Actions))
	for i, raw := range d.Actions {
		actions[i] = raw.Decode()
	}
	return actions
}

type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is the observable record of one execution of an action list.
type Job struct {
	ID         string     `json:"id"`
	RunID      string     `json:"runId"`
	Type       string     `json:"type"`
	Name       string     `json:"name"`
	Status     JobStatus  `json:"status"`
	Progress   int        `json:"progress"`
	LastAction string     `json:"lastAction"`
	StartTime  time.Time  `json:"startTime"`
	EndTime    *time.Time `json:"endTime"`
	Result     *JobResult `json:"result"`
	Error      string     `json:"error,omitempty"`
}

// JobResult is what a successful interpreter run returns.
type JobResult struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Actions   int               `json:"actions"`
	Variables map[string]string `json:"variables,omitempty"`
}

// ActionResult is the standardized output of every handler.
type ActionResult struct {
	Success bool   `json:"success"`
	Value   string `json:"value,omitempty"`
	Error   string `json:"error,omitempty"`
}

// VarContext is the per-job variable bus. Later writes overwrite earlier ones.
type VarContext map[string]string

func (v VarContext) Set(name, value string) {
	v[name] = value
}

func (v VarContext) Lookup(name string) (string, bool) {
	val, ok := v[name]
	return val, ok
}

// Snapshot returns a copy safe to hand out after the job ends.
func (v VarContext) Snapshot() map[string]string {
	out := make(map[string]string, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}
