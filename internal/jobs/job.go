// Package jobs runs generation requests on background workers with
// per-target serialization and typed progress notifications.
package jobs

import (
	stdcontext "context"
	"time"

	"git.home.luguber.info/inful/homeshow/internal/sitegen"
	"git.home.luguber.info/inful/homeshow/internal/sitegen/context"
)

// State is a generation job's lifecycle state. No state is re-entered;
// failure and cancellation are terminal.
type State string

const (
	StatePending          State = "pending"
	StateValidating       State = "validating"
	StateProcessingAssets State = "processing_assets"
	StateRendering        State = "rendering"
	StateWriting          State = "writing"
	StateCompleted        State = "completed"
	StateFailed           State = "failed"
	StateCanceled         State = "canceled"
)

// Terminal reports whether the state ends the job.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCanceled
}

// stateForStage maps a pipeline stage to the job state entered when
// the stage starts.
func stateForStage(stage sitegen.StageName) State {
	switch stage {
	case sitegen.StageValidate:
		return StateValidating
	case sitegen.StageProcessAssets:
		return StateProcessingAssets
	case sitegen.StageRender:
		return StateRendering
	case sitegen.StageWrite:
		return StateWriting
	default:
		return StatePending
	}
}

// Notification is one progress event: a state transition, or the
// terminal result carrying the output directory or the failure.
type Notification struct {
	JobID string
	State State
	// Stage is set for stage-entry transitions.
	Stage sitegen.StageName
	// Terminal marks the final notification; the channel closes after.
	Terminal  bool
	OutputDir string
	Err       error
}

// Job is one queued or running generation. Mutable fields are guarded
// by the queue's lock; callers observe jobs via Snapshot.
type Job struct {
	ID         string          `json:"id"`
	PropertyID string          `json:"property_id"`
	TemplateID string          `json:"template_id"`
	Options    context.Options `json:"-"`
	Target     string          `json:"target"`

	State       State           `json:"state"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Duration    time.Duration   `json:"duration,omitempty"`
	Error       string          `json:"error,omitempty"`
	Report      *sitegen.Report `json:"report,omitempty"`

	cancel stdcontext.CancelFunc
	notify chan Notification
}
