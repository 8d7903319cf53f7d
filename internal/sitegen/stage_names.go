package sitegen

// StageName is a strongly-typed identifier for a generation stage. All
// canonical stages are declared as constants here so stage names never
// drift between the runner, metrics, and job progress reporting.
type StageName string

// Canonical stage names, in execution order.
const (
	StageValidate      StageName = "validate"
	StageProcessAssets StageName = "process_assets"
	StageRender        StageName = "render"
	StageWrite         StageName = "write"
)

// StageOrder returns the canonical execution order.
func StageOrder() []StageName {
	return []StageName{StageValidate, StageProcessAssets, StageRender, StageWrite}
}
