package sitegen

import "time"

// Report summarizes one completed generation run: what was produced,
// where, and how long each stage took.
type Report struct {
	JobID      string `json:"job_id,omitempty"`
	PropertyID string `json:"property_id"`
	TemplateID string `json:"template_id"`
	OutputDir  string `json:"output_dir"`

	Documents          int `json:"documents"`
	AssetsProcessed    int `json:"assets_processed"`
	AssetsDeduplicated int `json:"assets_deduplicated"`

	GeneratedAt    time.Time                   `json:"generated_at"`
	Duration       time.Duration               `json:"duration"`
	StageDurations map[StageName]time.Duration `json:"stage_durations"`
}

func newReport(jobID, propertyID, templateID, target string) *Report {
	return &Report{
		JobID:          jobID,
		PropertyID:     propertyID,
		TemplateID:     templateID,
		OutputDir:      target,
		StageDurations: make(map[StageName]time.Duration),
	}
}
