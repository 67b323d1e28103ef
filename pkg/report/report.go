// Package report persists bootstrap run records.
//
// Every run of the provisioning pipeline leaves a JSON report behind,
// one file per run. Reports are plain local files; nothing leaves
// the host.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/dockhand/dockhand/pkg/pipeline"
)

// Run outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeFailed      = "failed"
	OutcomeInterrupted = "interrupted"
)

// Report records one bootstrap run.
type Report struct {
	ID         string                `json:"id"`
	Host       string                `json:"host"`
	Distro     string                `json:"distro,omitempty"`
	User       string                `json:"user,omitempty"`
	RepoURL    string                `json:"repo_url,omitempty"`
	Branch     string                `json:"branch,omitempty"`
	DryRun     bool                  `json:"dry_run,omitempty"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
	Steps      []pipeline.StepResult `json:"steps"`
	Outcome    string                `json:"outcome"`
	Error      string                `json:"error,omitempty"`
	Notices    []string              `json:"notices,omitempty"`
}

// Elapsed returns the wall-clock duration of the run.
func (r *Report) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// NewID returns a fresh report identifier.
func NewID() string {
	return uuid.NewString()
}
