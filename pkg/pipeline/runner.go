package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dockhand/dockhand/pkg/observability"
)

// Runner executes a step sequence. It holds no per-run state; the same
// Runner can execute several plans.
type Runner struct {
	Logger *log.Logger
}

// Execute runs steps strictly in declaration order, aborting on the
// first failure. Results for every executed step are returned, the
// failing one included, so callers can persist a complete run record.
func (r *Runner) Execute(ctx context.Context, steps []Step, bc *Context) ([]StepResult, error) {
	results := make([]StepResult, 0, len(steps))

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		observability.Steps().OnStepStart(ctx, step.ID, step.Title)
		r.log().Info(step.Title, "step", step.ID)

		start := time.Now()
		err := step.Run(ctx, bc)
		res := StepResult{
			ID:       step.ID,
			Title:    step.Title,
			Status:   StatusOK,
			Duration: time.Since(start),
		}

		var skip *skipError
		var warn *warnError
		switch {
		case err == nil:
		case errors.As(err, &skip):
			res.Status = StatusSkipped
			res.Detail = skip.reason
			r.log().Info("skipped", "step", step.ID, "reason", skip.reason)
			err = nil
		case errors.As(err, &warn):
			res.Status = StatusWarned
			res.Detail = warn.reason
			r.log().Warn(warn.reason, "step", step.ID)
			err = nil
		default:
			res.Status = StatusFailed
			res.Detail = err.Error()
		}

		observability.Steps().OnStepComplete(ctx, step.ID, string(res.Status), res.Duration, err)
		results = append(results, res)

		if err != nil {
			r.log().Error("step failed", "step", step.ID, "err", err)
			return results, err
		}
	}

	return results, nil
}

func (r *Runner) log() *log.Logger {
	if r.Logger == nil {
		return log.Default()
	}
	return r.Logger
}
