package workflows

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/priyanshu-3/SkinCare/internal/core/domain"
)

// RefineInput is the input for the refinement workflow.
type RefineInput struct {
	ResolutionID string
	// Delay before the first attempt, giving the geocoder time to recover.
	Delay time.Duration
}

// RefineResult reports whether the stored text was replaced.
type RefineResult struct {
	ResolutionID string
	Refined      bool
}

var refineActivityOptions = workflow.ActivityOptions{
	StartToCloseTimeout: 30 * time.Second,
	RetryPolicy: &temporal.RetryPolicy{
		InitialInterval:    time.Minute,
		BackoffCoefficient: 2,
		MaximumInterval:    30 * time.Minute,
		MaximumAttempts:    6,
	},
}

// RefineWorkflow waits, then retries reverse geocoding for a resolution
// that fell back to bare coordinates.
func RefineWorkflow(ctx workflow.Context, input RefineInput) (RefineResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting refine workflow", "resolutionID", input.ResolutionID)

	if input.Delay > 0 {
		if err := workflow.Sleep(ctx, input.Delay); err != nil {
			return RefineResult{}, err
		}
	}

	ctx = workflow.WithActivityOptions(ctx, refineActivityOptions)

	result := RefineResult{ResolutionID: input.ResolutionID}
	err := workflow.ExecuteActivity(ctx, "RefineResolution", input.ResolutionID).Get(ctx, &result.Refined)
	if err != nil {
		logger.Warn("refine failed", "resolutionID", input.ResolutionID, "error", err)
		return result, err
	}

	logger.Info("Refine workflow finished", "refined", result.Refined)
	return result, nil
}

// ShouldRefine reports whether ev describes a fresh numeric fallback.
func ShouldRefine(ev domain.ResolutionEvent) bool {
	return ev.Status == domain.StatusResolved &&
		ev.Source == domain.SourceCoordinates &&
		!ev.Refined &&
		ev.ResolutionID != ""
}

// WorkflowID is the refine workflow ID for a resolution. One workflow runs
// per resolution at a time.
func WorkflowID(resolutionID string) string {
	return "refine-" + resolutionID
}

// Starter is the part of client.Client used to start workflows.
type Starter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// StartRefine starts RefineWorkflow for ev on taskQueue. Events that do not
// need refinement are ignored.
func StartRefine(ctx context.Context, c Starter, taskQueue string, delay time.Duration, ev domain.ResolutionEvent) error {
	if !ShouldRefine(ev) {
		return nil
	}
	opts := client.StartWorkflowOptions{
		ID:        WorkflowID(ev.ResolutionID),
		TaskQueue: taskQueue,
	}
	run, err := c.ExecuteWorkflow(ctx, opts, RefineWorkflow, RefineInput{ResolutionID: ev.ResolutionID, Delay: delay})
	if err != nil {
		return fmt.Errorf("start refine %s: %w", ev.ResolutionID, err)
	}
	slog.InfoContext(ctx, "refine workflow started", "resolution_id", ev.ResolutionID, "workflow_id", run.GetID(), "run_id", run.GetRunID())
	return nil
}
