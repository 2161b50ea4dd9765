package workflows

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"

	"github.com/oskarena/landgrab/internal/core/domain"
)

// WorkflowUploader implements ports.ClaimUploader by handing each validated
// claim to the claim workflow. The engine only needs the workflow accepted;
// persistence, announcement, and rollback run under Temporal's retries.
type WorkflowUploader struct {
	client    client.Client
	taskQueue string
}

// NewWorkflowUploader creates an uploader bound to a task queue.
func NewWorkflowUploader(c client.Client, taskQueue string) *WorkflowUploader {
	return &WorkflowUploader{client: c, taskQueue: taskQueue}
}

// Upload starts a ClaimWorkflow for the territory and waits for it to finish,
// so a rejected persist surfaces to the claim session as an upload failure.
func (u *WorkflowUploader) Upload(ctx context.Context, t *domain.Territory) error {
	opts := client.StartWorkflowOptions{
		ID:        "claim-" + t.OwnerID + "-" + t.ID,
		TaskQueue: u.taskQueue,
	}
	run, err := u.client.ExecuteWorkflow(ctx, opts, ClaimWorkflow, ClaimInput{Territory: *t})
	if err != nil {
		return fmt.Errorf("start claim workflow: %w", err)
	}
	if err := run.Get(ctx, nil); err != nil {
		return fmt.Errorf("claim workflow: %w", err)
	}
	return nil
}
