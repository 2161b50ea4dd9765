package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/oskarena/landgrab/internal/core/domain"
)

// ClaimInput is the input for the claim upload workflow.
type ClaimInput struct {
	Territory domain.Territory
}

// ClaimWorkflow orchestrates persisting a validated territory, announcing it
// to the realtime feed, and notifying the owner. If the announcement fails,
// the territory is retracted (saga compensation) so clients never learn about
// a claim that the map will not show.
func ClaimWorkflow(ctx workflow.Context, input ClaimInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting claim workflow", "owner", input.Territory.OwnerID, "areaM2", input.Territory.AreaM2)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: Persist the territory
	var territoryID string
	err := workflow.ExecuteActivity(ctx, "PersistTerritory", input.Territory).Get(ctx, &territoryID)
	if err != nil {
		return err
	}

	// Step 2: Announce on the realtime feed
	err = workflow.ExecuteActivity(ctx, "AnnounceClaim", territoryID).Get(ctx, nil)
	if err != nil {
		logger.Warn("announce failed, retracting territory", "error", err)
		// Compensate: retract the territory
		_ = workflow.ExecuteActivity(ctx, "RetractTerritory", territoryID).Get(ctx, nil)
		return err
	}

	// Step 3: Push notification — best effort, never unwinds the claim
	_ = workflow.ExecuteActivity(ctx, "SendClaimNotification",
		input.Territory.OwnerID, territoryID, input.Territory.AreaM2).Get(ctx, nil)

	logger.Info("Claim workflow completed", "territoryID", territoryID)
	return nil
}
