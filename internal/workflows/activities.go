package workflows

import (
	"context"
	"fmt"
	"log"

	"github.com/oskarena/landgrab/internal/core/domain"
	"github.com/oskarena/landgrab/internal/core/ports"
	"github.com/oskarena/landgrab/internal/core/usecases"
)

// ClaimActivities holds the activity implementations for the claim workflow.
type ClaimActivities struct {
	Territories *usecases.TerritoryService
	Publisher   ports.EventPublisher
	Notifier    ports.NotificationService
}

// PersistTerritory stores the validated territory and returns its ID.
func (a *ClaimActivities) PersistTerritory(ctx context.Context, t domain.Territory) (string, error) {
	// Delegate to the TerritoryService which already handles ID assignment,
	// bounds recomputation, and cache invalidation.
	if err := a.Territories.Upload(ctx, &t); err != nil {
		return "", fmt.Errorf("persist territory: %w", err)
	}
	return t.ID, nil
}

// AnnounceClaim publishes the claim to the realtime feed.
func (a *ClaimActivities) AnnounceClaim(ctx context.Context, territoryID string) error {
	t, err := a.Territories.GetByID(ctx, territoryID)
	if err != nil {
		return fmt.Errorf("load territory %s: %w", territoryID, err)
	}
	if err := a.Publisher.PublishClaim(ctx, t); err != nil {
		return fmt.Errorf("publish claim %s: %w", territoryID, err)
	}
	return nil
}

// SendClaimNotification pushes a confirmation to the owner.
func (a *ClaimActivities) SendClaimNotification(ctx context.Context, ownerID, territoryID string, areaM2 float64) error {
	if a.Notifier == nil {
		log.Printf("PUSH (no notifier) → owner=%s territory=%s area=%.0fm2", ownerID, territoryID, areaM2)
		return nil
	}
	title := "Territory claimed!"
	body := fmt.Sprintf("Your loop enclosed %.0f m2. It is on the map now.", areaM2)
	return a.Notifier.SendPush(ctx, ownerID, title, body)
}

// RetractTerritory deactivates a territory (saga compensation / rollback).
func (a *ClaimActivities) RetractTerritory(ctx context.Context, territoryID string) error {
	if err := a.Territories.SoftDelete(ctx, territoryID); err != nil {
		return fmt.Errorf("retract territory %s: %w", territoryID, err)
	}
	log.Printf("Territory %s retracted (saga compensation)", territoryID)
	return nil
}
