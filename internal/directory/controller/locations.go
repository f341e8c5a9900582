package controller

import (
	"context"
	"fmt"

	"github.com/gartstein/directory/internal/directory/db"
	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/events"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/gartstein/directory/internal/directory/policy"
)

// ListLocations returns all locations, or those of one region when regionID
// is set.
func (d *Directory) ListLocations(ctx context.Context, caller *models.Caller, regionID *uint) ([]models.Location, error) {
	if _, _, err := d.authorize(ctx, caller, policy.ActionList, policy.ResourceLocation, policy.Target{}); err != nil {
		return nil, err
	}
	locations, err := d.repo.ListLocations(ctx, regionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return locations, nil
}

func (d *Directory) GetLocation(ctx context.Context, caller *models.Caller, id uint) (*models.Location, error) {
	if _, _, err := d.authorize(ctx, caller, policy.ActionGet, policy.ResourceLocation, policy.Target{ID: id}); err != nil {
		return nil, err
	}
	location, err := d.repo.GetLocation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	return location, nil
}

// CreateLocation adds a location to an existing region.
func (d *Directory) CreateLocation(ctx context.Context, caller *models.Caller, input *models.LocationInput) (*models.Location, error) {
	if _, _, err := d.authorize(ctx, caller, policy.ActionCreate, policy.ResourceLocation, policy.Target{}); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	location := &models.Location{Name: input.Name, RegionID: input.RegionID}
	err := d.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := resolveRegion(ctx, tx, &input.RegionID); err != nil {
			return err
		}
		return tx.CreateLocation(ctx, location)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create location: %w", err)
	}

	d.publish(events.LocationCreated, location.ID, location)
	return location, nil
}

func (d *Directory) UpdateLocation(ctx context.Context, caller *models.Caller, update *models.LocationUpdate) (*models.Location, error) {
	if update.ID == 0 {
		return nil, e.Validation("invalid location ID")
	}
	if _, err := d.repo.GetLocation(ctx, update.ID); err != nil {
		return nil, fmt.Errorf("failed to get location for update: %w", err)
	}
	if _, _, err := d.authorize(ctx, caller, policy.ActionUpdate, policy.ResourceLocation, policy.Target{ID: update.ID}); err != nil {
		return nil, err
	}
	if err := validateInput(update); err != nil {
		return nil, err
	}

	var updated *models.Location
	err := d.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := resolveRegion(ctx, tx, update.RegionID); err != nil {
			return err
		}
		if err := tx.UpdateLocation(ctx, update); err != nil {
			return err
		}
		var err error
		updated, err = tx.GetLocation(ctx, update.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update location: %w", err)
	}

	d.publish(events.LocationUpdated, updated.ID, updated)
	return updated, nil
}

func (d *Directory) DeleteLocation(ctx context.Context, caller *models.Caller, id uint) error {
	location, err := d.repo.GetLocation(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get location for deletion: %w", err)
	}
	if _, _, err := d.authorize(ctx, caller, policy.ActionDelete, policy.ResourceLocation, policy.Target{ID: id}); err != nil {
		return err
	}

	if err := d.repo.DeleteLocation(ctx, id); err != nil {
		return fmt.Errorf("failed to delete location: %w", err)
	}

	d.publish(events.LocationDeleted, location.ID, location)
	return nil
}
