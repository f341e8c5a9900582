package controller

import (
	"context"
	"fmt"

	"github.com/gartstein/directory/internal/directory/db"
	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/events"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/gartstein/directory/internal/directory/policy"
	"go.uber.org/zap"
)

func (d *Directory) ListRegions(ctx context.Context, caller *models.Caller) ([]models.Region, error) {
	if _, _, err := d.authorize(ctx, caller, policy.ActionList, policy.ResourceRegion, policy.Target{}); err != nil {
		return nil, err
	}
	regions, err := d.repo.ListRegions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list regions: %w", err)
	}
	return regions, nil
}

func (d *Directory) GetRegion(ctx context.Context, caller *models.Caller, id uint) (*models.Region, error) {
	if _, _, err := d.authorize(ctx, caller, policy.ActionGet, policy.ResourceRegion, policy.Target{ID: id}); err != nil {
		return nil, err
	}
	region, err := d.repo.GetRegion(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get region: %w", err)
	}
	return region, nil
}

// CreateRegion adds a region with a unique name.
func (d *Directory) CreateRegion(ctx context.Context, caller *models.Caller, input *models.RegionInput) (*models.Region, error) {
	if _, _, err := d.authorize(ctx, caller, policy.ActionCreate, policy.ResourceRegion, policy.Target{}); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	region := &models.Region{Name: input.Name, Description: input.Description}
	err := d.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := ensureFree(tx.RegionNameTaken(ctx, input.Name, 0)); err != nil {
			return fmt.Errorf("%w: region name %q", err, input.Name)
		}
		return tx.CreateRegion(ctx, region)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create region: %w", err)
	}

	d.publish(events.RegionCreated, region.ID, region)
	return region, nil
}

func (d *Directory) UpdateRegion(ctx context.Context, caller *models.Caller, update *models.RegionUpdate) (*models.Region, error) {
	if update.ID == 0 {
		return nil, e.Validation("invalid region ID")
	}
	if _, err := d.repo.GetRegion(ctx, update.ID); err != nil {
		return nil, fmt.Errorf("failed to get region for update: %w", err)
	}
	if _, _, err := d.authorize(ctx, caller, policy.ActionUpdate, policy.ResourceRegion, policy.Target{ID: update.ID}); err != nil {
		return nil, err
	}
	if err := validateInput(update); err != nil {
		return nil, err
	}

	var updated *models.Region
	err := d.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if update.Name != nil {
			if err := ensureFree(tx.RegionNameTaken(ctx, *update.Name, update.ID)); err != nil {
				return fmt.Errorf("%w: region name %q", err, *update.Name)
			}
		}
		if err := tx.UpdateRegion(ctx, update); err != nil {
			return err
		}
		var err error
		updated, err = tx.GetRegion(ctx, update.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update region: %w", err)
	}

	d.publish(events.RegionUpdated, updated.ID, updated)
	return updated, nil
}

// DeleteRegion removes a region and its locations. Companies in the region
// are kept with no region.
func (d *Directory) DeleteRegion(ctx context.Context, caller *models.Caller, id uint) error {
	region, err := d.repo.GetRegion(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get region for deletion: %w", err)
	}
	if _, _, err := d.authorize(ctx, caller, policy.ActionDelete, policy.ResourceRegion, policy.Target{ID: id}); err != nil {
		return err
	}

	removed, err := d.repo.DeleteRegion(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete region: %w", err)
	}

	d.logger.Info("Region deleted",
		zap.Uint("region_id", id),
		zap.Int64("locations_removed", removed),
	)
	d.publish(events.RegionDeleted, region.ID, region)
	return nil
}
