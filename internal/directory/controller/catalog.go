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

// ListServices returns the catalog of services companies can offer.
func (d *Directory) ListServices(ctx context.Context, caller *models.Caller) ([]models.Service, error) {
	if _, _, err := d.authorize(ctx, caller, policy.ActionList, policy.ResourceService, policy.Target{}); err != nil {
		return nil, err
	}
	services, err := d.repo.ListServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}

func (d *Directory) GetService(ctx context.Context, caller *models.Caller, id uint) (*models.Service, error) {
	if _, _, err := d.authorize(ctx, caller, policy.ActionGet, policy.ResourceService, policy.Target{ID: id}); err != nil {
		return nil, err
	}
	service, err := d.repo.GetService(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return service, nil
}

func (d *Directory) CreateService(ctx context.Context, caller *models.Caller, input *models.ServiceInput) (*models.Service, error) {
	if _, _, err := d.authorize(ctx, caller, policy.ActionCreate, policy.ResourceService, policy.Target{}); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	service := &models.Service{Name: input.Name, Description: input.Description}
	err := d.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := ensureFree(tx.ServiceNameTaken(ctx, input.Name, 0)); err != nil {
			return fmt.Errorf("%w: service name %q", err, input.Name)
		}
		return tx.CreateService(ctx, service)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	d.publish(events.ServiceCreated, service.ID, service)
	return service, nil
}

func (d *Directory) UpdateService(ctx context.Context, caller *models.Caller, update *models.ServiceUpdate) (*models.Service, error) {
	if update.ID == 0 {
		return nil, e.Validation("invalid service ID")
	}
	if _, err := d.repo.GetService(ctx, update.ID); err != nil {
		return nil, fmt.Errorf("failed to get service for update: %w", err)
	}
	if _, _, err := d.authorize(ctx, caller, policy.ActionUpdate, policy.ResourceService, policy.Target{ID: update.ID}); err != nil {
		return nil, err
	}
	if err := validateInput(update); err != nil {
		return nil, err
	}

	var updated *models.Service
	err := d.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if update.Name != nil {
			if err := ensureFree(tx.ServiceNameTaken(ctx, *update.Name, update.ID)); err != nil {
				return fmt.Errorf("%w: service name %q", err, *update.Name)
			}
		}
		if err := tx.UpdateService(ctx, update); err != nil {
			return err
		}
		var err error
		updated, err = tx.GetService(ctx, update.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update service: %w", err)
	}

	d.publish(events.ServiceUpdated, updated.ID, updated)
	return updated, nil
}

// DeleteService removes a service from the catalog. Companies offering it
// lose only the association.
func (d *Directory) DeleteService(ctx context.Context, caller *models.Caller, id uint) error {
	service, err := d.repo.GetService(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get service for deletion: %w", err)
	}
	if _, _, err := d.authorize(ctx, caller, policy.ActionDelete, policy.ResourceService, policy.Target{ID: id}); err != nil {
		return err
	}

	if err := d.repo.DeleteService(ctx, id); err != nil {
		return fmt.Errorf("failed to delete service: %w", err)
	}

	d.publish(events.ServiceDeleted, service.ID, service)
	return nil
}
