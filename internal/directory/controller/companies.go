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

// ListCompanies returns every company. Anyone may list.
func (d *Directory) ListCompanies(ctx context.Context, caller *models.Caller) ([]models.Company, error) {
	if _, _, err := d.authorize(ctx, caller, policy.ActionList, policy.ResourceCompany, policy.Target{}); err != nil {
		return nil, err
	}
	companies, err := d.repo.ListCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return companies, nil
}

// GetCompany retrieves a Company by ID, returning an error if not found.
func (d *Directory) GetCompany(ctx context.Context, caller *models.Caller, id uint) (*models.Company, error) {
	if _, _, err := d.authorize(ctx, caller, policy.ActionGet, policy.ResourceCompany, policy.Target{ID: id}); err != nil {
		return nil, err
	}
	company, err := d.repo.GetCompany(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return company, nil
}

// GetMyCompany returns the company the caller is the login identity of. The
// id comes from the caller's account, never from the request.
func (d *Directory) GetMyCompany(ctx context.Context, caller *models.Caller) (*models.Company, error) {
	resolved, decision, err := d.authorize(ctx, caller, policy.ActionReadOwn, policy.ResourceCompany, policy.Target{})
	if err != nil {
		return nil, err
	}
	id := decision.Scope
	if id == nil {
		id = resolved.CompanyID
	}
	if id == nil {
		return nil, e.NotFound("caller has no company")
	}
	company, err := d.repo.GetCompany(ctx, *id)
	if err != nil {
		return nil, fmt.Errorf("failed to get own company: %w", err)
	}
	return company, nil
}

// CreateCompany adds a new Company after validating input data. The region
// must exist; unknown service ids are dropped. The caller is recorded as the
// creator.
func (d *Directory) CreateCompany(ctx context.Context, caller *models.Caller, input *models.CompanyInput) (*models.Company, error) {
	resolved, _, err := d.authorize(ctx, caller, policy.ActionCreate, policy.ResourceCompany, policy.Target{})
	if err != nil {
		return nil, err
	}
	if err := validateCompanyInput(input); err != nil {
		return nil, err
	}

	var created *models.Company
	err = d.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		var txErr error
		created, txErr = createCompany(ctx, tx, input, &resolved.UserID)
		return txErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	d.logger.Info("Company created",
		zap.Uint("company_id", created.ID),
		zap.Uint("user_id", resolved.UserID),
	)
	d.publish(events.CompanyCreated, created.ID, created)
	return created, nil
}

// UpdateCompany applies the fields present in update. A company owner may
// only update the company they are linked to.
func (d *Directory) UpdateCompany(ctx context.Context, caller *models.Caller, update *models.CompanyUpdate) (*models.Company, error) {
	if update.ID == 0 {
		return nil, e.Validation("invalid company ID")
	}
	if _, err := d.repo.GetCompany(ctx, update.ID); err != nil {
		return nil, fmt.Errorf("failed to get company for update: %w", err)
	}
	if _, _, err := d.authorize(ctx, caller, policy.ActionUpdate, policy.ResourceCompany, policy.Target{ID: update.ID}); err != nil {
		return nil, err
	}
	if err := validateInput(update); err != nil {
		return nil, err
	}
	if update.Status != nil && !update.Status.Valid() {
		return nil, e.Validation("invalid status %q", *update.Status)
	}

	var updated *models.Company
	err := d.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if update.Name != nil {
			if err := ensureFree(tx.CompanyNameTaken(ctx, *update.Name, update.ID)); err != nil {
				return fmt.Errorf("%w: company name %q", err, *update.Name)
			}
		}
		if update.Email != nil {
			if err := ensureFree(tx.CompanyEmailTaken(ctx, *update.Email, update.ID)); err != nil {
				return fmt.Errorf("%w: company email %q", err, *update.Email)
			}
		}
		if update.RegionSet {
			if err := resolveRegion(ctx, tx, update.RegionID); err != nil {
				return err
			}
		}
		if err := tx.UpdateCompany(ctx, update); err != nil {
			return err
		}
		if update.ServicesSet {
			if err := replaceServices(ctx, tx, update.ID, update.ServiceIDs); err != nil {
				return err
			}
		}
		var err error
		updated, err = tx.GetCompany(ctx, update.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update company: %w", err)
	}

	d.publish(events.CompanyUpdated, updated.ID, updated)
	return updated, nil
}

// UpdateCompanyStatus sets the status of a company. Any value of the allowed
// set may follow any other.
func (d *Directory) UpdateCompanyStatus(ctx context.Context, caller *models.Caller, id uint, status models.CompanyStatus) (*models.Company, error) {
	if !status.Valid() {
		return nil, e.Validation("invalid status %q", status)
	}
	return d.UpdateCompany(ctx, caller, &models.CompanyUpdate{ID: id, Status: &status})
}

// DeleteCompany removes a Company by ID and fires a deletion event. Its
// service associations go with it; its login user stays, unlinked.
func (d *Directory) DeleteCompany(ctx context.Context, caller *models.Caller, id uint) error {
	company, err := d.repo.GetCompany(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get company for deletion: %w", err)
	}
	if _, _, err := d.authorize(ctx, caller, policy.ActionDelete, policy.ResourceCompany, policy.Target{ID: id}); err != nil {
		return err
	}

	if err := d.repo.DeleteCompany(ctx, id); err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}

	d.publish(events.CompanyDeleted, company.ID, company)
	return nil
}

func validateCompanyInput(input *models.CompanyInput) error {
	if err := validateInput(input); err != nil {
		return err
	}
	if input.Status == "" {
		input.Status = models.StatusPending
	}
	if !input.Status.Valid() {
		return e.Validation("invalid status %q", input.Status)
	}
	return nil
}

// createCompany writes a validated company with its references through tx.
// It is shared by CreateCompany and RegisterCompany.
func createCompany(ctx context.Context, tx *db.Repository, input *models.CompanyInput, creatorID *uint) (*models.Company, error) {
	if err := ensureFree(tx.CompanyNameTaken(ctx, input.Name, 0)); err != nil {
		return nil, fmt.Errorf("%w: company name %q", err, input.Name)
	}
	if err := ensureFree(tx.CompanyEmailTaken(ctx, input.Email, 0)); err != nil {
		return nil, fmt.Errorf("%w: company email %q", err, input.Email)
	}
	if err := resolveRegion(ctx, tx, input.RegionID); err != nil {
		return nil, err
	}

	company := &models.Company{
		Name:        input.Name,
		Email:       input.Email,
		Phone:       input.Phone,
		Description: input.Description,
		Status:      input.Status,
		UserID:      creatorID,
		RegionID:    input.RegionID,
	}
	if err := tx.CreateCompany(ctx, company); err != nil {
		return nil, err
	}
	if err := replaceServices(ctx, tx, company.ID, input.ServiceIDs); err != nil {
		return nil, err
	}
	return tx.GetCompany(ctx, company.ID)
}

// resolveRegion fails with ErrValidation when a non-nil region id does not
// exist.
func resolveRegion(ctx context.Context, tx *db.Repository, regionID *uint) error {
	if regionID == nil {
		return nil
	}
	if _, err := tx.GetRegion(ctx, *regionID); err != nil {
		return requireExisting(err, "region %d does not exist", *regionID)
	}
	return nil
}

// replaceServices sets the company's services to the ids that exist.
func replaceServices(ctx context.Context, tx *db.Repository, companyID uint, ids []uint) error {
	existing, err := tx.FindServiceIDs(ctx, ids)
	if err != nil {
		return err
	}
	return tx.ReplaceCompanyServices(ctx, companyID, existing)
}

// ensureFree turns the result of a uniqueness check into ErrConflict.
func ensureFree(taken bool, err error) error {
	if err != nil {
		return err
	}
	if taken {
		return e.Conflict("already in use")
	}
	return nil
}
