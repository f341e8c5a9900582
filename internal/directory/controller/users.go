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

// GetProfile returns the caller's own account.
func (d *Directory) GetProfile(ctx context.Context, caller *models.Caller) (*models.User, error) {
	_, decision, err := d.authorize(ctx, caller, policy.ActionReadSelf, policy.ResourceUser, policy.Target{})
	if err != nil {
		return nil, err
	}
	user, err := d.repo.GetUser(ctx, *decision.Scope)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return user, nil
}

// UpdateProfile changes the caller's own username, email or password. Role
// and company link cannot be changed this way.
func (d *Directory) UpdateProfile(ctx context.Context, caller *models.Caller, update *models.ProfileUpdate) (*models.User, error) {
	_, decision, err := d.authorize(ctx, caller, policy.ActionUpdateSelf, policy.ResourceUser, policy.Target{})
	if err != nil {
		return nil, err
	}
	if err := validateInput(update); err != nil {
		return nil, err
	}
	id := *decision.Scope

	var hash string
	if update.Password != nil {
		if hash, err = hashPassword(*update.Password); err != nil {
			return nil, err
		}
	}

	var updated *models.User
	err = d.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		user, err := tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		if update.Username != nil {
			user.Username = *update.Username
		}
		if update.Email != nil {
			user.Email = *update.Email
		}
		if hash != "" {
			user.PasswordHash = hash
		}
		if err := checkAccountFree(ctx, tx, user.Username, user.Email, id); err != nil {
			return err
		}
		if err := tx.UpdateUser(ctx, user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	d.publish(events.UserUpdated, updated.ID, updated)
	return updated, nil
}

// ListUsers returns every account. Admin only.
func (d *Directory) ListUsers(ctx context.Context, caller *models.Caller) ([]models.User, error) {
	if _, _, err := d.authorize(ctx, caller, policy.ActionList, policy.ResourceUser, policy.Target{}); err != nil {
		return nil, err
	}
	users, err := d.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (d *Directory) GetUser(ctx context.Context, caller *models.Caller, id uint) (*models.User, error) {
	if _, _, err := d.authorize(ctx, caller, policy.ActionGet, policy.ResourceUser, policy.Target{ID: id}); err != nil {
		return nil, err
	}
	user, err := d.repo.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateUser is the administrative change of an account. Setting the company
// link goes through the ownership sync so both sides stay consistent.
func (d *Directory) UpdateUser(ctx context.Context, caller *models.Caller, update *models.UserUpdate) (*models.User, error) {
	if update.ID == 0 {
		return nil, e.Validation("invalid user ID")
	}
	if _, err := d.repo.GetUser(ctx, update.ID); err != nil {
		return nil, fmt.Errorf("failed to get user for update: %w", err)
	}
	if _, _, err := d.authorize(ctx, caller, policy.ActionUpdate, policy.ResourceUser, policy.Target{ID: update.ID}); err != nil {
		return nil, err
	}
	if err := validateInput(update); err != nil {
		return nil, err
	}
	if update.Role != nil && !update.Role.Valid() {
		return nil, e.Validation("invalid role %q", *update.Role)
	}

	var updated *models.User
	err := d.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		user, err := tx.GetUser(ctx, update.ID)
		if err != nil {
			return err
		}
		if update.Username != nil {
			user.Username = *update.Username
		}
		if update.Email != nil {
			user.Email = *update.Email
		}
		if update.Role != nil {
			user.Role = *update.Role
		}
		if err := checkAccountFree(ctx, tx, user.Username, user.Email, user.ID); err != nil {
			return err
		}
		if err := tx.UpdateUser(ctx, user); err != nil {
			return err
		}

		if update.CompanySet {
			if update.CompanyID == nil {
				err = tx.UnlinkUser(ctx, user.ID)
			} else {
				if _, err := tx.GetCompany(ctx, *update.CompanyID); err != nil {
					return requireExisting(err, "company %d does not exist", *update.CompanyID)
				}
				err = tx.LinkOwnership(ctx, user.ID, *update.CompanyID)
			}
			if err != nil {
				return err
			}
		}

		updated, err = tx.GetUser(ctx, user.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	d.publish(events.UserUpdated, updated.ID, updated)
	return updated, nil
}

// DeleteUser removes an account. Companies it created or owned are kept and
// detached from it.
func (d *Directory) DeleteUser(ctx context.Context, caller *models.Caller, id uint) error {
	user, err := d.repo.GetUser(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get user for deletion: %w", err)
	}
	if _, _, err := d.authorize(ctx, caller, policy.ActionDelete, policy.ResourceUser, policy.Target{ID: id}); err != nil {
		return err
	}

	if err := d.repo.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	d.logger.Info("User deleted", zap.Uint("user_id", id))
	d.publish(events.UserDeleted, user.ID, user)
	return nil
}
