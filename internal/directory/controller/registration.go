package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/gartstein/directory/internal/directory/db"
	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/events"
	"github.com/gartstein/directory/internal/directory/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// errBadCredentials is returned by Login for an unknown username and for a
// wrong password alike.
var errBadCredentials = fmt.Errorf("%w: invalid username or password", e.ErrAuthDenied)

// Register signs up a plain user account. The role is always user.
func (d *Directory) Register(ctx context.Context, input *models.Registration) (*models.AuthResult, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	result := &models.AuthResult{}
	err = d.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := checkAccountFree(ctx, tx, input.Username, input.Email, 0); err != nil {
			return err
		}
		user := &models.User{
			Username:     input.Username,
			Email:        input.Email,
			PasswordHash: hash,
			Role:         models.RoleUser,
		}
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		token, err := d.issueToken(user)
		if err != nil {
			return err
		}
		result.User, result.Token = user, token
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	d.logger.Info("User registered", zap.Uint("user_id", result.User.ID))
	d.publish(events.UserRegistered, result.User.ID, result.User)
	return result, nil
}

// RegisterCompany signs up a company_owner account together with its company
// and links the two. Nothing is persisted unless every step succeeds.
func (d *Directory) RegisterCompany(ctx context.Context, input *models.CompanyRegistration) (*models.AuthResult, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if err := validateCompanyInput(&input.Company); err != nil {
		return nil, err
	}
	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	result := &models.AuthResult{}
	err = d.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := checkAccountFree(ctx, tx, input.Username, input.UserEmail, 0); err != nil {
			return err
		}
		if err := ensureFree(tx.CompanyNameTaken(ctx, input.Company.Name, 0)); err != nil {
			return fmt.Errorf("%w: company name %q", err, input.Company.Name)
		}
		if err := ensureFree(tx.CompanyEmailTaken(ctx, input.Company.Email, 0)); err != nil {
			return fmt.Errorf("%w: company email %q", err, input.Company.Email)
		}

		user := &models.User{
			Username:     input.Username,
			Email:        input.UserEmail,
			PasswordHash: hash,
			Role:         models.RoleCompanyOwner,
		}
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		company, err := createCompany(ctx, tx, &input.Company, &user.ID)
		if err != nil {
			return err
		}
		if err := tx.LinkOwnership(ctx, user.ID, company.ID); err != nil {
			return err
		}

		if result.User, err = tx.GetUser(ctx, user.ID); err != nil {
			return err
		}
		if result.Company, err = tx.GetCompany(ctx, company.ID); err != nil {
			return err
		}
		result.Token, err = d.issueToken(result.User)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register company: %w", err)
	}

	d.logger.Info("Company registered",
		zap.Uint("user_id", result.User.ID),
		zap.Uint("company_id", result.Company.ID),
	)
	d.publish(events.CompanyRegistered, result.Company.ID, result.Company)
	return result, nil
}

// Login checks a username and password and issues a token for the account.
func (d *Directory) Login(ctx context.Context, username, password string) (*models.AuthResult, error) {
	if username == "" || password == "" {
		return nil, e.Validation("username and password are required")
	}
	user, err := d.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		d.logger.Warn("Login failed", zap.Uint("user_id", user.ID))
		return nil, errBadCredentials
	}

	token, err := d.issueToken(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResult{User: user, Token: token}, nil
}

func (d *Directory) issueToken(user *models.User) (string, error) {
	if d.tokens == nil {
		return "", nil
	}
	token, err := d.tokens.IssueToken(user)
	if err != nil {
		return "", e.Internal("issue token", err)
	}
	return token, nil
}

// checkAccountFree reports ErrConflict when the username or email is in use
// by another account than excludeID.
func checkAccountFree(ctx context.Context, tx *db.Repository, username, email string, excludeID uint) error {
	if err := ensureFree(tx.UsernameTaken(ctx, username, excludeID)); err != nil {
		return fmt.Errorf("%w: username %q", err, username)
	}
	if err := ensureFree(tx.UserEmailTaken(ctx, email, excludeID)); err != nil {
		return fmt.Errorf("%w: email %q", err, email)
	}
	return nil
}
