// Package controller implements the core business logic (service layer)
// of the directory: every create, update and delete is authorized with the
// policy package, validated against the referenced entities and applied to
// the repository as one unit of work, and then announced as an event.
package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/gartstein/directory/internal/directory/db"
	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/events"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/gartstein/directory/internal/directory/policy"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// passwordCost is the bcrypt cost used for new password hashes.
var passwordCost = bcrypt.DefaultCost

var validate = validator.New(validator.WithRequiredStructEnabled())

type EventProducer interface {
	Produce(eventType events.EventType, entityID uint, payload any)
}

// TokenIssuer issues the access credential handed back after registration
// and login.
type TokenIssuer interface {
	IssueToken(user *models.User) (string, error)
}

// Repository defines the storage interface of the directory.
type Repository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	DeleteUser(ctx context.Context, id uint) error

	GetCompany(ctx context.Context, id uint) (*models.Company, error)
	ListCompanies(ctx context.Context) ([]models.Company, error)
	DeleteCompany(ctx context.Context, id uint) error

	GetRegion(ctx context.Context, id uint) (*models.Region, error)
	ListRegions(ctx context.Context) ([]models.Region, error)
	DeleteRegion(ctx context.Context, id uint) (int64, error)

	GetLocation(ctx context.Context, id uint) (*models.Location, error)
	ListLocations(ctx context.Context, regionID *uint) ([]models.Location, error)
	DeleteLocation(ctx context.Context, id uint) error

	GetService(ctx context.Context, id uint) (*models.Service, error)
	ListServices(ctx context.Context) ([]models.Service, error)
	DeleteService(ctx context.Context, id uint) error

	WithTransaction(ctx context.Context, fn func(repo *db.Repository) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Directory provides the operations of the directory core.
type Directory struct {
	repo     Repository
	producer EventProducer
	tokens   TokenIssuer
	logger   *zap.Logger
}

// NewDirectory constructs a Directory with a repository, an event producer,
// a token issuer and a logger.
func NewDirectory(repo Repository, producer EventProducer, tokens TokenIssuer, logger *zap.Logger) *Directory {
	return &Directory{
		repo:     repo,
		producer: producer,
		tokens:   tokens,
		logger:   logger.Named("directory_service"),
	}
}

// Ping reports whether the store is reachable.
func (d *Directory) Ping(ctx context.Context) error {
	if err := d.repo.Ping(ctx); err != nil {
		return e.Internal("ping", err)
	}
	return nil
}

// authorize resolves the caller against the store when the decision depends
// on who they are, and returns ErrAuthDenied when the policy says no.
func (d *Directory) authorize(
	ctx context.Context,
	caller *models.Caller,
	action policy.Action,
	resource policy.Resource,
	target policy.Target,
) (*models.Caller, policy.Decision, error) {
	resolved := caller
	if action.Mutating() || action == policy.ActionReadOwn || resource == policy.ResourceUser {
		var err error
		resolved, err = d.resolveCaller(ctx, caller)
		if err != nil {
			return nil, policy.Decision{}, err
		}
	}

	decision := policy.Decide(resolved, action, resource, target)
	if !decision.Allowed {
		fields := []zap.Field{
			zap.String("action", string(action)),
			zap.String("resource", string(resource)),
			zap.Uint("target_id", target.ID),
			zap.String("reason", decision.Reason),
		}
		if resolved != nil {
			fields = append(fields, zap.Uint("user_id", resolved.UserID), zap.String("role", string(resolved.Role)))
		}
		d.logger.Warn("Access denied", fields...)
		return nil, decision, fmt.Errorf("%w: %s", e.ErrAuthDenied, decision.Reason)
	}
	return resolved, decision, nil
}

// resolveCaller reloads the caller's account so role and company link are
// current. A caller whose account no longer exists is anonymous.
func (d *Directory) resolveCaller(ctx context.Context, caller *models.Caller) (*models.Caller, error) {
	if caller == nil {
		return nil, nil
	}
	user, err := d.repo.GetUser(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve caller: %w", err)
	}
	return user.Caller(), nil
}

func (d *Directory) publish(eventType events.EventType, entityID uint, payload any) {
	if d.producer == nil {
		return
	}
	d.producer.Produce(eventType, entityID, payload)
}

func validateInput(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return e.Validation("%s", verrs.Error())
		}
		return e.Validation("%s", err.Error())
	}
	return nil
}

// requireExisting maps a missing referenced record to ErrValidation. Other
// failures pass through.
func requireExisting(err error, format string, args ...any) error {
	if errors.Is(err, e.ErrNotFound) {
		return e.Validation(format, args...)
	}
	return err
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return "", e.Internal("hash password", err)
	}
	return string(hash), nil
}
