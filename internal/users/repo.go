package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	loginConstraint = "users_login_key"
	emailConstraint = "users_email_key"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

// Create inserts a new user. A taken login or email is a conflict.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.DB(ctx).Create(user).Error; err != nil {
		switch {
		case isColumnViolation(err, "email"):
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "email already registered")
		case isColumnViolation(err, "login"):
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "login already taken")
		case db.IsUniqueViolation(err, emailConstraint):
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "email already registered")
		case db.IsUniqueViolation(err, loginConstraint):
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "login already taken")
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}
	}
	return user, nil
}

// isColumnViolation matches SQLite's "UNIQUE constraint failed: users.<column>".
func isColumnViolation(err error, column string) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed: users."+column)
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(r.DB(ctx).Where("email = ?", email))
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(r.DB(ctx).Where("id = ?", id))
}

func (r *Repository) first(query *gorm.DB) (*models.User, error) {
	var user models.User
	if err := query.First(&user).Error; err != nil {
		return nil, repo.LookupError(err, "user")
	}
	return &user, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	err := r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update last login")
	}
	return nil
}

// UpdatePasswordHash replaces the stored credential hash.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	err := r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("password_hash", hash).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password hash")
	}
	return nil
}

// UpdateProfile writes the non-nil profile fields.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, input UpdateProfileInput) error {
	updates := map[string]any{}
	set := func(column string, value *string) {
		if value == nil {
			return
		}
		trimmed := strings.TrimSpace(*value)
		if trimmed == "" {
			updates[column] = nil
			return
		}
		updates[column] = trimmed
	}
	set("first_name", input.FirstName)
	set("last_name", input.LastName)
	set("address", input.Address)
	set("phone", input.Phone)
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()

	err := r.DB(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
	}
	return nil
}

// ActiveRecipients returns a batch of active users after the given id, in id order.
func (r *Repository) ActiveRecipients(ctx context.Context, after uuid.UUID, limit int) ([]Recipient, error) {
	query := r.DB(ctx).
		Model(&models.User{}).
		Select("id, login, email, created_at").
		Where("is_active = ?", true)
	if after != uuid.Nil {
		query = query.Where("id > ?", after)
	}
	var rows []Recipient
	if err := query.Order("id ASC").Limit(limit).Scan(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active users")
	}
	return rows, nil
}
