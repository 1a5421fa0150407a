package users

import (
	"context"
	"unicode/utf8"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const maxProfileField = 255

// ProfileService reads and edits the caller's profile.
type ProfileService interface {
	Get(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	Update(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error)
}

type profileService struct {
	repo *Repository
}

func NewProfileService(repo *Repository) (ProfileService, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repository is required")
	}
	return &profileService{repo: repo}, nil
}

func (s *profileService) Get(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *profileService) Update(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error) {
	for _, field := range []*string{input.FirstName, input.LastName, input.Address, input.Phone} {
		if field != nil && utf8.RuneCountInString(*field) > maxProfileField {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile field is too long")
		}
	}
	if err := s.repo.UpdateProfile(ctx, userID, input); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}
