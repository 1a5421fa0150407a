package discounts

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// PricingScope is the cache version scope bumped by every discount write.
const PricingScope = "pricing"

var maxPercent = hundred

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cacheBumper interface {
	Bump(ctx context.Context, scope string)
}

// Service is the admin surface over discounts and product groups.
type Service interface {
	Create(ctx context.Context, input DiscountInput) (*DiscountDTO, error)
	Update(ctx context.Context, id uuid.UUID, input DiscountInput) (*DiscountDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*DiscountDTO, error)
	List(ctx context.Context, filter ListFilter) ([]DiscountDTO, error)
	Archive(ctx context.Context, id uuid.UUID) error
	SetLinks(ctx context.Context, id uuid.UUID, input LinksInput) (*DiscountDTO, error)

	CreateGroup(ctx context.Context, input GroupInput) (*GroupDTO, error)
	GetGroup(ctx context.Context, id uuid.UUID) (*GroupDTO, error)
	ListGroups(ctx context.Context, includeArchived bool) ([]GroupDTO, error)
	SetGroupProducts(ctx context.Context, id uuid.UUID, productIDs []uuid.UUID) (*GroupDTO, error)
	ArchiveGroup(ctx context.Context, id uuid.UUID) error
}

type ServiceParams struct {
	Repo  *Repository
	Tx    txRunner
	Cache cacheBumper
}

type service struct {
	repo  *Repository
	tx    txRunner
	cache cacheBumper
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "discount repository is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner is required")
	}
	return &service{repo: params.Repo, tx: params.Tx, cache: params.Cache}, nil
}

func (s *service) Create(ctx context.Context, input DiscountInput) (*DiscountDTO, error) {
	if err := validateDiscount(input); err != nil {
		return nil, err
	}
	discount := models.Discount{}
	assignInput(&discount, input)
	if err := s.repo.Create(ctx, &discount); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return s.Get(ctx, discount.ID)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input DiscountInput) (*DiscountDTO, error) {
	if err := validateDiscount(input); err != nil {
		return nil, err
	}
	discount, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if discount.Archived {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "archived discounts cannot be edited")
	}
	assignInput(discount, input)
	if err := s.repo.Save(ctx, discount); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return s.Get(ctx, id)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*DiscountDTO, error) {
	discount, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toDiscountDTO(*discount)
	return &dto, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]DiscountDTO, error) {
	if filter.Kind != nil && !filter.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount kind")
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]DiscountDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDiscountDTO(row))
	}
	return out, nil
}

func (s *service) Archive(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Archive(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// SetLinks replaces the discount's links atomically. Every referenced id
// must exist.
func (s *service) SetLinks(ctx context.Context, id uuid.UUID, input LinksInput) (*DiscountDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, id); err != nil {
			return err
		}
		if err := ensureAllExist(ctx, repo, "products", input.ProductIDs); err != nil {
			return err
		}
		if err := ensureAllExist(ctx, repo, "categories", input.CategoryIDs); err != nil {
			return err
		}
		if err := ensureAllExist(ctx, repo, "discount_groups", input.GroupIDs); err != nil {
			return err
		}
		return repo.ReplaceLinks(ctx, id, input.ProductIDs, input.CategoryIDs, input.GroupIDs)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return s.Get(ctx, id)
}

func (s *service) CreateGroup(ctx context.Context, input GroupInput) (*GroupDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group name is required")
	}
	group := models.ProductGroup{Name: name, Description: input.Description}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := ensureAllExist(ctx, repo, "products", input.ProductIDs); err != nil {
			return err
		}
		if err := repo.CreateGroup(ctx, &group); err != nil {
			return err
		}
		return repo.ReplaceGroupProducts(ctx, group.ID, input.ProductIDs)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return s.GetGroup(ctx, group.ID)
}

func (s *service) GetGroup(ctx context.Context, id uuid.UUID) (*GroupDTO, error) {
	group, err := s.repo.FindGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toGroupDTO(*group)
	return &dto, nil
}

func (s *service) ListGroups(ctx context.Context, includeArchived bool) ([]GroupDTO, error) {
	groups, err := s.repo.ListGroups(ctx, includeArchived)
	if err != nil {
		return nil, err
	}
	out := make([]GroupDTO, 0, len(groups))
	for _, g := range groups {
		out = append(out, toGroupDTO(g))
	}
	return out, nil
}

func (s *service) SetGroupProducts(ctx context.Context, id uuid.UUID, productIDs []uuid.UUID) (*GroupDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindGroup(ctx, id); err != nil {
			return err
		}
		if err := ensureAllExist(ctx, repo, "products", productIDs); err != nil {
			return err
		}
		return repo.ReplaceGroupProducts(ctx, id, productIDs)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return s.GetGroup(ctx, id)
}

func (s *service) ArchiveGroup(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.ArchiveGroup(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *service) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Bump(ctx, PricingScope)
	}
}

func ensureAllExist(ctx context.Context, repo *Repository, table string, ids []uuid.UUID) error {
	want := len(uniqueIDs(ids))
	if want == 0 {
		return nil
	}
	got, err := repo.CountExisting(ctx, table, ids)
	if err != nil {
		return err
	}
	if got != want {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown ids in "+table).
			WithDetails(map[string]any{"expected": want, "found": got})
	}
	return nil
}

func validateDiscount(input DiscountInput) error {
	details := map[string]string{}
	if strings.TrimSpace(input.Name) == "" {
		details["name"] = "is required"
	}
	if !input.Kind.IsValid() {
		details["kind"] = "must be one of PT, ST, CT"
	}
	if !input.Method.IsValid() {
		details["method"] = "must be one of PT, SM, FD"
	}
	if input.Value.IsNegative() {
		details["value"] = "must not be negative"
	} else if input.Method == enums.DiscountMethodPercent && input.Value.GreaterThan(maxPercent) {
		details["value"] = "percent must be at most 100"
	}
	if input.StartDate.IsZero() {
		details["start_date"] = "is required"
	}
	if input.EndDate.IsZero() {
		details["end_date"] = "is required"
	}
	if !input.StartDate.IsZero() && !input.EndDate.IsZero() && Today(input.EndDate).Before(Today(input.StartDate)) {
		details["end_date"] = "must not be before start_date"
	}
	if input.QuantityGT != nil && *input.QuantityGT < 0 {
		details["quantity_gt"] = "must not be negative"
	}
	if input.QuantityGT != nil && input.QuantityLT != nil && *input.QuantityGT > *input.QuantityLT {
		details["quantity_lt"] = "must be greater than or equal to quantity_gt"
	}
	if input.TotalGT != nil && input.TotalGT.IsNegative() {
		details["total_gt"] = "must not be negative"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid discount").WithDetails(details)
	}
	return nil
}

func assignInput(d *models.Discount, input DiscountInput) {
	d.Name = strings.TrimSpace(input.Name)
	d.Description = input.Description
	d.Kind = input.Kind
	d.Method = input.Method
	d.Priority = input.Priority
	d.Value = input.Value
	d.QuantityGT = input.QuantityGT
	d.QuantityLT = input.QuantityLT
	d.TotalGT = input.TotalGT
	d.StartDate = Today(input.StartDate)
	d.EndDate = Today(input.EndDate)
	d.IsActive = input.IsActive
}
