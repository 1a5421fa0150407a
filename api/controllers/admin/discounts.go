package admin

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/discounts"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// discountRequest accepts value and total_gt as JSON numbers or strings.
type discountRequest struct {
	Name        string           `json:"name" validate:"required,max=255"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
	Kind        string           `json:"kind" validate:"required,oneof=PT ST CT"`
	Method      string           `json:"method" validate:"required,oneof=PT SM FD"`
	Priority    int              `json:"priority" validate:"gte=0"`
	Value       decimal.Decimal  `json:"value" validate:"gte=0"`
	QuantityGT  *int             `json:"quantity_gt" validate:"omitempty,gte=0"`
	QuantityLT  *int             `json:"quantity_lt" validate:"omitempty,gte=0"`
	TotalGT     *decimal.Decimal `json:"total_gt" validate:"omitempty,gte=0"`
	StartDate   string           `json:"start_date" validate:"required"`
	EndDate     string           `json:"end_date" validate:"required"`
	IsActive    *bool            `json:"is_active"`
}

type linksRequest struct {
	ProductIDs  []uuid.UUID `json:"product_ids" validate:"max=1000"`
	CategoryIDs []uuid.UUID `json:"category_ids" validate:"max=1000"`
	GroupIDs    []uuid.UUID `json:"group_ids" validate:"max=1000"`
}

func (req discountRequest) toInput() (discounts.DiscountInput, error) {
	kind, err := enums.ParseDiscountKind(req.Kind)
	if err != nil {
		return discounts.DiscountInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid kind")
	}
	method, err := enums.ParseDiscountMethod(req.Method)
	if err != nil {
		return discounts.DiscountInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid method")
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return discounts.DiscountInput{}, err
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		return discounts.DiscountInput{}, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	return discounts.DiscountInput{
		Name:        req.Name,
		Description: req.Description,
		Kind:        kind,
		Method:      method,
		Priority:    req.Priority,
		Value:       req.Value,
		QuantityGT:  req.QuantityGT,
		QuantityLT:  req.QuantityLT,
		TotalGT:     req.TotalGT,
		StartDate:   start,
		EndDate:     end,
		IsActive:    active,
	}, nil
}

func parseDate(field, raw string) (time.Time, error) {
	t, err := time.Parse(discounts.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid date").
			WithDetails(map[string]string{field: "must use YYYY-MM-DD"})
	}
	return t, nil
}

// DiscountList supports ?kind=PT|ST|CT and ?include_archived=true.
func DiscountList(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount service unavailable"))
			return
		}

		var filter discounts.ListFilter
		raw, err := validators.ParseQueryString(r, "kind", 2)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw != "" {
			kind, err := enums.ParseDiscountKind(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid kind"))
				return
			}
			filter.Kind = &kind
		}
		includeArchived, err := validators.ParseQueryBool(r, "include_archived")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.IncludeArchived = includeArchived

		list, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func DiscountCreate(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount service unavailable"))
			return
		}

		var body discountRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "discount_id", created.ID.String()), "discount created")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func DiscountDetail(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "discountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		discount, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, discount)
	}
}

// DiscountUpdate replaces every writable field. Links are left untouched.
func DiscountUpdate(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "discountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body discountRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func DiscountArchive(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "discountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Archive(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "discount_id", id.String()), "discount archived")
		}
		responses.WriteSuccess(w, map[string]string{"status": "archived"})
	}
}

// DiscountSetLinks replaces the product, category and group links in one transaction.
func DiscountSetLinks(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "discountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body linksRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.SetLinks(r.Context(), id, discounts.LinksInput{
			ProductIDs:  body.ProductIDs,
			CategoryIDs: body.CategoryIDs,
			GroupIDs:    body.GroupIDs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}
