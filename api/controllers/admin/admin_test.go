package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/discounts"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubDiscountService struct {
	created    *discounts.DiscountInput
	updatedID  uuid.UUID
	filter     discounts.ListFilter
	links      discounts.LinksInput
	group      *discounts.GroupInput
	groupItems []uuid.UUID
	err        error
}

func (s *stubDiscountService) Create(ctx context.Context, input discounts.DiscountInput) (*discounts.DiscountDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = &input
	return &discounts.DiscountDTO{ID: uuid.New(), Name: input.Name, Kind: input.Kind, Method: input.Method}, nil
}

func (s *stubDiscountService) Update(ctx context.Context, id uuid.UUID, input discounts.DiscountInput) (*discounts.DiscountDTO, error) {
	s.updatedID = id
	return &discounts.DiscountDTO{ID: id, Name: input.Name}, s.err
}

func (s *stubDiscountService) Get(ctx context.Context, id uuid.UUID) (*discounts.DiscountDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &discounts.DiscountDTO{ID: id}, nil
}

func (s *stubDiscountService) List(ctx context.Context, filter discounts.ListFilter) ([]discounts.DiscountDTO, error) {
	s.filter = filter
	return []discounts.DiscountDTO{}, s.err
}

func (s *stubDiscountService) Archive(ctx context.Context, id uuid.UUID) error {
	return s.err
}

func (s *stubDiscountService) SetLinks(ctx context.Context, id uuid.UUID, input discounts.LinksInput) (*discounts.DiscountDTO, error) {
	s.links = input
	return &discounts.DiscountDTO{ID: id, ProductIDs: input.ProductIDs}, s.err
}

func (s *stubDiscountService) CreateGroup(ctx context.Context, input discounts.GroupInput) (*discounts.GroupDTO, error) {
	s.group = &input
	return &discounts.GroupDTO{ID: uuid.New(), Name: input.Name}, s.err
}

func (s *stubDiscountService) GetGroup(ctx context.Context, id uuid.UUID) (*discounts.GroupDTO, error) {
	return &discounts.GroupDTO{ID: id}, s.err
}

func (s *stubDiscountService) ListGroups(ctx context.Context, includeArchived bool) ([]discounts.GroupDTO, error) {
	return []discounts.GroupDTO{}, s.err
}

func (s *stubDiscountService) SetGroupProducts(ctx context.Context, id uuid.UUID, productIDs []uuid.UUID) (*discounts.GroupDTO, error) {
	s.groupItems = productIDs
	return &discounts.GroupDTO{ID: id, ProductIDs: productIDs}, s.err
}

func (s *stubDiscountService) ArchiveGroup(ctx context.Context, id uuid.UUID) error {
	return s.err
}

func newAdminRouter(svc discounts.Service) http.Handler {
	r := chi.NewRouter()
	r.Get("/discounts", DiscountList(svc, nil))
	r.Post("/discounts", DiscountCreate(svc, nil))
	r.Get("/discounts/{discountId}", DiscountDetail(svc, nil))
	r.Put("/discounts/{discountId}", DiscountUpdate(svc, nil))
	r.Delete("/discounts/{discountId}", DiscountArchive(svc, nil))
	r.Put("/discounts/{discountId}/links", DiscountSetLinks(svc, nil))
	r.Get("/product-groups", GroupList(svc, nil))
	r.Post("/product-groups", GroupCreate(svc, nil))
	r.Get("/product-groups/{groupId}", GroupDetail(svc, nil))
	r.Put("/product-groups/{groupId}/products", GroupSetProducts(svc, nil))
	r.Delete("/product-groups/{groupId}", GroupArchive(svc, nil))
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestDiscountCreateParsesInput(t *testing.T) {
	svc := &stubDiscountService{}
	body := `{"name":"Spring","kind":"CT","method":"PT","priority":2,"value":"15.5",` +
		`"total_gt":100,"quantity_gt":2,"start_date":"2026-03-01","end_date":"2026-03-31"}`

	rec := do(t, newAdminRouter(svc), http.MethodPost, "/discounts", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, svc.created)

	in := svc.created
	require.Equal(t, enums.DiscountKindCart, in.Kind)
	require.Equal(t, enums.DiscountMethodPercent, in.Method)
	require.True(t, in.Value.Equal(decimal.RequireFromString("15.5")))
	require.NotNil(t, in.TotalGT)
	require.True(t, in.TotalGT.Equal(decimal.NewFromInt(100)))
	require.Equal(t, 2, *in.QuantityGT)
	require.Equal(t, "2026-03-01", in.StartDate.Format(discounts.DateLayout))
	require.Equal(t, "2026-03-31", in.EndDate.Format(discounts.DateLayout))
	require.True(t, in.IsActive, "is_active defaults to true")
}

func TestDiscountCreateRejectsBadDate(t *testing.T) {
	svc := &stubDiscountService{}
	body := `{"name":"Spring","kind":"PT","method":"FD","value":5,"start_date":"03/01/2026","end_date":"2026-03-31"}`

	rec := do(t, newAdminRouter(svc), http.MethodPost, "/discounts", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Nil(t, svc.created)
}

func TestDiscountCreateRejectsUnknownKind(t *testing.T) {
	svc := &stubDiscountService{}
	body := `{"name":"Spring","kind":"XX","method":"FD","value":5,"start_date":"2026-03-01","end_date":"2026-03-31"}`

	rec := do(t, newAdminRouter(svc), http.MethodPost, "/discounts", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Nil(t, svc.created)
}

func TestDiscountListFilters(t *testing.T) {
	svc := &stubDiscountService{}

	rec := do(t, newAdminRouter(svc), http.MethodGet, "/discounts?kind=ST&include_archived=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.filter.Kind)
	require.Equal(t, enums.DiscountKindSet, *svc.filter.Kind)
	require.True(t, svc.filter.IncludeArchived)

	rec = do(t, newAdminRouter(svc), http.MethodGet, "/discounts?include_archived=maybe", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDiscountDetailNotFound(t *testing.T) {
	svc := &stubDiscountService{err: pkgerrors.New(pkgerrors.CodeNotFound, "discount not found")}

	rec := do(t, newAdminRouter(svc), http.MethodGet, "/discounts/"+uuid.NewString(), "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, newAdminRouter(svc), http.MethodGet, "/discounts/not-a-uuid", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDiscountSetLinks(t *testing.T) {
	svc := &stubDiscountService{}
	productID := uuid.New()
	groupID := uuid.New()
	body := `{"product_ids":["` + productID.String() + `"],"group_ids":["` + groupID.String() + `"]}`

	rec := do(t, newAdminRouter(svc), http.MethodPut, "/discounts/"+uuid.NewString()+"/links", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, []uuid.UUID{productID}, svc.links.ProductIDs)
	require.Equal(t, []uuid.UUID{groupID}, svc.links.GroupIDs)
	require.Empty(t, svc.links.CategoryIDs)
}

func TestGroupCreateAndSetProducts(t *testing.T) {
	svc := &stubDiscountService{}
	router := newAdminRouter(svc)

	rec := do(t, router, http.MethodPost, "/product-groups", `{"name":"Phones"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "Phones", svc.group.Name)

	var envelope struct {
		Data discounts.GroupDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, "Phones", envelope.Data.Name)

	productID := uuid.New()
	rec = do(t, router, http.MethodPut, "/product-groups/"+uuid.NewString()+"/products", `{"product_ids":["`+productID.String()+`"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, []uuid.UUID{productID}, svc.groupItems)
}

func TestGroupCreateRequiresName(t *testing.T) {
	svc := &stubDiscountService{}

	rec := do(t, newAdminRouter(svc), http.MethodPost, "/product-groups", `{"description":"x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Nil(t, svc.group)
}
