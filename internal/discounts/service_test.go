package discounts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type recordingBumper struct {
	scopes []string
}

func (b *recordingBumper) Bump(_ context.Context, scope string) {
	b.scopes = append(b.scopes, scope)
}

func newTestService(t *testing.T) (Service, *catalogFixture, *recordingBumper) {
	t.Helper()
	f := newCatalogFixture(t)
	bumper := &recordingBumper{}
	svc, err := NewService(ServiceParams{Repo: f.repo, Tx: db.NewFromGorm(f.db), Cache: bumper})
	require.NoError(t, err)
	return svc, f, bumper
}

func validInput() DiscountInput {
	return DiscountInput{
		Name:      "Spring sale",
		Kind:      enums.DiscountKindProduct,
		Method:    enums.DiscountMethodPercent,
		Priority:  2,
		Value:     dec("15"),
		StartDate: day(2026, 3, 1),
		EndDate:   day(2026, 3, 31),
		IsActive:  true,
	}
}

func TestServiceCreateAndUpdate(t *testing.T) {
	svc, _, bumper := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, "Spring sale", created.Name)
	assert.Equal(t, "2026-03-01", created.StartDate)
	assert.Empty(t, created.ProductIDs)

	input := validInput()
	input.Name = "  Spring sale v2 "
	input.Priority = 7
	input.IsActive = false
	updated, err := svc.Update(ctx, created.ID, input)
	require.NoError(t, err)
	assert.Equal(t, "Spring sale v2", updated.Name)
	assert.Equal(t, 7, updated.Priority)
	assert.False(t, updated.IsActive)

	assert.Equal(t, []string{PricingScope, PricingScope}, bumper.scopes)
}

func TestServiceValidation(t *testing.T) {
	svc, _, bumper := newTestService(t)
	ctx := context.Background()

	cases := map[string]func(*DiscountInput){
		"empty name":       func(in *DiscountInput) { in.Name = " " },
		"bad kind":         func(in *DiscountInput) { in.Kind = "XX" },
		"bad method":       func(in *DiscountInput) { in.Method = "XX" },
		"negative value":   func(in *DiscountInput) { in.Value = dec("-1") },
		"percent over 100": func(in *DiscountInput) { in.Value = dec("100.01") },
		"end before start": func(in *DiscountInput) { in.EndDate = day(2026, 2, 28) },
		"inverted bounds": func(in *DiscountInput) {
			in.QuantityGT = intPtr(5)
			in.QuantityLT = intPtr(2)
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			input := validInput()
			mutate(&input)
			_, err := svc.Create(ctx, input)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
		})
	}
	assert.Empty(t, bumper.scopes)

	sameDay := validInput()
	sameDay.EndDate = sameDay.StartDate
	_, err := svc.Create(ctx, sameDay)
	require.NoError(t, err, "a one-day window is valid")
}

func TestServiceSetLinks(t *testing.T) {
	svc, f, _ := newTestService(t)
	ctx := context.Background()
	phone := f.product(t, "phone", f.category.ID, "100")

	created, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	linked, err := svc.SetLinks(ctx, created.ID, LinksInput{
		ProductIDs:  []uuid.UUID{phone.ID, phone.ID},
		CategoryIDs: []uuid.UUID{f.category.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{phone.ID}, linked.ProductIDs)
	assert.Equal(t, []uuid.UUID{f.category.ID}, linked.CategoryIDs)

	_, err = svc.SetLinks(ctx, created.ID, LinksInput{ProductIDs: []uuid.UUID{uuid.New()}})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	after, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{phone.ID}, after.ProductIDs, "failed replacement leaves links untouched")

	_, err = svc.SetLinks(ctx, uuid.New(), LinksInput{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestServiceArchiveHidesFromListAndEngine(t *testing.T) {
	svc, f, _ := newTestService(t)
	ctx := context.Background()
	phone := f.product(t, "phone", f.category.ID, "100")

	created, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	_, err = svc.SetLinks(ctx, created.ID, LinksInput{ProductIDs: []uuid.UUID{phone.ID}})
	require.NoError(t, err)

	require.NoError(t, svc.Archive(ctx, created.ID))

	list, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	all, err := svc.List(ctx, ListFilter{IncludeArchived: true})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Archived)

	got, err := f.repo.PriorityForProduct(ctx, phone.ID, repoToday)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = svc.Update(ctx, created.ID, validInput())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))

	err = svc.Archive(ctx, uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestServiceListFiltersByKind(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	cart := validInput()
	cart.Kind = enums.DiscountKindCart
	_, err = svc.Create(ctx, cart)
	require.NoError(t, err)

	kind := enums.DiscountKindCart
	list, err := svc.List(ctx, ListFilter{Kind: &kind})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, enums.DiscountKindCart, list[0].Kind)

	bad := enums.DiscountKind("XX")
	_, err = svc.List(ctx, ListFilter{Kind: &bad})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestServiceGroups(t *testing.T) {
	svc, f, bumper := newTestService(t)
	ctx := context.Background()
	p1 := f.product(t, "p1", f.category.ID, "10")
	p2 := f.product(t, "p2", f.category.ID, "20")

	group, err := svc.CreateGroup(ctx, GroupInput{Name: "Bundle", ProductIDs: []uuid.UUID{p1.ID}})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{p1.ID}, group.ProductIDs)

	group, err = svc.SetGroupProducts(ctx, group.ID, []uuid.UUID{p1.ID, p2.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{p1.ID, p2.ID}, group.ProductIDs)

	_, err = svc.CreateGroup(ctx, GroupInput{Name: ""})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	require.NoError(t, svc.ArchiveGroup(ctx, group.ID))
	groups, err := svc.ListGroups(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, groups)

	assert.Len(t, bumper.scopes, 3)
}

func TestNewServiceRequiresDeps(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Repo: NewRepository(nil)})
	require.Error(t, err)
}
