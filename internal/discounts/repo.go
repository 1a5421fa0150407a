package discounts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	// applicableClause compares calendar dates on both sides so a bound day is
	// never shifted by the session time zone.
	applicableClause = "d.archived = ? AND d.is_active = ? AND date(d.start_date) <= date(?) AND date(d.end_date) >= date(?)"

	linkedToProductClause = `(EXISTS (SELECT 1 FROM discounts_products dp WHERE dp.discount_id = d.id AND dp.product_id = ?)
	OR EXISTS (SELECT 1 FROM discounts_categories dc JOIN products p ON p.category_id = dc.category_id WHERE dc.discount_id = d.id AND p.id = ?))`

	// coversProductsClause counts how many of the requested products fall in
	// the discount's universe of explicit products and category products.
	coversProductsClause = `(SELECT COUNT(DISTINCT p.id) FROM products p
	WHERE p.id IN (?) AND (
		EXISTS (SELECT 1 FROM discounts_products dp WHERE dp.discount_id = d.id AND dp.product_id = p.id)
		OR EXISTS (SELECT 1 FROM discounts_categories dc WHERE dc.discount_id = d.id AND dc.category_id = p.category_id))) = ?`

	discountedProductsQuery = `SELECT p.id AS product_id, p.name AS name, MIN(pr.price) AS min_price
FROM products p
LEFT JOIN prices pr ON pr.product_id = p.id
WHERE p.archived = ? AND (
	EXISTS (SELECT 1 FROM discounts_products dp JOIN discounts d ON d.id = dp.discount_id
		WHERE dp.product_id = p.id AND ` + applicableClause + `)
	OR EXISTS (SELECT 1 FROM discounts_categories dc JOIN discounts d ON d.id = dc.discount_id
		WHERE dc.category_id = p.category_id AND ` + applicableClause + `)
	OR EXISTS (SELECT 1 FROM discount_groups_products gp
		JOIN discount_groups g ON g.id = gp.product_group_id
		JOIN discounts_groups dg ON dg.product_group_id = gp.product_group_id
		JOIN discounts d ON d.id = dg.discount_id
		WHERE gp.product_id = p.id AND g.archived = ? AND ` + applicableClause + `)
)
GROUP BY p.id, p.name
ORDER BY p.id`
)

// CartCandidate is a CART or SET discount plus, for SET, the product ids of
// each of its live groups.
type CartCandidate struct {
	Discount models.Discount
	Groups   [][]uuid.UUID
}

// DiscountedProduct is a product reachable from at least one live discount.
type DiscountedProduct struct {
	ProductID uuid.UUID           `json:"product_id"`
	Name      string              `json:"name"`
	MinPrice  decimal.NullDecimal `json:"min_price"`
}

// ListFilter narrows admin listings.
type ListFilter struct {
	Kind            *enums.DiscountKind
	IncludeArchived bool
}

// Repository reads and writes discounts and product groups.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx binds the repository to an open transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

// applicableArgs binds the UTC calendar day of today as a plain date string.
func applicableArgs(today time.Time) []any {
	day := Today(today).Format(time.DateOnly)
	return []any{false, true, day, day}
}

// PriorityForProduct returns the winning PRODUCT discount linked to the
// product directly or through its category, or nil.
func (r *Repository) PriorityForProduct(ctx context.Context, productID uuid.UUID, today time.Time) (*models.Discount, error) {
	args := append(applicableArgs(today), enums.DiscountKindProduct, productID, productID)

	var found []models.Discount
	err := r.DB(ctx).
		Table("discounts AS d").
		Select("d.*").
		Where(applicableClause+" AND d.kind = ? AND "+linkedToProductClause, args...).
		Order(qualifiedPriorityOrder).
		Limit(1).
		Find(&found).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query product discount")
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

// PriorityForProducts returns the winning PRODUCT discount whose universe
// covers every requested product, or nil.
func (r *Repository) PriorityForProducts(ctx context.Context, productIDs []uuid.UUID, today time.Time) (*models.Discount, error) {
	ids := uniqueIDs(productIDs)
	if len(ids) == 0 {
		return nil, nil
	}
	args := append(applicableArgs(today), enums.DiscountKindProduct, ids, len(ids))

	var found []models.Discount
	err := r.DB(ctx).
		Table("discounts AS d").
		Select("d.*").
		Where(applicableClause+" AND d.kind = ? AND "+coversProductsClause, args...).
		Order(qualifiedPriorityOrder).
		Limit(1).
		Find(&found).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query product list discount")
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

// CartCandidates loads every live CART and SET discount. SET discounts come
// with the members of their non-archived groups.
func (r *Repository) CartCandidates(ctx context.Context, today time.Time) ([]CartCandidate, error) {
	args := append(applicableArgs(today), []enums.DiscountKind{enums.DiscountKindCart, enums.DiscountKindSet})

	var discounts []models.Discount
	err := r.DB(ctx).
		Table("discounts AS d").
		Select("d.*").
		Where(applicableClause+" AND d.kind IN (?)", args...).
		Order(qualifiedPriorityOrder).
		Find(&discounts).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query cart discounts")
	}

	setIDs := make([]uuid.UUID, 0, len(discounts))
	for _, d := range discounts {
		if d.Kind == enums.DiscountKindSet {
			setIDs = append(setIDs, d.ID)
		}
	}
	members, err := r.groupMembers(ctx, setIDs)
	if err != nil {
		return nil, err
	}

	out := make([]CartCandidate, 0, len(discounts))
	for _, d := range discounts {
		candidate := CartCandidate{Discount: d}
		if d.Kind == enums.DiscountKindSet {
			for _, productIDs := range members[d.ID] {
				candidate.Groups = append(candidate.Groups, productIDs)
			}
		}
		out = append(out, candidate)
	}
	return out, nil
}

type groupMemberRow struct {
	DiscountID uuid.UUID
	GroupID    uuid.UUID
	ProductID  uuid.UUID
}

func (r *Repository) groupMembers(ctx context.Context, discountIDs []uuid.UUID) (map[uuid.UUID]map[uuid.UUID][]uuid.UUID, error) {
	out := make(map[uuid.UUID]map[uuid.UUID][]uuid.UUID, len(discountIDs))
	if len(discountIDs) == 0 {
		return out, nil
	}

	var rows []groupMemberRow
	err := r.DB(ctx).
		Table("discounts_groups AS dg").
		Select("dg.discount_id AS discount_id, dg.product_group_id AS group_id, gp.product_id AS product_id").
		Joins("JOIN discount_groups g ON g.id = dg.product_group_id").
		Joins("JOIN discount_groups_products gp ON gp.product_group_id = dg.product_group_id").
		Where("dg.discount_id IN (?) AND g.archived = ?", discountIDs, false).
		Scan(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query group members")
	}

	for _, row := range rows {
		groups, ok := out[row.DiscountID]
		if !ok {
			groups = map[uuid.UUID][]uuid.UUID{}
			out[row.DiscountID] = groups
		}
		groups[row.GroupID] = append(groups[row.GroupID], row.ProductID)
	}
	return out, nil
}

// DiscountedProducts lists distinct products that any live discount reaches
// through a product, category or group link, with their min listed price.
func (r *Repository) DiscountedProducts(ctx context.Context, today time.Time) ([]DiscountedProduct, error) {
	live := applicableArgs(today)
	args := []any{false}
	args = append(args, live...)
	args = append(args, live...)
	args = append(args, false)
	args = append(args, live...)

	var rows []DiscountedProduct
	if err := r.DB(ctx).Raw(discountedProductsQuery, args...).Scan(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query discounted products")
	}
	return rows, nil
}

// MaxPrice returns the highest seller price listed for the product.
func (r *Repository) MaxPrice(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	var max decimal.NullDecimal
	err := r.DB(ctx).
		Model(&models.Price{}).
		Select("MAX(price)").
		Where("product_id = ?", productID).
		Row().
		Scan(&max)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query max price")
	}
	if !max.Valid {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "product has no listed prices")
	}
	return max.Decimal, nil
}

// FindByID loads a discount with its links.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Discount, error) {
	var discount models.Discount
	err := r.DB(ctx).
		Preload("Products").
		Preload("Categories").
		Preload("ProductGroups").
		First(&discount, "id = ?", id).Error
	if err != nil {
		return nil, repo.LookupError(err, "discount")
	}
	return &discount, nil
}

// List returns discounts ordered the way the engine ranks them.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Discount, error) {
	query := r.DB(ctx).Model(&models.Discount{})
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if !filter.IncludeArchived {
		query = query.Where("archived = ?", false)
	}

	var out []models.Discount
	if err := query.Order(priorityOrder).Find(&out).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list discounts")
	}
	return out, nil
}

func (r *Repository) Create(ctx context.Context, discount *models.Discount) error {
	if err := r.DB(ctx).Omit("Products", "Categories", "ProductGroups").Create(discount).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create discount")
	}
	return nil
}

// Save writes every column of an existing discount.
func (r *Repository) Save(ctx context.Context, discount *models.Discount) error {
	err := r.DB(ctx).
		Model(&models.Discount{}).
		Where("id = ?", discount.ID).
		Select("name", "description", "kind", "method", "priority", "value", "quantity_gt",
			"quantity_lt", "total_gt", "start_date", "end_date", "is_active", "updated_at").
		Updates(discount).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update discount")
	}
	return nil
}

func (r *Repository) Archive(ctx context.Context, id uuid.UUID) error {
	res := r.DB(ctx).
		Model(&models.Discount{}).
		Where("id = ?", id).
		Updates(map[string]any{"archived": true, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "archive discount")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "discount not found")
	}
	return nil
}

// ReplaceLinks swaps every link of a discount for the given ids. Run it in
// a transaction.
func (r *Repository) ReplaceLinks(ctx context.Context, discountID uuid.UUID, productIDs, categoryIDs, groupIDs []uuid.UUID) error {
	db := r.DB(ctx)
	if err := replaceJoinRows(db, "discounts_products", "discount_id", "product_id", discountID, productIDs); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace product links")
	}
	if err := replaceJoinRows(db, "discounts_categories", "discount_id", "category_id", discountID, categoryIDs); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace category links")
	}
	if err := replaceJoinRows(db, "discounts_groups", "discount_id", "product_group_id", discountID, groupIDs); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace group links")
	}
	return nil
}

func replaceJoinRows(db *gorm.DB, table, ownerColumn, targetColumn string, ownerID uuid.UUID, targets []uuid.UUID) error {
	if err := db.Exec("DELETE FROM "+table+" WHERE "+ownerColumn+" = ?", ownerID).Error; err != nil {
		return err
	}
	for _, target := range uniqueIDs(targets) {
		if err := db.Exec("INSERT INTO "+table+" ("+ownerColumn+", "+targetColumn+") VALUES (?, ?)", ownerID, target).Error; err != nil {
			return err
		}
	}
	return nil
}

// CountExisting returns how many of ids exist in table.
func (r *Repository) CountExisting(ctx context.Context, table string, ids []uuid.UUID) (int, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	if err := r.DB(ctx).Table(table).Where("id IN (?)", ids).Count(&count).Error; err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count "+table)
	}
	return int(count), nil
}

func (r *Repository) CreateGroup(ctx context.Context, group *models.ProductGroup) error {
	if err := r.DB(ctx).Omit("Products").Create(group).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product group")
	}
	return nil
}

func (r *Repository) FindGroup(ctx context.Context, id uuid.UUID) (*models.ProductGroup, error) {
	var group models.ProductGroup
	err := r.DB(ctx).Preload("Products").First(&group, "id = ?", id).Error
	if err != nil {
		return nil, repo.LookupError(err, "product group")
	}
	return &group, nil
}

func (r *Repository) ListGroups(ctx context.Context, includeArchived bool) ([]models.ProductGroup, error) {
	query := r.DB(ctx).Model(&models.ProductGroup{})
	if !includeArchived {
		query = query.Where("archived = ?", false)
	}
	var out []models.ProductGroup
	if err := query.Order("name ASC").Find(&out).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list product groups")
	}
	return out, nil
}

// ReplaceGroupProducts swaps the members of a group.
func (r *Repository) ReplaceGroupProducts(ctx context.Context, groupID uuid.UUID, productIDs []uuid.UUID) error {
	if err := replaceJoinRows(r.DB(ctx), "discount_groups_products", "product_group_id", "product_id", groupID, productIDs); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace group products")
	}
	return nil
}

func (r *Repository) ArchiveGroup(ctx context.Context, id uuid.UUID) error {
	res := r.DB(ctx).Model(&models.ProductGroup{}).Where("id = ?", id).Update("archived", true)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "archive product group")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product group not found")
	}
	return nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
