// Package erp_repo reads the ERP snapshot from PostgreSQL. Physical table
// and column names come from the schema resolver at query time; every query
// aliases them back to the fixed logical names, so the scan targets never
// depend on the deployment's layout.
package erp_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"

	"mercatus/internal/core/apperror"
	"mercatus/internal/domain/erp"
	"mercatus/internal/domain/purchasesale"
	"mercatus/internal/domain/schema"
)

// Compile-time check that Repo implements purchasesale.Repository.
var _ purchasesale.Repository = (*Repo)(nil)

// Repo implements purchasesale.Repository.
type Repo struct {
	pool     *pgxpool.Pool
	resolver schema.Resolver
	builder  squirrel.StatementBuilderType
}

// NewRepo creates the repository.
func NewRepo(pool *pgxpool.Pool, resolver schema.Resolver) *Repo {
	return &Repo{
		pool:     pool,
		resolver: resolver,
		builder:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// selectAliased builds SELECT physical AS logical for every requested field.
func selectAliased(r *schema.Resolved, entity string, fields ...string) ([]string, error) {
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		col, err := r.Column(entity, f)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col+" AS "+f)
	}
	return cols, nil
}

func (r *Repo) selectFrom(ctx context.Context, entity string, fields ...string) (squirrel.SelectBuilder, *schema.Resolved, error) {
	resolved, err := r.resolver.Resolve(ctx)
	if err != nil {
		return squirrel.SelectBuilder{}, nil, err
	}
	table, err := resolved.Table(entity)
	if err != nil {
		return squirrel.SelectBuilder{}, nil, err
	}
	cols, err := selectAliased(resolved, entity, fields...)
	if err != nil {
		return squirrel.SelectBuilder{}, nil, err
	}
	return r.builder.Select(cols...).From(table), resolved, nil
}

func (r *Repo) run(ctx context.Context, dst any, qb squirrel.SelectBuilder, what string) error {
	sql, args, err := qb.ToSql()
	if err != nil {
		return fmt.Errorf("build %s query: %w", what, err)
	}
	if err := pgxscan.Select(ctx, r.pool, dst, sql, args...); err != nil {
		return apperror.NewDataSource(fmt.Errorf("%s: %w", what, err))
	}
	return nil
}

// PurchaseLines returns entry-document item lines with entry date in
// [from, to].
func (r *Repo) PurchaseLines(ctx context.Context, from, to time.Time, storeID int) ([]erp.PurchaseLine, error) {
	qb, resolved, err := r.selectFrom(ctx, schema.EntityPurchaseLine,
		"document_number", "series", "partner_id", "store_id", "entry_date",
		"operation", "product_id", "quantity", "value", "fiscal_code")
	if err != nil {
		return nil, err
	}

	entryDate, err := resolved.Column(schema.EntityPurchaseLine, "entry_date")
	if err != nil {
		return nil, err
	}
	qb = qb.Where(squirrel.GtOrEq{entryDate: from}).Where(squirrel.LtOrEq{entryDate: to})

	if storeID != 0 {
		storeCol, err := resolved.Column(schema.EntityPurchaseLine, "store_id")
		if err != nil {
			return nil, err
		}
		qb = qb.Where(squirrel.Eq{storeCol: storeID})
	}

	var rows []purchaseLineRow
	if err := r.run(ctx, &rows, qb, "purchase lines"); err != nil {
		return nil, err
	}
	out := make([]erp.PurchaseLine, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// SaleLines returns sale item lines dated in [from, to].
func (r *Repo) SaleLines(ctx context.Context, from, to time.Time, storeID int) ([]erp.SaleLine, error) {
	qb, resolved, err := r.selectFrom(ctx, schema.EntitySaleLine,
		"store_id", "date", "product_id", "quantity", "gross_value",
		"repl_cost", "tax_debit", "tax_credit", "channel_code")
	if err != nil {
		return nil, err
	}

	dateCol, err := resolved.Column(schema.EntitySaleLine, "date")
	if err != nil {
		return nil, err
	}
	qb = qb.Where(squirrel.GtOrEq{dateCol: from}).Where(squirrel.LtOrEq{dateCol: to})

	if storeID != 0 {
		storeCol, err := resolved.Column(schema.EntitySaleLine, "store_id")
		if err != nil {
			return nil, err
		}
		qb = qb.Where(squirrel.Eq{storeCol: storeID})
	}

	var rows []saleLineRow
	if err := r.run(ctx, &rows, qb, "sale lines"); err != nil {
		return nil, err
	}
	out := make([]erp.SaleLine, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// Products returns the full product snapshot keyed by id.
func (r *Repo) Products(ctx context.Context) (map[int]erp.Product, error) {
	qb, _, err := r.selectFrom(ctx, schema.EntityProduct,
		"id", "description", "section_id", "group_id", "subgroup_id",
		"pack_qty", "bonus_rebate", "stock_qty", "coverage_days")
	if err != nil {
		return nil, err
	}

	var rows []productRow
	if err := r.run(ctx, &rows, qb, "products"); err != nil {
		return nil, err
	}
	out := make(map[int]erp.Product, len(rows))
	for _, row := range rows {
		out[row.ID] = row.toDomain()
	}
	return out, nil
}

// Sections returns all sections keyed by id.
func (r *Repo) Sections(ctx context.Context) (map[int]erp.Section, error) {
	qb, _, err := r.selectFrom(ctx, schema.EntitySection, "id", "description", "margin_pct")
	if err != nil {
		return nil, err
	}

	var rows []sectionRow
	if err := r.run(ctx, &rows, qb, "sections"); err != nil {
		return nil, err
	}
	out := make(map[int]erp.Section, len(rows))
	for _, row := range rows {
		out[row.ID] = erp.Section{ID: row.ID, Description: row.Description, MarginTargetPct: deref(row.MarginPct)}
	}
	return out, nil
}

// Groups returns groups, optionally narrowed to one section.
func (r *Repo) Groups(ctx context.Context, sectionID int) (map[int]erp.Group, error) {
	qb, resolved, err := r.selectFrom(ctx, schema.EntityGroup, "id", "section_id", "description")
	if err != nil {
		return nil, err
	}
	if sectionID != 0 {
		col, err := resolved.Column(schema.EntityGroup, "section_id")
		if err != nil {
			return nil, err
		}
		qb = qb.Where(squirrel.Eq{col: sectionID})
	}

	var rows []groupRow
	if err := r.run(ctx, &rows, qb, "groups"); err != nil {
		return nil, err
	}
	out := make(map[int]erp.Group, len(rows))
	for _, row := range rows {
		out[row.ID] = erp.Group{ID: row.ID, SectionID: row.SectionID, Description: row.Description}
	}
	return out, nil
}

// SubGroups returns subgroups, optionally narrowed to a section and group.
func (r *Repo) SubGroups(ctx context.Context, sectionID, groupID int) (map[int]erp.SubGroup, error) {
	qb, resolved, err := r.selectFrom(ctx, schema.EntitySubGroup, "id", "section_id", "group_id", "description")
	if err != nil {
		return nil, err
	}
	if sectionID != 0 {
		col, err := resolved.Column(schema.EntitySubGroup, "section_id")
		if err != nil {
			return nil, err
		}
		qb = qb.Where(squirrel.Eq{col: sectionID})
	}
	if groupID != 0 {
		col, err := resolved.Column(schema.EntitySubGroup, "group_id")
		if err != nil {
			return nil, err
		}
		qb = qb.Where(squirrel.Eq{col: groupID})
	}

	var rows []subGroupRow
	if err := r.run(ctx, &rows, qb, "subgroups"); err != nil {
		return nil, err
	}
	out := make(map[int]erp.SubGroup, len(rows))
	for _, row := range rows {
		out[row.ID] = erp.SubGroup{ID: row.ID, SectionID: row.SectionID, GroupID: row.GroupID, Description: row.Description}
	}
	return out, nil
}

// Stores returns all stores.
func (r *Repo) Stores(ctx context.Context) ([]erp.Store, error) {
	qb, _, err := r.selectFrom(ctx, schema.EntityStore, "id", "description")
	if err != nil {
		return nil, err
	}

	var rows []lookupRow
	if err := r.run(ctx, &rows, qb, "stores"); err != nil {
		return nil, err
	}
	out := make([]erp.Store, len(rows))
	for i, row := range rows {
		out[i] = erp.Store{ID: row.ID, Description: row.Description}
	}
	return out, nil
}

// Buyers returns all buyers.
func (r *Repo) Buyers(ctx context.Context) ([]erp.Buyer, error) {
	qb, _, err := r.selectFrom(ctx, schema.EntityBuyer, "id", "description")
	if err != nil {
		return nil, err
	}

	var rows []lookupRow
	if err := r.run(ctx, &rows, qb, "buyers"); err != nil {
		return nil, err
	}
	out := make([]erp.Buyer, len(rows))
	for i, row := range rows {
		out[i] = erp.Buyer{ID: row.ID, Description: row.Description}
	}
	return out, nil
}

// DecompositionLinks returns the parent/child percentage links.
func (r *Repo) DecompositionLinks(ctx context.Context) ([]erp.DecompositionLink, error) {
	qb, _, err := r.selectFrom(ctx, schema.EntityDecomposed, "parent_id", "child_id", "pct")
	if err != nil {
		return nil, err
	}

	var rows []decompositionRow
	if err := r.run(ctx, &rows, qb, "decomposition links"); err != nil {
		return nil, err
	}
	out := make([]erp.DecompositionLink, len(rows))
	for i, row := range rows {
		out[i] = erp.DecompositionLink{ParentID: row.ParentID, ChildID: row.ChildID, Pct: row.Pct}
	}
	return out, nil
}

// ProductionRecipes returns the final/insumo factor relations.
func (r *Repo) ProductionRecipes(ctx context.Context) ([]erp.ProductionRecipe, error) {
	qb, _, err := r.selectFrom(ctx, schema.EntityRecipe, "final_id", "insumo_id", "factor")
	if err != nil {
		return nil, err
	}

	var rows []recipeRow
	if err := r.run(ctx, &rows, qb, "production recipes"); err != nil {
		return nil, err
	}
	out := make([]erp.ProductionRecipe, len(rows))
	for i, row := range rows {
		out[i] = erp.ProductionRecipe{FinalID: row.FinalID, InsumoID: row.InsumoID, Factor: row.Factor}
	}
	return out, nil
}

// AssociationLinks returns the sold/base pack relations.
func (r *Repo) AssociationLinks(ctx context.Context) ([]erp.AssociationLink, error) {
	qb, _, err := r.selectFrom(ctx, schema.EntityAssociation, "sold_id", "base_id")
	if err != nil {
		return nil, err
	}

	var rows []associationRow
	if err := r.run(ctx, &rows, qb, "association links"); err != nil {
		return nil, err
	}
	out := make([]erp.AssociationLink, len(rows))
	for i, row := range rows {
		out[i] = erp.AssociationLink{SoldID: row.SoldID, BaseID: row.BaseID}
	}
	return out, nil
}

// SectionMarginTargets returns the per-store margin target overrides.
func (r *Repo) SectionMarginTargets(ctx context.Context) ([]erp.SectionMarginTarget, error) {
	qb, _, err := r.selectFrom(ctx, schema.EntityMarginTarget, "section_id", "store_id", "target_pct")
	if err != nil {
		return nil, err
	}

	var rows []marginTargetRow
	if err := r.run(ctx, &rows, qb, "margin targets"); err != nil {
		return nil, err
	}
	out := make([]erp.SectionMarginTarget, len(rows))
	for i, row := range rows {
		out[i] = erp.SectionMarginTarget{SectionID: row.SectionID, StoreID: row.StoreID, TargetPct: row.TargetPct}
	}
	return out, nil
}

// ProductIDsForBuyer returns the product set a buyer is responsible for.
func (r *Repo) ProductIDsForBuyer(ctx context.Context, buyerID int) (map[int]bool, error) {
	resolved, err := r.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	table, err := resolved.Table(schema.EntityBuyerProduct)
	if err != nil {
		return nil, err
	}
	buyerCol, err := resolved.Column(schema.EntityBuyerProduct, "buyer_id")
	if err != nil {
		return nil, err
	}
	productCol, err := resolved.Column(schema.EntityBuyerProduct, "product_id")
	if err != nil {
		return nil, err
	}

	qb := r.builder.Select(productCol + " AS product_id").From(table).Where(squirrel.Eq{buyerCol: buyerID})
	var ids []int
	sql, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build buyer products query: %w", err)
	}
	if err := pgxscan.Select(ctx, r.pool, &ids, sql, args...); err != nil {
		return nil, apperror.NewDataSource(fmt.Errorf("buyer products: %w", err))
	}
	out := make(map[int]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
