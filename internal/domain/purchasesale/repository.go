package purchasesale

import (
	"context"
	"time"

	"mercatus/internal/domain/erp"
)

// Repository reads the raw ERP snapshot the engine works over. All methods
// are read-only and safe to call concurrently.
type Repository interface {
	// PurchaseLines returns entry-document item lines whose entry date falls
	// in [from, to], optionally narrowed to one store. Classification and
	// bonus filtering happen in the engine, not the query.
	PurchaseLines(ctx context.Context, from, to time.Time, storeID int) ([]erp.PurchaseLine, error)

	// SaleLines returns sale item lines dated in [from, to], optionally
	// narrowed to one store.
	SaleLines(ctx context.Context, from, to time.Time, storeID int) ([]erp.SaleLine, error)

	Products(ctx context.Context) (map[int]erp.Product, error)
	Sections(ctx context.Context) (map[int]erp.Section, error)
	Groups(ctx context.Context, sectionID int) (map[int]erp.Group, error)
	SubGroups(ctx context.Context, sectionID, groupID int) (map[int]erp.SubGroup, error)
	Stores(ctx context.Context) ([]erp.Store, error)
	Buyers(ctx context.Context) ([]erp.Buyer, error)

	DecompositionLinks(ctx context.Context) ([]erp.DecompositionLink, error)
	ProductionRecipes(ctx context.Context) ([]erp.ProductionRecipe, error)
	AssociationLinks(ctx context.Context) ([]erp.AssociationLink, error)

	SectionMarginTargets(ctx context.Context) ([]erp.SectionMarginTarget, error)

	// ProductIDsForBuyer returns the product set a buyer is responsible for.
	ProductIDsForBuyer(ctx context.Context, buyerID int) (map[int]bool, error)
}
