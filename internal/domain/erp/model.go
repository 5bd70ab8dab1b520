// Package erp defines read-only snapshots of the retail chain's reference and
// transaction data. All values are immutable for the duration of one request;
// the engine never writes back.
package erp

import (
	"time"

	"mercatus/internal/core/types"
)

// OperationType distinguishes true purchase entries from returns on the
// document header.
type OperationType int

const (
	OperationEntry  OperationType = 0
	OperationReturn OperationType = 1
)

// Product is reference data: one taxonomy triple per product, enforced by the
// data source.
type Product struct {
	ID          int
	Description string
	SectionID   int
	GroupID     int
	SubGroupID  int

	// PackQty is the sale-pack quantity used by the association mechanism:
	// how many base-product units one sale-unit of this product represents.
	PackQty types.Money

	// HasBonusRebate marks products registered in the supplier bonus-rebate
	// table; drives the bonus-product filter mode.
	HasBonusRebate bool

	// Current stock passthrough for item-level drill-down.
	StockQty     types.Money
	CoverageDays types.Money
}

// Section is a top-level taxonomy node with a margin target percentage.
type Section struct {
	ID              int
	Description     string
	MarginTargetPct types.Money
}

// Group belongs to exactly one section.
type Group struct {
	ID          int
	Description string
	SectionID   int
}

// SubGroup belongs to exactly one (section, group) pair.
type SubGroup struct {
	ID          int
	Description string
	SectionID   int
	GroupID     int
}

// Store is a physical shop of the chain.
type Store struct {
	ID          int
	Description string
}

// Buyer is a purchasing responsible; products are assigned to buyers.
type Buyer struct {
	ID          int
	Description string
}

// SectionMarginTarget is a per-store override of the section margin target.
type SectionMarginTarget struct {
	SectionID int
	StoreID   int
	TargetPct types.Money
}

// PurchaseLine is one purchase document line joined with its header.
// Header identity is the composite (DocumentNumber, Series, PartnerID); the
// join that produced this line must have preserved all three.
type PurchaseLine struct {
	DocumentNumber string
	Series         string
	PartnerID      int
	StoreID        int
	EntryDate      time.Time
	Operation      OperationType

	ProductID  int
	Quantity   types.Money
	Value      types.Money
	FiscalCode string
}

// SaleLine is one sold product per ticket.
type SaleLine struct {
	StoreID     int
	Date        time.Time
	ProductID   int
	Quantity    types.Money
	GrossValue  types.Money
	ReplCost    types.Money // replacement cost per unit
	TaxDebit    types.Money
	TaxCredit   types.Money
	ChannelCode int
}

// DecompositionLink splits a parent product's purchased cost across children
// by fixed percentages. Percentages are not guaranteed to sum to 100 across a
// parent's children; the engine does not normalize.
type DecompositionLink struct {
	ParentID int
	ChildID  int
	Pct      types.Money // 0..100
}

// ProductionRecipe consumes Factor units of the insumo per sold unit of the
// final product.
type ProductionRecipe struct {
	FinalID  int
	InsumoID int
	Factor   types.Money
}

// AssociationLink defines a sold product as a multiple of a base product.
// The multiplier is the sold product's PackQty.
type AssociationLink struct {
	SoldID int
	BaseID int
}

// ProductStore keys per-product, per-store aggregates.
type ProductStore struct {
	ProductID int
	StoreID   int
}

// PurchaseTotal is a per-product/store purchase aggregate.
type PurchaseTotal struct {
	Qty   types.Money
	Value types.Money
}

// SaleTotal is a per-product/store sale aggregate.
type SaleTotal struct {
	Qty       types.Money
	Gross     types.Money
	Cost      types.Money // Σ replacement cost × quantity
	TaxDebit  types.Money
	TaxCredit types.Money
}

// UnitCost returns purchase value divided by quantity, zero when nothing was
// purchased.
func (p PurchaseTotal) UnitCost() types.Money {
	return types.SafeDiv(p.Value, p.Qty)
}
