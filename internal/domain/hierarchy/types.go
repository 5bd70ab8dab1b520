// Package hierarchy rolls raw purchase/sale totals and attribution flows up
// the product taxonomy (Section → Group → SubGroup → Item) and derives the
// ratio metrics. One parameterized aggregator serves all four levels through
// a per-level group-by key.
package hierarchy

import (
	"fmt"

	"mercatus/internal/core/types"
	"mercatus/internal/domain/attribution"
	"mercatus/internal/domain/erp"
)

// Level is the taxonomy depth of an aggregation.
type Level int

const (
	LevelSection Level = iota
	LevelGroup
	LevelSubGroup
	LevelItem
)

func (l Level) String() string {
	switch l {
	case LevelSection:
		return "section"
	case LevelGroup:
		return "group"
	case LevelSubGroup:
		return "subgroup"
	case LevelItem:
		return "item"
	default:
		return "unknown"
	}
}

// ParseLevel parses the wire form of a level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "section":
		return LevelSection, nil
	case "group":
		return LevelGroup, nil
	case "subgroup":
		return LevelSubGroup, nil
	case "item":
		return LevelItem, nil
	default:
		return 0, fmt.Errorf("unknown hierarchy level %q", s)
	}
}

// Key extracts the node a product's values accumulate on at this level.
func (l Level) Key(p erp.Product) int {
	switch l {
	case LevelSection:
		return p.SectionID
	case LevelGroup:
		return p.GroupID
	case LevelSubGroup:
		return p.SubGroupID
	default:
		return p.ID
	}
}

// Scope narrows a level to the ancestor ids a drill-down requires.
// Zero values mean unconstrained.
type Scope struct {
	SectionID  int
	GroupID    int
	SubGroupID int
}

// Contains reports whether a product falls under the scope.
func (s Scope) Contains(p erp.Product) bool {
	if s.SectionID != 0 && p.SectionID != s.SectionID {
		return false
	}
	if s.GroupID != 0 && p.GroupID != s.GroupID {
		return false
	}
	if s.SubGroupID != 0 && p.SubGroupID != s.SubGroupID {
		return false
	}
	return true
}

// NodeResult is one row of an aggregation: a taxonomy node in one store with
// raw sums, attribution flows and the derived ratios.
type NodeResult struct {
	Level       Level
	ID          int
	Description string
	StoreID     int

	PurchaseQty types.Money
	SaleQty     types.Money
	Purchase    types.Money
	SaleValue   types.Money
	CostOfSale  types.Money
	TaxDebit    types.Money
	TaxCredit   types.Money

	Lent             types.Money
	Borrowed         types.Money
	AdjustedPurchase types.Money // purchase − lent + borrowed

	MarkdownPct  types.Money
	ProfitPct    types.Money
	NetMarginPct types.Money
	MetaPct      types.Money
	Pct          types.Money
	DiffPct      types.Money
	DiffCurrency types.Money

	PurchaseSharePct types.Money
	SaleSharePct     types.Money

	// MarginTargetPct carries the section margin target (with per-store
	// override) on section-level rows; zero elsewhere.
	MarginTargetPct types.Money

	// Item-level passthrough from the product snapshot.
	StockQty     types.Money
	CoverageDays types.Money
}

// Reference is the lookup data the aggregator joins node descriptions and
// margin targets from.
type Reference struct {
	Products  map[int]erp.Product
	Sections  map[int]erp.Section
	Groups    map[int]erp.Group
	SubGroups map[int]erp.SubGroup

	// MarginTargets overrides the section default per store.
	MarginTargets map[erp.ProductStore]types.Money // keyed by (sectionID, storeID)
}

// Input is the merged raw material of one aggregation. All maps are keyed by
// (product, store); missing sides are treated as zero during the merge.
type Input struct {
	Purchases map[erp.ProductStore]erp.PurchaseTotal
	Sales     map[erp.ProductStore]erp.SaleTotal
	Flows     map[erp.ProductStore]attribution.Flow
}

// HasActivity reports whether the product/store key purchased or sold anything
// in the period.
func (in Input) HasActivity(ps erp.ProductStore) bool {
	if _, ok := in.Purchases[ps]; ok {
		return true
	}
	_, ok := in.Sales[ps]
	return ok
}
