// Package attribution computes the lent/borrowed value flows produced by the
// three product-relationship mechanisms: decomposition (a parent product's
// purchased cost split across children by fixed percentages), production (a
// final product's sales consuming insumo cost through a recipe) and
// association (a sold product defined as a pack of a base product).
//
// The engine emits one Contribution row per relationship and direction; flow
// aggregates are sums over those rows, so a detail listing and the aggregate
// it explains can never disagree.
package attribution

import (
	"github.com/shopspring/decimal"

	"mercatus/internal/core/types"
	"mercatus/internal/domain/erp"
)

// Mechanism identifies which relationship produced a flow.
type Mechanism int

const (
	MechanismDecomposition Mechanism = iota
	MechanismProduction
	MechanismAssociation
)

func (m Mechanism) String() string {
	switch m {
	case MechanismDecomposition:
		return "decomposition"
	case MechanismProduction:
		return "production"
	case MechanismAssociation:
		return "association"
	default:
		return "unknown"
	}
}

// Direction distinguishes the two sides of a value flow.
type Direction int

const (
	DirectionLent Direction = iota
	DirectionBorrowed
)

func (d Direction) String() string {
	if d == DirectionLent {
		return "lent"
	}
	return "borrowed"
}

// ParseDirection parses the wire form of a direction.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "lent":
		return DirectionLent, true
	case "borrowed":
		return DirectionBorrowed, true
	default:
		return 0, false
	}
}

// Config enables mechanisms individually. All three are independent and
// additive; a disabled mechanism contributes nothing.
type Config struct {
	Decomposition bool
	Production    bool
	Association   bool
}

// EnableAll returns a config with every mechanism on, the caller-facing
// default.
func EnableAll() Config {
	return Config{Decomposition: true, Production: true, Association: true}
}

// Contribution is one relationship's share of a flow, in one direction.
// Direction Lent attributes Value away from OriginID; Direction Borrowed
// attributes Value to DependentID. For the decomposition lent side the row
// covers the parent's whole purchase (DependentID is zero, Factor is the sum
// of the children's percentages).
type Contribution struct {
	Mechanism   Mechanism
	Direction   Direction
	StoreID     int
	OriginID    int
	DependentID int
	Factor      types.Money
	Value       types.Money
}

// Product returns the product the contribution attaches to: the origin for
// lent rows, the dependent for borrowed rows.
func (c Contribution) Product() int {
	if c.Direction == DirectionLent {
		return c.OriginID
	}
	return c.DependentID
}

// Flow is a node's two non-negative flow totals.
type Flow struct {
	Lent     types.Money
	Borrowed types.Money
}

// Relationships is the snapshot of the three relationship tables.
type Relationships struct {
	Decompositions []erp.DecompositionLink
	Recipes        []erp.ProductionRecipe
	Associations   []erp.AssociationLink
}

// Compute produces all contribution rows for the enabled mechanisms.
//
// purchases and salesQty are aggregates over the classifier-filtered line
// sets, keyed by (product, store). Unit costs derive from purchases; a zero
// purchased quantity yields a zero unit cost, never an error. Production and
// association flows pair sales and purchases of the same store.
func Compute(cfg Config, purchases map[erp.ProductStore]erp.PurchaseTotal, salesQty map[erp.ProductStore]types.Money, rels Relationships, products map[int]erp.Product) []Contribution {
	var out []Contribution
	if cfg.Decomposition {
		out = append(out, computeDecomposition(purchases, rels.Decompositions)...)
	}
	if cfg.Production {
		out = append(out, computeProduction(purchases, salesQty, rels.Recipes)...)
	}
	if cfg.Association {
		out = append(out, computeAssociation(purchases, salesQty, rels.Associations, products)...)
	}
	return out
}

// computeDecomposition: a parent with at least one link lends its full
// purchase value; each child borrows value × pct/100.
func computeDecomposition(purchases map[erp.ProductStore]erp.PurchaseTotal, links []erp.DecompositionLink) []Contribution {
	byParent := make(map[int][]erp.DecompositionLink)
	for _, l := range links {
		byParent[l.ParentID] = append(byParent[l.ParentID], l)
	}

	var out []Contribution
	for key, total := range purchases {
		children, ok := byParent[key.ProductID]
		if !ok || total.Value.IsZero() {
			continue
		}

		pctSum := decimal.Zero
		for _, l := range children {
			pctSum = pctSum.Add(l.Pct)
		}
		out = append(out, Contribution{
			Mechanism: MechanismDecomposition,
			Direction: DirectionLent,
			StoreID:   key.StoreID,
			OriginID:  key.ProductID,
			Factor:    pctSum,
			Value:     total.Value,
		})

		for _, l := range children {
			// Percentages are stored as 0..100 and are not normalized even
			// when they do not sum to 100 across a parent's children.
			out = append(out, Contribution{
				Mechanism:   MechanismDecomposition,
				Direction:   DirectionBorrowed,
				StoreID:     key.StoreID,
				OriginID:    key.ProductID,
				DependentID: l.ChildID,
				Factor:      l.Pct,
				Value:       total.Value.Mul(l.Pct).Div(decimal.NewFromInt(100)),
			})
		}
	}
	return out
}

// computeProduction: the flow is driven by sales of the final product, not by
// its purchases; it approximates cost of goods consumed to produce what was
// sold. The same magnitude is lent by the insumo and borrowed by the final.
func computeProduction(purchases map[erp.ProductStore]erp.PurchaseTotal, salesQty map[erp.ProductStore]types.Money, recipes []erp.ProductionRecipe) []Contribution {
	var out []Contribution
	for _, r := range recipes {
		for key, qtySold := range salesQty {
			if key.ProductID != r.FinalID || qtySold.IsZero() {
				continue
			}
			unitCost := purchases[erp.ProductStore{ProductID: r.InsumoID, StoreID: key.StoreID}].UnitCost()
			if unitCost.IsZero() {
				continue
			}
			value := qtySold.Mul(r.Factor).Mul(unitCost)
			out = append(out,
				Contribution{
					Mechanism:   MechanismProduction,
					Direction:   DirectionLent,
					StoreID:     key.StoreID,
					OriginID:    r.InsumoID,
					DependentID: r.FinalID,
					Factor:      r.Factor,
					Value:       value,
				},
				Contribution{
					Mechanism:   MechanismProduction,
					Direction:   DirectionBorrowed,
					StoreID:     key.StoreID,
					OriginID:    r.InsumoID,
					DependentID: r.FinalID,
					Factor:      r.Factor,
					Value:       value,
				},
			)
		}
	}
	return out
}

// computeAssociation: the sold product's pack quantity multiplies the base
// product's unit cost; the base lends, the sold product borrows.
func computeAssociation(purchases map[erp.ProductStore]erp.PurchaseTotal, salesQty map[erp.ProductStore]types.Money, links []erp.AssociationLink, products map[int]erp.Product) []Contribution {
	var out []Contribution
	for _, l := range links {
		packQty := decimal.NewFromInt(1)
		if p, ok := products[l.SoldID]; ok && !p.PackQty.IsZero() {
			packQty = p.PackQty
		}
		for key, qtySold := range salesQty {
			if key.ProductID != l.SoldID || qtySold.IsZero() {
				continue
			}
			unitCost := purchases[erp.ProductStore{ProductID: l.BaseID, StoreID: key.StoreID}].UnitCost()
			if unitCost.IsZero() {
				continue
			}
			value := qtySold.Mul(packQty).Mul(unitCost)
			out = append(out,
				Contribution{
					Mechanism:   MechanismAssociation,
					Direction:   DirectionLent,
					StoreID:     key.StoreID,
					OriginID:    l.BaseID,
					DependentID: l.SoldID,
					Factor:      packQty,
					Value:       value,
				},
				Contribution{
					Mechanism:   MechanismAssociation,
					Direction:   DirectionBorrowed,
					StoreID:     key.StoreID,
					OriginID:    l.BaseID,
					DependentID: l.SoldID,
					Factor:      packQty,
					Value:       value,
				},
			)
		}
	}
	return out
}

// SumFlows folds contributions into per-product flows. Lent rows accumulate on
// the origin, borrowed rows on the dependent; the merge is commutative and
// order-independent.
func SumFlows(contribs []Contribution) map[erp.ProductStore]Flow {
	flows := make(map[erp.ProductStore]Flow)
	for _, c := range contribs {
		key := erp.ProductStore{ProductID: c.Product(), StoreID: c.StoreID}
		f := flows[key]
		switch c.Direction {
		case DirectionLent:
			f.Lent = f.Lent.Add(c.Value)
		case DirectionBorrowed:
			f.Borrowed = f.Borrowed.Add(c.Value)
		}
		flows[key] = f
	}
	return flows
}
