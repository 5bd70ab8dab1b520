package attribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercatus/internal/core/types"
	"mercatus/internal/domain/erp"
)

func key(product, store int) erp.ProductStore {
	return erp.ProductStore{ProductID: product, StoreID: store}
}

func money(s string) types.Money { return types.MustMoney(s) }

// Parent purchase of 100.00 split 60/40 across two children: the parent lends
// the full value, each child borrows its percentage share.
func TestDecomposition(t *testing.T) {
	purchases := map[erp.ProductStore]erp.PurchaseTotal{
		key(1, 1): {Qty: money("10"), Value: money("100.00")},
	}
	rels := Relationships{
		Decompositions: []erp.DecompositionLink{
			{ParentID: 1, ChildID: 2, Pct: money("60")},
			{ParentID: 1, ChildID: 3, Pct: money("40")},
		},
	}

	contribs := Compute(Config{Decomposition: true}, purchases, nil, rels, nil)
	flows := SumFlows(contribs)

	assert.True(t, flows[key(1, 1)].Lent.Equal(money("100.00")), "lent parent: %s", flows[key(1, 1)].Lent)
	assert.True(t, flows[key(2, 1)].Borrowed.Equal(money("60.00")), "borrowed child1: %s", flows[key(2, 1)].Borrowed)
	assert.True(t, flows[key(3, 1)].Borrowed.Equal(money("40.00")), "borrowed child2: %s", flows[key(3, 1)].Borrowed)
	assert.True(t, flows[key(1, 1)].Borrowed.IsZero())
}

// Percentages under 100 are taken as stored, never normalized.
func TestDecomposition_PartialAllocation(t *testing.T) {
	purchases := map[erp.ProductStore]erp.PurchaseTotal{
		key(1, 1): {Qty: money("1"), Value: money("200.00")},
	}
	rels := Relationships{
		Decompositions: []erp.DecompositionLink{
			{ParentID: 1, ChildID: 2, Pct: money("30")},
		},
	}

	flows := SumFlows(Compute(Config{Decomposition: true}, purchases, nil, rels, nil))

	assert.True(t, flows[key(1, 1)].Lent.Equal(money("200.00")))
	assert.True(t, flows[key(2, 1)].Borrowed.Equal(money("60.00")))
}

// A parent with no purchases in the period produces no flow at all.
func TestDecomposition_NoPurchase(t *testing.T) {
	rels := Relationships{
		Decompositions: []erp.DecompositionLink{{ParentID: 1, ChildID: 2, Pct: money("50")}},
	}
	contribs := Compute(Config{Decomposition: true}, nil, nil, rels, nil)
	assert.Empty(t, contribs)
}

// Final sells 10 units, recipe factor 0.5, insumo bought 100 units for 200.00
// (unit cost 2.00): both sides carry 10×0.5×2.00 = 10.00.
func TestProduction(t *testing.T) {
	purchases := map[erp.ProductStore]erp.PurchaseTotal{
		key(7, 1): {Qty: money("100"), Value: money("200.00")},
	}
	sales := map[erp.ProductStore]types.Money{
		key(9, 1): money("10"),
	}
	rels := Relationships{
		Recipes: []erp.ProductionRecipe{{FinalID: 9, InsumoID: 7, Factor: money("0.5")}},
	}

	flows := SumFlows(Compute(Config{Production: true}, purchases, sales, rels, nil))

	assert.True(t, flows[key(7, 1)].Lent.Equal(money("10.00")), "lent insumo: %s", flows[key(7, 1)].Lent)
	assert.True(t, flows[key(9, 1)].Borrowed.Equal(money("10.00")), "borrowed final: %s", flows[key(9, 1)].Borrowed)
}

// Zero purchased quantity means zero unit cost: no flow, no error.
func TestProduction_ZeroUnitCost(t *testing.T) {
	purchases := map[erp.ProductStore]erp.PurchaseTotal{
		key(7, 1): {Qty: money("0"), Value: money("0")},
	}
	sales := map[erp.ProductStore]types.Money{key(9, 1): money("10")}
	rels := Relationships{
		Recipes: []erp.ProductionRecipe{{FinalID: 9, InsumoID: 7, Factor: money("0.5")}},
	}

	contribs := Compute(Config{Production: true}, purchases, sales, rels, nil)
	assert.Empty(t, contribs)
}

// Production pairs sales and insumo purchases of the same store only.
func TestProduction_StoreIsolation(t *testing.T) {
	purchases := map[erp.ProductStore]erp.PurchaseTotal{
		key(7, 1): {Qty: money("10"), Value: money("20.00")},
	}
	sales := map[erp.ProductStore]types.Money{
		key(9, 2): money("5"), // other store: no insumo cost there
	}
	rels := Relationships{
		Recipes: []erp.ProductionRecipe{{FinalID: 9, InsumoID: 7, Factor: money("1")}},
	}

	contribs := Compute(Config{Production: true}, purchases, sales, rels, nil)
	assert.Empty(t, contribs)
}

// Sold product with pack quantity 6 over a base bought at 0.50/unit, selling
// 20 units: 20×6×0.50 = 60.00 on both sides.
func TestAssociation(t *testing.T) {
	purchases := map[erp.ProductStore]erp.PurchaseTotal{
		key(4, 1): {Qty: money("1000"), Value: money("500.00")},
	}
	sales := map[erp.ProductStore]types.Money{
		key(5, 1): money("20"),
	}
	rels := Relationships{
		Associations: []erp.AssociationLink{{SoldID: 5, BaseID: 4}},
	}
	products := map[int]erp.Product{
		5: {ID: 5, PackQty: money("6")},
	}

	flows := SumFlows(Compute(Config{Association: true}, purchases, sales, rels, products))

	assert.True(t, flows[key(4, 1)].Lent.Equal(money("60.00")), "lent base: %s", flows[key(4, 1)].Lent)
	assert.True(t, flows[key(5, 1)].Borrowed.Equal(money("60.00")), "borrowed sold: %s", flows[key(5, 1)].Borrowed)
}

// Missing or zero pack quantity defaults to 1.
func TestAssociation_DefaultPackQty(t *testing.T) {
	purchases := map[erp.ProductStore]erp.PurchaseTotal{
		key(4, 1): {Qty: money("10"), Value: money("30.00")},
	}
	sales := map[erp.ProductStore]types.Money{key(5, 1): money("2")}
	rels := Relationships{Associations: []erp.AssociationLink{{SoldID: 5, BaseID: 4}}}

	flows := SumFlows(Compute(Config{Association: true}, purchases, sales, rels, nil))
	assert.True(t, flows[key(5, 1)].Borrowed.Equal(money("6.00")))
}

// Mechanisms are independent and additive: a product acting as production
// insumo and association base at once accumulates both lent flows. The sum is
// unconditional; this pins the behavior against accidental dedup.
func TestCrossMechanismDoubleCounting(t *testing.T) {
	purchases := map[erp.ProductStore]erp.PurchaseTotal{
		key(7, 1): {Qty: money("100"), Value: money("200.00")}, // unit cost 2.00
	}
	sales := map[erp.ProductStore]types.Money{
		key(9, 1): money("10"),
	}
	rels := Relationships{
		Recipes:      []erp.ProductionRecipe{{FinalID: 9, InsumoID: 7, Factor: money("0.5")}},
		Associations: []erp.AssociationLink{{SoldID: 9, BaseID: 7}},
	}
	products := map[int]erp.Product{9: {ID: 9, PackQty: money("1")}}

	flows := SumFlows(Compute(EnableAll(), purchases, sales, rels, products))

	// production 10×0.5×2.00 = 10.00 plus association 10×1×2.00 = 20.00
	assert.True(t, flows[key(7, 1)].Lent.Equal(money("30.00")), "lent: %s", flows[key(7, 1)].Lent)
	assert.True(t, flows[key(9, 1)].Borrowed.Equal(money("30.00")), "borrowed: %s", flows[key(9, 1)].Borrowed)
}

// Disabled mechanisms contribute nothing even when relationships exist.
func TestDisabledMechanisms(t *testing.T) {
	purchases := map[erp.ProductStore]erp.PurchaseTotal{
		key(1, 1): {Qty: money("10"), Value: money("100.00")},
	}
	rels := Relationships{
		Decompositions: []erp.DecompositionLink{{ParentID: 1, ChildID: 2, Pct: money("50")}},
	}

	contribs := Compute(Config{}, purchases, nil, rels, nil)
	assert.Empty(t, contribs)
}

// Summing detail rows by direction reproduces the flow aggregates exactly.
func TestSumFlowsMatchesContributions(t *testing.T) {
	purchases := map[erp.ProductStore]erp.PurchaseTotal{
		key(1, 1): {Qty: money("10"), Value: money("100.00")},
		key(7, 1): {Qty: money("100"), Value: money("200.00")},
	}
	sales := map[erp.ProductStore]types.Money{key(9, 1): money("10")}
	rels := Relationships{
		Decompositions: []erp.DecompositionLink{
			{ParentID: 1, ChildID: 2, Pct: money("60")},
			{ParentID: 1, ChildID: 3, Pct: money("40")},
		},
		Recipes: []erp.ProductionRecipe{{FinalID: 9, InsumoID: 7, Factor: money("0.5")}},
	}

	contribs := Compute(EnableAll(), purchases, sales, rels, nil)
	require.NotEmpty(t, contribs)
	flows := SumFlows(contribs)

	for wantKey, want := range flows {
		lent, borrowed := money("0"), money("0")
		for _, c := range contribs {
			if c.Product() != wantKey.ProductID || c.StoreID != wantKey.StoreID {
				continue
			}
			if c.Direction == DirectionLent {
				lent = lent.Add(c.Value)
			} else {
				borrowed = borrowed.Add(c.Value)
			}
		}
		assert.True(t, want.Lent.Equal(lent))
		assert.True(t, want.Borrowed.Equal(borrowed))
	}
}
