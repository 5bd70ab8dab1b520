package hierarchy

import (
	"sort"

	"github.com/shopspring/decimal"

	"mercatus/internal/core/types"
	"mercatus/internal/domain/erp"
)

var hundred = decimal.NewFromInt(100)

// Aggregate folds purchases, sales and attribution flows onto taxonomy nodes
// at the given level, derives the ratio metrics and participation shares, and
// returns the rows ordered by sale value descending with zero-sale nodes last.
//
// Products absent from ref.Products are skipped: values cannot be placed on a
// node without the taxonomy path. Flows attach only to products with purchase
// or sale activity in the period; a product that merely lends or borrows never
// creates a node of its own.
func Aggregate(level Level, scope Scope, in Input, ref Reference) []NodeResult {
	type nodeKey struct {
		id    int
		store int
	}
	acc := make(map[nodeKey]*NodeResult)

	node := func(p erp.Product, store int) *NodeResult {
		k := nodeKey{id: level.Key(p), store: store}
		r, ok := acc[k]
		if !ok {
			r = &NodeResult{Level: level, ID: k.id, StoreID: store}
			acc[k] = r
		}
		return r
	}

	for ps, pt := range in.Purchases {
		p, ok := ref.Products[ps.ProductID]
		if !ok || !scope.Contains(p) {
			continue
		}
		r := node(p, ps.StoreID)
		r.PurchaseQty = r.PurchaseQty.Add(pt.Qty)
		r.Purchase = r.Purchase.Add(pt.Value)
	}
	for ps, st := range in.Sales {
		p, ok := ref.Products[ps.ProductID]
		if !ok || !scope.Contains(p) {
			continue
		}
		r := node(p, ps.StoreID)
		r.SaleQty = r.SaleQty.Add(st.Qty)
		r.SaleValue = r.SaleValue.Add(st.Gross)
		r.CostOfSale = r.CostOfSale.Add(st.Cost)
		r.TaxDebit = r.TaxDebit.Add(st.TaxDebit)
		r.TaxCredit = r.TaxCredit.Add(st.TaxCredit)
	}
	for ps, f := range in.Flows {
		if f.Lent.IsZero() && f.Borrowed.IsZero() {
			continue
		}
		if !in.HasActivity(ps) {
			continue
		}
		p, ok := ref.Products[ps.ProductID]
		if !ok || !scope.Contains(p) {
			continue
		}
		r := node(p, ps.StoreID)
		r.Lent = r.Lent.Add(f.Lent)
		r.Borrowed = r.Borrowed.Add(f.Borrowed)
	}

	results := make([]NodeResult, 0, len(acc))
	var totalPurchase, totalSale types.Money
	for _, r := range acc {
		r.AdjustedPurchase = r.Purchase.Sub(r.Lent).Add(r.Borrowed)
		deriveRatios(r)
		decorate(level, r, ref)
		totalPurchase = totalPurchase.Add(r.Purchase)
		totalSale = totalSale.Add(r.SaleValue)
		results = append(results, *r)
	}

	for i := range results {
		results[i].PurchaseSharePct = types.PercentOf(results[i].Purchase, totalPurchase)
		results[i].SaleSharePct = types.PercentOf(results[i].SaleValue, totalSale)
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.SaleValue.IsZero() != b.SaleValue.IsZero() {
			return !a.SaleValue.IsZero()
		}
		if !a.SaleValue.Equal(b.SaleValue) {
			return a.SaleValue.GreaterThan(b.SaleValue)
		}
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return a.StoreID < b.StoreID
	})
	return results
}

// deriveRatios fills the percentage metrics from the accumulated sums.
// Ratios over a non-positive denominator come out zero rather than poisoning
// the row.
func deriveRatios(r *NodeResult) {
	r.MarkdownPct = types.PercentOf(r.SaleValue.Sub(r.CostOfSale), r.SaleValue)
	net := r.SaleValue.Sub(r.CostOfSale).Sub(r.TaxDebit).Add(r.TaxCredit)
	r.ProfitPct = types.PercentOf(net, r.SaleValue)
	r.NetMarginPct = types.PercentOf(net, r.SaleValue.Sub(r.TaxDebit))
	r.MetaPct = types.PercentOf(r.CostOfSale, r.SaleValue)
	r.Pct = types.PercentOf(r.AdjustedPurchase, r.SaleValue)
	r.DiffPct = types.RoundPercent(r.MetaPct.Sub(r.Pct))
	r.DiffCurrency = r.CostOfSale.Sub(r.AdjustedPurchase).Round(2)
}

// decorate joins descriptions and level-specific passthrough fields.
func decorate(level Level, r *NodeResult, ref Reference) {
	switch level {
	case LevelSection:
		if s, ok := ref.Sections[r.ID]; ok {
			r.Description = s.Description
			r.MarginTargetPct = s.MarginTargetPct
		}
		if pct, ok := ref.MarginTargets[erp.ProductStore{ProductID: r.ID, StoreID: r.StoreID}]; ok {
			r.MarginTargetPct = pct
		}
	case LevelGroup:
		if g, ok := ref.Groups[r.ID]; ok {
			r.Description = g.Description
		}
	case LevelSubGroup:
		if sg, ok := ref.SubGroups[r.ID]; ok {
			r.Description = sg.Description
		}
	case LevelItem:
		if p, ok := ref.Products[r.ID]; ok {
			r.Description = p.Description
			r.StockQty = p.StockQty
			r.CoverageDays = p.CoverageDays
		}
	}
}

// Totals collapses aggregation rows into a single summary row. The ratio
// metrics are re-derived from the summed values, never averaged.
func Totals(rows []NodeResult) NodeResult {
	var t NodeResult
	for _, r := range rows {
		t.PurchaseQty = t.PurchaseQty.Add(r.PurchaseQty)
		t.SaleQty = t.SaleQty.Add(r.SaleQty)
		t.Purchase = t.Purchase.Add(r.Purchase)
		t.SaleValue = t.SaleValue.Add(r.SaleValue)
		t.CostOfSale = t.CostOfSale.Add(r.CostOfSale)
		t.TaxDebit = t.TaxDebit.Add(r.TaxDebit)
		t.TaxCredit = t.TaxCredit.Add(r.TaxCredit)
		t.Lent = t.Lent.Add(r.Lent)
		t.Borrowed = t.Borrowed.Add(r.Borrowed)
	}
	t.AdjustedPurchase = t.Purchase.Sub(t.Lent).Add(t.Borrowed)
	deriveRatios(&t)
	if len(rows) > 0 {
		t.PurchaseSharePct = types.RoundPercent(hundred)
		t.SaleSharePct = types.RoundPercent(hundred)
	}
	return t
}
