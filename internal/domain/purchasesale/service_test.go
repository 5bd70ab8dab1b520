package purchasesale

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercatus/internal/core/apperror"
	"mercatus/internal/core/types"
	"mercatus/internal/domain/attribution"
	"mercatus/internal/domain/classify"
	"mercatus/internal/domain/erp"
	"mercatus/internal/domain/hierarchy"
)

type fakeRepo struct {
	purchases []erp.PurchaseLine
	sales     []erp.SaleLine
	products  map[int]erp.Product
	sections  map[int]erp.Section
	groups    map[int]erp.Group
	subgroups map[int]erp.SubGroup
	stores    []erp.Store
	buyers    []erp.Buyer
	decomps   []erp.DecompositionLink
	recipes   []erp.ProductionRecipe
	assocs    []erp.AssociationLink
	targets   []erp.SectionMarginTarget
	buyerSet  map[int]bool
}

func (r *fakeRepo) PurchaseLines(_ context.Context, from, to time.Time, storeID int) ([]erp.PurchaseLine, error) {
	var out []erp.PurchaseLine
	for _, l := range r.purchases {
		if l.EntryDate.Before(from) || l.EntryDate.After(to) {
			continue
		}
		if storeID != 0 && l.StoreID != storeID {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *fakeRepo) SaleLines(_ context.Context, from, to time.Time, storeID int) ([]erp.SaleLine, error) {
	var out []erp.SaleLine
	for _, l := range r.sales {
		if l.Date.Before(from) || l.Date.After(to) {
			continue
		}
		if storeID != 0 && l.StoreID != storeID {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *fakeRepo) Products(context.Context) (map[int]erp.Product, error)  { return r.products, nil }
func (r *fakeRepo) Sections(context.Context) (map[int]erp.Section, error) { return r.sections, nil }
func (r *fakeRepo) Groups(_ context.Context, _ int) (map[int]erp.Group, error) {
	return r.groups, nil
}
func (r *fakeRepo) SubGroups(_ context.Context, _, _ int) (map[int]erp.SubGroup, error) {
	return r.subgroups, nil
}
func (r *fakeRepo) Stores(context.Context) ([]erp.Store, error) { return r.stores, nil }
func (r *fakeRepo) Buyers(context.Context) ([]erp.Buyer, error) { return r.buyers, nil }
func (r *fakeRepo) DecompositionLinks(context.Context) ([]erp.DecompositionLink, error) {
	return r.decomps, nil
}
func (r *fakeRepo) ProductionRecipes(context.Context) ([]erp.ProductionRecipe, error) {
	return r.recipes, nil
}
func (r *fakeRepo) AssociationLinks(context.Context) ([]erp.AssociationLink, error) {
	return r.assocs, nil
}
func (r *fakeRepo) SectionMarginTargets(context.Context) ([]erp.SectionMarginTarget, error) {
	return r.targets, nil
}
func (r *fakeRepo) ProductIDsForBuyer(context.Context, int) (map[int]bool, error) {
	return r.buyerSet, nil
}

func money(s string) types.Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func baseRepo() *fakeRepo {
	return &fakeRepo{
		products: map[int]erp.Product{
			1: {ID: 1, Description: "Parent Mix", SectionID: 1, GroupID: 10, SubGroupID: 100},
			2: {ID: 2, Description: "Child Cut A", SectionID: 1, GroupID: 10, SubGroupID: 100},
			3: {ID: 3, Description: "Child Cut B", SectionID: 1, GroupID: 10, SubGroupID: 100},
			4: {ID: 4, Description: "Bonus Snack", SectionID: 2, GroupID: 20, SubGroupID: 200, HasBonusRebate: true},
		},
		sections: map[int]erp.Section{
			1: {ID: 1, Description: "Butchery"},
			2: {ID: 2, Description: "Snacks"},
		},
		groups: map[int]erp.Group{
			10: {ID: 10, SectionID: 1, Description: "Beef"},
			20: {ID: 20, SectionID: 2, Description: "Chips"},
		},
		subgroups: map[int]erp.SubGroup{
			100: {ID: 100, SectionID: 1, GroupID: 10, Description: "Cuts"},
			200: {ID: 200, SectionID: 2, GroupID: 20, Description: "Salty"},
		},
		purchases: []erp.PurchaseLine{
			{StoreID: 1, EntryDate: date("2026-03-05"), Operation: erp.OperationEntry,
				ProductID: 1, Quantity: money("50"), Value: money("100.00"), FiscalCode: "1102"},
			{StoreID: 1, EntryDate: date("2026-03-10"), Operation: erp.OperationEntry,
				ProductID: 4, Quantity: money("30"), Value: money("90.00"), FiscalCode: "1910"},
		},
		sales: []erp.SaleLine{
			{StoreID: 1, Date: date("2026-03-06"), ProductID: 2, Quantity: money("10"),
				GrossValue: money("150.00"), ReplCost: money("8.00"), ChannelCode: 0},
			{StoreID: 1, Date: date("2026-03-07"), ProductID: 4, Quantity: money("5"),
				GrossValue: money("40.00"), ReplCost: money("4.00"), ChannelCode: 0},
		},
		decomps: []erp.DecompositionLink{
			{ParentID: 1, ChildID: 2, Pct: money("60")},
			{ParentID: 1, ChildID: 3, Pct: money("40")},
		},
	}
}

func baseFilter() FilterSpec {
	return FilterSpec{
		DateStart: date("2026-03-01"),
		DateEnd:   date("2026-03-31"),
	}
}

func TestValidationErrors(t *testing.T) {
	svc := NewService(baseRepo(), nil)
	ctx := context.Background()

	_, err := svc.Sections(ctx, FilterSpec{})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	f := baseFilter()
	f.DateStart, f.DateEnd = f.DateEnd, f.DateStart
	_, err = svc.Sections(ctx, f)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Groups(ctx, baseFilter())
	require.Error(t, err, "group level needs a section")
	assert.True(t, apperror.IsValidation(err))

	f = baseFilter()
	f.SectionID = 1
	_, err = svc.Items(ctx, f)
	require.Error(t, err, "item level needs the full ancestor path")
	assert.True(t, apperror.IsValidation(err))
}

func TestZeroFlowOutsideChildrenMode(t *testing.T) {
	svc := NewService(baseRepo(), nil)
	f := baseFilter()
	f.Mechanisms = attribution.EnableAll()

	for _, mode := range []DecompositionMode{DecompositionBoth, DecompositionParentOnly} {
		f.Decomposition = mode
		rows, err := svc.Sections(context.Background(), f)
		require.NoError(t, err)
		for _, r := range rows {
			assert.True(t, r.Lent.IsZero(), "mode %s", mode)
			assert.True(t, r.Borrowed.IsZero(), "mode %s", mode)
		}
	}
}

func TestChildrenModeMovesPurchase(t *testing.T) {
	svc := NewService(baseRepo(), nil)
	f := baseFilter()
	f.Decomposition = DecompositionChildrenOnly
	f.Mechanisms = attribution.EnableAll()
	f.SectionID = 1
	f.GroupID = 10
	f.SubGroupID = 100

	rows, err := svc.Items(context.Background(), f)
	require.NoError(t, err)

	byID := map[int]hierarchy.NodeResult{}
	for _, r := range rows {
		byID[r.ID] = r
	}
	require.Contains(t, byID, 1)
	require.Contains(t, byID, 2)
	assert.NotContains(t, byID, 3, "no purchase or sale of its own, flow alone makes no node")

	assert.True(t, byID[1].AdjustedPurchase.IsZero(), "parent lends everything")
	assert.True(t, byID[2].Borrowed.Equal(money("60.00")))
	assert.True(t, byID[2].AdjustedPurchase.Equal(money("60.00")))
}

func TestBuyerScopeKeepsFlowsFromForeignProducts(t *testing.T) {
	repo := baseRepo()
	repo.buyerSet = map[int]bool{2: true}
	svc := NewService(repo, nil)

	f := baseFilter()
	f.BuyerID = 7
	f.Decomposition = DecompositionChildrenOnly
	f.Mechanisms = attribution.EnableAll()
	f.SectionID = 1
	f.GroupID = 10
	f.SubGroupID = 100

	rows, err := svc.Items(context.Background(), f)
	require.NoError(t, err)

	byID := map[int]hierarchy.NodeResult{}
	for _, r := range rows {
		byID[r.ID] = r
	}
	require.Contains(t, byID, 2)
	assert.NotContains(t, byID, 1, "parent outside the buyer's set is not displayed")
	assert.True(t, byID[2].Borrowed.Equal(money("60.00")),
		"the parent still lends even though the buyer does not own it, got %s", byID[2].Borrowed)
	assert.True(t, byID[2].AdjustedPurchase.Equal(money("60.00")))
}

func TestLoanDetailMatchesAggregate(t *testing.T) {
	svc := NewService(baseRepo(), nil)
	f := baseFilter()
	f.Decomposition = DecompositionChildrenOnly
	f.Mechanisms = attribution.EnableAll()
	f.SectionID = 1
	f.GroupID = 10
	f.SubGroupID = 100

	rows, err := svc.Items(context.Background(), f)
	require.NoError(t, err)
	var totalBorrowed types.Money
	for _, r := range rows {
		totalBorrowed = totalBorrowed.Add(r.Borrowed)
	}

	detail, err := svc.LoanDetail(context.Background(), f, hierarchy.LevelItem, attribution.DirectionBorrowed, 0)
	require.NoError(t, err)
	assert.True(t, detail.GrandTotal.Equal(totalBorrowed),
		"detail total %s vs aggregate %s", detail.GrandTotal, totalBorrowed)

	require.Len(t, detail.Mechanisms, 1)
	g := detail.Mechanisms[0]
	assert.Equal(t, attribution.MechanismDecomposition, g.Mechanism)
	assert.Len(t, g.Lines, 1, "the idle child's line is dropped with its node")
	assert.True(t, g.Total.Equal(money("60.00")))
}

func TestLoanDetailRequiresChildrenMode(t *testing.T) {
	svc := NewService(baseRepo(), nil)
	f := baseFilter()
	f.Decomposition = DecompositionBoth

	_, err := svc.LoanDetail(context.Background(), f, hierarchy.LevelSection, attribution.DirectionLent, 0)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestFiscalSelectionNarrowsPurchases(t *testing.T) {
	svc := NewService(baseRepo(), nil)
	f := baseFilter()
	f.Fiscal = &classify.FiscalSelection{Purchase: true}

	rows, err := svc.Sections(context.Background(), f)
	require.NoError(t, err)

	for _, r := range rows {
		if r.ID == 2 {
			assert.True(t, r.Purchase.IsZero(), "bonus-coded purchase excluded")
		}
	}
}

func TestFiscalFailClosed(t *testing.T) {
	svc := NewService(baseRepo(), nil)
	f := baseFilter()
	f.Fiscal = &classify.FiscalSelection{}

	rows, err := svc.Sections(context.Background(), f)
	require.NoError(t, err, "empty include set is not an error")
	for _, r := range rows {
		assert.True(t, r.Purchase.IsZero())
	}
}

func TestReturnOperationsExcluded(t *testing.T) {
	repo := baseRepo()
	repo.purchases = append(repo.purchases, erp.PurchaseLine{
		StoreID: 1, EntryDate: date("2026-03-08"), Operation: erp.OperationReturn,
		ProductID: 1, Quantity: money("10"), Value: money("999.00"), FiscalCode: "1102",
	})
	svc := NewService(repo, nil)

	rows, err := svc.Sections(context.Background(), baseFilter())
	require.NoError(t, err)
	for _, r := range rows {
		if r.ID == 1 {
			assert.True(t, r.Purchase.Equal(money("100.00")), "return line ignored, got %s", r.Purchase)
		}
	}
}

func TestBonusModeFilters(t *testing.T) {
	svc := NewService(baseRepo(), nil)

	f := baseFilter()
	f.Bonus = BonusWithout
	rows, err := svc.Sections(context.Background(), f)
	require.NoError(t, err)
	for _, r := range rows {
		assert.NotEqual(t, 2, r.ID, "bonus-flagged section excluded")
	}

	f.Bonus = BonusOnly
	rows, err = svc.Sections(context.Background(), f)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].ID)
}

func TestBuyerScope(t *testing.T) {
	repo := baseRepo()
	repo.buyerSet = map[int]bool{4: true}
	svc := NewService(repo, nil)

	f := baseFilter()
	f.BuyerID = 7
	rows, err := svc.Sections(context.Background(), f)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].ID, "only the buyer's products remain")
}

func TestChannelSelectionNarrowsSales(t *testing.T) {
	repo := baseRepo()
	repo.sales = append(repo.sales, erp.SaleLine{
		StoreID: 1, Date: date("2026-03-09"), ProductID: 2, Quantity: money("3"),
		GrossValue: money("90.00"), ReplCost: money("8.00"), ChannelCode: 3,
	})
	svc := NewService(repo, nil)

	f := baseFilter()
	f.Channels = &classify.ChannelSelection{POS: true}
	rows, err := svc.Sections(context.Background(), f)
	require.NoError(t, err)
	for _, r := range rows {
		if r.ID == 1 {
			assert.True(t, r.SaleValue.Equal(money("150.00")), "transfer channel excluded, got %s", r.SaleValue)
		}
	}
}

func TestTotalsRederive(t *testing.T) {
	svc := NewService(baseRepo(), nil)

	total, err := svc.Totals(context.Background(), baseFilter())
	require.NoError(t, err)

	assert.True(t, total.Purchase.Equal(money("190.00")))
	assert.True(t, total.SaleValue.Equal(money("190.00")))
	want := total.CostOfSale.Sub(total.AdjustedPurchase).Round(2)
	assert.True(t, total.DiffCurrency.Equal(want))
	assert.True(t, total.DiffPct.Equal(total.MetaPct.Sub(total.Pct).Round(2)))
}

type memCache struct {
	nodes map[string][]hierarchy.NodeResult
	hits  int
}

func (c *memCache) GetNodes(_ context.Context, key string) ([]hierarchy.NodeResult, bool) {
	rows, ok := c.nodes[key]
	if ok {
		c.hits++
	}
	return rows, ok
}

func (c *memCache) SetNodes(_ context.Context, key string, rows []hierarchy.NodeResult) {
	c.nodes[key] = rows
}

func TestResultCacheRoundTrip(t *testing.T) {
	cache := &memCache{nodes: map[string][]hierarchy.NodeResult{}}
	svc := NewService(baseRepo(), cache)
	ctx := context.Background()

	first, err := svc.Sections(ctx, baseFilter())
	require.NoError(t, err)
	second, err := svc.Sections(ctx, baseFilter())
	require.NoError(t, err)

	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first, second)

	f := baseFilter()
	f.StoreID = 9
	_, err = svc.Sections(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits, "different filter, different key")
}
