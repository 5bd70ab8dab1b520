package purchasesale

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"mercatus/internal/core/types"
	"mercatus/internal/domain/attribution"
	"mercatus/internal/domain/erp"
	"mercatus/internal/domain/hierarchy"
	"mercatus/pkg/logger"
)

var tracer = otel.Tracer("mercatus/purchasesale")

// ResultCache is an optional short-TTL cache over finished aggregations,
// keyed by the full filter. Entries expire, they are never partially updated.
type ResultCache interface {
	GetNodes(ctx context.Context, key string) ([]hierarchy.NodeResult, bool)
	SetNodes(ctx context.Context, key string, rows []hierarchy.NodeResult)
}

// Service runs drill-down queries against the raw ERP snapshot. It is
// stateless; every request re-reads, re-classifies and re-aggregates.
type Service struct {
	repo  Repository
	cache ResultCache
}

// NewService creates the query service. cache may be nil.
func NewService(repo Repository, cache ResultCache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Sections returns the aggregation at section level.
func (s *Service) Sections(ctx context.Context, f FilterSpec) ([]hierarchy.NodeResult, error) {
	return s.query(ctx, hierarchy.LevelSection, f)
}

// Groups returns the aggregation at group level within a section.
func (s *Service) Groups(ctx context.Context, f FilterSpec) ([]hierarchy.NodeResult, error) {
	return s.query(ctx, hierarchy.LevelGroup, f)
}

// SubGroups returns the aggregation at subgroup level within a group.
func (s *Service) SubGroups(ctx context.Context, f FilterSpec) ([]hierarchy.NodeResult, error) {
	return s.query(ctx, hierarchy.LevelSubGroup, f)
}

// Items returns the aggregation at item level within a subgroup.
func (s *Service) Items(ctx context.Context, f FilterSpec) ([]hierarchy.NodeResult, error) {
	return s.query(ctx, hierarchy.LevelItem, f)
}

// Totals reduces the section-level aggregation to one summed record with the
// ratios re-derived from the sums.
func (s *Service) Totals(ctx context.Context, f FilterSpec) (hierarchy.NodeResult, error) {
	rows, err := s.query(ctx, hierarchy.LevelSection, f)
	if err != nil {
		return hierarchy.NodeResult{}, err
	}
	return hierarchy.Totals(rows), nil
}

func (s *Service) query(ctx context.Context, level hierarchy.Level, f FilterSpec) ([]hierarchy.NodeResult, error) {
	if err := f.Validate(level); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "purchasesale.query")
	defer span.End()
	span.SetAttributes(attribute.String("level", level.String()))

	key := f.CacheKey("nodes", level)
	if s.cache != nil {
		if rows, ok := s.cache.GetNodes(ctx, key); ok {
			logger.Debug(ctx, "aggregation served from cache", "level", level.String())
			return rows, nil
		}
	}

	ds, err := s.load(ctx, f)
	if err != nil {
		return nil, err
	}

	in, ref, _ := s.assemble(f, ds)
	rows := hierarchy.Aggregate(level, f.Scope(), in, ref)

	if s.cache != nil {
		s.cache.SetNodes(ctx, key, rows)
	}
	logger.Info(ctx, "aggregation computed",
		"level", level.String(), "nodes", len(rows),
		"purchase_lines", len(ds.purchases), "sale_lines", len(ds.sales))
	return rows, nil
}

// dataset is one request's raw snapshot.
type dataset struct {
	purchases []erp.PurchaseLine
	sales     []erp.SaleLine
	products  map[int]erp.Product
	sections  map[int]erp.Section
	groups    map[int]erp.Group
	subgroups map[int]erp.SubGroup
	targets   []erp.SectionMarginTarget
	buyerSet  map[int]bool
	rels      attribution.Relationships
}

// load fetches every raw set the filter needs in parallel. Each fetch is
// pure; the merge below is the only synchronization point. If any fetch
// fails the whole request fails.
func (s *Service) load(ctx context.Context, f FilterSpec) (*dataset, error) {
	ctx, span := tracer.Start(ctx, "purchasesale.load")
	defer span.End()

	ds := &dataset{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		ds.purchases, err = s.repo.PurchaseLines(gctx, f.DateStart, f.DateEnd, f.StoreID)
		if err != nil {
			return fmt.Errorf("purchase lines: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		ds.sales, err = s.repo.SaleLines(gctx, f.DateStart, f.DateEnd, f.StoreID)
		if err != nil {
			return fmt.Errorf("sale lines: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		ds.products, err = s.repo.Products(gctx)
		if err != nil {
			return fmt.Errorf("products: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		ds.sections, err = s.repo.Sections(gctx)
		if err != nil {
			return fmt.Errorf("sections: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		ds.groups, err = s.repo.Groups(gctx, f.SectionID)
		if err != nil {
			return fmt.Errorf("groups: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		ds.subgroups, err = s.repo.SubGroups(gctx, f.SectionID, f.GroupID)
		if err != nil {
			return fmt.Errorf("subgroups: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		ds.targets, err = s.repo.SectionMarginTargets(gctx)
		if err != nil {
			return fmt.Errorf("margin targets: %w", err)
		}
		return nil
	})

	if f.BuyerID != 0 {
		g.Go(func() error {
			var err error
			ds.buyerSet, err = s.repo.ProductIDsForBuyer(gctx, f.BuyerID)
			if err != nil {
				return fmt.Errorf("buyer products: %w", err)
			}
			return nil
		})
	}

	if f.Decomposition == DecompositionChildrenOnly {
		if f.Mechanisms.Decomposition {
			g.Go(func() error {
				var err error
				ds.rels.Decompositions, err = s.repo.DecompositionLinks(gctx)
				if err != nil {
					return fmt.Errorf("decomposition links: %w", err)
				}
				return nil
			})
		}
		if f.Mechanisms.Production {
			g.Go(func() error {
				var err error
				ds.rels.Recipes, err = s.repo.ProductionRecipes(gctx)
				if err != nil {
					return fmt.Errorf("production recipes: %w", err)
				}
				return nil
			})
		}
		if f.Mechanisms.Association {
			g.Go(func() error {
				var err error
				ds.rels.Associations, err = s.repo.AssociationLinks(gctx)
				if err != nil {
					return fmt.Errorf("association links: %w", err)
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ds, nil
}

// assemble classifies the raw lines, runs attribution when the decomposition
// mode asks for it and produces the aggregator input plus the individual
// contribution rows. Flows are computed over the unscoped line sets: lending
// crosses taxonomy boundaries, the ancestor scope narrows node membership
// only.
func (s *Service) assemble(f FilterSpec, ds *dataset) (hierarchy.Input, hierarchy.Reference, []attribution.Contribution) {
	fiscalPass := f.Fiscal.Predicate()
	channelPass := f.Channels.Predicate()

	include := func(productID int) bool {
		if ds.buyerSet != nil && !ds.buyerSet[productID] {
			return false
		}
		if f.Bonus != BonusWith {
			p, ok := ds.products[productID]
			if !ok {
				return false
			}
			if f.Bonus == BonusWithout && p.HasBonusRebate {
				return false
			}
			if f.Bonus == BonusOnly && !p.HasBonusRebate {
				return false
			}
		}
		return true
	}

	// The attribution aggregates see every fiscal- and store-scoped line; the
	// product filters (buyer, bonus mode) narrow only what is displayed. A
	// parent outside the buyer's set still lends its purchase to the children.
	purchases := make(map[erp.ProductStore]erp.PurchaseTotal)
	attrPurchases := make(map[erp.ProductStore]erp.PurchaseTotal)
	for _, l := range ds.purchases {
		if l.Operation != erp.OperationEntry || !fiscalPass(l) {
			continue
		}
		k := erp.ProductStore{ProductID: l.ProductID, StoreID: l.StoreID}
		t := attrPurchases[k]
		t.Qty = t.Qty.Add(l.Quantity)
		t.Value = t.Value.Add(l.Value)
		attrPurchases[k] = t
		if include(l.ProductID) {
			purchases[k] = t
		}
	}

	sales := make(map[erp.ProductStore]erp.SaleTotal)
	attrSalesQty := make(map[erp.ProductStore]types.Money)
	for _, l := range ds.sales {
		if !channelPass(l) {
			continue
		}
		k := erp.ProductStore{ProductID: l.ProductID, StoreID: l.StoreID}
		attrSalesQty[k] = attrSalesQty[k].Add(l.Quantity)
		if !include(l.ProductID) {
			continue
		}
		t := sales[k]
		t.Qty = t.Qty.Add(l.Quantity)
		t.Gross = t.Gross.Add(l.GrossValue)
		t.Cost = t.Cost.Add(l.ReplCost.Mul(l.Quantity))
		t.TaxDebit = t.TaxDebit.Add(l.TaxDebit)
		t.TaxCredit = t.TaxCredit.Add(l.TaxCredit)
		sales[k] = t
	}

	var contribs []attribution.Contribution
	var flows map[erp.ProductStore]attribution.Flow
	if f.Decomposition == DecompositionChildrenOnly {
		contribs = attribution.Compute(f.Mechanisms, attrPurchases, attrSalesQty, ds.rels, ds.products)
		flows = attribution.SumFlows(contribs)
	}

	targets := make(map[erp.ProductStore]types.Money, len(ds.targets))
	for _, t := range ds.targets {
		targets[erp.ProductStore{ProductID: t.SectionID, StoreID: t.StoreID}] = t.TargetPct
	}

	in := hierarchy.Input{Purchases: purchases, Sales: sales, Flows: flows}
	ref := hierarchy.Reference{
		Products:      ds.products,
		Sections:      ds.sections,
		Groups:        ds.groups,
		SubGroups:     ds.subgroups,
		MarginTargets: targets,
	}
	return in, ref, contribs
}
