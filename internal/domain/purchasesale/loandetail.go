package purchasesale

import (
	"context"

	"mercatus/internal/core/apperror"
	"mercatus/internal/domain/attribution"
	"mercatus/internal/domain/erp"
	"mercatus/internal/domain/hierarchy"
)

// LoanDetail explains a node's lent or borrowed aggregate as the individual
// contributing relationships, grouped per mechanism. The lines come from the
// same contribution rows the aggregation folds, so their sum reproduces the
// aggregate exactly.
//
// The level/scope pair selects which products' flows are explained; productID
// narrows to a single item when non-zero.
func (s *Service) LoanDetail(ctx context.Context, f FilterSpec, level hierarchy.Level, dir attribution.Direction, productID int) (*LoanDetail, error) {
	if err := f.Validate(level); err != nil {
		return nil, err
	}
	if f.Decomposition != DecompositionChildrenOnly {
		return nil, apperror.NewValidation("loan detail requires children decomposition mode")
	}

	ctx, span := tracer.Start(ctx, "purchasesale.loanDetail")
	defer span.End()

	ds, err := s.load(ctx, f)
	if err != nil {
		return nil, err
	}
	in, _, contribs := s.assemble(f, ds)

	scope := f.Scope()
	inScope := func(id int) bool {
		if productID != 0 {
			return id == productID
		}
		p, ok := ds.products[id]
		return ok && scope.Contains(p)
	}

	detail := &LoanDetail{Direction: dir}
	groups := map[attribution.Mechanism]*LoanDetailGroup{}
	for _, c := range contribs {
		if c.Direction != dir || !inScope(c.Product()) {
			continue
		}
		// Same condition the aggregation applies: a flow shows up only on a
		// product with purchase or sale activity of its own.
		if !in.HasActivity(erp.ProductStore{ProductID: c.Product(), StoreID: c.StoreID}) {
			continue
		}
		g, ok := groups[c.Mechanism]
		if !ok {
			g = &LoanDetailGroup{Mechanism: c.Mechanism}
			groups[c.Mechanism] = g
		}
		g.Lines = append(g.Lines, LoanDetailLine{
			Mechanism:            c.Mechanism,
			OriginID:             c.OriginID,
			OriginDescription:    describe(ds, c.OriginID),
			DependentID:          c.DependentID,
			DependentDescription: describe(ds, c.DependentID),
			StoreID:              c.StoreID,
			Factor:               c.Factor,
			Value:                c.Value,
		})
		g.Total = g.Total.Add(c.Value)
		detail.GrandTotal = detail.GrandTotal.Add(c.Value)
	}

	for _, m := range []attribution.Mechanism{attribution.MechanismDecomposition, attribution.MechanismProduction, attribution.MechanismAssociation} {
		if g, ok := groups[m]; ok {
			detail.Mechanisms = append(detail.Mechanisms, *g)
		}
	}
	return detail, nil
}

func describe(ds *dataset, productID int) string {
	if p, ok := ds.products[productID]; ok {
		return p.Description
	}
	return ""
}
