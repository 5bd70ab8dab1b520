package purchasesale

import (
	"context"
	"fmt"
	"sort"
)

// Lookups serves the flat id/description lists the filter screens consume.
// No attribution logic, pure passthrough to the data source.
type Lookups struct {
	repo Repository
}

// NewLookups creates the lookup service.
func NewLookups(repo Repository) *Lookups {
	return &Lookups{repo: repo}
}

func (l *Lookups) Sections(ctx context.Context) ([]LookupItem, error) {
	sections, err := l.repo.Sections(ctx)
	if err != nil {
		return nil, fmt.Errorf("sections: %w", err)
	}
	items := make([]LookupItem, 0, len(sections))
	for _, s := range sections {
		items = append(items, LookupItem{ID: s.ID, Description: s.Description})
	}
	sortLookup(items)
	return items, nil
}

func (l *Lookups) Groups(ctx context.Context, sectionID int) ([]LookupItem, error) {
	groups, err := l.repo.Groups(ctx, sectionID)
	if err != nil {
		return nil, fmt.Errorf("groups: %w", err)
	}
	items := make([]LookupItem, 0, len(groups))
	for _, g := range groups {
		items = append(items, LookupItem{ID: g.ID, Description: g.Description})
	}
	sortLookup(items)
	return items, nil
}

func (l *Lookups) SubGroups(ctx context.Context, sectionID, groupID int) ([]LookupItem, error) {
	subgroups, err := l.repo.SubGroups(ctx, sectionID, groupID)
	if err != nil {
		return nil, fmt.Errorf("subgroups: %w", err)
	}
	items := make([]LookupItem, 0, len(subgroups))
	for _, sg := range subgroups {
		items = append(items, LookupItem{ID: sg.ID, Description: sg.Description})
	}
	sortLookup(items)
	return items, nil
}

func (l *Lookups) Stores(ctx context.Context) ([]LookupItem, error) {
	stores, err := l.repo.Stores(ctx)
	if err != nil {
		return nil, fmt.Errorf("stores: %w", err)
	}
	items := make([]LookupItem, 0, len(stores))
	for _, s := range stores {
		items = append(items, LookupItem{ID: s.ID, Description: s.Description})
	}
	sortLookup(items)
	return items, nil
}

func (l *Lookups) Buyers(ctx context.Context) ([]LookupItem, error) {
	buyers, err := l.repo.Buyers(ctx)
	if err != nil {
		return nil, fmt.Errorf("buyers: %w", err)
	}
	items := make([]LookupItem, 0, len(buyers))
	for _, b := range buyers {
		items = append(items, LookupItem{ID: b.ID, Description: b.Description})
	}
	sortLookup(items)
	return items, nil
}

func sortLookup(items []LookupItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Description != items[j].Description {
			return items[i].Description < items[j].Description
		}
		return items[i].ID < items[j].ID
	})
}
