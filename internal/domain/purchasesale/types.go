// Package purchasesale is the purchase-vs-sale reconciliation engine: it
// classifies raw ERP transactions, redistributes cost between related
// products and aggregates the result per taxonomy node.
package purchasesale

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"mercatus/internal/core/apperror"
	"mercatus/internal/core/types"
	"mercatus/internal/domain/attribution"
	"mercatus/internal/domain/classify"
	"mercatus/internal/domain/hierarchy"
)

// BonusMode controls how bonus/rebate-flagged products participate.
type BonusMode int

const (
	BonusWith    BonusMode = iota // include everything
	BonusWithout                  // exclude bonus-flagged products
	BonusOnly                     // only bonus-flagged products
)

func (m BonusMode) String() string {
	switch m {
	case BonusWithout:
		return "without"
	case BonusOnly:
		return "only"
	default:
		return "with"
	}
}

// ParseBonusMode parses the wire form; empty means the inclusive default.
func ParseBonusMode(s string) (BonusMode, error) {
	switch s {
	case "", "with":
		return BonusWith, nil
	case "without":
		return BonusWithout, nil
	case "only":
		return BonusOnly, nil
	default:
		return 0, fmt.Errorf("unknown bonus mode %q", s)
	}
}

// DecompositionMode controls on which side of the parent/child relation
// purchase values settle. Attribution flows exist only in children mode.
type DecompositionMode int

const (
	DecompositionBoth DecompositionMode = iota
	DecompositionParentOnly
	DecompositionChildrenOnly
)

func (m DecompositionMode) String() string {
	switch m {
	case DecompositionParentOnly:
		return "parent"
	case DecompositionChildrenOnly:
		return "children"
	default:
		return "both"
	}
}

// ParseDecompositionMode parses the wire form; empty means both.
func ParseDecompositionMode(s string) (DecompositionMode, error) {
	switch s {
	case "", "both":
		return DecompositionBoth, nil
	case "parent":
		return DecompositionParentOnly, nil
	case "children":
		return DecompositionChildrenOnly, nil
	default:
		return 0, fmt.Errorf("unknown decomposition mode %q", s)
	}
}

// FilterSpec carries every knob a drill-down query accepts. The zero value
// of an optional field means unconstrained.
type FilterSpec struct {
	DateStart time.Time
	DateEnd   time.Time

	StoreID    int
	BuyerID    int
	SectionID  int
	GroupID    int
	SubGroupID int

	Fiscal   *classify.FiscalSelection
	Channels *classify.ChannelSelection

	Bonus         BonusMode
	Decomposition DecompositionMode
	Mechanisms    attribution.Config
}

// Validate checks the required date range and the ancestor scope the
// requested level demands. Failures are client errors.
func (f FilterSpec) Validate(level hierarchy.Level) error {
	if f.DateStart.IsZero() || f.DateEnd.IsZero() {
		return apperror.NewValidation("dateStart and dateEnd are required")
	}
	if f.DateEnd.Before(f.DateStart) {
		return apperror.NewValidation("dateEnd must not precede dateStart")
	}
	switch level {
	case hierarchy.LevelGroup:
		if f.SectionID == 0 {
			return apperror.NewValidation("section is required for group level")
		}
	case hierarchy.LevelSubGroup:
		if f.SectionID == 0 || f.GroupID == 0 {
			return apperror.NewValidation("section and group are required for subgroup level")
		}
	case hierarchy.LevelItem:
		if f.SectionID == 0 || f.GroupID == 0 || f.SubGroupID == 0 {
			return apperror.NewValidation("section, group and subgroup are required for item level")
		}
	}
	return nil
}

// Scope projects the ancestor constraints for the aggregator.
func (f FilterSpec) Scope() hierarchy.Scope {
	return hierarchy.Scope{SectionID: f.SectionID, GroupID: f.GroupID, SubGroupID: f.SubGroupID}
}

// CacheKey derives a stable key over the full filter and level. Two requests
// with identical parameters share one cache slot.
func (f FilterSpec) CacheKey(kind string, level hierarchy.Level) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s|%s", kind, level, f.DateStart.Format("2006-01-02"), f.DateEnd.Format("2006-01-02"))
	fmt.Fprintf(&b, "|st:%d|by:%d|sc:%d|gr:%d|sg:%d", f.StoreID, f.BuyerID, f.SectionID, f.GroupID, f.SubGroupID)
	if f.Fiscal != nil {
		fmt.Fprintf(&b, "|fi:%t%t%t", f.Fiscal.Purchase, f.Fiscal.Bonus, f.Fiscal.Other)
	}
	if f.Channels != nil {
		fmt.Fprintf(&b, "|ch:%t%t%t%t", f.Channels.POS, f.Channels.CustomerInvoice, f.Channels.CounterSale, f.Channels.TransferInvoice)
	}
	fmt.Fprintf(&b, "|bo:%s|de:%s|me:%t%t%t", f.Bonus, f.Decomposition,
		f.Mechanisms.Decomposition, f.Mechanisms.Production, f.Mechanisms.Association)
	sum := sha256.Sum256([]byte(b.String()))
	return "pxv:" + hex.EncodeToString(sum[:16])
}

// LoanDetailLine is one contributing relationship of a loan aggregate.
type LoanDetailLine struct {
	Mechanism            attribution.Mechanism
	OriginID             int
	OriginDescription    string
	DependentID          int
	DependentDescription string
	StoreID              int
	Factor               types.Money
	Value                types.Money
}

// LoanDetailGroup is the per-mechanism section of a loan detail response.
type LoanDetailGroup struct {
	Mechanism attribution.Mechanism
	Lines     []LoanDetailLine
	Total     types.Money
}

// LoanDetail is the full explainer response.
type LoanDetail struct {
	Direction  attribution.Direction
	Mechanisms []LoanDetailGroup
	GrandTotal types.Money
}

// LookupItem is one row of a flat lookup list.
type LookupItem struct {
	ID          int
	Description string
}
