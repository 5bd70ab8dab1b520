// Package dto defines the wire representations of the v1 API. Monetary and
// percentage values serialize as fixed-point strings with 2 fractional
// digits.
package dto

import (
	"time"

	"mercatus/internal/core/apperror"
	"mercatus/internal/core/types"
	"mercatus/internal/domain/attribution"
	"mercatus/internal/domain/classify"
	"mercatus/internal/domain/hierarchy"
	"mercatus/internal/domain/purchasesale"
)

const dateLayout = "2006-01-02"

// PurchaseSaleRequest is the query surface shared by all drill-down levels.
// The fiscal and channel flag groups are tri-state: absent means "no
// preference", any present flag makes the group an explicit include set.
type PurchaseSaleRequest struct {
	DateStart string `form:"dateStart"`
	DateEnd   string `form:"dateEnd"`

	Store    int `form:"storeId"`
	Buyer    int `form:"buyerId"`
	Section  int `form:"sectionId"`
	Group    int `form:"groupId"`
	SubGroup int `form:"subGroupId"`

	FiscalPurchase *bool `form:"fiscalPurchase"`
	FiscalBonus    *bool `form:"fiscalBonus"`
	FiscalOther    *bool `form:"fiscalOther"`

	ChannelPOS             *bool `form:"channelPos"`
	ChannelCustomerInvoice *bool `form:"channelCustomerInvoice"`
	ChannelCounterSale     *bool `form:"channelCounterSale"`
	ChannelTransferInvoice *bool `form:"channelTransferInvoice"`

	BonusMode         string `form:"bonusMode"`
	DecompositionMode string `form:"decompositionMode"`

	Decomposition *bool `form:"decomposition"`
	Production    *bool `form:"production"`
	Association   *bool `form:"association"`
}

// ToFilterSpec converts the wire request into the domain filter.
func (r PurchaseSaleRequest) ToFilterSpec() (purchasesale.FilterSpec, error) {
	var f purchasesale.FilterSpec

	if r.DateStart != "" {
		start, err := time.Parse(dateLayout, r.DateStart)
		if err != nil {
			return f, apperror.NewValidation("invalid dateStart, expected YYYY-MM-DD")
		}
		f.DateStart = start
	}
	if r.DateEnd != "" {
		end, err := time.Parse(dateLayout, r.DateEnd)
		if err != nil {
			return f, apperror.NewValidation("invalid dateEnd, expected YYYY-MM-DD")
		}
		f.DateEnd = end
	}

	f.StoreID = r.Store
	f.BuyerID = r.Buyer
	f.SectionID = r.Section
	f.GroupID = r.Group
	f.SubGroupID = r.SubGroup

	if r.FiscalPurchase != nil || r.FiscalBonus != nil || r.FiscalOther != nil {
		f.Fiscal = &classify.FiscalSelection{
			Purchase: boolVal(r.FiscalPurchase),
			Bonus:    boolVal(r.FiscalBonus),
			Other:    boolVal(r.FiscalOther),
		}
	}
	if r.ChannelPOS != nil || r.ChannelCustomerInvoice != nil || r.ChannelCounterSale != nil || r.ChannelTransferInvoice != nil {
		f.Channels = &classify.ChannelSelection{
			POS:             boolVal(r.ChannelPOS),
			CustomerInvoice: boolVal(r.ChannelCustomerInvoice),
			CounterSale:     boolVal(r.ChannelCounterSale),
			TransferInvoice: boolVal(r.ChannelTransferInvoice),
		}
	}

	bonus, err := purchasesale.ParseBonusMode(r.BonusMode)
	if err != nil {
		return f, apperror.NewValidation(err.Error())
	}
	f.Bonus = bonus

	mode, err := purchasesale.ParseDecompositionMode(r.DecompositionMode)
	if err != nil {
		return f, apperror.NewValidation(err.Error())
	}
	f.Decomposition = mode

	// Mechanism toggles default to on; flows still require children mode.
	f.Mechanisms = attribution.Config{
		Decomposition: r.Decomposition == nil || *r.Decomposition,
		Production:    r.Production == nil || *r.Production,
		Association:   r.Association == nil || *r.Association,
	}
	return f, nil
}

func boolVal(b *bool) bool {
	return b != nil && *b
}

// NodeResultResponse is one aggregation row on the wire.
type NodeResultResponse struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
	StoreID     int    `json:"storeId,omitempty"`

	PurchaseQty string `json:"purchaseQty"`
	SaleQty     string `json:"saleQty"`
	Purchase    string `json:"purchase"`
	SaleValue   string `json:"saleValue"`
	CostOfSale  string `json:"costOfSale"`
	TaxDebit    string `json:"taxDebit"`
	TaxCredit   string `json:"taxCredit"`

	Lent             string `json:"lent"`
	Borrowed         string `json:"borrowed"`
	AdjustedPurchase string `json:"adjustedPurchase"`

	MarkdownPct  string `json:"markdownPct"`
	ProfitPct    string `json:"profitPct"`
	NetMarginPct string `json:"netMarginPct"`
	MetaPct      string `json:"metaPct"`
	Pct          string `json:"pct"`
	DiffPct      string `json:"diffPct"`
	DiffCurrency string `json:"diffCurrency"`

	PurchaseSharePct string `json:"purchaseSharePct"`
	SaleSharePct     string `json:"saleSharePct"`

	MarginTargetPct string `json:"marginTargetPct,omitempty"`
	StockQty        string `json:"stockQty,omitempty"`
	CoverageDays    string `json:"coverageDays,omitempty"`
}

// FromNodeResult converts one aggregation row.
func FromNodeResult(r hierarchy.NodeResult) NodeResultResponse {
	resp := NodeResultResponse{
		ID:          r.ID,
		Description: r.Description,
		StoreID:     r.StoreID,

		PurchaseQty: fixed(r.PurchaseQty),
		SaleQty:     fixed(r.SaleQty),
		Purchase:    fixed(r.Purchase),
		SaleValue:   fixed(r.SaleValue),
		CostOfSale:  fixed(r.CostOfSale),
		TaxDebit:    fixed(r.TaxDebit),
		TaxCredit:   fixed(r.TaxCredit),

		Lent:             fixed(r.Lent),
		Borrowed:         fixed(r.Borrowed),
		AdjustedPurchase: fixed(r.AdjustedPurchase),

		MarkdownPct:  fixed(r.MarkdownPct),
		ProfitPct:    fixed(r.ProfitPct),
		NetMarginPct: fixed(r.NetMarginPct),
		MetaPct:      fixed(r.MetaPct),
		Pct:          fixed(r.Pct),
		DiffPct:      fixed(r.DiffPct),
		DiffCurrency: fixed(r.DiffCurrency),

		PurchaseSharePct: fixed(r.PurchaseSharePct),
		SaleSharePct:     fixed(r.SaleSharePct),
	}
	if !r.MarginTargetPct.IsZero() {
		resp.MarginTargetPct = fixed(r.MarginTargetPct)
	}
	if r.Level == hierarchy.LevelItem {
		resp.StockQty = fixed(r.StockQty)
		resp.CoverageDays = fixed(r.CoverageDays)
	}
	return resp
}

// NodeListResponse is the drill-down list payload.
type NodeListResponse struct {
	Level string               `json:"level"`
	Items []NodeResultResponse `json:"items"`
	Count int                  `json:"count"`
}

// FromNodeResults converts the full ordered list.
func FromNodeResults(level hierarchy.Level, rows []hierarchy.NodeResult) NodeListResponse {
	items := make([]NodeResultResponse, len(rows))
	for i, r := range rows {
		items[i] = FromNodeResult(r)
	}
	return NodeListResponse{Level: level.String(), Items: items, Count: len(items)}
}

// LoanDetailLineResponse is one contributing relationship on the wire.
type LoanDetailLineResponse struct {
	OriginID             int    `json:"originId"`
	OriginDescription    string `json:"originDescription,omitempty"`
	DependentID          int    `json:"dependentId,omitempty"`
	DependentDescription string `json:"dependentDescription,omitempty"`
	StoreID              int    `json:"storeId,omitempty"`
	Factor               string `json:"factor"`
	Value                string `json:"value"`
}

// LoanDetailGroupResponse is the per-mechanism block.
type LoanDetailGroupResponse struct {
	Mechanism string                   `json:"mechanism"`
	Lines     []LoanDetailLineResponse `json:"lines"`
	Total     string                   `json:"total"`
}

// LoanDetailResponse is the explainer payload.
type LoanDetailResponse struct {
	Direction  string                    `json:"direction"`
	Mechanisms []LoanDetailGroupResponse `json:"mechanisms"`
	GrandTotal string                    `json:"grandTotal"`
}

// FromLoanDetail converts the explainer result.
func FromLoanDetail(d *purchasesale.LoanDetail) LoanDetailResponse {
	resp := LoanDetailResponse{
		Direction:  d.Direction.String(),
		GrandTotal: fixed(d.GrandTotal),
	}
	for _, g := range d.Mechanisms {
		group := LoanDetailGroupResponse{
			Mechanism: g.Mechanism.String(),
			Total:     fixed(g.Total),
		}
		for _, l := range g.Lines {
			group.Lines = append(group.Lines, LoanDetailLineResponse{
				OriginID:             l.OriginID,
				OriginDescription:    l.OriginDescription,
				DependentID:          l.DependentID,
				DependentDescription: l.DependentDescription,
				StoreID:              l.StoreID,
				Factor:               l.Factor.String(),
				Value:                fixed(l.Value),
			})
		}
		resp.Mechanisms = append(resp.Mechanisms, group)
	}
	return resp
}

// LookupItemResponse is one row of a lookup list.
type LookupItemResponse struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// FromLookupItems converts a lookup list.
func FromLookupItems(items []purchasesale.LookupItem) []LookupItemResponse {
	out := make([]LookupItemResponse, len(items))
	for i, item := range items {
		out[i] = LookupItemResponse{ID: item.ID, Description: item.Description}
	}
	return out
}

func fixed(m types.Money) string {
	return m.StringFixed(2)
}
