package erp_repo

import (
	"time"

	"github.com/shopspring/decimal"

	"mercatus/internal/domain/erp"
)

// Row structs exist so scany binds by the aliased logical names regardless of
// the deployment's physical column names. Nullable numerics scan as pointers
// and fold to zero in the domain mapping.

type purchaseLineRow struct {
	DocumentNumber string           `db:"document_number"`
	Series         string           `db:"series"`
	PartnerID      int              `db:"partner_id"`
	StoreID        int              `db:"store_id"`
	EntryDate      time.Time        `db:"entry_date"`
	Operation      int              `db:"operation"`
	ProductID      int              `db:"product_id"`
	Quantity       *decimal.Decimal `db:"quantity"`
	Value          *decimal.Decimal `db:"value"`
	FiscalCode     string           `db:"fiscal_code"`
}

func (r purchaseLineRow) toDomain() erp.PurchaseLine {
	return erp.PurchaseLine{
		DocumentNumber: r.DocumentNumber,
		Series:         r.Series,
		PartnerID:      r.PartnerID,
		StoreID:        r.StoreID,
		EntryDate:      r.EntryDate,
		Operation:      erp.OperationType(r.Operation),
		ProductID:      r.ProductID,
		Quantity:       deref(r.Quantity),
		Value:          deref(r.Value),
		FiscalCode:     r.FiscalCode,
	}
}

type saleLineRow struct {
	StoreID     int              `db:"store_id"`
	Date        time.Time        `db:"date"`
	ProductID   int              `db:"product_id"`
	Quantity    *decimal.Decimal `db:"quantity"`
	GrossValue  *decimal.Decimal `db:"gross_value"`
	ReplCost    *decimal.Decimal `db:"repl_cost"`
	TaxDebit    *decimal.Decimal `db:"tax_debit"`
	TaxCredit   *decimal.Decimal `db:"tax_credit"`
	ChannelCode int              `db:"channel_code"`
}

func (r saleLineRow) toDomain() erp.SaleLine {
	return erp.SaleLine{
		StoreID:     r.StoreID,
		Date:        r.Date,
		ProductID:   r.ProductID,
		Quantity:    deref(r.Quantity),
		GrossValue:  deref(r.GrossValue),
		ReplCost:    deref(r.ReplCost),
		TaxDebit:    deref(r.TaxDebit),
		TaxCredit:   deref(r.TaxCredit),
		ChannelCode: r.ChannelCode,
	}
}

type productRow struct {
	ID           int              `db:"id"`
	Description  string           `db:"description"`
	SectionID    int              `db:"section_id"`
	GroupID      int              `db:"group_id"`
	SubGroupID   int              `db:"subgroup_id"`
	PackQty      *decimal.Decimal `db:"pack_qty"`
	BonusRebate  bool             `db:"bonus_rebate"`
	StockQty     *decimal.Decimal `db:"stock_qty"`
	CoverageDays *decimal.Decimal `db:"coverage_days"`
}

func (r productRow) toDomain() erp.Product {
	return erp.Product{
		ID:             r.ID,
		Description:    r.Description,
		SectionID:      r.SectionID,
		GroupID:        r.GroupID,
		SubGroupID:     r.SubGroupID,
		PackQty:        deref(r.PackQty),
		HasBonusRebate: r.BonusRebate,
		StockQty:       deref(r.StockQty),
		CoverageDays:   deref(r.CoverageDays),
	}
}

type sectionRow struct {
	ID          int              `db:"id"`
	Description string           `db:"description"`
	MarginPct   *decimal.Decimal `db:"margin_pct"`
}

type groupRow struct {
	ID          int    `db:"id"`
	SectionID   int    `db:"section_id"`
	Description string `db:"description"`
}

type subGroupRow struct {
	ID          int    `db:"id"`
	SectionID   int    `db:"section_id"`
	GroupID     int    `db:"group_id"`
	Description string `db:"description"`
}

type lookupRow struct {
	ID          int    `db:"id"`
	Description string `db:"description"`
}

type decompositionRow struct {
	ParentID int             `db:"parent_id"`
	ChildID  int             `db:"child_id"`
	Pct      decimal.Decimal `db:"pct"`
}

type recipeRow struct {
	FinalID  int             `db:"final_id"`
	InsumoID int             `db:"insumo_id"`
	Factor   decimal.Decimal `db:"factor"`
}

type associationRow struct {
	SoldID int `db:"sold_id"`
	BaseID int `db:"base_id"`
}

type marginTargetRow struct {
	SectionID int             `db:"section_id"`
	StoreID   int             `db:"store_id"`
	TargetPct decimal.Decimal `db:"target_pct"`
}

func deref(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Decimal{}
	}
	return *d
}
