// Package classify labels raw transactions using the chain's fixed
// fiscal-operation and sale-channel code sets, and builds the inclusion
// predicates a filter specification implies.
package classify

import (
	"strings"

	"mercatus/internal/domain/erp"
)

// FiscalClass categorizes a purchase line by its fiscal-operation code.
type FiscalClass int

const (
	FiscalPurchase FiscalClass = iota
	FiscalBonus
	FiscalOther
)

func (f FiscalClass) String() string {
	switch f {
	case FiscalPurchase:
		return "purchase"
	case FiscalBonus:
		return "bonus"
	default:
		return "other"
	}
}

// Fixed code sets, documented per classification. The source store pads CHAR
// columns, so codes are compared trimmed.
var (
	purchaseCodes = codeSet("1101", "1102", "2101", "2102", "1401", "1403", "2403")
	bonusCodes    = codeSet("1910", "2910", "1411", "2411", "5910", "6910", "5911", "6911", "9505")
)

func codeSet(codes ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

// ClassifyPurchase returns the fiscal class of a fiscal-operation code.
func ClassifyPurchase(code string) FiscalClass {
	code = strings.TrimSpace(code)
	if _, ok := purchaseCodes[code]; ok {
		return FiscalPurchase
	}
	if _, ok := bonusCodes[code]; ok {
		return FiscalBonus
	}
	return FiscalOther
}

// SaleChannel identifies where a sale line originated.
type SaleChannel int

const (
	ChannelPOS             SaleChannel = 0
	ChannelCustomerInvoice SaleChannel = 1
	ChannelCounterSale     SaleChannel = 2
	ChannelTransferInvoice SaleChannel = 3
)

func (c SaleChannel) String() string {
	switch c {
	case ChannelPOS:
		return "pos"
	case ChannelCustomerInvoice:
		return "customer_invoice"
	case ChannelCounterSale:
		return "counter_sale"
	case ChannelTransferInvoice:
		return "transfer_invoice"
	default:
		return "unknown"
	}
}

// ClassifySale maps a raw channel code to a SaleChannel.
func ClassifySale(code int) (SaleChannel, bool) {
	switch code {
	case 0, 1, 2, 3:
		return SaleChannel(code), true
	default:
		return 0, false
	}
}

// FiscalSelection is the fiscal-classification include-set of a filter
// specification. A nil *FiscalSelection means the caller supplied no
// selection and nothing is filtered.
type FiscalSelection struct {
	Purchase bool
	Bonus    bool
	Other    bool
}

// Predicate builds the purchase-line inclusion test the selection implies.
//
// Rules: all three classes selected, or no selection supplied, passes every
// line. Only Other excludes the Purchase and Bonus code sets. Other plus some
// named class excludes only the unselected named sets. Named classes without
// Other include the union of their code sets. An empty include-set (nothing
// selected, Other explicitly excluded) rejects everything: fail closed, not
// an error.
func (sel *FiscalSelection) Predicate() func(line erp.PurchaseLine) bool {
	if sel == nil {
		return func(erp.PurchaseLine) bool { return true }
	}

	switch {
	case sel.Purchase && sel.Bonus && sel.Other:
		return func(erp.PurchaseLine) bool { return true }

	case sel.Other && !sel.Purchase && !sel.Bonus:
		return func(line erp.PurchaseLine) bool {
			return ClassifyPurchase(line.FiscalCode) == FiscalOther
		}

	case sel.Other:
		// Other plus one named class: exclude only the unselected set.
		return func(line erp.PurchaseLine) bool {
			switch ClassifyPurchase(line.FiscalCode) {
			case FiscalPurchase:
				return sel.Purchase
			case FiscalBonus:
				return sel.Bonus
			default:
				return true
			}
		}

	case sel.Purchase || sel.Bonus:
		return func(line erp.PurchaseLine) bool {
			switch ClassifyPurchase(line.FiscalCode) {
			case FiscalPurchase:
				return sel.Purchase
			case FiscalBonus:
				return sel.Bonus
			default:
				return false
			}
		}

	default:
		return func(erp.PurchaseLine) bool { return false }
	}
}

// ChannelSelection is the sale-channel include-set of a filter specification.
// A nil *ChannelSelection means no filtering.
type ChannelSelection struct {
	POS             bool
	CustomerInvoice bool
	CounterSale     bool
	TransferInvoice bool
}

func (sel *ChannelSelection) enabled(c SaleChannel) bool {
	switch c {
	case ChannelPOS:
		return sel.POS
	case ChannelCustomerInvoice:
		return sel.CustomerInvoice
	case ChannelCounterSale:
		return sel.CounterSale
	case ChannelTransferInvoice:
		return sel.TransferInvoice
	default:
		return false
	}
}

// Predicate builds the sale-line inclusion test. Selecting all four channels
// or none is equivalent to no filtering; lines with unknown channel codes pass
// only when no filtering applies.
func (sel *ChannelSelection) Predicate() func(line erp.SaleLine) bool {
	if sel == nil {
		return func(erp.SaleLine) bool { return true }
	}

	selected := 0
	for _, on := range []bool{sel.POS, sel.CustomerInvoice, sel.CounterSale, sel.TransferInvoice} {
		if on {
			selected++
		}
	}
	if selected == 0 || selected == 4 {
		return func(erp.SaleLine) bool { return true }
	}

	return func(line erp.SaleLine) bool {
		ch, ok := ClassifySale(line.ChannelCode)
		if !ok {
			return false
		}
		return sel.enabled(ch)
	}
}
