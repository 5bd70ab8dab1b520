package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mercatus/internal/domain/erp"
)

func purchaseLine(code string) erp.PurchaseLine {
	return erp.PurchaseLine{FiscalCode: code}
}

func TestClassifyPurchase(t *testing.T) {
	tests := []struct {
		code string
		want FiscalClass
	}{
		{"1101", FiscalPurchase},
		{"2403", FiscalPurchase},
		{"1910", FiscalBonus},
		{"9505", FiscalBonus},
		{"1407", FiscalOther},
		{"1556", FiscalOther},
		{"5102", FiscalOther},
		{"1102  ", FiscalPurchase}, // CHAR padding from the source store
		{"  2910", FiscalBonus},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyPurchase(tt.code), "code %q", tt.code)
	}
}

func TestFiscalPredicate(t *testing.T) {
	tests := []struct {
		name string
		sel  *FiscalSelection
		code string
		want bool
	}{
		{"nil selection passes purchase", nil, "1101", true},
		{"nil selection passes other", nil, "1556", true},
		{"all selected passes everything", &FiscalSelection{true, true, true}, "1556", true},
		{"only other excludes purchase", &FiscalSelection{Other: true}, "1101", false},
		{"only other excludes bonus", &FiscalSelection{Other: true}, "1910", false},
		{"only other passes other", &FiscalSelection{Other: true}, "1556", true},
		{"other+purchase excludes bonus only", &FiscalSelection{Purchase: true, Other: true}, "1910", false},
		{"other+purchase passes purchase", &FiscalSelection{Purchase: true, Other: true}, "1101", true},
		{"other+purchase passes other", &FiscalSelection{Purchase: true, Other: true}, "1556", true},
		{"purchase only passes purchase", &FiscalSelection{Purchase: true}, "1101", true},
		{"purchase only rejects bonus", &FiscalSelection{Purchase: true}, "1910", false},
		{"purchase only rejects other", &FiscalSelection{Purchase: true}, "1556", false},
		{"purchase+bonus passes union", &FiscalSelection{Purchase: true, Bonus: true}, "2910", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred := tt.sel.Predicate()
			assert.Equal(t, tt.want, pred(purchaseLine(tt.code)))
		})
	}
}

// Empty include-set rejects every line: fail closed, no error raised.
func TestFiscalPredicate_FailClosed(t *testing.T) {
	pred := (&FiscalSelection{}).Predicate()

	for _, code := range []string{"1101", "1910", "1556", ""} {
		assert.False(t, pred(purchaseLine(code)), "code %q must be rejected", code)
	}
}

func TestChannelPredicate(t *testing.T) {
	line := func(code int) erp.SaleLine { return erp.SaleLine{ChannelCode: code} }

	t.Run("nil passes all", func(t *testing.T) {
		pred := (*ChannelSelection)(nil).Predicate()
		assert.True(t, pred(line(0)))
		assert.True(t, pred(line(3)))
	})

	t.Run("none selected passes all", func(t *testing.T) {
		pred := (&ChannelSelection{}).Predicate()
		assert.True(t, pred(line(1)))
	})

	t.Run("all selected passes all", func(t *testing.T) {
		pred := (&ChannelSelection{true, true, true, true}).Predicate()
		assert.True(t, pred(line(2)))
	})

	t.Run("subset filters", func(t *testing.T) {
		pred := (&ChannelSelection{POS: true, CounterSale: true}).Predicate()
		assert.True(t, pred(line(0)))
		assert.False(t, pred(line(1)))
		assert.True(t, pred(line(2)))
		assert.False(t, pred(line(3)))
	})

	t.Run("unknown channel rejected when filtering", func(t *testing.T) {
		pred := (&ChannelSelection{POS: true}).Predicate()
		assert.False(t, pred(line(9)))
	})
}
