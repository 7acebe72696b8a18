package pipeline

import (
	"testing"
)

var testRates = map[string]float64{
	"EUR": 1.96,
	"USD": 1.80,
	"GBP": 2.30,
	"BGN": 1.00,
}

func TestCurrencyConverter_ConvertAmount(t *testing.T) {
	conv := NewCurrencyConverter(testRates, false)

	tests := []struct {
		name     string
		amount   float64
		currency string
		want     float64
	}{
		{"usd", 100000, "USD", 180000},
		{"eur", 100, "EUR", 196},
		{"gbp", 10, "GBP", 23},
		{"bgn unchanged", 512.34, "BGN", 512.34},
		{"lowercase code", 100, "usd", 180},
		{"rounds to cents", 0.333, "EUR", 0.65},
		{"unknown code lenient parity", 75.50, "JPY", 75.50},
		{"negative amount", -50, "USD", -90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := conv.ConvertAmount(&tt.amount, tt.currency)
			if err != nil {
				t.Fatalf("ConvertAmount(%v, %q) error: %v", tt.amount, tt.currency, err)
			}
			if got == nil {
				t.Fatalf("ConvertAmount(%v, %q) = nil, want %v", tt.amount, tt.currency, tt.want)
			}
			if *got != tt.want {
				t.Errorf("ConvertAmount(%v, %q) = %v, want %v", tt.amount, tt.currency, *got, tt.want)
			}
		})
	}
}

func TestCurrencyConverter_StrictRejectsUnknownCode(t *testing.T) {
	conv := NewCurrencyConverter(testRates, true)

	amount := 100.0
	if _, err := conv.ConvertAmount(&amount, "JPY"); err == nil {
		t.Error("strict converter accepted unknown currency code JPY")
	}
	// Known codes still convert.
	got, err := conv.ConvertAmount(&amount, "EUR")
	if err != nil || got == nil || *got != 196 {
		t.Errorf("strict converter EUR: got %v, %v; want 196, nil", got, err)
	}
}

func TestCurrencyConverter_NullSafe(t *testing.T) {
	conv := NewCurrencyConverter(testRates, true)

	got, err := conv.ConvertAmount(nil, "USD")
	if got != nil || err != nil {
		t.Errorf("nil amount: got %v, %v; want nil, nil", got, err)
	}
	amount := 100.0
	got, err = conv.ConvertAmount(&amount, "")
	if got != nil || err != nil {
		t.Errorf("empty currency: got %v, %v; want nil, nil", got, err)
	}
}

func TestCurrencyConverter_PreservesOrderUnderPositiveRates(t *testing.T) {
	conv := NewCurrencyConverter(testRates, false)

	lo, hi := 100.0, 250.0
	gotLo, _ := conv.ConvertAmount(&lo, "EUR")
	gotHi, _ := conv.ConvertAmount(&hi, "EUR")
	if !(*gotLo < *gotHi) {
		t.Errorf("conversion broke ordering: %v >= %v", *gotLo, *gotHi)
	}
}

func TestConvertRecords(t *testing.T) {
	conv := NewCurrencyConverter(testRates, false)

	rec := validRecord(0)
	rec.Revenue = floatPtr(100000)
	rec.Expenses = floatPtr(50000)
	rec.Currency = "USD"

	if err := conv.ConvertRecords([]*Record{rec}); err != nil {
		t.Fatalf("ConvertRecords: %v", err)
	}
	if rec.OriginalCurrency != "USD" {
		t.Errorf("OriginalCurrency = %q, want USD", rec.OriginalCurrency)
	}
	if rec.RevenueBGN == nil || *rec.RevenueBGN != 180000 {
		t.Errorf("RevenueBGN = %v, want 180000", rec.RevenueBGN)
	}
	if rec.ExpensesBGN == nil || *rec.ExpensesBGN != 90000 {
		t.Errorf("ExpensesBGN = %v, want 90000", rec.ExpensesBGN)
	}
}

func TestConvertRecords_StrictError(t *testing.T) {
	conv := NewCurrencyConverter(testRates, true)

	rec := validRecord(0)
	rec.Currency = "CHF"

	if err := conv.ConvertRecords([]*Record{rec}); err == nil {
		t.Error("expected error for unknown currency in strict mode")
	}
}
