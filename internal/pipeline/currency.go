package pipeline

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyConverter applies a static rate table to monetary fields,
// producing 2-decimal amounts in the base currency. In lenient mode an
// unrecognized currency code silently assumes parity (rate 1.0), preserved
// for compatibility with upstream data; strict mode fails the run instead.
type CurrencyConverter struct {
	rates  map[string]decimal.Decimal
	strict bool
}

// NewCurrencyConverter builds a converter from a code→rate table. Codes are
// looked up uppercased.
func NewCurrencyConverter(rates map[string]float64, strict bool) *CurrencyConverter {
	table := make(map[string]decimal.Decimal, len(rates))
	for code, rate := range rates {
		table[strings.ToUpper(code)] = decimal.NewFromFloat(rate)
	}
	return &CurrencyConverter{rates: table, strict: strict}
}

// ConvertAmount converts a single amount. A nil amount or empty currency
// yields nil: this cannot occur after the validity filter but the converter
// stays null-safe for component-level use. The error is non-nil only in
// strict mode for an unknown currency code.
func (c *CurrencyConverter) ConvertAmount(amount *float64, currency string) (*float64, error) {
	if amount == nil || currency == "" {
		return nil, nil
	}

	rate, ok := c.rates[strings.ToUpper(currency)]
	if !ok {
		if c.strict {
			return nil, fmt.Errorf("unknown currency code %q", currency)
		}
		rate = decimal.NewFromInt(1)
	}

	converted := decimal.NewFromFloat(*amount).Mul(rate).Round(2).InexactFloat64()
	return &converted, nil
}

// ConvertRecords converts revenue and expenses for every record, preserving
// the supplied currency code verbatim in OriginalCurrency.
func (c *CurrencyConverter) ConvertRecords(records []*Record) error {
	for _, rec := range records {
		rec.OriginalCurrency = rec.Currency

		revenue, err := c.ConvertAmount(rec.Revenue, rec.Currency)
		if err != nil {
			return fmt.Errorf("converting revenue at row %d: %w", rec.Index, err)
		}
		expenses, err := c.ConvertAmount(rec.Expenses, rec.Currency)
		if err != nil {
			return fmt.Errorf("converting expenses at row %d: %w", rec.Index, err)
		}

		rec.RevenueBGN = revenue
		rec.ExpensesBGN = expenses
	}
	return nil
}
