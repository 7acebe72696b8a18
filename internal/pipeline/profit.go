package pipeline

import "github.com/shopspring/decimal"

// CalculateProfit derives profit from the already-converted monetary
// columns, rounded to 2 decimals. Profit stays nil when either input is nil.
// This is a pure derived computation and never touches the ledger.
func CalculateProfit(records []*Record) {
	for _, rec := range records {
		if rec.RevenueBGN == nil || rec.ExpensesBGN == nil {
			continue
		}
		profit := decimal.NewFromFloat(*rec.RevenueBGN).
			Sub(decimal.NewFromFloat(*rec.ExpensesBGN)).
			Round(2).
			InexactFloat64()
		rec.ProfitBGN = &profit
	}
}
