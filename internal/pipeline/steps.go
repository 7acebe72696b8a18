package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vpenkov/finclean/internal/config"
)

// PipelineStep represents a single stage of the cleaning transform.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the evolving row set and the shared ledger threaded
// through all stages.
type PipelineState struct {
	// Columns is the input header in original order; deduplication compares
	// rows column by column in this order.
	Columns []string

	Records []*Record
	Tracker *QualityTracker
}

// CleanDatesStep standardizes the date field across all rows.
type CleanDatesStep struct {
	cleaner *DateCleaner
}

func (s *CleanDatesStep) Execute(ctx context.Context, state *PipelineState) error {
	for _, rec := range state.Records {
		rec.Date = s.cleaner.Clean(rec.RawDate, rec.OriginalIndex, state.Tracker)
	}
	return nil
}

// CleanNumericFieldsStep repairs and parses revenue and expenses.
type CleanNumericFieldsStep struct {
	cleaner *NumericCleaner
}

func (s *CleanNumericFieldsStep) Execute(ctx context.Context, state *PipelineState) error {
	for _, rec := range state.Records {
		rec.Revenue = s.cleaner.Clean(rec.RawRevenue, rec.OriginalIndex, FieldRevenue, state.Tracker)
		rec.Expenses = s.cleaner.Clean(rec.RawExpenses, rec.OriginalIndex, FieldExpenses, state.Tracker)
	}
	return nil
}

// CleanCategoriesStep corrects category typos against the whitelist.
type CleanCategoriesStep struct {
	cleaner *CategoryCleaner
}

func (s *CleanCategoriesStep) Execute(ctx context.Context, state *PipelineState) error {
	for _, rec := range state.Records {
		rec.Category = s.cleaner.Clean(rec.Category, rec.OriginalIndex, state.Tracker)
	}
	return nil
}

// RemoveInvalidStep drops rows missing any critical field after cleaning.
type RemoveInvalidStep struct{}

func (s *RemoveInvalidStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Records = RemoveInvalidRecords(state.Records, state.Tracker)
	return nil
}

// RemoveDuplicatesStep drops exact-duplicate rows, keeping the first.
type RemoveDuplicatesStep struct{}

func (s *RemoveDuplicatesStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Records = RemoveDuplicateRecords(state.Columns, state.Records, state.Tracker)
	return nil
}

// ConvertCurrencyStep converts monetary fields into the base currency.
type ConvertCurrencyStep struct {
	converter *CurrencyConverter
}

func (s *ConvertCurrencyStep) Execute(ctx context.Context, state *PipelineState) error {
	return s.converter.ConvertRecords(state.Records)
}

// CalculateProfitStep derives the profit column.
type CalculateProfitStep struct{}

func (s *CalculateProfitStep) Execute(ctx context.Context, state *PipelineState) error {
	CalculateProfit(state.Records)
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially against the shared state.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewCleaningPipeline assembles the standard 7-stage cleaning pipeline in
// its fixed order: field cleaning, validity filtering, deduplication,
// currency conversion, profit computation.
func NewCleaningPipeline(cfg *config.Pipeline, log zerolog.Logger) *Pipeline {
	return NewPipeline(
		&CleanDatesStep{cleaner: NewDateCleaner(log)},
		&CleanNumericFieldsStep{cleaner: NewNumericCleaner(log)},
		&CleanCategoriesStep{cleaner: NewCategoryCleaner(cfg.Categories)},
		&RemoveInvalidStep{},
		&RemoveDuplicatesStep{},
		&ConvertCurrencyStep{converter: NewCurrencyConverter(cfg.CurrencyRates, cfg.StrictCurrency)},
		&CalculateProfitStep{},
	)
}
