package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	bq "github.com/vpenkov/finclean/internal/bigquery"
	"github.com/vpenkov/finclean/internal/pipeline"
)

const cleanRecordsTable = "clean_records"

// InsertCleanRecords inserts a batch of CleanRecordRow into
// finclean.clean_records.
func InsertCleanRecords(ctx context.Context, rows []*bq.CleanRecordRow) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("InsertCleanRecords: bigquery client: %w", err)
	}
	defer client.Close()

	return InsertCleanRecordsWithClient(ctx, client, rows)
}

// InsertCleanRecordsWithClient inserts a batch of CleanRecordRow using the
// provided BigQuery client.
func InsertCleanRecordsWithClient(ctx context.Context, client *bigquery.Client, rows []*bq.CleanRecordRow) error {
	if len(rows) == 0 {
		return nil
	}

	table := client.DatasetInProject(projectID, datasetID).Table(cleanRecordsTable)
	inserter := table.Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertCleanRecords: inserting rows: %w", err)
	}

	return nil
}

// RowsFromRecords converts fully cleaned pipeline records into their
// warehouse rows. Records reaching this point always carry a valid ISO date;
// an unparseable one is a programming error surfaced as an error return.
func RowsFromRecords(runID string, records []*pipeline.Record) ([]*bq.CleanRecordRow, error) {
	now := time.Now()
	rows := make([]*bq.CleanRecordRow, 0, len(records))

	for _, rec := range records {
		if rec.Date == nil {
			return nil, fmt.Errorf("RowsFromRecords: record %d has no date after cleaning", rec.Index)
		}
		date, err := civil.ParseDate(*rec.Date)
		if err != nil {
			return nil, fmt.Errorf("RowsFromRecords: record %d date %q: %w", rec.Index, *rec.Date, err)
		}

		rows = append(rows, &bq.CleanRecordRow{
			RunID:            runID,
			RecordDate:       date,
			CompanyID:        rec.CompanyID(),
			RevenueBGN:       nullFloat(rec.RevenueBGN),
			ExpensesBGN:      nullFloat(rec.ExpensesBGN),
			ProfitBGN:        nullFloat(rec.ProfitBGN),
			OriginalCurrency: rec.OriginalCurrency,
			Category:         rec.Category,
			CreatedTS:        now,
		})
	}

	return rows, nil
}

func nullFloat(v *float64) bigquery.NullFloat64 {
	if v == nil {
		return bigquery.NullFloat64{}
	}
	return bigquery.NullFloat64{Float64: *v, Valid: true}
}
