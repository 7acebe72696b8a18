// Command migrate applies versioned SQL migrations to the finclean
// BigQuery dataset. Applied versions are tracked in a schema_migrations
// table so reruns are idempotent.
package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/vpenkov/finclean/internal/logger"
)

// Migration is a single SQL migration file on disk.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration is a row from the schema_migrations table.
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

var migrationFilePattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

var (
	projectID     = flag.String("project", "finclean-prod", "GCP project ID")
	datasetID     = flag.String("dataset", "finclean", "BigQuery dataset ID")
	appliedBy     = flag.String("applied-by", "migrate-cli", "Recorded as the applier of each migration")
	migrationsDir = flag.String("migrations", "migrations/bigquery", "Path to migrations directory")
)

func main() {
	flag.Parse()

	log := logger.New()
	ctx := logger.WithContext(context.Background(), log)

	client, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("creating BigQuery client")
	}
	defer client.Close()

	log.Info().
		Str("project", *projectID).
		Str("dataset", *datasetID).
		Msg("connected to BigQuery")

	if err := ensureSchemaMigrationsTable(ctx, client); err != nil {
		log.Fatal().Err(err).Msg("ensuring schema_migrations table")
	}

	migrations, err := readMigrations(ctx, *migrationsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("reading migration files")
	}
	log.Info().Int("count", len(migrations)).Msg("found migration files")

	applied, err := getAppliedMigrations(ctx, client)
	if err != nil {
		log.Fatal().Err(err).Msg("listing applied migrations")
	}
	log.Info().Int("count", len(applied)).Msg("found already applied migrations")

	pending, err := pendingMigrations(migrations, applied)
	if err != nil {
		log.Fatal().Err(err).Msg("resolving pending migrations")
	}

	for _, m := range migrations {
		if !containsVersion(pending, m.Version) {
			log.Info().Msgf("  [SKIP] %04d_%s (already applied)", m.Version, m.Name)
		}
	}

	for _, m := range pending {
		log.Info().Msgf("  [RUN]  %04d_%s", m.Version, m.Name)

		if err := executeMigration(ctx, client, m); err != nil {
			log.Fatal().Err(err).Msgf("executing migration %04d_%s", m.Version, m.Name)
		}
		if err := recordMigration(ctx, client, m); err != nil {
			log.Fatal().Err(err).Msgf("recording migration %04d_%s", m.Version, m.Name)
		}

		log.Info().Msgf("  [OK]   %04d_%s", m.Version, m.Name)
	}

	if len(pending) == 0 {
		log.Info().Msg("no new migrations to apply, dataset is up to date")
	} else {
		log.Info().Int("applied", len(pending)).Msg("migrations applied")
	}
}

// parseMigrationFilename splits a migration filename of the form
// 0001_create_cleaning_runs.sql into its version and name.
func parseMigrationFilename(filename string) (version int, name string, ok bool) {
	matches := migrationFilePattern.FindStringSubmatch(filename)
	if matches == nil {
		return 0, "", false
	}
	version, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, "", false
	}
	return version, matches[2], true
}

// pendingMigrations returns the migrations not yet applied, in version
// order. A checksum mismatch on an already applied migration is an error:
// it means a migration file was edited after the fact.
func pendingMigrations(all []Migration, applied []AppliedMigration) ([]Migration, error) {
	appliedByVersion := make(map[int]AppliedMigration, len(applied))
	for _, am := range applied {
		appliedByVersion[am.Version] = am
	}

	var pending []Migration
	for _, m := range all {
		am, done := appliedByVersion[m.Version]
		if !done {
			pending = append(pending, m)
			continue
		}
		if am.Checksum != "" && am.Checksum != m.Checksum {
			return nil, fmt.Errorf("migration %04d_%s was modified after being applied (checksum %s, recorded %s)",
				m.Version, m.Name, m.Checksum, am.Checksum)
		}
	}
	return pending, nil
}

func containsVersion(migrations []Migration, version int) bool {
	for _, m := range migrations {
		if m.Version == version {
			return true
		}
	}
	return false
}

// readMigrations loads every *.sql file in dir matching the NNNN_name.sql
// pattern, sorted by version. {{PROJECT_ID}} and {{DATASET_ID}}
// placeholders in the SQL are substituted; the checksum is taken over the
// raw file content so it stays stable across environments.
func readMigrations(ctx context.Context, dir string) ([]Migration, error) {
	log := logger.FromContext(ctx)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		// Fall back to the repo root when run from cmd/migrate.
		alt := filepath.Join("../..", dir)
		if _, err := os.Stat(alt); os.IsNotExist(err) {
			return nil, fmt.Errorf("migrations directory not found: %s", dir)
		}
		dir = alt
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []Migration
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		version, name, ok := parseMigrationFilename(file.Name())
		if !ok {
			log.Warn().Str("file", file.Name()).Msg("skipping file, name does not match NNNN_name.sql")
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file.Name(), err)
		}

		sql := string(content)
		sql = strings.ReplaceAll(sql, "{{PROJECT_ID}}", *projectID)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", *datasetID)

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     name,
			Filename: file.Name(),
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

func ensureSchemaMigrationsTable(ctx context.Context, client *bigquery.Client) error {
	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS `+"`%s.%s.schema_migrations`"+` (
			version     INT64 NOT NULL,
			name        STRING NOT NULL,
			applied_at  TIMESTAMP NOT NULL,
			checksum    STRING,
			applied_by  STRING
		)
	`, *projectID, *datasetID)

	return runQuery(ctx, client.Query(sql))
}

func getAppliedMigrations(ctx context.Context, client *bigquery.Client) ([]AppliedMigration, error) {
	sql := fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM `+"`%s.%s.schema_migrations`"+`
		ORDER BY version ASC
	`, *projectID, *datasetID)

	it, err := client.Query(sql).Read(ctx)
	if err != nil {
		// A fresh dataset has no schema_migrations table yet.
		if strings.Contains(err.Error(), "Not found") {
			return nil, nil
		}
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64
			Name      string
			AppliedAt time.Time
			Checksum  bigquery.NullString
			AppliedBy bigquery.NullString
		}

		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating applied migrations: %w", err)
		}

		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}

	return applied, nil
}

func executeMigration(ctx context.Context, client *bigquery.Client, m Migration) error {
	return runQuery(ctx, client.Query(m.SQL))
}

func recordMigration(ctx context.Context, client *bigquery.Client, m Migration) error {
	q := client.Query(fmt.Sprintf(`
		INSERT INTO `+"`%s.%s.schema_migrations`"+`
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, *projectID, *datasetID))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: *appliedBy},
	}

	return runQuery(ctx, q)
}

func runQuery(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
