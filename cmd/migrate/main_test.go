package main

import (
	"strings"
	"testing"
	"time"
)

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename string
		ok       bool
		version  int
		name     string
	}{
		{"0001_create_cleaning_runs.sql", true, 1, "create_cleaning_runs"},
		{"0002_create_clean_records.sql", true, 2, "create_clean_records"},
		{"0010_add_quality_rate_index.sql", true, 10, "add_quality_rate_index"},
		{"001_too_short.sql", false, 0, ""},
		{"0001_missing_extension", false, 0, ""},
		{"0001.sql", false, 0, ""},
		{"create_0001_tables.sql", false, 0, ""},
		{"README.md", false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, ok := parseMigrationFilename(tt.filename)
			if ok != tt.ok {
				t.Fatalf("parseMigrationFilename(%q) ok = %v, want %v", tt.filename, ok, tt.ok)
			}
			if version != tt.version {
				t.Errorf("version = %d, want %d", version, tt.version)
			}
			if name != tt.name {
				t.Errorf("name = %q, want %q", name, tt.name)
			}
		})
	}
}

func TestPendingMigrations(t *testing.T) {
	all := []Migration{
		{Version: 1, Name: "create_cleaning_runs", Checksum: "aaa"},
		{Version: 2, Name: "create_clean_records", Checksum: "bbb"},
		{Version: 3, Name: "add_quality_rate_index", Checksum: "ccc"},
	}
	applied := []AppliedMigration{
		{Version: 1, Name: "create_cleaning_runs", AppliedAt: time.Now(), Checksum: "aaa"},
	}

	pending, err := pendingMigrations(all, applied)
	if err != nil {
		t.Fatalf("pendingMigrations returned error: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("got %d pending migrations, want 2", len(pending))
	}
	if pending[0].Version != 2 || pending[1].Version != 3 {
		t.Errorf("pending versions = %d, %d; want 2, 3", pending[0].Version, pending[1].Version)
	}
}

func TestPendingMigrations_ChecksumMismatch(t *testing.T) {
	all := []Migration{
		{Version: 1, Name: "create_cleaning_runs", Checksum: "edited"},
	}
	applied := []AppliedMigration{
		{Version: 1, Name: "create_cleaning_runs", Checksum: "original"},
	}

	_, err := pendingMigrations(all, applied)
	if err == nil {
		t.Fatal("expected error for modified migration, got nil")
	}
	if !strings.Contains(err.Error(), "modified after being applied") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPendingMigrations_LegacyRowWithoutChecksum(t *testing.T) {
	// Rows applied before checksums were recorded must not trip the
	// mismatch check.
	all := []Migration{
		{Version: 1, Name: "create_cleaning_runs", Checksum: "aaa"},
	}
	applied := []AppliedMigration{
		{Version: 1, Name: "create_cleaning_runs", Checksum: ""},
	}

	pending, err := pendingMigrations(all, applied)
	if err != nil {
		t.Fatalf("pendingMigrations returned error: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("got %d pending migrations, want 0", len(pending))
	}
}
