package pipeline

import (
	"testing"

	"github.com/vpenkov/finclean/internal/logger"
)

func TestDateCleaner_Clean(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		want        string // "" means nil expected
		wantEntries int
	}{
		{
			name:        "US format gets standardized",
			input:       "1/15/2024",
			want:        "2024-01-15",
			wantEntries: 1,
		},
		{
			name:        "already ISO passes through silently",
			input:       "2024-01-15",
			want:        "2024-01-15",
			wantEntries: 0,
		},
		{
			name:        "ambiguous date resolves month-first",
			input:       "01/02/2024",
			want:        "2024-01-02",
			wantEntries: 1,
		},
		{
			name:        "trailing period stripped before parse",
			input:       "2024-01-15.",
			want:        "2024-01-15",
			wantEntries: 0,
		},
		{
			name:        "empty input",
			input:       "",
			want:        "",
			wantEntries: 0,
		},
		{
			name:        "whitespace only",
			input:       "   ",
			want:        "",
			wantEntries: 0,
		},
		{
			name:        "unparseable becomes nil without ledger entry",
			input:       "not a date",
			want:        "",
			wantEntries: 0,
		},
	}

	cleaner := NewDateCleaner(logger.Nop())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewQualityTracker(1)
			got := cleaner.Clean(tt.input, 0, tracker)

			if tt.want == "" {
				if got != nil {
					t.Errorf("Clean(%q) = %q, want nil", tt.input, *got)
				}
			} else {
				if got == nil {
					t.Fatalf("Clean(%q) = nil, want %q", tt.input, tt.want)
				}
				if *got != tt.want {
					t.Errorf("Clean(%q) = %q, want %q", tt.input, *got, tt.want)
				}
			}

			if len(tracker.Cleaned) != tt.wantEntries {
				t.Errorf("got %d ledger entries, want %d", len(tracker.Cleaned), tt.wantEntries)
			}
		})
	}
}

func TestDateCleaner_LedgerEntryContents(t *testing.T) {
	cleaner := NewDateCleaner(logger.Nop())
	tracker := NewQualityTracker(5)

	cleaner.Clean("1/15/2024", 3, tracker)

	if len(tracker.Cleaned) != 1 {
		t.Fatalf("got %d entries, want 1", len(tracker.Cleaned))
	}
	entry := tracker.Cleaned[0]
	if entry.Index != 3 {
		t.Errorf("entry index = %d, want 3", entry.Index)
	}
	if entry.Field != FieldDate {
		t.Errorf("entry field = %q, want %q", entry.Field, FieldDate)
	}
	if entry.OldValue != "1/15/2024" || entry.NewValue != "2024-01-15" {
		t.Errorf("entry values = %q -> %q, want '1/15/2024' -> '2024-01-15'", entry.OldValue, entry.NewValue)
	}
}
