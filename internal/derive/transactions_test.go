package derive

import (
	"testing"
	"time"

	"github.com/estatetools/opsdash/internal/models"
	"github.com/estatetools/opsdash/internal/sheets"
)

func moneyTable(rows [][]string) *sheets.Table {
	return &sheets.Table{
		Name:   sheets.TableMoney,
		Header: []string{"APARTMENT CODE", "SUBMISSION DATE", "TYPE OF MONEY TASK", "SPECIFIC MONEY TASK"},
		Rows:   rows,
	}
}

func TestBuildTransactionIndex(t *testing.T) {
	t.Parallel()

	table := moneyTable([][]string{
		{"AP-01", "2024-06-01", "CHECK-IN", ""},
		{"AP-01", "2024-06-20", "OTHER", "RENT COLLECTION"},
		{"", "2024-06-05", "CHECK-IN", ""},          // empty code skipped
		{"AP-02", "not a date", "CHECK-IN", ""},     // bad date skipped
		{"AP-02", "10/06/2024", "CHECK-OUT", ""},
	})

	idx, err := BuildTransactionIndex(table, sheets.DefaultMapping())
	if err != nil {
		t.Fatalf("BuildTransactionIndex() error = %v", err)
	}

	if len(idx["AP-01"]) != 2 {
		t.Fatalf("AP-01 has %d events, want 2", len(idx["AP-01"]))
	}
	// Most recent first.
	if !idx["AP-01"][0].Date.Equal(models.NewDate(2024, time.June, 20)) {
		t.Errorf("AP-01 latest = %v, want 2024-06-20", idx["AP-01"][0].Date)
	}

	if len(idx["AP-02"]) != 1 {
		t.Fatalf("AP-02 has %d events, want 1", len(idx["AP-02"]))
	}
	latest, ok := idx.Latest("AP-02")
	if !ok || !latest.IsCheckOut() {
		t.Errorf("AP-02 latest = (%+v, %v), want a check-out event", latest, ok)
	}

	if _, ok := idx.Latest("AP-99"); ok {
		t.Error("Latest() for unknown apartment should report not found")
	}
}

func TestBuildTransactionIndex_MissingColumn(t *testing.T) {
	t.Parallel()

	table := &sheets.Table{
		Name:   sheets.TableMoney,
		Header: []string{"APARTMENT CODE", "SUBMISSION DATE"},
	}
	if _, err := BuildTransactionIndex(table, sheets.DefaultMapping()); err == nil {
		t.Error("expected error for missing required column")
	}
}

func TestTransaction_IsRent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		taskType string
		specific string
		want     bool
	}{
		{"CHECK-IN", "", true},
		{"Monthly check-in visit", "", true},
		{"OTHER", "rent collection", true},
		{"OTHER", "RENT COLLECT", true},
		{"CHECK-OUT", "", false},
		{"DEPOSIT", "CLEANING", false},
	}

	for _, tt := range tests {
		tr := Transaction{TaskType: tt.taskType, Specific: tt.specific}
		if tr.IsRent() != tt.want {
			t.Errorf("IsRent(%q, %q) = %v, want %v", tt.taskType, tt.specific, tr.IsRent(), tt.want)
		}
	}
}

func TestBuildReadingIndex_KeepsLatest(t *testing.T) {
	t.Parallel()

	table := &sheets.Table{
		Name:   sheets.TableUtility,
		Header: []string{"Apartment Code", "Date of Reading"},
		Rows: [][]string{
			{"AP-01", "01/05/2024"},
			{"AP-01", "10/06/2024 09:00:00"},
			{"AP-01", "01-06-2024"},
			{"AP-02", "garbage"},
		},
	}

	idx, err := BuildReadingIndex(table, sheets.DefaultMapping())
	if err != nil {
		t.Fatalf("BuildReadingIndex() error = %v", err)
	}
	if !idx["AP-01"].Equal(models.NewDate(2024, time.June, 10)) {
		t.Errorf("AP-01 reading = %v, want 2024-06-10", idx["AP-01"])
	}
	if _, ok := idx["AP-02"]; ok {
		t.Error("apartment with only unparseable dates should be absent")
	}
}
