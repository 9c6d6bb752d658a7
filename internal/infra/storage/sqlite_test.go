package storage

import (
	"fmt"
	"os"
	"testing"
	"time"

	"lighter_go/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *Storage {
	dbName := "test.db"
	db, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	if err := db.AutoMigrate(&domain.ExecutionReport{}); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}

	t.Cleanup(func() {
		os.Remove(dbName)
	})

	return &Storage{db: db}
}

func sampleReport(id string, createdAt time.Time) *domain.ExecutionReport {
	return &domain.ExecutionReport{
		ID:        id,
		Symbol:    "ETH-USDC",
		Side:      "LONG",
		Price:     100.375,
		Size:      8,
		Fills:     2,
		BestBid:   100,
		BestAsk:   100.5,
		Spread:    0.0025,
		Slippage:  0.125,
		SlipRatio: 0.00124,
		Cost:      2.99,
		CreatedAt: createdAt,
	}
}

func TestSaveAndRecentReports(t *testing.T) {
	s := setupTestDB(t)

	now := time.Now()
	for i := 0; i < 5; i++ {
		r := sampleReport(fmt.Sprintf("id-%d", i), now.Add(time.Duration(i)*time.Second))
		if err := s.SaveReport(r); err != nil {
			t.Fatalf("SaveReport failed: %v", err)
		}
	}

	reports, err := s.RecentReports(3)
	if err != nil {
		t.Fatalf("RecentReports failed: %v", err)
	}
	if len(reports) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(reports))
	}
	// Newest first
	if reports[0].ID != "id-4" {
		t.Errorf("expected newest report first, got %s", reports[0].ID)
	}
}

func TestReportFieldsRoundTrip(t *testing.T) {
	s := setupTestDB(t)

	lat := int64(42)
	avg := 100.25
	r := sampleReport("rt", time.Now())
	r.LatencyMs = &lat
	r.BookAvgPrice = &avg

	if err := s.SaveReport(r); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}

	reports, err := s.RecentReports(1)
	if err != nil {
		t.Fatal(err)
	}
	got := reports[0]
	if got.LatencyMs == nil || *got.LatencyMs != 42 {
		t.Errorf("latency lost: %v", got.LatencyMs)
	}
	if got.BookAvgPrice == nil || *got.BookAvgPrice != 100.25 {
		t.Errorf("book avg lost: %v", got.BookAvgPrice)
	}
	if got.Side != "LONG" || got.Fills != 2 {
		t.Errorf("fields lost: %+v", got)
	}
}

func TestReportsForSymbol(t *testing.T) {
	s := setupTestDB(t)

	r1 := sampleReport("a", time.Now())
	r2 := sampleReport("b", time.Now())
	r2.Symbol = "BTC-USDC"
	s.SaveReport(r1)
	s.SaveReport(r2)

	reports, err := s.ReportsForSymbol("BTC-USDC", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 1 || reports[0].ID != "b" {
		t.Errorf("symbol filter failed: %+v", reports)
	}
}

func TestPruneOlderThan(t *testing.T) {
	s := setupTestDB(t)

	old := sampleReport("old", time.Now().AddDate(0, 0, -10))
	fresh := sampleReport("fresh", time.Now())
	s.SaveReport(old)
	s.SaveReport(fresh)

	removed, err := s.PruneOlderThan(7)
	if err != nil {
		t.Fatalf("PruneOlderThan failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 pruned report, got %d", removed)
	}

	reports, _ := s.RecentReports(10)
	if len(reports) != 1 || reports[0].ID != "fresh" {
		t.Errorf("wrong rows survived: %+v", reports)
	}

	// Disabled retention is a no-op.
	if removed, _ := s.PruneOlderThan(0); removed != 0 {
		t.Errorf("retention 0 must not prune, removed %d", removed)
	}
}
