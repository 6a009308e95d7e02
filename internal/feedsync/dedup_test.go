package feedsync

import (
	"testing"

	"github.com/marginview/marginview/internal/reports"
)

func TestDedupKeepsFirstOccurrence(t *testing.T) {
	batch := []reports.SalesLine{
		{TransactionID: "T1", LineID: "1", ItemID: "SKU-1", Quantity: 2, Revenue: 100, ClassName: "first"},
		{TransactionID: "T1", LineID: "2", ItemID: "SKU-1", Quantity: 2, Revenue: 100, ClassName: "second"},
		{TransactionID: "T2", LineID: "1", ItemID: "SKU-1", Quantity: 2, Revenue: 100},
	}

	out, removed := DedupSalesLines(batch)
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(out))
	}
	if out[0].ClassName != "first" {
		t.Fatal("dedup must keep the first occurrence")
	}
	if out[1].TransactionID != "T2" {
		t.Fatal("different transaction must survive")
	}
}

func TestDedupDistinguishesQuantityAndRevenue(t *testing.T) {
	batch := []reports.SalesLine{
		{TransactionID: "T1", LineID: "1", ItemID: "SKU-1", Quantity: 2, Revenue: 100},
		{TransactionID: "T1", LineID: "2", ItemID: "SKU-1", Quantity: 3, Revenue: 100},
		{TransactionID: "T1", LineID: "3", ItemID: "SKU-1", Quantity: 2, Revenue: 150},
	}
	out, removed := DedupSalesLines(batch)
	if removed != 0 || len(out) != 3 {
		t.Fatalf("lines with different quantity or revenue are distinct, got removed=%d len=%d", removed, len(out))
	}
}

func TestDedupIsIdempotent(t *testing.T) {
	batch := []reports.SalesLine{
		{TransactionID: "T1", LineID: "1", ItemID: "A", Quantity: 1, Revenue: 10},
		{TransactionID: "T1", LineID: "2", ItemID: "A", Quantity: 1, Revenue: 10},
	}
	once, removed := DedupSalesLines(batch)
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	twice, removed := DedupSalesLines(once)
	if removed != 0 || len(twice) != len(once) {
		t.Fatalf("second pass must be a no-op, got removed=%d", removed)
	}
}

func TestDedupEmptyBatch(t *testing.T) {
	out, removed := DedupSalesLines(nil)
	if len(out) != 0 || removed != 0 {
		t.Fatalf("unexpected result for empty batch: len=%d removed=%d", len(out), removed)
	}
}
