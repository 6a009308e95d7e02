package feedsync

import (
	"strconv"
	"strings"

	"github.com/marginview/marginview/internal/reports"
)

// Fingerprint derives the economic identity of a sales line. The feed has
// been observed re-exporting one line under two internal line ids; lines
// sharing a fingerprint are the same economic fact.
func Fingerprint(l reports.SalesLine) string {
	return strings.Join([]string{
		l.TransactionID,
		l.ItemID,
		strconv.FormatFloat(l.Quantity, 'g', -1, 64),
		strconv.FormatFloat(l.Revenue, 'g', -1, 64),
	}, "|")
}

// DedupSalesLines collapses lines sharing a fingerprint, keeping the first
// occurrence, and reports how many were removed. It runs only on pre-write
// batches; persisted rows are deduplicated at write time by the natural
// upsert key.
func DedupSalesLines(batch []reports.SalesLine) ([]reports.SalesLine, int) {
	seen := make(map[string]bool, len(batch))
	out := make([]reports.SalesLine, 0, len(batch))
	for _, l := range batch {
		fp := Fingerprint(l)
		if seen[fp] {
			continue
		}
		seen[fp] = true
		out = append(out, l)
	}
	return out, len(batch) - len(out)
}
